// internal/domain/sentence.go
package domain

// Sentence is one source sentence of a translation batch.
type Sentence struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// Sentences is an ordered batch of source sentences.
type Sentences []Sentence

// NewSentences numbers the given texts in order.
func NewSentences(texts ...string) Sentences {
	sentences := make(Sentences, len(texts))
	for i, text := range texts {
		sentences[i] = Sentence{ID: i, Text: text}
	}
	return sentences
}

// History is the decoded result for one sentence.
type History struct {
	SentenceID  int      `json:"sentence_id"`
	Words       []string `json:"words"`
	Translation string   `json:"translation"`
	Score       float64  `json:"score"`
	ModelID     int64    `json:"model_id"`
}

// Histories holds one History per input sentence, in input order.
type Histories []History
