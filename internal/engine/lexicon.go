// internal/engine/lexicon.go
package engine

import (
	"context"
	"fmt"
	"math"
	"strings"

	"translation-dispatch/internal/domain"
)

type entry struct {
	target  string
	logProb float64
}

// Lexicon is a greedy word-by-word decoder over a validated model. It keeps
// per-instance counters and must stay with the worker that built it.
type Lexicon struct {
	modelID        int64
	table          map[string]entry
	unknownLogProb float64
	maxLength      int

	batches   int
	sentences int
}

// NewLexicon builds a decoder from model. The model must already be valid.
func NewLexicon(model *domain.Model) *Lexicon {
	table := make(map[string]entry, len(model.Lexicon))
	for word, candidates := range model.Lexicon {
		best := candidates[0]
		for _, c := range candidates[1:] {
			if c.Prob > best.Prob || (c.Prob == best.Prob && c.Target < best.Target) {
				best = c
			}
		}
		table[strings.ToLower(word)] = entry{target: best.Target, logProb: math.Log(best.Prob)}
	}
	return &Lexicon{
		modelID:        model.ID,
		table:          table,
		unknownLogProb: model.UnknownLogProb,
		maxLength:      model.MaxSentenceLength,
	}
}

// Decode translates every sentence of the batch.
func (l *Lexicon) Decode(_ context.Context, sentences domain.Sentences) (domain.Histories, error) {
	histories := make(domain.Histories, 0, len(sentences))
	for _, s := range sentences {
		words := strings.Fields(strings.ToLower(s.Text))
		if len(words) > l.maxLength {
			return nil, fmt.Errorf("%w: sentence %d has %d words, limit %d", domain.ErrSentenceTooLong, s.ID, len(words), l.maxLength)
		}

		out := make([]string, len(words))
		var score float64
		for i, w := range words {
			if e, ok := l.table[w]; ok {
				out[i] = e.target
				score += e.logProb
				continue
			}
			out[i] = w
			score += l.unknownLogProb
		}

		histories = append(histories, domain.History{
			SentenceID:  s.ID,
			Words:       out,
			Translation: strings.Join(out, " "),
			Score:       score,
			ModelID:     l.modelID,
		})
	}

	l.batches++
	l.sentences += len(sentences)
	return histories, nil
}

// Batches returns how many batches this instance has decoded.
func (l *Lexicon) Batches() int { return l.batches }

// Sentences returns how many sentences this instance has decoded.
func (l *Lexicon) Sentences() int { return l.sentences }

// ModelID returns the id of the model this instance was built from.
func (l *Lexicon) ModelID() int64 { return l.modelID }
