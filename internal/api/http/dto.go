package http

import (
	"translation-dispatch/internal/domain"
)

// TranslateRequest is the body of POST /translate and POST /tasks.
type TranslateRequest struct {
	ID        string   `json:"id" validate:"omitempty,max=128"`
	TaskID    int64    `json:"task_id" validate:"gte=0"`
	Sentences []string `json:"sentences" validate:"required,min=1,dive,required"`
}

// ToDomainTask converts a TranslateRequest DTO to a domain.Task.
func (r *TranslateRequest) ToDomainTask() *domain.Task {
	return &domain.Task{
		ID:        r.ID,
		TaskID:    r.TaskID,
		Sentences: domain.NewSentences(r.Sentences...),
	}
}

// TranslateResponse is returned by POST /translate.
type TranslateResponse struct {
	ID        string           `json:"id"`
	TaskID    int64            `json:"task_id"`
	Histories domain.Histories `json:"histories"`
}

// CandidateRequest is one translation option for a source word.
type CandidateRequest struct {
	Target string  `json:"target" validate:"required"`
	Prob   float64 `json:"prob" validate:"gt=0,lte=1"`
}

// PublishModelRequest is the body of PUT /models/{id}.
type PublishModelRequest struct {
	Name              string                        `json:"name" validate:"required,min=1,max=128"`
	Lexicon           map[string][]CandidateRequest `json:"lexicon" validate:"required,min=1,dive,keys,required,endkeys,required,min=1,dive"`
	UnknownLogProb    float64                       `json:"unknown_log_prob" validate:"lt=0"`
	MaxSentenceLength int                           `json:"max_sentence_length" validate:"gt=0,lte=10000"`
}

// ToDomainModel converts a PublishModelRequest DTO to a domain.Model.
func (r *PublishModelRequest) ToDomainModel(id int64) *domain.Model {
	lexicon := make(map[string][]domain.Candidate, len(r.Lexicon))
	for word, candidates := range r.Lexicon {
		converted := make([]domain.Candidate, len(candidates))
		for i, c := range candidates {
			converted[i] = domain.Candidate{Target: c.Target, Prob: c.Prob}
		}
		lexicon[word] = converted
	}
	return &domain.Model{
		ID:                id,
		Name:              r.Name,
		Lexicon:           lexicon,
		UnknownLogProb:    r.UnknownLogProb,
		MaxSentenceLength: r.MaxSentenceLength,
	}
}
