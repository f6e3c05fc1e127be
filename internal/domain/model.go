package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrModelNotFound is a sentinel error returned when a model is not found.
	ErrModelNotFound = errors.New("model not found")
	// ErrInvalidModel wraps every parameter validation failure of a model.
	ErrInvalidModel = errors.New("invalid model")
)

// Candidate is one possible target word for a source word.
type Candidate struct {
	Target string  `json:"target"`
	Prob   float64 `json:"prob"`
}

// Model holds the parameters a lexicon engine is built from.
type Model struct {
	ID                int64                  `json:"id"`
	Name              string                 `json:"name"`
	Lexicon           map[string][]Candidate `json:"lexicon"`
	UnknownLogProb    float64                `json:"unknown_log_prob"`
	MaxSentenceLength int                    `json:"max_sentence_length"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// Validate checks the model parameters.
func (m *Model) Validate() error {
	if m.ID < 0 {
		return fmt.Errorf("%w: id %d must not be negative", ErrInvalidModel, m.ID)
	}
	if m.Name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidModel)
	}
	if len(m.Lexicon) == 0 {
		return fmt.Errorf("%w: lexicon cannot be empty", ErrInvalidModel)
	}
	// Source words are matched case-insensitively.
	seen := make(map[string]string, len(m.Lexicon))
	for word, candidates := range m.Lexicon {
		folded := strings.ToLower(word)
		if other, ok := seen[folded]; ok {
			return fmt.Errorf("%w: words %q and %q differ only in case", ErrInvalidModel, other, word)
		}
		seen[folded] = word
		if len(candidates) == 0 {
			return fmt.Errorf("%w: word %q has no candidates", ErrInvalidModel, word)
		}
		for _, c := range candidates {
			if c.Prob <= 0 || c.Prob > 1 {
				return fmt.Errorf("%w: candidate %q for %q has probability %v outside (0,1]", ErrInvalidModel, c.Target, word, c.Prob)
			}
		}
	}
	if m.UnknownLogProb >= 0 {
		return fmt.Errorf("%w: unknown word log-probability must be negative", ErrInvalidModel)
	}
	if m.MaxSentenceLength <= 0 {
		return fmt.Errorf("%w: max sentence length must be positive", ErrInvalidModel)
	}
	return nil
}

// ModelRepository defines the interface for persisting and retrieving models.
type ModelRepository interface {
	Save(ctx context.Context, model *Model) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*Model, error)
	List(ctx context.Context) ([]*Model, error)
}
