package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"translation-dispatch/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Factory loads models from a repository and builds Lexicon engines.
type Factory struct {
	models      domain.ModelRepository
	loadTimeout time.Duration
	logger      *slog.Logger
	tracer      trace.Tracer
}

var _ domain.EngineFactory = (*Factory)(nil)

// NewFactory creates a factory. A non-positive loadTimeout disables the timeout.
func NewFactory(models domain.ModelRepository, loadTimeout time.Duration, logger *slog.Logger) *Factory {
	return &Factory{
		models:      models,
		loadTimeout: loadTimeout,
		logger:      logger.With("component", "engine-factory"),
		tracer:      otel.Tracer("translation-dispatch-engine"),
	}
}

// NewEngine loads and validates model taskID and builds an engine for it.
func (f *Factory) NewEngine(ctx context.Context, taskID int64) (domain.Engine, error) {
	ctx, span := f.tracer.Start(ctx, "engine.Load", trace.WithAttributes(attribute.Int64("model.id", taskID)))
	defer span.End()

	if f.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.loadTimeout)
		defer cancel()
	}

	model, err := f.models.Get(ctx, taskID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load model")
		return nil, fmt.Errorf("load model %d: %w", taskID, err)
	}
	if err := model.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model failed validation")
		return nil, fmt.Errorf("model %d: %w", taskID, err)
	}

	f.logger.Info("loaded model", "model_id", model.ID, "model_name", model.Name, "lexicon_size", len(model.Lexicon))
	span.SetAttributes(attribute.Int("model.lexicon_size", len(model.Lexicon)))
	return NewLexicon(model), nil
}
