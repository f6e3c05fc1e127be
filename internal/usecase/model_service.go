package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"translation-dispatch/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ModelService manages the translation models engines are built from.
type ModelService struct {
	repo   domain.ModelRepository
	locker domain.Locker
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewModelService creates a new ModelService.
func NewModelService(repo domain.ModelRepository, locker domain.Locker, logger *slog.Logger) *ModelService {
	return &ModelService{
		repo:   repo,
		locker: locker,
		logger: logger.With("component", "model-service"),
		tracer: otel.Tracer("translation-dispatch-usecase"),
		now:    time.Now,
	}
}

// Publish validates and stores a model under a per-model lock. Engines
// already built from an earlier version keep it; only new engines see the
// published one.
func (s *ModelService) Publish(ctx context.Context, model *domain.Model) error {
	ctx, span := s.tracer.Start(ctx, "service.PublishModel")
	defer span.End()
	span.SetAttributes(attribute.Int64("model.id", model.ID), attribute.String("model.name", model.Name))

	if err := model.Validate(); err != nil {
		span.RecordError(err)
		return err
	}

	lock, err := s.locker.Lock(ctx, "model-"+strconv.FormatInt(model.ID, 10))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to lock model")
		return err
	}
	defer func() {
		if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to unlock model", "model_id", model.ID, "error", err)
		}
	}()

	now := s.now()
	existing, err := s.repo.Get(ctx, model.ID)
	switch {
	case err == nil:
		model.CreatedAt = existing.CreatedAt
	case errors.Is(err, domain.ErrModelNotFound):
		model.CreatedAt = now
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read current model")
		return fmt.Errorf("failed to read model %d: %w", model.ID, err)
	}
	model.UpdatedAt = now

	if err := s.repo.Save(ctx, model); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save model to repository")
		return err
	}
	s.logger.Info("model published", "model_id", model.ID, "name", model.Name, "lexicon_size", len(model.Lexicon))
	return nil
}

// Get returns one model.
func (s *ModelService) Get(ctx context.Context, id int64) (*domain.Model, error) {
	ctx, span := s.tracer.Start(ctx, "service.GetModel")
	defer span.End()
	span.SetAttributes(attribute.Int64("model.id", id))

	model, err := s.repo.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get model from repository")
	}
	return model, err
}

// List returns every model.
func (s *ModelService) List(ctx context.Context) ([]*domain.Model, error) {
	ctx, span := s.tracer.Start(ctx, "service.ListModels")
	defer span.End()

	models, err := s.repo.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list models from repository")
	}
	return models, err
}

// Delete removes a model. Engines already built from it are unaffected.
func (s *ModelService) Delete(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "service.DeleteModel")
	defer span.End()
	span.SetAttributes(attribute.Int64("model.id", id))

	if err := s.repo.Delete(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete model from repository")
		return err
	}
	s.logger.Info("model deleted", "model_id", id)
	return nil
}
