// internal/infra/etcd/etcd_model_repository.go
package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"translation-dispatch/internal/domain"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type etcdModelRepository struct {
	client *clientv3.Client
	logger *slog.Logger
	tracer trace.Tracer
}

// NewEtcdModelRepository creates a repository for translation models backed by etcd.
func NewEtcdModelRepository(client *clientv3.Client, logger *slog.Logger) domain.ModelRepository {
	return &etcdModelRepository{
		client: client,
		logger: logger.With("component", "model-repo"),
		tracer: otel.Tracer("translation-dispatch-etcd-model-repo"),
	}
}

func modelKey(id int64) string {
	return ModelDir + strconv.FormatInt(id, 10)
}

// Save persists the model to etcd.
func (r *etcdModelRepository) Save(ctx context.Context, model *domain.Model) error {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.SaveModel")
	defer span.End()

	modelJSON, err := json.Marshal(model)
	if err != nil {
		return fmt.Errorf("failed to marshal model to JSON: %w", err)
	}

	key := modelKey(model.ID)
	span.SetAttributes(
		attribute.Int64("model.id", model.ID),
		attribute.String("etcd.key", key),
		attribute.Int("model.lexicon_size", len(model.Lexicon)),
	)

	if _, err := r.client.Put(ctx, key, string(modelJSON)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to put model to etcd")
		return fmt.Errorf("failed to save model %d to etcd: %w", model.ID, err)
	}
	return nil
}

// Delete removes a model from etcd.
func (r *etcdModelRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.DeleteModel")
	defer span.End()
	span.SetAttributes(attribute.Int64("model.id", id))

	resp, err := r.client.Delete(ctx, modelKey(id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete model from etcd")
		return fmt.Errorf("failed to delete model %d from etcd: %w", id, err)
	}
	if resp.Deleted == 0 {
		return domain.ErrModelNotFound
	}
	return nil
}

// Get retrieves a model from etcd.
func (r *etcdModelRepository) Get(ctx context.Context, id int64) (*domain.Model, error) {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.GetModel")
	defer span.End()
	span.SetAttributes(attribute.Int64("model.id", id))

	resp, err := r.client.Get(ctx, modelKey(id))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get model from etcd")
		return nil, fmt.Errorf("failed to get model %d from etcd: %w", id, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, domain.ErrModelNotFound
	}

	var model domain.Model
	if err := json.Unmarshal(resp.Kvs[0].Value, &model); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model %d from JSON: %w", id, err)
	}
	return &model, nil
}

// List retrieves all models from etcd.
func (r *etcdModelRepository) List(ctx context.Context) ([]*domain.Model, error) {
	ctx, span := r.tracer.Start(ctx, "repo.etcd.ListModels")
	defer span.End()

	resp, err := r.client.Get(ctx, ModelDir, clientv3.WithPrefix())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list models from etcd")
		return nil, fmt.Errorf("failed to list models from etcd: %w", err)
	}
	span.SetAttributes(attribute.Int("etcd.kv_count", len(resp.Kvs)))

	models := make([]*domain.Model, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var model domain.Model
		if err := json.Unmarshal(kv.Value, &model); err != nil {
			r.logger.Warn("failed to unmarshal model from etcd", "key", string(kv.Key), "error", err)
			continue
		}
		models = append(models, &model)
	}
	return models, nil
}
