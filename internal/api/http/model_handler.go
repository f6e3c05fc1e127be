// internal/api/http/model_handler.go
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"translation-dispatch/internal/domain"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ModelService is what the model routes need from the use case layer.
type ModelService interface {
	Publish(ctx context.Context, model *domain.Model) error
	Get(ctx context.Context, id int64) (*domain.Model, error)
	List(ctx context.Context) ([]*domain.Model, error)
	Delete(ctx context.Context, id int64) error
}

// ModelHandler serves /models.
type ModelHandler struct {
	service  ModelService
	logger   *slog.Logger
	validate *validator.Validate
	tracer   trace.Tracer
}

// NewModelHandler creates a new ModelHandler.
func NewModelHandler(service ModelService, logger *slog.Logger) *ModelHandler {
	return &ModelHandler{
		service:  service,
		logger:   logger.With("component", "model-handler"),
		validate: validator.New(),
		tracer:   otel.Tracer("translation-dispatch-api"),
	}
}

// RegisterRoutes registers model routes on mux.
func (h *ModelHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("GET /models", instrument(h.tracer, http.MethodGet, "/models", h.handleListModels))
	mux.Handle("GET /models/{id}", instrument(h.tracer, http.MethodGet, "/models/{id}", h.withID(h.handleGetModel)))
	mux.Handle("PUT /models/{id}", instrument(h.tracer, http.MethodPut, "/models/{id}", h.withID(h.handlePublishModel)))
	mux.Handle("DELETE /models/{id}", instrument(h.tracer, http.MethodDelete, "/models/{id}", h.withID(h.handleDeleteModel)))
}

// withID parses the {id} path value; model ids are task ids, so non-negative.
func (h *ModelHandler) withID(next func(http.ResponseWriter, *http.Request, int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil || id < 0 {
			http.Error(w, "Model id must be a non-negative integer", http.StatusBadRequest)
			return
		}
		next(w, r, id)
	}
}

func (h *ModelHandler) handlePublishModel(w http.ResponseWriter, r *http.Request, id int64) {
	ctx, span := h.tracer.Start(r.Context(), "handler.PublishModel")
	defer span.End()
	span.SetAttributes(attribute.Int64("model.id", id))

	var req PublishModelRequest
	if !readJSON(w, r, &req, span) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		span.SetStatus(codes.Error, "Validation failed")
		span.RecordError(err)
		writeValidationError(w, err)
		return
	}

	model := req.ToDomainModel(id)
	if err := h.service.Publish(ctx, model); err != nil {
		span.SetStatus(codes.Error, "Failed to publish model in service")
		span.RecordError(err)
		writeError(w, h.logger, "error publishing model", err)
		return
	}
	writeJSON(w, http.StatusOK, model)
}

func (h *ModelHandler) handleGetModel(w http.ResponseWriter, r *http.Request, id int64) {
	ctx, span := h.tracer.Start(r.Context(), "handler.GetModel")
	defer span.End()
	span.SetAttributes(attribute.Int64("model.id", id))

	model, err := h.service.Get(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, "Failed to get model from service")
		span.RecordError(err)
		writeError(w, h.logger, "error getting model", err)
		return
	}
	writeJSON(w, http.StatusOK, model)
}

func (h *ModelHandler) handleListModels(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "handler.ListModels")
	defer span.End()

	models, err := h.service.List(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "Failed to list models from service")
		span.RecordError(err)
		writeError(w, h.logger, "error listing models", err)
		return
	}
	writeJSON(w, http.StatusOK, models)
}

func (h *ModelHandler) handleDeleteModel(w http.ResponseWriter, r *http.Request, id int64) {
	ctx, span := h.tracer.Start(r.Context(), "handler.DeleteModel")
	defer span.End()
	span.SetAttributes(attribute.Int64("model.id", id))

	if err := h.service.Delete(ctx, id); err != nil {
		span.SetStatus(codes.Error, "Failed to delete model in service")
		span.RecordError(err)
		writeError(w, h.logger, "error deleting model", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
