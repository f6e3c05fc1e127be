// internal/api/http/translate_handler.go
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

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TranslationService is what the translation routes need from the use case layer.
type TranslationService interface {
	Translate(ctx context.Context, task *domain.Task) (domain.Histories, error)
	Submit(ctx context.Context, task *domain.Task) (*domain.DecodeRecord, error)
	GetRecord(ctx context.Context, id string) (*domain.DecodeRecord, error)
	ListRecords(ctx context.Context, page, pageSize int) ([]*domain.DecodeRecord, error)
}

// TranslateHandler serves /translate and /tasks.
type TranslateHandler struct {
	service  TranslationService
	logger   *slog.Logger
	validate *validator.Validate
	tracer   trace.Tracer
}

// NewTranslateHandler creates a new TranslateHandler.
func NewTranslateHandler(service TranslationService, logger *slog.Logger) *TranslateHandler {
	return &TranslateHandler{
		service:  service,
		logger:   logger.With("component", "translate-handler"),
		validate: validator.New(),
		tracer:   otel.Tracer("translation-dispatch-api"),
	}
}

// RegisterRoutes registers translation routes on mux.
func (h *TranslateHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("POST /translate", instrument(h.tracer, http.MethodPost, "/translate", h.handleTranslate))
	mux.Handle("POST /tasks", instrument(h.tracer, http.MethodPost, "/tasks", h.handleSubmit))
	mux.Handle("GET /tasks", instrument(h.tracer, http.MethodGet, "/tasks", h.handleListRecords))
	mux.Handle("GET /tasks/{id}", instrument(h.tracer, http.MethodGet, "/tasks/{id}", h.handleGetRecord))
}

func (h *TranslateHandler) decode(w http.ResponseWriter, r *http.Request, span trace.Span) (*TranslateRequest, bool) {
	var req TranslateRequest
	if !readJSON(w, r, &req, span) {
		return nil, false
	}
	if err := h.validate.Struct(req); err != nil {
		span.SetStatus(codes.Error, "Validation failed")
		span.RecordError(err)
		writeValidationError(w, err)
		return nil, false
	}
	span.SetAttributes(attribute.Int64("task.task_id", req.TaskID), attribute.Int("task.sentences", len(req.Sentences)))
	return &req, true
}

// handleTranslate runs a task synchronously (POST /translate).
func (h *TranslateHandler) handleTranslate(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "handler.Translate")
	defer span.End()

	req, ok := h.decode(w, r, span)
	if !ok {
		return
	}

	task := req.ToDomainTask()
	histories, err := h.service.Translate(ctx, task)
	if err != nil {
		span.SetStatus(codes.Error, "Failed to translate")
		span.RecordError(err)
		writeError(w, h.logger, "error translating task", err)
		return
	}

	writeJSON(w, http.StatusOK, TranslateResponse{ID: task.ID, TaskID: task.TaskID, Histories: histories})
}

// handleSubmit queues a task (POST /tasks).
func (h *TranslateHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "handler.SubmitTask")
	defer span.End()

	req, ok := h.decode(w, r, span)
	if !ok {
		return
	}

	record, err := h.service.Submit(ctx, req.ToDomainTask())
	if err != nil {
		span.SetStatus(codes.Error, "Failed to submit task")
		span.RecordError(err)
		writeError(w, h.logger, "error submitting task", err)
		return
	}

	w.Header().Set("Location", "/tasks/"+record.ID)
	writeJSON(w, http.StatusAccepted, record)
}

// handleGetRecord returns the record of a queued task (GET /tasks/{id}).
func (h *TranslateHandler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "handler.GetRecord")
	defer span.End()

	id := r.PathValue("id")
	span.SetAttributes(attribute.String("record.id", id))

	record, err := h.service.GetRecord(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, "Failed to get record from service")
		span.RecordError(err)
		writeError(w, h.logger, "error getting decode record", err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handleListRecords lists decode records, newest first (GET /tasks).
func (h *TranslateHandler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "handler.ListRecords")
	defer span.End()

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	span.SetAttributes(attribute.Int("page", page), attribute.Int("page_size", pageSize))

	records, err := h.service.ListRecords(ctx, page, pageSize)
	if err != nil {
		span.SetStatus(codes.Error, "Failed to list records from service")
		span.RecordError(err)
		writeError(w, h.logger, "error listing decode records", err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
