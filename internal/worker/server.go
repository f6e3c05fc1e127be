// internal/worker/server.go
package worker

import (
	"context"
	"errors"
	"log/slog"

	"translation-dispatch/internal/dispatch"
	"translation-dispatch/internal/domain"
	"translation-dispatch/internal/rpc"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Submitter runs a task on some worker and returns its histories.
type Submitter interface {
	Submit(ctx context.Context, task *domain.Task) (domain.Histories, error)
}

// Server implements rpc.TranslatorServer on top of a worker pool.
type Server struct {
	rpc.UnimplementedTranslatorServer
	pool   Submitter
	nodeID string
	logger *slog.Logger
	tracer trace.Tracer
}

// NewServer creates a new gRPC server for the worker node.
func NewServer(pool Submitter, nodeID string, logger *slog.Logger) *Server {
	return &Server{
		pool:   pool,
		nodeID: nodeID,
		logger: logger.With("component", "grpc-server"),
		tracer: otel.Tracer("translation-dispatch-worker"),
	}
}

// Translate is the RPC method called by the master to run a task synchronously.
func (s *Server) Translate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ctx, span := s.tracer.Start(ctx, "worker.Translate")
	defer span.End()

	task, err := rpc.DecodeTask(req)
	if err != nil {
		s.logger.Error("failed to decode translation request", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid task request")
		return nil, status.Error(grpccodes.InvalidArgument, err.Error())
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	span.SetAttributes(
		attribute.String("task.id", task.ID),
		attribute.Int64("task.task_id", task.TaskID),
		attribute.Int("task.sentences", len(task.Sentences)),
		attribute.String("node.id", s.nodeID),
	)

	logger := s.logger.With("task", task.ID, "task_id", task.TaskID)
	logger.Info("received translation request", "sentences", len(task.Sentences))

	histories, err := s.pool.Submit(ctx, task)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "translation failed")
		logger.Warn("translation request failed", "error", err)
		return nil, toStatus(err)
	}

	resp, err := rpc.EncodeHistories(histories)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to encode histories")
		return nil, status.Error(grpccodes.Internal, err.Error())
	}
	span.SetStatus(codes.Ok, "translation successful")
	return resp, nil
}

// toStatus maps pool and dispatch errors onto gRPC status codes.
func toStatus(err error) error {
	var constructErr *dispatch.ConstructionError
	switch {
	case errors.Is(err, domain.ErrEmptyBatch), errors.Is(err, domain.ErrSentenceTooLong):
		return status.Error(grpccodes.InvalidArgument, err.Error())
	case errors.As(err, &constructErr):
		return status.Error(grpccodes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrPoolClosed), errors.Is(err, ErrPoolNotStarted):
		return status.Error(grpccodes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(grpccodes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(grpccodes.Canceled, err.Error())
	default:
		return status.Error(grpccodes.Internal, err.Error())
	}
}
