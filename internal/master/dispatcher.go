// internal/master/dispatcher.go
package master

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"translation-dispatch/internal/domain"
	"translation-dispatch/internal/rpc"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// NodeSource lists the addresses of the worker nodes that can take tasks.
type NodeSource interface {
	GetWorkers() []string
}

// Dispatcher forwards translation tasks to worker nodes over gRPC.
type Dispatcher struct {
	nodes    NodeSource
	dialOpts []grpc.DialOption
	clients  map[string]rpc.TranslatorClient // cache per node address
	conns    []*grpc.ClientConn
	mu       sync.Mutex
	logger   *slog.Logger
}

var _ domain.Dispatcher = (*Dispatcher)(nil)

// NewDispatcher creates a new task dispatcher. Extra dial options are
// appended to the defaults (insecure transport, otelgrpc stats handler).
func NewDispatcher(nodes NodeSource, logger *slog.Logger, dialOpts ...grpc.DialOption) *Dispatcher {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
	return &Dispatcher{
		nodes:    nodes,
		dialOpts: append(opts, dialOpts...),
		clients:  make(map[string]rpc.TranslatorClient),
		logger:   logger.With("component", "dispatcher"),
	}
}

// Dispatch selects a worker node, sends the task and waits for its histories.
func (d *Dispatcher) Dispatch(ctx context.Context, task *domain.Task) (domain.Histories, error) {
	nodes := d.nodes.GetWorkers()
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w for task %s", domain.ErrNoWorkers, task.ID)
	}

	// Random selection; every node holds at most one engine per worker anyway.
	addr := nodes[rand.Intn(len(nodes))]
	d.logger.Info("dispatching task to worker node",
		"task", task.ID, "task_id", task.TaskID, "sentences", len(task.Sentences), "node_addr", addr)

	client, err := d.getOrCreateClient(addr)
	if err != nil {
		return nil, err
	}

	req, err := rpc.EncodeTask(task)
	if err != nil {
		return nil, fmt.Errorf("encode task %s: %w", task.ID, err)
	}

	resp, err := client.Translate(ctx, req)
	if err != nil {
		d.logger.Error("failed to translate via gRPC", "task", task.ID, "node_addr", addr, "error", err)
		return nil, fromStatus(err)
	}

	histories, err := rpc.DecodeHistories(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecodeFailed, err)
	}
	return histories, nil
}

// Close closes every cached connection.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for _, conn := range d.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.conns = nil
	d.clients = make(map[string]rpc.TranslatorClient)
	return firstErr
}

func (d *Dispatcher) getOrCreateClient(addr string) (rpc.TranslatorClient, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if client, ok := d.clients[addr]; ok {
		return client, nil
	}

	conn, err := grpc.NewClient(addr, d.dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to worker node at %s: %w", addr, err)
	}

	client := rpc.NewTranslatorClient(conn)
	d.clients[addr] = client
	d.conns = append(d.conns, conn)
	d.logger.Info("created new gRPC client for worker node", "addr", addr)
	return client, nil
}

// fromStatus maps a worker node's gRPC status back onto domain errors.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", domain.ErrDecodeFailed, err)
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", domain.ErrInvalidTask, st.Message())
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", domain.ErrEngineUnavailable, st.Message())
	case codes.Unavailable:
		return fmt.Errorf("%w: %s", domain.ErrNoWorkers, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", context.DeadlineExceeded, st.Message())
	case codes.Canceled:
		return fmt.Errorf("%w: %s", context.Canceled, st.Message())
	default:
		return fmt.Errorf("%w: %s", domain.ErrDecodeFailed, st.Message())
	}
}
