package master

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"testing"

	"translation-dispatch/internal/domain"
	"translation-dispatch/internal/rpc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

type staticNodes []string

func (s staticNodes) GetWorkers() []string { return s }

// upperServer answers every sentence with its upper-cased text, or with err.
type upperServer struct {
	rpc.UnimplementedTranslatorServer
	err error
}

func (s *upperServer) Translate(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.err != nil {
		return nil, s.err
	}
	task, err := rpc.DecodeTask(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	histories := make(domain.Histories, len(task.Sentences))
	for i, sentence := range task.Sentences {
		histories[i] = domain.History{SentenceID: sentence.ID, Translation: strings.ToUpper(sentence.Text), ModelID: task.TaskID}
	}
	return rpc.EncodeHistories(histories)
}

func newBufDispatcher(t *testing.T, srv rpc.TranslatorServer) *Dispatcher {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer()
	rpc.RegisterTranslatorServer(gs, srv)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	d := NewDispatcher(staticNodes{"passthrough:///bufnet"}, slog.New(slog.DiscardHandler),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
	)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDispatcher_RoundTrip(t *testing.T) {
	d := newBufDispatcher(t, &upperServer{})
	task := &domain.Task{ID: "t1", TaskID: 7, Sentences: domain.NewSentences("hello", "world")}

	histories, err := d.Dispatch(context.Background(), task)
	require.NoError(t, err)
	require.Len(t, histories, 2)
	assert.Equal(t, "HELLO", histories[0].Translation)
	assert.Equal(t, 1, histories[1].SentenceID)
	assert.Equal(t, int64(7), histories[1].ModelID)

	// A second dispatch reuses the cached client.
	_, err = d.Dispatch(context.Background(), task)
	require.NoError(t, err)
	assert.Len(t, d.clients, 1)
}

func TestDispatcher_NoWorkers(t *testing.T) {
	d := NewDispatcher(staticNodes{}, slog.New(slog.DiscardHandler))

	_, err := d.Dispatch(context.Background(), &domain.Task{ID: "t1", TaskID: 1, Sentences: domain.NewSentences("x")})
	assert.ErrorIs(t, err, domain.ErrNoWorkers)
}

func TestDispatcher_MapsStatusCodes(t *testing.T) {
	tests := []struct {
		code codes.Code
		want error
	}{
		{codes.InvalidArgument, domain.ErrInvalidTask},
		{codes.FailedPrecondition, domain.ErrEngineUnavailable},
		{codes.Unavailable, domain.ErrNoWorkers},
		{codes.DeadlineExceeded, context.DeadlineExceeded},
		{codes.Internal, domain.ErrDecodeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			d := newBufDispatcher(t, &upperServer{err: status.Error(tt.code, "boom")})
			_, err := d.Dispatch(context.Background(), &domain.Task{ID: "t1", TaskID: 1, Sentences: domain.NewSentences("x")})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseNodeInfo(t *testing.T) {
	info := parseNodeInfo([]byte(`{"addr":"10.0.0.1:50051","pool_size":4}`))
	assert.Equal(t, "10.0.0.1:50051", info.Addr)
	assert.Equal(t, 4, info.PoolSize)

	legacy := parseNodeInfo([]byte("10.0.0.2:50051"))
	assert.Equal(t, "10.0.0.2:50051", legacy.Addr)
}
