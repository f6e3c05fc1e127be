package worker

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"translation-dispatch/internal/domain"
)

var errConcurrentDecode = errors.New("engine used by two goroutines at once")

// exclusiveEngine fails if two Decode calls ever overlap.
type exclusiveEngine struct {
	taskID  int64
	inUse   atomic.Bool
	batches atomic.Int64
	closed  atomic.Bool
}

func (e *exclusiveEngine) Decode(_ context.Context, sentences domain.Sentences) (domain.Histories, error) {
	if !e.inUse.CompareAndSwap(false, true) {
		return nil, errConcurrentDecode
	}
	defer e.inUse.Store(false)
	e.batches.Add(1)

	histories := make(domain.Histories, len(sentences))
	for i, s := range sentences {
		if s.Text == "boom" {
			panic("engine exploded")
		}
		histories[i] = domain.History{
			SentenceID:  s.ID,
			Words:       strings.Fields(s.Text),
			Translation: strings.ToUpper(s.Text),
			ModelID:     e.taskID,
		}
	}
	time.Sleep(time.Millisecond)
	return histories, nil
}

func (e *exclusiveEngine) Close() error {
	e.closed.Store(true)
	return nil
}

type fakeFactory struct {
	mu      sync.Mutex
	calls   []int64
	engines []*exclusiveEngine
	fail    error
}

func (f *fakeFactory) NewEngine(_ context.Context, taskID int64) (domain.Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, taskID)
	if f.fail != nil {
		return nil, f.fail
	}
	e := &exclusiveEngine{taskID: taskID}
	f.engines = append(f.engines, e)
	return e, nil
}

func (f *fakeFactory) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func (f *fakeFactory) snapshot() ([]int64, []*exclusiveEngine) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.calls...), append([]*exclusiveEngine(nil), f.engines...)
}

func newTestTask(id string, taskID int64, texts ...string) *domain.Task {
	return &domain.Task{ID: id, TaskID: taskID, Sentences: domain.NewSentences(texts...)}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
