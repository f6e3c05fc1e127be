package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"translation-dispatch/internal/domain"
)

// recordingEngine echoes its input and remembers every batch it decoded.
type recordingEngine struct {
	taskID    int64
	batches   []domain.Sentences
	decodeErr error
	closed    bool
}

func (e *recordingEngine) Decode(_ context.Context, sentences domain.Sentences) (domain.Histories, error) {
	e.batches = append(e.batches, sentences)
	if e.decodeErr != nil {
		return nil, e.decodeErr
	}
	histories := make(domain.Histories, len(sentences))
	for i, s := range sentences {
		histories[i] = domain.History{
			SentenceID:  s.ID,
			Words:       strings.Fields(s.Text),
			Translation: strings.ToUpper(s.Text),
			ModelID:     e.taskID,
		}
	}
	return histories, nil
}

func (e *recordingEngine) Close() error {
	e.closed = true
	return nil
}

// countingFactory builds recordingEngines and counts every call.
type countingFactory struct {
	mu      sync.Mutex
	calls   []int64
	engines []*recordingEngine
	fail    error
}

func (f *countingFactory) NewEngine(_ context.Context, taskID int64) (domain.Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, taskID)
	if f.fail != nil {
		return nil, f.fail
	}
	engine := &recordingEngine{taskID: taskID}
	f.engines = append(f.engines, engine)
	return engine, nil
}

func (f *countingFactory) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type observedEvent struct {
	kind   string
	owner  string
	taskID int64
}

type recordingObserver struct {
	events []observedEvent
}

func (o *recordingObserver) EngineConstructed(owner string, taskID int64, _ time.Duration) {
	o.events = append(o.events, observedEvent{kind: "constructed", owner: owner, taskID: taskID})
}

func (o *recordingObserver) EngineConstructionFailed(owner string, taskID int64, _ error) {
	o.events = append(o.events, observedEvent{kind: "failed", owner: owner, taskID: taskID})
}

func (o *recordingObserver) EngineReleased(owner string) {
	o.events = append(o.events, observedEvent{kind: "released", owner: owner})
}

func task(taskID int64, texts ...string) *domain.Task {
	return &domain.Task{ID: fmt.Sprintf("t-%d-%d", taskID, len(texts)), TaskID: taskID, Sentences: domain.NewSentences(texts...)}
}
