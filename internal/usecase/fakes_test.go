package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"translation-dispatch/internal/domain"
)

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

type fakeDispatcher struct {
	tasks       []*domain.Task
	hadDeadline bool
	err         error
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, task *domain.Task) (domain.Histories, error) {
	d.tasks = append(d.tasks, task)
	_, d.hadDeadline = ctx.Deadline()
	if d.err != nil {
		return nil, d.err
	}
	histories := make(domain.Histories, len(task.Sentences))
	for i, s := range task.Sentences {
		histories[i] = domain.History{SentenceID: s.ID, Translation: s.Text, ModelID: task.TaskID}
	}
	return histories, nil
}

type fakeQueue struct {
	tasks []*domain.Task
	err   error
}

func (q *fakeQueue) Enqueue(_ context.Context, task *domain.Task) error {
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *fakeQueue) Dequeue(context.Context) (*domain.Task, error) { return nil, domain.ErrQueueClosed }
func (q *fakeQueue) Depth(context.Context) (int64, error)          { return int64(len(q.tasks)), nil }
func (q *fakeQueue) Close() error                                  { return nil }

type memRecords struct {
	mu       sync.Mutex
	records  map[string]domain.DecodeRecord
	cutoffs  []time.Time
	pruneN   int
	pruneErr error
}

func newMemRecords() *memRecords {
	return &memRecords{records: make(map[string]domain.DecodeRecord)}
}

func (r *memRecords) Save(_ context.Context, record *domain.DecodeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = *record
	return nil
}

func (r *memRecords) Get(_ context.Context, id string) (*domain.DecodeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return &record, nil
}

func (r *memRecords) List(context.Context, int, int) ([]*domain.DecodeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.DecodeRecord, 0, len(r.records))
	for _, record := range r.records {
		out = append(out, &record)
	}
	return out, nil
}

func (r *memRecords) DeleteFinishedBefore(_ context.Context, t time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cutoffs = append(r.cutoffs, t)
	return r.pruneN, r.pruneErr
}

type memModels struct {
	models map[int64]domain.Model
	getErr error
}

func newMemModels() *memModels { return &memModels{models: make(map[int64]domain.Model)} }

func (m *memModels) Save(_ context.Context, model *domain.Model) error {
	m.models[model.ID] = *model
	return nil
}

func (m *memModels) Delete(_ context.Context, id int64) error {
	if _, ok := m.models[id]; !ok {
		return domain.ErrModelNotFound
	}
	delete(m.models, id)
	return nil
}

func (m *memModels) Get(_ context.Context, id int64) (*domain.Model, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	model, ok := m.models[id]
	if !ok {
		return nil, domain.ErrModelNotFound
	}
	return &model, nil
}

func (m *memModels) List(context.Context) ([]*domain.Model, error) {
	out := make([]*domain.Model, 0, len(m.models))
	for _, model := range m.models {
		out = append(out, &model)
	}
	return out, nil
}

// fakeLocker hands out one lock per name at a time.
type fakeLocker struct {
	mu    sync.Mutex
	held  map[string]bool
	names []string
}

func newFakeLocker() *fakeLocker { return &fakeLocker{held: make(map[string]bool)} }

func (l *fakeLocker) Lock(_ context.Context, name string) (domain.Lock, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		return nil, domain.ErrLockNotAcquired
	}
	l.held[name] = true
	l.names = append(l.names, name)
	return &fakeLock{locker: l, name: name}, nil
}

func (l *fakeLocker) isHeld(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[name]
}

type fakeLock struct {
	locker *fakeLocker
	name   string
}

func (k *fakeLock) Unlock(context.Context) error {
	k.locker.mu.Lock()
	defer k.locker.mu.Unlock()
	delete(k.locker.held, k.name)
	return nil
}

// fakeLeader wins every campaign; its lost channel is closed by loseLeadership.
// Campaigns wait while hold is set.
type fakeLeader struct {
	mu        sync.Mutex
	campaigns int
	lost      chan struct{}
	leader    bool
	resigned  bool
	failFirst error
	hold      chan struct{}
}

func (l *fakeLeader) Campaign(ctx context.Context) (<-chan struct{}, error) {
	l.mu.Lock()
	l.campaigns++
	if l.failFirst != nil {
		err := l.failFirst
		l.failFirst = nil
		l.mu.Unlock()
		return nil, err
	}
	hold := l.hold
	l.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.leader = true
	l.lost = make(chan struct{})
	return l.lost, nil
}

func (l *fakeLeader) Resign(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resigned = true
	l.leader = false
	return nil
}

func (l *fakeLeader) IsLeader() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.leader
}

// holdCampaigns makes later campaigns wait until release is called.
func (l *fakeLeader) holdCampaigns() (release func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	hold := make(chan struct{})
	l.hold = hold
	return func() {
		l.mu.Lock()
		l.hold = nil
		l.mu.Unlock()
		close(hold)
	}
}

func (l *fakeLeader) loseLeadership() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.leader = false
	close(l.lost)
}

func (l *fakeLeader) campaignCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.campaigns
}

func (l *fakeLeader) wasResigned() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resigned
}

// fakeScheduler counts how often it is started.
type fakeScheduler struct {
	mu      sync.Mutex
	jobs    map[string]*domain.MaintenanceJob
	starts  int
	running bool
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{jobs: make(map[string]*domain.MaintenanceJob)}
}

func (s *fakeScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.starts++
	s.running = true
	s.mu.Unlock()
	<-ctx.Done()
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return ctx.Err()
}

func (s *fakeScheduler) Stop() {}

func (s *fakeScheduler) AddJob(job *domain.MaintenanceJob) error {
	if job.Schedule == "" {
		return errors.New("empty schedule")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.Name] = job
	return nil
}

func (s *fakeScheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, name)
	return nil
}

func (s *fakeScheduler) state() (starts int, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.running
}
