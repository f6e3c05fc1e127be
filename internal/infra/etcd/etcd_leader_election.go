package etcd

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"translation-dispatch/internal/domain"
	"translation-dispatch/internal/metrics"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
)

type etcdLeaderElectionManager struct {
	client   *clientv3.Client
	session  *concurrency.Session
	election *concurrency.Election
	isLeader bool
	mutex    sync.RWMutex
	nodeID   string
	ttl      time.Duration
	logger   *slog.Logger
}

// NewEtcdLeaderElectionManager creates a manager for leader election using etcd.
func NewEtcdLeaderElectionManager(client *clientv3.Client, nodeID string, ttl time.Duration, logger *slog.Logger) domain.LeaderElectionManager {
	metrics.IsLeader.WithLabelValues(nodeID).Set(0)
	return &etcdLeaderElectionManager{
		client: client,
		nodeID: nodeID,
		ttl:    ttl,
		logger: logger.With("component", "leader-election"),
	}
}

// Campaign blocks until this node is leader or ctx is done. The returned
// channel closes when the session expires and leadership is lost.
func (m *etcdLeaderElectionManager) Campaign(ctx context.Context) (<-chan struct{}, error) {
	session, err := concurrency.NewSession(m.client, concurrency.WithTTL(int(m.ttl.Seconds())))
	if err != nil {
		return nil, err
	}
	election := concurrency.NewElection(session, LeaderKey)

	if err := election.Campaign(ctx, m.nodeID); err != nil {
		_ = session.Close()
		return nil, err
	}

	m.mutex.Lock()
	m.session = session
	m.election = election
	m.isLeader = true
	m.mutex.Unlock()
	metrics.IsLeader.WithLabelValues(m.nodeID).Set(1)
	m.logger.Info("successfully campaigned and became the leader", "node_id", m.nodeID)

	go func() {
		<-session.Done()
		if m.markLost(session) {
			_ = session.Close()
		}
	}()

	return session.Done(), nil
}

// markLost clears the leader state if session is still the current one.
// It reports false when the session was already resigned or replaced.
func (m *etcdLeaderElectionManager) markLost(session *concurrency.Session) bool {
	m.mutex.Lock()
	if m.session != session {
		m.mutex.Unlock()
		return false
	}
	m.isLeader = false
	m.session, m.election = nil, nil
	m.mutex.Unlock()

	metrics.IsLeader.WithLabelValues(m.nodeID).Set(0)
	m.logger.Warn("leadership lost, session expired", "node_id", m.nodeID)
	return true
}

func (m *etcdLeaderElectionManager) Resign(ctx context.Context) error {
	m.mutex.Lock()
	m.isLeader = false
	election, session := m.election, m.session
	m.election, m.session = nil, nil
	m.mutex.Unlock()
	metrics.IsLeader.WithLabelValues(m.nodeID).Set(0)

	if election == nil {
		return nil
	}
	m.logger.Info("resigning leadership", "node_id", m.nodeID)
	err := election.Resign(ctx)
	_ = session.Close()
	return err
}

func (m *etcdLeaderElectionManager) IsLeader() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.isLeader
}
