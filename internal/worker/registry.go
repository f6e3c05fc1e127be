// internal/worker/registry.go
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"translation-dispatch/internal/domain"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// Registry handles the registration of a worker node in etcd.
type Registry struct {
	client  *clientv3.Client
	logger  *slog.Logger
	leaseID clientv3.LeaseID
	key     string
}

// NewRegistry creates a new node registry.
func NewRegistry(client *clientv3.Client, logger *slog.Logger) *Registry {
	return &Registry{
		client: client,
		logger: logger.With("component", "registry"),
	}
}

// Register publishes info under the node's key, bound to a lease that is
// kept alive until Deregister or process exit.
func (r *Registry) Register(ctx context.Context, nodeID string, info domain.NodeInfo, ttl int64) error {
	r.key = domain.WorkerRegistryPrefix + nodeID
	value, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal node info: %w", err)
	}

	leaseResp, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return fmt.Errorf("failed to grant lease: %w", err)
	}
	r.leaseID = leaseResp.ID

	if _, err := r.client.Put(ctx, r.key, string(value), clientv3.WithLease(r.leaseID)); err != nil {
		return fmt.Errorf("failed to put node registration key: %w", err)
	}

	keepAliveCh, err := r.client.KeepAlive(context.Background(), r.leaseID)
	if err != nil {
		return fmt.Errorf("failed to start keep-alive: %w", err)
	}

	go func() {
		for ka := range keepAliveCh {
			r.logger.Debug("lease keep-alive refreshed", "lease_id", ka.ID, "ttl", ka.TTL)
		}
		// Closed channel: lease revoked or expired.
		r.logger.Warn("keep-alive channel closed, node registration may have expired")
	}()

	r.logger.Info("node registered successfully", "key", r.key, "addr", info.Addr, "pool_size", info.PoolSize)
	return nil
}

// Deregister removes the node's registration from etcd.
func (r *Registry) Deregister(ctx context.Context) error {
	r.logger.Info("deregistering node", "key", r.key)
	if _, err := r.client.Revoke(ctx, r.leaseID); err != nil {
		return fmt.Errorf("failed to revoke lease: %w", err)
	}
	return nil
}
