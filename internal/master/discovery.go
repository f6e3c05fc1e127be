// internal/master/discovery.go
package master

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"translation-dispatch/internal/domain"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// NodeDiscovery tracks the worker nodes registered in etcd.
type NodeDiscovery struct {
	client *clientv3.Client
	logger *slog.Logger
	nodes  map[string]domain.NodeInfo // nodeID -> info
	mu     sync.RWMutex
}

// NewNodeDiscovery creates a new discovery service.
func NewNodeDiscovery(client *clientv3.Client, logger *slog.Logger) *NodeDiscovery {
	return &NodeDiscovery{
		client: client,
		logger: logger.With("component", "node-discovery"),
		nodes:  make(map[string]domain.NodeInfo),
	}
}

// WatchNodes starts watching etcd for node registrations and deregistrations.
// This is a blocking call and should be run in a goroutine.
func (d *NodeDiscovery) WatchNodes(ctx context.Context) {
	d.logger.Info("starting to watch for worker nodes")

	if err := d.loadInitialNodes(ctx); err != nil {
		d.logger.Error("failed to perform initial node load", "error", err)
	}

	watchChan := d.client.Watch(ctx, domain.WorkerRegistryPrefix, clientv3.WithPrefix())
	for watchResp := range watchChan {
		for _, event := range watchResp.Events {
			nodeID := strings.TrimPrefix(string(event.Kv.Key), domain.WorkerRegistryPrefix)
			switch event.Type {
			case clientv3.EventTypePut:
				d.put(nodeID, event.Kv.Value)
			case clientv3.EventTypeDelete:
				d.remove(nodeID)
			}
		}
	}
	d.logger.Info("stopped watching for worker nodes")
}

func (d *NodeDiscovery) loadInitialNodes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := d.client.Get(ctx, domain.WorkerRegistryPrefix, clientv3.WithPrefix())
	if err != nil {
		return err
	}
	for _, kv := range resp.Kvs {
		d.put(strings.TrimPrefix(string(kv.Key), domain.WorkerRegistryPrefix), kv.Value)
	}
	return nil
}

func (d *NodeDiscovery) put(nodeID string, value []byte) {
	info := parseNodeInfo(value)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.nodes[nodeID]; !ok {
		d.logger.Info("new worker node discovered", "id", nodeID, "addr", info.Addr, "pool_size", info.PoolSize)
	}
	d.nodes[nodeID] = info
}

func (d *NodeDiscovery) remove(nodeID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logger.Info("worker node deregistered", "id", nodeID, "addr", d.nodes[nodeID].Addr)
	delete(d.nodes, nodeID)
}

// parseNodeInfo accepts both the JSON registration value and a bare address.
func parseNodeInfo(value []byte) domain.NodeInfo {
	var info domain.NodeInfo
	if err := json.Unmarshal(value, &info); err != nil || info.Addr == "" {
		return domain.NodeInfo{Addr: string(value)}
	}
	return info
}

// GetWorkers returns a snapshot of the current worker node addresses.
func (d *NodeDiscovery) GetWorkers() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	addrs := make([]string, 0, len(d.nodes))
	for _, info := range d.nodes {
		addrs = append(addrs, info.Addr)
	}
	return addrs
}
