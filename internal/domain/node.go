package domain

import "time"

// WorkerRegistryPrefix is the etcd prefix under which worker nodes register themselves.
const WorkerRegistryPrefix = "/nmt/workers/"

// NodeInfo is the value a worker node publishes under its registry key.
type NodeInfo struct {
	Addr      string    `json:"addr"`
	PoolSize  int       `json:"pool_size"`
	StartedAt time.Time `json:"started_at"`
}
