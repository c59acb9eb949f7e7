package cluster

import (
	"context"
	"sync"
	"time"
)

// MemoryRegistry is an in-process Registry, used by tests and by a
// single-node StormForge deployment that has no Redis available.
type MemoryRegistry struct {
	mu    sync.Mutex
	nodes map[string]Node
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{nodes: map[string]Node{}}
}

func (m *MemoryRegistry) Register(ctx context.Context, self Node, ttl time.Duration) error {
	return m.Heartbeat(ctx, self, ttl)
}

func (m *MemoryRegistry) Heartbeat(ctx context.Context, self Node, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[self.ID] = self
	return nil
}

func (m *MemoryRegistry) Peers(ctx context.Context) ([]Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Node, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, n)
	}
	return out, nil
}

func (m *MemoryRegistry) Unregister(ctx context.Context, self Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.nodes, self.ID)
	return nil
}
