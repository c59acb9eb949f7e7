// Package cluster supplies node membership for the worker-placement
// decisions spec §4.8 leaves as "externally configured": the set of known
// nodes a round-robin or random placement picks from, and the heartbeat
// that keeps that set current.
package cluster

import (
	"context"
	"time"
)

// Node identifies one cluster member eligible to run workers.
type Node struct {
	ID      string
	Address string
}

// Registry is the pluggable node-membership contract. RedisRegistry is the
// concrete implementation StormForge ships; tests use an in-memory fake.
type Registry interface {
	// Register announces self as a live node, refreshed by Heartbeat until
	// ctx is cancelled.
	Register(ctx context.Context, self Node, ttl time.Duration) error
	// Heartbeat refreshes self's TTL entry; callers loop this on an
	// interval shorter than ttl.
	Heartbeat(ctx context.Context, self Node, ttl time.Duration) error
	// Peers returns every currently registered node, self included when
	// self has registered.
	Peers(ctx context.Context) ([]Node, error)
	// Unregister removes self from the membership set, used on graceful
	// shutdown.
	Unregister(ctx context.Context, self Node) error
}
