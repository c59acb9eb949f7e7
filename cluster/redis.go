package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stormforge/stormforge/core"
)

// RedisRegistry implements Registry on top of TTL-bearing Redis string keys
// (one JSON-encoded entry per node, found with SCAN), grounded on itsneelabh-gomind/core/redis_registry.go's
// RedisRegistry (TTL-bearing service entries, a per-namespace key prefix,
// connection settings tuned for a long-lived background client) adapted
// from service discovery to cluster node membership. Uses
// github.com/redis/go-redis/v9 in place of the teacher's v8, matching the
// version the rest of the retrieval pack settled on.
type RedisRegistry struct {
	client    *redis.Client
	namespace string
	logger    core.Logger
}

// NewRedisRegistry connects to redisURL and scopes every key under
// namespace, mirroring NewRedisRegistryWithNamespace's connection tuning.
func NewRedisRegistry(redisURL, namespace string, logger core.Logger) (*RedisRegistry, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", core.ErrInvalidConfiguration)
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 5 * time.Second
	opt.WriteTimeout = 5 * time.Second

	client := redis.NewClient(opt)
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if namespace == "" {
		namespace = "stormforge"
	}
	return &RedisRegistry{client: client, namespace: namespace, logger: logger}, nil
}

func (r *RedisRegistry) key(id string) string {
	return fmt.Sprintf("%s:nodes:%s", r.namespace, id)
}

func (r *RedisRegistry) Register(ctx context.Context, self Node, ttl time.Duration) error {
	return r.Heartbeat(ctx, self, ttl)
}

func (r *RedisRegistry) Heartbeat(ctx context.Context, self Node, ttl time.Duration) error {
	data, err := json.Marshal(self)
	if err != nil {
		return fmt.Errorf("encode node: %w", err)
	}
	if err := r.client.Set(ctx, r.key(self.ID), data, ttl).Err(); err != nil {
		r.logger.WarnWithContext(ctx, "cluster heartbeat failed", map[string]interface{}{
			"node": self.ID, "error": err.Error(),
		})
		return fmt.Errorf("%w: %s", core.ErrDiscoveryUnavailable, err)
	}
	return nil
}

func (r *RedisRegistry) Peers(ctx context.Context) ([]Node, error) {
	pattern := fmt.Sprintf("%s:nodes:*", r.namespace)
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()

	var nodes []Node
	for iter.Next(ctx) {
		raw, err := r.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue // expired between scan and get; skip
		}
		var n Node
		if err := json.Unmarshal(raw, &n); err != nil {
			continue
		}
		nodes = append(nodes, n)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrDiscoveryUnavailable, err)
	}
	return nodes, nil
}

func (r *RedisRegistry) Unregister(ctx context.Context, self Node) error {
	return r.client.Del(ctx, r.key(self.ID)).Err()
}
