// Package redis connects the token store to Redis.
package redis

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"docufind/internal/platform/config"
)

// Client is the shared go-redis client.
type Client struct {
	*redis.Client
}

// New connects and PINGs. An empty URL returns (nil, nil) so the caller can
// choose another token store.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{Client: client}, nil
}

// Health is the Redis check behind /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// RegisterPoolMetrics exposes connection pool counters.
func (c *Client) RegisterPoolMetrics(reg prometheus.Registerer) {
	stat := func(name, help string, pick func(*redis.PoolStats) uint32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "docufind_redis_pool_" + name,
			Help: help,
		}, func() float64 { return float64(pick(c.PoolStats())) })
	}
	reg.MustRegister(
		stat("hits", "Free connections found in the pool", func(s *redis.PoolStats) uint32 { return s.Hits }),
		stat("misses", "Connections dialed because the pool was empty", func(s *redis.PoolStats) uint32 { return s.Misses }),
		stat("timeouts", "Waits for a free connection that timed out", func(s *redis.PoolStats) uint32 { return s.Timeouts }),
		stat("total_conns", "Open connections", func(s *redis.PoolStats) uint32 { return s.TotalConns }),
		stat("idle_conns", "Idle connections", func(s *redis.PoolStats) uint32 { return s.IdleConns }),
	)
}

func (c *Client) Close() error {
	return c.Client.Close()
}
