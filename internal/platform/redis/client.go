// Copyright (c) 2026 Placely. All rights reserved.
// Author: dev@placely.io

/*
Package redis provides the managed client behind the session cache.

The service keeps one Redis concern: a TTL-bound mirror of refresh sessions,
keyed by token hash, that ages out in lockstep with the token ledger. The
mirror is strictly best-effort. Every caller treats a miss or a failure as
"consult the ledger", so an unavailable Redis degrades latency, never
correctness.

Core Responsibilities:

  - Volatility: Session entries expire on their own via TTL; nothing here is
    ever the source of truth.
  - Speed: Keeps the hot login/refresh path off the primary database.
  - Safety: Manages connection pooling and per-operation timeouts.
*/
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Opiniated default timeouts for Redis operations. Read/write stay under the
// orchestrator's cache-operation deadline so a slow Redis fails the mirror
// write instead of stalling a login.
const (
	dialTimeout  = 3 * time.Second
	readTimeout  = 2 * time.Second
	writeTimeout = 2 * time.Second
	pingTimeout  = 2 * time.Second
)

// NewClient parses a Redis URL and returns a ready-to-use client.
//
// # Parameters
//   - context: Context for the initial ping.
//   - redisURL: Redis connection URL.
//   - logger: Structured logger for connection events.
func NewClient(context stdctx.Context, redisURL string, logger *slog.Logger) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	// Pool configuration Tuning. Session mirror traffic is small single-key
	// reads and writes, so a modest pool with a couple of warm connections
	// covers login bursts without holding idle sockets open.
	options.PoolSize = 10
	options.MinIdleConns = 2
	options.MaxIdleConns = 5

	options.DialTimeout = dialTimeout
	options.ReadTimeout = readTimeout
	options.WriteTimeout = writeTimeout

	client := redis.NewClient(options)

	// Validate connectivity immediately at startup.
	if err := Ping(context, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis client connected",
		slog.String("addr", options.Addr),
		slog.Int("pool_size", options.PoolSize),
	)

	return client, nil
}

// Ping verifies that the Redis client is healthy.
func Ping(context stdctx.Context, client *redis.Client) error {
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}

	return nil
}
