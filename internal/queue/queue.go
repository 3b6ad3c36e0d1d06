// queue.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package queue wraps the Redis-backed telemetry queue the ingestion
// pipeline polls: three fixed keys per
// folder, namespaced "<folder>:aircraft:<kind>", popped in batches of up
// to 20 with an atomic right-pop.
package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const maxBatchSize = 20

type Kind string

const (
	KindID       Kind = "id"
	KindPosition Kind = "position"
	KindVelocity Kind = "velocity"
)

// Queue is a thin client over a single Redis connection pool, shared
// read/write across the three ingestion consumers.
type Queue struct {
	client *redis.Client
	folder string
}

func New(client *redis.Client, folder string) *Queue {
	return &Queue{client: client, folder: folder}
}

func (q *Queue) key(kind Kind) string {
	return fmt.Sprintf("%s:aircraft:%s", q.folder, kind)
}

// PopBatch performs one atomic right-pop of up to maxBatchSize raw
// records for kind. An empty queue returns a nil slice, not an error.
func (q *Queue) PopBatch(ctx context.Context, kind Kind) ([]string, error) {
	items, err := q.client.RPopCount(ctx, q.key(kind), maxBatchSize).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queue: rpop %s: %w", kind, err)
	}
	return items, nil
}

// Ping verifies the pool can reach Redis, used by the health check.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}
