// health.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package health backs the IsReady RPC and periodic resource logging:
// store and queue reachability, plus a process resource snapshot logged at
// debug level.
package health

import (
	"context"
	gomath "math"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/aerogrid/svc-gis/internal/logging"
)

// Pinger is satisfied by the store pool and the queue client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker reports readiness by probing its dependencies.
type Checker struct {
	store Pinger
	queue Pinger
	log   *logging.Logger
}

func New(store, queue Pinger, log *logging.Logger) *Checker {
	return &Checker{store: store, queue: queue, log: log}
}

// IsReady reports true only when both the spatial store and the queue are
// reachable.
func (c *Checker) IsReady(ctx context.Context) bool {
	if err := c.store.Ping(ctx); err != nil {
		c.log.Warnf("health: store unreachable: %v", err)
		return false
	}
	if err := c.queue.Ping(ctx); err != nil {
		c.log.Warnf("health: queue unreachable: %v", err)
		return false
	}
	return true
}

// Snapshot is a point-in-time process resource reading.
type Snapshot struct {
	AllocMB      uint64
	SysMB        uint64
	NumGC        uint32
	NumGoroutine int
	CPUPercent   int
}

// LogSnapshot captures and logs a resource snapshot at debug level. The
// one-second CPU sample blocks the caller; run it from a background
// ticker, not a request path.
func (c *Checker) LogSnapshot() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	usage, err := cpu.Percent(time.Second, false)
	var pct int
	if err == nil && len(usage) > 0 {
		pct = int(gomath.Round(usage[0]))
	}

	snap := Snapshot{
		AllocMB:      m.Alloc / (1024 * 1024),
		SysMB:        m.Sys / (1024 * 1024),
		NumGC:        m.NumGC,
		NumGoroutine: runtime.NumGoroutine(),
		CPUPercent:   pct,
	}
	c.log.Debugf("health snapshot: alloc=%dMB sys=%dMB gc=%d goroutines=%d cpu=%d%%",
		snap.AllocMB, snap.SysMB, snap.NumGC, snap.NumGoroutine, snap.CPUPercent)
}
