// ingest.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package ingest runs the three long-lived telemetry consumers:
// aircraft id, position, and velocity. Each consumer polls its
// queue key on a fixed cadence, validates the popped batch, and issues a
// single idempotent upsert for the records that survive validation.
package ingest

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aerogrid/svc-gis/internal/geo"
	"github.com/aerogrid/svc-gis/internal/logging"
	"github.com/aerogrid/svc-gis/internal/queue"
	"github.com/aerogrid/svc-gis/internal/store"
	"github.com/aerogrid/svc-gis/internal/validate"
)

// Pipeline owns the three consumers and their shared dependencies.
type Pipeline struct {
	queue   *queue.Queue
	store   store.Store
	log     *logging.Logger
	cadence time.Duration
	now     func() time.Time
}

func New(q *queue.Queue, s store.Store, log *logging.Logger, cadence time.Duration) *Pipeline {
	return &Pipeline{queue: q, store: s, log: log, cadence: cadence, now: time.Now}
}

// Run starts all three consumers and blocks until ctx is cancelled or one
// of them returns a non-recoverable error. Cancellation never tears a
// transaction: a tick either fully commits its batch or never acquired
// one.
func (p *Pipeline) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.runIDConsumer(ctx) })
	g.Go(func() error { return p.runPositionConsumer(ctx) })
	g.Go(func() error { return p.runVelocityConsumer(ctx) })
	return g.Wait()
}

func (p *Pipeline) tick(ctx context.Context, fn func(context.Context) error) error {
	ticker := time.NewTicker(p.cadence)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// The batch runs detached from cancellation so a popped batch
			// is always carried through its upsert; ctx is checked between
			// ticks.
			if err := fn(context.WithoutCancel(ctx)); err != nil {
				return err
			}
		}
	}
}

func (p *Pipeline) runIDConsumer(ctx context.Context) error {
	return p.tick(ctx, func(ctx context.Context) error {
		raw, err := p.queue.PopBatch(ctx, queue.KindID)
		if err != nil {
			return err
		}
		batch := filterIDBatch(raw, p.now(), p.log)
		if len(batch) == 0 {
			return nil
		}
		return p.store.UpsertAircraftID(ctx, batch)
	})
}

func (p *Pipeline) runPositionConsumer(ctx context.Context) error {
	return p.tick(ctx, func(ctx context.Context) error {
		raw, err := p.queue.PopBatch(ctx, queue.KindPosition)
		if err != nil {
			return err
		}
		batch := filterPositionBatch(raw, p.now(), p.log)
		if len(batch) == 0 {
			return nil
		}
		return p.store.UpsertAircraftPosition(ctx, batch)
	})
}

func (p *Pipeline) runVelocityConsumer(ctx context.Context) error {
	return p.tick(ctx, func(ctx context.Context) error {
		raw, err := p.queue.PopBatch(ctx, queue.KindVelocity)
		if err != nil {
			return err
		}
		batch := filterVelocityBatch(raw, p.now(), p.log)
		if len(batch) == 0 {
			return nil
		}
		return p.store.UpsertAircraftVelocity(ctx, batch)
	})
}

// filterIDBatch parses and validates raw "id" records, dropping (and
// logging) anything malformed.
func filterIDBatch(raw []string, now time.Time, log *logging.Logger) []store.AircraftIDUpdate {
	var batch []store.AircraftIDUpdate
	for _, item := range raw {
		var rec idRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			log.Warnf("ingest id: dropping undeserialisable record: %v", err)
			continue
		}
		if rec.Identifier == "" && rec.SessionID == "" {
			log.Warnf("ingest id: dropping record with neither identifier nor session_identifier")
			continue
		}
		// A record without a CAA identifier is keyed on its session
		// identifier until a later id record supplies one.
		id := firstNonEmpty(rec.Identifier, rec.SessionID)
		if err := validate.CheckIdentifier(id); err != nil {
			log.Warnf("ingest id: dropping record with bad identifier %q", id)
			continue
		}
		if rec.NetworkTimestamp.After(now) {
			log.Warnf("ingest id: dropping record with future network timestamp")
			continue
		}
		batch = append(batch, store.AircraftIDUpdate{
			ID: id, SessionID: rec.SessionID, AircraftType: rec.AircraftType,
			NetworkTime: rec.NetworkTimestamp,
		})
	}
	return batch
}

// filterPositionBatch parses and validates raw "position" records.
func filterPositionBatch(raw []string, now time.Time, log *logging.Logger) []store.AircraftPositionUpdate {
	var batch []store.AircraftPositionUpdate
	for _, item := range raw {
		var rec positionRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			log.Warnf("ingest position: dropping undeserialisable record: %v", err)
			continue
		}
		if err := validate.CheckIdentifier(rec.Identifier); err != nil {
			log.Warnf("ingest position: dropping record with bad identifier %q", rec.Identifier)
			continue
		}
		point := geo.PointZ{
			Coordinate:     geo.Coordinate{Latitude: rec.Latitude, Longitude: rec.Longitude},
			AltitudeMeters: rec.AltitudeMeters,
		}
		if err := validate.ValidatePointZ(point); err != nil {
			log.Warnf("ingest position: dropping out-of-bounds record for %q", rec.Identifier)
			continue
		}
		if rec.NetworkTimestamp.After(now) {
			log.Warnf("ingest position: dropping record with future network timestamp")
			continue
		}
		batch = append(batch, store.AircraftPositionUpdate{
			ID: rec.Identifier, Position: point, NetworkTime: rec.NetworkTimestamp,
		})
	}
	return batch
}

// filterVelocityBatch parses and validates raw "velocity" records.
func filterVelocityBatch(raw []string, now time.Time, log *logging.Logger) []store.AircraftVelocityUpdate {
	var batch []store.AircraftVelocityUpdate
	for _, item := range raw {
		var rec velocityRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			log.Warnf("ingest velocity: dropping undeserialisable record: %v", err)
			continue
		}
		if err := validate.CheckIdentifier(rec.Identifier); err != nil {
			log.Warnf("ingest velocity: dropping record with bad identifier %q", rec.Identifier)
			continue
		}
		if rec.NetworkTimestamp.After(now) {
			log.Warnf("ingest velocity: dropping record with future network timestamp")
			continue
		}
		batch = append(batch, store.AircraftVelocityUpdate{
			ID: rec.Identifier, GroundSpeed: rec.GroundSpeed, VerticalRate: rec.VerticalRate,
			Track: rec.Track, NetworkTime: rec.NetworkTimestamp,
		})
	}
	return batch
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
