// store.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package store defines the spatial store contract: the persistent 3-D
// geometry and time-range store for vertiports, waypoints,
// zones, flight paths, and live aircraft state, plus the spatial/temporal
// predicates the routing and deconfliction engines depend on.
//
// Store is an interface so the routing and deconfliction engines can be
// tested against an in-memory fake (memstore.go) without a live Postgres
// instance.
package store

import (
	"context"
	"time"

	"github.com/aerogrid/svc-gis/internal/geo"
	"github.com/aerogrid/svc-gis/internal/model"
)

// Store is the spatial store's public operation set.
type Store interface {
	UpsertVertiport(ctx context.Context, v model.Vertiport) (model.Vertiport, error)
	UpsertWaypoint(ctx context.Context, w model.Waypoint) error
	UpsertZone(ctx context.Context, z model.Zone) error
	UpsertFlightPath(ctx context.Context, f model.FlightPath) error

	GetVertiport(ctx context.Context, id string) (model.Vertiport, error)
	GetVertiportCentroid3D(ctx context.Context, id string) (geo.PointZ, error)
	GetAircraftState(ctx context.Context, id string) (model.AircraftState, error)
	GetAircraftPoint3D(ctx context.Context, id string) (geo.PointZ, error)

	// GetWaypointsNear returns every waypoint whose geography lies within
	// rangeMeters of line's 2-D projection (altitude ignored).
	GetWaypointsNear(ctx context.Context, line geo.Line, rangeMeters float64) ([]model.Waypoint, error)

	// ZoneIntersectionQuery reports whether any zone other than those
	// keyed by originID/targetID intersects line in 3-D during
	// [tStart, tEnd].
	ZoneIntersectionQuery(ctx context.Context, line geo.Line, tStart, tEnd time.Time, originID, targetID string) (bool, error)

	// FlightIntersectionCandidates returns every non-simulated filed
	// flight whose 3-D distance to line is within allowDistM (or
	// undefined), active during [tStart, tEnd].
	FlightIntersectionCandidates(ctx context.Context, line geo.Line, allowDistM float64, tStart, tEnd time.Time) ([]model.FlightPath, error)

	// SegmentDistancePair reports conflict = distance_3d(a,b) < allowDistM
	// OR the distance is undefined.
	SegmentDistancePair(ctx context.Context, a, b geo.Line, allowDistM float64) (bool, error)

	// FlightsInWindow returns every aircraft (grounded or airborne) whose
	// position or filed path intersects env during [tStart, tEnd].
	FlightsInWindow(ctx context.Context, env model.Envelope, tStart, tEnd time.Time) ([]model.AircraftState, error)

	// UpsertAircraftID/Position/Velocity are the three idempotent,
	// field-scoped upserts the ingestion pipeline issues.
	UpsertAircraftID(ctx context.Context, batch []AircraftIDUpdate) error
	UpsertAircraftPosition(ctx context.Context, batch []AircraftPositionUpdate) error
	UpsertAircraftVelocity(ctx context.Context, batch []AircraftVelocityUpdate) error
}

// AircraftIDUpdate carries the fields an "id" telemetry record updates.
type AircraftIDUpdate struct {
	ID           string
	SessionID    string
	AircraftType string
	NetworkTime  time.Time
}

// AircraftPositionUpdate carries the fields a "position" telemetry record
// updates.
type AircraftPositionUpdate struct {
	ID          string
	Position    geo.PointZ
	NetworkTime time.Time
}

// AircraftVelocityUpdate carries the fields a "velocity" telemetry record
// updates.
type AircraftVelocityUpdate struct {
	ID           string
	GroundSpeed  float32
	VerticalRate float32
	Track        float32
	NetworkTime  time.Time
}

// ErrNotFound is returned by single-entity lookups when the identifier is
// unknown to the store.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "not found" }
