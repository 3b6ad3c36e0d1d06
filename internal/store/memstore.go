// memstore.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package store

import (
	"context"
	gomath "math"
	"sync"
	"time"

	"github.com/aerogrid/svc-gis/internal/geo"
	"github.com/aerogrid/svc-gis/internal/model"
)

// MemStore is an in-memory Store used by the routing and deconfliction
// test suites: it implements the same spatial/temporal
// predicates as PostgresStore using plain Go geometry instead of PostGIS,
// since no live database is available in this tree's tests.
type MemStore struct {
	mu         sync.RWMutex
	vertiports map[string]model.Vertiport
	waypoints  map[string]model.Waypoint
	zones      map[string]model.Zone
	flights    map[string]model.FlightPath
	aircraft   map[string]model.AircraftState
}

func NewMemStore() *MemStore {
	return &MemStore{
		vertiports: make(map[string]model.Vertiport),
		waypoints:  make(map[string]model.Waypoint),
		zones:      make(map[string]model.Zone),
		flights:    make(map[string]model.FlightPath),
		aircraft:   make(map[string]model.AircraftState),
	}
}

var _ Store = (*MemStore)(nil)

// Ping always succeeds; MemStore has no external connection to probe.
func (m *MemStore) Ping(_ context.Context) error { return nil }

func (m *MemStore) UpsertVertiport(_ context.Context, v model.Vertiport) (model.Vertiport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v.Centroid = geo.Centroid2D(polygonFromPolygonZ(v.Footprint))
	v.PortZoneID = v.ID
	m.vertiports[v.ID] = v

	m.zones[v.PortZoneID] = model.Zone{
		ID:          v.PortZoneID,
		Type:        model.ZonePort,
		Footprint:   polygonFromPolygonZ(v.Footprint),
		AltitudeMin: v.GroundAltitude,
		AltitudeMax: v.GroundAltitude + 200,
	}
	return v, nil
}

func (m *MemStore) UpsertWaypoint(_ context.Context, w model.Waypoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waypoints[w.ID] = w
	return nil
}

func (m *MemStore) UpsertZone(_ context.Context, z model.Zone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zones[z.ID] = z
	return nil
}

func (m *MemStore) UpsertFlightPath(_ context.Context, f model.FlightPath) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.Envelope == (model.Envelope{}) {
		f.Envelope = model.EnvelopeFromLine(f.Path)
	}
	m.flights[f.FlightID] = f
	return nil
}

func (m *MemStore) GetVertiport(_ context.Context, id string) (model.Vertiport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vertiports[id]
	if !ok {
		return model.Vertiport{}, ErrNotFound
	}
	return v, nil
}

func (m *MemStore) GetVertiportCentroid3D(_ context.Context, id string) (geo.PointZ, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vertiports[id]
	if !ok {
		return geo.PointZ{}, ErrNotFound
	}
	return geo.PointZ{Coordinate: v.Centroid, AltitudeMeters: v.GroundAltitude}, nil
}

func (m *MemStore) GetAircraftState(_ context.Context, id string) (model.AircraftState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.aircraft[id]
	if !ok {
		return model.AircraftState{}, ErrNotFound
	}
	return a, nil
}

func (m *MemStore) GetAircraftPoint3D(ctx context.Context, id string) (geo.PointZ, error) {
	a, err := m.GetAircraftState(ctx, id)
	if err != nil {
		return geo.PointZ{}, err
	}
	return a.Position, nil
}

func (m *MemStore) GetWaypointsNear(_ context.Context, line geo.Line, rangeMeters float64) ([]model.Waypoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Waypoint
	for _, w := range m.waypoints {
		if lineWithin2D(line, w.Position, rangeMeters) {
			out = append(out, w)
		}
	}
	return out, nil
}

// lineWithin2D reports whether any vertex of line (projected to 2-D) lies
// within rangeMeters of p, approximating ST_DWithin on a polyline by
// checking each vertex and each segment's nearest point.
func lineWithin2D(line geo.Line, p geo.Coordinate, rangeMeters float64) bool {
	target := geo.PointZ{Coordinate: p}
	for i := range line {
		v := line[i]
		v.AltitudeMeters = 0
		if geo.DistanceMeters(v, target) <= rangeMeters {
			return true
		}
	}
	for i := 1; i < len(line); i++ {
		if distanceToSegment2D(line[i-1].Coordinate, line[i].Coordinate, p) <= rangeMeters {
			return true
		}
	}
	return false
}

// distanceToSegment2D returns an approximate metres distance from p to the
// segment (a,b), treating lat/lon deltas as locally flat and scaling
// longitude by cos(latitude), adequate for a short-range test fixture,
// not a safety-critical predicate.
func distanceToSegment2D(a, b, p geo.Coordinate) float64 {
	const metresPerDegreeLat = 111320.0
	cosLat := gomath.Cos(p.Latitude * gomath.Pi / 180)

	ax := a.Longitude * metresPerDegreeLat * cosLat
	ay := a.Latitude * metresPerDegreeLat
	bx := b.Longitude * metresPerDegreeLat * cosLat
	by := b.Latitude * metresPerDegreeLat
	px := p.Longitude * metresPerDegreeLat * cosLat
	py := p.Latitude * metresPerDegreeLat

	dx, dy := bx-ax, by-ay
	lengthSq := dx*dx + dy*dy
	if lengthSq == 0 {
		return geo.DistanceMeters(geo.PointZ{Coordinate: a}, geo.PointZ{Coordinate: p})
	}
	t := ((px-ax)*dx + (py-ay)*dy) / lengthSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	projX, projY := ax+t*dx, ay+t*dy
	ddx, ddy := px-projX, py-projY
	return gomath.Sqrt(ddx*ddx + ddy*ddy)
}

func (m *MemStore) ZoneIntersectionQuery(_ context.Context, line geo.Line, tStart, tEnd time.Time, originID, targetID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, z := range m.zones {
		if z.ID == originID || z.ID == targetID {
			continue
		}
		if !z.Active(tStart, tEnd) {
			continue
		}
		if lineIntersectsZone3D(line, z) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemStore) FlightIntersectionCandidates(_ context.Context, line geo.Line, allowDistM float64, tStart, tEnd time.Time) ([]model.FlightPath, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.FlightPath
	for _, f := range m.flights {
		if f.Simulated {
			continue
		}
		if f.TimeEnd.Before(tStart) || f.TimeStart.After(tEnd) {
			continue
		}
		if line3DDistanceWithin(line, f.Path, allowDistM) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *MemStore) SegmentDistancePair(_ context.Context, a, b geo.Line, allowDistM float64) (bool, error) {
	return line3DDistanceWithin(a, b, allowDistM), nil
}

func (m *MemStore) FlightsInWindow(_ context.Context, env model.Envelope, tStart, tEnd time.Time) ([]model.AircraftState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.AircraftState
	for _, a := range m.aircraft {
		positionCurrent := !a.PositionUpdatedAt.Before(tStart) && !a.PositionUpdatedAt.After(tEnd)
		if positionCurrent && env.Intersects2D(model.Envelope{MinLat: a.Position.Latitude, MaxLat: a.Position.Latitude,
			MinLon: a.Position.Longitude, MaxLon: a.Position.Longitude}) {
			out = append(out, a)
			continue
		}
		if f, ok := m.flights[a.SessionID]; ok {
			if f.TimeStart.After(tEnd) || f.TimeEnd.Before(tStart) {
				continue
			}
			if env.Intersects2D(f.Envelope) {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func (m *MemStore) UpsertAircraftID(_ context.Context, batch []AircraftIDUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range batch {
		a := m.aircraft[u.ID]
		a.ID = u.ID
		a.SessionID = u.SessionID
		a.AircraftType = u.AircraftType
		a.IDUpdatedAt = u.NetworkTime
		m.aircraft[u.ID] = a
	}
	return nil
}

func (m *MemStore) UpsertAircraftPosition(_ context.Context, batch []AircraftPositionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range batch {
		a := m.aircraft[u.ID]
		a.ID = u.ID
		a.Position = u.Position
		a.PositionUpdatedAt = u.NetworkTime
		m.aircraft[u.ID] = a
	}
	return nil
}

func (m *MemStore) UpsertAircraftVelocity(_ context.Context, batch []AircraftVelocityUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range batch {
		a := m.aircraft[u.ID]
		a.ID = u.ID
		a.GroundSpeed = u.GroundSpeed
		a.VerticalRate = u.VerticalRate
		a.Track = u.Track
		a.VelocityUpdatedAt = u.NetworkTime
		m.aircraft[u.ID] = a
	}
	return nil
}
