// routing_test.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package routing

import (
	"context"
	"testing"
	"time"

	"github.com/aerogrid/svc-gis/internal/deconflict"
	"github.com/aerogrid/svc-gis/internal/geo"
	"github.com/aerogrid/svc-gis/internal/model"
	"github.com/aerogrid/svc-gis/internal/store"
)

func squareFootprint(center geo.Coordinate, halfSide float64) geo.PolygonZ {
	return geo.PolygonZ{Vertices: []geo.PointZ{
		{Coordinate: geo.Coordinate{Latitude: center.Latitude - halfSide, Longitude: center.Longitude - halfSide}},
		{Coordinate: geo.Coordinate{Latitude: center.Latitude - halfSide, Longitude: center.Longitude + halfSide}},
		{Coordinate: geo.Coordinate{Latitude: center.Latitude + halfSide, Longitude: center.Longitude + halfSide}},
		{Coordinate: geo.Coordinate{Latitude: center.Latitude + halfSide, Longitude: center.Longitude - halfSide}},
		{Coordinate: geo.Coordinate{Latitude: center.Latitude - halfSide, Longitude: center.Longitude - halfSide}},
	}}
}

func setupVertiports(t *testing.T, s *store.MemStore) (a, b model.Vertiport) {
	t.Helper()
	ctx := context.Background()

	av, err := s.UpsertVertiport(ctx, model.Vertiport{
		ID:             "VPORT_A",
		Footprint:      squareFootprint(geo.Coordinate{Latitude: 52.3745905, Longitude: 4.9160036}, 0.00002),
		GroundAltitude: 10,
	})
	if err != nil {
		t.Fatalf("upsert vertiport A: %v", err)
	}
	bv, err := s.UpsertVertiport(ctx, model.Vertiport{
		ID:             "VPORT_B",
		Footprint:      squareFootprint(geo.Coordinate{Latitude: 52.3751407, Longitude: 4.916294}, 0.00002),
		GroundAltitude: 10,
	})
	if err != nil {
		t.Fatalf("upsert vertiport B: %v", err)
	}
	return av, bv
}

// An empty zone/flight set between two vertiports should yield exactly
// one short path.
func TestBestPathStraightLineNoObstacles(t *testing.T) {
	s := store.NewMemStore()
	setupVertiports(t, s)

	eng := New(s, deconflict.New(s))
	now := time.Unix(1_700_000_000, 0)
	eng.now = func() time.Time { return now }

	paths, err := eng.BestPath(context.Background(), Request{
		OriginID:   "VPORT_A",
		OriginType: Vertiport,
		TargetID:   "VPORT_B",
		TargetType: Vertiport,
		TimeStart:  now,
		TimeEnd:    now.Add(2 * time.Hour),
		Limit:      1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("got %d paths, want 1", len(paths))
	}
	if len(paths[0].Nodes) < 2 {
		t.Fatalf("path has %d nodes, want >= 2", len(paths[0].Nodes))
	}

	straight := geo.DistanceMeters(
		geo.PointZ{Coordinate: geo.Coordinate{Latitude: 52.3745905, Longitude: 4.9160036}},
		geo.PointZ{Coordinate: geo.Coordinate{Latitude: 52.3751407, Longitude: 4.916294}},
	)
	if within := paths[0].Distance <= straight*1.10; !within {
		t.Fatalf("path distance %v exceeds haversine(A,B)=%v by more than 10%%", paths[0].Distance, straight)
	}
}

// A zone blocking the direct line between two vertiports forces the
// search onto a waypoint that skirts it, and the returned path still has
// to clear CheckClearance itself.
func TestBestPathZoneForcesWaypointDetour(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()

	const lat = 52.3745905
	const lonA, lonB = 4.9160036, 4.9200036

	if _, err := s.UpsertVertiport(ctx, model.Vertiport{
		ID:             "VPORT_A",
		Footprint:      squareFootprint(geo.Coordinate{Latitude: lat, Longitude: lonA}, 0.00002),
		GroundAltitude: 10,
	}); err != nil {
		t.Fatalf("upsert vertiport A: %v", err)
	}
	if _, err := s.UpsertVertiport(ctx, model.Vertiport{
		ID:             "VPORT_B",
		Footprint:      squareFootprint(geo.Coordinate{Latitude: lat, Longitude: lonB}, 0.00002),
		GroundAltitude: 10,
	}); err != nil {
		t.Fatalf("upsert vertiport B: %v", err)
	}

	// A narrow zone straddling the midpoint longitude blocks the direct
	// A-to-B line (constant latitude), but a waypoint displaced north of it
	// clears on both legs of the detour.
	midLon := (lonA + lonB) / 2
	zone := model.Zone{
		ID:   "NFZ-01",
		Type: model.ZoneRestriction,
		Footprint: geo.Polygon{
			{Latitude: lat - 0.0003, Longitude: midLon - 0.0005},
			{Latitude: lat - 0.0003, Longitude: midLon + 0.0005},
			{Latitude: lat + 0.0003, Longitude: midLon + 0.0005},
			{Latitude: lat + 0.0003, Longitude: midLon - 0.0005},
			{Latitude: lat - 0.0003, Longitude: midLon - 0.0005},
		},
		AltitudeMin: 0,
		AltitudeMax: 1000,
	}
	if err := s.UpsertZone(ctx, zone); err != nil {
		t.Fatalf("upsert zone: %v", err)
	}

	if err := s.UpsertWaypoint(ctx, model.Waypoint{
		ID:       "WP1",
		Position: geo.Coordinate{Latitude: lat + 0.001, Longitude: midLon},
	}); err != nil {
		t.Fatalf("upsert waypoint: %v", err)
	}

	deconflictEngine := deconflict.New(s)
	eng := New(s, deconflictEngine)
	now := time.Unix(1_700_000_000, 0)
	eng.now = func() time.Time { return now }

	req := Request{
		OriginID:   "VPORT_A",
		OriginType: Vertiport,
		TargetID:   "VPORT_B",
		TargetType: Vertiport,
		TimeStart:  now,
		TimeEnd:    now.Add(2 * time.Hour),
		Limit:      1,
	}
	paths, err := eng.BestPath(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("got %d paths, want 1 (detour via WP1)", len(paths))
	}
	if n := len(paths[0].Nodes); n <= 2 || n > maxPathNodes {
		t.Fatalf("path has %d nodes, want a detour of 3..%d", n, maxPathNodes)
	}

	verdict, err := deconflictEngine.CheckClearance(ctx, paths[0].Nodes, paths[0].Distance, req.TimeStart, req.TimeEnd, req.OriginID, req.TargetID)
	if err != nil {
		t.Fatalf("check_clearance on returned path: unexpected error: %v", err)
	}
	if verdict != deconflict.Ok {
		t.Fatalf("returned path does not itself clear check_clearance: %v", verdict)
	}
}

// A filed flight across the same corridor, at the same altitude the direct path
// would fly, with an overlapping window, must leave no clearing path when
// no waypoint is available to route around it; once its window has elapsed
// the direct path clears again.
func TestBestPathFlightSameAltitudeAndTimeBlocksDirectPath(t *testing.T) {
	s := store.NewMemStore()
	av, bv := setupVertiports(t, s)
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	windowEnd := now.Add(15 * time.Minute)

	// The direct path flies at GroundAltitude + the default approach lift
	// (routing.go's defaultApproachLiftMeters) when no ingress/egress
	// corridor is stored.
	const liftedAltitude = 10 + 20

	fy := model.FlightPath{
		FlightID:   "FY",
		AircraftID: "AC-FY",
		Path: geo.Line{
			{Coordinate: av.Centroid, AltitudeMeters: liftedAltitude},
			{Coordinate: bv.Centroid, AltitudeMeters: liftedAltitude},
		},
		TimeStart: now,
		TimeEnd:   windowEnd,
	}
	if err := s.UpsertFlightPath(ctx, fy); err != nil {
		t.Fatalf("upsert flight: %v", err)
	}

	eng := New(s, deconflict.New(s))
	eng.now = func() time.Time { return now }

	blocked, err := eng.BestPath(ctx, Request{
		OriginID:   "VPORT_A",
		OriginType: Vertiport,
		TargetID:   "VPORT_B",
		TargetType: Vertiport,
		TimeStart:  now,
		TimeEnd:    windowEnd,
		Limit:      1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(blocked) != 0 {
		t.Fatalf("got %d paths during FY's window, want 0", len(blocked))
	}

	after := windowEnd.Add(time.Second)
	eng.now = func() time.Time { return after }
	cleared, err := eng.BestPath(ctx, Request{
		OriginID:   "VPORT_A",
		OriginType: Vertiport,
		TargetID:   "VPORT_B",
		TargetType: Vertiport,
		TimeStart:  after,
		TimeEnd:    after.Add(2 * time.Hour),
		Limit:      1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cleared) != 1 {
		t.Fatalf("got %d paths after FY's window, want 1", len(cleared))
	}
}

// A filed flight with 2-D overlap but 3-D (altitude) separation from the
// direct path must not block BestPath.
func TestBestPathFlightDifferentAltitudeNoConflict(t *testing.T) {
	s := store.NewMemStore()
	av, bv := setupVertiports(t, s)
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	windowEnd := now.Add(15 * time.Minute)

	fx := model.FlightPath{
		FlightID:   "FX",
		AircraftID: "AC-FX",
		Path: geo.Line{
			{Coordinate: av.Centroid, AltitudeMeters: 200},
			{Coordinate: bv.Centroid, AltitudeMeters: 200},
		},
		TimeStart: now,
		TimeEnd:   windowEnd,
	}
	if err := s.UpsertFlightPath(ctx, fx); err != nil {
		t.Fatalf("upsert flight: %v", err)
	}

	eng := New(s, deconflict.New(s))
	eng.now = func() time.Time { return now }

	paths, err := eng.BestPath(ctx, Request{
		OriginID:   "VPORT_A",
		OriginType: Vertiport,
		TargetID:   "VPORT_B",
		TargetType: Vertiport,
		TimeStart:  now,
		TimeEnd:    windowEnd,
		Limit:      1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("got %d paths, want 1 (200m altitude separation clears)", len(paths))
	}
}

func TestNormaliseRejectsAircraftToAircraft(t *testing.T) {
	_, err := Normalise(Request{OriginType: Aircraft, TargetType: Aircraft, Limit: 1}, time.Now())
	if err != ErrInvalidStartNode {
		t.Fatalf("got %v, want ErrInvalidStartNode", err)
	}
}

func TestNormaliseRejectsBadLimit(t *testing.T) {
	_, err := Normalise(Request{TargetType: Vertiport, Limit: 0}, time.Now())
	if err != ErrInvalidLimit {
		t.Fatalf("got %v, want ErrInvalidLimit", err)
	}
	_, err = Normalise(Request{TargetType: Vertiport, Limit: 6}, time.Now())
	if err != ErrInvalidLimit {
		t.Fatalf("got %v, want ErrInvalidLimit", err)
	}
}

func TestNormaliseRejectsInvertedWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	_, err := Normalise(Request{TargetType: Vertiport, Limit: 1, TimeStart: now.Add(time.Hour), TimeEnd: now}, now)
	if err != ErrInvalidTimeWindow {
		t.Fatalf("got %v, want ErrInvalidTimeWindow", err)
	}
}

func TestNormaliseDefaultsWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	req, err := Normalise(Request{TargetType: Vertiport, Limit: 1}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !req.TimeStart.Equal(now) {
		t.Fatalf("TimeStart = %v, want %v", req.TimeStart, now)
	}
	if want := now.Add(24 * time.Hour); !req.TimeEnd.Equal(want) {
		t.Fatalf("TimeEnd = %v, want %v", req.TimeEnd, want)
	}
}
