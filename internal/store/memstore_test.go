// memstore_test.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package store

import (
	"context"
	"testing"
	"time"

	"github.com/aerogrid/svc-gis/internal/geo"
	"github.com/aerogrid/svc-gis/internal/model"
)

func squarePolygonZ(center geo.Coordinate, halfSide float64, altitude float32) geo.PolygonZ {
	v := []geo.PointZ{
		{Coordinate: geo.Coordinate{Latitude: center.Latitude - halfSide, Longitude: center.Longitude - halfSide}, AltitudeMeters: altitude},
		{Coordinate: geo.Coordinate{Latitude: center.Latitude - halfSide, Longitude: center.Longitude + halfSide}, AltitudeMeters: altitude},
		{Coordinate: geo.Coordinate{Latitude: center.Latitude + halfSide, Longitude: center.Longitude + halfSide}, AltitudeMeters: altitude},
		{Coordinate: geo.Coordinate{Latitude: center.Latitude + halfSide, Longitude: center.Longitude - halfSide}, AltitudeMeters: altitude},
	}
	v = append(v, v[0])
	return geo.PolygonZ{Vertices: v, SRID: geo.WGS84SRID}
}

// Writing a vertiport and reading back its centroid must equal the submitted
// polygon's centroid and ground altitude.
func TestVertiportRoundTripCentroid(t *testing.T) {
	s := NewMemStore()
	center := geo.Coordinate{Latitude: 52.1, Longitude: 4.2}
	footprint := squarePolygonZ(center, 0.001, 10)

	written, err := s.UpsertVertiport(context.Background(), model.Vertiport{
		ID: "VPORT_RT", Footprint: footprint, GroundAltitude: 10,
	})
	if err != nil {
		t.Fatalf("upsert vertiport: %v", err)
	}

	got, err := s.GetVertiportCentroid3D(context.Background(), "VPORT_RT")
	if err != nil {
		t.Fatalf("get centroid: %v", err)
	}

	if got.Latitude != center.Latitude || got.Longitude != center.Longitude {
		t.Fatalf("centroid = %+v, want %+v", got.Coordinate, center)
	}
	if got.AltitudeMeters != 10 {
		t.Fatalf("altitude = %v, want 10", got.AltitudeMeters)
	}
	if written.Centroid != center {
		t.Fatalf("returned centroid %+v != %+v", written.Centroid, center)
	}
}

// Submitting the same flight path twice leaves the store in the same observable
// state as a single submission.
func TestFlightPathUpsertIdempotent(t *testing.T) {
	s := NewMemStore()
	now := time.Unix(1_700_000_000, 0)
	f := model.FlightPath{
		FlightID:   "FX",
		AircraftID: "AC-1",
		Path: geo.Line{
			{Coordinate: geo.Coordinate{Latitude: 1, Longitude: 1}, AltitudeMeters: 40},
			{Coordinate: geo.Coordinate{Latitude: 2, Longitude: 2}, AltitudeMeters: 40},
		},
		TimeStart: now,
		TimeEnd:   now.Add(time.Hour),
	}

	if err := s.UpsertFlightPath(context.Background(), f); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	first := s.flights["FX"]

	if err := s.UpsertFlightPath(context.Background(), f); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	second := s.flights["FX"]

	if first.FlightID != second.FlightID || first.AircraftID != second.AircraftID ||
		!first.TimeStart.Equal(second.TimeStart) || !first.TimeEnd.Equal(second.TimeEnd) ||
		len(first.Path) != len(second.Path) {
		t.Fatalf("repeated upsert changed observable state: %+v vs %+v", first, second)
	}
}

// Exercises the store writers the ingestion pipeline calls directly (the
// queue/JSON-decoding half is covered in internal/ingest).
func TestAircraftPositionUpsertAndUnknownLookup(t *testing.T) {
	s := NewMemStore()
	now := time.Unix(1_700_000_000, 0)

	err := s.UpsertAircraftPosition(context.Background(), []AircraftPositionUpdate{
		{ID: "AC-1", Position: geo.PointZ{Coordinate: geo.Coordinate{Latitude: 10, Longitude: 10}, AltitudeMeters: 40}, NetworkTime: now},
	})
	if err != nil {
		t.Fatalf("upsert position: %v", err)
	}

	got, err := s.GetAircraftState(context.Background(), "AC-1")
	if err != nil {
		t.Fatalf("get aircraft state: %v", err)
	}
	if got.Position.Latitude != 10 {
		t.Fatalf("position not recorded: %+v", got)
	}

	if _, err := s.GetAircraftState(context.Background(), "AC-NEVER-SEEN"); err != ErrNotFound {
		t.Fatalf("unknown aircraft should be ErrNotFound, got %v", err)
	}
}
