// service_test.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package rpcapi

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aerogrid/svc-gis/internal/deconflict"
	"github.com/aerogrid/svc-gis/internal/geo"
	"github.com/aerogrid/svc-gis/internal/health"
	"github.com/aerogrid/svc-gis/internal/logging"
	"github.com/aerogrid/svc-gis/internal/routing"
	"github.com/aerogrid/svc-gis/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.MemStore) {
	t.Helper()
	s := store.NewMemStore()
	d := deconflict.New(s)
	r := routing.New(s, d)
	log := logging.New("error", t.TempDir())
	h := health.New(s, fakeQueue{}, log)
	return New(s, d, r, h), s
}

type fakeQueue struct{}

func (fakeQueue) Ping(context.Context) error { return nil }

func square(lat, lon, halfSide float64) []CoordinateMsg {
	return []CoordinateMsg{
		{Latitude: lat - halfSide, Longitude: lon - halfSide},
		{Latitude: lat - halfSide, Longitude: lon + halfSide},
		{Latitude: lat + halfSide, Longitude: lon + halfSide},
		{Latitude: lat + halfSide, Longitude: lon - halfSide},
		{Latitude: lat - halfSide, Longitude: lon - halfSide},
	}
}

func TestIsReadyReflectsHealthChecker(t *testing.T) {
	svc, _ := newTestService(t)
	resp, err := svc.IsReady(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Ready {
		t.Fatal("expected ready")
	}
}

func TestUpdateVertiportsRejectsBadIdentifier(t *testing.T) {
	svc, _ := newTestService(t)
	req := []VertiportMsg{{ID: "bad id with spaces", FootprintRing: square(52.1, 4.2, 0.001), GroundAltitude: 10}}
	_, err := svc.UpdateVertiports(context.Background(), &req)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("got code %v, want InvalidArgument", status.Code(err))
	}
}

func TestUpdateVertiportsAcceptsValidRequest(t *testing.T) {
	svc, s := newTestService(t)
	req := []VertiportMsg{{ID: "VPORT_X", FootprintRing: square(52.1, 4.2, 0.001), GroundAltitude: 10}}
	resp, err := svc.UpdateVertiports(context.Background(), &req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Updated {
		t.Fatal("expected Updated=true")
	}
	if _, err := s.GetVertiport(context.Background(), "VPORT_X"); err != nil {
		t.Fatalf("vertiport not stored: %v", err)
	}
}

func TestUpdateZonesRejectsUnknownType(t *testing.T) {
	svc, _ := newTestService(t)
	req := []ZoneMsg{{ID: "ZONE-1", Type: "Bogus", FootprintRing: square(52.1, 4.2, 0.001)}}
	_, err := svc.UpdateZones(context.Background(), &req)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("got code %v, want InvalidArgument", status.Code(err))
	}
}

func TestBestPathRejectsAircraftToAircraft(t *testing.T) {
	svc, _ := newTestService(t)
	req := &BestPathRequest{OriginID: "AC-1", OriginType: "Aircraft", TargetID: "AC-2", Limit: 1}
	_, err := svc.BestPath(context.Background(), req)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("got code %v, want InvalidArgument", status.Code(err))
	}
}

func TestGetFlightsConvertsStatusToString(t *testing.T) {
	svc, s := newTestService(t)
	now := time.Unix(1_700_000_000, 0)
	if err := s.UpsertAircraftPosition(context.Background(), []store.AircraftPositionUpdate{
		{ID: "AC-1", Position: geo.PointZ{Coordinate: geo.Coordinate{Latitude: 10, Longitude: 10}, AltitudeMeters: 40}, NetworkTime: now},
	}); err != nil {
		t.Fatalf("seed position: %v", err)
	}

	resp, err := svc.GetFlights(context.Background(), &GetFlightsRequest{
		MinLat: 0, MinLon: 0, MaxLat: 20, MaxLon: 20,
		TimeStart: now.Add(-time.Hour), TimeEnd: now.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Flights) != 1 {
		t.Fatalf("got %d flights, want 1", len(resp.Flights))
	}
	if resp.Flights[0].Status == "" {
		t.Fatal("expected a non-empty status string")
	}
}
