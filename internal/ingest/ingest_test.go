// ingest_test.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package ingest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aerogrid/svc-gis/internal/logging"
	"github.com/aerogrid/svc-gis/internal/store"
)

func mustMarshal(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

// Feeding N raw position records through the consumer's filter should keep
// only the ones that deserialise, validate, and are not future-dated.
func TestFilterPositionBatchKeepsOnlyValidRecords(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	valid := positionRecord{Identifier: "AC-1", Latitude: 10, Longitude: 20, AltitudeMeters: 40, NetworkTimestamp: now}
	outOfBounds := positionRecord{Identifier: "AC-2", Latitude: 200, Longitude: 20, AltitudeMeters: 40, NetworkTimestamp: now}
	badID := positionRecord{Identifier: "AC;DROP", Latitude: 10, Longitude: 20, AltitudeMeters: 40, NetworkTimestamp: now}
	future := positionRecord{Identifier: "AC-3", Latitude: 10, Longitude: 20, AltitudeMeters: 40, NetworkTimestamp: now.Add(time.Hour)}

	log := logging.New("error", t.TempDir())
	raw := []string{
		mustMarshal(t, valid),
		mustMarshal(t, outOfBounds),
		mustMarshal(t, badID),
		"{not json",
		mustMarshal(t, future),
	}

	got := filterPositionBatch(raw, now, log)
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1: %+v", len(got), got)
	}
	if got[0].ID != "AC-1" {
		t.Fatalf("kept record = %+v, want AC-1", got[0])
	}
}

// An id record with no identifier but a session identifier is still
// accepted, keyed on the session identifier.
func TestFilterIDBatchFallsBackToSessionID(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	log := logging.New("error", t.TempDir())

	rec := idRecord{SessionID: "SESSION-1", AircraftType: "EVTOL", NetworkTimestamp: now}
	neither := idRecord{AircraftType: "EVTOL", NetworkTimestamp: now}

	got := filterIDBatch([]string{mustMarshal(t, rec), mustMarshal(t, neither)}, now, log)
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1: %+v", len(got), got)
	}
	if got[0].SessionID != "SESSION-1" {
		t.Fatalf("kept record = %+v, want SessionID=SESSION-1", got[0])
	}
}

// TestFilterVelocityBatchDropsFutureTimestamp checks the same
// future-network-timestamp rule applies to the velocity consumer.
func TestFilterVelocityBatchDropsFutureTimestamp(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	log := logging.New("error", t.TempDir())

	valid := velocityRecord{Identifier: "AC-1", GroundSpeed: 15, VerticalRate: 0, Track: 90, NetworkTimestamp: now}
	future := velocityRecord{Identifier: "AC-2", GroundSpeed: 15, VerticalRate: 0, Track: 90, NetworkTimestamp: now.Add(time.Minute)}

	got := filterVelocityBatch([]string{mustMarshal(t, valid), mustMarshal(t, future)}, now, log)
	if len(got) != 1 || got[0].ID != "AC-1" {
		t.Fatalf("got %+v, want only AC-1", got)
	}
}

// TestPipelineRunPositionConsumerUpsertsFilteredBatch wires filterPositionBatch's
// output through to the store the way runPositionConsumer does, without a
// live Redis instance.
func TestPipelineRunPositionConsumerUpsertsFilteredBatch(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := store.NewMemStore()
	log := logging.New("error", t.TempDir())
	p := New(nil, s, log, time.Millisecond)
	p.now = func() time.Time { return now }

	rec := positionRecord{Identifier: "AC-1", Latitude: 10, Longitude: 20, AltitudeMeters: 40, NetworkTimestamp: now}
	batch := filterPositionBatch([]string{mustMarshal(t, rec)}, p.now(), p.log)
	if err := p.store.UpsertAircraftPosition(context.Background(), batch); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.GetAircraftState(context.Background(), "AC-1")
	if err != nil {
		t.Fatalf("expected AC-1 to be present: %v", err)
	}
	if got.Position.Latitude != 10 {
		t.Fatalf("AC-1 position wrong: %+v", got.Position)
	}
}
