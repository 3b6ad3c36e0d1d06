// model.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package model defines the persistent entities: vertiports,
// waypoints, zones, filed flight paths, and live aircraft state. These are
// plain data types; invariant enforcement lives in internal/validate and
// the store's transactional writers.
package model

import (
	"time"

	"github.com/aerogrid/svc-gis/internal/geo"
)

// ZoneType enumerates the exclusion kinds a Zone can represent. SpecialUse
// covers military/temporary-use airspace;
// it is, like Restriction and Port, always a hard exclusion; this system
// does not model conditional airspace.
type ZoneType int

const (
	ZoneRestriction ZoneType = iota
	ZonePort
	ZoneSpecialUse
)

func (t ZoneType) String() string {
	switch t {
	case ZoneRestriction:
		return "Restriction"
	case ZonePort:
		return "Port"
	case ZoneSpecialUse:
		return "SpecialUse"
	default:
		return "Unknown"
	}
}

// OperationalStatus is the lifecycle state of an aircraft, needed by
// flights_in_window to distinguish grounded from airborne traffic.
type OperationalStatus int

const (
	StatusUndeclared OperationalStatus = iota
	StatusGround
	StatusAirborne
	StatusEmergency
	StatusRemoteIDSystemFailure
)

func (s OperationalStatus) String() string {
	switch s {
	case StatusUndeclared:
		return "Undeclared"
	case StatusGround:
		return "Ground"
	case StatusAirborne:
		return "Airborne"
	case StatusEmergency:
		return "Emergency"
	case StatusRemoteIDSystemFailure:
		return "RemoteIdSystemFailure"
	default:
		return "Unknown"
	}
}

// OperationalStatusFromString is the inverse of String, used when reading
// the status enum back from the store. Unknown labels map to Undeclared.
func OperationalStatusFromString(s string) OperationalStatus {
	switch s {
	case "Ground":
		return StatusGround
	case "Airborne":
		return StatusAirborne
	case "Emergency":
		return StatusEmergency
	case "RemoteIdSystemFailure":
		return StatusRemoteIDSystemFailure
	default:
		return StatusUndeclared
	}
}

// Vertiport is a fixed take-off/landing facility.
type Vertiport struct {
	ID             string
	Label          string
	Footprint      geo.PolygonZ // ground-level polygon, first == last
	GroundAltitude float32
	NetworkTime    time.Time

	// Derived on write; not set by callers.
	PortZoneID string
	Centroid   geo.Coordinate

	// Optional approach/departure corridors. The store persists them as
	// supplied by the caller; they are not derived on write.
	Ingress []geo.PointZ
	Egress  []geo.PointZ
}

// Waypoint is a named 2-D fix used as a routing node.
type Waypoint struct {
	ID       string
	Position geo.Coordinate
}

// Zone is a time-bounded or permanent 3-D exclusion volume: an extruded
// polygon between AltitudeMin and AltitudeMax.
type Zone struct {
	ID          string
	Type        ZoneType
	Footprint   geo.Polygon
	AltitudeMin float32
	AltitudeMax float32
	TimeStart   *time.Time
	TimeEnd     *time.Time
}

// Active reports whether the zone's time window overlaps [start, end].
// A permanent zone (both bounds nil) is always active.
func (z Zone) Active(start, end time.Time) bool {
	if z.TimeStart == nil && z.TimeEnd == nil {
		return true
	}
	if z.TimeEnd != nil && z.TimeEnd.Before(start) {
		return false
	}
	if z.TimeStart != nil && z.TimeStart.After(end) {
		return false
	}
	return true
}

// FlightPath is a filed future trajectory.
type FlightPath struct {
	FlightID     string
	AircraftID   string
	AircraftType string
	Simulated    bool
	Path         geo.Line
	Envelope     Envelope
	TimeStart    time.Time
	TimeEnd      time.Time
}

// Envelope is an axis-aligned bounding box used for coarse indexing.
type Envelope struct {
	MinLat, MinLon float64
	MaxLat, MaxLon float64
}

// EnvelopeFromLine computes the bounding box of a 3-D line's 2-D
// projection.
func EnvelopeFromLine(l geo.Line) Envelope {
	if len(l) == 0 {
		return Envelope{}
	}
	e := Envelope{MinLat: l[0].Latitude, MaxLat: l[0].Latitude, MinLon: l[0].Longitude, MaxLon: l[0].Longitude}
	for _, p := range l[1:] {
		if p.Latitude < e.MinLat {
			e.MinLat = p.Latitude
		}
		if p.Latitude > e.MaxLat {
			e.MaxLat = p.Latitude
		}
		if p.Longitude < e.MinLon {
			e.MinLon = p.Longitude
		}
		if p.Longitude > e.MaxLon {
			e.MaxLon = p.Longitude
		}
	}
	return e
}

// Intersects2D reports whether two envelopes overlap.
func (e Envelope) Intersects2D(o Envelope) bool {
	return e.MinLat <= o.MaxLat && o.MinLat <= e.MaxLat &&
		e.MinLon <= o.MaxLon && o.MinLon <= e.MaxLon
}

// AircraftState is the live telemetry snapshot for one aircraft, keyed on
// its CAA-assigned identifier.
type AircraftState struct {
	ID           string
	SessionID    string // active flight's FlightID, if any
	AircraftType string
	Position     geo.PointZ
	GroundSpeed  float32
	VerticalRate float32
	Track        float32
	Status       OperationalStatus

	IDUpdatedAt       time.Time
	PositionUpdatedAt time.Time
	VelocityUpdatedAt time.Time
}
