// messages.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package rpcapi is the gRPC surface: one service, eight operations.
// Message types are hand-shaped the way protoc would generate them; this
// repo has no .proto/protoc step, so they are written directly and travel
// as JSON through jsonCodec (server.go), not as wire-format protobuf.
package rpcapi

import "time"

type VertiportMsg struct {
	ID             string
	Label          string
	FootprintRing  []CoordinateMsg
	GroundAltitude float32
}

type WaypointMsg struct {
	ID        string
	Latitude  float64
	Longitude float64
}

type ZoneMsg struct {
	ID            string
	Type          string // "Restriction" | "Port" | "SpecialUse"
	FootprintRing []CoordinateMsg
	AltitudeMin   float32
	AltitudeMax   float32
	TimeStart     *time.Time
	TimeEnd       *time.Time
}

type FlightPathMsg struct {
	FlightID     string
	AircraftID   string
	AircraftType string
	Simulated    bool
	Nodes        []PointZMsg
	TimeStart    time.Time
	TimeEnd      time.Time
}

type CoordinateMsg struct {
	Latitude  float64
	Longitude float64
}

type PointZMsg struct {
	Latitude       float64
	Longitude      float64
	AltitudeMeters float32
}

type UpdatedResponse struct {
	Updated bool
}

type IsReadyResponse struct {
	Ready bool
}

type BestPathRequest struct {
	OriginID   string
	OriginType string // "Vertiport" | "Aircraft"
	TargetID   string
	TimeStart  time.Time
	TimeEnd    time.Time
	Limit      int32
}

type PathMsg struct {
	Nodes    []PointZMsg
	Distance float64
}

type BestPathResponse struct {
	Paths []PathMsg
}

type CheckIntersectionRequest struct {
	Nodes     []PointZMsg
	TimeStart time.Time
	TimeEnd   time.Time
	OriginID  string
	TargetID  string
}

type IntersectsResponse struct {
	Intersects bool
}

type GetFlightsRequest struct {
	MinLat, MinLon, MaxLat, MaxLon float64
	TimeStart, TimeEnd             time.Time
}

type FlightMsg struct {
	AircraftID   string
	AircraftType string
	Position     PointZMsg
	GroundSpeed  float32
	VerticalRate float32
	Track        float32
	Status       string
}

type GetFlightsResponse struct {
	Flights []FlightMsg
}
