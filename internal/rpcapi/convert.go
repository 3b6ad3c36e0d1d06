// convert.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package rpcapi

import (
	"fmt"

	"github.com/aerogrid/svc-gis/internal/geo"
	"github.com/aerogrid/svc-gis/internal/model"
	"github.com/aerogrid/svc-gis/internal/validate"
)

func zoneTypeFromString(s string) (model.ZoneType, error) {
	switch s {
	case "Restriction":
		return model.ZoneRestriction, nil
	case "Port":
		return model.ZonePort, nil
	case "SpecialUse":
		return model.ZoneSpecialUse, nil
	default:
		return 0, fmt.Errorf("rpcapi: unknown zone type %q", s)
	}
}

func ringFromMsg(ring []CoordinateMsg) []geo.Coordinate {
	out := make([]geo.Coordinate, len(ring))
	for i, c := range ring {
		out[i] = geo.Coordinate{Latitude: c.Latitude, Longitude: c.Longitude}
	}
	return out
}

func vertiportFromMsg(vm VertiportMsg) (model.Vertiport, error) {
	if err := validate.CheckIdentifier(vm.ID); err != nil {
		return model.Vertiport{}, err
	}
	footprint, err := validate.PolygonFromVertices(ringFromMsg(vm.FootprintRing), vm.GroundAltitude)
	if err != nil {
		return model.Vertiport{}, err
	}
	return model.Vertiport{
		ID:             vm.ID,
		Label:          vm.Label,
		Footprint:      footprint,
		GroundAltitude: vm.GroundAltitude,
	}, nil
}

func zoneFromMsg(zm ZoneMsg) (model.Zone, error) {
	if err := validate.CheckIdentifier(zm.ID); err != nil {
		return model.Zone{}, err
	}
	zt, err := zoneTypeFromString(zm.Type)
	if err != nil {
		return model.Zone{}, err
	}
	if err := validate.ValidateTimeWindow(zm.TimeStart, zm.TimeEnd); err != nil {
		return model.Zone{}, err
	}
	return model.Zone{
		ID:          zm.ID,
		Type:        zt,
		Footprint:   geo.Polygon(ringFromMsg(zm.FootprintRing)),
		AltitudeMin: zm.AltitudeMin,
		AltitudeMax: zm.AltitudeMax,
		TimeStart:   zm.TimeStart,
		TimeEnd:     zm.TimeEnd,
	}, nil
}

func msgToLine(nodes []PointZMsg) geo.Line {
	line := make(geo.Line, len(nodes))
	for i, n := range nodes {
		line[i] = geo.PointZ{
			Coordinate:     geo.Coordinate{Latitude: n.Latitude, Longitude: n.Longitude},
			AltitudeMeters: n.AltitudeMeters,
		}
	}
	return line
}

func lineToMsg(line geo.Line) []PointZMsg {
	out := make([]PointZMsg, len(line))
	for i, p := range line {
		out[i] = pointToMsg(p)
	}
	return out
}

func pointToMsg(p geo.PointZ) PointZMsg {
	return PointZMsg{Latitude: p.Latitude, Longitude: p.Longitude, AltitudeMeters: p.AltitudeMeters}
}

func flightPathFromMsg(fm FlightPathMsg) (model.FlightPath, error) {
	if err := validate.CheckIdentifier(fm.FlightID); err != nil {
		return model.FlightPath{}, err
	}
	if err := validate.CheckIdentifier(fm.AircraftID); err != nil {
		return model.FlightPath{}, err
	}
	start, end := fm.TimeStart, fm.TimeEnd
	if err := validate.ValidateTimeWindow(&start, &end); err != nil {
		return model.FlightPath{}, err
	}
	line := msgToLine(fm.Nodes)
	return model.FlightPath{
		FlightID:     fm.FlightID,
		AircraftID:   fm.AircraftID,
		AircraftType: fm.AircraftType,
		Simulated:    fm.Simulated,
		Path:         line,
		Envelope:     model.EnvelopeFromLine(line),
		TimeStart:    fm.TimeStart,
		TimeEnd:      fm.TimeEnd,
	}, nil
}
