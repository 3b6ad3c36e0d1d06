// validate.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package validate implements the pure, fail-typed checks every writer and
// ingestion consumer runs before anything reaches the spatial store:
// identifier syntax, coordinate bounds, polygon well-formedness, and time
// ordering.
package validate

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/aerogrid/svc-gis/internal/geo"
)

var (
	ErrIdentifierMismatch  = errors.New("identifier does not match the required pattern")
	ErrIdentifierForbidden = errors.New("identifier contains a forbidden substring")
	ErrOutOfBounds         = errors.New("coordinate out of bounds")
	ErrVertexCount         = errors.New("polygon has fewer than 4 vertices")
	ErrOpenPolygon         = errors.New("polygon is not closed")
	ErrTimeOrder           = errors.New("time_end precedes time_start")
)

// identifierPattern: 1-255 characters of letters,
// digits, hyphen, underscore, or dot.
var identifierPattern = regexp.MustCompile(`^[-0-9A-Za-z_.]{1,255}$`)

// CheckIdentifier validates s against the identifier grammar and rejects
// any identifier whose lowercased form contains the literal substring
// "null". Idempotent: calling it twice on the same string yields the same
// result.
func CheckIdentifier(s string) error {
	if !identifierPattern.MatchString(s) {
		return ErrIdentifierMismatch
	}
	if strings.Contains(strings.ToLower(s), "null") {
		return ErrIdentifierForbidden
	}
	return nil
}

// ValidatePointZ checks that a PointZ's 2-D coordinate lies within
// geodetic bounds. Altitude is unconstrained here; the caller enforces
// altitude-range invariants.
func ValidatePointZ(p geo.PointZ) error {
	if p.Latitude < -90 || p.Latitude > 90 {
		return ErrOutOfBounds
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return ErrOutOfBounds
	}
	return nil
}

// PolygonFromVertices builds a closed PolygonZ at the given altitude from
// a ring of 2-D vertices, enforcing:
//   - at least 4 vertices (a triangle plus closing vertex),
//   - vs[0] == vs[len(vs)-1] (closed ring),
//   - every vertex within geodetic bounds.
//
// On success every vertex is lifted to altitude and tagged with the
// canonical SRID.
func PolygonFromVertices(vs []geo.Coordinate, altitude float32) (geo.PolygonZ, error) {
	if len(vs) < 4 {
		return geo.PolygonZ{}, ErrVertexCount
	}
	if vs[0] != vs[len(vs)-1] {
		return geo.PolygonZ{}, ErrOpenPolygon
	}
	out := make([]geo.PointZ, len(vs))
	for i, v := range vs {
		p := geo.PointZ{Coordinate: v, AltitudeMeters: altitude}
		if err := ValidatePointZ(p); err != nil {
			return geo.PolygonZ{}, err
		}
		out[i] = p
	}
	return geo.PolygonZ{Vertices: out, SRID: geo.WGS84SRID}, nil
}

// ValidateTimeWindow allows either or both bounds to be absent; when both
// are present, end must not precede start.
func ValidateTimeWindow(start, end *time.Time) error {
	if start == nil || end == nil {
		return nil
	}
	if end.Before(*start) {
		return ErrTimeOrder
	}
	return nil
}
