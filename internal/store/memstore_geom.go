// memstore_geom.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package store

import (
	"github.com/aerogrid/svc-gis/internal/geo"
	"github.com/aerogrid/svc-gis/internal/model"
)

// This file gives MemStore plain-Go stand-ins for the 3-D predicates
// PostgresStore delegates to PostGIS (ST_3DIntersects, ST_3DDWithin). They
// are simplified approximations adequate for exercising
// the routing/deconfliction algorithms in tests, not a geometry engine.

// lineIntersectsZone3D reports whether any segment of line passes through
// zone's extruded volume: its 2-D projection lies inside (or touches) the
// footprint, and its altitude falls within [AltitudeMin, AltitudeMax].
func lineIntersectsZone3D(line geo.Line, z model.Zone) bool {
	for i := 1; i < len(line); i++ {
		a, b := line[i-1], line[i]
		if !altitudeRangeOverlaps(a.AltitudeMeters, b.AltitudeMeters, z.AltitudeMin, z.AltitudeMax) {
			continue
		}
		if segmentIntersectsPolygon2D(a.Coordinate, b.Coordinate, z.Footprint) {
			return true
		}
	}
	return false
}

func altitudeRangeOverlaps(a, b, lo, hi float32) bool {
	segLo, segHi := a, b
	if segLo > segHi {
		segLo, segHi = segHi, segLo
	}
	return segLo <= hi && segHi >= lo
}

// segmentIntersectsPolygon2D reports whether segment (a,b) crosses any
// edge of polygon, or either endpoint lies inside it.
func segmentIntersectsPolygon2D(a, b geo.Coordinate, polygon geo.Polygon) bool {
	if pointInPolygon2D(a, polygon) || pointInPolygon2D(b, polygon) {
		return true
	}
	for i := 1; i < len(polygon); i++ {
		if segmentsIntersect2D(a, b, polygon[i-1], polygon[i]) {
			return true
		}
	}
	return false
}

// pointInPolygon2D is the standard ray-casting point-in-polygon test.
func pointInPolygon2D(p geo.Coordinate, polygon geo.Polygon) bool {
	inside := false
	n := len(polygon)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		pi, pj := polygon[i], polygon[j]
		if (pi.Latitude > p.Latitude) != (pj.Latitude > p.Latitude) {
			x := (pj.Longitude-pi.Longitude)*(p.Latitude-pi.Latitude)/(pj.Latitude-pi.Latitude) + pi.Longitude
			if p.Longitude < x {
				inside = !inside
			}
		}
	}
	return inside
}

func segmentsIntersect2D(p1, p2, p3, p4 geo.Coordinate) bool {
	d1 := cross2D(p3, p4, p1)
	d2 := cross2D(p3, p4, p2)
	d3 := cross2D(p1, p2, p3)
	d4 := cross2D(p1, p2, p4)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return false
}

func cross2D(a, b, c geo.Coordinate) float64 {
	return (b.Longitude-a.Longitude)*(c.Latitude-a.Latitude) - (b.Latitude-a.Latitude)*(c.Longitude-a.Longitude)
}

// line3DDistanceWithin reports whether any vertex of a lies within
// allowDistM (inclusive) of any vertex of b, by geo.DistanceMeters. Points
// inside segments are not measured, so segments that pass close to each
// other only between their vertices are not reported.
func line3DDistanceWithin(a, b geo.Line, allowDistM float64) bool {
	if len(a) == 0 || len(b) == 0 {
		return true // undefined distance counts as a conflict
	}
	for i := range a {
		for j := range b {
			if geo.DistanceMeters(a[i], b[j]) <= allowDistM {
				return true
			}
		}
	}
	return false
}
