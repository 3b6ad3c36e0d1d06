// geo.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package geo provides the 3-D geodetic primitives shared by the store,
// validators, deconfliction engine, and router: coordinates, distance, and
// path segmentisation. Safety-critical intersection predicates live in the
// spatial store (internal/store), not here; this package is for the
// heuristics and geometry construction that feed it.
package geo

import (
	"fmt"
	gomath "math"
	"time"
)

// WGS84SRID is the canonical spatial reference identifier tagged on every
// persisted geometry.
const WGS84SRID = 4326

// Coordinate is a 2-D geodetic point: latitude in [-90, 90], longitude in
// [-180, 180]. Units are degrees.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%f, %f)", c.Latitude, c.Longitude)
}

// PointZ adds an altitude in metres above ground to a Coordinate.
type PointZ struct {
	Coordinate
	AltitudeMeters float32
}

func (p PointZ) String() string {
	return fmt.Sprintf("(%f, %f, %gm)", p.Latitude, p.Longitude, p.AltitudeMeters)
}

// Line is an ordered 3-D polyline.
type Line []PointZ

// Polygon is a closed ring of 2-D vertices (first == last).
type Polygon []Coordinate

// PolygonZ is a closed ring with every vertex lifted to a common altitude,
// the shape persisted for vertiport footprints and zone cross-sections.
type PolygonZ struct {
	Vertices []PointZ
	SRID     int
}

const earthRadiusMeters = 6371000.0

// degToRad converts degrees to radians in double precision.
// Latitude/longitude arithmetic stays at double precision throughout;
// altitude is single precision, narrowed only at the API boundary.
func degToRad(d float64) float64 { return d * gomath.Pi / 180 }

// haversineMeters returns the great-circle surface distance between two
// coordinates, ignoring altitude.
func haversineMeters(a, b Coordinate) float64 {
	lat1, lon1 := degToRad(a.Latitude), degToRad(a.Longitude)
	lat2, lon2 := degToRad(b.Latitude), degToRad(b.Longitude)
	dlat, dlon := lat2-lat1, lon2-lon1

	x := gomath.Sin(dlat/2)*gomath.Sin(dlat/2) +
		gomath.Cos(lat1)*gomath.Cos(lat2)*gomath.Sin(dlon/2)*gomath.Sin(dlon/2)
	c := 2 * gomath.Atan2(gomath.Sqrt(x), gomath.Sqrt(1-x))
	return earthRadiusMeters * c
}

// DistanceMeters returns the 3-D distance between a and b: the haversine
// surface distance combined with the altitude delta. This is used only for
// routing heuristics and coarse candidate selection, never for the
// safety-critical intersection predicates, which are the spatial store's
// job.
func DistanceMeters(a, b PointZ) float64 {
	surface := haversineMeters(a.Coordinate, b.Coordinate)
	dz := float64(a.AltitudeMeters) - float64(b.AltitudeMeters)
	return gomath.Sqrt(surface*surface + dz*dz)
}

// LineLengthMeters sums the 3-D distance between consecutive points of a
// line.
func LineLengthMeters(l Line) float64 {
	var total float64
	for i := 1; i < len(l); i++ {
		total += DistanceMeters(l[i-1], l[i])
	}
	return total
}

// Centroid2D returns the unweighted centroid of a polygon's vertices. The
// polygon is assumed closed (first == last); the repeated vertex is
// excluded from the average so it isn't double-counted.
func Centroid2D(p Polygon) Coordinate {
	n := len(p)
	if n > 1 && p[0] == p[n-1] {
		n--
	}
	var lat, lon float64
	for i := 0; i < n; i++ {
		lat += p[i].Latitude
		lon += p[i].Longitude
	}
	return Coordinate{Latitude: lat / float64(n), Longitude: lon / float64(n)}
}

// Segment is one output of Segmentise: a sub-line with its interpolated
// time window.
type Segment struct {
	Line   Line
	TStart time.Time
	TEnd   time.Time
}

// Segmentise subdivides line into ordered segments of length at most
// maxLenMeters. Time is interpolated linearly by distance along the whole
// line: the implied velocity is total length / (tEnd - tStart), so a
// segment's duration is its length divided by that velocity. The velocity
// is derived from the submitted window, not from any live aircraft
// velocity record, so a mis-specified window distorts segment times
// (see DESIGN.md).
//
// Returns segments with contiguous, non-decreasing times; the first
// segment starts at tStart and the last ends at tEnd (up to rounding).
func Segmentise(line Line, tStart, tEnd time.Time, maxLenMeters float64) []Segment {
	if len(line) < 2 || maxLenMeters <= 0 {
		return nil
	}

	total := LineLengthMeters(line)
	duration := tEnd.Sub(tStart)
	var velocity float64 // metres per nanosecond
	if total > 0 {
		velocity = total / float64(duration)
	}

	var segments []Segment
	t := tStart
	cur := Line{line[0]}
	curLen := 0.0

	flush := func(endPoint PointZ, segLen float64) {
		var segEnd time.Time
		if velocity > 0 {
			segEnd = t.Add(time.Duration(segLen / velocity))
		} else {
			segEnd = t
		}
		segments = append(segments, Segment{Line: append(Line{}, cur...), TStart: t, TEnd: segEnd})
		t = segEnd
		cur = Line{endPoint}
		curLen = 0
	}

	for i := 1; i < len(line); i++ {
		a, b := line[i-1], line[i]
		from := a
		remaining := DistanceMeters(a, b)
		if remaining == 0 {
			continue
		}

		for curLen+remaining > maxLenMeters {
			frac := (maxLenMeters - curLen) / remaining
			mid := lerpPointZ(from, b, frac)
			midDist := DistanceMeters(from, mid)
			cur = append(cur, mid)
			flush(mid, curLen+midDist)
			remaining -= midDist
			from = mid
		}

		curLen += remaining
		cur = append(cur, b)
	}

	if len(cur) > 1 {
		flush(cur[len(cur)-1], curLen)
	}

	if len(segments) == 0 {
		segments = append(segments, Segment{Line: line, TStart: tStart, TEnd: tEnd})
	} else {
		// Correct any rounding drift so the last segment ends exactly at tEnd.
		segments[len(segments)-1].TEnd = tEnd
	}
	return segments
}

func lerpPointZ(a, b PointZ, frac float64) PointZ {
	return PointZ{
		Coordinate: Coordinate{
			Latitude:  a.Latitude + (b.Latitude-a.Latitude)*frac,
			Longitude: a.Longitude + (b.Longitude-a.Longitude)*frac,
		},
		AltitudeMeters: a.AltitudeMeters + float32(frac)*(b.AltitudeMeters-a.AltitudeMeters),
	}
}
