// geojson.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aerogrid/svc-gis/internal/geo"
)

// This file converts between our Go geometry types and the GeoJSON text
// PostGIS's ST_GeomFromGeoJSON/ST_AsGeoJSON pair understands, so the
// driver layer never has to speak WKB by hand.

type geojsonGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// lineToGeoJSON, polygonZToGeoJSON, pointToGeoJSON, and pointZToGeoJSON all
// emit plain GeoJSON text for ST_GeomFromGeoJSON, which always resolves the
// result to SRID 4326 (geo.WGS84SRID, the only SRID this store ever uses).
// There is no EWKT "SRID=...;" prefix to add; ST_GeomFromGeoJSON would
// reject one since it parses pure JSON.
func lineToGeoJSON(l geo.Line) string {
	coords := make([][3]float64, len(l))
	for i, p := range l {
		coords[i] = [3]float64{p.Longitude, p.Latitude, float64(p.AltitudeMeters)}
	}
	b, _ := json.Marshal(coords)
	return mustGeoJSON("LineString", b)
}

func polygonZToGeoJSON(p geo.PolygonZ) string {
	coords := make([][3]float64, len(p.Vertices))
	for i, v := range p.Vertices {
		coords[i] = [3]float64{v.Longitude, v.Latitude, float64(v.AltitudeMeters)}
	}
	ring, _ := json.Marshal([][][3]float64{coords})
	return mustGeoJSON("Polygon", ring)
}

func pointToGeoJSON(p geo.Coordinate) string {
	b, _ := json.Marshal([2]float64{p.Longitude, p.Latitude})
	return mustGeoJSON("Point", b)
}

func pointZToGeoJSON(p geo.PointZ) string {
	b, _ := json.Marshal([3]float64{p.Longitude, p.Latitude, float64(p.AltitudeMeters)})
	return mustGeoJSON("Point", b)
}

// optionalLineGeoJSON is lineToGeoJSON for a vertiport's optional
// ingress/egress corridor: nil (SQL NULL via ST_GeomFromGeoJSON) when the
// corridor isn't stored, rather than an empty LineString.
func optionalLineGeoJSON(l geo.Line) *string {
	if len(l) == 0 {
		return nil
	}
	s := lineToGeoJSON(l)
	return &s
}

func mustGeoJSON(kind string, coords []byte) string {
	var sb strings.Builder
	sb.WriteByte('{')
	sb.WriteString(`"type":"` + kind + `","coordinates":`)
	sb.Write(coords)
	sb.WriteByte('}')
	return sb.String()
}

// parseLineGeoJSON decodes a GeoJSON LineString into a geo.Line.
func parseLineGeoJSON(raw []byte) (geo.Line, error) {
	var g geojsonGeometry
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	var coords [][]float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, err
	}
	line := make(geo.Line, len(coords))
	for i, c := range coords {
		if len(c) < 2 {
			return nil, fmt.Errorf("store: malformed line geojson")
		}
		p := geo.PointZ{Coordinate: geo.Coordinate{Longitude: c[0], Latitude: c[1]}}
		if len(c) >= 3 {
			p.AltitudeMeters = float32(c[2])
		}
		line[i] = p
	}
	return line, nil
}

// parseOptionalLineGeoJSON is parseLineGeoJSON for a nullable column:
// ST_AsGeoJSON(NULL) scans as a nil *string, which decodes to a nil Line
// rather than an error.
func parseOptionalLineGeoJSON(raw *string) (geo.Line, error) {
	if raw == nil {
		return nil, nil
	}
	return parseLineGeoJSON([]byte(*raw))
}

// parsePointZGeoJSON decodes a GeoJSON Point (as returned by
// ST_AsGeoJSON(geom, 9)) into a PointZ. Altitude defaults to 0 if the
// geometry carries no Z ordinate.
func parsePointZGeoJSON(raw []byte) (geo.PointZ, error) {
	var g geojsonGeometry
	if err := json.Unmarshal(raw, &g); err != nil {
		return geo.PointZ{}, err
	}
	var c []float64
	if err := json.Unmarshal(g.Coordinates, &c); err != nil {
		return geo.PointZ{}, err
	}
	if len(c) < 2 {
		return geo.PointZ{}, fmt.Errorf("store: malformed point geojson")
	}
	p := geo.PointZ{Coordinate: geo.Coordinate{Longitude: c[0], Latitude: c[1]}}
	if len(c) >= 3 {
		p.AltitudeMeters = float32(c[2])
	}
	return p, nil
}
