// postgres.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package store

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aerogrid/svc-gis/internal/geo"
	"github.com/aerogrid/svc-gis/internal/model"
)

// earthCenteredSRID projects geometry to an Earth-centred, Earth-fixed
// frame so 3-D distance/intersection predicates work in metres.
const earthCenteredSRID = 4978

// waypointCacheTTL bounds how long a get_waypoints_near result is reused.
// A* calls this once per candidate-set resolution; re-querying within a
// couple of seconds during one routing request is wasted round-trips.
const waypointCacheTTL = 2 * time.Second

// PostgresStore implements Store against a PostGIS-equipped Postgres
// database via pgx. All multi-row writes run inside an explicit
// transaction and roll back on any failure.
type PostgresStore struct {
	pool  *pgxpool.Pool
	cache *lru.LRU[string, []model.Waypoint]
}

// New wraps an already-constructed pgx pool. The caller owns the pool's
// lifetime; it is constructed once at startup and never replaced.
func New(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool:  pool,
		cache: lru.NewLRU[string, []model.Waypoint](256, nil, waypointCacheTTL),
	}
}

var _ Store = (*PostgresStore)(nil)

// Ping verifies the pool can reach Postgres, used by the health check.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func wrapDBErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("store: %s: %w", op, err)
}

// UpsertVertiport derives the extruded Port zone, the routing centroid,
// and (if present) optional ingress/egress corridors, and persists all of
// it transactionally. The zone write fires the create_zone_waypoints
// trigger (migrations/0001_init.sql) inside the same transaction, so the
// derived Port zone's waypoint skirt can never diverge from it.
func (s *PostgresStore) UpsertVertiport(ctx context.Context, v model.Vertiport) (model.Vertiport, error) {
	const ground2PortLiftMeters = 200.0

	v.Centroid = geo.Centroid2D(polygonFromPolygonZ(v.Footprint))
	v.PortZoneID = v.ID

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Vertiport{}, wrapDBErr("upsert_vertiport begin", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO vertiports (
			"identifier", "label", "geom", "altitude_meters", "network_time", "centroid",
			"ingress_geom", "egress_geom"
		)
		VALUES (
			$1, $2, ST_GeomFromGeoJSON($3), $4, $5, ST_GeomFromGeoJSON($6),
			ST_GeomFromGeoJSON($7), ST_GeomFromGeoJSON($8)
		)
		ON CONFLICT ("identifier") DO UPDATE SET
			"label" = EXCLUDED."label",
			"geom" = EXCLUDED."geom",
			"altitude_meters" = EXCLUDED."altitude_meters",
			"network_time" = EXCLUDED."network_time",
			"centroid" = EXCLUDED."centroid",
			"ingress_geom" = EXCLUDED."ingress_geom",
			"egress_geom" = EXCLUDED."egress_geom"
	`, v.ID, v.Label, polygonZToGeoJSON(v.Footprint), v.GroundAltitude, v.NetworkTime,
		pointToGeoJSON(v.Centroid), optionalLineGeoJSON(v.Ingress), optionalLineGeoJSON(v.Egress))
	if err != nil {
		return model.Vertiport{}, wrapDBErr("upsert_vertiport", err)
	}

	portZone := model.Zone{
		ID:          v.PortZoneID,
		Type:        model.ZonePort,
		Footprint:   polygonFromPolygonZ(v.Footprint),
		AltitudeMin: v.GroundAltitude,
		AltitudeMax: v.GroundAltitude + ground2PortLiftMeters,
	}
	if err := s.upsertZoneTx(ctx, tx, portZone); err != nil {
		return model.Vertiport{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Vertiport{}, wrapDBErr("upsert_vertiport commit", err)
	}
	return v, nil
}

func polygonFromPolygonZ(pz geo.PolygonZ) geo.Polygon {
	out := make(geo.Polygon, len(pz.Vertices))
	for i, v := range pz.Vertices {
		out[i] = v.Coordinate
	}
	return out
}

func (s *PostgresStore) UpsertWaypoint(ctx context.Context, w model.Waypoint) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO waypoints ("identifier", "geog")
		VALUES ($1, ST_GeomFromGeoJSON($2)::GEOGRAPHY)
		ON CONFLICT ("identifier") DO UPDATE SET "geog" = EXCLUDED."geog"
	`, w.ID, pointToGeoJSON(w.Position))
	return wrapDBErr("upsert_waypoint", err)
}

// UpsertZone writes a zone transactionally; the create_zone_waypoints
// trigger maintains its waypoint skirt as part of the same write.
func (s *PostgresStore) UpsertZone(ctx context.Context, z model.Zone) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrapDBErr("upsert_zone begin", err)
	}
	defer tx.Rollback(ctx)

	if err := s.upsertZoneTx(ctx, tx, z); err != nil {
		return err
	}
	return wrapDBErr("upsert_zone commit", tx.Commit(ctx))
}

func (s *PostgresStore) upsertZoneTx(ctx context.Context, tx pgx.Tx, z model.Zone) error {
	ringJSON := polygonZToGeoJSON(geo.PolygonZ{Vertices: liftPolygon(z.Footprint, z.AltitudeMin), SRID: geo.WGS84SRID})
	_, err := tx.Exec(ctx, `
		INSERT INTO zones (
			"identifier", "zone_type", "geom", "altitude_meters_min", "altitude_meters_max",
			"time_start", "time_end", "last_updated"
		) VALUES (
			$1, $2::zone_type, ST_Extrude(ST_GeomFromGeoJSON($3), 0, 0, $5::FLOAT - $4::FLOAT), $4, $5, $6, $7, NOW()
		)
		ON CONFLICT ("identifier") DO UPDATE SET
			"zone_type" = EXCLUDED."zone_type",
			"geom" = EXCLUDED."geom",
			"altitude_meters_min" = EXCLUDED."altitude_meters_min",
			"altitude_meters_max" = EXCLUDED."altitude_meters_max",
			"time_start" = EXCLUDED."time_start",
			"time_end" = EXCLUDED."time_end",
			"last_updated" = NOW()
	`, z.ID, z.Type.String(), ringJSON, z.AltitudeMin, z.AltitudeMax, z.TimeStart, z.TimeEnd)
	return wrapDBErr("upsert_zone", err)
}

func liftPolygon(p geo.Polygon, altitude float32) []geo.PointZ {
	out := make([]geo.PointZ, len(p))
	for i, c := range p {
		out[i] = geo.PointZ{Coordinate: c, AltitudeMeters: altitude}
	}
	return out
}

func (s *PostgresStore) UpsertFlightPath(ctx context.Context, f model.FlightPath) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO flights (
			"flight_identifier", "aircraft_identifier", "aircraft_type", "simulated",
			"geom", "envelope_min_lat", "envelope_min_lon", "envelope_max_lat", "envelope_max_lon",
			"time_start", "time_end"
		) VALUES ($1, $2, $3, $4, ST_GeomFromGeoJSON($5), $6, $7, $8, $9, $10, $11)
		ON CONFLICT ("flight_identifier") DO UPDATE SET
			"aircraft_identifier" = EXCLUDED."aircraft_identifier",
			"aircraft_type" = EXCLUDED."aircraft_type",
			"simulated" = EXCLUDED."simulated",
			"geom" = EXCLUDED."geom",
			"envelope_min_lat" = EXCLUDED."envelope_min_lat",
			"envelope_min_lon" = EXCLUDED."envelope_min_lon",
			"envelope_max_lat" = EXCLUDED."envelope_max_lat",
			"envelope_max_lon" = EXCLUDED."envelope_max_lon",
			"time_start" = EXCLUDED."time_start",
			"time_end" = EXCLUDED."time_end"
	`, f.FlightID, f.AircraftID, f.AircraftType, f.Simulated, lineToGeoJSON(f.Path),
		f.Envelope.MinLat, f.Envelope.MinLon, f.Envelope.MaxLat, f.Envelope.MaxLon, f.TimeStart, f.TimeEnd)
	return wrapDBErr("upsert_flight_path", err)
}

func (s *PostgresStore) GetVertiport(ctx context.Context, id string) (model.Vertiport, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT "label", "altitude_meters", "network_time", ST_AsGeoJSON("centroid"),
			ST_AsGeoJSON("ingress_geom"), ST_AsGeoJSON("egress_geom")
		FROM vertiports WHERE "identifier" = $1
	`, id)
	var label string
	var alt float32
	var nt time.Time
	var centroidJSON []byte
	var ingressJSON, egressJSON *string
	if err := row.Scan(&label, &alt, &nt, &centroidJSON, &ingressJSON, &egressJSON); err != nil {
		if err == pgx.ErrNoRows {
			return model.Vertiport{}, ErrNotFound
		}
		return model.Vertiport{}, wrapDBErr("get_vertiport", err)
	}
	p, err := parsePointZGeoJSON(centroidJSON)
	if err != nil {
		return model.Vertiport{}, wrapDBErr("get_vertiport centroid decode", err)
	}
	ingress, err := parseOptionalLineGeoJSON(ingressJSON)
	if err != nil {
		return model.Vertiport{}, wrapDBErr("get_vertiport ingress decode", err)
	}
	egress, err := parseOptionalLineGeoJSON(egressJSON)
	if err != nil {
		return model.Vertiport{}, wrapDBErr("get_vertiport egress decode", err)
	}
	return model.Vertiport{
		ID: id, Label: label, GroundAltitude: alt, NetworkTime: nt,
		Centroid: p.Coordinate, PortZoneID: id, Ingress: ingress, Egress: egress,
	}, nil
}

func (s *PostgresStore) GetVertiportCentroid3D(ctx context.Context, id string) (geo.PointZ, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT ST_AsGeoJSON(ST_SetSRID(ST_MakePoint(ST_X("centroid"), ST_Y("centroid"), "altitude_meters"), $2))
		FROM vertiports WHERE "identifier" = $1
	`, id, geo.WGS84SRID)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if err == pgx.ErrNoRows {
			return geo.PointZ{}, ErrNotFound
		}
		return geo.PointZ{}, wrapDBErr("get_vertiport_centroid_3d", err)
	}
	return parsePointZGeoJSON(raw)
}

// aircraftColumns is the shared column list scanAircraftState expects,
// identifier first. Most aircraft columns are nullable: a row appears as
// soon as the first telemetry kind for that identifier lands, and the
// other kinds fill in later; fields update independently.
const aircraftColumns = `"identifier", "session_identifier", "aircraft_type", ST_AsGeoJSON("geom"),
		"ground_speed", "vertical_rate", "track", "status"::TEXT,
		"id_updated_at", "position_updated_at", "velocity_updated_at"`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAircraftState(row rowScanner) (model.AircraftState, error) {
	var a model.AircraftState
	var sessionID, aircraftType, geomJSON *string
	var groundSpeed, verticalRate, track *float32
	var statusLabel string
	var idAt, posAt, velAt *time.Time
	if err := row.Scan(&a.ID, &sessionID, &aircraftType, &geomJSON, &groundSpeed, &verticalRate,
		&track, &statusLabel, &idAt, &posAt, &velAt); err != nil {
		return model.AircraftState{}, err
	}
	if sessionID != nil {
		a.SessionID = *sessionID
	}
	if aircraftType != nil {
		a.AircraftType = *aircraftType
	}
	if geomJSON != nil {
		p, err := parsePointZGeoJSON([]byte(*geomJSON))
		if err != nil {
			return model.AircraftState{}, err
		}
		a.Position = p
	}
	if groundSpeed != nil {
		a.GroundSpeed = *groundSpeed
	}
	if verticalRate != nil {
		a.VerticalRate = *verticalRate
	}
	if track != nil {
		a.Track = *track
	}
	a.Status = model.OperationalStatusFromString(statusLabel)
	if idAt != nil {
		a.IDUpdatedAt = *idAt
	}
	if posAt != nil {
		a.PositionUpdatedAt = *posAt
	}
	if velAt != nil {
		a.VelocityUpdatedAt = *velAt
	}
	return a, nil
}

func (s *PostgresStore) GetAircraftState(ctx context.Context, id string) (model.AircraftState, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+aircraftColumns+`
		FROM aircraft WHERE "identifier" = $1
	`, id)
	a, err := scanAircraftState(row)
	if err == pgx.ErrNoRows {
		return model.AircraftState{}, ErrNotFound
	}
	if err != nil {
		return model.AircraftState{}, wrapDBErr("get_aircraft_state", err)
	}
	return a, nil
}

func (s *PostgresStore) GetAircraftPoint3D(ctx context.Context, id string) (geo.PointZ, error) {
	a, err := s.GetAircraftState(ctx, id)
	if err != nil {
		return geo.PointZ{}, err
	}
	return a.Position, nil
}

func (s *PostgresStore) GetWaypointsNear(ctx context.Context, line geo.Line, rangeMeters float64) ([]model.Waypoint, error) {
	key := waypointCacheKey(line, rangeMeters)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT "identifier", ST_AsGeoJSON("geog"::GEOMETRY)
		FROM waypoints
		WHERE ST_DWithin("geog", ST_GeomFromGeoJSON($1)::GEOGRAPHY, $2)
	`, lineToGeoJSON(line), rangeMeters)
	if err != nil {
		return nil, wrapDBErr("get_waypoints_near", err)
	}
	defer rows.Close()

	var out []model.Waypoint
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, wrapDBErr("get_waypoints_near scan", err)
		}
		p, err := parsePointZGeoJSON(raw)
		if err != nil {
			return nil, wrapDBErr("get_waypoints_near decode", err)
		}
		out = append(out, model.Waypoint{ID: id, Position: p.Coordinate})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr("get_waypoints_near rows", err)
	}
	s.cache.Add(key, out)
	return out, nil
}

func waypointCacheKey(line geo.Line, rangeMeters float64) string {
	e := model.EnvelopeFromLine(line)
	return fmt.Sprintf("%.4f,%.4f,%.4f,%.4f@%.0f", e.MinLat, e.MinLon, e.MaxLat, e.MaxLon, rangeMeters)
}

func (s *PostgresStore) ZoneIntersectionQuery(ctx context.Context, line geo.Line, tStart, tEnd time.Time, originID, targetID string) (bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT 1 FROM zones
		WHERE "identifier" <> $4 AND "identifier" <> $5
		AND ST_3DIntersects("geom", ST_GeomFromGeoJSON($1))
		AND ("time_start" IS NULL OR "time_start" <= $3)
		AND ("time_end" IS NULL OR "time_end" >= $2)
		LIMIT 1
	`, lineToGeoJSON(line), tStart, tEnd, originID, targetID)
	var one int
	err := row.Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, wrapDBErr("zone_intersection_query", err)
	}
	return true, nil
}

func (s *PostgresStore) FlightIntersectionCandidates(ctx context.Context, line geo.Line, allowDistM float64, tStart, tEnd time.Time) ([]model.FlightPath, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT "flight_identifier", "aircraft_identifier", "aircraft_type", ST_AsGeoJSON("geom"),
			"time_start", "time_end"
		FROM flights
		WHERE "simulated" = FALSE
		AND "time_start" <= $4 AND "time_end" >= $3
		AND (
			ST_3DDWithin(
				ST_Transform("geom", $5::INT),
				ST_Transform(ST_GeomFromGeoJSON($1), $5::INT),
				$2
			) OR ST_3DDistance(
				ST_Transform("geom", $5::INT),
				ST_Transform(ST_GeomFromGeoJSON($1), $5::INT)
			) IS NULL
		)
	`, lineToGeoJSON(line), allowDistM, tStart, tEnd, earthCenteredSRID)
	if err != nil {
		return nil, wrapDBErr("flight_intersection_candidates", err)
	}
	defer rows.Close()

	var out []model.FlightPath
	for rows.Next() {
		var f model.FlightPath
		var geomJSON []byte
		if err := rows.Scan(&f.FlightID, &f.AircraftID, &f.AircraftType, &geomJSON, &f.TimeStart, &f.TimeEnd); err != nil {
			return nil, wrapDBErr("flight_intersection_candidates scan", err)
		}
		line, err := parseLineGeoJSON(geomJSON)
		if err != nil {
			return nil, wrapDBErr("flight_intersection_candidates decode", err)
		}
		f.Path = line
		out = append(out, f)
	}
	return out, wrapDBErr("flight_intersection_candidates rows", rows.Err())
}

func (s *PostgresStore) SegmentDistancePair(ctx context.Context, a, b geo.Line, allowDistM float64) (bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT ("distance_to_path" < $3 OR "distance_to_path" IS NULL) AS "conflict"
		FROM ST_3DDistance(
			ST_Transform(ST_GeomFromGeoJSON($1), $4::INT),
			ST_Transform(ST_GeomFromGeoJSON($2), $4::INT)
		) AS "distance_to_path"
	`, lineToGeoJSON(a), lineToGeoJSON(b), allowDistM, earthCenteredSRID)
	var conflict bool
	if err := row.Scan(&conflict); err != nil {
		return false, wrapDBErr("segment_distance_pair", err)
	}
	return conflict, nil
}

func (s *PostgresStore) FlightsInWindow(ctx context.Context, env model.Envelope, tStart, tEnd time.Time) ([]model.AircraftState, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT a."identifier", a."session_identifier", a."aircraft_type", ST_AsGeoJSON(a."geom"),
			a."ground_speed", a."vertical_rate", a."track", a."status"::TEXT,
			a."id_updated_at", a."position_updated_at", a."velocity_updated_at"
		FROM aircraft a
		LEFT JOIN flights f ON f."flight_identifier" = a."session_identifier"
		WHERE (ST_Y(a."geom") BETWEEN $1 AND $3 AND ST_X(a."geom") BETWEEN $2 AND $4
			AND a."position_updated_at" BETWEEN $5 AND $6)
		OR (f."time_start" <= $6 AND f."time_end" >= $5
			AND f."envelope_min_lat" <= $3 AND f."envelope_max_lat" >= $1
			AND f."envelope_min_lon" <= $4 AND f."envelope_max_lon" >= $2)
	`, env.MinLat, env.MinLon, env.MaxLat, env.MaxLon, tStart, tEnd)
	if err != nil {
		return nil, wrapDBErr("flights_in_window", err)
	}
	defer rows.Close()

	var out []model.AircraftState
	for rows.Next() {
		a, err := scanAircraftState(rows)
		if err != nil {
			return nil, wrapDBErr("flights_in_window scan", err)
		}
		out = append(out, a)
	}
	return out, wrapDBErr("flights_in_window rows", rows.Err())
}

func (s *PostgresStore) UpsertAircraftID(ctx context.Context, batch []AircraftIDUpdate) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrapDBErr("upsert_aircraft_id begin", err)
	}
	defer tx.Rollback(ctx)
	for _, u := range batch {
		_, err := tx.Exec(ctx, `
			INSERT INTO aircraft ("identifier", "session_identifier", "aircraft_type", "id_updated_at")
			VALUES ($1, $2, $3, $4)
			ON CONFLICT ("identifier") DO UPDATE SET
				"session_identifier" = EXCLUDED."session_identifier",
				"aircraft_type" = EXCLUDED."aircraft_type",
				"id_updated_at" = EXCLUDED."id_updated_at"
		`, u.ID, u.SessionID, u.AircraftType, u.NetworkTime)
		if err != nil {
			return wrapDBErr("upsert_aircraft_id", err)
		}
	}
	return wrapDBErr("upsert_aircraft_id commit", tx.Commit(ctx))
}

func (s *PostgresStore) UpsertAircraftPosition(ctx context.Context, batch []AircraftPositionUpdate) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrapDBErr("upsert_aircraft_position begin", err)
	}
	defer tx.Rollback(ctx)
	for _, u := range batch {
		_, err := tx.Exec(ctx, `
			INSERT INTO aircraft ("identifier", "geom", "position_updated_at")
			VALUES ($1, ST_GeomFromGeoJSON($2), $3)
			ON CONFLICT ("identifier") DO UPDATE SET
				"geom" = EXCLUDED."geom",
				"position_updated_at" = EXCLUDED."position_updated_at"
		`, u.ID, pointZToGeoJSON(u.Position), u.NetworkTime)
		if err != nil {
			return wrapDBErr("upsert_aircraft_position", err)
		}
	}
	return wrapDBErr("upsert_aircraft_position commit", tx.Commit(ctx))
}

func (s *PostgresStore) UpsertAircraftVelocity(ctx context.Context, batch []AircraftVelocityUpdate) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrapDBErr("upsert_aircraft_velocity begin", err)
	}
	defer tx.Rollback(ctx)
	for _, u := range batch {
		_, err := tx.Exec(ctx, `
			INSERT INTO aircraft ("identifier", "ground_speed", "vertical_rate", "track", "velocity_updated_at")
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT ("identifier") DO UPDATE SET
				"ground_speed" = EXCLUDED."ground_speed",
				"vertical_rate" = EXCLUDED."vertical_rate",
				"track" = EXCLUDED."track",
				"velocity_updated_at" = EXCLUDED."velocity_updated_at"
		`, u.ID, u.GroundSpeed, u.VerticalRate, u.Track, u.NetworkTime)
		if err != nil {
			return wrapDBErr("upsert_aircraft_velocity", err)
		}
	}
	return wrapDBErr("upsert_aircraft_velocity commit", tx.Commit(ctx))
}
