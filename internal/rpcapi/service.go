// service.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package rpcapi

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aerogrid/svc-gis/internal/deconflict"
	"github.com/aerogrid/svc-gis/internal/geo"
	"github.com/aerogrid/svc-gis/internal/health"
	"github.com/aerogrid/svc-gis/internal/model"
	"github.com/aerogrid/svc-gis/internal/routing"
	"github.com/aerogrid/svc-gis/internal/store"
	"github.com/aerogrid/svc-gis/internal/validate"
)

// Service implements the RPC surface against a Store, a
// deconfliction Engine, a routing Engine, and a health Checker.
type Service struct {
	store      store.Store
	deconflict *deconflict.Engine
	routing    *routing.Engine
	health     *health.Checker
}

func New(s store.Store, d *deconflict.Engine, r *routing.Engine, h *health.Checker) *Service {
	return &Service{store: s, deconflict: d, routing: r, health: h}
}

func (s *Service) IsReady(ctx context.Context, _ *struct{}) (*IsReadyResponse, error) {
	return &IsReadyResponse{Ready: s.health.IsReady(ctx)}, nil
}

func (s *Service) UpdateVertiports(ctx context.Context, req *[]VertiportMsg) (*UpdatedResponse, error) {
	for _, vm := range *req {
		v, err := vertiportFromMsg(vm)
		if err != nil {
			return nil, invalidArgument(err)
		}
		if _, err := s.store.UpsertVertiport(ctx, v); err != nil {
			return nil, internalError("update_vertiports", err)
		}
	}
	return &UpdatedResponse{Updated: true}, nil
}

func (s *Service) UpdateWaypoints(ctx context.Context, req *[]WaypointMsg) (*UpdatedResponse, error) {
	for _, wm := range *req {
		if err := validate.CheckIdentifier(wm.ID); err != nil {
			return nil, invalidArgument(err)
		}
		coord := geo.Coordinate{Latitude: wm.Latitude, Longitude: wm.Longitude}
		if err := validate.ValidatePointZ(geo.PointZ{Coordinate: coord}); err != nil {
			return nil, invalidArgument(err)
		}
		w := model.Waypoint{ID: wm.ID, Position: coord}
		if err := s.store.UpsertWaypoint(ctx, w); err != nil {
			return nil, internalError("update_waypoints", err)
		}
	}
	return &UpdatedResponse{Updated: true}, nil
}

func (s *Service) UpdateZones(ctx context.Context, req *[]ZoneMsg) (*UpdatedResponse, error) {
	for _, zm := range *req {
		z, err := zoneFromMsg(zm)
		if err != nil {
			return nil, invalidArgument(err)
		}
		if err := s.store.UpsertZone(ctx, z); err != nil {
			return nil, internalError("update_zones", err)
		}
	}
	return &UpdatedResponse{Updated: true}, nil
}

func (s *Service) UpdateFlightPath(ctx context.Context, req *FlightPathMsg) (*UpdatedResponse, error) {
	f, err := flightPathFromMsg(*req)
	if err != nil {
		return nil, invalidArgument(err)
	}
	if err := s.store.UpsertFlightPath(ctx, f); err != nil {
		return nil, internalError("update_flight_path", err)
	}
	return &UpdatedResponse{Updated: true}, nil
}

func (s *Service) BestPath(ctx context.Context, req *BestPathRequest) (*BestPathResponse, error) {
	var originType routing.EndpointType
	switch req.OriginType {
	case "Vertiport":
		originType = routing.Vertiport
	case "Aircraft":
		originType = routing.Aircraft
	default:
		return nil, invalidArgument(routing.ErrInvalidStartNode)
	}

	limit := int(req.Limit)
	if limit == 0 {
		limit = 1
	}

	paths, err := s.routing.BestPath(ctx, routing.Request{
		OriginID:   req.OriginID,
		OriginType: originType,
		TargetID:   req.TargetID,
		TargetType: routing.Vertiport,
		TimeStart:  req.TimeStart,
		TimeEnd:    req.TimeEnd,
		Limit:      limit,
	})
	if err != nil {
		if isRoutingValidationErr(err) {
			return nil, invalidArgument(err)
		}
		return nil, internalError("best_path", err)
	}

	resp := &BestPathResponse{}
	for _, p := range paths {
		resp.Paths = append(resp.Paths, PathMsg{Nodes: lineToMsg(p.Nodes), Distance: p.Distance})
	}
	return resp, nil
}

func (s *Service) CheckIntersection(ctx context.Context, req *CheckIntersectionRequest) (*IntersectsResponse, error) {
	line := msgToLine(req.Nodes)
	totalDistance := geo.LineLengthMeters(line)
	verdict, err := s.deconflict.CheckClearance(ctx, line, totalDistance, req.TimeStart, req.TimeEnd, req.OriginID, req.TargetID)
	if err != nil {
		return nil, internalError("check_intersection", err)
	}
	return &IntersectsResponse{Intersects: verdict != deconflict.Ok}, nil
}

func (s *Service) GetFlights(ctx context.Context, req *GetFlightsRequest) (*GetFlightsResponse, error) {
	env := model.Envelope{MinLat: req.MinLat, MinLon: req.MinLon, MaxLat: req.MaxLat, MaxLon: req.MaxLon}
	flights, err := s.store.FlightsInWindow(ctx, env, req.TimeStart, req.TimeEnd)
	if err != nil {
		return nil, internalError("get_flights", err)
	}
	resp := &GetFlightsResponse{}
	for _, f := range flights {
		resp.Flights = append(resp.Flights, FlightMsg{
			AircraftID:   f.ID,
			AircraftType: f.AircraftType,
			Position:     pointToMsg(f.Position),
			GroundSpeed:  f.GroundSpeed,
			VerticalRate: f.VerticalRate,
			Track:        f.Track,
			Status:       f.Status.String(),
		})
	}
	return resp, nil
}

func isRoutingValidationErr(err error) bool {
	return errors.Is(err, routing.ErrInvalidStartNode) ||
		errors.Is(err, routing.ErrInvalidEndNode) ||
		errors.Is(err, routing.ErrInvalidLimit) ||
		errors.Is(err, routing.ErrInvalidTimeWindow) ||
		errors.Is(err, routing.ErrInvalidEndTime)
}

func invalidArgument(err error) error {
	return status.Error(codes.InvalidArgument, err.Error())
}

func internalError(op string, err error) error {
	return status.Error(codes.Internal, fmt.Sprintf("%s: %v", op, err))
}
