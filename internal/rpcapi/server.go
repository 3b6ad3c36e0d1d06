// server.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package rpcapi

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// jsonCodec marshals the hand-shaped request/response structs in this
// package as JSON rather than wire-format protobuf, since there is no
// protoc step generating proto.Message implementations for them.
type jsonCodec struct{}

func (jsonCodec) Name() string                       { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// ServiceName is the single gRPC service name clients dial.
const ServiceName = "svcgis.SpatialRouting"

// Register wires svc's eight operations onto grpcServer.
func Register(grpcServer *grpc.Server, svc *Service) {
	grpcServer.RegisterService(&serviceDesc, svc)
}

// handler adapts one Service method into the (any, error) shape
// grpc.MethodDesc.Handler expects, decoding the request with dec and
// passing ctx straight through.
func handler[Req, Resp any](fn func(*Service, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		svc := srv.(*Service)
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(svc, ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: svc}
		return interceptor(ctx, req, info, func(ctx context.Context, req any) (any, error) {
			return fn(svc, ctx, req.(*Req))
		})
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "IsReady", Handler: handler[struct{}, IsReadyResponse]((*Service).IsReady)},
		{MethodName: "UpdateVertiports", Handler: handler[[]VertiportMsg, UpdatedResponse]((*Service).UpdateVertiports)},
		{MethodName: "UpdateWaypoints", Handler: handler[[]WaypointMsg, UpdatedResponse]((*Service).UpdateWaypoints)},
		{MethodName: "UpdateZones", Handler: handler[[]ZoneMsg, UpdatedResponse]((*Service).UpdateZones)},
		{MethodName: "UpdateFlightPath", Handler: handler[FlightPathMsg, UpdatedResponse]((*Service).UpdateFlightPath)},
		{MethodName: "BestPath", Handler: handler[BestPathRequest, BestPathResponse]((*Service).BestPath)},
		{MethodName: "CheckIntersection", Handler: handler[CheckIntersectionRequest, IntersectsResponse]((*Service).CheckIntersection)},
		{MethodName: "GetFlights", Handler: handler[GetFlightsRequest, GetFlightsResponse]((*Service).GetFlights)},
	},
	Metadata: "svc-gis/rpcapi.proto",
}
