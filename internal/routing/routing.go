// routing.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package routing implements the modified A* routing engine:
// candidate-path expansion over a waypoint graph exploded across
// discrete flight levels, gated per-candidate by the deconfliction engine.
package routing

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aerogrid/svc-gis/internal/deconflict"
	"github.com/aerogrid/svc-gis/internal/geo"
	"github.com/aerogrid/svc-gis/internal/store"
)

// EndpointType distinguishes the two permitted endpoint kinds.
type EndpointType int

const (
	Vertiport EndpointType = iota
	Aircraft
)

var (
	ErrInvalidStartNode  = errors.New("routing: invalid start node")
	ErrInvalidEndNode    = errors.New("routing: invalid end node")
	ErrInvalidLimit      = errors.New("routing: limit must be in [1, 5]")
	ErrInvalidTimeWindow = errors.New("routing: end time precedes start time")
	ErrInvalidEndTime    = errors.New("routing: end time is in the past")
)

// Candidate flight levels, tried in this order.
var flightLevelsAGL = []float32{40, 80, 120}

const (
	waypointSearchRadiusMeters = 10_000
	maxTotalDistanceMeters     = 300_000
	maxPathNodes               = 5
	searchDeadline             = 1 * time.Second
	defaultApproachLiftMeters  = 20 // see DESIGN.md for why a fixed lift
)

// Request is a normalised best_path request.
type Request struct {
	OriginID   string
	OriginType EndpointType
	TargetID   string
	TargetType EndpointType
	TimeStart  time.Time
	TimeEnd    time.Time
	Limit      int
}

// Path is one accepted candidate: its ordered 3-D nodes and total 3-D
// distance in metres.
type Path struct {
	Nodes    geo.Line
	Distance float64
}

// Engine runs best_path over a Store and a deconfliction Engine.
type Engine struct {
	store      store.Store
	deconflict *deconflict.Engine
	now        func() time.Time
}

func New(s store.Store, d *deconflict.Engine) *Engine {
	return &Engine{store: s, deconflict: d, now: time.Now}
}

// Normalise applies the request normalisation rules, filling in
// default window bounds and rejecting malformed requests.
func Normalise(req Request, now time.Time) (Request, error) {
	if req.OriginType == Aircraft && req.TargetType == Aircraft {
		return req, ErrInvalidStartNode
	}
	if req.TargetType != Vertiport {
		return req, ErrInvalidEndNode
	}
	if req.Limit < 1 || req.Limit > 5 {
		return req, ErrInvalidLimit
	}
	if req.TimeStart.IsZero() {
		req.TimeStart = now
	}
	if req.TimeEnd.IsZero() {
		req.TimeEnd = now.Add(24 * time.Hour)
	}
	if req.TimeEnd.Before(req.TimeStart) {
		return req, ErrInvalidTimeWindow
	}
	if req.TimeEnd.Before(now) {
		return req, ErrInvalidEndTime
	}
	return req, nil
}

// candidateNode is one 3-D node available to the open set: either a
// flight-level-exploded waypoint or the synthetic target-entrance node.
type candidateNode struct {
	id       string
	point    geo.PointZ
	isTarget bool
}

// partialPath is one in-progress candidate on the open set. Paths are
// immutable on insert; expansion clones the node list, which stays cheap
// while per-path depth is capped at 5.
type partialPath struct {
	nodes     []candidateNode
	traversed float64
	toTarget  float64
	index     int // heap index
}

func (p *partialPath) heuristic() float64 { return p.traversed + p.toTarget }

func (p *partialPath) last() geo.PointZ { return p.nodes[len(p.nodes)-1].point }

type openSet []*partialPath

func (h openSet) Len() int            { return len(h) }
func (h openSet) Less(i, j int) bool  { return h[i].heuristic() < h[j].heuristic() }
func (h openSet) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *openSet) Push(x any)         { p := x.(*partialPath); p.index = len(*h); *h = append(*h, p) }
func (h *openSet) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	old[n-1] = nil
	p.index = -1
	*h = old[:n-1]
	return p
}

// BestPath searches for up to req.Limit deconflicted paths from the
// origin to the target vertiport, ordered by total 3-D distance.
func (e *Engine) BestPath(ctx context.Context, req Request) ([]Path, error) {
	req, err := Normalise(req, e.now())
	if err != nil {
		return nil, err
	}

	origin, target, err := e.resolveAnchors(ctx, req)
	if err != nil {
		return nil, err
	}

	candidates, targetEntrance, err := e.candidateNodes(ctx, origin, target, req)
	if err != nil {
		return nil, err
	}

	startNodes := origin.egressNodes()
	start := &partialPath{
		nodes:     startNodes,
		traversed: 0,
		toTarget:  geo.DistanceMeters(startNodes[len(startNodes)-1].point, targetEntrance.point),
	}

	open := &openSet{start}
	heap.Init(open)

	expansionSet := make([]candidateNode, 0, len(candidates)+1)
	expansionSet = append(expansionSet, candidates...)
	expansionSet = append(expansionSet, targetEntrance)

	var completed []Path
	deadline := e.now().Add(searchDeadline)

	for len(completed) < req.Limit && open.Len() > 0 && e.now().Before(deadline) {
		current := heap.Pop(open).(*partialPath)

		for _, p := range expansionSet {
			if containsNode(current.nodes, p.id) {
				continue
			}
			newTraversed := current.traversed + geo.DistanceMeters(current.last(), p.point)
			if newTraversed > maxTotalDistanceMeters {
				continue
			}

			if !p.isTarget {
				if len(current.nodes)+1 >= maxPathNodes {
					continue
				}
				clone := clonePath(current)
				clone.nodes = append(clone.nodes, p)
				clone.traversed = newTraversed
				clone.toTarget = geo.DistanceMeters(p.point, targetEntrance.point)
				heap.Push(open, clone)
				continue
			}

			// The ingress sequence begins at the target entrance, so
			// extending with it already places p's point on the path.
			clone := clonePath(current)
			clone.nodes = append(clone.nodes, target.ingressNodes()...)
			clone.traversed = newTraversed

			line := nodesToLine(clone.nodes)
			verdict, err := e.deconflict.CheckClearance(ctx, line, clone.traversed, req.TimeStart, req.TimeEnd, req.OriginID, req.TargetID)
			if err != nil {
				return nil, fmt.Errorf("routing: check clearance: %w", err)
			}
			switch verdict {
			case deconflict.Ok:
				completed = append(completed, Path{Nodes: line, Distance: clone.traversed})
			case deconflict.ZoneIntersection, deconflict.FlightPlanIntersection:
				// skip
			}
		}
	}

	sort.Slice(completed, func(i, j int) bool { return completed[i].Distance < completed[j].Distance })
	if len(completed) > req.Limit {
		completed = completed[:req.Limit]
	}
	return completed, nil
}

func containsNode(nodes []candidateNode, id string) bool {
	for _, n := range nodes {
		if n.id == id {
			return true
		}
	}
	return false
}

func clonePath(p *partialPath) *partialPath {
	nodes := make([]candidateNode, len(p.nodes))
	copy(nodes, p.nodes)
	return &partialPath{nodes: nodes, traversed: p.traversed, toTarget: p.toTarget}
}

func nodesToLine(nodes []candidateNode) geo.Line {
	line := make(geo.Line, len(nodes))
	for i, n := range nodes {
		line[i] = n.point
	}
	return line
}

// anchor is the resolved 3-D endpoint of a request, plus whatever
// ingress/egress sequence its vertiport (if any) carries.
type anchor struct {
	anchor  geo.PointZ
	egress  []geo.PointZ
	ingress []geo.PointZ
}

// egressNodes returns the egress sequence to seed the path with ahead of
// the origin vertiport, or a single lifted-anchor node if none is stored.
func (a anchor) egressNodes() []candidateNode {
	if len(a.egress) > 0 {
		out := make([]candidateNode, len(a.egress))
		for i, p := range a.egress {
			out[i] = candidateNode{id: fmt.Sprintf("egress-%d", i), point: p}
		}
		return out
	}
	lifted := a.anchor
	lifted.AltitudeMeters += defaultApproachLiftMeters
	return []candidateNode{{id: "egress-default", point: lifted}}
}

// ingressNodes returns the ingress sequence to append ahead of the target
// vertiport, or a single lifted-anchor node if none is stored.
func (a anchor) ingressNodes() []candidateNode {
	if len(a.ingress) > 0 {
		out := make([]candidateNode, len(a.ingress))
		for i, p := range a.ingress {
			out[i] = candidateNode{id: fmt.Sprintf("ingress-%d", i), point: p}
		}
		return out
	}
	lifted := a.anchor
	lifted.AltitudeMeters += defaultApproachLiftMeters
	return []candidateNode{{id: "ingress-default", point: lifted}}
}

func (e *Engine) resolveAnchors(ctx context.Context, req Request) (origin, target anchor, err error) {
	switch req.OriginType {
	case Vertiport:
		v, err := e.store.GetVertiport(ctx, req.OriginID)
		if err != nil {
			return anchor{}, anchor{}, fmt.Errorf("routing: resolve origin vertiport: %w", err)
		}
		origin = anchor{
			anchor: geo.PointZ{Coordinate: v.Centroid, AltitudeMeters: v.GroundAltitude},
			egress: v.Egress,
		}
	case Aircraft:
		p, err := e.store.GetAircraftPoint3D(ctx, req.OriginID)
		if err != nil {
			return anchor{}, anchor{}, fmt.Errorf("routing: resolve origin aircraft: %w", err)
		}
		origin = anchor{anchor: p}
	default:
		return anchor{}, anchor{}, ErrInvalidStartNode
	}

	v, err := e.store.GetVertiport(ctx, req.TargetID)
	if err != nil {
		return anchor{}, anchor{}, fmt.Errorf("routing: resolve target vertiport: %w", err)
	}
	target = anchor{
		anchor:  geo.PointZ{Coordinate: v.Centroid, AltitudeMeters: v.GroundAltitude},
		ingress: v.Ingress,
	}
	return origin, target, nil
}

// candidateNodes builds the flight-level-exploded waypoint candidate set
// and the synthetic target-entrance node.
func (e *Engine) candidateNodes(ctx context.Context, origin, target anchor, req Request) ([]candidateNode, candidateNode, error) {
	line := geo.Line{origin.anchor, target.anchor}
	waypoints, err := e.store.GetWaypointsNear(ctx, line, waypointSearchRadiusMeters)
	if err != nil {
		return nil, candidateNode{}, fmt.Errorf("routing: get waypoints near: %w", err)
	}

	var candidates []candidateNode
	for _, w := range waypoints {
		for _, level := range flightLevelsAGL {
			candidates = append(candidates, candidateNode{
				id:    fmt.Sprintf("%s@%g", w.ID, level),
				point: geo.PointZ{Coordinate: w.Position, AltitudeMeters: level},
			})
		}
	}

	entrance := target.ingressNodes()[0]
	entrance.isTarget = true
	entrance.id = "target-entrance"
	return candidates, entrance, nil
}
