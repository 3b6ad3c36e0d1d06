// deconflict.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package deconflict implements the airspace deconfliction engine:
// given a candidate 3-D path and its active window, reject
// it if it intersects any zone or any other flight's filed path.
package deconflict

import (
	"context"
	"fmt"
	"time"

	"github.com/aerogrid/svc-gis/internal/geo"
	"github.com/aerogrid/svc-gis/internal/store"
)

// Verdict is the outcome of check_clearance.
type Verdict int

const (
	Ok Verdict = iota
	ZoneIntersection
	FlightPlanIntersection
)

func (v Verdict) String() string {
	switch v {
	case Ok:
		return "Ok"
	case ZoneIntersection:
		return "ZoneIntersection"
	case FlightPlanIntersection:
		return "FlightPlanIntersection"
	default:
		return "Unknown"
	}
}

// minSeparationMeters is both the flight coarse-test allowable distance and
// the bisection recursion termination guard. A future revision may vary it
// per aircraft class.
const minSeparationMeters = 10.0

// Engine runs check_clearance against a Store.
type Engine struct {
	store store.Store
}

func New(s store.Store) *Engine {
	return &Engine{store: s}
}

// CheckClearance runs the zone test, then the flight
// coarse test, then flight fine test (recursive bisection). originID and
// targetID are excluded from the zone test since a path necessarily starts
// and ends inside those vertiports' zones.
func (e *Engine) CheckClearance(ctx context.Context, line geo.Line, totalDistance float64, tStart, tEnd time.Time, originID, targetID string) (Verdict, error) {
	zoneHit, err := e.store.ZoneIntersectionQuery(ctx, line, tStart, tEnd, originID, targetID)
	if err != nil {
		return Ok, fmt.Errorf("deconflict: zone intersection query: %w", err)
	}
	if zoneHit {
		return ZoneIntersection, nil
	}

	candidates, err := e.store.FlightIntersectionCandidates(ctx, line, minSeparationMeters, tStart, tEnd)
	if err != nil {
		return Ok, fmt.Errorf("deconflict: flight intersection candidates: %w", err)
	}
	if len(candidates) == 0 {
		return Ok, nil
	}

	for _, candidate := range candidates {
		conflict, err := e.bisect(ctx, line, tStart, tEnd, totalDistance, candidate.Path, candidate.TimeStart, candidate.TimeEnd)
		if err != nil {
			return Ok, err
		}
		if conflict {
			return FlightPlanIntersection, nil
		}
	}
	return Ok, nil
}

// pair is one entry of the explicit bisection work stack: two sub-lines
// (with their own time windows) still being compared at currentSegLen.
type pair struct {
	a, b          geo.Line
	aStart, aEnd  time.Time
	bStart, bEnd  time.Time
	currentSegLen float64
}

// bisect is the flight fine test: an explicit work
// stack of (a, b, current_seg_len) triples. A triple below the separation
// floor is a confirmed conflict; segmentising both sides and re-pairing
// only temporally-overlapping, still-too-close sub-segments prunes the
// search until the stack drains clear.
func (e *Engine) bisect(ctx context.Context, lineA geo.Line, aStart, aEnd time.Time, totalDistance float64, lineB geo.Line, bStart, bEnd time.Time) (bool, error) {
	seedLen := totalDistance
	if otherLen := geo.LineLengthMeters(lineB); otherLen > seedLen {
		seedLen = otherLen
	}
	stack := []pair{{
		a: lineA, aStart: aStart, aEnd: aEnd,
		b: lineB, bStart: bStart, bEnd: bEnd,
		currentSegLen: seedLen / 2,
	}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.currentSegLen < minSeparationMeters {
			return true, nil
		}

		nextLen := p.currentSegLen / 2
		segsA := geo.Segmentise(p.a, p.aStart, p.aEnd, p.currentSegLen)
		segsB := geo.Segmentise(p.b, p.bStart, p.bEnd, p.currentSegLen)

		for _, sa := range segsA {
			for _, sb := range segsB {
				if !timeWindowsOverlap(sa.TStart, sa.TEnd, sb.TStart, sb.TEnd) {
					continue
				}
				conflict, err := e.store.SegmentDistancePair(ctx, sa.Line, sb.Line, minSeparationMeters)
				if err != nil {
					return false, fmt.Errorf("deconflict: segment distance pair: %w", err)
				}
				if conflict {
					stack = append(stack, pair{
						a: sa.Line, aStart: sa.TStart, aEnd: sa.TEnd,
						b: sb.Line, bStart: sb.TStart, bEnd: sb.TEnd,
						currentSegLen: nextLen,
					})
				}
			}
		}
	}
	return false, nil
}

func timeWindowsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
