// path/path.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package path

import (
	"log/slog"
	"slices"

	"github.com/mmp/vtolai/math"
	"github.com/mmp/vtolai/vehicle"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// A trailing bypass waypoint this close to the target is dropped;
	// the pilot switches back to engaging or following from there.
	TrailingWaypointDrop = 200 // m
	// A bypass is abandoned once its target has moved this far (squared)
	// from where it was when the bypass was planned.
	BypassDriftLimitSquared = 500000 // m^2
)

// Path is the pilot's route: waypoints toward the destination or, when
// the direct route to a target or leader is blocked, toward that entity
// around the obstacle (a bypass).
type Path struct {
	Waypoints    []vehicle.Geo
	Intermediate vehicle.Geo

	Destination    vehicle.Geo
	HasDestination bool

	// LeftPath is set whenever the pilot does something other than
	// follow the waypoints, so the route is re-planned from wherever the
	// vehicle ends up.
	LeftPath bool

	BypassTargetID  string
	BypassTargetPos vehicle.Geo
}

func (p *Path) Reset() {
	*p = Path{Destination: p.Destination, HasDestination: p.HasDestination, LeftPath: true}
}

func (p *Path) SetDestination(g vehicle.Geo) {
	p.Destination = g
	p.HasDestination = true
	p.LeftPath = true
}

func (p *Path) ClearDestination() {
	p.HasDestination = false
	p.Waypoints = nil
}

// Active reports whether there are waypoints to follow.
func (p *Path) Active() bool {
	return len(p.Waypoints) > 0
}

func (p *Path) HasBypass() bool {
	return p.BypassTargetID != ""
}

func (p *Path) ClearBypass() {
	p.BypassTargetID = ""
	p.BypassTargetPos = vehicle.Geo{}
}

// Pathfind replaces the waypoints with a route from the given position
// to the destination. It returns false if there's no destination or no
// route was found, in which case there are no waypoints.
func (p *Path) Pathfind(pf vehicle.Pathfinder, g vehicle.Geodesy, from r3.Vec, tr vehicle.Traversal) bool {
	if !p.HasDestination {
		p.Waypoints = nil
		return false
	}
	p.Waypoints = slices.Clone(pf.FindPath(g.GeoOf(from), p.Destination, tr))
	if len(p.Waypoints) == 0 {
		p.Waypoints = nil
		return false
	}
	p.Intermediate = p.Waypoints[0]
	return true
}

// CheckBypass checks whether the straight line to the target is
// traversable and, if not, plans a bypass route to it. It returns true
// if a bypass was established.
func (p *Path) CheckBypass(pf vehicle.Pathfinder, g vehicle.Geodesy, from r3.Vec, target *vehicle.Contact,
	tr vehicle.Traversal) bool {
	start, end := g.GeoOf(from), g.GeoOf(target.Position)
	if pf.IsDirectPathTraversable(start, end, tr) {
		return false
	}

	p.BypassTargetID = target.ID
	p.BypassTargetPos = end
	p.Waypoints = slices.Clone(pf.FindPath(start, end, tr))
	if n := len(p.Waypoints); n > 0 && vehicle.GeoDistance(g, p.Waypoints[n-1], end) < TrailingWaypointDrop {
		p.Waypoints = p.Waypoints[:n-1]
	}

	if len(p.Waypoints) == 0 {
		p.Waypoints = nil
		p.ClearBypass()
		return false
	}
	p.Intermediate = p.Waypoints[0]
	return true
}

// BypassStillValid reports whether the current bypass is toward one of
// the given contacts (the current target and leader) and that contact
// hasn't moved too far since the bypass was planned.
func (p *Path) BypassStillValid(g vehicle.Geodesy, contacts ...*vehicle.Contact) bool {
	for _, c := range contacts {
		if c != nil && c.ID == p.BypassTargetID {
			return math.DistanceSquared(g.WorldOf(p.BypassTargetPos), c.Position) <= BypassDriftLimitSquared
		}
	}
	return false
}

// Cycle advances to the next waypoint. When the last bypass waypoint is
// reached the bypass is done and the route is re-planned.
func (p *Path) Cycle() {
	if len(p.Waypoints) > 1 {
		p.Waypoints = p.Waypoints[1:]
		p.Intermediate = p.Waypoints[0]
	} else if p.HasBypass() {
		p.Waypoints = nil
		p.ClearBypass()
		p.LeftPath = true
	}
}

func (p *Path) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("waypoints", len(p.Waypoints)),
		slog.Any("intermediate", p.Intermediate),
		slog.Bool("left_path", p.LeftPath),
	}
	if p.HasBypass() {
		attrs = append(attrs, slog.String("bypass_target", p.BypassTargetID))
	}
	return slog.GroupValue(attrs...)
}
