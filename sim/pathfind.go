// sim/pathfind.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"
	gomath "math"

	"github.com/mmp/vtolai/log"
	"github.com/mmp/vtolai/math"
	"github.com/mmp/vtolai/vehicle"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	gpath "gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/spatial/r3"
)

// MaxExpansions bounds the work done by a single FindPath call.
const MaxExpansions = 200000

// Pathfinder routes ground-following paths over a World's terrain with
// A* on a lattice of grid points.
type Pathfinder struct {
	World *World
	// Stride is the spacing of the search lattice, in grid cells.
	Stride int

	lg *log.Logger
}

func NewPathfinder(w *World, stride int, lg *log.Logger) *Pathfinder {
	return &Pathfinder{World: w, Stride: max(1, stride), lg: lg}
}

// Traversable reports whether a vehicle with the given traversal
// parameters can be at (x, y).
func (pf *Pathfinder) Traversable(x, y float64, tr vehicle.Traversal) bool {
	w := pf.World
	if gomath.Abs(x) > w.Extent() || gomath.Abs(y) > w.Extent() {
		return false
	}
	surf := w.Surface(x, y)
	if !tr.Surface.Allows(surf) {
		return false
	}
	if surf == vehicle.SurfaceLand && tr.MaxSlope > 0 && w.Slope(x, y) > tr.MaxSlope {
		return false
	}
	for _, o := range w.Obstacles {
		// Obstacles lighter than MinMass are pushed aside.
		if o.Mass >= tr.MinMass && math.Sqr(x-o.X)+math.Sqr(y-o.Y) < o.Radius*o.Radius {
			return false
		}
	}
	return true
}

// IsDirectPathTraversable samples the straight line between the two
// positions at half-cell spacing.
func (pf *Pathfinder) IsDirectPathTraversable(start, end vehicle.Geo, tr vehicle.Traversal) bool {
	return pf.segmentClear(pf.World.WorldOf(start), pf.World.WorldOf(end), tr)
}

func (pf *Pathfinder) segmentClear(a, b r3.Vec, tr vehicle.Traversal) bool {
	d := math.Distance(r3.Vec{X: a.X, Y: a.Y}, r3.Vec{X: b.X, Y: b.Y})
	n := max(1, int(gomath.Ceil(d/(pf.World.CellSize/2))))
	for i := range n + 1 {
		p := math.LerpVec(float64(i)/float64(n), a, b)
		if !pf.Traversable(p.X, p.Y, tr) {
			return false
		}
	}
	return true
}

type node struct {
	x, y int
}

func (pf *Pathfinder) lattice() (n int, spacing float64) {
	return (pf.World.Size-1)/pf.Stride + 1, pf.World.CellSize * float64(pf.Stride)
}

func (pf *Pathfinder) position(nd node) r3.Vec {
	n, spacing := pf.lattice()
	half := float64(n-1) / 2
	return r3.Vec{X: (float64(nd.x) - half) * spacing, Y: (float64(nd.y) - half) * spacing}
}

func (pf *Pathfinder) nearest(p r3.Vec) node {
	n, spacing := pf.lattice()
	half := float64(n-1) / 2
	return node{
		x: math.Clamp(int(gomath.Round(p.X/spacing+half)), 0, n-1),
		y: math.Clamp(int(gomath.Round(p.Y/spacing+half)), 0, n-1),
	}
}

// FindPath returns waypoints from start to end that stay on
// traversable terrain, with collinear runs collapsed. The final waypoint
// is end itself. Every waypoint takes end's altitude. It returns nil if
// end isn't reachable.
func (pf *Pathfinder) FindPath(start, end vehicle.Geo, tr vehicle.Traversal) []vehicle.Geo {
	from, to := pf.World.WorldOf(start), pf.World.WorldOf(end)
	if !pf.Traversable(to.X, to.Y, tr) {
		pf.lg.Debug("destination not traversable", slog.Any("end", end))
		return nil
	}
	if pf.segmentClear(from, to, tr) {
		return []vehicle.Geo{end}
	}

	nodes := pf.search(pf.nearest(from), pf.nearest(to), tr)
	if nodes == nil {
		pf.lg.Debug("no route", slog.Any("start", start), slog.Any("end", end))
		return nil
	}

	pts := make([]r3.Vec, 0, len(nodes)+2)
	pts = append(pts, from)
	for _, nd := range nodes {
		pts = append(pts, pf.position(nd))
	}
	pts = append(pts, to)
	pts = pf.smooth(pts, tr)

	path := make([]vehicle.Geo, 0, len(pts)-1)
	for _, p := range pts[1 : len(pts)-1] {
		p.Z = end.Alt
		path = append(path, pf.World.GeoOf(p))
	}
	return append(path, end)
}

// lattice is the search grid seen as an implicit graph: node IDs are
// row-major grid indices and each node connects to its open 8-neighbors.
type lattice struct {
	pf         *Pathfinder
	n          int
	spacing    float64
	start      node
	tr         vehicle.Traversal
	expansions int
}

func (l *lattice) id(nd node) int64 {
	return int64(nd.y*l.n + nd.x)
}

func (l *lattice) node(id int64) node {
	return node{x: int(id % int64(l.n)), y: int(id / int64(l.n))}
}

// From returns the open neighbors of the node that can be reached along
// a clear segment. The start may be blocked so vehicles can find their
// way out of blocked terrain. Once MaxExpansions nodes have been
// expanded, nothing more is reachable.
func (l *lattice) From(id int64) graph.Nodes {
	l.expansions++
	if l.expansions > MaxExpansions {
		return graph.Empty
	}

	cur := l.node(id)
	var nodes []graph.Node
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			next := node{cur.x + dx, cur.y + dy}
			if (dx == 0 && dy == 0) || next.x < 0 || next.y < 0 || next.x >= l.n || next.y >= l.n {
				continue
			}
			p := l.pf.position(next)
			if !l.pf.Traversable(p.X, p.Y, l.tr) {
				continue
			}
			if cur != l.start && !l.pf.segmentClear(l.pf.position(cur), p, l.tr) {
				continue
			}
			nodes = append(nodes, simple.Node(l.id(next)))
		}
	}
	return iterator.NewOrderedNodes(nodes)
}

func (l *lattice) Edge(uid, vid int64) graph.Edge {
	w, ok := l.Weight(uid, vid)
	if !ok {
		return nil
	}
	return simple.WeightedEdge{F: simple.Node(uid), T: simple.Node(vid), W: w}
}

// Weight returns the length of the edge between two adjacent nodes.
func (l *lattice) Weight(uid, vid int64) (float64, bool) {
	u, v := l.node(uid), l.node(vid)
	dx, dy := v.x-u.x, v.y-u.y
	if dx == 0 && dy == 0 {
		return 0, true
	}
	if math.Abs(dx) > 1 || math.Abs(dy) > 1 {
		return gomath.Inf(1), false
	}
	return l.spacing * gomath.Hypot(float64(dx), float64(dy)), true
}

// distance is the straight-line heuristic for A*.
func (l *lattice) distance(x, y graph.Node) float64 {
	a, b := l.node(x.ID()), l.node(y.ID())
	return l.spacing * gomath.Hypot(float64(a.x-b.x), float64(a.y-b.y))
}

// search runs A* from a to b over the lattice and returns the nodes after
// a, ending with b. It returns nil if b can't be reached.
func (pf *Pathfinder) search(a, b node, tr vehicle.Traversal) []node {
	n, spacing := pf.lattice()
	l := &lattice{pf: pf, n: n, spacing: spacing, start: a, tr: tr}

	shortest, _ := gpath.AStar(simple.Node(l.id(a)), simple.Node(l.id(b)), l, l.distance)
	nodes, _ := shortest.To(l.id(b))
	if nodes == nil {
		return nil
	}
	route := make([]node, 0, len(nodes)-1)
	for _, nd := range nodes[1:] {
		route = append(route, l.node(nd.ID()))
	}
	return route
}

// smooth drops points that can be skipped with a clear straight line.
func (pf *Pathfinder) smooth(pts []r3.Vec, tr vehicle.Traversal) []r3.Vec {
	out := []r3.Vec{pts[0]}
	for i := 0; i < len(pts)-1; {
		j := len(pts) - 1
		for j > i+1 && !pf.segmentClear(pts[i], pts[j], tr) {
			j--
		}
		out = append(out, pts[j])
		i = j
	}
	return out
}
