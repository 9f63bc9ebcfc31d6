// sim/world.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"errors"
	"fmt"
	"log/slog"
	gomath "math"

	"github.com/mmp/vtolai/math"
	"github.com/mmp/vtolai/vehicle"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// MetersPerDegree is used for the flat-earth conversion between
	// world and geographic coordinates.
	MetersPerDegree = 111320

	// Casts march in steps of this fraction of a grid cell and then
	// refine the hit by bisection.
	castStepFraction = 0.25
	castRefinements  = 24
)

var ErrInvalidWorld = errors.New("invalid world dimensions")

// Obstacle is an object on the ground that blocks ground routes for
// vehicles that can't push through it.
type Obstacle struct {
	X, Y   float64
	Radius float64
	Mass   float64
}

// World is a heightfield terrain on a flat earth. World space has z up;
// x is east and y is north, with the origin at the center of the grid.
type World struct {
	// Heights holds Size x Size terrain heights in row-major order
	// (y-major), spaced CellSize apart.
	Heights  []float64
	Size     int
	CellSize float64

	// With Ocean set, terrain below SeaLevel is water.
	Ocean    bool
	SeaLevel float64

	Obstacles []Obstacle

	// RefLat and RefLon are the geographic coordinates of the origin.
	RefLat, RefLon float64
}

// NewWorld returns flat terrain of size x size cells.
func NewWorld(size int, cellSize float64) (*World, error) {
	if size < 2 || cellSize <= 0 {
		return nil, fmt.Errorf("%d cells of %gm: %w", size, cellSize, ErrInvalidWorld)
	}
	return &World{
		Heights:  make([]float64, size*size),
		Size:     size,
		CellSize: cellSize,
	}, nil
}

// Extent returns the half-width of the terrain in meters.
func (w *World) Extent() float64 {
	return float64(w.Size-1) * w.CellSize / 2
}

func (w *World) toGrid(x, y float64) (float64, float64) {
	half := float64(w.Size-1) / 2
	gx := math.Clamp(x/w.CellSize+half, 0, float64(w.Size-1))
	gy := math.Clamp(y/w.CellSize+half, 0, float64(w.Size-1))
	return gx, gy
}

func (w *World) at(ix, iy int) float64 {
	ix = math.Clamp(ix, 0, w.Size-1)
	iy = math.Clamp(iy, 0, w.Size-1)
	return w.Heights[iy*w.Size+ix]
}

// Height returns the bilinearly interpolated terrain height at (x, y).
// Positions off the grid take the height of the nearest edge.
func (w *World) Height(x, y float64) float64 {
	gx, gy := w.toGrid(x, y)
	ix, iy := int(gx), int(gy)
	fx, fy := gx-float64(ix), gy-float64(iy)

	h0 := math.Lerp(fx, w.at(ix, iy), w.at(ix+1, iy))
	h1 := math.Lerp(fx, w.at(ix, iy+1), w.at(ix+1, iy+1))
	return math.Lerp(fy, h0, h1)
}

// Normal returns the terrain surface normal at (x, y).
func (w *World) Normal(x, y float64) r3.Vec {
	d := w.CellSize / 2
	dx := (w.Height(x+d, y) - w.Height(x-d, y)) / (2 * d)
	dy := (w.Height(x, y+d) - w.Height(x, y-d)) / (2 * d)
	return math.Normalize(r3.Vec{X: -dx, Y: -dy, Z: 1})
}

// Slope returns the terrain slope at (x, y) in degrees.
func (w *World) Slope(x, y float64) float64 {
	return math.Angle(w.Normal(x, y), r3.Vec{Z: 1})
}

// GroundLevel returns the height of whatever is below (x, y): the
// terrain, or the sea surface if it's higher.
func (w *World) GroundLevel(x, y float64) float64 {
	h := w.Height(x, y)
	if w.Ocean {
		h = max(h, w.SeaLevel)
	}
	return h
}

// Surface returns the surface type at (x, y).
func (w *World) Surface(x, y float64) vehicle.SurfaceType {
	if w.Ocean && w.Height(x, y) < w.SeaLevel {
		return vehicle.SurfaceWater
	}
	return vehicle.SurfaceLand
}

// AddHill raises a Gaussian hill of the given peak height and radius
// (standard deviation) centered at (x, y).
func (w *World) AddHill(x, y, height, radius float64) {
	w.apply(func(px, py float64) float64 {
		d2 := math.Sqr(px-x) + math.Sqr(py-y)
		return height * gomath.Exp(-d2/(2*radius*radius))
	})
}

// AddRidge raises a ridge of the given height and half-width along the
// segment from a to b (only x and y are used).
func (w *World) AddRidge(a, b r3.Vec, height, width float64) {
	a.Z, b.Z = 0, 0
	w.apply(func(px, py float64) float64 {
		d := distanceToSegment(r3.Vec{X: px, Y: py}, a, b)
		return height * gomath.Exp(-d*d/(2*width*width))
	})
}

func (w *World) apply(f func(x, y float64) float64) {
	half := float64(w.Size-1) / 2
	for iy := range w.Size {
		for ix := range w.Size {
			x, y := (float64(ix)-half)*w.CellSize, (float64(iy)-half)*w.CellSize
			w.Heights[iy*w.Size+ix] += f(x, y)
		}
	}
}

func distanceToSegment(p, a, b r3.Vec) float64 {
	ab := r3.Sub(b, a)
	l2 := r3.Norm2(ab)
	if l2 == 0 {
		return math.Distance(p, a)
	}
	t := math.Clamp01(r3.Dot(r3.Sub(p, a), ab) / l2)
	return math.Distance(p, r3.Add(a, r3.Scale(t, ab)))
}

///////////////////////////////////////////////////////////////////////////
// vehicle.Environment

// Raycast finds the first point along the ray where it meets the
// terrain. The sea surface isn't solid for casts.
func (w *World) Raycast(origin, dir r3.Vec, maxDist float64) (vehicle.Hit, bool) {
	return w.march(origin, dir, maxDist, func(p r3.Vec) bool {
		return p.Z <= w.Height(p.X, p.Y)
	}, 0)
}

// SphereCast sweeps a sphere along the ray and reports where it first
// touches the terrain. Contact is measured against the tangent plane
// under the sphere's center.
func (w *World) SphereCast(origin, dir r3.Vec, radius, maxDist float64) (vehicle.Hit, bool) {
	return w.march(origin, dir, maxDist, func(p r3.Vec) bool {
		n := w.Normal(p.X, p.Y)
		return (p.Z-w.Height(p.X, p.Y))*n.Z <= radius
	}, radius)
}

func (w *World) march(origin, dir r3.Vec, maxDist float64, inside func(r3.Vec) bool,
	radius float64) (vehicle.Hit, bool) {
	dir = math.Normalize(dir)
	if dir == (r3.Vec{}) || maxDist <= 0 {
		return vehicle.Hit{}, false
	}

	point := func(t float64) r3.Vec { return r3.Add(origin, r3.Scale(t, dir)) }
	if inside(origin) {
		return w.hit(origin, 0, radius), true
	}

	step := w.CellSize * castStepFraction
	for t0 := 0.; t0 < maxDist; t0 += step {
		t1 := min(t0+step, maxDist)
		if !inside(point(t1)) {
			continue
		}
		lo, hi := t0, t1
		for range castRefinements {
			mid := (lo + hi) / 2
			if inside(point(mid)) {
				hi = mid
			} else {
				lo = mid
			}
		}
		return w.hit(point(hi), hi, radius), true
	}
	return vehicle.Hit{}, false
}

func (w *World) hit(center r3.Vec, t, radius float64) vehicle.Hit {
	n := w.Normal(center.X, center.Y)
	p := r3.Sub(center, r3.Scale(radius, n))
	if radius == 0 {
		p.Z = w.Height(p.X, p.Y)
	}
	return vehicle.Hit{Distance: t, Point: p, Normal: n}
}

func (w *World) HasOcean() bool        { return w.Ocean }
func (w *World) HasSolidSurface() bool { return true }

func (w *World) GeoOf(p r3.Vec) vehicle.Geo {
	lat := w.RefLat + p.Y/MetersPerDegree
	return vehicle.Geo{
		Lat: lat,
		Lon: w.RefLon + p.X/(MetersPerDegree*gomath.Cos(math.Radians(w.RefLat))),
		Alt: p.Z,
	}
}

func (w *World) WorldOf(g vehicle.Geo) r3.Vec {
	return r3.Vec{
		X: (g.Lon - w.RefLon) * MetersPerDegree * gomath.Cos(math.Radians(w.RefLat)),
		Y: (g.Lat - w.RefLat) * MetersPerDegree,
		Z: g.Alt,
	}
}

func (w *World) LogValue() slog.Value {
	lo, hi := gomath.Inf(1), gomath.Inf(-1)
	for _, h := range w.Heights {
		lo, hi = min(lo, h), max(hi, h)
	}
	return slog.GroupValue(
		slog.Int("size", w.Size),
		slog.Float64("cell_size", w.CellSize),
		slog.Float64("min_height", lo),
		slog.Float64("max_height", hi),
		slog.Bool("ocean", w.Ocean),
		slog.Int("obstacles", len(w.Obstacles)))
}
