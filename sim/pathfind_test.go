// sim/pathfind_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"testing"

	"github.com/mmp/vtolai/math"
	"github.com/mmp/vtolai/vehicle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

var landTraversal = vehicle.Traversal{Surface: vehicle.SurfaceLand, MaxSlope: 30}

func ridgeWorld(t *testing.T) *World {
	t.Helper()
	w, err := NewWorld(129, 50)
	require.NoError(t, err)
	w.AddRidge(r3.Vec{Y: -2000}, r3.Vec{Y: 2000}, 700, 150)
	return w
}

func TestFindPathDirect(t *testing.T) {
	w, err := NewWorld(65, 50)
	require.NoError(t, err)
	pf := NewPathfinder(w, 1, nil)

	start, end := w.GeoOf(r3.Vec{X: -1000}), w.GeoOf(r3.Vec{X: 1000, Y: 500, Z: 300})
	assert.True(t, pf.IsDirectPathTraversable(start, end, landTraversal))
	assert.Equal(t, []vehicle.Geo{end}, pf.FindPath(start, end, landTraversal))

	// Off the map.
	assert.Nil(t, pf.FindPath(start, w.GeoOf(r3.Vec{X: 5000}), landTraversal))
	// Stationary vehicles don't go anywhere.
	assert.Nil(t, pf.FindPath(start, end, vehicle.Traversal{Surface: vehicle.SurfaceStationary}))
}

func TestFindPathAroundRidge(t *testing.T) {
	w := ridgeWorld(t)
	for _, stride := range []int{1, 2} {
		pf := NewPathfinder(w, stride, nil)
		from, to := r3.Vec{X: -1500}, r3.Vec{X: 1500, Z: 250}
		start, end := w.GeoOf(from), w.GeoOf(to)

		assert.False(t, pf.Traversable(300, 0, landTraversal))
		assert.False(t, pf.IsDirectPathTraversable(start, end, landTraversal))

		path := pf.FindPath(start, end, landTraversal)
		require.Greater(t, len(path), 1, "stride %d", stride)
		assert.Equal(t, end, path[len(path)-1])

		prev := from
		aroundEnd := false
		for _, g := range path {
			assert.Equal(t, 250., g.Alt)
			p := w.WorldOf(g)
			assert.True(t, pf.segmentClear(prev, p, landTraversal), "%v -> %v", prev, p)
			aroundEnd = aroundEnd || math.Abs(p.Y) > 2000
			prev = p
		}
		assert.True(t, aroundEnd)

		// Steeper slopes are fine for some.
		steep := vehicle.Traversal{Surface: vehicle.SurfaceLand, MaxSlope: 90}
		assert.True(t, pf.IsDirectPathTraversable(start, end, steep))
	}
}

func TestObstacles(t *testing.T) {
	w, err := NewWorld(65, 50)
	require.NoError(t, err)
	w.Obstacles = []Obstacle{{X: 500, Y: 0, Radius: 100, Mass: 50}}
	pf := NewPathfinder(w, 1, nil)

	start, end := w.GeoOf(r3.Vec{X: -500}), w.GeoOf(r3.Vec{X: 500})
	assert.Nil(t, pf.FindPath(start, end, landTraversal))

	heavy := landTraversal
	heavy.MinMass = 100
	assert.Equal(t, []vehicle.Geo{end}, pf.FindPath(start, end, heavy))

	// Passing by on the far side.
	beyond := w.GeoOf(r3.Vec{X: 1000})
	path := pf.FindPath(start, beyond, landTraversal)
	require.Greater(t, len(path), 1)
	for _, g := range path {
		p := w.WorldOf(g)
		assert.GreaterOrEqual(t, math.Distance(r3.Vec{X: p.X, Y: p.Y}, r3.Vec{X: 500}), 100.)
	}
}

func TestWaterCrossing(t *testing.T) {
	w, err := NewWorld(65, 50)
	require.NoError(t, err)
	w.Ocean = true
	w.SeaLevel = -1
	w.AddRidge(r3.Vec{Y: -4000}, r3.Vec{Y: 4000}, -50, 100)
	pf := NewPathfinder(w, 1, nil)

	start, end := w.GeoOf(r3.Vec{X: -1000}), w.GeoOf(r3.Vec{X: 1000})
	assert.False(t, pf.IsDirectPathTraversable(start, end, landTraversal))
	assert.Nil(t, pf.FindPath(start, end, landTraversal))

	amphibious := vehicle.Traversal{Surface: vehicle.SurfaceAmphibious, MaxSlope: 30}
	assert.True(t, pf.IsDirectPathTraversable(start, end, amphibious))

	boat := vehicle.Traversal{Surface: vehicle.SurfaceWater}
	assert.True(t, pf.IsDirectPathTraversable(w.GeoOf(r3.Vec{Y: -1000}), w.GeoOf(r3.Vec{Y: 1000}), boat))
	assert.False(t, pf.IsDirectPathTraversable(start, end, boat))
}

func TestLatticeSearch(t *testing.T) {
	w, err := NewWorld(65, 50)
	require.NoError(t, err)
	pf := NewPathfinder(w, 1, nil)
	center := node{32, 32}
	assert.Equal(t, r3.Vec{}, pf.position(center))

	// Already there: an empty route, not a failure.
	route := pf.search(center, center, landTraversal)
	assert.NotNil(t, route)
	assert.Empty(t, route)

	route = pf.search(node{30, 32}, node{34, 32}, landTraversal)
	assert.Equal(t, []node{{31, 32}, {32, 32}, {33, 32}, {34, 32}}, route)

	n, spacing := pf.lattice()
	l := &lattice{pf: pf, n: n, spacing: spacing, start: center, tr: landTraversal}
	assert.Equal(t, node{3, 7}, l.node(l.id(node{3, 7})))
	wt, ok := l.Weight(l.id(center), l.id(node{33, 33}))
	assert.True(t, ok)
	assert.InDelta(t, 50*math.Sqrt(2), wt, 1e-9)
	_, ok = l.Weight(l.id(center), l.id(node{34, 32}))
	assert.False(t, ok)
	assert.Nil(t, l.Edge(l.id(center), l.id(node{34, 32})))
	assert.NotNil(t, l.Edge(l.id(center), l.id(node{31, 32})))
	assert.Equal(t, 8, l.From(l.id(center)).Len())

	// A blocked goal is never reached.
	w.Obstacles = []Obstacle{{X: 0, Y: 0, Radius: 60, Mass: 50}}
	assert.Nil(t, pf.search(node{28, 32}, center, landTraversal))
}
