// sim/world_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	gomath "math"
	"testing"

	"github.com/mmp/vtolai/vehicle"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func flatWorld(t *testing.T) *World {
	t.Helper()
	w, err := NewWorld(65, 10)
	require.NoError(t, err)
	return w
}

func TestNewWorld(t *testing.T) {
	_, err := NewWorld(1, 10)
	assert.ErrorIs(t, err, ErrInvalidWorld)
	_, err = NewWorld(10, 0)
	assert.ErrorIs(t, err, ErrInvalidWorld)

	w := flatWorld(t)
	assert.Equal(t, 320., w.Extent())
	assert.Len(t, w.Heights, 65*65)
}

func TestRaycastFlat(t *testing.T) {
	w := flatWorld(t)

	hit, ok := w.Raycast(r3.Vec{Z: 100}, r3.Vec{Z: -1}, 200)
	require.True(t, ok)
	assert.InDelta(t, 100, hit.Distance, 1e-3)
	assert.InDelta(t, 0, hit.Point.Z, 1e-9)
	assert.Equal(t, r3.Vec{Z: 1}, hit.Normal)

	hit, ok = w.Raycast(r3.Vec{Z: 100}, r3.Vec{X: 1, Z: -1}, 200)
	require.True(t, ok)
	assert.InDelta(t, 100*gomath.Sqrt2, hit.Distance, 1e-3)
	assert.InDelta(t, 100, hit.Point.X, 1e-3)

	_, ok = w.Raycast(r3.Vec{Z: 100}, r3.Vec{Z: -1}, 50)
	assert.False(t, ok)
	_, ok = w.Raycast(r3.Vec{Z: 10}, r3.Vec{X: 1}, 1000)
	assert.False(t, ok)
	_, ok = w.Raycast(r3.Vec{Z: 10}, r3.Vec{}, 1000)
	assert.False(t, ok)

	hit, ok = w.Raycast(r3.Vec{Z: -5}, r3.Vec{X: 1}, 100)
	require.True(t, ok)
	assert.Equal(t, 0., hit.Distance)
}

func TestSphereCastFlat(t *testing.T) {
	w := flatWorld(t)

	hit, ok := w.SphereCast(r3.Vec{Z: 100}, r3.Vec{Z: -1}, 10, 200)
	require.True(t, ok)
	assert.InDelta(t, 90, hit.Distance, 1e-3)
	assert.InDelta(t, 0, hit.Point.Z, 1e-3)

	// Passing over with room to spare.
	_, ok = w.SphereCast(r3.Vec{Z: 20}, r3.Vec{X: 1}, 10, 200)
	assert.False(t, ok)
	// Grazing.
	_, ok = w.SphereCast(r3.Vec{Z: 8}, r3.Vec{X: 1}, 10, 200)
	assert.True(t, ok)
}

func TestHill(t *testing.T) {
	w := flatWorld(t)
	w.AddHill(0, 0, 100, 50)

	assert.InDelta(t, 100, w.Height(0, 0), 1e-9)
	assertVecNear(t, r3.Vec{Z: 1}, w.Normal(0, 0), 1e-9)
	assert.Greater(t, w.Slope(50, 0), 30.)
	assert.Less(t, w.Slope(300, 300), 1.)

	// The normal on the west side points west.
	assert.Less(t, w.Normal(-50, 0).X, 0.)

	// Fly into the side of it.
	hit, ok := w.Raycast(r3.Vec{X: -300, Z: 50}, r3.Vec{X: 1}, 1000)
	require.True(t, ok)
	assert.InDelta(t, 300-50*gomath.Sqrt(2*gomath.Ln2), hit.Distance, 1)
	assert.Less(t, hit.Normal.X, 0.)
}

func TestRidge(t *testing.T) {
	w := flatWorld(t)
	w.AddRidge(r3.Vec{Y: -100}, r3.Vec{Y: 100}, 50, 20)

	assert.InDelta(t, 50, w.Height(0, 0), 1e-9)
	assert.InDelta(t, 50, w.Height(0, 100), 1e-9)
	assert.InDelta(t, 50*gomath.Exp(-0.5), w.Height(20, 0), 1e-9)
	assert.Less(t, w.Height(0, 200), 1.)
}

func TestOcean(t *testing.T) {
	w := flatWorld(t)
	w.Ocean = true
	w.SeaLevel = 5
	w.AddHill(100, 0, 50, 20)

	assert.True(t, w.HasOcean())
	assert.Equal(t, vehicle.SurfaceWater, w.Surface(0, 0))
	assert.Equal(t, vehicle.SurfaceLand, w.Surface(100, 0))
	assert.Equal(t, 5., w.GroundLevel(0, 0))
	assert.InDelta(t, 50, w.GroundLevel(100, 0), 1e-9)

	// The sea surface isn't solid for casts.
	hit, ok := w.Raycast(r3.Vec{Z: 100}, r3.Vec{Z: -1}, 200)
	require.True(t, ok)
	assert.InDelta(t, 100, hit.Distance, 1e-3)
}

func TestGeo(t *testing.T) {
	w := flatWorld(t)
	w.RefLat, w.RefLon = 47.6, -122.3

	assert.Equal(t, vehicle.Geo{Lat: 47.6, Lon: -122.3, Alt: 10}, w.GeoOf(r3.Vec{Z: 10}))

	for _, p := range []r3.Vec{{X: 1234, Y: -567, Z: 89}, {X: -5000, Y: 5000}, {}} {
		assertVecNear(t, p, w.WorldOf(w.GeoOf(p)), 1e-6)
	}

	// North is +y.
	assert.Greater(t, w.GeoOf(r3.Vec{Y: 1000}).Lat, w.RefLat)
	assert.InDelta(t, 1000, vehicle.GeoDistance(w, w.GeoOf(r3.Vec{}), w.GeoOf(r3.Vec{X: 600, Y: 800})), 1e-6)
}

func assertVecNear(t *testing.T, expected, actual r3.Vec, tol float64) {
	t.Helper()
	assert.InDelta(t, expected.X, actual.X, tol, "X: expected %v got %v", expected, actual)
	assert.InDelta(t, expected.Y, actual.Y, tol, "Y: expected %v got %v", expected, actual)
	assert.InDelta(t, expected.Z, actual.Z, tol, "Z: expected %v got %v", expected, actual)
}
