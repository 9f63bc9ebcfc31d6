// vehicle/vehicle_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vehicle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestPredictPosition(t *testing.T) {
	p := PredictPosition(r3.Vec{X: 10}, r3.Vec{X: 5, Z: 1}, r3.Vec{Z: -2}, 2)
	assert.InDelta(t, 20, p.X, 1e-12)
	assert.InDelta(t, 0, p.Y, 1e-12)
	assert.InDelta(t, 2-4, p.Z, 1e-12)

	c := Contact{Position: r3.Vec{Y: 100}, Velocity: r3.Vec{Y: -10}}
	assert.Equal(t, r3.Vec{Y: 50}, c.PredictPosition(5))
}

func TestStateKinematics(t *testing.T) {
	s := State{
		Velocity: r3.Vec{X: 30, Y: 40, Z: -5},
		Forward:  r3.Vec{X: 1},
		Top:      r3.Vec{Z: 1},
		Up:       r3.Vec{Z: 1},
		Gravity:  9.81,
	}
	assert.InDelta(t, 50, s.HorizontalSpeed(), 1e-9)
	assert.InDelta(t, -5, s.VerticalSpeed(), 1e-9)
	assert.Equal(t, r3.Vec{Z: -1}, s.Belly())

	// No lift available: the turn radius uses 1g.
	assert.InDelta(t, (50*50+25)/9.81, s.TurnRadius(), 1e-9)

	// Lift is capped at 10g.
	s.LiftPerDynamicPressure, s.DynamicPressure = 100, 10
	assert.InDelta(t, 98.1, s.MaxLiftAcceleration(), 1e-9)

	var hover State
	hover.Forward = r3.Vec{Y: 1}
	assert.Equal(t, r3.Vec{Y: 1}, hover.VelocityDirection())
}

func TestSurfaceType(t *testing.T) {
	for _, tc := range []struct {
		s        string
		expected SurfaceType
	}{
		{"Land", SurfaceLand},
		{"water", SurfaceWater},
		{"Amphibious", SurfaceAmphibious},
		{"stationary", SurfaceStationary},
	} {
		st, err := ParseSurfaceType(tc.s)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, st)
	}

	_, err := ParseSurfaceType("lava")
	assert.ErrorIs(t, err, ErrUnknownSurface)

	assert.True(t, SurfaceAmphibious.Allows(SurfaceWater))
	assert.False(t, SurfaceLand.Allows(SurfaceWater))
	assert.False(t, SurfaceStationary.Allows(SurfaceLand))
}

func TestWeaponKinds(t *testing.T) {
	for k, expected := range map[WeaponKind]bool{
		WeaponNone:    false,
		WeaponGun:     true,
		WeaponRocket:  true,
		WeaponLaser:   true,
		WeaponMissile: false,
	} {
		assert.Equal(t, expected, k.HasFiringSolution(), k.String())
	}
}
