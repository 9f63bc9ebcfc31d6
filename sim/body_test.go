// sim/body_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"testing"

	"github.com/mmp/vtolai/vehicle"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

const testDt = 0.02

func TestBodyTakeoff(t *testing.T) {
	w := flatWorld(t)
	b := NewBody(r3.Vec{Z: 50}, r3.Vec{X: 1}, DefaultBodyParams(), Gravity)
	b.Settle(w)
	assert.True(t, b.State.Landed)
	assert.Equal(t, 0., b.State.Position.Z)

	// Not enough lift to leave the ground.
	b.Step(vehicle.Actuators{Throttle: 0.3}, w, testDt)
	assert.True(t, b.State.Landed)
	assert.Equal(t, r3.Vec{}, b.State.Velocity)

	for range 100 {
		b.Step(vehicle.Actuators{Throttle: 1, Gear: vehicle.GearDown}, w, testDt)
	}
	assert.False(t, b.State.Landed)
	assert.Greater(t, b.State.Position.Z, 5.)
	assert.Greater(t, b.State.VerticalSpeed(), 0.)
	assert.Equal(t, b.State.Position.Z, b.State.RadarAltitude)
	assert.True(t, b.GearDown)

	b.Step(vehicle.Actuators{Throttle: 1, Gear: vehicle.GearUp}, w, testDt)
	assert.False(t, b.GearDown)
	b.Step(vehicle.Actuators{Throttle: 1}, w, testDt)
	assert.False(t, b.GearDown)
}

func TestBodyHover(t *testing.T) {
	w := flatWorld(t)
	b := NewBody(r3.Vec{}, r3.Vec{X: 1}, DefaultBodyParams(), Gravity)
	b.Place(r3.Vec{Z: 100}, w)

	// Half throttle exactly balances gravity.
	for range 100 {
		b.Step(vehicle.Actuators{Throttle: 0.5}, w, testDt)
	}
	assert.InDelta(t, 100, b.State.Position.Z, 1e-9)
	assert.InDelta(t, 100, b.State.RadarAltitude, 1e-9)

	// Idle throttle: down it comes.
	for range 1000 {
		b.Step(vehicle.Actuators{}, w, testDt)
	}
	assert.True(t, b.State.Landed)
	assert.Equal(t, 0., b.State.RadarAltitude)
}

func TestBodyYaw(t *testing.T) {
	w := flatWorld(t)
	b := NewBody(r3.Vec{}, r3.Vec{X: 1}, DefaultBodyParams(), Gravity)
	b.Place(r3.Vec{Z: 100}, w)

	for range 50 {
		b.Step(vehicle.Actuators{Throttle: 0.5, Yaw: 1}, w, testDt)
	}
	// Turning right from east is toward the south.
	assert.Less(t, b.State.Forward.Y, 0.)
	assert.Less(t, b.State.AngularVelocity.Z, 0.)
	assert.InDelta(t, 1, r3.Norm(b.State.Forward), 1e-9)
	assert.InDelta(t, 0, r3.Dot(b.State.Forward, b.State.Right), 1e-9)
	assert.Equal(t, b.State.Up, b.State.Top)

	for range 50 {
		b.Step(vehicle.Actuators{Throttle: 0.5, Yaw: -1}, w, testDt)
	}
	assert.Greater(t, b.State.AngularVelocity.Z, 0.)
}

func TestBodySpeed(t *testing.T) {
	w := flatWorld(t)
	b := NewBody(r3.Vec{}, r3.Vec{Y: 1}, DefaultBodyParams(), Gravity)
	b.Place(r3.Vec{Z: 100}, w)

	for range 1000 {
		b.Step(vehicle.Actuators{Throttle: 0.5, TargetSpeed: 20}, w, testDt)
	}
	assert.InDelta(t, 20, b.State.Velocity.Y, 0.01)
	assert.InDelta(t, 0, b.State.Velocity.X, 1e-9)
	assert.Greater(t, b.State.Position.Y, 300.)
	assert.Greater(t, b.State.DynamicPressure, 0.)

	// Brakes stop it faster.
	slow, braked := *b, *b
	for range 50 {
		slow.Step(vehicle.Actuators{Throttle: 0.5}, w, testDt)
		braked.Step(vehicle.Actuators{Throttle: 0.5, Brakes: true}, w, testDt)
	}
	assert.Less(t, braked.State.Speed(), slow.State.Speed())
}

func TestBodySplashdown(t *testing.T) {
	w := flatWorld(t)
	w.Ocean = true
	w.SeaLevel = 10
	b := NewBody(r3.Vec{}, r3.Vec{X: 1}, DefaultBodyParams(), Gravity)
	b.Place(r3.Vec{Z: 30}, w)
	assert.Equal(t, 20., b.State.RadarAltitude)
	assert.Equal(t, 20., b.State.Altitude)

	for range 500 {
		b.Step(vehicle.Actuators{}, w, testDt)
	}
	assert.True(t, b.State.Splashed)
	assert.False(t, b.State.Landed)
	assert.Equal(t, 10., b.State.Position.Z)
}
