// vehicle/state.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vehicle

import (
	"log/slog"

	"github.com/mmp/vtolai/math"

	"gonum.org/v1/gonum/spatial/r3"
)

// State is the physical state of the piloted vehicle, sampled once per
// physics tick. The pilot never modifies it; its only outputs are the
// Actuators it returns.
type State struct {
	Position     r3.Vec
	Velocity     r3.Vec
	Acceleration r3.Vec

	// Orthonormal body axes: Forward is the nose, Top points out of the
	// canopy and Right out of the right side.
	Forward, Top, Right r3.Vec

	// AngularVelocity is in body axes: X pitch, Y roll, Z yaw. Positive
	// rates are nose-down, roll-left, and yaw-left, i.e., opposite to the
	// sign of the corresponding control command.
	AngularVelocity r3.Vec

	// Up is the local up direction (opposite gravity).
	Up r3.Vec

	// RadarAltitude is the height above whatever is directly below;
	// Altitude is the height above the flat reference (sea) surface.
	RadarAltitude float64
	Altitude      float64

	Landed   bool
	Splashed bool
	Mass     float64 // tonnes
	Gravity  float64 // m/s^2

	// The maximum lift acceleration is LiftPerDynamicPressure times
	// DynamicPressure (kPa).
	LiftPerDynamicPressure float64
	DynamicPressure        float64
}

func (s *State) LandedOrSplashed() bool {
	return s.Landed || s.Splashed
}

func (s *State) Speed() float64 {
	return r3.Norm(s.Velocity)
}

// HorizontalVelocity returns the velocity with the vertical component
// removed.
func (s *State) HorizontalVelocity() r3.Vec {
	return math.ProjectOnPlane(s.Velocity, s.Up)
}

func (s *State) HorizontalSpeed() float64 {
	return r3.Norm(s.HorizontalVelocity())
}

func (s *State) VerticalSpeed() float64 {
	return r3.Dot(s.Velocity, s.Up)
}

// VelocityDirection returns the unit velocity vector; a stationary
// vehicle reports its nose direction.
func (s *State) VelocityDirection() r3.Vec {
	if v := math.Normalize(s.Velocity); v != (r3.Vec{}) {
		return v
	}
	return s.Forward
}

// Belly is the downward body axis.
func (s *State) Belly() r3.Vec {
	return r3.Scale(-1, s.Top)
}

// PredictPosition extrapolates the vehicle's position dt seconds ahead.
func (s *State) PredictPosition(dt float64) r3.Vec {
	return PredictPosition(s.Position, s.Velocity, s.Acceleration, dt)
}

// MaxLiftAcceleration returns the available lift acceleration, clamped
// to [g, 10g].
func (s *State) MaxLiftAcceleration() float64 {
	g := s.Gravity
	if g <= 0 {
		g = StandardGravity
	}
	return math.Clamp(s.LiftPerDynamicPressure*s.DynamicPressure, g, 10*g)
}

// TurnRadius estimates the radius of a maximum-lift turn at the current
// speed.
func (s *State) TurnRadius() float64 {
	return math.Sqr(s.Speed()) / s.MaxLiftAcceleration()
}

func (s *State) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("position", s.Position),
		slog.Any("velocity", s.Velocity),
		slog.Float64("radar_altitude", s.RadarAltitude),
		slog.Float64("altitude", s.Altitude),
		slog.Bool("landed", s.LandedOrSplashed()))
}

const StandardGravity = 9.81

// PredictPosition extrapolates a position dt seconds ahead assuming
// constant acceleration.
func PredictPosition(pos, vel, accel r3.Vec, dt float64) r3.Vec {
	return r3.Add(pos, r3.Add(r3.Scale(dt, vel), r3.Scale(0.5*dt*dt, accel)))
}

// Contact is another entity the pilot knows about: traffic, a target, or
// a formation leader.
type Contact struct {
	ID           string
	Position     r3.Vec
	Velocity     r3.Vec
	Acceleration r3.Vec
	// Forward is the contact's nose direction.
	Forward r3.Vec

	Mass      float64
	Landed    bool
	Destroyed bool
	// Projectile is set for missiles and other ordnance.
	Projectile bool
	// LeaderID is the ID of the contact's formation leader, if it has one.
	LeaderID string
}

func (c *Contact) PredictPosition(dt float64) r3.Vec {
	return PredictPosition(c.Position, c.Velocity, c.Acceleration, dt)
}

func (c *Contact) HorizontalSpeed(up r3.Vec) float64 {
	return r3.Norm(math.ProjectOnPlane(c.Velocity, up))
}

func (c *Contact) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", c.ID),
		slog.Any("position", c.Position),
		slog.Any("velocity", c.Velocity))
}
