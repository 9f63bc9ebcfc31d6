// sim/body.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"

	"github.com/mmp/vtolai/math"
	"github.com/mmp/vtolai/vehicle"

	"gonum.org/v1/gonum/spatial/r3"
)

// AirDensity is used for the dynamic pressure reported to the pilot.
const AirDensity = 1.225 // kg/m^3

// BodyParams describes the flight characteristics of a simulated hover
// vehicle.
type BodyParams struct {
	Mass float64 // tonnes

	MaxYawRate float64 // rad/s
	// YawLag is the time constant with which the yaw rate follows the
	// yaw command; RCS halves it.
	YawLag float64 // s

	// The horizontal velocity follows the commanded speed along the
	// heading with time constant SpeedLag, limited to MaxAccel (doubled
	// with the brakes on).
	SpeedLag float64 // s
	MaxAccel float64 // m/s^2

	// MaxLift is the full-throttle lift, as a multiple of gravity.
	MaxLift      float64
	VerticalDrag float64 // 1/s

	LiftPerDynamicPressure float64
}

func DefaultBodyParams() BodyParams {
	return BodyParams{
		Mass:                   10,
		MaxYawRate:             1,
		YawLag:                 0.3,
		SpeedLag:               2,
		MaxAccel:               8,
		MaxLift:                2,
		VerticalDrag:           0.5,
		LiftPerDynamicPressure: 0.05,
	}
}

// Body is the physical model of a piloted hover vehicle. The stability
// system holds the body level, so only the yaw, throttle, speed, brake,
// and gear commands affect it.
type Body struct {
	State    vehicle.State
	Params   BodyParams
	GearDown bool

	// yawRate is positive to the right.
	yawRate float64
}

// NewBody returns a level body at pos facing along heading.
func NewBody(pos, heading r3.Vec, params BodyParams, gravity float64) *Body {
	up := r3.Vec{Z: 1}
	fwd := math.Normalize(math.Horizontal(heading, up))
	if fwd == (r3.Vec{}) {
		fwd = r3.Vec{X: 1}
	}
	return &Body{
		State: vehicle.State{
			Position: pos,
			Forward:  fwd,
			Top:      up,
			Right:    r3.Cross(fwd, up),
			Up:       up,
			Mass:     params.Mass,
			Gravity:  gravity,

			LiftPerDynamicPressure: params.LiftPerDynamicPressure,
		},
		Params:   params,
		GearDown: true,
	}
}

// Step advances the body by dt under the given commands and updates the
// sensor values in its State relative to the world.
func (b *Body) Step(act vehicle.Actuators, w *World, dt float64) {
	s := &b.State
	p := &b.Params
	prevVel := s.Velocity

	switch act.Gear {
	case vehicle.GearDown:
		b.GearDown = true
	case vehicle.GearUp:
		b.GearDown = false
	}

	// Heading.
	lag := p.YawLag
	if act.RCS {
		lag /= 2
	}
	target := math.Clamp(act.Yaw, -1, 1) * p.MaxYawRate
	b.yawRate += (target - b.yawRate) * min(1, dt/lag)
	if !s.LandedOrSplashed() {
		s.Forward = math.Normalize(r3.Rotate(s.Forward, -b.yawRate*dt, s.Up))
	} else {
		b.yawRate = 0
	}
	s.Right = r3.Cross(s.Forward, s.Up)
	s.Top = s.Up
	s.AngularVelocity = r3.Vec{Z: -b.yawRate}

	// Horizontal speed.
	hv := s.HorizontalVelocity()
	desired := r3.Scale(max(0, act.TargetSpeed), s.Forward)
	dv := r3.Scale(min(1, dt/p.SpeedLag), r3.Sub(desired, hv))
	maxDv := p.MaxAccel * dt
	if act.Brakes {
		maxDv *= 2
	}
	if n := r3.Norm(dv); n > maxDv {
		dv = r3.Scale(maxDv/n, dv)
	}
	hv = r3.Add(hv, dv)

	// Vertical speed.
	vz := s.VerticalSpeed()
	lift := math.Clamp01(act.Throttle) * p.MaxLift * s.Gravity
	vz += (lift - s.Gravity - p.VerticalDrag*vz) * dt

	s.Velocity = r3.Add(hv, r3.Scale(vz, s.Up))
	s.Position = r3.Add(s.Position, r3.Scale(dt, s.Velocity))

	ground := w.GroundLevel(s.Position.X, s.Position.Y)
	s.Landed, s.Splashed = false, false
	if s.Position.Z <= ground {
		s.Position.Z = ground
		s.Velocity.Z = max(0, s.Velocity.Z)
		if lift < s.Gravity {
			s.Velocity = r3.Vec{}
			if w.Surface(s.Position.X, s.Position.Y) == vehicle.SurfaceWater {
				s.Splashed = true
			} else {
				s.Landed = true
			}
		}
	}

	s.Acceleration = r3.Scale(1/dt, r3.Sub(s.Velocity, prevVel))
	s.RadarAltitude = s.Position.Z - ground
	s.Altitude = s.Position.Z
	if w.Ocean {
		s.Altitude -= w.SeaLevel
	}
	s.DynamicPressure = 0.5 * AirDensity * math.Sqr(s.Speed()) / 1000
}

// Settle places a body on the ground below it, at rest.
func (b *Body) Settle(w *World) {
	s := &b.State
	ground := w.GroundLevel(s.Position.X, s.Position.Y)
	s.Position.Z = ground
	s.Velocity, s.Acceleration = r3.Vec{}, r3.Vec{}
	s.RadarAltitude = 0
	s.Altitude = ground
	if w.Ocean {
		s.Altitude -= w.SeaLevel
	}
	s.Landed = w.Surface(s.Position.X, s.Position.Y) != vehicle.SurfaceWater
	s.Splashed = !s.Landed
}

// Place sets the body's position in flight and refreshes its
// altitudes.
func (b *Body) Place(pos r3.Vec, w *World) {
	s := &b.State
	s.Position = pos
	ground := w.GroundLevel(pos.X, pos.Y)
	s.RadarAltitude = pos.Z - ground
	s.Altitude = pos.Z
	if w.Ocean {
		s.Altitude -= w.SeaLevel
	}
	s.Landed, s.Splashed = false, false
	b.GearDown = false
}

func (b *Body) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("state", &b.State),
		slog.Float64("yaw_rate", b.yawRate),
		slog.Bool("gear_down", b.GearDown))
}
