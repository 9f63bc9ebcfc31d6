// control/attitude.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package control converts the pilot's direction, speed, and altitude
// targets into control surface and throttle commands.
package control

import (
	"log/slog"

	"github.com/mmp/vtolai/config"
	"github.com/mmp/vtolai/math"
	"github.com/mmp/vtolai/util"
	"github.com/mmp/vtolai/vehicle"

	"gonum.org/v1/gonum/spatial/r3"
)

// Gains, relative to SteerMult, SteerDamping, and SteerKi. The roll and
// yaw axes are deliberately weaker than pitch.
const (
	PitchP       = 0.015
	PitchPAiming = 0.02
	YawP         = 0.005
	YawPAiming   = 0.007
	RollP        = 0.0015

	PitchD = 1
	YawD   = 0.33
	RollD  = 0.1

	PitchI = 1
	YawI   = 0.33
	RollI  = 0.1

	WheelSteerP       = 0.003
	WheelSteerPAiming = 0.005
	WheelSteerD       = 0.1
)

// Targets are what the pilot wants this tick.
type Targets struct {
	Direction r3.Vec
	Speed     float64
	// Aiming is set when pointing a fixed weapon; the controller uses
	// stiffer gains and ignores weaving.
	Aiming bool

	BelowMinAltitude bool
	AvoidingTerrain  bool
	TerrainNormal    r3.Vec

	// Weave is a yaw offset in degrees for evasive maneuvering.
	Weave float64
}

// Command is the controller output. Pitch, yaw, and roll are not
// clamped; Saturated reports whether any reached full deflection.
type Command struct {
	Pitch, Yaw, Roll float64
	WheelSteer       float64
	Saturated        bool

	PitchError, YawError, RollError float64
	DriftMult                       float64
}

func (c Command) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("pitch", c.Pitch),
		slog.Float64("yaw", c.Yaw),
		slog.Float64("roll", c.Roll),
		slog.Float64("pitch_error", c.PitchError),
		slog.Float64("yaw_error", c.YawError),
		slog.Float64("roll_error", c.RollError),
		slog.Bool("saturated", c.Saturated))
}

// Attitude is a PID controller for pitch, yaw, and roll. Its integral
// state persists across ticks and is only cleared by Reset.
type Attitude struct {
	// DirectionIntegral accumulates pitch and yaw error as a vector in
	// the plane perpendicular to the nose, so accumulated error follows
	// the vehicle as it rolls. Its length never exceeds 1.
	DirectionIntegral r3.Vec
	// RollIntegral is kept in [-1,1].
	RollIntegral float64
}

func (a *Attitude) Reset() {
	*a = Attitude{}
}

// Update computes this tick's control command.
func (a *Attitude) Update(s *vehicle.State, c *config.Autopilot, t Targets, dt float64) Command {
	var cmd Command
	nose, top, right := s.Forward, s.Top, s.Right
	hspeed := s.HorizontalSpeed()

	// Yaw: aim at the target direction, but don't let the nose get more
	// than MaxDrift away from the velocity when moving.
	yawTarget := math.ProjectOnPlane(t.Direction, top)
	cmd.DriftMult = 1
	if hspeed*10 > c.CombatSpeed {
		cmd.DriftMult = max(math.Angle(s.Velocity, yawTarget)/c.MaxDrift, 1)
		yawTarget = math.RotateTowards(s.Velocity, yawTarget, math.Radians(c.MaxDrift), 0)
	}
	cmd.YawError = math.SignedAngle(nose, yawTarget, right)
	if !t.Aiming {
		cmd.YawError += t.Weave
	}

	// Pitch: nose down to accelerate, up to slow down.
	pitchTarget := 0.0
	if t.Speed != 0 && !math.IsNaN(t.Speed) {
		pitchTarget = math.Clamp(1-(t.Speed-hspeed)/t.Speed, -1, 1) * -c.TargetPitch
	}
	if t.Aiming {
		pitchTarget = math.SignedAngle(nose, math.ProjectOnPlane(t.Direction, right), top)
	}
	if t.BelowMinAltitude || t.Speed == 0 {
		pitchTarget = 0
	}
	if t.AvoidingTerrain {
		pitchTarget = 90 - math.Angle(math.ProjectOnPlane(t.Direction, right), s.Up)
	}
	pitch := 90 - math.Angle(nose, s.Up)
	cmd.PitchError = pitchTarget - pitch

	// Roll: bank into drift, or when low, to the bank that brings the
	// top of the vehicle to vertical (or to the terrain normal when
	// avoiding it).
	left := r3.Scale(-1, right)
	drift := math.SignedAngle(nose, math.ProjectOnPlane(s.Velocity, s.Up), right)
	bank := math.SignedAngle(top, s.Up, left)
	rollTarget := c.MaxBankAngle * math.Clamp01(drift/c.MaxDrift) * math.Clamp01(hspeed/c.CombatSpeed)
	if t.BelowMinAltitude {
		ref := s.Up
		if t.AvoidingTerrain && t.TerrainNormal != (r3.Vec{}) {
			ref = t.TerrainNormal
		}
		rollTarget = bank - math.SignedAngle(top, math.ProjectOnPlane(ref, nose), left)
	}
	cmd.RollError = rollTarget - bank

	pitchP := util.Select(t.Aiming, PitchPAiming, PitchP) * c.SteerMult * cmd.PitchError
	yawP := util.Select(t.Aiming, YawPAiming, YawP) * c.SteerMult * cmd.YawError * cmd.DriftMult
	rollP := RollP * c.SteerMult * cmd.RollError

	w := s.AngularVelocity
	pitchD := PitchD * c.SteerDamping * -w.X
	yawD := YawD * c.SteerDamping * -w.Z
	rollD := RollD * c.SteerDamping * -w.Y

	di := r3.Add(a.DirectionIntegral, r3.Scale(dt, r3.Add(r3.Scale(cmd.PitchError, top), r3.Scale(cmd.YawError, right))))
	di = math.ProjectOnPlane(di, nose)
	if r3.Norm2(di) > 1 {
		di = math.Normalize(di)
	}
	a.DirectionIntegral = di
	a.RollIntegral = math.Clamp(a.RollIntegral+cmd.RollError*dt, -1, 1)

	pitchI := PitchI * c.SteerKi * r3.Dot(di, top)
	yawI := YawI * c.SteerKi * r3.Dot(di, right)
	rollI := RollI * c.SteerKi * a.RollIntegral

	cmd.Pitch = pitchP + pitchI - pitchD
	cmd.Yaw = yawP + yawI - yawD
	cmd.Roll = rollP + rollI - rollD
	cmd.WheelSteer = -(util.Select(t.Aiming, WheelSteerPAiming, WheelSteerP)*c.SteerMult*cmd.YawError -
		WheelSteerD*c.SteerDamping*-w.Z)

	cmd.Saturated = math.Abs(cmd.Pitch) >= 1 || math.Abs(cmd.Yaw) >= 1 || math.Abs(cmd.Roll) >= 1

	return cmd
}
