// vehicle/actuators.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vehicle

import (
	"fmt"
	"log/slog"
)

type GearCommand int

const (
	GearUnchanged GearCommand = iota
	GearDown
	GearUp
)

func (g GearCommand) String() string {
	switch g {
	case GearUnchanged:
		return "Unchanged"
	case GearDown:
		return "Down"
	case GearUp:
		return "Up"
	default:
		return fmt.Sprintf("GearCommand(%d)", int(g))
	}
}

// Actuators holds the commands the pilot produces each tick. Pitch, yaw,
// roll, and wheel steer are normalized control inputs; values outside
// [-1,1] are saturated by the vehicle.
type Actuators struct {
	Pitch, Yaw, Roll float64
	WheelSteer       float64

	// Throttle is the lift setting in [0,1] from the altitude hold loop.
	Throttle float64

	// Speed and altitude targets for the vehicle's speed controller.
	TargetSpeed         float64
	TargetVerticalSpeed float64
	TargetAltitude      float64

	Gear   GearCommand
	RCS    bool
	Brakes bool
	SAS    bool
}

func (a Actuators) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("pitch", a.Pitch),
		slog.Float64("yaw", a.Yaw),
		slog.Float64("roll", a.Roll),
		slog.Float64("throttle", a.Throttle),
		slog.Float64("target_speed", a.TargetSpeed),
		slog.Float64("target_vspeed", a.TargetVerticalSpeed),
		slog.String("gear", a.Gear.String()),
		slog.Bool("rcs", a.RCS))
}
