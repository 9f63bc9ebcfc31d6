// pilot/decision.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package pilot

import (
	"fmt"
	"log/slog"

	"github.com/mmp/vtolai/vehicle"

	"gonum.org/v1/gonum/spatial/r3"
)

// Mode is the behavior selected for a tick. Exactly one is chosen each
// tick, in priority order.
type Mode int

const (
	ModeTakeoff Mode = iota
	ModeAvoidTerrain
	ModeAvoidCollision
	ModeEngage
	ModeExtend
	ModeFollow
	ModeBypass
	ModeWaypoint
	ModeIdle
	NumModes
)

func (m Mode) String() string {
	switch m {
	case ModeTakeoff:
		return "Takeoff"
	case ModeAvoidTerrain:
		return "AvoidTerrain"
	case ModeAvoidCollision:
		return "AvoidCollision"
	case ModeEngage:
		return "Engage"
	case ModeExtend:
		return "Extend"
	case ModeFollow:
		return "Follow"
	case ModeBypass:
		return "Bypass"
	case ModeWaypoint:
		return "Waypoint"
	case ModeIdle:
		return "Idle"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Decision is what the pilot wants to do this tick.
type Decision struct {
	Mode Mode
	// Direction is a unit vector.
	Direction r3.Vec
	Speed     float64
	Altitude  float64
	Status    string
	// Aiming is set when pointing a fixed weapon at its firing solution.
	Aiming bool
}

func (d Decision) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("mode", d.Mode.String()),
		slog.String("status", d.Status),
		slog.Any("direction", d.Direction),
		slog.Float64("speed", d.Speed),
		slog.Float64("altitude", d.Altitude),
		slog.Bool("aiming", d.Aiming))
}

// Command is the order the pilot has been given by whoever is in charge
// of it.
type Command int

const (
	CommandIdle Command = iota
	CommandAttack
	CommandFlyTo
	CommandFollow
)

func (c Command) String() string {
	return [...]string{"Idle", "Attack", "FlyTo", "Follow"}[c]
}

// Situation is everything outside the vehicle itself that the pilot
// considers in a tick.
type Situation struct {
	Command Command
	// Target is the contact to engage, if any.
	Target *vehicle.Contact
	// Leader and FollowIndex give the formation slot when following.
	Leader      *vehicle.Contact
	FollowIndex int
	// Traffic is every nearby contact, for collision avoidance. It may
	// include nil and destroyed entries.
	Traffic   []*vehicle.Contact
	PeaceMode bool
}

func (s *Situation) engageable() bool {
	return s.Target != nil && !s.Target.Destroyed && !s.PeaceMode
}

func (s *Situation) following() bool {
	return s.Command == CommandFollow && s.Leader != nil && !s.Leader.Destroyed
}
