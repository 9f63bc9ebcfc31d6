// pilot/pilot.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package pilot implements the per-tick decision loop for a hovering
// vehicle: it senses terrain and traffic, selects a mode, layers evasive
// maneuvering on top, and turns the result into actuator commands.
package pilot

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmp/vtolai/collision"
	"github.com/mmp/vtolai/config"
	"github.com/mmp/vtolai/control"
	"github.com/mmp/vtolai/log"
	"github.com/mmp/vtolai/metrics"
	"github.com/mmp/vtolai/path"
	"github.com/mmp/vtolai/rand"
	"github.com/mmp/vtolai/terrain"
	"github.com/mmp/vtolai/vehicle"
)

var (
	ErrNoEnvironment = errors.New("pilot requires an environment")
	ErrNoPathfinder  = errors.New("pilot requires a pathfinder")
	ErrInvalidDt     = errors.New("timestep must be positive")
	ErrStateMismatch = errors.New("saved state is for a different pilot")
)

// Collaborators are the pilot's interfaces to the rest of the world.
// Weapons and Formation may be nil.
type Collaborators struct {
	Environment vehicle.Environment
	Pathfinder  vehicle.Pathfinder
	Weapons     vehicle.Weapons
	Formation   vehicle.Formation
}

// Memory is the pilot state that carries over from one tick to the
// next. It is plain data so that it can be snapshotted and persisted.
type Memory struct {
	// Airborne is set once the initial takeoff has reached the minimum
	// altitude.
	Airborne         bool
	BelowMinAltitude bool

	// ExtendingTargetID is the target we're currently extending away
	// from, if any.
	ExtendingTargetID string
	// SideSlipDirection is the side to keep the target on during a
	// broadside attack: -1 port, 1 starboard, or 0 if not yet chosen.
	SideSlipDirection int

	WeaveAdjustment float64 // degrees
	WeaveDirection  float64

	Terrain   terrain.Alert
	Collision collision.Predictor
	Path      path.Path
	Attitude  control.Attitude
	Throttle  control.Throttle

	Decision Decision
	Tick     int64
}

type Pilot struct {
	ID       string
	Config   config.Autopilot
	Deferred config.Deferred

	Memory

	env        vehicle.Environment
	pathfinder *path.CachedPathfinder
	weapons    vehicle.Weapons
	formation  vehicle.Formation

	dt   float64
	rand rand.Rand
	lg   *log.Logger
}

// New returns a pilot for the vehicle with the given ID. The pathfinder
// is wrapped with a traversability cache sized from the configuration.
func New(id string, c config.Autopilot, coll Collaborators, dt float64, seed int64, lg *log.Logger) (*Pilot, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if coll.Environment == nil {
		return nil, ErrNoEnvironment
	}
	if coll.Pathfinder == nil {
		return nil, ErrNoPathfinder
	}
	if dt <= 0 {
		return nil, fmt.Errorf("%f: %w", dt, ErrInvalidDt)
	}

	p := &Pilot{
		ID:         id,
		Config:     c,
		env:        coll.Environment,
		pathfinder: path.NewCachedPathfinder(coll.Pathfinder, c.PathCacheSize, c.PathCacheTicks),
		weapons:    coll.Weapons,
		formation:  coll.Formation,
		dt:         dt,
		rand:       rand.NewSeeded(seed),
		lg:         lg.With(slog.String("pilot", id)),
	}
	p.Activate()
	return p, nil
}

// Activate resets the transient state for the pilot taking control of
// the vehicle. Takeoff state and the destination are kept.
func (p *Pilot) Activate() {
	p.Terrain.Reset()
	p.Collision.Reset()
	p.Attitude.Reset()
	p.Throttle.Reset()
	p.Path.Reset()
	p.pathfinder.Purge()
	p.ExtendingTargetID = ""
	p.WeaveAdjustment = 0
	p.WeaveDirection = 1

	if p.Config.BroadsideAttack && p.SideSlipDirection == 0 {
		p.SetBroadsideDirection(p.Config.BroadsideDirection)
	}

	p.lg.Debug("activated", slog.Any("config", &p.Config))
}

// SetBroadsideDirection chooses the side to keep targets on during
// broadside attacks; BroadsideEither picks one at random.
func (p *Pilot) SetBroadsideDirection(d config.BroadsideDirection) {
	p.Config.BroadsideDirection = d
	p.SideSlipDirection = d.Side()
	if p.SideSlipDirection == 0 {
		p.SideSlipDirection = p.rand.Sign()
	}
}

// SetDestination sets the final destination for waypoint navigation.
func (p *Pilot) SetDestination(g vehicle.Geo) {
	p.Path.SetDestination(g)
}

func (p *Pilot) ClearDestination() {
	p.Path.ClearDestination()
}

// Status returns a short description of what the pilot is doing.
func (p *Pilot) Status() string {
	return p.Memory.Decision.Status
}

func (p *Pilot) TerrainAvoiding() bool {
	return p.Terrain.Avoiding
}

// Decision returns the most recent tick's decision.
func (p *Pilot) Decision() Decision {
	return p.Memory.Decision
}

// PathfinderStats returns the traversability cache hit and miss counts.
func (p *Pilot) PathfinderStats() (hits, misses int64) {
	return p.pathfinder.Stats()
}

// Update runs one tick of the pilot and returns the actuator commands
// for the vehicle.
func (p *Pilot) Update(s *vehicle.State, sit *Situation) vehicle.Actuators {
	p.applyDeferred()
	p.Tick++
	p.pathfinder.Lifetime = p.Config.PathCacheTicks
	p.pathfinder.SetTick(p.Tick)
	metrics.Inc(metrics.Tick)

	var d Decision
	var rcs bool
	if !p.Airborne {
		d = p.takeoff(s)
		p.WeaveAdjustment = 0
	} else {
		p.sense(s, sit)
		d = p.SelectMode(s, sit)
		rcs = p.tactical(s, sit, &d)
	}

	d.Speed = control.SanitizeSpeed(d.Speed, &p.Config)
	p.Memory.Decision = d
	metrics.Mode(d.Mode.String())
	PilotLog(p.ID, p.Tick, PilotLogMode, "%s %q dir %v speed %.1f alt %.0f", d.Mode, d.Status,
		d.Direction, d.Speed, d.Altitude)

	cmd := p.Attitude.Update(s, &p.Config, control.Targets{
		Direction:        d.Direction,
		Speed:            d.Speed,
		Aiming:           d.Aiming,
		BelowMinAltitude: p.BelowMinAltitude,
		AvoidingTerrain:  p.Terrain.Avoiding,
		TerrainNormal:    p.Terrain.Normal,
		Weave:            p.WeaveAdjustment,
	}, p.dt)
	PilotLog(p.ID, p.Tick, PilotLogControl, "pitch %.3f yaw %.3f roll %.3f errors %.1f %.1f %.1f",
		cmd.Pitch, cmd.Yaw, cmd.Roll, cmd.PitchError, cmd.YawError, cmd.RollError)

	throttle, brakes := p.Throttle.Update(d.Altitude, s.RadarAltitude, s.VerticalSpeed(), p.dt)

	act := vehicle.Actuators{
		Pitch:               cmd.Pitch,
		Yaw:                 cmd.Yaw,
		Roll:                cmd.Roll,
		WheelSteer:          cmd.WheelSteer,
		Throttle:            throttle,
		TargetSpeed:         d.Speed,
		TargetVerticalSpeed: control.VerticalSpeed(d.Altitude, s.RadarAltitude, p.Config.ClimbRate),
		TargetAltitude:      d.Altitude,
		Gear:                p.gear(s),
		RCS:                 rcs || (p.Config.ManeuverRCS && cmd.Saturated),
		Brakes:              brakes,
		SAS:                 true,
	}

	p.lg.Debug("tick", slog.Int64("tick", p.Tick), slog.Any("decision", d), slog.Any("actuators", act))

	return act
}

func (p *Pilot) applyDeferred() {
	applied, err := p.Deferred.Tick(&p.Config)
	if err != nil {
		p.lg.Warn("deferred config", slog.Any("error", err))
	}
	for _, ds := range applied {
		p.lg.Debug("deferred config applied", slog.String("field", ds.Field.String()),
			slog.Float64("value", ds.Value))
	}
}

// SetExtendedRange switches the configuration limits; current values
// that the standard limits would clip are restored on the next tick.
func (p *Pilot) SetExtendedRange(on bool) {
	p.Config.SetExtendedRange(on, &p.Deferred)
}

// sense runs the terrain sensor and the collision scan.
func (p *Pilot) sense(s *vehicle.State, sit *Situation) {
	p.BelowMinAltitude = s.RadarAltitude < p.Config.MinAltitude

	wasAvoiding := p.Terrain.Avoiding
	if p.Terrain.Update(s, p.env, terrain.MakeParams(&p.Config, p.dt)) {
		p.BelowMinAltitude = true
		if !wasAvoiding {
			metrics.Inc(metrics.TerrainAlert)
			p.lg.Info("terrain alert", slog.Any("terrain", &p.Terrain))
		}
	}
	PilotLog(p.ID, p.Tick, PilotLogTerrain, "ticker %d/%d avoiding %v distance %.1f",
		p.Terrain.Ticker, p.Terrain.TickerThreshold, p.Terrain.Avoiding, p.Terrain.Distance)

	var leaderID string
	if sit.Leader != nil {
		leaderID = sit.Leader.ID
	}
	var missileID string
	if p.weapons != nil {
		missileID = p.weapons.IncomingMissileID()
	}
	hadDodge := p.Collision.Dodge != nil
	p.Collision.Update(s, sit.Traffic, collision.Options{
		SelfID:            p.ID,
		LeaderID:          leaderID,
		MaxDrift:          p.Config.MaxDrift,
		AvoidMass:         p.Config.AvoidMass,
		IncomingMissileID: missileID,
	})
	if p.Collision.Dodge != nil && !hadDodge {
		metrics.Inc(metrics.Dodge)
		p.lg.Info("collision predicted", slog.Any("collision", &p.Collision))
	}
	PilotLog(p.ID, p.Tick, PilotLogCollision, "ticker %d dodge %v", p.Collision.Ticker, p.Collision.Dodge)
}

// takeoff climbs straight up until the minimum altitude is reached.
func (p *Pilot) takeoff(s *vehicle.State) Decision {
	p.BelowMinAltitude = s.RadarAltitude < p.Config.MinAltitude
	if !p.BelowMinAltitude {
		p.Airborne = true
		p.lg.Info("airborne", slog.Float64("radar_altitude", s.RadarAltitude))
	}
	return Decision{
		Mode:      ModeTakeoff,
		Direction: p.heading(s),
		Altitude:  p.Config.DefaultAltitude,
		Status:    "Gaining altitude",
	}
}

// gear returns the landing gear command: down when low, up otherwise,
// and left alone on the ground.
func (p *Pilot) gear(s *vehicle.State) vehicle.GearCommand {
	if s.LandedOrSplashed() {
		return vehicle.GearUnchanged
	}
	if p.BelowMinAltitude {
		return vehicle.GearDown
	}
	return vehicle.GearUp
}

func (p *Pilot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", p.ID),
		slog.Int64("tick", p.Tick),
		slog.Bool("airborne", p.Airborne),
		slog.Bool("below_min_altitude", p.BelowMinAltitude),
		slog.Any("decision", p.Memory.Decision),
		slog.Any("terrain", &p.Terrain),
		slog.Any("collision", &p.Collision),
		slog.Any("path", &p.Path))
}
