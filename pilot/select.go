// pilot/select.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package pilot

import (
	"log/slog"

	"github.com/mmp/vtolai/control"
	"github.com/mmp/vtolai/math"
	"github.com/mmp/vtolai/metrics"
	"github.com/mmp/vtolai/util"
	"github.com/mmp/vtolai/vehicle"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// DefaultProjectileSpeed is used to lead the target when the selected
	// weapon's muzzle velocity isn't known.
	DefaultProjectileSpeed = 1000 // m/s
	// AttackAngleAtMaxRange is the broadside offset from the line of
	// sight at maximum engagement range.
	AttackAngleAtMaxRange = 30 // degrees
	// StationaryTargetSpeed is the horizontal speed below which targets
	// are considered stationary.
	StationaryTargetSpeed = 10 // m/s
	// FiringSolutionTolerance is how far off the nose a fixed weapon's
	// firing solution can be and still be flown directly.
	FiringSolutionTolerance = 20 // degrees

	// ArrivalRadius is the distance at which a waypoint counts as
	// reached.
	ArrivalRadius = 250 // m

	FollowBlendDistance = 250 // m
	FollowBlendAngle    = 0.8 // degrees
	FollowBlendRadians  = 0.2
	// FollowCatchUpTime is the time over which the follow speed closes
	// the distance to the formation slot.
	FollowCatchUpTime = 15 // s

	// Collision ticker values at which the periodic traversability
	// checks run.
	BypassCheckTick    = 5
	BroadsideCheckTick = 10
	// BroadsideLookahead is how far ahead the broadside side check looks.
	BroadsideLookahead = 10 // s
)

// SelectMode picks this tick's behavior from the sensor state and the
// situation, in strict priority order: terrain, collision, engagement,
// following, waypoints, and finally idling. It updates the route and
// engagement bookkeeping but never the sensors.
func (p *Pilot) SelectMode(s *vehicle.State, sit *Situation) Decision {
	d := Decision{
		Mode:      ModeIdle,
		Direction: p.heading(s),
		Altitude:  p.Config.DefaultAltitude,
	}

	// Terrain ranks above the collision dodge: a dodge is never allowed
	// to steer into the ground.
	switch {
	case p.Terrain.Avoiding:
		d.Mode = ModeAvoidTerrain
		d.Direction = p.Terrain.CorrectionDirection
		d.Speed = p.Config.CombatSpeed
		d.Status = p.Terrain.Status()
		p.Path.LeftPath = true

	case p.Collision.Dodge != nil:
		d.Mode = ModeAvoidCollision
		d.Direction = *p.Collision.Dodge
		// Without powered steering a full-speed dodge can't turn in time.
		d.Speed = util.Select(p.Config.PoweredSteering, p.Config.MaxSpeed, p.Config.CombatSpeed)
		d.Status = "Avoiding Collision"
		p.Path.LeftPath = true

	default:
		if p.Path.HasBypass() && !p.Path.BypassStillValid(p.env, p.bypassCandidates(sit)...) {
			p.lg.Debug("bypass abandoned", slog.String("target", p.Path.BypassTargetID))
			p.Path.ClearBypass()
		}

		if !p.Path.HasBypass() && sit.engageable() {
			p.engage(s, sit, &d)
		} else if !p.Path.HasBypass() && sit.following() {
			p.follow(s, sit, &d)
		} else {
			p.navigate(s, sit, &d)
		}

		if !p.Config.PoweredSteering && r3.Dot(d.Direction, s.Forward) < 0 {
			d.Speed = 0
		}
	}

	d.Direction = math.Normalize(d.Direction)
	if d.Direction == (r3.Vec{}) {
		d.Direction = p.heading(s)
	}
	if math.IsNaN(d.Speed) {
		p.lg.Warn("NaN target speed", slog.String("mode", d.Mode.String()))
	}
	d.Speed = control.SanitizeSpeed(d.Speed, &p.Config)
	return d
}

// heading returns the horizontal direction of the nose.
func (p *Pilot) heading(s *vehicle.State) r3.Vec {
	if h := math.Normalize(math.Horizontal(s.Forward, s.Up)); h != (r3.Vec{}) {
		return h
	}
	return s.Forward
}

// bypassCandidates returns the contacts a bypass may be routing toward.
func (p *Pilot) bypassCandidates(sit *Situation) []*vehicle.Contact {
	var c []*vehicle.Contact
	if sit.engageable() {
		c = append(c, sit.Target)
	}
	if sit.following() {
		c = append(c, sit.Leader)
	}
	return c
}

func (p *Pilot) checkBypass(s *vehicle.State, target *vehicle.Contact) {
	if p.Path.CheckBypass(p.pathfinder, p.env, s.Position, target, p.Config.Traversal()) {
		metrics.Inc(metrics.Bypass)
		p.lg.Info("bypass planned", slog.String("target", target.ID), slog.Any("path", &p.Path))
		PilotLog(p.ID, p.Tick, PilotLogPath, "bypass to %s via %d waypoints", target.ID, len(p.Path.Waypoints))
	}
}

func (p *Pilot) engage(s *vehicle.State, sit *Situation, d *Decision) {
	c := &p.Config
	t := sit.Target
	p.Path.LeftPath = true
	if p.Collision.Ticker == BypassCheckTick {
		p.checkBypass(s, t)
	}

	d.Mode = ModeEngage
	d.Status = "Engaging target"
	d.Altitude = c.CombatAltitude

	// Lead the target by the projectile's time of flight.
	distance := math.Distance(t.Position, s.Position)
	shotSpeed := float64(DefaultProjectileSpeed)
	wep, haveWeapon := p.selectedWeapon()
	if haveWeapon && wep.MuzzleVelocity > 0 {
		shotSpeed = wep.MuzzleVelocity
	}
	los := r3.Sub(t.PredictPosition(distance/shotSpeed), s.Position)

	if c.BroadsideAttack {
		if p.SideSlipDirection == 0 {
			p.SetBroadsideDirection(c.BroadsideDirection)
		}
		side := r3.Cross(los, s.Up)
		if p.Collision.Ticker == BroadsideCheckTick {
			from := p.env.GeoOf(s.Position)
			ahead := p.env.GeoOf(s.PredictPosition(BroadsideLookahead))
			if !p.pathfinder.IsDirectPathTraversable(from, ahead, c.Traversal()) {
				// Running ashore; switch sides.
				p.SideSlipDirection = -int(math.SignNonZero(r3.Dot(s.Forward, side)))
			}
		}
		side = r3.Scale(float64(p.SideSlipDirection), side)

		d.Direction = math.LerpVec(p.sidestep(distance), math.Normalize(los), math.Normalize(side))
		d.Speed = c.MaxSpeed
		return
	}

	// Extend away when too close to a target that's stationary or
	// heading toward us, and keep extending from the same target until
	// well clear.
	if (t.HorizontalSpeed(s.Up) < StationaryTargetSpeed ||
		r3.Dot(math.Horizontal(t.Velocity, s.Up), s.Forward) < 0) &&
		(distance < c.MinEngagementRange ||
			(distance < (3*c.MinEngagementRange+c.MaxEngagementRange)/4 && p.ExtendingTargetID == t.ID)) {
		if p.ExtendingTargetID != t.ID {
			p.lg.Debug("extending", slog.String("target", t.ID), slog.Float64("distance", distance))
		}
		p.ExtendingTargetID = t.ID
		d.Mode = ModeExtend
		d.Status = "Extending"
		d.Direction = r3.Scale(-1, los)
		d.Speed = c.MaxSpeed
		return
	}

	p.ExtendingTargetID = ""
	d.Direction = math.Horizontal(los, s.Up)
	minSpeed := c.CombatSpeed / 5
	if r3.Dot(d.Direction, s.Forward) < 0 {
		d.Speed = util.Select(c.PoweredSteering, c.MaxSpeed, 0)
	} else if distance >= c.MaxEngagementRange || distance <= c.MinEngagementRange {
		d.Speed = c.MaxSpeed
	} else {
		// Slow down inside the envelope to stay in it longer.
		d.Speed = minSpeed + (c.MaxSpeed-minSpeed)*(distance-c.MinEngagementRange)/
			(c.MaxEngagementRange-c.MinEngagementRange)

		if haveWeapon && wep.Kind.HasFiringSolution() && wep.FixedMount && wep.FiringSolution != nil {
			d.Aiming = true
			if math.Angle(*wep.FiringSolution, s.Forward) < FiringSolutionTolerance {
				d.Direction = *wep.FiringSolution
			}
		}
	}
	d.Speed = math.Clamp(d.Speed, util.Select(c.PoweredSteering, minSpeed, 0.), c.MaxSpeed)
}

// sidestep returns the broadside interpolation factor between pursuit
// (0) and flying perpendicular to the target (1): a fixed attack angle
// beyond maximum range, up to 90 degrees at minimum range, and beyond
// that as the target gets closer still.
func (p *Pilot) sidestep(distance float64) float64 {
	c := &p.Config
	attack := AttackAngleAtMaxRange / 90.
	switch {
	case distance >= c.MaxEngagementRange:
		return math.Clamp01((c.MaxEngagementRange-distance)/(c.CombatSpeed*math.Clamp(90/c.MaxDrift, 0, 10))+1) * attack
	case distance <= c.MinEngagementRange:
		return 1.5 - distance/(c.MinEngagementRange*2)
	default:
		return (c.MaxEngagementRange-distance)/(c.MaxEngagementRange-c.MinEngagementRange)*(1-attack) + attack
	}
}

func (p *Pilot) selectedWeapon() (vehicle.Weapon, bool) {
	if p.weapons == nil {
		return vehicle.Weapon{}, false
	}
	return p.weapons.SelectedWeapon()
}

// slotPosition returns the world position of our slot in the leader's
// formation.
func (p *Pilot) slotPosition(s *vehicle.State, leader *vehicle.Contact, index int) r3.Vec {
	if p.formation == nil {
		return leader.Position
	}
	fwd := leader.Forward
	if fwd == (r3.Vec{}) {
		fwd = leader.Velocity
	}
	frame := math.LookFrame(fwd, s.Up)
	return r3.Add(leader.Position, frame.Transform(p.formation.SlotOffset(index)))
}

func (p *Pilot) follow(s *vehicle.State, sit *Situation, d *Decision) {
	leader := sit.Leader
	p.Path.LeftPath = true
	if p.Collision.Ticker == BypassCheckTick {
		p.checkBypass(s, leader)
	}

	slot := p.slotPosition(s, leader, sit.FollowIndex)
	toSlot := r3.Sub(slot, s.Position)
	horiz := math.Horizontal(toSlot, s.Up)

	d.Mode = ModeFollow
	d.Status = "Following"
	// Once in position, fly along with the leader rather than chasing the
	// slot, which would oscillate.
	if r3.Dot(toSlot, s.Forward) < 0 && r3.Norm2(horiz) < FollowBlendDistance*FollowBlendDistance &&
		math.Angle(s.Forward, leader.Velocity) < FollowBlendAngle {
		d.Direction = math.RotateTowards(math.Horizontal(math.Normalize(leader.Velocity), s.Up), toSlot,
			FollowBlendRadians, 0)
	} else {
		d.Direction = horiz
	}
	d.Speed = leader.HorizontalSpeed(s.Up) + r3.Norm(toSlot)/FollowCatchUpTime
}

// navigate follows the waypoints, re-planning the route first if we've
// strayed from it.
func (p *Pilot) navigate(s *vehicle.State, sit *Situation, d *Decision) {
	c := &p.Config
	if p.Path.LeftPath && !p.Path.HasBypass() {
		p.Path.LeftPath = false
		if p.Path.HasDestination {
			metrics.Inc(metrics.Pathfind)
			if !p.Path.Pathfind(p.pathfinder, p.env, s.Position, c.Traversal()) {
				metrics.Inc(metrics.PathfindFailed)
				p.lg.Warn("no path to destination", slog.Any("destination", p.Path.Destination))
			} else {
				PilotLog(p.ID, p.Tick, PilotLogPath, "route with %d waypoints", len(p.Path.Waypoints))
			}
		}
	}

	if !p.Path.Active() {
		d.Status = "Not doing anything in particular"
		return
	}

	toWaypoint := math.Horizontal(r3.Sub(p.env.WorldOf(p.Path.Intermediate), s.Position), s.Up)
	if dist := r3.Norm(toWaypoint); dist > ArrivalRadius {
		cruise := util.Select(sit.Command == CommandAttack, c.MaxSpeed, c.CombatSpeed)
		d.Direction = toWaypoint
		if p.Path.HasBypass() {
			d.Mode = ModeBypass
			d.Status = "Repositioning"
			d.Speed = c.MaxSpeed
		} else {
			d.Mode = ModeWaypoint
			d.Status = "Moving"
			if len(p.Path.Waypoints) > 1 {
				d.Speed = cruise
			} else {
				// Slow down approaching the final waypoint.
				d.Speed = math.Clamp((dist-ArrivalRadius/2)/5, 0, cruise)
			}
		}
		return
	}

	p.Path.Cycle()
	PilotLog(p.ID, p.Tick, PilotLogPath, "waypoint reached, %d remaining, bypass %v",
		len(p.Path.Waypoints), p.Path.HasBypass())
	d.Status = "Not doing anything in particular"
}
