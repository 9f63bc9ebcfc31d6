// sim/sim.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package sim is a flat-earth flight simulation for exercising pilots:
// heightfield terrain, a ground pathfinder, simple hover-vehicle
// dynamics, scripted traffic and weapons, and a flight recorder.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/mmp/vtolai/config"
	"github.com/mmp/vtolai/log"
	"github.com/mmp/vtolai/math"
	"github.com/mmp/vtolai/pilot"
	"github.com/mmp/vtolai/rand"
	"github.com/mmp/vtolai/util"
	"github.com/mmp/vtolai/vehicle"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// TrafficRadius is how far around each piloted vehicle the sim
	// looks for traffic to report.
	TrafficRadius = 3000 // m
	// NearMissDistance is the separation below which a near miss is
	// reported.
	NearMissDistance = 20 // m
	// HardLandingSpeed is the descent rate above which ground contact
	// is reported.
	HardLandingSpeed = 5 // m/s

	Gravity = vehicle.StandardGravity
)

var (
	ErrUnknownEntity   = errors.New("unknown entity")
	ErrDuplicateEntity = errors.New("duplicate entity ID")
)

// Entity is anything in the sim: a piloted vehicle with a Body, or
// scripted traffic that flies straight at its velocity.
type Entity struct {
	Contact vehicle.Contact

	Pilot   *pilot.Pilot
	Body    *Body
	Weapons *Weapons
	// Orders for the pilot; targets and leaders are referenced by ID
	// and resolved each tick.
	Command     pilot.Command
	TargetID    string
	LeaderID    string
	FollowIndex int
	PeaceMode   bool

	// Actuators is the most recent pilot output.
	Actuators vehicle.Actuators
	// Lifetime, if positive, is the number of ticks after which
	// scripted traffic is removed (destroyed).
	Lifetime int64

	lastMode    pilot.Mode
	wasAvoiding bool
	hadDodge    bool
	wasAirborne bool
}

func (e *Entity) ID() string { return e.Contact.ID }

func (e *Entity) Piloted() bool { return e.Pilot != nil }

func (e *Entity) LogValue() slog.Value {
	attrs := []slog.Attr{slog.Any("contact", &e.Contact)}
	if e.Pilot != nil {
		attrs = append(attrs, slog.Any("pilot", e.Pilot), slog.Any("body", e.Body))
	}
	return slog.GroupValue(attrs...)
}

// Sim steps a set of entities over a World at a fixed timestep.
type Sim struct {
	World      *World
	Pathfinder *Pathfinder
	Formation  vehicle.Formation
	Entities   []*Entity
	Events     *EventStream
	Recorder   *Recorder

	Dt   float64
	Tick int64

	scheduled map[int64][]func(*Sim)

	seed int64
	rand rand.Rand
	lg   *log.Logger
}

func New(w *World, dt float64, seed int64, lg *log.Logger) *Sim {
	return &Sim{
		World:      w,
		Pathfinder: NewPathfinder(w, 2, lg),
		Formation:  Echelon{Spacing: 60},
		Events:     NewEventStream(lg),
		Dt:         dt,
		seed:       seed,
		rand:       rand.NewSeeded(seed),
		lg:         lg,
	}
}

// Entity returns the entity with the given ID, or nil.
func (s *Sim) Entity(id string) *Entity {
	if i := slices.IndexFunc(s.Entities, func(e *Entity) bool { return e.ID() == id }); i != -1 {
		return s.Entities[i]
	}
	return nil
}

func (s *Sim) add(e *Entity) error {
	if s.Entity(e.ID()) != nil {
		return fmt.Errorf("%s: %w", e.ID(), ErrDuplicateEntity)
	}
	s.Entities = append(s.Entities, e)
	return nil
}

// AddTraffic adds a scripted contact with a random ID.
func (s *Sim) AddTraffic(pos, vel r3.Vec, mass float64) *Entity {
	e := &Entity{Contact: vehicle.Contact{
		ID:       uuid.NewString(),
		Position: pos,
		Velocity: vel,
		Forward:  math.Normalize(vel),
		Mass:     mass,
	}}
	s.Entities = append(s.Entities, e)
	return e
}

// VehicleSpec describes a piloted vehicle to add.
type VehicleSpec struct {
	ID       string
	Config   config.Autopilot
	Body     BodyParams
	Position r3.Vec
	Heading  r3.Vec
	// Landed vehicles start on the ground below Position; others start
	// in flight with the takeoff complete.
	Landed  bool
	Weapons *Weapons
}

// AddVehicle adds a piloted vehicle.
func (s *Sim) AddVehicle(spec VehicleSpec) (*Entity, error) {
	body := NewBody(spec.Position, spec.Heading, spec.Body, Gravity)
	if spec.Landed {
		body.Settle(s.World)
	} else {
		body.Place(spec.Position, s.World)
	}

	coll := pilot.Collaborators{
		Environment: s.World,
		Pathfinder:  s.Pathfinder,
		Formation:   s.Formation,
	}
	if spec.Weapons != nil {
		coll.Weapons = spec.Weapons
	}
	seed := s.seed + int64(len(s.Entities))
	p, err := pilot.New(spec.ID, spec.Config, coll, s.Dt, seed, s.lg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.ID, err)
	}
	p.Airborne = !spec.Landed

	e := &Entity{
		Pilot:       p,
		Body:        body,
		Weapons:     spec.Weapons,
		wasAirborne: p.Airborne,
		lastMode:    pilot.NumModes,
	}
	e.syncContact()
	if err := s.add(e); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Entity) syncContact() {
	st := &e.Body.State
	e.Contact.ID = e.Pilot.ID
	e.Contact.Position = st.Position
	e.Contact.Velocity = st.Velocity
	e.Contact.Acceleration = st.Acceleration
	e.Contact.Forward = st.Forward
	e.Contact.Mass = st.Mass
	e.Contact.Landed = st.LandedOrSplashed()
	e.Contact.LeaderID = e.LeaderID
}

// Step advances the sim by one tick: every pilot runs against the
// current state of the world, and then everything moves.
func (s *Sim) Step() {
	s.Tick++

	for _, f := range s.scheduled[s.Tick] {
		f(s)
	}
	delete(s.scheduled, s.Tick)

	points := make([]math.KDPoint, 0, len(s.Entities))
	for i, e := range s.Entities {
		if !e.Contact.Destroyed {
			points = append(points, math.KDPoint{P: e.Contact.Position, Index: i})
		}
	}
	tree := math.BuildKDTree(points)

	var nearby []int
	for _, e := range s.Entities {
		if !e.Piloted() || e.Contact.Destroyed {
			continue
		}
		nearby = tree.Within(e.Contact.Position, TrafficRadius, nearby[:0])
		traffic := util.MapSlice(nearby, func(i int) *vehicle.Contact { return &s.Entities[i].Contact })

		sit := &pilot.Situation{
			Command:     e.Command,
			Target:      s.contact(e.TargetID),
			Leader:      s.contact(e.LeaderID),
			FollowIndex: e.FollowIndex,
			Traffic:     traffic,
			PeaceMode:   e.PeaceMode,
		}
		if e.Weapons != nil {
			var missile *vehicle.Contact
			if e.Weapons.MissileID != "" {
				missile = s.contact(e.Weapons.MissileID)
			}
			e.Weapons.update(s.Tick, &e.Body.State, sit.Target, missile)
		}

		e.Actuators = e.Pilot.Update(&e.Body.State, sit)
		s.postPilotEvents(e)
	}

	for _, e := range s.Entities {
		if e.Contact.Destroyed {
			continue
		}
		if e.Piloted() {
			descent := -e.Body.State.VerticalSpeed()
			wasLanded := e.Body.State.LandedOrSplashed()
			e.Body.Step(e.Actuators, s.World, s.Dt)
			e.syncContact()
			if !wasLanded && e.Body.State.RadarAltitude == 0 && descent > HardLandingSpeed {
				s.post(Event{Type: GroundContactEvent, EntityID: e.ID(), Value: descent})
			}
		} else {
			c := &e.Contact
			c.Position = c.PredictPosition(s.Dt)
			c.Velocity = r3.Add(c.Velocity, r3.Scale(s.Dt, c.Acceleration))
			if e.Lifetime > 0 && s.Tick >= e.Lifetime {
				c.Destroyed = true
			}
		}
	}

	s.checkSeparation()

	if s.Recorder != nil {
		s.Recorder.Record(s)
	}
}

func (s *Sim) contact(id string) *vehicle.Contact {
	if id == "" {
		return nil
	}
	if e := s.Entity(id); e != nil {
		return &e.Contact
	}
	return nil
}

func (s *Sim) post(ev Event) {
	ev.Tick = s.Tick
	s.Events.Post(ev)
}

func (s *Sim) postPilotEvents(e *Entity) {
	p := e.Pilot
	d := p.Decision()
	if d.Mode != e.lastMode {
		s.post(Event{Type: ModeChangedEvent, EntityID: e.ID(), Mode: d.Mode.String(), Status: d.Status})
		e.lastMode = d.Mode
	}
	if p.Airborne && !e.wasAirborne {
		s.post(Event{Type: AirborneEvent, EntityID: e.ID()})
	}
	e.wasAirborne = p.Airborne
	if avoiding := p.TerrainAvoiding(); avoiding && !e.wasAvoiding {
		s.post(Event{Type: TerrainAlertEvent, EntityID: e.ID(), Status: p.Status()})
	}
	e.wasAvoiding = p.TerrainAvoiding()
	if dodge := p.Collision.Dodge != nil; dodge != e.hadDodge {
		if dodge {
			s.post(Event{Type: DodgeEvent, EntityID: e.ID()})
		}
		e.hadDodge = dodge
	}
}

// checkSeparation reports piloted vehicles that came within
// NearMissDistance of anything else.
func (s *Sim) checkSeparation() {
	points := make([]math.KDPoint, 0, len(s.Entities))
	for i, e := range s.Entities {
		if !e.Contact.Destroyed && !e.Contact.Landed {
			points = append(points, math.KDPoint{P: e.Contact.Position, Index: i})
		}
	}
	tree := math.BuildKDTree(points)

	var near []int
	for i, e := range s.Entities {
		if !e.Piloted() || e.Contact.Destroyed || e.Contact.Landed {
			continue
		}
		near = tree.Within(e.Contact.Position, NearMissDistance, near[:0])
		for _, j := range near {
			if j != i {
				other := s.Entities[j]
				s.post(Event{Type: NearMissEvent, EntityID: e.ID(), OtherID: other.ID(),
					Value: math.Distance(e.Contact.Position, other.Contact.Position)})
			}
		}
	}
}

// At schedules f to run at the start of the given tick, before the
// pilots.
func (s *Sim) At(tick int64, f func(*Sim)) {
	if s.scheduled == nil {
		s.scheduled = make(map[int64][]func(*Sim))
	}
	s.scheduled[tick] = append(s.scheduled[tick], f)
}

// Run steps the sim n times, stopping early if ctx is canceled.
func (s *Sim) Run(ctx context.Context, n int) error {
	for i := range n {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		s.Step()
	}
	s.lg.Info("run complete", slog.Int64("tick", s.Tick), slog.Any("events", s.Events))
	return nil
}

// SetDestination sends a piloted vehicle to g.
func (s *Sim) SetDestination(id string, g vehicle.Geo) error {
	e := s.Entity(id)
	if e == nil || !e.Piloted() {
		return fmt.Errorf("%s: %w", id, ErrUnknownEntity)
	}
	e.Pilot.SetDestination(g)
	return nil
}

// ClearDestination stops waypoint navigation for a piloted vehicle.
func (s *Sim) ClearDestination(id string) error {
	e := s.Entity(id)
	if e == nil || !e.Piloted() {
		return fmt.Errorf("%s: %w", id, ErrUnknownEntity)
	}
	e.Pilot.ClearDestination()
	return nil
}
