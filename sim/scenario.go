// sim/scenario.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/mmp/vtolai/config"
	"github.com/mmp/vtolai/log"
	"github.com/mmp/vtolai/math"
	"github.com/mmp/vtolai/pilot"
	"github.com/mmp/vtolai/vehicle"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// The scenario terrain is WorldSize x WorldSize cells of
	// WorldCellSize meters.
	WorldSize     = 257
	WorldCellSize = 50.0

	DefaultDt = 0.02 // s
)

var ErrUnknownScenario = errors.New("unknown scenario")

// Scenario sets up a sim for a particular situation.
type Scenario struct {
	Name        string
	Description string
	// Steps is the default run length.
	Steps int
	// Vehicles lists the IDs of the piloted vehicles it creates.
	Vehicles []string

	setup func(s *Sim, c config.Autopilot) error
}

var scenarios = []Scenario{
	{
		Name:        "patrol",
		Description: "take off from the ground, fly to a destination past the hills, and dodge crossing traffic",
		Steps:       6000,
		Vehicles:    []string{"vtol-1"},
		setup:       setupPatrol,
	},
	{
		Name:        "intercept",
		Description: "engage a moving target while under fire and with a missile inbound",
		Steps:       4000,
		Vehicles:    []string{"vtol-1"},
		setup:       setupIntercept,
	},
	{
		Name:        "formation",
		Description: "two followers keep station on a leader flying to a destination",
		Steps:       5000,
		Vehicles:    []string{"lead", "wing-1", "wing-2"},
		setup:       setupFormation,
	},
	{
		Name:        "bypass",
		Description: "reach a target on the far side of a steep ridge",
		Steps:       6000,
		Vehicles:    []string{"vtol-1"},
		setup:       setupBypass,
	},
}

// Scenarios returns all of the scenarios, sorted by name.
func Scenarios() []Scenario {
	return slices.SortedFunc(slices.Values(scenarios), func(a, b Scenario) int {
		return strings.Compare(a.Name, b.Name)
	})
}

func LookupScenario(name string) (Scenario, error) {
	if i := slices.IndexFunc(scenarios, func(sc Scenario) bool { return sc.Name == name }); i != -1 {
		return scenarios[i], nil
	}
	return Scenario{}, fmt.Errorf("%q: %w", name, ErrUnknownScenario)
}

// Build returns a sim set up for the scenario with c as the base pilot
// configuration.
func (sc Scenario) Build(c config.Autopilot, dt float64, seed int64, lg *log.Logger) (*Sim, error) {
	w, err := NewWorld(WorldSize, WorldCellSize)
	if err != nil {
		return nil, err
	}
	w.RefLat, w.RefLon = 47.6, -122.3

	lg = lg.With(slog.String("scenario", sc.Name))
	s := New(w, dt, seed, lg)
	if err := sc.setup(s, c); err != nil {
		return nil, fmt.Errorf("%s: %w", sc.Name, err)
	}
	lg.Info("scenario ready", slog.Any("world", w), slog.Int("entities", len(s.Entities)))
	return s, nil
}

func setupPatrol(s *Sim, c config.Autopilot) error {
	s.World.AddHill(1500, 1500, 400, 600)
	s.World.AddHill(-1000, 2500, 300, 500)
	s.World.AddHill(3000, -500, 250, 400)

	e, err := s.AddVehicle(VehicleSpec{
		ID:       "vtol-1",
		Config:   c,
		Body:     DefaultBodyParams(),
		Position: r3.Vec{},
		Heading:  r3.Vec{X: 1, Y: 1},
		Landed:   true,
	})
	if err != nil {
		return err
	}
	e.Command = pilot.CommandFlyTo
	dest := s.World.GeoOf(r3.Vec{X: 4500, Y: 3500, Z: c.DefaultAltitude})
	if err := s.SetDestination(e.ID(), dest); err != nil {
		return err
	}

	// Background traffic crossing the area.
	for range 3 {
		pos := r3.Vec{X: s.rand.Range(-5000, 5000), Y: -5000, Z: s.rand.Range(300, 1500)}
		vel := r3.Vec{X: s.rand.Range(-20, 20), Y: s.rand.Range(30, 60)}
		s.AddTraffic(pos, vel, s.rand.Range(5, 50))
	}

	// Once the vehicle is on its way, send something right at it.
	s.At(int64(30/s.Dt), func(s *Sim) {
		st := &e.Body.State
		pos := r3.Add(st.Position, r3.Scale(600, st.Forward))
		t := s.AddTraffic(pos, r3.Scale(-40, st.Forward), 20)
		t.Lifetime = s.Tick + int64(60/s.Dt)
		s.lg.Info("head-on traffic", slog.String("id", t.ID()))
	})
	return nil
}

func setupIntercept(s *Sim, c config.Autopilot) error {
	s.World.AddHill(0, 3000, 500, 800)

	c.BroadsideAttack = false
	w := &Weapons{
		Selected: &vehicle.Weapon{
			Kind:           vehicle.WeaponGun,
			MuzzleVelocity: 800,
			FixedMount:     true,
		},
		UnderFireUntil: -1,
	}
	e, err := s.AddVehicle(VehicleSpec{
		ID:       "vtol-1",
		Config:   c,
		Body:     DefaultBodyParams(),
		Position: r3.Vec{X: -3000, Z: 600},
		Heading:  r3.Vec{X: 1},
		Weapons:  w,
	})
	if err != nil {
		return err
	}

	target := s.AddTraffic(r3.Vec{X: 2500, Y: 800, Z: 150}, r3.Vec{X: -12, Y: 4}, 40)
	e.Command = pilot.CommandAttack
	e.TargetID = target.ID()

	s.At(int64(20/s.Dt), func(s *Sim) {
		w.UnderFireUntil = s.Tick + int64(15/s.Dt)
	})
	s.At(int64(40/s.Dt), func(s *Sim) {
		from := target.Contact.Position
		dir := math.Normalize(r3.Sub(e.Contact.Position, from))
		m := s.AddTraffic(from, r3.Scale(250, dir), 0.1)
		m.Contact.Projectile = true
		m.Lifetime = s.Tick + int64(20/s.Dt)
		w.MissileID = m.ID()
	})
	return nil
}

func setupFormation(s *Sim, c config.Autopilot) error {
	s.World.AddHill(2500, -1500, 350, 700)

	lead, err := s.AddVehicle(VehicleSpec{
		ID:       "lead",
		Config:   c,
		Body:     DefaultBodyParams(),
		Position: r3.Vec{Z: 700},
		Heading:  r3.Vec{X: 1},
	})
	if err != nil {
		return err
	}
	lead.Command = pilot.CommandFlyTo
	if err := s.SetDestination(lead.ID(), s.World.GeoOf(r3.Vec{X: 5500, Z: c.DefaultAltitude})); err != nil {
		return err
	}

	for i, pos := range []r3.Vec{{X: -400, Y: -300, Z: 700}, {X: -600, Y: 300, Z: 700}} {
		wing, err := s.AddVehicle(VehicleSpec{
			ID:       fmt.Sprintf("wing-%d", i+1),
			Config:   c,
			Body:     DefaultBodyParams(),
			Position: pos,
			Heading:  r3.Vec{X: 1},
		})
		if err != nil {
			return err
		}
		wing.Command = pilot.CommandFollow
		wing.LeaderID = lead.ID()
		wing.FollowIndex = i
	}
	return nil
}

func setupBypass(s *Sim, c config.Autopilot) error {
	s.World.AddRidge(r3.Vec{X: 1000, Y: -2500}, r3.Vec{X: 1000, Y: 2500}, 700, 150)

	c.BroadsideAttack = false
	e, err := s.AddVehicle(VehicleSpec{
		ID:       "vtol-1",
		Config:   c,
		Body:     DefaultBodyParams(),
		Position: r3.Vec{X: -1500, Z: 400},
		Heading:  r3.Vec{X: 1},
	})
	if err != nil {
		return err
	}

	target := s.AddTraffic(r3.Vec{X: 3000}, r3.Vec{}, 40)
	target.Contact.Position.Z = s.World.GroundLevel(3000, 0)
	target.Contact.Landed = true
	e.Command = pilot.CommandAttack
	e.TargetID = target.ID()
	return nil
}
