// sim/sim_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"context"
	gomath "math"
	"path/filepath"
	"slices"
	"testing"

	"github.com/mmp/vtolai/config"
	"github.com/mmp/vtolai/log"
	"github.com/mmp/vtolai/vehicle"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func buildScenario(t *testing.T, name string) *Sim {
	t.Helper()
	sc, err := LookupScenario(name)
	require.NoError(t, err)
	s, err := sc.Build(config.Default(), DefaultDt, 1, nil)
	require.NoError(t, err)
	return s
}

// firstModes returns the first mode reported by each vehicle.
func firstModes(events []Event) map[string]string {
	m := make(map[string]string)
	for _, ev := range events {
		if ev.Type != ModeChangedEvent {
			continue
		}
		if _, ok := m[ev.EntityID]; !ok {
			m[ev.EntityID] = ev.Mode
		}
	}
	return m
}

func TestScenarios(t *testing.T) {
	all := Scenarios()
	require.Len(t, all, 4)
	assert.True(t, slices.IsSortedFunc(all, func(a, b Scenario) int {
		if a.Name < b.Name {
			return -1
		} else if a.Name > b.Name {
			return 1
		}
		return 0
	}))

	_, err := LookupScenario("barrel-roll")
	assert.ErrorIs(t, err, ErrUnknownScenario)

	expect := map[string]map[string]string{
		"patrol":    {"vtol-1": "Takeoff"},
		"intercept": {"vtol-1": "Engage"},
		"formation": {"lead": "Waypoint", "wing-1": "Follow", "wing-2": "Follow"},
		"bypass":    {"vtol-1": "Engage"},
	}

	steps := 300
	if log.RaceEnabled {
		steps = 50
	}

	for _, sc := range all {
		t.Run(sc.Name, func(t *testing.T) {
			s := buildScenario(t, sc.Name)
			sub := s.Events.Subscribe()
			defer sub.Unsubscribe()

			for _, id := range sc.Vehicles {
				e := s.Entity(id)
				require.NotNil(t, e, id)
				assert.True(t, e.Piloted())
			}

			require.NoError(t, s.Run(context.Background(), steps))
			assert.Equal(t, int64(steps), s.Tick)

			for _, e := range s.Entities {
				p := e.Contact.Position
				assert.False(t, gomath.IsNaN(p.X+p.Y+p.Z), "%s: %v", e.ID(), p)
				if e.Piloted() {
					assert.GreaterOrEqual(t, p.Z, s.World.GroundLevel(p.X, p.Y)-1e-6, e.ID())
					assert.LessOrEqual(t, e.Actuators.Throttle, 1.)
					assert.GreaterOrEqual(t, e.Actuators.Throttle, 0.)
				}
			}

			assert.Equal(t, expect[sc.Name], firstModes(sub.Get()))
		})
	}
}

func TestBypassScenario(t *testing.T) {
	s := buildScenario(t, "bypass")
	sub := s.Events.Subscribe()
	defer sub.Unsubscribe()

	for range 10 {
		s.Step()
	}

	var modes []string
	for _, ev := range sub.Get() {
		if ev.Type == ModeChangedEvent && ev.EntityID == "vtol-1" {
			modes = append(modes, ev.Mode)
		}
	}
	require.GreaterOrEqual(t, len(modes), 2)
	assert.Equal(t, []string{"Engage", "Bypass"}, modes[:2])

	p := s.Entity("vtol-1").Pilot
	assert.True(t, p.Path.HasBypass())
	assert.NotEmpty(t, p.Path.BypassTargetID)
}

func TestPatrolTakeoff(t *testing.T) {
	if log.RaceEnabled {
		t.Skip("slow under the race detector")
	}

	s := buildScenario(t, "patrol")
	sub := s.Events.Subscribe()
	defer sub.Unsubscribe()

	e := s.Entity("vtol-1")
	require.NotNil(t, e)
	assert.True(t, e.Body.State.Landed)
	assert.False(t, e.Pilot.Airborne)

	require.NoError(t, s.Run(context.Background(), 1000))

	assert.True(t, e.Pilot.Airborne)
	assert.False(t, e.Body.State.Landed)
	assert.Greater(t, e.Body.State.RadarAltitude, 150.)
	assert.True(t, slices.ContainsFunc(sub.Get(), func(ev Event) bool {
		return ev.Type == AirborneEvent && ev.EntityID == "vtol-1"
	}))
}

func TestRunCanceled(t *testing.T) {
	s := buildScenario(t, "formation")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx, 10), context.Canceled)
	assert.Equal(t, int64(0), s.Tick)
}

func TestAddVehicle(t *testing.T) {
	s := New(flatWorld(t), DefaultDt, 1, nil)
	spec := VehicleSpec{
		ID:       "v",
		Config:   config.Default(),
		Body:     DefaultBodyParams(),
		Position: r3.Vec{Z: 300},
		Heading:  r3.Vec{Y: 1},
	}
	e, err := s.AddVehicle(spec)
	require.NoError(t, err)
	assert.True(t, e.Pilot.Airborne)
	assert.Equal(t, "v", e.ID())
	assert.Equal(t, r3.Vec{Z: 300}, e.Contact.Position)

	_, err = s.AddVehicle(spec)
	assert.ErrorIs(t, err, ErrDuplicateEntity)

	bad := spec
	bad.ID = "bad"
	bad.Config.MaxEngagementRange = -1
	_, err = s.AddVehicle(bad)
	assert.Error(t, err)

	tr := s.AddTraffic(r3.Vec{X: 100, Z: 300}, r3.Vec{X: 10}, 5)
	assert.NotEmpty(t, tr.ID())
	assert.False(t, tr.Piloted())
	assert.Equal(t, r3.Vec{X: 1}, tr.Contact.Forward)

	assert.ErrorIs(t, s.SetDestination("nobody", vehicle.Geo{}), ErrUnknownEntity)
	assert.ErrorIs(t, s.SetDestination(tr.ID(), vehicle.Geo{}), ErrUnknownEntity)
	require.NoError(t, s.SetDestination("v", s.World.GeoOf(r3.Vec{X: 100, Z: 300})))
	assert.True(t, e.Pilot.Path.HasDestination)

	assert.ErrorIs(t, s.ClearDestination(tr.ID()), ErrUnknownEntity)
	require.NoError(t, s.ClearDestination("v"))
	assert.False(t, e.Pilot.Path.HasDestination)
	assert.False(t, e.Pilot.Path.Active())
}

func TestTrafficLifetime(t *testing.T) {
	s := New(flatWorld(t), DefaultDt, 1, nil)
	tr := s.AddTraffic(r3.Vec{Z: 100}, r3.Vec{X: 10}, 5)
	tr.Lifetime = 5

	for range 4 {
		s.Step()
	}
	assert.False(t, tr.Contact.Destroyed)
	assert.InDelta(t, 0.8, tr.Contact.Position.X, 1e-9)
	s.Step()
	assert.True(t, tr.Contact.Destroyed)
	s.Step()
	assert.InDelta(t, 1, tr.Contact.Position.X, 1e-9)
}

func TestNearMiss(t *testing.T) {
	s := New(flatWorld(t), DefaultDt, 1, nil)
	sub := s.Events.Subscribe()
	defer sub.Unsubscribe()

	_, err := s.AddVehicle(VehicleSpec{
		ID:       "v",
		Config:   config.Default(),
		Body:     DefaultBodyParams(),
		Position: r3.Vec{Z: 300},
		Heading:  r3.Vec{X: 1},
	})
	require.NoError(t, err)
	s.AddTraffic(r3.Vec{X: 10, Z: 300}, r3.Vec{}, 5)

	s.Step()
	i := slices.IndexFunc(sub.Get(), func(ev Event) bool { return ev.Type == NearMissEvent })
	require.NotEqual(t, -1, i)
}

func TestAt(t *testing.T) {
	s := New(flatWorld(t), DefaultDt, 1, nil)
	var ticks []int64
	s.At(3, func(s *Sim) { ticks = append(ticks, s.Tick) })
	s.At(3, func(s *Sim) { ticks = append(ticks, -s.Tick) })
	s.At(5, func(s *Sim) { ticks = append(ticks, s.Tick) })

	for range 10 {
		s.Step()
	}
	assert.Equal(t, []int64{3, -3, 5}, ticks)
	assert.Empty(t, s.scheduled)
}

func TestRecorder(t *testing.T) {
	s := buildScenario(t, "formation")
	s.Recorder = NewRecorder(10)

	require.NoError(t, s.Run(context.Background(), 100))
	require.Len(t, s.Recorder.Frames, 10)
	assert.Equal(t, int64(10), s.Recorder.Frames[0].Tick)

	track := s.Recorder.Track("wing-1")
	require.Len(t, track, 10)
	assert.Equal(t, "Follow", track[0].Mode)
	assert.Empty(t, s.Recorder.Track("nobody"))

	path := filepath.Join(t.TempDir(), "rec", "formation.rec")
	require.NoError(t, s.Recorder.Save(path))
	r, err := LoadRecording(path)
	require.NoError(t, err)
	if diff := cmp.Diff(s.Recorder, r); diff != "" {
		t.Errorf("recording mismatch (-saved +loaded):\n%s", diff)
	}

	assert.ErrorIs(t, NewRecorder(0).Save(path), ErrEmptyRecording)
	_, err = LoadRecording(filepath.Join(t.TempDir(), "missing.rec"))
	assert.Error(t, err)
}

func TestFiringSolution(t *testing.T) {
	target := &vehicle.Contact{Position: r3.Vec{X: 1000}}
	dir, ok := FiringSolution(r3.Vec{}, r3.Vec{}, target, 800)
	require.True(t, ok)
	assertVecNear(t, r3.Vec{X: 1}, dir, 1e-9)

	// Crossing target: lead it.
	target.Velocity = r3.Vec{Y: 200}
	dir, ok = FiringSolution(r3.Vec{}, r3.Vec{}, target, 1000)
	require.True(t, ok)
	tof := gomath.Sqrt(1e6 / 960000)
	expect := r3.Unit(r3.Vec{X: 1000, Y: 200 * tof})
	assertVecNear(t, expect, dir, 1e-9)

	// Too fast to catch.
	target.Velocity = r3.Vec{X: 2000}
	_, ok = FiringSolution(r3.Vec{}, r3.Vec{}, target, 800)
	assert.False(t, ok)

	_, ok = FiringSolution(r3.Vec{}, r3.Vec{}, target, 0)
	assert.False(t, ok)
}

func TestWeapons(t *testing.T) {
	w := &Weapons{UnderFireUntil: 5}
	_, ok := w.SelectedWeapon()
	assert.False(t, ok)

	self := &vehicle.State{}
	w.update(5, self, nil, nil)
	assert.True(t, w.UnderFire())
	w.update(6, self, nil, nil)
	assert.False(t, w.UnderFire())

	w.Selected = &vehicle.Weapon{Kind: vehicle.WeaponGun, MuzzleVelocity: 800}
	target := &vehicle.Contact{Position: r3.Vec{Y: 500}}
	missile := &vehicle.Contact{ID: "m", Position: r3.Vec{X: 300, Y: 400}}
	w.MissileID = "m"
	w.update(7, self, target, missile)

	wep, ok := w.SelectedWeapon()
	require.True(t, ok)
	require.NotNil(t, wep.FiringSolution)
	assertVecNear(t, r3.Vec{Y: 1}, *wep.FiringSolution, 1e-9)
	d, ok := w.MissileIncoming()
	assert.True(t, ok)
	assert.InDelta(t, 500, d, 1e-9)
	assert.Equal(t, "m", w.IncomingMissileID())

	missile.Destroyed = true
	w.Selected.Kind = vehicle.WeaponMissile
	w.update(8, self, target, missile)
	_, ok = w.MissileIncoming()
	assert.False(t, ok)
	assert.Empty(t, w.IncomingMissileID())
	assert.Nil(t, w.Selected.FiringSolution)
}

func TestEchelon(t *testing.T) {
	e := Echelon{Spacing: 60}
	assert.Equal(t, r3.Vec{X: 60, Z: -60}, e.SlotOffset(0))
	assert.Equal(t, r3.Vec{X: 120, Z: -120}, e.SlotOffset(1))
}

var _ vehicle.Formation = Echelon{}
var _ vehicle.Weapons = (*Weapons)(nil)
var _ vehicle.Environment = (*World)(nil)
var _ vehicle.Pathfinder = (*Pathfinder)(nil)
