// pilot/fakes_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package pilot

import (
	"testing"

	"github.com/mmp/vtolai/config"
	"github.com/mmp/vtolai/vehicle"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// flatWorld is level ground at z=0; world x/y map directly to lon/lat.
type flatWorld struct{}

func (flatWorld) cast(origin, dir r3.Vec, radius, maxDist float64) (vehicle.Hit, bool) {
	if dir.Z >= 0 {
		return vehicle.Hit{}, false
	}
	t := (origin.Z - radius) / -dir.Z
	if t < 0 || t > maxDist {
		return vehicle.Hit{}, false
	}
	p := r3.Add(origin, r3.Scale(t, dir))
	p.Z = 0
	return vehicle.Hit{Distance: t, Point: p, Normal: r3.Vec{Z: 1}}, true
}

func (w flatWorld) Raycast(origin, dir r3.Vec, maxDist float64) (vehicle.Hit, bool) {
	return w.cast(origin, dir, 0, maxDist)
}

func (w flatWorld) SphereCast(origin, dir r3.Vec, radius, maxDist float64) (vehicle.Hit, bool) {
	return w.cast(origin, dir, radius, maxDist)
}

func (flatWorld) HasOcean() bool        { return false }
func (flatWorld) HasSolidSurface() bool { return true }
func (flatWorld) GeoOf(p r3.Vec) vehicle.Geo {
	return vehicle.Geo{Lat: p.Y, Lon: p.X, Alt: p.Z}
}
func (flatWorld) WorldOf(g vehicle.Geo) r3.Vec {
	return r3.Vec{X: g.Lon, Y: g.Lat, Z: g.Alt}
}

type fakePathfinder struct {
	blocked bool
	route   []vehicle.Geo
	checks  int
	finds   int
}

func (f *fakePathfinder) FindPath(start, end vehicle.Geo, t vehicle.Traversal) []vehicle.Geo {
	f.finds++
	return f.route
}

func (f *fakePathfinder) IsDirectPathTraversable(start, end vehicle.Geo, t vehicle.Traversal) bool {
	f.checks++
	return !f.blocked
}

type fakeWeapons struct {
	weapon      *vehicle.Weapon
	underFire   bool
	missileDist float64
	missileID   string
}

func (f *fakeWeapons) SelectedWeapon() (vehicle.Weapon, bool) {
	if f.weapon == nil {
		return vehicle.Weapon{}, false
	}
	return *f.weapon, true
}

func (f *fakeWeapons) UnderFire() bool { return f.underFire }

func (f *fakeWeapons) MissileIncoming() (float64, bool) {
	return f.missileDist, f.missileID != ""
}

func (f *fakeWeapons) IncomingMissileID() string { return f.missileID }

// slots puts each follower 50m behind and 50m to the right of the
// previous one.
type slots struct{}

func (slots) SlotOffset(i int) r3.Vec {
	return r3.Scale(float64(i+1), r3.Vec{X: 50, Z: -50})
}

const testDt = 0.02

func testConfig() config.Autopilot {
	c := config.Default()
	c.MaxSpeed = 100
	c.CombatSpeed = 40
	c.MinEngagementRange = 500
	c.MaxEngagementRange = 4000
	c.AvoidMass = 1
	return c
}

func newTestPilot(t *testing.T, c config.Autopilot, pf *fakePathfinder, w vehicle.Weapons) *Pilot {
	t.Helper()
	if pf == nil {
		pf = &fakePathfinder{}
	}
	coll := Collaborators{Environment: flatWorld{}, Pathfinder: pf, Formation: slots{}}
	if w != nil {
		coll.Weapons = w
	}
	p, err := New("self", c, coll, testDt, 1, nil)
	require.NoError(t, err)
	return p
}

// airborne returns a pilot that has finished its takeoff.
func airborne(t *testing.T, c config.Autopilot, pf *fakePathfinder, w vehicle.Weapons) *Pilot {
	p := newTestPilot(t, c, pf, w)
	p.Airborne = true
	return p
}

func hoverState(pos r3.Vec) *vehicle.State {
	return &vehicle.State{
		Position:      pos,
		Forward:       r3.Vec{X: 1},
		Top:           r3.Vec{Z: 1},
		Right:         r3.Vec{Y: -1},
		Up:            r3.Vec{Z: 1},
		RadarAltitude: pos.Z,
		Altitude:      pos.Z,
		Mass:          10,
		Gravity:       9.81,
	}
}

func stationary(id string, pos r3.Vec) *vehicle.Contact {
	return &vehicle.Contact{ID: id, Position: pos, Forward: r3.Vec{X: 1}, Mass: 10}
}
