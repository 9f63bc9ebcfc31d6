// sim/weapons.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"github.com/mmp/vtolai/math"
	"github.com/mmp/vtolai/vehicle"

	"gonum.org/v1/gonum/spatial/r3"
)

// Weapons is a scripted weapon manager: the scenario decides what's
// selected and when the vehicle is under fire, and the sim keeps the
// firing solution and missile range current.
type Weapons struct {
	Selected *vehicle.Weapon
	// UnderFireUntil is the tick through which the vehicle considers
	// itself under fire.
	UnderFireUntil int64
	// MissileID is the ID of the inbound missile, if any.
	MissileID string

	tick        int64
	missileDist float64
	missileLive bool
}

func (w *Weapons) SelectedWeapon() (vehicle.Weapon, bool) {
	if w.Selected == nil {
		return vehicle.Weapon{}, false
	}
	return *w.Selected, true
}

func (w *Weapons) UnderFire() bool {
	return w.tick <= w.UnderFireUntil
}

func (w *Weapons) MissileIncoming() (float64, bool) {
	return w.missileDist, w.missileLive
}

func (w *Weapons) IncomingMissileID() string {
	if !w.missileLive {
		return ""
	}
	return w.MissileID
}

// update refreshes the weapon state before the pilot runs.
func (w *Weapons) update(tick int64, self *vehicle.State, target, missile *vehicle.Contact) {
	w.tick = tick

	w.missileLive = missile != nil && !missile.Destroyed
	if w.missileLive {
		w.missileDist = math.Distance(self.Position, missile.Position)
	} else {
		w.missileDist = 0
	}

	if w.Selected == nil {
		return
	}
	w.Selected.FiringSolution = nil
	if target != nil && !target.Destroyed && w.Selected.Kind.HasFiringSolution() {
		if dir, ok := FiringSolution(self.Position, self.Velocity, target, w.Selected.MuzzleVelocity); ok {
			w.Selected.FiringSolution = &dir
		}
	}
}

// FiringSolution returns the direction to fire a projectile with the
// given muzzle velocity from a shooter at pos, moving at vel, so that it
// meets the target. Gravity is ignored.
func FiringSolution(pos, vel r3.Vec, target *vehicle.Contact, muzzleVelocity float64) (r3.Vec, bool) {
	if muzzleVelocity <= 0 {
		return r3.Vec{}, false
	}
	rel := r3.Sub(target.Position, pos)
	relVel := r3.Sub(target.Velocity, vel)

	// Solve |rel + relVel t| = muzzleVelocity t for the smallest
	// positive t.
	a := r3.Norm2(relVel) - muzzleVelocity*muzzleVelocity
	b := 2 * r3.Dot(rel, relVel)
	c := r3.Norm2(rel)
	var t float64
	if math.Abs(a) < 1e-9 {
		if b >= 0 {
			return r3.Vec{}, false
		}
		t = -c / b
	} else {
		disc := b*b - 4*a*c
		if disc < 0 {
			return r3.Vec{}, false
		}
		sq := math.Sqrt(disc)
		t0, t1 := (-b-sq)/(2*a), (-b+sq)/(2*a)
		t = min(t0, t1)
		if t <= 0 {
			t = max(t0, t1)
		}
	}
	if t <= 0 {
		return r3.Vec{}, false
	}
	return math.Normalize(r3.Add(rel, r3.Scale(t, relVel))), true
}

// Echelon is a formation where each follower flies Spacing behind and
// Spacing to the right of the one ahead of it.
type Echelon struct {
	Spacing float64
}

func (e Echelon) SlotOffset(index int) r3.Vec {
	n := float64(index + 1)
	return r3.Vec{X: n * e.Spacing, Z: -n * e.Spacing}
}
