// pilot/tactical.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package pilot

import (
	"github.com/mmp/vtolai/math"
	"github.com/mmp/vtolai/vehicle"
)

const (
	WeaveLimit  = 15  // degrees
	WeaveFactor = 6.5 // degrees/s
	// MissileWeaveRange is the distance inside which an inbound missile
	// triggers weaving.
	MissileWeaveRange = 2500 // m
)

// tactical layers evasive maneuvering on top of the decision: full speed
// and a triangle-wave weave in yaw when threatened. It returns whether
// RCS should be on for combat.
func (p *Pilot) tactical(s *vehicle.State, sit *Situation, d *Decision) bool {
	if p.weapons == nil {
		p.WeaveAdjustment = 0
		return false
	}

	underFire := p.weapons.UnderFire()
	missileDist, missileIncoming := p.weapons.MissileIncoming()

	rcs := underFire || missileIncoming
	if sit.engageable() {
		_, selected := p.weapons.SelectedWeapon()
		r := p.Config.MaxEngagementRange
		rcs = rcs || selected || math.DistanceSquared(s.Position, sit.Target.Position) < r*r
	}

	if underFire || missileIncoming {
		d.Speed = p.Config.MaxSpeed
		if underFire || missileDist < MissileWeaveRange {
			if math.Abs(p.WeaveAdjustment)+p.dt*WeaveFactor > WeaveLimit {
				p.WeaveDirection *= -1
			}
			p.WeaveAdjustment += WeaveFactor * p.WeaveDirection * p.dt
		} else {
			p.WeaveAdjustment = 0
		}
	} else {
		p.WeaveAdjustment = 0
	}
	PilotLog(p.ID, p.Tick, PilotLogTactical, "under fire %v missile %v (%.0fm) weave %.2f rcs %v",
		underFire, missileIncoming, missileDist, p.WeaveAdjustment, rcs)

	return rcs
}
