// control/throttle.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package control

import (
	"github.com/mmp/vtolai/config"
	"github.com/mmp/vtolai/math"
)

const (
	ThrottleP = 0.5
	ThrottleD = 0.55
	ThrottleI = 0.03

	// BrakeThreshold is the raw (unclamped) throttle command below which
	// the brakes are applied to shed altitude.
	BrakeThreshold = -5
)

// Throttle holds altitude by commanding throttle from the radar altitude
// error and vertical speed.
type Throttle struct {
	// Integral is kept in [-1,1].
	Integral float64
}

func (t *Throttle) Reset() {
	t.Integral = 0
}

// Update returns the throttle setting in [0,1] and whether the brakes
// should be applied. A zero target altitude means the vehicle wants to
// be on the ground.
func (t *Throttle) Update(targetAlt, radarAlt, vspeed, dt float64) (float64, bool) {
	if targetAlt == 0 {
		return 0, true
	}

	err := targetAlt - radarAlt
	p := ThrottleP * err
	d := ThrottleD * vspeed
	t.Integral = math.Clamp(t.Integral+err*dt, -1, 1)
	raw := p + ThrottleI*t.Integral - d

	return math.Clamp01(raw), raw < BrakeThreshold
}

// VerticalSpeed returns the commanded climb (positive) or descent rate
// for reaching targetAlt from alt, scaled by the configured climb rate.
func VerticalSpeed(targetAlt, alt, climbRate float64) float64 {
	if targetAlt == 0 {
		return -climbRate
	}
	return math.Clamp(1-(targetAlt-alt)/targetAlt, -1, 1) * climbRate
}

// SanitizeSpeed clamps a target speed to [0, MaxSpeed], replacing NaN
// with the combat speed.
func SanitizeSpeed(speed float64, c *config.Autopilot) float64 {
	if math.IsNaN(speed) {
		speed = c.CombatSpeed
	}
	return math.Clamp(speed, 0, c.MaxSpeed)
}
