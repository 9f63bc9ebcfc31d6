// terrain/terrain.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package terrain implements the pilot's terrain-threat sensor: a set of
// ray and sphere casts along the velocity vector, re-evaluated at a rate
// that drops with altitude, that produces a smoothed escape direction
// when the vehicle can no longer turn away from the terrain in time.
package terrain

import (
	"fmt"
	"log/slog"
	gomath "math"

	"github.com/mmp/vtolai/config"
	"github.com/mmp/vtolai/math"
	"github.com/mmp/vtolai/vehicle"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	DetectionRadius = 30.0 // m
	// ControlLag is the time it takes to get the control surfaces fully
	// deflected.
	ControlLag = 1.5 // s
	// MaxCorrectionAngle is the furthest the escape direction is rotated
	// from the velocity toward the terrain normal.
	MaxCorrectionAngle = 70.0 // degrees
)

type Params struct {
	TwiddleMin, TwiddleMax float64
	// BaseFrequency is the number of ticks between re-evaluations at
	// low altitude.
	BaseFrequency int
	// Dt is the fixed physics timestep.
	Dt float64
}

func MakeParams(c *config.Autopilot, dt float64) Params {
	return Params{
		TwiddleMin:    c.TurnRadiusTwiddleFactorMin,
		TwiddleMax:    c.TurnRadiusTwiddleFactorMax,
		BaseFrequency: max(1, c.TerrainAlertFrequency),
		Dt:            dt,
	}
}

// twiddle returns a turn radius fudge factor based on how far the
// vehicle has to roll to put its top toward the given normal.
func (p Params) twiddle(normal, top r3.Vec) float64 {
	return (p.TwiddleMin+p.TwiddleMax)/2 - (p.TwiddleMax-p.TwiddleMin)/2*r3.Dot(normal, top)
}

// Alert is the sensor's state. The Avoiding flag and correction
// direction persist between re-evaluations.
type Alert struct {
	Ticker int
	// TickerThreshold is the number of ticks between re-evaluations as
	// of the most recent update.
	TickerThreshold int

	Avoiding bool
	// Distance to the terrain along its normal; negative if nothing
	// was found.
	Distance    float64
	ThreatRange float64
	// Clearance is the distance the vehicle needs to turn away.
	Clearance float64

	Normal              r3.Vec
	Direction           r3.Vec
	CorrectionDirection r3.Vec
}

func (a *Alert) Reset() {
	*a = Alert{Distance: -1}
}

// TickerThreshold returns the number of ticks between re-evaluations:
// it scales with altitude squared and inversely with speed.
func TickerThreshold(base int, radarAltitude, speed float64) int {
	return base * int(1+math.Sqr(radarAltitude/500)/max(1, speed/150))
}

// Smooth blends the previous correction direction toward next, keeping
// beta of prev. The result is a unit vector between the two.
func Smooth(prev, next r3.Vec, beta float64) r3.Vec {
	v := math.Normalize(r3.Add(r3.Scale(beta, prev), r3.Scale(1-beta, next)))
	if v == (r3.Vec{}) {
		return math.Normalize(next)
	}
	return v
}

// Update advances the sensor by one tick and returns whether the vehicle
// is avoiding terrain.
func (a *Alert) Update(s *vehicle.State, env vehicle.Environment, p Params) bool {
	initialCorrection := !a.Avoiding

	a.Ticker++
	speed := s.Speed()
	a.TickerThreshold = TickerThreshold(p.BaseFrequency, s.RadarAltitude, speed)
	if a.Ticker < a.TickerThreshold {
		return a.Avoiding
	}
	a.Ticker = 0

	a.evaluate(s, env, p)

	if a.Avoiding {
		corr := a.correction(s)
		if initialCorrection || a.CorrectionDirection == (r3.Vec{}) {
			a.CorrectionDirection = corr
		} else {
			alpha := 2 * p.Dt
			beta := gomath.Pow(1-alpha, float64(a.TickerThreshold))
			a.CorrectionDirection = Smooth(a.CorrectionDirection, corr, beta)
		}
	}
	return a.Avoiding
}

// velocityFrame returns the velocity direction along with "down" and
// "right" directions relative to it.
func velocityFrame(s *vehicle.State) (vel, down, right r3.Vec) {
	vel = s.VelocityDirection()
	right = math.Normalize(r3.Cross(vel, s.Up))
	if right == (r3.Vec{}) {
		right = s.Right
	}
	down = math.Normalize(r3.Cross(vel, right))
	return
}

func (a *Alert) evaluate(s *vehicle.State, env vehicle.Environment, p Params) {
	a.Avoiding = false
	a.Distance = -1
	a.Clearance = 0

	speed := s.Speed()
	turnRadius := s.TurnRadius()
	a.ThreatRange = p.TwiddleMax*turnRadius + speed*ControlLag

	vel, down, right := velocityFrame(s)

	// Look 45 degrees off the velocity in four directions for immediate
	// danger.
	closest := -1.0
	for _, dir := range []r3.Vec{r3.Add(vel, down), r3.Sub(vel, down), r3.Sub(vel, right), r3.Add(vel, right)} {
		hit, ok := env.Raycast(s.Position, math.Normalize(dir), 1.5*DetectionRadius)
		if ok && (closest < 0 || hit.Distance < closest) {
			closest = hit.Distance
			a.Distance = hit.Distance * -r3.Dot(hit.Normal, vel)
			a.Normal = hit.Normal
		}
	}

	if a.Distance > 0 {
		a.Direction = math.Normalize(math.ProjectOnPlane(vel, a.Normal))
		a.Avoiding = true
	} else if hit, ok := env.SphereCast(s.Position, vel, DetectionRadius, a.ThreatRange); ok {
		a.Distance = hit.Distance * -r3.Dot(hit.Normal, vel)
		a.Normal = hit.Normal

		if _, ok := env.Raycast(s.Position, vel, a.ThreatRange); !ok {
			// Nothing directly ahead, so we're narrowly clearing the
			// terrain; fly over it rather than banking away.
			a.Normal = s.Up
			a.Direction = vel
		} else {
			a.Direction = math.Normalize(math.ProjectOnPlane(vel, a.Normal))
		}

		sinTheta := min(0, r3.Dot(vel, a.Normal))
		oneMinusCosTheta := 1 - gomath.Sqrt(max(0, 1-sinTheta*sinTheta))
		twiddle := p.twiddle(a.Normal, s.Top)
		lag := max(0, -r3.Dot(r3.Sub(s.PredictPosition(ControlLag*twiddle), s.Position), a.Normal))
		a.Clearance = twiddle*turnRadius*oneMinusCosTheta + lag

		if a.Distance < a.Clearance {
			a.Avoiding = true

			// Check halfway between the velocity and the surface: if the
			// terrain is closer there than expected, the slope is getting
			// steeper and its normal is the one to use.
			if phi := -gomath.Asin(sinTheta) / 2; phi > 0 {
				upcoming := math.RotateTowards(vel, a.Normal, phi, 0)
				if hit, ok := env.Raycast(s.Position, math.Normalize(upcoming), a.ThreatRange); ok &&
					hit.Distance < a.Distance/gomath.Sin(phi) {
					a.Normal = hit.Normal
					a.Direction = math.Normalize(math.ProjectOnPlane(vel, a.Normal))
				}
			}
		}
	}

	// Water isn't solid for the casts, so check the distance to sea
	// level separately when heading down.
	if env.HasOcean() || !env.HasSolidSurface() {
		if sinTheta := r3.Dot(vel, s.Up); sinTheta < 0 {
			oneMinusCosTheta := 1 - gomath.Sqrt(max(0, 1-sinTheta*sinTheta))
			twiddle := p.twiddle(s.Up, s.Top)
			lag := max(0, -r3.Dot(r3.Sub(s.PredictPosition(ControlLag*twiddle), s.Position), s.Up))
			clearance := twiddle*turnRadius*oneMinusCosTheta + lag

			if s.Altitude < clearance && (a.Distance < 0 || s.Altitude < a.Distance) {
				a.Clearance = clearance
				a.Distance = s.Altitude
				a.Normal = s.Up
				a.Direction = math.Normalize(math.ProjectOnPlane(vel, s.Up))
				a.Avoiding = true
			}
		}
	}
}

// correction returns the escape direction for the current alert: up to
// MaxCorrectionAngle toward the terrain normal, then back toward the
// horizontal at low speed so the vehicle doesn't stall.
func (a *Alert) correction(s *vehicle.State) r3.Vec {
	maxAngle := math.Radians(MaxCorrectionAngle)
	dir := a.Direction
	if dir == (r3.Vec{}) {
		dir = s.VelocityDirection()
	}

	c := math.RotateTowards(dir, a.Normal, maxAngle, 0)
	if horiz := math.Normalize(math.ProjectOnPlane(c, s.Up)); horiz != (r3.Vec{}) {
		c = math.RotateTowards(c, horiz, max(0, (1-s.Speed()/120)*0.8*maxAngle), 0)
	}
	return math.Normalize(c)
}

func (a *Alert) Status() string {
	return fmt.Sprintf("Terrain (%dm)", int(a.Distance))
}

func (a *Alert) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("avoiding", a.Avoiding),
		slog.Int("ticker", a.Ticker),
		slog.Int("ticker_threshold", a.TickerThreshold),
		slog.Float64("distance", a.Distance),
		slog.Float64("clearance", a.Clearance),
		slog.Float64("threat_range", a.ThreatRange),
		slog.Any("correction", a.CorrectionDirection))
}
