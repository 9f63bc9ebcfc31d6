// collision/collision.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package collision

import (
	"log/slog"

	"github.com/mmp/vtolai/math"
	"github.com/mmp/vtolai/vehicle"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// ScanInterval is the number of ticks between traffic scans.
	ScanInterval = 20
	// InitialTicker is the ticker value on activation, so the first
	// scan happens shortly after the pilot takes over.
	InitialTicker = 6

	// SeparationSquared is the squared miss distance below which a
	// predicted encounter counts as a collision.
	SeparationSquared = 2500 // m^2
	Step              = 0.5  // s
)

// Options configures a traffic scan.
type Options struct {
	SelfID   string
	LeaderID string
	MaxDrift float64 // degrees
	// Contacts lighter than AvoidMass are ignored.
	AvoidMass float64
	// IncomingMissileID is left to evasive maneuvering rather than
	// dodged.
	IncomingMissileID string
}

// Horizon returns how far ahead to look: vehicles that can't drift much
// need more warning.
func (o Options) Horizon() float64 {
	return 5 * math.Clamp(10/o.MaxDrift, 1, 10)
}

// Predictor holds the most recent dodge decision. Dodge is nil when no
// collision is predicted; scans run every ScanInterval ticks and the
// result holds until the next scan.
type Predictor struct {
	Ticker int
	Dodge  *r3.Vec
}

func (p *Predictor) Reset() {
	p.Ticker = InitialTicker
	p.Dodge = nil
}

// Update advances the ticker, scanning traffic when it expires, and
// returns the current dodge direction, if any.
func (p *Predictor) Update(s *vehicle.State, traffic []*vehicle.Contact, opts Options) *r3.Vec {
	if p.Ticker > 0 {
		p.Ticker--
		return p.Dodge
	}

	p.Ticker = ScanInterval
	p.Dodge = nil

	horizon := opts.Horizon()
	for _, c := range traffic {
		if !opts.consider(s, c) {
			continue
		}
		if d, ok := Predict(s, c, horizon, Step, opts.IncomingMissileID); ok {
			p.Dodge = &d
			break
		}
	}
	return p.Dodge
}

func (o Options) consider(s *vehicle.State, c *vehicle.Contact) bool {
	if c == nil || c.Destroyed || c.ID == o.SelfID || c.Mass < o.AvoidMass {
		return false
	}
	// Our followers keep station on us; they're responsible for not
	// hitting us.
	if o.SelfID != "" && c.LeaderID == o.SelfID {
		return false
	}
	if s.LandedOrSplashed() && o.LeaderID != "" && c.ID == o.LeaderID {
		return false
	}
	return true
}

// Predict steps both trajectories forward from 0.5s out to maxTime in
// interval increments and reports a dodge direction along the vehicle's
// right axis, away from the contact, at the first step where they come
// within collision range. Projectiles and the incoming missile never
// produce a dodge.
func Predict(s *vehicle.State, c *vehicle.Contact, maxTime, interval float64, incomingMissileID string) (r3.Vec, bool) {
	if c.Projectile || (incomingMissileID != "" && c.ID == incomingMissileID) {
		return r3.Vec{}, false
	}

	for t := min(0.5, maxTime); t < maxTime; t = math.MoveTowards(t, maxTime, interval) {
		rel := r3.Sub(c.PredictPosition(t), s.PredictPosition(t))
		if r3.Norm2(rel) < SeparationSquared {
			if r3.Dot(rel, s.Right) > 0 {
				return r3.Scale(-1, s.Right), true
			}
			return s.Right, true
		}
	}
	return r3.Vec{}, false
}

func (p *Predictor) LogValue() slog.Value {
	if p.Dodge == nil {
		return slog.GroupValue(slog.Int("ticker", p.Ticker))
	}
	return slog.GroupValue(slog.Int("ticker", p.Ticker), slog.Any("dodge", *p.Dodge))
}
