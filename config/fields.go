// config/fields.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package config

import (
	"fmt"
	"strings"

	"github.com/mmp/vtolai/math"
)

// Field identifies one of the numeric Autopilot settings.
type Field int

const (
	FieldMaxPitchAngle Field = iota
	FieldCombatAltitude
	FieldCombatSpeed
	FieldDefaultAltitude
	FieldMinAltitude
	FieldClimbRate
	FieldMaxSpeed
	FieldMaxDrift
	FieldTargetPitch
	FieldMaxBankAngle
	FieldSteerMult
	FieldSteerKi
	FieldSteerDamping
	FieldMinEngagementRange
	FieldMaxEngagementRange
	FieldTurnRadiusTwiddleFactorMin
	FieldTurnRadiusTwiddleFactorMax
	FieldAvoidMass
	NumFields
)

var fieldNames = [NumFields]string{
	"maxPitchAngle", "combatAltitude", "combatSpeed", "defaultAltitude", "minAltitude",
	"climbRate", "maxSpeed", "maxDrift", "targetPitch", "maxBankAngle", "steerMult", "steerKi",
	"steerDamping", "minEngagementRange", "maxEngagementRange", "turnRadiusTwiddleFactorMin",
	"turnRadiusTwiddleFactorMax", "avoidMass",
}

func (f Field) String() string {
	if f < 0 || f >= NumFields {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

func Fields() []Field {
	f := make([]Field, NumFields)
	for i := range f {
		f[i] = Field(i)
	}
	return f
}

// ParseField returns the field with the given (case-insensitive) name.
func ParseField(s string) (Field, error) {
	for i, n := range fieldNames {
		if strings.EqualFold(n, s) {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownField)
}

type Range struct {
	Min, Max float64
}

// Limits gives the allowed range of each field.
type Limits [NumFields]Range

var normalLimits = Limits{
	FieldMaxPitchAngle:              {1, 90},
	FieldCombatAltitude:             {50, 5000},
	FieldCombatSpeed:                {5, 100},
	FieldDefaultAltitude:            {50, 5000},
	FieldMinAltitude:                {10, 1000},
	FieldClimbRate:                  {5, 100},
	FieldMaxSpeed:                   {5, 200},
	FieldMaxDrift:                   {1, 180},
	FieldTargetPitch:                {-10, 40},
	FieldMaxBankAngle:               {0, 90},
	FieldSteerMult:                  {0.2, 20},
	FieldSteerKi:                    {0.01, 1},
	FieldSteerDamping:               {0.1, 10},
	FieldMinEngagementRange:         {0, 6000},
	FieldMaxEngagementRange:         {500, 8000},
	FieldTurnRadiusTwiddleFactorMin: {1, 5},
	FieldTurnRadiusTwiddleFactorMax: {1, 5},
	FieldAvoidMass:                  {0, 100},
}

// extendedMax holds the upper limits that apply with ExtendedRange set;
// fields not listed keep their normal limit.
var extendedMax = map[Field]float64{
	FieldMaxPitchAngle:      90,
	FieldCombatSpeed:        300,
	FieldMaxSpeed:           400,
	FieldSteerMult:          200,
	FieldSteerDamping:       100,
	FieldMinEngagementRange: 20000,
	FieldMaxEngagementRange: 30000,
	FieldAvoidMass:          1000000,
}

// Limits returns the field limits currently in effect.
func (c *Autopilot) Limits() Limits {
	lim := normalLimits
	if c.ExtendedRange {
		for f, m := range extendedMax {
			lim[f].Max = m
		}
	}
	return lim
}

func (c *Autopilot) fieldPtr(f Field) *float64 {
	switch f {
	case FieldMaxPitchAngle:
		return &c.MaxPitchAngle
	case FieldCombatAltitude:
		return &c.CombatAltitude
	case FieldCombatSpeed:
		return &c.CombatSpeed
	case FieldDefaultAltitude:
		return &c.DefaultAltitude
	case FieldMinAltitude:
		return &c.MinAltitude
	case FieldClimbRate:
		return &c.ClimbRate
	case FieldMaxSpeed:
		return &c.MaxSpeed
	case FieldMaxDrift:
		return &c.MaxDrift
	case FieldTargetPitch:
		return &c.TargetPitch
	case FieldMaxBankAngle:
		return &c.MaxBankAngle
	case FieldSteerMult:
		return &c.SteerMult
	case FieldSteerKi:
		return &c.SteerKi
	case FieldSteerDamping:
		return &c.SteerDamping
	case FieldMinEngagementRange:
		return &c.MinEngagementRange
	case FieldMaxEngagementRange:
		return &c.MaxEngagementRange
	case FieldTurnRadiusTwiddleFactorMin:
		return &c.TurnRadiusTwiddleFactorMin
	case FieldTurnRadiusTwiddleFactorMax:
		return &c.TurnRadiusTwiddleFactorMax
	case FieldAvoidMass:
		return &c.AvoidMass
	default:
		return nil
	}
}

// Get returns the value of field f; it panics if f is not a valid field.
func (c *Autopilot) Get(f Field) float64 {
	p := c.fieldPtr(f)
	if p == nil {
		panic(fmt.Sprintf("%s: %v", f, ErrUnknownField))
	}
	return *p
}

// Set stores v in field f, clamped to the field's current limits, and
// returns the value actually stored.
func (c *Autopilot) Set(f Field, v float64) (float64, error) {
	p := c.fieldPtr(f)
	if p == nil {
		return 0, fmt.Errorf("%s: %w", f, ErrUnknownField)
	}
	if math.IsNaN(v) {
		return *p, fmt.Errorf("%s = NaN: %w", f, ErrInvalidRange)
	}
	r := c.Limits()[f]
	*p = math.Clamp(v, r.Min, r.Max)
	return *p, nil
}

// SetExtendedRange switches between the normal and extended field
// limits. Changing the limits clamps the current values immediately;
// the values from before the switch are queued on d and re-applied one
// tick later, so raising the limits never loses a setting while lowering
// them clamps values that no longer fit.
func (c *Autopilot) SetExtendedRange(on bool, d *Deferred) {
	if c.ExtendedRange == on {
		return
	}

	var prev [NumFields]float64
	for _, f := range Fields() {
		prev[f] = c.Get(f)
	}

	c.ExtendedRange = on
	lim := c.Limits()
	for _, f := range Fields() {
		if _, ok := extendedMax[f]; !ok {
			continue
		}
		p := c.fieldPtr(f)
		*p = math.Clamp(*p, lim[f].Min, lim[f].Max)
		if d != nil {
			d.Enqueue(f, prev[f], 1)
		}
	}
}
