// config/config.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmp/vtolai/math"
	"github.com/mmp/vtolai/vehicle"
)

var (
	ErrInvalidRange = errors.New("invalid configuration range")
	ErrUnknownField = errors.New("unknown configuration field")
)

type BroadsideDirection string

const (
	BroadsidePort      BroadsideDirection = "Port"
	BroadsideEither    BroadsideDirection = "Either"
	BroadsideStarboard BroadsideDirection = "Starboard"
)

// Side returns -1 for port, 1 for starboard, and 0 when either side will
// do.
func (b BroadsideDirection) Side() int {
	switch b {
	case BroadsidePort:
		return -1
	case BroadsideStarboard:
		return 1
	default:
		return 0
	}
}

// Autopilot holds the tunable parameters of a single pilot. Distances
// are in meters, speeds in m/s, and angles in degrees.
type Autopilot struct {
	Surface string `json:"surface" mapstructure:"surface"`

	MaxPitchAngle   float64 `json:"maxPitchAngle" mapstructure:"maxPitchAngle"`
	CombatAltitude  float64 `json:"combatAltitude" mapstructure:"combatAltitude"`
	CombatSpeed     float64 `json:"combatSpeed" mapstructure:"combatSpeed"`
	DefaultAltitude float64 `json:"defaultAltitude" mapstructure:"defaultAltitude"`
	MinAltitude     float64 `json:"minAltitude" mapstructure:"minAltitude"`
	ClimbRate       float64 `json:"climbRate" mapstructure:"climbRate"`
	MaxSpeed        float64 `json:"maxSpeed" mapstructure:"maxSpeed"`
	MaxDrift        float64 `json:"maxDrift" mapstructure:"maxDrift"`
	TargetPitch     float64 `json:"targetPitch" mapstructure:"targetPitch"`
	MaxBankAngle    float64 `json:"maxBankAngle" mapstructure:"maxBankAngle"`

	SteerMult    float64 `json:"steerMult" mapstructure:"steerMult"`
	SteerKi      float64 `json:"steerKi" mapstructure:"steerKi"`
	SteerDamping float64 `json:"steerDamping" mapstructure:"steerDamping"`

	PoweredSteering    bool               `json:"poweredSteering" mapstructure:"poweredSteering"`
	BroadsideAttack    bool               `json:"broadsideAttack" mapstructure:"broadsideAttack"`
	BroadsideDirection BroadsideDirection `json:"broadsideDirection" mapstructure:"broadsideDirection"`

	MinEngagementRange float64 `json:"minEngagementRange" mapstructure:"minEngagementRange"`
	MaxEngagementRange float64 `json:"maxEngagementRange" mapstructure:"maxEngagementRange"`

	TurnRadiusTwiddleFactorMin float64 `json:"turnRadiusTwiddleFactorMin" mapstructure:"turnRadiusTwiddleFactorMin"`
	TurnRadiusTwiddleFactorMax float64 `json:"turnRadiusTwiddleFactorMax" mapstructure:"turnRadiusTwiddleFactorMax"`
	// TerrainAlertFrequency is the base number of ticks between terrain
	// re-evaluations at low altitude.
	TerrainAlertFrequency int `json:"terrainAlertFrequency" mapstructure:"terrainAlertFrequency"`

	ManeuverRCS bool    `json:"maneuverRCS" mapstructure:"maneuverRCS"`
	AvoidMass   float64 `json:"avoidMass" mapstructure:"avoidMass"`

	// ExtendedRange raises the upper limits of several fields; see
	// SetExtendedRange.
	ExtendedRange bool `json:"extendedRange" mapstructure:"extendedRange"`

	PathCacheSize int `json:"pathCacheSize" mapstructure:"pathCacheSize"`
	// PathCacheTicks is how many ticks a cached traversability answer
	// stays valid.
	PathCacheTicks int64 `json:"pathCacheTicks" mapstructure:"pathCacheTicks"`
}

// Default returns the stock configuration for a hover vehicle.
func Default() Autopilot {
	return Autopilot{
		Surface:                    vehicle.SurfaceLand.String(),
		MaxPitchAngle:              30,
		CombatAltitude:             100,
		CombatSpeed:                40,
		DefaultAltitude:            1000,
		MinAltitude:                200,
		ClimbRate:                  20,
		MaxSpeed:                   30,
		MaxDrift:                   10,
		TargetPitch:                20,
		MaxBankAngle:               0,
		SteerMult:                  6,
		SteerKi:                    0.4,
		SteerDamping:               3,
		PoweredSteering:            true,
		BroadsideDirection:         BroadsideEither,
		MinEngagementRange:         500,
		MaxEngagementRange:         4000,
		TurnRadiusTwiddleFactorMin: 2,
		TurnRadiusTwiddleFactorMax: 3,
		TerrainAlertFrequency:      5,
		PathCacheSize:              256,
		PathCacheTicks:             250,
	}
}

// SurfaceType returns the parsed surface type; invalid names are caught
// by Validate and fall back to land here.
func (c *Autopilot) SurfaceType() vehicle.SurfaceType {
	st, _ := vehicle.ParseSurfaceType(c.Surface)
	return st
}

// Traversal returns the parameters used for pathfinding queries.
func (c *Autopilot) Traversal() vehicle.Traversal {
	return vehicle.Traversal{
		Surface:  c.SurfaceType(),
		MaxSlope: c.MaxPitchAngle,
		MinMass:  c.AvoidMass,
	}
}

// Validate checks that the configuration is internally consistent and
// that every field is within its limits.
func (c *Autopilot) Validate() error {
	var errs []error
	if _, err := vehicle.ParseSurfaceType(c.Surface); err != nil {
		errs = append(errs, err)
	}
	switch c.BroadsideDirection {
	case BroadsidePort, BroadsideEither, BroadsideStarboard:
	default:
		errs = append(errs, fmt.Errorf("broadsideDirection %q: %w", c.BroadsideDirection, ErrInvalidRange))
	}

	lim := c.Limits()
	for _, f := range Fields() {
		v := c.Get(f)
		if r := lim[f]; v < r.Min || v > r.Max || math.IsNaN(v) {
			errs = append(errs, fmt.Errorf("%s = %g not in [%g, %g]: %w", f, v, r.Min, r.Max, ErrInvalidRange))
		}
	}

	if c.MinEngagementRange > c.MaxEngagementRange {
		errs = append(errs, fmt.Errorf("minEngagementRange %g > maxEngagementRange %g: %w",
			c.MinEngagementRange, c.MaxEngagementRange, ErrInvalidRange))
	}
	if c.TurnRadiusTwiddleFactorMin > c.TurnRadiusTwiddleFactorMax {
		errs = append(errs, fmt.Errorf("turnRadiusTwiddleFactorMin %g > turnRadiusTwiddleFactorMax %g: %w",
			c.TurnRadiusTwiddleFactorMin, c.TurnRadiusTwiddleFactorMax, ErrInvalidRange))
	}
	if c.TerrainAlertFrequency < 1 {
		errs = append(errs, fmt.Errorf("terrainAlertFrequency %d < 1: %w", c.TerrainAlertFrequency, ErrInvalidRange))
	}
	if c.PathCacheSize < 1 {
		errs = append(errs, fmt.Errorf("pathCacheSize %d < 1: %w", c.PathCacheSize, ErrInvalidRange))
	}
	if c.PathCacheTicks < 1 {
		errs = append(errs, fmt.Errorf("pathCacheTicks %d < 1: %w", c.PathCacheTicks, ErrInvalidRange))
	}

	return errors.Join(errs...)
}

func (c *Autopilot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("surface", c.Surface),
		slog.Float64("max_speed", c.MaxSpeed),
		slog.Float64("combat_speed", c.CombatSpeed),
		slog.Float64("min_altitude", c.MinAltitude),
		slog.Float64("default_altitude", c.DefaultAltitude),
		slog.Bool("broadside", c.BroadsideAttack),
		slog.Bool("extended_range", c.ExtendedRange))
}
