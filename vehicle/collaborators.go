// vehicle/collaborators.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package vehicle

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Geo is a geographic position: latitude and longitude in degrees and
// altitude in meters.
type Geo struct {
	Lat, Lon, Alt float64
}

// Hit describes where a ray or sphere cast met terrain.
type Hit struct {
	Distance float64
	Point    r3.Vec
	Normal   r3.Vec
}

// Environment is the pilot's view of the world it flies through.
type Environment interface {
	// Raycast returns the first terrain hit along dir (unit) from origin
	// within maxDist.
	Raycast(origin, dir r3.Vec, maxDist float64) (Hit, bool)
	// SphereCast sweeps a sphere of the given radius along dir.
	SphereCast(origin, dir r3.Vec, radius, maxDist float64) (Hit, bool)
	// HasOcean reports whether the body has a sea-level surface; when
	// it has no solid surface at all, altitude above sea level is the
	// only floor.
	HasOcean() bool
	HasSolidSurface() bool

	Geodesy
}

// Geodesy converts between world and geographic coordinates.
type Geodesy interface {
	GeoOf(p r3.Vec) Geo
	WorldOf(g Geo) r3.Vec
}

// GeoDistance returns the straight-line distance between two geographic
// positions.
func GeoDistance(g Geodesy, a, b Geo) float64 {
	return r3.Norm(r3.Sub(g.WorldOf(a), g.WorldOf(b)))
}

type SurfaceType uint8

const (
	SurfaceStationary SurfaceType = 0
	SurfaceLand       SurfaceType = 1 << 0
	SurfaceWater      SurfaceType = 1 << 1
	SurfaceAmphibious             = SurfaceLand | SurfaceWater
)

var ErrUnknownSurface = errors.New("unknown surface type")

func ParseSurfaceType(s string) (SurfaceType, error) {
	switch strings.ToLower(s) {
	case "stationary":
		return SurfaceStationary, nil
	case "land", "":
		return SurfaceLand, nil
	case "water":
		return SurfaceWater, nil
	case "amphibious":
		return SurfaceAmphibious, nil
	default:
		return SurfaceLand, fmt.Errorf("%q: %w", s, ErrUnknownSurface)
	}
}

func (s SurfaceType) String() string {
	switch s {
	case SurfaceStationary:
		return "Stationary"
	case SurfaceLand:
		return "Land"
	case SurfaceWater:
		return "Water"
	case SurfaceAmphibious:
		return "Amphibious"
	default:
		return fmt.Sprintf("SurfaceType(%d)", int(s))
	}
}

// Allows reports whether a vehicle with surface type s may move over
// terrain of type t.
func (s SurfaceType) Allows(t SurfaceType) bool {
	return s&t != 0
}

// Traversal describes the vehicle for traversability queries.
type Traversal struct {
	Surface  SurfaceType
	MaxSlope float64 // degrees
	MinMass  float64
}

// Pathfinder answers routing questions over the traversability map.
type Pathfinder interface {
	// FindPath returns waypoints from start to end, ending at end; an
	// empty result means no path was found.
	FindPath(start, end Geo, t Traversal) []Geo
	IsDirectPathTraversable(start, end Geo, t Traversal) bool
}

// Formation provides slot offsets relative to a formation leader,
// expressed as (X right, Y up, Z forward).
type Formation interface {
	SlotOffset(index int) r3.Vec
}

type WeaponKind int

const (
	WeaponNone WeaponKind = iota
	WeaponGun
	WeaponRocket
	WeaponLaser
	WeaponMissile
)

func (k WeaponKind) String() string {
	switch k {
	case WeaponNone:
		return "None"
	case WeaponGun:
		return "Gun"
	case WeaponRocket:
		return "Rocket"
	case WeaponLaser:
		return "Laser"
	case WeaponMissile:
		return "Missile"
	default:
		return fmt.Sprintf("WeaponKind(%d)", int(k))
	}
}

// HasFiringSolution reports whether weapons of this kind are aimed by
// pointing the vehicle, and so can provide a firing solution.
func (k WeaponKind) HasFiringSolution() bool {
	return k == WeaponGun || k == WeaponRocket || k == WeaponLaser
}

type Weapon struct {
	Kind WeaponKind
	// MuzzleVelocity is zero if unknown.
	MuzzleVelocity float64
	FixedMount     bool
	// FiringSolution is the direction to point to hit the current
	// target, if one has been computed.
	FiringSolution *r3.Vec
}

// Weapons is the weapon manager's view for the pilot.
type Weapons interface {
	SelectedWeapon() (Weapon, bool)
	UnderFire() bool
	// MissileIncoming returns the distance to the nearest inbound
	// missile, if there is one.
	MissileIncoming() (float64, bool)
	IncomingMissileID() string
}
