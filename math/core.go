// math/core.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	gomath "math"

	"golang.org/x/exp/constraints"
)

// Radians converts an angle expressed in degrees to radians
func Radians(d float64) float64 {
	return d / 180 * gomath.Pi
}

// Degrees converts an angle expressed in radians to degrees
func Degrees(r float64) float64 {
	return r * 180 / gomath.Pi
}

func SafeACos(a float64) float64 {
	return gomath.Acos(Clamp(a, -1, 1))
}

func Sqrt(a float64) float64 {
	return gomath.Sqrt(a)
}

// Sign returns -1, 0, or 1 according to the sign of v.
func Sign[V constraints.Signed | constraints.Float](v V) V {
	if v > 0 {
		return 1
	} else if v < 0 {
		return -1
	}
	return 0
}

// SignNonZero is like Sign but treats zero as positive, so the result
// can always be used as a direction multiplier.
func SignNonZero(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func Abs[V constraints.Integer | constraints.Float](x V) V {
	if x < 0 {
		return -x
	}
	return x
}

func Sqr[V constraints.Integer | constraints.Float](v V) V { return v * v }

// Clamp restricts the value x to the range [low, high].
func Clamp[T constraints.Ordered](x T, low T, high T) T {
	if x < low {
		return low
	} else if x > high {
		return high
	}
	return x
}

func Clamp01(x float64) float64 {
	return Clamp(x, 0, 1)
}

// Lerp performs linear interpolation between a and b using the
// parameter x, which is not clamped.
func Lerp(x float64, a float64, b float64) float64 {
	return (1-x)*a + x*b
}

// MoveTowards moves cur toward target by at most maxDelta.
func MoveTowards(cur, target, maxDelta float64) float64 {
	if Abs(target-cur) <= maxDelta {
		return target
	}
	return cur + Sign(target-cur)*maxDelta
}

func IsNaN(v float64) bool {
	return gomath.IsNaN(v)
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !gomath.IsNaN(v) && !gomath.IsInf(v, 0)
}
