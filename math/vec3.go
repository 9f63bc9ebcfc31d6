// math/vec3.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	gomath "math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vectors are gonum's r3.Vec throughout. The helpers here cover the
// handful of operations the pilot needs that r3 doesn't provide directly.
// Angles are in degrees unless the parameter name says otherwise.

// Normalize returns v scaled to unit length, or the zero vector if v has
// zero length. (r3.Unit returns NaNs in that case.)
func Normalize(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n == 0 || !IsFinite(n) {
		return r3.Vec{}
	}
	return r3.Scale(1/n, v)
}

func Length(v r3.Vec) float64 {
	return r3.Norm(v)
}

func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

func DistanceSquared(a, b r3.Vec) float64 {
	return r3.Norm2(r3.Sub(a, b))
}

// Project returns the component of v along onto.
func Project(v, onto r3.Vec) r3.Vec {
	d := r3.Norm2(onto)
	if d == 0 {
		return r3.Vec{}
	}
	return r3.Scale(r3.Dot(v, onto)/d, onto)
}

// ProjectOnPlane removes the component of v along the plane normal n.
func ProjectOnPlane(v, n r3.Vec) r3.Vec {
	return r3.Sub(v, Project(v, n))
}

// Angle returns the unsigned angle between a and b in degrees. It is
// zero if either vector has zero length.
func Angle(a, b r3.Vec) float64 {
	d := gomath.Sqrt(r3.Norm2(a) * r3.Norm2(b))
	if d < 1e-15 {
		return 0
	}
	return Degrees(SafeACos(r3.Dot(a, b) / d))
}

// SignedAngle returns the angle between from and to, negated when to
// points away from the reference direction right.
func SignedAngle(from, to, right r3.Vec) float64 {
	return SignNonZero(r3.Dot(to, right)) * Angle(from, to)
}

// LerpVec interpolates between a and b; t is not clamped, so values
// outside [0,1] extrapolate.
func LerpVec(t float64, a, b r3.Vec) r3.Vec {
	return r3.Add(r3.Scale(1-t, a), r3.Scale(t, b))
}

// RotateTowards rotates cur toward target by at most maxRadians while
// moving its length toward target's by at most maxLengthDelta. When the
// angle between them is within maxRadians, the result points along target.
func RotateTowards(cur, target r3.Vec, maxRadians, maxLengthDelta float64) r3.Vec {
	lc, lt := r3.Norm(cur), r3.Norm(target)
	if lc == 0 || lt == 0 {
		// No direction to speak of; just move linearly.
		delta := r3.Sub(target, cur)
		dl := r3.Norm(delta)
		if dl <= maxLengthDelta || dl == 0 {
			return target
		}
		return r3.Add(cur, r3.Scale(maxLengthDelta/dl, delta))
	}

	length := MoveTowards(lc, lt, maxLengthDelta)
	uc, ut := r3.Scale(1/lc, cur), r3.Scale(1/lt, target)

	theta := SafeACos(r3.Dot(uc, ut))
	if theta <= maxRadians {
		return r3.Scale(length, ut)
	}

	axis := r3.Cross(uc, ut)
	if r3.Norm2(axis) < 1e-18 {
		// Antiparallel; any perpendicular axis works.
		axis = Perpendicular(uc)
	}
	return r3.Scale(length, r3.Rotate(uc, maxRadians, Normalize(axis)))
}

// Perpendicular returns an arbitrary unit vector perpendicular to v.
func Perpendicular(v r3.Vec) r3.Vec {
	other := r3.Vec{X: 1}
	if Abs(v.X) > 0.9*r3.Norm(v) {
		other = r3.Vec{Y: 1}
	}
	return Normalize(r3.Cross(v, other))
}

// Horizontal returns v with its component along up removed.
func Horizontal(v, up r3.Vec) r3.Vec {
	return ProjectOnPlane(v, up)
}

// Frame is an orthonormal basis with Forward, Up, and Right axes; it is
// used to express offsets relative to an entity's heading.
type Frame struct {
	Forward, Up, Right r3.Vec
}

// LookFrame builds a frame whose forward axis is along forward and whose
// up axis is as close to up as possible. If forward is parallel to up,
// an arbitrary horizontal forward axis is chosen.
func LookFrame(forward, up r3.Vec) Frame {
	u := Normalize(up)
	if u == (r3.Vec{}) {
		u = r3.Vec{Z: 1}
	}
	f := Normalize(ProjectOnPlane(forward, u))
	if f == (r3.Vec{}) {
		f = Perpendicular(u)
	}
	return Frame{Forward: f, Up: u, Right: r3.Cross(f, u)}
}

// Transform maps an offset expressed as (X right, Y up, Z forward) in
// the frame to world space.
func (f Frame) Transform(offset r3.Vec) r3.Vec {
	return r3.Add(r3.Add(r3.Scale(offset.X, f.Right), r3.Scale(offset.Y, f.Up)),
		r3.Scale(offset.Z, f.Forward))
}
