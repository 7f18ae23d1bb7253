// Package geom provides the pose and rotation math shared by the coordinate
// frame pipeline, the camera state machine, and the extraction engine.
// Orientations are unit quaternions; positions are meters.
package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Axis identifies one of the three principal rotation axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Vec returns the unit basis vector for the axis.
func (a Axis) Vec() r3.Vec {
	switch a {
	case AxisX:
		return r3.Vec{X: 1}
	case AxisY:
		return r3.Vec{Y: 1}
	default:
		return r3.Vec{Z: 1}
	}
}

// String returns the lowercase axis name used in asset descriptors.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	default:
		return "z"
	}
}

// RotationStep is one entry of an ordered rotation sequence: a principal
// axis and an angle in degrees.
type RotationStep struct {
	Axis    Axis    `json:"axis"`
	Degrees float64 `json:"degrees"`
}

// Rotation is a unit-quaternion orientation.
type Rotation struct {
	q quat.Number
}

// IdentityRotation returns the no-op orientation.
func IdentityRotation() Rotation {
	return Rotation{q: quat.Number{Real: 1}}
}

// NewRotation returns the rotation by the given angle in radians about the
// given principal axis.
func NewRotation(axis Axis, radians float64) Rotation {
	half := radians / 2
	sin := math.Sin(half)
	v := axis.Vec()
	return Rotation{q: quat.Number{
		Real: math.Cos(half),
		Imag: sin * v.X,
		Jmag: sin * v.Y,
		Kmag: sin * v.Z,
	}}
}

// RotationFromQuat builds a Rotation from a raw quaternion, normalizing it.
// A zero quaternion yields the identity.
func RotationFromQuat(q quat.Number) Rotation {
	norm := quat.Abs(q)
	if norm == 0 {
		return IdentityRotation()
	}
	return Rotation{q: quat.Scale(1/norm, q)}
}

// Quat returns the underlying unit quaternion.
func (r Rotation) Quat() quat.Number {
	return r.q
}

// Mul returns the composition r∘o: the rotation that applies o first, then r.
func (r Rotation) Mul(o Rotation) Rotation {
	return Rotation{q: quat.Mul(r.q, o.q)}
}

// Inverse returns the opposite rotation.
func (r Rotation) Inverse() Rotation {
	return Rotation{q: quat.Conj(r.q)}
}

// Rotate applies the rotation to a vector.
func (r Rotation) Rotate(v r3.Vec) r3.Vec {
	return r3.Rotation(r.q).Rotate(v)
}

// Yaw returns the heading about +Z in radians.
func (r Rotation) Yaw() float64 {
	q := r.q
	return math.Atan2(2*(q.Real*q.Kmag+q.Imag*q.Jmag), 1-2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag))
}

// ApproxEqual reports whether two rotations represent the same orientation
// within tol, accounting for the q / -q double cover.
func (r Rotation) ApproxEqual(o Rotation, tol float64) bool {
	dot := r.q.Real*o.q.Real + r.q.Imag*o.q.Imag + r.q.Jmag*o.q.Jmag + r.q.Kmag*o.q.Kmag
	return math.Abs(math.Abs(dot)-1) <= tol
}

// ComposeSequence composes an ordered list of rotation steps into a single
// orientation by pre-multiplying the unit rotations in reverse list order:
// the first listed step is applied last in world space. Swapping this order
// misorients every model and camera mount, so it is fixed here and nowhere
// else.
func ComposeSequence(steps []RotationStep) Rotation {
	result := IdentityRotation()
	for i := len(steps) - 1; i >= 0; i-- {
		step := NewRotation(steps[i].Axis, steps[i].Degrees*math.Pi/180)
		result = step.Mul(result)
	}
	return result
}
