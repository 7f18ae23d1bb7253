package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Pose is a rigid transform: a translation in meters plus an orientation.
// Poses are produced immutably each frame and discarded after compositing.
type Pose struct {
	Translation r3.Vec
	Rotation    Rotation
}

// IdentityPose returns the zero translation, identity orientation pose.
func IdentityPose() Pose {
	return Pose{Rotation: IdentityRotation()}
}

// NewPose builds a pose from a translation and an orientation.
func NewPose(translation r3.Vec, rotation Rotation) Pose {
	return Pose{Translation: translation, Rotation: rotation}
}

// PlanarPose builds a floor-plane pose from x/y meters and a heading in
// radians about +Z. Telemetry decoded as (x, y, heading) triples lands here.
func PlanarPose(x, y, headingRad float64) Pose {
	return Pose{
		Translation: r3.Vec{X: x, Y: y},
		Rotation:    NewRotation(AxisZ, headingRad),
	}
}

// Compose returns the child pose expressed through p: the child's
// translation is rotated into p's orientation and offset by p's translation,
// and the orientations multiply.
func (p Pose) Compose(child Pose) Pose {
	return Pose{
		Translation: r3.Add(p.Translation, p.Rotation.Rotate(child.Translation)),
		Rotation:    p.Rotation.Mul(child.Rotation),
	}
}

// Inverse returns the pose mapping p's frame back to its parent.
func (p Pose) Inverse() Pose {
	inv := p.Rotation.Inverse()
	return Pose{
		Translation: r3.Scale(-1, inv.Rotate(p.Translation)),
		Rotation:    inv,
	}
}

// ApproxEqual reports whether two poses match within tol in translation
// components and orientation.
func (p Pose) ApproxEqual(o Pose, tol float64) bool {
	d := r3.Sub(p.Translation, o.Translation)
	if math.Abs(d.X) > tol || math.Abs(d.Y) > tol || math.Abs(d.Z) > tol {
		return false
	}
	return p.Rotation.ApproxEqual(o.Rotation, tol)
}
