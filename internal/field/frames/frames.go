// Package frames maintains the two nested reference frames the renderer
// composites through: the telemetry-axes frame that reorients raw asset
// coordinates into the engine convention, and the alliance-relative field
// frame nested inside it.
package frames

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jwbonner/advantagescope/internal/field/geom"
)

// Alliance selects which driver-station corner owns the field origin.
type Alliance int

const (
	AllianceBlue Alliance = iota
	AllianceRed
)

// String returns the lowercase alliance name.
func (a Alliance) String() string {
	if a == AllianceRed {
		return "red"
	}
	return "blue"
}

// Transform defines one nested reference frame relative to its parent.
type Transform struct {
	Translation r3.Vec
	Rotation    geom.Rotation
}

// IdentityTransform returns the no-op frame transform.
func IdentityTransform() Transform {
	return Transform{Rotation: geom.IdentityRotation()}
}

// AsPose converts the frame transform to a pose for composition.
func (t Transform) AsPose() geom.Pose {
	return geom.NewPose(t.Translation, t.Rotation)
}

// DefaultAxesSteps is the rotation sequence reorienting raw model
// coordinates (Y up) into the engine's working convention (Z up).
var DefaultAxesSteps = []geom.RotationStep{{Axis: geom.AxisX, Degrees: 90}}

// Pipeline owns the live frame transforms. It is mutated only on the render
// turn: the field frame whenever alliance or field dimensions change, the
// axes frame when the camera state machine enters or leaves robot-relative
// orbit.
type Pipeline struct {
	defaultAxes Transform
	axes        Transform
	field       Transform
}

// NewPipeline derives the telemetry-axes frame once from the given rotation
// sequence (DefaultAxesSteps when nil) and starts with a blue, zero-size
// field frame.
func NewPipeline(axesSteps []geom.RotationStep) *Pipeline {
	if axesSteps == nil {
		axesSteps = DefaultAxesSteps
	}
	base := Transform{Rotation: geom.ComposeSequence(axesSteps)}
	return &Pipeline{
		defaultAxes: base,
		axes:        base,
		field:       IdentityTransform(),
	}
}

// Axes returns the current telemetry-axes frame transform.
func (p *Pipeline) Axes() Transform {
	return p.axes
}

// Field returns the current field frame transform.
func (p *Pipeline) Field() Transform {
	return p.field
}

// UpdateField re-derives the field frame for the given alliance and field
// dimensions in meters. Blue keeps the telemetry rotation and shifts the
// origin to the blue corner; red adds a half turn about the vertical axis
// and shifts to the opposite corner. The translations for the two alliances
// are exact negations of each other.
func (p *Pipeline) UpdateField(alliance Alliance, widthMeters, heightMeters float64) {
	half := r3.Vec{X: widthMeters / 2, Y: heightMeters / 2}
	if alliance == AllianceRed {
		p.field = Transform{
			Translation: half,
			Rotation:    geom.NewRotation(geom.AxisZ, math.Pi),
		}
		return
	}
	p.field = Transform{
		Translation: r3.Scale(-1, half),
		Rotation:    geom.IdentityRotation(),
	}
}

// PoseInAxes expresses a telemetry pose (field-frame relative) inside the
// telemetry-axes frame.
func (p *Pipeline) PoseInAxes(pose geom.Pose) geom.Pose {
	return p.field.AsPose().Compose(pose)
}

// ToWorld composites a telemetry pose through both frames.
func (p *Pipeline) ToWorld(pose geom.Pose) geom.Pose {
	return p.axes.AsPose().Compose(p.PoseInAxes(pose))
}

// AxesToWorld returns the world pose of the axes frame origin, where field
// and robot nodes attach.
func (p *Pipeline) AxesToWorld() geom.Pose {
	return p.axes.AsPose()
}

// CenterOn re-expresses the axes frame so that the given pose (expressed
// inside the axes frame) becomes the world origin. The robot-relative orbit
// mode calls this every frame with the robot's current pose so the camera
// tracks it live.
func (p *Pipeline) CenterOn(poseInAxes geom.Pose) {
	inv := poseInAxes.Inverse()
	p.axes = Transform{Translation: inv.Translation, Rotation: inv.Rotation}
}

// ResetAxes restores the axes frame derived at construction.
func (p *Pipeline) ResetAxes() {
	p.axes = p.defaultAxes
}
