package field

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jwbonner/advantagescope/internal/field/geom"
)

// Point is one scene-space position in meters.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Pose is a scene-space position plus a unit-quaternion orientation.
type Pose struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
	QW float64 `json:"qw"`
	QX float64 `json:"qx"`
	QY float64 `json:"qy"`
	QZ float64 `json:"qz"`
}

// TimedPoint is a point with its source timestamp in log seconds.
type TimedPoint struct {
	Time float64 `json:"t"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
}

// RobotObject is one rendered robot: its pose and its motion trail.
type RobotObject struct {
	Pose  Pose         `json:"pose"`
	Trail []TimedPoint `json:"trail,omitempty"`
}

// ArrowObject is one directional marker with its anchor name.
type ArrowObject struct {
	Anchor string `json:"anchor"`
	Pose   Pose   `json:"pose"`
}

// CameraState is the viewpoint in effect for one frame. Pose and Target are
// world space; Aspect is nil in the orbit modes.
type CameraState struct {
	Mode   string   `json:"mode"`
	Index  int      `json:"index"`
	Pose   Pose     `json:"pose"`
	Target Point    `json:"target"`
	FOV    float64  `json:"fov"`
	Aspect *float64 `json:"aspect,omitempty"`
}

// SceneFrame is the composite scene produced by one render turn. Object
// geometry is scene space: alliance-resolved, field-centered, Z up, meters.
// Axes is the world pose of the scene root the field and robot models hang
// from; displays composite objects through it.
type SceneFrame struct {
	Seq  uint64  `json:"seq"`
	Time float64 `json:"time"`

	Bumpers string `json:"bumpers"`
	Origin  string `json:"origin"`

	FieldID     string  `json:"fieldId,omitempty"`
	RobotID     string  `json:"robotId,omitempty"`
	FieldWidth  float64 `json:"fieldWidth"`
	FieldHeight float64 `json:"fieldHeight"`

	Axes Pose `json:"axes"`

	Robots        []RobotObject `json:"robots,omitempty"`
	Ghosts        []Pose        `json:"ghosts,omitempty"`
	Trajectories  [][]Point     `json:"trajectories,omitempty"`
	VisionTargets []Pose        `json:"visionTargets,omitempty"`
	Arrows        []ArrowObject `json:"arrows,omitempty"`
	Heatmap       []TimedPoint  `json:"heatmap,omitempty"`

	Camera CameraState `json:"camera"`
}

func pointFromVec(v r3.Vec) Point {
	return Point{X: v.X, Y: v.Y, Z: v.Z}
}

func poseFrom(p geom.Pose) Pose {
	q := p.Rotation.Quat()
	return Pose{
		X:  p.Translation.X,
		Y:  p.Translation.Y,
		Z:  p.Translation.Z,
		QW: q.Real,
		QX: q.Imag,
		QY: q.Jmag,
		QZ: q.Kmag,
	}
}

// GeomPose converts the wire pose back to the internal representation.
// Replay and stream consumers use it to re-enter the geometry pipeline.
func (p Pose) GeomPose() geom.Pose {
	q := quat.Number{Real: p.QW, Imag: p.QX, Jmag: p.QY, Kmag: p.QZ}
	return geom.NewPose(r3.Vec{X: p.X, Y: p.Y, Z: p.Z}, geom.RotationFromQuat(q))
}
