// Package assets models the catalog of field and robot assets the renderer
// can load: per-asset descriptors parsed from config.json files, a
// value-comparable catalog with a fingerprint for change detection, and a
// directory watcher.
package assets

import (
	"encoding/json"
	"hash/fnv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jwbonner/advantagescope/internal/field/geom"
)

// RotationStep is one descriptor rotation entry. Axis is the lowercase
// principal axis name; Degrees is the rotation angle.
type RotationStep struct {
	Axis    string  `json:"axis"`
	Degrees float64 `json:"degrees"`
}

// CameraMount describes one fixed camera on a robot asset. Positions are
// meters relative to the robot origin; FOV is vertical degrees.
type CameraMount struct {
	Name        string         `json:"name"`
	Position    [3]float64     `json:"position"`
	Rotations   []RotationStep `json:"rotations"`
	FOVDegrees  float64        `json:"fov"`
	AspectRatio float64        `json:"aspectRatio"`
}

// LocalPose returns the mount's pose relative to the robot origin.
func (m CameraMount) LocalPose() geom.Pose {
	return geom.NewPose(vecFromArray(m.Position), composeSteps(m.Rotations))
}

// Field is the catalog descriptor for a field asset. Dimensions are inches,
// following the official field drawings.
type Field struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Model        string         `json:"model"`
	Rotations    []RotationStep `json:"rotations"`
	WidthInches  float64        `json:"widthInches"`
	HeightInches float64        `json:"heightInches"`
}

// OrientationPose returns the rotation-only pose orienting the raw field
// model into the canonical frame.
func (f Field) OrientationPose() geom.Pose {
	return geom.NewPose(r3.Vec{}, composeSteps(f.Rotations))
}

// Robot is the catalog descriptor for a robot asset. Position is the model
// offset in meters.
type Robot struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Model     string         `json:"model"`
	Rotations []RotationStep `json:"rotations"`
	Position  [3]float64     `json:"position"`
	Cameras   []CameraMount  `json:"cameras"`
}

// OffsetPose returns the pose orienting and offsetting the raw robot model
// relative to the robot's telemetry pose.
func (r Robot) OffsetPose() geom.Pose {
	return geom.NewPose(vecFromArray(r.Position), composeSteps(r.Rotations))
}

// Catalog lists every available asset descriptor. Catalogs are compared by
// whole-value fingerprint, never diffed.
type Catalog struct {
	Fields []Field `json:"fields"`
	Robots []Robot `json:"robots"`
}

// FindField returns the field descriptor with the given id.
func (c *Catalog) FindField(id string) (Field, bool) {
	for _, f := range c.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// FindRobot returns the robot descriptor with the given id.
func (c *Catalog) FindRobot(id string) (Robot, bool) {
	for _, r := range c.Robots {
		if r.ID == id {
			return r, true
		}
	}
	return Robot{}, false
}

// Fingerprint returns a stable hash of the whole catalog value. Loaders keep
// descriptor order deterministic, so equal catalogs hash equal.
func (c *Catalog) Fingerprint() uint64 {
	if c == nil {
		return 0
	}
	encoded, err := json.Marshal(c)
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	h.Write(encoded)
	return h.Sum64()
}

// Equal reports whether two catalogs carry identical descriptor values.
func (c *Catalog) Equal(o *Catalog) bool {
	return c.Fingerprint() == o.Fingerprint()
}

func vecFromArray(a [3]float64) r3.Vec {
	return r3.Vec{X: a[0], Y: a[1], Z: a[2]}
}

// composeSteps maps descriptor steps onto the shared sequence composition,
// skipping entries with unknown axis names.
func composeSteps(steps []RotationStep) geom.Rotation {
	mapped := make([]geom.RotationStep, 0, len(steps))
	for _, step := range steps {
		switch strings.ToLower(step.Axis) {
		case "x":
			mapped = append(mapped, geom.RotationStep{Axis: geom.AxisX, Degrees: step.Degrees})
		case "y":
			mapped = append(mapped, geom.RotationStep{Axis: geom.AxisY, Degrees: step.Degrees})
		case "z":
			mapped = append(mapped, geom.RotationStep{Axis: geom.AxisZ, Degrees: step.Degrees})
		}
	}
	return geom.ComposeSequence(mapped)
}
