package scene

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jwbonner/advantagescope/internal/field/assets"
	"github.com/jwbonner/advantagescope/internal/field/geom"
)

func vecNear(a, b r3.Vec, tol float64) bool {
	d := a.Sub(b)
	return math.Abs(d.X) <= tol && math.Abs(d.Y) <= tol && math.Abs(d.Z) <= tol
}

func TestNewRobotNodeMounts(t *testing.T) {
	desc := &assets.Robot{
		ID:    "A",
		Model: "robots/a.glb",
		Cameras: []assets.CameraMount{
			{Name: "Front", Position: [3]float64{0.3, 0, 0.5}, FOVDegrees: 60, AspectRatio: 1.778},
			{Name: "Back", Position: [3]float64{-0.3, 0, 0.5}, FOVDegrees: 75},
		},
	}
	node := newRobotNode(desc, []byte("glb"))

	if node.Kind != KindRobot {
		t.Fatalf("Kind = %v, want %v", node.Kind, KindRobot)
	}
	if node.AssetID != "A" {
		t.Errorf("AssetID = %q, want %q", node.AssetID, "A")
	}
	if len(node.Mounts) != 2 {
		t.Fatalf("len(Mounts) = %d, want 2", len(node.Mounts))
	}
	for i, mount := range node.Mounts {
		if mount.Index != i {
			t.Errorf("Mounts[%d].Index = %d, want %d", i, mount.Index, i)
		}
	}
	if got := node.Mounts[0].FOVDegrees; got != 60 {
		t.Errorf("Mounts[0].FOVDegrees = %v, want 60", got)
	}
	if !node.Attached() {
		t.Error("new node must start attached")
	}
}

func TestMountWorld(t *testing.T) {
	desc := &assets.Robot{
		ID:      "A",
		Cameras: []assets.CameraMount{{Name: "Front", Position: [3]float64{0.3, 0, 0.5}}},
	}
	node := newRobotNode(desc, nil)
	nodeWorld := geom.PlanarPose(2, 1, math.Pi/2)

	pose, ok := node.MountWorld(nodeWorld, 0)
	if !ok {
		t.Fatal("MountWorld(0) not ok")
	}
	if want := (r3.Vec{X: 2, Y: 1.3, Z: 0.5}); !vecNear(pose.Translation, want, 1e-9) {
		t.Errorf("mount translation = %+v, want %+v", pose.Translation, want)
	}
	if got := pose.Rotation.Yaw(); math.Abs(got-math.Pi/2) > 1e-9 {
		t.Errorf("mount yaw = %v, want %v", got, math.Pi/2)
	}

	if _, ok := node.MountWorld(nodeWorld, -1); ok {
		t.Error("MountWorld(-1) must not resolve")
	}
	if _, ok := node.MountWorld(nodeWorld, 1); ok {
		t.Error("MountWorld(1) must not resolve past the last mount")
	}
}

func TestModelWorldAppliesOffset(t *testing.T) {
	desc := &assets.Field{
		ID:        "field-2026",
		Rotations: []assets.RotationStep{{Axis: "z", Degrees: 180}},
	}
	node := newFieldNode(desc, nil)

	world := node.ModelWorld(geom.IdentityPose())
	if got := world.Rotation.Yaw(); math.Abs(math.Abs(got)-math.Pi) > 1e-9 {
		t.Errorf("model yaw = %v, want ±π", got)
	}
}

func TestDestroyDetachesAndReleases(t *testing.T) {
	desc := &assets.Robot{
		ID:      "A",
		Cameras: []assets.CameraMount{{Name: "Front"}},
	}
	node := newRobotNode(desc, []byte("glb"))

	node.Destroy()
	if node.Attached() {
		t.Error("destroyed node must be detached")
	}
	if node.Model.Data != nil {
		t.Error("destroyed node must release model bytes")
	}
	if node.Mounts != nil {
		t.Error("destroyed node must release mounts")
	}

	var nilNode *Node
	if nilNode.Attached() {
		t.Error("nil node must report detached")
	}
}
