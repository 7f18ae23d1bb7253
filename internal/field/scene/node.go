// Package scene owns the loaded scene graph: the field and robot nodes
// instantiated from asset descriptors, and the asynchronous lifecycle that
// loads and swaps them without stalling the render loop.
package scene

import (
	"github.com/google/uuid"

	"github.com/jwbonner/advantagescope/internal/field/assets"
	"github.com/jwbonner/advantagescope/internal/field/geom"
)

// NodeKind identifies which singleton slot a node occupies.
type NodeKind int

const (
	KindField NodeKind = iota
	KindRobot
)

// String returns the lowercase slot name.
func (k NodeKind) String() string {
	if k == KindRobot {
		return "robot"
	}
	return "field"
}

// Mount is a camera mount instantiated on a robot node. The index is stable
// for the node's lifetime and always matches the descriptor's declared
// camera order.
type Mount struct {
	Index       int
	Name        string
	Local       geom.Pose
	FOVDegrees  float64
	AspectRatio float64
}

// Model is the loaded model payload, handed opaquely to the display layer.
type Model struct {
	Path string
	Data []byte
}

// Node is the loaded, positioned runtime representation of an asset
// descriptor. Children (camera mounts, the model payload) are owned by the
// node and dropped when it is destroyed.
type Node struct {
	ID      string
	Kind    NodeKind
	AssetID string
	Model   Model

	// Offset orients and offsets the raw model relative to the node origin.
	Offset geom.Pose

	// Pose is the live telemetry pose, updated each frame for robot nodes.
	Pose geom.Pose

	Mounts []Mount

	attached  bool
	destroyed bool
}

func newFieldNode(desc assets.Field, model Model) *Node {
	return &Node{
		ID:      uuid.New().String(),
		Kind:    KindField,
		AssetID: desc.ID,
		Model:   model,
		Offset:  desc.OrientationPose(),
		Pose:    geom.IdentityPose(),
	}
}

func newRobotNode(desc assets.Robot, model Model) *Node {
	mounts := make([]Mount, len(desc.Cameras))
	for i, cam := range desc.Cameras {
		mounts[i] = Mount{
			Index:       i,
			Name:        cam.Name,
			Local:       cam.LocalPose(),
			FOVDegrees:  cam.FOVDegrees,
			AspectRatio: cam.AspectRatio,
		}
	}
	return &Node{
		ID:      uuid.New().String(),
		Kind:    KindRobot,
		AssetID: desc.ID,
		Model:   model,
		Offset:  desc.OffsetPose(),
		Pose:    geom.IdentityPose(),
		Mounts:  mounts,
	}
}

// Attached reports whether the node currently hangs off its parent frame.
func (n *Node) Attached() bool {
	return n != nil && n.attached
}

// Destroy detaches the node and releases its subtree. Destroyed nodes are
// never reused.
func (n *Node) Destroy() {
	n.attached = false
	n.destroyed = true
	n.Model.Data = nil
	n.Mounts = nil
}

// ModelWorld returns the world pose of the model mesh given the node's
// world pose.
func (n *Node) ModelWorld(nodeWorld geom.Pose) geom.Pose {
	return nodeWorld.Compose(n.Offset)
}

// MountWorld returns the world transform of camera mount i given the node's
// world pose. Mounts attach to the node origin, not the offset model mesh.
func (n *Node) MountWorld(nodeWorld geom.Pose, i int) (geom.Pose, bool) {
	if n == nil || i < 0 || i >= len(n.Mounts) {
		return geom.Pose{}, false
	}
	return nodeWorld.Compose(n.Mounts[i].Local), true
}
