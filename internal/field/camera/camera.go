// Package camera drives the viewpoint state machine: free field orbit,
// robot-relative orbit, and fixed robot-mounted cameras selected by index.
package camera

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jwbonner/advantagescope/internal/field/frames"
	"github.com/jwbonner/advantagescope/internal/field/geom"
	"github.com/jwbonner/advantagescope/internal/field/scene"
)

// Sentinel camera indices. Non-negative indices select fixed robot mounts;
// anything else resolves to one of the orbit modes.
const (
	IndexOrbitField = -1
	IndexOrbitRobot = -2
)

// Mode identifies the viewpoint state in effect after clamping.
type Mode int

const (
	ModeOrbitField Mode = iota
	ModeOrbitRobot
	ModeFixed
)

func (m Mode) String() string {
	switch m {
	case ModeOrbitRobot:
		return "orbit-robot"
	case ModeFixed:
		return "fixed"
	default:
		return "orbit-field"
	}
}

// Viewpoint is the camera state handed to the compositor each frame. Orbit
// modes position the camera with an identity orientation and aim it at
// Target; fixed mode carries the full mount pose and ignores Target.
type Viewpoint struct {
	Pose       geom.Pose
	Target     r3.Vec
	FOVDegrees float64
}

// Overview presets applied when an orbit mode is entered.
var (
	fieldOverviewPosition = r3.Vec{Y: -12, Z: 6}
	robotOverviewPosition = r3.Vec{X: 2, Y: -1, Z: 1}
	overviewTarget        = r3.Vec{Z: 0.5}
)

// defaultFOV is the orbit-mode vertical field of view in degrees.
const defaultFOV = 50

// Machine applies externally selected camera indices to the viewpoint. It
// runs for the process lifetime and is re-entered on every index change;
// there is no exit state.
type Machine struct {
	requested int
	applied   int
	started   bool
	view      Viewpoint
	aspect    float64
	hasAspect bool
}

// NewMachine starts in free field orbit at the overview preset.
func NewMachine() *Machine {
	return &Machine{
		requested: IndexOrbitField,
		applied:   IndexOrbitField,
		view:      fieldOverview(),
	}
}

func fieldOverview() Viewpoint {
	return Viewpoint{
		Pose:       geom.NewPose(fieldOverviewPosition, geom.IdentityRotation()),
		Target:     overviewTarget,
		FOVDegrees: defaultFOV,
	}
}

func robotOverview() Viewpoint {
	return Viewpoint{
		Pose:       geom.NewPose(robotOverviewPosition, geom.IdentityRotation()),
		Target:     overviewTarget,
		FOVDegrees: defaultFOV,
	}
}

// Select records the externally requested camera index. The request is
// applied, and clamped against the current robot's mounts, on the next
// Update.
func (m *Machine) Select(index int) {
	m.requested = index
}

// Requested returns the last externally selected index before clamping.
func (m *Machine) Requested() int {
	return m.requested
}

// Applied returns the index in effect after the last Update.
func (m *Machine) Applied() int {
	return m.applied
}

// Mode resolves the applied index to a viewpoint state.
func (m *Machine) Mode() Mode {
	switch {
	case m.applied == IndexOrbitRobot:
		return ModeOrbitRobot
	case m.applied >= 0:
		return ModeFixed
	default:
		return ModeOrbitField
	}
}

// Viewpoint returns the camera state from the last Update.
func (m *Machine) Viewpoint() Viewpoint {
	return m.view
}

// AspectRatio reports the fixed-camera pixel aspect ratio for the display
// surface. The second return is false in the orbit modes.
func (m *Machine) AspectRatio() (float64, bool) {
	return m.aspect, m.hasAspect
}

// clampIndex resolves a requested index against the current mount count.
// Out-of-range requests, fixed or negative, fall back to free orbit.
func clampIndex(requested, mounts int) int {
	switch {
	case requested == IndexOrbitRobot:
		return IndexOrbitRobot
	case requested >= 0 && requested < mounts:
		return requested
	default:
		return IndexOrbitField
	}
}

// Update applies the most recent selection for this frame. Viewpoint
// defaults are reset only when the applied index actually changes, so
// interactive framing is not clobbered on every redraw. Robot-relative
// orbit re-centers the pipeline's axes frame on the robot every frame it is
// visible; every other state restores the default axes. Fixed mode copies
// the mount's world transform only while the robot is visible, holding the
// last pose otherwise. The return reports whether the viewpoint or aspect
// changed.
func (m *Machine) Update(robot *scene.Node, robotVisible bool, pipeline *frames.Pipeline) bool {
	mounts := 0
	if robot != nil {
		mounts = len(robot.Mounts)
	}
	applied := clampIndex(m.requested, mounts)
	entered := !m.started || applied != m.applied
	m.started = true
	m.applied = applied

	prevView := m.view
	prevAspect, prevHas := m.aspect, m.hasAspect

	switch {
	case applied == IndexOrbitRobot:
		m.aspect, m.hasAspect = 0, false
		if entered {
			m.view = robotOverview()
		}
		if robot != nil && robotVisible {
			pipeline.CenterOn(pipeline.PoseInAxes(robot.Pose))
		} else {
			pipeline.ResetAxes()
		}

	case applied >= 0:
		// clampIndex only yields a fixed index when the robot exists and
		// declares the mount.
		pipeline.ResetAxes()
		mount := robot.Mounts[applied]
		m.view.Target = r3.Vec{}
		m.view.FOVDegrees = mount.FOVDegrees
		m.aspect, m.hasAspect = mount.AspectRatio, true
		if robotVisible {
			world := pipeline.ToWorld(robot.Pose)
			if pose, ok := robot.MountWorld(world, applied); ok {
				m.view.Pose = pose
			}
		}

	default:
		m.aspect, m.hasAspect = 0, false
		pipeline.ResetAxes()
		if entered {
			m.view = fieldOverview()
		}
	}

	return m.view != prevView || m.aspect != prevAspect || m.hasAspect != prevHas
}
