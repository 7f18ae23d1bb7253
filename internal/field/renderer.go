// Package field implements the rendering core's top-level loop: a
// single-threaded cooperative turn that gates on the scheduler, reconciles
// assets, updates the frame pipeline and camera, extracts geometry, and
// publishes a composite SceneFrame. The service ring feeds the loop through
// buffered channels and reads results through atomic pointers; everything
// else is mutated only on the loop goroutine.
package field

import (
	"context"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jwbonner/advantagescope/internal/applog"
	"github.com/jwbonner/advantagescope/internal/field/assets"
	"github.com/jwbonner/advantagescope/internal/field/camera"
	"github.com/jwbonner/advantagescope/internal/field/extract"
	"github.com/jwbonner/advantagescope/internal/field/frames"
	"github.com/jwbonner/advantagescope/internal/field/geom"
	"github.com/jwbonner/advantagescope/internal/field/scene"
	"github.com/jwbonner/advantagescope/internal/timeutil"
	"github.com/jwbonner/advantagescope/internal/tslog"
	"github.com/jwbonner/advantagescope/internal/units"
)

// defaultRefreshHz is the display refresh rate driving the loop ticker.
const defaultRefreshHz = 60

// Options configures a Renderer. Source is required; everything else has a
// working default.
type Options struct {
	// Clock drives the loop ticker and the redraw throttle. RealClock when
	// nil.
	Clock timeutil.Clock

	// Source is the telemetry log the extraction engine reads.
	Source tslog.Source

	// Reader loads model bytes. Filesystem when nil.
	Reader scene.ModelReader

	// AxesSteps derives the engine-convention axes frame. DefaultAxesSteps
	// when nil.
	AxesSteps []geom.RotationStep

	// RefreshHz is the tick rate, 60 when not positive.
	RefreshHz int

	// OnFrame, when set, runs on the loop goroutine after each frame is
	// published. Stream publishers hook here and must not block.
	OnFrame func(*SceneFrame)

	Log *applog.Logger
}

// Stats is a point-in-time counter sample for the monitor surface.
type Stats struct {
	Ticks          uint64 `json:"ticks"`
	Frames         uint64 `json:"frames"`
	LoadsStarted   uint64 `json:"loadsStarted"`
	LoadsInstalled uint64 `json:"loadsInstalled"`
	LoadFailures   uint64 `json:"loadFailures"`
	StaleDiscards  uint64 `json:"staleDiscards"`
}

// Renderer owns the render loop and every core component under it.
type Renderer struct {
	clock    timeutil.Clock
	engine   *extract.Engine
	manager  *scene.Manager
	pipeline *frames.Pipeline
	camera   *camera.Machine
	sched    *Scheduler
	log      *applog.Logger

	refresh time.Duration
	onFrame func(*SceneFrame)

	snapshots chan Snapshot
	displays  chan DisplayState
	cameraSel chan int

	catalog atomic.Pointer[assets.Catalog]
	latest  atomic.Pointer[SceneFrame]

	// Loop-goroutine state.
	snapshot Snapshot
	display  DisplayState
	seq      uint64

	ticks          atomic.Uint64
	frames         atomic.Uint64
	loadsStarted   atomic.Uint64
	loadsInstalled atomic.Uint64
	loadFailures   atomic.Uint64
	staleDiscards  atomic.Uint64
}

// NewRenderer assembles the core components. The display starts visible at
// 1280x720 so a service without a display feed still renders.
func NewRenderer(opts Options) *Renderer {
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	log := opts.Log
	if log == nil {
		log = applog.Default()
	}
	refreshHz := opts.RefreshHz
	if refreshHz <= 0 {
		refreshHz = defaultRefreshHz
	}

	return &Renderer{
		clock:     clock,
		engine:    extract.NewEngine(opts.Source),
		manager:   scene.NewManager(opts.Reader),
		pipeline:  frames.NewPipeline(opts.AxesSteps),
		camera:    camera.NewMachine(),
		sched:     NewScheduler(clock),
		log:       log,
		refresh:   time.Second / time.Duration(refreshHz),
		onFrame:   opts.OnFrame,
		snapshots: make(chan Snapshot, 1),
		displays:  make(chan DisplayState, 1),
		cameraSel: make(chan int, 1),
		display:   DisplayState{Width: 1280, Height: 720, PixelRatio: 1, Visible: true},
	}
}

// PushSnapshot hands the loop a new configuration snapshot. The most recent
// push wins; pushes never block.
func (r *Renderer) PushSnapshot(s Snapshot) {
	pushLatest(r.snapshots, s)
}

// SetDisplay hands the loop a new display state. The most recent push wins.
func (r *Renderer) SetDisplay(d DisplayState) {
	pushLatest(r.displays, d)
}

// SelectCamera requests a camera index for the next tick. The most recent
// selection wins.
func (r *Renderer) SelectCamera(index int) {
	pushLatest(r.cameraSel, index)
}

// pushLatest replaces the pending value on a capacity-1 channel.
func pushLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// SetCatalog swaps the asset catalog. Safe from any goroutine; the loop
// picks it up on its next rendered turn.
func (r *Renderer) SetCatalog(c *assets.Catalog) {
	r.catalog.Store(c)
}

// LatestFrame returns the most recently composed frame, nil before the
// first render.
func (r *Renderer) LatestFrame() *SceneFrame {
	return r.latest.Load()
}

// AspectRatio reports the fixed-camera aspect ratio in effect, false in the
// orbit modes or before the first frame.
func (r *Renderer) AspectRatio() (float64, bool) {
	frame := r.latest.Load()
	if frame == nil || frame.Camera.Aspect == nil {
		return 0, false
	}
	return *frame.Camera.Aspect, true
}

// Stats returns the loop and lifecycle counters.
func (r *Renderer) Stats() Stats {
	return Stats{
		Ticks:          r.ticks.Load(),
		Frames:         r.frames.Load(),
		LoadsStarted:   r.loadsStarted.Load(),
		LoadsInstalled: r.loadsInstalled.Load(),
		LoadFailures:   r.loadFailures.Load(),
		StaleDiscards:  r.staleDiscards.Load(),
	}
}

// Run drives the render loop at the refresh rate until ctx is done.
func (r *Renderer) Run(ctx context.Context) error {
	ticker := r.clock.NewTicker(r.refresh)
	defer ticker.Stop()

	r.log.Infof("render loop started, refresh %v", r.refresh)
	for {
		select {
		case <-ctx.Done():
			r.log.Infof("render loop stopped")
			return ctx.Err()
		case <-ticker.C():
			r.tick()
		}
	}
}

// tick runs one render turn.
func (r *Renderer) tick() {
	r.ticks.Add(1)
	r.drainInputs()

	// Load completions are consumed every turn, install marks a redraw
	// pending even while the gate holds.
	if installed := r.manager.Drain(); installed > 0 {
		r.sched.NotifyLoadComplete()
		r.log.Debugf("installed %d scene node(s)", installed)
	}
	if failures := r.manager.Stats().LoadFailures; failures > r.loadFailures.Load() {
		r.log.Debugf("scene load failed, keeping previous node (%d total)", failures)
	}

	render := r.sched.ShouldRender(r.snapshot, r.display)
	r.display.CameraMoved = false
	if !render {
		r.publishStats()
		return
	}

	catalog := r.catalog.Load()
	if catalog == nil {
		catalog = &assets.Catalog{}
	}
	r.manager.Ensure(catalog, r.snapshot.FieldID, r.snapshot.RobotID)

	result := r.engine.Extract(r.snapshot.query())

	widthM, heightM := 0.0, 0.0
	if f, ok := catalog.FindField(r.snapshot.FieldID); ok {
		widthM = units.ToMeters(f.WidthInches, units.Inches)
		heightM = units.ToMeters(f.HeightInches, units.Inches)
	}
	r.pipeline.UpdateField(result.Origin, widthM, heightM)

	robot := r.manager.Robot()
	robotVisible := len(result.Robots) > 0
	r.manager.SetRobotAttached(robotVisible)
	if robot != nil && robotVisible {
		robot.Pose = result.Robots[0].Pose
	}

	r.camera.Select(r.snapshot.CameraIndex)
	r.camera.Update(robot, robotVisible, r.pipeline)

	frame := r.composeFrame(result, widthM, heightM)
	r.latest.Store(frame)
	r.frames.Add(1)
	if r.onFrame != nil {
		r.onFrame(frame)
	}
	r.publishStats()
}

// drainInputs consumes pending pushes. Snapshots land before camera
// selections so a selection always applies on top of the newest snapshot.
func (r *Renderer) drainInputs() {
	select {
	case s := <-r.snapshots:
		r.snapshot = s
	default:
	}
	select {
	case d := <-r.displays:
		// A moved flag not yet consumed by the gate survives replacement.
		d.CameraMoved = d.CameraMoved || r.display.CameraMoved
		r.display = d
	default:
	}
	select {
	case idx := <-r.cameraSel:
		r.snapshot.CameraIndex = idx
	default:
	}
}

func (r *Renderer) composeFrame(res extract.Result, widthM, heightM float64) *SceneFrame {
	r.seq++
	frame := &SceneFrame{
		Seq:         r.seq,
		Time:        r.snapshot.Time,
		Bumpers:     res.Bumpers.String(),
		Origin:      res.Origin.String(),
		FieldID:     r.snapshot.FieldID,
		RobotID:     r.snapshot.RobotID,
		FieldWidth:  widthM,
		FieldHeight: heightM,
		Axes:        poseFrom(r.pipeline.AxesToWorld()),
	}

	for _, rs := range res.Robots {
		obj := RobotObject{Pose: r.scenePose(rs.Pose)}
		for _, tp := range rs.Trail {
			obj.Trail = append(obj.Trail, r.timedPoint(tp.Time, tp.Position))
		}
		frame.Robots = append(frame.Robots, obj)
	}
	for _, pose := range res.Ghosts {
		frame.Ghosts = append(frame.Ghosts, r.scenePose(pose))
	}
	for _, path := range res.Trajectories {
		points := make([]Point, len(path))
		for i, v := range path {
			points[i] = r.scenePoint(v)
		}
		frame.Trajectories = append(frame.Trajectories, points)
	}
	for _, pose := range res.VisionTargets {
		frame.VisionTargets = append(frame.VisionTargets, r.scenePose(pose))
	}
	for _, arrow := range res.Arrows {
		frame.Arrows = append(frame.Arrows, ArrowObject{
			Anchor: arrow.Anchor.String(),
			Pose:   r.scenePose(arrow.Pose),
		})
	}
	for _, hp := range res.Heatmap {
		frame.Heatmap = append(frame.Heatmap, r.timedPoint(hp.Time, hp.Position))
	}

	view := r.camera.Viewpoint()
	cam := CameraState{
		Mode:   r.camera.Mode().String(),
		Index:  r.camera.Applied(),
		Pose:   poseFrom(view.Pose),
		Target: pointFromVec(view.Target),
		FOV:    view.FOVDegrees,
	}
	if aspect, ok := r.camera.AspectRatio(); ok {
		cam.Aspect = &aspect
	}
	frame.Camera = cam
	return frame
}

// scenePose expresses a telemetry pose in scene space.
func (r *Renderer) scenePose(p geom.Pose) Pose {
	return poseFrom(r.pipeline.PoseInAxes(p))
}

// scenePoint expresses a telemetry translation in scene space.
func (r *Renderer) scenePoint(v r3.Vec) Point {
	p := r.pipeline.PoseInAxes(geom.NewPose(v, geom.IdentityRotation()))
	return pointFromVec(p.Translation)
}

func (r *Renderer) timedPoint(t float64, v r3.Vec) TimedPoint {
	pt := r.scenePoint(v)
	return TimedPoint{Time: t, X: pt.X, Y: pt.Y, Z: pt.Z}
}

// publishStats copies loop-goroutine counters into the atomics the monitor
// reads.
func (r *Renderer) publishStats() {
	s := r.manager.Stats()
	r.loadsStarted.Store(s.LoadsStarted)
	r.loadsInstalled.Store(s.LoadsInstalled)
	r.loadFailures.Store(s.LoadFailures)
	r.staleDiscards.Store(s.StaleDiscards)
}
