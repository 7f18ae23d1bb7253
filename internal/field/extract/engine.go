package extract

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jwbonner/advantagescope/internal/field/frames"
	"github.com/jwbonner/advantagescope/internal/field/geom"
	"github.com/jwbonner/advantagescope/internal/tslog"
	"github.com/jwbonner/advantagescope/internal/units"
)

// Extraction windows and cadences, in seconds.
const (
	// trailWindow bounds the positional history kept on each side of the
	// evaluation instant.
	trailWindow = 5.0

	// heatmapStep is the fixed resampling cadence and the minimum spacing
	// between kept heatmap samples.
	heatmapStep = 0.1

	// spacingSlack absorbs float jitter in synthetic stamps so samples at
	// exactly the cadence survive the spacing filter.
	spacingSlack = 1e-9
)

// Query asks for one frame's geometry at evaluation instant Time.
type Query struct {
	Time float64

	Bindings []Binding

	// EnabledKey names the series gating heatmap-enabled samples.
	EnabledKey string

	// AllianceKey names the series consulted when a choice is auto. A
	// non-zero first value means red.
	AllianceKey string

	Bumpers AllianceChoice
	Origin  AllianceChoice

	// Source units for decoded values; empty means meters and radians.
	DistanceUnits string
	RotationUnits string
}

// TrailPoint is one trail position with its source timestamp.
type TrailPoint struct {
	Time     float64
	Position r3.Vec
}

// HeatPoint is one kept heatmap sample.
type HeatPoint struct {
	Time     float64
	Position r3.Vec
}

// RobotSample is one decoded robot pose with its motion trail.
type RobotSample struct {
	Pose  geom.Pose
	Trail []TrailPoint
}

// ArrowAnchor picks where an arrow marker anchors on its pose.
type ArrowAnchor int

const (
	AnchorFront ArrowAnchor = iota
	AnchorCenter
	AnchorBack
)

// String returns the lowercase anchor name.
func (a ArrowAnchor) String() string {
	switch a {
	case AnchorFront:
		return "front"
	case AnchorBack:
		return "back"
	default:
		return "center"
	}
}

// Arrow is one directional marker pose.
type Arrow struct {
	Anchor ArrowAnchor
	Pose   geom.Pose
}

// Result carries every geometry collection extracted for one frame.
type Result struct {
	Bumpers frames.Alliance
	Origin  frames.Alliance

	Robots        []RobotSample
	Ghosts        []geom.Pose
	Trajectories  [][]r3.Vec
	VisionTargets []geom.Pose
	Arrows        []Arrow
	Heatmap       []HeatPoint
}

// Engine evaluates snapshot bindings against a telemetry source.
type Engine struct {
	source tslog.Source
}

// NewEngine creates an extraction engine reading from source.
func NewEngine(source tslog.Source) *Engine {
	return &Engine{source: source}
}

// Extract evaluates every binding at the query instant. Malformed samples
// contribute nothing and missing keys render nothing for their slot; no
// failure here ever surfaces as an error.
func (e *Engine) Extract(q Query) Result {
	res := Result{
		Bumpers: e.resolveAlliance(q.Bumpers, q.AllianceKey),
		Origin:  e.resolveAlliance(q.Origin, q.AllianceKey),
	}

	var heat []HeatPoint
	for _, b := range q.Bindings {
		switch b.Role {
		case RoleRobot:
			for i, pose := range e.posesAt(b.Key, q) {
				res.Robots = append(res.Robots, RobotSample{
					Pose:  pose,
					Trail: e.trail(b.Key, q, i),
				})
			}
		case RoleGhost:
			res.Ghosts = append(res.Ghosts, e.posesAt(b.Key, q)...)
		case RoleTrajectory:
			if path := e.trajectory(b.Key, q); len(path) > 0 {
				res.Trajectories = append(res.Trajectories, path)
			}
		case RoleVisionTarget:
			res.VisionTargets = append(res.VisionTargets, e.posesAt(b.Key, q)...)
		case RoleArrowFront:
			res.Arrows = appendArrows(res.Arrows, AnchorFront, e.posesAt(b.Key, q))
		case RoleArrowCenter:
			res.Arrows = appendArrows(res.Arrows, AnchorCenter, e.posesAt(b.Key, q))
		case RoleArrowBack:
			res.Arrows = appendArrows(res.Arrows, AnchorBack, e.posesAt(b.Key, q))
		case RoleHeatmap:
			heat = append(heat, e.resample(b.Key, q, false)...)
		case RoleHeatmapEnabled:
			heat = append(heat, e.resample(b.Key, q, true)...)
		}
	}
	res.Heatmap = spaceFilter(heat)
	return res
}

// resolveAlliance pins the forced choices and infers the rest from the
// latest alliance sample, defaulting to blue.
func (e *Engine) resolveAlliance(choice AllianceChoice, key string) frames.Alliance {
	switch choice {
	case ChoiceBlue:
		return frames.AllianceBlue
	case ChoiceRed:
		return frames.AllianceRed
	}
	if key == "" {
		return frames.AllianceBlue
	}
	s, ok := e.source.Latest(key)
	if ok && len(s.Values) > 0 && s.Values[0] != 0 {
		return frames.AllianceRed
	}
	return frames.AllianceBlue
}

func (e *Engine) posesAt(key string, q Query) []geom.Pose {
	s, ok := e.source.SampleAtOrBefore(key, q.Time)
	if !ok {
		return nil
	}
	return decodePoses(s.Values, q)
}

// trajectory decodes the at-or-before sample as one ordered path. Multiple
// poses in a single key stay in one path, never split.
func (e *Engine) trajectory(key string, q Query) []r3.Vec {
	s, ok := e.source.SampleAtOrBefore(key, q.Time)
	if !ok {
		return nil
	}
	return decodeTranslations(s.Values, q)
}

// trail gathers the positional history around the evaluation instant for the
// robot decoded at sub-pose index idx. The range query returns one
// boundary-adjacent sample outside the window on each side; only those
// outermost samples are dropped. Sub-poses realign by index position, so
// trail continuity breaks when the simultaneous robot count changes.
func (e *Engine) trail(key string, q Query, idx int) []TrailPoint {
	samples := e.source.SampleRange(key, q.Time-trailWindow, q.Time+trailWindow)
	if len(samples) > 0 && samples[0].Timestamp < q.Time-trailWindow {
		samples = samples[1:]
	}
	if len(samples) > 0 && samples[len(samples)-1].Timestamp > q.Time+trailWindow {
		samples = samples[:len(samples)-1]
	}

	var trail []TrailPoint
	for _, s := range samples {
		points := decodeTranslations(s.Values, q)
		if idx < len(points) {
			trail = append(trail, TrailPoint{Time: s.Timestamp, Position: points[idx]})
		}
	}
	return trail
}

// resample step-holds the full history at the heatmap cadence: each raw
// interval emits ceil(delta/step) synthetic samples carrying the interval's
// starting translations, so the final raw sample emits nothing by itself.
// With enabledOnly set, a synthetic sample survives only when the enabled
// series is true at its stamp.
func (e *Engine) resample(key string, q Query, enabledOnly bool) []HeatPoint {
	history := e.source.History(key)
	var out []HeatPoint
	for i := 0; i+1 < len(history); i++ {
		delta := history[i+1].Timestamp - history[i].Timestamp
		if delta <= 0 {
			continue
		}
		points := decodeTranslations(history[i].Values, q)
		if len(points) == 0 {
			continue
		}
		steps := int(math.Ceil(delta / heatmapStep))
		for j := 0; j < steps; j++ {
			ts := history[i].Timestamp + float64(j)*heatmapStep
			if enabledOnly && !e.enabledAt(q.EnabledKey, ts) {
				continue
			}
			for _, p := range points {
				out = append(out, HeatPoint{Time: ts, Position: p})
			}
		}
	}
	return out
}

// enabledAt reads the gating series with a last-value-at-or-before lookup.
// No matching sample means disabled.
func (e *Engine) enabledAt(key string, ts float64) bool {
	if key == "" {
		return false
	}
	s, ok := e.source.SampleAtOrBefore(key, ts)
	return ok && len(s.Values) > 0 && s.Values[0] != 0
}

// spaceFilter sorts the merged samples by timestamp and drops any closer
// than the cadence to the previous kept sample. The first is always kept.
func spaceFilter(points []HeatPoint) []HeatPoint {
	if len(points) == 0 {
		return nil
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time < points[j].Time
	})
	kept := points[:1]
	last := points[0].Time
	for _, p := range points[1:] {
		if p.Time-last < heatmapStep-spacingSlack {
			continue
		}
		kept = append(kept, p)
		last = p.Time
	}
	return kept
}

func appendArrows(arrows []Arrow, anchor ArrowAnchor, poses []geom.Pose) []Arrow {
	for _, pose := range poses {
		arrows = append(arrows, Arrow{Anchor: anchor, Pose: pose})
	}
	return arrows
}

// decodePoses interprets one raw sample: a 2-length value is a single
// translation-only pose, a length divisible by 3 is a flattened sequence of
// (x, y, heading) triples. Any other length decodes to nothing.
func decodePoses(values []float64, q Query) []geom.Pose {
	switch {
	case len(values) == 2:
		return []geom.Pose{geom.NewPose(r3.Vec{
			X: units.ToMeters(values[0], q.DistanceUnits),
			Y: units.ToMeters(values[1], q.DistanceUnits),
		}, geom.IdentityRotation())}
	case len(values) > 0 && len(values)%3 == 0:
		poses := make([]geom.Pose, 0, len(values)/3)
		for i := 0; i+2 < len(values); i += 3 {
			poses = append(poses, geom.PlanarPose(
				units.ToMeters(values[i], q.DistanceUnits),
				units.ToMeters(values[i+1], q.DistanceUnits),
				units.ToRadians(values[i+2], q.RotationUnits),
			))
		}
		return poses
	default:
		return nil
	}
}

func decodeTranslations(values []float64, q Query) []r3.Vec {
	poses := decodePoses(values, q)
	if len(poses) == 0 {
		return nil
	}
	points := make([]r3.Vec, len(poses))
	for i, pose := range poses {
		points[i] = pose.Translation
	}
	return points
}
