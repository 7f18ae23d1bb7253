// Package viewstream streams rendered scene frames to display clients over
// gRPC and records them to disk for later replay.
//
// The wire format is hand-rolled protobuf; the field numbers below are the
// stream contract and must not be renumbered. In proto3 terms:
//
//	message SceneFrame {
//	  uint64 seq = 1;
//	  double time = 2;
//	  string bumpers = 3;
//	  string origin = 4;
//	  string field_id = 5;
//	  string robot_id = 6;
//	  double field_width = 7;
//	  double field_height = 8;
//	  Pose axes = 9;
//	  repeated Robot robots = 10;
//	  repeated Pose ghosts = 11;
//	  repeated Path trajectories = 12;
//	  repeated Pose vision_targets = 13;
//	  repeated Arrow arrows = 14;
//	  repeated TimedPoint heatmap = 15;
//	  Camera camera = 16;
//	}
//
//	message Pose   { double x = 1; double y = 2; double z = 3;
//	                 double qw = 4; double qx = 5; double qy = 6; double qz = 7; }
//	message Point  { double x = 1; double y = 2; double z = 3; }
//	message TimedPoint { double t = 1; double x = 2; double y = 3; double z = 4; }
//	message Robot  { Pose pose = 1; repeated TimedPoint trail = 2; }
//	message Path   { repeated Point points = 1; }
//	message Arrow  { string anchor = 1; Pose pose = 2; }
//	message Camera { string mode = 1; sint32 index = 2; Pose pose = 3;
//	                 Point target = 4; double fov = 5; double aspect = 6; }
//
// Camera aspect is emitted only when set; readers treat absence as nil.
package viewstream

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/jwbonner/advantagescope/internal/field"
)

// MarshalFrame encodes a frame for the wire.
func MarshalFrame(f *field.SceneFrame) []byte {
	var b []byte
	if f.Seq != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, f.Seq)
	}
	b = appendDouble(b, 2, f.Time)
	b = appendString(b, 3, f.Bumpers)
	b = appendString(b, 4, f.Origin)
	b = appendString(b, 5, f.FieldID)
	b = appendString(b, 6, f.RobotID)
	b = appendDouble(b, 7, f.FieldWidth)
	b = appendDouble(b, 8, f.FieldHeight)
	b = appendMessage(b, 9, appendPose(nil, f.Axes))
	for _, robot := range f.Robots {
		b = appendMessage(b, 10, appendRobot(nil, robot))
	}
	for _, ghost := range f.Ghosts {
		b = appendMessage(b, 11, appendPose(nil, ghost))
	}
	for _, path := range f.Trajectories {
		b = appendMessage(b, 12, appendPath(nil, path))
	}
	for _, target := range f.VisionTargets {
		b = appendMessage(b, 13, appendPose(nil, target))
	}
	for _, arrow := range f.Arrows {
		b = appendMessage(b, 14, appendArrow(nil, arrow))
	}
	for _, hp := range f.Heatmap {
		b = appendMessage(b, 15, appendTimedPoint(nil, hp))
	}
	b = appendMessage(b, 16, appendCamera(nil, f.Camera))
	return b
}

// UnmarshalFrame decodes a wire frame. Unknown fields are skipped so newer
// writers stay readable.
func UnmarshalFrame(data []byte) (*field.SceneFrame, error) {
	f := &field.SceneFrame{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("frame tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("frame seq: %w", protowire.ParseError(n))
			}
			f.Seq = v
			data = data[n:]
		case num == 2 && typ == protowire.Fixed64Type:
			v, n, err := consumeDouble(data, "frame time")
			if err != nil {
				return nil, err
			}
			f.Time = v
			data = data[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n, err := consumeString(data, "frame bumpers")
			if err != nil {
				return nil, err
			}
			f.Bumpers = v
			data = data[n:]
		case num == 4 && typ == protowire.BytesType:
			v, n, err := consumeString(data, "frame origin")
			if err != nil {
				return nil, err
			}
			f.Origin = v
			data = data[n:]
		case num == 5 && typ == protowire.BytesType:
			v, n, err := consumeString(data, "frame field id")
			if err != nil {
				return nil, err
			}
			f.FieldID = v
			data = data[n:]
		case num == 6 && typ == protowire.BytesType:
			v, n, err := consumeString(data, "frame robot id")
			if err != nil {
				return nil, err
			}
			f.RobotID = v
			data = data[n:]
		case num == 7 && typ == protowire.Fixed64Type:
			v, n, err := consumeDouble(data, "frame field width")
			if err != nil {
				return nil, err
			}
			f.FieldWidth = v
			data = data[n:]
		case num == 8 && typ == protowire.Fixed64Type:
			v, n, err := consumeDouble(data, "frame field height")
			if err != nil {
				return nil, err
			}
			f.FieldHeight = v
			data = data[n:]
		case num == 9 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("frame axes: %w", protowire.ParseError(n))
			}
			pose, err := unmarshalPose(v)
			if err != nil {
				return nil, err
			}
			f.Axes = pose
			data = data[n:]
		case num == 10 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("frame robot: %w", protowire.ParseError(n))
			}
			robot, err := unmarshalRobot(v)
			if err != nil {
				return nil, err
			}
			f.Robots = append(f.Robots, robot)
			data = data[n:]
		case num == 11 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("frame ghost: %w", protowire.ParseError(n))
			}
			pose, err := unmarshalPose(v)
			if err != nil {
				return nil, err
			}
			f.Ghosts = append(f.Ghosts, pose)
			data = data[n:]
		case num == 12 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("frame trajectory: %w", protowire.ParseError(n))
			}
			path, err := unmarshalPath(v)
			if err != nil {
				return nil, err
			}
			f.Trajectories = append(f.Trajectories, path)
			data = data[n:]
		case num == 13 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("frame vision target: %w", protowire.ParseError(n))
			}
			pose, err := unmarshalPose(v)
			if err != nil {
				return nil, err
			}
			f.VisionTargets = append(f.VisionTargets, pose)
			data = data[n:]
		case num == 14 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("frame arrow: %w", protowire.ParseError(n))
			}
			arrow, err := unmarshalArrow(v)
			if err != nil {
				return nil, err
			}
			f.Arrows = append(f.Arrows, arrow)
			data = data[n:]
		case num == 15 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("frame heatmap point: %w", protowire.ParseError(n))
			}
			tp, err := unmarshalTimedPoint(v)
			if err != nil {
				return nil, err
			}
			f.Heatmap = append(f.Heatmap, tp)
			data = data[n:]
		case num == 16 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("frame camera: %w", protowire.ParseError(n))
			}
			camera, err := unmarshalCamera(v)
			if err != nil {
				return nil, err
			}
			f.Camera = camera
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("frame field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return f, nil
}

// SubscribeRequest identifies a stream client. An empty request is valid.
type SubscribeRequest struct {
	Client string
}

// MarshalSubscribeRequest encodes a subscription request.
func MarshalSubscribeRequest(r *SubscribeRequest) []byte {
	return appendString(nil, 1, r.Client)
}

// UnmarshalSubscribeRequest decodes a subscription request.
func UnmarshalSubscribeRequest(data []byte) (*SubscribeRequest, error) {
	r := &SubscribeRequest{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("subscribe tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n, err := consumeString(data, "subscribe client")
			if err != nil {
				return nil, err
			}
			r.Client = v
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("subscribe field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return r, nil
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendPose(b []byte, p field.Pose) []byte {
	b = appendDouble(b, 1, p.X)
	b = appendDouble(b, 2, p.Y)
	b = appendDouble(b, 3, p.Z)
	b = appendDouble(b, 4, p.QW)
	b = appendDouble(b, 5, p.QX)
	b = appendDouble(b, 6, p.QY)
	b = appendDouble(b, 7, p.QZ)
	return b
}

func appendPoint(b []byte, p field.Point) []byte {
	b = appendDouble(b, 1, p.X)
	b = appendDouble(b, 2, p.Y)
	b = appendDouble(b, 3, p.Z)
	return b
}

func appendTimedPoint(b []byte, p field.TimedPoint) []byte {
	b = appendDouble(b, 1, p.Time)
	b = appendDouble(b, 2, p.X)
	b = appendDouble(b, 3, p.Y)
	b = appendDouble(b, 4, p.Z)
	return b
}

func appendRobot(b []byte, r field.RobotObject) []byte {
	b = appendMessage(b, 1, appendPose(nil, r.Pose))
	for _, tp := range r.Trail {
		b = appendMessage(b, 2, appendTimedPoint(nil, tp))
	}
	return b
}

func appendPath(b []byte, path []field.Point) []byte {
	for _, p := range path {
		b = appendMessage(b, 1, appendPoint(nil, p))
	}
	return b
}

func appendArrow(b []byte, a field.ArrowObject) []byte {
	b = appendString(b, 1, a.Anchor)
	b = appendMessage(b, 2, appendPose(nil, a.Pose))
	return b
}

func appendCamera(b []byte, c field.CameraState) []byte {
	b = appendString(b, 1, c.Mode)
	if c.Index != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(c.Index)))
	}
	b = appendMessage(b, 3, appendPose(nil, c.Pose))
	b = appendMessage(b, 4, appendPoint(nil, c.Target))
	b = appendDouble(b, 5, c.FOV)
	if c.Aspect != nil {
		b = protowire.AppendTag(b, 6, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(*c.Aspect))
	}
	return b
}

func consumeDouble(data []byte, what string) (float64, int, error) {
	v, n := protowire.ConsumeFixed64(data)
	if n < 0 {
		return 0, 0, fmt.Errorf("%s: %w", what, protowire.ParseError(n))
	}
	return math.Float64frombits(v), n, nil
}

func consumeString(data []byte, what string) (string, int, error) {
	v, n := protowire.ConsumeString(data)
	if n < 0 {
		return "", 0, fmt.Errorf("%s: %w", what, protowire.ParseError(n))
	}
	return v, n, nil
}

// doubleField assigns fixed64 doubles by field number. Used by the small
// messages whose fields are all doubles.
func doubleField(dst []*float64, num protowire.Number, data []byte, what string) (int, bool, error) {
	idx := int(num) - 1
	if idx < 0 || idx >= len(dst) {
		return 0, false, nil
	}
	v, n, err := consumeDouble(data, what)
	if err != nil {
		return 0, false, err
	}
	*dst[idx] = v
	return n, true, nil
}

func unmarshalPose(data []byte) (field.Pose, error) {
	var p field.Pose
	fields := []*float64{&p.X, &p.Y, &p.Z, &p.QW, &p.QX, &p.QY, &p.QZ}
	if err := consumeDoubleMessage(data, fields, "pose"); err != nil {
		return field.Pose{}, err
	}
	return p, nil
}

func unmarshalPoint(data []byte) (field.Point, error) {
	var p field.Point
	fields := []*float64{&p.X, &p.Y, &p.Z}
	if err := consumeDoubleMessage(data, fields, "point"); err != nil {
		return field.Point{}, err
	}
	return p, nil
}

func unmarshalTimedPoint(data []byte) (field.TimedPoint, error) {
	var p field.TimedPoint
	fields := []*float64{&p.Time, &p.X, &p.Y, &p.Z}
	if err := consumeDoubleMessage(data, fields, "timed point"); err != nil {
		return field.TimedPoint{}, err
	}
	return p, nil
}

// consumeDoubleMessage decodes a message whose fields are all doubles,
// numbered 1..len(fields).
func consumeDoubleMessage(data []byte, fields []*float64, what string) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%s tag: %w", what, protowire.ParseError(n))
		}
		data = data[n:]

		if typ == protowire.Fixed64Type {
			n, ok, err := doubleField(fields, num, data, what)
			if err != nil {
				return err
			}
			if ok {
				data = data[n:]
				continue
			}
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return fmt.Errorf("%s field %d: %w", what, num, protowire.ParseError(n))
		}
		data = data[n:]
	}
	return nil
}

func unmarshalRobot(data []byte) (field.RobotObject, error) {
	var r field.RobotObject
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return field.RobotObject{}, fmt.Errorf("robot tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return field.RobotObject{}, fmt.Errorf("robot pose: %w", protowire.ParseError(n))
			}
			pose, err := unmarshalPose(v)
			if err != nil {
				return field.RobotObject{}, err
			}
			r.Pose = pose
			data = data[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return field.RobotObject{}, fmt.Errorf("robot trail: %w", protowire.ParseError(n))
			}
			tp, err := unmarshalTimedPoint(v)
			if err != nil {
				return field.RobotObject{}, err
			}
			r.Trail = append(r.Trail, tp)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return field.RobotObject{}, fmt.Errorf("robot field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return r, nil
}

func unmarshalPath(data []byte) ([]field.Point, error) {
	var path []field.Point
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("path tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("path point: %w", protowire.ParseError(n))
			}
			p, err := unmarshalPoint(v)
			if err != nil {
				return nil, err
			}
			path = append(path, p)
			data = data[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return nil, fmt.Errorf("path field %d: %w", num, protowire.ParseError(n))
		}
		data = data[n:]
	}
	return path, nil
}

func unmarshalArrow(data []byte) (field.ArrowObject, error) {
	var a field.ArrowObject
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return field.ArrowObject{}, fmt.Errorf("arrow tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n, err := consumeString(data, "arrow anchor")
			if err != nil {
				return field.ArrowObject{}, err
			}
			a.Anchor = v
			data = data[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return field.ArrowObject{}, fmt.Errorf("arrow pose: %w", protowire.ParseError(n))
			}
			pose, err := unmarshalPose(v)
			if err != nil {
				return field.ArrowObject{}, err
			}
			a.Pose = pose
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return field.ArrowObject{}, fmt.Errorf("arrow field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return a, nil
}

func unmarshalCamera(data []byte) (field.CameraState, error) {
	var c field.CameraState
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return field.CameraState{}, fmt.Errorf("camera tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n, err := consumeString(data, "camera mode")
			if err != nil {
				return field.CameraState{}, err
			}
			c.Mode = v
			data = data[n:]
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return field.CameraState{}, fmt.Errorf("camera index: %w", protowire.ParseError(n))
			}
			c.Index = int(protowire.DecodeZigZag(v))
			data = data[n:]
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return field.CameraState{}, fmt.Errorf("camera pose: %w", protowire.ParseError(n))
			}
			pose, err := unmarshalPose(v)
			if err != nil {
				return field.CameraState{}, err
			}
			c.Pose = pose
			data = data[n:]
		case num == 4 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return field.CameraState{}, fmt.Errorf("camera target: %w", protowire.ParseError(n))
			}
			p, err := unmarshalPoint(v)
			if err != nil {
				return field.CameraState{}, err
			}
			c.Target = p
			data = data[n:]
		case num == 5 && typ == protowire.Fixed64Type:
			v, n, err := consumeDouble(data, "camera fov")
			if err != nil {
				return field.CameraState{}, err
			}
			c.FOV = v
			data = data[n:]
		case num == 6 && typ == protowire.Fixed64Type:
			v, n, err := consumeDouble(data, "camera aspect")
			if err != nil {
				return field.CameraState{}, err
			}
			aspect := v
			c.Aspect = &aspect
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return field.CameraState{}, fmt.Errorf("camera field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return c, nil
}
