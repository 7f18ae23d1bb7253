package api

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/jwbonner/advantagescope/internal/applog"
	"github.com/jwbonner/advantagescope/internal/field"
	"github.com/jwbonner/advantagescope/internal/field/extract"
)

// stubControl records every call so tests can assert what the routes drove.
type stubControl struct {
	mu        sync.Mutex
	snapshots []field.Snapshot
	displays  []field.DisplayState
	cameras   []int
	frame     *field.SceneFrame
	aspect    *float64
}

func (s *stubControl) PushSnapshot(snap field.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snap)
}

func (s *stubControl) SetDisplay(d field.DisplayState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displays = append(s.displays, d)
}

func (s *stubControl) SelectCamera(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cameras = append(s.cameras, index)
}

func (s *stubControl) LatestFrame() *field.SceneFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

func (s *stubControl) AspectRatio() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aspect == nil {
		return 0, false
	}
	return *s.aspect, true
}

func (s *stubControl) setFrame(f *field.SceneFrame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = f
}

func newTestServer(ctrl *stubControl) *Server {
	return NewServer(ServerConfig{
		Address: "localhost:0",
		Control: ctrl,
		Log:     applog.New("error", io.Discard),
	})
}

func testRequest(t *testing.T, s *Server, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(&stubControl{})

	resp := testRequest(t, s, http.MethodGet, "/api/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
	if body["service"] != "fieldview" {
		t.Errorf("expected service fieldview, got %q", body["service"])
	}
}

func TestFrameBeforeFirstRender(t *testing.T) {
	s := newTestServer(&stubControl{})

	resp := testRequest(t, s, http.MethodGet, "/api/frame", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] == "" {
		t.Error("expected an error message")
	}
}

func TestFrameLatest(t *testing.T) {
	aspect := 16.0 / 9.0
	want := &field.SceneFrame{
		Seq:         9,
		Time:        4.5,
		Bumpers:     "blue",
		Origin:      "red",
		FieldID:     "2026-field",
		RobotID:     "robot-a",
		FieldWidth:  16.541,
		FieldHeight: 8.211,
		Axes:        field.Pose{X: 1, QW: 1},
		Robots: []field.RobotObject{
			{Pose: field.Pose{X: 2, Y: 3, QW: 1}},
		},
		Camera: field.CameraState{Mode: "fixed", Index: 2, FOV: 50, Aspect: &aspect},
	}
	s := newTestServer(&stubControl{frame: want})

	resp := testRequest(t, s, http.MethodGet, "/api/frame", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got field.SceneFrame
	decodeBody(t, resp, &got)
	if diff := cmp.Diff(*want, got); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}
}

func TestAspect(t *testing.T) {
	aspect := 1.25
	s := newTestServer(&stubControl{aspect: &aspect})

	resp := testRequest(t, s, http.MethodGet, "/api/aspect", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body aspectResponse
	decodeBody(t, resp, &body)
	if body.Aspect == nil || *body.Aspect != 1.25 {
		t.Errorf("expected aspect 1.25, got %v", body.Aspect)
	}
}

func TestAspectOrbitModes(t *testing.T) {
	s := newTestServer(&stubControl{})

	resp := testRequest(t, s, http.MethodGet, "/api/aspect", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body aspectResponse
	decodeBody(t, resp, &body)
	if body.Aspect != nil {
		t.Errorf("expected null aspect, got %v", *body.Aspect)
	}
}

func TestCameraSelect(t *testing.T) {
	ctrl := &stubControl{}
	s := newTestServer(ctrl)

	resp := testRequest(t, s, http.MethodPost, "/api/camera", `{"index": 2}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Orbit modes use negative indices.
	resp = testRequest(t, s, http.MethodPost, "/api/camera", `{"index": -1}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if diff := cmp.Diff([]int{2, -1}, ctrl.cameras); diff != "" {
		t.Errorf("camera selections mismatch (-want +got):\n%s", diff)
	}
}

func TestCameraMissingIndex(t *testing.T) {
	ctrl := &stubControl{}
	s := newTestServer(ctrl)

	resp := testRequest(t, s, http.MethodPost, "/api/camera", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if len(ctrl.cameras) != 0 {
		t.Errorf("expected no camera selection, got %v", ctrl.cameras)
	}
}

func TestCameraMalformedBody(t *testing.T) {
	s := newTestServer(&stubControl{})

	resp := testRequest(t, s, http.MethodPost, "/api/camera", `{"index": "front"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSnapshotPush(t *testing.T) {
	ctrl := &stubControl{}
	s := newTestServer(ctrl)

	body := `{
		"time": 12.5,
		"fieldId": "2026-field",
		"robotId": "robot-a",
		"cameraIndex": 1,
		"reducedRate": true,
		"bumpers": "red",
		"origin": "blue",
		"distanceUnits": "inches",
		"rotationUnits": "degrees",
		"bindings": [
			{"key": "/robot/pose", "role": "robot"},
			{"key": "/auto/trajectory", "role": "trajectory"}
		],
		"enabledKey": "/ds/enabled",
		"allianceKey": "/ds/alliance"
	}`
	resp := testRequest(t, s, http.MethodPost, "/api/snapshot", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	want := field.Snapshot{
		Time:          12.5,
		FieldID:       "2026-field",
		RobotID:       "robot-a",
		CameraIndex:   1,
		ReducedRate:   true,
		Bumpers:       extract.ChoiceRed,
		Origin:        extract.ChoiceBlue,
		DistanceUnits: "inches",
		RotationUnits: "degrees",
		Bindings: []extract.Binding{
			{Key: "/robot/pose", Role: extract.RoleRobot},
			{Key: "/auto/trajectory", Role: extract.RoleTrajectory},
		},
		EnabledKey:  "/ds/enabled",
		AllianceKey: "/ds/alliance",
	}

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if len(ctrl.snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(ctrl.snapshots))
	}
	if diff := cmp.Diff(want, ctrl.snapshots[0]); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshotRejectsUnknownAlliance(t *testing.T) {
	ctrl := &stubControl{}
	s := newTestServer(ctrl)

	resp := testRequest(t, s, http.MethodPost, "/api/snapshot", `{"bumpers": "purple"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if len(ctrl.snapshots) != 0 {
		t.Errorf("expected no snapshot, got %d", len(ctrl.snapshots))
	}
}

func TestDisplayPush(t *testing.T) {
	ctrl := &stubControl{}
	s := newTestServer(ctrl)

	body := `{"width": 1280, "height": 720, "pixelRatio": 2, "darkMode": true, "visible": true, "cameraMoved": true}`
	resp := testRequest(t, s, http.MethodPost, "/api/display", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	want := field.DisplayState{
		Width:       1280,
		Height:      720,
		PixelRatio:  2,
		DarkMode:    true,
		Visible:     true,
		CameraMoved: true,
	}

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if len(ctrl.displays) != 1 {
		t.Fatalf("expected 1 display push, got %d", len(ctrl.displays))
	}
	if diff := cmp.Diff(want, ctrl.displays[0]); diff != "" {
		t.Errorf("display mismatch (-want +got):\n%s", diff)
	}
}

func TestUnknownRouteRendersJSONError(t *testing.T) {
	s := newTestServer(&stubControl{})

	resp := testRequest(t, s, http.MethodGet, "/api/nope", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	var body map[string]string
	decodeBody(t, resp, &body)
	if body["error"] == "" {
		t.Error("expected an error message")
	}
}

func TestFrameSocketRequiresUpgrade(t *testing.T) {
	s := newTestServer(&stubControl{})

	resp := testRequest(t, s, http.MethodGet, "/ws/frames", "")
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestFrameSocketStreams(t *testing.T) {
	ctrl := &stubControl{frame: &field.SceneFrame{Seq: 1, Time: 0.25, Camera: field.CameraState{Mode: "orbit-field", Index: -1}}}
	s := newTestServer(ctrl)
	s.pushInterval = 2 * time.Millisecond

	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = s.app.Listener(ln) }()
	defer func() { _ = s.app.Shutdown() }()

	url := "ws://" + ln.Addr().String() + "/ws/frames"
	var conn *websocket.Conn
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, _, err = websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dial %s: %v", url, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	defer conn.Close()

	readFrame := func() field.SceneFrame {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var frame field.SceneFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		return frame
	}

	if got := readFrame(); got.Seq != 1 {
		t.Errorf("expected seq 1, got %d", got.Seq)
	}

	ctrl.setFrame(&field.SceneFrame{Seq: 2, Time: 0.5, Camera: field.CameraState{Mode: "orbit-field", Index: -1}})
	if got := readFrame(); got.Seq != 2 {
		t.Errorf("expected seq 2, got %d", got.Seq)
	}
}

func TestFrameSocketSkipsUnchangedSeq(t *testing.T) {
	ctrl := &stubControl{frame: &field.SceneFrame{Seq: 5, Time: 1}}
	s := newTestServer(ctrl)
	s.pushInterval = 2 * time.Millisecond

	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = s.app.Listener(ln) }()
	defer func() { _ = s.app.Shutdown() }()

	url := "ws://" + ln.Addr().String() + "/ws/frames"
	var conn *websocket.Conn
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, _, err = websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("dial %s: %v", url, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first field.SceneFrame
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if first.Seq != 5 {
		t.Errorf("expected seq 5, got %d", first.Seq)
	}

	// The sequence has not advanced, so no further frame should arrive.
	conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	var second field.SceneFrame
	if err := conn.ReadJSON(&second); err == nil {
		t.Errorf("expected read timeout, got frame seq %d", second.Seq)
	}
}
