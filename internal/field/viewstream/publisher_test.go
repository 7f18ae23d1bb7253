package viewstream

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jwbonner/advantagescope/internal/field"
)

func testFrame(seq uint64, t float64) *field.SceneFrame {
	return &field.SceneFrame{
		Seq:     seq,
		Time:    t,
		Bumpers: "blue",
		Origin:  "blue",
		Axes:    field.Pose{QW: 1},
		Camera:  field.CameraState{Mode: "orbit-field", Index: -1},
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ListenAddr != "localhost:50061" {
		t.Errorf("expected ListenAddr=localhost:50061, got %s", cfg.ListenAddr)
	}
	if cfg.MaxClients != 5 {
		t.Errorf("expected MaxClients=5, got %d", cfg.MaxClients)
	}
}

func TestNewPublisher(t *testing.T) {
	pub := NewPublisher(DefaultConfig())

	if pub == nil {
		t.Fatal("expected non-nil Publisher")
	}
	if pub.frameChan == nil {
		t.Error("expected non-nil frameChan")
	}
	if pub.clients == nil {
		t.Error("expected non-nil clients map")
	}
	if pub.stopCh == nil {
		t.Error("expected non-nil stopCh")
	}
	if pub.log == nil {
		t.Error("expected non-nil logger")
	}
}

func TestPublisherStatsNotRunning(t *testing.T) {
	pub := NewPublisher(DefaultConfig())

	stats := pub.Stats()
	if stats.Running {
		t.Error("expected Running=false before Start")
	}
	if stats.FrameCount != 0 {
		t.Errorf("expected FrameCount=0, got %d", stats.FrameCount)
	}
	if stats.ClientCount != 0 {
		t.Errorf("expected ClientCount=0, got %d", stats.ClientCount)
	}
}

func TestPublisherStartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = "localhost:0"
	pub := NewPublisher(cfg)

	if err := pub.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !pub.Stats().Running {
		t.Error("expected Running=true after Start")
	}
	if pub.Addr() == nil {
		t.Error("expected non-nil Addr after Start")
	}

	if err := pub.Start(); err == nil {
		t.Error("expected error when starting already running publisher")
	}

	pub.Stop()
	if pub.Stats().Running {
		t.Error("expected Running=false after Stop")
	}

	// Stop again should be safe.
	pub.Stop()
}

func TestPublisherPublishNotRunning(t *testing.T) {
	pub := NewPublisher(DefaultConfig())

	pub.Publish(testFrame(1, 0.1))

	if got := pub.Stats().FrameCount; got != 0 {
		t.Errorf("expected FrameCount=0 when not running, got %d", got)
	}
}

func TestPublisherPublishNil(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = "localhost:0"
	pub := NewPublisher(cfg)

	if err := pub.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer pub.Stop()

	pub.Publish(nil)

	if got := pub.Stats().FrameCount; got != 0 {
		t.Errorf("expected FrameCount=0 for nil frame, got %d", got)
	}
}

func TestPublisherPublishRunning(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = "localhost:0"
	pub := NewPublisher(cfg)

	if err := pub.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer pub.Stop()

	pub.Publish(testFrame(1, 0.1))

	// Give the broadcast loop time to process.
	time.Sleep(10 * time.Millisecond)

	if got := pub.Stats().FrameCount; got != 1 {
		t.Errorf("expected FrameCount=1, got %d", got)
	}
}

func TestPublisherAddRemoveClient(t *testing.T) {
	pub := NewPublisher(DefaultConfig())

	client := pub.addClient("client-1")
	if client == nil {
		t.Fatal("expected non-nil client")
	}
	if client.id != "client-1" {
		t.Errorf("expected id=client-1, got %s", client.id)
	}
	if got := pub.Stats().ClientCount; got != 1 {
		t.Errorf("expected ClientCount=1, got %d", got)
	}

	pub.removeClient("client-1")
	if got := pub.Stats().ClientCount; got != 0 {
		t.Errorf("expected ClientCount=0 after remove, got %d", got)
	}

	// Removing an unknown client is safe.
	pub.removeClient("client-99")
	if got := pub.Stats().ClientCount; got != 0 {
		t.Errorf("expected ClientCount=0, got %d", got)
	}
}

func TestPublisherClientLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxClients = 2
	pub := NewPublisher(cfg)

	if pub.addClient("client-1") == nil {
		t.Fatal("expected first client to be accepted")
	}
	if pub.addClient("client-2") == nil {
		t.Fatal("expected second client to be accepted")
	}
	if pub.addClient("client-3") != nil {
		t.Error("expected third client to be refused")
	}

	pub.removeClient("client-1")
	if pub.addClient("client-4") == nil {
		t.Error("expected client to be accepted after a slot freed")
	}
}

func TestPublisherBroadcastToClients(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = "localhost:0"
	pub := NewPublisher(cfg)

	if err := pub.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer pub.Stop()

	client := pub.addClient("client-1")
	pub.Publish(testFrame(7, 0.5))

	select {
	case received := <-client.frameCh:
		if received.Seq != 7 {
			t.Errorf("expected Seq=7, got %d", received.Seq)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for frame")
	}
}

func TestPublisherFrameDropOnSlowClient(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = "localhost:0"
	pub := NewPublisher(cfg)

	if err := pub.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer pub.Stop()

	client := pub.addClient("client-1")

	// The client buffer holds 10 frames; publishing 15 without draining
	// must drop the overflow rather than block.
	for i := 0; i < 15; i++ {
		pub.Publish(testFrame(uint64(i+1), float64(i)*0.066))
		time.Sleep(time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)

	count := 0
drain:
	for {
		select {
		case <-client.frameCh:
			count++
		default:
			break drain
		}
	}

	if count > 10 {
		t.Errorf("expected at most 10 frames (buffer size), got %d", count)
	}
	if pub.Stats().DroppedFrames == 0 {
		t.Error("expected DroppedFrames > 0 for slow client")
	}
}

func TestPublisherConcurrentPublish(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = "localhost:0"
	pub := NewPublisher(cfg)

	if err := pub.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer pub.Stop()

	var wg sync.WaitGroup
	numGoroutines := 10
	framesPerGoroutine := 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < framesPerGoroutine; j++ {
				pub.Publish(testFrame(uint64(id*100+j), 0))
			}
		}(i)
	}
	wg.Wait()

	time.Sleep(50 * time.Millisecond)

	want := uint64(numGoroutines * framesPerGoroutine)
	if got := pub.Stats().FrameCount; got != want {
		t.Errorf("expected FrameCount=%d, got %d", want, got)
	}
}

// captureRecorder collects recorded frames in memory.
type captureRecorder struct {
	mu     sync.Mutex
	frames []*field.SceneFrame
	err    error
}

func (r *captureRecorder) Record(frame *field.SceneFrame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.frames = append(r.frames, frame)
	return nil
}

func (r *captureRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func TestPublisherRecorder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = "localhost:0"
	pub := NewPublisher(cfg)

	if err := pub.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer pub.Stop()

	rec := &captureRecorder{}
	pub.SetRecorder(rec)

	for i := 0; i < 3; i++ {
		pub.Publish(testFrame(uint64(i+1), float64(i)*0.066))
	}
	time.Sleep(50 * time.Millisecond)

	if got := rec.count(); got != 3 {
		t.Errorf("expected 3 recorded frames, got %d", got)
	}

	pub.ClearRecorder()
	pub.Publish(testFrame(4, 0.2))
	time.Sleep(20 * time.Millisecond)

	if got := rec.count(); got != 3 {
		t.Errorf("expected no frames recorded after ClearRecorder, got %d", got)
	}
}

func TestPublisherRecorderErrorDoesNotStopBroadcast(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = "localhost:0"
	pub := NewPublisher(cfg)

	if err := pub.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer pub.Stop()

	pub.SetRecorder(&captureRecorder{err: fmt.Errorf("disk full")})
	client := pub.addClient("client-1")

	pub.Publish(testFrame(1, 0.1))

	select {
	case received := <-client.frameCh:
		if received.Seq != 1 {
			t.Errorf("expected Seq=1, got %d", received.Seq)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for frame despite recorder error")
	}
}
