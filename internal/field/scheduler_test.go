package field

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jwbonner/advantagescope/internal/field/extract"
	"github.com/jwbonner/advantagescope/internal/timeutil"
)

func visibleDisplay() DisplayState {
	return DisplayState{Width: 1280, Height: 720, PixelRatio: 1, Visible: true}
}

func newTestScheduler() (*Scheduler, *timeutil.MockClock) {
	clock := timeutil.NewMockClock(time.Unix(100, 0))
	return NewScheduler(clock), clock
}

func TestFirstTickRenders(t *testing.T) {
	s, _ := newTestScheduler()

	assert.True(t, s.ShouldRender(Snapshot{}, visibleDisplay()))
	assert.False(t, s.ShouldRender(Snapshot{}, visibleDisplay()))
}

func TestSnapshotChangeTriggers(t *testing.T) {
	s, _ := newTestScheduler()
	s.ShouldRender(Snapshot{}, visibleDisplay())

	changed := Snapshot{FieldID: "field-2026"}
	assert.True(t, s.ShouldRender(changed, visibleDisplay()))
	assert.False(t, s.ShouldRender(changed, visibleDisplay()))

	changed.CameraIndex = 1
	assert.True(t, s.ShouldRender(changed, visibleDisplay()))

	changed.Bindings = []extract.Binding{{Key: "robot", Role: extract.RoleRobot}}
	assert.True(t, s.ShouldRender(changed, visibleDisplay()))
	assert.False(t, s.ShouldRender(changed, visibleDisplay()))
}

func TestSurfaceChangeTriggers(t *testing.T) {
	s, _ := newTestScheduler()
	s.ShouldRender(Snapshot{}, visibleDisplay())

	d := visibleDisplay()
	d.Width = 1920
	assert.True(t, s.ShouldRender(Snapshot{}, d))

	d.PixelRatio = 2
	assert.True(t, s.ShouldRender(Snapshot{}, d))

	d.DarkMode = true
	assert.True(t, s.ShouldRender(Snapshot{}, d))

	assert.False(t, s.ShouldRender(Snapshot{}, d))
}

func TestCameraMoveTriggers(t *testing.T) {
	s, _ := newTestScheduler()
	s.ShouldRender(Snapshot{}, visibleDisplay())

	moved := visibleDisplay()
	moved.CameraMoved = true
	assert.True(t, s.ShouldRender(Snapshot{}, moved))

	assert.False(t, s.ShouldRender(Snapshot{}, visibleDisplay()))
}

func TestLoadCompletionTriggers(t *testing.T) {
	s, _ := newTestScheduler()
	s.ShouldRender(Snapshot{}, visibleDisplay())
	assert.False(t, s.ShouldRender(Snapshot{}, visibleDisplay()))

	s.NotifyLoadComplete()
	assert.True(t, s.ShouldRender(Snapshot{}, visibleDisplay()))
	assert.False(t, s.ShouldRender(Snapshot{}, visibleDisplay()))
}

func TestHiddenViewAccumulatesTriggers(t *testing.T) {
	s, _ := newTestScheduler()
	s.ShouldRender(Snapshot{}, visibleDisplay())

	hidden := visibleDisplay()
	hidden.Visible = false
	changed := Snapshot{FieldID: "field-2026"}

	assert.False(t, s.ShouldRender(changed, hidden))
	assert.False(t, s.ShouldRender(changed, hidden))

	// First visible tick delivers the deferred redraw.
	assert.True(t, s.ShouldRender(changed, visibleDisplay()))
	assert.False(t, s.ShouldRender(changed, visibleDisplay()))
}

func TestHiddenFromStartRendersOnReveal(t *testing.T) {
	s, _ := newTestScheduler()

	hidden := visibleDisplay()
	hidden.Visible = false
	assert.False(t, s.ShouldRender(Snapshot{}, hidden))

	assert.True(t, s.ShouldRender(Snapshot{}, visibleDisplay()))
}

func TestVisibilityFlipAloneDoesNotRender(t *testing.T) {
	s, _ := newTestScheduler()
	s.ShouldRender(Snapshot{}, visibleDisplay())

	hidden := visibleDisplay()
	hidden.Visible = false
	assert.False(t, s.ShouldRender(Snapshot{}, hidden))
	assert.False(t, s.ShouldRender(Snapshot{}, visibleDisplay()))
}

func TestReducedRateDefersWithoutDropping(t *testing.T) {
	s, clock := newTestScheduler()

	reduced := Snapshot{ReducedRate: true}
	assert.True(t, s.ShouldRender(reduced, visibleDisplay()))

	// A trigger inside the minimum interval stays pending.
	changed := reduced
	changed.Time = 1
	clock.Advance(20 * time.Millisecond)
	assert.False(t, s.ShouldRender(changed, visibleDisplay()))

	clock.Advance(20 * time.Millisecond)
	assert.False(t, s.ShouldRender(changed, visibleDisplay()))

	// Interval elapsed: the deferred redraw fires with no new trigger.
	clock.Advance(30 * time.Millisecond)
	assert.True(t, s.ShouldRender(changed, visibleDisplay()))

	clock.Advance(time.Millisecond)
	assert.False(t, s.ShouldRender(changed, visibleDisplay()))
}

func TestFullRateIgnoresThrottle(t *testing.T) {
	s, _ := newTestScheduler()

	snap := Snapshot{}
	assert.True(t, s.ShouldRender(snap, visibleDisplay()))

	// Consecutive triggers render back to back when not reduced.
	snap.Time = 1
	assert.True(t, s.ShouldRender(snap, visibleDisplay()))
	snap.Time = 2
	assert.True(t, s.ShouldRender(snap, visibleDisplay()))
}
