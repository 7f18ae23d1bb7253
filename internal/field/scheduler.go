package field

import (
	"time"

	"github.com/jwbonner/advantagescope/internal/timeutil"
)

// reducedInterval is the minimum spacing between redraws when the snapshot
// requests reduced-rate mode.
const reducedInterval = time.Second / 15

// Scheduler is the redraw gate, consulted once per display refresh tick.
// A trigger that cannot fire immediately, because the view is hidden or the
// reduced-rate interval has not elapsed, stays pending; it is deferred,
// never dropped.
type Scheduler struct {
	clock timeutil.Clock

	started      bool
	prevSnapshot Snapshot
	prevDisplay  DisplayState

	pending bool

	rendered   bool
	lastRender time.Time
}

// NewScheduler creates a scheduler reading time from clock (the real clock
// when nil). The first tick always renders.
func NewScheduler(clock timeutil.Clock) *Scheduler {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Scheduler{clock: clock}
}

// NotifyLoadComplete marks a redraw pending after an asset install.
func (s *Scheduler) NotifyLoadComplete() {
	s.pending = true
}

// ShouldRender decides whether this tick redraws. Triggers: snapshot value
// change, display surface change, camera viewpoint move, load completion.
// Nothing downstream of a false return runs.
func (s *Scheduler) ShouldRender(snapshot Snapshot, display DisplayState) bool {
	switch {
	case !s.started:
		s.pending = true
	case !snapshot.Equal(s.prevSnapshot),
		!display.surfaceEqual(s.prevDisplay),
		display.CameraMoved:
		s.pending = true
	}
	s.started = true
	s.prevSnapshot = snapshot
	s.prevDisplay = display

	if !s.pending || !display.Visible {
		return false
	}
	if snapshot.ReducedRate && s.rendered && s.clock.Since(s.lastRender) < reducedInterval {
		return false
	}

	s.pending = false
	s.rendered = true
	s.lastRender = s.clock.Now()
	return true
}
