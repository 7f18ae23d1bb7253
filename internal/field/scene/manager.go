package scene

import (
	"github.com/google/uuid"

	"github.com/jwbonner/advantagescope/internal/field/assets"
)

// completionBuffer sizes the load-result channel. Loads are rare relative to
// render turns, so loader goroutines never block for long.
const completionBuffer = 8

type loadResult struct {
	kind      NodeKind
	requestID string
	assetID   string
	node      *Node
	err       error
}

// Stats counts lifecycle outcomes for the monitor surface.
type Stats struct {
	LoadsStarted   uint64
	LoadsInstalled uint64
	LoadFailures   uint64
	StaleDiscards  uint64
}

// Manager owns the singleton field and robot scene-node slots and reconciles
// them against the configuration snapshot. All slot state is mutated only on
// the render turn; loader goroutines communicate exclusively through the
// completions channel, drained at the top of each turn. In-flight loads have
// no cancellation primitive: a superseded result is validated and discarded
// at install time, never aborted.
type Manager struct {
	reader      ModelReader
	completions chan loadResult

	field *Node
	robot *Node

	fieldDesired string
	robotDesired string
	catalogFP    uint64
	seenCatalog  bool

	// request ids of in-flight loads, "" when idle
	fieldLoading string
	robotLoading string

	stats Stats
}

// NewManager creates a lifecycle manager reading models through reader
// (the filesystem when nil).
func NewManager(reader ModelReader) *Manager {
	if reader == nil {
		reader = FSModelReader{}
	}
	return &Manager{
		reader:      reader,
		completions: make(chan loadResult, completionBuffer),
	}
}

// Ensure reconciles the desired field and robot ids against the current
// nodes. Field loads trigger only on id change; robot loads also trigger on
// catalog value change, since catalog edits can move offsets and camera
// mounts for the same id. While a load is in flight the previous node stays
// visible. A load failure leaves the previous node in place and is not
// retried until the snapshot changes again. An id missing from the catalog
// renders nothing for that slot.
func (m *Manager) Ensure(catalog *assets.Catalog, fieldID, robotID string) {
	fp := catalog.Fingerprint()
	catalogChanged := m.seenCatalog && fp != m.catalogFP
	m.catalogFP = fp
	m.seenCatalog = true

	if fieldID != m.fieldDesired {
		m.fieldDesired = fieldID
		m.reloadField(catalog)
	}

	if robotID != m.robotDesired || (catalogChanged && m.robotDesired != "") {
		m.robotDesired = robotID
		m.reloadRobot(catalog)
	}
}

func (m *Manager) reloadField(catalog *assets.Catalog) {
	m.fieldLoading = ""
	if m.fieldDesired == "" {
		m.clearSlot(&m.field)
		return
	}
	desc, ok := catalog.FindField(m.fieldDesired)
	if !ok {
		m.clearSlot(&m.field)
		return
	}

	requestID := uuid.New().String()
	m.fieldLoading = requestID
	m.stats.LoadsStarted++
	go func() {
		data, err := m.reader.ReadModel(desc.Model)
		res := loadResult{kind: KindField, requestID: requestID, assetID: desc.ID, err: err}
		if err == nil {
			res.node = newFieldNode(desc, Model{Path: desc.Model, Data: data})
		}
		m.completions <- res
	}()
}

func (m *Manager) reloadRobot(catalog *assets.Catalog) {
	m.robotLoading = ""
	if m.robotDesired == "" {
		m.clearSlot(&m.robot)
		return
	}
	desc, ok := catalog.FindRobot(m.robotDesired)
	if !ok {
		m.clearSlot(&m.robot)
		return
	}

	requestID := uuid.New().String()
	m.robotLoading = requestID
	m.stats.LoadsStarted++
	go func() {
		data, err := m.reader.ReadModel(desc.Model)
		res := loadResult{kind: KindRobot, requestID: requestID, assetID: desc.ID, err: err}
		if err == nil {
			res.node = newRobotNode(desc, Model{Path: desc.Model, Data: data})
		}
		m.completions <- res
	}()
}

func (m *Manager) clearSlot(slot **Node) {
	if *slot == nil {
		return
	}
	(*slot).Destroy()
	*slot = nil
}

// Drain consumes completed loads on the render turn, installing results that
// still match the current desire and silently discarding superseded ones.
// It returns the number of nodes installed so the scheduler can mark a
// redraw pending.
func (m *Manager) Drain() int {
	installed := 0
	for {
		select {
		case res := <-m.completions:
			if m.apply(res) {
				installed++
			}
		default:
			return installed
		}
	}
}

func (m *Manager) apply(res loadResult) bool {
	loading := &m.fieldLoading
	desired := m.fieldDesired
	slot := &m.field
	if res.kind == KindRobot {
		loading = &m.robotLoading
		desired = m.robotDesired
		slot = &m.robot
	}

	if res.requestID != *loading {
		m.stats.StaleDiscards++
		return false
	}
	*loading = ""

	if res.err != nil {
		m.stats.LoadFailures++
		return false
	}

	// Re-validate the loaded id against the then-current desired id.
	if res.assetID != desired {
		m.stats.StaleDiscards++
		return false
	}

	// Atomic swap: remove the old node from its parent first, but only if
	// it was currently attached.
	wasAttached := true
	if *slot != nil {
		wasAttached = (*slot).attached
		(*slot).Destroy()
	}
	res.node.attached = wasAttached
	*slot = res.node
	m.stats.LoadsInstalled++
	return true
}

// Field returns the current field node, nil when the slot is empty.
func (m *Manager) Field() *Node { return m.field }

// Robot returns the current robot node, nil when the slot is empty.
func (m *Manager) Robot() *Node { return m.robot }

// Loading reports whether any load is in flight.
func (m *Manager) Loading() bool {
	return m.fieldLoading != "" || m.robotLoading != ""
}

// SetRobotAttached reconciles robot visibility with telemetry presence.
func (m *Manager) SetRobotAttached(attached bool) {
	if m.robot != nil {
		m.robot.attached = attached
	}
}

// Stats returns a copy of the lifecycle counters.
func (m *Manager) Stats() Stats {
	return m.stats
}
