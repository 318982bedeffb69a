// internal/table/controller.go
package table

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pokerlite/tableclient/internal/protocol"
	"github.com/pokerlite/tableclient/internal/table/anim"
)

// maxLogEntries caps the rolling event log; the oldest entries drop first.
const maxLogEntries = 50

// LogEntry is one line of the rolling table log.
type LogEntry struct {
	Time    time.Time
	Message string
}

// Controller owns one table connection's client-side state: the authoritative
// snapshot (replaced wholesale on every state frame), the rolling event log,
// the pending hand-outcome message, and the animator deriving presentation
// state from snapshot deltas. Controllers never share state; opening a second
// table means building a second Controller.
type Controller struct {
	mu      sync.Mutex
	logger  *logrus.Logger
	tableID string

	myPID    string
	snapshot *protocol.TableState
	entries  []LogEntry

	pendingOutcome string

	animator *anim.Animator

	// onIdentity receives the server-assigned participant id from a welcome
	// frame so the identity resolver can persist it.
	onIdentity func(pid string)

	// onChange fires after every applied frame; renderers hang off it.
	onChange func()

	// sink, when set, receives every log entry for out-of-process capture.
	// It must not block.
	sink func(tableID, message string, ts time.Time)
}

// New builds a Controller for one table using the wall clock.
func New(tableID string, logger *logrus.Logger) *Controller {
	return NewWithAnimator(tableID, logger, anim.New(logger))
}

// NewWithAnimator builds a Controller around an existing animator, which
// tests construct with a fake scheduler.
func NewWithAnimator(tableID string, logger *logrus.Logger, animator *anim.Animator) *Controller {
	c := &Controller{
		logger:   logger,
		tableID:  tableID,
		animator: animator,
	}
	// Safe without c.mu: the animator only consults this while Observe runs,
	// and Observe is only called with c.mu held.
	animator.SetOutcomePending(func() bool { return c.pendingOutcome != "" })
	return c
}

// SetOnIdentity registers the callback receiving the assigned participant id.
func (c *Controller) SetOnIdentity(fn func(pid string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onIdentity = fn
}

// SetOnChange registers the change notification callback. It is invoked
// outside the controller lock.
func (c *Controller) SetOnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// SetEventSink registers a receiver for log entries, e.g. a Redis queue.
func (c *Controller) SetEventSink(fn func(tableID, message string, ts time.Time)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = fn
}

// HandleMessage ingests one decoded inbound frame.
func (c *Controller) HandleMessage(msg *protocol.ServerMessage) {
	c.mu.Lock()
	var notifyIdentity func(pid string)
	var pid string

	switch msg.Type {
	case protocol.MsgWelcome:
		c.myPID = msg.PID
		c.appendLogLocked("Joined as " + shortPID(msg.PID))
		notifyIdentity = c.onIdentity
		pid = msg.PID

	case protocol.MsgState:
		c.snapshot = msg.State
		c.animator.Observe(msg.State)

	case protocol.MsgInfo:
		c.appendLogLocked(msg.Message)
		if IsHandOutcome(msg.Message) {
			// A new outcome overwrites one still awaiting display.
			c.pendingOutcome = msg.Message
		}
	}

	notifyChange := c.onChange
	c.mu.Unlock()

	if notifyIdentity != nil {
		notifyIdentity(pid)
	}
	if notifyChange != nil {
		notifyChange()
	}
}

// AppendLog adds a local-only line to the rolling log, e.g. lifecycle notes
// and rejected offline commands.
func (c *Controller) AppendLog(message string) {
	c.mu.Lock()
	c.appendLogLocked(message)
	notify := c.onChange
	c.mu.Unlock()
	if notify != nil {
		notify()
	}
}

func (c *Controller) appendLogLocked(message string) {
	now := time.Now()
	c.entries = append(c.entries, LogEntry{Time: now, Message: message})
	if len(c.entries) > maxLogEntries {
		c.entries = c.entries[len(c.entries)-maxLogEntries:]
	}
	if c.sink != nil {
		c.sink(c.tableID, message, now)
	}
}

// TableID returns the table this controller is bound to.
func (c *Controller) TableID() string {
	return c.tableID
}

// MyPID returns the server-assigned participant id, or "" before welcome.
func (c *Controller) MyPID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.myPID
}

// Snapshot returns the current authoritative snapshot. The snapshot is
// replaced wholesale and never mutated in place, so the pointer is safe to
// read after release.
func (c *Controller) Snapshot() *protocol.TableState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Logs returns a copy of the rolling log, oldest first.
func (c *Controller) Logs() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// HandOutcome returns the hand-outcome message awaiting display, or "".
func (c *Controller) HandOutcome() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingOutcome
}

// ClearHandOutcome is called by the result display once dismissed. It also
// lets the phase machine finish its return to idle if the showdown block is
// already gone.
func (c *Controller) ClearHandOutcome() {
	c.mu.Lock()
	c.pendingOutcome = ""
	c.mu.Unlock()
	c.animator.OutcomeCleared()
}

// Presentation returns the animator's current presentation state.
func (c *Controller) Presentation() anim.State {
	return c.animator.State()
}

func shortPID(pid string) string {
	if len(pid) > 8 {
		return pid[:8]
	}
	return pid
}
