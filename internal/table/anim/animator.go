// internal/table/anim/animator.go
package anim

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pokerlite/tableclient/internal/protocol"
)

// Phase names what the showdown display is currently doing.
type Phase string

const (
	// PhaseIdle means no showdown is being displayed.
	PhaseIdle Phase = "idle"
	// PhaseFlipping means a fresh showdown just appeared and cards are
	// mid-flip; nothing is highlighted yet.
	PhaseFlipping Phase = "flipping"
	// PhaseRevealing means the flip finished and winning cards and
	// participants are highlighted.
	PhaseRevealing Phase = "revealing"
	// PhaseRunoutShown means remaining community cards are being dealt under
	// an all-in; cards are face-up with no winners known yet.
	PhaseRunoutShown Phase = "runout_shown"
	// PhaseShowModal means the terminal results summary is ready to present.
	PhaseShowModal Phase = "show_modal"
)

// Timing for the invented client-side choreography. The server sends no
// timing hints; these delays pace flip, highlight and summary so players can
// follow what happened.
const (
	FlipDelay        = 3 * time.Second
	ModalDelay       = 6 * time.Second
	RunoutModalDelay = 3 * time.Second

	FoldFlashDuration   = 2 * time.Second
	WinFlashDelay       = 1500 * time.Millisecond
	WinFlashDuration    = 2 * time.Second
	ActionFlashDuration = 1500 * time.Millisecond

	BoardStagger     = 400 * time.Millisecond
	BoardSettleDelay = 1500 * time.Millisecond
)

// State is the ephemeral presentation state derived from the snapshot change
// history plus elapsed time. It is never persisted and holds nothing the
// authoritative snapshot does not already imply.
type State struct {
	Phase Phase

	// FoldFlashes and WinFlashes hold participant ids currently flashing.
	FoldFlashes []string
	WinFlashes  []string

	// ActionFlash is the at-most-one betting action currently flashing.
	ActionFlash *protocol.LastAction

	// RevealedBoard lists community-card indices already settled face-up.
	// PendingReveals maps indices mid flip-animation to their stagger delay.
	RevealedBoard  []int
	PendingReveals map[int]time.Duration
}

// Animator drives the four timed state machines off the authoritative
// snapshot's change signal: the showdown phase machine, the fold and win
// flash trackers, the last-action flash tracker, and the board-reveal
// tracker. One Animator serves exactly one table connection.
//
// All mutation is serialized through a.mu: snapshot observation, timer
// callbacks, and outcome clears run as non-overlapping turns. Every timer is
// tied to the condition-epoch that scheduled it and is invalidated the
// instant that epoch ends.
type Animator struct {
	mu     sync.Mutex
	logger *logrus.Logger
	sched  Scheduler
	timers *timerArena

	prev *protocol.TableState

	phase     Phase
	sawRunout bool

	foldFlash    map[string]bool
	foldAnimated map[string]bool
	winFlash     map[string]bool

	shownAction *protocol.LastAction
	actionFlash *protocol.LastAction

	revealed map[int]bool
	pending  map[int]time.Duration

	// outcomePending is consulted when the showdown block disappears: while a
	// hand-outcome message is still awaiting display, the phase machine holds
	// its phase until OutcomeCleared drives the return to idle.
	outcomePending func() bool
}

// New builds an Animator on the wall clock.
func New(logger *logrus.Logger) *Animator {
	return NewWithScheduler(logger, wallClock{})
}

// NewWithScheduler builds an Animator with an injected Scheduler.
func NewWithScheduler(logger *logrus.Logger, sched Scheduler) *Animator {
	return &Animator{
		logger:       logger,
		sched:        sched,
		timers:       newTimerArena(),
		phase:        PhaseIdle,
		foldFlash:    make(map[string]bool),
		foldAnimated: make(map[string]bool),
		winFlash:     make(map[string]bool),
		revealed:     make(map[int]bool),
		pending:      make(map[int]time.Duration),
	}
}

// SetOutcomePending wires the predicate reporting whether a hand-outcome
// message is still awaiting display. The predicate is invoked while the
// animator processes a snapshot, i.e. under whatever lock the caller holds
// around Observe.
func (a *Animator) SetOutcomePending(fn func() bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outcomePending = fn
}

// Observe feeds the next authoritative snapshot through all four trackers.
// The very first snapshot an Animator sees is adopted as a neutral baseline:
// already-folded players, an already-dealt board and an already-reported last
// action do not animate, so recovery after a reload shows a settled table.
func (a *Animator) Observe(cur *protocol.TableState) {
	if cur == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	prev := a.prev
	a.prev = cur

	if prev == nil {
		a.adoptBaseline(cur)
	} else {
		a.trackBoard(prev, cur)
		a.trackFolds(prev, cur)
		a.trackLastAction(cur)
	}
	a.trackShowdown(prev, cur)
}

// OutcomeCleared is called by the result-display consumer once it dismisses
// the pending hand-outcome. If the showdown block is already gone, the phase
// machine returns to idle.
func (a *Animator) OutcomeCleared() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.prev == nil || a.prev.Showdown == nil {
		a.phase = PhaseIdle
	}
}

// Phase returns the current showdown display phase.
func (a *Animator) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// State returns a copy of the current presentation state.
func (a *Animator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := State{
		Phase:          a.phase,
		FoldFlashes:    sortedKeys(a.foldFlash),
		WinFlashes:     sortedKeys(a.winFlash),
		PendingReveals: make(map[int]time.Duration, len(a.pending)),
	}
	if a.actionFlash != nil {
		flash := *a.actionFlash
		st.ActionFlash = &flash
	}
	for i := range a.revealed {
		st.RevealedBoard = append(st.RevealedBoard, i)
	}
	sort.Ints(st.RevealedBoard)
	for i, d := range a.pending {
		st.PendingReveals[i] = d
	}
	return st
}

// after schedules fn under name, replacing any timer the name already holds.
// The callback re-enters the animator lock and fires only if its epoch is
// still current, so cancellation between scheduling and firing wins.
func (a *Animator) after(name string, d time.Duration, fn func()) {
	epoch := a.timers.arm(name)
	stop := a.sched.AfterFunc(d, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if !a.timers.live(name, epoch) {
			return
		}
		fn()
	})
	a.timers.track(name, stop)
}

// adoptBaseline absorbs the first observed snapshot without animating it.
func (a *Animator) adoptBaseline(cur *protocol.TableState) {
	for i := 0; i < len(cur.Board); i++ {
		a.revealed[i] = true
	}
	for pid := range cur.FoldedSet() {
		a.foldAnimated[pid] = true
	}
	if cur.HandInProgress && cur.LastAction != nil {
		shown := *cur.LastAction
		a.shownAction = &shown
	}
}

// trackBoard maintains the set of community-card indices already revealed.
// A shrinking board is the new-hand signal: the set resets so the next
// streets replay the flip animation from scratch.
func (a *Animator) trackBoard(prev, cur *protocol.TableState) {
	if len(cur.Board) < len(prev.Board) {
		a.resetBoard()
	}

	start := -1
	for i := 0; i < len(cur.Board); i++ {
		if a.revealed[i] {
			continue
		}
		if _, mid := a.pending[i]; mid {
			continue
		}
		if start < 0 {
			start = i
		}
		idx := i
		a.pending[idx] = BoardStagger * time.Duration(idx-start)
		a.after(boardTimer(idx), BoardSettleDelay, func() {
			delete(a.pending, idx)
			a.revealed[idx] = true
		})
	}
}

func (a *Animator) resetBoard() {
	a.revealed = make(map[int]bool)
	a.pending = make(map[int]time.Duration)
	a.timers.cancelPrefix("board.")
}

func boardTimer(idx int) string {
	return fmt.Sprintf("board.%d", idx)
}

// trackFolds flashes participants the moment they fold, exactly once per
// hand. The per-hand guard resets when the folded set empties, which marks a
// new hand, so a snapshot repeating the same folded set never re-fires.
func (a *Animator) trackFolds(prev, cur *protocol.TableState) {
	curFolded := cur.FoldedSet()
	if len(curFolded) == 0 && len(a.foldAnimated) > 0 {
		a.foldAnimated = make(map[string]bool)
	}

	prevFolded := prev.FoldedSet()
	for pid := range curFolded {
		if prevFolded[pid] || a.foldAnimated[pid] {
			continue
		}
		a.foldAnimated[pid] = true
		a.foldFlash[pid] = true
		pid := pid
		a.after("fold."+pid, FoldFlashDuration, func() {
			delete(a.foldFlash, pid)
		})
	}
}

// trackLastAction shows the snapshot's reported last action when it differs
// from the one previously displayed, by actor or kind. Folds are excluded
// here; the fold tracker owns those. The flash and its timer are dropped the
// moment the hand ends.
func (a *Animator) trackLastAction(cur *protocol.TableState) {
	if !cur.HandInProgress {
		if a.actionFlash != nil || a.shownAction != nil {
			a.timers.cancel("action")
			a.actionFlash = nil
			a.shownAction = nil
		}
		return
	}

	la := cur.LastAction
	if la == nil || la.Action == protocol.ActionFold {
		return
	}
	if a.shownAction != nil && a.shownAction.PID == la.PID && a.shownAction.Action == la.Action {
		return
	}

	shown := *la
	a.shownAction = &shown
	a.actionFlash = &shown
	a.after("action", ActionFlashDuration, func() {
		a.actionFlash = nil
	})
}

// trackShowdown runs the phase machine off the previous tick's showdown block
// versus the current tick's.
func (a *Animator) trackShowdown(prev, cur *protocol.TableState) {
	var sd0 *protocol.Showdown
	if prev != nil {
		sd0 = prev.Showdown
	}
	sd1 := cur.Showdown

	switch {
	case sd0 == nil && sd1 != nil:
		if sd1.Runout {
			// Cards are simply shown face-up; no flip delay, no winners yet.
			a.timers.cancel("showdown.reveal")
			a.timers.cancel("showdown.modal")
			a.phase = PhaseRunoutShown
			a.sawRunout = true
			a.logger.Debugf("showdown: run-out shown")
			return
		}
		winners := append([]string(nil), sd1.WinnerPIDs...)
		foldWin := sd1.FoldWin
		a.phase = PhaseFlipping
		a.logger.Debugf("showdown: flipping, %d winner(s)", len(winners))
		a.after("showdown.reveal", FlipDelay, func() {
			a.enterRevealing(winners, !foldWin)
		})
		a.after("showdown.modal", ModalDelay, func() {
			a.phase = PhaseShowModal
		})
		if foldWin {
			// Hand ended by folds; winners flash right away, no reveal to wait on.
			a.flashWinners(winners)
		}

	case sd0 != nil && sd1 != nil:
		if a.sawRunout && !sd1.Runout && len(sd1.WinnerPIDs) > 0 {
			// The run-out resolved into the terminal block. Cards are already
			// face-up, so skip the flip entirely.
			a.sawRunout = false
			winners := append([]string(nil), sd1.WinnerPIDs...)
			a.enterRevealing(winners, true)
			a.after("showdown.modal", RunoutModalDelay, func() {
				a.phase = PhaseShowModal
			})
		}

	case sd0 != nil && sd1 == nil:
		a.timers.cancel("showdown.reveal")
		a.timers.cancel("showdown.modal")
		a.timers.cancel("win.start")
		a.sawRunout = false
		if a.outcomePending == nil || !a.outcomePending() {
			a.phase = PhaseIdle
		}
		// Otherwise hold the phase; OutcomeCleared finishes the return.
	}
}

// enterRevealing switches to the highlight phase and, for card-reveal wins,
// schedules the delayed winner flash so it never precedes the highlight it
// explains.
func (a *Animator) enterRevealing(winners []string, scheduleFlash bool) {
	a.phase = PhaseRevealing
	if scheduleFlash && len(winners) > 0 {
		a.after("win.start", WinFlashDelay, func() {
			a.flashWinners(winners)
		})
	}
}

func (a *Animator) flashWinners(winners []string) {
	a.winFlash = make(map[string]bool, len(winners))
	for _, pid := range winners {
		a.winFlash[pid] = true
	}
	a.after("win.clear", WinFlashDuration, func() {
		a.winFlash = make(map[string]bool)
	})
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
