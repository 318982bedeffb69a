package anim

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pokerlite/tableclient/internal/protocol"
)

// fakeScheduler runs scheduled callbacks when the test advances its clock,
// in due-time order.
type fakeScheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	at      time.Duration
	seq     int
	fn      func()
	fired   bool
	stopped bool
}

func (s *fakeScheduler) AfterFunc(d time.Duration, fn func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &fakeTimer{at: s.now + d, seq: s.seq, fn: fn}
	s.timers = append(s.timers, t)
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if t.fired || t.stopped {
			return false
		}
		t.stopped = true
		return true
	}
}

// Advance moves the clock forward, firing due callbacks in order.
func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	for {
		var next *fakeTimer
		for _, t := range s.timers {
			if t.fired || t.stopped || t.at > target {
				continue
			}
			if next == nil || t.at < next.at || (t.at == next.at && t.seq < next.seq) {
				next = t
			}
		}
		if next == nil {
			break
		}
		s.now = next.at
		next.fired = true
		fn := next.fn
		s.mu.Unlock()
		fn()
		s.mu.Lock()
	}
	s.now = target
	s.mu.Unlock()
}

func newTestAnimator() (*Animator, *fakeScheduler) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	sched := &fakeScheduler{}
	return NewWithScheduler(logger, sched), sched
}

func snap(mutate ...func(*protocol.TableState)) *protocol.TableState {
	st := &protocol.TableState{
		TableID: "T1",
		Players: []protocol.Player{
			{PID: "p1", Name: "Alice", Stack: 500, Seat: 1, Connected: true},
			{PID: "p2", Name: "Bob", Stack: 500, Seat: 2, Connected: true},
		},
		HandInProgress: true,
		PlayerBets:     map[string]int{},
	}
	for _, fn := range mutate {
		fn(st)
	}
	return st
}

func withBoard(cards ...string) func(*protocol.TableState) {
	return func(st *protocol.TableState) { st.Board = cards }
}

func withFolded(pids ...string) func(*protocol.TableState) {
	return func(st *protocol.TableState) {
		for i := range st.Players {
			for _, pid := range pids {
				if st.Players[i].PID == pid {
					st.Players[i].Folded = true
				}
			}
		}
	}
}

func withShowdown(sd *protocol.Showdown) func(*protocol.TableState) {
	return func(st *protocol.TableState) {
		st.Showdown = sd
		st.HandInProgress = false
	}
}

func terminalShowdown(winners ...string) *protocol.Showdown {
	return &protocol.Showdown{
		Players:    map[string]protocol.ShowdownPlayer{},
		WinnerPIDs: winners,
	}
}

func TestFreshShowdownSequence(t *testing.T) {
	a, sched := newTestAnimator()

	a.Observe(snap()) // baseline
	assert.Equal(t, PhaseIdle, a.Phase())

	a.Observe(snap(withShowdown(terminalShowdown("p1"))))
	assert.Equal(t, PhaseFlipping, a.Phase())
	assert.Empty(t, a.State().WinFlashes, "no highlight while flipping")

	sched.Advance(FlipDelay - time.Millisecond)
	assert.Equal(t, PhaseFlipping, a.Phase(), "revealing must not start early")

	sched.Advance(time.Millisecond)
	assert.Equal(t, PhaseRevealing, a.Phase())
	assert.Empty(t, a.State().WinFlashes, "win flash trails the highlight")

	sched.Advance(WinFlashDelay)
	assert.Equal(t, []string{"p1"}, a.State().WinFlashes)

	// ModalDelay is measured from the block's appearance.
	sched.Advance(ModalDelay - FlipDelay - WinFlashDelay)
	assert.Equal(t, PhaseShowModal, a.Phase())

	sched.Advance(WinFlashDelay + WinFlashDuration - (ModalDelay - FlipDelay))
	assert.Empty(t, a.State().WinFlashes, "win flash auto-clears")

	// Block gone, no outcome pending: straight back to idle.
	a.Observe(snap())
	assert.Equal(t, PhaseIdle, a.Phase())
}

func TestRunoutSequenceSkipsFlipping(t *testing.T) {
	a, sched := newTestAnimator()

	var phases []Phase
	record := func() {
		if n := len(phases); n == 0 || phases[n-1] != a.Phase() {
			phases = append(phases, a.Phase())
		}
	}

	a.Observe(snap())
	record()

	a.Observe(snap(withShowdown(&protocol.Showdown{Runout: true})))
	record()

	a.Observe(snap(withShowdown(terminalShowdown("p2"))))
	record()

	sched.Advance(RunoutModalDelay)
	record()

	a.Observe(snap())
	record()

	assert.Equal(t, []Phase{PhaseIdle, PhaseRunoutShown, PhaseRevealing, PhaseShowModal, PhaseIdle}, phases)
}

func TestRunoutFlagConsumedOnce(t *testing.T) {
	a, sched := newTestAnimator()

	a.Observe(snap())
	a.Observe(snap(withShowdown(&protocol.Showdown{Runout: true})))
	a.Observe(snap(withShowdown(terminalShowdown("p1"))))
	assert.Equal(t, PhaseRevealing, a.Phase())
	sched.Advance(RunoutModalDelay)
	a.Observe(snap())
	assert.Equal(t, PhaseIdle, a.Phase())

	// A later unrelated showdown is fresh again: it must flip.
	a.Observe(snap(withShowdown(terminalShowdown("p2"))))
	assert.Equal(t, PhaseFlipping, a.Phase())
}

func TestEarlyBlockDisappearanceCancelsTimers(t *testing.T) {
	a, sched := newTestAnimator()

	a.Observe(snap())
	a.Observe(snap(withShowdown(terminalShowdown("p1"))))
	assert.Equal(t, PhaseFlipping, a.Phase())

	// Next hand arrives before the flip completes.
	a.Observe(snap())
	assert.Equal(t, PhaseIdle, a.Phase())

	sched.Advance(ModalDelay + WinFlashDelay + WinFlashDuration)
	assert.Equal(t, PhaseIdle, a.Phase(), "stale showdown timers must never fire")
	assert.Empty(t, a.State().WinFlashes)
}

func TestOutcomePendingHoldsPhase(t *testing.T) {
	a, sched := newTestAnimator()

	pending := true
	a.SetOutcomePending(func() bool { return pending })

	a.Observe(snap())
	a.Observe(snap(withShowdown(terminalShowdown("p1"))))
	sched.Advance(ModalDelay)
	assert.Equal(t, PhaseShowModal, a.Phase())

	// Block disappears while the outcome message is still on screen.
	a.Observe(snap())
	assert.Equal(t, PhaseShowModal, a.Phase(), "phase held until the outcome is cleared")

	pending = false
	a.OutcomeCleared()
	assert.Equal(t, PhaseIdle, a.Phase())
}

func TestFoldWinFlashesImmediately(t *testing.T) {
	a, sched := newTestAnimator()

	a.Observe(snap())
	a.Observe(snap(withShowdown(&protocol.Showdown{
		WinnerPIDs: []string{"p2"},
		FoldWin:    true,
	})))

	assert.Equal(t, PhaseFlipping, a.Phase())
	assert.Equal(t, []string{"p2"}, a.State().WinFlashes, "fold-win flash does not wait for the reveal")

	sched.Advance(WinFlashDuration)
	assert.Empty(t, a.State().WinFlashes)

	// The reveal-delayed flash must not re-fire for a fold win.
	sched.Advance(ModalDelay)
	assert.Empty(t, a.State().WinFlashes)
	assert.Equal(t, PhaseShowModal, a.Phase())
}

func TestFoldFlashFiresExactlyOncePerHand(t *testing.T) {
	a, sched := newTestAnimator()

	a.Observe(snap())
	a.Observe(snap(withFolded("p2")))
	assert.Equal(t, []string{"p2"}, a.State().FoldFlashes)

	sched.Advance(FoldFlashDuration)
	assert.Empty(t, a.State().FoldFlashes)

	// Repeated snapshots with the same folded set must not re-fire.
	a.Observe(snap(withFolded("p2")))
	a.Observe(snap(withFolded("p2")))
	assert.Empty(t, a.State().FoldFlashes)

	// New hand: folded set empties, guard resets, a fresh fold flashes again.
	a.Observe(snap())
	a.Observe(snap(withFolded("p2")))
	assert.Equal(t, []string{"p2"}, a.State().FoldFlashes)
}

func TestLastActionFlash(t *testing.T) {
	a, sched := newTestAnimator()

	a.Observe(snap())
	a.Observe(snap(func(st *protocol.TableState) {
		st.LastAction = &protocol.LastAction{PID: "p1", Action: protocol.ActionRaise, Amount: 40}
	}))
	st := a.State()
	require.NotNil(t, st.ActionFlash)
	assert.Equal(t, protocol.ActionRaise, st.ActionFlash.Action)

	sched.Advance(ActionFlashDuration)
	assert.Nil(t, a.State().ActionFlash)

	// Same actor and kind repeated: no new flash.
	a.Observe(snap(func(st *protocol.TableState) {
		st.LastAction = &protocol.LastAction{PID: "p1", Action: protocol.ActionRaise, Amount: 40}
	}))
	assert.Nil(t, a.State().ActionFlash)

	// Different kind from the same actor: flash again.
	a.Observe(snap(func(st *protocol.TableState) {
		st.LastAction = &protocol.LastAction{PID: "p1", Action: protocol.ActionCall}
	}))
	require.NotNil(t, a.State().ActionFlash)

	// Hand ends: flash clears immediately with no timer left to fire.
	a.Observe(snap(func(st *protocol.TableState) {
		st.HandInProgress = false
		st.LastAction = &protocol.LastAction{PID: "p1", Action: protocol.ActionCall}
	}))
	assert.Nil(t, a.State().ActionFlash)
	sched.Advance(ActionFlashDuration)
	assert.Nil(t, a.State().ActionFlash)
}

func TestFoldActionsExcludedFromActionFlash(t *testing.T) {
	a, _ := newTestAnimator()

	a.Observe(snap())
	a.Observe(snap(func(st *protocol.TableState) {
		st.LastAction = &protocol.LastAction{PID: "p2", Action: protocol.ActionFold}
	}))
	assert.Nil(t, a.State().ActionFlash, "folds belong to the fold tracker")
}

func TestBoardRevealFlow(t *testing.T) {
	a, sched := newTestAnimator()

	a.Observe(snap(withBoard()))
	a.Observe(snap(withBoard("Ah", "Kd", "Qs")))

	st := a.State()
	assert.Empty(t, st.RevealedBoard)
	assert.Equal(t, map[int]time.Duration{
		0: 0,
		1: BoardStagger,
		2: 2 * BoardStagger,
	}, st.PendingReveals)

	sched.Advance(BoardSettleDelay)
	st = a.State()
	assert.Equal(t, []int{0, 1, 2}, st.RevealedBoard)
	assert.Empty(t, st.PendingReveals)

	// Turn card: single new index, zero stagger.
	a.Observe(snap(withBoard("Ah", "Kd", "Qs", "2c")))
	st = a.State()
	assert.Equal(t, map[int]time.Duration{3: 0}, st.PendingReveals)

	sched.Advance(BoardSettleDelay)
	assert.Equal(t, []int{0, 1, 2, 3}, a.State().RevealedBoard)
}

func TestBoardShrinkResetsRevealedSet(t *testing.T) {
	a, sched := newTestAnimator()

	a.Observe(snap(withBoard()))
	a.Observe(snap(withBoard("Ah", "Kd", "Qs", "2c", "9d")))
	sched.Advance(BoardSettleDelay)
	assert.Len(t, a.State().RevealedBoard, 5)

	// New hand: board resets, reveal set empties immediately.
	a.Observe(snap(withBoard()))
	assert.Empty(t, a.State().RevealedBoard)
	assert.Empty(t, a.State().PendingReveals)

	// The next flop replays the flip from scratch.
	a.Observe(snap(withBoard("Jc", "Jd", "Js")))
	assert.Len(t, a.State().PendingReveals, 3)
}

func TestBoardShrinkMidSettleCancelsTimers(t *testing.T) {
	a, sched := newTestAnimator()

	a.Observe(snap(withBoard()))
	a.Observe(snap(withBoard("Ah", "Kd", "Qs")))
	sched.Advance(BoardSettleDelay / 2)

	a.Observe(snap(withBoard()))
	sched.Advance(BoardSettleDelay)
	assert.Empty(t, a.State().RevealedBoard, "settle timers of the vanished board must not fire")
}

func TestBaselineSnapshotDoesNotAnimate(t *testing.T) {
	a, sched := newTestAnimator()

	// First-ever snapshot lands mid-hand, as after a page reload.
	a.Observe(snap(withBoard("Ah", "Kd", "Qs", "2c"), withFolded("p2"), func(st *protocol.TableState) {
		st.LastAction = &protocol.LastAction{PID: "p1", Action: protocol.ActionCall}
	}))

	st := a.State()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Empty(t, st.FoldFlashes)
	assert.Nil(t, st.ActionFlash)
	assert.Equal(t, []int{0, 1, 2, 3}, st.RevealedBoard, "board adopts settled, no replayed flips")
	assert.Empty(t, st.PendingReveals)

	// The already-folded player does not flash on the next tick either.
	a.Observe(snap(withBoard("Ah", "Kd", "Qs", "2c"), withFolded("p2")))
	assert.Empty(t, a.State().FoldFlashes)

	sched.Advance(ModalDelay)
	assert.Equal(t, PhaseIdle, a.Phase())
}

func TestRevealedSetStaysWithinBoard(t *testing.T) {
	a, sched := newTestAnimator()

	boards := [][]string{
		{},
		{"Ah", "Kd", "Qs"},
		{"Ah", "Kd", "Qs", "2c"},
		{"Ah", "Kd", "Qs", "2c", "9d"},
		{},
		{"Jc", "Jd", "Js"},
	}
	for _, b := range boards {
		a.Observe(snap(withBoard(b...)))
		for _, idx := range a.State().RevealedBoard {
			assert.Less(t, idx, len(b))
		}
		sched.Advance(BoardSettleDelay)
		for _, idx := range a.State().RevealedBoard {
			assert.Less(t, idx, len(b))
		}
	}
}
