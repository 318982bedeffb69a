// internal/table/anim/arena.go
package anim

import "strings"

// timerArena owns the named, cancelable timers behind the animation state
// machines. Every name carries an epoch counter: scheduling or canceling a
// name bumps its epoch, so a callback that already left the scheduler still
// refuses to fire once it re-checks its epoch under the animator lock. That
// check is what keeps a stale timer from corrupting a choreography that a
// newer snapshot has already replaced.
//
// All methods must be called with the owning Animator's lock held.
type timerArena struct {
	epochs map[string]uint64
	stops  map[string]func() bool
}

func newTimerArena() *timerArena {
	return &timerArena{
		epochs: make(map[string]uint64),
		stops:  make(map[string]func() bool),
	}
}

// arm invalidates any previous timer under this name and returns the epoch
// the replacement must present to fire.
func (ta *timerArena) arm(name string) uint64 {
	if stop, ok := ta.stops[name]; ok {
		stop()
		delete(ta.stops, name)
	}
	ta.epochs[name]++
	return ta.epochs[name]
}

// track records the stop handle for the timer most recently armed under name.
func (ta *timerArena) track(name string, stop func() bool) {
	ta.stops[name] = stop
}

// live reports whether epoch is still the current epoch for name.
func (ta *timerArena) live(name string, epoch uint64) bool {
	return ta.epochs[name] == epoch
}

// cancel stops the named timer and invalidates any callback in flight.
func (ta *timerArena) cancel(name string) {
	if stop, ok := ta.stops[name]; ok {
		stop()
		delete(ta.stops, name)
	}
	ta.epochs[name]++
}

// cancelPrefix cancels every timer whose name starts with prefix.
func (ta *timerArena) cancelPrefix(prefix string) {
	for name := range ta.epochs {
		if strings.HasPrefix(name, prefix) {
			ta.cancel(name)
		}
	}
}
