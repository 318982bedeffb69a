// internal/table/anim/scheduler.go
package anim

import "time"

// Scheduler abstracts delayed execution so tests can drive the animation
// choreography deterministically instead of sleeping through multi-second
// delays. The returned stop function reports whether the call prevented the
// callback from running.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// wallClock is the production Scheduler, backed by time.AfterFunc.
type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, fn func()) func() bool {
	t := time.AfterFunc(d, fn)
	return t.Stop
}
