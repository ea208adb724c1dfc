package app

import "time"

// Timer is a cancellable pending call.
type Timer interface {
	Stop() bool
}

// Scheduler arms deferred calls. Sessions use it for the lead-in delay and
// the per-question auto-reveal so tests can drive time by hand.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemScheduler returns a Scheduler backed by the runtime timers.
func SystemScheduler() Scheduler {
	return systemScheduler{}
}
