// Package timer provides the scheduling primitive the combat engines drive:
// one-shot and periodic callbacks that can be cancelled at any time.
package timer

import "time"

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop cancels the timer. Safe to call multiple times.
	//
	// Postcondition: the callback will not be invoked again after Stop returns;
	// an invocation already in progress may still complete.
	Stop()
}

// Scheduler creates timers.
type Scheduler interface {
	// AfterFunc calls fn once after d.
	//
	// Precondition: d >= 0; fn must not be nil.
	AfterFunc(d time.Duration, fn func()) Timer
	// Every calls fn every interval until the returned Timer is stopped.
	// Invocations of fn for one timer never overlap and fire in deadline order.
	//
	// Precondition: interval > 0; fn must not be nil.
	Every(interval time.Duration, fn func()) Timer
}
