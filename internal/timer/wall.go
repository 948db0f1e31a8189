package timer

import (
	"sync"
	"time"
)

// Wall is a Scheduler backed by the runtime timer heap.
// Callbacks run on their own goroutines. It is safe for concurrent use.
type Wall struct{}

// NewWall returns a wall-clock Scheduler.
func NewWall() *Wall {
	return &Wall{}
}

// AfterFunc schedules fn once after d.
//
// Postcondition: Returns a running timer; fn is called unless Stop is called first.
func (Wall) AfterFunc(d time.Duration, fn func()) Timer {
	wt := &wallTimer{}
	wt.mu.Lock()
	wt.timer = time.AfterFunc(d, func() {
		wt.mu.Lock()
		stopped := wt.stopped
		wt.stopped = true
		wt.mu.Unlock()
		if !stopped {
			fn()
		}
	})
	wt.mu.Unlock()
	return wt
}

// Every schedules fn every interval. The next deadline is computed from the
// previous deadline rather than from the end of fn, so slow callbacks do not
// accumulate drift; the next timer is armed only after fn returns.
func (Wall) Every(interval time.Duration, fn func()) Timer {
	if interval <= 0 {
		panic("timer.Wall.Every: interval must be > 0")
	}
	wt := &wallTimer{}
	next := time.Now().Add(interval)

	var fire func()
	fire = func() {
		wt.mu.Lock()
		if wt.stopped {
			wt.mu.Unlock()
			return
		}
		wt.mu.Unlock()

		fn()

		wt.mu.Lock()
		defer wt.mu.Unlock()
		if wt.stopped {
			return
		}
		next = next.Add(interval)
		wait := time.Until(next)
		if wait < 0 {
			wait = 0
		}
		wt.timer = time.AfterFunc(wait, fire)
	}

	wt.mu.Lock()
	wt.timer = time.AfterFunc(interval, fire)
	wt.mu.Unlock()
	return wt
}

type wallTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// Stop prevents any further callback. Safe to call multiple times.
func (wt *wallTimer) Stop() {
	wt.mu.Lock()
	defer wt.mu.Unlock()
	wt.stopped = true
	if wt.timer != nil {
		wt.timer.Stop()
	}
}
