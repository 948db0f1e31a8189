package timer

import (
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic Scheduler whose clock only moves when Advance is
// called. Due callbacks run synchronously on the goroutine calling Advance, in
// deadline order; callbacks sharing a deadline run in scheduling order.
//
// Manual is safe for concurrent use, but Advance must not be called from
// inside a callback.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	seq     uint64
	pending []*manualTimer
}

// NewManual returns a Manual scheduler with its clock at zero.
func NewManual() *Manual {
	return &Manual{}
}

type manualTimer struct {
	m        *Manual
	deadline time.Duration
	interval time.Duration // 0 for one-shot
	seq      uint64
	fn       func()
	stopped  bool
}

// Now returns the elapsed virtual time.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of armed timers.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// AfterFunc schedules fn once, d after the current virtual time.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.arm(m.now+d, 0, fn)
}

// Every schedules fn every interval of virtual time.
func (m *Manual) Every(interval time.Duration, fn func()) Timer {
	if interval <= 0 {
		panic("timer.Manual.Every: interval must be > 0")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.arm(m.now+interval, interval, fn)
}

func (m *Manual) arm(deadline, interval time.Duration, fn func()) *manualTimer {
	m.seq++
	mt := &manualTimer{m: m, deadline: deadline, interval: interval, seq: m.seq, fn: fn}
	m.pending = append(m.pending, mt)
	return mt
}

// Advance moves the clock forward by d, firing every timer that comes due.
// Timers armed by callbacks fire within the same call if their deadline falls
// inside the window.
//
// Postcondition: Now() has increased by exactly d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		mt := m.popDue(target)
		if mt == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = mt.deadline
		if mt.interval > 0 {
			mt.deadline += mt.interval
			m.seq++
			mt.seq = m.seq
			m.pending = append(m.pending, mt)
		}
		m.mu.Unlock()

		mt.fn()
	}
}

// popDue removes and returns the earliest timer due at or before target.
// Caller must hold m.mu.
func (m *Manual) popDue(target time.Duration) *manualTimer {
	if len(m.pending) == 0 {
		return nil
	}
	sort.SliceStable(m.pending, func(i, j int) bool {
		if m.pending[i].deadline != m.pending[j].deadline {
			return m.pending[i].deadline < m.pending[j].deadline
		}
		return m.pending[i].seq < m.pending[j].seq
	})
	first := m.pending[0]
	if first.deadline > target {
		return nil
	}
	m.pending = m.pending[1:]
	return first
}

// Stop disarms the timer. Safe to call multiple times.
func (mt *manualTimer) Stop() {
	m := mt.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if mt.stopped {
		return
	}
	mt.stopped = true
	for i, p := range m.pending {
		if p == mt {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}
