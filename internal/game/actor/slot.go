package actor

import (
	"time"

	"github.com/cory-johannsen/combatstate/internal/timer"
)

// slot owns the timers backing one named entry on an actor.
// All fields are guarded by the owning State's mutex.
type slot struct {
	name      string
	timers    []timer.Timer
	cancelled bool
}

// Attach records t as owned by the slot so that cancelling the slot stops it.
// Must only be called from a State callback (under the state lock).
// If the slot is already cancelled t is stopped immediately.
func (s *slot) Attach(t timer.Timer) {
	if s.cancelled {
		t.Stop()
		return
	}
	s.timers = append(s.timers, t)
}

// Name returns the display name the slot was created with.
func (s *slot) Name() string { return s.name }

// Cancelled reports whether the slot has been cancelled.
func (s *slot) Cancelled() bool { return s.cancelled }

// StopTimers stops and forgets every attached timer without cancelling the
// slot, so new timers may be attached afterwards. Must only be called from a
// State callback.
func (s *slot) StopTimers() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

func (s *slot) cancel() {
	if s.cancelled {
		return
	}
	s.cancelled = true
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

// EffectSlot is the record of one active status effect on an actor.
type EffectSlot struct {
	slot
	// Duration is the total active window.
	Duration time.Duration
	// Tick is the periodic interval; zero means a single firing at expiry.
	Tick time.Duration
	// Ticks counts behavior invocations so far.
	Ticks int
	// MaxTicks is the number of periodic ticks that fit in Duration.
	MaxTicks int
	// OnRemove is the removal hook of the definition the effect started
	// with. Set once when the slot is armed.
	OnRemove func(*State)
}

// CastPhase is the state of a cast record.
type CastPhase int

const (
	// PhaseCasting means the cast-time timer is pending.
	PhaseCasting CastPhase = iota
	// PhaseResolving means the cast behavior is running.
	PhaseResolving
	// PhaseCooldown means the skill resolved or was interrupted and the
	// cooldown timer is pending.
	PhaseCooldown
)

// String returns the phase name.
func (p CastPhase) String() string {
	switch p {
	case PhaseCasting:
		return "casting"
	case PhaseResolving:
		return "resolving"
	case PhaseCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// CastSlot is the record of one skill that is not Ready on an actor.
// Presence of a CastSlot is the only gate on re-casting the skill.
type CastSlot struct {
	slot
	// Phase is the current cast phase.
	Phase CastPhase
	// CastTime is the delay before the cast behavior runs.
	CastTime time.Duration
	// Cooldown is the lockout that follows resolution.
	Cooldown time.Duration
}
