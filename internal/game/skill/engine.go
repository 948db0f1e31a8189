package skill

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/combatstate/internal/game/actor"
	"github.com/cory-johannsen/combatstate/internal/timer"
)

// Outcome reports what a CastSkill call did.
type Outcome int

const (
	// Rejected accompanies a non-nil error: nothing happened.
	Rejected Outcome = iota
	// Started means the skill moved to its cast phase.
	Started
	// Suppressed means the skill was not Ready and the call was ignored.
	Suppressed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Rejected:
		return "rejected"
	case Started:
		return "started"
	case Suppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// CooldownAnchor selects where the cooldown window is measured from.
type CooldownAnchor string

const (
	// AnchorCompletion starts the cooldown when the cast resolves, so the
	// lockout is CastTime + Cooldown.
	AnchorCompletion CooldownAnchor = "completion"
	// AnchorInitiation measures the cooldown from cast start, so the lockout
	// is max(CastTime, Cooldown). This is shorter than CastTime + Cooldown:
	// a skill may be cast again before cast time plus cooldown has elapsed.
	// Use AnchorCompletion when that full lockout must hold.
	AnchorInitiation CooldownAnchor = "initiation"
)

// StopPolicy selects what StopSkill does to the interrupted skill.
type StopPolicy string

const (
	// StopEnforce runs the full cooldown from the moment of interruption.
	StopEnforce StopPolicy = "enforce"
	// StopReset returns the skill to Ready at once.
	StopReset StopPolicy = "reset"
)

// ParseCooldownAnchor converts a configuration string to a CooldownAnchor.
func ParseCooldownAnchor(s string) (CooldownAnchor, error) {
	switch a := CooldownAnchor(s); a {
	case AnchorCompletion, AnchorInitiation:
		return a, nil
	}
	return "", fmt.Errorf("cooldown anchor must be one of [completion initiation], got %q", s)
}

// ParseStopPolicy converts a configuration string to a StopPolicy.
func ParseStopPolicy(s string) (StopPolicy, error) {
	switch p := StopPolicy(s); p {
	case StopEnforce, StopReset:
		return p, nil
	}
	return "", fmt.Errorf("stop skill policy must be one of [enforce reset], got %q", s)
}

// Option configures an Engine.
type Option func(*Engine)

// WithCooldownAnchor sets the cooldown anchor. Default AnchorInitiation.
func WithCooldownAnchor(a CooldownAnchor) Option {
	return func(e *Engine) { e.anchor = a }
}

// WithStopPolicy sets the interruption policy. Default StopEnforce.
func WithStopPolicy(p StopPolicy) Option {
	return func(e *Engine) { e.stop = p }
}

// Engine arbitrates casting for every (actor, skill) pair in a Registry.
// Each pair is Ready when the actor has no cast slot under the skill name and
// OnCooldown otherwise; the slot is inserted at initiation so a second call
// during the cast window is suppressed.
type Engine struct {
	actors  *actor.Registry
	catalog *Catalog
	sched   timer.Scheduler
	logger  *zap.Logger
	anchor  CooldownAnchor
	stop    StopPolicy
}

// NewEngine creates an Engine.
//
// Precondition: actors, catalog, sched and logger must be non-nil.
func NewEngine(actors *actor.Registry, catalog *Catalog, sched timer.Scheduler, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		actors:  actors,
		catalog: catalog,
		sched:   sched,
		logger:  logger,
		anchor:  AnchorInitiation,
		stop:    StopEnforce,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Catalog returns the catalog the engine resolves names against.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// CastSkill starts the named skill on the actor registered under id.
//
// Postcondition: Started when the skill was Ready and its cast timer is armed;
// (Suppressed, nil) when the skill is already casting or cooling down;
// (Rejected, err) for an unknown skill or actor.
func (e *Engine) CastSkill(id uuid.UUID, name string) (Outcome, error) {
	def, ok := e.catalog.Get(name)
	if !ok {
		e.logger.Info("cast: unknown skill",
			zap.String("skill", name),
			zap.Stringer("actor_id", id),
		)
		return Rejected, fmt.Errorf("casting %q: %w", name, ErrUnknownSkill)
	}
	st, ok := e.actors.GetByID(id)
	if !ok {
		e.logger.Info("cast: unknown actor",
			zap.String("skill", def.Name),
			zap.Stringer("actor_id", id),
		)
		return Rejected, fmt.Errorf("casting %q: %w", def.Name, actor.ErrUnknownActor)
	}

	_, started, err := st.BeginCast(def.Name, func(cs *actor.CastSlot) {
		cs.CastTime = def.CastTime
		cs.Cooldown = def.Cooldown
		cs.Attach(e.sched.AfterFunc(def.CastTime, func() { e.complete(id, def, cs) }))
	})
	if err != nil {
		e.logger.Info("cast: actor torn down",
			zap.String("skill", def.Name),
			zap.Stringer("actor_id", id),
		)
		return Rejected, fmt.Errorf("casting %q: %w", def.Name, err)
	}
	if !started {
		e.logger.Debug("cast suppressed: skill not ready",
			zap.String("skill", def.Name),
			zap.String("actor", st.Name()),
		)
		return Suppressed, nil
	}
	e.logger.Debug("skill cast started",
		zap.String("skill", def.Name),
		zap.String("actor", st.Name()),
		zap.Stringer("actor_id", id),
		zap.Duration("cast_time", def.CastTime),
		zap.Duration("cooldown", def.Cooldown),
	)
	return Started, nil
}

// cooldownAfterCast is how long the skill stays locked once the cast resolves.
func (e *Engine) cooldownAfterCast(cs *actor.CastSlot) time.Duration {
	if e.anchor == AnchorInitiation {
		return max(cs.Cooldown-cs.CastTime, 0)
	}
	return cs.Cooldown
}

// complete runs when the cast time elapses: the cast behavior executes
// outside the state lock, then the cooldown timer is armed.
func (e *Engine) complete(id uuid.UUID, def *Definition, cs *actor.CastSlot) {
	st, ok := e.lookup(id, def.Name, "complete")
	if !ok {
		return
	}
	var fire bool
	current, err := st.UpdateCast(def.Name, cs, func(cur *actor.CastSlot) bool {
		if cur.Phase != actor.PhaseCasting {
			return false
		}
		cur.Phase = actor.PhaseResolving
		fire = true
		return false
	})
	if !e.settle(st, def.Name, "complete", current, err) || !fire {
		return
	}

	e.run(st, def.Name, def.Cast)

	current, err = st.UpdateCast(def.Name, cs, func(cur *actor.CastSlot) bool {
		cd := e.cooldownAfterCast(cur)
		if cd <= 0 {
			return true
		}
		cur.Phase = actor.PhaseCooldown
		cur.Attach(e.sched.AfterFunc(cd, func() { e.ready(id, def.Name, cs) }))
		return false
	})
	if !e.settle(st, def.Name, "complete", current, err) {
		return
	}
	e.logger.Debug("skill cast resolved",
		zap.String("skill", def.Name),
		zap.String("actor", st.Name()),
	)
}

// ready returns the pair to Ready when its cooldown elapses.
func (e *Engine) ready(id uuid.UUID, name string, cs *actor.CastSlot) {
	st, ok := e.lookup(id, name, "ready")
	if !ok {
		return
	}
	current, err := st.UpdateCast(name, cs, func(*actor.CastSlot) bool { return true })
	if !e.settle(st, name, "ready", current, err) {
		return
	}
	e.logger.Debug("skill ready",
		zap.String("skill", name),
		zap.String("actor", st.Name()),
	)
}

// StopSkill interrupts an in-flight cast of the named skill so its cast
// behavior never runs. Under StopEnforce the skill then cools down for its
// full cooldown; under StopReset it is Ready at once.
//
// Postcondition: returns true iff a cast was interrupted. A skill that is
// Ready, resolving, or cooling down is left untouched.
func (e *Engine) StopSkill(id uuid.UUID, name string) (bool, error) {
	st, ok := e.actors.GetByID(id)
	if !ok {
		e.logger.Info("stop: unknown actor",
			zap.String("skill", name),
			zap.Stringer("actor_id", id),
		)
		return false, fmt.Errorf("stopping %q: %w", name, actor.ErrUnknownActor)
	}
	var interrupted bool
	_, err := st.UpdateCast(name, nil, func(cur *actor.CastSlot) bool {
		if cur.Phase != actor.PhaseCasting {
			return false
		}
		interrupted = true
		if e.stop == StopReset {
			return true
		}
		if cur.Cooldown <= 0 {
			return true
		}
		cur.StopTimers()
		cur.Phase = actor.PhaseCooldown
		cur.Attach(e.sched.AfterFunc(cur.Cooldown, func() { e.ready(id, name, cur) }))
		return false
	})
	if err != nil {
		return false, fmt.Errorf("stopping %q: %w", name, err)
	}
	if !interrupted {
		e.logger.Debug("stop: skill not casting",
			zap.String("skill", name),
			zap.String("actor", st.Name()),
		)
		return false, nil
	}
	e.logger.Debug("skill cast interrupted",
		zap.String("skill", name),
		zap.String("actor", st.Name()),
		zap.String("policy", string(e.stop)),
	)
	return true, nil
}

// OnCooldown reports whether the named skill is not Ready for the actor.
func (e *Engine) OnCooldown(id uuid.UUID, name string) (bool, error) {
	st, ok := e.actors.GetByID(id)
	if !ok {
		return false, actor.ErrUnknownActor
	}
	_, busy := st.CastPhaseOf(name)
	return busy, nil
}

// Casting reports whether the named skill is in its cast phase for the actor.
func (e *Engine) Casting(id uuid.UUID, name string) (bool, error) {
	st, ok := e.actors.GetByID(id)
	if !ok {
		return false, actor.ErrUnknownActor
	}
	p, busy := st.CastPhaseOf(name)
	return busy && p == actor.PhaseCasting, nil
}

func (e *Engine) lookup(id uuid.UUID, skill, phase string) (*actor.State, bool) {
	st, ok := e.actors.GetByID(id)
	if !ok {
		e.logger.Debug("skill timer fired for unknown actor",
			zap.String("skill", skill),
			zap.String("phase", phase),
			zap.Stringer("actor_id", id),
		)
	}
	return st, ok
}

func (e *Engine) settle(st *actor.State, skill, phase string, current bool, err error) bool {
	switch {
	case errors.Is(err, actor.ErrOrphanedSlot):
		e.logger.DPanic("skill timer fired for an orphaned slot",
			zap.String("skill", skill),
			zap.String("phase", phase),
			zap.String("actor", st.Name()),
		)
		return false
	case err != nil:
		e.logger.Debug("skill timer fired after teardown",
			zap.String("skill", skill),
			zap.String("phase", phase),
			zap.String("actor", st.Name()),
		)
		return false
	}
	return current
}

func (e *Engine) run(st *actor.State, skill string, b Behavior) {
	if b == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("skill behavior panicked",
				zap.String("skill", skill),
				zap.String("actor", st.Name()),
				zap.Any("panic", r),
			)
		}
	}()
	b(st)
}
