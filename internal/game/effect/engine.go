package effect

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/combatstate/internal/game/actor"
	"github.com/cory-johannsen/combatstate/internal/timer"
)

// Engine applies, refreshes, ticks, and removes status effects on actors in
// a Registry. It is safe for concurrent use.
//
// Timer callbacks carry the actor's id and the slot they were armed for,
// never a state pointer: each firing re-fetches the state and revalidates the
// slot, so a firing that races removal, refresh, or teardown is a no-op.
type Engine struct {
	actors  *actor.Registry
	catalog *Catalog
	sched   timer.Scheduler
	logger  *zap.Logger
}

// NewEngine creates an Engine.
//
// Precondition: all arguments must be non-nil.
func NewEngine(actors *actor.Registry, catalog *Catalog, sched timer.Scheduler, logger *zap.Logger) *Engine {
	return &Engine{
		actors:  actors,
		catalog: catalog,
		sched:   sched,
		logger:  logger,
	}
}

// Catalog returns the catalog the engine resolves names against.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// Apply starts the named effect on the actor registered under id. An effect
// already active under the same name is cancelled first, so reapplying
// restarts the full duration rather than stacking.
//
// Postcondition: exactly one effect slot is active under the name, or
// ErrUnknownEffect / actor.ErrUnknownActor is returned with no state change.
func (e *Engine) Apply(id uuid.UUID, name string) error {
	def, ok := e.catalog.Get(name)
	if !ok {
		e.logger.Info("apply: unknown status effect",
			zap.String("effect", name),
			zap.Stringer("actor_id", id),
		)
		return fmt.Errorf("applying %q: %w", name, ErrUnknownEffect)
	}
	st, ok := e.actors.GetByID(id)
	if !ok {
		e.logger.Info("apply: unknown actor",
			zap.String("effect", def.Name),
			zap.Stringer("actor_id", id),
		)
		return fmt.Errorf("applying %q: %w", def.Name, actor.ErrUnknownActor)
	}

	_, old, err := st.PutEffect(def.Name, func(es *actor.EffectSlot) {
		es.Duration = def.Duration
		es.Tick = def.Tick
		es.MaxTicks = def.maxTicks()
		es.OnRemove = def.OnRemove
		e.arm(id, def, es)
	})
	if err != nil {
		e.logger.Info("apply: actor torn down",
			zap.String("effect", def.Name),
			zap.Stringer("actor_id", id),
		)
		return fmt.Errorf("applying %q: %w", def.Name, err)
	}

	e.logger.Debug("status effect applied",
		zap.String("effect", def.Name),
		zap.String("actor", st.Name()),
		zap.Stringer("actor_id", id),
		zap.Bool("refreshed", old != nil),
		zap.Duration("duration", def.Duration),
		zap.Duration("tick", def.Tick),
	)
	if old != nil {
		e.run(st, def.Name, "on_remove", old.OnRemove)
	}
	e.run(st, def.Name, "on_apply", def.OnApply)
	return nil
}

// arm attaches the timers for a fresh slot. Called under the state lock.
func (e *Engine) arm(id uuid.UUID, def *Definition, es *actor.EffectSlot) {
	if es.MaxTicks == 0 {
		es.Attach(e.sched.AfterFunc(def.Duration, func() { e.fireOnce(id, def, es) }))
		return
	}
	es.Attach(e.sched.Every(def.Tick, func() { e.tick(id, def, es) }))
	if time.Duration(es.MaxTicks)*def.Tick < def.Duration {
		es.Attach(e.sched.AfterFunc(def.Duration, func() { e.expire(id, def, es) }))
	}
}

// tick handles one periodic firing. When the window is an exact multiple of
// the tick, the last tick also removes the effect; otherwise the expiry timer
// does.
func (e *Engine) tick(id uuid.UUID, def *Definition, es *actor.EffectSlot) {
	st, ok := e.lookup(id, def.Name, "tick")
	if !ok {
		return
	}
	var fire, ended bool
	current, err := st.UpdateEffect(def.Name, es, func(cur *actor.EffectSlot) bool {
		if cur.Ticks >= cur.MaxTicks {
			return false
		}
		cur.Ticks++
		fire = true
		ended = cur.Ticks == cur.MaxTicks && time.Duration(cur.MaxTicks)*cur.Tick >= cur.Duration
		return ended
	})
	if !e.settle(st, def.Name, "tick", current, err) || !fire {
		return
	}
	e.run(st, def.Name, "tick", def.Effect)
	if ended {
		e.logger.Debug("status effect expired",
			zap.String("effect", def.Name),
			zap.String("actor", st.Name()),
		)
		e.run(st, def.Name, "on_remove", es.OnRemove)
	}
}

// fireOnce handles the single firing of an effect without periodic ticks.
func (e *Engine) fireOnce(id uuid.UUID, def *Definition, es *actor.EffectSlot) {
	st, ok := e.lookup(id, def.Name, "fire")
	if !ok {
		return
	}
	current, err := st.UpdateEffect(def.Name, es, func(cur *actor.EffectSlot) bool {
		cur.Ticks++
		return true
	})
	if !e.settle(st, def.Name, "fire", current, err) {
		return
	}
	e.run(st, def.Name, "tick", def.Effect)
	e.logger.Debug("status effect expired",
		zap.String("effect", def.Name),
		zap.String("actor", st.Name()),
	)
	e.run(st, def.Name, "on_remove", es.OnRemove)
}

// expire ends an effect whose window is not a multiple of its tick.
func (e *Engine) expire(id uuid.UUID, def *Definition, es *actor.EffectSlot) {
	st, ok := e.lookup(id, def.Name, "expire")
	if !ok {
		return
	}
	current, err := st.UpdateEffect(def.Name, es, func(*actor.EffectSlot) bool { return true })
	if !e.settle(st, def.Name, "expire", current, err) {
		return
	}
	e.logger.Debug("status effect expired",
		zap.String("effect", def.Name),
		zap.String("actor", st.Name()),
	)
	e.run(st, def.Name, "on_remove", es.OnRemove)
}

// Remove cancels the named effect on the actor registered under id.
// Removing an inactive effect is a no-op. Safe to call from inside the
// effect's own behavior.
//
// Postcondition: the effect is inactive; returns whether it was active.
func (e *Engine) Remove(id uuid.UUID, name string) (bool, error) {
	st, ok := e.actors.GetByID(id)
	if !ok {
		e.logger.Info("remove: unknown actor",
			zap.String("effect", name),
			zap.Stringer("actor_id", id),
		)
		return false, fmt.Errorf("removing %q: %w", name, actor.ErrUnknownActor)
	}
	es, err := st.TakeEffect(name)
	if err != nil {
		return false, fmt.Errorf("removing %q: %w", name, err)
	}
	if es == nil {
		e.logger.Debug("remove: status effect not active",
			zap.String("effect", name),
			zap.String("actor", st.Name()),
		)
		return false, nil
	}
	e.logger.Debug("status effect removed",
		zap.String("effect", name),
		zap.String("actor", st.Name()),
	)
	e.run(st, es.Name(), "on_remove", es.OnRemove)
	return true, nil
}

// Active returns the sorted keys of every effect active on the actor.
func (e *Engine) Active(id uuid.UUID) ([]string, error) {
	st, ok := e.actors.GetByID(id)
	if !ok {
		return nil, actor.ErrUnknownActor
	}
	return st.Effects(), nil
}

// Ticks returns how many times the named effect has fired on the actor, and
// whether it is active.
func (e *Engine) Ticks(id uuid.UUID, name string) (int, bool, error) {
	st, ok := e.actors.GetByID(id)
	if !ok {
		return 0, false, actor.ErrUnknownActor
	}
	n, active := st.EffectTicks(name)
	return n, active, nil
}

func (e *Engine) lookup(id uuid.UUID, effect, phase string) (*actor.State, bool) {
	st, ok := e.actors.GetByID(id)
	if !ok {
		e.logger.Debug("status effect timer fired for unknown actor",
			zap.String("effect", effect),
			zap.String("phase", phase),
			zap.Stringer("actor_id", id),
		)
	}
	return st, ok
}

// settle reports whether a timer callback should go on to run behavior.
func (e *Engine) settle(st *actor.State, effect, phase string, current bool, err error) bool {
	switch {
	case errors.Is(err, actor.ErrOrphanedSlot):
		e.logger.DPanic("status effect timer fired for an orphaned slot",
			zap.String("effect", effect),
			zap.String("phase", phase),
			zap.String("actor", st.Name()),
		)
		return false
	case err != nil:
		e.logger.Debug("status effect timer fired after teardown",
			zap.String("effect", effect),
			zap.String("phase", phase),
			zap.String("actor", st.Name()),
		)
		return false
	}
	return current
}

// run invokes b outside any lock. A panicking behavior is logged and
// contained so one bad effect cannot take down the timer goroutine.
func (e *Engine) run(st *actor.State, effect, hook string, b Behavior) {
	if b == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("status effect behavior panicked",
				zap.String("effect", effect),
				zap.String("hook", hook),
				zap.String("actor", st.Name()),
				zap.Any("panic", r),
			)
		}
	}()
	b(st)
}
