// Package combat wires the actor registry, the status effect and skill
// engines, and the catalogs into the single engine object a game server
// holds for its lifetime.
package combat

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/combatstate/internal/game/actor"
	"github.com/cory-johannsen/combatstate/internal/game/effect"
	"github.com/cory-johannsen/combatstate/internal/game/entity"
	"github.com/cory-johannsen/combatstate/internal/game/skill"
	"github.com/cory-johannsen/combatstate/internal/game/weapon"
	"github.com/cory-johannsen/combatstate/internal/timer"
)

// Engine is the combat-state engine. Construct one per process and pass it
// to whatever needs it. All methods are safe for concurrent use.
type Engine struct {
	actors  *actor.Registry
	effects *effect.Engine
	skills  *skill.Engine
	weapons *weapon.Catalog
	logger  *zap.Logger
}

// NewEngine builds an Engine with empty catalogs.
//
// Precondition: sched and logger must be non-nil.
// Postcondition: Returns an Engine with no registered actors.
func NewEngine(sched timer.Scheduler, logger *zap.Logger, opts ...skill.Option) *Engine {
	actors := actor.NewRegistry(logger.Named("actor"))
	return &Engine{
		actors:  actors,
		effects: effect.NewEngine(actors, effect.NewCatalog(), sched, logger.Named("effect")),
		skills:  skill.NewEngine(actors, skill.NewCatalog(), sched, logger.Named("skill"), opts...),
		weapons: weapon.NewCatalog(),
		logger:  logger,
	}
}

// Actors returns the actor registry.
func (e *Engine) Actors() *actor.Registry { return e.actors }

// Effects returns the status effect engine.
func (e *Engine) Effects() *effect.Engine { return e.effects }

// Skills returns the skill cast engine.
func (e *Engine) Skills() *skill.Engine { return e.skills }

// Weapons returns the weapon catalog.
func (e *Engine) Weapons() *weapon.Catalog { return e.weapons }

// Register starts tracking h. See actor.Registry.Register.
func (e *Engine) Register(h entity.Handle) (*actor.State, error) {
	return e.actors.Register(h)
}

// Unregister tears down h's combat state. Unknown handles are a no-op.
func (e *Engine) Unregister(h entity.Handle) bool {
	return e.actors.Unregister(h)
}

// Get returns h's combat state.
func (e *Engine) Get(h entity.Handle) (*actor.State, bool) {
	return e.actors.Get(h)
}

// ApplyStatusEffect applies the named effect to h, refreshing it if active.
func (e *Engine) ApplyStatusEffect(h entity.Handle, name string) error {
	return e.effects.Apply(h.ID(), name)
}

// RemoveStatusEffect ends the named effect on h and reports whether it was active.
func (e *Engine) RemoveStatusEffect(h entity.Handle, name string) (bool, error) {
	return e.effects.Remove(h.ID(), name)
}

// CastSkill casts the named skill as h.
func (e *Engine) CastSkill(h entity.Handle, name string) (skill.Outcome, error) {
	return e.skills.CastSkill(h.ID(), name)
}

// StopSkill interrupts h's in-flight cast of the named skill.
func (e *Engine) StopSkill(h entity.Handle, name string) (bool, error) {
	return e.skills.StopSkill(h.ID(), name)
}

// Equip records the named weapon on h and grants its skills.
//
// Postcondition: on success the actor's granted skills are exactly the
// weapon's skills; on error the actor is unchanged.
func (e *Engine) Equip(h entity.Handle, weaponName string) error {
	def, ok := e.weapons.Get(weaponName)
	if !ok {
		e.logger.Info("equip: unknown weapon",
			zap.String("weapon", weaponName),
			zap.Stringer("actor_id", h.ID()),
		)
		return fmt.Errorf("equipping %q: %w", weaponName, weapon.ErrUnknownWeapon)
	}
	st, ok := e.actors.Get(h)
	if !ok {
		e.logger.Info("equip: unknown actor",
			zap.String("weapon", def.Name),
			zap.Stringer("actor_id", h.ID()),
		)
		return fmt.Errorf("equipping %q: %w", def.Name, actor.ErrUnknownActor)
	}
	if err := st.Equip(def.Name, def.SkillNames()); err != nil {
		return fmt.Errorf("equipping %q: %w", def.Name, err)
	}
	e.logger.Debug("weapon equipped",
		zap.String("weapon", def.Name),
		zap.String("actor", st.Name()),
		zap.Strings("skills", def.SkillNames()),
	)
	return nil
}

// RegisterStatusEffect adds or replaces a status effect definition.
func (e *Engine) RegisterStatusEffect(def *effect.Definition) error {
	return e.effects.Catalog().Register(def)
}

// RemoveStatusEffectDefinition drops a status effect definition. Effects
// already running keep their timers.
func (e *Engine) RemoveStatusEffectDefinition(name string) bool {
	return e.effects.Catalog().Remove(name)
}

// GetStatusEffect looks up a status effect definition.
func (e *Engine) GetStatusEffect(name string) (*effect.Definition, bool) {
	return e.effects.Catalog().Get(name)
}

// RegisterSkill adds or replaces a skill definition.
func (e *Engine) RegisterSkill(def *skill.Definition) error {
	return e.skills.Catalog().Register(def)
}

// RemoveSkillDefinition drops a skill definition.
func (e *Engine) RemoveSkillDefinition(name string) bool {
	return e.skills.Catalog().Remove(name)
}

// GetSkill looks up a skill definition.
func (e *Engine) GetSkill(name string) (*skill.Definition, bool) {
	return e.skills.Catalog().Get(name)
}

// RegisterWeapon adds or replaces a weapon definition.
func (e *Engine) RegisterWeapon(def *weapon.Definition) error {
	return e.weapons.Register(def)
}

// RemoveWeaponDefinition drops a weapon definition.
func (e *Engine) RemoveWeaponDefinition(name string) bool {
	return e.weapons.Remove(name)
}

// GetWeapon looks up a weapon definition.
func (e *Engine) GetWeapon(name string) (*weapon.Definition, bool) {
	return e.weapons.Get(name)
}

// Close tears down every registered actor, cancelling all outstanding timers.
func (e *Engine) Close() {
	e.actors.Close()
}
