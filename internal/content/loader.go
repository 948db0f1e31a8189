package content

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/combatstate/internal/game/actor"
	"github.com/cory-johannsen/combatstate/internal/game/combat"
	"github.com/cory-johannsen/combatstate/internal/game/effect"
	"github.com/cory-johannsen/combatstate/internal/game/names"
	"github.com/cory-johannsen/combatstate/internal/game/skill"
	"github.com/cory-johannsen/combatstate/internal/game/weapon"
	"github.com/cory-johannsen/combatstate/internal/scripting"
)

// Summary counts what a Load registered and removed.
type Summary struct {
	Effects int
	Skills  int
	Weapons int
	Removed int
}

// Loader replaces the engine's catalogs with the contents of a Source.
// The engine's catalogs are owned by the Loader: definitions absent from
// the Source are removed on every Load.
type Loader struct {
	mu         sync.Mutex
	source     Source
	scripts    *scripting.Manager
	engine     *combat.Engine
	scriptsDir string
	instLimit  int
	logger     *zap.Logger
}

// NewLoader creates a Loader.
//
// Precondition: source, scripts, eng and logger must be non-nil. An empty
// scriptsDir skips script loading.
func NewLoader(source Source, scripts *scripting.Manager, eng *combat.Engine, scriptsDir string, instLimit int, logger *zap.Logger) *Loader {
	return &Loader{
		source:     source,
		scripts:    scripts,
		engine:     eng,
		scriptsDir: scriptsDir,
		instLimit:  instLimit,
		logger:     logger,
	}
}

// Load reloads scripts, fetches every record from the source, and swaps the
// resulting definitions into the engine. Effects and casts already running
// keep the definitions they started with.
//
// Postcondition: on error the engine's catalogs are unchanged; a script load
// failure also leaves the previous scripts in place.
func (l *Loader) Load(ctx context.Context) (Summary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	start := time.Now()

	if l.scriptsDir != "" {
		if err := l.scripts.Load(l.scriptsDir, l.instLimit); err != nil {
			return Summary{}, fmt.Errorf("loading scripts: %w", err)
		}
	}

	var (
		effRecs []*effect.Record
		sklRecs []*skill.Record
		wpnRecs []*weapon.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		effRecs, err = l.source.ListEffects(gctx)
		return err
	})
	g.Go(func() (err error) {
		sklRecs, err = l.source.ListSkills(gctx)
		return err
	})
	g.Go(func() (err error) {
		wpnRecs, err = l.source.ListWeapons(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("fetching content: %w", err)
	}

	effs, skls, wpns, err := l.build(effRecs, sklRecs, wpnRecs)
	if err != nil {
		return Summary{}, err
	}

	removed := prune(l.engine.Effects().Catalog().Names(), effs, func(d *effect.Definition) string { return d.Name }, l.engine.RemoveStatusEffectDefinition)
	removed += prune(l.engine.Skills().Catalog().Names(), skls, func(d *skill.Definition) string { return d.Name }, l.engine.RemoveSkillDefinition)
	removed += prune(l.engine.Weapons().Names(), wpns, func(d *weapon.Definition) string { return d.Name }, l.engine.RemoveWeaponDefinition)

	// Validated in build; these cannot fail.
	_ = l.engine.Effects().Catalog().RegisterAll(effs)
	_ = l.engine.Skills().Catalog().RegisterAll(skls)
	_ = l.engine.Weapons().RegisterAll(wpns)

	sum := Summary{Effects: len(effs), Skills: len(skls), Weapons: len(wpns), Removed: removed}
	l.logger.Info("content loaded",
		zap.Int("effects", sum.Effects),
		zap.Int("skills", sum.Skills),
		zap.Int("weapons", sum.Weapons),
		zap.Int("removed", sum.Removed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return sum, nil
}

// build converts records to definitions, reporting every invalid record.
// Weapons resolve against the incoming skills, not the engine's current ones.
func (l *Loader) build(effRecs []*effect.Record, sklRecs []*skill.Record, wpnRecs []*weapon.Record) ([]*effect.Definition, []*skill.Definition, []*weapon.Definition, error) {
	var errs []error

	effs := make([]*effect.Definition, 0, len(effRecs))
	for _, r := range effRecs {
		def := &effect.Definition{
			Name:        r.Name,
			Description: r.Description,
			Duration:    r.Duration,
			Tick:        r.Tick,
			OnApply:     l.bind("effect", r.Name, r.OnApply),
			Effect:      l.bind("effect", r.Name, r.OnTick),
			OnRemove:    l.bind("effect", r.Name, r.OnRemove),
		}
		if err := def.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		effs = append(effs, def)
	}

	staged := skill.NewCatalog()
	skls := make([]*skill.Definition, 0, len(sklRecs))
	for _, r := range sklRecs {
		def := &skill.Definition{
			Name:        r.Name,
			Description: r.Description,
			CastTime:    r.CastTime,
			Cooldown:    r.Cooldown,
			Cast:        l.bind("skill", r.Name, r.OnCast),
		}
		if err := staged.Register(def); err != nil {
			errs = append(errs, err)
			continue
		}
		skls = append(skls, def)
	}

	wpns := make([]*weapon.Definition, 0, len(wpnRecs))
	for _, r := range wpnRecs {
		def, err := r.Resolve(staged)
		if err == nil {
			err = def.Validate()
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		wpns = append(wpns, def)
	}

	if len(errs) > 0 {
		return nil, nil, nil, fmt.Errorf("invalid content: %w", errors.Join(errs...))
	}
	return effs, skls, wpns, nil
}

// bind returns a behavior that calls hook with a snapshot of the actor, or
// nil when hook is empty.
func (l *Loader) bind(kind, owner, hook string) func(*actor.State) {
	if hook == "" {
		return nil
	}
	if !l.scripts.HasHook(hook) {
		l.logger.Warn("content: hook not defined",
			zap.String("kind", kind),
			zap.String("name", owner),
			zap.String("hook", hook),
		)
	}
	return func(st *actor.State) {
		if _, err := l.scripts.CallActorHook(hook, Snapshot(st)); err != nil {
			l.logger.Warn("content: hook failed",
				zap.String("hook", hook),
				zap.String("actor", st.Name()),
				zap.Error(err),
			)
		}
	}
}

// Snapshot copies the parts of st that scripts can read.
func Snapshot(st *actor.State) scripting.ActorInfo {
	return scripting.ActorInfo{
		ID:        st.ID().String(),
		Name:      st.Name(),
		Effects:   st.Effects(),
		Cooldowns: st.Cooldowns(),
		Weapon:    st.Weapon(),
	}
}

func prune[D any](current []string, next []D, name func(D) string, remove func(string) bool) int {
	keep := make(map[string]struct{}, len(next))
	for _, d := range next {
		keep[names.Key(name(d))] = struct{}{}
	}
	n := 0
	for _, k := range current {
		if _, ok := keep[k]; ok {
			continue
		}
		if remove(k) {
			n++
		}
	}
	return n
}
