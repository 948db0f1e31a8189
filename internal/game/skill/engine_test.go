package skill_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/combatstate/internal/game/actor"
	"github.com/cory-johannsen/combatstate/internal/game/entity"
	"github.com/cory-johannsen/combatstate/internal/game/skill"
	"github.com/cory-johannsen/combatstate/internal/timer"
)

type harness struct {
	reg     *actor.Registry
	catalog *skill.Catalog
	engine  *skill.Engine
	clock   *timer.Manual
	logs    *observer.ObservedLogs
}

func newHarness(t require.TestingT, opts ...skill.Option) *harness {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	reg := actor.NewRegistry(logger)
	catalog := skill.NewCatalog()
	clock := timer.NewManual()
	return &harness{
		reg:     reg,
		catalog: catalog,
		engine:  skill.NewEngine(reg, catalog, clock, logger, opts...),
		clock:   clock,
		logs:    logs,
	}
}

func (h *harness) spawn(t require.TestingT, name string) *entity.Body {
	b := entity.NewBody(name, true)
	_, err := h.reg.Register(b)
	require.NoError(t, err)
	return b
}

func fireball(casts *int) *skill.Definition {
	return &skill.Definition{
		Name:     "Fireball",
		CastTime: 500 * time.Millisecond,
		Cooldown: 2 * time.Second,
		Cast:     func(*actor.State) { *casts++ },
	}
}

func (h *harness) cast(t *testing.T, id uuid.UUID, name string) skill.Outcome {
	t.Helper()
	out, err := h.engine.CastSkill(id, name)
	require.NoError(t, err)
	return out
}

func TestEngine_Fireball_Initiation(t *testing.T) {
	h := newHarness(t)
	casts := 0
	require.NoError(t, h.catalog.Register(fireball(&casts)))
	hero := h.spawn(t, "Hero")

	assert.Equal(t, skill.Started, h.cast(t, hero.ID(), "fireball"))
	h.clock.Advance(200 * time.Millisecond)
	assert.Equal(t, skill.Suppressed, h.cast(t, hero.ID(), "FIREBALL"))
	assert.Equal(t, 0, casts)

	h.clock.Advance(300 * time.Millisecond)
	assert.Equal(t, 1, casts, "cast behavior runs once when the cast time elapses")

	h.clock.Advance(1900 * time.Millisecond) // t=2.4s
	assert.Equal(t, skill.Started, h.cast(t, hero.ID(), "fireball"))
	h.clock.Advance(500 * time.Millisecond)
	assert.Equal(t, 2, casts)
}

func TestEngine_Fireball_Completion(t *testing.T) {
	h := newHarness(t, skill.WithCooldownAnchor(skill.AnchorCompletion))
	casts := 0
	require.NoError(t, h.catalog.Register(fireball(&casts)))
	hero := h.spawn(t, "Hero")

	assert.Equal(t, skill.Started, h.cast(t, hero.ID(), "fireball"))
	h.clock.Advance(200 * time.Millisecond)
	assert.Equal(t, skill.Suppressed, h.cast(t, hero.ID(), "fireball"))

	h.clock.Advance(2200 * time.Millisecond) // t=2.4s
	assert.Equal(t, 1, casts)
	assert.Equal(t, skill.Suppressed, h.cast(t, hero.ID(), "fireball"),
		"lockout is cast time plus cooldown")

	h.clock.Advance(100 * time.Millisecond) // t=2.5s
	assert.Equal(t, skill.Started, h.cast(t, hero.ID(), "fireball"))
}

func TestEngine_PhasesAreReported(t *testing.T) {
	h := newHarness(t)
	casts := 0
	require.NoError(t, h.catalog.Register(fireball(&casts)))
	hero := h.spawn(t, "Hero")

	h.cast(t, hero.ID(), "fireball")
	casting, err := h.engine.Casting(hero.ID(), "fireball")
	require.NoError(t, err)
	assert.True(t, casting)

	h.clock.Advance(time.Second)
	casting, _ = h.engine.Casting(hero.ID(), "fireball")
	onCD, _ := h.engine.OnCooldown(hero.ID(), "fireball")
	assert.False(t, casting)
	assert.True(t, onCD)

	h.clock.Advance(2 * time.Second)
	onCD, _ = h.engine.OnCooldown(hero.ID(), "fireball")
	assert.False(t, onCD)
	assert.Equal(t, 0, h.clock.Pending())
}

func TestEngine_DifferentSkillsAreIndependent(t *testing.T) {
	h := newHarness(t)
	var fb, heal int
	require.NoError(t, h.catalog.Register(fireball(&fb)))
	require.NoError(t, h.catalog.Register(&skill.Definition{
		Name:     "Heal",
		CastTime: time.Second,
		Cooldown: time.Second,
		Cast:     func(*actor.State) { heal++ },
	}))
	hero := h.spawn(t, "Hero")

	assert.Equal(t, skill.Started, h.cast(t, hero.ID(), "fireball"))
	assert.Equal(t, skill.Started, h.cast(t, hero.ID(), "heal"))
	h.clock.Advance(time.Second)
	assert.Equal(t, 1, fb)
	assert.Equal(t, 1, heal)
}

func TestEngine_SameSkill_DifferentActorsAreIndependent(t *testing.T) {
	h := newHarness(t)
	casts := 0
	require.NoError(t, h.catalog.Register(fireball(&casts)))
	a := h.spawn(t, "Hero")
	b := h.spawn(t, "Hero")

	assert.Equal(t, skill.Started, h.cast(t, a.ID(), "fireball"))
	assert.Equal(t, skill.Started, h.cast(t, b.ID(), "fireball"))
	h.clock.Advance(time.Second)
	assert.Equal(t, 2, casts)
}

func TestEngine_UnknownSkill_NoStateChange(t *testing.T) {
	h := newHarness(t)
	hero := h.spawn(t, "Hero")

	out, err := h.engine.CastSkill(hero.ID(), "frostbolt")
	assert.ErrorIs(t, err, skill.ErrUnknownSkill)
	assert.Equal(t, skill.Rejected, out)
	st, _ := h.reg.Get(hero)
	assert.Empty(t, st.Cooldowns())
	assert.Equal(t, 1, h.logs.FilterMessage("cast: unknown skill").Len())
}

func TestEngine_UnknownActor(t *testing.T) {
	h := newHarness(t)
	casts := 0
	require.NoError(t, h.catalog.Register(fireball(&casts)))

	out, err := h.engine.CastSkill(uuid.New(), "fireball")
	assert.ErrorIs(t, err, actor.ErrUnknownActor)
	assert.Equal(t, skill.Rejected, out)
	assert.Equal(t, 0, h.clock.Pending())
}

func TestEngine_ZeroCooldown_ReadyAfterCast(t *testing.T) {
	h := newHarness(t)
	casts := 0
	require.NoError(t, h.catalog.Register(&skill.Definition{
		Name:     "Jab",
		CastTime: 100 * time.Millisecond,
		Cast:     func(*actor.State) { casts++ },
	}))
	hero := h.spawn(t, "Hero")

	h.cast(t, hero.ID(), "jab")
	h.clock.Advance(100 * time.Millisecond)
	assert.Equal(t, 1, casts)
	assert.Equal(t, skill.Started, h.cast(t, hero.ID(), "jab"))
}

func TestEngine_StopSkill_Enforce(t *testing.T) {
	h := newHarness(t)
	casts := 0
	require.NoError(t, h.catalog.Register(fireball(&casts)))
	hero := h.spawn(t, "Hero")

	h.cast(t, hero.ID(), "fireball")
	h.clock.Advance(200 * time.Millisecond)
	stopped, err := h.engine.StopSkill(hero.ID(), "Fireball")
	require.NoError(t, err)
	assert.True(t, stopped)

	h.clock.Advance(time.Second)
	assert.Equal(t, 0, casts, "an interrupted cast never resolves")
	assert.Equal(t, skill.Suppressed, h.cast(t, hero.ID(), "fireball"))

	h.clock.Advance(time.Second) // 2s after interruption
	assert.Equal(t, skill.Started, h.cast(t, hero.ID(), "fireball"))
}

func TestEngine_StopSkill_Reset(t *testing.T) {
	h := newHarness(t, skill.WithStopPolicy(skill.StopReset))
	casts := 0
	require.NoError(t, h.catalog.Register(fireball(&casts)))
	hero := h.spawn(t, "Hero")

	h.cast(t, hero.ID(), "fireball")
	stopped, err := h.engine.StopSkill(hero.ID(), "fireball")
	require.NoError(t, err)
	assert.True(t, stopped)
	assert.Equal(t, 0, h.clock.Pending())
	assert.Equal(t, skill.Started, h.cast(t, hero.ID(), "fireball"))
}

func TestEngine_StopSkill_NotCasting_NoOp(t *testing.T) {
	h := newHarness(t)
	casts := 0
	require.NoError(t, h.catalog.Register(fireball(&casts)))
	hero := h.spawn(t, "Hero")

	stopped, err := h.engine.StopSkill(hero.ID(), "fireball")
	require.NoError(t, err)
	assert.False(t, stopped)

	h.cast(t, hero.ID(), "fireball")
	h.clock.Advance(time.Second) // now cooling down
	stopped, err = h.engine.StopSkill(hero.ID(), "fireball")
	require.NoError(t, err)
	assert.False(t, stopped, "a resolved cast cannot be interrupted")
	assert.Equal(t, 1, casts)
}

func TestEngine_StopSkill_UnknownActor(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.StopSkill(uuid.New(), "fireball")
	assert.ErrorIs(t, err, actor.ErrUnknownActor)
}

func TestEngine_DestroyMidCast_CancelsCompletion(t *testing.T) {
	h := newHarness(t)
	casts := 0
	require.NoError(t, h.catalog.Register(fireball(&casts)))
	hero := h.spawn(t, "Hero")

	h.cast(t, hero.ID(), "fireball")
	hero.Kill()
	assert.Equal(t, 0, h.clock.Pending())
	h.clock.Advance(5 * time.Second)
	assert.Equal(t, 0, casts)
}

func TestEngine_CastFromBehavior_DoesNotDeadlock(t *testing.T) {
	h := newHarness(t)
	var chained int
	require.NoError(t, h.catalog.Register(&skill.Definition{
		Name:     "Combo",
		CastTime: time.Second,
		Cooldown: time.Second,
		Cast: func(st *actor.State) {
			out, err := h.engine.CastSkill(st.ID(), "finisher")
			require.NoError(t, err)
			assert.Equal(t, skill.Started, out)
			// The combo itself is resolving and therefore not Ready.
			out, err = h.engine.CastSkill(st.ID(), "combo")
			require.NoError(t, err)
			assert.Equal(t, skill.Suppressed, out)
		},
	}))
	require.NoError(t, h.catalog.Register(&skill.Definition{
		Name:     "Finisher",
		CastTime: time.Second,
		Cast:     func(*actor.State) { chained++ },
	}))
	hero := h.spawn(t, "Hero")

	h.cast(t, hero.ID(), "combo")
	h.clock.Advance(2 * time.Second)
	assert.Equal(t, 1, chained)
}

func TestEngine_PanickingCast_IsContained(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.catalog.Register(&skill.Definition{
		Name:     "Backfire",
		CastTime: time.Second,
		Cooldown: 3 * time.Second,
		Cast:     func(*actor.State) { panic("boom") },
	}))
	hero := h.spawn(t, "Hero")

	h.cast(t, hero.ID(), "backfire")
	h.clock.Advance(time.Second)
	assert.Equal(t, 1, h.logs.FilterMessage("skill behavior panicked").Len())
	onCD, err := h.engine.OnCooldown(hero.ID(), "backfire")
	require.NoError(t, err)
	assert.True(t, onCD, "cooldown still applies after a failed behavior")
}

func TestParseCooldownAnchor(t *testing.T) {
	a, err := skill.ParseCooldownAnchor("initiation")
	require.NoError(t, err)
	assert.Equal(t, skill.AnchorInitiation, a)
	_, err = skill.ParseCooldownAnchor("whenever")
	assert.Error(t, err)
}

func TestParseStopPolicy(t *testing.T) {
	p, err := skill.ParseStopPolicy("reset")
	require.NoError(t, err)
	assert.Equal(t, skill.StopReset, p)
	_, err = skill.ParseStopPolicy("")
	assert.Error(t, err)
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "started", skill.Started.String())
	assert.Equal(t, "suppressed", skill.Suppressed.String())
	assert.Equal(t, "rejected", skill.Rejected.String())
	assert.Equal(t, "unknown", skill.Outcome(42).String())
}

// Spamming a skill before cast time + cooldown elapses executes it exactly once.
func TestPropertyEngine_SpamExecutesOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		anchor := rapid.SampledFrom([]skill.CooldownAnchor{skill.AnchorCompletion, skill.AnchorInitiation}).Draw(t, "anchor")
		h := newHarness(t, skill.WithCooldownAnchor(anchor))
		castMs := rapid.IntRange(0, 1000).Draw(t, "cast_ms")
		cdMs := rapid.IntRange(0, 3000).Draw(t, "cooldown_ms")
		casts := 0
		require.NoError(t, h.catalog.Register(&skill.Definition{
			Name:     "Spam",
			CastTime: time.Duration(castMs) * time.Millisecond,
			Cooldown: time.Duration(cdMs) * time.Millisecond,
			Cast:     func(*actor.State) { casts++ },
		}))
		hero := h.spawn(t, "Hero")

		lockout := time.Duration(castMs+cdMs) * time.Millisecond
		if anchor == skill.AnchorInitiation {
			lockout = time.Duration(max(castMs, cdMs)) * time.Millisecond
		}
		attempts := rapid.IntRange(1, 20).Draw(t, "attempts")
		var elapsed time.Duration
		for i := 0; i < attempts; i++ {
			if _, err := h.engine.CastSkill(hero.ID(), "spam"); err != nil {
				t.Fatalf("cast: %v", err)
			}
			step := time.Duration(rapid.IntRange(0, 50).Draw(t, "step_ms")) * time.Millisecond
			if elapsed+step >= lockout {
				break
			}
			h.clock.Advance(step)
			elapsed += step
		}
		h.clock.Advance(lockout - elapsed)
		if casts != 1 {
			t.Fatalf("casts = %d, want 1 (lockout %s)", casts, lockout)
		}
		out, err := h.engine.CastSkill(hero.ID(), "spam")
		if err != nil || out != skill.Started {
			t.Fatalf("cast after lockout = %v, %v; want started", out, err)
		}
	})
}

func TestEngine_InitiationAnchor_LockoutIsMaxOfCastAndCooldown(t *testing.T) {
	for _, tc := range []struct {
		anchor skill.CooldownAnchor
		at     time.Duration
		want   skill.Outcome
	}{
		{skill.AnchorInitiation, 1999 * time.Millisecond, skill.Suppressed},
		{skill.AnchorInitiation, 2100 * time.Millisecond, skill.Started},
		{skill.AnchorCompletion, 2100 * time.Millisecond, skill.Suppressed},
		{skill.AnchorCompletion, 2500 * time.Millisecond, skill.Started},
	} {
		t.Run(fmt.Sprintf("%s_%s", tc.anchor, tc.at), func(t *testing.T) {
			h := newHarness(t, skill.WithCooldownAnchor(tc.anchor))
			casts := 0
			require.NoError(t, h.catalog.Register(fireball(&casts)))
			hero := h.spawn(t, "Hero")

			h.cast(t, hero.ID(), "fireball")
			h.clock.Advance(tc.at)
			assert.Equal(t, tc.want, h.cast(t, hero.ID(), "fireball"))
		})
	}
}
