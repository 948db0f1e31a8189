package combat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/combatstate/internal/game/actor"
	"github.com/cory-johannsen/combatstate/internal/game/combat"
	"github.com/cory-johannsen/combatstate/internal/game/effect"
	"github.com/cory-johannsen/combatstate/internal/game/entity"
	"github.com/cory-johannsen/combatstate/internal/game/skill"
	"github.com/cory-johannsen/combatstate/internal/game/weapon"
	"github.com/cory-johannsen/combatstate/internal/timer"
)

func newEngine(t *testing.T, opts ...skill.Option) (*combat.Engine, *timer.Manual) {
	t.Helper()
	clock := timer.NewManual()
	eng := combat.NewEngine(clock, zap.NewNop(), opts...)
	t.Cleanup(eng.Close)
	return eng, clock
}

func TestEngine_GoblinBurnScenario(t *testing.T) {
	eng, clock := newEngine(t)
	require.NoError(t, eng.RegisterStatusEffect(&effect.Definition{
		Name:     "burn",
		Duration: 3 * time.Second,
		Tick:     time.Second,
		Effect:   func(st *actor.State) { st.AddAttr("hp", -1) },
	}))
	goblin := entity.NewBody("Goblin", true)
	st, err := eng.Register(goblin)
	require.NoError(t, err)
	st.SetAttr("hp", 10)

	require.NoError(t, eng.ApplyStatusEffect(goblin, "Burn"))
	clock.Advance(time.Second)
	assert.Equal(t, 9.0, st.Attr("hp"))

	clock.Advance(500 * time.Millisecond) // t=1.5s
	require.NoError(t, eng.ApplyStatusEffect(goblin, "BURN"))
	for _, want := range []float64{8, 7, 6} {
		clock.Advance(time.Second)
		assert.Equal(t, want, st.Attr("hp"))
	}
	assert.False(t, st.HasEffect("burn"))
	clock.Advance(5 * time.Second)
	assert.Equal(t, 6.0, st.Attr("hp"))
}

func TestEngine_HeroFireballScenario(t *testing.T) {
	eng, clock := newEngine(t)
	casts := 0
	require.NoError(t, eng.RegisterSkill(&skill.Definition{
		Name:     "Fireball",
		CastTime: 500 * time.Millisecond,
		Cooldown: 2 * time.Second,
		Cast:     func(*actor.State) { casts++ },
	}))
	hero := entity.NewBody("Hero", true)
	_, err := eng.Register(hero)
	require.NoError(t, err)

	out, err := eng.CastSkill(hero, "fireball")
	require.NoError(t, err)
	assert.Equal(t, skill.Started, out)

	clock.Advance(200 * time.Millisecond)
	out, err = eng.CastSkill(hero, "fireball")
	require.NoError(t, err)
	assert.Equal(t, skill.Suppressed, out)

	clock.Advance(300 * time.Millisecond)
	assert.Equal(t, 1, casts)

	clock.Advance(1900 * time.Millisecond)
	out, err = eng.CastSkill(hero, "fireball")
	require.NoError(t, err)
	assert.Equal(t, skill.Started, out)
}

func TestEngine_UnknownNames_NoStateChange(t *testing.T) {
	eng, clock := newEngine(t)
	hero := entity.NewBody("Hero", true)
	st, err := eng.Register(hero)
	require.NoError(t, err)

	assert.ErrorIs(t, eng.ApplyStatusEffect(hero, "frostbolt"), effect.ErrUnknownEffect)
	_, err = eng.CastSkill(hero, "frostbolt")
	assert.ErrorIs(t, err, skill.ErrUnknownSkill)
	assert.ErrorIs(t, eng.Equip(hero, "frostbolt"), weapon.ErrUnknownWeapon)

	assert.Empty(t, st.Effects())
	assert.Empty(t, st.Cooldowns())
	assert.Empty(t, st.Weapon())
	assert.Equal(t, 0, clock.Pending())
}

func TestEngine_UnregisteredActor(t *testing.T) {
	eng, _ := newEngine(t)
	require.NoError(t, eng.RegisterStatusEffect(&effect.Definition{Name: "stun", Duration: time.Second}))
	ghost := entity.NewBody("Ghost", true)

	assert.ErrorIs(t, eng.ApplyStatusEffect(ghost, "stun"), actor.ErrUnknownActor)
	removed, err := eng.RemoveStatusEffect(ghost, "stun")
	assert.ErrorIs(t, err, actor.ErrUnknownActor)
	assert.False(t, removed)
	assert.False(t, eng.Unregister(ghost))
}

func TestEngine_Equip_GrantsWeaponSkills(t *testing.T) {
	eng, _ := newEngine(t)
	fireball := &skill.Definition{Name: "Fireball", CastTime: time.Second}
	require.NoError(t, eng.RegisterSkill(fireball))
	require.NoError(t, eng.RegisterWeapon(&weapon.Definition{
		Name:   "Fire Staff",
		Skills: []*skill.Definition{fireball},
	}))
	hero := entity.NewBody("Hero", true)
	st, err := eng.Register(hero)
	require.NoError(t, err)

	require.NoError(t, eng.Equip(hero, "fire staff"))
	assert.Equal(t, "Fire Staff", st.Weapon())
	assert.Equal(t, []string{"fireball"}, st.GrantedSkills())
}

func TestEngine_CatalogRegistrationAPI(t *testing.T) {
	eng, _ := newEngine(t)
	require.NoError(t, eng.RegisterStatusEffect(&effect.Definition{Name: "Burn", Duration: time.Second}))
	require.NoError(t, eng.RegisterSkill(&skill.Definition{Name: "Fireball"}))
	require.NoError(t, eng.RegisterWeapon(&weapon.Definition{Name: "Staff"}))

	_, ok := eng.GetStatusEffect("BURN")
	assert.True(t, ok)
	_, ok = eng.GetSkill("FIREBALL")
	assert.True(t, ok)
	_, ok = eng.GetWeapon("STAFF")
	assert.True(t, ok)

	assert.True(t, eng.RemoveStatusEffectDefinition("burn"))
	assert.True(t, eng.RemoveSkillDefinition("fireball"))
	assert.True(t, eng.RemoveWeaponDefinition("staff"))
	_, ok = eng.GetStatusEffect("burn")
	assert.False(t, ok)
}

func TestEngine_RemoveDefinition_LeavesRunningEffect(t *testing.T) {
	eng, clock := newEngine(t)
	ticks := 0
	require.NoError(t, eng.RegisterStatusEffect(&effect.Definition{
		Name:     "burn",
		Duration: 2 * time.Second,
		Tick:     time.Second,
		Effect:   func(*actor.State) { ticks++ },
	}))
	goblin := entity.NewBody("Goblin", true)
	_, err := eng.Register(goblin)
	require.NoError(t, err)
	require.NoError(t, eng.ApplyStatusEffect(goblin, "burn"))

	eng.RemoveStatusEffectDefinition("burn")
	clock.Advance(2 * time.Second)
	assert.Equal(t, 2, ticks)
}

func TestEngine_DeathCancelsEverything(t *testing.T) {
	eng, clock := newEngine(t)
	ticks, casts := 0, 0
	require.NoError(t, eng.RegisterStatusEffect(&effect.Definition{
		Name:     "burn",
		Duration: 10 * time.Second,
		Tick:     time.Second,
		Effect:   func(*actor.State) { ticks++ },
	}))
	require.NoError(t, eng.RegisterSkill(&skill.Definition{
		Name:     "fireball",
		CastTime: 3 * time.Second,
		Cast:     func(*actor.State) { casts++ },
	}))
	goblin := entity.NewBody("Goblin", true)
	_, err := eng.Register(goblin)
	require.NoError(t, err)
	require.NoError(t, eng.ApplyStatusEffect(goblin, "burn"))
	_, err = eng.CastSkill(goblin, "fireball")
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	goblin.Kill()
	assert.Equal(t, 0, clock.Pending())
	clock.Advance(20 * time.Second)
	assert.Equal(t, 2, ticks, "no ticks after death")
	assert.Equal(t, 0, casts)
	_, ok := eng.Get(goblin)
	assert.False(t, ok)
}

func TestEngine_SelfRemovalFromTick(t *testing.T) {
	eng, clock := newEngine(t)
	goblin := entity.NewBody("Goblin", true)
	ticks := 0
	require.NoError(t, eng.RegisterStatusEffect(&effect.Definition{
		Name:     "flicker",
		Duration: 10 * time.Second,
		Tick:     time.Second,
		Effect: func(*actor.State) {
			ticks++
			_, err := eng.RemoveStatusEffect(goblin, "flicker")
			assert.NoError(t, err)
		},
	}))
	_, err := eng.Register(goblin)
	require.NoError(t, err)
	require.NoError(t, eng.ApplyStatusEffect(goblin, "flicker"))

	clock.Advance(5 * time.Second)
	assert.Equal(t, 1, ticks)
	assert.Equal(t, 0, clock.Pending())
}
