package actor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/combatstate/internal/game/actor"
	"github.com/cory-johannsen/combatstate/internal/game/entity"
	"github.com/cory-johannsen/combatstate/internal/timer"
)

func newState() *actor.State {
	return actor.NewState(entity.NewBody("Goblin", true))
}

func TestState_PutEffect_ReplacesAndCancelsOld(t *testing.T) {
	st := newState()
	clock := timer.NewManual()
	first, old, err := st.PutEffect("Burn", func(es *actor.EffectSlot) {
		es.Attach(clock.Every(time.Second, func() {}))
	})
	require.NoError(t, err)
	assert.Nil(t, old)

	second, old, err := st.PutEffect("BURN", func(es *actor.EffectSlot) {
		es.Attach(clock.Every(time.Second, func() {}))
	})
	require.NoError(t, err)
	assert.Same(t, first, old)
	assert.True(t, first.Cancelled())
	assert.False(t, second.Cancelled())
	assert.Equal(t, 1, clock.Pending())
	assert.Equal(t, []string{"burn"}, st.Effects())
}

func TestState_UpdateEffect_StaleSlotIsNoOp(t *testing.T) {
	st := newState()
	first, _, err := st.PutEffect("burn", func(*actor.EffectSlot) {})
	require.NoError(t, err)
	_, _, err = st.PutEffect("burn", func(*actor.EffectSlot) {})
	require.NoError(t, err)

	ok, err := st.UpdateEffect("burn", first, func(*actor.EffectSlot) bool {
		t.Fatal("stale slot must not be updated")
		return false
	})
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestState_UpdateEffect_RemoveOnTrue(t *testing.T) {
	st := newState()
	es, _, err := st.PutEffect("burn", func(*actor.EffectSlot) {})
	require.NoError(t, err)
	ok, err := st.UpdateEffect("burn", es, func(*actor.EffectSlot) bool { return true })
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, st.HasEffect("burn"))
	assert.True(t, es.Cancelled())
}

func TestState_UpdateEffect_OrphanReported(t *testing.T) {
	st := newState()
	other := newState()
	orphan, _, err := other.PutEffect("burn", func(*actor.EffectSlot) {})
	require.NoError(t, err)

	_, err = st.UpdateEffect("burn", orphan, func(*actor.EffectSlot) bool { return false })
	assert.ErrorIs(t, err, actor.ErrOrphanedSlot)
}

func TestState_RemoveEffect_Idempotent(t *testing.T) {
	st := newState()
	_, _, err := st.PutEffect("burn", func(*actor.EffectSlot) {})
	require.NoError(t, err)
	removed, err := st.RemoveEffect("Burn")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = st.RemoveEffect("burn")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestState_BeginCast_GatesWhilePresent(t *testing.T) {
	st := newState()
	_, started, err := st.BeginCast("Fireball", func(*actor.CastSlot) {})
	require.NoError(t, err)
	assert.True(t, started)

	_, started, err = st.BeginCast("fireball", func(*actor.CastSlot) {
		t.Fatal("arm must not run for a gated cast")
	})
	require.NoError(t, err)
	assert.False(t, started)

	phase, ok := st.CastPhaseOf("FIREBALL")
	require.True(t, ok)
	assert.Equal(t, actor.PhaseCasting, phase)
}

func TestState_UpdateCast_NilWantUsesCurrent(t *testing.T) {
	st := newState()
	_, _, err := st.BeginCast("fireball", func(*actor.CastSlot) {})
	require.NoError(t, err)
	ok, err := st.UpdateCast("fireball", nil, func(*actor.CastSlot) bool { return true })
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, st.Cooldowns())
}

func TestState_Close_CancelsEverythingAndRejects(t *testing.T) {
	st := newState()
	clock := timer.NewManual()
	_, _, err := st.PutEffect("burn", func(es *actor.EffectSlot) {
		es.Attach(clock.Every(time.Second, func() {}))
	})
	require.NoError(t, err)
	_, _, err = st.BeginCast("fireball", func(cs *actor.CastSlot) {
		cs.Attach(clock.AfterFunc(time.Second, func() {}))
	})
	require.NoError(t, err)
	require.Equal(t, 2, clock.Pending())

	st.Close()
	st.Close()
	assert.Equal(t, 0, clock.Pending())
	assert.Empty(t, st.Effects())
	assert.Empty(t, st.Cooldowns())

	_, _, err = st.PutEffect("burn", func(*actor.EffectSlot) {})
	assert.ErrorIs(t, err, actor.ErrUnknownActor)
	_, _, err = st.BeginCast("fireball", func(*actor.CastSlot) {})
	assert.ErrorIs(t, err, actor.ErrUnknownActor)
	assert.ErrorIs(t, st.Equip("sword", nil), actor.ErrUnknownActor)
}

func TestState_Attach_AfterCancel_StopsTimer(t *testing.T) {
	st := newState()
	clock := timer.NewManual()
	es, _, err := st.PutEffect("burn", func(*actor.EffectSlot) {})
	require.NoError(t, err)
	_, err = st.RemoveEffect("burn")
	require.NoError(t, err)
	es.Attach(clock.Every(time.Second, func() {}))
	assert.Equal(t, 0, clock.Pending())
}

func TestState_Attributes(t *testing.T) {
	st := newState()
	st.SetAttr("HP", 10)
	assert.Equal(t, 9.0, st.AddAttr("hp", -1))
	assert.Equal(t, 9.0, st.Attr("Hp"))
	assert.Equal(t, 0.0, st.Attr("mana"))
}

func TestState_Equip(t *testing.T) {
	st := newState()
	require.NoError(t, st.Equip("Staff", []string{"Fireball", "Blink"}))
	assert.Equal(t, "Staff", st.Weapon())
	assert.Equal(t, []string{"blink", "fireball"}, st.GrantedSkills())
}

func TestCastPhase_String(t *testing.T) {
	assert.Equal(t, "casting", actor.PhaseCasting.String())
	assert.Equal(t, "resolving", actor.PhaseResolving.String())
	assert.Equal(t, "cooldown", actor.PhaseCooldown.String())
	assert.Equal(t, "unknown", actor.CastPhase(99).String())
}
