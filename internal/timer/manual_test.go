package timer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/combatstate/internal/timer"
)

func TestManual_AfterFunc_FiresAtDeadline(t *testing.T) {
	m := timer.NewManual()
	fired := 0
	m.AfterFunc(time.Second, func() { fired++ })

	m.Advance(999 * time.Millisecond)
	assert.Equal(t, 0, fired)
	m.Advance(time.Millisecond)
	assert.Equal(t, 1, fired)
	m.Advance(10 * time.Second)
	assert.Equal(t, 1, fired, "one-shot must not fire twice")
	assert.Equal(t, 0, m.Pending())
}

func TestManual_Every_FiresEachInterval(t *testing.T) {
	m := timer.NewManual()
	var at []time.Duration
	m.Every(time.Second, func() { at = append(at, m.Now()) })

	m.Advance(3500 * time.Millisecond)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, at)
	assert.Equal(t, 3500*time.Millisecond, m.Now())
}

func TestManual_Stop_Idempotent(t *testing.T) {
	m := timer.NewManual()
	fired := 0
	tm := m.Every(time.Second, func() { fired++ })
	tm.Stop()
	tm.Stop()
	m.Advance(5 * time.Second)
	assert.Equal(t, 0, fired)
}

func TestManual_StopFromOwnCallback(t *testing.T) {
	m := timer.NewManual()
	fired := 0
	var tm timer.Timer
	tm = m.Every(time.Second, func() {
		fired++
		if fired == 2 {
			tm.Stop()
		}
	})
	m.Advance(10 * time.Second)
	assert.Equal(t, 2, fired)
	assert.Equal(t, 0, m.Pending())
}

func TestManual_CallbackArmsTimerInsideWindow(t *testing.T) {
	m := timer.NewManual()
	var order []string
	m.AfterFunc(time.Second, func() {
		order = append(order, "first")
		m.AfterFunc(time.Second, func() { order = append(order, "second") })
	})
	m.Advance(2 * time.Second)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestManual_SameDeadline_SchedulingOrder(t *testing.T) {
	m := timer.NewManual()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		m.AfterFunc(time.Second, func() { order = append(order, i) })
	}
	m.Advance(time.Second)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestPropertyManual_CallbacksInDeadlineOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		delays := rapid.SliceOfN(rapid.IntRange(0, 1000), 1, 20).Draw(t, "delays")
		m := timer.NewManual()
		var seen []time.Duration
		for _, d := range delays {
			m.AfterFunc(time.Duration(d)*time.Millisecond, func() { seen = append(seen, m.Now()) })
		}
		m.Advance(2 * time.Second)
		require.Len(t, seen, len(delays))
		for i := 1; i < len(seen); i++ {
			if seen[i] < seen[i-1] {
				t.Fatalf("callback %d fired at %v before previous at %v", i, seen[i], seen[i-1])
			}
		}
	})
}
