package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/hearth/pkg/clock"
	"github.com/urmzd/hearth/pkg/sensor"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T) (*Store, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(epoch)
	s := New(clk, Options{HistorySize: 3, OverrideTTL: time.Hour, CooldownTTL: time.Minute},
		map[string]string{"hvac_system": "off", "water_shutoff": "open"})
	return s, clk
}

func TestOverrides_ExpireLazily(t *testing.T) {
	clk := clock.NewManual(epoch)
	o := NewOverrides(clk, time.Hour)

	o.Set("hvac_system")
	assert.True(t, o.Active("hvac_system"))

	clk.Advance(59 * time.Minute)
	assert.True(t, o.Active("hvac_system"))

	clk.Advance(time.Minute)
	assert.False(t, o.Active("hvac_system"), "active only while now - stamp < ttl")
	assert.Empty(t, o.Snapshot())
}

func TestOverrides_Clear(t *testing.T) {
	o := NewOverrides(clock.NewManual(epoch), time.Hour)
	o.Set("bedroom_lights")
	o.Clear("bedroom_lights")
	assert.False(t, o.Active("bedroom_lights"))
}

func TestOverrides_SnapshotReportsExpiry(t *testing.T) {
	o := NewOverrides(clock.NewManual(epoch), time.Hour)
	o.Set("kitchen_exhaust")
	snap := o.Snapshot()
	assert.Equal(t, epoch.Add(time.Hour), snap["kitchen_exhaust"])
}

func TestCooldowns_GlassBreakSequence(t *testing.T) {
	clk := clock.NewManual(epoch)
	c := NewCooldowns(clk, time.Minute)

	assert.True(t, c.CanFire("security_alarm", 60*time.Second))

	clk.Advance(30 * time.Second)
	assert.False(t, c.CanFire("security_alarm", 60*time.Second))

	clk.Advance(31 * time.Second)
	assert.True(t, c.CanFire("security_alarm", 60*time.Second))
}

func TestCooldowns_ExactBoundaryIsSuppressed(t *testing.T) {
	clk := clock.NewManual(epoch)
	c := NewCooldowns(clk, time.Minute)
	require.True(t, c.CanFire("fire_alarm", 0))
	clk.Advance(time.Minute)
	assert.False(t, c.CanFire("fire_alarm", 0))
}

func TestCooldowns_PrunesIdleStamps(t *testing.T) {
	clk := clock.NewManual(epoch)
	c := NewCooldowns(clk, time.Minute)
	c.CanFire("a", 0)
	c.CanFire("b", 0)
	clk.Advance(2 * time.Minute)
	c.CanFire("c", 0)
	assert.Equal(t, 1, c.Len())
}

func TestCooldowns_LongCooldownSurvivesPruning(t *testing.T) {
	clk := clock.NewManual(epoch)
	c := NewCooldowns(clk, time.Minute)
	c.CanFire("siren", 10*time.Minute)
	clk.Advance(2 * time.Minute)
	c.CanFire("other", 0)
	assert.False(t, c.CanFire("siren", 10*time.Minute))
}

func TestStore_SeededAndFeedback(t *testing.T) {
	s, clk := newStore(t)

	st, ok := s.Actuator("water_shutoff")
	require.True(t, ok)
	assert.Equal(t, "open", st.State)

	clk.Advance(time.Second)
	s.UpdateActuatorState("hvac_system", "cooling")
	st, _ = s.Actuator("hvac_system")
	assert.Equal(t, "cooling", st.State)
	assert.Equal(t, epoch.Add(time.Second), st.LastUpdated)

	s.Atomically(func(tx *Tx) {
		assert.Equal(t, "cooling", tx.ActuatorState("hvac_system"))
		assert.Equal(t, DefaultState, tx.ActuatorState("never_seen"))
	})
}

func TestStore_HistoryIsBounded(t *testing.T) {
	s, clk := newStore(t)
	for i := 0; i < 5; i++ {
		s.Atomically(func(tx *Tx) {
			tx.AppendHistory("bedroom", "bedroom", sensor.KindLight, float64(100+i))
		})
		clk.Advance(time.Second)
	}
	s.Atomically(func(tx *Tx) {
		h := tx.History("bedroom", sensor.KindLight)
		require.Len(t, h, 3)
		assert.Equal(t, 102.0, h[0].Value)
		assert.Equal(t, 104.0, h[2].Value)

		latest, ok := tx.Latest("bedroom", sensor.KindLight)
		require.True(t, ok)
		assert.Equal(t, 104.0, latest.Value)
	})
}

func TestStore_PoolWindow(t *testing.T) {
	s, clk := newStore(t)
	s.Atomically(func(tx *Tx) {
		tx.AppendHistory("basement", "basement", sensor.KindTemperature, 15)
	})
	clk.Advance(6 * time.Minute)
	s.Atomically(func(tx *Tx) {
		tx.AppendHistory("living_room", "living_room", sensor.KindTemperature, 24)
		tx.AppendHistory("bedroom", "bedroom", sensor.KindTemperature, 22)
		tx.AppendHistory("bedroom", "bedroom", sensor.KindHumidity, 50)
	})
	s.Atomically(func(tx *Tx) {
		pool := tx.Pool(sensor.KindTemperature, tx.Now().Add(-5*time.Minute))
		require.Len(t, pool, 2)
		assert.Equal(t, "bedroom", pool[0].Location)
		assert.Equal(t, "living_room", pool[1].Location)
	})
}

func TestStore_Motion(t *testing.T) {
	s, clk := newStore(t)
	s.Atomically(func(tx *Tx) {
		assert.False(t, tx.RecentMotion("living_room", 5*time.Minute))
		tx.MarkMotion("living_room")
	})
	clk.Advance(4 * time.Minute)
	s.Atomically(func(tx *Tx) {
		assert.True(t, tx.RecentMotion("living_room", 5*time.Minute))
	})
	clk.Advance(time.Minute)
	s.Atomically(func(tx *Tx) {
		assert.False(t, tx.RecentMotion("living_room", 5*time.Minute))
	})
}

func TestStore_OverrideThroughTx(t *testing.T) {
	s, clk := newStore(t)
	s.SetOverride("hvac_system")
	s.Atomically(func(tx *Tx) {
		assert.True(t, tx.OverrideActive("hvac_system"))
	})
	assert.Contains(t, s.ActiveOverrides(), "hvac_system")

	clk.Advance(time.Hour)
	assert.False(t, s.OverrideActive("hvac_system"))
}

func TestStore_ConcurrentDecisionsSerialize(t *testing.T) {
	s, _ := newStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Atomically(func(tx *Tx) {
				n := len(tx.History("roof", sensor.KindPressure))
				tx.AppendHistory("roof", "roof", sensor.KindPressure, float64(n))
			})
		}()
		go func() {
			defer wg.Done()
			s.UpdateActuatorState("hvac_system", "off")
		}()
	}
	wg.Wait()
	s.Atomically(func(tx *Tx) {
		assert.Len(t, tx.History("roof", sensor.KindPressure), 3)
	})
}
