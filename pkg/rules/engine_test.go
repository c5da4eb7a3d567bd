package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/hearth/pkg/actuator"
	"github.com/urmzd/hearth/pkg/clock"
	"github.com/urmzd/hearth/pkg/config"
	"github.com/urmzd/hearth/pkg/sensor"
	"github.com/urmzd/hearth/pkg/state"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	t      *testing.T
	clk    *clock.Manual
	store  *state.Store
	engine *Engine
}

func newFixture(t *testing.T, mutate func(*config.Config), opts ...Option) *fixture {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	reg, err := actuator.NewRegistry(cfg.Actuators)
	require.NoError(t, err)
	clk := clock.NewManual(epoch)
	store := state.New(clk, state.OptionsFrom(cfg.State), reg.InitialStates())
	return &fixture{
		t:      t,
		clk:    clk,
		store:  store,
		engine: New(store, cfg.Rules, reg, opts...),
	}
}

func (f *fixture) process(location string, readings ...sensor.Reading) []actuator.Command {
	f.t.Helper()
	cmds, err := f.engine.Process(sensor.Batch{DeviceID: location, Location: location, Readings: readings})
	require.NoError(f.t, err)
	return cmds
}

// applyAll plays the dispatcher's part: every command succeeds.
func (f *fixture) applyAll(cmds []actuator.Command) {
	for _, c := range cmds {
		f.store.UpdateActuatorState(c.ActuatorID, c.State)
	}
}

func num(kind sensor.Kind, v float64) sensor.Reading {
	return sensor.Reading{Kind: kind, Value: sensor.Number(v)}
}

func find(cmds []actuator.Command, id string) (actuator.Command, bool) {
	for _, c := range cmds {
		if c.ActuatorID == id {
			return c, true
		}
	}
	return actuator.Command{}, false
}

func count(cmds []actuator.Command, id string) int {
	n := 0
	for _, c := range cmds {
		if c.ActuatorID == id {
			n++
		}
	}
	return n
}

func TestHandlerTable_CoversEveryKind(t *testing.T) {
	table := handlerTable()
	for _, k := range sensor.AllKinds() {
		_, ok := table[k]
		assert.True(t, ok, "no handler entry for %s", k)
	}
	assert.Len(t, table, len(sensor.AllKinds()))
}

func TestProcess_RejectsEnvelope(t *testing.T) {
	f := newFixture(t, nil)
	cmds, err := f.engine.Process(sensor.Batch{DeviceID: "kitchen", Readings: []sensor.Reading{num(sensor.KindSmoke, 1)}})
	assert.ErrorIs(t, err, sensor.ErrInvalidEnvelope)
	assert.Nil(t, cmds)

	f.store.Atomically(func(tx *state.Tx) {
		assert.Empty(t, tx.History("kitchen", sensor.KindSmoke), "a rejected batch leaves no trace")
	})
}

func TestProcess_SkipsNonNumericValues(t *testing.T) {
	f := newFixture(t, nil)
	cmds := f.process("basement",
		sensor.Reading{Kind: sensor.KindWaterLeak, Value: sensor.Text("wet")},
		sensor.Reading{Kind: sensor.KindTemperature, Value: sensor.Null()},
		sensor.Reading{Kind: sensor.KindUnknown, Value: sensor.Number(1)},
	)
	assert.Empty(t, cmds)
}

func TestAggregate_WeightedPooling(t *testing.T) {
	weights := map[string]float64{"a": 1.5, "b": 0.5}
	c, ok := Aggregate([]state.Sample{
		{Location: "a", Value: 35},
		{Location: "b", Value: 20},
	}, func(loc string) float64 { return weights[loc] })
	require.True(t, ok)

	assert.InDelta(t, (35.0*1.5+20.0*0.5)/2.0, c.Avg, 1e-9)
	assert.InDelta(t, 31.25, c.Avg, 1e-9)
	assert.Equal(t, 35.0, c.Max)
	assert.Equal(t, 20.0, c.Min)
}

func TestAggregate_MeansPerLocationFirst(t *testing.T) {
	c, ok := Aggregate([]state.Sample{
		{Location: "a", Value: 20},
		{Location: "a", Value: 22},
		{Location: "a", Value: 24},
		{Location: "b", Value: 30},
	}, func(string) float64 { return 1 })
	require.True(t, ok)
	assert.InDelta(t, 26.0, c.Avg, 1e-9, "location a counts once, at its mean 22")
	assert.Len(t, c.Locations, 2)
}

func TestAggregate_Empty(t *testing.T) {
	_, ok := Aggregate(nil, func(string) float64 { return 1 })
	assert.False(t, ok)
}

func weightsAB(wa, wb float64) func(*config.Config) {
	return func(c *config.Config) {
		c.Rules.LocationWeights = map[string]float64{"a": wa, "b": wb}
	}
}

func TestClimate_PoolDrivesSingleDecision(t *testing.T) {
	f := newFixture(t, weightsAB(1.5, 0.5))

	f.process("b", num(sensor.KindTemperature, 20))
	cmds := f.process("a", num(sensor.KindTemperature, 35))

	hvac, ok := find(cmds, HVAC)
	require.True(t, ok)
	assert.Equal(t, "cooling", hvac.State)
	assert.Contains(t, hvac.Reason, "31.25")
	assert.Contains(t, hvac.Reason, "2 locations")
}

func TestClimate_LowWeightHotspotDoesNotCool(t *testing.T) {
	f := newFixture(t, weightsAB(0.5, 1.5))

	f.process("b", num(sensor.KindTemperature, 20))
	cmds := f.process("a", num(sensor.KindTemperature, 35))

	// (35*0.5 + 20*1.5) / 2 = 23.75
	_, ok := find(cmds, HVAC)
	assert.False(t, ok)
}

func TestClimate_CoolingHysteresis(t *testing.T) {
	f := newFixture(t, nil)
	f.store.UpdateActuatorState(HVAC, "cooling")

	for _, avg := range []float64{29.9, 30, 29, 28.01} {
		f.clk.Advance(6 * time.Minute)
		cmds := f.process("living_room", num(sensor.KindTemperature, avg))
		_, ok := find(cmds, HVAC)
		assert.False(t, ok, "avg %.2f must hold cooling", avg)
	}

	f.clk.Advance(6 * time.Minute)
	cmds := f.process("living_room", num(sensor.KindTemperature, 28))
	hvac, ok := find(cmds, HVAC)
	require.True(t, ok)
	assert.Equal(t, "off", hvac.State)
}

func TestClimate_NoFlappingAcrossThreshold(t *testing.T) {
	f := newFixture(t, nil)
	var transitions int
	for _, v := range []float64{30.5, 29.5, 30.2, 29.1, 30.8, 28.5} {
		f.clk.Advance(6 * time.Minute)
		cmds := f.process("living_room", num(sensor.KindTemperature, v))
		transitions += count(cmds, HVAC)
		f.applyAll(cmds)
	}
	assert.Equal(t, 1, transitions, "one switch to cooling and no switch back above 28")
}

func TestClimate_HeatingHysteresis(t *testing.T) {
	f := newFixture(t, nil)

	cmds := f.process("bedroom", num(sensor.KindTemperature, 17))
	hvac, ok := find(cmds, HVAC)
	require.True(t, ok)
	assert.Equal(t, "heating", hvac.State)
	f.applyAll(cmds)

	f.clk.Advance(6 * time.Minute)
	cmds = f.process("bedroom", num(sensor.KindTemperature, 19.5))
	_, ok = find(cmds, HVAC)
	assert.False(t, ok)

	f.clk.Advance(6 * time.Minute)
	cmds = f.process("bedroom", num(sensor.KindTemperature, 20))
	hvac, ok = find(cmds, HVAC)
	require.True(t, ok)
	assert.Equal(t, "off", hvac.State)
}

func TestClimate_OverrideSuppressesAllButCritical(t *testing.T) {
	f := newFixture(t, nil)
	f.store.SetOverride(HVAC)

	cmds := f.process("living_room", num(sensor.KindTemperature, 33))
	_, ok := find(cmds, HVAC)
	assert.False(t, ok, "non-critical decision suppressed under override")

	f.clk.Advance(time.Second)
	cmds = f.process("kitchen", num(sensor.KindTemperature, 41))
	require.Len(t, cmds, 2)
	assert.Equal(t, HVAC, cmds[0].ActuatorID)
	assert.Equal(t, "cooling", cmds[0].State)
	assert.Equal(t, FireAlarm, cmds[1].ActuatorID)
	assert.Equal(t, "on", cmds[1].State)
}

func TestClimate_OverrideExpires(t *testing.T) {
	f := newFixture(t, nil)
	f.store.SetOverride(HVAC)
	f.clk.Advance(time.Hour)

	cmds := f.process("living_room", num(sensor.KindTemperature, 33))
	hvac, ok := find(cmds, HVAC)
	require.True(t, ok)
	assert.Equal(t, "cooling", hvac.State)
}

func TestClimate_AtMostOneHVACCommand(t *testing.T) {
	batches := [][]sensor.Reading{
		{num(sensor.KindTemperature, 35), num(sensor.KindCO2, 2500), num(sensor.KindSmoke, 1)},
		{num(sensor.KindTemperature, 45), num(sensor.KindCO2, 1500)},
		{num(sensor.KindTemperature, 10), num(sensor.KindCO2, 1500)},
		{num(sensor.KindCO2, 1500), num(sensor.KindCO2, 2500)},
	}
	for _, initial := range []string{"off", "cooling", "heating", "fan_only"} {
		for i, readings := range batches {
			f := newFixture(t, nil, WithAdvisor(NewHeuristicAdvisor(config.Default().Advisor)))
			f.store.UpdateActuatorState(HVAC, initial)
			cmds := f.process("kitchen", readings...)
			assert.LessOrEqual(t, count(cmds, HVAC), 1, "state %s batch %d", initial, i)
		}
	}
}

func TestClimate_SmokeShutsDownHVAC(t *testing.T) {
	f := newFixture(t, nil)
	f.store.UpdateActuatorState(HVAC, "cooling")

	cmds := f.process("kitchen", num(sensor.KindSmoke, 1), num(sensor.KindTemperature, 35))
	require.Len(t, cmds, 2)
	assert.Equal(t, FireAlarm, cmds[0].ActuatorID)
	assert.Equal(t, HVAC, cmds[1].ActuatorID)
	assert.Equal(t, "off", cmds[1].State)
}

func TestClimate_VentilationOnlyFromOff(t *testing.T) {
	f := newFixture(t, nil)
	cmds := f.process("living_room", num(sensor.KindCO2, 1200))
	hvac, ok := find(cmds, HVAC)
	require.True(t, ok)
	assert.Equal(t, "fan_only", hvac.State)
	f.applyAll(cmds)

	cmds = f.process("living_room", num(sensor.KindCO2, 700))
	hvac, ok = find(cmds, HVAC)
	require.True(t, ok)
	assert.Equal(t, "off", hvac.State)

	f.store.UpdateActuatorState(HVAC, "heating")
	cmds = f.process("living_room", num(sensor.KindCO2, 1200))
	_, ok = find(cmds, HVAC)
	assert.False(t, ok)
}

func TestCooldown_GlassBreak(t *testing.T) {
	f := newFixture(t, nil)
	glass := num(sensor.KindGlassBreak, 1)

	cmds := f.process("living_room", glass)
	alarm, ok := find(cmds, SecurityAlarm)
	require.True(t, ok)
	assert.Equal(t, "on", alarm.State)

	f.clk.Advance(30 * time.Second)
	_, ok = find(f.process("living_room", glass), SecurityAlarm)
	assert.False(t, ok, "suppressed inside the cooldown")

	f.clk.Advance(31 * time.Second)
	_, ok = find(f.process("living_room", glass), SecurityAlarm)
	assert.True(t, ok, "fires again once the cooldown has passed")
}

func TestGlassBreak_BypassesOverride(t *testing.T) {
	f := newFixture(t, nil)
	f.store.SetOverride(SecurityAlarm)
	_, ok := find(f.process("bedroom", num(sensor.KindGlassBreak, 1)), SecurityAlarm)
	assert.True(t, ok)
}

func TestComposite_KitchenEmergency(t *testing.T) {
	f := newFixture(t, nil)
	cmds := f.process("kitchen", num(sensor.KindTemperature, 36), num(sensor.KindGas, 600))

	exhaust, ok := find(cmds, "kitchen_exhaust")
	require.True(t, ok)
	assert.Equal(t, "high", exhaust.State)
	assert.Contains(t, exhaust.Reason, "temp=36.0")
	assert.Contains(t, exhaust.Reason, "gas=600.0")

	// Per-sensor output comes before the HVAC decision, which comes before
	// composites.
	last := cmds[len(cmds)-1]
	assert.Equal(t, "kitchen_exhaust", last.ActuatorID)
	assert.Equal(t, HVAC, cmds[len(cmds)-2].ActuatorID)
}

func TestComposite_KitchenNeedsBothInSameBatch(t *testing.T) {
	f := newFixture(t, nil)
	f.process("kitchen", num(sensor.KindTemperature, 36))
	cmds := f.process("kitchen", num(sensor.KindGas, 600))
	_, ok := find(cmds, "kitchen_exhaust")
	assert.False(t, ok)
}

func TestComposite_UnauthorizedEntry(t *testing.T) {
	f := newFixture(t, nil)
	cmds := f.process("entrance",
		num(sensor.KindMotion, 1),
		num(sensor.KindDoor, 0),
		sensor.Reading{Kind: sensor.KindRFID, Value: sensor.Text("None")},
	)
	require.NotEmpty(t, cmds)
	last := cmds[len(cmds)-1]
	assert.Equal(t, "entrance_lights", last.ActuatorID)
	require.NotNil(t, last.Value)
	assert.Equal(t, 100, *last.Value)
	assert.Equal(t, "Potential unauthorized entry detected", last.Reason)
}

func TestComposite_CredentialPresented(t *testing.T) {
	f := newFixture(t, nil)
	cmds := f.process("entrance",
		num(sensor.KindMotion, 1),
		num(sensor.KindDoor, 0),
		sensor.Reading{Kind: sensor.KindRFID, Value: sensor.Text("TAG-0042")},
	)
	for _, c := range cmds {
		assert.Nil(t, c.Value, "no full-brightness escalation with a credential")
	}
}

func TestGas_LevelTriggered(t *testing.T) {
	f := newFixture(t, nil)

	cmds := f.process("kitchen", num(sensor.KindGas, 1600))
	require.Len(t, cmds, 2)
	assert.Equal(t, GasAlarm, cmds[0].ActuatorID)
	assert.Equal(t, "kitchen_exhaust", cmds[1].ActuatorID)
	f.applyAll(cmds)

	assert.Empty(t, f.process("kitchen", num(sensor.KindGas, 1600)), "no repeat while state matches")

	cmds = f.process("kitchen", num(sensor.KindGas, 1000))
	_, ok := find(cmds, GasAlarm)
	assert.False(t, ok, "alarm holds between warning and critical")
	exhaust, ok := find(cmds, "kitchen_exhaust")
	require.True(t, ok)
	assert.Equal(t, "medium", exhaust.State)
	f.applyAll(cmds)

	cmds = f.process("kitchen", num(sensor.KindGas, 300))
	alarm, ok := find(cmds, GasAlarm)
	require.True(t, ok)
	assert.Equal(t, "off", alarm.State)
}

func TestGas_CriticalBypassesOverride(t *testing.T) {
	f := newFixture(t, nil)
	f.store.SetOverride(GasAlarm)
	f.store.SetOverride("kitchen_exhaust")
	cmds := f.process("kitchen", num(sensor.KindGas, 1600))
	assert.Len(t, cmds, 2)

	f.applyAll(cmds)
	assert.Empty(t, f.process("kitchen", num(sensor.KindGas, 100)), "clearing respects the override")
}

func TestWaterLeak_LevelTriggered(t *testing.T) {
	f := newFixture(t, nil)
	f.store.SetOverride(WaterShutoff)

	cmds := f.process("basement", num(sensor.KindWaterLeak, 1))
	valve, ok := find(cmds, WaterShutoff)
	require.True(t, ok)
	assert.Equal(t, "closed", valve.State)
	f.applyAll(cmds)

	assert.Empty(t, f.process("basement", num(sensor.KindWaterLeak, 1)))

	f.store.ClearOverride(WaterShutoff)
	cmds = f.process("basement", num(sensor.KindWaterLeak, 0))
	valve, ok = find(cmds, WaterShutoff)
	require.True(t, ok)
	assert.Equal(t, "open", valve.State)
}

func TestSmoke_EdgeTriggeredWithCooldown(t *testing.T) {
	f := newFixture(t, nil)
	cmds := f.process("kitchen", num(sensor.KindSmoke, 1))
	_, ok := find(cmds, FireAlarm)
	require.True(t, ok)

	f.clk.Advance(10 * time.Second)
	_, ok = find(f.process("kitchen", num(sensor.KindSmoke, 1)), FireAlarm)
	assert.False(t, ok)
}

func TestLightMotion_Coupling(t *testing.T) {
	f := newFixture(t, nil)

	cmds := f.process("living_room", num(sensor.KindLight, 120), num(sensor.KindMotion, 1))
	require.Len(t, cmds, 1)
	assert.Equal(t, "living_room_lights", cmds[0].ActuatorID)
	assert.Equal(t, "on", cmds[0].State)
	require.NotNil(t, cmds[0].Value)
	assert.Equal(t, 80, *cmds[0].Value)
	f.applyAll(cmds)

	f.clk.Advance(200 * time.Second)
	assert.Empty(t, f.process("living_room", num(sensor.KindMotion, 0)), "inside the timeout")

	f.clk.Advance(101 * time.Second)
	cmds = f.process("living_room", num(sensor.KindMotion, 0))
	require.Len(t, cmds, 1)
	assert.Equal(t, "off", cmds[0].State)
}

func TestLight_DarkWithoutMotionStaysOff(t *testing.T) {
	f := newFixture(t, nil)
	assert.Empty(t, f.process("bedroom", num(sensor.KindLight, 50)))
}

func TestLight_BrightTurnsOff(t *testing.T) {
	f := newFixture(t, nil)
	f.store.UpdateActuatorState("bedroom_lights", "on")
	cmds := f.process("bedroom", num(sensor.KindLight, 900))
	require.Len(t, cmds, 1)
	assert.Equal(t, "off", cmds[0].State)
}

func TestLight_OverrideSuppresses(t *testing.T) {
	f := newFixture(t, nil)
	f.store.UpdateActuatorState("bedroom_lights", "on")
	f.store.SetOverride("bedroom_lights")
	assert.Empty(t, f.process("bedroom", num(sensor.KindLight, 900)))
}

func TestDistance_Obstacles(t *testing.T) {
	f := newFixture(t, nil)

	cmds := f.process("mobile", num(sensor.KindDistance, 15))
	require.Len(t, cmds, 1)
	assert.Equal(t, "dust_cleaner_motor", cmds[0].ActuatorID)
	assert.Equal(t, "paused", cmds[0].State)
	assert.Equal(t, "Critical obstacle at 15cm", cmds[0].Reason)

	g := newFixture(t, nil)
	cmds = g.process("mobile", sensor.Reading{Kind: sensor.KindDistance, Value: sensor.Number(35), ObjectName: "chair"})
	require.Len(t, cmds, 1)
	assert.Contains(t, cmds[0].Reason, "chair")
	g.applyAll(cmds)

	cmds = g.process("mobile", num(sensor.KindDistance, 120))
	require.Len(t, cmds, 1)
	assert.Equal(t, "cleaning", cmds[0].State)
}

func TestHumidity_Dehumidifier(t *testing.T) {
	f := newFixture(t, nil)
	cmds := f.process("basement", num(sensor.KindHumidity, 75))
	require.Len(t, cmds, 1)
	assert.Equal(t, "on", cmds[0].State)
	f.applyAll(cmds)

	assert.Empty(t, f.process("basement", num(sensor.KindHumidity, 72)))
	cmds = f.process("basement", num(sensor.KindHumidity, 55))
	require.Len(t, cmds, 1)
	assert.Equal(t, "off", cmds[0].State)

	assert.Empty(t, f.process("bedroom", num(sensor.KindHumidity, 90)), "no dehumidifier in the bedroom")
}

func TestExtendedKinds(t *testing.T) {
	tests := []struct {
		name     string
		location string
		reading  sensor.Reading
		actuator string
		state    string
	}{
		{"sound", "living_room", num(sensor.KindSound, 95), Notifier, "notify"},
		{"vibration", "basement", num(sensor.KindVibration, 7.5), Notifier, "notify"},
		{"energy", "basement", num(sensor.KindEnergy, 5000), LoadShedder, "shed"},
		{"uv", "roof", num(sensor.KindUV, 9), WindowBlinds, "closed"},
		{"rain", "roof", num(sensor.KindRain, 1), Skylight, "closed"},
		{"pressure mat", "bedroom", num(sensor.KindPressureMat, 1), "bedroom_lights", "on"},
		{"door at entry", "entrance", num(sensor.KindDoor, 0), "entrance_lights", "on"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			cmds := f.process(tt.location, tt.reading)
			cmd, ok := find(cmds, tt.actuator)
			require.True(t, ok, "commands: %v", cmds)
			assert.Equal(t, tt.state, cmd.State)
			assert.Equal(t, actuator.TriggeredBySystem, cmd.TriggeredBy)
		})
	}
}

func TestEnergy_Hysteresis(t *testing.T) {
	f := newFixture(t, nil)
	f.applyAll(f.process("basement", num(sensor.KindEnergy, 5000)))
	assert.Empty(t, f.process("basement", num(sensor.KindEnergy, 4200)))
	cmds := f.process("basement", num(sensor.KindEnergy, 3900))
	require.Len(t, cmds, 1)
	assert.Equal(t, "normal", cmds[0].State)
}

func TestRain_StopsIrrigation(t *testing.T) {
	f := newFixture(t, nil)
	f.store.UpdateActuatorState(Irrigation, "on")
	cmds := f.process("garden", num(sensor.KindRain, 1))
	_, ok := find(cmds, Irrigation)
	assert.True(t, ok)
}

func TestAdvisor_Merge(t *testing.T) {
	advice := AdvisorFunc(func(in AdviceInput) []actuator.Command {
		return []actuator.Command{
			{ActuatorID: HVAC, State: "fan_only", Reason: "model"},
			{ActuatorID: WindowBlinds, State: "closed", Reason: "model"},
			{ActuatorID: Skylight, State: "closed", Reason: "model"},
		}
	})
	f := newFixture(t, nil, WithAdvisor(advice))
	f.store.SetOverride(Skylight)

	cmds := f.process("living_room", num(sensor.KindTemperature, 33))
	require.Len(t, cmds, 2)

	assert.Equal(t, HVAC, cmds[0].ActuatorID)
	assert.Equal(t, "cooling", cmds[0].State, "the rules win over advice")
	assert.Equal(t, actuator.TriggeredBySystem, cmds[0].TriggeredBy)

	assert.Equal(t, WindowBlinds, cmds[1].ActuatorID)
	assert.Equal(t, actuator.TriggeredByAdvisor, cmds[1].TriggeredBy)
	assert.Equal(t, actuator.TypeBlinds, cmds[1].ActuatorType)
}

func TestAdvisor_RespectsHysteresisHold(t *testing.T) {
	tests := []struct {
		name    string
		current string
		temp    float64
	}{
		{"cooling inside band", "cooling", 29},
		{"heating inside band", "heating", 19},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, WithAdvisor(NewHeuristicAdvisor(config.Default().Advisor)))
			f.store.UpdateActuatorState(HVAC, tt.current)

			cmds := f.process("living_room", num(sensor.KindTemperature, tt.temp), num(sensor.KindCO2, 1300))
			_, ok := find(cmds, HVAC)
			assert.False(t, ok, "HVAC holds %s at %.0f°C", tt.current, tt.temp)
		})
	}
}

func TestAdvisor_HVACOnlyStartsFromOff(t *testing.T) {
	advice := AdvisorFunc(func(in AdviceInput) []actuator.Command {
		return []actuator.Command{{ActuatorID: HVAC, State: "fan_only", Reason: "model"}}
	})
	f := newFixture(t, nil, WithAdvisor(advice))

	cmds := f.process("living_room", num(sensor.KindUV, 5))
	require.Len(t, cmds, 1)
	assert.Equal(t, actuator.TriggeredByAdvisor, cmds[0].TriggeredBy)

	f.store.UpdateActuatorState(HVAC, "cooling")
	assert.Empty(t, f.process("living_room", num(sensor.KindUV, 5)))

	f.store.UpdateActuatorState(HVAC, "off")
	assert.Empty(t, f.process("living_room", num(sensor.KindTemperature, 22)), "the climate policy judged this batch")
}

func TestGate_OneCommandPerActuator(t *testing.T) {
	orders := [][]sensor.Reading{
		{num(sensor.KindCO2, 2500), num(sensor.KindGas, 900)},
		{num(sensor.KindGas, 900), num(sensor.KindCO2, 2500)},
	}
	for i, readings := range orders {
		f := newFixture(t, nil)
		cmds := f.process("kitchen", readings...)
		require.Equal(t, 1, count(cmds, "kitchen_exhaust"), "order %d", i)
		exhaust, _ := find(cmds, "kitchen_exhaust")
		assert.Equal(t, "high", exhaust.State, "order %d", i)
	}
}

func TestGate_EscalationReplacesEarlierCommand(t *testing.T) {
	f := newFixture(t, nil)
	cmds := f.process("entrance",
		num(sensor.KindMotion, 1),
		num(sensor.KindLight, 50),
		num(sensor.KindDoor, 0),
		sensor.Reading{Kind: sensor.KindRFID, Value: sensor.Null()},
	)
	require.Equal(t, 1, count(cmds, "entrance_lights"))
	lights, _ := find(cmds, "entrance_lights")
	require.NotNil(t, lights.Value)
	assert.Equal(t, 100, *lights.Value)
}

func TestGate_SafetyWithdrawsWhenAlreadyProtective(t *testing.T) {
	f := newFixture(t, nil)
	f.store.UpdateActuatorState("kitchen_exhaust", "high")

	cmds := f.process("kitchen", num(sensor.KindGas, 900), num(sensor.KindTemperature, 36))
	_, ok := find(cmds, "kitchen_exhaust")
	assert.False(t, ok, "the emergency keeps the exhaust at high instead of lowering it")
}

func TestHeuristicAdvisor(t *testing.T) {
	a := NewHeuristicAdvisor(config.Default().Advisor)

	out := a.Advise(AdviceInput{Climate: &Climate{Avg: 31}})
	require.Len(t, out, 1)
	assert.Equal(t, "cooling", out[0].State)

	out = a.Advise(AdviceInput{Climate: &Climate{Avg: 16}})
	require.Len(t, out, 1)
	assert.Equal(t, "heating", out[0].State)

	out = a.Advise(AdviceInput{Batch: sensor.Batch{Readings: []sensor.Reading{num(sensor.KindCO2, 1300)}}})
	require.Len(t, out, 1)
	assert.Equal(t, "fan_only", out[0].State)

	assert.Empty(t, a.Advise(AdviceInput{Climate: &Climate{Avg: 22}}))
}

func TestProcess_Deterministic(t *testing.T) {
	script := func(f *fixture) [][]actuator.Command {
		var out [][]actuator.Command
		steps := []struct {
			loc      string
			readings []sensor.Reading
		}{
			{"living_room", []sensor.Reading{num(sensor.KindLight, 90), num(sensor.KindMotion, 1), num(sensor.KindTemperature, 31)}},
			{"bedroom", []sensor.Reading{num(sensor.KindTemperature, 24), num(sensor.KindGlassBreak, 1)}},
			{"kitchen", []sensor.Reading{num(sensor.KindTemperature, 37), num(sensor.KindGas, 900), num(sensor.KindCO2, 2100)}},
			{"basement", []sensor.Reading{num(sensor.KindWaterLeak, 1), num(sensor.KindHumidity, 80)}},
		}
		for _, s := range steps {
			cmds := f.process(s.loc, s.readings...)
			out = append(out, cmds)
			f.applyAll(cmds)
			f.clk.Advance(15 * time.Second)
		}
		return out
	}

	a := script(newFixture(t, nil))
	b := script(newFixture(t, nil))
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a[2])
}
