package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func constantPowerOutcome(watts float64) PollOutcome {
	outcome := PollOutcome{
		Device: DEVICE_INVERTER,
		At:     time.Now(),
	}
	for phase := range outcome.Readings.Phases {
		outcome.Readings.Phases[phase].Power = watts
	}
	return outcome
}

func TestEnergyAccumulatorIntegrate(t *testing.T) {

	assert := assert.New(t)

	cases := []struct {
		cycles   int
		power    float64
		interval time.Duration
	}{
		{cycles: 1, power: 1000, interval: time.Second},
		{cycles: 60, power: 2415, interval: time.Second},
		{cycles: 720, power: 500, interval: 5 * time.Second},
		{cycles: 10, power: 0, interval: time.Second},
	}
	for _, c := range cases {
		acc := EnergyAccumulator{}
		for i := 0; i < c.cycles; i++ {
			acc.Integrate(c.power, c.interval)
		}
		expected := float64(c.cycles) * c.power * c.interval.Seconds() / 3600000
		assert.InDelta(expected, acc.KWh, 1e-9, "%d cycles of %.0f W", c.cycles, c.power)
	}
}

func TestEnergyConvergesToOneKWh(t *testing.T) {

	assert := assert.New(t)

	state := NewDeviceState(DEVICE_INVERTER)
	outcome := constantPowerOutcome(1000)
	for i := 0; i < 3600; i++ {
		state.Apply(outcome, 1000*time.Millisecond)
	}
	for phase := range state.Energy {
		assert.InDelta(1.0, state.Energy[phase].KWh, 1e-9, "phase %d", phase+1)
	}
	assert.Equal(uint64(3600), state.Cycles)
}

func TestDeviceStateFailKeepsLastGoodValues(t *testing.T) {

	assert := assert.New(t)

	state := NewDeviceState(DEVICE_INVERTER)
	outcome := constantPowerOutcome(2415)
	outcome.Readings.Phases[0].Voltage = 230
	state.Apply(outcome, time.Second)
	before := state.Snapshot()

	state.Fail(errors.New("connection refused"))

	assert.False(state.Connected, "disconnected after fault")
	assert.Equal(before.Readings, state.Readings, "readings untouched")
	assert.Equal(before.Energy, state.Energy, "energy untouched")
	assert.Equal(uint64(1), state.Faults)
	assert.Equal("connection refused", state.LastError)

	state.Apply(outcome, time.Second)
	assert.True(state.Connected, "reconnected on next good cycle")
	assert.Empty(state.LastError)
}

func TestNegativePowerIsNotClamped(t *testing.T) {

	assert := assert.New(t)

	state := NewDeviceState(DEVICE_METER)
	state.Apply(constantPowerOutcome(-3600), time.Second)
	assert.InDelta(-0.001, state.Energy[0].KWh, 1e-12)
}

func TestParseDeviceKind(t *testing.T) {

	assert := assert.New(t)

	kind, err := ParseDeviceKind("meter")
	assert.NoError(err)
	assert.Equal(DEVICE_METER, kind)

	_, err = ParseDeviceKind("battery")
	assert.ErrorIs(err, ErrUnknownDevice)
}
