package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuantityTablePaths(t *testing.T) {

	assert := assert.New(t)

	inverter := NewQuantityTable(DEVICE_INVERTER)
	meter := NewQuantityTable(DEVICE_METER)

	assert.Len(inverter, 2+3*4)
	assert.Len(meter, 3+3*4)

	_, ok := inverter.Lookup("/Ac/Energy/Reverse")
	assert.False(ok, "inverter has no reverse energy")
	q, ok := meter.Lookup("/Ac/Energy/Reverse")
	assert.True(ok)
	assert.Equal(UNIT_KWH, q.Unit)

	for _, path := range []string{"/Ac/Power", "/Ac/Energy/Forward", "/Ac/L1/Voltage", "/Ac/L2/Current",
		"/Ac/L3/Power", "/Ac/L3/Energy/Forward"} {
		_, ok := inverter.Lookup(path)
		assert.True(ok, path)
	}

	for _, pv := range inverter.Declare() {
		assert.Equal(0.0, pv.Value, pv.Path)
	}
}

func TestQuantityTableValues(t *testing.T) {

	assert := assert.New(t)

	state := NewDeviceState(DEVICE_INVERTER)
	outcome := PollOutcome{At: time.Now()}
	outcome.Readings.Power = 7210
	outcome.Readings.EnergyForward = 5423
	outcome.Readings.Phases[0] = PhaseReading{Voltage: 230.00000000000003, Current: 10.5, Power: 2415.0000000000005}
	outcome.Readings.Phases[1] = PhaseReading{Voltage: 230.1, Current: 10.2, Power: 2347.02}
	state.Apply(outcome, time.Hour)

	values := map[string]any{}
	for _, pv := range NewQuantityTable(DEVICE_INVERTER).Values(state) {
		values[pv.Path] = pv.Value
	}

	assert.Equal(7210.0, values["/Ac/Power"])
	assert.Equal(230.0, values["/Ac/L1/Voltage"])
	assert.Equal(10.5, values["/Ac/L1/Current"])
	assert.Equal(2415.0, values["/Ac/L1/Power"])
	assert.Equal(2347.0, values["/Ac/L2/Power"])
	assert.Equal(2.4, values["/Ac/L1/Energy/Forward"], "2415 W over one hour")
	assert.Equal(0.0, values["/Ac/L3/Voltage"])
}

func TestRound(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(1.0, Round(0.96, 1))
	assert.Equal(-2.5, Round(-2.46, 1))
	assert.Equal(3.0, Round(3.4, 0))
	assert.Equal(0.25, Round(0.2501, 2))
}

func TestStaticPaths(t *testing.T) {

	assert := assert.New(t)

	svc := ServiceInfo{
		Kind:           DEVICE_INVERTER,
		ServiceName:    "com.victronenergy.pvinverter.sungrow01",
		DeviceInstance: 20,
		ProductName:    PRODUCT_NAME_INVERTER,
		ProcessName:    "sungrow2venus",
		ProcessVersion: "devel",
		Connection:     "Modbus TCP tcp://192.168.20.23:502 unit 1",
		Position:       1,
	}
	values := map[string]any{}
	for _, pv := range svc.StaticPaths(DeviceInfo{ProductId: 3599, NominalPowerWatt: 10000}) {
		values[pv.Path] = pv.Value
	}
	assert.Equal(uint(20), values["/DeviceInstance"])
	assert.Equal(3599, values["/ProductId"])
	assert.Equal(10000.0, values["/Ac/MaxPower"])
	assert.Equal(uint(1), values["/Position"])
	_, hasDeviceType := values["/DeviceType"]
	assert.False(hasDeviceType)

	svc.Kind = DEVICE_METER
	values = map[string]any{}
	for _, pv := range svc.StaticPaths(DeviceInfo{}) {
		values[pv.Path] = pv.Value
	}
	assert.Equal(METER_DEVICE_TYPE, values["/DeviceType"])
	_, hasMaxPower := values["/Ac/MaxPower"]
	assert.False(hasMaxPower)
}
