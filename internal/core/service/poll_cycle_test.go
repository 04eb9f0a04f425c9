package service

import (
	"sync"
	"testing"
	"time"

	"github.com/berfenger/sungrow2venus/internal/core/domain"
	"github.com/berfenger/sungrow2venus/pkg/sungrow_modbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	values map[string]any
	writes []string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{values: map[string]any{}}
}

func (s *recordingSink) SetPath(path string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[path] = value
	s.writes = append(s.writes, path)
}

func (s *recordingSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = nil
}

func sampleService(kind domain.DeviceKind) domain.ServiceInfo {
	return domain.ServiceInfo{
		Kind:           kind,
		ServiceName:    "com.victronenergy.pvinverter.sungrow01",
		DeviceInstance: 20,
		ProductName:    domain.PRODUCT_NAME_INVERTER,
		ProcessName:    "sungrow2venus",
		ProcessVersion: "test",
		Connection:     "test",
		Position:       1,
	}
}

func inverterPoller(transport sungrow_modbus.RegisterTransport) InverterPoller {
	return InverterPoller{
		Reader: sungrow_modbus.CreateInverterModbusReader(transport, sungrow_modbus.DefaultRegisterMap().Inverter),
	}
}

func meterPoller(transport sungrow_modbus.RegisterTransport) MeterPoller {
	return MeterPoller{
		Reader: sungrow_modbus.CreateMeterModbusReader(transport, sungrow_modbus.DefaultRegisterMap().Meter),
	}
}

func TestDeclareStartsDisconnected(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	poller := inverterPoller(sungrow_modbus.CreateSampleTestTransport())
	info, err := poller.Info()
	require.NoError(err)
	assert.Equal(3599, info.ProductId)
	assert.InDelta(10000.0, info.NominalPowerWatt, 1e-9)

	sink := newRecordingSink()
	cycle := NewPollCycle(domain.DEVICE_INVERTER, sink, time.Second, nil)
	cycle.Declare(sampleService(domain.DEVICE_INVERTER), *info)

	assert.Equal(0, sink.values[domain.PATH_CONNECTED])
	assert.Equal(0.0, sink.values["/Ac/Power"])
	assert.Equal(0.0, sink.values["/Ac/L2/Voltage"])
	assert.Equal(3599, sink.values["/ProductId"])
	assert.Equal("sungrow2venus", sink.values["/Mgmt/ProcessName"])
}

func TestInverterCycle(t *testing.T) {

	assert := assert.New(t)

	sink := newRecordingSink()
	cycle := NewPollCycle(domain.DEVICE_INVERTER, sink, time.Second, nil)
	err := cycle.Run(inverterPoller(sungrow_modbus.CreateSampleTestTransport()))
	assert.NoError(err)

	assert.Equal(1, sink.values[domain.PATH_CONNECTED])
	assert.Equal(7210.0, sink.values["/Ac/Power"])
	assert.Equal(5423.0, sink.values["/Ac/Energy/Forward"])
	assert.Equal(230.0, sink.values["/Ac/L1/Voltage"])
	assert.Equal(10.5, sink.values["/Ac/L1/Current"])
	assert.Equal(2415.0, sink.values["/Ac/L1/Power"])
	// 2415 W over one second is far below the display precision
	assert.Equal(0.0, sink.values["/Ac/L1/Energy/Forward"])

	state := cycle.State()
	assert.True(state.Connected)
	assert.InDelta(2415.0/3600000, state.Energy[0].KWh, 1e-12)
}

func TestMeterCycle(t *testing.T) {

	assert := assert.New(t)

	sink := newRecordingSink()
	cycle := NewPollCycle(domain.DEVICE_METER, sink, time.Second, nil)
	err := cycle.Run(meterPoller(sungrow_modbus.CreateSampleTestTransport()))
	assert.NoError(err)

	assert.Equal(1, sink.values[domain.PATH_CONNECTED])
	assert.Equal(-1250.0, sink.values["/Ac/Power"])
	assert.Equal(550.2, sink.values["/Ac/Energy/Forward"])
	assert.Equal(2770.3, sink.values["/Ac/Energy/Reverse"])
	assert.Equal(-400.0, sink.values["/Ac/L1/Power"])
	assert.Equal(-450.0, sink.values["/Ac/L2/Power"])
	assert.Equal(0.0, sink.values["/Ac/L1/Voltage"])
	assert.Equal(0.0, sink.values["/Ac/L1/Current"])
}

func TestFaultOnlyTouchesConnected(t *testing.T) {

	assert := assert.New(t)

	transport := sungrow_modbus.CreateSampleTestTransport()
	poller := inverterPoller(transport)
	sink := newRecordingSink()
	cycle := NewPollCycle(domain.DEVICE_INVERTER, sink, time.Second, nil)

	assert.NoError(cycle.Run(poller))
	before := cycle.State()
	sink.reset()

	transport.SetFault(true)
	err := cycle.Run(poller)
	assert.ErrorIs(err, sungrow_modbus.ErrTestTransportFault)

	assert.Equal([]string{domain.PATH_CONNECTED}, sink.writes)
	assert.Equal(0, sink.values[domain.PATH_CONNECTED])
	assert.Equal(7210.0, sink.values["/Ac/Power"], "last good value is kept")

	after := cycle.State()
	assert.False(after.Connected)
	assert.Equal(before.Energy, after.Energy)
	assert.Equal(before.Readings, after.Readings)

	transport.SetFault(false)
	assert.NoError(cycle.Run(poller))
	assert.Equal(1, sink.values[domain.PATH_CONNECTED])
}

func TestEnergyOverOneHour(t *testing.T) {

	assert := assert.New(t)

	transport := sungrow_modbus.CreateTestTransport()
	// 230 V, 10 A on every phase
	transport.SetInput(5009, 6900)
	transport.SetInput(5004, 0)
	transport.SetInput(5019, 2300, 2300, 2300, 100, 100, 100)

	sink := newRecordingSink()
	cycle := NewPollCycle(domain.DEVICE_INVERTER, sink, time.Second, nil)
	poller := inverterPoller(transport)
	for i := 0; i < 3600; i++ {
		assert.NoError(cycle.Run(poller))
	}
	assert.Equal(2.3, sink.values["/Ac/L1/Energy/Forward"])
	assert.Equal(2.3, sink.values["/Ac/L3/Energy/Forward"])
}
