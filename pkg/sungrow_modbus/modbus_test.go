package sungrow_modbus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInverterPowerFlow(t *testing.T) {

	assert := assert.New(t)

	transport := CreateTestTransport()
	transport.SetInput(REG_PHASE_BANK, 2300, 2301, 2299, 105, 102, 108)
	transport.SetInput(REG_TOTAL_POWER, 7210)
	transport.SetInput(REG_TOTAL_ENERGY, 5423)

	reader := CreateInverterModbusReader(transport, DefaultRegisterMap().Inverter)
	flow, err := reader.GetPowerFlow()
	if err != nil {
		t.Error(err)
		return
	}

	assert.InDelta(230.0, flow.Phases[0].VoltageVolt, 1e-9, "L1 voltage")
	assert.InDelta(230.1, flow.Phases[1].VoltageVolt, 1e-9, "L2 voltage")
	assert.InDelta(229.9, flow.Phases[2].VoltageVolt, 1e-9, "L3 voltage")
	assert.InDelta(10.5, flow.Phases[0].CurrentAmp, 1e-9, "L1 current")
	assert.InDelta(10.2, flow.Phases[1].CurrentAmp, 1e-9, "L2 current")
	assert.InDelta(10.8, flow.Phases[2].CurrentAmp, 1e-9, "L3 current")
	assert.InDelta(2415.0, flow.Phases[0].PowerWatt, 1e-6, "L1 power")
	assert.InDelta(230.1*10.2, flow.Phases[1].PowerWatt, 1e-6, "L2 power")
	assert.InDelta(7210.0, flow.ACPowerWatt, 1e-9, "total power")
	assert.InDelta(5423.0, flow.TotalEnergyKWh, 1e-9, "total energy")
}

func TestInverterAlternativePowerRegister(t *testing.T) {

	assert := assert.New(t)

	transport := CreateTestTransport()
	transport.SetInput(REG_TOTAL_POWER, 1)
	transport.SetInput(REG_TOTAL_POWER_ALT, 6400)

	registers := DefaultRegisterMap().Inverter
	registers.TotalPower.Address = REG_TOTAL_POWER_ALT

	flow, err := CreateInverterModbusReader(transport, registers).GetPowerFlow()
	if err != nil {
		t.Error(err)
		return
	}
	assert.Equal(6400.0, flow.ACPowerWatt)
}

func TestInverterNegativeCurrent(t *testing.T) {

	assert := assert.New(t)

	transport := CreateTestTransport()
	transport.SetInput(REG_PHASE_BANK, 2300, 0, 0, Encode(-20), 0, 0)

	flow, err := CreateInverterModbusReader(transport, DefaultRegisterMap().Inverter).GetPowerFlow()
	if err != nil {
		t.Error(err)
		return
	}
	assert.InDelta(-2.0, flow.Phases[0].CurrentAmp, 1e-9)
	assert.InDelta(-460.0, flow.Phases[0].PowerWatt, 1e-6)
}

func TestInverterInfo(t *testing.T) {

	assert := assert.New(t)

	reader := CreateInverterModbusReader(CreateSampleTestTransport(), DefaultRegisterMap().Inverter)
	info, err := reader.GetInfo()
	if err != nil {
		t.Error(err)
		return
	}
	assert.Equal(0x0E0F, info.ProductId)
	assert.InDelta(10000.0, info.NominalPowerWatt, 1e-9)
}

func TestInverterFault(t *testing.T) {

	assert := assert.New(t)

	transport := CreateSampleTestTransport()
	transport.SetFault(true)

	flow, err := CreateInverterModbusReader(transport, DefaultRegisterMap().Inverter).GetPowerFlow()
	assert.Nil(flow)
	assert.Error(err)
	assert.True(IsTransportFault(err), "error is a transport fault")
	assert.True(errors.Is(err, ErrTestTransportFault), "fault unwraps to the driver error")
}

func TestExportLimit(t *testing.T) {

	assert := assert.New(t)

	transport := CreateSampleTestTransport()
	reader := CreateInverterModbusReader(transport, DefaultRegisterMap().Inverter)

	limit, err := reader.GetExportLimit()
	if err != nil {
		t.Error(err)
		return
	}
	assert.InDelta(100.0, limit.Percent, 1e-9)

	err = reader.SetExportLimit(1)
	assert.NoError(err)
	limit, err = reader.GetExportLimit()
	if err != nil {
		t.Error(err)
		return
	}
	assert.Equal(uint16(10), limit.Raw)
	assert.InDelta(1.0, limit.Percent, 1e-9)
	assert.Equal(1, transport.Writes())

	assert.ErrorIs(reader.SetExportLimit(120), ErrExportLimitRange)
	assert.Error(reader.SetExportLimit(-1), "out of range")
	assert.Equal(1, transport.Writes(), "rejected limits are not written")
}

func TestMeterPowerFlow(t *testing.T) {

	assert := assert.New(t)

	reader := CreateMeterModbusReader(CreateSampleTestTransport(), DefaultRegisterMap().Meter)
	flow, err := reader.GetPowerFlow()
	if err != nil {
		t.Error(err)
		return
	}

	assert.Equal(-1250.0, flow.ACPowerWatt, "total power")
	assert.Equal(-400.0, flow.Phases[0].PowerWatt, "L1 power")
	assert.Equal(-450.0, flow.Phases[1].PowerWatt, "L2 power")
	assert.Equal(-400.0, flow.Phases[2].PowerWatt, "L3 power")
	assert.InDelta(550.2, flow.TotalEnergyImportedKWh, 1e-9, "imported")
	assert.InDelta(2770.3, flow.TotalEnergyExportedKWh, 1e-9, "exported")
	for _, phase := range flow.Phases {
		assert.Equal(0.0, phase.VoltageVolt, "voltage not supplied")
		assert.Equal(0.0, phase.CurrentAmp, "current not supplied")
	}
}

func TestMeterShortBank(t *testing.T) {

	assert := assert.New(t)

	registers := DefaultRegisterMap().Meter
	registers.PowerBankLength = 8

	flow, err := CreateMeterModbusReader(CreateSampleTestTransport(), registers).GetPowerFlow()
	assert.Nil(flow)
	assert.True(errors.Is(err, ErrShortResponse))
}

func TestInvalidAddress(t *testing.T) {

	assert := assert.New(t)

	_, err := CreateTestTransport().ReadInputRegisters(0, 1)
	assert.True(errors.Is(err, ErrInvalidAddress))
}

func TestUnpackRegisters(t *testing.T) {

	assert := assert.New(t)

	regs, err := unpackRegisters("read_input", 5019, 2, []byte{0x08, 0xFC, 0xFF, 0x9C})
	assert.NoError(err)
	assert.Equal([]uint16{2300, 0xFF9C}, regs)

	_, err = unpackRegisters("read_input", 5019, 2, []byte{0x08})
	assert.True(errors.Is(err, ErrShortResponse))
}

func TestCreateRegisterTransport(t *testing.T) {

	assert := assert.New(t)

	tr, err := CreateRegisterTransport(DRIVER_SIMONVETTER, "127.0.0.1", 502, 1, 0, nil, nil)
	assert.NoError(err)
	assert.Equal("Modbus TCP tcp://127.0.0.1:502 unit 1", tr.String())

	tr, err = CreateRegisterTransport(DRIVER_GOBURROW, "127.0.0.1", 502, 1, 0, nil, nil)
	assert.NoError(err)
	assert.Equal("Modbus TCP 127.0.0.1:502 unit 1", tr.String())

	_, err = CreateRegisterTransport("rtu", "127.0.0.1", 502, 1, 0, nil, nil)
	assert.Error(err)
}
