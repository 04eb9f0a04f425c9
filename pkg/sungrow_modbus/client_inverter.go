package sungrow_modbus

import (
	"fmt"
	"math"
)

type InverterRegisterReader struct {
	transport RegisterTransport
	registers InverterRegisterMap
}

func CreateInverterModbusReader(transport RegisterTransport, registers InverterRegisterMap) InverterModbusReader {
	return &InverterRegisterReader{
		transport: transport,
		registers: registers,
	}
}

func (inv InverterRegisterReader) GetInfo() (*InverterInfo, error) {
	productId, err := readDecoded(inv.transport, inv.registers.DeviceType, 1)
	if err != nil {
		return nil, err
	}
	nominalPower, err := readScaled(inv.transport, inv.registers.NominalPower)
	if err != nil {
		return nil, err
	}
	return &InverterInfo{
		ProductId:        productId[0],
		NominalPowerWatt: nominalPower,
	}, nil
}

func (inv InverterRegisterReader) GetPowerFlow() (*InverterPowerFlow, error) {
	power, err := readScaled(inv.transport, inv.registers.TotalPower)
	if err != nil {
		return nil, err
	}
	energy, err := readScaled(inv.transport, inv.registers.TotalEnergy)
	if err != nil {
		return nil, err
	}
	bank, err := readDecoded(inv.transport, inv.registers.PhaseBank, 6)
	if err != nil {
		return nil, err
	}

	flow := &InverterPowerFlow{
		ACPowerWatt:    power,
		TotalEnergyKWh: energy,
	}
	for phase := range flow.Phases {
		v := float64(bank[phase]) * inv.registers.VoltageScale
		i := float64(bank[phase+3]) * inv.registers.CurrentScale
		flow.Phases[phase] = PhaseMeasurement{
			VoltageVolt: v,
			CurrentAmp:  i,
			PowerWatt:   v * i,
		}
	}
	return flow, nil
}

func (inv InverterRegisterReader) GetExportLimit() (*ExportLimit, error) {
	regs, err := inv.transport.ReadHoldingRegisters(inv.registers.ExportLimit.Address, 1)
	if err != nil {
		return nil, err
	}
	return &ExportLimit{
		Percent: float64(regs[0]) * inv.registers.ExportLimit.Scale,
		Raw:     regs[0],
	}, nil
}

func (inv InverterRegisterReader) SetExportLimit(percent float64) error {
	if percent < 0 || percent > 100 || math.IsNaN(percent) {
		return fmt.Errorf("%w: %.1f%%", ErrExportLimitRange, percent)
	}
	raw := uint16(math.Round(percent / inv.registers.ExportLimit.Scale))
	if err := inv.transport.WriteRegister(inv.registers.ExportLimit.Address, raw); err != nil {
		return err
	}
	// read back, the inverter silently clamps unsupported values
	regs, err := inv.transport.ReadHoldingRegisters(inv.registers.ExportLimit.Address, 1)
	if err != nil {
		return err
	}
	if regs[0] != raw {
		return fmt.Errorf("export limit not applied: wrote %d, read back %d", raw, regs[0])
	}
	return nil
}

func readDecoded(transport RegisterTransport, address uint16, count uint16) ([]int, error) {
	regs, err := transport.ReadInputRegisters(address, count)
	if err != nil {
		return nil, err
	}
	if len(regs) < int(count) {
		return nil, fault("read_input", address, count, ErrShortResponse)
	}
	return DecodeRegisters(regs), nil
}

func readScaled(transport RegisterTransport, ref RegisterRef) (float64, error) {
	values, err := readDecoded(transport, ref.Address, 1)
	if err != nil {
		return 0, err
	}
	return float64(values[0]) * ref.Scale, nil
}
