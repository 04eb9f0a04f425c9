package sungrow_modbus

type MeterRegisterReader struct {
	transport RegisterTransport
	registers MeterRegisterMap
}

func CreateMeterModbusReader(transport RegisterTransport, registers MeterRegisterMap) MeterModbusReader {
	return &MeterRegisterReader{
		transport: transport,
		registers: registers,
	}
}

func (m MeterRegisterReader) GetInfo() (*MeterInfo, error) {
	productId, err := readDecoded(m.transport, m.registers.DeviceType, 1)
	if err != nil {
		return nil, err
	}
	return &MeterInfo{
		ProductId: productId[0],
	}, nil
}

func (m MeterRegisterReader) GetPowerFlow() (*MeterPowerFlow, error) {
	raw, err := readDecoded(m.transport, m.registers.PowerBank, m.registers.PowerBankLength)
	if err != nil {
		return nil, err
	}
	// every second word of the bank is padding
	bank := DiscardPadding(raw)
	if len(bank) <= meterImportEnergyIdx {
		return nil, fault("read_input", m.registers.PowerBank, m.registers.PowerBankLength, ErrShortResponse)
	}

	flow := &MeterPowerFlow{
		ACPowerWatt:            float64(bank[meterTotalPowerIdx]),
		TotalEnergyImportedKWh: float64(bank[meterImportEnergyIdx]) * m.registers.EnergyScale,
		TotalEnergyExportedKWh: float64(bank[meterExportEnergyIdx]) * m.registers.EnergyScale,
	}
	for phase := range flow.Phases {
		flow.Phases[phase] = PhaseMeasurement{
			PowerWatt: float64(bank[meterPhasePowerIdx+phase]),
		}
	}
	return flow, nil
}
