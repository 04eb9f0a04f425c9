package service

import (
	"time"

	"github.com/berfenger/sungrow2venus/internal/core/domain"
	"github.com/berfenger/sungrow2venus/internal/core/port"
	"github.com/berfenger/sungrow2venus/pkg/sungrow_modbus"
)

type InverterPoller struct {
	Reader sungrow_modbus.InverterModbusReader
}

func (p InverterPoller) Kind() domain.DeviceKind {
	return domain.DEVICE_INVERTER
}

func (p InverterPoller) Info() (*domain.DeviceInfo, error) {
	info, err := p.Reader.GetInfo()
	if err != nil {
		return nil, err
	}
	return &domain.DeviceInfo{
		ProductId:        info.ProductId,
		NominalPowerWatt: info.NominalPowerWatt,
	}, nil
}

func (p InverterPoller) Poll() (*domain.PollOutcome, error) {
	start := time.Now()
	flow, err := p.Reader.GetPowerFlow()
	if err != nil {
		return nil, err
	}
	outcome := &domain.PollOutcome{
		Device: domain.DEVICE_INVERTER,
		Readings: domain.Readings{
			Power:         flow.ACPowerWatt,
			EnergyForward: flow.TotalEnergyKWh,
			Phases:        phaseReadings(flow.Phases),
		},
		At:       start,
		Duration: time.Since(start),
	}
	return outcome, nil
}

type MeterPoller struct {
	Reader sungrow_modbus.MeterModbusReader
}

func (p MeterPoller) Kind() domain.DeviceKind {
	return domain.DEVICE_METER
}

func (p MeterPoller) Info() (*domain.DeviceInfo, error) {
	info, err := p.Reader.GetInfo()
	if err != nil {
		return nil, err
	}
	return &domain.DeviceInfo{
		ProductId: info.ProductId,
	}, nil
}

func (p MeterPoller) Poll() (*domain.PollOutcome, error) {
	start := time.Now()
	flow, err := p.Reader.GetPowerFlow()
	if err != nil {
		return nil, err
	}
	outcome := &domain.PollOutcome{
		Device: domain.DEVICE_METER,
		Readings: domain.Readings{
			Power: flow.ACPowerWatt,
			// grid side: forward is imported energy, reverse is exported
			EnergyForward: flow.TotalEnergyImportedKWh,
			EnergyReverse: flow.TotalEnergyExportedKWh,
			Phases:        phaseReadings(flow.Phases),
		},
		At:       start,
		Duration: time.Since(start),
	}
	return outcome, nil
}

func phaseReadings(phases [3]sungrow_modbus.PhaseMeasurement) [domain.PHASES]domain.PhaseReading {
	var readings [domain.PHASES]domain.PhaseReading
	for i, m := range phases {
		readings[i] = domain.PhaseReading{
			Voltage: m.VoltageVolt,
			Current: m.CurrentAmp,
			Power:   m.PowerWatt,
		}
	}
	return readings
}

// ensure interface compliance
var _ port.DevicePoller = (*InverterPoller)(nil)
var _ port.DevicePoller = (*MeterPoller)(nil)
