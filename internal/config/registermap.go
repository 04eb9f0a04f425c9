package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/berfenger/sungrow2venus/pkg/sungrow_modbus"
	"gopkg.in/yaml.v3"
)

// LoadRegisterMap returns the default register map overridden by the YAML file at path.
// Fields missing from the file keep their default value. An empty path returns the defaults.
func LoadRegisterMap(path string) (*sungrow_modbus.RegisterMap, error) {
	registers := sungrow_modbus.DefaultRegisterMap()
	if path == "" {
		return &registers, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read register map: %w", err)
	}
	return ParseRegisterMap(data)
}

func ParseRegisterMap(data []byte) (*sungrow_modbus.RegisterMap, error) {
	registers := sungrow_modbus.DefaultRegisterMap()
	if err := yaml.Unmarshal(data, &registers); err != nil {
		return nil, fmt.Errorf("parse register map: %w", err)
	}
	if err := ValidateRegisterMap(registers); err != nil {
		return nil, err
	}
	return &registers, nil
}

func ValidateRegisterMap(r sungrow_modbus.RegisterMap) error {
	var errs []error
	checkAddress := func(name string, address uint16) {
		if address < 1 {
			errs = append(errs, fmt.Errorf("%s: register address must be >= 1", name))
		}
	}
	checkRef := func(name string, ref sungrow_modbus.RegisterRef) {
		checkAddress(name, ref.Address)
		if ref.Scale == 0 {
			errs = append(errs, fmt.Errorf("%s: scale must not be 0", name))
		}
	}

	checkAddress("inverter.device_type", r.Inverter.DeviceType)
	checkRef("inverter.nominal_power", r.Inverter.NominalPower)
	checkRef("inverter.total_energy", r.Inverter.TotalEnergy)
	checkRef("inverter.total_power", r.Inverter.TotalPower)
	checkRef("inverter.export_limit", r.Inverter.ExportLimit)
	checkAddress("inverter.phase_bank", r.Inverter.PhaseBank)
	if r.Inverter.VoltageScale == 0 || r.Inverter.CurrentScale == 0 {
		errs = append(errs, errors.New("inverter: voltage_scale and current_scale must not be 0"))
	}

	checkAddress("meter.device_type", r.Meter.DeviceType)
	checkAddress("meter.power_bank", r.Meter.PowerBank)
	if r.Meter.PowerBankLength < sungrow_modbus.MeterMinPowerBankSize {
		errs = append(errs, fmt.Errorf("meter.power_bank_length must be >= %d", sungrow_modbus.MeterMinPowerBankSize))
	}
	if r.Meter.EnergyScale == 0 {
		errs = append(errs, errors.New("meter.energy_scale must not be 0"))
	}
	return errors.Join(errs...)
}
