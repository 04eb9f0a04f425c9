package sungrow_modbus

// Default Sungrow register addresses (1-indexed input registers unless noted).
const (
	REG_DEVICE_TYPE       = 5000
	REG_NOMINAL_POWER     = 5001 // 0.1 kW
	REG_TOTAL_ENERGY      = 5004
	REG_TOTAL_POWER       = 5009
	REG_TOTAL_POWER_ALT   = 5031
	REG_PHASE_BANK        = 5019 // 3 voltages then 3 currents
	REG_EXPORT_LIMIT      = 5039 // holding, 0.1 %
	REG_METER_POWER_BANK  = 5083
	METER_POWER_BANK_SIZE = 21
)

// positions inside the de-padded meter power bank
const (
	meterTotalPowerIdx    = 0
	meterPhasePowerIdx    = 1
	meterExportEnergyIdx  = 6
	meterImportEnergyIdx  = 8
	MeterMinPowerBankSize = 2*meterImportEnergyIdx + 1
)

type RegisterRef struct {
	Address uint16  `yaml:"address"`
	Scale   float64 `yaml:"scale"`
}

type InverterRegisterMap struct {
	DeviceType   uint16      `yaml:"device_type"`
	NominalPower RegisterRef `yaml:"nominal_power"`
	TotalEnergy  RegisterRef `yaml:"total_energy"`
	TotalPower   RegisterRef `yaml:"total_power"`
	PhaseBank    uint16      `yaml:"phase_bank"`
	VoltageScale float64     `yaml:"voltage_scale"`
	CurrentScale float64     `yaml:"current_scale"`
	ExportLimit  RegisterRef `yaml:"export_limit"`
}

type MeterRegisterMap struct {
	DeviceType      uint16  `yaml:"device_type"`
	PowerBank       uint16  `yaml:"power_bank"`
	PowerBankLength uint16  `yaml:"power_bank_length"`
	EnergyScale     float64 `yaml:"energy_scale"`
}

type RegisterMap struct {
	Inverter InverterRegisterMap `yaml:"inverter"`
	Meter    MeterRegisterMap    `yaml:"meter"`
}

func DefaultRegisterMap() RegisterMap {
	return RegisterMap{
		Inverter: InverterRegisterMap{
			DeviceType:   REG_DEVICE_TYPE,
			NominalPower: RegisterRef{Address: REG_NOMINAL_POWER, Scale: 100},
			TotalEnergy:  RegisterRef{Address: REG_TOTAL_ENERGY, Scale: 1},
			TotalPower:   RegisterRef{Address: REG_TOTAL_POWER, Scale: 1},
			PhaseBank:    REG_PHASE_BANK,
			VoltageScale: 0.1,
			CurrentScale: 0.1,
			ExportLimit:  RegisterRef{Address: REG_EXPORT_LIMIT, Scale: 0.1},
		},
		Meter: MeterRegisterMap{
			DeviceType:      REG_DEVICE_TYPE,
			PowerBank:       REG_METER_POWER_BANK,
			PowerBankLength: METER_POWER_BANK_SIZE,
			EnergyScale:     0.1,
		},
	}
}
