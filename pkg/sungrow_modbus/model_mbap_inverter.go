package sungrow_modbus

type PhaseMeasurement struct {
	VoltageVolt float64
	CurrentAmp  float64
	PowerWatt   float64
}

type InverterInfo struct {
	ProductId        int
	NominalPowerWatt float64
}

type InverterPowerFlow struct {
	// Total AC power as reported by the configured power register
	ACPowerWatt float64
	// Lifetime produced energy in kWh
	TotalEnergyKWh float64
	// Per phase voltage, current and V*I power
	Phases [3]PhaseMeasurement
}

type ExportLimit struct {
	Percent float64 `json:"percent"`
	Raw     uint16  `json:"raw"`
}

type InverterModbusReader interface {
	GetInfo() (*InverterInfo, error)
	GetPowerFlow() (*InverterPowerFlow, error)
	GetExportLimit() (*ExportLimit, error)
	SetExportLimit(percent float64) error
}
