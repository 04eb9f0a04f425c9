package sungrow_modbus

type MeterInfo struct {
	ProductId int
}

type MeterPowerFlow struct {
	// Current AC power at the grid connection point
	ACPowerWatt float64
	// Lifetime imported energy in kWh
	TotalEnergyImportedKWh float64
	// Lifetime exported energy in kWh
	TotalEnergyExportedKWh float64
	// Voltage and current are not supplied by the meter and stay 0
	Phases [3]PhaseMeasurement
}

type MeterModbusReader interface {
	GetInfo() (*MeterInfo, error)
	GetPowerFlow() (*MeterPowerFlow, error)
}
