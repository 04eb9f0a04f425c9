package domain

import (
	"fmt"
	"math"
)

const (
	PATH_CONNECTED = "/Connected"

	UNIT_WATT    = "W"
	UNIT_KWH     = "kWh"
	UNIT_VOLT_AC = "V AC"
	UNIT_AMP_AC  = "A AC"
)

type PathValue struct {
	Path  string
	Value any
}

// QuantitySpec binds a logical quantity to its bus path, unit and display precision.
type QuantitySpec struct {
	Path     string
	Unit     string
	Decimals uint
	value    func(s *DeviceState) float64
}

func (q QuantitySpec) Value(s *DeviceState) float64 {
	return Round(q.value(s), q.Decimals)
}

type QuantityTable []QuantitySpec

// NewQuantityTable builds the dynamic paths of a device, shared by declaration and updates.
func NewQuantityTable(kind DeviceKind) QuantityTable {
	table := QuantityTable{
		{Path: "/Ac/Power", Unit: UNIT_WATT, Decimals: 1,
			value: func(s *DeviceState) float64 { return s.Readings.Power }},
		{Path: "/Ac/Energy/Forward", Unit: UNIT_KWH, Decimals: 1,
			value: func(s *DeviceState) float64 { return s.Readings.EnergyForward }},
	}
	if kind == DEVICE_METER {
		table = append(table, QuantitySpec{Path: "/Ac/Energy/Reverse", Unit: UNIT_KWH, Decimals: 1,
			value: func(s *DeviceState) float64 { return s.Readings.EnergyReverse }})
	}
	for phase := 0; phase < PHASES; phase++ {
		table = append(table, phaseQuantities(phase)...)
	}
	return table
}

func phaseQuantities(phase int) []QuantitySpec {
	p := phase + 1
	return []QuantitySpec{
		{Path: fmt.Sprintf("/Ac/L%d/Current", p), Unit: UNIT_AMP_AC, Decimals: 1,
			value: func(s *DeviceState) float64 { return s.Readings.Phases[phase].Current }},
		{Path: fmt.Sprintf("/Ac/L%d/Energy/Forward", p), Unit: UNIT_KWH, Decimals: 1,
			value: func(s *DeviceState) float64 { return s.Energy[phase].KWh }},
		{Path: fmt.Sprintf("/Ac/L%d/Power", p), Unit: UNIT_WATT, Decimals: 1,
			value: func(s *DeviceState) float64 { return s.Readings.Phases[phase].Power }},
		{Path: fmt.Sprintf("/Ac/L%d/Voltage", p), Unit: UNIT_VOLT_AC, Decimals: 1,
			value: func(s *DeviceState) float64 { return s.Readings.Phases[phase].Voltage }},
	}
}

// Declare returns every path of the table at its initial value.
func (t QuantityTable) Declare() []PathValue {
	values := make([]PathValue, 0, len(t))
	for _, q := range t {
		values = append(values, PathValue{Path: q.Path, Value: 0.0})
	}
	return values
}

func (t QuantityTable) Values(s *DeviceState) []PathValue {
	values := make([]PathValue, 0, len(t))
	for _, q := range t {
		values = append(values, PathValue{Path: q.Path, Value: q.Value(s)})
	}
	return values
}

// Lookup finds the quantity published on path.
func (t QuantityTable) Lookup(path string) (QuantitySpec, bool) {
	for _, q := range t {
		if q.Path == path {
			return q, true
		}
	}
	return QuantitySpec{}, false
}

func Round(v float64, decimals uint) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

func ConnectedValue(connected bool) int {
	if connected {
		return 1
	}
	return 0
}
