package domain

import (
	"errors"
	"time"
)

type DeviceKind string

const (
	DEVICE_INVERTER DeviceKind = "inverter"
	DEVICE_METER    DeviceKind = "meter"
)

var ErrUnknownDevice = errors.New("unknown device")

func ParseDeviceKind(s string) (DeviceKind, error) {
	switch DeviceKind(s) {
	case DEVICE_INVERTER, DEVICE_METER:
		return DeviceKind(s), nil
	}
	return "", ErrUnknownDevice
}

const PHASES = 3

type PhaseReading struct {
	Voltage float64 `json:"voltage"`
	Current float64 `json:"current"`
	Power   float64 `json:"power"`
}

// Readings is the set of physical values decoded in one poll cycle.
type Readings struct {
	Power         float64              `json:"power"`
	EnergyForward float64              `json:"energy_forward"`
	EnergyReverse float64              `json:"energy_reverse"`
	Phases        [PHASES]PhaseReading `json:"phases"`
}

type DeviceInfo struct {
	ProductId        int     `json:"product_id"`
	NominalPowerWatt float64 `json:"nominal_power"`
}

type PollOutcome struct {
	Device   DeviceKind
	Readings Readings
	At       time.Time
	Duration time.Duration
}

// EnergyAccumulator integrates power over time. It lives as long as the process.
type EnergyAccumulator struct {
	KWh float64 `json:"kwh"`
}

func (a *EnergyAccumulator) Integrate(powerWatt float64, dt time.Duration) {
	a.KWh += powerWatt * dt.Seconds() / 3600000
}

type DeviceState struct {
	Kind       DeviceKind                `json:"device"`
	Connected  bool                      `json:"connected"`
	Readings   Readings                  `json:"readings"`
	Energy     [PHASES]EnergyAccumulator `json:"phase_energy"`
	LastUpdate time.Time                 `json:"last_update"`
	LastError  string                    `json:"last_error,omitempty"`
	Cycles     uint64                    `json:"cycles"`
	Faults     uint64                    `json:"faults"`
}

func NewDeviceState(kind DeviceKind) *DeviceState {
	return &DeviceState{
		Kind: kind,
	}
}

// Apply commits a successful poll: readings are replaced and every phase's
// power is integrated over dt.
func (s *DeviceState) Apply(outcome PollOutcome, dt time.Duration) {
	s.Readings = outcome.Readings
	for phase := range s.Energy {
		s.Energy[phase].Integrate(outcome.Readings.Phases[phase].Power, dt)
	}
	s.Connected = true
	s.LastUpdate = outcome.At
	s.LastError = ""
	s.Cycles++
}

// Fail marks the device disconnected. Readings and energy keep their last good values.
func (s *DeviceState) Fail(err error) {
	s.Connected = false
	s.Faults++
	if err != nil {
		s.LastError = err.Error()
	}
}

func (s *DeviceState) Snapshot() DeviceState {
	return *s
}
