package sungrow_modbus

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	DRIVER_SIMONVETTER = "simonvetter"
	DRIVER_GOBURROW    = "goburrow"
)

var (
	ErrInvalidAddress = errors.New("register address must be >= 1")
	ErrShortResponse  = errors.New("short register response")

	ErrExportLimitRange = errors.New("export limit out of range [0, 100]")
)

// RegisterTransport is the register read/write primitive shared by every device reader.
// Addresses are 1-indexed, as printed in the Sungrow register tables; implementations
// send address-1 on the wire.
type RegisterTransport interface {
	Open() error
	Close() error
	ReadInputRegisters(address uint16, count uint16) ([]uint16, error)
	ReadHoldingRegisters(address uint16, count uint16) ([]uint16, error)
	WriteRegister(address uint16, value uint16) error
	String() string
}

// TransportFault is returned by every failed transport operation.
type TransportFault struct {
	Op      string
	Address uint16
	Count   uint16
	Err     error
}

func (f *TransportFault) Error() string {
	return fmt.Sprintf("modbus %s %d(+%d): %v", f.Op, f.Address, f.Count, f.Err)
}

func (f *TransportFault) Unwrap() error {
	return f.Err
}

func IsTransportFault(err error) bool {
	var fault *TransportFault
	return errors.As(err, &fault)
}

func fault(op string, address uint16, count uint16, err error) error {
	if err == nil {
		return nil
	}
	return &TransportFault{
		Op:      op,
		Address: address,
		Count:   count,
		Err:     err,
	}
}

func wireAddress(address uint16) (uint16, error) {
	if address < 1 {
		return 0, ErrInvalidAddress
	}
	return address - 1, nil
}

func CreateRegisterTransport(driver string, host string, port uint, unitId uint8, timeout time.Duration,
	logger *zap.Logger, instrumentation *ModbusInstrument) (RegisterTransport, error) {
	switch driver {
	case "", DRIVER_SIMONVETTER:
		client, err := CreateModbusTCPClient(host, port, unitId, timeout, logger, instrumentation)
		if err != nil {
			return nil, err
		}
		return client, nil
	case DRIVER_GOBURROW:
		client, err := CreateGoburrowTCPClient(host, port, unitId, timeout, logger, instrumentation)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown modbus driver %q", driver)
	}
}
