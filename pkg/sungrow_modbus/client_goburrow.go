package sungrow_modbus

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/goburrow/modbus"
	"go.uber.org/zap"
)

// GoburrowClient is the alternative RegisterTransport backed by github.com/goburrow/modbus.
type GoburrowClient struct {
	handler    *modbus.TCPClientHandler
	client     modbus.Client
	address    string
	instrument []ModbusInstrument
}

func CreateGoburrowTCPClient(host string, port uint, unitId uint8, timeout time.Duration,
	logger *zap.Logger, instrumentation *ModbusInstrument) (*GoburrowClient, error) {
	address := fmt.Sprintf("%s:%d", host, port)
	handler := modbus.NewTCPClientHandler(address)
	handler.Timeout = timeout
	handler.SlaveId = unitId

	return &GoburrowClient{
		handler:    handler,
		client:     modbus.NewClient(handler),
		address:    address,
		instrument: instruments(logger, unitId, instrumentation),
	}, nil
}

func (c *GoburrowClient) Open() error {
	return fault("open", 0, 0, c.handler.Connect())
}

func (c *GoburrowClient) Close() error {
	return c.handler.Close()
}

func (c *GoburrowClient) String() string {
	return fmt.Sprintf("Modbus TCP %s unit %d", c.address, c.handler.SlaveId)
}

func (c *GoburrowClient) ReadInputRegisters(address uint16, count uint16) ([]uint16, error) {
	defer RecordTimer("ReadInputRegisters", c.instrument)()
	addr, err := wireAddress(address)
	if err != nil {
		return nil, fault("read_input", address, count, err)
	}
	raw, err := c.client.ReadInputRegisters(addr, count)
	if err != nil {
		return nil, fault("read_input", address, count, err)
	}
	return unpackRegisters("read_input", address, count, raw)
}

func (c *GoburrowClient) ReadHoldingRegisters(address uint16, count uint16) ([]uint16, error) {
	defer RecordTimer("ReadHoldingRegisters", c.instrument)()
	addr, err := wireAddress(address)
	if err != nil {
		return nil, fault("read_holding", address, count, err)
	}
	raw, err := c.client.ReadHoldingRegisters(addr, count)
	if err != nil {
		return nil, fault("read_holding", address, count, err)
	}
	return unpackRegisters("read_holding", address, count, raw)
}

func (c *GoburrowClient) WriteRegister(address uint16, value uint16) error {
	defer RecordTimer("WriteRegister", c.instrument)()
	addr, err := wireAddress(address)
	if err != nil {
		return fault("write", address, 1, err)
	}
	_, err = c.client.WriteSingleRegister(addr, value)
	return fault("write", address, 1, err)
}

// unpackRegisters converts a big-endian register payload into words.
func unpackRegisters(op string, address uint16, count uint16, raw []byte) ([]uint16, error) {
	if len(raw) < 2*int(count) {
		return nil, fault(op, address, count, ErrShortResponse)
	}
	regs := make([]uint16, count)
	for i := range regs {
		regs[i] = binary.BigEndian.Uint16(raw[2*i:])
	}
	return regs, nil
}
