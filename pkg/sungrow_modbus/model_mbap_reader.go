package sungrow_modbus

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

type ModbusClient struct {
	client     *modbus.ModbusClient
	url        string
	unitId     uint8
	instrument []ModbusInstrument
}

type ModbusInstrument struct {
	RecordTime func(fnName string, readTime time.Duration)
}

func CreateModbusTCPClient(host string, port uint, unitId uint8, timeout time.Duration,
	logger *zap.Logger, instrumentation *ModbusInstrument) (*ModbusClient, error) {
	url := fmt.Sprintf("tcp://%s:%d", host, port)
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     url,
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}

	if unitId > 0 {
		if err := client.SetUnitId(unitId); err != nil {
			return nil, err
		}
	}

	return &ModbusClient{
		client:     client,
		url:        url,
		unitId:     unitId,
		instrument: instruments(logger, unitId, instrumentation),
	}, nil
}

func (reader *ModbusClient) Open() error {
	return fault("open", 0, 0, reader.client.Open())
}

func (reader *ModbusClient) Close() error {
	return reader.client.Close()
}

func (reader *ModbusClient) String() string {
	return fmt.Sprintf("Modbus TCP %s unit %d", reader.url, reader.unitId)
}

func (reader *ModbusClient) ReadInputRegisters(address uint16, count uint16) ([]uint16, error) {
	defer RecordTimer("ReadInputRegisters", reader.instrument)()
	return reader.readRegisters("read_input", address, count, modbus.INPUT_REGISTER)
}

func (reader *ModbusClient) ReadHoldingRegisters(address uint16, count uint16) ([]uint16, error) {
	defer RecordTimer("ReadHoldingRegisters", reader.instrument)()
	return reader.readRegisters("read_holding", address, count, modbus.HOLDING_REGISTER)
}

func (reader *ModbusClient) WriteRegister(address uint16, value uint16) error {
	defer RecordTimer("WriteRegister", reader.instrument)()
	addr, err := wireAddress(address)
	if err != nil {
		return fault("write", address, 1, err)
	}
	return fault("write", address, 1, reader.client.WriteRegister(addr, value))
}

func (reader *ModbusClient) readRegisters(op string, address uint16, count uint16, regType modbus.RegType) ([]uint16, error) {
	addr, err := wireAddress(address)
	if err != nil {
		return nil, fault(op, address, count, err)
	}
	regs, err := reader.client.ReadRegisters(addr, count, regType)
	if err != nil {
		return nil, fault(op, address, count, err)
	}
	if len(regs) < int(count) {
		return nil, fault(op, address, count, ErrShortResponse)
	}
	return regs, nil
}

func RecordTimer(name string, instrument []ModbusInstrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			instrument[i].RecordTime(name, duration)
		}
	}
}

func traceLoggerInstrumentation(logger *zap.Logger) *ModbusInstrument {
	if logger == nil {
		return nil
	}
	return &ModbusInstrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			logger.Debug("modbus call", zap.String("fn", fnName), zap.Int64("millis", readTime.Milliseconds()))
		},
	}
}

func instruments(logger *zap.Logger, unitId uint8, instrumentation *ModbusInstrument) []ModbusInstrument {
	var inst []ModbusInstrument
	if logger != nil {
		logInst := traceLoggerInstrumentation(logger.With(zap.String("target", "sungrow"), zap.Uint8("unit", unitId)))
		if logInst != nil {
			inst = append(inst, *logInst)
		}
	}
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}
	return inst
}
