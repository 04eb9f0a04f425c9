package sungrow_modbus

import (
	"errors"
	"sync"
)

var ErrTestTransportFault = errors.New("connection refused")

// TestTransport is an in-memory RegisterTransport. Unset registers read as 0.
type TestTransport struct {
	mu      sync.Mutex
	input   map[uint16]uint16
	holding map[uint16]uint16
	fail    bool
	reads   int
	writes  int
	opens   int
	pending int
	gate    chan struct{}
}

func CreateTestTransport() *TestTransport {
	return &TestTransport{
		input:   map[uint16]uint16{},
		holding: map[uint16]uint16{},
	}
}

// CreateSampleTestTransport returns a transport loaded with a plausible SG10RT snapshot.
func CreateSampleTestTransport() *TestTransport {
	t := CreateTestTransport()
	t.SetInput(REG_DEVICE_TYPE, 0x0E0F)
	t.SetInput(REG_NOMINAL_POWER, 100)
	t.SetInput(REG_TOTAL_ENERGY, 5423)
	t.SetInput(REG_TOTAL_POWER, 7210)
	t.SetInput(REG_PHASE_BANK, 2300, 2301, 2299, 105, 102, 108)
	// power bank: total, L1, L2, L3, ..., export energy at 12, import energy at 16
	bank := make([]uint16, METER_POWER_BANK_SIZE)
	bank[0] = Encode(-1250)
	bank[2] = Encode(-400)
	bank[4] = Encode(-450)
	bank[6] = Encode(-400)
	bank[12] = 27703
	bank[16] = 5502
	for i := 1; i < len(bank); i += 2 {
		bank[i] = 0xFFFF
	}
	t.SetInput(REG_METER_POWER_BANK, bank...)
	t.SetHolding(REG_EXPORT_LIMIT, 1000)
	return t
}

func (t *TestTransport) SetInput(address uint16, values ...uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, v := range values {
		t.input[address+uint16(i)] = v
	}
}

func (t *TestTransport) SetHolding(address uint16, values ...uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, v := range values {
		t.holding[address+uint16(i)] = v
	}
}

// SetFault makes every following call fail with a TransportFault until cleared.
func (t *TestTransport) SetFault(fail bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fail = fail
}

func (t *TestTransport) Reads() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reads
}

func (t *TestTransport) Writes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writes
}

// Hold makes every following read block until Release is called.
func (t *TestTransport) Hold() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gate == nil {
		t.gate = make(chan struct{})
	}
}

func (t *TestTransport) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gate != nil {
		close(t.gate)
		t.gate = nil
	}
}

// Pending is the number of reads currently blocked by Hold.
func (t *TestTransport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending
}

func (t *TestTransport) Opens() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opens
}

func (t *TestTransport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.opens++
	return nil
}

func (t *TestTransport) Close() error {
	return nil
}

func (t *TestTransport) String() string {
	return "Modbus TCP test transport"
}

func (t *TestTransport) ReadInputRegisters(address uint16, count uint16) ([]uint16, error) {
	return t.read("read_input", t.input, address, count)
}

func (t *TestTransport) ReadHoldingRegisters(address uint16, count uint16) ([]uint16, error) {
	return t.read("read_holding", t.holding, address, count)
}

func (t *TestTransport) WriteRegister(address uint16, value uint16) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := wireAddress(address); err != nil {
		return fault("write", address, 1, err)
	}
	if t.fail {
		return fault("write", address, 1, ErrTestTransportFault)
	}
	t.writes++
	t.holding[address] = value
	return nil
}

func (t *TestTransport) read(op string, bank map[uint16]uint16, address uint16, count uint16) ([]uint16, error) {
	t.mu.Lock()
	if gate := t.gate; gate != nil {
		t.pending++
		t.mu.Unlock()
		<-gate
		t.mu.Lock()
		t.pending--
	}
	defer t.mu.Unlock()
	if _, err := wireAddress(address); err != nil {
		return nil, fault(op, address, count, err)
	}
	if t.fail {
		return nil, fault(op, address, count, ErrTestTransportFault)
	}
	t.reads++
	regs := make([]uint16, count)
	for i := range regs {
		regs[i] = bank[address+uint16(i)]
	}
	return regs, nil
}
