package rtl

import (
	"context"
	"sync"

	"github.com/ardnew/softusb/host/hal"
)

// MockHandle emulates an RTL2832U behind a Handle. I2C writes are stored per
// address and echoed back by reads; register blocks behave as plain memory.
// It is used by tests and by the CLI's mock backend. The zero value is a mock
// with empty descriptors.
type MockHandle struct {
	mu           sync.RWMutex
	manufacturer string
	product      string
	tuner        Tuner
	i2c          map[uint16][]byte
	regs         map[regKey]byte
	transfers    int
	limit        int
	capped       bool
	failNext     error
	fail         error
	log          []hal.SetupPacket
}

type regKey struct {
	block Block
	addr  uint16
}

// NewMock builds a mock that reports the given descriptor strings.
func NewMock(manufacturer, product string) *MockHandle {
	return &MockHandle{
		manufacturer: manufacturer,
		product:      product,
	}
}

// initLocked allocates the backing maps. m.mu must be held for writing.
func (m *MockHandle) initLocked() {
	if m.i2c == nil {
		m.i2c = make(map[uint16][]byte)
	}
	if m.regs == nil {
		m.regs = make(map[regKey]byte)
	}
}

func (m *MockHandle) Manufacturer() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.manufacturer
}

func (m *MockHandle) Product() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.product
}

// SetDescriptors replaces the descriptor strings, e.g. to exercise Redetect.
func (m *MockHandle) SetDescriptors(manufacturer, product string) {
	m.mu.Lock()
	m.manufacturer, m.product = manufacturer, product
	m.mu.Unlock()
}

// SetTuner sets the tuner type reported through TunerReporter.
func (m *MockHandle) SetTuner(t Tuner) {
	m.mu.Lock()
	m.tuner = t
	m.mu.Unlock()
}

func (m *MockHandle) TunerType() Tuner {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tuner
}

// FailNext makes the next transfer fail with err.
func (m *MockHandle) FailNext(err error) {
	m.mu.Lock()
	m.failNext = err
	m.mu.Unlock()
}

// SetFailure makes every transfer fail with err until cleared with nil.
func (m *MockHandle) SetFailure(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

// LimitTransfers caps the bytes moved per transfer to emulate short
// transfers. A negative n removes the cap.
func (m *MockHandle) LimitTransfers(n int) {
	m.mu.Lock()
	m.limit, m.capped = n, n >= 0
	m.mu.Unlock()
}

// Transfers returns how many control transfers reached the mock.
func (m *MockHandle) Transfers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transfers
}

// Setups returns the setup packets seen so far.
func (m *MockHandle) Setups() []hal.SetupPacket {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]hal.SetupPacket(nil), m.log...)
}

// Reg returns the current value of a one-byte register.
func (m *MockHandle) Reg(block Block, addr uint16) byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.regs[regKey{block, addr}]
}

// SetReg presets a one-byte register.
func (m *MockHandle) SetReg(block Block, addr uint16, val byte) {
	m.mu.Lock()
	m.initLocked()
	m.regs[regKey{block, addr}] = val
	m.mu.Unlock()
}

func (m *MockHandle) ControlTransfer(ctx context.Context, setup *hal.SetupPacket, data []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initLocked()

	m.transfers++
	m.log = append(m.log, *setup)
	if err := m.failNext; err != nil {
		m.failNext = nil
		return 0, err
	}
	if m.fail != nil {
		return 0, m.fail
	}

	n := len(data)
	if m.capped && n > m.limit {
		n = m.limit
	}
	block := Block(setup.Index >> 8)
	write := setup.Index&blockWriteFlag != 0

	if block == BlockI2C {
		if write {
			m.i2c[setup.Value] = append([]byte(nil), data[:n]...)
			return n, nil
		}
		return copy(data[:n], m.i2c[setup.Value]), nil
	}

	for i := 0; i < n; i++ {
		k := regKey{block, setup.Value + uint16(i)}
		if write {
			m.regs[k] = data[i]
		} else {
			data[i] = m.regs[k]
		}
	}
	return n, nil
}
