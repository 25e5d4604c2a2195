// Package pwmbus is the narrow driver port the servo package talks to: one
// physical (or simulated) PWM device per I2C board address, addressed by
// (board address, channel), writing 16-bit duty values.
package pwmbus

import (
	"sort"
	"sync"

	"go.viam.com/rdk/logging"
)

// Bus is the narrow interface to one or more physical PWM devices: open a
// session over a set of board addresses, set the shared PWM frequency,
// write a 16-bit duty value to a (address, channel) pair, and release the
// session on Close.
type Bus interface {
	Open(addresses []int) error
	SetFrequency(hz float64) error
	Write(address, channel int, duty16 uint16) error
	Close() error
}

// SimBus is a Bus that logs writes instead of touching hardware. Callers
// use it by passing it wherever a Bus is expected; nothing in this package
// falls back to it automatically when a real device cannot be opened.
type SimBus struct {
	logger    logging.Logger
	mu        sync.Mutex
	addresses []int
	freqHz    float64
	lastDuty  map[[2]int]uint16
}

// NewSimBus constructs a SimBus. logger may be nil.
func NewSimBus(logger logging.Logger) *SimBus {
	if logger == nil {
		logger = logging.NewLogger("pwmbus.sim")
	}
	return &SimBus{
		logger:   logger,
		lastDuty: make(map[[2]int]uint16),
	}
}

func (b *SimBus) Open(addresses []int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addresses = append([]int(nil), addresses...)
	sort.Ints(b.addresses)
	b.logger.Debugf("sim bus open: addresses=%v", b.addresses)
	return nil
}

func (b *SimBus) SetFrequency(hz float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.freqHz = hz
	b.logger.Debugf("sim bus frequency=%.1fHz", hz)
	return nil
}

func (b *SimBus) Write(address, channel int, duty16 uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastDuty[[2]int{address, channel}] = duty16
	b.logger.Debugf("sim write addr=0x%02x ch=%d duty16=%d", address, channel, duty16)
	return nil
}

func (b *SimBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger.Debug("sim bus closed")
	return nil
}

// LastDuty returns the last duty16 written to (address, channel), for tests.
func (b *SimBus) LastDuty(address, channel int) (uint16, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.lastDuty[[2]int{address, channel}]
	return v, ok
}
