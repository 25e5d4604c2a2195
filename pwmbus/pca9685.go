package pwmbus

import (
	"fmt"
	"math"
	"sync"

	"go.viam.com/rdk/logging"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// PCA9685 register layout, per the NXP datasheet. Mirrors the register map
// used by a bare-metal PCA9685 driver, translated onto periph.io's i2c.Dev.
const (
	regMode1      = 0x00
	regPrescale   = 0xFE
	regLed0OnL    = 0x06
	regLed0OnH    = 0x07
	regLed0OffL   = 0x08
	regLed0OffH   = 0x09
	regAllLedOnL  = 0xFA
	regAllLedOnH  = 0xFB
	regAllLedOffL = 0xFC
	regAllLedOffH = 0xFD

	mode1Sleep   = 0x10
	mode1AutoInc = 0x20
	oscFreqHz    = 25000000.0
)

// PCA9685Bus drives one or more PCA9685 16-channel 12-bit PWM boards over I2C.
// Every configured board address gets its own i2c.Dev on the same bus.
type PCA9685Bus struct {
	busName string
	logger  logging.Logger

	mu      sync.Mutex
	bus     i2c.BusCloser
	devices map[int]*i2c.Dev
	freqHz  float64
}

// NewPCA9685Bus constructs a bus bound to a periph.io I2C bus name (empty
// string selects the host's default bus, same convention as i2creg.Open).
func NewPCA9685Bus(busName string, logger logging.Logger) *PCA9685Bus {
	if logger == nil {
		logger = logging.NewLogger("pwmbus.pca9685")
	}
	return &PCA9685Bus{busName: busName, logger: logger}
}

func (b *PCA9685Bus) Open(addresses []int) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph.io host init: %w", err)
	}

	bus, err := i2creg.Open(b.busName)
	if err != nil {
		return fmt.Errorf("open i2c bus %q: %w", b.busName, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.bus = bus
	b.devices = make(map[int]*i2c.Dev, len(addresses))
	for _, addr := range addresses {
		dev := &i2c.Dev{Bus: bus, Addr: uint16(addr)}
		if err := b.resetLocked(dev); err != nil {
			return fmt.Errorf("reset pca9685 at 0x%02x: %w", addr, err)
		}
		b.devices[addr] = dev
	}
	return nil
}

func (b *PCA9685Bus) resetLocked(dev *i2c.Dev) error {
	return dev.Tx([]byte{regMode1, 0x00}, nil)
}

// SetFrequency programs the PWM prescaler on every open device. Per the
// datasheet the device must be put to sleep while the prescaler is written,
// then woken with auto-increment enabled.
func (b *PCA9685Bus) SetFrequency(hz float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.freqHz = hz
	prescale := byte(math.Round(oscFreqHz/(4096*hz)) - 1)

	for addr, dev := range b.devices {
		var oldMode [1]byte
		if err := dev.Tx([]byte{regMode1}, oldMode[:]); err != nil {
			return fmt.Errorf("read mode1 at 0x%02x: %w", addr, err)
		}
		sleepMode := (oldMode[0] & 0x7F) | mode1Sleep
		if err := dev.Tx([]byte{regMode1, sleepMode}, nil); err != nil {
			return fmt.Errorf("sleep at 0x%02x: %w", addr, err)
		}
		if err := dev.Tx([]byte{regPrescale, prescale}, nil); err != nil {
			return fmt.Errorf("set prescale at 0x%02x: %w", addr, err)
		}
		if err := dev.Tx([]byte{regMode1, oldMode[0]}, nil); err != nil {
			return fmt.Errorf("wake at 0x%02x: %w", addr, err)
		}
		if err := dev.Tx([]byte{regMode1, oldMode[0] | mode1AutoInc}, nil); err != nil {
			return fmt.Errorf("enable auto-increment at 0x%02x: %w", addr, err)
		}
	}
	return nil
}

// Write sets channel's duty cycle. duty16 is scaled down to the PCA9685's
// native 12-bit resolution, always turned on at count 0 (no phase offset)
// and off at the scaled count.
func (b *PCA9685Bus) Write(address, channel int, duty16 uint16) error {
	if channel < 0 || channel > 15 {
		return fmt.Errorf("channel out of range: %d", channel)
	}

	b.mu.Lock()
	dev, ok := b.devices[address]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("pca9685 at 0x%02x not open", address)
	}

	off := uint16(math.Round((float64(duty16) / 65535.0) * 4095.0))
	reg := regLed0OnL + 4*channel
	data := []byte{
		byte(reg),
		0x00, 0x00, // ON_L, ON_H — always on at count 0
		byte(off & 0xFF),
		byte((off >> 8) & 0x0F),
	}
	if err := dev.Tx(data, nil); err != nil {
		return fmt.Errorf("write channel %d on 0x%02x: %w", channel, address, err)
	}
	return nil
}

func (b *PCA9685Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bus == nil {
		return nil
	}
	err := b.bus.Close()
	b.bus = nil
	b.devices = nil
	return err
}
