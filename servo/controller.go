package servo

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"

	"robodog/pwmbus"
	"robodog/roboerr"
)

const defaultFreqHz = 50.0

// Controller holds the calibration database, angle<->PWM math, current-pose
// cache, pose writes, and emergency stop for a set of joints.
type Controller struct {
	servos map[string]Config
	bus    pwmbus.Bus
	freqHz float64
	logger logging.Logger

	enabled atomic.Bool

	poseMu sync.RWMutex
	pose   map[string]float64
}

// NewController parses-and-validates happen in LoadServoMap/ParseServoMap;
// NewController takes an already-validated ServoMap, opens one bus session
// per distinct board address, initializes the current pose to each joint's
// neutral, and issues a single pose write to drive the hardware there.
func NewController(servoMap *ServoMap, bus pwmbus.Bus, freqHz float64, logger logging.Logger) (*Controller, error) {
	if logger == nil {
		logger = logging.NewLogger("servo.controller")
	}
	if freqHz <= 0 {
		freqHz = defaultFreqHz
	}

	addrs := append([]int(nil), servoMap.Addresses...)
	sort.Ints(addrs)
	if err := bus.Open(addrs); err != nil {
		return nil, errors.Wrap(err, "opening pwm bus")
	}
	if err := bus.SetFrequency(freqHz); err != nil {
		return nil, errors.Wrap(err, "setting pwm frequency")
	}

	c := &Controller{
		servos: servoMap.Servos,
		bus:    bus,
		freqHz: freqHz,
		logger: logger,
		pose:   make(map[string]float64, len(servoMap.Servos)),
	}
	c.enabled.Store(true)

	neutral := make(map[string]float64, len(servoMap.Servos))
	for name, cfg := range servoMap.Servos {
		c.pose[name] = cfg.Neutral
		neutral[name] = cfg.Neutral
	}
	if err := c.SetPose(neutral); err != nil {
		return nil, errors.Wrap(err, "writing initial neutral pose")
	}

	logger.Infof("servo controller initialized, %d joints on %d board(s)", len(servoMap.Servos), len(addrs))
	return c, nil
}

// angleToPWM12 is the pure, bit-exact conversion: apply offset and reversal,
// clamp to the reachable band, linearly map over the full 0-180 range, then
// quantize to 12 bits.
func angleToPWM12(requested float64, cfg Config, freqHz float64) int {
	a := requested + cfg.Offset
	if cfg.Reversed {
		a = 180 - a
	}

	logicalMin, logicalMax := cfg.AngleMin, cfg.AngleMax
	if cfg.Reversed {
		logicalMin, logicalMax = 180-cfg.AngleMax, 180-cfg.AngleMin
	}
	a = math.Max(logicalMin, math.Min(logicalMax, a))

	us := cfg.MinPulseUs + (a/180.0)*(cfg.MaxPulseUs-cfg.MinPulseUs)

	periodUs := 1e6 / freqHz
	dutyFraction := us / periodUs
	dutyFraction = math.Max(0, math.Min(1, dutyFraction))
	duty12 := int(math.Round(dutyFraction * 4096))
	if duty12 > 4095 {
		duty12 = 4095
	}
	if duty12 < 0 {
		duty12 = 0
	}
	return duty12
}

func duty12To16(duty12 int) uint16 {
	v := math.Round((float64(duty12) / 4095.0) * 65535.0)
	if v > 65535 {
		v = 65535
	}
	if v < 0 {
		v = 0
	}
	return uint16(v)
}

// SetServoAngle validates the joint name, computes duty, writes it through
// the bus if outputs are enabled, and updates the current-pose cache to the
// raw requested angle whether or not outputs are enabled — not the clamped
// one, so interpolation that reads the cache back sees a continuous value
// across calls. A failed bus write returns a BusError and leaves the cache
// unchanged.
func (c *Controller) SetServoAngle(name string, angle float64) error {
	cfg, ok := c.servos[name]
	if !ok {
		return &roboerr.UnknownServo{Name: name}
	}

	if c.enabled.Load() {
		duty12 := angleToPWM12(angle, cfg, c.freqHz)
		duty16 := duty12To16(duty12)
		if err := c.bus.Write(cfg.BoardAddr, cfg.Channel, duty16); err != nil {
			return &roboerr.BusError{Board: cfg.BoardAddr, Channel: cfg.Channel, Cause: err}
		}
	}

	c.poseMu.Lock()
	c.pose[name] = angle
	c.poseMu.Unlock()
	return nil
}

// SetPose applies SetServoAngle for each entry in deterministic order: known
// joints by (board_addr, channel, name), then unknown names by name.
// Validation happens during application, not up front: the UnknownServo
// error for an unknown name is returned after the known joints have already
// been written.
func (c *Controller) SetPose(pose map[string]float64) error {
	names := make([]string, 0, len(pose))
	for name := range pose {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, oki := c.servos[names[i]]
		cj, okj := c.servos[names[j]]
		switch {
		case oki != okj:
			return oki
		case oki && okj && ci.BoardAddr != cj.BoardAddr:
			return ci.BoardAddr < cj.BoardAddr
		case oki && okj && ci.Channel != cj.Channel:
			return ci.Channel < cj.Channel
		default:
			return names[i] < names[j]
		}
	})

	for _, name := range names {
		if err := c.SetServoAngle(name, pose[name]); err != nil {
			return err
		}
	}
	return nil
}

// GetCurrentPose returns a copy-on-read snapshot of the last-commanded
// angles, safe to call concurrently with the worker goroutine's writes.
func (c *Controller) GetCurrentPose() map[string]float64 {
	c.poseMu.RLock()
	defer c.poseMu.RUnlock()
	out := make(map[string]float64, len(c.pose))
	for k, v := range c.pose {
		out[k] = v
	}
	return out
}

// GetCurrentValue returns the last-commanded angle for a single joint.
func (c *Controller) GetCurrentValue(name string) (float64, bool) {
	c.poseMu.RLock()
	defer c.poseMu.RUnlock()
	v, ok := c.pose[name]
	return v, ok
}

// EmergencyStop atomically disables outputs. If setNeutral, it writes each
// joint's neutral duty on a best-effort basis, bypassing the enabled gate.
// Otherwise it writes duty 0 to every channel on every known board — not
// just configured channels, so torque drops on any channel a board might
// be driving.
func (c *Controller) EmergencyStop(setNeutral bool) {
	c.enabled.Store(false)

	if setNeutral {
		for name, cfg := range c.servos {
			duty12 := angleToPWM12(cfg.Neutral, cfg, c.freqHz)
			if err := c.bus.Write(cfg.BoardAddr, cfg.Channel, duty12To16(duty12)); err != nil {
				c.logger.Warnf("emergency_stop: failed to set neutral for %s: %v", name, err)
				continue
			}
			c.poseMu.Lock()
			c.pose[name] = cfg.Neutral
			c.poseMu.Unlock()
		}
		return
	}

	boards := make(map[int]struct{})
	for _, cfg := range c.servos {
		boards[cfg.BoardAddr] = struct{}{}
	}
	for board := range boards {
		for ch := 0; ch < 16; ch++ {
			if err := c.bus.Write(board, ch, 0); err != nil {
				c.logger.Warnf("emergency_stop: failed to zero board 0x%02X channel %d: %v", board, ch, err)
			}
		}
	}
}

// EnableOutputs re-enables writes. It does not restore any pose.
func (c *Controller) EnableOutputs() {
	c.enabled.Store(true)
}

// Close releases the underlying bus session.
func (c *Controller) Close() error {
	return c.bus.Close()
}
