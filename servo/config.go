// Package servo implements per-joint calibration, angle<->PWM conversion,
// and the current-pose cache that drives a pwmbus.Bus.
package servo

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"robodog/roboerr"
)

const (
	defaultMinPulseUs = 500.0
	defaultMaxPulseUs = 2500.0
)

// Config is one joint's calibration, immutable after load.
type Config struct {
	Name       string
	BoardAddr  int
	Channel    int
	AngleMin   float64
	AngleMax   float64
	Neutral    float64
	Offset     float64
	Reversed   bool
	MinPulseUs float64
	MaxPulseUs float64
}

// rawConfig mirrors the servo map's JSON wire shape: board_addr is a hex
// string, everything else is a JSON number. Neutral/pulses are pointers so
// we can tell "absent" from "explicitly zero" and apply defaults.
type rawConfig struct {
	Name       string   `json:"name"`
	BoardAddr  string   `json:"board_addr"`
	Channel    int      `json:"channel"`
	AngleMin   float64  `json:"angle_min"`
	AngleMax   float64  `json:"angle_max"`
	Neutral    *float64 `json:"neutral"`
	Offset     float64  `json:"offset"`
	Reversed   bool     `json:"reversed"`
	MinPulseUs *float64 `json:"min_pulse_us"`
	MaxPulseUs *float64 `json:"max_pulse_us"`
}

type rawServoMap struct {
	Servos []rawConfig `json:"servos"`
}

// parseBoardAddr accepts "0xNN"/"0XNN" case-insensitively and rejects
// decimal strings to avoid ambiguity about the numeric base.
func parseBoardAddr(s string) (int, error) {
	if len(s) < 3 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return 0, fmt.Errorf("board_addr %q must be a 0xNN hex string", s)
	}
	v, err := strconv.ParseInt(s[2:], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("board_addr %q is not valid hex: %w", s, err)
	}
	return int(v), nil
}

func formatBoardAddr(addr int) string {
	return fmt.Sprintf("0x%02X", addr)
}

func (rc rawConfig) toConfig() (Config, error) {
	addr, err := parseBoardAddr(rc.BoardAddr)
	if err != nil {
		return Config{}, &roboerr.ConfigError{Reason: fmt.Sprintf("servo %q: %v", rc.Name, err)}
	}

	cfg := Config{
		Name:      rc.Name,
		BoardAddr: addr,
		Channel:   rc.Channel,
		AngleMin:  rc.AngleMin,
		AngleMax:  rc.AngleMax,
		Offset:    rc.Offset,
		Reversed:  rc.Reversed,
	}

	if rc.MinPulseUs != nil {
		cfg.MinPulseUs = *rc.MinPulseUs
	} else {
		cfg.MinPulseUs = defaultMinPulseUs
	}
	if rc.MaxPulseUs != nil {
		cfg.MaxPulseUs = *rc.MaxPulseUs
	} else {
		cfg.MaxPulseUs = defaultMaxPulseUs
	}
	if rc.Neutral != nil {
		cfg.Neutral = *rc.Neutral
	} else {
		cfg.Neutral = (cfg.AngleMin + cfg.AngleMax) / 2.0
	}

	return cfg, nil
}

// Validate checks the per-joint invariants: the joint has a well-defined
// neutral inside its mechanical range, limits are ordered and within
// [0,180], and the channel is addressable.
func (c Config) Validate() error {
	if c.Name == "" {
		return &roboerr.ConfigError{Reason: "servo: missing name field"}
	}
	if c.BoardAddr < 0 || c.BoardAddr > 127 {
		return &roboerr.ConfigError{Reason: fmt.Sprintf("servo %q: board_addr out of range [0,127]: %d", c.Name, c.BoardAddr)}
	}
	if c.Channel < 0 || c.Channel > 15 {
		return &roboerr.ConfigError{Reason: fmt.Sprintf("servo %q: channel out of range [0,15]: %d", c.Name, c.Channel)}
	}
	if !(c.AngleMin < c.AngleMax) {
		return &roboerr.ConfigError{Reason: fmt.Sprintf("servo %q: angle_min (%v) must be < angle_max (%v)", c.Name, c.AngleMin, c.AngleMax)}
	}
	if c.AngleMin < 0 || c.AngleMax > 180 {
		return &roboerr.ConfigError{Reason: fmt.Sprintf("servo %q: angle range must be within [0,180], got [%v,%v]", c.Name, c.AngleMin, c.AngleMax)}
	}
	if c.Neutral < c.AngleMin || c.Neutral > c.AngleMax {
		return &roboerr.ConfigError{Reason: fmt.Sprintf("servo %q: neutral %v outside mechanical range [%v,%v]", c.Name, c.Neutral, c.AngleMin, c.AngleMax)}
	}
	if c.MinPulseUs <= 0 || c.MaxPulseUs <= c.MinPulseUs {
		return &roboerr.ConfigError{Reason: fmt.Sprintf("servo %q: invalid pulse range [%v,%v]", c.Name, c.MinPulseUs, c.MaxPulseUs)}
	}
	return nil
}

// ServoMap is the parsed, validated collection of joint configs, keyed by
// name and ready for ServoController construction.
type ServoMap struct {
	Servos    map[string]Config
	Addresses []int
}

// LoadServoMap reads and validates a servo map JSON file, enforcing global
// uniqueness of names and (board_addr, channel) pairs.
func LoadServoMap(path string) (*ServoMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &roboerr.ConfigError{Reason: fmt.Sprintf("reading servo map %s: %v", path, err)}
	}
	return ParseServoMap(data)
}

// ParseServoMap parses and validates a servo map document already in
// memory, the counterpart to LoadServoMap for callers that fetch the JSON
// themselves.
func ParseServoMap(data []byte) (*ServoMap, error) {
	var raw rawServoMap
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &roboerr.ConfigError{Reason: fmt.Sprintf("parsing servo map: %v", err)}
	}

	servos := make(map[string]Config, len(raw.Servos))
	addrSet := make(map[int]struct{})
	used := make(map[[2]int]string)

	for _, rc := range raw.Servos {
		cfg, err := rc.toConfig()
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		if _, dup := servos[cfg.Name]; dup {
			return nil, &roboerr.ConfigError{Reason: fmt.Sprintf("duplicate servo name: %s", cfg.Name)}
		}
		key := [2]int{cfg.BoardAddr, cfg.Channel}
		if other, dup := used[key]; dup {
			return nil, &roboerr.ConfigError{Reason: fmt.Sprintf(
				"duplicate (board_addr, channel) %s/%d used by both %q and %q", formatBoardAddr(cfg.BoardAddr), cfg.Channel, other, cfg.Name)}
		}
		used[key] = cfg.Name
		servos[cfg.Name] = cfg
		addrSet[cfg.BoardAddr] = struct{}{}
	}

	addresses := make([]int, 0, len(addrSet))
	for a := range addrSet {
		addresses = append(addresses, a)
	}

	return &ServoMap{Servos: servos, Addresses: addresses}, nil
}

// Dump serializes the map back into the wire schema. A neutral or pulse
// width that equals its default is written as null, which parses back to
// the same default, so a load-then-dump round trip is stable.
func (m *ServoMap) Dump() ([]byte, error) {
	raw := rawServoMap{Servos: make([]rawConfig, 0, len(m.Servos))}
	for _, cfg := range m.Servos {
		rc := rawConfig{
			Name:      cfg.Name,
			BoardAddr: formatBoardAddr(cfg.BoardAddr),
			Channel:   cfg.Channel,
			AngleMin:  cfg.AngleMin,
			AngleMax:  cfg.AngleMax,
			Offset:    cfg.Offset,
			Reversed:  cfg.Reversed,
		}
		if neutral := (cfg.AngleMin + cfg.AngleMax) / 2.0; cfg.Neutral != neutral {
			n := cfg.Neutral
			rc.Neutral = &n
		}
		if cfg.MinPulseUs != defaultMinPulseUs {
			v := cfg.MinPulseUs
			rc.MinPulseUs = &v
		}
		if cfg.MaxPulseUs != defaultMaxPulseUs {
			v := cfg.MaxPulseUs
			rc.MaxPulseUs = &v
		}
		raw.Servos = append(raw.Servos, rc)
	}
	return json.MarshalIndent(raw, "", "  ")
}
