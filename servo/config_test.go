package servo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"robodog/roboerr"
)

const sampleMap = `{
  "servos": [
    {"name": "fl_hip", "board_addr": "0x40", "channel": 0, "angle_min": 0, "angle_max": 180},
    {"name": "fl_knee", "board_addr": "0x40", "channel": 1, "angle_min": 10, "angle_max": 170, "neutral": 90, "offset": -2, "reversed": true}
  ]
}`

func TestParseServoMapDefaultsAndOverrides(t *testing.T) {
	sm, err := ParseServoMap([]byte(sampleMap))
	require.NoError(t, err)
	require.Len(t, sm.Servos, 2)

	hip := sm.Servos["fl_hip"]
	require.Equal(t, 0x40, hip.BoardAddr)
	require.Equal(t, 90.0, hip.Neutral)
	require.Equal(t, defaultMinPulseUs, hip.MinPulseUs)
	require.Equal(t, defaultMaxPulseUs, hip.MaxPulseUs)

	knee := sm.Servos["fl_knee"]
	require.Equal(t, 90.0, knee.Neutral)
	require.Equal(t, -2.0, knee.Offset)
	require.True(t, knee.Reversed)

	require.ElementsMatch(t, []int{0x40}, sm.Addresses)
}

func TestParseBoardAddrRejectsDecimal(t *testing.T) {
	_, err := parseBoardAddr("64")
	require.Error(t, err)
}

func TestParseBoardAddrCaseInsensitive(t *testing.T) {
	v, err := parseBoardAddr("0XAB")
	require.NoError(t, err)
	require.Equal(t, 0xAB, v)
}

func TestParseServoMapDuplicateName(t *testing.T) {
	doc := `{"servos": [
		{"name": "a", "board_addr": "0x40", "channel": 0, "angle_min": 0, "angle_max": 180},
		{"name": "a", "board_addr": "0x40", "channel": 1, "angle_min": 0, "angle_max": 180}
	]}`
	_, err := ParseServoMap([]byte(doc))
	require.Error(t, err)
	var cfgErr *roboerr.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestParseServoMapDuplicateChannel(t *testing.T) {
	doc := `{"servos": [
		{"name": "a", "board_addr": "0x40", "channel": 0, "angle_min": 0, "angle_max": 180},
		{"name": "b", "board_addr": "0x40", "channel": 0, "angle_min": 0, "angle_max": 180}
	]}`
	_, err := ParseServoMap([]byte(doc))
	require.Error(t, err)
}

func TestConfigValidateRejectsInvertedRange(t *testing.T) {
	cfg := Config{Name: "x", AngleMin: 100, AngleMax: 50, Neutral: 75, MinPulseUs: 500, MaxPulseUs: 2500}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestConfigValidateRejectsNeutralOutsideRange(t *testing.T) {
	cfg := Config{Name: "x", AngleMin: 0, AngleMax: 90, Neutral: 120, MinPulseUs: 500, MaxPulseUs: 2500}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestServoMapDumpRoundTrip(t *testing.T) {
	sm, err := ParseServoMap([]byte(sampleMap))
	require.NoError(t, err)

	data, err := sm.Dump()
	require.NoError(t, err)

	reparsed, err := ParseServoMap(data)
	require.NoError(t, err)
	require.Equal(t, sm.Servos, reparsed.Servos)
}
