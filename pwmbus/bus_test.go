package pwmbus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimBusWriteRoundTrip(t *testing.T) {
	bus := NewSimBus(nil)
	require.NoError(t, bus.Open([]int{0x40}))
	require.NoError(t, bus.SetFrequency(50))
	require.NoError(t, bus.Write(0x40, 3, 12345))

	got, ok := bus.LastDuty(0x40, 3)
	require.True(t, ok)
	require.EqualValues(t, 12345, got)

	_, ok = bus.LastDuty(0x40, 4)
	require.False(t, ok)
}

func TestSimBusMaxDuty(t *testing.T) {
	bus := NewSimBus(nil)
	require.NoError(t, bus.Open([]int{0x40}))
	require.NoError(t, bus.Write(0x40, 0, 65535))
	got, ok := bus.LastDuty(0x40, 0)
	require.True(t, ok)
	require.EqualValues(t, 65535, got)
}

func TestSimBusClose(t *testing.T) {
	bus := NewSimBus(nil)
	require.NoError(t, bus.Open([]int{0x40}))
	require.NoError(t, bus.Close())
}
