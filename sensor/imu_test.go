package sensor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimOrientationProviderAtRest(t *testing.T) {
	p := NewSimOrientationProvider()
	o, err := p.ReadOrientation()
	require.NoError(t, err)
	require.Equal(t, Vector3{X: 0, Y: 0, Z: 9.8}, o.Accel)
	require.Equal(t, Vector3{}, o.Gyro)
	require.Equal(t, 25.0, o.TempC)
}
