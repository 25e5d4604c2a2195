// Package sensor provides a read-only IMU/orientation port: accel, gyro,
// and temperature, with a simulated fallback when no hardware is attached.
package sensor

// Vector3 is a simple (x, y, z) triple shared by accel and gyro readings.
type Vector3 struct {
	X, Y, Z float64
}

// Orientation is one IMU sample: linear acceleration in m/s^2, angular rate
// in deg/s, and die temperature in Celsius.
type Orientation struct {
	Accel Vector3
	Gyro  Vector3
	TempC float64
}

// OrientationProvider is the read-only IMU port the HAL facade composes.
type OrientationProvider interface {
	ReadOrientation() (Orientation, error)
}

// SimOrientationProvider returns a fixed at-rest reading when no physical
// IMU is attached — the port exists for observability, not closed-loop
// control.
type SimOrientationProvider struct{}

// NewSimOrientationProvider constructs a SimOrientationProvider.
func NewSimOrientationProvider() *SimOrientationProvider {
	return &SimOrientationProvider{}
}

// ReadOrientation returns gravity-only accel (z = 9.8 m/s^2), zero angular
// rate, and room temperature.
func (s *SimOrientationProvider) ReadOrientation() (Orientation, error) {
	return Orientation{
		Accel: Vector3{X: 0, Y: 0, Z: 9.8},
		Gyro:  Vector3{X: 0, Y: 0, Z: 0},
		TempC: 25.0,
	}, nil
}
