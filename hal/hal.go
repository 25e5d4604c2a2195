// Package hal is the top-level facade: it composes a servo.Controller and
// a sensor.OrientationProvider and re-exports their operations. Purely
// compositional, no business logic of its own.
package hal

import (
	"robodog/sensor"
	"robodog/servo"
)

// HAL unifies servo and sensor access for higher layers (behavior.Library,
// application entry points).
type HAL struct {
	Servos      *servo.Controller
	Orientation sensor.OrientationProvider
}

// New composes an already-constructed controller and orientation provider.
// orientation may be nil, in which case GetOrientation returns the zero
// value and a nil error.
func New(servos *servo.Controller, orientation sensor.OrientationProvider) *HAL {
	return &HAL{Servos: servos, Orientation: orientation}
}

// SetPose sets multiple servo angles at once.
func (h *HAL) SetPose(pose map[string]float64) error {
	return h.Servos.SetPose(pose)
}

// SetServoAngle sets a single servo angle.
func (h *HAL) SetServoAngle(name string, angleDeg float64) error {
	return h.Servos.SetServoAngle(name, angleDeg)
}

// GetPose returns the last-commanded pose.
func (h *HAL) GetPose() map[string]float64 {
	return h.Servos.GetCurrentPose()
}

// GetServoValue returns the last-commanded angle for a single servo.
func (h *HAL) GetServoValue(name string) (float64, bool) {
	return h.Servos.GetCurrentValue(name)
}

// GetOrientation returns the latest IMU reading.
func (h *HAL) GetOrientation() (sensor.Orientation, error) {
	if h.Orientation == nil {
		return sensor.Orientation{}, nil
	}
	return h.Orientation.ReadOrientation()
}

// EmergencyStop stops all servos, optionally holding neutral pose.
func (h *HAL) EmergencyStop(setNeutral bool) {
	h.Servos.EmergencyStop(setNeutral)
}

// EnableOutputs re-enables servo outputs after an emergency stop.
func (h *HAL) EnableOutputs() {
	h.Servos.EnableOutputs()
}

// Close releases the controller's underlying bus handles.
func (h *HAL) Close() error {
	return h.Servos.Close()
}
