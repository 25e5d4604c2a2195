// Package roboerr defines the error kinds shared across the servo, motion,
// and behavior packages.
package roboerr

import "fmt"

// ConfigError reports a malformed or inconsistent servo map. Construction-time
// and fatal: the caller should not attempt to run with a controller that
// failed to build.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Reason)
}

// UnknownServo reports a joint name absent from the controller's servo map.
type UnknownServo struct {
	Name string
}

func (e *UnknownServo) Error() string {
	return fmt.Sprintf("unknown servo: %q", e.Name)
}

// BusError wraps a failure from the underlying PwmBus.
type BusError struct {
	Board   int
	Channel int
	Cause   error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("bus write failed (board=%d channel=%d): %v", e.Board, e.Channel, e.Cause)
}

func (e *BusError) Unwrap() error {
	return e.Cause
}

// UnsupportedAction reports a MotionGoal whose action the engine doesn't know
// how to dispatch.
type UnsupportedAction struct {
	Action string
}

func (e *UnsupportedAction) Error() string {
	return fmt.Sprintf("unsupported action: %q", e.Action)
}
