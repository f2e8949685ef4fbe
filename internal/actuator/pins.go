// Package actuator implements the drive-motor driver and the steering
// stepper motion controller. Physical output goes through the small pin
// interfaces below so the package stays hardware-agnostic; real GPIO lives
// in internal/gpio and a simulated backend in this package.
package actuator

// Direction is the drive motor direction.
type Direction int

const (
	DirectionStop Direction = iota
	DirectionForward
	DirectionBackward
)

func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "FWD"
	case DirectionBackward:
		return "BWD"
	default:
		return "STOP"
	}
}

// MotorPins drives an H-bridge stage: two direction-control lines and one
// PWM drive output. Implementations must not block.
type MotorPins interface {
	// SetLines sets the two direction-control lines. Both low is a
	// coasting stop.
	SetLines(in1, in2 bool)

	// SetDuty sets the drive output duty cycle, 0-255 full scale.
	SetDuty(duty uint8)
}

// StepperPins drives a step/dir/enable driver stage.
type StepperPins interface {
	// SetDir sets the direction line. true is the positive (right) step
	// direction.
	SetDir(forward bool)

	// StepPulse asserts the step line, holds briefly and deasserts,
	// advancing the motor one step.
	StepPulse()

	// SetEnabled switches the driver output stage on or off.
	SetEnabled(enabled bool)
}
