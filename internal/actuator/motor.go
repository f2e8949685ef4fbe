package actuator

import "log/slog"

// MaxPower is the full-scale PWM duty for the drive motor.
const MaxPower = 255

// Motor translates a logical drive command into H-bridge signal state. It
// has no history; each Apply overwrites the previous command.
type Motor struct {
	pins   MotorPins
	logger *slog.Logger

	direction Direction
	power     int
}

// NewMotor creates a motor driver in the stopped state.
func NewMotor(pins MotorPins, logger *slog.Logger) *Motor {
	m := &Motor{pins: pins, logger: logger}
	m.Apply(DirectionStop, 0)
	return m
}

// Apply sets the motor direction and power. Power outside [0, MaxPower] is
// clamped, not rejected; the original value is reported at debug level.
// Stop or zero power coasts: both direction lines low, zero duty.
func (m *Motor) Apply(direction Direction, power int) {
	if power < 0 || power > MaxPower {
		m.logger.Debug("motor power out of range, clamping",
			"requested", power, "min", 0, "max", MaxPower)
		power = min(max(power, 0), MaxPower)
	}

	if direction == DirectionStop || power == 0 {
		m.pins.SetLines(false, false)
		m.pins.SetDuty(0)
		m.direction = DirectionStop
		m.power = 0
		return
	}

	m.pins.SetLines(direction == DirectionForward, direction == DirectionBackward)
	m.pins.SetDuty(uint8(power))
	m.direction = direction
	m.power = power
}

// State returns the last applied direction and effective (clamped) power.
func (m *Motor) State() (Direction, int) {
	return m.direction, m.power
}

// Running reports whether the motor is currently driven.
func (m *Motor) Running() bool {
	return m.direction != DirectionStop
}
