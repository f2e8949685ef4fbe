// Package gpio implements the actuator pin interfaces on real hardware
// through periph.io. It is only exercised when the daemon runs with
// gpio.backend = "periph"; tests and hardware-less runs use the simulated
// backend in internal/actuator.
package gpio

import (
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// Config names the header pins of the motor H-bridge and the stepper driver
// stage. Pin names follow periph's registry ("GPIO13", "P1_33", ...).
type Config struct {
	MotorIn1 string
	MotorIn2 string
	MotorPWM string

	StepperStep   string
	StepperDir    string
	StepperEnable string

	// PWMFrequency is the drive output carrier frequency.
	PWMFrequency physic.Frequency

	// StepPulseWidth is how long the step line is held high per pulse.
	StepPulseWidth time.Duration
}

// Init loads the periph host drivers. Must be called once before opening
// pins.
func Init() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("initializing periph host: %w", err)
	}
	return nil
}

func pinByName(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no such pin: %s", name)
	}
	return p, nil
}

// MotorPins drives the H-bridge through three GPIO lines.
type MotorPins struct {
	in1    gpio.PinIO
	in2    gpio.PinIO
	pwm    gpio.PinIO
	freq   physic.Frequency
	logger *slog.Logger
}

// NewMotorPins resolves and configures the motor lines.
func NewMotorPins(cfg Config, logger *slog.Logger) (*MotorPins, error) {
	in1, err := pinByName(cfg.MotorIn1)
	if err != nil {
		return nil, err
	}
	in2, err := pinByName(cfg.MotorIn2)
	if err != nil {
		return nil, err
	}
	pwm, err := pinByName(cfg.MotorPWM)
	if err != nil {
		return nil, err
	}

	p := &MotorPins{in1: in1, in2: in2, pwm: pwm, freq: cfg.PWMFrequency, logger: logger}
	p.SetLines(false, false)
	p.SetDuty(0)
	return p, nil
}

// SetLines sets the direction-control lines. Failures are logged, not
// returned; the driver contract has no error path.
func (p *MotorPins) SetLines(in1, in2 bool) {
	if err := p.in1.Out(gpio.Level(in1)); err != nil {
		p.logger.Error("setting motor in1", "error", err)
	}
	if err := p.in2.Out(gpio.Level(in2)); err != nil {
		p.logger.Error("setting motor in2", "error", err)
	}
}

// SetDuty sets the PWM duty cycle, scaling 0-255 to the pin's duty range.
func (p *MotorPins) SetDuty(duty uint8) {
	scaled := gpio.Duty(uint64(duty) * uint64(gpio.DutyMax) / 255)
	if err := p.pwm.PWM(scaled, p.freq); err != nil {
		p.logger.Error("setting motor duty", "duty", duty, "error", err)
	}
}

// StepperPins drives a step/dir/enable stage through three GPIO lines.
type StepperPins struct {
	step       gpio.PinIO
	dir        gpio.PinIO
	enable     gpio.PinIO
	pulseWidth time.Duration
	logger     *slog.Logger
}

// NewStepperPins resolves and configures the stepper driver lines. The
// enable pin is optional; pass an empty name for driver stages that are
// always on.
func NewStepperPins(cfg Config, logger *slog.Logger) (*StepperPins, error) {
	step, err := pinByName(cfg.StepperStep)
	if err != nil {
		return nil, err
	}
	dir, err := pinByName(cfg.StepperDir)
	if err != nil {
		return nil, err
	}

	var enable gpio.PinIO
	if cfg.StepperEnable != "" {
		enable, err = pinByName(cfg.StepperEnable)
		if err != nil {
			return nil, err
		}
	}

	pulseWidth := cfg.StepPulseWidth
	if pulseWidth <= 0 {
		pulseWidth = 2 * time.Microsecond
	}

	p := &StepperPins{step: step, dir: dir, enable: enable, pulseWidth: pulseWidth, logger: logger}
	p.SetEnabled(false)
	return p, nil
}

// SetDir sets the direction line.
func (p *StepperPins) SetDir(forward bool) {
	if err := p.dir.Out(gpio.Level(forward)); err != nil {
		p.logger.Error("setting stepper direction", "error", err)
	}
}

// StepPulse asserts the step line, holds for the pulse width and deasserts.
func (p *StepperPins) StepPulse() {
	if err := p.step.Out(gpio.High); err != nil {
		p.logger.Error("asserting step line", "error", err)
		return
	}
	time.Sleep(p.pulseWidth)
	if err := p.step.Out(gpio.Low); err != nil {
		p.logger.Error("deasserting step line", "error", err)
	}
}

// SetEnabled switches the driver output stage. Most driver boards use an
// active-low enable line.
func (p *StepperPins) SetEnabled(enabled bool) {
	if p.enable == nil {
		return
	}
	if err := p.enable.Out(gpio.Level(!enabled)); err != nil {
		p.logger.Error("setting stepper enable", "error", err)
	}
}
