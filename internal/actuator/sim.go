package actuator

import "sync"

// SimMotorPins is an in-memory MotorPins implementation used by tests and
// by daemon runs without hardware attached.
type SimMotorPins struct {
	mu   sync.Mutex
	in1  bool
	in2  bool
	duty uint8
}

func NewSimMotorPins() *SimMotorPins {
	return &SimMotorPins{}
}

func (p *SimMotorPins) SetLines(in1, in2 bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.in1 = in1
	p.in2 = in2
}

func (p *SimMotorPins) SetDuty(duty uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.duty = duty
}

// Lines returns the current direction-control line levels.
func (p *SimMotorPins) Lines() (in1, in2 bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.in1, p.in2
}

// Duty returns the current drive duty cycle.
func (p *SimMotorPins) Duty() uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duty
}

// SimStepperPins is an in-memory StepperPins implementation that counts
// emitted pulses and remembers the last direction.
type SimStepperPins struct {
	mu      sync.Mutex
	forward bool
	enabled bool
	pulses  int64
}

func NewSimStepperPins() *SimStepperPins {
	return &SimStepperPins{}
}

func (p *SimStepperPins) SetDir(forward bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forward = forward
}

func (p *SimStepperPins) StepPulse() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pulses++
}

func (p *SimStepperPins) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

// Pulses returns the number of step pulses emitted so far.
func (p *SimStepperPins) Pulses() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pulses
}

// Forward returns the last direction set.
func (p *SimStepperPins) Forward() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.forward
}

// Enabled returns whether the output stage is enabled.
func (p *SimStepperPins) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}
