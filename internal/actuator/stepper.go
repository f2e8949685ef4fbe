package actuator

import (
	"fmt"
	"log/slog"
)

const microsPerSecond = 1_000_000

// StepperConfig bounds the steering envelope and stepping rate.
type StepperConfig struct {
	// MaxPositionSteps is the safety envelope; current and target position
	// always stay within ±MaxPositionSteps of center.
	MaxPositionSteps int64

	// MaxStepsPerSecond caps the pulse rate regardless of how often Tick
	// is called.
	MaxStepsPerSecond int64
}

// Stepper is the steering motion controller. It keeps current and target
// position in discrete step units and advances at most one step per Tick,
// no faster than the configured rate. All methods must be called from the
// control loop only; the type is not safe for concurrent use.
type Stepper struct {
	pins   StepperPins
	clock  Clock
	cfg    StepperConfig
	logger *slog.Logger

	position int64
	target   int64
	stopped  bool // stop latch, cleared by SetTarget

	minPulseGapMicros int64
	lastPulseMicros   int64
}

// NewStepper creates a motion controller at center position, target center,
// stop latch clear.
func NewStepper(pins StepperPins, clock Clock, cfg StepperConfig, logger *slog.Logger) (*Stepper, error) {
	if cfg.MaxPositionSteps <= 0 {
		return nil, fmt.Errorf("invalid MaxPositionSteps: %d", cfg.MaxPositionSteps)
	}
	if cfg.MaxStepsPerSecond <= 0 {
		return nil, fmt.Errorf("invalid MaxStepsPerSecond: %d", cfg.MaxStepsPerSecond)
	}

	gap := int64(microsPerSecond / cfg.MaxStepsPerSecond)
	return &Stepper{
		pins:              pins,
		clock:             clock,
		cfg:               cfg,
		logger:            logger,
		minPulseGapMicros: gap,
		// allow the first pulse immediately
		lastPulseMicros: -gap,
	}, nil
}

// SetTarget stores a new target position, clamped to the safety envelope,
// clears the stop latch and enables the driver output stage. It returns the
// effective (clamped) target.
func (s *Stepper) SetTarget(steps int64) int64 {
	clamped := min(max(steps, -s.cfg.MaxPositionSteps), s.cfg.MaxPositionSteps)
	if clamped != steps {
		s.logger.Debug("steer target out of range, clamping",
			"requested", steps, "clamped", clamped)
	}

	s.target = clamped
	s.stopped = false
	s.pins.SetEnabled(true)
	return clamped
}

// StopNow sets the stop latch. Motion ceases on the next Tick but the
// target is left alone; a future SetTarget resumes toward whatever target
// it sets, not the stale one.
func (s *Stepper) StopNow() {
	s.stopped = true
}

// Tick advances motion by at most one step. It is a no-op while the stop
// latch is set, the target is reached, or the minimum pulse interval since
// the last step has not yet elapsed. Returns true if a pulse was emitted.
func (s *Stepper) Tick() bool {
	if s.stopped || s.position == s.target {
		return false
	}

	now := s.clock.NowMicros()
	if now-s.lastPulseMicros < s.minPulseGapMicros {
		return false
	}

	forward := s.target > s.position
	s.pins.SetDir(forward)
	s.pins.StepPulse()
	if forward {
		s.position++
	} else {
		s.position--
	}
	s.lastPulseMicros = now
	return true
}

// Position returns the current position in steps from center.
func (s *Stepper) Position() int64 {
	return s.position
}

// Target returns the effective target position in steps from center.
func (s *Stepper) Target() int64 {
	return s.target
}

// Stopped reports whether the stop latch is set.
func (s *Stepper) Stopped() bool {
	return s.stopped
}

// Seeking reports whether the controller is moving toward its target.
func (s *Stepper) Seeking() bool {
	return !s.stopped && s.position != s.target
}
