package actuator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is an adjustable Clock for deterministic pacing tests.
type fakeClock struct {
	micros int64
}

func (c *fakeClock) NowMicros() int64 { return c.micros }

func (c *fakeClock) advance(micros int64) { c.micros += micros }

func newTestStepper(t *testing.T, cfg StepperConfig) (*Stepper, *SimStepperPins, *fakeClock) {
	t.Helper()
	pins := NewSimStepperPins()
	clock := &fakeClock{}
	s, err := NewStepper(pins, clock, cfg, testLogger())
	require.NoError(t, err)
	return s, pins, clock
}

var defaultCfg = StepperConfig{MaxPositionSteps: 400, MaxStepsPerSecond: 800}

// runToRest ticks until motion stops, advancing the clock past the rate
// limit each iteration. Fails the test if motion never settles.
func runToRest(t *testing.T, s *Stepper, clock *fakeClock) {
	t.Helper()
	for i := 0; i < 10_000; i++ {
		clock.advance(2000)
		if !s.Tick() && !s.Seeking() {
			return
		}
	}
	t.Fatal("stepper did not reach its target")
}

func TestNewStepper_InvalidConfig(t *testing.T) {
	pins := NewSimStepperPins()
	clock := &fakeClock{}

	_, err := NewStepper(pins, clock, StepperConfig{MaxPositionSteps: 0, MaxStepsPerSecond: 800}, testLogger())
	assert.Error(t, err)

	_, err = NewStepper(pins, clock, StepperConfig{MaxPositionSteps: 400, MaxStepsPerSecond: 0}, testLogger())
	assert.Error(t, err)
}

func TestSetTarget_Clamping(t *testing.T) {
	tests := []struct {
		steps int64
		want  int64
	}{
		{0, 0},
		{400, 400},
		{-400, -400},
		{401, 400},
		{-401, -400},
		{1 << 40, 400},
		{-(1 << 40), -400},
	}

	for _, tt := range tests {
		s, _, _ := newTestStepper(t, defaultCfg)
		got := s.SetTarget(tt.steps)
		assert.Equal(t, tt.want, got, "steps %d", tt.steps)
		assert.Equal(t, tt.want, s.Target())
	}
}

func TestSetTarget_EnablesDriver(t *testing.T) {
	s, pins, _ := newTestStepper(t, defaultCfg)
	assert.False(t, pins.Enabled())

	s.SetTarget(100)
	assert.True(t, pins.Enabled())
}

func TestTick_ReachesTarget(t *testing.T) {
	s, pins, clock := newTestStepper(t, defaultCfg)

	s.SetTarget(-400)
	runToRest(t, s, clock)

	assert.Equal(t, int64(-400), s.Position())
	assert.Equal(t, int64(400), pins.Pulses())
	assert.False(t, pins.Forward())
	assert.False(t, s.Seeking())
}

func TestTick_RateBound(t *testing.T) {
	s, pins, clock := newTestStepper(t, defaultCfg)
	gap := int64(microsPerSecond / defaultCfg.MaxStepsPerSecond) // 1250µs

	s.SetTarget(10)

	// first pulse is allowed immediately
	assert.True(t, s.Tick())
	assert.Equal(t, int64(1), pins.Pulses())

	// ticking again before the interval elapses emits nothing, no matter
	// how often Tick is invoked
	for i := 0; i < 50; i++ {
		clock.advance(10)
		s.Tick()
	}
	assert.Equal(t, int64(1), pins.Pulses())

	// once the interval has elapsed, exactly one more pulse
	clock.advance(gap)
	assert.True(t, s.Tick())
	assert.Equal(t, int64(2), pins.Pulses())
}

func TestStopNow_FreezesPosition(t *testing.T) {
	s, pins, clock := newTestStepper(t, defaultCfg)

	s.SetTarget(-400)
	for s.Position() != -150 {
		clock.advance(2000)
		require.True(t, s.Tick())
	}

	s.StopNow()
	assert.True(t, s.Stopped())
	assert.False(t, s.Seeking())

	pulsesAtStop := pins.Pulses()
	for i := 0; i < 100; i++ {
		clock.advance(2000)
		assert.False(t, s.Tick())
	}
	assert.Equal(t, int64(-150), s.Position())
	assert.Equal(t, pulsesAtStop, pins.Pulses())

	// the stale target survives the stop
	assert.Equal(t, int64(-400), s.Target())

	// a new target clears the latch and motion resumes toward it
	s.SetTarget(0)
	assert.False(t, s.Stopped())
	runToRest(t, s, clock)
	assert.Equal(t, int64(0), s.Position())
}

func TestSetTarget_CenterIdempotent(t *testing.T) {
	s, _, clock := newTestStepper(t, defaultCfg)

	s.SetTarget(200)
	runToRest(t, s, clock)

	s.SetTarget(0)
	s.SetTarget(0) // second call is a no-op on the target
	assert.Equal(t, int64(0), s.Target())

	runToRest(t, s, clock)
	assert.Equal(t, int64(0), s.Position())

	// converged; further ticks do nothing
	clock.advance(2000)
	assert.False(t, s.Tick())
	assert.Equal(t, int64(0), s.Position())
}

func TestSetTarget_ReversesMidFlight(t *testing.T) {
	s, pins, clock := newTestStepper(t, defaultCfg)

	s.SetTarget(400)
	for s.Position() != 120 {
		clock.advance(2000)
		require.True(t, s.Tick())
	}
	assert.True(t, pins.Forward())

	// retarget to center before reaching the right stop
	s.SetTarget(0)
	clock.advance(2000)
	require.True(t, s.Tick())
	assert.False(t, pins.Forward())
	assert.Equal(t, int64(119), s.Position())

	runToRest(t, s, clock)
	assert.Equal(t, int64(0), s.Position())
}

func TestPositionStaysInsideEnvelope(t *testing.T) {
	s, _, clock := newTestStepper(t, defaultCfg)

	for _, target := range []int64{1 << 40, -(1 << 40), 400, -401} {
		s.SetTarget(target)
		runToRest(t, s, clock)
		assert.LessOrEqual(t, s.Position(), defaultCfg.MaxPositionSteps)
		assert.GreaterOrEqual(t, s.Position(), -defaultCfg.MaxPositionSteps)
	}
}
