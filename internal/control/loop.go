// Package control runs the cooperative main loop that turns input lines
// into actuator changes. One iteration handles at most one pending line,
// then advances steering by at most one step, so no single command can
// starve the motion controller.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/openrccar/rccard/internal/actuator"
	"github.com/openrccar/rccard/internal/dispatcher"
	"github.com/openrccar/rccard/internal/monitor"
	"github.com/openrccar/rccard/internal/parser"
	"github.com/openrccar/rccard/internal/session"
	"github.com/openrccar/rccard/pkg/protocol"
)

// DefaultInterval is the loop period when none is configured. 500µs keeps
// the stepper rate limiter, not the loop, as the effective speed cap.
const DefaultInterval = 500 * time.Microsecond

// Conn is the command connection the loop polls. transport.LineConn
// implements it.
type Conn interface {
	Poll() (string, bool)
	Pending() int
	WriteLine(line string) error
	Done() <-chan struct{}
}

// Deps holds all dependencies for the control loop.
type Deps struct {
	Conn       Conn
	Parser     *parser.Parser
	Dispatcher *dispatcher.Dispatcher
	Motor      *actuator.Motor
	Stepper    *actuator.Stepper

	// Session is optional; without it rides are not recorded.
	Session *session.Session

	Logger *slog.Logger

	// StepsFor45Deg is the steering target magnitude for STEER:L/R.
	StepsFor45Deg int64

	Interval time.Duration
}

// Loop is the cooperative main loop.
type Loop struct {
	deps Deps

	mu         sync.Mutex
	iterations session.SafeCounter
}

// New creates the loop and registers the actuator handlers on the
// dispatcher.
func New(deps Deps) (*Loop, error) {
	if deps.Conn == nil || deps.Parser == nil || deps.Dispatcher == nil ||
		deps.Motor == nil || deps.Stepper == nil || deps.Logger == nil {
		return nil, errors.New("control: missing dependency")
	}
	if deps.StepsFor45Deg <= 0 {
		return nil, fmt.Errorf("invalid StepsFor45Deg: %d", deps.StepsFor45Deg)
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}

	l := &Loop{deps: deps}
	l.registerHandlers()
	return l, nil
}

func (l *Loop) registerHandlers() {
	d := l.deps.Dispatcher

	d.Register(protocol.VerbMotorPower.Key(), l.handleMotorPower)
	d.Register(protocol.VerbSteerLeft.Key(), l.steerTo(-1, "L"))
	d.Register(protocol.VerbSteerRight.Key(), l.steerTo(1, "R"))
	d.Register(protocol.VerbSteerCenter.Key(), func(dispatcher.Event) (string, error) {
		target := l.deps.Stepper.SetTarget(0)
		return fmt.Sprintf("STEER=C -> target %d", target), nil
	})
	d.Register(protocol.VerbSteerStop.Key(), func(dispatcher.Event) (string, error) {
		l.deps.Stepper.StopNow()
		return fmt.Sprintf("STEER=STOP -> halt at %d", l.deps.Stepper.Position()), nil
	})
}

func (l *Loop) handleMotorPower(e dispatcher.Event) (string, error) {
	if e.Cmd.Power == 1 {
		l.deps.Motor.Apply(actuator.DirectionForward, actuator.MaxPower)
		l.noteRideStart(e.Received)
		return fmt.Sprintf("W=1 -> Motor %s %d", actuator.DirectionForward, actuator.MaxPower), nil
	}

	// any argument other than 1 is a stop
	l.deps.Motor.Apply(actuator.DirectionStop, 0)
	l.noteRideEnd(e.Received)
	return fmt.Sprintf("W=%d -> Motor STOP", e.Cmd.Power), nil
}

func (l *Loop) steerTo(sign int64, letter string) dispatcher.HandlerFunc {
	return func(dispatcher.Event) (string, error) {
		target := l.deps.Stepper.SetTarget(sign * l.deps.StepsFor45Deg)
		return fmt.Sprintf("STEER=%s -> target %d", letter, target), nil
	}
}

func (l *Loop) noteRideStart(at time.Time) {
	sess := l.deps.Session
	if sess == nil || !l.deps.Dispatcher.HasHandler(RideStartKey) {
		return
	}
	if !sess.BeginRide(at) {
		return
	}
	if _, err := l.deps.Dispatcher.Dispatch(dispatcher.Event{Key: RideStartKey, Received: at}); err != nil {
		l.deps.Logger.Error("failed to record ride start", "error", err)
	}
}

func (l *Loop) noteRideEnd(at time.Time) {
	sess := l.deps.Session
	if sess == nil || !l.deps.Dispatcher.HasHandler(RideEndKey) {
		return
	}
	id, _, ok := sess.EndRide()
	if !ok {
		return
	}
	if _, err := l.deps.Dispatcher.Dispatch(dispatcher.Event{Key: RideEndKey, RideID: id, Received: at}); err != nil {
		l.deps.Logger.Error("failed to record ride end", "error", err)
	}
}

// iterate runs one loop pass: at most one line, then one stepper tick.
func (l *Loop) iterate() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if line, ok := l.deps.Conn.Poll(); ok {
		l.handleLine(line)
	}
	l.deps.Stepper.Tick()
	l.iterations.Inc()
}

func (l *Loop) handleLine(line string) {
	cmd, err := l.deps.Parser.ParseLine(line)
	if errors.Is(err, parser.ErrEmptyLine) {
		return
	}
	if err != nil {
		l.writeLine(protocol.FormatErr(line))
		return
	}

	detail, err := l.deps.Dispatcher.Dispatch(dispatcher.Event{
		Key:      cmd.Verb.Key(),
		Cmd:      cmd,
		Received: time.Now(),
	})
	if err != nil {
		l.deps.Logger.Error("command handler failed", "line", line, "error", err)
		l.writeLine(protocol.FormatErr(line))
		return
	}
	l.writeLine(protocol.FormatOK(detail))
}

func (l *Loop) writeLine(line string) {
	if err := l.deps.Conn.WriteLine(line); err != nil {
		l.deps.Logger.Error("failed to write response", "error", err)
	}
}

// Run writes the startup banner and drives the loop until the context is
// cancelled or the connection closes. Actuators are always left stopped.
func (l *Loop) Run(ctx context.Context) error {
	for _, line := range strings.Split(protocol.Banner(), "\n") {
		l.writeLine(line)
	}
	l.deps.Logger.Info("Control loop started", "interval", l.deps.Interval)

	ticker := time.NewTicker(l.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return ctx.Err()
		case <-l.deps.Conn.Done():
			l.deps.Logger.Info("Command connection closed")
			l.shutdown()
			return nil
		case <-ticker.C:
			l.iterate()
		}
	}
}

func (l *Loop) shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.deps.Motor.Apply(actuator.DirectionStop, 0)
	l.deps.Stepper.StopNow()
	l.noteRideEnd(time.Now())
	l.deps.Logger.Info("Control loop stopped", "iterations", l.iterations.Value())
}

// Status returns a snapshot for the status monitor.
func (l *Loop) Status() monitor.Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	direction, power := l.deps.Motor.State()
	return monitor.Status{
		Iterations:     l.iterations.Value(),
		PendingLines:   l.deps.Conn.Pending(),
		MotorDirection: direction.String(),
		MotorPower:     power,
		SteerPosition:  l.deps.Stepper.Position(),
		SteerTarget:    l.deps.Stepper.Target(),
	}
}
