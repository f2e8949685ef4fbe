// Package dispatcher routes parsed commands and internal events to
// registered handlers. Actuator handlers run synchronously inside the
// control loop; persistence handlers register with a buffer so database
// writes never stall the loop.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/openrccar/rccard/pkg/protocol"
)

// Event is one dispatchable unit: a parsed wire command or an internal
// event such as a ride transition.
type Event struct {
	// Key selects the handler. Wire commands use protocol.Verb.Key();
	// internal events use dotted names like "ride.start".
	Key string

	// Cmd is the parsed command for wire events; zero for internal events.
	Cmd protocol.Command

	// RideID identifies the ride for ride lifecycle events; zero for wire
	// commands.
	RideID uint

	Received time.Time
}

// HandlerFunc processes an event and returns the response detail text.
type HandlerFunc func(Event) (string, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of
// dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	processed metric.Int64Counter
	dropped   metric.Int64Counter
	queueSize metric.Int64ObservableGauge

	// Track buffers for gauge callback
	mu      sync.RWMutex
	buffers map[string]chan Event
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan Event),
		logger:   logger,
	}

	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events in queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for key, buf := range d.buffers {
				o.ObserveInt64(d.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("event", key)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given event key with optional
// configuration.
func (d *Dispatcher) Register(key string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.bufferSize > 0 {
		handler = d.withBuffer(key, cfg.bufferSize, cfg.blocking, handler)
	}

	if cfg.logged {
		handler = d.withLogging(key, handler)
	}

	d.handlers[key] = handler
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (string, error) {
	h, ok := d.handlers[e.Key]
	if !ok {
		return "", fmt.Errorf("no handler for event: %s", e.Key)
	}
	result, err := h(e)
	if err == nil {
		d.processed.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("event", e.Key)))
	}
	return result, err
}

// HasHandler returns true if a handler is registered for the key.
func (d *Dispatcher) HasHandler(key string) bool {
	_, ok := d.handlers[key]
	return ok
}

func (d *Dispatcher) withBuffer(key string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)

	d.mu.Lock()
	d.buffers[key] = buffer
	d.mu.Unlock()

	keyAttr := attribute.String("event", key)

	go func() {
		for e := range buffer {
			if _, err := h(e); err != nil {
				d.logger.Error("buffered event failed", "event", key, "error", err)
			}
		}
	}()

	if blocking {
		return func(e Event) (string, error) {
			buffer <- e
			return "queued", nil
		}
	}

	return func(e Event) (string, error) {
		select {
		case buffer <- e:
			return "queued", nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(keyAttr))
			return "", fmt.Errorf("queue full: %s", key)
		}
	}
}

func (d *Dispatcher) withLogging(key string, h HandlerFunc) HandlerFunc {
	return func(e Event) (string, error) {
		start := time.Now()
		d.logger.Debug("handling event", "event", key)

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "event", key, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "event", key, "duration", time.Since(start))
		}

		return result, err
	}
}
