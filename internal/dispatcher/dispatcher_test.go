package dispatcher

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrccar/rccard/pkg/protocol"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, keysAndValues ...any) {}
func (nopLogger) Info(msg string, keysAndValues ...any)  {}
func (nopLogger) Error(msg string, keysAndValues ...any) {}

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	d, err := New(nopLogger{})
	require.NoError(t, err)
	return d
}

func TestDispatch(t *testing.T) {
	d := newTestDispatcher(t)

	var got Event
	d.Register(protocol.VerbSteerLeft.Key(), func(e Event) (string, error) {
		got = e
		return "target -400", nil
	})

	e := Event{
		Key:      protocol.VerbSteerLeft.Key(),
		Cmd:      protocol.Command{Verb: protocol.VerbSteerLeft, Raw: "STEER:L"},
		Received: time.Now(),
	}
	result, err := d.Dispatch(e)
	require.NoError(t, err)
	assert.Equal(t, "target -400", result)
	assert.Equal(t, "STEER:L", got.Cmd.Raw)
}

func TestDispatch_NoHandler(t *testing.T) {
	d := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Key: "FOO"})
	assert.Error(t, err)
	assert.False(t, d.HasHandler("FOO"))
}

func TestDispatch_HandlerError(t *testing.T) {
	d := newTestDispatcher(t)

	wantErr := errors.New("boom")
	d.Register("W", func(Event) (string, error) { return "", wantErr })

	_, err := d.Dispatch(Event{Key: "W"})
	assert.ErrorIs(t, err, wantErr)
}

func TestRegister_Logged(t *testing.T) {
	d := newTestDispatcher(t)

	d.Register("W", func(Event) (string, error) { return "ok", nil }, Logged())

	result, err := d.Dispatch(Event{Key: "W"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestRegister_Buffered(t *testing.T) {
	d := newTestDispatcher(t)

	var mu sync.Mutex
	var handled []string
	done := make(chan struct{})

	d.Register("ride.start", func(e Event) (string, error) {
		mu.Lock()
		handled = append(handled, e.Cmd.Raw)
		mu.Unlock()
		done <- struct{}{}
		return "", nil
	}, Buffered(4))

	result, err := d.Dispatch(Event{Key: "ride.start", Cmd: protocol.Command{Raw: "W:1"}})
	require.NoError(t, err)
	assert.Equal(t, "queued", result)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("buffered handler never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"W:1"}, handled)
}

func TestRegister_BufferedDropsWhenFull(t *testing.T) {
	d := newTestDispatcher(t)

	block := make(chan struct{})
	d.Register("ride.end", func(Event) (string, error) {
		<-block
		return "", nil
	}, Buffered(1))
	defer close(block)

	// first fills the worker, second fills the buffer, third is dropped
	_, err := d.Dispatch(Event{Key: "ride.end"})
	require.NoError(t, err)

	var sawDrop bool
	for i := 0; i < 10; i++ {
		if _, err := d.Dispatch(Event{Key: "ride.end"}); err != nil {
			sawDrop = true
			break
		}
	}
	assert.True(t, sawDrop, "expected a drop once the queue filled")
}
