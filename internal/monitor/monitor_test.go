package monitor

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeSource) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return Status{
		Iterations:     f.calls * 100,
		PendingLines:   1,
		MotorDirection: "FWD",
		MotorPower:     255,
		SteerPosition:  -120,
		SteerTarget:    -400,
	}
}

func (f *fakeSource) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestService_WritesStatusFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.txt")
	src := &fakeSource{}
	svc := NewService(Dependencies{
		Source:     src,
		Logger:     testLogger(),
		Interval:   10 * time.Millisecond,
		StatusPath: path,
	})

	require.NoError(t, svc.Start())
	assert.True(t, svc.IsRunning())

	require.Eventually(t, func() bool { return src.count() >= 2 },
		2*time.Second, 5*time.Millisecond)

	svc.Stop()
	require.Eventually(t, func() bool { return !svc.IsRunning() },
		2*time.Second, 5*time.Millisecond)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var status Status
	require.NoError(t, json.Unmarshal(raw, &status))
	assert.Equal(t, "FWD", status.MotorDirection)
	assert.Equal(t, int64(-400), status.SteerTarget)
}

func TestService_StartTwice(t *testing.T) {
	svc := NewService(Dependencies{
		Source:   &fakeSource{},
		Logger:   testLogger(),
		Interval: time.Hour,
	})

	require.NoError(t, svc.Start())
	require.NoError(t, svc.Start())
	svc.Stop()
}
