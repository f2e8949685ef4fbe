package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrccar/rccard/internal/store"
)

func TestSession_RideLifecycle(t *testing.T) {
	s := New(store.User{ID: 1, Username: "vojta"}, store.Car{ID: 2, Name: store.DefaultCarName})

	assert.False(t, s.Riding())
	_, _, ok := s.EndRide()
	assert.False(t, ok)

	start := time.Now()
	require.True(t, s.BeginRide(start))
	assert.True(t, s.Riding())

	// a second begin while riding is refused
	assert.False(t, s.BeginRide(start.Add(time.Second)))

	s.AttachRideID(42)

	id, startedAt, ok := s.EndRide()
	require.True(t, ok)
	assert.Equal(t, uint(42), id)
	assert.Equal(t, start, startedAt)
	assert.False(t, s.Riding())
}

func TestSession_SwitchCar(t *testing.T) {
	s := New(store.User{ID: 1}, store.Car{ID: 2, Name: store.DefaultCarName})

	s.SwitchCar(store.Car{ID: 3, Name: "Rallye"})
	assert.Equal(t, "Rallye", s.Car().Name)
	assert.Equal(t, uint(1), s.User().ID)
}

func TestSafeCounter(t *testing.T) {
	var c SafeCounter

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, c.Value())

	c.Set(7)
	assert.Equal(t, 7, c.Value())
}
