// Package session tracks who is driving which car right now. Latency in
// these calls matters because the control loop consults the session on
// every motor command, so everything is kept in memory behind a mutex.
package session

import (
	"sync"
	"time"

	"github.com/openrccar/rccard/internal/store"
)

// Session is the active driver/car pair and, while the motor is running,
// the open ride.
type Session struct {
	m sync.Mutex

	user store.User
	car  store.Car

	rideID      uint
	rideStarted time.Time
	riding      bool
}

func New(user store.User, car store.Car) *Session {
	return &Session{user: user, car: car}
}

func (s *Session) User() store.User {
	s.m.Lock()
	defer s.m.Unlock()
	return s.user
}

func (s *Session) Car() store.Car {
	s.m.Lock()
	defer s.m.Unlock()
	return s.car
}

// SwitchCar changes the active car. Any open ride stays attached to the
// car it started on.
func (s *Session) SwitchCar(car store.Car) {
	s.m.Lock()
	defer s.m.Unlock()
	s.car = car
}

// BeginRide marks a ride as open. Returns false if one is already open.
func (s *Session) BeginRide(startedAt time.Time) bool {
	s.m.Lock()
	defer s.m.Unlock()
	if s.riding {
		return false
	}
	s.riding = true
	s.rideID = 0
	s.rideStarted = startedAt
	return true
}

// AttachRideID records the persisted ride row once the store has created
// it. The control loop calls BeginRide synchronously and the ID arrives
// later from the buffered handler.
func (s *Session) AttachRideID(id uint) {
	s.m.Lock()
	defer s.m.Unlock()
	s.rideID = id
}

// EndRide closes the open ride and returns its ID and start time. Returns
// false if no ride was open.
func (s *Session) EndRide() (uint, time.Time, bool) {
	s.m.Lock()
	defer s.m.Unlock()
	if !s.riding {
		return 0, time.Time{}, false
	}
	s.riding = false
	return s.rideID, s.rideStarted, true
}

// Riding reports whether a ride is currently open.
func (s *Session) Riding() bool {
	s.m.Lock()
	defer s.m.Unlock()
	return s.riding
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
