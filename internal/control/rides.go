package control

import (
	"fmt"
	"log/slog"

	"github.com/openrccar/rccard/internal/dispatcher"
	"github.com/openrccar/rccard/internal/session"
	"github.com/openrccar/rccard/internal/store"
)

// Dispatcher keys for the internal ride lifecycle events.
const (
	RideStartKey = "ride.start"
	RideEndKey   = "ride.end"
)

// RideRecorder persists ride transitions. Its handlers register buffered
// so database latency never reaches the control loop.
type RideRecorder struct {
	svc    *store.Service
	sess   *session.Session
	logger *slog.Logger
}

func NewRideRecorder(svc *store.Service, sess *session.Session, logger *slog.Logger) *RideRecorder {
	return &RideRecorder{svc: svc, sess: sess, logger: logger}
}

// Register installs the ride handlers. Blocking buffers keep transitions
// ordered per key even when the database is slow.
func (r *RideRecorder) Register(d *dispatcher.Dispatcher) {
	d.Register(RideStartKey, r.handleStart,
		dispatcher.Buffered(8), dispatcher.Blocking(), dispatcher.Logged())
	d.Register(RideEndKey, r.handleEnd,
		dispatcher.Buffered(8), dispatcher.Blocking(), dispatcher.Logged())
}

func (r *RideRecorder) handleStart(e dispatcher.Event) (string, error) {
	user := r.sess.User()
	car := r.sess.Car()

	ride, err := r.svc.StartRide(user.ID, car.ID, e.Received)
	if err != nil {
		return "", err
	}
	r.sess.AttachRideID(ride.ID)
	r.logger.Debug("ride started", "ride", ride.ID, "user", user.Username, "car", car.Name)
	return fmt.Sprintf("ride %d started", ride.ID), nil
}

func (r *RideRecorder) handleEnd(e dispatcher.Event) (string, error) {
	if e.RideID == 0 {
		// the start write had not finished when the stop came in
		r.logger.Warn("ride ended before its start was persisted, dropping")
		return "", nil
	}
	if err := r.svc.EndRide(e.RideID, e.Received); err != nil {
		return "", err
	}
	r.logger.Debug("ride ended", "ride", e.RideID)
	return fmt.Sprintf("ride %d ended", e.RideID), nil
}
