// Package monitor reports control loop health at a fixed interval.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/openrccar/rccard/internal/telemetry"
)

// Status is one snapshot of the control loop and actuators.
type Status struct {
	Time           time.Time `json:"time"`
	Iterations     int       `json:"iterations"`
	PendingLines   int       `json:"pendingLines"`
	MotorDirection string    `json:"motorDirection"`
	MotorPower     int       `json:"motorPower"`
	SteerPosition  int64     `json:"steerPosition"`
	SteerTarget    int64     `json:"steerTarget"`
}

// StatusSource produces snapshots. The control loop implements this.
type StatusSource interface {
	Status() Status
}

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	Source     StatusSource
	Logger     *slog.Logger
	Telemetry  *telemetry.Manager
	CarName    string
	Interval   time.Duration
	StatusPath string
}

// Service manages status monitoring.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = 30 * time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug("Starting status monitor goroutine", "function", "statusMonitor")

		var statusFile *os.File
		if s.deps.StatusPath != "" {
			var err error
			statusFile, err = os.Create(s.deps.StatusPath)
			if err != nil {
				s.deps.Logger.Error("Error creating status file", "error", err)
			} else {
				defer statusFile.Close()
			}
		}

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.report(statusFile)
			}
		}
	}()

	return nil
}

func (s *Service) report(statusFile *os.File) {
	status := s.deps.Source.Status()
	status.Time = time.Now()

	s.deps.Logger.Info("Control loop status",
		"iterations", status.Iterations,
		"pendingLines", status.PendingLines,
		"motor", status.MotorDirection,
		"power", status.MotorPower,
		"position", status.SteerPosition,
		"target", status.SteerTarget,
	)

	if statusFile != nil {
		raw, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			raw = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
		}
		statusFile.Truncate(0)
		statusFile.Seek(0, 0)
		statusFile.Write(append(raw, '\n'))
	}

	if s.deps.Telemetry != nil {
		err := s.deps.Telemetry.WriteActuatorState(
			s.deps.CarName, status.MotorDirection, status.MotorPower,
			status.SteerPosition, status.SteerTarget)
		if err != nil {
			s.deps.Logger.Error("Error writing actuator telemetry", "error", err)
		}
		err = s.deps.Telemetry.WriteLoopStats(s.deps.CarName, status.Iterations, status.PendingLines)
		if err != nil {
			s.deps.Logger.Error("Error writing loop telemetry", "error", err)
		}
	}
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
