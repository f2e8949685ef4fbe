package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"periph.io/x/conn/v3/physic"

	"github.com/openrccar/rccard/internal/actuator"
	"github.com/openrccar/rccard/internal/config"
	"github.com/openrccar/rccard/internal/control"
	"github.com/openrccar/rccard/internal/dispatcher"
	"github.com/openrccar/rccard/internal/gpio"
	"github.com/openrccar/rccard/internal/logging"
	"github.com/openrccar/rccard/internal/monitor"
	"github.com/openrccar/rccard/internal/parser"
	"github.com/openrccar/rccard/internal/session"
	"github.com/openrccar/rccard/internal/store"
	"github.com/openrccar/rccard/internal/telemetry"
	"github.com/openrccar/rccard/internal/transport"
)

const DaemonName = "rccard"

var (
	SessionStartTime time.Time = time.Now()

	// LogManager handles all slog-based logging
	LogManager *logging.Manager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// ZLogger is the zerolog logger used by the database and telemetry
	// managers
	ZLogger zerolog.Logger
)

func setupLogging() *os.File {
	LogManager = logging.NewManager()
	LogManager.Setup(nil, viper.GetString("logLevel"))
	Logger = LogManager.Logger()

	logsDir := viper.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		os.Mkdir(logsDir, 0755)
	}

	logFilePath := logging.LogFilePath(logsDir, DaemonName, SessionStartTime)
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", logFilePath)
		ZLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		return nil
	}

	LogManager.Setup(logFile, viper.GetString("logLevel"))
	Logger = LogManager.Logger()
	Logger.Info("Logging to file", "path", logFilePath)

	ZLogger = zerolog.New(zerolog.MultiLevelWriter(os.Stdout, logFile)).
		With().Timestamp().Logger()
	return logFile
}

// openSession resolves the configured driver and car, applying the car's
// stored calibration over the config defaults. Returns a nil session when
// the database is unavailable or the driver is unknown; the daemon then
// drives without ride recording.
func openSession(svc *store.Service) *session.Session {
	if svc == nil {
		return nil
	}

	if _, err := svc.EnsureDefaultCar(); err != nil {
		Logger.Error("Failed to ensure default car", "error", err)
		return nil
	}

	username := viper.GetString("ride.username")
	user, err := svc.UserByName(username)
	if err != nil {
		Logger.Warn("Configured driver not found, rides will not be recorded",
			"username", username, "error", err)
		return nil
	}

	carName := viper.GetString("ride.car")
	car, err := svc.CarByName(carName)
	if err != nil {
		Logger.Warn("Configured car not found, rides will not be recorded",
			"car", carName, "error", err)
		return nil
	}

	Logger.Info("Session opened", "driver", user.Username, "car", car.Name)
	return session.New(user, car)
}

// steeringConfig layers the session car's calibration over the config
// defaults. Zero calibration values leave the defaults in place.
func steeringConfig(sess *session.Session) (cfg actuator.StepperConfig, stepsFor45 int64) {
	cfg = actuator.StepperConfig{
		MaxPositionSteps:  viper.GetInt64("steering.maxPositionSteps"),
		MaxStepsPerSecond: viper.GetInt64("steering.maxStepsPerSecond"),
	}
	stepsFor45 = viper.GetInt64("steering.stepsFor45Deg")

	if sess == nil {
		return cfg, stepsFor45
	}

	car := sess.Car()
	cal, err := car.GetCalibration()
	if err != nil {
		Logger.Warn("Unreadable car calibration, using config defaults",
			"car", car.Name, "error", err)
		return cfg, stepsFor45
	}

	if cal.MaxPositionSteps > 0 {
		cfg.MaxPositionSteps = cal.MaxPositionSteps
	}
	if cal.MaxStepsPerSecond > 0 {
		cfg.MaxStepsPerSecond = cal.MaxStepsPerSecond
	}
	if cal.StepsFor45Deg > 0 {
		stepsFor45 = cal.StepsFor45Deg
	}
	return cfg, stepsFor45
}

// openPins selects the pin backend. "periph" drives real header pins;
// anything else runs the in-memory simulation.
func openPins() (actuator.MotorPins, actuator.StepperPins, error) {
	if viper.GetString("gpio.backend") != "periph" {
		Logger.Info("Using simulated pin backend")
		return actuator.NewSimMotorPins(), actuator.NewSimStepperPins(), nil
	}

	if err := gpio.Init(); err != nil {
		return nil, nil, err
	}

	cfg := gpio.Config{
		MotorIn1:       viper.GetString("gpio.motorIn1"),
		MotorIn2:       viper.GetString("gpio.motorIn2"),
		MotorPWM:       viper.GetString("gpio.motorPWM"),
		StepperStep:    viper.GetString("gpio.stepperStep"),
		StepperDir:     viper.GetString("gpio.stepperDir"),
		StepperEnable:  viper.GetString("gpio.stepperEnable"),
		PWMFrequency:   physic.Frequency(viper.GetInt64("gpio.pwmFrequencyHz")) * physic.Hertz,
		StepPulseWidth: viper.GetDuration("gpio.stepPulseWidth"),
	}

	motorPins, err := gpio.NewMotorPins(cfg, Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening motor pins: %w", err)
	}
	stepperPins, err := gpio.NewStepperPins(cfg, Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening stepper pins: %w", err)
	}
	Logger.Info("Using periph pin backend")
	return motorPins, stepperPins, nil
}

func run() error {
	configDir := "."
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	if err := config.Load(configDir); err != nil {
		// defaults are still in place, so keep going
		fmt.Fprintf(os.Stderr, "Failed to load config, using defaults: %v\n", err)
	}

	logFile := setupLogging()
	if logFile != nil {
		defer logFile.Close()
	}
	Logger.Info("Starting up...", "daemon", DaemonName)

	// database is optional; without it the car still drives
	var svc *store.Service
	dbm := store.NewManager(ZLogger)
	if err := dbm.Connect(); err != nil {
		Logger.Error("Database unavailable, rides will not be recorded", "error", err)
	} else {
		svc = store.NewService(dbm.DB, ZLogger)
		defer dbm.Close()
	}

	sess := openSession(svc)

	stepperCfg, stepsFor45 := steeringConfig(sess)

	motorPins, stepperPins, err := openPins()
	if err != nil {
		return fmt.Errorf("opening pin backend: %w", err)
	}

	motor := actuator.NewMotor(motorPins, Logger)
	stepper, err := actuator.NewStepper(stepperPins, actuator.NewClock(), stepperCfg, Logger)
	if err != nil {
		return fmt.Errorf("creating stepper: %w", err)
	}

	disp, err := dispatcher.New(Logger)
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	if svc != nil && sess != nil {
		control.NewRideRecorder(svc, sess, Logger).Register(disp)
	}

	conn, err := transport.OpenSerial(transport.SerialConfig{
		Port: viper.GetString("serial.port"),
		Baud: viper.GetInt("serial.baud"),
	}, Logger)
	if err != nil {
		return fmt.Errorf("opening command connection: %w", err)
	}
	defer conn.Close()

	loop, err := control.New(control.Deps{
		Conn:          conn,
		Parser:        parser.New(Logger),
		Dispatcher:    disp,
		Motor:         motor,
		Stepper:       stepper,
		Session:       sess,
		Logger:        Logger,
		StepsFor45Deg: stepsFor45,
		Interval:      viper.GetDuration("control.loopInterval"),
	})
	if err != nil {
		return fmt.Errorf("creating control loop: %w", err)
	}

	var tele *telemetry.Manager
	backupPath := filepath.Join(viper.GetString("logsDir"),
		fmt.Sprintf("%s_telemetry.%s.gz", DaemonName, SessionStartTime.Format("20060102_150405")))
	t := telemetry.NewManager(ZLogger, backupPath)
	if err := t.Connect(); err != nil {
		if !errors.Is(err, telemetry.ErrDisabled) {
			Logger.Error("Telemetry unavailable", "error", err)
		}
	} else {
		tele = t
		defer t.Close()
	}

	carName := viper.GetString("ride.car")
	monitorService := monitor.NewService(monitor.Dependencies{
		Source:     loop,
		Logger:     Logger,
		Telemetry:  tele,
		CarName:    carName,
		Interval:   viper.GetDuration("monitor.interval"),
		StatusPath: filepath.Join(viper.GetString("logsDir"), "status.txt"),
	})
	monitorService.Start()
	defer monitorService.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		Logger.Info("Shutdown signal received")
		return nil
	}
	return err
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", DaemonName, err)
		os.Exit(1)
	}
}
