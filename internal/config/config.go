// Package config loads daemon configuration through viper: a JSON config
// file layered over defaults.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Load reads configuration from the JSON config file and sets default
// values. configDir is the directory containing the config file.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./rccarlogs")

	viper.SetDefault("serial.port", "") // empty means autodetect
	viper.SetDefault("serial.baud", 115200)

	viper.SetDefault("control.loopInterval", "500us")

	viper.SetDefault("steering.maxPositionSteps", 400)
	viper.SetDefault("steering.maxStepsPerSecond", 800)
	viper.SetDefault("steering.stepsFor45Deg", 400)

	viper.SetDefault("gpio.backend", "sim")
	viper.SetDefault("gpio.motorIn1", "GPIO5")
	viper.SetDefault("gpio.motorIn2", "GPIO6")
	viper.SetDefault("gpio.motorPWM", "GPIO12")
	viper.SetDefault("gpio.stepperStep", "GPIO20")
	viper.SetDefault("gpio.stepperDir", "GPIO21")
	viper.SetDefault("gpio.stepperEnable", "GPIO16")
	viper.SetDefault("gpio.pwmFrequencyHz", 25000)
	viper.SetDefault("gpio.stepPulseWidth", "2us")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "rccar")
	viper.SetDefault("db.sqlitePath", "./rccar.db")

	viper.SetDefault("ride.username", "driver")
	viper.SetDefault("ride.car", "DefaultCar")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "rccar-metrics")
	viper.SetDefault("influx.bucket", "rccar_telemetry")

	viper.SetDefault("monitor.interval", "30s")

	viper.SetConfigName("rccard.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetInt64 returns an int64 config value.
func GetInt64(key string) int64 {
	return viper.GetInt64(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
