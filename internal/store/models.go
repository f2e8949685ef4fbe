// Package store is the relational persistence service: users, cars, access
// grants and ride history, plus the read-only aggregate queries the
// dashboards use. The firmware core never touches this package directly;
// ride records arrive through buffered dispatcher events.
package store

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// DefaultCarName is the car every new user is granted so a fresh install
// has something to drive.
const DefaultCarName = "DefaultCar"

// User is an account that may be granted cars and accumulates rides.
type User struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time

	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null;default:user"`

	Cars  []Car `gorm:"many2many:user_cars"`
	Rides []Ride
}

// Car is a controllable vehicle. Its per-vehicle tuning lives in a JSON
// calibration column.
type Car struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time

	Name        string         `gorm:"uniqueIndex;not null"`
	Calibration datatypes.JSON `gorm:"not null"`

	Users []User `gorm:"many2many:user_cars"`
}

// Calibration holds per-car actuator tuning. Values of zero fall back to
// the daemon config.
type Calibration struct {
	MaxPositionSteps  int64 `json:"maxPositionSteps"`
	MaxStepsPerSecond int64 `json:"maxStepsPerSecond"`
	StepsFor45Deg     int64 `json:"stepsFor45Deg"`
	MotorMaxPWM       int   `json:"motorMaxPWM"`
}

// DefaultCalibration matches the daemon's built-in defaults.
func DefaultCalibration() Calibration {
	return Calibration{
		MaxPositionSteps:  400,
		MaxStepsPerSecond: 800,
		StepsFor45Deg:     400,
		MotorMaxPWM:       255,
	}
}

// SetCalibration stores the calibration in the JSON column.
func (c *Car) SetCalibration(cal Calibration) error {
	raw, err := json.Marshal(cal)
	if err != nil {
		return err
	}
	c.Calibration = datatypes.JSON(raw)
	return nil
}

// GetCalibration decodes the JSON calibration column.
func (c *Car) GetCalibration() (Calibration, error) {
	var cal Calibration
	if len(c.Calibration) == 0 {
		return DefaultCalibration(), nil
	}
	if err := json.Unmarshal(c.Calibration, &cal); err != nil {
		return Calibration{}, err
	}
	return cal, nil
}

// Ride is one driving session: who drove which car and for how long.
type Ride struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time

	UserID uint `gorm:"index;not null"`
	User   User
	CarID  uint `gorm:"index;not null"`
	Car    Car

	StartedAt       time.Time `gorm:"not null"`
	DurationSeconds float64
}

// UserRideStats is one row of the rides-per-user dashboard query.
type UserRideStats struct {
	Username     string
	RideCount    int64
	TotalSeconds float64
}

// CarUsageStats is one row of the drive-time-per-car dashboard query.
type CarUsageStats struct {
	CarName      string
	RideCount    int64
	TotalSeconds float64
}
