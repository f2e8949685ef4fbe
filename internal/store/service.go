package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrInvalidCredentials is returned by Authenticate on a bad username or
// password. The two cases are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service provides the persistence operations over a connected database.
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewService creates a service on an open gorm handle.
func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// EnsureDefaultCar makes sure the default car exists and returns it.
func (s *Service) EnsureDefaultCar() (Car, error) {
	var car Car
	err := s.db.Where(Car{Name: DefaultCarName}).First(&car).Error
	if err == nil {
		return car, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Car{}, fmt.Errorf("looking up default car: %w", err)
	}

	car = Car{Name: DefaultCarName}
	if err := car.SetCalibration(DefaultCalibration()); err != nil {
		return Car{}, err
	}
	if err := s.db.Create(&car).Error; err != nil {
		return Car{}, fmt.Errorf("creating default car: %w", err)
	}
	s.logger.Info().Str("car", DefaultCarName).Msg("Created default car")
	return car, nil
}

// CreateUser registers a new user and grants them the default car, so a
// fresh account is never left without a drivable car.
func (s *Service) CreateUser(username, password string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hashing password: %w", err)
	}

	user := User{Username: username, PasswordHash: string(hash), Role: "user"}
	if err := s.db.Create(&user).Error; err != nil {
		return User{}, fmt.Errorf("creating user %s: %w", username, err)
	}

	car, err := s.EnsureDefaultCar()
	if err != nil {
		return User{}, err
	}
	if err := s.GrantCar(user.ID, car.ID); err != nil {
		return User{}, err
	}

	return user, nil
}

// CreateCar registers a new car with the given calibration.
func (s *Service) CreateCar(name string, cal Calibration) (Car, error) {
	car := Car{Name: name}
	if err := car.SetCalibration(cal); err != nil {
		return Car{}, err
	}
	if err := s.db.Create(&car).Error; err != nil {
		return Car{}, fmt.Errorf("creating car %s: %w", name, err)
	}
	return car, nil
}

// Authenticate checks a username/password pair.
func (s *Service) Authenticate(username, password string) (User, error) {
	var user User
	err := s.db.Where(User{Username: username}).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// UserByName looks up a user by username.
func (s *Service) UserByName(username string) (User, error) {
	var user User
	err := s.db.Where(User{Username: username}).First(&user).Error
	return user, err
}

// CarByName looks up a car by name.
func (s *Service) CarByName(name string) (Car, error) {
	var car Car
	err := s.db.Where(Car{Name: name}).First(&car).Error
	return car, err
}

// GrantCar gives a user access to a car. Granting twice is a no-op.
func (s *Service) GrantCar(userID, carID uint) error {
	user := User{ID: userID}
	car := Car{ID: carID}
	if err := s.db.Model(&user).Association("Cars").Append(&car); err != nil {
		return fmt.Errorf("granting car %d to user %d: %w", carID, userID, err)
	}
	return nil
}

// UserCars lists the cars a user has been granted.
func (s *Service) UserCars(userID uint) ([]Car, error) {
	var cars []Car
	user := User{ID: userID}
	if err := s.db.Model(&user).Association("Cars").Find(&cars); err != nil {
		return nil, err
	}
	return cars, nil
}

// StartRide opens a ride for the user/car pair.
func (s *Service) StartRide(userID, carID uint, startedAt time.Time) (Ride, error) {
	ride := Ride{UserID: userID, CarID: carID, StartedAt: startedAt}
	if err := s.db.Create(&ride).Error; err != nil {
		return Ride{}, fmt.Errorf("starting ride: %w", err)
	}
	return ride, nil
}

// EndRide closes a ride, computing its duration.
func (s *Service) EndRide(rideID uint, endedAt time.Time) error {
	var ride Ride
	if err := s.db.First(&ride, rideID).Error; err != nil {
		return fmt.Errorf("looking up ride %d: %w", rideID, err)
	}

	duration := endedAt.Sub(ride.StartedAt).Seconds()
	if duration < 0 {
		duration = 0
	}
	if err := s.db.Model(&ride).Update("duration_seconds", duration).Error; err != nil {
		return fmt.Errorf("ending ride %d: %w", rideID, err)
	}
	return nil
}

// RidesPerUser aggregates ride count and total drive time per user.
func (s *Service) RidesPerUser() ([]UserRideStats, error) {
	var stats []UserRideStats
	err := s.db.Model(&Ride{}).
		Select("users.username AS username, COUNT(rides.id) AS ride_count, COALESCE(SUM(rides.duration_seconds), 0) AS total_seconds").
		Joins("JOIN users ON users.id = rides.user_id").
		Group("users.username").
		Order("total_seconds DESC").
		Scan(&stats).Error
	return stats, err
}

// CarUsage aggregates ride count and total drive time per car.
func (s *Service) CarUsage() ([]CarUsageStats, error) {
	var stats []CarUsageStats
	err := s.db.Model(&Ride{}).
		Select("cars.name AS car_name, COUNT(rides.id) AS ride_count, COALESCE(SUM(rides.duration_seconds), 0) AS total_seconds").
		Joins("JOIN cars ON cars.id = rides.car_id").
		Group("cars.name").
		Order("total_seconds DESC").
		Scan(&stats).Error
	return stats, err
}

// RecentRides returns the newest rides with user and car preloaded.
func (s *Service) RecentRides(limit int) ([]Ride, error) {
	var rides []Ride
	err := s.db.Preload("User").Preload("Car").
		Order("started_at DESC").
		Limit(limit).
		Find(&rides).Error
	return rides, err
}
