// rccar-admin is the maintenance tool for the ride database: account and
// car management plus the dashboard queries, run against the same config
// as the daemon.
package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/openrccar/rccard/internal/config"
	"github.com/openrccar/rccard/internal/store"
)

var logger zerolog.Logger

func usage() {
	fmt.Println("usage: rccar-admin <command> [args]")
	fmt.Println()
	fmt.Println("commands:")
	fmt.Println("  adduser <username> <password>   create a user (granted the default car)")
	fmt.Println("  addcar <name>                   create a car with default calibration")
	fmt.Println("  grantcar <username> <carname>   give a user access to a car")
	fmt.Println("  users                           ride totals per user")
	fmt.Println("  cars                            drive time per car")
	fmt.Println("  rides [limit]                   most recent rides")
	fmt.Println("  exportrides [limit]             dump recent rides to a gzipped JSON file")
}

func connect() (*store.Service, func(), error) {
	if err := config.Load("."); err != nil {
		// defaults still apply
		logger.Warn().Err(err).Msg("Failed to load config, using defaults")
	}

	dbm := store.NewManager(logger)
	if err := dbm.Connect(); err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	return store.NewService(dbm.DB, logger), func() { dbm.Close() }, nil
}

func addUser(svc *store.Service, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("adduser needs <username> <password>")
	}
	user, err := svc.CreateUser(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("created user %s (id %d)\n", user.Username, user.ID)
	return nil
}

func addCar(svc *store.Service, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("addcar needs <name>")
	}
	car, err := svc.CreateCar(args[0], store.DefaultCalibration())
	if err != nil {
		return err
	}
	fmt.Printf("created car %s (id %d)\n", car.Name, car.ID)
	return nil
}

func grantCar(svc *store.Service, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("grantcar needs <username> <carname>")
	}
	user, err := svc.UserByName(args[0])
	if err != nil {
		return fmt.Errorf("looking up user %s: %w", args[0], err)
	}
	car, err := svc.CarByName(args[1])
	if err != nil {
		return fmt.Errorf("looking up car %s: %w", args[1], err)
	}
	if err := svc.GrantCar(user.ID, car.ID); err != nil {
		return err
	}
	fmt.Printf("granted %s to %s\n", car.Name, user.Username)
	return nil
}

func listUsers(svc *store.Service) error {
	stats, err := svc.RidesPerUser()
	if err != nil {
		return err
	}
	fmt.Printf("%-20s %8s %12s\n", "USER", "RIDES", "DRIVE TIME")
	for _, s := range stats {
		fmt.Printf("%-20s %8d %12s\n", s.Username, s.RideCount,
			time.Duration(s.TotalSeconds*float64(time.Second)).Round(time.Second))
	}
	return nil
}

func listCars(svc *store.Service) error {
	stats, err := svc.CarUsage()
	if err != nil {
		return err
	}
	fmt.Printf("%-20s %8s %12s\n", "CAR", "RIDES", "DRIVE TIME")
	for _, s := range stats {
		fmt.Printf("%-20s %8d %12s\n", s.CarName, s.RideCount,
			time.Duration(s.TotalSeconds*float64(time.Second)).Round(time.Second))
	}
	return nil
}

func parseLimit(args []string) (int, error) {
	if len(args) == 0 {
		return 20, nil
	}
	limit, err := strconv.Atoi(args[0])
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit: %s", args[0])
	}
	return limit, nil
}

func listRides(svc *store.Service, args []string) error {
	limit, err := parseLimit(args)
	if err != nil {
		return err
	}
	rides, err := svc.RecentRides(limit)
	if err != nil {
		return err
	}
	fmt.Printf("%-6s %-20s %-20s %-20s %10s\n", "ID", "USER", "CAR", "STARTED", "DURATION")
	for _, r := range rides {
		fmt.Printf("%-6d %-20s %-20s %-20s %10s\n",
			r.ID, r.User.Username, r.Car.Name,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			time.Duration(r.DurationSeconds*float64(time.Second)).Round(time.Second))
	}
	return nil
}

func exportRides(svc *store.Service, args []string) error {
	limit, err := parseLimit(args)
	if err != nil {
		return err
	}
	rides, err := svc.RecentRides(limit)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(rides)
	if err != nil {
		return fmt.Errorf("marshalling rides: %w", err)
	}

	fileName := fmt.Sprintf("rides_%s.json.gz", time.Now().Format("20060102_150405"))
	f, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()
	if _, err := gzWriter.Write(raw); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}

	fmt.Printf("wrote %d rides to %s\n", len(rides), fileName)
	return nil
}

func main() {
	logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	svc, closeDB, err := connect()
	if err != nil {
		logger.Fatal().Err(err).Msg("Database connection failed")
	}
	defer closeDB()

	switch strings.ToLower(args[0]) {
	case "adduser":
		err = addUser(svc, args[1:])
	case "addcar":
		err = addCar(svc, args[1:])
	case "grantcar":
		err = grantCar(svc, args[1:])
	case "users":
		err = listUsers(svc)
	case "cars":
		err = listCars(svc)
	case "rides":
		err = listRides(svc, args[1:])
	case "exportrides":
		err = exportRides(svc, args[1:])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "rccar-admin: %v\n", err)
		os.Exit(1)
	}
}
