package transport

import (
	"fmt"
	"log/slog"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// SerialConfig selects and configures the serial command port.
type SerialConfig struct {
	// Port is the device path. Empty means autodetect.
	Port string
	Baud int
}

// usbKeywords are matched against enumerated port descriptions when
// autodetecting. They cover the common hobbyist USB-serial bridges.
var usbKeywords = []string{
	"arduino",
	"ch340",
	"cp210",
	"usb-serial",
	"usb serial",
	"silicon labs",
	"wch",
	"esp32",
}

// OpenSerial opens the configured serial port and wraps it in a LineConn.
// With an empty port name it scans the available ports and picks the one
// that looks most like a USB-serial bridge.
func OpenSerial(cfg SerialConfig, logger *slog.Logger) (*LineConn, error) {
	name := cfg.Port
	if name == "" {
		detected, err := detectPort()
		if err != nil {
			return nil, err
		}
		logger.Info("autodetected serial port", "port", detected)
		name = detected
	}

	port, err := serial.Open(name, &serial.Mode{BaudRate: cfg.Baud})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", name, err)
	}

	return New(port, logger), nil
}

// detectPort scores enumerated ports by USB description keywords and
// returns the best match, falling back to the first port found.
func detectPort() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("enumerating serial ports: %w", err)
	}
	if len(ports) == 0 {
		return "", fmt.Errorf("no serial ports found")
	}

	best := ports[0].Name
	bestScore := 0
	for _, p := range ports {
		score := scorePort(p)
		if score > bestScore {
			best = p.Name
			bestScore = score
		}
	}
	return best, nil
}

func scorePort(p *enumerator.PortDetails) int {
	if !p.IsUSB {
		return 0
	}
	text := strings.ToLower(p.Product + " " + p.SerialNumber + " " + p.VID + ":" + p.PID)
	score := 1
	for _, kw := range usbKeywords {
		if strings.Contains(text, kw) {
			score += 10
		}
	}
	return score
}
