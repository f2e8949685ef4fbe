// Package parser converts raw input lines into tagged protocol commands.
// It is purely syntactic: no driver calls, no range validation beyond what
// the actuator drivers themselves clamp.
package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/openrccar/rccard/pkg/protocol"
)

var (
	// ErrEmptyLine marks a blank input line. Blank lines are ignored by the
	// control loop and produce no response.
	ErrEmptyLine = errors.New("empty line")

	// ErrUnknownCommand marks a line that matches no grammar row.
	ErrUnknownCommand = errors.New("unknown command")
)

const (
	motorPrefix = "W:"
	steerPrefix = "STEER:"
)

// Parser provides pure string -> protocol.Command conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// New creates a parser with only a logger dependency.
func New(logger *slog.Logger) *Parser {
	return &Parser{logger: logger}
}

// ParseLine parses one newline-stripped input line. The verb is matched by
// prefix; the argument token is trimmed and uppercased before matching.
func (p *Parser) ParseLine(line string) (protocol.Command, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return protocol.Command{}, ErrEmptyLine
	}

	switch {
	case strings.HasPrefix(trimmed, motorPrefix):
		arg := strings.TrimSpace(trimmed[len(motorPrefix):])
		power, err := strconv.Atoi(arg)
		if err != nil {
			return protocol.Command{}, fmt.Errorf("%w: %s", ErrUnknownCommand, line)
		}
		return protocol.Command{Verb: protocol.VerbMotorPower, Power: power, Raw: line}, nil

	case strings.HasPrefix(trimmed, steerPrefix):
		arg := strings.ToUpper(strings.TrimSpace(trimmed[len(steerPrefix):]))
		verb := protocol.VerbUnknown
		switch arg {
		case "L":
			verb = protocol.VerbSteerLeft
		case "R":
			verb = protocol.VerbSteerRight
		case "C":
			verb = protocol.VerbSteerCenter
		case "STOP":
			verb = protocol.VerbSteerStop
		default:
			return protocol.Command{}, fmt.Errorf("%w: %s", ErrUnknownCommand, line)
		}
		p.logger.Debug("parsed steer command", "arg", arg)
		return protocol.Command{Verb: verb, Raw: line}, nil

	default:
		return protocol.Command{}, fmt.Errorf("%w: %s", ErrUnknownCommand, line)
	}
}
