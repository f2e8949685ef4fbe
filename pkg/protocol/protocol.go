// Package protocol defines the line protocol spoken between the car daemon
// and its command sources (desktop and web front ends). Commands and
// responses are newline-terminated ASCII with no framing beyond the newline.
package protocol

import "fmt"

// Version is reported in the startup banner.
const Version = "1.2.0"

// Verb identifies one command of the line protocol.
type Verb int

const (
	VerbUnknown Verb = iota
	VerbMotorPower
	VerbSteerLeft
	VerbSteerRight
	VerbSteerCenter
	VerbSteerStop
)

// Key returns the stable registration key for a verb. Handlers are
// registered against these keys, one per grammar row.
func (v Verb) Key() string {
	switch v {
	case VerbMotorPower:
		return "W"
	case VerbSteerLeft:
		return "STEER:L"
	case VerbSteerRight:
		return "STEER:R"
	case VerbSteerCenter:
		return "STEER:C"
	case VerbSteerStop:
		return "STEER:STOP"
	default:
		return "UNKNOWN"
	}
}

func (v Verb) String() string {
	return v.Key()
}

// Command is the parsed form of one input line. It is created per line and
// discarded after dispatch.
type Command struct {
	Verb Verb

	// Power carries the integer argument of a W: command. Only 1 means
	// drive; every other integer is a stop.
	Power int

	// Raw is the original line as received, kept for diagnostics.
	Raw string
}

// FormatOK builds a success response. The detail text is free-form
// diagnostic output and is not meant for machine parsing.
func FormatOK(detail string) string {
	return "[OK] " + detail
}

// FormatErr builds the invalid-command response, echoing the offending line.
func FormatErr(line string) string {
	return "[ERR] invalid cmd: " + line
}

// Banner returns the human-readable greeting written once at startup. It is
// not part of the command protocol and consumers must not parse it as a
// command.
func Banner() string {
	return fmt.Sprintf(
		"rccard %s ready\n"+
			"commands: W:<n> | STEER:L | STEER:R | STEER:C | STEER:STOP\n"+
			"responses: [OK] ... | [ERR] invalid cmd: ...",
		Version,
	)
}
