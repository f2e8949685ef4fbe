package parser

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrccar/rccard/pkg/protocol"
)

func newTestParser() *Parser {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParseLine(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name  string
		input string
		want  protocol.Command
	}{
		{
			name:  "motor drive",
			input: "W:1",
			want:  protocol.Command{Verb: protocol.VerbMotorPower, Power: 1, Raw: "W:1"},
		},
		{
			name:  "motor stop",
			input: "W:0",
			want:  protocol.Command{Verb: protocol.VerbMotorPower, Power: 0, Raw: "W:0"},
		},
		{
			name:  "motor arbitrary integer",
			input: "W:42",
			want:  protocol.Command{Verb: protocol.VerbMotorPower, Power: 42, Raw: "W:42"},
		},
		{
			name:  "motor negative integer",
			input: "W:-7",
			want:  protocol.Command{Verb: protocol.VerbMotorPower, Power: -7, Raw: "W:-7"},
		},
		{
			name:  "steer left",
			input: "STEER:L",
			want:  protocol.Command{Verb: protocol.VerbSteerLeft, Raw: "STEER:L"},
		},
		{
			name:  "steer right lowercase argument",
			input: "STEER:r",
			want:  protocol.Command{Verb: protocol.VerbSteerRight, Raw: "STEER:r"},
		},
		{
			name:  "steer center",
			input: "STEER:C",
			want:  protocol.Command{Verb: protocol.VerbSteerCenter, Raw: "STEER:C"},
		},
		{
			name:  "steer stop",
			input: "STEER:STOP",
			want:  protocol.Command{Verb: protocol.VerbSteerStop, Raw: "STEER:STOP"},
		},
		{
			name:  "steer stop mixed case",
			input: "STEER:stop",
			want:  protocol.Command{Verb: protocol.VerbSteerStop, Raw: "STEER:stop"},
		},
		{
			name:  "argument with surrounding whitespace",
			input: "STEER: l ",
			want:  protocol.Command{Verb: protocol.VerbSteerLeft, Raw: "STEER: l "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ParseLine(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLine_EmptyLine(t *testing.T) {
	p := newTestParser()

	for _, input := range []string{"", "   ", "\t"} {
		_, err := p.ParseLine(input)
		assert.ErrorIs(t, err, ErrEmptyLine, "input %q", input)
	}
}

func TestParseLine_UnknownCommand(t *testing.T) {
	p := newTestParser()

	tests := []string{
		"FOO:BAR",
		"STEER:X",
		"STEER:",
		"W:abc",
		"W:",
		"w:1", // verb match is exact, only the argument is case-insensitive
		"steer:L",
		"STEERL",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := p.ParseLine(input)
			require.ErrorIs(t, err, ErrUnknownCommand)
			assert.Contains(t, err.Error(), input)
		})
	}
}
