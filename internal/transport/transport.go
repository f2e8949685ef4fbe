// Package transport frames the byte-oriented command connection:
// newline-terminated ASCII lines in, newline-terminated responses out.
// A reader goroutine feeds an internal queue so the control loop can poll
// for input without ever blocking.
package transport

import (
	"bufio"
	"io"
	"log/slog"

	"github.com/openrccar/rccard/internal/queue"
)

// MaxLineLength caps how many bytes of a line are buffered. Once a line
// exceeds the cap, further bytes are dropped silently until the next
// newline; the truncated prefix is still delivered. Not an error.
const MaxLineLength = 128

// LineConn frames lines over any byte stream.
type LineConn struct {
	rw     io.ReadWriter
	closer io.Closer
	lines  *queue.Queue[string]
	logger *slog.Logger
	done   chan struct{}
}

// New wraps a byte stream and starts the reader goroutine. If rw also
// implements io.Closer it is closed by Close.
func New(rw io.ReadWriter, logger *slog.Logger) *LineConn {
	c := &LineConn{
		rw:     rw,
		lines:  queue.New[string](),
		logger: logger,
		done:   make(chan struct{}),
	}
	if closer, ok := rw.(io.Closer); ok {
		c.closer = closer
	}
	go c.readLoop()
	return c
}

func (c *LineConn) readLoop() {
	defer close(c.done)

	r := bufio.NewReader(c.rw)
	line := make([]byte, 0, MaxLineLength)
	overflowed := false

	for {
		b, err := r.ReadByte()
		if err != nil {
			if err != io.EOF {
				c.logger.Debug("connection read ended", "error", err)
			}
			return
		}

		switch b {
		case '\n':
			c.lines.Push(string(trimCR(line)))
			line = line[:0]
			overflowed = false
		default:
			if len(line) >= MaxLineLength {
				if !overflowed {
					c.logger.Debug("input line exceeds cap, dropping excess",
						"cap", MaxLineLength)
					overflowed = true
				}
				continue
			}
			line = append(line, b)
		}
	}
}

func trimCR(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\r' {
		return line[:n-1]
	}
	return line
}

// Poll returns the next complete input line, if one is available. It never
// blocks.
func (c *LineConn) Poll() (string, bool) {
	return c.lines.Pop()
}

// Pending returns the number of complete lines waiting to be polled.
func (c *LineConn) Pending() int {
	return c.lines.Len()
}

// WriteLine writes one newline-terminated line to the peer.
func (c *LineConn) WriteLine(line string) error {
	_, err := c.rw.Write(append([]byte(line), '\n'))
	return err
}

// Done is closed once the reader goroutine has exited (peer closed the
// stream or a read error occurred).
func (c *LineConn) Done() <-chan struct{} {
	return c.done
}

// Close closes the underlying stream if it is closable.
func (c *LineConn) Close() error {
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
