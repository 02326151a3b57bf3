// Package telnet serves the line-oriented Telnet protocol: option
// negotiation, IAC filtering on input, and CRLF line endings on output.
package telnet

import (
	"bufio"
	"bytes"
	"net"
	"sync"
	"time"
)

// Telnet IAC (Interpret As Command) constants per RFC 854.
const (
	IAC  byte = 255
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250 // Sub-negotiation Begin
	SE   byte = 240 // Sub-negotiation End
	NOP  byte = 241

	OptEcho            byte = 1
	OptSuppressGoAhead byte = 3
)

// Conn wraps a TCP connection with Telnet protocol handling. Reads and
// writes may happen on different goroutines; writes are serialized.
type Conn struct {
	raw    net.Conn
	reader *bufio.Reader
	mu     sync.Mutex

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewConn wraps raw. A zero timeout disables that deadline.
//
// Precondition: raw must be an open connection.
func NewConn(raw net.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		raw:          raw,
		reader:       bufio.NewReaderSize(raw, 4096),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// Negotiate asks the client to suppress go-ahead.
func (c *Conn) Negotiate() error {
	_, err := c.writeRaw([]byte{IAC, WILL, OptSuppressGoAhead})
	return err
}

// ReadLine reads one line of input without its terminator, dropping IAC
// sequences and control characters other than tab.
//
// Postcondition: Returns the next line, or the partial line and the read
// error (including io.EOF).
func (c *Conn) ReadLine() (string, error) {
	if c.readTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	var line bytes.Buffer
	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			return line.String(), err
		}
		switch {
		case b == IAC:
			if err := c.skipCommand(); err != nil {
				return line.String(), err
			}
		case b == '\n':
			return line.String(), nil
		case b == '\r':
			if next, err := c.reader.Peek(1); err == nil && next[0] == '\n' {
				_, _ = c.reader.ReadByte()
			}
			return line.String(), nil
		case b < 32 && b != '\t':
			// dropped
		default:
			line.WriteByte(b)
		}
	}
}

// skipCommand consumes the rest of an IAC sequence.
func (c *Conn) skipCommand() error {
	cmd, err := c.reader.ReadByte()
	if err != nil {
		return err
	}
	switch cmd {
	case WILL, WONT, DO, DONT:
		_, err = c.reader.ReadByte()
		return err
	case SB:
		for {
			b, err := c.reader.ReadByte()
			if err != nil {
				return err
			}
			if b != IAC {
				continue
			}
			next, err := c.reader.ReadByte()
			if err != nil {
				return err
			}
			if next == SE {
				return nil
			}
		}
	}
	return nil
}

// Write sends p with every bare "\n" expanded to "\r\n", so a Conn can
// stand in for any line-oriented io.Writer.
//
// Postcondition: on success n == len(p).
func (c *Conn) Write(p []byte) (int, error) {
	out := make([]byte, 0, len(p)+8)
	for i, b := range p {
		if b == '\n' && (i == 0 || p[i-1] != '\r') {
			out = append(out, '\r')
		}
		out = append(out, b)
	}
	if _, err := c.writeRaw(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteLine sends text followed by CRLF.
func (c *Conn) WriteLine(text string) error {
	_, err := c.Write([]byte(text + "\n"))
	return err
}

// WritePrompt sends text without a line ending.
func (c *Conn) WritePrompt(text string) error {
	_, err := c.writeRaw([]byte(text))
	return err
}

func (c *Conn) writeRaw(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.raw.Write(p)
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// RemoteAddr returns the client's address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}
