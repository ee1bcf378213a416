// Package tcp provides the raw TCP transport for the guessword protocol: a
// connection wrapper that reads one bounded message and writes encoded
// replies, and an Acceptor that hands each accepted connection to a handler.
package tcp

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cory-johannsen/guessword/internal/protocol"
)

// ConnError reports a read or write failure on one client connection.
type ConnError struct {
	Op   string // "read", "write" or "close"
	Addr string
	Err  error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// Conn wraps a TCP connection carrying guessword messages. Messages have no
// terminator: a single read is a single request, and a single write is a
// single reply.
type Conn struct {
	raw  net.Conn
	addr string

	readTimeout     time.Duration
	writeTimeout    time.Duration
	maxMessageBytes int

	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps a raw TCP connection.
//
// Precondition: raw must be a valid, open network connection; maxMessageBytes > 0.
// Postcondition: Returns a Conn ready for reading and writing.
func NewConn(raw net.Conn, readTimeout, writeTimeout time.Duration, maxMessageBytes int) *Conn {
	return &Conn{
		raw:             raw,
		addr:            raw.RemoteAddr().String(),
		readTimeout:     readTimeout,
		writeTimeout:    writeTimeout,
		maxMessageBytes: maxMessageBytes,
	}
}

// ReadMessage performs the single bounded read of one request.
//
// Postcondition: Returns the raw request bytes, or a *ConnError. When the read
// returns more than the configured bound the first bound bytes are returned
// together with an error wrapping protocol.ErrMessageTooLarge.
func (c *Conn) ReadMessage() ([]byte, error) {
	if c.readTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	data, err := protocol.ReadFrame(c.raw, c.maxMessageBytes)
	if err != nil {
		if errors.Is(err, protocol.ErrMessageTooLarge) {
			return data, err
		}
		return nil, &ConnError{Op: "read", Addr: c.addr, Err: err}
	}
	return data, nil
}

// Drain discards inbound data until the peer closes the connection or it is
// closed locally. No read deadline applies.
//
// Postcondition: Returns nil when the peer closed cleanly, otherwise a *ConnError.
func (c *Conn) Drain() error {
	_ = c.raw.SetReadDeadline(time.Time{})
	if _, err := io.Copy(io.Discard, c.raw); err != nil {
		return &ConnError{Op: "read", Addr: c.addr, Err: err}
	}
	return nil
}

// Send writes one encoded message. It implements session.Notifier.
//
// Postcondition: The wire form of msg is written, or a *ConnError is returned.
func (c *Conn) Send(msg protocol.Message) error {
	return c.Write([]byte(msg.Encode()))
}

// Write sends raw bytes to the client.
//
// Postcondition: The data is written to the connection, or a *ConnError is returned.
func (c *Conn) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if _, err := c.raw.Write(data); err != nil {
		return &ConnError{Op: "write", Addr: c.addr, Err: err}
	}
	return nil
}

// Close closes the underlying TCP connection. Only the first call has an effect.
//
// Postcondition: The connection is closed and no longer usable.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		if err := c.raw.Close(); err != nil {
			c.closeErr = &ConnError{Op: "close", Addr: c.addr, Err: err}
		}
	})
	return c.closeErr
}

// RemoteAddr returns the remote network address of the client.
func (c *Conn) RemoteAddr() string {
	return c.addr
}
