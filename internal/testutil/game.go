package testutil

import (
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

// GameClient is a raw guessword protocol client for integration testing.
type GameClient struct {
	conn net.Conn
	t    *testing.T
}

// NewGameClient dials the given address and returns a test client.
//
// Precondition: addr must be a valid "host:port" string with a listening server.
// Postcondition: Returns a connected GameClient or fails the test.
func NewGameClient(t *testing.T, addr string) *GameClient {
	t.Helper()
	start := time.Now()

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to %s: %v [%s]", addr, err, time.Since(start))
	}

	t.Cleanup(func() {
		conn.Close()
	})

	return &GameClient{conn: conn, t: t}
}

// Send writes one request. No terminator is appended.
func (c *GameClient) Send(msg string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := c.conn.Write([]byte(msg)); err != nil {
		c.t.Fatalf("sending %q: %v", msg, err)
	}
}

// ReadUntil reads data until the specified substring is found or timeout occurs.
// It returns all data read up to and including the match.
//
// Precondition: substr must be non-empty.
// Postcondition: Returns the accumulated output containing substr, or fails on timeout.
func (c *GameClient) ReadUntil(substr string, timeout time.Duration) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

	var buf strings.Builder
	tmp := make([]byte, 1024)
	for {
		n, err := c.conn.Read(tmp)
		if n > 0 {
			buf.Write(tmp[:n])
			if strings.Contains(buf.String(), substr) {
				return buf.String()
			}
		}
		if err != nil {
			c.t.Fatalf("reading until %q: got %q, error: %v", substr, buf.String(), err)
		}
	}
}

// ReadAll reads until the server closes the connection and returns everything received.
//
// Postcondition: Returns the full output, or fails the test on timeout.
func (c *GameClient) ReadAll(timeout time.Duration) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	data, err := io.ReadAll(c.conn)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		c.t.Fatalf("reading until close: got %q, error: %v", string(data), err)
	}
	return string(data)
}

// Close closes the underlying connection.
func (c *GameClient) Close() {
	c.conn.Close()
}

// Exchange opens a connection, sends one request and returns the full reply
// once the server closes the connection, mirroring the one-request-per-connection protocol.
func Exchange(t *testing.T, addr, msg string) string {
	t.Helper()
	c := NewGameClient(t, addr)
	defer c.Close()
	c.Send(msg)
	return c.ReadAll(5 * time.Second)
}
