package protocol

import (
	"errors"
	"fmt"
	"io"
)

// DefaultMaxMessageBytes is the default bound of a single request read.
const DefaultMaxMessageBytes = 1024

// ErrMessageTooLarge is returned when a read returns more than limit bytes.
var ErrMessageTooLarge = errors.New("message too large")

// ReadFrame performs exactly one bounded read from r. There is no length
// prefix or terminator: one read is one message of at most limit bytes.
//
// Precondition: limit > 0.
// Postcondition: Returns the bytes read, or an error. ErrMessageTooLarge is
// returned together with the first limit bytes.
func ReadFrame(r io.Reader, limit int) ([]byte, error) {
	buf := make([]byte, limit+1)
	n, err := r.Read(buf)
	if n == 0 {
		if err == nil {
			err = io.ErrNoProgress
		}
		return nil, err
	}
	if n > limit {
		return buf[:limit], fmt.Errorf("%w: read exceeded %d bytes", ErrMessageTooLarge, limit)
	}
	return buf[:n], nil
}
