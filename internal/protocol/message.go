// Package protocol implements the semicolon/equals text wire format used by
// game clients: "key1=value1;key2=value2", order-insensitive, with an
// optional trailing separator.
package protocol

import (
	"fmt"
	"strings"
)

// Inbound keys.
const (
	KeySessionID  = "SessionID"
	KeyListenerID = "ListenerID"
	KeyEndGame    = "EndGame"
	KeyGuess      = "Guess"
	KeyTimeUp     = "TimeUp"
)

// Outbound keys not shared with requests.
const (
	KeyGameString     = "GameString"
	KeyRemainingWords = "RemainingWords"
	KeyGameMessage    = "GameMessage"
	KeyGameEnd        = "GameEnd"
)

const (
	fieldSep = ";"
	kvSep    = "="
)

// Field is a single key/value pair.
type Field struct {
	Key   string
	Value string
}

// Message is an ordered list of fields. Keys are unique when built with Set.
type Message []Field

// MalformedFieldError reports a field that does not split into a key and a value.
type MalformedFieldError struct {
	Field string
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("malformed field %q: expected key=value", e.Field)
}

// Get returns the value of the last field named key.
func (m Message) Get(key string) (string, bool) {
	for i := len(m) - 1; i >= 0; i-- {
		if m[i].Key == key {
			return m[i].Value, true
		}
	}
	return "", false
}

// Set replaces the value of key, or appends it when absent.
func (m Message) Set(key, value string) Message {
	for i := range m {
		if m[i].Key == key {
			m[i].Value = value
			return m
		}
	}
	return append(m, Field{Key: key, Value: value})
}

// Keys returns the field keys in order.
func (m Message) Keys() []string {
	keys := make([]string, len(m))
	for i, f := range m {
		keys[i] = f.Key
	}
	return keys
}

// Encode renders the message in wire form without a trailing separator.
func (m Message) Encode() string {
	var b strings.Builder
	for i, f := range m {
		if i > 0 {
			b.WriteString(fieldSep)
		}
		b.WriteString(f.Key)
		b.WriteString(kvSep)
		b.WriteString(f.Value)
	}
	return b.String()
}

// String implements fmt.Stringer.
func (m Message) String() string {
	return m.Encode()
}

// Decode parses wire text into a Message. Each field is split on its first
// '=' and both halves are trimmed. Empty fields are skipped. A field without
// '=' is malformed: decoding continues with the remaining fields, and the
// returned error is a *MalformedFieldError for the last malformed field.
//
// Postcondition: Returns every well-formed field, plus a non-nil error when
// at least one field was malformed.
func Decode(data []byte) (Message, error) {
	var (
		msg     Message
		lastErr error
	)
	for _, raw := range strings.Split(string(data), fieldSep) {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		key, value, ok := strings.Cut(raw, kvSep)
		if !ok {
			lastErr = &MalformedFieldError{Field: strings.TrimSpace(raw)}
			continue
		}
		msg = append(msg, Field{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)})
	}
	return msg, lastErr
}
