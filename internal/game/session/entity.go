// Package session provides the per-player game state, listener channels and
// the concurrent registry that maps identifiers to them.
package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cory-johannsen/guessword/internal/protocol"
	"github.com/cory-johannsen/guessword/internal/puzzle"
)

// Registration is an entry in the Registry. It is implemented only by
// *GameSession and *ListenerChannel; switch on the concrete type to dispatch.
type Registration interface {
	// RegistrationID returns the registry key.
	RegistrationID() string
	registration()
}

// GameSession is one player's in-progress puzzle. A GameSession is never
// mutated after construction: a correct guess returns a new value that the
// caller writes back to the Registry.
//
// Invariant: Remaining() == len(Words()) and the game is won exactly when Remaining() == 0.
type GameSession struct {
	id         string
	puzzleName string
	gameString string
	words      map[string]struct{}
	total      int
	listenerID string
	startedAt  time.Time
}

// NewGameSession creates a session for the given puzzle.
//
// Precondition: id must be non-empty; p must be a validated puzzle.
// Postcondition: Every puzzle word is remaining.
func NewGameSession(id string, p *puzzle.Puzzle, startedAt time.Time) *GameSession {
	words := make(map[string]struct{}, len(p.Words))
	for _, w := range p.Words {
		words[w] = struct{}{}
	}
	return &GameSession{
		id:         id,
		puzzleName: p.Name,
		gameString: p.GameString,
		words:      words,
		total:      len(words),
		startedAt:  startedAt,
	}
}

func (*GameSession) registration() {}

// RegistrationID returns the session identifier.
func (s *GameSession) RegistrationID() string { return s.id }

// ID returns the session identifier.
func (s *GameSession) ID() string { return s.id }

// PuzzleName returns the name of the puzzle the session was created from.
func (s *GameSession) PuzzleName() string { return s.puzzleName }

// GameString returns the 80-character carrier string.
func (s *GameSession) GameString() string { return s.gameString }

// Remaining returns the number of words not yet found.
func (s *GameSession) Remaining() int { return len(s.words) }

// Total returns the number of words in the puzzle.
func (s *GameSession) Total() int { return s.total }

// Found returns the number of words already found.
func (s *GameSession) Found() int { return s.total - len(s.words) }

// Solved reports whether every word has been found.
func (s *GameSession) Solved() bool { return len(s.words) == 0 }

// StartedAt returns the creation time.
func (s *GameSession) StartedAt() time.Time { return s.startedAt }

// ListenerID returns the paired listener channel id, or "" if none is known yet.
func (s *GameSession) ListenerID() string { return s.listenerID }

// Has reports whether word is still to be found. Matching is exact and case-sensitive.
func (s *GameSession) Has(word string) bool {
	_, ok := s.words[word]
	return ok
}

// Words returns the remaining words, sorted.
func (s *GameSession) Words() []string {
	out := make([]string, 0, len(s.words))
	for w := range s.words {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Guess checks word against the remaining words.
//
// Postcondition: When word is remaining, returns a copy without it and true;
// otherwise returns the receiver unchanged and false.
func (s *GameSession) Guess(word string) (*GameSession, bool) {
	if !s.Has(word) {
		return s, false
	}
	next := s.clone()
	delete(next.words, word)
	return next, true
}

// WithListener returns a copy paired with the given listener channel id.
func (s *GameSession) WithListener(listenerID string) *GameSession {
	next := s.clone()
	next.listenerID = listenerID
	return next
}

func (s *GameSession) clone() *GameSession {
	next := *s
	next.words = make(map[string]struct{}, len(s.words))
	for w := range s.words {
		next.words[w] = struct{}{}
	}
	return &next
}

// Notifier is a connection held open for server-initiated messages.
type Notifier interface {
	Send(msg protocol.Message) error
	Close() error
}

// ListenerChannel is a long-lived connection a client keeps open to receive
// asynchronous notices. It carries no puzzle state.
type ListenerChannel struct {
	id        string
	notifier  Notifier
	createdAt time.Time

	mu     sync.Mutex
	closed bool
}

// NewListenerChannel creates a listener channel over notifier.
//
// Precondition: id must be non-empty; notifier must be non-nil.
func NewListenerChannel(id string, notifier Notifier, createdAt time.Time) *ListenerChannel {
	return &ListenerChannel{
		id:        id,
		notifier:  notifier,
		createdAt: createdAt,
	}
}

func (*ListenerChannel) registration() {}

// RegistrationID returns the listener identifier.
func (l *ListenerChannel) RegistrationID() string { return l.id }

// ID returns the listener identifier.
func (l *ListenerChannel) ID() string { return l.id }

// CreatedAt returns the registration time.
func (l *ListenerChannel) CreatedAt() time.Time { return l.createdAt }

// Notify writes msg to the held connection.
//
// Postcondition: The message is written, or an error is returned if the channel is closed or the write fails.
func (l *ListenerChannel) Notify(msg protocol.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("listener %s is closed", l.id)
	}
	return l.notifier.Send(msg)
}

// Close closes the held connection. Calling Close more than once is safe.
func (l *ListenerChannel) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.notifier.Close()
}

// IsClosed reports whether the channel has been closed.
func (l *ListenerChannel) IsClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
