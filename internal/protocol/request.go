package protocol

import "strings"

// ListenerMarker is the SessionID value a client sends to register a listener channel.
const ListenerMarker = "ClientListener"

// Flag values carried by EndGame, TimeUp and GameEnd.
const (
	ValueYes            = "yes"
	ValueNo             = "no"
	ValueConfirmed      = "confirmed"
	ValueServerShutDown = "ServerShutDown"
)

// Request is the typed view of an inbound message. Unknown keys are ignored;
// when a key repeats, the last value wins.
type Request struct {
	SessionID    string
	HasSessionID bool
	ListenerID   string
	EndGame      string
	Guess        string
	TimeUp       string
}

// ParseRequest extracts the recognised inbound keys from m.
func ParseRequest(m Message) Request {
	var r Request
	for _, f := range m {
		switch f.Key {
		case KeySessionID:
			r.SessionID = f.Value
			r.HasSessionID = true
		case KeyListenerID:
			r.ListenerID = f.Value
		case KeyEndGame:
			r.EndGame = f.Value
		case KeyGuess:
			r.Guess = f.Value
		case KeyTimeUp:
			r.TimeUp = f.Value
		}
	}
	return r
}

// WantsListener reports whether the request registers a listener channel.
func (r Request) WantsListener() bool {
	return r.SessionID == ListenerMarker
}

// TimeIsUp reports whether the client declared its countdown expired.
func (r Request) TimeIsUp() bool {
	return strings.EqualFold(r.TimeUp, ValueYes)
}

// QuitRequested reports whether the client asked to leave the game.
func (r Request) QuitRequested() bool {
	return strings.EqualFold(r.EndGame, ValueYes)
}

// QuitConfirmed reports whether the client confirmed leaving the game.
func (r Request) QuitConfirmed() bool {
	return strings.EqualFold(r.EndGame, ValueConfirmed)
}
