// Package engine implements the guessword protocol state machine. It turns one
// decoded request into the response frames for it, creating, mutating and
// removing registrations along the way. It does no network I/O of its own:
// the connection a request arrived on is passed in as a Peer and only retained
// when it becomes a listener channel.
package engine

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/guessword/internal/game/session"
	"github.com/cory-johannsen/guessword/internal/history"
	"github.com/cory-johannsen/guessword/internal/protocol"
	"github.com/cory-johannsen/guessword/internal/puzzle"
)

// Player-facing message texts.
const (
	MsgTimeUp      = "Times Up. Do you want to have a new game try again?"
	MsgConfirmQuit = "Do you really want to exit current game??"
	MsgQuit        = "You have quit the game."
	MsgWin         = "Correct! Congratulations! You have found the all the words! Do you want have a new game?"
	MsgCorrect     = "Correct!"
	MsgWrong       = "Wrong guess!"
	MsgFormatIssue = "Incoming data has format issue key-value, check the incoming data format"
	MsgShutdown    = "Server is shutting down"
	MsgStartFailed = "Unable to start a new game, please try again later."
	MsgUnknownGame = "Unknown game session"
	msgTooLargeFmt = "Message exceeds %d bytes"
)

// ErrUnknownRegistration is logged when the registry holds a registration the
// engine cannot dispatch.
var ErrUnknownRegistration = errors.New("unknown registration type")

// PuzzleLoader supplies a fresh puzzle for each new game.
type PuzzleLoader interface {
	Load() (*puzzle.Puzzle, error)
}

// IDGenerator produces unique registration identifiers.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator generates random (version 4) UUID strings.
type UUIDGenerator struct{}

// NewID returns a new random UUID string.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// Peer is the connection a request arrived on.
type Peer interface {
	session.Notifier
	RemoteAddr() string
}

// Response is the engine's answer to one request.
type Response struct {
	// Frames are written to the peer in order. Each frame is one wire message.
	Frames []protocol.Message
	// Retained reports that the peer is now owned by a listener channel and
	// must not be closed by the caller.
	Retained bool
}

func reply(fields ...protocol.Field) Response {
	return Response{Frames: []protocol.Message{fields}}
}

func field(key, value string) protocol.Field {
	return protocol.Field{Key: key, Value: value}
}

// FormatNotice is the reply to a request containing malformed fields.
func FormatNotice() protocol.Message {
	return protocol.Message{field(protocol.KeyGameMessage, MsgFormatIssue)}
}

// TooLargeNotice is the reply to a request that filled the read buffer.
func TooLargeNotice(limit int) protocol.Message {
	return protocol.Message{field(protocol.KeyGameMessage, fmt.Sprintf(msgTooLargeFmt, limit))}
}

// ShutdownNotice is broadcast to listener channels when the server stops.
func ShutdownNotice() protocol.Message {
	return protocol.Message{
		field(protocol.KeyGameMessage, MsgShutdown),
		field(protocol.KeyGameEnd, protocol.ValueServerShutDown),
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is the protocol state machine. It is safe for concurrent use; all
// shared state lives in the Registry.
type Engine struct {
	registry *session.Registry
	loader   PuzzleLoader
	ids      IDGenerator
	recorder history.Recorder
	logger   *zap.Logger
	now      func() time.Time
}

// New creates an Engine.
//
// Precondition: all arguments must be non-nil.
func New(registry *session.Registry, loader PuzzleLoader, ids IDGenerator, recorder history.Recorder, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		loader:   loader,
		ids:      ids,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the engine operates on.
func (e *Engine) Registry() *session.Registry {
	return e.registry
}

// Handle decodes one raw request and dispatches it.
//
// When the request contains malformed fields the format notice is the whole
// response if the request has no SessionID. Otherwise dispatch continues with
// the well-formed fields and the notice fields lead the first frame, so a
// last-wins decode of GameMessage still yields the dispatch reply.
func (e *Engine) Handle(data []byte, peer Peer) Response {
	msg, err := protocol.Decode(data)
	req := protocol.ParseRequest(msg)
	if err == nil {
		return e.Dispatch(req, peer)
	}

	e.logger.Debug("malformed request field",
		zap.String("remote_addr", peer.RemoteAddr()),
		zap.Error(err),
	)
	notice := FormatNotice()
	if !req.HasSessionID {
		return Response{Frames: []protocol.Message{notice}}
	}
	resp := e.Dispatch(req, peer)
	if len(resp.Frames) == 0 {
		resp.Frames = []protocol.Message{notice}
		return resp
	}
	first := make(protocol.Message, 0, len(notice)+len(resp.Frames[0]))
	first = append(first, notice...)
	resp.Frames[0] = append(first, resp.Frames[0]...)
	return resp
}

// Dispatch runs the state machine for a decoded request.
func (e *Engine) Dispatch(req protocol.Request, peer Peer) Response {
	reg, ok := e.registry.Get(req.SessionID)
	if !ok {
		if req.WantsListener() {
			return e.registerListener(peer)
		}
		return e.startGame(peer)
	}

	switch r := reg.(type) {
	case *session.GameSession:
		return e.play(r, req)
	case *session.ListenerChannel:
		e.logger.Warn("request addressed a listener channel as a game",
			zap.String("listener_id", r.ID()),
			zap.String("remote_addr", peer.RemoteAddr()),
		)
		return reply(field(protocol.KeyGameMessage, MsgUnknownGame), field(protocol.KeyGameEnd, protocol.ValueYes))
	default:
		e.logger.Error("dispatching request",
			zap.String("session_id", req.SessionID),
			zap.Error(fmt.Errorf("%w: %T", ErrUnknownRegistration, reg)),
		)
		return reply(field(protocol.KeyGameMessage, MsgUnknownGame), field(protocol.KeyGameEnd, protocol.ValueYes))
	}
}

func (e *Engine) registerListener(peer Peer) Response {
	lc := session.NewListenerChannel(e.ids.NewID(), peer, e.now())
	e.registry.Add(lc)

	e.logger.Info("listener channel registered",
		zap.String("listener_id", lc.ID()),
		zap.String("remote_addr", peer.RemoteAddr()),
	)
	resp := reply(field(protocol.KeyListenerID, lc.ID()))
	resp.Retained = true
	return resp
}

func (e *Engine) startGame(peer Peer) Response {
	p, err := e.loader.Load()
	if err != nil {
		e.logger.Error("starting game session",
			zap.String("remote_addr", peer.RemoteAddr()),
			zap.Error(err),
		)
		return reply(field(protocol.KeyGameMessage, MsgStartFailed), field(protocol.KeyGameEnd, protocol.ValueYes))
	}

	gs := session.NewGameSession(e.ids.NewID(), p, e.now())
	e.registry.Add(gs)

	e.logger.Info("game session created",
		zap.String("session_id", gs.ID()),
		zap.String("puzzle", gs.PuzzleName()),
		zap.Int("words", gs.Total()),
		zap.String("remote_addr", peer.RemoteAddr()),
	)
	return reply(
		field(protocol.KeySessionID, gs.ID()),
		field(protocol.KeyGameString, gs.GameString()),
		field(protocol.KeyRemainingWords, strconv.Itoa(gs.Remaining())),
	)
}

// play handles a request for a known game session. Priority: time up, quit
// request, quit confirmation, guess.
func (e *Engine) play(gs *session.GameSession, req protocol.Request) Response {
	switch {
	case req.TimeIsUp():
		e.finish(gs, req, history.OutcomeTimeUp)
		return reply(field(protocol.KeyGameMessage, MsgTimeUp), field(protocol.KeyGameEnd, protocol.ValueYes))

	case req.QuitRequested():
		return reply(field(protocol.KeyGameMessage, MsgConfirmQuit))

	case req.QuitConfirmed():
		e.finish(gs, req, history.OutcomeQuit)
		return reply(field(protocol.KeyGameMessage, MsgQuit), field(protocol.KeyGameEnd, protocol.ValueYes))
	}

	next, correct := gs.Guess(req.Guess)
	if !correct {
		e.logger.Debug("wrong guess",
			zap.String("session_id", gs.ID()),
			zap.Int("remaining", gs.Remaining()),
		)
		return reply(
			field(protocol.KeyGameMessage, MsgWrong),
			field(protocol.KeyRemainingWords, strconv.Itoa(gs.Remaining())),
		)
	}

	if next.Solved() {
		e.finish(next, req, history.OutcomeWon)
		return reply(field(protocol.KeyGameMessage, MsgWin), field(protocol.KeyGameEnd, protocol.ValueYes))
	}

	if req.ListenerID != "" && next.ListenerID() == "" {
		if _, ok := e.registry.Listener(req.ListenerID); ok {
			next = next.WithListener(req.ListenerID)
		}
	}
	e.registry.Update(next)

	e.logger.Debug("correct guess",
		zap.String("session_id", next.ID()),
		zap.Int("remaining", next.Remaining()),
	)
	return reply(
		field(protocol.KeyGameMessage, MsgCorrect),
		field(protocol.KeyRemainingWords, strconv.Itoa(next.Remaining())),
	)
}

// finish removes the session and its paired listener channels and records the result.
func (e *Engine) finish(gs *session.GameSession, req protocol.Request, outcome history.Outcome) {
	e.registry.Remove(gs.ID())
	e.ReleaseListener(req.ListenerID)
	if gs.ListenerID() != req.ListenerID {
		e.ReleaseListener(gs.ListenerID())
	}

	res := history.Result{
		SessionID:  gs.ID(),
		Puzzle:     gs.PuzzleName(),
		Outcome:    outcome,
		WordsFound: gs.Found(),
		WordsTotal: gs.Total(),
		StartedAt:  gs.StartedAt(),
		EndedAt:    e.now(),
	}
	e.recorder.Record(res)

	e.logger.Info("game session finished",
		zap.String("session_id", gs.ID()),
		zap.String("outcome", string(outcome)),
		zap.Int("found", res.WordsFound),
		zap.Int("total", res.WordsTotal),
		zap.Duration("duration", res.Duration()),
	)
}

// ReleaseListener removes the listener channel registered under id and closes
// its connection. Ids that are absent or name a game session are ignored.
func (e *Engine) ReleaseListener(id string) {
	if id == "" {
		return
	}
	lc, ok := e.registry.RemoveListener(id)
	if !ok {
		return
	}
	if err := lc.Close(); err != nil {
		e.logger.Debug("closing listener channel",
			zap.String("listener_id", id),
			zap.Error(err),
		)
	}
}
