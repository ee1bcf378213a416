package gameserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/guessword/internal/config"
	"github.com/cory-johannsen/guessword/internal/frontend/tcp"
	"github.com/cory-johannsen/guessword/internal/game/engine"
)

// State is the acceptor lifecycle state.
type State int

// Server states. A server moves Stopped → Listening → ShuttingDown → Stopped.
const (
	StateStopped State = iota
	StateListening
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateListening:
		return "listening"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// StatusReporter is told whether the server is accepting games.
type StatusReporter interface {
	SetServing(serving bool)
}

// Server accepts game connections and coordinates shutdown.
type Server struct {
	acceptor *tcp.Acceptor
	engine   *engine.Engine
	status   StatusReporter
	grace    time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	state    State
	shutdown bool
}

// NewServer creates a game server.
//
// Precondition: eng and logger must be non-nil. status may be nil.
// Postcondition: Returns a Server in StateStopped.
func NewServer(cfg config.ServerConfig, eng *engine.Engine, status StatusReporter, logger *zap.Logger) *Server {
	handler := NewHandler(eng, cfg.MaxMessageBytes, logger)
	return &Server{
		acceptor: tcp.NewAcceptor(cfg, handler, logger),
		engine:   eng,
		status:   status,
		grace:    cfg.ShutdownGrace,
		logger:   logger,
	}
}

// Start binds the listening socket and accepts connections until Shutdown.
// This method blocks.
//
// Postcondition: Returns nil after Shutdown, or the error that stopped the
// server. The server is in StateStopped when Start returns.
func (s *Server) Start() error {
	if err := s.acceptor.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return errors.New("server shut down before start")
	}
	s.state = StateListening
	s.setServing(true)
	s.mu.Unlock()

	err := s.acceptor.ListenAndServe()

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	s.setServing(false)
	return err
}

// Shutdown stops accepting connections and notifies every registered
// listener channel that the server is going away. It does not wait for
// in-flight handlers. Calling Shutdown more than once, or before Start, is safe.
//
// Postcondition: The listening socket is closed and every listener channel
// present at the time of the call has been notified and closed.
func (s *Server) Shutdown() {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return
	}
	s.shutdown = true
	if s.state == StateListening {
		s.state = StateShuttingDown
	}
	s.setServing(false)
	s.mu.Unlock()

	start := time.Now()

	registry := s.engine.Registry()
	notice := engine.ShutdownNotice()
	notified := 0
	for _, id := range registry.ListIDs() {
		lc, ok := registry.Listener(id)
		if !ok {
			continue
		}
		if err := lc.Notify(notice); err != nil {
			s.logger.Warn("notifying listener of shutdown",
				zap.String("listener_id", id),
				zap.Error(err),
			)
		} else {
			notified++
		}
		s.engine.ReleaseListener(id)
	}

	s.acceptor.Stop()

	s.logger.Info("game server shut down",
		zap.Int("listeners_notified", notified),
		zap.Duration("duration", time.Since(start)),
	)
}

// Stop shuts the server down and waits up to the configured grace period for
// in-flight handlers. It implements server.Service.
func (s *Server) Stop() {
	s.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), s.grace)
	defer cancel()
	if err := s.acceptor.Wait(ctx); err != nil {
		s.logger.Warn("in-flight handlers still running after grace period",
			zap.Duration("grace", s.grace),
			zap.Error(err),
		)
	}
}

// Wait blocks until in-flight handlers finish or ctx is done.
func (s *Server) Wait(ctx context.Context) error {
	return s.acceptor.Wait(ctx)
}

// Ready is closed once the listening socket is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.acceptor.Ready()
}

// Addr returns the bound listen address, or empty string before Start.
func (s *Server) Addr() string {
	return s.acceptor.Addr()
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Server) setServing(serving bool) {
	if s.status != nil {
		s.status.SetServing(serving)
	}
}
