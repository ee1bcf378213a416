package tcp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/guessword/internal/config"
)

// ConnHandler processes one accepted connection. HandleConn takes ownership
// of conn: it must close it, or hand it to something that will.
type ConnHandler interface {
	HandleConn(ctx context.Context, conn *Conn)
}

// Acceptor listens for game connections on a TCP port and dispatches each
// connection to a ConnHandler on its own goroutine.
type Acceptor struct {
	cfg     config.ServerConfig
	handler ConnHandler
	logger  *zap.Logger

	listener net.Listener
	wg       sync.WaitGroup
	quit     chan struct{}
	ready    chan struct{}
	mu       sync.Mutex
	running  bool
	stopped  bool
}

// NewAcceptor creates an acceptor with the given configuration.
//
// Precondition: cfg must have a valid port; handler and logger must be non-nil.
// Postcondition: Returns an Acceptor ready to be started with ListenAndServe.
func NewAcceptor(cfg config.ServerConfig, handler ConnHandler, logger *zap.Logger) *Acceptor {
	return &Acceptor{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		quit:    make(chan struct{}),
		ready:   make(chan struct{}),
	}
}

// Listen binds the listening socket without accepting. ListenAndServe calls
// it when the socket is not yet bound.
//
// Postcondition: Addr returns the bound address, or an error is returned.
func (a *Acceptor) Listen() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return fmt.Errorf("acceptor stopped")
	}
	if a.listener != nil {
		return nil
	}
	listener, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}
	a.listener = listener
	a.running = true
	close(a.ready)
	return nil
}

// ListenAndServe accepts connections until Stop is called. This method blocks
// until the acceptor is stopped or accepting fails.
//
// Precondition: The acceptor must not already be serving.
// Postcondition: Returns nil after Stop, or the accept error that ended the loop.
func (a *Acceptor) ListenAndServe() error {
	start := time.Now()
	if err := a.Listen(); err != nil {
		return err
	}

	a.mu.Lock()
	listener := a.listener
	a.mu.Unlock()

	a.logger.Info("game acceptor listening",
		zap.String("addr", listener.Addr().String()),
		zap.Duration("startup", time.Since(start)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-a.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		raw, err := listener.Accept()
		if err != nil {
			select {
			case <-a.quit:
				a.logger.Debug("accept loop ended by shutdown", zap.Error(err))
				return nil
			default:
				a.logger.Error("accepting connection", zap.Error(err))
				a.mu.Lock()
				a.running = false
				a.mu.Unlock()
				return fmt.Errorf("accepting on %s: %w", listener.Addr(), err)
			}
		}

		a.mu.Lock()
		if a.stopped {
			a.mu.Unlock()
			_ = raw.Close()
			return nil
		}
		a.wg.Add(1)
		a.mu.Unlock()
		go a.handleConn(ctx, raw)
	}
}

func (a *Acceptor) handleConn(ctx context.Context, raw net.Conn) {
	defer a.wg.Done()
	start := time.Now()

	conn := NewConn(raw, a.cfg.ReadTimeout, a.cfg.WriteTimeout, a.cfg.MaxMessageBytes)
	a.logger.Debug("client connected", zap.String("remote_addr", conn.RemoteAddr()))

	a.handler.HandleConn(ctx, conn)

	a.logger.Debug("connection handled",
		zap.String("remote_addr", conn.RemoteAddr()),
		zap.Duration("duration", time.Since(start)),
	)
}

// Stop closes the listening socket and ends the accept loop. It does not wait
// for in-flight handlers; use Wait for that. Calling Stop more than once, or
// before ListenAndServe, is safe.
//
// Postcondition: No new connections are accepted.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}
	a.stopped = true
	a.running = false

	close(a.quit)
	if a.listener != nil {
		if err := a.listener.Close(); err != nil {
			a.logger.Debug("closing listener", zap.Error(err))
		}
	}
	a.logger.Info("game acceptor stopped")
}

// Wait blocks until every in-flight handler has returned or ctx is done.
//
// Postcondition: Returns nil when all handlers finished, otherwise ctx.Err().
func (a *Acceptor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready is closed once the listening socket is bound.
func (a *Acceptor) Ready() <-chan struct{} {
	return a.ready
}

// Addr returns the actual listening address, or empty string if not yet listening.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return ""
}

// IsRunning returns whether the acceptor is currently accepting connections.
func (a *Acceptor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}
