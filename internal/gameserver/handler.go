// Package gameserver connects the guessword engine to the TCP transport: the
// per-connection Handler and the Server that owns the acceptor and the
// shutdown broadcast.
package gameserver

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/guessword/internal/frontend/tcp"
	"github.com/cory-johannsen/guessword/internal/game/engine"
	"github.com/cory-johannsen/guessword/internal/protocol"
)

// Handler services one connection: it reads a single request, runs it through
// the engine and writes the response frames. A connection that registers a
// listener channel stays open until either side closes it.
type Handler struct {
	engine          *engine.Engine
	maxMessageBytes int
	logger          *zap.Logger
}

// NewHandler creates a connection handler.
//
// Precondition: eng and logger must be non-nil; maxMessageBytes > 0.
func NewHandler(eng *engine.Engine, maxMessageBytes int, logger *zap.Logger) *Handler {
	return &Handler{
		engine:          eng,
		maxMessageBytes: maxMessageBytes,
		logger:          logger,
	}
}

// HandleConn implements tcp.ConnHandler. No error or panic escapes it.
func (h *Handler) HandleConn(ctx context.Context, conn *tcp.Conn) {
	start := time.Now()
	addr := conn.RemoteAddr()
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic handling connection",
				zap.String("remote_addr", addr),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
		}
	}()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	data, err := conn.ReadMessage()
	stop()

	switch {
	case errors.Is(err, protocol.ErrMessageTooLarge):
		h.logger.Warn("rejecting oversized request",
			zap.String("remote_addr", addr),
			zap.Int("limit", h.maxMessageBytes),
		)
		h.write(conn, engine.TooLargeNotice(h.maxMessageBytes))
		return
	case errors.Is(err, io.EOF):
		h.logger.Debug("client closed before sending a request", zap.String("remote_addr", addr))
		return
	case err != nil:
		h.logger.Warn("reading request", zap.String("remote_addr", addr), zap.Error(err))
		return
	}

	resp := h.engine.Handle(data, conn)
	for _, frame := range resp.Frames {
		if err := h.write(conn, frame); err != nil {
			if resp.Retained {
				h.releaseRetained(resp)
			}
			return
		}
	}

	h.logger.Debug("request handled",
		zap.String("remote_addr", addr),
		zap.Int("frames", len(resp.Frames)),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.Retained {
		h.watchListener(conn, resp)
	}
}

func (h *Handler) write(conn *tcp.Conn, msg protocol.Message) error {
	err := conn.Send(msg)
	if err != nil {
		h.logger.Warn("writing response",
			zap.String("remote_addr", conn.RemoteAddr()),
			zap.Error(err),
		)
	}
	return err
}

// watchListener blocks until the listener connection closes, then drops the
// registration if it is still present.
func (h *Handler) watchListener(conn *tcp.Conn, resp engine.Response) {
	if err := conn.Drain(); err != nil {
		h.logger.Debug("listener connection ended",
			zap.String("remote_addr", conn.RemoteAddr()),
			zap.Error(err),
		)
	}
	h.releaseRetained(resp)
}

func (h *Handler) releaseRetained(resp engine.Response) {
	for _, frame := range resp.Frames {
		if id, ok := frame.Get(protocol.KeyListenerID); ok {
			h.engine.ReleaseListener(id)
		}
	}
}
