// Package server runs the guessword host process: it starts the configured
// services in order, waits for a termination signal or a service failure, and
// stops them in reverse order.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service represents a long-running component that can be started and stopped.
type Service interface {
	// Start runs the service. It blocks until the service is stopped or fails.
	Start() error
	// Stop gracefully stops the service and makes Start return.
	Stop()
}

// Readier is implemented by services that can report when they are accepting
// work. The lifecycle waits for Ready before starting the next service.
type Readier interface {
	Ready() <-chan struct{}
}

// FuncService adapts a start/stop function pair into the Service interface.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls the underlying start function.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls the underlying stop function.
func (f *FuncService) Stop() { f.StopFn() }

// Lifecycle manages the startup and shutdown of multiple services.
// Services are started in order and stopped in reverse order.
type Lifecycle struct {
	logger       *zap.Logger
	readyTimeout time.Duration
	drainTimeout time.Duration
	services     []namedService
	mu           sync.Mutex
}

type namedService struct {
	name    string
	service Service
}

// NewLifecycle creates a new Lifecycle manager.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		logger:       logger,
		readyTimeout: 10 * time.Second,
		drainTimeout: 15 * time.Second,
	}
}

// Add registers a named service for lifecycle management.
// Services are started in the order they are added.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// Run starts all services and blocks until a termination signal (SIGINT or
// SIGTERM), ctx cancellation, or a service failure. Services are then stopped
// in reverse order.
//
// Postcondition: All services are stopped when this method returns. The
// returned error is the first service failure, or nil for a requested shutdown.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	l.mu.Unlock()

	errCh := make(chan error, len(services))
	var running sync.WaitGroup
	started := 0

	var failure error
startLoop:
	for _, ns := range services {
		running.Add(1)
		started++
		go func() {
			defer running.Done()
			l.logger.Info("starting service", zap.String("service", ns.name))
			svcStart := time.Now()
			if err := ns.service.Start(); err != nil {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
			}
		}()

		r, ok := ns.service.(Readier)
		if !ok {
			continue
		}
		select {
		case <-r.Ready():
		case failure = <-errCh:
			break startLoop
		case <-time.After(l.readyTimeout):
			failure = fmt.Errorf("service %s: not ready after %s", ns.name, l.readyTimeout)
			break startLoop
		}
	}

	if failure == nil {
		l.logger.Info("all services started",
			zap.Int("count", len(services)),
			zap.Duration("startup", time.Since(start)),
		)

		select {
		case sig := <-sigCh:
			l.logger.Info("received signal, shutting down",
				zap.String("signal", sig.String()),
			)
		case failure = <-errCh:
			l.logger.Error("service error, shutting down", zap.Error(failure))
		case <-ctx.Done():
			l.logger.Info("context cancelled, shutting down")
		}
	} else {
		l.logger.Error("startup failed, shutting down", zap.Error(failure))
	}

	l.shutdown(services[:started])
	l.drain(&running)

	l.logger.Info("shutdown complete",
		zap.Duration("total_uptime", time.Since(start)),
	)
	return failure
}

func (l *Lifecycle) shutdown(services []namedService) {
	shutdownStart := time.Now()
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		svcStart := time.Now()
		l.logger.Info("stopping service",
			zap.String("service", ns.name),
		)
		ns.service.Stop()
		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
	l.logger.Info("all services stopped",
		zap.Duration("shutdown_elapsed", time.Since(shutdownStart)),
	)
}

// drain waits for every Start call to return, bounded by drainTimeout.
func (l *Lifecycle) drain(running *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		running.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(l.drainTimeout):
		l.logger.Warn("services still running after stop",
			zap.Duration("timeout", l.drainTimeout),
		)
	}
}
