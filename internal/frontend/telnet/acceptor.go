package telnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
)

// SessionHandler runs the command loop for one connected client.
type SessionHandler interface {
	HandleSession(ctx context.Context, conn *Conn) error
}

// Acceptor listens for Telnet connections and hands each to a
// SessionHandler on its own goroutine.
type Acceptor struct {
	cfg     config.TelnetConfig
	handler SessionHandler
	logger  *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
	sessions sync.WaitGroup
}

// NewAcceptor creates an acceptor for cfg.Addr().
//
// Precondition: handler and logger must be non-nil.
func NewAcceptor(cfg config.TelnetConfig, handler SessionHandler, logger *zap.Logger) *Acceptor {
	if handler == nil || logger == nil {
		panic("telnet.NewAcceptor: handler and logger must be non-nil")
	}
	return &Acceptor{cfg: cfg, handler: handler, logger: logger, ready: make(chan struct{})}
}

// Serve accepts connections until ctx is cancelled, then closes the
// listener, cancels every session and waits for them to end.
//
// Postcondition: returns ctx.Err() after a clean shutdown, or the listen error.
func (a *Acceptor) Serve(ctx context.Context) error {
	lis, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}
	a.mu.Lock()
	a.listener = lis
	a.mu.Unlock()
	close(a.ready)
	a.logger.Info("telnet acceptor listening", zap.String("addr", lis.Addr().String()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		_ = lis.Close()
	}()

	var serveErr error
	for {
		raw, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				serveErr = err
				break
			}
			a.logger.Error("accepting connection", zap.Error(err))
			continue
		}
		a.sessions.Add(1)
		go a.serveConn(ctx, raw)
	}
	a.sessions.Wait()
	a.logger.Info("telnet acceptor stopped")
	if serveErr != nil {
		return serveErr
	}
	return ctx.Err()
}

func (a *Acceptor) serveConn(ctx context.Context, raw net.Conn) {
	defer a.sessions.Done()
	start := time.Now()
	addr := raw.RemoteAddr().String()
	conn := NewConn(raw, a.cfg.ReadTimeout, a.cfg.WriteTimeout)
	defer conn.Close()

	// A blocked ReadLine only returns once the connection closes.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	a.logger.Info("client connected", zap.String("remote_addr", addr))
	if err := conn.Negotiate(); err != nil {
		a.logger.Warn("telnet negotiation failed", zap.String("remote_addr", addr), zap.Error(err))
		return
	}
	if err := a.handler.HandleSession(ctx, conn); err != nil {
		a.logger.Debug("session ended",
			zap.String("remote_addr", addr),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return
	}
	a.logger.Info("session ended cleanly",
		zap.String("remote_addr", addr),
		zap.Duration("duration", time.Since(start)),
	)
}

// Addr blocks until the listener is bound or ctx is done and returns its
// address.
func (a *Acceptor) Addr(ctx context.Context) (string, error) {
	select {
	case <-a.ready:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listener.Addr().String(), nil
}
