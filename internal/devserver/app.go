// Package devserver is an in-memory account server for local development.
//
// It serves the HTTP surface the accounts client consumes (registration,
// activation, JWT login, profile, password change and reset) with the same
// rules a production server enforces: accounts stay inactive until their
// activation token is used, activation and reset tokens are single-use and
// live in separate namespaces, and every failure carries a JSON payload.
// Tokens are "mailed" to an in-memory Outbox that logs each link.
package devserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calyxlabs/accountkit/internal/logging"
)

type App struct {
	config  *Config
	logger  logging.Logger
	outbox  *Outbox
	handler *Handler
}

func NewApp(cfg *Config, logger logging.Logger) *App {
	if logger == nil {
		logger = logging.Nop()
	}
	outbox := NewOutbox(logger)
	svc := NewService(cfg, outbox, logger)
	return &App{config: cfg, logger: logger, outbox: outbox, handler: NewHandler(svc, logger)}
}

// Handler returns the HTTP handler, for embedding in tests.
func (app *App) Handler() http.Handler {
	return app.handler.Routes()
}

func (app *App) Outbox() *Outbox {
	return app.outbox
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	app.initSignalHandler(cancelFunc)

	ln, err := net.Listen("tcp", app.config.Addr)
	if err != nil {
		return err
	}
	return app.serve(ctx, ln)
}

func (app *App) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "dev server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	app.logger.Info(ctx, "shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
