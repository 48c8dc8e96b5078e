package builder

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/futig/rag-chat/internal/index"
	"go.uber.org/zap"
)

// App represents the application with all its components
type App struct {
	server          *http.Server
	watcher         *index.Watcher
	components      *components
	shutdownTimeout time.Duration
	logger          *zap.Logger
}

// Run starts the HTTP server and the index watcher and blocks until a
// shutdown signal or a server error.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.watcher != nil {
		go a.watcher.Run(ctx)
	}

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		a.logger.Error("Server error", zap.Error(err))
		a.components.close()
		return err
	case sig := <-sigChan:
		a.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	return a.shutdown()
}

// shutdown lets running answers finish, then releases the history store and
// the index.
func (a *App) shutdown() error {
	timeout := a.shutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.logger.Info("Shutting down server gracefully")

	err := a.server.Shutdown(ctx)
	if err != nil {
		a.logger.Error("Server shutdown error", zap.Error(err))
	}

	a.logger.Info("Closing storage and index connections")
	a.components.close()

	if err != nil {
		return err
	}
	a.logger.Info("Application stopped gracefully")
	return nil
}
