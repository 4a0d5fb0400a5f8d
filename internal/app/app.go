package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/smartlightd/internal/config"
)

// errStopped is the cancellation cause of a normal shutdown.
var errStopped = errors.New("stopped")

// App owns the service container and its lifecycle.
type App struct {
	cfg      *config.Config
	services *Services
	ctx      context.Context
	cancel   context.CancelCauseFunc
}

// New builds every service without starting any of them.
func New(cfg *config.Config) (*App, error) {
	services, err := NewServices(cfg)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		services: services,
	}, nil
}

// Services exposes the service container.
func (a *App) Services() *Services {
	return a.services
}

// Start launches the background services. Cancelling ctx, or a fatal service
// error, ends Wait.
func (a *App) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancelCause(ctx)

	onFatalError := func(err error) {
		log.Error().Err(err).Msg("Fatal error, initiating shutdown")
		a.cancel(err)
	}

	if err := a.services.Start(a.ctx, onFatalError); err != nil {
		a.cancel(err)
		return err
	}

	log.Info().
		Str("node_id", a.services.Provisioner.NodeID()).
		Bool("api", a.cfg.API.Enabled).
		Int("api_port", a.cfg.API.Port).
		Msg("smartlightd started")
	return nil
}

// Wait blocks until the app is asked to stop. It returns the error of the
// service that forced the shutdown, or nil for a signal or parent cancel.
func (a *App) Wait() error {
	if a.ctx == nil {
		return nil
	}
	<-a.ctx.Done()

	cause := context.Cause(a.ctx)
	if errors.Is(cause, context.Canceled) || errors.Is(cause, errStopped) {
		return nil
	}
	return cause
}

// Stop cancels the services and waits for them within the shutdown timeout.
func (a *App) Stop() error {
	log.Info().Dur("timeout", a.cfg.GetShutdownTimeout()).Msg("Shutting down...")

	if a.cancel != nil {
		a.cancel(errStopped)
	}
	if a.services == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.GetShutdownTimeout())
	defer cancel()
	return a.services.Stop(ctx)
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() context.Context {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		log.Warn().Msg("Received shutdown signal")
		stop()
	}()
	return ctx
}
