package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"CoinFolio/internal/domain/repository"
	"CoinFolio/internal/usecase"
	"CoinFolio/pkg/config"
	xhttp "CoinFolio/pkg/http"
	applogger "CoinFolio/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	logger    *applogger.Logger
	handler   xhttp.Handler
	realtime  *usecase.RealtimeUseCase // nil when the live feed is disabled
	archive   repository.TickArchive   // nil when the archive is disabled
	publisher repository.TransactionPublisher

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	handler xhttp.Handler,
	realtime *usecase.RealtimeUseCase,
	archive repository.TickArchive,
	publisher repository.TransactionPublisher,
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		handler:   handler,
		realtime:  realtime,
		archive:   archive,
		publisher: publisher,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(a.cfg.Metrics.Enabled, a.cfg.Metrics.Path),
		xhttp.WithLogger(a.logger),
	)

	if a.realtime != nil {
		if err := a.realtime.Start(ctx, a.cfg.Coinbase.WatchSymbols); err != nil {
			// Live quotes are an enhancement; historical endpoints keep working.
			a.logger.Warn("live feed start failed", applogger.Error(err))
		} else {
			a.logger.Info("live feed started", applogger.Strings("symbols", a.cfg.Coinbase.WatchSymbols))
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.realtime != nil {
		if err := a.realtime.Stop(); err != nil {
			a.logger.Warn("live feed stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.logger.Warn("archive close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
