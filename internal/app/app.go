package app

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"notify_client/internal/config"
	"notify_client/internal/service/notify"
	"notify_client/internal/sse"
)

type App struct {
	cfg    *config.Config
	hub    *sse.Hub
	store  *notify.Store
	server *http.Server
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewApp(cfg *config.Config, hub *sse.Hub, store *notify.Store, router *gin.Engine, logger *zap.Logger) *App {
	return &App{
		cfg:   cfg,
		hub:   hub,
		store: store,
		server: &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: router,
		},
		logger: logger,
	}
}

// Run starts the store for the configured user and serves the control API
// until Shutdown.
func (a *App) Run(ctx context.Context) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.hub.Run(ctx)
	}()
	unsubscribe := a.store.Subscribe(a.hub.Broadcast)
	defer unsubscribe()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if a.cfg.UserID <= 0 {
			a.logger.Warn("NOTIFY_USER_ID not set, store not started")
			return
		}
		if err := a.store.Start(ctx, a.cfg.UserID); err != nil && ctx.Err() == nil {
			a.logger.Warn("store started with errors", zap.Error(err))
		}
	}()

	a.logger.Info("control API listening", zap.String("addr", a.cfg.HTTPAddr))
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("graceful shutdown started")
	shutdownErr := a.server.Shutdown(ctx)
	a.store.Close()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Info("graceful shutdown completed")
		return shutdownErr
	case <-ctx.Done():
		if shutdownErr != nil {
			return shutdownErr
		}
		return ctx.Err()
	}
}

func (a *App) Logger() *zap.Logger {
	return a.logger
}

func (a *App) Config() *config.Config {
	return a.cfg
}
