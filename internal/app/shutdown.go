package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	// Cancel context to signal all components
	a.cancel()

	// Shutdown components in dependency order
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server
	err := a.shutdownHTTPServer(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	// Close executor
	err = a.shutdownExecutor()
	if err != nil {
		a.logger.Error("executor-close-error", zap.Error(err))
	}

	// Close storage
	err = a.shutdownStorage()
	if err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	// Close WebSocket pool
	err = a.shutdownWebSocketPool()
	if err != nil {
		a.logger.Error("websocket-pool-close-error", zap.Error(err))
	}

	// Wait for all goroutines. The orderbook feed and orchestrator loop
	// both exit on ctx cancellation; the cache and market registry need
	// no explicit close.
	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")

	return nil
}

func (a *App) shutdownHTTPServer(ctx context.Context) error {
	return a.httpServer.Shutdown(ctx)
}

func (a *App) shutdownExecutor() error {
	return a.executor.Close()
}

func (a *App) shutdownStorage() error {
	return a.storage.Close()
}

func (a *App) shutdownWebSocketPool() error {
	return a.wsPool.Close()
}
