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

	// Signal agents, auction goroutines, and the recorder.
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown in dependency order: HTTP first, then the registry's
	// auction goroutines, then the event pipeline behind them.
	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	err = a.registry.Close()
	if err != nil {
		a.logger.Error("registry-close-error", zap.Error(err))
	}

	a.bus.Close()
	a.recorder.Wait()

	err = a.storage.Close()
	if err != nil {
		a.logger.Error("ledger-close-error", zap.Error(err))
	}

	a.appraisals.Close()

	// Wait for all goroutines.
	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")
	return nil
}
