package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.Int("buyers", len(a.buyers)),
		zap.Int("sellers", len(a.sellers)),
		zap.Duration("bidding-window", a.cfg.BiddingWindow),
		zap.Duration("decision-window", a.cfg.DecisionWindow),
		zap.String("storage-mode", a.cfg.StorageMode))

	a.startComponents()

	a.healthChecker.SetReady(true)
	a.logger.Info("application-ready", zap.String("http-addr", ":"+a.cfg.HTTPPort))

	return a.waitForShutdown()
}

func (a *App) startComponents() {
	// HTTP server
	a.wg.Add(1)
	go a.runHTTPServer()

	// Trade recorder
	a.recorder.Start(a.ctx)

	// Agent population under one errgroup; agents only ever return the
	// group context's error.
	a.wg.Add(1)
	go a.runAgents()
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start(a.ctx)
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) runAgents() {
	defer a.wg.Done()

	g, ctx := errgroup.WithContext(a.ctx)
	for _, b := range a.buyers {
		b := b
		g.Go(func() error { return b.Run(ctx) })
	}
	for _, s := range a.sellers {
		s := s
		g.Go(func() error { return s.Run(ctx) })
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("agent-group-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
