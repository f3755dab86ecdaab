package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"docufind/internal/app"
	"docufind/internal/platform/config"
	"docufind/internal/platform/httpserver"
	"docufind/internal/platform/logger"
)

// main wires the application, serves HTTP and runs the job workers and the
// maintenance sweeper until SIGINT or SIGTERM.
func main() {
	cfg := config.FromEnv()
	log, closer := logger.New(cfg.Logging)

	err := run(cfg, log)
	_ = closer.Close()
	if err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := httpserver.New(cfg.Server, a.Handler())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting docufind", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return a.Pool.Run(gctx) })
	g.Go(func() error { return a.RunSweeper(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
