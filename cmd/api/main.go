package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/markdave123-py/Auditra/internal/app"
	"github.com/markdave123-py/Auditra/internal/config"
	"github.com/markdave123-py/Auditra/internal/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		log.Fatal("startup failed", "error", err)
	}
	defer application.Close()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- application.Server.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			log.Error("server error", "error", err)
		}
		cancel()
	}

	log.Info("shutting down...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if err := application.Server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	// workers stop taking jobs once ctx is cancelled; wait for in-flight runs and replies
	application.Orchestrator.Wait()
}
