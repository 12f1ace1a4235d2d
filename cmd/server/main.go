package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.canoozie.net/riddling/copurchase/pkg/config"
	"git.canoozie.net/riddling/copurchase/pkg/dataset"
	"git.canoozie.net/riddling/copurchase/pkg/model"
	"git.canoozie.net/riddling/copurchase/pkg/server"
)

var configPath = flag.String("config", "", "Path to a YAML configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := model.NewDefaultLogger(cfg.Level())
	model.SetDefaultLogger(logger)
	logger.Info("Starting copurchase server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader, table, err := dataset.FromConfig(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open product table: %v", err)
	}
	defer table.Close()

	ds, err := loader.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}

	srv := server.New(ds.Engine(logger, cfg.MaxDepth), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(fmt.Sprintf(":%d", cfg.Server.Port))
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Failed to serve: %v", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown failed: %v", err)
		}
	}
}
