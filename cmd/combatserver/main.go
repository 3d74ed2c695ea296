// Package main provides the combat server binary: the combat engine, its task
// dispatcher and the combat.v1.CombatService gRPC endpoint.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcombat/internal/config"
	"github.com/cory-johannsen/mudcombat/internal/observability"
)

func main() {
	start := time.Now()
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, cfg.Server.Name)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	app, cleanup, err := initializeApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("assembling combat server", zap.Error(err))
	}
	defer cleanup()

	logger.Info("combat server ready",
		zap.String("storage", cfg.Storage.Driver),
		zap.Duration("startup", time.Since(start)),
	)
	if err := app.Run(ctx); err != nil {
		logger.Error("combat server stopped", zap.Error(err))
		cleanup()
		logger.Sync()
		log.Fatalf("combat server: %v", err)
	}
}
