package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/services/storefront/internal/app"
	"github.com/utafrali/storefront/services/storefront/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("storefront exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New("storefront-service", cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting storefront service",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("cart_api", cfg.CartAPIURL),
		slog.String("catalog_api", cfg.CatalogAPIURL),
		slog.Bool("kafka", len(cfg.KafkaBrokers) > 0),
	)

	application, err := app.NewApp(cfg, log)
	if err != nil {
		return fmt.Errorf("init application: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		return err
	}
	log.Info("storefront service stopped")
	return nil
}
