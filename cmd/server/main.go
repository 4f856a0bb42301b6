package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"trendsheet-go/internal/capability"
	"trendsheet-go/internal/config"
	"trendsheet-go/internal/handler"
	"trendsheet-go/pkg/engine"
	"trendsheet-go/pkg/logger"
	"trendsheet-go/pkg/retry"
	"trendsheet-go/pkg/trends"
)

func main() {
	configPath := flag.String("config", "config/server.yaml", "Configuration file path")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func run(configPath string) error {
	manager := config.NewManager()
	cfg, err := manager.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	appLogger := logger.New(cfg.Logger)
	logger.SetLogger(appLogger)
	logger.SetGlobalLogger(appLogger)

	caps := capability.Probe(cfg)
	appLogger.WithField("libraries", caps.Map()).Info("Capability probe completed")

	provider := trends.NewHTTPProvider(trends.ProviderConfig{
		Endpoint:  cfg.Provider.Endpoint,
		Timeout:   time.Duration(cfg.Provider.TimeoutSec) * time.Second,
		UserAgent: cfg.Provider.UserAgent,
	})

	eng := engine.New(provider, engine.Config{
		WidthLimit:     cfg.Engine.WidthLimit,
		QueryGap:       time.Duration(cfg.Engine.QueryGapSec) * time.Second,
		QueryGapJitter: time.Duration(cfg.Engine.QueryGapJitterSec) * time.Second,
		Retry: retry.Policy{
			MaxAttempts:       cfg.Retry.MaxAttempts,
			BaseDelay:         time.Duration(cfg.Retry.BaseDelaySec) * time.Second,
			BackoffMultiplier: cfg.Retry.BackoffMultiplier,
			RateLimitCooldown: time.Duration(cfg.Retry.RateLimitCooldownSec) * time.Second,
			CooldownJitter:    time.Duration(cfg.Retry.CooldownJitterSec) * time.Second,
		},
	})

	app := fiber.New(fiber.Config{
		AppName:               "trendsheet",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		// Split fetches sit through two upstream calls plus the
		// mandatory gap, so responses can take minutes.
		WriteTimeout: 10 * time.Minute,
	})
	app.Use(recover.New())

	handler.New(eng, caps, cfg.Server.MaxKeywords).Register(app)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	errChan := make(chan error, 1)
	go func() {
		appLogger.WithField("addr", addr).Info("Server listening")
		errChan <- app.Listen(addr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		appLogger.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	appLogger.Info("Server stopped")
	return nil
}
