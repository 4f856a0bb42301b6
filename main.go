package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"trendsheet-go/pkg/client"
	"trendsheet-go/pkg/logger"
	"trendsheet-go/pkg/runner"
	"trendsheet-go/pkg/sheet"
)

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns environment variable as int or default
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("CRITICAL: client panic recovered: %v\n", r)
			os.Exit(1)
		}
	}()

	// .env is optional; environment and flags win over it.
	_ = godotenv.Load()

	defaultServerURL := getEnvOrDefault("TRENDSHEET_SERVER_URL", "http://localhost:8080")
	defaultSheetPath := getEnvOrDefault("TRENDSHEET_SHEET", "trendsheet.csv")
	defaultGeo := getEnvOrDefault("TRENDSHEET_GEO", "JP")
	defaultTimeout := getEnvIntOrDefault("TRENDSHEET_TIMEOUT_SEC", 300)

	var (
		serverURL      = flag.String("server-url", defaultServerURL, "Trend service URL (env: TRENDSHEET_SERVER_URL)")
		sheetPath      = flag.String("sheet", defaultSheetPath, "Worksheet CSV path (env: TRENDSHEET_SHEET)")
		geo            = flag.String("geo", defaultGeo, "Geo code for queries (env: TRENDSHEET_GEO)")
		timeoutSec     = flag.Int("timeout", defaultTimeout, "Per-request timeout in seconds (env: TRENDSHEET_TIMEOUT_SEC)")
		force          = flag.Bool("force", false, "Rerun even when the configuration is unchanged")
		createTemplate = flag.Bool("create-template", false, "Write the worksheet template and exit")
		clearState     = flag.Bool("clear-state", false, "Clear stored session state and exit")
		warmup         = flag.Bool("warmup", false, "Ping the server to wake it and exit")
		debug          = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	appLogger := logger.New(logger.Config{Level: level, Format: "console"})
	logger.SetLogger(appLogger)
	log := logger.GetLogger().WithField("component", "cli")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn("Interrupt received, cancelling")
		cancel()
	}()

	ws, err := sheet.OpenCSVWorksheet(*sheetPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to open worksheet")
	}

	switch {
	case *createTemplate:
		if err := runner.CreateTemplate(ws); err != nil {
			log.WithError(err).Fatal("Failed to create template")
		}
		log.WithField("sheet", *sheetPath).Info("Template created")
		return
	case *clearState:
		if err := runner.ClearStoredData(ws); err != nil {
			log.WithError(err).Fatal("Failed to clear stored state")
		}
		log.Info("Stored state cleared")
		return
	}

	svc := client.New(client.Config{
		BaseURL: *serverURL,
		Timeout: time.Duration(*timeoutSec) * time.Second,
	})

	if *warmup {
		if err := svc.Warmup(ctx); err != nil {
			log.WithError(err).Fatal("Warmup failed")
		}
		log.Info("Server is awake")
		return
	}

	r := runner.New(svc, ws, runner.Config{
		Geo:   *geo,
		Force: *force,
	})

	if err := r.Run(ctx); err != nil {
		log.WithError(err).Fatal("Synchronization failed")
	}
	log.Info("Synchronization completed")
}
