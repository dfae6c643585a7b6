// Package main is the entry point for the content discovery server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"curator/config"
	"curator/internal/app"
	"curator/internal/logging"
	"curator/internal/version"
)

// @title                       curator API
// @version                     1.0
// @description                 Content discovery: related artists, celebrities, media and fashion brands with resolved images.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Master key as "Bearer <key>"
func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Bootstrap logger until the configured one is known
	logger, _ := logging.New(os.Stderr, logging.Options{})
	slog.SetDefault(logger)

	result, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := result.Config

	logger, err = logging.New(os.Stderr, logging.Options{
		Format: cfg.Logging.Format,
		Level:  cfg.Logging.Level,
	})
	if err != nil {
		slog.Error("invalid logging configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	slog.Info("starting curator",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)
	if result.Path != "" {
		slog.Info("configuration loaded", "path", result.Path)
	}

	application, err := app.New(context.Background(), app.Config{
		AppConfig: result,
		Logger:    logger,
	})
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	// Handle graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := application.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := application.Start(":" + cfg.Server.Port); err != nil {
		slog.Error("server failed", "error", err)
		_ = application.Shutdown(context.Background())
		os.Exit(1)
	}
}
