// Package main provides the HTTP API server for sitepanel.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sitepanel/sitepanel/internal/config"
	"github.com/sitepanel/sitepanel/internal/persona"
	"github.com/sitepanel/sitepanel/internal/server"
	"github.com/sitepanel/sitepanel/internal/service"
)

func main() {
	personasFile := flag.String("personas-file", "personas.yaml", "path to the personas YAML config")
	flag.Parse()

	cfg := config.Load()

	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("failed to close log file", "error", err)
		}
	}()
	slog.SetDefault(logger)

	personas, err := persona.LoadFile(*personasFile)
	if err != nil {
		slog.Error("failed to load personas", "file", *personasFile, "error", err)
		os.Exit(1)
	}

	svc, err := service.New(cfg, logger)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	srv := server.New(svc, server.Config{
		Addr:     cfg.ServerAddr,
		Personas: personas,
		Metrics:  svc.Metrics(),
		Logger:   logger,
	})

	slog.Info("starting sitepanel-server",
		"addr", cfg.ServerAddr,
		"personas", len(personas),
		"fetcher", cfg.Fetcher)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
