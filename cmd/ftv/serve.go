package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vanderheijden86/familytree/pkg/config"
	"github.com/vanderheijden86/familytree/pkg/server"
)

func newLogger(debugMode bool) (*zap.Logger, error) {
	if debugMode {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func buildServer(cfg config.Config, loader dataLoader, logger *zap.Logger) (*server.Server, error) {
	opts := server.Options{
		Addr:        cfg.Server.Addr,
		CORSOrigins: cfg.Server.CORSOrigins,
		Title:       cfg.Title(),
		MaxResults:  cfg.UI.MaxResults,
		Source:      loader.Serve,
		Logger:      logger,
	}
	if cfg.Auth.Required {
		// The server issues tokens to clients; it keeps no token file itself.
		opts.Session = newSession(cfg, "")
	}
	return server.New(opts)
}

// runServe serves the family over HTTP until SIGINT or SIGTERM.
func runServe(cfg config.Config, debugMode bool) error {
	logger, err := newLogger(debugMode)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	srv, err := buildServer(cfg, newDataLoader(cfg), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
