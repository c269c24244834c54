package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/po-extractor/internal/app"
	"github.com/joseph-ayodele/po-extractor/internal/common"
)

func main() {
	configPath := flag.String("config", os.Getenv("PO_CONFIG"), "config file (YAML)")
	flag.Parse()

	loader, err := common.NewConfigLoader(*configPath)
	if err != nil {
		// logging is configured by the file that failed to load
		common.NewLogger(common.LogConfig{Level: "info"}, os.Stderr).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := loader.Get()
	logger := common.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	loader.Watch(logger, a.ApplyConfig)
	a.WatchProfiles(ctx)

	if err := a.Serve(ctx); err != nil {
		logger.Error("server exited", "error", err)
		a.Close()
		os.Exit(1)
	}
}
