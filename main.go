package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/ilievs/beatbox/system"
)

func main() {
	cfg, err := ParseConfig()
	system.ExitOnError(slog.Default(), "invalid configuration", err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// Run until interrupted
	ctx, stop := system.ContextUntilSignal(context.Background())
	defer stop()

	err = RunApplication(ctx, cfg, logger)
	system.ExitOnError(logger, "application failed", err)
}
