package system

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// ContextUntilSignal returns a context that is cancelled once the process is
// interrupted or asked to terminate.
func ContextUntilSignal(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// ExitOnError logs err and exits with a non-zero status. It does nothing when
// err is nil.
func ExitOnError(logger *slog.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logger.Error(msg, "error", err)
	os.Exit(1)
}
