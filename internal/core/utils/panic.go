package utils

import (
	"context"
	"log/slog"
	"runtime"
)

func stackTrace() string {
	stack := make([]byte, 8096)
	return string(stack[:runtime.Stack(stack, false)])
}

func CatchPanic() {
	if err := recover(); err != nil {
		slog.Error("recovered panic", slog.Any("panic", err), slog.String("stack", stackTrace()))
	}
}

func CatchPanicWithCancel(cancel context.CancelFunc) {
	if err := recover(); err != nil {
		slog.Error("recovered panic", slog.Any("panic", err), slog.String("stack", stackTrace()))
		cancel()
	}
}

// CatchPanicWithFallback must be deferred directly. onPanic receives the
// recovered value.
func CatchPanicWithFallback(onPanic func(any)) {
	if err := recover(); err != nil {
		slog.Debug("recovered panic", slog.Any("panic", err), slog.String("stack", stackTrace()))
		onPanic(err)
	}
}
