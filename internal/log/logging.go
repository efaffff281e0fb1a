// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package log // import "github.com/noexcept-lab/exidx/internal/log"

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
)

// globalLogger holds a reference to the [slog.Logger] used by the decoder
// and the ELF loader.
//
// The default logger logs to stderr at the Info Level. Decoding diagnostics are
// emitted at the Debug level only.
var globalLogger = func() *atomic.Pointer[slog.Logger] {
	p := new(atomic.Pointer[slog.Logger])
	p.Store(newStderrLogger(slog.LevelInfo))
	return p
}()

func newStderrLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// SetLogger sets the global Logger to l.
func SetLogger(l slog.Logger) {
	globalLogger.Store(&l)
}

// SetLevelLogger replaces the global logger with a stderr logger at level.
func SetLevelLogger(level slog.Level) {
	globalLogger.Store(newStderrLogger(level))
}

func getLogger() *slog.Logger {
	return globalLogger.Load()
}

// Infof logs informational messages.
func Infof(msg string, keysAndValues ...any) {
	if getLogger().Enabled(context.Background(), slog.LevelInfo) {
		getLogger().Info(fmt.Sprintf(msg, keysAndValues...))
	}
}

// Errorf logs error messages.
func Errorf(msg string, keysAndValues ...any) {
	if getLogger().Enabled(context.Background(), slog.LevelError) {
		getLogger().Error(fmt.Sprintf(msg, keysAndValues...))
	}
}

// Debugf logs detailed information about individual decoding decisions.
func Debugf(msg string, keysAndValues ...any) {
	if getLogger().Enabled(context.Background(), slog.LevelDebug) {
		getLogger().Debug(fmt.Sprintf(msg, keysAndValues...))
	}
}

// Warnf logs warnings: not errors, but likely more important than
// informational messages.
func Warnf(msg string, keysAndValues ...any) {
	if getLogger().Enabled(context.Background(), slog.LevelWarn) {
		getLogger().Warn(fmt.Sprintf(msg, keysAndValues...))
	}
}
