// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package log provides a public logging interface for github.com/noexcept-lab/exidx.
package log // import "github.com/noexcept-lab/exidx/log"

import (
	"log/slog"

	"github.com/noexcept-lab/exidx/internal/log"
)

// SetLevel configures the log level for the internal logger.
func SetLevel(level slog.Level) {
	log.SetLevelLogger(level)
}

// SetLogger configures the internal logger.
func SetLogger(l slog.Logger) {
	log.SetLogger(l)
}
