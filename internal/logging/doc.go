// Package logging assembles structured slog loggers and formatting helpers used
// across stoneware.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so a command can tag every log
// line it causes with one correlation id. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
package logging
