// Package logging provides small helpers around log/slog so that operational
// events, errors, and deferred cleanup share one consistent shape across the
// codebase.
package logging

import (
	"database/sql"
	"io"
	"log/slog"
)

// LogOperation records a structured operational event. The operation name is
// a snake_case token so events are grep-able and countable downstream.
func LogOperation(logger *slog.Logger, operation string, attrs ...slog.Attr) {
	if logger == nil {
		logger = slog.Default()
	}
	args := make([]any, 0, len(attrs)+1)
	args = append(args, slog.String("operation", operation))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	logger.Info("operation", args...)
}

// LogError records an error with optional extra attributes.
func LogError(logger *slog.Logger, msg string, err error, attrs ...slog.Attr) {
	if logger == nil {
		logger = slog.Default()
	}
	args := make([]any, 0, len(attrs)+1)
	args = append(args, slog.String("error", err.Error()))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	logger.Error(msg, args...)
}

// SafeRollbackWithLogging rolls back a transaction in a defer, logging any
// rollback failure other than sql.ErrTxDone (which just means the transaction
// already committed).
func SafeRollbackWithLogging(tx *sql.Tx, logger *slog.Logger, operation string) {
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		LogError(logger, "transaction rollback failed", err,
			slog.String("operation", operation))
	}
}

// SafeCloseWithLogging closes an io.Closer in a defer, logging close failures
// instead of discarding them.
func SafeCloseWithLogging(c io.Closer, logger *slog.Logger, name string) {
	if err := c.Close(); err != nil {
		LogError(logger, "close failed", err, slog.String("resource", name))
	}
}
