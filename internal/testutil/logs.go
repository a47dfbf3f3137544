package testutil

import (
	"io"
	"log/slog"
	"testing"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SilenceLogs installs DiscardLogger as the slog default for the duration
// of the test.
func SilenceLogs(tb testing.TB) {
	tb.Helper()
	prev := slog.Default()
	slog.SetDefault(DiscardLogger())
	tb.Cleanup(func() {
		slog.SetDefault(prev)
	})
}
