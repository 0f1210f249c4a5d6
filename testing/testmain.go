// Package testing provides utilities for writing driver tests on the host.
package testing

import (
	"log/slog"
	"os"
	"testing"
)

var (
	level  = new(slog.LevelVar)
	logger = slog.New(slog.DiscardHandler)
)

// TestMain should be used as TestMain for driver tests.  It enables logging
// if the MOBILE_LOG environment variable is set to a log level, e.g.
// MOBILE_LOG=debug.
func TestMain(m *testing.M) {
	if v, ok := os.LookupEnv("MOBILE_LOG"); ok {
		if err := level.UnmarshalText([]byte(v)); err != nil {
			println("invalid MOBILE_LOG:", err.Error())
			os.Exit(2)
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	os.Exit(m.Run())
}

// Logger returns the logger configured by TestMain.
func Logger() *slog.Logger {
	return logger
}
