package testutil

import (
	"io"
	"log"
	"os"
	"testing"
)

// TestLogger returns a logger tagged with the test name. Goroutines may
// outlive the test, so output goes to stdout rather than t.Log.
func TestLogger(t testing.TB) *log.Logger {
	logger := log.New(os.Stdout, "["+t.Name()+"] ", log.LstdFlags|log.Lmsgprefix)
	t.Cleanup(func() {
		logger.SetOutput(io.Discard)
	})
	return logger
}
