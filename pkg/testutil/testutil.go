// Package testutil provides testing utilities for respawn
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// pollInterval is how often AssertEventually re-checks its condition.
const pollInterval = 5 * time.Millisecond

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout, enough for
// any spawn or replay path that isn't wedged. The caller must call the
// returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// AssertEventually polls condition until it returns true or timeout
// expires, then fails the test. Use it for state that settles on a worker
// goroutine's schedule, like recycler drains.
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, msg string, args ...interface{}) {
	t.Helper()

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()

	for {
		if condition() {
			return
		}
		select {
		case <-deadline.C:
			t.Fatalf("condition not met within %v: %s", timeout, formatMsg(msg, args...))
		case <-tick.C:
		}
	}
}

func formatMsg(msg string, args ...interface{}) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}
