//go:build deadlock

// Package syncutil provides the mutex used to serialize EC exchanges and port
// access, here backed by go-deadlock for lock ordering diagnostics.
package syncutil

import (
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

func init() {
	// An exchange holds the engine lock for at most its timeout; anything
	// much longer is a stuck exchange, not a slow device.
	deadlock.Opts.DeadlockTimeout = 30 * time.Second
}

// Mutex wraps deadlock.Mutex for deadlock detection.
type Mutex struct {
	deadlock.Mutex
}
