//go:build !deadlock

// Package syncutil provides the mutex used to serialize EC exchanges and port
// access. The default build uses sync.Mutex; build with -tags=deadlock to swap
// in github.com/sasha-s/go-deadlock and catch lock ordering bugs between the
// engine and the transport.
package syncutil

import "sync"

// Mutex wraps sync.Mutex. Build with -tags=deadlock for deadlock detection.
//
//nolint:gocritic // Intentionally embedding sync.Mutex to expose its interface
type Mutex struct {
	sync.Mutex
}
