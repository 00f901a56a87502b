// Package logging wires a process-wide structured logger for every shard
// and aggregator component. It follows the same zap setup libaf/logging
// uses: a package-level default built once at process start, overridable
// for tests.
package logging

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu      sync.RWMutex
	logger  *zap.Logger
	nopOnce sync.Once
)

// Init builds the process-wide logger. Call once from main(); dev controls
// whether output is human-readable (console) or JSON (production).
func Init(dev bool) (*zap.Logger, error) {
	var l *zap.Logger
	var err error
	if dev {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	mu.Lock()
	logger = l
	mu.Unlock()
	return l, nil
}

// L returns the process-wide logger, falling back to a no-op logger if Init
// was never called (e.g. in unit tests that don't care about log output).
func L() *zap.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}
	nopOnce.Do(func() {
		mu.Lock()
		if logger == nil {
			logger = zap.NewNop()
		}
		mu.Unlock()
	})
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Sync flushes buffered log entries; call from a deferred main() cleanup.
func Sync() {
	if l := L(); l != nil {
		_ = l.Sync()
	}
}
