// Package timeouts provides centralized timeout values for handler operations.
//
// Handlers wrap their request context with one of these before calling the
// allocation service. Values can be overridden at startup with Configure;
// otherwise the defaults apply.
//
// Guidelines for choosing a timeout:
//   - Ping: health checks and connectivity verification
//   - Read: previews, preference lists, capacity reports
//   - Commit: anything that writes seats or preferences, including the wait
//     for a company's commit lock
//   - Release: best-effort cleanup after the caller's context is gone
package timeouts

import (
	"sync"
	"time"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing    = 2 * time.Second
	DefaultRead    = 10 * time.Second
	DefaultCommit  = 30 * time.Second
	DefaultRelease = 5 * time.Second
)

// mu protects all timeout values from concurrent access.
var mu sync.RWMutex

var (
	ping    = DefaultPing
	read    = DefaultRead
	commit  = DefaultCommit
	release = DefaultRelease
)

// Ping returns the timeout for health checks.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Read returns the timeout for snapshot reads.
func Read() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return read
}

// Commit returns the timeout for seat and preference writes.
func Commit() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return commit
}

// Release returns the timeout for releasing a commit lock after the request
// that held it has finished.
func Release() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return release
}

// Config holds timeout configuration values.
// Zero values are ignored (defaults are kept).
type Config struct {
	Ping    time.Duration
	Read    time.Duration
	Commit  time.Duration
	Release time.Duration
}

// Configure sets custom timeout values. Zero values in the config are ignored,
// keeping the current (or default) values. Call it during startup before
// handlers are built.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Read > 0 {
		read = cfg.Read
	}
	if cfg.Commit > 0 {
		commit = cfg.Commit
	}
	if cfg.Release > 0 {
		release = cfg.Release
	}
}

// Reset restores all timeouts to their default values.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping = DefaultPing
	read = DefaultRead
	commit = DefaultCommit
	release = DefaultRelease
}

// Current returns the current timeout configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Read: read, Commit: commit, Release: release}
}
