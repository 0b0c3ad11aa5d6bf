// Package timeouts provides centralized timeout values for handler operations.
//
// These are used with context.WithTimeout around database work in HTTP
// handlers so every call path has a bound and the values can be adjusted in
// one place.
//
// Guidelines:
//   - Ping: health checks and connectivity verification
//   - Short: single-document reads or lookups
//   - Medium: list queries, moderate writes
//   - Long: multi-document transactions (rename re-pointing, reconcile)
package timeouts

import "time"

const (
	ping   = 2 * time.Second
	short  = 5 * time.Second
	medium = 10 * time.Second
	long   = 30 * time.Second
)

// Ping returns the timeout for health checks.
func Ping() time.Duration { return ping }

// Short returns the timeout for simple single-document operations.
func Short() time.Duration { return short }

// Medium returns the timeout for list queries and moderate writes.
func Medium() time.Duration { return medium }

// Long returns the timeout for transactions that touch many documents.
func Long() time.Duration { return long }
