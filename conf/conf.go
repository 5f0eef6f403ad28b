// Package conf holds the proxy's compile-time design constants.
//
// Per spec, the proxy takes exactly one piece of runtime configuration
// (the listen port); everything else is a fixed design constant. That
// doesn't mean the constants get scattered through the codebase as
// bare literals — they are named and documented here, the way the
// teacher's conf.Bootstrap names its (runtime-loaded) knobs.
package conf

import "time"

// Limits are the fixed design constants from the spec's size budget.
type Limits struct {
	// MaxLine bounds a single request line or header line, in bytes.
	MaxLine int
	// MaxHeaders bounds the number of header lines kept per request.
	MaxHeaders int
	// MaxObjectSize is the largest response the cache will admit,
	// counted over every byte read from the origin (headers included).
	MaxObjectSize int
	// MaxCacheSize is the cache's total byte budget.
	MaxCacheSize int
}

// DefaultLimits matches the source proxy lab's tuning: a 1MB object
// ceiling inside an ~80MB cache.
var DefaultLimits = Limits{
	MaxLine:       8192,
	MaxHeaders:    100,
	MaxObjectSize: 1 << 20,
	MaxCacheSize:  10 << 23,
}

// Bootstrap is the full set of values main wires into the server.
type Bootstrap struct {
	// Addr is the TCP address to listen on, e.g. ":8080".
	Addr string
	Limits
	// ShutdownGrace bounds how long Close() waits for in-flight workers
	// to drain before the cache is torn down regardless.
	ShutdownGrace time.Duration
	// UserAgent is injected into every upstream request per the header
	// policy (spec §4.B).
	UserAgent string
	// LogPath is the access-log destination. Empty means stderr.
	LogPath string
}

// New builds a Bootstrap from a listen address and log path using
// DefaultLimits. logPath == "" logs to stderr.
func New(addr, logPath string) *Bootstrap {
	return &Bootstrap{
		Addr:          addr,
		Limits:        DefaultLimits,
		ShutdownGrace: 5 * time.Second,
		UserAgent:     "Mozilla/5.0 (compatible; CacheProxy/1.0)",
		LogPath:       logPath,
	}
}
