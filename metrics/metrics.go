// Package metrics exposes the proxy's Prometheus collectors.
//
// Grounded on the teacher's use of prometheus/client_golang in
// server/server.go (_metricRequestsTotal, a prefixed DefaultRegisterer)
// and main.go's Go-runtime collector registration, plus
// metrics/request_info.go's pattern of a small per-request struct. The
// throughput gauge is fed by paulbellamy/ratecounter, the same
// dependency the teacher carries for exactly this sliding-window-rate
// purpose.
package metrics

import (
	"time"

	"github.com/paulbellamy/ratecounter"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cacheproxy",
		Name:      "connections_total",
		Help:      "Total client connections accepted.",
	})

	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cacheproxy",
		Name:      "requests_total",
		Help:      "Total requests handled, by method and result.",
	}, []string{"method", "result"})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cacheproxy",
		Name:      "cache_hits_total",
		Help:      "Total HTTP relay requests served from cache.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cacheproxy",
		Name:      "cache_misses_total",
		Help:      "Total HTTP relay requests that missed the cache.",
	})

	CacheEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cacheproxy",
		Name:      "cache_evictions_total",
		Help:      "Total entries evicted to satisfy the cache's byte budget.",
	})

	CacheBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cacheproxy",
		Name:      "cache_bytes",
		Help:      "Current cache byte_total.",
	})

	ActiveWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cacheproxy",
		Name:      "active_workers",
		Help:      "Number of client connections currently being served.",
	})

	RequestRate = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cacheproxy",
		Name:      "requests_per_second",
		Help:      "Requests/sec over the trailing window.",
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		RequestsTotal,
		CacheHitsTotal,
		CacheMissesTotal,
		CacheEvictionsTotal,
		CacheBytes,
		ActiveWorkers,
		RequestRate,
	)
}

// Throughput tracks requests/sec over a trailing window and republishes
// it to the RequestRate gauge. It plays the role the teacher's
// metrics.RequestMetric plays for a single request, but aggregated
// across the process.
type Throughput struct {
	counter *ratecounter.RateCounter
	window  time.Duration
	stop    chan struct{}
}

// NewThroughput starts a background ticker that republishes the
// trailing-window rate to Prometheus every interval.
func NewThroughput(window, interval time.Duration) *Throughput {
	t := &Throughput{
		counter: ratecounter.NewRateCounter(window),
		window:  window,
		stop:    make(chan struct{}),
	}
	go t.run(interval)
	return t
}

// Mark records one completed request.
func (t *Throughput) Mark() {
	t.counter.Incr(1)
}

// Close stops the background publisher.
func (t *Throughput) Close() {
	close(t.stop)
}

func (t *Throughput) run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Rate() is the event count over the whole window.
			RequestRate.Set(float64(t.counter.Rate()) / t.window.Seconds())
		case <-t.stop:
			return
		}
	}
}
