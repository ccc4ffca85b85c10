package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "external_requests_total", Help: "Outbound requests to channel APIs."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	SourceAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "source_attempts_total", Help: "Source chain attempts by outcome."},
		[]string{"source", "outcome"}, // outcome: ok|error|bad_body|bad_status|empty
	)
	SourceLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reviews", Name: "source_fetch_duration_seconds",
			Help:    "Duration of one source attempt.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	RecordsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "reviews", Name: "records_skipped_total", Help: "Raw records excluded from the store."},
	)
	FieldsDegraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "fields_degraded_total", Help: "Fields that fell back to null/default."},
		[]string{"field"},
	)
	SnapshotSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "reviews", Name: "snapshot_saves_total", Help: "Durable snapshot writes."},
		[]string{"backend", "result"},
	)
)

// Serve starts a side metrics listener when addr is set.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		HTTPRequests, HTTPLatency,
		ExternalRequests, ExternalLatency,
		SourceAttempts, SourceLatency,
		CacheEvents, RecordsSkipped, FieldsDegraded, SnapshotSaves,
	)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveSource(source, outcome string, dur time.Duration) {
	SourceAttempts.WithLabelValues(source, outcome).Inc()
	SourceLatency.WithLabelValues(source).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveParse(skipped int, degraded map[string]int) {
	RecordsSkipped.Add(float64(skipped))
	for field, n := range degraded {
		FieldsDegraded.WithLabelValues(field).Add(float64(n))
	}
}

func ObserveSave(backend, result string) {
	SnapshotSaves.WithLabelValues(backend, result).Inc()
}
