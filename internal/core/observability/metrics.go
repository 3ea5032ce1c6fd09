package observability

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/model"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_upstream_latency_seconds",
			Help:    "Latency of storefront API calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"operation", "outcome"},
	)

	cacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_results_total",
			Help: "Cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	cacheOpTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Cache backend operations by result.",
		},
		[]string{"op", "result"},
	)

	cacheOpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_operation_duration_seconds",
			Help:    "Duration of cache backend operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	listingRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_requests_total",
			Help: "Product listing requests by sort key and direction.",
		},
		[]string{"sort_key", "reverse"},
	)

	listingPageSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "listing_page_size",
			Help:    "Requested listing page size.",
			Buckets: []float64{1, 4, 8, 12, 24, 48, 100, 250},
		},
	)

	invalidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_invalidations_total",
			Help: "Catalog change events handled, by op and result.",
		},
		[]string{"op", "result"},
	)

	invalidationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_invalidation_duration_seconds",
			Help:    "Time spent applying one catalog change event.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)

	cachePurgedKeys = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_purged_keys_total",
			Help: "Cache entries removed by catalog invalidation.",
		},
	)

	eventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "listing_events_dropped_total",
			Help: "Listing view events dropped because the publish queue was full.",
		},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDurationSeconds,
		upstreamLatencySeconds,
		cacheResults,
		cacheOpTotal,
		cacheOpDurationSeconds,
		listingRequests,
		listingPageSize,
		eventsDropped,
		invalidationsTotal,
		invalidationDurationSeconds,
		cachePurgedKeys,
	}
}

// Init registers the service collectors with reg, or with the default
// registerer when reg is nil. Registering twice is a no-op.
func Init(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstream(operation string, err error, durationSeconds float64) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	upstreamLatencySeconds.WithLabelValues(operation, outcome).Observe(durationSeconds)
}

func IncCacheHit() {
	cacheResults.WithLabelValues("hit").Inc()
}

func IncCacheMiss() {
	cacheResults.WithLabelValues("miss").Inc()
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	res := "ok"
	if err != nil {
		res = "error"
	}
	cacheOpTotal.WithLabelValues(op, res).Inc()
	cacheOpDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
}

// ObserveListing keeps the sort_key label bounded: anything outside the
// storefront's enum is reported as "other".
func ObserveListing(q model.QueryParameters) {
	sk := string(q.SortKey)
	if !q.SortKey.Known() {
		sk = "other"
	}
	listingRequests.WithLabelValues(sk, strconv.FormatBool(q.Reverse)).Inc()
	listingPageSize.Observe(float64(q.PageSize))
}

func IncEventsDropped() {
	eventsDropped.Inc()
}

// ObserveInvalidation records one catalog change event. result is one of
// "purged", "skipped" or "error".
func ObserveInvalidation(op, result string, purged int, durationSeconds float64) {
	if op == "" {
		op = "unknown"
	}
	invalidationsTotal.WithLabelValues(op, result).Inc()
	invalidationDurationSeconds.Observe(durationSeconds)
	if purged > 0 {
		cachePurgedKeys.Add(float64(purged))
	}
}
