package observability

import (
	"errors"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu      sync.RWMutex
	enabled bool

	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	renderTotal                *prometheus.CounterVec
	renderBytes                *prometheus.HistogramVec
	fenceFetchSeconds          *prometheus.HistogramVec
	fenceFetchErrors           *prometheus.CounterVec
	fencesServed               *prometheus.GaugeVec
	parseCacheTotal            *prometheus.CounterVec
	redisOpTotal               *prometheus.CounterVec
	redisOpSeconds             *prometheus.HistogramVec
	exportEventsTotal          *prometheus.CounterVec
	updateAvailable            *prometheus.GaugeVec
	updateChecksTotal          *prometheus.CounterVec
	buildInfo                  *prometheus.GaugeVec
)

func newCollectors() {
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
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "route", "status"},
	)
	renderTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formatter_render_total",
			Help: "Format operations by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)
	renderBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "formatter_output_bytes",
			Help:    "Size of rendered output in bytes.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		},
		[]string{"mode"},
	)
	fenceFetchSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fence_fetch_duration_seconds",
			Help:    "Latency of loading fences from the fence store.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"source"},
	)
	fenceFetchErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fence_fetch_errors_total",
			Help: "Failed fence store loads.",
		},
		[]string{"source"},
	)
	fencesServed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fences_loaded",
			Help: "Number of named polygons returned by the last fence store load.",
		},
		[]string{"source"},
	)
	parseCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fence_parse_cache_total",
			Help: "Fence data parse memo lookups by outcome.",
		},
		[]string{"outcome"},
	)
	redisOpTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_op_total",
			Help: "Redis operations by op and result.",
		},
		[]string{"op", "result"},
	)
	redisOpSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Latency of Redis operations.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)
	exportEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_events_total",
			Help: "Export events by outcome (queued, dropped, failed).",
		},
		[]string{"outcome"},
	)
	updateAvailable = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "plugin_update_available",
			Help: "1 if a newer plugin version was found upstream, 0 otherwise.",
		},
		[]string{"current", "available"},
	)
	updateChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plugin_update_checks_total",
			Help: "Update checks by result.",
		},
		[]string{"result"},
	)
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gfhelper_build_info",
			Help: "Plugin build information.",
		},
		[]string{"version"},
	)
}

func init() {
	newCollectors()
}

// Init registers fresh collectors with reg. With on=false every Observe*
// call becomes a no-op.
func Init(reg prometheus.Registerer, on bool) {
	mu.Lock()
	defer mu.Unlock()
	newCollectors()
	enabled = on && reg != nil
	if !enabled {
		return
	}
	for _, c := range []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds,
		renderTotal, renderBytes,
		fenceFetchSeconds, fenceFetchErrors, fencesServed,
		parseCacheTotal,
		redisOpTotal, redisOpSeconds,
		exportEventsTotal,
		updateAvailable, updateChecksTotal,
		buildInfo,
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
}

func on() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	if !on() {
		return
	}
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveRender(mode string, err error, outBytes int) {
	if !on() {
		return
	}
	if err != nil {
		renderTotal.WithLabelValues(mode, "error").Inc()
		return
	}
	renderTotal.WithLabelValues(mode, "ok").Inc()
	renderBytes.WithLabelValues(mode).Observe(float64(outBytes))
}

func ObserveFenceFetch(source string, err error, n int, durationSeconds float64) {
	if !on() {
		return
	}
	fenceFetchSeconds.WithLabelValues(source).Observe(durationSeconds)
	if err != nil {
		fenceFetchErrors.WithLabelValues(source).Inc()
		return
	}
	fencesServed.WithLabelValues(source).Set(float64(n))
}

func IncParseCache(outcome string) {
	if !on() {
		return
	}
	parseCacheTotal.WithLabelValues(outcome).Inc()
}

func ObserveRedisOp(op string, err error, durationSeconds float64) {
	if !on() {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	redisOpTotal.WithLabelValues(op, result).Inc()
	redisOpSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func IncExportEvent(outcome string) {
	if !on() {
		return
	}
	exportEventsTotal.WithLabelValues(outcome).Inc()
}

// SetUpdateAvailable keeps a single series per (current, available) pair.
func SetUpdateAvailable(current, available string, yes bool) {
	if !on() {
		return
	}
	updateAvailable.Reset()
	v := 0.0
	if yes {
		v = 1
	}
	updateAvailable.WithLabelValues(current, available).Set(v)
}

func IncUpdateCheck(result string) {
	if !on() {
		return
	}
	updateChecksTotal.WithLabelValues(result).Inc()
}

func ExposeBuildInfo(version string) {
	if !on() {
		return
	}
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
