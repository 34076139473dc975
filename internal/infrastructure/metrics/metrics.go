package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Event metrics
	EventsRecorded *prometheus.CounterVec

	// Period metrics
	PeriodsClosed      prometheus.Counter
	CheckpointsCreated prometheus.Counter

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Database metrics
	DBErrors *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		EventsRecorded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundledger_events_recorded_total",
				Help: "Total balance events recorded by kind",
			},
			[]string{"kind"},
		),
		PeriodsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fundledger_periods_closed_total",
			Help: "Total accounting periods closed",
		}),
		CheckpointsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fundledger_checkpoints_created_total",
			Help: "Total balance checkpoints created",
		}),

		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fundledger_cache_hits_total",
			Help: "Total balance cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fundledger_cache_misses_total",
			Help: "Total balance cache misses",
		}),

		DBErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundledger_db_errors_total",
				Help: "Total database errors by operation",
			},
			[]string{"operation"},
		),
	}
}

// Serve exposes the default registry on addr until the server fails. Meant
// to run in a goroutine next to a long-lived process.
func Serve(addr string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}
