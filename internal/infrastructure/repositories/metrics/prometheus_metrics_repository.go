package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/repositories"
)

// PrometheusMetricsRepository exports tick outcomes on its own registry.
type PrometheusMetricsRepository struct {
	registry *prometheus.Registry

	ticksTotal        prometheus.Counter
	decisionsTotal    *prometheus.CounterVec
	suppressionsTotal *prometheus.CounterVec
	deferralsTotal    *prometheus.CounterVec
	failuresTotal     prometheus.Counter
	pending           prometheus.Gauge
	lastTick          prometheus.Gauge
}

var _ repositories.MetricsRepository = (*PrometheusMetricsRepository)(nil)

// NewPrometheusMetricsRepository registers the evaluator metrics on a fresh registry.
func NewPrometheusMetricsRepository() *PrometheusMetricsRepository {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &PrometheusMetricsRepository{
		registry: registry,
		ticksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "autopolicy_ticks_total",
			Help: "Total number of evaluation passes",
		}),
		decisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "autopolicy_decisions_total",
			Help: "Total number of emitted change-sets by action",
		}, []string{"action"}),
		suppressionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "autopolicy_suppressions_total",
			Help: "Total number of suppressed candidates by reason",
		}, []string{"reason"}),
		deferralsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "autopolicy_deferrals_total",
			Help: "Total number of deferred change-sets by reason",
		}, []string{"reason"}),
		failuresTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "autopolicy_execution_failures_total",
			Help: "Total number of emitted change-sets the executor rejected",
		}),
		pending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "autopolicy_pending_candidates",
			Help: "Number of candidates waiting for a decision",
		}),
		lastTick: factory.NewGauge(prometheus.GaugeOpts{
			Name: "autopolicy_last_tick_timestamp_seconds",
			Help: "Unix time of the last evaluation pass",
		}),
	}
}

func (it *PrometheusMetricsRepository) ObserveTick(result entities.TickResult) {
	it.ticksTotal.Inc()
	for _, decision := range result.Emitted {
		it.decisionsTotal.WithLabelValues(string(decision.Action)).Inc()
	}
	for _, decision := range result.Suppressed {
		it.suppressionsTotal.WithLabelValues(string(decision.Suppression)).Inc()
	}
	for _, deferral := range result.Deferred {
		it.deferralsTotal.WithLabelValues(string(deferral.Reason)).Inc()
	}
	it.failuresTotal.Add(float64(result.Failed))
	it.pending.Set(float64(result.Pending))
	if !result.Tick.IsZero() {
		it.lastTick.Set(float64(result.Tick.Unix()))
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (it *PrometheusMetricsRepository) Registry() *prometheus.Registry {
	return it.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (it *PrometheusMetricsRepository) Handler() http.Handler {
	return promhttp.HandlerFor(it.registry, promhttp.HandlerOpts{})
}
