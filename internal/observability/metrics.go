package observability

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/neurobridge-psychometrics/internal/platform/envutil"
	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
)

// Metrics owns a private Prometheus registry. A nil *Metrics is valid and
// records nothing, so callers never need to check Enabled().
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	estimates     *prometheus.CounterVec
	calibrations  *prometheus.CounterVec
	passDuration  *prometheus.HistogramVec
	selections    *prometheus.CounterVec
	cpiRequests   *prometheus.CounterVec
	integrityFail prometheus.Counter
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	apiLabels := []string{"method", "route", "status"}
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "psy_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, apiLabels),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "psy_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, apiLabels),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "psy_api_inflight_requests",
			Help: "In-flight API requests.",
		}),

		estimates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "psy_ability_estimates_total",
			Help: "Ability estimates by reliability.",
		}, []string{"reliable"}),
		calibrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "psy_item_calibrations_total",
			Help: "Item calibration attempts by outcome.",
		}, []string{"outcome"}),
		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "psy_recalibration_pass_duration_seconds",
			Help:    "Recalibration pass duration by pass and status.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"pass", "status"}),
		selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "psy_challenge_selections_total",
			Help: "Attention selections by mode.",
		}, []string{"mode"}),
		cpiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "psy_cpi_computations_total",
			Help: "CPI computations by drift flag.",
		}, []string{"drift"}),
		integrityFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "psy_ledger_integrity_failures_total",
			Help: "Ledger integrity faults surfaced to callers.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests,
		m.apiLatency,
		m.apiInflight,
		m.estimates,
		m.calibrations,
		m.passDuration,
		m.selections,
		m.cpiRequests,
		m.integrityFail,
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

// WriteHTTP serves the registry in the Prometheus text format.
func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	m.handler.ServeHTTP(w, r)
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) IncAbilityEstimate(reliable bool) {
	if m == nil {
		return
	}
	m.estimates.WithLabelValues(boolLabel(reliable)).Inc()
}

// IncCalibration records one item outcome: calibrated, insufficient_data,
// calibration_failed or error.
func (m *Metrics) IncCalibration(outcome string) {
	if m == nil {
		return
	}
	m.calibrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRecalibrationPass(pass, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.passDuration.WithLabelValues(pass, status).Observe(dur.Seconds())
}

func (m *Metrics) IncSelection(fallback bool) {
	if m == nil {
		return
	}
	mode := "attention"
	if fallback {
		mode = "fallback"
	}
	m.selections.WithLabelValues(mode).Inc()
}

func (m *Metrics) IncCPI(drift bool) {
	if m == nil {
		return
	}
	m.cpiRequests.WithLabelValues(boolLabel(drift)).Inc()
}

func (m *Metrics) IncIntegrityFailure() {
	if m == nil {
		return
	}
	m.integrityFail.Inc()
}

func boolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
