// Package metrics exposes pipeline counters in Prometheus format.
//
// All methods are safe on a nil *Metrics so components can take an optional
// instance without guarding every call.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gamereporter/internal/logging"
)

// Metrics owns a private registry and the pipeline collectors.
type Metrics struct {
	registry *prometheus.Registry

	reportAttempts *prometheus.CounterVec
	reportsSettled *prometheus.CounterVec
	uploads        *prometheus.CounterVec
	statusPings    *prometheus.CounterVec
	queueDepth     prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reportAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamereporter_report_attempts_total",
			Help: "Delivery attempts for game reports, by outcome",
		}, []string{"outcome"}),
		reportsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamereporter_reports_total",
			Help: "Game reports removed from the queue, by result and online mode",
		}, []string{"result", "mode"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamereporter_replay_uploads_total",
			Help: "Replay uploads, by outcome",
		}, []string{"outcome"}),
		statusPings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamereporter_status_pings_total",
			Help: "Match status, completion and abandonment pings, by kind and outcome",
		}, []string{"kind", "outcome"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gamereporter_report_queue_depth",
			Help: "Reports waiting in the delivery queue",
		}),
	}
	m.registry.MustRegister(m.reportAttempts, m.reportsSettled, m.uploads, m.statusPings, m.queueDepth)
	return m
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// ReportAttempt counts one reportOnlineGame call.
func (m *Metrics) ReportAttempt(ok bool) {
	if m == nil {
		return
	}
	m.reportAttempts.WithLabelValues(outcome(ok)).Inc()
}

// ReportDelivered counts a report acknowledged by the server.
func (m *Metrics) ReportDelivered(mode string) {
	if m == nil {
		return
	}
	m.reportsSettled.WithLabelValues("delivered", mode).Inc()
}

// ReportDropped counts a report discarded after its last attempt.
func (m *Metrics) ReportDropped(mode string) {
	if m == nil {
		return
	}
	m.reportsSettled.WithLabelValues("dropped", mode).Inc()
}

// Upload counts one replay upload.
func (m *Metrics) Upload(ok bool) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(outcome(ok)).Inc()
}

// StatusPing counts one status channel mutation.
func (m *Metrics) StatusPing(kind string, ok bool) {
	if m == nil {
		return
	}
	m.statusPings.WithLabelValues(kind, outcome(ok)).Inc()
}

// SetQueueDepth records the number of pending reports.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Serve exposes /metrics and /healthz on addr until ctx is cancelled. Each
// mount function may register additional routes on the same mux.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger, mounts ...func(*http.ServeMux)) error {
	logger = logging.NewComponentLogger(logger, "metrics")
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	for _, mount := range mounts {
		mount(mux)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	logger.Info("metrics endpoint listening", logging.String("addr", listener.Addr().String()))
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
