package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/digisapp/digis-app-sub003/internal/core/ports"
)

// PrometheusCollector implements the core metrics port.
type PrometheusCollector struct {
	bootstrapTotal    *prometheus.CounterVec
	bootstrapDuration prometheus.Histogram

	connectAttemptsTotal *prometheus.CounterVec
	reconnectsTotal      prometheus.Counter

	inboundEventsTotal  *prometheus.CounterVec
	outboundEventsTotal *prometheus.CounterVec
	droppedEmitsTotal   *prometheus.CounterVec
}

var _ ports.Metrics = (*PrometheusCollector)(nil)

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		bootstrapTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "digis_bootstrap_total",
			Help: "Session bootstrap attempts by outcome",
		}, []string{"outcome"}),

		bootstrapDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "digis_bootstrap_duration_seconds",
			Help:    "Duration of session bootstrap",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),

		connectAttemptsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "digis_socket_connect_attempts_total",
			Help: "Realtime connection attempts by result",
		}, []string{"result"}),

		reconnectsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "digis_socket_reconnects_total",
			Help: "Successful reconnections after a drop",
		}),

		inboundEventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "digis_socket_inbound_events_total",
			Help: "Inbound realtime events by type",
		}, []string{"event"}),

		outboundEventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "digis_socket_outbound_events_total",
			Help: "Outbound realtime events by type",
		}, []string{"event"}),

		droppedEmitsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "digis_socket_dropped_emits_total",
			Help: "Outbound events dropped while disconnected",
		}, []string{"event"}),
	}
}

func (p *PrometheusCollector) RecordBootstrap(outcome string, duration time.Duration) {
	p.bootstrapTotal.WithLabelValues(outcome).Inc()
	p.bootstrapDuration.Observe(duration.Seconds())
}

func (p *PrometheusCollector) RecordConnectAttempt(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	p.connectAttemptsTotal.WithLabelValues(result).Inc()
}

func (p *PrometheusCollector) RecordReconnect() {
	p.reconnectsTotal.Inc()
}

func (p *PrometheusCollector) RecordInboundEvent(event string) {
	p.inboundEventsTotal.WithLabelValues(event).Inc()
}

func (p *PrometheusCollector) RecordOutboundEvent(event string) {
	p.outboundEventsTotal.WithLabelValues(event).Inc()
}

func (p *PrometheusCollector) RecordDroppedEmit(event string) {
	p.droppedEmitsTotal.WithLabelValues(event).Inc()
}
