package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the console's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	// Console HTTP surface
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Route guard outcomes by state
	GuardDecisions *prometheus.CounterVec

	// Remote voice API calls
	APICalls   *prometheus.CounterVec
	APILatency *prometheus.HistogramVec

	// Voice attempts and escalations to the credential fallback
	VoiceAttempts    *prometheus.CounterVec
	VoiceEscalations *prometheus.CounterVec
}

// New creates a Metrics instance with all collectors registered on reg.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_http_requests_total",
				Help: "Total number of console HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "console_http_request_duration_seconds",
				Help:    "Console HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		GuardDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_guard_decisions_total",
				Help: "Route guard decisions by resulting state",
			},
			[]string{"state"},
		),
		APICalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_voice_api_calls_total",
				Help: "Total number of voice API calls",
			},
			[]string{"endpoint", "status"},
		),
		APILatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "console_voice_api_latency_seconds",
				Help:    "Voice API call latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"endpoint"},
		),
		VoiceAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_voice_attempts_total",
				Help: "Voice login and identify attempts by outcome",
			},
			[]string{"flow", "outcome"},
		),
		VoiceEscalations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_voice_fallback_escalations_total",
				Help: "Sessions switched to the credential fallback after repeated voice failures",
			},
			[]string{"flow"},
		),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func (m *Metrics) ObserveGuard(state string) {
	if m == nil {
		return
	}
	m.GuardDecisions.WithLabelValues(state).Inc()
}

// ObserveAPICall records one voice API call. status is the HTTP status code,
// or 0 for a transport failure.
func (m *Metrics) ObserveAPICall(endpoint string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.APICalls.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.APILatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (m *Metrics) ObserveVoiceAttempt(flow string, success, escalated bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.VoiceAttempts.WithLabelValues(flow, outcome).Inc()
	if escalated {
		m.VoiceEscalations.WithLabelValues(flow).Inc()
	}
}
