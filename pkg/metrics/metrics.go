package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Postback metrics
	PostbacksReceived *prometheus.CounterVec
	Notifications     *prometheus.CounterVec

	// Stats command metrics
	StatsCommands        *prometheus.CounterVec
	StatsCommandDuration prometheus.Histogram
	PayoutParseFailures  prometheus.Counter

	// External API metrics
	ExternalAPICalls    *prometheus.CounterVec
	ExternalAPIDuration *prometheus.HistogramVec
	ExternalAPIFailures *prometheus.CounterVec
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		PostbacksReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "postbacks_received_total",
				Help: "Total number of tracker postbacks received",
			},
			[]string{"method", "encoding"},
		),

		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_total",
				Help: "Total number of notification delivery attempts",
			},
			[]string{"kind", "outcome"},
		),

		StatsCommands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stats_commands_total",
				Help: "Total number of stats commands handled",
			},
			[]string{"result"},
		),

		StatsCommandDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stats_command_duration_seconds",
				Help:    "Stats command duration in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),

		PayoutParseFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "report_payout_parse_failures_total",
				Help: "Report rows whose payout could not be parsed",
			},
		),

		ExternalAPICalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "external_api_calls_total",
				Help: "Total number of external API calls",
			},
			[]string{"api", "status"},
		),

		ExternalAPIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "external_api_duration_seconds",
				Help:    "External API call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"api"},
		),

		ExternalAPIFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "external_api_failures_total",
				Help: "Total number of external API failures",
			},
			[]string{"api", "error_type"},
		),
	}
}

// HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Postback intake, encoding is one of query/json/form/none
func (m *Metrics) RecordPostback(method, encoding string) {
	m.PostbacksReceived.WithLabelValues(method, encoding).Inc()
}

// Notification delivery, kind is event/stats/ack
func (m *Metrics) RecordNotification(kind string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.Notifications.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) RecordStatsCommand(result string, duration time.Duration) {
	m.StatsCommands.WithLabelValues(result).Inc()
	m.StatsCommandDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordPayoutParseFailure() {
	m.PayoutParseFailures.Inc()
}

// External API call metrics
func (m *Metrics) RecordExternalAPICall(api, status string, duration time.Duration) {
	m.ExternalAPICalls.WithLabelValues(api, status).Inc()
	m.ExternalAPIDuration.WithLabelValues(api).Observe(duration.Seconds())
}

// External API failure metrics
func (m *Metrics) RecordExternalAPIFailure(api, errorType string) {
	m.ExternalAPIFailures.WithLabelValues(api, errorType).Inc()
}

// HTTP requests in flight counter
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// HTTP requests in flight counter
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
