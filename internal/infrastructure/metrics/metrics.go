package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "encore"

// Outcome labels shared by producers, relays and the notification consumer.
const (
	OutcomeSuccess        = "success"
	OutcomeFailure        = "failure"
	OutcomeAcked          = "acked"
	OutcomeParseError     = "parse_error"
	OutcomeInvalid        = "invalid"
	OutcomeEnrichError    = "enrich_error"
	OutcomePersistError   = "persist_error"
	OutcomeEmptyDelivery  = "empty_delivery"
	OutcomeRelayed        = "relayed"
	OutcomeRelayDiscarded = "relay_discarded"
)

type Metrics struct {
	registry *prometheus.Registry

	EventsPublished       *prometheus.CounterVec
	NotificationsConsumed *prometheus.CounterVec
	RelayedEvents         *prometheus.CounterVec
	HandleDuration        *prometheus.HistogramVec
	HTTPRequests          *prometheus.CounterVec
	HTTPDuration          *prometheus.HistogramVec
}

// New registers every collector on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events published to the broker by queue and outcome.",
		}, []string{"queue", "outcome"}),
		NotificationsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_consumed_total",
			Help:      "Notification deliveries handled by terminal outcome.",
		}, []string{"outcome"}),
		RelayedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayed_events_total",
			Help:      "Domain events reshaped into notification messages.",
		}, []string{"queue", "outcome"}),
		HandleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_handle_seconds",
			Help:      "Time spent handling one broker delivery.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"queue"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.EventsPublished,
		m.NotificationsConsumed,
		m.RelayedEvents,
		m.HandleDuration,
		m.HTTPRequests,
		m.HTTPDuration,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Published(queue string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.EventsPublished.WithLabelValues(queue, outcome).Inc()
}

func (m *Metrics) Consumed(outcome string) {
	m.NotificationsConsumed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Relayed(queue, outcome string) {
	m.RelayedEvents.WithLabelValues(queue, outcome).Inc()
}

func (m *Metrics) ObserveHandle(queue string, start time.Time) {
	m.HandleDuration.WithLabelValues(queue).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveRequest(method, route string, status int, start time.Time) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
}
