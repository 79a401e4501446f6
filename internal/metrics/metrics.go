package metrics

import (
	"context"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pizza-lovers/internal/events"
	"pizza-lovers/internal/models"
)

const namespace = "pizza_lovers"

// Metrics holds the collectors of the order service
type Metrics struct {
	Requests      *prometheus.CounterVec
	LatencyMS     *prometheus.HistogramVec
	OrdersCreated *prometheus.CounterVec
	Transitions   *prometheus.CounterVec
	PublishErrors prometheus.Counter

	registry *prometheus.Registry
}

// New registers the collectors on a fresh registry so tests can build as
// many as they like
func New(service string) *Metrics {
	service = strings.ReplaceAll(service, "-", "_")
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "orders_created_total",
			Help:      "Orders placed, by channel.",
		}, []string{"channel"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "order_transitions_total",
			Help:      "Applied order status transitions.",
		}, []string{"to"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "event_publish_errors_total",
			Help:      "Order events that could not be published.",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.Requests, m.LatencyMS, m.OrdersCreated, m.Transitions, m.PublishErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CountFailures wraps pub so every failed publish bumps PublishErrors
func (m *Metrics) CountFailures(pub events.Publisher) events.Publisher {
	return countingPublisher{next: pub, failures: m.PublishErrors}
}

type countingPublisher struct {
	next     events.Publisher
	failures prometheus.Counter
}

func (p countingPublisher) Publish(ctx context.Context, ev models.OrderEvent) error {
	err := p.next.Publish(ctx, ev)
	if err != nil {
		p.failures.Inc()
	}
	return err
}

// ObserveTransition counts an applied status change
func (m *Metrics) ObserveTransition(_, to models.OrderStatus) {
	m.Transitions.WithLabelValues(string(to)).Inc()
}
