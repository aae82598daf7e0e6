package observability

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors of the service. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
	statusTransitions   *prometheus.CounterVec
	rejectedTransitions *prometheus.CounterVec
	paymentsRecorded    *prometheus.CounterVec
	paymentAmount       *prometheus.CounterVec
	workflowExecutions  *prometheus.CounterVec
	workflowDuration    *prometheus.HistogramVec
	slaBreaches         *prometheus.CounterVec
	atRiskTickets       prometheus.Gauge
	sweepRuns           *prometheus.CounterVec
	eventsPublished     *prometheus.CounterVec
}

// NewMetrics registers every collector on a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"method", "path", "status"}),
		httpErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP responses rendered from an error, by error code",
		}, []string{"method", "path", "code"}),
		statusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_status_transitions_total",
			Help: "Applied status transitions",
		}, []string{"kind", "from", "to"}),
		rejectedTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_rejected_mutations_total",
			Help: "Lifecycle mutations rejected before any write, by error code",
		}, []string{"kind", "code"}),
		paymentsRecorded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "invoice_payments_total",
			Help: "Payments recorded against invoices",
		}, []string{"currency"}),
		paymentAmount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "invoice_payment_amount_minor_total",
			Help: "Sum of recorded payments in minor currency units",
		}, []string{"currency"}),
		workflowExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_executions_total",
			Help: "Workflow executions by outcome",
		}, []string{"status"}),
		workflowDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "workflow_execution_duration_ms",
			Help:    "Workflow runner call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10),
		}, []string{"status"}),
		slaBreaches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sla_breaches_detected_total",
			Help: "SLA breaches detected by the sweep",
		}, []string{"deadline"}),
		atRiskTickets: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sla_at_risk_tickets",
			Help: "Tickets within the at-risk window at the last sweep",
		}),
		sweepRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sweep_runs_total",
			Help: "Background sweep runs by job and result",
		}, []string{"job", "result"}),
		eventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lifecycle_events_published_total",
			Help: "Lifecycle events relayed to the broker",
		}, []string{"event", "result"}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// RecordRequest observes one HTTP request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

// RecordError counts an error response.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(method, path, code).Inc()
}

func (m *Metrics) RecordTransition(kind, from, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(kind, from, to).Inc()
}

func (m *Metrics) RecordRejected(kind, code string) {
	if m == nil {
		return
	}
	m.rejectedTransitions.WithLabelValues(kind, code).Inc()
}

func (m *Metrics) RecordPayment(currency string, amount int64) {
	if m == nil {
		return
	}
	m.paymentsRecorded.WithLabelValues(currency).Inc()
	m.paymentAmount.WithLabelValues(currency).Add(float64(amount))
}

func (m *Metrics) RecordExecution(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.workflowExecutions.WithLabelValues(status).Inc()
	m.workflowDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func (m *Metrics) RecordBreach(deadline string) {
	if m == nil {
		return
	}
	m.slaBreaches.WithLabelValues(deadline).Inc()
}

func (m *Metrics) SetAtRisk(count int) {
	if m == nil {
		return
	}
	m.atRiskTickets.Set(float64(count))
}

func (m *Metrics) RecordSweep(job string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.sweepRuns.WithLabelValues(job, result).Inc()
}

func (m *Metrics) RecordPublish(event string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.eventsPublished.WithLabelValues(event, result).Inc()
}
