package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's collectors. A nil *Metrics is valid and
// records nothing, so services under test can skip it.
type Metrics struct {
	gatherer prometheus.Gatherer

	VerificationTransitions *prometheus.CounterVec
	AttentionQueue          prometheus.Gauge
	AccountsProvisioned     *prometheus.CounterVec
	KeysIssued              *prometheus.CounterVec
	TaskDuration            *prometheus.HistogramVec
	HTTPRequestDuration     *prometheus.HistogramVec
}

// New registers every collector on reg.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		VerificationTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_verification_transitions_total",
			Help: "Verification lifecycle operations that changed a record",
		}, []string{"operation"}),
		AttentionQueue: factory.NewGauge(prometheus.GaugeOpts{
			Name: "transit_verifications_needing_attention",
			Help: "Size of the needs-attention queue at the last stats read",
		}),
		AccountsProvisioned: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_accounts_provisioned_total",
			Help: "Accounts created, sub-accounts included",
		}, []string{"role"}),
		KeysIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_keys_issued_total",
			Help: "Access and master keys generated",
		}, []string{"kind"}),
		TaskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transit_task_duration_seconds",
			Help:    "Duration of maintenance tasks",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"task", "outcome"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transit_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) IncTransition(operation string) {
	if m == nil {
		return
	}
	m.VerificationTransitions.WithLabelValues(operation).Inc()
}

func (m *Metrics) SetAttention(n int) {
	if m == nil {
		return
	}
	m.AttentionQueue.Set(float64(n))
}

func (m *Metrics) AddProvisioned(role string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.AccountsProvisioned.WithLabelValues(role).Add(float64(n))
}

func (m *Metrics) AddKeys(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.KeysIssued.WithLabelValues(kind).Add(float64(n))
}

// ObserveTask records a maintenance task; call with time.Now() taken at the start.
func (m *Metrics) ObserveTask(task string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.TaskDuration.WithLabelValues(task, outcome).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveHTTP(method, route string, status int, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
}
