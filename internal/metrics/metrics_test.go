package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncTransition("accept")
	m.IncTransition("accept")
	m.AddProvisioned("driver", 3)
	m.AddKeys("access", 4)
	m.SetAttention(7)
	m.ObserveTask("revalidation_sweep", time.Now(), errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.VerificationTransitions.WithLabelValues("accept")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.AccountsProvisioned.WithLabelValues("driver")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.KeysIssued.WithLabelValues("access")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.AttentionQueue))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "transit_verification_transitions_total")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncTransition("accept")
		m.SetAttention(1)
		m.AddProvisioned("driver", 1)
		m.AddKeys("access", 1)
		m.ObserveTask("x", time.Now(), nil)
		m.ObserveHTTP("GET", "/", 200, time.Now())
	})
}
