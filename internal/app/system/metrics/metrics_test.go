package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func TestDecision_CountsByOutcome(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Decision("claim", "approve", nil)
	m.Decision("claim", "approve", nil)
	m.Decision("claim", "approve", errors.New("nope"))

	if got := testutil.ToFloat64(m.Decisions.WithLabelValues("claim", "approve", OutcomeOK)); got != 2 {
		t.Errorf("ok count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Decisions.WithLabelValues("claim", "approve", OutcomeFailed)); got != 1 {
		t.Errorf("failed count = %v, want 1", got)
	}
}

func TestObserveBatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveBatch(3, 20*time.Millisecond)

	if n := testutil.CollectAndCount(m.BatchItems); n != 1 {
		t.Errorf("expected 1 batch_items series, got %d", n)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Decision("review", "reject", nil)
	m.ObserveBatch(1, time.Second)
}

func TestHandler_ServesRegisteredMetrics(t *testing.T) {
	reg := NewRegistry()
	m := New(reg)
	m.Decision("review", "reject", nil)

	rec := httptest.NewRecorder()
	Handler(reg, zap.NewNop()).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`directoryhub_moderation_decisions_total{action="reject",entity="review",outcome="ok"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
