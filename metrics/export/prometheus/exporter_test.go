package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	adminGate "github.com/MrEthical07/adminGate"
)

type fakeSource struct {
	snapshot adminGate.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() adminGate.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: adminGate.MetricsSnapshot{
			Counters:   map[adminGate.MetricID]uint64{},
			Histograms: map[adminGate.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderIncludesCounterAndHistogram(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: adminGate.MetricsSnapshot{
			Counters: map[adminGate.MetricID]uint64{
				adminGate.MetricPasswordLockout: 7,
			},
			Histograms: map[adminGate.MetricID][]uint64{
				adminGate.MetricServiceLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"admingate_password_lockout_total 7",
		"admingate_code_lockout_total 0",
		`admingate_service_latency_seconds_bucket{le="0.05"} 1`,
		`admingate_service_latency_seconds_bucket{le="+Inf"} 36`,
		"admingate_service_latency_seconds_count 36",
		"admingate_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRenderFromGate(t *testing.T) {
	g := newTestGate(t)
	out := NewExporter(g).Render()
	if !strings.Contains(out, "admingate_credentials_submitted_total 0") {
		t.Fatalf("expected gate counters, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewExporter(fakeSource{
		snapshot: adminGate.MetricsSnapshot{
			Counters: map[adminGate.MetricID]uint64{adminGate.MetricLogout: 1},
		},
	})

	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
