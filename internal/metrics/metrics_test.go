// ABOUTME: Tests for the Prometheus collectors
// ABOUTME: Reads counters back through testutil and scrapes the handler
package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sisyph/mcoder/internal/models"
)

func TestObserveVerdict(t *testing.T) {
	m := New()
	m.ObserveVerdict("create_project", models.Verdict{RiskLevel: models.RiskLow})
	m.ObserveVerdict("add_message", models.Verdict{RiskLevel: models.RiskHigh})
	m.ObserveVerdict("add_message", models.Verdict{RiskLevel: models.RiskHigh})

	if got := testutil.ToFloat64(m.Verdicts.WithLabelValues("add_message", "HIGH")); got != 2 {
		t.Errorf("add_message/HIGH = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Verdicts.WithLabelValues("create_project", "LOW")); got != 1 {
		t.Errorf("create_project/LOW = %v, want 1", got)
	}
}

func TestObserveRebuild(t *testing.T) {
	m := New()
	m.ObserveRebuild("auto_build", "done", 2*time.Second)
	m.ObserveRebuild("auto_build", "failed", time.Second)

	if got := testutil.ToFloat64(m.Rebuilds.WithLabelValues("auto_build", "failed")); got != 1 {
		t.Errorf("failed runs = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.RebuildDuration); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.ObserveVerdict("add_file", models.Verdict{RiskLevel: models.RiskMedium})
	m.CachePruned.Add(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`mcoder_classifier_verdicts_total{action="add_file",risk="MEDIUM"} 1`,
		"mcoder_cache_pruned_total 3",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestNew_Independent(t *testing.T) {
	a, b := New(), New()
	a.CachePruned.Inc()
	if got := testutil.ToFloat64(b.CachePruned); got != 0 {
		t.Errorf("second registry saw %v, want 0", got)
	}
}
