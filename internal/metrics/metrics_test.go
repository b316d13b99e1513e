package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"gamereporter/internal/metrics"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.ReportAttempt(true)
	m.ReportDropped("RANKED")
	m.Upload(false)
	m.StatusPing("status", true)
	m.SetQueueDepth(3)
}

func TestHandlerExposesCounters(t *testing.T) {
	m := metrics.New()
	m.ReportAttempt(false)
	m.ReportAttempt(true)
	m.ReportDelivered("RANKED")
	m.SetQueueDepth(2)

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	series := 0
	for _, mf := range families {
		if mf.GetName() == "gamereporter_report_attempts_total" {
			series = len(mf.GetMetric())
		}
	}
	if series != 2 {
		t.Fatalf("expected 2 attempt series, got %d", series)
	}

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)
	for _, want := range []string{
		`gamereporter_reports_total{mode="RANKED",result="delivered"} 1`,
		`gamereporter_report_queue_depth 2`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in exposition:\n%s", want, text)
		}
	}
}
