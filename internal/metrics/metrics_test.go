package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"contentflow/internal/content"
	"contentflow/internal/metrics"
	"contentflow/internal/queue"
	"contentflow/internal/relay"
)

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("metrics handler returned %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestObserveStageExportsCounters(t *testing.T) {
	m := metrics.New()
	m.ObserveStage("text", metrics.OutcomeSuccess, 2*time.Second)
	m.ObserveStage("text", metrics.OutcomeSuccess, time.Second)
	m.ObserveStage("video", metrics.OutcomeError, time.Second)

	body := scrape(t, m)
	for _, want := range []string{
		`contentflow_stage_runs_total{outcome="success",stage="text"} 2`,
		`contentflow_stage_runs_total{outcome="error",stage="video"} 1`,
		`contentflow_stage_duration_seconds_count{stage="text"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}

func TestRelayObserverCountsOutcomes(t *testing.T) {
	m := metrics.New()
	observe := m.RelayObserver()
	observe(relay.MethodMake, content.PlatformLinkedIn, "success", 150*time.Millisecond)
	observe(relay.MethodMake, content.PlatformLinkedIn, "breaker_open", 0)

	body := scrape(t, m)
	if !strings.Contains(body, `contentflow_relay_posts_total{method="make",outcome="success",platform="linkedin"} 1`) {
		t.Errorf("success post not exported:\n%s", body)
	}
	if !strings.Contains(body, `contentflow_relay_posts_total{method="make",outcome="breaker_open",platform="linkedin"} 1`) {
		t.Errorf("breaker_open post not exported")
	}
}

func TestSetQueueDepthZeroesMissingStatuses(t *testing.T) {
	m := metrics.New()
	m.SetQueueDepth(map[queue.Status]int{queue.StatusPending: 3})

	body := scrape(t, m)
	if !strings.Contains(body, `contentflow_queue_items{status="pending"} 3`) {
		t.Errorf("pending depth missing")
	}
	if !strings.Contains(body, `contentflow_queue_items{status="failed"} 0`) {
		t.Errorf("failed depth should be reported as zero")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveStage("text", metrics.OutcomeSuccess, time.Second)
	m.SetQueueDepth(nil)
	m.ClientConnected()
	m.RelayObserver()(relay.MethodZapier, content.PlatformTwitter, "error", time.Second)
}
