package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestMetricsExposition(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.ObserveStageAttempt("metadata", "invalid")
	m.ObserveStageAttempt("metadata", "invalid")
	m.ObserveStageAttempt("metadata", "ok")
	m.ObserveStage("metadata", "ok", 1500*time.Millisecond)
	m.ObserveAPI("POST", "/main/getdata", "200", 20*time.Millisecond)
	m.IncJobOutcome("SUCCESS")

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		`swiftube_stage_attempts_total{stage="metadata",outcome="invalid"} 2`,
		`swiftube_stage_attempts_total{stage="metadata",outcome="ok"} 1`,
		`swiftube_stage_duration_seconds_bucket{stage="metadata",status="ok",le="1"} 0`,
		`swiftube_stage_duration_seconds_bucket{stage="metadata",status="ok",le="2"} 1`,
		`swiftube_stage_duration_seconds_count{stage="metadata",status="ok"} 1`,
		`swiftube_api_requests_total{method="POST",route="/main/getdata",status="200"} 1`,
		`swiftube_video_jobs_total{status="SUCCESS"} 1`,
		"# TYPE swiftube_video_jobs_running gauge",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("exposition missing %q\n%s", want, out)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveStageAttempt("x", "ok")
	m.IncMediaCall("tts", "ok")
	m.JobsRunning(1)
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil WritePrometheus: %v", err)
	}
}

func TestLabelEscaping(t *testing.T) {
	t.Parallel()

	got := labelString([]string{"a", "b"}, []string{`x"y`, ""})
	if got != `{a="x\"y",b="unknown"}` {
		t.Fatalf("labelString: %s", got)
	}
}

func TestRunningGaugeReturnsToZero(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.JobsRunning(1)
	m.JobsRunning(1)
	if got := m.jobsRunning.value(); got != 2 {
		t.Fatalf("running: %v", got)
	}
	m.JobsRunning(-1)
	m.JobsRunning(-1)
	if got := m.jobsRunning.value(); got != 0 {
		t.Fatalf("running after release: %v", got)
	}
	m.IncMediaCall("tts", "error")
	if got := m.mediaCalls.value("tts", "error"); got != 1 {
		t.Fatalf("media calls: %v", got)
	}
}
