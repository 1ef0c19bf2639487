package observability

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/thecmdrunner/swiftube-backend/internal/platform/envutil"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
)

// Metrics is a small Prometheus-text registry. A nil *Metrics is valid and
// records nothing, so callers never branch on whether metrics are enabled.
type Metrics struct {
	apiRequests   *series
	apiLatency    *histogramVec
	apiInflight   *series
	stageAttempts *series
	stageLatency  *histogramVec
	mediaCalls    *series
	jobOutcomes   *series
	jobsRunning   *series
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

// NewMetrics builds an unregistered instance; Init is the process-wide one.
func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: newSeries("swiftube_api_requests_total", "API requests by method/route/status.", kindCounter, "method", "route", "status"),
		apiLatency: newHistogramVec(
			"swiftube_api_request_duration_seconds",
			"API request latency in seconds.",
			[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			"method", "route", "status",
		),
		apiInflight:   newSeries("swiftube_api_inflight_requests", "In-flight API requests.", kindGauge),
		stageAttempts: newSeries("swiftube_stage_attempts_total", "Generation stage attempts by stage/outcome.", kindCounter, "stage", "outcome"),
		stageLatency: newHistogramVec(
			"swiftube_stage_duration_seconds",
			"Generation stage wall time including retries.",
			[]float64{0.5, 1, 2, 5, 10, 20, 40, 90},
			"stage", "status",
		),
		mediaCalls:  newSeries("swiftube_media_calls_total", "Media collaborator calls by kind/status.", kindCounter, "kind", "status"),
		jobOutcomes: newSeries("swiftube_video_jobs_total", "Finished video jobs by final status.", kindCounter, "status"),
		jobsRunning: newSeries("swiftube_video_jobs_running", "Video jobs currently held by this process.", kindGauge),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []collector{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.stageAttempts, m.stageLatency,
		m.mediaCalls, m.jobOutcomes, m.jobsRunning,
	} {
		if err := c.writePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.add(1, method, route, status)
	m.apiLatency.observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) APIInflight(delta float64) {
	if m == nil {
		return
	}
	m.apiInflight.add(delta)
}

// ObserveStageAttempt records one attempt; outcome is "ok", "invalid" or "error".
func (m *Metrics) ObserveStageAttempt(stage, outcome string) {
	if m == nil {
		return
	}
	m.stageAttempts.add(1, stage, outcome)
}

func (m *Metrics) ObserveStage(stage, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.stageLatency.observe(dur.Seconds(), stage, status)
}

func (m *Metrics) IncMediaCall(kind, status string) {
	if m == nil {
		return
	}
	m.mediaCalls.add(1, kind, status)
}

func (m *Metrics) IncJobOutcome(status string) {
	if m == nil {
		return
	}
	m.jobOutcomes.add(1, status)
}

func (m *Metrics) JobsRunning(delta float64) {
	if m == nil {
		return
	}
	m.jobsRunning.add(delta)
}
