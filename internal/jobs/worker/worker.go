package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/thecmdrunner/swiftube-backend/internal/data/repos"
	"github.com/thecmdrunner/swiftube-backend/internal/jobs/runtime"
	"github.com/thecmdrunner/swiftube-backend/internal/observability"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/dbctx"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
)

type Config struct {
	Concurrency  int
	PollInterval time.Duration
	// StaleAfter is how long a claim may go without a heartbeat before
	// another worker takes the job over.
	StaleAfter time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 2 * time.Minute
	}
	return c
}

// Worker claims IN_PROGRESS video jobs and runs the handler on each of them.
type Worker struct {
	log     *logger.Logger
	repo    repos.VideoJobRepo
	handler runtime.Handler
	metrics *observability.Metrics
	cfg     Config

	wake chan struct{}
	wg   sync.WaitGroup
}

func NewWorker(baseLog *logger.Logger, repo repos.VideoJobRepo, handler runtime.Handler, metrics *observability.Metrics, cfg Config) *Worker {
	cfg = cfg.withDefaults()
	return &Worker{
		log:     baseLog.With("component", "JobWorker"),
		repo:    repo,
		handler: handler,
		metrics: metrics,
		cfg:     cfg,
		wake:    make(chan struct{}, cfg.Concurrency),
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting job worker pool", "concurrency", w.cfg.Concurrency)
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runLoop(ctx, workerID)
		}()
	}
}

// Wait blocks until every loop has returned after ctx was cancelled.
func (w *Worker) Wait() { w.wg.Wait() }

// Wake nudges an idle loop to poll now instead of at its next tick.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
		case <-w.wake:
		}
		for ctx.Err() == nil && w.RunOnce(ctx, workerID) {
		}
	}
}

// RunOnce claims and runs at most one job. It reports whether a job was found.
func (w *Worker) RunOnce(ctx context.Context, workerID int) bool {
	job, err := w.repo.ClaimNext(dbctx.Background(ctx), w.cfg.StaleAfter)
	if err != nil {
		w.log.Warn("ClaimNext failed", "worker_id", workerID, "error", err)
		return false
	}
	if job == nil {
		return false
	}

	jc := runtime.NewContext(ctx, job, w.repo, w.log, w.metrics)
	w.metrics.JobsRunning(1)
	defer w.metrics.JobsRunning(-1)
	w.log.Info("Claimed video job", "worker_id", workerID, "video_id", job.ID)

	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Job handler panic", "worker_id", workerID, "video_id", job.ID, "panic", r)
				jc.Fail("panic", errFromRecover(r))
			}
		}()

		if runErr := w.handler.Run(jc); runErr != nil && !jc.Stopped() && !jc.Job.Status.IsTerminal() {
			// Handlers record their own failures; this covers ones that did not.
			jc.Fail("run", runErr)
		}
	}()
	return true
}

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
