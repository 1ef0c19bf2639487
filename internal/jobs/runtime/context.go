package runtime

import (
	"context"
	"sync/atomic"
	"time"

	"gorm.io/datatypes"

	"github.com/thecmdrunner/swiftube-backend/internal/data/repos"
	"github.com/thecmdrunner/swiftube-backend/internal/domain"
	"github.com/thecmdrunner/swiftube-backend/internal/observability"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/dbctx"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
)

/*
Context is the execution handle for one claimed video job.
It owns every write the pipeline makes to the video_job row:
  - Progress for non-terminal stage/message updates
  - Fail and Succeed for the terminal transitions
  - Heartbeat to keep the claim alive

All writes are conditional on the row not being HALTED or DELETED. Once a write
is rejected for that reason the context is Stopped and later writes are no-ops.
*/
type Context struct {
	Ctx     context.Context
	Job     *domain.VideoJob
	Repo    repos.VideoJobRepo
	Log     *logger.Logger
	Metrics *observability.Metrics

	stopped atomic.Bool
}

// Handler runs the pipeline for one job. Returning an error is a safety net;
// handlers normally call Fail themselves.
type Handler interface {
	Run(jc *Context) error
}

func NewContext(ctx context.Context, job *domain.VideoJob, repo repos.VideoJobRepo, log *logger.Logger, metrics *observability.Metrics) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		log = logger.Nop()
	}
	jobID := ""
	if job != nil {
		jobID = job.ID
	}
	return &Context{
		Ctx:     ctx,
		Job:     job,
		Repo:    repo,
		Log:     log.With("video_id", jobID),
		Metrics: metrics,
	}
}

// Stopped reports whether an operator halted or deleted the job mid-run.
func (c *Context) Stopped() bool {
	return c != nil && c.stopped.Load()
}

// write applies updates unless the job was stopped externally. A false return
// means nothing was written.
func (c *Context) write(updates map[string]interface{}) bool {
	if c == nil || c.Job == nil || c.Repo == nil || c.Stopped() {
		return false
	}
	// Terminal writes must land even when the run's own context is done.
	ctx := context.WithoutCancel(c.Ctx)
	ok, err := c.Repo.UpdateFieldsUnlessStatus(dbctx.Background(ctx), c.Job.ID, domain.ExternalStopStatuses, updates)
	if err != nil {
		c.Log.Warn("job write failed", "error", err)
		return false
	}
	if !ok {
		c.stopped.Store(true)
		c.Log.Info("job stopped externally, dropping further writes")
	}
	return ok
}

// Progress records the current stage and user-facing message.
func (c *Context) Progress(stage, msg string) bool {
	now := time.Now().UTC()
	if !c.write(map[string]interface{}{
		"stage":        stage,
		"message":      msg,
		"heartbeat_at": now,
	}) {
		return false
	}
	c.Job.Stage = stage
	c.Job.Message = msg
	c.Job.HeartbeatAt = &now
	return true
}

// Heartbeat refreshes the claim so no other worker reclaims the job.
func (c *Context) Heartbeat() {
	if c == nil || c.Job == nil || c.Repo == nil || c.Stopped() {
		return
	}
	if err := c.Repo.Heartbeat(dbctx.Background(c.Ctx), c.Job.ID); err != nil {
		c.Log.Warn("heartbeat failed", "error", err)
	}
}

// Fail moves the job to FAILED with the root cause of err as its error text.
func (c *Context) Fail(stage string, err error) {
	text := ""
	if cause := domain.Cause(err); cause != nil {
		text = cause.Error()
	}
	if !c.write(map[string]interface{}{
		"status":       string(domain.VideoStatusFailed),
		"stage":        stage,
		"message":      domain.MsgFailed,
		"error":        text,
		"locked_at":    nil,
		"heartbeat_at": nil,
	}) {
		return
	}
	c.Job.Status = domain.VideoStatusFailed
	c.Job.Stage = stage
	c.Job.Message = domain.MsgFailed
	c.Job.Error = &text
	c.Job.LockedAt = nil
	c.Job.HeartbeatAt = nil
	c.Metrics.IncJobOutcome(string(domain.VideoStatusFailed))
	c.Log.Warn("video job failed", "stage", stage, "kind", domain.KindOf(err), "error", err)
}

// Succeed persists the assembled video and moves the job to SUCCESS.
func (c *Context) Succeed(meta domain.VideoMetadata, data domain.VideoData) {
	metaJSON := datatypes.NewJSONType(&meta)
	dataJSON := datatypes.NewJSONType(&data)
	if !c.write(map[string]interface{}{
		"status":       string(domain.VideoStatusSuccess),
		"stage":        "done",
		"message":      domain.MsgSucceeded,
		"error":        nil,
		"metadata":     metaJSON,
		"data":         dataJSON,
		"locked_at":    nil,
		"heartbeat_at": nil,
	}) {
		return
	}
	c.Job.Status = domain.VideoStatusSuccess
	c.Job.Stage = "done"
	c.Job.Message = domain.MsgSucceeded
	c.Job.Error = nil
	c.Job.Metadata = metaJSON
	c.Job.Data = dataJSON
	c.Job.LockedAt = nil
	c.Job.HeartbeatAt = nil
	c.Metrics.IncJobOutcome(string(domain.VideoStatusSuccess))
	c.Log.Info("video job succeeded", "sections", len(data.VideoSections))
}
