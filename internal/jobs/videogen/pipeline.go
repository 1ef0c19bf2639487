package videogen

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/thecmdrunner/swiftube-backend/internal/domain"
	"github.com/thecmdrunner/swiftube-backend/internal/jobs/runtime"
	"github.com/thecmdrunner/swiftube-backend/internal/jobs/stage"
	"github.com/thecmdrunner/swiftube-backend/internal/observability"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
	"github.com/thecmdrunner/swiftube-backend/internal/prompts"
)

const (
	DefaultStorageDirPrefix  = "aishortz"
	DefaultHeartbeatInterval = 15 * time.Second
)

// Progress stages written to the job while it runs.
const (
	StageMetadata      = "metadata"
	StageTalkingPoints = "talking_points"
	StageTitlesTable   = "titles_table"
	StageMedia         = "media"
	StageFinalize      = "finalize"
)

// CoverRenderer draws the title card PNG. cover.Renderer satisfies it.
type CoverRenderer interface {
	Render(meta domain.VideoMetadata) ([]byte, error)
}

// CoverStore receives the rendered card. gcp.BucketService satisfies it.
type CoverStore interface {
	UploadFile(ctx context.Context, key string, r io.Reader, metadata map[string]string) error
	GetPublicURL(key string) string
}

type Config struct {
	StorageDirPrefix  string
	HeartbeatInterval time.Duration
}

// Pipeline generates the script and media for one claimed job.
type Pipeline struct {
	log     *logger.Logger
	runner  *stage.Runner
	prompts prompts.Source
	media   *MediaFanOut
	cover   CoverRenderer
	store   CoverStore
	metrics *observability.Metrics
	cfg     Config
}

// NewPipeline takes optional cover collaborators; without both, no card is made.
func NewPipeline(
	baseLog *logger.Logger,
	runner *stage.Runner,
	promptSource prompts.Source,
	media *MediaFanOut,
	cover CoverRenderer,
	store CoverStore,
	metrics *observability.Metrics,
	cfg Config,
) *Pipeline {
	if strings.TrimSpace(cfg.StorageDirPrefix) == "" {
		cfg.StorageDirPrefix = DefaultStorageDirPrefix
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	return &Pipeline{
		log:     baseLog.With("job", "VideoGeneration"),
		runner:  runner,
		prompts: promptSource,
		media:   media,
		cover:   cover,
		store:   store,
		metrics: metrics,
		cfg:     cfg,
	}
}

// StorageDir is where every asset of videoID is stored.
func (p *Pipeline) StorageDir(videoID string) string {
	return p.cfg.StorageDirPrefix + "/" + url.PathEscape(videoID)
}

// script is the text produced before any media call.
type script struct {
	meta          domain.VideoMetadata
	talkingPoints []string
	titles        []string
	table         domain.TableData
}

// Run drives the job to SUCCESS or FAILED. Any returned error has already
// been recorded on the job.
func (p *Pipeline) Run(jc *runtime.Context) error {
	job := jc.Job
	ctx, span := observability.StartSpan(jc.Ctx, "videogen.run", attribute.String("video_id", job.ID))
	stopBeat := p.keepAlive(ctx, jc)
	defer stopBeat()

	err := p.run(ctx, jc)
	observability.EndSpan(span, err)
	return err
}

func (p *Pipeline) run(ctx context.Context, jc *runtime.Context) error {
	job := jc.Job
	stages := scriptStages{prompts: p.prompts, userID: job.UserID}
	dir := p.StorageDir(job.ID)

	if !p.advance(jc, StageMetadata, "Planning the video...") {
		return nil
	}
	meta, err := stage.Execute(ctx, p.runner, stages.metadata(job.Prompt))
	if err != nil {
		jc.Fail(StageMetadata, err)
		return err
	}

	if !p.advance(jc, StageTalkingPoints, "Writing talking points...") {
		return nil
	}
	tp, err := stage.Execute(ctx, p.runner, stages.talkingPoints(meta, job.Prompt, job.ReferenceData))
	if err != nil {
		jc.Fail(StageTalkingPoints, err)
		return err
	}

	if !p.advance(jc, StageTitlesTable, "Writing section titles...") {
		return nil
	}
	sc, err := p.titlesAndTable(ctx, stages, meta, tp.TalkingPoints)
	if err != nil {
		jc.Fail(StageTitlesTable, err)
		return err
	}

	if !p.advance(jc, StageMedia, "Creating narration and images...") {
		return nil
	}
	data, err := p.produceMedia(ctx, stages, sc, dir)
	if err != nil {
		jc.Fail(StageMedia, err)
		return err
	}

	if !p.advance(jc, StageFinalize, "Finishing up...") {
		return nil
	}
	data.CoverURL = p.uploadCover(ctx, meta, dir)
	jc.Succeed(meta, data)
	return nil
}

// advance records the next stage and reports whether the run should go on.
// An operator halt or delete seen by the write ends the run quietly.
func (p *Pipeline) advance(jc *runtime.Context, stageName, msg string) bool {
	jc.Progress(stageName, msg)
	if jc.Stopped() {
		p.log.Info("job stopped externally", "video_id", jc.Job.ID, "stage", stageName)
		return false
	}
	return true
}

func (p *Pipeline) titlesAndTable(ctx context.Context, stages scriptStages, meta domain.VideoMetadata, talkingPoints []string) (script, error) {
	sc := script{meta: meta, talkingPoints: talkingPoints}

	g, gctx := errgroup.WithContext(ctx)
	goSafe(g, func() error {
		out, err := stage.Execute(gctx, p.runner, stages.titles(talkingPoints))
		if err != nil {
			return err
		}
		sc.titles = out.Titles
		return nil
	})
	goSafe(g, func() error {
		if !meta.WantsTable() {
			return nil
		}
		out, err := stage.Execute(gctx, p.runner, stages.table(meta.TableLabel()))
		if err != nil {
			return err
		}
		sc.table = out
		return nil
	})
	if err := g.Wait(); err != nil {
		return script{}, err
	}
	return sc, nil
}

// produceMedia runs sections, intro, outro and table narration side by side.
func (p *Pipeline) produceMedia(ctx context.Context, stages scriptStages, sc script, dir string) (domain.VideoData, error) {
	contents := domain.NumberedList(sc.talkingPoints)
	data := domain.VideoData{Table: emptyTable()}

	g, gctx := errgroup.WithContext(ctx)
	goSafe(g, func() error {
		sections, err := p.media.Sections(gctx, sc.titles, sc.talkingPoints, dir)
		if err != nil {
			return err
		}
		data.VideoSections = sections
		return nil
	})
	goSafe(g, func() error {
		out, err := stage.Execute(gctx, p.runner, stages.intro(sc.meta, contents))
		if err != nil {
			return err
		}
		intro := domain.VideoIntro{TalkingPoint: out.Intro}
		ig, igctx := errgroup.WithContext(gctx)
		goSafe(ig, func() error {
			va, err := p.media.Voices(igctx, out.Intro, dir)
			intro.VoiceAudio = va
			return err
		})
		goSafe(ig, func() error {
			imgs, err := p.media.Images(igctx, sc.meta.Topic)
			intro.Images = imgs
			return err
		})
		if err := ig.Wait(); err != nil {
			return err
		}
		data.Intro = intro
		return nil
	})
	goSafe(g, func() error {
		out, err := stage.Execute(gctx, p.runner, stages.outro(contents))
		if err != nil {
			return err
		}
		va, err := p.media.Voices(gctx, out.Outro, dir)
		if err != nil {
			return err
		}
		data.Outro = domain.VideoOutro{TalkingPoint: out.Outro, VoiceAudio: va}
		return nil
	})
	if sc.meta.WantsTable() {
		goSafe(g, func() error {
			va, err := p.media.Voices(gctx, sc.table.Summary, dir)
			if err != nil {
				return err
			}
			data.Table = domain.VideoTable{
				IsPresent:  true,
				Summary:    sc.table.Summary,
				Table:      sc.table.Table,
				VoiceAudio: va,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.VideoData{}, err
	}
	return data, nil
}

func emptyTable() domain.VideoTable {
	return domain.VideoTable{IsPresent: false}
}

// uploadCover is best effort; a failure only costs the card.
func (p *Pipeline) uploadCover(ctx context.Context, meta domain.VideoMetadata, dir string) string {
	if p.cover == nil || p.store == nil {
		return ""
	}
	png, err := p.cover.Render(meta)
	if err != nil {
		p.log.Warn("cover render failed", "error", err)
		return ""
	}
	key := dir + "/cover.png"
	if err := p.store.UploadFile(ctx, key, bytes.NewReader(png), nil); err != nil {
		p.metrics.IncMediaCall("cover_upload", "error")
		p.log.Warn("cover upload failed", "key", key, "error", err)
		return ""
	}
	p.metrics.IncMediaCall("cover_upload", "ok")
	return p.store.GetPublicURL(key)
}

// keepAlive heartbeats the claim until the returned stop func runs.
func (p *Pipeline) keepAlive(ctx context.Context, jc *runtime.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(p.cfg.HeartbeatInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				jc.Heartbeat()
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
