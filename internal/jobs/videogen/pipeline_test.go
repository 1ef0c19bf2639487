package videogen

import (
	"context"
	"strings"
	"testing"

	"github.com/thecmdrunner/swiftube-backend/internal/clients/imagesearch"
	"github.com/thecmdrunner/swiftube-backend/internal/data/repos"
	"github.com/thecmdrunner/swiftube-backend/internal/data/repos/testutil"
	"github.com/thecmdrunner/swiftube-backend/internal/domain"
	"github.com/thecmdrunner/swiftube-backend/internal/jobs/runtime"
	"github.com/thecmdrunner/swiftube-backend/internal/jobs/stage"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/dbctx"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
	"github.com/thecmdrunner/swiftube-backend/internal/prompts"
)

func happyReplies() map[string]string {
	return map[string]string{
		"metadata":      `Sure! {"topic":"Photosynthesis","title":"How plants eat light","description":"A short tour of photosynthesis","table":{"label":"Leaf stats"}}`,
		"talkingPoints": `{"talkingPoints":["Light hits the leaf.","Water splits.","Sugar is made."]}`,
		"titles":        `{"titles":["Light","Water","Sugar"],}`,
		"table":         `{"table":"| a | b |\n|---|---|","summary":"Numbers about leaves"}`,
		"intro":         `{"intro":"Welcome to the video"}`,
		"outro":         `{intro: 'x', outro: 'Thanks for watching'}`,
	}
}

type harness struct {
	pipeline *Pipeline
	gen      *routedGenerator
	narrator *fakeNarrator
	search   *countingSearch
	store    *memStore
	jobs     repos.VideoJobRepo
	dbc      dbctx.Context
}

func newHarness(t *testing.T, replies map[string]string) *harness {
	t.Helper()
	log := logger.Nop()
	db := testutil.DB(t)
	promptStore, err := prompts.NewStore(log, nil, 0)
	if err != nil {
		t.Fatalf("prompts: %v", err)
	}
	h := &harness{
		gen:      newRoutedGenerator(replies),
		narrator: &fakeNarrator{},
		search:   &countingSearch{},
		store:    &memStore{},
		jobs:     repos.NewVideoJobRepo(db, log),
		dbc:      dbctx.Background(context.Background()),
	}
	media := NewMediaFanOut(h.narrator, imagesearch.NewSequential(h.search), 3, nil)
	runner := stage.NewRunner(h.gen, log, nil, 3)
	h.pipeline = NewPipeline(log, runner, promptStore, media, fakeCover{}, h.store, nil, Config{})
	return h
}

func (h *harness) run(t *testing.T, id string) (*domain.VideoJob, error) {
	t.Helper()
	job := domain.NewVideoJob(id, "user-1", "Explain photosynthesis", "chlorophyll notes", domain.CreditFree)
	job.Status = domain.VideoStatusInProgress
	if err := h.jobs.Create(h.dbc, job); err != nil {
		t.Fatalf("seed: %v", err)
	}
	jc := runtime.NewContext(context.Background(), job, h.jobs, logger.Nop(), nil)
	runErr := h.pipeline.Run(jc)
	stored, err := h.jobs.GetByID(h.dbc, id)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	return stored, runErr
}

func TestPipelineProducesCompleteVideo(t *testing.T) {
	h := newHarness(t, happyReplies())

	job, err := h.run(t, "vid 1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.Status != domain.VideoStatusSuccess || job.Message != domain.MsgSucceeded || job.ErrorText() != "" {
		t.Fatalf("job: status=%s message=%q error=%q", job.Status, job.Message, job.ErrorText())
	}

	meta := job.Metadata.Data()
	if meta == nil || meta.Topic != "Photosynthesis" || meta.Width != 1920 || meta.Color.AccentColor != domain.DefaultAccentColor {
		t.Fatalf("metadata: %+v", meta)
	}

	data := job.Data.Data()
	if data == nil || len(data.VideoSections) != 3 {
		t.Fatalf("data: %+v", data)
	}
	for i, want := range []string{"Light", "Water", "Sugar"} {
		s := data.VideoSections[i]
		if s.Title != want || len(s.Images) != 3 || s.Images[0].Name != want {
			t.Fatalf("section %d: %+v", i, s)
		}
		if s.VoiceAudio.Durations != [2]float64{2, 3} || !strings.HasSuffix(s.VoiceAudio.URLs[1], "female.wav") {
			t.Fatalf("section %d voices: %+v", i, s.VoiceAudio)
		}
	}
	if !h.narrator.saw("male:Water. Water splits.") {
		t.Fatalf("section narration should be title then talking point")
	}
	if !strings.HasPrefix(data.VideoSections[0].VoiceAudio.URLs[0], "https://cdn.test/aishortz/vid%201/") {
		t.Fatalf("storage dir not escaped: %s", data.VideoSections[0].VoiceAudio.URLs[0])
	}

	if data.Intro.TalkingPoint != "Welcome to the video" || len(data.Intro.Images) != 3 || data.Intro.Images[0].Name != "Photosynthesis" {
		t.Fatalf("intro: %+v", data.Intro)
	}
	if data.Outro.TalkingPoint != "Thanks for watching" {
		t.Fatalf("outro: %+v", data.Outro)
	}
	if !data.Table.IsPresent || data.Table.Summary != "Numbers about leaves" || data.Table.VoiceAudio.URLs[0] == "" {
		t.Fatalf("table: %+v", data.Table)
	}
	if data.CoverURL != "https://cdn.test/aishortz/vid%201/cover.png" {
		t.Fatalf("cover: %q", data.CoverURL)
	}

	if got := h.search.maxInflight.Load(); got != 1 {
		t.Fatalf("image searches overlapped: max in flight %d", got)
	}
	if h.gen.temps["talkingPoints"] != 0.5 || h.gen.temps["titles"] != 1 {
		t.Fatalf("temperatures: %+v", h.gen.temps)
	}
	if h.gen.users["metadata"] != "user-1" {
		t.Fatalf("caller identity: %+v", h.gen.users)
	}
}

func TestPipelineMetadataExhaustionFailsJob(t *testing.T) {
	replies := happyReplies()
	replies["metadata"] = `{"topic":"ok","description":"also fine"}`
	h := newHarness(t, replies)

	job, err := h.run(t, "vid-meta")
	if domain.KindOf(err) != domain.KindRetryExhausted {
		t.Fatalf("want retry exhausted, got %v", err)
	}
	if h.gen.count("metadata") != 3 {
		t.Fatalf("metadata attempts: %d", h.gen.count("metadata"))
	}
	if h.gen.count("talkingPoints") != 0 {
		t.Fatalf("talking points ran after metadata failed")
	}
	if job.Status != domain.VideoStatusFailed || job.Message != domain.MsgFailed {
		t.Fatalf("job: status=%s message=%q", job.Status, job.Message)
	}
	if !strings.Contains(job.ErrorText(), "topic too short") {
		t.Fatalf("error text: %q", job.ErrorText())
	}
	if job.Data.Data() != nil {
		t.Fatalf("failed job must not carry media: %+v", job.Data.Data())
	}
}

func TestPipelineAcceptsLooseMetadataTypes(t *testing.T) {
	replies := happyReplies()
	replies["metadata"] = `{topic: 'Photosynthesis', title: 'Plants', description: 'A short tour', "width":"1280", "durationInSeconds":90.5, "table":"Comparison of leaves"}`
	h := newHarness(t, replies)

	job, err := h.run(t, "vid-loose")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.gen.count("metadata") != 1 {
		t.Fatalf("metadata attempts: %d", h.gen.count("metadata"))
	}
	meta := job.Metadata.Data()
	if meta.Width != 1280 || meta.Height != 1080 || meta.DurationInSeconds != 90 || meta.TableLabel() != "Comparison of leaves" {
		t.Fatalf("metadata: %+v", meta)
	}
	if !job.Data.Data().Table.IsPresent {
		t.Fatalf("table label should have requested a table")
	}
}

func TestPipelineSkipsTableWithoutLabel(t *testing.T) {
	replies := happyReplies()
	replies["metadata"] = `{"topic":"Photosynthesis","title":"Plants","description":"A short tour","table":{"label":"x"}}`
	delete(replies, "table")
	h := newHarness(t, replies)

	job, err := h.run(t, "vid-notable")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.gen.count("table") != 0 {
		t.Fatalf("table stage called the model")
	}
	table := job.Data.Data().Table
	if table.IsPresent || table.Summary != "" || table.Table != "" {
		t.Fatalf("table: %+v", table)
	}
	if table.VoiceAudio.URLs != [2]string{"", ""} || table.VoiceAudio.Durations != [2]float64{0, 0} {
		t.Fatalf("empty table audio: %+v", table.VoiceAudio)
	}
}

func TestPipelineTitleMismatchFails(t *testing.T) {
	replies := happyReplies()
	replies["titles"] = `{"titles":["Light","Water"]}`
	h := newHarness(t, replies)

	job, err := h.run(t, "vid-titles")
	if err == nil || job.Status != domain.VideoStatusFailed {
		t.Fatalf("want failure, got status=%s err=%v", job.Status, err)
	}
	if job.Stage != StageTitlesTable {
		t.Fatalf("failed stage: %q", job.Stage)
	}
	if h.gen.count("intro") != 0 {
		t.Fatalf("media stage ran after titles failed")
	}
}

func TestPipelineNarrationFailureFailsJob(t *testing.T) {
	h := newHarness(t, happyReplies())
	h.narrator.fail = true

	job, err := h.run(t, "vid-tts")
	if domain.KindOf(err) != domain.KindExternalService {
		t.Fatalf("want external failure, got %v", err)
	}
	if job.Status != domain.VideoStatusFailed || !strings.Contains(job.ErrorText(), "tts quota exceeded") {
		t.Fatalf("job: status=%s error=%q", job.Status, job.ErrorText())
	}
}

func TestPipelineNarrationPanicFailsJob(t *testing.T) {
	h := newHarness(t, happyReplies())
	h.narrator.panics = true

	job, err := h.run(t, "vid-panic")
	if err == nil || !strings.Contains(err.Error(), "narrator exploded") {
		t.Fatalf("want recovered panic, got %v", err)
	}
	if job.Status != domain.VideoStatusFailed || job.Stage != StageMedia {
		t.Fatalf("job: status=%s stage=%q", job.Status, job.Stage)
	}
	if !strings.Contains(job.ErrorText(), "panic: narrator exploded") {
		t.Fatalf("error text: %q", job.ErrorText())
	}
}

func TestPipelineStopsWritingAfterHalt(t *testing.T) {
	h := newHarness(t, happyReplies())
	h.gen.onCall = func(stage string) {
		if stage == "talkingPoints" {
			_ = h.jobs.UpdateFields(h.dbc, "vid-halt", map[string]interface{}{"status": string(domain.VideoStatusHalted)})
		}
	}

	job, err := h.run(t, "vid-halt")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.Status != domain.VideoStatusHalted {
		t.Fatalf("halt overwritten: %s", job.Status)
	}
	if h.gen.count("titles") != 0 {
		t.Fatalf("pipeline kept generating after halt")
	}
}
