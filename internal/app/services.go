package app

import (
	"fmt"

	"github.com/thecmdrunner/swiftube-backend/internal/jobs/stage"
	"github.com/thecmdrunner/swiftube-backend/internal/jobs/videogen"
	"github.com/thecmdrunner/swiftube-backend/internal/jobs/worker"
	"github.com/thecmdrunner/swiftube-backend/internal/media/cover"
	"github.com/thecmdrunner/swiftube-backend/internal/observability"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
	"github.com/thecmdrunner/swiftube-backend/internal/prompts"
	"github.com/thecmdrunner/swiftube-backend/internal/services"
)

type Services struct {
	Prompts   *prompts.Store
	Narration services.NarrationService
	Ledger    services.CreditLedger
	Videos    services.VideoService
	Pipeline  *videogen.Pipeline
	Worker    *worker.Worker
}

func wireServices(log *logger.Logger, cfg Config, metrics *observability.Metrics, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	promptStore, err := prompts.NewStore(log, clients.Redis, cfg.PromptCacheTTL)
	if err != nil {
		return Services{}, fmt.Errorf("init prompt store: %w", err)
	}

	voices, err := services.LoadVoiceSet()
	if err != nil {
		return Services{}, fmt.Errorf("load voices: %w", err)
	}
	narration := services.NewNarrationService(log, clients.GcpTTS, clients.GcpBucket, voices, metrics)
	ledger := services.NewCreditLedger(log, reposet.Customer, clients.Redis, cfg.CreditsForNewUsers)

	renderer, err := cover.NewRenderer()
	if err != nil {
		return Services{}, fmt.Errorf("init cover renderer: %w", err)
	}

	runner := stage.NewRunner(clients.OpenaiClient, log, metrics, cfg.StageMaxAttempts)
	media := videogen.NewMediaFanOut(narration, clients.ImageSearch, cfg.ImageSearchCount, metrics)
	pipeline := videogen.NewPipeline(log, runner, promptStore, media, renderer, clients.GcpBucket, metrics, videogen.Config{
		StorageDirPrefix:  cfg.StorageDirPrefix,
		HeartbeatInterval: cfg.HeartbeatInterval,
	})

	jobWorker := worker.NewWorker(log, reposet.VideoJob, pipeline, metrics, worker.Config{
		Concurrency:  cfg.WorkerConcurrency,
		PollInterval: cfg.WorkerPollInterval,
		StaleAfter:   cfg.WorkerStaleAfter,
	})

	videos := services.NewVideoService(log, reposet.VideoJob, ledger, clients.OpenaiClient, promptStore, jobWorker, services.VideoServiceConfig{
		FlaggedMessage: cfg.FlaggedMessage,
	})

	return Services{
		Prompts:   promptStore,
		Narration: narration,
		Ledger:    ledger,
		Videos:    videos,
		Pipeline:  pipeline,
		Worker:    jobWorker,
	}, nil
}
