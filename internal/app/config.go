package app

import (
	"strings"
	"time"

	"github.com/thecmdrunner/swiftube-backend/internal/jobs/videogen"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/envutil"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
)

type Config struct {
	Port     string
	DemoMode bool

	ServiceName  string
	Environment  string
	AllowOrigins []string

	WorkerConcurrency  int
	WorkerPollInterval time.Duration
	WorkerStaleAfter   time.Duration

	StageMaxAttempts   int
	ImageSearchCount   int
	CreditsForNewUsers int
	FlaggedMessage     string
	StorageDirPrefix   string
	PromptCacheTTL     time.Duration
	HeartbeatInterval  time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:     envutil.String("PORT", "8080"),
		DemoMode: envutil.Bool("DEMO_MODE", false),

		ServiceName:  envutil.String("OTEL_SERVICE_NAME", "swiftube-backend"),
		Environment:  envutil.String("APP_ENV", "development"),
		AllowOrigins: splitList(envutil.String("CORS_ALLOW_ORIGINS", "*")),

		WorkerConcurrency:  envutil.Int("WORKER_CONCURRENCY", 4),
		WorkerPollInterval: envutil.Duration("WORKER_POLL_INTERVAL", time.Second),
		WorkerStaleAfter:   envutil.Duration("WORKER_STALE_AFTER", 2*time.Minute),

		StageMaxAttempts:   envutil.Int("STAGE_MAX_ATTEMPTS", 3),
		ImageSearchCount:   envutil.Int("IMAGE_SEARCH_COUNT", videogen.DefaultImagesPerSearch),
		CreditsForNewUsers: envutil.Int("CREDITS_FOR_NEW_USERS", 2),
		FlaggedMessage:     envutil.String("FLAGGED_PROMPT_MESSAGE", ""),
		StorageDirPrefix:   envutil.String("STORAGE_DIR_PREFIX", videogen.DefaultStorageDirPrefix),
		PromptCacheTTL:     envutil.Duration("PROMPT_CACHE_TTL", time.Minute),
		HeartbeatInterval:  envutil.Duration("JOB_HEARTBEAT_INTERVAL", videogen.DefaultHeartbeatInterval),
	}
	if cfg.StageMaxAttempts < 1 {
		log.Warn("STAGE_MAX_ATTEMPTS below 1, using 3", "value", cfg.StageMaxAttempts)
		cfg.StageMaxAttempts = 3
	}
	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 1
	}
	log.Info("Config loaded",
		"port", cfg.Port,
		"demo_mode", cfg.DemoMode,
		"worker_concurrency", cfg.WorkerConcurrency,
		"stage_max_attempts", cfg.StageMaxAttempts,
		"storage_dir_prefix", cfg.StorageDirPrefix,
	)
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
