package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/thecmdrunner/swiftube-backend/internal/clients/gcp"
	"github.com/thecmdrunner/swiftube-backend/internal/clients/imagesearch"
	"github.com/thecmdrunner/swiftube-backend/internal/clients/openai"
	"github.com/thecmdrunner/swiftube-backend/internal/clients/redis"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
)

type Clients struct {
	Redis        redis.Store
	OpenaiClient openai.Client
	GcpBucket    gcp.BucketService
	GcpTTS       gcp.TextToSpeech
	ImageSearch  *imagesearch.Sequential
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis is optional; prompts and credit settings fall back to defaults.
	var store redis.Store
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		s, err := redis.NewStore(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis store: %w", err)
		}
		store = s
	}

	openaiClient, err := openai.NewClient(log)
	if err != nil {
		closeStore(store)
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	bucket, err := gcp.NewBucketService(log)
	if err != nil {
		closeStore(store)
		return Clients{}, fmt.Errorf("init bucket client: %w", err)
	}

	tts, err := gcp.NewTextToSpeech(log)
	if err != nil {
		_ = bucket.Close()
		closeStore(store)
		return Clients{}, fmt.Errorf("init text-to-speech client: %w", err)
	}

	bing, err := imagesearch.NewBingClient(log)
	if err != nil {
		_ = tts.Close()
		_ = bucket.Close()
		closeStore(store)
		return Clients{}, fmt.Errorf("init image search client: %w", err)
	}

	return Clients{
		Redis:        store,
		OpenaiClient: openaiClient,
		GcpBucket:    bucket,
		GcpTTS:       tts,
		ImageSearch:  imagesearch.NewSequential(bing),
	}, nil
}

func closeStore(s redis.Store) {
	if s != nil {
		_ = s.Close()
	}
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.GcpTTS != nil {
		_ = c.GcpTTS.Close()
	}
	if c.GcpBucket != nil {
		_ = c.GcpBucket.Close()
	}
	closeStore(c.Redis)
}
