package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
)

const (
	promptsKey         = "prompts"
	generalMetadataKey = "generalMetadata"

	fieldCreditsForNewUsers   = "creditsForNewUsers"
	fieldTotalCreditsAllotted = "totalCreditsAllotted"
)

type GeneralMetadata struct {
	CreditsForNewUsers   int
	TotalCreditsAllotted int
}

// Store reads live-tunable settings from Redis hashes.
type Store interface {
	Prompts(ctx context.Context) (map[string]string, error)
	GeneralMetadata(ctx context.Context) (GeneralMetadata, error)
	// ReduceTotalCreditsAllotted decrements the global allotment and returns the new value.
	ReduceTotalCreditsAllotted(ctx context.Context, by int) (int, error)
	Close() error
}

type store struct {
	log *logger.Logger
	rdb goredis.UniversalClient
}

func NewStore(log *logger.Logger) (Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    strings.TrimSpace(os.Getenv("REDIS_PASSWORD")),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewStoreWithClient(log, rdb), nil
}

// NewStoreWithClient wraps an existing client.
func NewStoreWithClient(log *logger.Logger, rdb goredis.UniversalClient) Store {
	return &store{log: log.With("service", "RedisStore"), rdb: rdb}
}

func (s *store) Prompts(ctx context.Context) (map[string]string, error) {
	m, err := s.rdb.HGetAll(ctx, promptsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", promptsKey, err)
	}
	return m, nil
}

func (s *store) GeneralMetadata(ctx context.Context) (GeneralMetadata, error) {
	m, err := s.rdb.HGetAll(ctx, generalMetadataKey).Result()
	if err != nil {
		return GeneralMetadata{}, fmt.Errorf("redis hgetall %s: %w", generalMetadataKey, err)
	}
	raw := strings.TrimSpace(m[fieldCreditsForNewUsers])
	if raw == "" {
		return GeneralMetadata{}, fmt.Errorf("redis %s: missing %s", generalMetadataKey, fieldCreditsForNewUsers)
	}
	credits, err := strconv.Atoi(raw)
	if err != nil {
		return GeneralMetadata{}, fmt.Errorf("redis %s.%s: %w", generalMetadataKey, fieldCreditsForNewUsers, err)
	}
	total, _ := strconv.Atoi(strings.TrimSpace(m[fieldTotalCreditsAllotted]))
	return GeneralMetadata{CreditsForNewUsers: credits, TotalCreditsAllotted: total}, nil
}

func (s *store) ReduceTotalCreditsAllotted(ctx context.Context, by int) (int, error) {
	n, err := s.rdb.HIncrBy(ctx, generalMetadataKey, fieldTotalCreditsAllotted, int64(-by)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis hincrby %s: %w", fieldTotalCreditsAllotted, err)
	}
	return int(n), nil
}

func (s *store) Close() error {
	return s.rdb.Close()
}
