package prompts

import (
	"context"
	"embed"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
)

const promptsFileEnv = "PROMPTS_YAML"

// Template keys.
const (
	MetadataSystem      = "videoMetadata_system"
	MetadataUser        = "videoMetadata_user"
	TalkingPointsSystem = "talkingPoints_system"
	TalkingPointsUser   = "talkingPoints_user"
	TitlesUser          = "titles_user"
	TablesUser          = "tables_user"
	IntroUser           = "intro_user"
	OutroUser           = "outro_user"
)

var requiredKeys = []string{
	MetadataSystem, MetadataUser,
	TalkingPointsSystem, TalkingPointsUser,
	TitlesUser, TablesUser, IntroUser, OutroUser,
}

//go:embed prompts.yaml
var defaultsFS embed.FS

// Source supplies prompt templates by key.
type Source interface {
	Get(ctx context.Context, key string) (string, error)
}

// Remote is an optional live override, usually a Redis hash.
type Remote interface {
	Prompts(ctx context.Context) (map[string]string, error)
}

// Store serves templates from an override map merged over the embedded defaults.
// Remote results are cached for ttl.
type Store struct {
	log      *logger.Logger
	defaults map[string]string
	remote   Remote
	ttl      time.Duration

	mu        sync.Mutex
	cached    map[string]string
	fetchedAt time.Time
}

func NewStore(log *logger.Logger, remote Remote, ttl time.Duration) (*Store, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}
	return &Store{
		log:      log.With("service", "PromptStore"),
		defaults: defaults,
		remote:   remote,
		ttl:      ttl,
	}, nil
}

func loadDefaults() (map[string]string, error) {
	var data []byte
	var err error
	if path := strings.TrimSpace(os.Getenv(promptsFileEnv)); path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = defaultsFS.ReadFile("prompts.yaml")
	}
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	out := map[string]string{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	for _, k := range requiredKeys {
		if strings.TrimSpace(out[k]) == "" {
			return nil, fmt.Errorf("prompts: missing template %q", k)
		}
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if v, ok := s.overrides(ctx)[key]; ok && strings.TrimSpace(v) != "" {
		return v, nil
	}
	if v, ok := s.defaults[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("prompts: unknown template %q", key)
}

func (s *Store) overrides(ctx context.Context) map[string]string {
	if s.remote == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil && time.Since(s.fetchedAt) < s.ttl {
		return s.cached
	}
	m, err := s.remote.Prompts(ctx)
	if err != nil {
		s.log.Warn("Prompt override fetch failed, using defaults", "error", err)
		return s.cached
	}
	// an override set without the metadata system prompt is treated as absent
	if len(m[MetadataSystem]) <= 3 {
		m = map[string]string{}
	}
	s.cached = m
	s.fetchedAt = time.Now()
	return s.cached
}

// Render replaces every {replaceMe.<name>} token with vars[name].
// Unknown tokens are left in place.
func Render(tmpl string, vars map[string]string) string {
	if len(vars) == 0 {
		return tmpl
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{replaceMe."+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
