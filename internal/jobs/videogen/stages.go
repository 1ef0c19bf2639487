package videogen

import (
	"context"
	"fmt"
	"strings"

	"github.com/thecmdrunner/swiftube-backend/internal/clients/openai"
	"github.com/thecmdrunner/swiftube-backend/internal/domain"
	"github.com/thecmdrunner/swiftube-backend/internal/jobs/stage"
	"github.com/thecmdrunner/swiftube-backend/internal/prompts"
)

const (
	minTalkingPoints   = 3
	minFieldLength     = 3
	minTableLength     = 15
	minSummaryLength   = 10
	talkingPointsTemp  = 0.5
	defaultTemperature = 1.0
)

type talkingPointsOut struct {
	TalkingPoints []string `json:"talkingPoints"`
}

type titlesOut struct {
	Titles []string `json:"titles"`
}

type introOut struct {
	Intro string `json:"intro"`
}

type outroOut struct {
	Outro string `json:"outro"`
}

// scriptStages builds the generation steps for one job. Every request carries
// the job owner as the caller identity.
type scriptStages struct {
	prompts prompts.Source
	userID  string
}

func (s scriptStages) request(ctx context.Context, temperature float64, parts ...promptPart) (openai.ChatRequest, error) {
	msgs := make([]domain.GenerationMessage, 0, len(parts))
	for _, p := range parts {
		tmpl, err := s.prompts.Get(ctx, p.key)
		if err != nil {
			return openai.ChatRequest{}, err
		}
		msgs = append(msgs, domain.GenerationMessage{Role: p.role, Content: prompts.Render(tmpl, p.vars)})
	}
	t := temperature
	return openai.ChatRequest{Messages: msgs, User: s.userID, Temperature: &t}, nil
}

type promptPart struct {
	role string
	key  string
	vars map[string]string
}

func system(key string) promptPart { return promptPart{role: domain.RoleSystem, key: key} }

func user(key string, vars map[string]string) promptPart {
	return promptPart{role: domain.RoleUser, key: key, vars: vars}
}

func (s scriptStages) metadata(prompt string) stage.Definition[domain.VideoMetadata] {
	return stage.Definition[domain.VideoMetadata]{
		Name: "metadata",
		Prompt: func(ctx context.Context) (openai.ChatRequest, error) {
			return s.request(ctx, defaultTemperature,
				system(prompts.MetadataSystem),
				user(prompts.MetadataUser, map[string]string{"prompt": prompt}),
			)
		},
		Validate: func(m *domain.VideoMetadata) error {
			applyMetadataDefaults(m)
			if len(strings.TrimSpace(m.Topic)) < minFieldLength {
				return fmt.Errorf("topic too short: %q", m.Topic)
			}
			if len(strings.TrimSpace(m.Description)) < minFieldLength {
				return fmt.Errorf("description too short: %q", m.Description)
			}
			return nil
		},
	}
}

// applyMetadataDefaults fills whatever the model left out.
func applyMetadataDefaults(m *domain.VideoMetadata) {
	def := domain.DefaultVideoMetadata()
	if m.Width <= 0 {
		m.Width = def.Width
	}
	if m.Height <= 0 {
		m.Height = def.Height
	}
	if m.DurationInSeconds <= 0 {
		m.DurationInSeconds = def.DurationInSeconds
	}
	if strings.TrimSpace(m.Style) == "" {
		m.Style = def.Style
	}
	if strings.TrimSpace(m.Color.AccentColor) == "" {
		m.Color.AccentColor = def.Color.AccentColor
	}
}

func (s scriptStages) talkingPoints(meta domain.VideoMetadata, prompt, referenceData string) stage.Definition[talkingPointsOut] {
	return stage.Definition[talkingPointsOut]{
		Name: "talkingPoints",
		Prompt: func(ctx context.Context) (openai.ChatRequest, error) {
			return s.request(ctx, talkingPointsTemp,
				system(prompts.TalkingPointsSystem),
				user(prompts.TalkingPointsUser, map[string]string{
					"topic":          meta.Topic,
					"originalPrompt": prompt,
					"referenceData":  referenceData,
				}),
			)
		},
		Validate: func(out *talkingPointsOut) error {
			out.TalkingPoints = nonEmpty(out.TalkingPoints)
			if len(out.TalkingPoints) < minTalkingPoints {
				return fmt.Errorf("want at least %d talking points, got %d", minTalkingPoints, len(out.TalkingPoints))
			}
			return nil
		},
	}
}

func (s scriptStages) titles(talkingPoints []string) stage.Definition[titlesOut] {
	return stage.Definition[titlesOut]{
		Name: "titles",
		Prompt: func(ctx context.Context) (openai.ChatRequest, error) {
			return s.request(ctx, defaultTemperature,
				user(prompts.TitlesUser, map[string]string{"talkingPoints": domain.NumberedList(talkingPoints)}),
			)
		},
		Validate: func(out *titlesOut) error {
			out.Titles = nonEmpty(out.Titles)
			if len(out.Titles) < minTalkingPoints {
				return fmt.Errorf("want at least %d titles, got %d", minTalkingPoints, len(out.Titles))
			}
			if len(out.Titles) != len(talkingPoints) {
				return fmt.Errorf("got %d titles for %d talking points", len(out.Titles), len(talkingPoints))
			}
			return nil
		},
	}
}

func (s scriptStages) table(label string) stage.Definition[domain.TableData] {
	return stage.Definition[domain.TableData]{
		Name: "table",
		Prompt: func(ctx context.Context) (openai.ChatRequest, error) {
			return s.request(ctx, defaultTemperature,
				user(prompts.TablesUser, map[string]string{"label": label}),
			)
		},
		Validate: func(out *domain.TableData) error {
			if len(strings.TrimSpace(out.Table)) < minTableLength {
				return fmt.Errorf("table too short (%d chars)", len(out.Table))
			}
			if len(strings.TrimSpace(out.Summary)) < minSummaryLength {
				return fmt.Errorf("table summary too short (%d chars)", len(out.Summary))
			}
			return nil
		},
	}
}

func (s scriptStages) intro(meta domain.VideoMetadata, contents string) stage.Definition[introOut] {
	return stage.Definition[introOut]{
		Name: "intro",
		Prompt: func(ctx context.Context) (openai.ChatRequest, error) {
			return s.request(ctx, defaultTemperature,
				user(prompts.IntroUser, map[string]string{
					"title":           meta.Title,
					"description":     meta.Description,
					"contentsOfVideo": contents,
				}),
			)
		},
		Validate: func(out *introOut) error {
			out.Intro = strings.TrimSpace(out.Intro)
			if len(out.Intro) < minFieldLength {
				return fmt.Errorf("intro too short: %q", out.Intro)
			}
			return nil
		},
	}
}

func (s scriptStages) outro(contents string) stage.Definition[outroOut] {
	return stage.Definition[outroOut]{
		Name: "outro",
		Prompt: func(ctx context.Context) (openai.ChatRequest, error) {
			return s.request(ctx, defaultTemperature,
				user(prompts.OutroUser, map[string]string{"contentsOfVideo": contents}),
			)
		},
		Validate: func(out *outroOut) error {
			out.Outro = strings.TrimSpace(out.Outro)
			if len(out.Outro) < minFieldLength {
				return fmt.Errorf("outro too short: %q", out.Outro)
			}
			return nil
		},
	}
}

func nonEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
