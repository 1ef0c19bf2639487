package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/thecmdrunner/swiftube-backend/internal/domain"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/envutil"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/httpx"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
)

// ChatRequest is one chat completion call.
// Zero Temperature and MaxTokens fall back to the client defaults.
type ChatRequest struct {
	Messages    []domain.GenerationMessage
	User        string
	Temperature *float64
	MaxTokens   int
	Model       string
}

type ModerationResult struct {
	Flagged    bool            `json:"flagged"`
	Categories map[string]bool `json:"categories"`
}

// Client is the OpenAI API surface used by the pipeline.
type Client interface {
	// Chat returns the content of the first choice.
	Chat(ctx context.Context, req ChatRequest) (string, error)
	Moderate(ctx context.Context, input string) (ModerationResult, error)
}

type client struct {
	log         *logger.Logger
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	maxRetries  int
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	return newClient(log, Config{
		BaseURL:     envutil.String("OPENAI_BASE_URL", "https://api.openai.com"),
		APIKey:      apiKey,
		Model:       envutil.String("OPENAI_MODEL", "gpt-3.5-turbo"),
		Temperature: envutil.Float("OPENAI_TEMPERATURE", 1),
		MaxTokens:   envutil.Int("OPENAI_MAX_TOKENS", 1000),
		Timeout:     envutil.Duration("OPENAI_TIMEOUT_SECONDS", 120*time.Second),
		MaxRetries:  envutil.Int("OPENAI_MAX_RETRIES", 2),
	}), nil
}

type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
}

// NewClientWithConfig skips env lookup; used by tests and tools.
func NewClientWithConfig(log *logger.Logger, cfg Config) Client {
	return newClient(log, cfg)
}

func newClient(log *logger.Logger, cfg Config) *client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:         log.With("service", "OpenAIClient"),
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		maxRetries:  cfg.MaxRetries,
	}
}

type chatCompletionRequest struct {
	Model       string                     `json:"model"`
	Messages    []domain.GenerationMessage `json:"messages"`
	Temperature float64                    `json:"temperature"`
	MaxTokens   int                        `json:"max_tokens,omitempty"`
	User        string                     `json:"user,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("openai chat: no messages")
	}
	body := chatCompletionRequest{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		User:        req.User,
	}
	if req.Model != "" {
		body.Model = req.Model
	}
	if req.Temperature != nil {
		body.Temperature = *req.Temperature
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}

	var out chatCompletionResponse
	if err := c.do(ctx, http.MethodPost, "/v1/chat/completions", body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai chat: empty choices")
	}
	return out.Choices[0].Message.Content, nil
}

type moderationResponse struct {
	Results []ModerationResult `json:"results"`
}

func (c *client) Moderate(ctx context.Context, input string) (ModerationResult, error) {
	var out moderationResponse
	if err := c.do(ctx, http.MethodPost, "/v1/moderations", map[string]string{"input": input}, &out); err != nil {
		return ModerationResult{}, err
	}
	if len(out.Results) == 0 {
		return ModerationResult{}, fmt.Errorf("openai moderation: empty results")
	}
	return out.Results[0], nil
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &httpx.StatusError{Service: "openai", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

// do retries transport-level failures only. Content-level retries belong to the caller.
func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w", uErr)
			}
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return err
		}
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}
