package stage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/thecmdrunner/swiftube-backend/internal/clients/openai"
	"github.com/thecmdrunner/swiftube-backend/internal/domain"
	"github.com/thecmdrunner/swiftube-backend/internal/observability"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/jsonrepair"
	"github.com/thecmdrunner/swiftube-backend/internal/platform/logger"
)

const DefaultMaxAttempts = 3

// Generator is the text-completion collaborator. openai.Client satisfies it.
type Generator interface {
	Chat(ctx context.Context, req openai.ChatRequest) (string, error)
}

// Definition is one bounded-retry generation step producing a T.
type Definition[T any] struct {
	Name string
	// Prompt builds the request. It runs once per attempt so templates fetched
	// from a live store pick up edits between attempts.
	Prompt func(ctx context.Context) (openai.ChatRequest, error)
	// Validate rejects decoded output that fails the stage's domain checks.
	Validate func(out *T) error
}

type Runner struct {
	gen         Generator
	log         *logger.Logger
	metrics     *observability.Metrics
	maxAttempts int
}

func NewRunner(gen Generator, log *logger.Logger, metrics *observability.Metrics, maxAttempts int) *Runner {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Runner{
		gen:         gen,
		log:         log.With("component", "RetryingStage"),
		metrics:     metrics,
		maxAttempts: maxAttempts,
	}
}

func (r *Runner) MaxAttempts() int { return r.maxAttempts }

// Execute runs def until an attempt yields valid output or the budget is
// spent. Attempts follow each other without backoff. Exhaustion returns a
// RetryExhausted PipelineError wrapping the last attempt's error.
func Execute[T any](ctx context.Context, r *Runner, def Definition[T]) (T, error) {
	var zero T
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "stage."+def.Name,
		attribute.String("stage", def.Name),
		attribute.Int("max_attempts", r.maxAttempts),
	)

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			// Cancellation is not exhaustion; report the attempts actually made.
			cancelled := domain.NewExternalError(def.Name, err)
			cancelled.Attempt = attempt - 1
			r.metrics.ObserveStage(def.Name, "cancelled", time.Since(start))
			observability.EndSpan(span, cancelled)
			return zero, cancelled
		}
		out, err := attemptOnce(ctx, r, def)
		if err == nil {
			r.metrics.ObserveStageAttempt(def.Name, "ok")
			r.metrics.ObserveStage(def.Name, "ok", time.Since(start))
			span.SetAttributes(attribute.Int("attempts", attempt))
			observability.EndSpan(span, nil)
			return out, nil
		}
		var pe *domain.PipelineError
		if errors.As(err, &pe) {
			pe.Attempt = attempt
		}
		lastErr = err
		r.metrics.ObserveStageAttempt(def.Name, outcomeOf(err))
		r.log.Warn("stage attempt failed",
			"stage", def.Name,
			"attempt", attempt,
			"max_attempts", r.maxAttempts,
			"error", err,
		)
	}

	r.metrics.ObserveStage(def.Name, "exhausted", time.Since(start))
	exhausted := &domain.PipelineError{
		Kind:    domain.KindRetryExhausted,
		Stage:   def.Name,
		Attempt: r.maxAttempts,
		Err:     lastErr,
	}
	observability.EndSpan(span, exhausted)
	return zero, exhausted
}

func attemptOnce[T any](ctx context.Context, r *Runner, def Definition[T]) (T, error) {
	var out T
	req, err := def.Prompt(ctx)
	if err != nil {
		return out, domain.NewExternalError(def.Name, fmt.Errorf("build prompt: %w", err))
	}
	text, err := r.gen.Chat(ctx, req)
	if err != nil {
		return out, domain.NewExternalError(def.Name, err)
	}
	if err := jsonrepair.Decode(text, &out); err != nil {
		return out, domain.NewValidationError(def.Name, err)
	}
	if def.Validate != nil {
		if err := def.Validate(&out); err != nil {
			return out, domain.NewValidationError(def.Name, err)
		}
	}
	return out, nil
}

func outcomeOf(err error) string {
	if domain.KindOf(err) == domain.KindValidation {
		return "invalid"
	}
	return "error"
}
