// Package pipeline drives repeated model calls until the extracted purchase order
// validates cleanly or the attempt budget runs out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/po-extractor/internal/common"
	"github.com/joseph-ayodele/po-extractor/internal/confidence"
	"github.com/joseph-ayodele/po-extractor/internal/entity"
	"github.com/joseph-ayodele/po-extractor/internal/llm"
	"github.com/joseph-ayodele/po-extractor/internal/normalize"
	"github.com/joseph-ayodele/po-extractor/internal/recovery"
	"github.com/joseph-ayodele/po-extractor/internal/validate"
)

// MaxAttempts bounds the number of model calls per request.
const MaxAttempts = 3

// State of one extraction request.
type State int

const (
	StateIdle State = iota
	StateAttempting
	StateSucceeded
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAttempting:
		return "attempting"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Request is one document to extract.
type Request struct {
	// Prompt holds the base instructions for the first attempt.
	Prompt       string
	DocumentText string
	// Strict turns an exhausted run into an error even when a result exists.
	Strict bool
}

// Controller runs invoke, recover, normalize, validate and score in a bounded loop.
// It holds no per-request state and is safe for concurrent use.
type Controller struct {
	invoker llm.Invoker
	engine  *recovery.Engine
	timeout time.Duration
	strict  bool
	logger  *slog.Logger
}

type Option func(*Controller)

// WithInvokeTimeout bounds each model call.
func WithInvokeTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithStrict makes every request strict.
func WithStrict(strict bool) Option {
	return func(c *Controller) { c.strict = strict }
}

// WithRecoveryEngine replaces the default JSON recovery engine.
func WithRecoveryEngine(e *recovery.Engine) Option {
	return func(c *Controller) { c.engine = e }
}

func NewController(invoker llm.Invoker, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{invoker: invoker, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	if c.engine == nil {
		c.engine = recovery.New(logger)
	}
	return c
}

// Extract runs the loop for documentText with the default instructions.
func (c *Controller) Extract(ctx context.Context, documentText string) (*entity.ExtractionResult, error) {
	return c.Run(ctx, Request{Prompt: llm.BuildPrompt(llm.PromptInput{}), DocumentText: documentText})
}

// Run executes up to MaxAttempts attempts. It returns the first result without
// validation errors, or after exhaustion the most recent parsed result with
// NeedsReview forced on. Model invocation errors end the run immediately.
func (c *Controller) Run(ctx context.Context, req Request) (*entity.ExtractionResult, error) {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()
	strict := c.strict || req.Strict
	state := StateIdle

	var (
		last     *entity.ExtractionResult
		lastFail error
		feedback []string
	)

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			c.logger.Warn("pipeline.cancelled", "req_id", rid, "attempt", attempt, "state", state.String(), "error", err)
			return nil, fmt.Errorf("extraction cancelled before attempt %d: %w", attempt, err)
		}
		state = StateAttempting
		c.logger.Info("pipeline.attempt.start", "req_id", rid, "client", common.ClientNameFromContext(ctx),
			"attempt", attempt, "feedback", len(feedback))

		raw, err := c.invoke(ctx, llm.WithFeedback(req.Prompt, feedback), req.DocumentText)
		if err != nil {
			c.logger.Error("pipeline.invoke.failed", "req_id", rid, "attempt", attempt, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds())
			return nil, err
		}

		rec, err := c.engine.Recover(raw)
		if err != nil {
			lastFail = err
			feedback = []string{"The response was not valid JSON (" + err.Error() + "). Return a single JSON object."}
			c.logger.Warn("pipeline.attempt.unparseable", "req_id", rid, "attempt", attempt, "error", err)
			continue
		}
		lastFail = nil
		if rec.Repaired {
			c.logger.Info("pipeline.attempt.repaired", "req_id", rid, "attempt", attempt,
				"strategy", rec.Strategy, "truncated", rec.Truncated)
		}

		last = c.evaluate(ctx, rec, attempt)
		if len(last.Errors) == 0 {
			state = StateSucceeded
			c.logger.Info("pipeline.ok",
				"req_id", rid,
				"state", state.String(),
				"attempts", attempt,
				"items", len(last.Items),
				"confidence", last.Confidence,
				"needs_review", last.NeedsReview,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return last, nil
		}

		feedback = make([]string, len(last.Errors))
		for i, e := range last.Errors {
			feedback[i] = e.String()
		}
		c.logger.Warn("pipeline.attempt.invalid", "req_id", rid, "attempt", attempt,
			"errors", len(last.Errors), "confidence", last.Confidence)
	}

	state = StateExhausted
	if lastFail != nil {
		c.logger.Error("pipeline.exhausted", "req_id", rid, "state", state.String(), "error", lastFail,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, &ExtractionFailed{Attempts: MaxAttempts, Last: last, Cause: lastFail}
	}

	last.NeedsReview = true
	c.logger.Warn("pipeline.exhausted",
		"req_id", rid,
		"state", state.String(),
		"errors", len(last.Errors),
		"confidence", last.Confidence,
		"strict", strict,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if strict {
		return nil, &ExtractionFailed{Attempts: MaxAttempts, Last: last}
	}
	return last, nil
}

func (c *Controller) invoke(ctx context.Context, prompt, text string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	raw, err := c.invoker.Invoke(ctx, prompt, text)
	if err != nil {
		var invErr *llm.InvocationError
		if !errors.As(err, &invErr) {
			err = &llm.InvocationError{Provider: "unknown", Err: err}
		}
		return "", err
	}
	return raw, nil
}

// evaluate builds a fresh result for one parsed attempt.
func (c *Controller) evaluate(ctx context.Context, rec *recovery.Result, attempt int) *entity.ExtractionResult {
	res := Evaluate(rec, attempt)
	if declared, ok := normalize.DeclaredTotalItems(rec.Value); ok && declared != res.Header.TotalItems {
		c.logger.Warn("pipeline.count_overwritten",
			"req_id", common.RequestIDFromContext(ctx),
			"declared", declared,
			"actual", res.Header.TotalItems,
		)
	}
	return res
}

// Evaluate normalizes, validates and scores a recovered document.
func Evaluate(rec *recovery.Result, attempt int) *entity.ExtractionResult {
	po := normalize.Normalize(rec.Value)
	errs := validate.Validate(po)
	errs = append(errs, validate.Shape(rec.Value)...)
	score, review := confidence.Evaluate(po, errs)
	if rec.Truncated {
		// rows past the cut are gone
		review = true
	}
	return &entity.ExtractionResult{
		PurchaseOrder: po,
		Confidence:    score,
		NeedsReview:   review,
		Errors:        errs,
		Attempts:      attempt,
	}
}
