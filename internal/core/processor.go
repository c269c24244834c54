// Package core wires document conversion, the extraction loop and the audit store
// into one request path used by the CLI, the watcher and both servers.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/po-extractor/constants"
	"github.com/joseph-ayodele/po-extractor/internal/common"
	"github.com/joseph-ayodele/po-extractor/internal/entity"
	"github.com/joseph-ayodele/po-extractor/internal/extract"
	"github.com/joseph-ayodele/po-extractor/internal/llm"
	"github.com/joseph-ayodele/po-extractor/internal/pipeline"
	"github.com/joseph-ayodele/po-extractor/internal/profiles"
	"github.com/joseph-ayodele/po-extractor/internal/repository"
)

// TextConverter turns a file on disk into model input.
type TextConverter interface {
	ToCleanText(ctx context.Context, path, suffix string) (string, error)
}

// Options are per-request hints.
type Options struct {
	ClientName string
	// MappingText overrides the registered profile mapping for ClientName.
	MappingText   string
	ExpectedItems *int
	Strict        bool
}

type Processor struct {
	logger     *slog.Logger
	converter  TextConverter
	controller *pipeline.Controller
	profiles   *profiles.Registry
	runs       repository.RunRepository
	modelName  string
}

func NewProcessor(
	logger *slog.Logger,
	converter TextConverter,
	controller *pipeline.Controller,
	registry *profiles.Registry,
	runs repository.RunRepository,
	modelName string,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if runs == nil {
		runs = repository.NewNoopRunRepository()
	}
	return &Processor{
		logger:     logger,
		converter:  converter,
		controller: controller,
		profiles:   registry,
		runs:       runs,
		modelName:  modelName,
	}
}

// ProcessFile extracts the purchase order in the file at path.
func (p *Processor) ProcessFile(ctx context.Context, path string, opts Options) (*entity.ExtractionResult, error) {
	return p.ProcessUpload(ctx, path, filepath.Base(path), opts)
}

// ProcessUpload extracts the purchase order in the file at path, taking the
// format from filename (uploads are staged under temp names).
func (p *Processor) ProcessUpload(ctx context.Context, path, filename string, opts Options) (*entity.ExtractionResult, error) {
	start := time.Now()
	ctx, rid := common.EnsureRequestID(ctx)
	if opts.ClientName != "" {
		ctx = common.WithClientName(ctx, opts.ClientName)
	}
	suffix := filepath.Ext(filename)
	format := constants.MapExtToFormat(suffix)
	if format == constants.UNKNOWN {
		return nil, &extract.UnsupportedFormatError{Suffix: suffix}
	}

	runID := p.startRun(ctx, filename, format, opts.ClientName)
	p.logger.Info("processor.start", "req_id", rid, "run_id", runID, "file", filename, "format", format)

	text, err := p.converter.ToCleanText(ctx, path, suffix)
	if err != nil {
		p.finishFailure(ctx, runID, 0, err)
		return nil, err
	}

	mapping := strings.TrimSpace(opts.MappingText)
	if mapping == "" && p.profiles != nil {
		mapping = p.profiles.MappingFor(opts.ClientName)
	}
	prompt := llm.BuildPrompt(llm.PromptInput{
		ClientName:    opts.ClientName,
		MappingText:   mapping,
		ExpectedItems: opts.ExpectedItems,
		Format:        format,
	})

	res, err := p.controller.Run(ctx, pipeline.Request{Prompt: prompt, DocumentText: text, Strict: opts.Strict})
	if err != nil {
		attempts := 1
		var failed *pipeline.ExtractionFailed
		if errors.As(err, &failed) {
			attempts = failed.Attempts
		}
		p.finishFailure(ctx, runID, attempts, err)
		return nil, err
	}

	if err := llm.ValidateResult(res); err != nil {
		p.finishFailure(ctx, runID, res.Attempts, err)
		return nil, common.NewAppError("CONTRACT_ERROR", "result does not match the purchase order contract", err)
	}

	if runID != uuid.Nil {
		if err := p.runs.FinishSuccess(ctx, runID, res); err != nil {
			p.logger.Warn("processor.audit.failed", "req_id", rid, "run_id", runID, "error", err)
		}
	}

	p.logger.Info("processor.ok",
		"req_id", rid,
		"run_id", runID,
		"po_number", res.Header.PONumber,
		"items", len(res.Items),
		"confidence", res.Confidence,
		"needs_review", res.NeedsReview,
		"attempts", res.Attempts,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// startRun records the run; audit failures never fail the request.
func (p *Processor) startRun(ctx context.Context, filename string, format constants.FileFormat, client string) uuid.UUID {
	run, err := p.runs.Start(ctx, repository.StartRun{
		Filename:   filename,
		Format:     format,
		ClientName: client,
		ModelName:  p.modelName,
	})
	if err != nil {
		p.logger.Warn("processor.audit.failed", "req_id", common.RequestIDFromContext(ctx), "error", err)
		return uuid.Nil
	}
	return run.ID
}

func (p *Processor) finishFailure(ctx context.Context, runID uuid.UUID, attempts int, cause error) {
	p.logger.Error("processor.failed", "req_id", common.RequestIDFromContext(ctx), "run_id", runID, "error", cause)
	if runID == uuid.Nil {
		return
	}
	if err := p.runs.FinishFailure(ctx, runID, attempts, cause.Error()); err != nil {
		p.logger.Warn("processor.audit.failed", "run_id", runID, "error", fmt.Errorf("finish failure: %w", err))
	}
}

// Runs exposes the audit store for read endpoints.
func (p *Processor) Runs() repository.RunRepository {
	return p.runs
}
