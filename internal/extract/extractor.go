// Package extract turns uploaded purchase order files into plain text for the model.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/po-extractor/constants"
	"github.com/joseph-ayodele/po-extractor/internal/common"
)

type Config struct {
	PDFToText string        // binary name or absolute path; if empty -> "pdftotext"
	Timeout   time.Duration // per conversion; 0 = none
	MaxPages  int           // 0 = no limit
}

// UnsupportedFormatError is returned for file suffixes with no converter.
type UnsupportedFormatError struct {
	Suffix string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported document format %q", e.Suffix)
}

func (e *UnsupportedFormatError) Is(target error) bool {
	return target == common.ErrUnsupportedFormat
}

type Extractor struct {
	cfg       Config
	runner    Runner
	pageCount func(path string) (int, error)
	logger    *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the command runner used for PDF conversion.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PDFToText == "" {
		cfg.PDFToText = "pdftotext"
	}
	e := &Extractor{cfg: cfg, logger: logger, pageCount: pdfPageCount}
	for _, opt := range opts {
		opt(e)
	}
	if e.runner == nil {
		e.runner = execRunner{logger: logger}
	}
	return e
}

// ToCleanText converts the file at path to text. suffix is the original upload
// suffix (the file on disk may be a temp file with a different name).
func (e *Extractor) ToCleanText(ctx context.Context, path, suffix string) (string, error) {
	start := time.Now()
	format := constants.MapExtToFormat(suffix)
	if format == constants.UNKNOWN {
		return "", &UnsupportedFormatError{Suffix: suffix}
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	var (
		text string
		err  error
	)
	switch format {
	case constants.PDF:
		text, err = e.pdfToText(ctx, path)
	case constants.SPREADSHEET:
		text, err = spreadsheetToText(path)
	case constants.TEXT:
		text, err = readText(path)
	}
	if err != nil {
		e.logger.Error("extract.failed", "path", path, "format", format, "error", err)
		return "", fmt.Errorf("convert %s: %w", path, err)
	}

	text = strings.TrimSpace(text)
	e.logger.Info("extract.ok",
		"req_id", common.RequestIDFromContext(ctx),
		"format", format,
		"chars", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func readText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(string(b), "\r\n", "\n"), nil
}
