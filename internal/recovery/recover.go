package recovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Strategy names reported on a Result.
const (
	StrategyDirect       = "direct"
	StrategyPipeline     = "pipeline"
	StrategyCommas       = "reapply_commas"
	StrategyDoubleCommas = "collapse_commas"
	StrategyErrorOffset  = "error_offset_comma"
	StrategyTruncation   = "truncation_repair"
)

// maxOffsetRepairs bounds how many commas the error-offset strategy may insert.
const maxOffsetRepairs = 16

// Failure is returned when no strategy produced parseable JSON.
type Failure struct {
	Message string
	// Offset is the byte position in the repaired text where parsing stopped.
	Offset int
}

func (f *Failure) Error() string {
	return fmt.Sprintf("json recovery failed at offset %d: %s", f.Offset, f.Message)
}

// Result is a successfully recovered document.
type Result struct {
	Value     any
	Text      string
	Repaired  bool
	Strategy  string
	Truncated bool
}

type fallback struct {
	name      string
	truncates bool
	apply     func(text string, perr *parseError) (string, bool)
}

// Engine turns near-JSON model output into a parsed value.
type Engine struct {
	stages    []Stage
	fallbacks []fallback
	logger    *slog.Logger
}

// New builds an Engine with the default stage pipeline and fallbacks.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		stages: Stages(),
		fallbacks: []fallback{
			{name: StrategyCommas, apply: func(s string, _ *parseError) (string, bool) {
				return InsertMissingCommas(s), true
			}},
			{name: StrategyDoubleCommas, apply: func(s string, _ *parseError) (string, bool) {
				return RemoveTrailingCommas(collapseDoubleCommas(s)), true
			}},
			{name: StrategyErrorOffset, apply: commaAtErrorOffset},
			{name: StrategyTruncation, truncates: true, apply: func(s string, perr *parseError) (string, bool) {
				return RepairTruncated(s, perr.offset), true
			}},
		},
		logger: logger,
	}
}

// Recover parses text as JSON, repairing it first when the direct parse fails.
func Recover(text string) (*Result, error) {
	return New(nil).Recover(text)
}

// Clean runs every stage over text and returns the repaired text.
func (e *Engine) Clean(text string) string {
	for _, st := range e.stages {
		text = st.Apply(text)
	}
	return text
}

// Recover parses text, trying the raw text first, then the stage pipeline, then
// each fallback in order. A *Failure is returned when nothing parses.
func (e *Engine) Recover(text string) (*Result, error) {
	start := time.Now()
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, &Failure{Message: "empty model output"}
	}

	if v, err := parse(trimmed); err == nil {
		return &Result{Value: v, Text: trimmed, Strategy: StrategyDirect}, nil
	}

	cleaned := e.Clean(trimmed)
	v, perr := parse(cleaned)
	if perr == nil {
		e.logger.Debug("recovery.pipeline.ok", "input_len", len(text), "output_len", len(cleaned))
		return &Result{Value: v, Text: cleaned, Repaired: true, Strategy: StrategyPipeline}, nil
	}

	for _, fb := range e.fallbacks {
		candidate, ok := fb.apply(cleaned, perr)
		if !ok || candidate == cleaned {
			continue
		}
		if v, err := parse(candidate); err == nil {
			e.logger.Info("recovery.fallback.ok",
				"strategy", fb.name,
				"truncated", fb.truncates,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return &Result{Value: v, Text: candidate, Repaired: true, Strategy: fb.name, Truncated: fb.truncates}, nil
		}
	}

	e.logger.Warn("recovery.failed",
		"error", perr.msg,
		"offset", perr.offset,
		"input_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil, &Failure{Message: perr.msg, Offset: perr.offset}
}

type parseError struct {
	msg    string
	offset int
	eof    bool
}

func (p *parseError) Error() string { return p.msg }

func parse(text string) (any, *parseError) {
	var v any
	err := json.Unmarshal([]byte(text), &v)
	if err == nil {
		return v, nil
	}
	var se *json.SyntaxError
	if errors.As(err, &se) {
		if strings.Contains(se.Error(), "unexpected end") {
			return nil, &parseError{msg: se.Error(), offset: len(text), eof: true}
		}
		// Offset counts the offending byte itself.
		off := int(se.Offset) - 1
		if off < 0 {
			off = 0
		}
		return nil, &parseError{msg: se.Error(), offset: off}
	}
	return nil, &parseError{msg: err.Error(), offset: 0}
}

// commaAtErrorOffset inserts a comma before the byte the parser rejected, as long as
// that byte opens a value. It repeats while each insertion moves the error forward.
func commaAtErrorOffset(text string, perr *parseError) (string, bool) {
	changed := false
	for range maxOffsetRepairs {
		off := perr.offset
		if perr.eof || off <= 0 || off >= len(text) {
			break
		}
		switch text[off] {
		case '"', '{', '[':
		default:
			return text, changed
		}
		text = text[:off] + "," + text[off:]
		changed = true
		_, next := parse(text)
		if next == nil || next.offset <= off {
			break
		}
		perr = next
	}
	return text, changed
}
