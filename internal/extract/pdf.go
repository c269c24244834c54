package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrEmptyPDF is returned for a PDF with no extractable text layer.
var ErrEmptyPDF = errors.New("pdf has no text layer")

func pdfPageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(f, conf)
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (string, error) {
	pages, err := e.pageCount(path)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	// pdftotext -layout -enc UTF-8 -eol unix [-l N] <path> -
	args := []string{"-layout", "-enc", "UTF-8", "-eol", "unix"}
	if e.cfg.MaxPages > 0 && pages > e.cfg.MaxPages {
		e.logger.Warn("extract.pdf.page_limit", "path", path, "pages", pages, "max_pages", e.cfg.MaxPages)
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, path, "-")

	out, errb, err := e.runner.Run(ctx, e.cfg.PDFToText, args...)
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w: %s", err, strings.TrimSpace(string(errb)))
	}

	text := dedupPageChrome(strings.Split(string(out), "\f"))
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyPDF
	}
	e.logger.Debug("extract.pdf.ok", "path", path, "pages", pages)
	return text, nil
}

// dedupPageChrome joins pages, keeping only the first copy of lines that appear
// on every page (letterheads, column headers, footers).
func dedupPageChrome(pages []string) string {
	var kept []string
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	if len(kept) == 1 {
		return kept[0]
	}

	counts := make(map[string]int)
	for _, p := range kept {
		seen := make(map[string]bool)
		for _, line := range strings.Split(p, "\n") {
			key := strings.TrimSpace(line)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			counts[key]++
		}
	}

	var b strings.Builder
	emitted := make(map[string]bool)
	for i, p := range kept {
		if i > 0 {
			b.WriteString("\n")
		}
		for _, line := range strings.Split(p, "\n") {
			key := strings.TrimSpace(line)
			if key != "" && counts[key] == len(kept) {
				if emitted[key] {
					continue
				}
				emitted[key] = true
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}
