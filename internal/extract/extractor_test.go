package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/po-extractor/internal/common"
)

type fakeRunner struct {
	out   string
	err   error
	calls [][]string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.err != nil {
		return nil, []byte("boom"), f.err
	}
	return []byte(f.out), nil, nil
}

func newTestExtractor(r Runner, pages int, cfg Config) *Extractor {
	e := NewExtractor(cfg, nil, WithRunner(r))
	e.pageCount = func(string) (int, error) { return pages, nil }
	return e
}

func TestToCleanText_PDF(t *testing.T) {
	page := "ACME JEWELRY PO\nStyle  Qty\n%s\nPage footer\n"
	out := strings.Join([]string{
		strings.Replace(page, "%s", "A1  5", 1),
		strings.Replace(page, "%s", "B2  3", 1),
	}, "\f")
	r := &fakeRunner{out: out}
	e := newTestExtractor(r, 2, Config{PDFToText: "/usr/bin/pdftotext"})

	got, err := e.ToCleanText(context.Background(), "/tmp/upload-123", ".PDF")
	if err != nil {
		t.Fatalf("ToCleanText() error = %v", err)
	}
	if strings.Count(got, "ACME JEWELRY PO") != 1 || strings.Count(got, "Page footer") != 1 {
		t.Errorf("page chrome not deduplicated:\n%s", got)
	}
	if !strings.Contains(got, "A1  5") || !strings.Contains(got, "B2  3") {
		t.Errorf("page body lost:\n%s", got)
	}
	if len(r.calls) != 1 || r.calls[0][0] != "/usr/bin/pdftotext" || r.calls[0][1] != "-layout" {
		t.Errorf("runner calls = %v", r.calls)
	}
}

func TestToCleanText_PDFPageLimit(t *testing.T) {
	r := &fakeRunner{out: "text"}
	e := newTestExtractor(r, 80, Config{MaxPages: 10})
	if _, err := e.ToCleanText(context.Background(), "in.pdf", "pdf"); err != nil {
		t.Fatalf("ToCleanText() error = %v", err)
	}
	args := strings.Join(r.calls[0], " ")
	if !strings.Contains(args, "-l 10") {
		t.Errorf("args = %q, want page limit", args)
	}
}

func TestToCleanText_PDFErrors(t *testing.T) {
	e := newTestExtractor(&fakeRunner{err: errors.New("exit status 1")}, 1, Config{})
	if _, err := e.ToCleanText(context.Background(), "in.pdf", ".pdf"); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("ToCleanText() error = %v, want stderr in message", err)
	}

	e = newTestExtractor(&fakeRunner{out: " \f \n"}, 2, Config{})
	if _, err := e.ToCleanText(context.Background(), "in.pdf", ".pdf"); !errors.Is(err, ErrEmptyPDF) {
		t.Errorf("ToCleanText() error = %v, want ErrEmptyPDF", err)
	}
}

func TestToCleanText_Spreadsheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "po.xlsx")
	f := excelize.NewFile()
	_ = f.SetSheetRow("Sheet1", "A1", &[]any{"Style", "Qty"})
	_ = f.SetSheetRow("Sheet1", "A3", &[]any{"A1, gold", 5})
	if _, err := f.NewSheet("Notes"); err != nil {
		t.Fatalf("NewSheet() error = %v", err)
	}
	_ = f.SetCellValue("Notes", "A1", "rush")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs() error = %v", err)
	}

	e := NewExtractor(Config{}, nil)
	got, err := e.ToCleanText(context.Background(), path, ".xlsx")
	if err != nil {
		t.Fatalf("ToCleanText() error = %v", err)
	}
	want := "=== Sheet: Sheet1 ===\nStyle,Qty\n\"A1, gold\",5\n\n\n=== Sheet: Notes ===\nrush"
	if got != want {
		t.Errorf("ToCleanText() = %q, want %q", got, want)
	}
}

func TestToCleanText_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "po.csv")
	if err := os.WriteFile(path, []byte("style,qty\r\nA1,5\r\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	got, err := NewExtractor(Config{}, nil).ToCleanText(context.Background(), path, "csv")
	if err != nil {
		t.Fatalf("ToCleanText() error = %v", err)
	}
	if got != "style,qty\nA1,5" {
		t.Errorf("ToCleanText() = %q", got)
	}
}

func TestToCleanText_Unsupported(t *testing.T) {
	for _, suffix := range []string{".xls", ".docx", ""} {
		_, err := NewExtractor(Config{}, nil).ToCleanText(context.Background(), "file", suffix)
		var ufe *UnsupportedFormatError
		if !errors.As(err, &ufe) || ufe.Suffix != suffix {
			t.Errorf("ToCleanText(%q) error = %v, want UnsupportedFormatError", suffix, err)
		}
		if !errors.Is(err, common.ErrUnsupportedFormat) {
			t.Errorf("ToCleanText(%q) error should match ErrUnsupportedFormat", suffix)
		}
	}
}

func TestDedupPageChrome_SinglePage(t *testing.T) {
	if got := dedupPageChrome([]string{"only page\n"}); got != "only page\n" {
		t.Errorf("dedupPageChrome() = %q", got)
	}
}
