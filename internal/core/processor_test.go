package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/joseph-ayodele/po-extractor/constants"
	"github.com/joseph-ayodele/po-extractor/internal/common"
	"github.com/joseph-ayodele/po-extractor/internal/entity"
	"github.com/joseph-ayodele/po-extractor/internal/pipeline"
	"github.com/joseph-ayodele/po-extractor/internal/profiles"
	"github.com/joseph-ayodele/po-extractor/internal/repository"
)

const cleanPO = `{"po":{"poNumber":"PO1","poDate":"2024-01-01","clientName":"Aneri","totalValue":100},"items":[{"vendorStyleCode":"A1","itemRefNo":"R1","orderQty":5}]}`

type fakeConverter struct {
	text string
	err  error
}

func (f fakeConverter) ToCleanText(context.Context, string, string) (string, error) {
	return f.text, f.err
}

type fakeInvoker struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeInvoker) Invoke(_ context.Context, prompt, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func newProcessor(t *testing.T, conv TextConverter, inv *fakeInvoker) (*Processor, repository.RunRepository) {
	t.Helper()
	runs, closeFn, err := repository.Open(context.Background(), repository.Config{Driver: repository.DriverSQLite, DSN: ":memory:"}, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(closeFn)
	reg, err := profiles.NewRegistry([]entity.ClientProfile{{Name: "Aneri", Mapping: "StyleCode -> Vendor Style"}}, nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return NewProcessor(nil, conv, pipeline.NewController(inv, nil), reg, runs, "gpt-4o-mini"), runs
}

func TestProcessUpload_Success(t *testing.T) {
	inv := &fakeInvoker{reply: cleanPO}
	p, runs := newProcessor(t, fakeConverter{text: "PO text"}, inv)
	expected := 1

	res, err := p.ProcessUpload(context.Background(), "/tmp/upload-1", "order.PDF", Options{ClientName: "aneri", ExpectedItems: &expected})
	if err != nil {
		t.Fatalf("ProcessUpload() error = %v", err)
	}
	if res.NeedsReview || res.Confidence != 1.0 {
		t.Errorf("ProcessUpload() = %+v", res)
	}
	prompt := inv.prompts[0]
	for _, want := range []string{"StyleCode -> Vendor Style", "exactly 1 items", "PDF converted to text", "Client name hint: aneri"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	list, err := runs.ListRecent(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(list) != 1 || list[0].Status != string(constants.RunStatusSucceeded) || list[0].Format != string(constants.PDF) {
		t.Errorf("runs = %+v", list)
	}
}

func TestProcessUpload_MappingOverride(t *testing.T) {
	inv := &fakeInvoker{reply: cleanPO}
	p, _ := newProcessor(t, fakeConverter{text: "PO text"}, inv)
	if _, err := p.ProcessUpload(context.Background(), "x", "po.xlsx", Options{ClientName: "Aneri", MappingText: "OrderQty -> Pcs"}); err != nil {
		t.Fatalf("ProcessUpload() error = %v", err)
	}
	if strings.Contains(inv.prompts[0], "Vendor Style") || !strings.Contains(inv.prompts[0], "OrderQty -> Pcs") {
		t.Errorf("explicit mapping should replace profile mapping")
	}
}

func TestProcessUpload_Unsupported(t *testing.T) {
	inv := &fakeInvoker{reply: cleanPO}
	p, runs := newProcessor(t, fakeConverter{}, inv)
	_, err := p.ProcessUpload(context.Background(), "x", "po.xls", Options{})
	if !errors.Is(err, common.ErrUnsupportedFormat) {
		t.Fatalf("ProcessUpload() error = %v, want unsupported format", err)
	}
	if list, _ := runs.ListRecent(context.Background(), 5); len(list) != 0 {
		t.Errorf("unsupported upload should not start a run: %+v", list)
	}
	if len(inv.prompts) != 0 {
		t.Errorf("model was called for an unsupported file")
	}
}

func TestProcessUpload_ModelFailureIsAudited(t *testing.T) {
	inv := &fakeInvoker{err: errors.New("dial tcp: refused")}
	p, runs := newProcessor(t, fakeConverter{text: "PO text"}, inv)
	_, err := p.ProcessFile(context.Background(), "/in/po.txt", Options{})
	if !errors.Is(err, common.ErrModelInvocation) {
		t.Fatalf("ProcessFile() error = %v, want model invocation", err)
	}
	list, err := runs.ListRecent(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(list) != 1 || list[0].Status != string(constants.RunStatusFailed) || list[0].Filename != "po.txt" {
		t.Fatalf("runs = %+v", list)
	}
}

func TestProcessUpload_ConversionFailure(t *testing.T) {
	inv := &fakeInvoker{reply: cleanPO}
	p, _ := newProcessor(t, fakeConverter{err: errors.New("pdftotext: exit status 1")}, inv)
	if _, err := p.ProcessUpload(context.Background(), "x", "po.pdf", Options{}); err == nil {
		t.Fatal("ProcessUpload() error = nil")
	}
	if len(inv.prompts) != 0 {
		t.Errorf("model was called after conversion failed")
	}
}

func TestProcessUpload_StrictExhausted(t *testing.T) {
	inv := &fakeInvoker{reply: `{"po":{"poNumber":"PO1"},"items":[]}`}
	p, runs := newProcessor(t, fakeConverter{text: "PO text"}, inv)
	_, err := p.ProcessUpload(context.Background(), "x", "po.csv", Options{Strict: true})
	if !errors.Is(err, common.ErrExtractionFailed) {
		t.Fatalf("ProcessUpload() error = %v, want extraction failed", err)
	}
	list, _ := runs.ListRecent(context.Background(), 1)
	if len(list) != 1 || list[0].Attempts != pipeline.MaxAttempts {
		t.Errorf("runs = %+v", list)
	}
}
