package app

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/po-extractor/internal/common"
	"github.com/joseph-ayodele/po-extractor/internal/entity"
	"github.com/joseph-ayodele/po-extractor/internal/ingest"
)

const cleanPO = `{"po":{"poNumber":"PO7","poDate":"2024-02-02","clientName":"TFJ","totalValue":10},"items":[{"vendorStyleCode":"S1","itemRefNo":"R1","orderQty":2}]}`

type staticInvoker struct{ reply string }

func (s staticInvoker) Invoke(context.Context, string, string) (string, error) {
	return s.reply, nil
}

func testConfig() *common.Config {
	return &common.Config{
		LLM:      common.LLMConfig{Provider: "openai", Timeout: 5 * time.Second},
		Extract:  common.ExtractConfig{Timeout: 5 * time.Second},
		Pipeline: common.PipelineConfig{Workers: 1, QueueSize: 4, ProcessTimeout: 10 * time.Second},
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.Provider = "mystery"
	if _, err := New(context.Background(), cfg, nil); !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("New() error = %v, want ErrInvalidInput", err)
	}
}

func TestServe_NoAddress(t *testing.T) {
	a, err := New(context.Background(), testConfig(), nil, WithInvoker(staticInvoker{reply: cleanPO}, "test-model"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()
	if err := a.Serve(context.Background()); !common.IsConfigError(err) {
		t.Fatalf("Serve() error = %v, want config error", err)
	}
}

func TestWatch_WritesResults(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "order.txt")
	if err := os.WriteFile(src, []byte("PO7 2024-02-02 TFJ\nS1 R1 2"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	a, err := New(context.Background(), testConfig(), nil, WithInvoker(staticInvoker{reply: cleanPO}, "test-model"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Watch(ctx, WatchOptions{Roots: []string{dir}, Debounce: 10 * time.Millisecond}) }()

	dst := ingest.ResultPath(src)
	deadline := time.Now().Add(5 * time.Second)
	for !ingest.IsProcessed(src) {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("result %s not written", dst)
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var res entity.ExtractionResult
	if err := json.Unmarshal(b, &res); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if res.Header.PONumber != "PO7" || len(res.Items) != 1 {
		t.Errorf("result = %+v", res)
	}
}

type blockingInvoker struct {
	started chan struct{}
	once    sync.Once
	done    chan error
}

func (b *blockingInvoker) Invoke(ctx context.Context, _, _ string) (string, error) {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	b.done <- ctx.Err()
	return "", ctx.Err()
}

func TestWatch_CancelStopsInFlightExtraction(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "order.txt"), []byte("PO7"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	cfg := testConfig()
	cfg.LLM.Timeout = time.Minute
	cfg.Pipeline.ProcessTimeout = time.Minute
	inv := &blockingInvoker{started: make(chan struct{}), done: make(chan error, 1)}
	a, err := New(context.Background(), cfg, nil, WithInvoker(inv, "test-model"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	watchDone := make(chan error, 1)
	go func() { watchDone <- a.Watch(ctx, WatchOptions{Roots: []string{dir}, Debounce: 10 * time.Millisecond}) }()

	select {
	case <-inv.started:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("extraction never started")
	}
	cancel()

	select {
	case err := <-inv.done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("model call ctx error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("model call was not cancelled with Watch")
	}
	select {
	case <-watchDone:
	case <-time.After(5 * time.Second):
		t.Fatal("Watch() did not return")
	}
}

func TestApplyConfig_SwitchesProfilesFile(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.yaml")
	second := filepath.Join(dir, "second.yaml")
	if err := os.WriteFile(first, []byte("clients:\n  - name: TFJ\n    mapping: old\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.WriteFile(second, []byte("clients:\n  - name: TFJ\n    mapping: new\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg := testConfig()
	cfg.ProfilesPath = first
	a, err := New(context.Background(), cfg, nil, WithInvoker(staticInvoker{reply: cleanPO}, "test-model"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	next := *cfg
	next.ProfilesPath = second
	a.ApplyConfig(&next)
	if got := a.Profiles.MappingFor("TFJ"); got != "new" {
		t.Fatalf("MappingFor() after switch = %q, want new", got)
	}

	bad := *cfg
	bad.ProfilesPath = filepath.Join(dir, "missing.yaml")
	a.ApplyConfig(&bad)
	if a.Profiles.Path() != second || a.Profiles.MappingFor("TFJ") != "new" {
		t.Errorf("failed switch replaced profiles: path = %q", a.Profiles.Path())
	}
}

func TestWatchProfiles_ReloadsOnEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte("clients:\n  - name: TFJ\n    mapping: old\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	cfg := testConfig()
	cfg.ProfilesPath = path
	a, err := New(context.Background(), cfg, nil, WithInvoker(staticInvoker{reply: cleanPO}, "test-model"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.WatchProfiles(ctx)

	if err := os.WriteFile(path, []byte("clients:\n  - name: TFJ\n    mapping: new\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for a.Profiles.MappingFor("TFJ") != "new" {
		if time.Now().After(deadline) {
			t.Fatalf("MappingFor() = %q, want new", a.Profiles.MappingFor("TFJ"))
		}
		time.Sleep(10 * time.Millisecond)
	}
}
