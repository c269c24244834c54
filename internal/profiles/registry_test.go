package profiles

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/joseph-ayodele/po-extractor/internal/entity"
)

const sample = `clients:
  - name: UNEEK
    description: Uneek Jewelry
    mapping: |
      StyleCode -> Item No.
      OrderQty -> Pieces
  - name: Aneri
    mapping: "StyleCode -> Vendor Style"
`

func writeProfiles(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadAndLookup(t *testing.T) {
	r, err := Load(writeProfiles(t, sample), nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	p, ok := r.Lookup("  uneek ")
	if !ok {
		t.Fatalf("Lookup() missed UNEEK")
	}
	if p.Description != "Uneek Jewelry" || p.Mapping != "StyleCode -> Item No.\nOrderQty -> Pieces" {
		t.Errorf("Lookup() = %+v", p)
	}
	if got := r.MappingFor("ANERI"); got != "StyleCode -> Vendor Style" {
		t.Errorf("MappingFor() = %q", got)
	}
	if got := r.MappingFor("nobody"); got != "" {
		t.Errorf("MappingFor(unknown) = %q, want empty", got)
	}
	if got := r.Names(); !reflect.DeepEqual(got, []string{"Aneri", "UNEEK"}) {
		t.Errorf("Names() = %v", got)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	r, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(r.Names()) != 0 {
		t.Errorf("Names() = %v, want empty", r.Names())
	}
}

func TestReloadKeepsPreviousOnError(t *testing.T) {
	path := writeProfiles(t, sample)
	r, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := os.WriteFile(path, []byte("clients: [{name: \"\"}]"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := r.Reload(); err == nil || !strings.Contains(err.Error(), "no name") {
		t.Fatalf("Reload() error = %v, want missing name", err)
	}
	if _, ok := r.Lookup("UNEEK"); !ok {
		t.Errorf("previous profiles dropped after failed reload")
	}

	if err := os.WriteFile(path, []byte("clients:\n  - name: TFJ\n    mapping: x\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := r.Names(); !reflect.DeepEqual(got, []string{"TFJ"}) {
		t.Errorf("Names() after reload = %v", got)
	}
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry([]entity.ClientProfile{{Name: "Amipi"}, {Name: "AMIPI"}}, nil)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("NewRegistry() error = %v, want duplicate", err)
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("clients: [")); err == nil {
		t.Fatal("Parse() error = nil, want decode error")
	}
}

func waitForMapping(t *testing.T, r *Registry, name, want string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if r.MappingFor(name) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("MappingFor(%q) = %q, want %q", name, r.MappingFor(name), want)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := writeProfiles(t, sample)
	r, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Watch(ctx, 20*time.Millisecond); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	updated := strings.Replace(sample, "StyleCode -> Vendor Style", "StyleCode -> Style #", 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	waitForMapping(t, r, "Aneri", "StyleCode -> Style #")
}

func TestWatchReloadsOnAtomicReplace(t *testing.T) {
	path := writeProfiles(t, sample)
	r, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Watch(ctx, 20*time.Millisecond); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	tmp := filepath.Join(filepath.Dir(path), ".profiles.yaml.tmp")
	if err := os.WriteFile(tmp, []byte("clients:\n  - name: Aneri\n    mapping: replaced\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	waitForMapping(t, r, "Aneri", "replaced")
	if _, ok := r.Lookup("UNEEK"); ok {
		t.Errorf("Lookup(UNEEK) found a profile removed by the replacement")
	}
}

func TestWatchKeepsProfilesOnBadEdit(t *testing.T) {
	path := writeProfiles(t, sample)
	r, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Watch(ctx, 20*time.Millisecond); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("clients: ["), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	if got := r.MappingFor("Aneri"); got != "StyleCode -> Vendor Style" {
		t.Fatalf("MappingFor() after bad edit = %q, want previous mapping", got)
	}

	if err := os.WriteFile(path, []byte("clients:\n  - name: Aneri\n    mapping: fixed\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	waitForMapping(t, r, "Aneri", "fixed")
}

func TestSetPathRetargetsWatch(t *testing.T) {
	r, err := Load(writeProfiles(t, sample), nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Watch(ctx, 20*time.Millisecond); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	next := writeProfiles(t, "clients:\n  - name: TFJ\n    mapping: first\n")
	if err := r.SetPath(next); err != nil {
		t.Fatalf("SetPath() error = %v", err)
	}
	if r.Path() != next {
		t.Errorf("Path() = %q, want %q", r.Path(), next)
	}
	if got := r.Names(); !reflect.DeepEqual(got, []string{"TFJ"}) {
		t.Fatalf("Names() after SetPath = %v", got)
	}

	if err := os.WriteFile(next, []byte("clients:\n  - name: TFJ\n    mapping: second\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	waitForMapping(t, r, "TFJ", "second")
}

func TestSetPathKeepsPreviousOnError(t *testing.T) {
	path := writeProfiles(t, sample)
	r, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := r.SetPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("SetPath() error = nil, want read error")
	}
	if r.Path() != path {
		t.Errorf("Path() = %q, want %q", r.Path(), path)
	}
	if _, ok := r.Lookup("UNEEK"); !ok {
		t.Errorf("previous profiles dropped after failed SetPath")
	}
}

func TestWatchWithoutPath(t *testing.T) {
	r, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := r.Watch(context.Background(), 0); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
}
