// Package profiles holds the per-client column mappings that steer extraction.
package profiles

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/po-extractor/internal/common"
	"github.com/joseph-ayodele/po-extractor/internal/entity"
)

type file struct {
	Clients []entity.ClientProfile `yaml:"clients"`
}

// Registry is a read-mostly set of client profiles keyed by case-insensitive name.
type Registry struct {
	mu      sync.RWMutex
	path    string
	byName  map[string]entity.ClientProfile
	logger  *slog.Logger
	watcher *fsnotify.Watcher
}

// Load reads the profiles file at path. An empty path yields an empty registry.
func Load(path string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{path: path, byName: map[string]entity.ClientProfile{}, logger: logger}
	if path == "" {
		return r, nil
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewRegistry builds a registry from in-memory profiles.
func NewRegistry(list []entity.ClientProfile, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	byName, err := index(list)
	if err != nil {
		return nil, err
	}
	return &Registry{byName: byName, logger: logger}, nil
}

// Parse decodes a profiles document.
func Parse(data []byte) ([]entity.ClientProfile, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, common.NewAppError("PROFILES_ERROR", "decoding client profiles", err)
	}
	return f.Clients, nil
}

// Reload re-reads the file. On error the previous profiles stay in place.
func (r *Registry) Reload() error {
	path := r.Path()
	if path == "" {
		return nil
	}
	byName, err := readFile(path)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.byName = byName
	r.mu.Unlock()
	r.logger.Info("profiles.loaded", "path", path, "count", len(byName))
	return nil
}

// SetPath switches the registry to another profiles file. The switch only
// happens when the new file loads; an empty path clears the registry.
func (r *Registry) SetPath(path string) error {
	byName := map[string]entity.ClientProfile{}
	if path != "" {
		var err error
		if byName, err = readFile(path); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.path = path
	r.byName = byName
	w := r.watcher
	r.mu.Unlock()

	if w != nil && path != "" {
		if err := w.Add(filepath.Dir(path)); err != nil {
			r.logger.Warn("profiles.watch.add_failed", "path", path, "error", err)
		}
	}
	r.logger.Info("profiles.loaded", "path", path, "count", len(byName))
	return nil
}

func readFile(path string) (map[string]entity.ClientProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewAppError("PROFILES_ERROR", "reading "+path, err)
	}
	list, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return index(list)
}

func index(list []entity.ClientProfile) (map[string]entity.ClientProfile, error) {
	byName := make(map[string]entity.ClientProfile, len(list))
	for i, p := range list {
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return nil, common.NewAppError("PROFILES_ERROR", fmt.Sprintf("profile %d has no name", i), common.ErrInvalidInput)
		}
		key := strings.ToLower(p.Name)
		if _, dup := byName[key]; dup {
			return nil, common.NewAppError("PROFILES_ERROR", fmt.Sprintf("duplicate profile %q", p.Name), common.ErrInvalidInput)
		}
		p.Mapping = strings.TrimSpace(p.Mapping)
		byName[key] = p
	}
	return byName, nil
}

// Lookup finds a profile by name, ignoring case and surrounding space.
func (r *Registry) Lookup(name string) (entity.ClientProfile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// MappingFor returns the mapping text for name, or "" when unknown.
func (r *Registry) MappingFor(name string) string {
	if name == "" {
		return ""
	}
	p, ok := r.Lookup(name)
	if !ok {
		r.logger.Debug("profiles.miss", "client", name)
		return ""
	}
	return p.Mapping
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for _, p := range r.byName {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Path() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.path
}
