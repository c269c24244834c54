package ingest

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/joseph-ayodele/po-extractor/constants"
	"github.com/joseph-ayodele/po-extractor/internal/entity"
)

// ResultPath is where the result for src is stored: "<file name>.po.json" beside it.
func ResultPath(src string) string {
	return src + constants.ResultSuffix
}

// IsProcessed reports whether a result exists for src that is not older than src.
func IsProcessed(src string) bool {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false
	}
	resInfo, err := os.Stat(ResultPath(src))
	if err != nil {
		return false
	}
	return !resInfo.ModTime().Before(srcInfo.ModTime())
}

// WriteResult stores res beside src, replacing any earlier result atomically.
func WriteResult(src string, res *entity.ExtractionResult) (string, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	dst := ResultPath(src)
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".po-result-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", err
	}
	return dst, nil
}

// ScanDir lists candidate files under root in lexical order. Processed files
// are skipped unless force is set.
func ScanDir(root string, force bool) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != root && isHidden(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !Candidate(path, constants.AllowedExtensions) {
			return nil
		}
		if !force && IsProcessed(path) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	sort.Strings(out)
	return out, err
}
