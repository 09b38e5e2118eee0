package index

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/abramin/symgraph/internal/config"
)

// ErrNoEventLogs is returned when discovery finds nothing to index.
var ErrNoEventLogs = errors.New("no event logs found")

// Loader discovers the event logs of an indexing run. Each log holds the
// notifications of one translation unit.
type Loader struct {
	cfg        *config.Config
	projectDir string
	files      []string
}

// NewLoader creates a new event log loader rooted at projectDir.
func NewLoader(cfg *config.Config, projectDir string) *Loader {
	return &Loader{
		cfg:        cfg,
		projectDir: projectDir,
	}
}

// Load walks paths (files or directories, relative to the project directory
// unless absolute) and records every event log found. An explicitly named
// file is taken as-is; directory walks honor the configured exclusions.
func (l *Loader) Load(paths []string) error {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, p := range paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(l.projectDir, p)
		}
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			add(p)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && l.cfg.IsExcludedDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			rel, err := filepath.Rel(p, path)
			if err != nil {
				return err
			}
			if l.cfg.IsEventLog(rel) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("walking %s: %w", p, err)
		}
	}

	if len(files) == 0 {
		return ErrNoEventLogs
	}

	// Sorted order fixes the merge order, and with it every symbol id.
	sort.Strings(files)
	l.files = files
	return nil
}

// Files returns the discovered event logs in merge order.
func (l *Loader) Files() []string {
	return l.files
}

// RelPath returns file relative to the project directory when possible.
func (l *Loader) RelPath(file string) string {
	if rel, err := filepath.Rel(l.projectDir, file); err == nil {
		return rel
	}
	return file
}
