package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up when no path is given.
const FileName = "symgraph.yaml"

// Config represents the symgraph configuration.
type Config struct {
	Index  IndexConfig  `yaml:"index"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
	Trace  TraceConfig  `yaml:"trace"`
}

// IndexConfig controls event log discovery and graph building.
type IndexConfig struct {
	DataDir        string        `yaml:"data_dir"`
	Workers        int           `yaml:"workers"`
	EventsGlob     []string      `yaml:"events_glob"`
	Exclude        ExcludeConfig `yaml:"exclude"`
	// MaxDiagnostics caps retained diagnostics per builder. Zero in a config
	// file means "keep the default"; any negative value disables the cap.
	MaxDiagnostics int `yaml:"max_diagnostics"`
}

// ExcludeConfig defines patterns to exclude from indexing.
type ExcludeConfig struct {
	Dirs      []string `yaml:"dirs"`
	FilesGlob []string `yaml:"files_glob"`
}

// LogConfig selects log level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig configures the inspection API.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// TraceConfig enables span export. Output is a file path; empty or "stderr"
// writes to standard error.
type TraceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Output  string `yaml:"output"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Index: IndexConfig{
			DataDir:    ".symgraph",
			Workers:    runtime.NumCPU(),
			EventsGlob: []string{"*.jsonl"},
			Exclude: ExcludeConfig{
				Dirs:      []string{".git", ".symgraph", "node_modules", "third_party"},
				FilesGlob: []string{"**/*.tmp.jsonl"},
			},
			MaxDiagnostics: 10000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}
}

// Load reads configuration from file, falling back to defaults.
// If configPath is empty, it looks for symgraph.yaml in the current directory.
// Fields present in the file replace the defaults; absent fields keep them.
func Load(configPath string) (*Config, error) {
	defaults := Default()

	if configPath == "" {
		configPath = FileName
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaults, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", configPath, err)
	}

	defaults.Merge(&fileCfg)
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", configPath, err)
	}
	return defaults, nil
}

// LoadFromDir loads configuration from the specified directory.
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, FileName))
}

// Merge combines another config into this one, with other taking precedence.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Index.DataDir != "" {
		c.Index.DataDir = other.Index.DataDir
	}
	if other.Index.Workers != 0 {
		c.Index.Workers = other.Index.Workers
	}
	if len(other.Index.EventsGlob) > 0 {
		c.Index.EventsGlob = other.Index.EventsGlob
	}
	if len(other.Index.Exclude.Dirs) > 0 {
		c.Index.Exclude.Dirs = other.Index.Exclude.Dirs
	}
	if len(other.Index.Exclude.FilesGlob) > 0 {
		c.Index.Exclude.FilesGlob = other.Index.Exclude.FilesGlob
	}
	if other.Index.MaxDiagnostics != 0 {
		c.Index.MaxDiagnostics = other.Index.MaxDiagnostics
	}
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Trace.Enabled {
		c.Trace.Enabled = true
	}
	if other.Trace.Output != "" {
		c.Trace.Output = other.Trace.Output
	}
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if c.Index.Workers < 1 {
		return fmt.Errorf("index.workers must be positive, got %d", c.Index.Workers)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// DataDirFor resolves the data directory against a project root.
func (c *Config) DataDirFor(root string) string {
	if filepath.IsAbs(c.Index.DataDir) {
		return c.Index.DataDir
	}
	return filepath.Join(root, c.Index.DataDir)
}

// IsExcludedDir checks if a directory should be excluded from indexing.
func (c *Config) IsExcludedDir(dir string) bool {
	base := filepath.Base(dir)
	for _, excluded := range c.Index.Exclude.Dirs {
		if base == excluded {
			return true
		}
	}
	return false
}

// IsEventLog reports whether relPath names an event log to ingest: its base
// name matches one of the events globs and no exclude glob matches the path.
func (c *Config) IsEventLog(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	base := filepath.Base(relPath)

	included := false
	for _, pattern := range c.Index.EventsGlob {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			included = true
			break
		}
	}
	if !included {
		return false
	}

	for _, pattern := range c.Index.Exclude.FilesGlob {
		if MatchPattern(pattern, relPath) {
			return false
		}
	}
	return true
}

// MatchPattern matches a slash-separated path against a glob.
// Supports ** for matching any number of path components.
// Example: "**/gen/**" matches "out/gen/unit.jsonl", "**/*.tmp.jsonl"
// matches "a/b/x.tmp.jsonl".
func MatchPattern(pattern, path string) bool {
	if strings.HasPrefix(pattern, "**/") {
		rest := pattern[3:]
		if strings.HasSuffix(rest, "/**") {
			middle := "/" + rest[:len(rest)-3] + "/"
			return strings.Contains("/"+path, middle)
		}
		if ok, err := filepath.Match(rest, filepath.Base(path)); err == nil && ok {
			return true
		}
		return false
	}

	matched, err := filepath.Match(pattern, path)
	return err == nil && matched
}
