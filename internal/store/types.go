package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// DefaultLimit caps list queries when the caller passes no limit.
const DefaultLimit = 100

// Metadata keys written by an indexing run.
const (
	MetaIndexedAt  = "indexed_at"
	MetaProjectDir = "project_dir"
	MetaSessionID  = "session_id"
	MetaDuration   = "duration_ms"
	MetaEventLogs  = "event_logs"
)

// Stats holds statistics about the indexed data.
type Stats struct {
	SymbolCount     int            `json:"symbol_count"`
	EdgeCount       int            `json:"edge_count"`
	DanglingCount   int            `json:"dangling_count"`
	DiagnosticCount int            `json:"diagnostic_count"`
	SymbolsByKind   map[string]int `json:"symbols_by_kind"`
	EdgesByKind     map[string]int `json:"edges_by_kind"`
	SessionID       string         `json:"session_id,omitempty"`
	IndexedAt       time.Time      `json:"indexed_at"`
}

// IndexMetadata holds metadata written to index.json for quick UI boot.
type IndexMetadata struct {
	Version         string    `json:"version"`
	SessionID       string    `json:"session_id"`
	ProjectPath     string    `json:"project_path"`
	IndexedAt       time.Time `json:"indexed_at"`
	SymbolCount     int       `json:"symbol_count"`
	EdgeCount       int       `json:"edge_count"`
	DanglingCount   int       `json:"dangling_count"`
	DiagnosticCount int       `json:"diagnostic_count"`
	Files           []string  `json:"files"` // source files with at least one declaration
}
