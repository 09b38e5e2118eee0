package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abramin/symgraph/internal/graph"
	"github.com/abramin/symgraph/internal/parse"
)

// Store handles persistence of finalized graphs to SQLite.
type Store struct {
	db      *sql.DB
	dbPath  string
	dataDir string
}

// Open creates or opens the index database at <dataDir>/index.db.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "index.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000", // 64MB cache
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{
		db:      db,
		dbPath:  dbPath,
		dataDir: dataDir,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DBPath returns the path to the database file.
func (s *Store) DBPath() string {
	return s.dbPath
}

// graphTables lists the tables a saved graph occupies, children first.
var graphTables = []string{"diagnostics", "edges", "symbol_signatures", "symbol_locations", "symbols"}

// Clear removes all data from the database, metadata included.
func (s *Store) Clear() error {
	for _, table := range append(graphTables, "metadata") {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing table %s: %w", table, err)
		}
	}
	return nil
}

// SaveGraph replaces the stored graph with g in one transaction. On failure
// the previous graph is left intact. Metadata is not touched.
func (s *Store) SaveGraph(g *graph.Graph) (err error) {
	batch, err := s.BeginBatch()
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() {
		if err != nil {
			batch.Rollback()
		}
	}()

	if err := batch.deleteGraph(); err != nil {
		return err
	}
	for _, sym := range g.Symbols() {
		if err := batch.InsertSymbol(&sym); err != nil {
			return fmt.Errorf("inserting symbol %s: %w", sym.Name, err)
		}
	}
	for _, edge := range g.Edges() {
		if err := batch.InsertEdge(&edge); err != nil {
			return fmt.Errorf("inserting edge %d: %w", edge.ID, err)
		}
	}
	for _, d := range g.Diagnostics() {
		if err := batch.InsertDiagnostic(&d); err != nil {
			return fmt.Errorf("inserting diagnostic: %w", err)
		}
	}
	return batch.Commit()
}

// SetMetadata stores a key-value pair in the metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// GetMetadata retrieves a value from the metadata table.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("metadata %q: %w", key, ErrNotFound)
	}
	return value, err
}

// GetStats returns statistics about the indexed data.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{
		SymbolsByKind: make(map[string]int),
		EdgesByKind:   make(map[string]int),
	}

	rows := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM symbols", &stats.SymbolCount},
		{"SELECT COUNT(*) FROM edges", &stats.EdgeCount},
		{"SELECT COUNT(*) FROM edges WHERE dangling = 1", &stats.DanglingCount},
		{"SELECT COUNT(*) FROM diagnostics", &stats.DiagnosticCount},
	}
	for _, r := range rows {
		if err := s.db.QueryRow(r.query).Scan(r.dest); err != nil {
			return nil, fmt.Errorf("counting (%s): %w", r.query, err)
		}
	}

	groups := []struct {
		table string
		dest  map[string]int
	}{
		{"symbols", stats.SymbolsByKind},
		{"edges", stats.EdgesByKind},
	}
	for _, grp := range groups {
		if err := s.countByKind(grp.table, grp.dest); err != nil {
			return nil, err
		}
	}

	if ts, err := s.GetMetadata(MetaIndexedAt); err == nil {
		stats.IndexedAt, _ = time.Parse(time.RFC3339, ts)
	}
	if id, err := s.GetMetadata(MetaSessionID); err == nil {
		stats.SessionID = id
	}

	return stats, nil
}

func (s *Store) countByKind(table string, dest map[string]int) error {
	rows, err := s.db.Query("SELECT kind, COUNT(*) FROM " + table + " GROUP BY kind")
	if err != nil {
		return fmt.Errorf("counting %s by kind: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return fmt.Errorf("scanning %s count: %w", table, err)
		}
		dest[kind] = n
	}
	return rows.Err()
}

// WriteIndexJSON writes index.json next to the database for quick UI boot.
func (s *Store) WriteIndexJSON() error {
	stats, err := s.GetStats()
	if err != nil {
		return fmt.Errorf("getting stats: %w", err)
	}

	rows, err := s.db.Query("SELECT DISTINCT file FROM symbol_locations ORDER BY file")
	if err != nil {
		return fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	files := []string{}
	for rows.Next() {
		var file string
		if err := rows.Scan(&file); err != nil {
			return fmt.Errorf("scanning file: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating files: %w", err)
	}

	projectPath, _ := s.GetMetadata(MetaProjectDir)
	meta := &IndexMetadata{
		Version:         "1",
		SessionID:       stats.SessionID,
		ProjectPath:     projectPath,
		IndexedAt:       stats.IndexedAt,
		SymbolCount:     stats.SymbolCount,
		EdgeCount:       stats.EdgeCount,
		DanglingCount:   stats.DanglingCount,
		DiagnosticCount: stats.DiagnosticCount,
		Files:           files,
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index.json: %w", err)
	}

	indexPath := filepath.Join(s.dataDir, "index.json")
	if err := os.WriteFile(indexPath, data, 0644); err != nil {
		return fmt.Errorf("writing index.json: %w", err)
	}

	return nil
}

// BeginBatch starts a transaction for batch inserts.
// Call Commit() when done, or Rollback() on error.
func (s *Store) BeginBatch() (*BatchTx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	return &BatchTx{tx: tx}, nil
}

// BatchTx wraps a transaction for batch operations.
type BatchTx struct {
	tx *sql.Tx
}

// Commit commits the batch transaction.
func (b *BatchTx) Commit() error {
	return b.tx.Commit()
}

// Rollback rolls back the batch transaction.
func (b *BatchTx) Rollback() error {
	return b.tx.Rollback()
}

func (b *BatchTx) deleteGraph() error {
	for _, table := range graphTables {
		if _, err := b.tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing table %s: %w", table, err)
		}
	}
	return nil
}

// InsertSymbol inserts a symbol with its locations and signatures.
func (b *BatchTx) InsertSymbol(sym *graph.Symbol) error {
	_, err := b.tx.Exec(`
		INSERT INTO symbols (id, name, kind, access, abstraction, is_static, is_const, type,
			scope_file, scope_start_line, scope_start_col, scope_end_line, scope_end_col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sym.ID, sym.Name, string(sym.Kind), sym.Access.String(), sym.Abstraction.String(),
		sym.Static, sym.Const, sym.Type,
		sym.Scope.File, sym.Scope.StartLine, sym.Scope.StartColumn, sym.Scope.EndLine, sym.Scope.EndColumn)
	if err != nil {
		return err
	}

	for _, loc := range sym.Locations {
		if _, err := b.tx.Exec(`
			INSERT INTO symbol_locations (symbol_id, file, start_line, start_col, end_line, end_col)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, sym.ID, loc.File, loc.StartLine, loc.StartColumn, loc.EndLine, loc.EndColumn); err != nil {
			return fmt.Errorf("location %s: %w", loc, err)
		}
	}
	for _, sig := range sym.Signatures {
		if _, err := b.tx.Exec(`
			INSERT INTO symbol_signatures (symbol_id, signature)
			VALUES (?, ?)
			ON CONFLICT DO NOTHING
		`, sym.ID, sig); err != nil {
			return fmt.Errorf("signature %q: %w", sig, err)
		}
	}
	return nil
}

// InsertEdge inserts an edge. Unresolved endpoints are stored as NULL ids.
func (b *BatchTx) InsertEdge(e *graph.Edge) error {
	_, err := b.tx.Exec(`
		INSERT INTO edges (id, kind, source_name, source_tag, source_id, target_name, target_tag, target_id,
			site_file, site_start_line, site_start_col, site_end_line, site_end_col, access, dangling)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, string(e.Kind),
		e.Source.Name, string(e.Source.Tag), nullableID(e.Source.ID),
		e.Target.Name, string(e.Target.Tag), nullableID(e.Target.ID),
		e.Site.File, e.Site.StartLine, e.Site.StartColumn, e.Site.EndLine, e.Site.EndColumn,
		e.Access.String(), e.Dangling())
	return err
}

// InsertDiagnostic inserts an ingest diagnostic.
func (b *BatchTx) InsertDiagnostic(d *graph.Diagnostic) error {
	_, err := b.tx.Exec(`
		INSERT INTO diagnostics (code, event, name, message, file, start_line, start_col, end_line, end_col)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, string(d.Code), d.Event, d.Name, d.Message,
		d.Location.File, d.Location.StartLine, d.Location.StartColumn, d.Location.EndLine, d.Location.EndColumn)
	return err
}

func nullableID(id graph.SymbolID) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(id), Valid: id != 0}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(dst *parse.Location) []any {
	return []any{&dst.File, &dst.StartLine, &dst.StartColumn, &dst.EndLine, &dst.EndColumn}
}
