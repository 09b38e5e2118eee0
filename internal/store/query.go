package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/abramin/symgraph/internal/graph"
	"github.com/abramin/symgraph/internal/parse"
)

const symbolColumns = `id, name, kind, access, abstraction, is_static, is_const, type,
	scope_file, scope_start_line, scope_start_col, scope_end_line, scope_end_col`

const edgeColumns = `id, kind, source_name, source_tag, source_id, target_name, target_tag, target_id,
	site_file, site_start_line, site_start_col, site_end_line, site_end_col, access`

func scanSymbol(row rowScanner) (*graph.Symbol, error) {
	var (
		sym                 graph.Symbol
		kind, access, abstr string
	)
	dest := []any{&sym.ID, &sym.Name, &kind, &access, &abstr, &sym.Static, &sym.Const, &sym.Type}
	dest = append(dest, scanLocation(&sym.Scope)...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	sym.Kind = graph.SymbolKind(kind)
	var err error
	if sym.Access, err = parse.ParseAccessType(access); err != nil {
		return nil, err
	}
	if sym.Abstraction, err = parse.ParseAbstractionType(abstr); err != nil {
		return nil, err
	}
	return &sym, nil
}

func scanEdge(row rowScanner) (*graph.Edge, error) {
	var (
		e                                  graph.Edge
		kind, sourceTag, targetTag, access string
		sourceID, targetID                 sql.NullInt64
	)
	dest := []any{&e.ID, &kind, &e.Source.Name, &sourceTag, &sourceID, &e.Target.Name, &targetTag, &targetID}
	dest = append(dest, scanLocation(&e.Site)...)
	dest = append(dest, &access)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	e.Kind = graph.EdgeKind(kind)
	e.Source.Tag = graph.EndpointTag(sourceTag)
	e.Target.Tag = graph.EndpointTag(targetTag)
	e.Source.ID = graph.SymbolID(sourceID.Int64)
	e.Target.ID = graph.SymbolID(targetID.Int64)
	var err error
	if e.Access, err = parse.ParseAccessType(access); err != nil {
		return nil, err
	}
	return &e, nil
}

// loadDetails fills in the locations and signatures of sym.
func (s *Store) loadDetails(sym *graph.Symbol) error {
	rows, err := s.db.Query(`
		SELECT file, start_line, start_col, end_line, end_col
		FROM symbol_locations WHERE symbol_id = ?
		ORDER BY file, start_line, start_col, end_line, end_col
	`, sym.ID)
	if err != nil {
		return fmt.Errorf("querying locations: %w", err)
	}
	defer rows.Close()

	sym.Locations = []parse.Location{}
	for rows.Next() {
		var loc parse.Location
		if err := rows.Scan(scanLocation(&loc)...); err != nil {
			return fmt.Errorf("scanning location: %w", err)
		}
		sym.Locations = append(sym.Locations, loc)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	sigRows, err := s.db.Query(`
		SELECT signature FROM symbol_signatures WHERE symbol_id = ? ORDER BY signature
	`, sym.ID)
	if err != nil {
		return fmt.Errorf("querying signatures: %w", err)
	}
	defer sigRows.Close()

	for sigRows.Next() {
		var sig string
		if err := sigRows.Scan(&sig); err != nil {
			return fmt.Errorf("scanning signature: %w", err)
		}
		sym.Signatures = append(sym.Signatures, sig)
	}
	return sigRows.Err()
}

// GetSymbolByID returns a symbol with its locations and signatures.
func (s *Store) GetSymbolByID(id graph.SymbolID) (*graph.Symbol, error) {
	row := s.db.QueryRow("SELECT "+symbolColumns+" FROM symbols WHERE id = ?", id)
	sym, err := scanSymbol(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("symbol %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning symbol %d: %w", id, err)
	}
	if err := s.loadDetails(sym); err != nil {
		return nil, err
	}
	return sym, nil
}

func (s *Store) querySymbols(query string, args ...any) ([]graph.Symbol, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying symbols: %w", err)
	}

	var symbols []graph.Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning symbol: %w", err)
		}
		symbols = append(symbols, *sym)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	for i := range symbols {
		if err := s.loadDetails(&symbols[i]); err != nil {
			return nil, err
		}
	}
	return symbols, nil
}

// FindSymbols returns symbols with exactly this name. An empty kind matches
// every kind.
func (s *Store) FindSymbols(name, kind string) ([]graph.Symbol, error) {
	if kind == "" {
		return s.querySymbols("SELECT "+symbolColumns+" FROM symbols WHERE name = ? ORDER BY id", name)
	}
	return s.querySymbols("SELECT "+symbolColumns+" FROM symbols WHERE name = ? AND kind = ? ORDER BY id", name, kind)
}

// SearchSymbols returns symbols whose name contains query, shortest names first.
func (s *Store) SearchSymbols(query string, limit int) ([]graph.Symbol, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	pattern := "%" + escapeLike(query) + "%"
	return s.querySymbols(`
		SELECT `+symbolColumns+` FROM symbols
		WHERE name LIKE ? ESCAPE '\'
		ORDER BY length(name), id
		LIMIT ?
	`, pattern, limit)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *Store) queryEdges(query string, args ...any) ([]graph.Edge, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer rows.Close()

	var edges []graph.Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		edges = append(edges, *e)
	}
	return edges, rows.Err()
}

// GetCallers returns call edges whose target is id, from functions and
// variable initializers alike.
func (s *Store) GetCallers(id graph.SymbolID) ([]graph.Edge, error) {
	return s.queryEdges("SELECT "+edgeColumns+" FROM edges WHERE kind = ? AND target_id = ? ORDER BY id",
		string(graph.EdgeCall), id)
}

// GetCallees returns call edges whose source is id, resolved or not.
func (s *Store) GetCallees(id graph.SymbolID) ([]graph.Edge, error) {
	return s.queryEdges("SELECT "+edgeColumns+" FROM edges WHERE kind = ? AND source_id = ? ORDER BY id",
		string(graph.EdgeCall), id)
}

// GetDanglingEdges returns edges whose target was never declared.
func (s *Store) GetDanglingEdges(limit int) ([]graph.Edge, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return s.queryEdges("SELECT "+edgeColumns+" FROM edges WHERE dangling = 1 ORDER BY id LIMIT ?", limit)
}

// GetDiagnostics returns stored ingest diagnostics in insertion order.
func (s *Store) GetDiagnostics(limit int) ([]graph.Diagnostic, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.Query(`
		SELECT code, event, name, message, file, start_line, start_col, end_line, end_col
		FROM diagnostics ORDER BY id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying diagnostics: %w", err)
	}
	defer rows.Close()

	var diags []graph.Diagnostic
	for rows.Next() {
		var (
			d    graph.Diagnostic
			code string
		)
		dest := append([]any{&code, &d.Event, &d.Name, &d.Message}, scanLocation(&d.Location)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning diagnostic: %w", err)
		}
		d.Code = graph.DiagnosticCode(code)
		diags = append(diags, d)
	}
	return diags, rows.Err()
}
