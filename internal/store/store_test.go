package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/abramin/symgraph/internal/graph"
	"github.com/abramin/symgraph/internal/parse"
)

func loc(line int) parse.Location {
	return parse.Location{File: "widget.h", StartLine: line, StartColumn: 1, EndLine: line, EndColumn: 12}
}

// buildGraph returns a small graph with one resolved call, one variable
// initializer call, one dangling call and one malformed event.
func buildGraph() *graph.Graph {
	b := graph.NewBuilder()
	b.OnClassParsed(loc(1), "ui::Widget", parse.AccessNone, parse.Location{File: "widget.h", StartLine: 1, EndLine: 30, EndColumn: 2})
	b.OnMethodParsed(loc(3), parse.Function{Name: "ui::Widget::draw", ReturnType: parse.TypeUsage{Type: "void"}, Const: true},
		parse.AccessPublic, parse.AbstractionVirtual, parse.Location{})
	b.OnMethodParsed(loc(9), parse.Function{Name: "ui::Widget::draw", ReturnType: parse.TypeUsage{Type: "void"}},
		parse.AccessPublic, parse.AbstractionVirtual, parse.Location{})
	b.OnMethodParsed(loc(4), parse.Function{Name: "ui::Widget::paint", ReturnType: parse.TypeUsage{Type: "void"}},
		parse.AccessProtected, parse.AbstractionNone, parse.Location{})
	b.OnFieldParsed(loc(5), parse.Variable{Name: "ui::Widget::painter", Type: parse.TypeUsage{Type: "Painter"}, Static: true}, parse.AccessPrivate)
	b.OnCallParsed(loc(6), parse.FunctionCaller(parse.Function{Name: "ui::Widget::draw"}), parse.Function{Name: "ui::Widget::paint"})
	b.OnCallParsed(loc(5), parse.VariableCaller(parse.Variable{Name: "ui::Widget::painter"}), parse.Function{Name: "ui::Widget::paint"})
	b.OnCallParsed(loc(7), parse.FunctionCaller(parse.Function{Name: "ui::Widget::paint"}), parse.Function{Name: "gl::flush"})
	b.OnClassParsed(loc(40), "", parse.AccessNone, parse.Location{})
	return b.Finalize()
}

func setupTestStore(t *testing.T) (*Store, *graph.Graph) {
	t.Helper()

	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	g := buildGraph()
	if err := st.SaveGraph(g); err != nil {
		t.Fatalf("failed to save graph: %v", err)
	}
	return st, g
}

func TestOpenAndClose(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), ".symgraph")

	st, err := Open(dataDir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Error("data directory was not created")
	}
	if _, err := os.Stat(filepath.Join(dataDir, "index.db")); os.IsNotExist(err) {
		t.Error("index.db was not created")
	}
	if st.DBPath() != filepath.Join(dataDir, "index.db") {
		t.Errorf("unexpected db path %q", st.DBPath())
	}

	if err := st.Close(); err != nil {
		t.Errorf("failed to close store: %v", err)
	}
}

func TestSaveGraphStats(t *testing.T) {
	st, g := setupTestStore(t)

	stats, err := st.GetStats()
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}

	want := g.Stats()
	if stats.SymbolCount != want.Symbols {
		t.Errorf("expected %d symbols, got %d", want.Symbols, stats.SymbolCount)
	}
	if stats.EdgeCount != want.Edges {
		t.Errorf("expected %d edges, got %d", want.Edges, stats.EdgeCount)
	}
	if stats.DanglingCount != 1 {
		t.Errorf("expected 1 dangling edge, got %d", stats.DanglingCount)
	}
	if stats.DiagnosticCount != 1 {
		t.Errorf("expected 1 diagnostic, got %d", stats.DiagnosticCount)
	}
	if stats.SymbolsByKind["method"] != 2 {
		t.Errorf("expected 2 methods, got %d", stats.SymbolsByKind["method"])
	}
	if stats.EdgesByKind["call"] != 3 {
		t.Errorf("expected 3 call edges, got %d", stats.EdgesByKind["call"])
	}
}

func TestSymbolRoundTrip(t *testing.T) {
	st, g := setupTestStore(t)

	for _, want := range g.Symbols() {
		got, err := st.GetSymbolByID(want.ID)
		if err != nil {
			t.Fatalf("GetSymbolByID(%d): %v", want.ID, err)
		}
		if !reflect.DeepEqual(*got, want) {
			t.Errorf("symbol %d mismatch:\n got %+v\nwant %+v", want.ID, *got, want)
		}
	}

	_, err := st.GetSymbolByID(999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFindAndSearchSymbols(t *testing.T) {
	st, _ := setupTestStore(t)

	found, err := st.FindSymbols("ui::Widget::draw", "")
	if err != nil {
		t.Fatalf("FindSymbols: %v", err)
	}
	if len(found) != 1 || len(found[0].Signatures) != 2 {
		t.Fatalf("expected one draw symbol with 2 signatures, got %+v", found)
	}

	found, err = st.FindSymbols("ui::Widget::draw", "field")
	if err != nil {
		t.Fatalf("FindSymbols: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("expected no field named draw, got %d", len(found))
	}

	results, err := st.SearchSymbols("Widget::", 10)
	if err != nil {
		t.Fatalf("SearchSymbols: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 members, got %d", len(results))
	}
	if results[0].Name != "ui::Widget::draw" {
		t.Errorf("expected shortest name first, got %s", results[0].Name)
	}

	results, err = st.SearchSymbols("%", 10)
	if err != nil {
		t.Fatalf("SearchSymbols: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected literal %% to match nothing, got %d", len(results))
	}
}

func TestCallersAndCallees(t *testing.T) {
	st, g := setupTestStore(t)

	paint, _ := g.Lookup("ui::Widget::paint", graph.KindMethod)
	painter, _ := g.Lookup("ui::Widget::painter", graph.KindField)

	callers, err := st.GetCallers(paint.ID)
	if err != nil {
		t.Fatalf("GetCallers: %v", err)
	}
	if len(callers) != 2 {
		t.Fatalf("expected 2 callers, got %d", len(callers))
	}
	if !reflect.DeepEqual(callers, g.Callers(paint.ID)) {
		t.Errorf("stored callers differ from graph:\n got %+v\nwant %+v", callers, g.Callers(paint.ID))
	}
	if callers[1].Source.ID != painter.ID || callers[1].Source.Tag != graph.TagVariable {
		t.Errorf("expected variable caller, got %+v", callers[1].Source)
	}

	callees, err := st.GetCallees(paint.ID)
	if err != nil {
		t.Fatalf("GetCallees: %v", err)
	}
	if len(callees) != 1 || !callees[0].Dangling() {
		t.Errorf("expected one dangling callee, got %+v", callees)
	}
}

func TestDanglingEdgesAndDiagnostics(t *testing.T) {
	st, g := setupTestStore(t)

	dangling, err := st.GetDanglingEdges(0)
	if err != nil {
		t.Fatalf("GetDanglingEdges: %v", err)
	}
	if !reflect.DeepEqual(dangling, g.DanglingEdges()) {
		t.Errorf("dangling mismatch:\n got %+v\nwant %+v", dangling, g.DanglingEdges())
	}

	diags, err := st.GetDiagnostics(10)
	if err != nil {
		t.Fatalf("GetDiagnostics: %v", err)
	}
	if !reflect.DeepEqual(diags, g.Diagnostics()) {
		t.Errorf("diagnostics mismatch:\n got %+v\nwant %+v", diags, g.Diagnostics())
	}
}

func TestClear(t *testing.T) {
	st, _ := setupTestStore(t)

	if err := st.SetMetadata(MetaSessionID, "abc"); err != nil {
		t.Fatalf("failed to set metadata: %v", err)
	}
	if err := st.Clear(); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}

	stats, err := st.GetStats()
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	if stats.SymbolCount != 0 || stats.EdgeCount != 0 || stats.DiagnosticCount != 0 {
		t.Errorf("expected empty store, got %+v", stats)
	}
	if stats.SessionID != "" {
		t.Errorf("expected metadata cleared, got session %q", stats.SessionID)
	}

	// A fresh graph saves cleanly after a clear.
	if err := st.SaveGraph(buildGraph()); err != nil {
		t.Fatalf("failed to save after clear: %v", err)
	}
}

func TestSaveGraphReplacesPrevious(t *testing.T) {
	st, g := setupTestStore(t)

	if err := st.SaveGraph(buildGraph()); err != nil {
		t.Fatalf("failed to save graph again: %v", err)
	}

	stats, err := st.GetStats()
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	if stats.SymbolCount != g.Stats().Symbols || stats.DiagnosticCount != 1 {
		t.Errorf("expected graph replaced, not appended, got %+v", stats)
	}
}

func TestSaveGraphKeepsPreviousOnFailure(t *testing.T) {
	st, _ := setupTestStore(t)

	if err := st.SetMetadata(MetaSessionID, "first"); err != nil {
		t.Fatalf("failed to set metadata: %v", err)
	}
	// Fail the save after the old rows were deleted inside the transaction.
	if _, err := st.db.Exec(`
		CREATE TRIGGER reject_diagnostics BEFORE INSERT ON diagnostics
		BEGIN SELECT RAISE(ABORT, 'rejected'); END
	`); err != nil {
		t.Fatalf("failed to create trigger: %v", err)
	}

	if err := st.SaveGraph(buildGraph()); err == nil {
		t.Fatal("expected save to fail")
	}

	stats, err := st.GetStats()
	if err != nil {
		t.Fatalf("failed to get stats: %v", err)
	}
	if stats.SymbolCount != 4 || stats.EdgeCount != 3 || stats.DiagnosticCount != 1 {
		t.Errorf("expected original graph after rollback, got %+v", stats)
	}
	if stats.SessionID != "first" {
		t.Errorf("expected metadata untouched, got session %q", stats.SessionID)
	}
}

func TestMetadata(t *testing.T) {
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	if err := st.SetMetadata("version", "1.0"); err != nil {
		t.Fatalf("failed to set metadata: %v", err)
	}
	if err := st.SetMetadata("version", "2.0"); err != nil {
		t.Fatalf("failed to update metadata: %v", err)
	}

	val, err := st.GetMetadata("version")
	if err != nil {
		t.Fatalf("failed to get metadata: %v", err)
	}
	if val != "2.0" {
		t.Errorf("expected '2.0', got '%s'", val)
	}

	if _, err := st.GetMetadata("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWriteIndexJSON(t *testing.T) {
	st, _ := setupTestStore(t)

	if err := st.SetMetadata(MetaIndexedAt, "2024-01-01T00:00:00Z"); err != nil {
		t.Fatalf("failed to set metadata: %v", err)
	}
	if err := st.SetMetadata(MetaSessionID, "session-1"); err != nil {
		t.Fatalf("failed to set metadata: %v", err)
	}

	if err := st.WriteIndexJSON(); err != nil {
		t.Fatalf("failed to write index.json: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(filepath.Dir(st.DBPath()), "index.json"))
	if err != nil {
		t.Fatalf("index.json was not created: %v", err)
	}

	var meta IndexMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		t.Fatalf("invalid index.json: %v", err)
	}
	if meta.SessionID != "session-1" || meta.SymbolCount != 4 || meta.DanglingCount != 1 {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if !reflect.DeepEqual(meta.Files, []string{"widget.h"}) {
		t.Errorf("expected widget.h, got %v", meta.Files)
	}
	if meta.IndexedAt.Year() != 2024 {
		t.Errorf("expected indexed_at to round-trip, got %v", meta.IndexedAt)
	}
}
