package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/abramin/symgraph/internal/graph"
	"github.com/abramin/symgraph/internal/logging"
	"github.com/abramin/symgraph/internal/parse"
	"github.com/abramin/symgraph/internal/store"
)

func loc(line int) parse.Location {
	return parse.Location{File: "widget.cpp", StartLine: line, StartColumn: 1, EndLine: line, EndColumn: 20}
}

type fixture struct {
	srv   *Server
	graph *graph.Graph
}

func (f fixture) id(t *testing.T, name string, kind graph.SymbolKind) graph.SymbolID {
	t.Helper()
	sym, ok := f.graph.Lookup(name, kind)
	if !ok {
		t.Fatalf("symbol %s (%s) not in graph", name, kind)
	}
	return sym.ID
}

func setupTestServer(t *testing.T) fixture {
	t.Helper()

	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	b := graph.NewBuilder()
	b.OnClassParsed(loc(1), "Widget", parse.AccessNone, parse.Location{})
	b.OnMethodParsed(loc(3), parse.Function{Name: "Widget::draw", ReturnType: parse.TypeUsage{Type: "void"}},
		parse.AccessPublic, parse.AbstractionVirtual, parse.Location{})
	b.OnMethodParsed(loc(4), parse.Function{Name: "Widget::paint", ReturnType: parse.TypeUsage{Type: "void"}},
		parse.AccessProtected, parse.AbstractionNone, parse.Location{})
	b.OnFunctionParsed(loc(20), parse.Function{Name: "render"}, parse.Location{})
	b.OnCallParsed(loc(21), parse.FunctionCaller(parse.Function{Name: "render"}), parse.Function{Name: "Widget::draw"})
	b.OnCallParsed(loc(6), parse.FunctionCaller(parse.Function{Name: "Widget::draw"}), parse.Function{Name: "Widget::paint"})
	b.OnCallParsed(loc(7), parse.FunctionCaller(parse.Function{Name: "Widget::paint"}), parse.Function{Name: "gl::flush"})
	b.OnCallParsed(loc(8), parse.FunctionCaller(parse.Function{Name: "Widget::paint"}), parse.Function{Name: "render"})
	b.OnStructParsed(loc(30), "", parse.AccessNone, parse.Location{})
	g := b.Finalize()

	if err := st.SaveGraph(g); err != nil {
		t.Fatalf("failed to save graph: %v", err)
	}
	return fixture{srv: newServer(st, Config{Port: 8080}), graph: g}
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestHandleHealth(t *testing.T) {
	f := setupTestServer(t)

	w := get(t, f.srv, "/api/health")
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	decode(t, w, &resp)
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got '%s'", resp["status"])
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS header")
	}
}

func TestHandleStats(t *testing.T) {
	f := setupTestServer(t)

	w := get(t, f.srv, "/api/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var stats store.Stats
	decode(t, w, &stats)
	if stats.SymbolCount != 4 {
		t.Errorf("expected 4 symbols, got %d", stats.SymbolCount)
	}
	if stats.EdgeCount != 4 {
		t.Errorf("expected 4 edges, got %d", stats.EdgeCount)
	}
	if stats.DanglingCount != 1 {
		t.Errorf("expected 1 dangling edge, got %d", stats.DanglingCount)
	}
	if stats.DiagnosticCount != 1 {
		t.Errorf("expected 1 diagnostic, got %d", stats.DiagnosticCount)
	}
}

func TestHandleSearch(t *testing.T) {
	f := setupTestServer(t)

	w := get(t, f.srv, "/api/search?query=Widget::&limit=1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var results []graph.Symbol
	decode(t, w, &results)
	if len(results) != 1 {
		t.Errorf("expected limit to cap results at 1, got %d", len(results))
	}

	w = get(t, f.srv, "/api/search")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 without query, got %d", w.Code)
	}
}

func TestHandleSymbol(t *testing.T) {
	f := setupTestServer(t)
	draw := f.id(t, "Widget::draw", graph.KindMethod)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"existing symbol", "/api/symbols/" + itoa(draw), http.StatusOK},
		{"unknown id", "/api/symbols/999", http.StatusNotFound},
		{"malformed id", "/api/symbols/abc", http.StatusBadRequest},
		{"zero id", "/api/symbols/0", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, f.srv, tt.path)
			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
		})
	}

	w := get(t, f.srv, "/api/symbols/"+itoa(draw))
	var sym graph.Symbol
	decode(t, w, &sym)
	if sym.Name != "Widget::draw" || sym.Access != parse.AccessPublic {
		t.Errorf("unexpected symbol %+v", sym)
	}
}

func TestHandleCallersAndCallees(t *testing.T) {
	f := setupTestServer(t)
	paint := f.id(t, "Widget::paint", graph.KindMethod)
	draw := f.id(t, "Widget::draw", graph.KindMethod)

	w := get(t, f.srv, "/api/symbols/"+itoa(paint)+"/callers")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var callers []graph.Edge
	decode(t, w, &callers)
	if len(callers) != 1 || callers[0].Source.ID != draw {
		t.Errorf("expected draw as sole caller, got %+v", callers)
	}

	w = get(t, f.srv, "/api/symbols/"+itoa(paint)+"/callees")
	var callees []graph.Edge
	decode(t, w, &callees)
	if len(callees) != 2 {
		t.Fatalf("expected 2 callees, got %d", len(callees))
	}
	dangling := 0
	for _, e := range callees {
		if e.Dangling() {
			dangling++
			if e.Target.Name != "gl::flush" {
				t.Errorf("unexpected dangling target %q", e.Target.Name)
			}
		}
	}
	if dangling != 1 {
		t.Errorf("expected 1 dangling callee, got %d", dangling)
	}

	w = get(t, f.srv, "/api/symbols/999/callees")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestHandleGraph(t *testing.T) {
	f := setupTestServer(t)
	render := f.id(t, "render", graph.KindFunction)

	w := get(t, f.srv, "/api/graph/"+itoa(render)+"?depth=10")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp GraphResponse
	decode(t, w, &resp)
	if resp.RootID != render {
		t.Errorf("expected root %d, got %d", render, resp.RootID)
	}
	if resp.MaxDepth != MaxGraphDepth {
		t.Errorf("expected depth clamped to %d, got %d", MaxGraphDepth, resp.MaxDepth)
	}
	// render -> draw -> paint -> {gl::flush, render}; the cycle back to render
	// adds an edge but no node.
	if len(resp.Nodes) != 3 {
		t.Errorf("expected 3 nodes, got %d", len(resp.Nodes))
	}
	if len(resp.Edges) != 4 {
		t.Errorf("expected 4 edges, got %d", len(resp.Edges))
	}
	if resp.Dangling != 1 {
		t.Errorf("expected 1 dangling edge, got %d", resp.Dangling)
	}

	w = get(t, f.srv, "/api/graph/"+itoa(render)+"?depth=1")
	decode(t, w, &resp)
	if len(resp.Nodes) != 2 || len(resp.Edges) != 1 {
		t.Errorf("depth 1: expected 2 nodes and 1 edge, got %d and %d", len(resp.Nodes), len(resp.Edges))
	}

	w = get(t, f.srv, "/api/graph/999")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestHandleDanglingAndDiagnostics(t *testing.T) {
	f := setupTestServer(t)

	w := get(t, f.srv, "/api/dangling")
	var dangling []graph.Edge
	decode(t, w, &dangling)
	if len(dangling) != 1 || dangling[0].Target.Name != "gl::flush" {
		t.Errorf("unexpected dangling edges %+v", dangling)
	}

	w = get(t, f.srv, "/api/diagnostics?limit=5")
	var diags []graph.Diagnostic
	decode(t, w, &diags)
	if len(diags) != 1 {
		t.Errorf("expected 1 diagnostic, got %d", len(diags))
	}
}

func TestMetricsEndpointReflectsStoredGraph(t *testing.T) {
	f := setupTestServer(t)
	get(t, f.srv, "/api/health")
	get(t, f.srv, "/api/symbols/999")

	w := get(t, f.srv, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"symgraph_graph_dangling_edges 1",
		`symgraph_graph_symbols{kind="method"} 2`,
		`symgraph_graph_symbols{kind="class"} 1`,
		`symgraph_graph_edges{kind="call"} 4`,
		`symgraph_http_requests_total{method="GET",route="/api/health",status="200"} 1`,
		`symgraph_http_requests_total{method="GET",route="/api/symbols/{id}",status="404"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}

func TestMetricsFollowReindex(t *testing.T) {
	f := setupTestServer(t)

	b := graph.NewBuilder()
	b.OnFunctionParsed(loc(1), parse.Function{Name: "main"}, parse.Location{})
	if err := f.srv.store.SaveGraph(b.Finalize()); err != nil {
		t.Fatalf("failed to save graph: %v", err)
	}

	body := get(t, f.srv, "/metrics").Body.String()
	if !strings.Contains(body, "symgraph_graph_dangling_edges 0") {
		t.Error("expected dangling gauge to drop to 0 after reindex")
	}
	if !strings.Contains(body, `symgraph_graph_symbols{kind="method"} 0`) {
		t.Error("expected method gauge to drop to 0 after reindex")
	}
}

func TestGraphReachesNodesAtShortestDepth(t *testing.T) {
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	call := func(b *graph.Builder, line int, from, to string) {
		b.OnCallParsed(loc(line), parse.FunctionCaller(parse.Function{Name: from}), parse.Function{Name: to})
	}
	b := graph.NewBuilder()
	for i, name := range []string{"root", "a", "c", "d", "e"} {
		b.OnFunctionParsed(loc(i+1), parse.Function{Name: name}, parse.Location{})
	}
	// c is reached at depth 2 through a and at depth 1 directly from root.
	call(b, 10, "root", "a")
	call(b, 11, "a", "c")
	call(b, 12, "root", "c")
	call(b, 13, "c", "d")
	call(b, 14, "d", "e")
	g := b.Finalize()
	if err := st.SaveGraph(g); err != nil {
		t.Fatalf("failed to save graph: %v", err)
	}

	root, _ := g.Lookup("root", graph.KindFunction)
	resp, err := NewGraphBuilder(st).BuildFromRoot(root.ID, 3)
	if err != nil {
		t.Fatalf("BuildFromRoot failed: %v", err)
	}

	depths := make(map[string]int)
	for _, n := range resp.Nodes {
		depths[n.Name] = n.Depth
	}
	if len(depths) != 5 {
		t.Fatalf("expected 5 nodes, got %v", depths)
	}
	if depths["c"] != 1 || depths["d"] != 2 || depths["e"] != 3 {
		t.Errorf("unexpected depths %v", depths)
	}
	if len(resp.Edges) != 5 {
		t.Errorf("expected 5 edges, got %d", len(resp.Edges))
	}
}

func TestWriteJSONLogsThroughServerLogger(t *testing.T) {
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	var buf bytes.Buffer
	logger, err := logging.NewLogger(&buf, slog.LevelDebug, "json")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	s := newServer(st, Config{Logger: logger})

	s.writeJSON(httptest.NewRecorder(), http.StatusOK, make(chan int))
	if !strings.Contains(buf.String(), "encoding JSON response") {
		t.Errorf("expected encode failure in server log, got %q", buf.String())
	}
}

func itoa(id graph.SymbolID) string {
	return strconv.FormatInt(int64(id), 10)
}
