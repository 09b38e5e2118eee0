package graph

// Graph is an immutable, finalized symbol graph.
type Graph struct {
	symbols []Symbol
	byKey   map[symbolKey]SymbolID
	byName  map[string][]SymbolID

	edges    []Edge
	byKind   map[EdgeKind][]int
	outgoing map[SymbolID][]int
	incoming map[SymbolID][]int
	byTarget map[string][]int
	dangling []int

	diagnostics []Diagnostic
	suppressed  int
	dropped     int
}

func newGraph(symbols, edges int) *Graph {
	return &Graph{
		symbols:  make([]Symbol, 0, symbols),
		byKey:    make(map[symbolKey]SymbolID, symbols),
		byName:   make(map[string][]SymbolID, symbols),
		edges:    make([]Edge, 0, edges),
		byKind:   make(map[EdgeKind][]int),
		outgoing: make(map[SymbolID][]int),
		incoming: make(map[SymbolID][]int),
		byTarget: make(map[string][]int),
	}
}

func (g *Graph) addSymbol(s Symbol) {
	g.symbols = append(g.symbols, s)
	g.byKey[symbolKey{name: s.Name, kind: s.Kind}] = s.ID
	g.byName[s.Name] = append(g.byName[s.Name], s.ID)
}

func (g *Graph) addEdge(e Edge) {
	i := len(g.edges)
	g.edges = append(g.edges, e)
	g.byKind[e.Kind] = append(g.byKind[e.Kind], i)
	g.byTarget[e.Target.Name] = append(g.byTarget[e.Target.Name], i)
	if e.Source.Resolved() {
		g.outgoing[e.Source.ID] = append(g.outgoing[e.Source.ID], i)
	}
	if e.Target.Resolved() {
		g.incoming[e.Target.ID] = append(g.incoming[e.Target.ID], i)
	} else {
		g.dangling = append(g.dangling, i)
	}
}

func (g *Graph) collect(idx []int, keep func(*Edge) bool) []Edge {
	out := make([]Edge, 0, len(idx))
	for _, i := range idx {
		if keep == nil || keep(&g.edges[i]) {
			out = append(out, g.edges[i])
		}
	}
	return out
}

// Lookup returns the symbol interned under (name, kind).
func (g *Graph) Lookup(name string, kind SymbolKind) (Symbol, bool) {
	id, ok := g.byKey[symbolKey{name: name, kind: kind}]
	if !ok {
		return Symbol{}, false
	}
	return g.symbols[id-1], true
}

// LookupName returns every symbol carrying name, in id order.
func (g *Graph) LookupName(name string) []Symbol {
	ids := g.byName[name]
	out := make([]Symbol, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.symbols[id-1])
	}
	return out
}

// SymbolByID returns the symbol with the given id.
func (g *Graph) SymbolByID(id SymbolID) (Symbol, bool) {
	if id < 1 || int(id) > len(g.symbols) {
		return Symbol{}, false
	}
	return g.symbols[id-1], true
}

// Symbols returns every symbol in id order.
func (g *Graph) Symbols() []Symbol {
	return append([]Symbol(nil), g.symbols...)
}

// Edges returns every edge in id order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// EdgesByKind returns edges of one kind in id order.
func (g *Graph) EdgesByKind(kind EdgeKind) []Edge {
	return g.collect(g.byKind[kind], nil)
}

// Outgoing returns edges whose source resolved to id.
func (g *Graph) Outgoing(id SymbolID) []Edge {
	return g.collect(g.outgoing[id], nil)
}

// Incoming returns edges whose target resolved to id.
func (g *Graph) Incoming(id SymbolID) []Edge {
	return g.collect(g.incoming[id], nil)
}

// EdgesTo returns every edge naming target, resolved or not.
func (g *Graph) EdgesTo(target string) []Edge {
	return g.collect(g.byTarget[target], nil)
}

// Callers returns the call edges into id. Function callers and variable
// initializers are both included; Source.Tag tells them apart.
func (g *Graph) Callers(id SymbolID) []Edge {
	return g.collect(g.incoming[id], func(e *Edge) bool { return e.Kind == EdgeCall })
}

// Callees returns the call edges out of id.
func (g *Graph) Callees(id SymbolID) []Edge {
	return g.collect(g.outgoing[id], func(e *Edge) bool { return e.Kind == EdgeCall })
}

// DanglingEdges returns edges whose target was never interned.
func (g *Graph) DanglingEdges() []Edge {
	return g.collect(g.dangling, nil)
}

// DanglingEdgeCount returns len(DanglingEdges()) without copying.
func (g *Graph) DanglingEdgeCount() int {
	return len(g.dangling)
}

// Diagnostics returns the diagnostics retained during ingestion.
func (g *Graph) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), g.diagnostics...)
}

// Stats summarizes a graph.
type Stats struct {
	Symbols       int                `json:"symbols"`
	SymbolsByKind map[SymbolKind]int `json:"symbols_by_kind"`
	Edges         int                `json:"edges"`
	EdgesByKind   map[EdgeKind]int   `json:"edges_by_kind"`
	Dangling      int                `json:"dangling"`
	Diagnostics   int                `json:"diagnostics"`
	Suppressed    int                `json:"suppressed_diagnostics"`
	DroppedEvents int                `json:"dropped_events"`
}

// Stats counts symbols and edges by kind.
func (g *Graph) Stats() Stats {
	s := Stats{
		Symbols:       len(g.symbols),
		SymbolsByKind: make(map[SymbolKind]int),
		Edges:         len(g.edges),
		EdgesByKind:   make(map[EdgeKind]int),
		Dangling:      len(g.dangling),
		Diagnostics:   len(g.diagnostics),
		Suppressed:    g.suppressed,
		DroppedEvents: g.dropped,
	}
	for _, sym := range g.symbols {
		s.SymbolsByKind[sym.Kind]++
	}
	for kind, idx := range g.byKind {
		s.EdgesByKind[kind] = len(idx)
	}
	return s
}
