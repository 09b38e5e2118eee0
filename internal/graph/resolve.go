package graph

import "strings"

var (
	callableKinds = []SymbolKind{KindFunction, KindMethod}
	variableKinds = []SymbolKind{KindGlobalVariable, KindField}
	fieldKinds    = []SymbolKind{KindField, KindGlobalVariable}
	recordKinds   = []SymbolKind{KindClass, KindStruct, KindTypedef}
	typeKinds     = []SymbolKind{KindClass, KindStruct, KindEnum, KindTypedef}
)

func sourceKinds(e *Edge) []SymbolKind {
	switch e.Kind {
	case EdgeInheritance:
		return recordKinds
	case EdgeTypeUsage:
		return typeKinds
	case EdgeCall:
		if e.Source.Tag == TagVariable {
			return variableKinds
		}
	}
	return callableKinds
}

func targetKinds(e *Edge) []SymbolKind {
	switch e.Kind {
	case EdgeInheritance:
		return recordKinds
	case EdgeFieldUsage:
		return fieldKinds
	case EdgeGlobalVariableUsage:
		return variableKinds
	}
	return callableKinds
}

func sourceLookupName(e *Edge) string {
	if e.Kind == EdgeTypeUsage {
		return TypeName(e.Source.Name)
	}
	return e.Source.Name
}

// resolve returns the lowest-id symbol named name whose kind is one of kinds,
// or zero.
func (b *Builder) resolve(name string, kinds []SymbolKind) SymbolID {
	for _, e := range b.byName[name] {
		for _, k := range kinds {
			if e.sym.Kind == k {
				return e.sym.ID
			}
		}
	}
	return 0
}

// UnresolvedEdgeCount returns how many edges currently have a target name
// that no interned symbol of a compatible kind carries. It reflects symbols
// that arrived after the edge was recorded.
func (b *Builder) UnresolvedEdgeCount() int {
	n := 0
	for name, edges := range b.pending {
		for _, e := range edges {
			if b.resolve(name, targetKinds(e)) == 0 {
				n++
			}
		}
	}
	return n
}

// Finalize resolves every edge endpoint against the symbol table and returns
// an immutable snapshot. The builder stays usable; finalizing again after more
// events sees the new symbols.
func (b *Builder) Finalize() *Graph {
	targets := make(map[*Edge]SymbolID, len(b.edges))
	for name, edges := range b.pending {
		for _, e := range edges {
			targets[e] = b.resolve(name, targetKinds(e))
		}
	}

	g := newGraph(len(b.entries), len(b.edges))
	for _, e := range b.entries {
		g.addSymbol(e.snapshot())
	}
	for _, e := range b.edges {
		edge := *e
		edge.Source.ID = b.resolve(sourceLookupName(e), sourceKinds(e))
		edge.Target.ID = targets[e]
		g.addEdge(edge)
	}
	g.diagnostics = b.Diagnostics()
	g.suppressed = b.suppressed
	g.dropped = b.dropped
	return g
}

var typeQualifiers = map[string]bool{
	"const":    true,
	"volatile": true,
	"struct":   true,
	"class":    true,
	"enum":     true,
	"union":    true,
	"typename": true,
}

// TypeName reduces a written type to the qualified name a declaration would
// carry: qualifiers, pointer and reference markers, array bounds and template
// arguments are removed. "const std::vector<ns::Foo>&" becomes "std::vector".
func TypeName(written string) string {
	var b strings.Builder
	depth := 0
	for _, r := range written {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
			}
		case depth > 0:
		case r == '*' || r == '&' || r == '[' || r == ']':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}

	for _, field := range strings.Fields(b.String()) {
		if !typeQualifiers[field] {
			return field
		}
	}
	return ""
}
