package graph

import (
	"fmt"

	"github.com/abramin/symgraph/internal/parse"
)

// SymbolID is a stable, insertion-ordered identifier. Zero means unresolved.
type SymbolID int64

// EdgeID is a stable, insertion-ordered identifier for edges.
type EdgeID int64

// SymbolKind is the kind of a graph node.
type SymbolKind string

const (
	KindTypedef        SymbolKind = "typedef"
	KindClass          SymbolKind = "class"
	KindStruct         SymbolKind = "struct"
	KindNamespace      SymbolKind = "namespace"
	KindEnum           SymbolKind = "enum"
	KindEnumConstant   SymbolKind = "enum_constant"
	KindFunction       SymbolKind = "function"
	KindMethod         SymbolKind = "method"
	KindGlobalVariable SymbolKind = "global_variable"
	KindField          SymbolKind = "field"
)

// AllSymbolKinds lists every kind in a fixed order.
var AllSymbolKinds = []SymbolKind{
	KindTypedef, KindClass, KindStruct, KindNamespace, KindEnum,
	KindEnumConstant, KindFunction, KindMethod, KindGlobalVariable, KindField,
}

// ParseSymbolKind validates a kind name.
func ParseSymbolKind(s string) (SymbolKind, error) {
	for _, k := range AllSymbolKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown symbol kind %q", s)
}

// Kinds that may name the same entity under different front-end events.
// A name keeps the first-seen kind within its family.
var kindFamily = map[SymbolKind]string{
	KindClass:          "record",
	KindStruct:         "record",
	KindFunction:       "callable",
	KindMethod:         "callable",
	KindGlobalVariable: "variable",
	KindField:          "variable",
}

func sameFamily(a, b SymbolKind) bool {
	fa, ok := kindFamily[a]
	return ok && fa == kindFamily[b]
}

// EdgeKind is the kind of a graph relation.
type EdgeKind string

const (
	EdgeInheritance         EdgeKind = "inheritance"
	EdgeCall                EdgeKind = "call"
	EdgeFieldUsage          EdgeKind = "field_usage"
	EdgeGlobalVariableUsage EdgeKind = "global_variable_usage"
	EdgeTypeUsage           EdgeKind = "type_usage"
)

// AllEdgeKinds lists every edge kind in a fixed order.
var AllEdgeKinds = []EdgeKind{
	EdgeInheritance, EdgeCall, EdgeFieldUsage, EdgeGlobalVariableUsage, EdgeTypeUsage,
}

// EndpointTag records which descriptor an edge endpoint came from.
type EndpointTag string

const (
	TagFunction EndpointTag = "function"
	TagVariable EndpointTag = "variable"
	TagType     EndpointTag = "type"
	TagName     EndpointTag = "name"
)

// Symbol is a graph node, unique per (Name, Kind).
type Symbol struct {
	ID          SymbolID              `json:"id"`
	Name        string                `json:"name"`
	Kind        SymbolKind            `json:"kind"`
	Locations   []parse.Location      `json:"locations"`
	Scope       parse.Location        `json:"scope"`
	Access      parse.AccessType      `json:"access"`
	Abstraction parse.AbstractionType `json:"abstraction"`
	Static      bool                  `json:"static,omitempty"`
	Const       bool                  `json:"const,omitempty"`
	Type        string                `json:"type,omitempty"`       // variable type, typedef target or return type
	Signatures  []string              `json:"signatures,omitempty"` // distinct formatted declarations
}

// HasScope reports whether a body range was observed.
func (s *Symbol) HasScope() bool {
	return !s.Scope.IsEmpty()
}

// Endpoint is one side of an edge. Relations name their endpoints by string;
// ID is filled in at finalize time when the name is interned.
type Endpoint struct {
	Name string      `json:"name"`
	Tag  EndpointTag `json:"tag"`
	ID   SymbolID    `json:"id,omitempty"`
}

// Resolved reports whether the endpoint was found in the symbol table.
func (e Endpoint) Resolved() bool {
	return e.ID != 0
}

// Edge is a directed relation. One edge exists per
// (source, target, kind, site); two call sites stay two edges.
type Edge struct {
	ID     EdgeID           `json:"id"`
	Kind   EdgeKind         `json:"kind"`
	Source Endpoint         `json:"source"`
	Target Endpoint         `json:"target"`
	Site   parse.Location   `json:"site"`
	Access parse.AccessType `json:"access"` // inheritance only
}

// Dangling reports whether the edge target was never interned.
func (e *Edge) Dangling() bool {
	return !e.Target.Resolved()
}

type symbolKey struct {
	name string
	kind SymbolKind
}

type edgeKey struct {
	kind      EdgeKind
	source    string
	sourceTag EndpointTag
	target    string
	site      parse.Location
}

func (e *Edge) key() edgeKey {
	return edgeKey{
		kind:      e.Kind,
		source:    e.Source.Name,
		sourceTag: e.Source.Tag,
		target:    e.Target.Name,
		site:      e.Site,
	}
}
