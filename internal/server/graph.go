package server

import (
	"errors"
	"sort"

	"github.com/abramin/symgraph/internal/graph"
	"github.com/abramin/symgraph/internal/store"
)

const (
	// DefaultGraphDepth is used when the request names no depth.
	DefaultGraphDepth = 3
	// MaxGraphDepth clamps requested depths.
	MaxGraphDepth = 6
)

// GraphNode represents a node in the graph response.
type GraphNode struct {
	ID       graph.SymbolID   `json:"id"`
	Name     string           `json:"name"`
	Kind     graph.SymbolKind `json:"kind"`
	File     string           `json:"file,omitempty"`
	Line     int              `json:"line,omitempty"`
	Sig      string           `json:"sig,omitempty"`
	Expanded bool             `json:"expanded"`
	Depth    int              `json:"depth"`
}

// GraphEdge represents a call edge in the graph response. Dangling edges
// carry the unresolved callee name and no target id.
type GraphEdge struct {
	SourceID   graph.SymbolID `json:"source_id"`
	TargetID   graph.SymbolID `json:"target_id,omitempty"`
	TargetName string         `json:"target_name"`
	Dangling   bool           `json:"dangling"`
	CallerFile string         `json:"caller_file,omitempty"`
	CallerLine int            `json:"caller_line,omitempty"`
}

// GraphResponse is the response format for graph endpoints.
type GraphResponse struct {
	Nodes    []GraphNode    `json:"nodes"`
	Edges    []GraphEdge    `json:"edges"`
	RootID   graph.SymbolID `json:"root_id"`
	MaxDepth int            `json:"max_depth"`
	Dangling int            `json:"dangling_count"`
}

// GraphBuilder walks callee edges out of the store.
type GraphBuilder struct {
	store    *store.Store
	nodes    map[graph.SymbolID]*GraphNode
	edges    []GraphEdge
	visited  map[graph.SymbolID]bool
	dangling int
}

// NewGraphBuilder creates a new graph builder.
func NewGraphBuilder(s *store.Store) *GraphBuilder {
	return &GraphBuilder{
		store:   s,
		nodes:   make(map[graph.SymbolID]*GraphNode),
		edges:   []GraphEdge{},
		visited: make(map[graph.SymbolID]bool),
	}
}

// BuildFromRoot builds a graph of everything reachable from rootID through
// at most depth call edges. Returns store.ErrNotFound for an unknown root.
func (gb *GraphBuilder) BuildFromRoot(rootID graph.SymbolID, depth int) (*GraphResponse, error) {
	switch {
	case depth <= 0:
		depth = DefaultGraphDepth
	case depth > MaxGraphDepth:
		depth = MaxGraphDepth
	}

	if err := gb.addNode(rootID, 0); err != nil {
		return nil, err
	}
	if err := gb.expand(rootID, depth); err != nil {
		return nil, err
	}
	return gb.buildResponse(rootID, depth), nil
}

func (gb *GraphBuilder) addNode(id graph.SymbolID, depth int) error {
	if _, exists := gb.nodes[id]; exists {
		return nil
	}

	sym, err := gb.store.GetSymbolByID(id)
	if err != nil {
		return err
	}

	node := &GraphNode{
		ID:    sym.ID,
		Name:  sym.Name,
		Kind:  sym.Kind,
		Depth: depth,
	}
	if len(sym.Locations) > 0 {
		node.File = sym.Locations[0].File
		node.Line = sym.Locations[0].StartLine
	}
	if len(sym.Signatures) > 0 {
		node.Sig = sym.Signatures[0]
	}
	gb.nodes[id] = node
	return nil
}

// expand walks callees breadth-first, so every node is reached at its
// shortest depth and is expanded at most once.
func (gb *GraphBuilder) expand(rootID graph.SymbolID, maxDepth int) error {
	type item struct {
		id    graph.SymbolID
		depth int
	}
	queue := []item{{rootID, 0}}
	gb.visited[rootID] = true

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}

		callees, err := gb.store.GetCallees(cur.id)
		if err != nil {
			return err
		}
		for _, e := range callees {
			gb.edges = append(gb.edges, GraphEdge{
				SourceID:   cur.id,
				TargetID:   e.Target.ID,
				TargetName: e.Target.Name,
				Dangling:   e.Dangling(),
				CallerFile: e.Site.File,
				CallerLine: e.Site.StartLine,
			})
			if e.Dangling() {
				gb.dangling++
				continue
			}

			if err := gb.addNode(e.Target.ID, cur.depth+1); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				return err
			}
			if !gb.visited[e.Target.ID] {
				gb.visited[e.Target.ID] = true
				queue = append(queue, item{e.Target.ID, cur.depth + 1})
			}
		}

		if node, ok := gb.nodes[cur.id]; ok {
			node.Expanded = true
		}
	}
	return nil
}

func (gb *GraphBuilder) buildResponse(rootID graph.SymbolID, maxDepth int) *GraphResponse {
	nodes := make([]GraphNode, 0, len(gb.nodes))
	for _, node := range gb.nodes {
		nodes = append(nodes, *node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	return &GraphResponse{
		Nodes:    nodes,
		Edges:    gb.edges,
		RootID:   rootID,
		MaxDepth: maxDepth,
		Dangling: gb.dangling,
	}
}
