// Package graph interns front-end notifications into a deduplicated symbol
// graph and resolves name-based relations lazily.
package graph

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/abramin/symgraph/internal/parse"
)

// DefaultMaxDiagnostics caps how many diagnostics a builder retains.
const DefaultMaxDiagnostics = 10000

// Options configures a Builder.
type Options struct {
	// Sink receives every diagnostic as it is produced. May be nil.
	Sink DiagnosticSink

	// MaxDiagnostics bounds the retained diagnostic list. Diagnostics past the
	// cap are still sent to Sink and counted in Suppressed.
	MaxDiagnostics int
}

// Option is a functional option for NewBuilder.
type Option func(*Options)

// WithDiagnosticSink sets the sink diagnostics are forwarded to.
func WithDiagnosticSink(sink DiagnosticSink) Option {
	return func(o *Options) {
		o.Sink = sink
	}
}

// WithLogger forwards diagnostics to logger at warn level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Sink = LogSink(logger)
		}
	}
}

// WithMaxDiagnostics sets the retained diagnostic cap.
func WithMaxDiagnostics(n int) Option {
	return func(o *Options) {
		o.MaxDiagnostics = n
	}
}

// entry is the mutable working state of one symbol.
type entry struct {
	sym        Symbol
	locations  map[parse.Location]struct{}
	signatures map[string]struct{}
}

// Builder implements parse.Client and owns the evolving graph of one
// indexing session. It is not safe for concurrent use; wrap it with
// Synchronized when several streams share one builder.
type Builder struct {
	opts Options

	entries []*entry
	byKey   map[symbolKey]*entry
	byName  map[string][]*entry

	edges     []*Edge
	edgeIndex map[edgeKey]*Edge
	// pending maps a target name to the edges waiting on it. It is the
	// deferred-resolution table consulted at Finalize.
	pending map[string][]*Edge

	diagnostics []Diagnostic
	suppressed  int
	dropped     int
}

var _ parse.Client = (*Builder)(nil)

// NewBuilder creates an empty builder.
func NewBuilder(opts ...Option) *Builder {
	options := Options{MaxDiagnostics: DefaultMaxDiagnostics}
	for _, opt := range opts {
		opt(&options)
	}
	return &Builder{
		opts:      options,
		byKey:     make(map[symbolKey]*entry),
		byName:    make(map[string][]*entry),
		edgeIndex: make(map[edgeKey]*Edge),
		pending:   make(map[string][]*Edge),
	}
}

// SymbolCount returns the number of interned symbols.
func (b *Builder) SymbolCount() int { return len(b.entries) }

// EdgeCount returns the number of distinct edges.
func (b *Builder) EdgeCount() int { return len(b.edges) }

// DroppedEvents returns how many malformed events were dropped.
func (b *Builder) DroppedEvents() int { return b.dropped }

// Diagnostics returns a copy of the retained diagnostics.
func (b *Builder) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), b.diagnostics...)
}

// Suppressed returns how many diagnostics exceeded the retention cap.
func (b *Builder) Suppressed() int { return b.suppressed }

func (b *Builder) report(d Diagnostic) {
	if b.opts.Sink != nil {
		b.opts.Sink.Report(d)
	}
	b.retain(d)
}

func (b *Builder) retain(d Diagnostic) {
	if b.opts.MaxDiagnostics > 0 && len(b.diagnostics) >= b.opts.MaxDiagnostics {
		b.suppressed++
		return
	}
	b.diagnostics = append(b.diagnostics, d)
}

func (b *Builder) malformed(event, name string, loc parse.Location, msg string) {
	b.dropped++
	b.report(Diagnostic{Code: MalformedEvent, Event: event, Name: name, Message: msg, Location: loc})
}

// valid checks names and locations of an event, reporting the first problem.
func (b *Builder) valid(event string, loc parse.Location, names []string, locs ...parse.Location) bool {
	for _, n := range names {
		if n == "" {
			b.malformed(event, "", loc, "empty qualified name")
			return false
		}
	}
	for _, l := range append([]parse.Location{loc}, locs...) {
		if err := l.Validate(); err != nil {
			name := ""
			if len(names) > 0 {
				name = names[0]
			}
			b.malformed(event, name, l, err.Error())
			return false
		}
	}
	return true
}

// sighting is one observation of a symbol, from an event or from a merge.
type sighting struct {
	event       string
	name        string
	kind        SymbolKind
	locations   []parse.Location
	scope       parse.Location
	access      parse.AccessType
	abstraction parse.AbstractionType
	static      bool
	isConst     bool
	typ         string
	signatures  []string
}

func (s *sighting) site() parse.Location {
	if len(s.locations) > 0 {
		return s.locations[0]
	}
	return parse.Location{}
}

func (b *Builder) intern(s sighting) *entry {
	e := b.find(s)
	if e == nil {
		e = &entry{
			sym: Symbol{
				ID:   SymbolID(len(b.entries) + 1),
				Name: s.name,
				Kind: s.kind,
			},
			locations:  make(map[parse.Location]struct{}),
			signatures: make(map[string]struct{}),
		}
		b.entries = append(b.entries, e)
		b.byKey[symbolKey{name: s.name, kind: s.kind}] = e
		b.byName[s.name] = append(b.byName[s.name], e)
	}

	for _, loc := range s.locations {
		if !loc.IsEmpty() {
			e.locations[loc] = struct{}{}
		}
	}
	if e.sym.Scope.IsEmpty() && !s.scope.IsEmpty() {
		e.sym.Scope = s.scope
	}

	switch {
	case s.access == parse.AccessNone:
	case e.sym.Access == parse.AccessNone:
		e.sym.Access = s.access
	case e.sym.Access != s.access:
		b.report(Diagnostic{
			Code:     ConflictingQualifier,
			Event:    s.event,
			Name:     s.name,
			Message:  fmt.Sprintf("access %s conflicts with recorded %s; keeping %s", s.access, e.sym.Access, e.sym.Access),
			Location: s.site(),
		})
	}

	switch {
	case s.abstraction == parse.AbstractionNone:
	case e.sym.Abstraction == parse.AbstractionNone:
		e.sym.Abstraction = s.abstraction
	case e.sym.Abstraction != s.abstraction:
		b.report(Diagnostic{
			Code:     ConflictingQualifier,
			Event:    s.event,
			Name:     s.name,
			Message:  fmt.Sprintf("abstraction %s conflicts with recorded %s; keeping %s", s.abstraction, e.sym.Abstraction, e.sym.Abstraction),
			Location: s.site(),
		})
	}

	e.sym.Static = e.sym.Static || s.static
	e.sym.Const = e.sym.Const || s.isConst
	if e.sym.Type == "" {
		e.sym.Type = s.typ
	}
	for _, sig := range s.signatures {
		if sig != "" {
			e.signatures[sig] = struct{}{}
		}
	}
	return e
}

// find returns the existing entry a sighting merges into. A name already
// interned under a kind of the same family keeps its first-seen kind.
func (b *Builder) find(s sighting) *entry {
	if e, ok := b.byKey[symbolKey{name: s.name, kind: s.kind}]; ok {
		return e
	}
	for _, e := range b.byName[s.name] {
		if sameFamily(e.sym.Kind, s.kind) {
			b.report(Diagnostic{
				Code:     ConflictingQualifier,
				Event:    s.event,
				Name:     s.name,
				Message:  fmt.Sprintf("sighted as %s; keeping first-seen kind %s", s.kind, e.sym.Kind),
				Location: s.site(),
			})
			return e
		}
	}
	return nil
}

func (e *entry) snapshot() Symbol {
	sym := e.sym
	sym.Locations = make([]parse.Location, 0, len(e.locations))
	for loc := range e.locations {
		sym.Locations = append(sym.Locations, loc)
	}
	sort.Slice(sym.Locations, func(i, j int) bool {
		return sym.Locations[i].Less(sym.Locations[j])
	})
	if len(e.signatures) > 0 {
		sym.Signatures = make([]string, 0, len(e.signatures))
		for sig := range e.signatures {
			sym.Signatures = append(sym.Signatures, sig)
		}
		sort.Strings(sym.Signatures)
	}
	return sym
}

// relate records an edge once per key. Endpoints stay unresolved until Finalize.
func (b *Builder) relate(edge Edge) {
	k := edge.key()
	if _, ok := b.edgeIndex[k]; ok {
		return
	}
	edge.ID = EdgeID(len(b.edges) + 1)
	edge.Source.ID = 0
	edge.Target.ID = 0
	e := &edge
	b.edges = append(b.edges, e)
	b.edgeIndex[k] = e
	b.pending[e.Target.Name] = append(b.pending[e.Target.Name], e)
}

func (b *Builder) declare(event string, loc parse.Location, name string, kind SymbolKind, access parse.AccessType, scope parse.Location) {
	if !b.valid(event, loc, []string{name}, scope) {
		return
	}
	b.intern(sighting{
		event:     event,
		name:      name,
		kind:      kind,
		locations: []parse.Location{loc},
		scope:     scope,
		access:    access,
	})
}

// OnTypedefParsed interns a typedef and records its underlying type text.
func (b *Builder) OnTypedefParsed(loc parse.Location, fullName string, underlying parse.TypeUsage, access parse.AccessType) {
	if !b.valid(parse.EventTypedef, loc, []string{fullName}) {
		return
	}
	b.intern(sighting{
		event:     parse.EventTypedef,
		name:      fullName,
		kind:      KindTypedef,
		locations: []parse.Location{loc},
		access:    access,
		typ:       underlying.Type,
	})
}

func (b *Builder) OnClassParsed(loc parse.Location, fullName string, access parse.AccessType, scope parse.Location) {
	b.declare(parse.EventClass, loc, fullName, KindClass, access, scope)
}

func (b *Builder) OnStructParsed(loc parse.Location, fullName string, access parse.AccessType, scope parse.Location) {
	b.declare(parse.EventStruct, loc, fullName, KindStruct, access, scope)
}

func (b *Builder) OnNamespaceParsed(loc parse.Location, fullName string, scope parse.Location) {
	b.declare(parse.EventNamespace, loc, fullName, KindNamespace, parse.AccessNone, scope)
}

func (b *Builder) OnEnumParsed(loc parse.Location, fullName string, access parse.AccessType, scope parse.Location) {
	b.declare(parse.EventEnum, loc, fullName, KindEnum, access, scope)
}

func (b *Builder) OnEnumFieldParsed(loc parse.Location, fullName string) {
	b.declare(parse.EventEnumField, loc, fullName, KindEnumConstant, parse.AccessNone, parse.Location{})
}

func (b *Builder) OnGlobalVariableParsed(loc parse.Location, variable parse.Variable) {
	b.variable(parse.EventGlobalVariable, loc, variable, KindGlobalVariable, parse.AccessNone)
}

func (b *Builder) OnFieldParsed(loc parse.Location, variable parse.Variable, access parse.AccessType) {
	b.variable(parse.EventField, loc, variable, KindField, access)
}

func (b *Builder) variable(event string, loc parse.Location, v parse.Variable, kind SymbolKind, access parse.AccessType) {
	if !b.valid(event, loc, []string{v.Name}) {
		return
	}
	b.intern(sighting{
		event:      event,
		name:       v.Name,
		kind:       kind,
		locations:  []parse.Location{loc},
		access:     access,
		static:     v.Static,
		isConst:    v.Const,
		typ:        v.Type.Type,
		signatures: []string{parse.VariableString(v)},
	})
}

func (b *Builder) OnFunctionParsed(loc parse.Location, function parse.Function, scope parse.Location) {
	b.function(parse.EventFunction, loc, function, KindFunction, parse.AccessNone, parse.AbstractionNone, scope)
}

func (b *Builder) OnMethodParsed(loc parse.Location, method parse.Function, access parse.AccessType, abstraction parse.AbstractionType, scope parse.Location) {
	b.function(parse.EventMethod, loc, method, KindMethod, access, abstraction, scope)
}

func (b *Builder) function(event string, loc parse.Location, fn parse.Function, kind SymbolKind, access parse.AccessType, abstraction parse.AbstractionType, scope parse.Location) {
	if !b.valid(event, loc, []string{fn.Name}, scope) {
		return
	}
	b.intern(sighting{
		event:       event,
		name:        fn.Name,
		kind:        kind,
		locations:   []parse.Location{loc},
		scope:       scope,
		access:      access,
		abstraction: abstraction,
		static:      fn.Static,
		isConst:     fn.Const,
		typ:         fn.ReturnType.Type,
		signatures:  []string{parse.FunctionSignatureString(fn)},
	})
}

func (b *Builder) OnInheritanceParsed(loc parse.Location, fullName, baseName string, access parse.AccessType) {
	if !b.valid(parse.EventInheritance, loc, []string{fullName, baseName}) {
		return
	}
	b.relate(Edge{
		Kind:   EdgeInheritance,
		Source: Endpoint{Name: fullName, Tag: TagName},
		Target: Endpoint{Name: baseName, Tag: TagName},
		Site:   loc,
		Access: access,
	})
}

// OnCallParsed records a call from either a function or a variable
// initializer. Both caller cases produce the same edge kind; the source tag
// keeps them apart.
func (b *Builder) OnCallParsed(loc parse.Location, caller parse.Caller, callee parse.Function) {
	if !b.valid(parse.EventCall, loc, []string{caller.Name(), callee.Name}) {
		return
	}
	tag := TagFunction
	if caller.Kind == parse.CallerVariable {
		tag = TagVariable
	}
	b.relate(Edge{
		Kind:   EdgeCall,
		Source: Endpoint{Name: caller.Name(), Tag: tag},
		Target: Endpoint{Name: callee.Name, Tag: TagFunction},
		Site:   loc,
	})
}

func (b *Builder) OnFieldUsageParsed(loc parse.Location, user parse.Function, usedName string) {
	b.usage(parse.EventFieldUsage, EdgeFieldUsage, loc, user, usedName)
}

func (b *Builder) OnGlobalVariableUsageParsed(loc parse.Location, user parse.Function, usedName string) {
	b.usage(parse.EventGlobalVariableUsage, EdgeGlobalVariableUsage, loc, user, usedName)
}

func (b *Builder) usage(event string, kind EdgeKind, loc parse.Location, user parse.Function, usedName string) {
	if !b.valid(event, loc, []string{user.Name, usedName}) {
		return
	}
	b.relate(Edge{
		Kind:   kind,
		Source: Endpoint{Name: user.Name, Tag: TagFunction},
		Target: Endpoint{Name: usedName, Tag: TagName},
		Site:   loc,
	})
}

// OnTypeUsageParsed links a written type to the function it appears in. The
// site is the type usage's own location.
func (b *Builder) OnTypeUsageParsed(usage parse.TypeUsage, function parse.Function) {
	if !b.valid(parse.EventTypeUsage, usage.Location, []string{usage.Type, function.Name}) {
		return
	}
	b.relate(Edge{
		Kind:   EdgeTypeUsage,
		Source: Endpoint{Name: usage.Type, Tag: TagType},
		Target: Endpoint{Name: function.Name, Tag: TagFunction},
		Site:   usage.Location,
	})
}

// Merge folds other into b using the same interning, sticky-qualifier and
// conflict rules as live ingestion. Symbols and edges keep other's relative
// order, so merging per-unit builders in a fixed order yields stable ids.
func (b *Builder) Merge(other *Builder) {
	if other == nil || other == b {
		return
	}
	for _, e := range other.entries {
		snap := e.snapshot()
		b.intern(sighting{
			event:       "merge",
			name:        snap.Name,
			kind:        snap.Kind,
			locations:   snap.Locations,
			scope:       snap.Scope,
			access:      snap.Access,
			abstraction: snap.Abstraction,
			static:      snap.Static,
			isConst:     snap.Const,
			typ:         snap.Type,
			signatures:  snap.Signatures,
		})
	}
	for _, e := range other.edges {
		b.relate(*e)
	}
	for _, d := range other.diagnostics {
		b.retain(d)
	}
	b.suppressed += other.suppressed
	b.dropped += other.dropped
}
