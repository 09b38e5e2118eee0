package graph

import (
	"sync"

	"github.com/abramin/symgraph/internal/parse"
)

type syncClient struct {
	mu     sync.Mutex
	client parse.Client
}

// Synchronized serializes every notification to c behind one mutex, so
// several front-end streams can share a single builder. Per-unit builders
// combined with Builder.Merge avoid the lock entirely.
func Synchronized(c parse.Client) parse.Client {
	return &syncClient{client: c}
}

func (s *syncClient) OnTypedefParsed(loc parse.Location, fullName string, underlying parse.TypeUsage, access parse.AccessType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.OnTypedefParsed(loc, fullName, underlying, access)
}

func (s *syncClient) OnClassParsed(loc parse.Location, fullName string, access parse.AccessType, scope parse.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.OnClassParsed(loc, fullName, access, scope)
}

func (s *syncClient) OnStructParsed(loc parse.Location, fullName string, access parse.AccessType, scope parse.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.OnStructParsed(loc, fullName, access, scope)
}

func (s *syncClient) OnGlobalVariableParsed(loc parse.Location, variable parse.Variable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.OnGlobalVariableParsed(loc, variable)
}

func (s *syncClient) OnFieldParsed(loc parse.Location, variable parse.Variable, access parse.AccessType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.OnFieldParsed(loc, variable, access)
}

func (s *syncClient) OnFunctionParsed(loc parse.Location, function parse.Function, scope parse.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.OnFunctionParsed(loc, function, scope)
}

func (s *syncClient) OnMethodParsed(loc parse.Location, method parse.Function, access parse.AccessType, abstraction parse.AbstractionType, scope parse.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.OnMethodParsed(loc, method, access, abstraction, scope)
}

func (s *syncClient) OnNamespaceParsed(loc parse.Location, fullName string, scope parse.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.OnNamespaceParsed(loc, fullName, scope)
}

func (s *syncClient) OnEnumParsed(loc parse.Location, fullName string, access parse.AccessType, scope parse.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.OnEnumParsed(loc, fullName, access, scope)
}

func (s *syncClient) OnEnumFieldParsed(loc parse.Location, fullName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.OnEnumFieldParsed(loc, fullName)
}

func (s *syncClient) OnInheritanceParsed(loc parse.Location, fullName, baseName string, access parse.AccessType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.OnInheritanceParsed(loc, fullName, baseName, access)
}

func (s *syncClient) OnCallParsed(loc parse.Location, caller parse.Caller, callee parse.Function) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.OnCallParsed(loc, caller, callee)
}

func (s *syncClient) OnFieldUsageParsed(loc parse.Location, user parse.Function, usedName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.OnFieldUsageParsed(loc, user, usedName)
}

func (s *syncClient) OnGlobalVariableUsageParsed(loc parse.Location, user parse.Function, usedName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.OnGlobalVariableUsageParsed(loc, user, usedName)
}

func (s *syncClient) OnTypeUsageParsed(usage parse.TypeUsage, function parse.Function) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.OnTypeUsageParsed(usage, function)
}
