// Package parse defines the notification protocol between a parser front-end
// and the consumers that turn its reports into a symbol graph.
package parse

// Client receives one notification per construct recognized by a front-end.
//
// Notifications may arrive in any order and may repeat. Qualified names are
// passed through verbatim; implementations never re-derive them. Calls are
// synchronous and never overlap for a single translation unit.
type Client interface {
	OnTypedefParsed(loc Location, fullName string, underlying TypeUsage, access AccessType)
	OnClassParsed(loc Location, fullName string, access AccessType, scope Location)
	OnStructParsed(loc Location, fullName string, access AccessType, scope Location)

	OnGlobalVariableParsed(loc Location, variable Variable)
	OnFieldParsed(loc Location, variable Variable, access AccessType)

	OnFunctionParsed(loc Location, function Function, scope Location)
	OnMethodParsed(loc Location, method Function, access AccessType, abstraction AbstractionType, scope Location)

	OnNamespaceParsed(loc Location, fullName string, scope Location)

	OnEnumParsed(loc Location, fullName string, access AccessType, scope Location)
	OnEnumFieldParsed(loc Location, fullName string)

	OnInheritanceParsed(loc Location, fullName, baseName string, access AccessType)
	OnCallParsed(loc Location, caller Caller, callee Function)
	OnFieldUsageParsed(loc Location, user Function, usedName string)
	OnGlobalVariableUsageParsed(loc Location, user Function, usedName string)
	OnTypeUsageParsed(usage TypeUsage, function Function)
}

// NopClient ignores every notification. Embed it to implement only the
// notifications a consumer cares about.
type NopClient struct{}

var _ Client = NopClient{}

func (NopClient) OnTypedefParsed(Location, string, TypeUsage, AccessType) {}
func (NopClient) OnClassParsed(Location, string, AccessType, Location) {}
func (NopClient) OnStructParsed(Location, string, AccessType, Location) {}
func (NopClient) OnGlobalVariableParsed(Location, Variable) {}
func (NopClient) OnFieldParsed(Location, Variable, AccessType) {}
func (NopClient) OnFunctionParsed(Location, Function, Location) {}
func (NopClient) OnMethodParsed(Location, Function, AccessType, AbstractionType, Location) {}
func (NopClient) OnNamespaceParsed(Location, string, Location) {}
func (NopClient) OnEnumParsed(Location, string, AccessType, Location) {}
func (NopClient) OnEnumFieldParsed(Location, string) {}
func (NopClient) OnInheritanceParsed(Location, string, string, AccessType) {}
func (NopClient) OnCallParsed(Location, Caller, Function) {}
func (NopClient) OnFieldUsageParsed(Location, Function, string) {}
func (NopClient) OnGlobalVariableUsageParsed(Location, Function, string) {}
func (NopClient) OnTypeUsageParsed(TypeUsage, Function) {}
