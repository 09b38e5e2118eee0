package parse

// Event names, one per Client notification. They appear in diagnostics and in
// serialized event logs.
const (
	EventTypedef             = "typedef"
	EventClass               = "class"
	EventStruct              = "struct"
	EventGlobalVariable      = "global_variable"
	EventField               = "field"
	EventFunction            = "function"
	EventMethod              = "method"
	EventNamespace           = "namespace"
	EventEnum                = "enum"
	EventEnumField           = "enum_field"
	EventInheritance         = "inheritance"
	EventCall                = "call"
	EventFieldUsage          = "field_usage"
	EventGlobalVariableUsage = "global_variable_usage"
	EventTypeUsage           = "type_usage"
)

// EventNames lists every notification in interface order.
var EventNames = []string{
	EventTypedef, EventClass, EventStruct, EventGlobalVariable, EventField,
	EventFunction, EventMethod, EventNamespace, EventEnum, EventEnumField,
	EventInheritance, EventCall, EventFieldUsage, EventGlobalVariableUsage, EventTypeUsage,
}
