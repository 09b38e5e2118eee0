package parse

import (
	"fmt"
	"strings"
)

// AddAccessPrefix prepends the access keyword; AccessNone leaves s unchanged.
func AddAccessPrefix(s string, access AccessType) string {
	switch access {
	case AccessPublic:
		return "public " + s
	case AccessProtected:
		return "protected " + s
	case AccessPrivate:
		return "private " + s
	default:
		return s
	}
}

// AddAbstractionPrefix prepends "virtual" or "pure virtual".
func AddAbstractionPrefix(s string, abstraction AbstractionType) string {
	switch abstraction {
	case AbstractionVirtual:
		return "virtual " + s
	case AbstractionPureVirtual:
		return "pure virtual " + s
	default:
		return s
	}
}

// AddStaticPrefix prepends "static" when isStatic is set.
func AddStaticPrefix(s string, isStatic bool) string {
	if isStatic {
		return "static " + s
	}
	return s
}

// AddConstPrefix renders "const s" when atFront is set and "s const" otherwise.
func AddConstPrefix(s string, isConst, atFront bool) string {
	if !isConst {
		return s
	}
	if atFront {
		return "const " + s
	}
	return s + " const"
}

// AddLocationSuffix appends " <sl:sc el:ec>". Used for labels, never for keys.
func AddLocationSuffix(s string, loc Location) string {
	return fmt.Sprintf("%s <%d:%d %d:%d>", s, loc.StartLine, loc.StartColumn, loc.EndLine, loc.EndColumn)
}

// AddScopedLocationSuffix appends the location with the scope range nested
// between its start and end: " <sl:sc <ssl:ssc sel:sec> el:ec>".
func AddScopedLocationSuffix(s string, loc, scope Location) string {
	return fmt.Sprintf("%s <%d:%d <%d:%d %d:%d> %d:%d>", s,
		loc.StartLine, loc.StartColumn,
		scope.StartLine, scope.StartColumn, scope.EndLine, scope.EndColumn,
		loc.EndLine, loc.EndColumn)
}

// VariableString renders "[static ][const ]<type> <name>".
func VariableString(v Variable) string {
	return AddStaticPrefix(AddConstPrefix(v.Type.Type+" "+v.Name, v.Const, true), v.Static)
}

// ParameterString renders "(<t1>, <t2>, ...)".
func ParameterString(params []TypeUsage) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Type
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// FunctionSignatureString renders "<ret> <name>(<params>)[ const]" without
// visibility, abstraction or static markers, so overloads can be told apart
// regardless of where they were declared.
func FunctionSignatureString(fn Function) string {
	return AddConstPrefix(fn.ReturnType.Type+" "+fn.Name+ParameterString(fn.Parameters), fn.Const, false)
}

// FunctionString renders the full declaration: access, abstraction and static
// prefixes, in that order, ahead of the signature.
func FunctionString(fn Function, access AccessType, abstraction AbstractionType) string {
	return AddAccessPrefix(AddAbstractionPrefix(AddStaticPrefix(FunctionSignatureString(fn), fn.Static), abstraction), access)
}
