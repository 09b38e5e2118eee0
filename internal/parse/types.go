package parse

import "fmt"

// TypeUsage is a type as written at a specific source point. It is never
// resolved to a canonical type identity.
type TypeUsage struct {
	Type     string   `json:"type"`
	Location Location `json:"location"`
}

// Variable describes a global variable or a field.
type Variable struct {
	Name   string    `json:"name"`
	Type   TypeUsage `json:"type"`
	Static bool      `json:"static,omitempty"`
	Const  bool      `json:"const,omitempty"`
}

// Function describes a free function or a method.
type Function struct {
	Name       string      `json:"name"`
	ReturnType TypeUsage   `json:"return_type"`
	Parameters []TypeUsage `json:"parameters,omitempty"`
	Static     bool        `json:"static,omitempty"`
	Const      bool        `json:"const,omitempty"`
}

// AccessType is the member visibility reported by the front-end.
// AccessNone means "not applicable", never "unknown".
type AccessType int

const (
	AccessNone AccessType = iota
	AccessPublic
	AccessProtected
	AccessPrivate
)

var accessNames = map[AccessType]string{
	AccessNone:      "none",
	AccessPublic:    "public",
	AccessProtected: "protected",
	AccessPrivate:   "private",
}

func (a AccessType) String() string {
	if s, ok := accessNames[a]; ok {
		return s
	}
	return fmt.Sprintf("access(%d)", int(a))
}

// MarshalText implements encoding.TextMarshaler.
func (a AccessType) MarshalText() ([]byte, error) {
	s, ok := accessNames[a]
	if !ok {
		return nil, fmt.Errorf("unknown access type %d", int(a))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input means none.
func (a *AccessType) UnmarshalText(text []byte) error {
	v, err := ParseAccessType(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ParseAccessType converts a lowercase name to an AccessType.
func ParseAccessType(s string) (AccessType, error) {
	if s == "" {
		return AccessNone, nil
	}
	for k, v := range accessNames {
		if v == s {
			return k, nil
		}
	}
	return AccessNone, fmt.Errorf("unknown access type %q", s)
}

// AbstractionType applies to methods only.
type AbstractionType int

const (
	AbstractionNone AbstractionType = iota
	AbstractionVirtual
	AbstractionPureVirtual
)

var abstractionNames = map[AbstractionType]string{
	AbstractionNone:        "none",
	AbstractionVirtual:     "virtual",
	AbstractionPureVirtual: "pure_virtual",
}

func (a AbstractionType) String() string {
	if s, ok := abstractionNames[a]; ok {
		return s
	}
	return fmt.Sprintf("abstraction(%d)", int(a))
}

// MarshalText implements encoding.TextMarshaler.
func (a AbstractionType) MarshalText() ([]byte, error) {
	s, ok := abstractionNames[a]
	if !ok {
		return nil, fmt.Errorf("unknown abstraction type %d", int(a))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input means none.
func (a *AbstractionType) UnmarshalText(text []byte) error {
	v, err := ParseAbstractionType(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ParseAbstractionType converts a lowercase name to an AbstractionType.
func ParseAbstractionType(s string) (AbstractionType, error) {
	if s == "" {
		return AbstractionNone, nil
	}
	for k, v := range abstractionNames {
		if v == s {
			return k, nil
		}
	}
	return AbstractionNone, fmt.Errorf("unknown abstraction type %q", s)
}

// CallerKind tags which case of Caller is set.
type CallerKind int

const (
	CallerFunction CallerKind = iota
	CallerVariable
)

func (k CallerKind) String() string {
	if k == CallerVariable {
		return "variable"
	}
	return "function"
}

// Caller is the origin of a call: either an enclosing function, or a variable
// whose initializer performs the call (e.g. a field initializer).
type Caller struct {
	Kind     CallerKind
	Function Function
	Variable Variable
}

// FunctionCaller wraps fn as a call origin.
func FunctionCaller(fn Function) Caller {
	return Caller{Kind: CallerFunction, Function: fn}
}

// VariableCaller wraps v as a call origin.
func VariableCaller(v Variable) Caller {
	return Caller{Kind: CallerVariable, Variable: v}
}

// Name returns the qualified name of whichever case is set.
func (c Caller) Name() string {
	if c.Kind == CallerVariable {
		return c.Variable.Name
	}
	return c.Function.Name
}
