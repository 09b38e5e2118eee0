// Package events serializes parse notifications as JSON Lines so a front-end
// running in another process can hand its reports to the graph builder.
package events

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/abramin/symgraph/internal/parse"
)

// record is one line of an event log. Only the fields relevant to Event are set.
type record struct {
	Event       string                `json:"event"`
	Location    parse.Location        `json:"location"`
	Name        string                `json:"name,omitempty"`
	BaseName    string                `json:"base_name,omitempty"`
	UsedName    string                `json:"used_name,omitempty"`
	Access      parse.AccessType      `json:"access,omitempty"`
	Abstraction parse.AbstractionType `json:"abstraction,omitempty"`
	Scope       *parse.Location       `json:"scope,omitempty"`
	Type        *parse.TypeUsage      `json:"type,omitempty"`
	Variable    *parse.Variable       `json:"variable,omitempty"`
	Function    *parse.Function       `json:"function,omitempty"`
	Caller      *caller               `json:"caller,omitempty"`
	Callee      *parse.Function       `json:"callee,omitempty"`
}

type caller struct {
	Function *parse.Function `json:"function,omitempty"`
	Variable *parse.Variable `json:"variable,omitempty"`
}

func scopeOf(l parse.Location) *parse.Location {
	if l.IsEmpty() {
		return nil
	}
	return &l
}

// Recorder is a parse.Client that writes every notification as one JSON line.
// The first write error is kept and every later notification is ignored.
type Recorder struct {
	enc   *json.Encoder
	err   error
	count int
}

var _ parse.Client = (*Recorder)(nil)

// NewRecorder writes events to w.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{enc: json.NewEncoder(w)}
}

// Err returns the first write error, if any.
func (r *Recorder) Err() error { return r.err }

// Count returns how many events were written.
func (r *Recorder) Count() int { return r.count }

func (r *Recorder) write(rec record) {
	if r.err != nil {
		return
	}
	if err := r.enc.Encode(rec); err != nil {
		r.err = fmt.Errorf("record %s event: %w", rec.Event, err)
		return
	}
	r.count++
}

func (r *Recorder) OnTypedefParsed(loc parse.Location, fullName string, underlying parse.TypeUsage, access parse.AccessType) {
	r.write(record{Event: parse.EventTypedef, Location: loc, Name: fullName, Type: &underlying, Access: access})
}

func (r *Recorder) OnClassParsed(loc parse.Location, fullName string, access parse.AccessType, scope parse.Location) {
	r.write(record{Event: parse.EventClass, Location: loc, Name: fullName, Access: access, Scope: scopeOf(scope)})
}

func (r *Recorder) OnStructParsed(loc parse.Location, fullName string, access parse.AccessType, scope parse.Location) {
	r.write(record{Event: parse.EventStruct, Location: loc, Name: fullName, Access: access, Scope: scopeOf(scope)})
}

func (r *Recorder) OnGlobalVariableParsed(loc parse.Location, variable parse.Variable) {
	r.write(record{Event: parse.EventGlobalVariable, Location: loc, Variable: &variable})
}

func (r *Recorder) OnFieldParsed(loc parse.Location, variable parse.Variable, access parse.AccessType) {
	r.write(record{Event: parse.EventField, Location: loc, Variable: &variable, Access: access})
}

func (r *Recorder) OnFunctionParsed(loc parse.Location, function parse.Function, scope parse.Location) {
	r.write(record{Event: parse.EventFunction, Location: loc, Function: &function, Scope: scopeOf(scope)})
}

func (r *Recorder) OnMethodParsed(loc parse.Location, method parse.Function, access parse.AccessType, abstraction parse.AbstractionType, scope parse.Location) {
	r.write(record{
		Event:       parse.EventMethod,
		Location:    loc,
		Function:    &method,
		Access:      access,
		Abstraction: abstraction,
		Scope:       scopeOf(scope),
	})
}

func (r *Recorder) OnNamespaceParsed(loc parse.Location, fullName string, scope parse.Location) {
	r.write(record{Event: parse.EventNamespace, Location: loc, Name: fullName, Scope: scopeOf(scope)})
}

func (r *Recorder) OnEnumParsed(loc parse.Location, fullName string, access parse.AccessType, scope parse.Location) {
	r.write(record{Event: parse.EventEnum, Location: loc, Name: fullName, Access: access, Scope: scopeOf(scope)})
}

func (r *Recorder) OnEnumFieldParsed(loc parse.Location, fullName string) {
	r.write(record{Event: parse.EventEnumField, Location: loc, Name: fullName})
}

func (r *Recorder) OnInheritanceParsed(loc parse.Location, fullName, baseName string, access parse.AccessType) {
	r.write(record{Event: parse.EventInheritance, Location: loc, Name: fullName, BaseName: baseName, Access: access})
}

func (r *Recorder) OnCallParsed(loc parse.Location, c parse.Caller, callee parse.Function) {
	rec := record{Event: parse.EventCall, Location: loc, Callee: &callee, Caller: &caller{}}
	if c.Kind == parse.CallerVariable {
		rec.Caller.Variable = &c.Variable
	} else {
		rec.Caller.Function = &c.Function
	}
	r.write(rec)
}

func (r *Recorder) OnFieldUsageParsed(loc parse.Location, user parse.Function, usedName string) {
	r.write(record{Event: parse.EventFieldUsage, Location: loc, Function: &user, UsedName: usedName})
}

func (r *Recorder) OnGlobalVariableUsageParsed(loc parse.Location, user parse.Function, usedName string) {
	r.write(record{Event: parse.EventGlobalVariableUsage, Location: loc, Function: &user, UsedName: usedName})
}

// OnTypeUsageParsed stores the usage location both in Location and in Type.
func (r *Recorder) OnTypeUsageParsed(usage parse.TypeUsage, function parse.Function) {
	r.write(record{Event: parse.EventTypeUsage, Location: usage.Location, Type: &usage, Function: &function})
}
