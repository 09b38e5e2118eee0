package events

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/abramin/symgraph/internal/parse"
)

// MaxLineSize bounds a single encoded event.
const MaxLineSize = 4 << 20

var (
	// ErrUnknownEvent marks a line whose event name is not part of the protocol.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrMissingField marks a line lacking a descriptor its event requires.
	ErrMissingField = errors.New("missing field")
)

// ReplayStats counts what a replay dispatched and skipped.
type ReplayStats struct {
	Events  int            `json:"events"`
	Skipped int            `json:"skipped"`
	ByEvent map[string]int `json:"by_event"`
}

// Replay decodes an event log from r and dispatches each line to client.
// Undecodable lines, lines longer than MaxLineSize and unknown events are
// counted as skipped; only read errors and context cancellation stop the
// replay.
func Replay(ctx context.Context, r io.Reader, client parse.Client) (ReplayStats, error) {
	stats := ReplayStats{ByEvent: make(map[string]int)}

	br := bufio.NewReaderSize(r, 64*1024)
	var buf []byte

	line := 0
	for {
		data, oversized, err := readLine(br, buf[:0])
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read event log at line %d: %w", line+1, err)
		}
		buf = data
		line++
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if oversized {
			stats.Skipped++
			continue
		}
		data = bytes.TrimSpace(data)
		if len(data) == 0 {
			continue
		}

		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			stats.Skipped++
			continue
		}
		if err := dispatch(rec, client); err != nil {
			stats.Skipped++
			continue
		}
		stats.Events++
		stats.ByEvent[rec.Event]++
	}
	return stats, nil
}

// readLine appends the next line of br to buf. A line longer than
// MaxLineSize is consumed to its end but not kept, and reported as oversized.
// io.EOF is returned only once no bytes remain.
func readLine(br *bufio.Reader, buf []byte) ([]byte, bool, error) {
	oversized := false
	read := false
	for {
		chunk, err := br.ReadSlice('\n')
		read = read || len(chunk) > 0
		if !oversized {
			if len(buf)+len(chunk) > MaxLineSize {
				oversized = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}

		switch {
		case err == nil:
			return buf, oversized, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && read:
			return buf, oversized, nil
		default:
			return buf, oversized, err
		}
	}
}

// ReplayBytes is Replay over an in-memory log.
func ReplayBytes(ctx context.Context, data []byte, client parse.Client) (ReplayStats, error) {
	return Replay(ctx, bytes.NewReader(data), client)
}

func dispatch(rec record, c parse.Client) error {
	scope := parse.Location{}
	if rec.Scope != nil {
		scope = *rec.Scope
	}

	switch rec.Event {
	case parse.EventTypedef:
		if rec.Type == nil {
			return fmt.Errorf("%s: type: %w", rec.Event, ErrMissingField)
		}
		c.OnTypedefParsed(rec.Location, rec.Name, *rec.Type, rec.Access)
	case parse.EventClass:
		c.OnClassParsed(rec.Location, rec.Name, rec.Access, scope)
	case parse.EventStruct:
		c.OnStructParsed(rec.Location, rec.Name, rec.Access, scope)
	case parse.EventNamespace:
		c.OnNamespaceParsed(rec.Location, rec.Name, scope)
	case parse.EventEnum:
		c.OnEnumParsed(rec.Location, rec.Name, rec.Access, scope)
	case parse.EventEnumField:
		c.OnEnumFieldParsed(rec.Location, rec.Name)
	case parse.EventGlobalVariable, parse.EventField:
		if rec.Variable == nil {
			return fmt.Errorf("%s: variable: %w", rec.Event, ErrMissingField)
		}
		if rec.Event == parse.EventField {
			c.OnFieldParsed(rec.Location, *rec.Variable, rec.Access)
		} else {
			c.OnGlobalVariableParsed(rec.Location, *rec.Variable)
		}
	case parse.EventFunction, parse.EventMethod:
		if rec.Function == nil {
			return fmt.Errorf("%s: function: %w", rec.Event, ErrMissingField)
		}
		if rec.Event == parse.EventMethod {
			c.OnMethodParsed(rec.Location, *rec.Function, rec.Access, rec.Abstraction, scope)
		} else {
			c.OnFunctionParsed(rec.Location, *rec.Function, scope)
		}
	case parse.EventInheritance:
		c.OnInheritanceParsed(rec.Location, rec.Name, rec.BaseName, rec.Access)
	case parse.EventCall:
		if rec.Caller == nil || rec.Callee == nil {
			return fmt.Errorf("%s: caller or callee: %w", rec.Event, ErrMissingField)
		}
		var from parse.Caller
		switch {
		case rec.Caller.Function != nil:
			from = parse.FunctionCaller(*rec.Caller.Function)
		case rec.Caller.Variable != nil:
			from = parse.VariableCaller(*rec.Caller.Variable)
		default:
			return fmt.Errorf("%s: caller: %w", rec.Event, ErrMissingField)
		}
		c.OnCallParsed(rec.Location, from, *rec.Callee)
	case parse.EventFieldUsage, parse.EventGlobalVariableUsage:
		if rec.Function == nil {
			return fmt.Errorf("%s: function: %w", rec.Event, ErrMissingField)
		}
		if rec.Event == parse.EventFieldUsage {
			c.OnFieldUsageParsed(rec.Location, *rec.Function, rec.UsedName)
		} else {
			c.OnGlobalVariableUsageParsed(rec.Location, *rec.Function, rec.UsedName)
		}
	case parse.EventTypeUsage:
		if rec.Type == nil || rec.Function == nil {
			return fmt.Errorf("%s: type or function: %w", rec.Event, ErrMissingField)
		}
		c.OnTypeUsageParsed(*rec.Type, *rec.Function)
	default:
		return fmt.Errorf("%q: %w", rec.Event, ErrUnknownEvent)
	}
	return nil
}
