package graph

import (
	"fmt"
	"log/slog"

	"github.com/abramin/symgraph/internal/parse"
)

// DiagnosticCode classifies a recoverable problem found while ingesting.
type DiagnosticCode string

const (
	// MalformedEvent: empty name or invalid location. The event is dropped.
	MalformedEvent DiagnosticCode = "malformed_event"
	// ConflictingQualifier: a later sighting disagrees with an informative
	// earlier one. The earlier value is kept.
	ConflictingQualifier DiagnosticCode = "conflicting_qualifier"
)

// Diagnostic describes one recoverable problem. Nothing reported here is fatal.
type Diagnostic struct {
	Code     DiagnosticCode `json:"code"`
	Event    string         `json:"event"`
	Name     string         `json:"name,omitempty"`
	Message  string         `json:"message"`
	Location parse.Location `json:"location"`
}

func (d Diagnostic) Error() string {
	if d.Name != "" {
		return fmt.Sprintf("[%s] %s %q: %s", d.Code, d.Event, d.Name, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Code, d.Event, d.Message)
}

// DiagnosticSink receives diagnostics as they are produced.
type DiagnosticSink interface {
	Report(d Diagnostic)
}

// DiagnosticSinkFunc adapts a function to DiagnosticSink.
type DiagnosticSinkFunc func(d Diagnostic)

// Report calls f(d).
func (f DiagnosticSinkFunc) Report(d Diagnostic) { f(d) }

type logSink struct {
	logger *slog.Logger
}

// LogSink writes each diagnostic as a warning.
func LogSink(logger *slog.Logger) DiagnosticSink {
	return &logSink{logger: logger}
}

func (s *logSink) Report(d Diagnostic) {
	s.logger.Warn("ingest diagnostic",
		"code", string(d.Code),
		"event", d.Event,
		"name", d.Name,
		"location", d.Location.String(),
		"message", d.Message,
	)
}
