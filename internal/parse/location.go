package parse

import (
	"errors"
	"fmt"
)

// ErrInvalidLocation is returned by Location.Validate for negative or inverted ranges.
var ErrInvalidLocation = errors.New("invalid location")

// Location is a line/column range inside a named source file.
// The zero value means "not observed".
type Location struct {
	File        string `json:"file,omitempty"`
	StartLine   int    `json:"start_line,omitempty"`
	StartColumn int    `json:"start_column,omitempty"`
	EndLine     int    `json:"end_line,omitempty"`
	EndColumn   int    `json:"end_column,omitempty"`
}

// IsEmpty reports whether the location carries no position at all.
func (l Location) IsEmpty() bool {
	return l == Location{}
}

// Validate checks that all fields are non-negative and that start <= end.
func (l Location) Validate() error {
	if l.StartLine < 0 || l.StartColumn < 0 || l.EndLine < 0 || l.EndColumn < 0 {
		return fmt.Errorf("%w: negative position in %s", ErrInvalidLocation, l)
	}
	if l.StartLine > l.EndLine || (l.StartLine == l.EndLine && l.StartColumn > l.EndColumn) {
		return fmt.Errorf("%w: start after end in %s", ErrInvalidLocation, l)
	}
	return nil
}

// Less orders locations by file, then start, then end.
func (l Location) Less(o Location) bool {
	if l.File != o.File {
		return l.File < o.File
	}
	if l.StartLine != o.StartLine {
		return l.StartLine < o.StartLine
	}
	if l.StartColumn != o.StartColumn {
		return l.StartColumn < o.StartColumn
	}
	if l.EndLine != o.EndLine {
		return l.EndLine < o.EndLine
	}
	return l.EndColumn < o.EndColumn
}

// String renders the location as file:sl:sc-el:ec.
func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d-%d:%d", l.File, l.StartLine, l.StartColumn, l.EndLine, l.EndColumn)
}
