package diag

import "vellum/internal/source"

// TracePoint is one step of the path that led to a diagnostic, e.g. the call
// site of a function or the import of a module.
type TracePoint struct {
	Span    source.Span
	Message string
}

type Diagnostic struct {
	Severity Severity
	Span     source.Span
	Message  string
	Trace    []TracePoint
	Hints    []string
}

// Spans returns the diagnostic's own span followed by its trace spans.
func (d Diagnostic) Spans() []source.Span {
	spans := make([]source.Span, 0, 1+len(d.Trace))
	spans = append(spans, d.Span)
	for _, t := range d.Trace {
		spans = append(spans, t.Span)
	}
	return spans
}

// Location is a localized diagnostic position. File is "" and both ends are
// source.NoLineCol when the position is unknown.
type Location struct {
	File  string
	Start source.LineCol
	End   source.LineCol
}

// NoLocation is the location of diagnostics that cannot be tied to a file.
var NoLocation = Location{Start: source.NoLineCol, End: source.NoLineCol}

// Known reports whether the location points into a file.
func (l Location) Known() bool {
	return l.File != "" && l.Start.Line >= 0
}
