package diag

import (
	"fmt"
	"strings"
)

// FormatShort renders entries one per line:
//
//	<file>:<line>:<col>: <kind>: <message>
//
// Lines and columns are one-based; entries without a location omit the
// position prefix. Hints follow on indented lines.
func FormatShort(entries []Entry, includeNotes bool) string {
	var b strings.Builder
	for _, e := range entries {
		if e.Kind == KindNote && !includeNotes {
			continue
		}
		if e.Location.Known() {
			fmt.Fprintf(&b, "%s:%d:%d: ", e.Location.File, e.Location.Start.Line+1, e.Location.Start.Column+1)
		}
		fmt.Fprintf(&b, "%s: %s\n", e.Kind, e.Message)
		for _, h := range e.Hints {
			fmt.Fprintf(&b, "  hint: %s\n", h)
		}
	}
	return b.String()
}
