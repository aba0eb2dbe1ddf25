package source

import (
	"fmt"
)

// Span points at a byte range of a specific file. A span whose File is the
// zero FileID is detached and cannot be located.
type Span struct {
	File  FileID
	Start uint32 // в байтах включительно
	End   uint32 // в байтах не включительно
}

// Detached returns a span that belongs to no file.
func Detached() Span { return Span{} }

// IsDetached reports whether the span has no file.
func (s Span) IsDetached() bool { return s.File.IsZero() }

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	if s.IsDetached() {
		return "detached"
	}
	return fmt.Sprintf("%s:%d-%d", s.File, s.Start, s.End)
}

// Contains reports whether off lies inside the span (end inclusive, so a
// cursor just after the last byte still counts).
func (s Span) Contains(off uint32) bool {
	return off >= s.Start && off <= s.End
}
