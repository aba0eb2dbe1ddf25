package source

import (
	"strings"

	"fortio.org/safecast"
)

// Source is a text file the compiler reads: its id, its text and an index of
// line starts kept up to date across edits.
type Source struct {
	id         FileID
	text       string
	lineStarts []int
}

// New creates a source for id holding text.
func New(id FileID, text string) *Source {
	return &Source{id: id, text: text, lineStarts: buildLineStarts(text)}
}

// ID returns the file id of the source.
func (s *Source) ID() FileID { return s.id }

// Text returns the full text.
func (s *Source) Text() string { return s.text }

// Len returns the length of the text in bytes.
func (s *Source) Len() int { return len(s.text) }

// LineCount returns the number of lines; an empty text has one line.
func (s *Source) LineCount() int { return len(s.lineStarts) }

// Replace swaps the whole text.
func (s *Source) Replace(text string) {
	s.text = text
	s.lineStarts = buildLineStarts(text)
}

// Edit replaces the byte range [start, end) with with. Both offsets must lie on
// character boundaries; otherwise the source is left untouched and false is
// returned. Line starts before the edit are kept, those after it are shifted.
func (s *Source) Edit(start, end int, with string) bool {
	if start > end || !isBoundary(s.text, start) || !isBoundary(s.text, end) {
		return false
	}
	s.text = s.text[:start] + with + s.text[end:]

	// Lines starting at or before start are unaffected.
	keep := lineOf(s.lineStarts, start) + 1
	delta := len(with) - (end - start)
	tail := s.lineStarts[keep:]
	firstTail := len(tail)
	for i, ls := range tail {
		if ls > end {
			firstTail = i
			break
		}
	}
	shifted := tail[firstTail:]

	starts := make([]int, 0, keep+strings.Count(with, "\n")+len(shifted))
	starts = append(starts, s.lineStarts[:keep]...)
	for i := 0; i < len(with); i++ {
		if with[i] == '\n' {
			starts = append(starts, start+i+1)
		}
	}
	for _, ls := range shifted {
		starts = append(starts, ls+delta)
	}
	s.lineStarts = starts
	return true
}

// UTF16ToByte converts a UTF-16 code unit index into a byte offset. An index
// that points into the middle of a surrogate pair maps to the following
// character. Indexes past the end of the text fail.
func (s *Source) UTF16ToByte(idx int) (int, bool) {
	if idx < 0 {
		return 0, false
	}
	units := 0
	for off, r := range s.text {
		if units >= idx {
			return off, true
		}
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
	}
	if units == idx {
		return len(s.text), true
	}
	return 0, false
}

// ByteToUTF16 converts a byte offset on a character boundary into a UTF-16
// code unit index.
func (s *Source) ByteToUTF16(off int) (int, bool) {
	if !isBoundary(s.text, off) {
		return 0, false
	}
	return utf16Len(s.text[:off]), true
}

// ByteToLine returns the zero-based line of a byte offset.
func (s *Source) ByteToLine(off int) (int, bool) {
	if off < 0 || off > len(s.text) {
		return 0, false
	}
	return lineOf(s.lineStarts, off), true
}

// ByteToColumn returns the zero-based UTF-16 column of a byte offset.
func (s *Source) ByteToColumn(off int) (int, bool) {
	line, ok := s.ByteToLine(off)
	if !ok || !isBoundary(s.text, off) {
		return 0, false
	}
	return utf16Len(s.text[s.lineStarts[line]:off]), true
}

// LineColumnToByte converts a zero-based line and UTF-16 column into a byte
// offset. The column may point at the end of the line but not past it.
func (s *Source) LineColumnToByte(line, column int) (int, bool) {
	if line < 0 || line >= len(s.lineStarts) || column < 0 {
		return 0, false
	}
	start := s.lineStarts[line]
	end := len(s.text)
	if line+1 < len(s.lineStarts) {
		end = s.lineStarts[line+1] - 1
	}
	units := 0
	for off, r := range s.text[start:end] {
		if units == column {
			return start + off, true
		}
		if units > column {
			return 0, false
		}
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
	}
	if units == column {
		return end, true
	}
	return 0, false
}

// LineCol converts a byte offset into a line/column pair.
func (s *Source) LineCol(off int) (LineCol, bool) {
	line, ok := s.ByteToLine(off)
	if !ok {
		return NoLineCol, false
	}
	col, ok := s.ByteToColumn(off)
	if !ok {
		return NoLineCol, false
	}
	return LineCol{Line: int64(line), Column: int64(col)}, true
}

// Range returns the byte range of span if it belongs to this source and lies
// within its text.
func (s *Source) Range(span Span) (start, end int, ok bool) {
	if span.File != s.id || span.Start > span.End {
		return 0, 0, false
	}
	length, err := safecast.Conv[uint32](len(s.text))
	if err != nil || span.End > length {
		return 0, 0, false
	}
	return int(span.Start), int(span.End), true
}

// Line returns the text of a zero-based line without its newline.
func (s *Source) Line(line int) string {
	if line < 0 || line >= len(s.lineStarts) {
		return ""
	}
	start := s.lineStarts[line]
	end := len(s.text)
	if line+1 < len(s.lineStarts) {
		end = s.lineStarts[line+1] - 1
	}
	return s.text[start:end]
}

// LineStart returns the byte offset where a zero-based line begins.
func (s *Source) LineStart(line int) (int, bool) {
	if line < 0 || line >= len(s.lineStarts) {
		return 0, false
	}
	return s.lineStarts[line], true
}

// SpanFor builds a span of this source from byte offsets.
func (s *Source) SpanFor(start, end int) Span {
	lo, err := safecast.Conv[uint32](start)
	if err != nil {
		return Detached()
	}
	hi, err := safecast.Conv[uint32](end)
	if err != nil {
		return Detached()
	}
	return Span{File: s.id, Start: lo, End: hi}
}
