package engine

import (
	"fmt"
	"strconv"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"

	"vellum/internal/docref"
	"vellum/internal/paged"
	"vellum/internal/source"
	"vellum/internal/typeset"
)

// OutlineEntry is a heading shown in the document outline.
type OutlineEntry struct {
	Level    int             `json:"level"`
	Title    string          `json:"title"`
	Position *SourcePosition `json:"position,omitempty"`
}

// LabelEntry is a label defined in the document.
type LabelEntry struct {
	Name     string          `json:"name"`
	Position *SourcePosition `json:"position,omitempty"`
}

// DocumentMetadata summarizes the structure of the snapshot. Fingerprint
// changes whenever the outline or the labels change.
type DocumentMetadata struct {
	Outline     []OutlineEntry `json:"outline"`
	Labels      []LabelEntry   `json:"labels"`
	Fingerprint uint64         `json:"fingerprint"`
}

// Metadata returns the outline and labels of the snapshot. Positions are set
// only for elements that come from the main buffer.
func (e *Engine) Metadata() (*DocumentMetadata, error) {
	if e.doc == nil {
		return nil, ErrInvalidState
	}
	meta := &DocumentMetadata{Outline: []OutlineEntry{}, Labels: []LabelEntry{}}
	h := xxhash.New()
	for _, el := range e.doc.Elements {
		// the first text of an element is where a jump to it should land
		span := el.Span
		if !el.TextSpan.IsDetached() {
			span = el.TextSpan
		}
		pos := e.spanPosition(span)
		if el.Label != "" {
			meta.Labels = append(meta.Labels, LabelEntry{Name: el.Label, Position: pos})
			_, _ = h.WriteString("L" + el.Label + positionKey(pos))
		}
		if el.Kind == paged.ElemHeading && el.Outlined {
			meta.Outline = append(meta.Outline, OutlineEntry{Level: el.Level, Title: el.Title, Position: pos})
			_, _ = h.WriteString("H" + strconv.Itoa(el.Level) + "\x00" + el.Title + positionKey(pos))
		}
	}
	meta.Fingerprint = h.Sum64()
	return meta, nil
}

func positionKey(pos *SourcePosition) string {
	if pos == nil {
		return "\x00-"
	}
	return fmt.Sprintf("\x00%d:%d\x00", pos.Line, pos.Column)
}

func (e *Engine) spanPosition(span source.Span) *SourcePosition {
	if span.File != e.host.Main() {
		return nil
	}
	main := e.host.MainSource()
	start, _, ok := main.Range(span)
	if !ok {
		return nil
	}
	pos, err := e.mainPosition(start)
	if err != nil {
		return nil
	}
	return &pos
}

// CountPageWords counts the words in the text runs of the zero-based page.
func (e *Engine) CountPageWords(index int) (int, error) {
	page, err := e.page(index)
	if err != nil {
		return 0, err
	}
	return countWords(page.Frame), nil
}

func countWords(f *paged.Frame) int {
	if f == nil {
		return 0
	}
	count := 0
	for _, it := range f.Items {
		switch v := it.Item.(type) {
		case *paged.Group:
			count += countWords(v.Frame)
		case *paged.Text:
			count += CountWords(v.Text)
		}
	}
	return count
}

// CountWords counts Unicode words (UAX #29 segments containing a letter or
// digit) in text after NFC normalization.
func CountWords(text string) int {
	text = norm.NFC.String(text)
	count := 0
	state := -1
	var word string
	for len(text) > 0 {
		word, text, state = uniseg.FirstWordInString(text, state)
		if isWord(word) {
			count++
		}
	}
	return count
}

func isWord(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}

// DefinitionLocation is where the symbol under the cursor is defined.
type DefinitionLocation struct {
	InStd    bool           `json:"inStd"`
	Position SourcePosition `json:"position"`
}

// Definition finds the definition of the symbol at line/column. Definitions
// outside the main buffer and the standard library are not reported.
func (e *Engine) Definition(line, column int) (DefinitionLocation, error) {
	main := e.host.MainSource()
	cursor, ok := main.LineColumnToByte(line, column)
	if !ok {
		return DefinitionLocation{}, fmt.Errorf("%w: %d:%d", ErrPositionOutOfRange, line, column)
	}
	definer, ok := e.backend.(typeset.Definer)
	if !ok {
		return DefinitionLocation{}, fmt.Errorf("definition %w", ErrNotFound)
	}
	def, ok := definer.Definition(e.host, e.doc, main, cursor)
	if !ok {
		return DefinitionLocation{}, fmt.Errorf("definition %w", ErrNotFound)
	}
	if def.InStd {
		return DefinitionLocation{InStd: true}, nil
	}
	pos := e.spanPosition(def.Span)
	if pos == nil {
		return DefinitionLocation{}, fmt.Errorf("definition %w", ErrNotFound)
	}
	return DefinitionLocation{Position: *pos}, nil
}

// Reference resolves the documentation page of the symbol at line/column.
func (e *Engine) Reference(line, column int) (docref.Reference, error) {
	main := e.host.MainSource()
	cursor, ok := main.LineColumnToByte(line, column)
	if !ok {
		return docref.Reference{}, fmt.Errorf("%w: %d:%d", ErrPositionOutOfRange, line, column)
	}
	ref, ok := e.docs.Resolve(e.host, main, cursor)
	if !ok {
		return docref.Reference{}, fmt.Errorf("reference %w", ErrNotFound)
	}
	return ref, nil
}
