package engine

import (
	"fmt"

	"vellum/internal/paged"
	"vellum/internal/typeset"
)

// PreviewPosition is a point on a page; Page is zero-based.
type PreviewPosition struct {
	Page int     `json:"page"`
	XPt  float64 `json:"xPt"`
	YPt  float64 `json:"yPt"`
}

// SourcePosition is a zero-based line and UTF-16 column in the main buffer.
type SourcePosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// ForwardSearch returns every page position rendered from the main buffer
// text at line/column, in the order the backend reports them.
func (e *Engine) ForwardSearch(line, column int) ([]PreviewPosition, error) {
	if e.doc == nil {
		return nil, ErrInvalidState
	}
	main := e.host.MainSource()
	cursor, ok := main.LineColumnToByte(line, column)
	if !ok {
		return nil, fmt.Errorf("%w: %d:%d", ErrPositionOutOfRange, line, column)
	}

	positions := e.backend.JumpFromCursor(e.doc, main, cursor)
	out := make([]PreviewPosition, 0, len(positions))
	for _, pos := range positions {
		out = append(out, PreviewPosition{Page: pos.Page - 1, XPt: pos.Point.X, YPt: pos.Point.Y})
	}
	return out, nil
}

// InverseSearch maps a click on a page back to the main buffer.
func (e *Engine) InverseSearch(pos PreviewPosition) (SourcePosition, error) {
	page, err := e.page(pos.Page)
	if err != nil {
		return SourcePosition{}, err
	}
	click := paged.Point{X: pos.XPt, Y: pos.YPt}
	jump, ok := e.backend.JumpFromClick(e.host, e.doc, page.Frame, click)
	if !ok {
		return SourcePosition{}, ErrJumpFailed
	}
	if jump.Kind != typeset.JumpFile || jump.File != e.host.Main() {
		return SourcePosition{}, ErrJumpNotApplicable
	}
	return e.mainPosition(jump.Offset)
}

func (e *Engine) mainPosition(offset int) (SourcePosition, error) {
	main := e.host.MainSource()
	line, ok := main.ByteToLine(offset)
	if !ok {
		return SourcePosition{}, ErrJumpNotApplicable
	}
	col, ok := main.ByteToColumn(offset)
	if !ok {
		return SourcePosition{}, ErrJumpNotApplicable
	}
	return SourcePosition{Line: line, Column: col}, nil
}
