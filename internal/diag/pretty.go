package diag

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"vellum/internal/source"
)

// SourceLookup returns the source behind a display file name, if available.
type SourceLookup func(file string) (*source.Source, bool)

// PrettyLogger prints human-readable messages. When the source of a location
// is available the offending line is shown with a caret underline.
type PrettyLogger struct {
	mu     sync.Mutex
	w      io.Writer
	lookup SourceLookup

	errColor  *color.Color
	warnColor *color.Color
	noteColor *color.Color
	hintColor *color.Color
	gutter    *color.Color
}

// NewPrettyLogger writes to w. lookup may be nil.
func NewPrettyLogger(w io.Writer, lookup SourceLookup, useColor bool) *PrettyLogger {
	l := &PrettyLogger{
		w:         w,
		lookup:    lookup,
		errColor:  color.New(color.FgRed, color.Bold),
		warnColor: color.New(color.FgYellow, color.Bold),
		noteColor: color.New(color.FgCyan),
		hintColor: color.New(color.FgGreen),
		gutter:    color.New(color.FgBlue, color.Bold),
	}
	for _, c := range []*color.Color{l.errColor, l.warnColor, l.noteColor, l.hintColor, l.gutter} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return l
}

func (l *PrettyLogger) Note(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "%s %s\n", l.noteColor.Sprint("note:"), msg)
}

func (l *PrettyLogger) Warning(msg string, loc Location, hints []string) {
	l.report(l.warnColor.Sprint("warning:"), msg, loc, hints)
}

func (l *PrettyLogger) Error(msg string, loc Location, hints []string) {
	l.report(l.errColor.Sprint("error:"), msg, loc, hints)
}

func (l *PrettyLogger) report(label, msg string, loc Location, hints []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.w, "%s %s\n", label, msg)
	if loc.Known() {
		lineNo := strconv.FormatInt(loc.Start.Line+1, 10)
		pad := strings.Repeat(" ", len(lineNo))
		fmt.Fprintf(l.w, "%s%s %s:%d:%d\n", pad, l.gutter.Sprint("-->"), loc.File, loc.Start.Line+1, loc.Start.Column+1)
		if text, caret, ok := l.snippet(loc); ok {
			fmt.Fprintf(l.w, "%s %s\n", pad, l.gutter.Sprint("|"))
			fmt.Fprintf(l.w, "%s %s %s\n", l.gutter.Sprint(lineNo), l.gutter.Sprint("|"), text)
			fmt.Fprintf(l.w, "%s %s %s\n", pad, l.gutter.Sprint("|"), l.errColor.Sprint(caret))
		}
	}
	for _, h := range hints {
		fmt.Fprintf(l.w, "  %s %s\n", l.hintColor.Sprint("= hint:"), h)
	}
}

// snippet returns the first line of the location and a caret marker aligned
// to it by display width.
func (l *PrettyLogger) snippet(loc Location) (string, string, bool) {
	if l.lookup == nil {
		return "", "", false
	}
	src, ok := l.lookup(loc.File)
	if !ok {
		return "", "", false
	}
	line := int(loc.Start.Line)
	text := strings.TrimRight(src.Line(line), "\r\n")
	lineStart, ok := src.LineStart(line)
	if !ok {
		return "", "", false
	}
	start, ok := src.LineColumnToByte(line, int(loc.Start.Column))
	if !ok {
		return "", "", false
	}
	end := lineStart + len(text)
	if loc.End.Line == loc.Start.Line {
		if e, ok := src.LineColumnToByte(line, int(loc.End.Column)); ok && e >= start {
			end = min(e, end)
		}
	}
	startCol := start - lineStart
	endCol := max(end-lineStart, startCol)
	if startCol > len(text) {
		return "", "", false
	}

	indent := runewidth.StringWidth(text[:startCol])
	width := max(runewidth.StringWidth(text[startCol:endCol]), 1)
	return text, strings.Repeat(" ", indent) + strings.Repeat("^", width), true
}
