package ui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vellum/internal/diag"
	"vellum/internal/source"
)

func newModel(t *testing.T) (*watchModel, chan Event) {
	t.Helper()
	events := make(chan Event, 4)
	m, ok := NewWatchModel("report.typ", events).(*watchModel)
	require.True(t, ok)
	return m, events
}

func TestWatchModelLifecycle(t *testing.T) {
	m, _ := newModel(t)
	assert.Contains(t, m.View(), "report.typ (waiting)")

	m.Update(eventMsg{Kind: EventChanged, File: "chapters/intro.typ"})
	assert.True(t, m.busy)
	assert.Contains(t, m.View(), "changed: chapters/intro.typ")

	m.Update(eventMsg{Kind: EventCompiling})
	assert.Contains(t, m.View(), "(compiling)")

	m.Update(eventMsg{
		Kind:    EventCompiled,
		Pages:   3,
		Elapsed: 12500 * time.Microsecond,
		Entries: []diag.Entry{{Kind: diag.KindNote, Message: "compiled successfully", Location: diag.NoLocation}},
	})
	view := m.View()
	assert.False(t, m.busy)
	assert.Contains(t, view, "report.typ (ok)")
	assert.Contains(t, view, "run 1: 3 pages in 12.5 ms")
	assert.Contains(t, view, "compiled successfully")
}

func TestWatchModelFailure(t *testing.T) {
	m, _ := newModel(t)
	loc := diag.Location{File: "MAIN", Start: source.LineCol{Line: 2, Column: 4}, End: source.LineCol{Line: 2, Column: 9}}
	entries := make([]diag.Entry, 0, maxEntries+2)
	entries = append(entries, diag.Entry{Kind: diag.KindError, Message: "unknown directive #bogus", Location: loc})
	for len(entries) < maxEntries+2 {
		entries = append(entries, diag.Entry{Kind: diag.KindWarning, Message: "empty heading", Location: diag.NoLocation})
	}

	m.Update(eventMsg{Kind: EventFailed, Pages: 0, Entries: entries})
	view := m.View()
	assert.Contains(t, view, "(failed)")
	assert.Contains(t, view, "run 1: 0 pages")
	assert.Contains(t, view, "MAIN:3:5: unknown directive #bogus")
	assert.Contains(t, view, "... and 2 more")
}

func TestWatchModelQuits(t *testing.T) {
	m, events := newModel(t)
	close(events)
	msg := m.listenForEvent()()
	assert.IsType(t, doneMsg{}, msg)

	_, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	assert.True(t, m.done)
	assert.Contains(t, m.View(), "stopped:")

	m2, _ := newModel(t)
	_, cmd = m2.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.True(t, m2.done)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "日本...", truncate("日本語のテキスト", 10))
}
