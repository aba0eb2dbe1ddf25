package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"vellum/internal/diag"
)

// EventKind is the phase a watch event reports.
type EventKind uint8

const (
	EventChanged EventKind = iota
	EventCompiling
	EventCompiled
	EventFailed
)

// Event is sent by the watcher for every step of a recompile.
type Event struct {
	Kind    EventKind
	File    string
	Pages   int
	Elapsed time.Duration
	// Entries are the session log entries of a finished compile.
	Entries []diag.Entry
}

type watchModel struct {
	title   string
	events  <-chan Event
	spinner spinner.Model
	prog    progress.Model
	status  string
	file    string
	runs    int
	pages   int
	elapsed time.Duration
	entries []diag.Entry
	width   int
	busy    bool
	done    bool
}

type eventMsg Event
type doneMsg struct{}

// maxEntries bounds the log lines shown below the header.
const maxEntries = 12

// NewWatchModel returns a Bubble Tea model that renders the state of a
// watched document. The model quits when events is closed.
func NewWatchModel(title string, events <-chan Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76 // Default width

	return &watchModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		status:  "waiting",
		width:   80,
	}
}

func (m *watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.done = true
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *watchModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := fmt.Sprintf("%s (%s)", m.title, m.status)
	switch {
	case m.done:
		header = "stopped: " + header
	case m.busy:
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	if m.runs > 0 {
		summary := fmt.Sprintf("  run %d: %s", m.runs, pluralPages(m.pages))
		if m.elapsed > 0 {
			summary += fmt.Sprintf(" in %.1f ms", float64(m.elapsed)/float64(time.Millisecond))
		}
		b.WriteString(summary)
		b.WriteString("\n")
	}
	if m.file != "" {
		b.WriteString("  changed: " + truncate(m.file, m.width-11))
		b.WriteString("\n")
	}

	kindWidth := 8
	msgWidth := m.width - kindWidth - 4
	if msgWidth < 20 {
		msgWidth = 20
	}
	shown := m.entries
	if len(shown) > maxEntries {
		shown = shown[:maxEntries]
	}
	for _, e := range shown {
		kind := styleKind(e.Kind).Render(fmt.Sprintf("%8s", e.Kind))
		fmt.Fprintf(&b, "  %s %s\n", kind, truncate(entryText(e), msgWidth))
	}
	if extra := len(m.entries) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "  ... and %d more\n", extra)
	}

	b.WriteString("\n")
	switch {
	case m.busy:
		b.WriteString(m.prog.View())
	case m.runs == 0:
		b.WriteString(m.prog.ViewAs(0))
	default:
		b.WriteString(m.prog.ViewAs(1.0))
	}
	b.WriteString("\n")
	return b.String()
}

func (m *watchModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *watchModel) applyEvent(ev Event) tea.Cmd {
	switch ev.Kind {
	case EventChanged:
		m.file = ev.File
		m.status = "changed"
		m.busy = true
		return m.prog.SetPercent(0.1)
	case EventCompiling:
		m.status = "compiling"
		m.busy = true
		return m.prog.SetPercent(0.5)
	case EventCompiled, EventFailed:
		m.runs++
		m.busy = false
		m.pages = ev.Pages
		m.elapsed = ev.Elapsed
		m.entries = ev.Entries
		m.status = "ok"
		if ev.Kind == EventFailed {
			m.status = "failed"
		}
		return m.prog.SetPercent(1.0)
	}
	return nil
}

func entryText(e diag.Entry) string {
	if !e.Location.Known() {
		return e.Message
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Location.File, e.Location.Start.Line+1, e.Location.Start.Column+1, e.Message)
}

func pluralPages(n int) string {
	if n == 1 {
		return "1 page"
	}
	return fmt.Sprintf("%d pages", n)
}

func styleKind(kind diag.Kind) lipgloss.Style {
	switch kind {
	case diag.KindError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case diag.KindWarning:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
