// Package observ measures how long session operations take.
package observ

import (
	"fmt"
	"strings"
	"time"
)

// Phase is one measured step of an operation (compile, render, export).
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer records phases in the order they were started. The zero value is
// ready to use; Timer is not safe for concurrent use.
type Timer struct {
	phases []Phase
	now    func() time.Time
}

// NewTimer creates a Timer reading the wall clock.
func NewTimer() *Timer { return NewTimerWithClock(time.Now) }

// NewTimerWithClock creates a Timer reading now instead of the wall clock.
func NewTimerWithClock(now func() time.Time) *Timer {
	return &Timer{phases: make([]Phase, 0, 4), now: now}
}

func (t *Timer) clock() time.Time {
	if t.now != nil {
		return t.now()
	}
	return time.Now()
}

// Begin starts a phase and returns its handle for End.
func (t *Timer) Begin(name string) int {
	t.phases = append(t.phases, Phase{Name: name, Start: t.clock()})
	return len(t.phases) - 1
}

// End stops the phase idx and attaches note. Unknown handles are ignored.
func (t *Timer) End(idx int, note string) time.Duration {
	if idx < 0 || idx >= len(t.phases) {
		return 0
	}
	p := &t.phases[idx]
	p.Dur = t.clock().Sub(p.Start)
	p.Note = note
	return p.Dur
}

// Total is the sum of all finished phases.
func (t *Timer) Total() time.Duration {
	var total time.Duration
	for _, p := range t.phases {
		total += p.Dur
	}
	return total
}

// Summary renders the phases as an aligned table for terminal output.
func (report Report) Summary() string {
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(&b, "  %-12s %9.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			b.WriteString("  // " + p.Note)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  %-12s %9.2f ms\n", "total", report.TotalMS)
	return b.String()
}

// PhaseReport — сериализуемое описание одной фазы.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report — агрегированные данные таймера.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report snapshots the recorded phases.
func (t *Timer) Report() Report {
	if len(t.phases) == 0 {
		return Report{}
	}
	report := Report{Phases: make([]PhaseReport, len(t.phases))}
	for i, p := range t.phases {
		report.Phases[i] = PhaseReport{Name: p.Name, DurationMS: millis(p.Dur), Note: p.Note}
	}
	report.TotalMS = millis(t.Total())
	return report
}

// FormatDuration renders d with two decimals in the largest fitting unit,
// e.g. "12.34ms" or "1.50s".
func FormatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.2fms", millis(d))
	case d >= time.Microsecond:
		return fmt.Sprintf("%.2fµs", float64(d)/float64(time.Microsecond))
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
