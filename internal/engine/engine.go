// Package engine orchestrates compilation for one editing session. It keeps
// the snapshot of the last successful compile and answers render, export and
// position-mapping requests against it.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"vellum/internal/diag"
	"vellum/internal/docref"
	"vellum/internal/observ"
	"vellum/internal/paged"
	"vellum/internal/source"
	"vellum/internal/typeset"
)

var (
	ErrInvalidState       = errors.New("invalid state")
	ErrPositionOutOfRange = errors.New("no such position")
	ErrNoSuchPage         = errors.New("no such page")
	ErrJumpNotApplicable  = errors.New("jump target not applicable")
	ErrJumpFailed         = errors.New("inverse search failed")
	ErrUnsupportedFormat  = errors.New("unsupported export format")
	ErrInvalidOptions     = errors.New("invalid options")
	ErrNotFound           = errors.New("not found")
)

// accessDeniedHints replace the compiler's hints on sandbox denials.
var accessDeniedHints = []string{
	"by default cannot read file outside of document's directory",
	"additional allowed paths can be set in compiler settings",
}

// evictAge bounds the compiler's memoization cache across recompiles.
const evictAge = 3

// Host is the session the engine compiles against.
type Host interface {
	typeset.World
	MainSource() *source.Source
	ResetCurrentDate(now string)
	DisplayPath(path string) string
	SetAllowedPaths(paths []string)
	DiscardCaches()
}

// State is the phase of the compile cycle.
type State uint8

const (
	StateIdle State = iota
	StateCompiling
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCompiling:
		return "compiling"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// PageSummary describes one page of a successful compile.
type PageSummary struct {
	Number      int     `json:"number"`
	WidthPt     float64 `json:"widthPt"`
	HeightPt    float64 `json:"heightPt"`
	Fingerprint uint64  `json:"fingerprint"`
}

// Engine drives compiles for a single session. It is not safe for
// concurrent use.
type Engine struct {
	host    Host
	backend typeset.Backend
	logger  diag.Logger
	docs    *docref.Resolver
	slog    *slog.Logger

	state   State
	doc     *paged.Document
	timings observ.Report
}

// Option configures an Engine.
type Option func(*Engine)

// WithDocs sets the resolver used by Reference.
func WithDocs(r *docref.Resolver) Option {
	return func(e *Engine) { e.docs = r }
}

// WithSlog sets the logger for internal debug output.
func WithSlog(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.slog = l
		}
	}
}

// New creates an engine in the idle state.
func New(host Host, backend typeset.Backend, logger diag.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = diag.Nop{}
	}
	e := &Engine{host: host, backend: backend, logger: logger, slog: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.docs == nil {
		intro, _ := backend.(typeset.Introspector)
		e.docs = docref.New(intro)
	}
	return e
}

// State returns the outcome of the last compile. Succeeded and Failed stay
// until the next Compile, which starts from either of them as from Idle.
// Idle is only reported before the first compile that ran.
func (e *Engine) State() State { return e.state }

// Document returns the current snapshot, or nil.
func (e *Engine) Document() *paged.Document { return e.doc }

// Timings returns the phase report of the last timed operation.
func (e *Engine) Timings() observ.Report { return e.timings }

// Compile runs one compile pass with now as the simulated current time.
// Diagnostics go to the logger. On failure the previous snapshot is dropped
// and an empty summary is returned. ctx is only checked before starting.
func (e *Engine) Compile(ctx context.Context, now string) []PageSummary {
	if err := ctx.Err(); err != nil {
		e.slog.Debug("compile skipped", "err", err)
		return []PageSummary{}
	}

	e.host.ResetCurrentDate(now)
	e.state = StateCompiling

	timer := observ.NewTimer()
	phase := timer.Begin("compile")
	res := e.backend.Compile(e.host)
	elapsed := observ.FormatDuration(timer.End(phase, ""))
	e.timings = timer.Report()

	if res.Document == nil {
		e.logDiagnostics(res.Errors)
		e.logDiagnostics(res.Warnings)
		e.logger.Note("compiled with errors in " + elapsed)
		e.doc = nil
		e.state = StateFailed
		return []PageSummary{}
	}

	e.logDiagnostics(res.Warnings)
	if len(res.Warnings) == 0 {
		e.logger.Note("compiled successfully in " + elapsed)
	} else {
		e.logger.Note("compiled with warnings in " + elapsed)
	}
	if ev, ok := e.backend.(typeset.Evictor); ok {
		ev.Evict(evictAge)
	}

	summaries := make([]PageSummary, 0, len(res.Document.Pages))
	for _, page := range res.Document.Pages {
		summaries = append(summaries, PageSummary{
			Number:      page.Number,
			WidthPt:     page.Frame.Width(),
			HeightPt:    page.Frame.Height(),
			Fingerprint: page.Fingerprint(),
		})
	}
	e.doc = res.Document
	e.state = StateSucceeded
	return summaries
}

func (e *Engine) logDiagnostics(diags []diag.Diagnostic) {
	for _, d := range diags {
		loc := e.Localize(d)
		hints := d.Hints
		if strings.Contains(d.Message, "(access denied)") {
			hints = accessDeniedHints
		}
		switch d.Severity {
		case diag.SevError:
			e.logger.Error(d.Message, loc, hints)
		default:
			e.logger.Warning(d.Message, loc, hints)
		}
	}
}

// Localize picks the first span of d (its own, then its trace) inside the
// main buffer, falling back to d's own span, and resolves it to a display
// location.
func (e *Engine) Localize(d diag.Diagnostic) diag.Location {
	span := d.Span
	main := e.host.Main()
	for _, s := range d.Spans() {
		if s.File == main {
			span = s
			break
		}
	}
	return e.spanLocation(span)
}

func (e *Engine) spanLocation(span source.Span) diag.Location {
	if span.IsDetached() {
		return diag.NoLocation
	}
	src, err := e.host.Source(span.File)
	if err != nil {
		return diag.NoLocation
	}
	start, end, ok := src.Range(span)
	if !ok {
		return diag.NoLocation
	}
	loc := diag.Location{File: span.File.DisplayName(), Start: source.NoLineCol, End: source.NoLineCol}
	if lc, ok := src.LineCol(start); ok {
		loc.Start = lc
	}
	if lc, ok := src.LineCol(end); ok {
		loc.End = lc
	}
	return loc
}

// SetAllowedPaths forwards to the host sandbox.
func (e *Engine) SetAllowedPaths(paths []string) { e.host.SetAllowedPaths(paths) }

// DiscardLookupCaches drops package roots and cached files so changed
// package settings take effect on the next compile.
func (e *Engine) DiscardLookupCaches() { e.host.DiscardCaches() }
