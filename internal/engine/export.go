package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vellum/internal/diag"
	"vellum/internal/observ"
	"vellum/internal/typeset"
)

// Format is an export target.
type Format uint8

const (
	FormatPDF Format = iota
	FormatPNG
	FormatPNGMulti
)

func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatPNGMulti:
		return "png-multi"
	default:
		return "pdf"
	}
}

// ParseFormat parses "pdf", "png" or "png-multi".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "pdf":
		return FormatPDF, nil
	case "png":
		return FormatPNG, nil
	case "png-multi":
		return FormatPNGMulti, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// DefaultDPI is used when ExportOptions.DPI is zero.
const DefaultDPI = 144

// DefaultPattern names per-page PNG files.
const DefaultPattern = "page-{n}.png"

// ExportOptions selects the format and its parameters.
type ExportOptions struct {
	Format Format
	// DPI is the raster resolution for PNG formats.
	DPI int
	// Pattern names files for FormatPNGMulti: {p} is the page number, {n}
	// the page number zero-padded to the width of the page count, {t} the
	// page count.
	Pattern string
	PDF     typeset.PDFOptions
}

// Export writes the snapshot to path (a directory for FormatPNGMulti). A
// failed write is logged with the display form of the path and reported as
// false without an error; errors are reserved for invalid requests.
func (e *Engine) Export(ctx context.Context, path string, opts ExportOptions) (bool, error) {
	if e.doc == nil {
		return false, ErrInvalidState
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	switch opts.Format {
	case FormatPDF:
		return e.exportPDF(path, opts.PDF)
	case FormatPNG:
		dpi, err := resolveDPI(opts.DPI)
		if err != nil {
			return false, err
		}
		return e.exportPNG(path, dpi), nil
	case FormatPNGMulti:
		dpi, err := resolveDPI(opts.DPI)
		if err != nil {
			return false, err
		}
		pattern := opts.Pattern
		if pattern == "" {
			pattern = DefaultPattern
		}
		return e.exportPNGMulti(ctx, path, pattern, dpi)
	}
	return false, fmt.Errorf("%w: %d", ErrUnsupportedFormat, opts.Format)
}

func resolveDPI(dpi int) (int, error) {
	if dpi == 0 {
		return DefaultDPI, nil
	}
	if dpi < 0 {
		return 0, fmt.Errorf("%w: dpi must be positive", ErrInvalidOptions)
	}
	return dpi, nil
}

func dpiToScale(dpi int) float64 { return float64(dpi) / 72 }

var pdfVersions = []string{"1.4", "1.5", "1.6", "1.7", "2.0"}

// pdfStandards maps PDF/A and PDF/UA identifiers to the PDF version they
// require; "" means any.
var pdfStandards = map[string]string{
	"a-1b": "1.4", "a-1a": "1.4",
	"a-2b": "1.7", "a-2u": "1.7", "a-2a": "1.7",
	"a-3b": "1.7", "a-3u": "1.7", "a-3a": "1.7",
	"a-4": "2.0", "a-4f": "2.0", "a-4e": "2.0",
	"ua-1": "",
}

// ValidatePDFOptions rejects unknown versions or standards and standards
// that conflict with the requested version.
func ValidatePDFOptions(opts typeset.PDFOptions) error {
	if opts.Version != "" {
		known := false
		for _, v := range pdfVersions {
			known = known || v == opts.Version
		}
		if !known {
			return fmt.Errorf("%w: unknown PDF version %q", ErrInvalidOptions, opts.Version)
		}
	}
	if opts.Standard == "" {
		return nil
	}
	required, ok := pdfStandards[opts.Standard]
	if !ok {
		return fmt.Errorf("%w: unknown PDF standard %q", ErrInvalidOptions, opts.Standard)
	}
	if required != "" && opts.Version != "" && required != opts.Version {
		return fmt.Errorf("%w: incompatible version and PDF/A standard", ErrInvalidOptions)
	}
	return nil
}

func (e *Engine) exportPDF(path string, opts typeset.PDFOptions) (bool, error) {
	exporter, ok := e.backend.(typeset.PDFExporter)
	if !ok {
		return false, fmt.Errorf("%w: pdf", ErrUnsupportedFormat)
	}
	if err := ValidatePDFOptions(opts); err != nil {
		return false, err
	}

	timer := observ.NewTimer()
	phase := timer.Begin("export")
	data, err := exporter.ExportPDF(e.doc, opts)
	elapsed := observ.FormatDuration(timer.End(phase, "pdf"))
	e.timings = timer.Report()
	if err != nil {
		var derr *typeset.DiagnosticError
		if errors.As(err, &derr) {
			e.logDiagnostics(derr.Diagnostics)
			return false, nil
		}
		return false, err
	}

	display := e.host.DisplayPath(path)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		e.writeFailed(display, err)
		return false, nil
	}
	e.logger.Note(fmt.Sprintf("PDF exported successfully to %s in %s", display, elapsed))
	return true, nil
}

func (e *Engine) exportPNG(path string, dpi int) bool {
	timer := observ.NewTimer()
	phase := timer.Begin("export")
	img := e.renderMerged(dpiToScale(dpi))
	display := e.host.DisplayPath(path)
	if err := writePNG(path, img); err != nil {
		timer.End(phase, "failed")
		e.timings = timer.Report()
		e.writeFailed(display, err)
		return false
	}
	elapsed := observ.FormatDuration(timer.End(phase, "png"))
	e.timings = timer.Report()
	e.logger.Note(fmt.Sprintf("PNG exported successfully to %s in %s", display, elapsed))
	return true
}

func (e *Engine) exportPNGMulti(ctx context.Context, dir, pattern string, dpi int) (bool, error) {
	timer := observ.NewTimer()
	phase := timer.Begin("export")
	total := len(e.doc.Pages)
	for _, page := range e.doc.Pages {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		img := e.backend.Render(page, dpiToScale(dpi))
		path := filepath.Join(dir, NamePattern(pattern, page.Number, total))
		if err := writePNG(path, img); err != nil {
			e.writeFailed(e.host.DisplayPath(path), err)
			return false, nil
		}
	}
	elapsed := observ.FormatDuration(timer.End(phase, "png-multi"))
	e.timings = timer.Report()
	e.logger.Note(fmt.Sprintf("PNG set exported successfully to %s in %s", e.host.DisplayPath(dir), elapsed))
	return true, nil
}

func (e *Engine) writeFailed(display string, err error) {
	e.logger.Error(fmt.Sprintf("Unable to write to %s: %v", display, err), diag.NoLocation, nil)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// NamePattern expands {p}, {n} and {t} in pattern.
func NamePattern(pattern string, page, total int) string {
	width := len(strconv.Itoa(max(total, 1)))
	padded := fmt.Sprintf("%0*d", width, page)
	return strings.NewReplacer(
		"{p}", strconv.Itoa(page),
		"{n}", padded,
		"{t}", strconv.Itoa(total),
	).Replace(pattern)
}
