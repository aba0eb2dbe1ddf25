package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"vellum/internal/diag"
	"vellum/internal/engine"
	"vellum/internal/version"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] <file>",
	Short: "Compile a document and report diagnostics",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompile,
}

func init() {
	compileCmd.Flags().String("format", "pretty", "output format (pretty|short|json|sarif)")
	compileCmd.Flags().Bool("with-notes", false, "include notes in short output")
}

type compileReport struct {
	File        string               `json:"file"`
	State       string               `json:"state"`
	Pages       []engine.PageSummary `json:"pages"`
	Diagnostics []jsonEntry          `json:"diagnostics"`
}

type jsonEntry struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	File    string   `json:"file,omitempty"`
	Line    int64    `json:"line,omitempty"`
	Column  int64    `json:"column,omitempty"`
	Hints   []string `json:"hints,omitempty"`
}

func toJSONEntries(entries []diag.Entry) []jsonEntry {
	out := make([]jsonEntry, 0, len(entries))
	for _, e := range entries {
		je := jsonEntry{Kind: e.Kind.String(), Message: e.Message, Hints: e.Hints}
		if e.Location.Known() {
			je.File = e.Location.File
			je.Line = e.Location.Start.Line + 1
			je.Column = e.Location.Start.Column + 1
		}
		out = append(out, je)
	}
	return out
}

// runCompile compiles the document once and prints the result in the
// selected format. It fails when the document does not compile.
func runCompile(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(format)
	switch format {
	case "pretty", "short", "json", "sarif":
		// supported
	default:
		return fmt.Errorf("unknown format %q (must be pretty, short, json or sarif)", format)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}

	g, err := loadGlobals(cmd)
	if err != nil {
		return err
	}
	doc, err := openDocument(g, args[0], format == "pretty")
	if err != nil {
		return err
	}
	pages, compileErr := doc.compile(cmd, g)
	if compileErr != nil && !errors.Is(compileErr, errCompileFailed) {
		return compileErr
	}

	out := cmd.OutOrStdout()
	switch format {
	case "pretty":
		printPages(out, pages)
	case "short":
		fmt.Fprint(out, diag.FormatShort(doc.log.Entries(), withNotes))
	case "json":
		report := compileReport{
			File:        args[0],
			State:       doc.sess.Engine.State().String(),
			Pages:       pages,
			Diagnostics: toJSONEntries(doc.log.Entries()),
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	case "sarif":
		if err := diag.WriteSARIF(out, doc.log.Entries(), version.String()); err != nil {
			return err
		}
	}
	return compileErr
}

func printPages(out io.Writer, pages []engine.PageSummary) {
	for _, p := range pages {
		fmt.Fprintf(out, "page %d: %.1f x %.1f pt (%016x)\n", p.Number, p.WidthPt, p.HeightPt, p.Fingerprint)
	}
}
