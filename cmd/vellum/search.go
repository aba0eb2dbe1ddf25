package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vellum/internal/engine"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Map between source positions and page positions",
}

var forwardSearchCmd = &cobra.Command{
	Use:   "forward <file> <line> <column>",
	Short: "Show where the text at line:column ends up on the pages",
	Args:  cobra.ExactArgs(3),
	RunE:  runForwardSearch,
}

var inverseSearchCmd = &cobra.Command{
	Use:   "inverse <file> <page> <x> <y>",
	Short: "Show the source position behind a point on a page (points from the top left)",
	Args:  cobra.ExactArgs(4),
	RunE:  runInverseSearch,
}

func init() {
	searchCmd.AddCommand(forwardSearchCmd)
	searchCmd.AddCommand(inverseSearchCmd)
}

// parsePositive parses a one-based CLI number.
func parsePositive(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s %q (expected a number starting at 1)", name, value)
	}
	return n, nil
}

func compiledDocument(cmd *cobra.Command, file string) (*document, error) {
	g, err := loadGlobals(cmd)
	if err != nil {
		return nil, err
	}
	doc, err := openDocument(g, file, true)
	if err != nil {
		return nil, err
	}
	if _, err := doc.compile(cmd, g); err != nil {
		return nil, err
	}
	return doc, nil
}

func runForwardSearch(cmd *cobra.Command, args []string) error {
	line, err := parsePositive("line", args[1])
	if err != nil {
		return err
	}
	column, err := parsePositive("column", args[2])
	if err != nil {
		return err
	}
	doc, err := compiledDocument(cmd, args[0])
	if err != nil {
		return err
	}
	positions, err := doc.sess.Engine.ForwardSearch(line-1, column-1)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(positions) == 0 {
		fmt.Fprintln(out, "no match")
		return nil
	}
	for _, p := range positions {
		fmt.Fprintf(out, "page %d at (%.1f, %.1f)\n", p.Page+1, p.XPt, p.YPt)
	}
	return nil
}

func runInverseSearch(cmd *cobra.Command, args []string) error {
	page, err := parsePositive("page", args[1])
	if err != nil {
		return err
	}
	x, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid x %q: %w", args[2], err)
	}
	y, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return fmt.Errorf("invalid y %q: %w", args[3], err)
	}
	doc, err := compiledDocument(cmd, args[0])
	if err != nil {
		return err
	}
	pos, err := doc.sess.Engine.InverseSearch(engine.PreviewPosition{Page: page - 1, XPt: x, YPt: y})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d:%d\n", pos.Line+1, pos.Column+1)
	return nil
}
