package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"vellum/internal/engine"
	"vellum/internal/typeset"
)

var exportCmd = &cobra.Command{
	Use:   "export [flags] <file>",
	Short: "Compile a document and write it as PDF or PNG",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringP("out", "o", "", "output file, or directory for png-multi (required)")
	exportCmd.Flags().String("format", "pdf", "export format (pdf|png|png-multi)")
	exportCmd.Flags().Int("dpi", engine.DefaultDPI, "raster resolution for png formats")
	exportCmd.Flags().String("pattern", engine.DefaultPattern, "file name pattern for png-multi ({p}, {n}, {t})")
	exportCmd.Flags().String("pdf-version", "", "PDF version (1.4|1.5|1.6|1.7|2.0)")
	exportCmd.Flags().String("pdf-standard", "", "PDF standard, e.g. a-2b or ua-1")
	exportCmd.Flags().Bool("tagged", false, "write a tagged PDF")
	_ = exportCmd.MarkFlagRequired("out")
}

func runExport(cmd *cobra.Command, args []string) error {
	out, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("failed to get out flag: %w", err)
	}
	formatName, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format, err := engine.ParseFormat(formatName)
	if err != nil {
		return err
	}
	dpi, err := cmd.Flags().GetInt("dpi")
	if err != nil {
		return fmt.Errorf("failed to get dpi flag: %w", err)
	}
	pattern, err := cmd.Flags().GetString("pattern")
	if err != nil {
		return fmt.Errorf("failed to get pattern flag: %w", err)
	}
	pdfVersion, err := cmd.Flags().GetString("pdf-version")
	if err != nil {
		return fmt.Errorf("failed to get pdf-version flag: %w", err)
	}
	pdfStandard, err := cmd.Flags().GetString("pdf-standard")
	if err != nil {
		return fmt.Errorf("failed to get pdf-standard flag: %w", err)
	}
	tagged, err := cmd.Flags().GetBool("tagged")
	if err != nil {
		return fmt.Errorf("failed to get tagged flag: %w", err)
	}

	g, err := loadGlobals(cmd)
	if err != nil {
		return err
	}
	doc, err := openDocument(g, args[0], true)
	if err != nil {
		return err
	}
	if _, err := doc.compile(cmd, g); err != nil {
		return err
	}

	ok, err := doc.sess.Engine.Export(cmd.Context(), out, engine.ExportOptions{
		Format:  format,
		DPI:     dpi,
		Pattern: pattern,
		PDF:     typeset.PDFOptions{Version: pdfVersion, Standard: pdfStandard, Tagged: tagged},
	})
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("export failed")
	}
	return nil
}
