package main

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"fortio.org/safecast"
	"github.com/spf13/cobra"

	"vellum/internal/engine"
)

var renderCmd = &cobra.Command{
	Use:   "render [flags] <file>",
	Short: "Compile a document and rasterize one page to PNG",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	renderCmd.Flags().StringP("out", "o", "", "output PNG file (required)")
	renderCmd.Flags().Int("page", 1, "page number, starting at 1")
	renderCmd.Flags().Float64("scale", 2, "pixels per point")
	renderCmd.Flags().Bool("dark", false, "render in dark mode")
	_ = renderCmd.MarkFlagRequired("out")
}

func runRender(cmd *cobra.Command, args []string) error {
	out, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("failed to get out flag: %w", err)
	}
	page, err := cmd.Flags().GetInt("page")
	if err != nil {
		return fmt.Errorf("failed to get page flag: %w", err)
	}
	scale, err := cmd.Flags().GetFloat64("scale")
	if err != nil {
		return fmt.Errorf("failed to get scale flag: %w", err)
	}
	if scale <= 0 {
		return fmt.Errorf("--scale must be positive")
	}
	dark, err := cmd.Flags().GetBool("dark")
	if err != nil {
		return fmt.Errorf("failed to get dark flag: %w", err)
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
	rendered, err := doc.sess.Engine.RenderPage(page-1, scale, dark)
	if err != nil {
		return err
	}
	img, err := toImage(rendered)
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode %s: %w", out, err)
	}
	return f.Close()
}

// toImage wraps the premultiplied pixels of a rendered page.
func toImage(p *engine.RenderedPage) (*image.RGBA, error) {
	w, err := safecast.Conv[int](p.WidthPx)
	if err != nil {
		return nil, err
	}
	h, err := safecast.Conv[int](p.HeightPx)
	if err != nil {
		return nil, err
	}
	return &image.RGBA{Pix: p.Pixels, Stride: 4 * w, Rect: image.Rect(0, 0, w, h)}, nil
}
