package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"vellum/internal/version"
)

type versionOptions struct {
	format   string
	showHash bool
	showDate bool
}

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show vellum build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := readVersionOptions(cmd)
		if err != nil {
			return err
		}
		if opts.format == "json" {
			return renderVersionJSON(cmd.OutOrStdout(), opts)
		}
		renderVersionPretty(cmd.OutOrStdout(), opts)
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("hash", false, "include git commit hash")
	versionCmd.Flags().Bool("date", false, "include build timestamp")
	versionCmd.Flags().Bool("full", false, "show all recorded build metadata")
	versionCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

func readVersionOptions(cmd *cobra.Command) (versionOptions, error) {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return versionOptions{}, fmt.Errorf("failed to get format flag: %w", err)
	}
	hash, err := cmd.Flags().GetBool("hash")
	if err != nil {
		return versionOptions{}, fmt.Errorf("failed to get hash flag: %w", err)
	}
	date, err := cmd.Flags().GetBool("date")
	if err != nil {
		return versionOptions{}, fmt.Errorf("failed to get date flag: %w", err)
	}
	full, err := cmd.Flags().GetBool("full")
	if err != nil {
		return versionOptions{}, fmt.Errorf("failed to get full flag: %w", err)
	}

	opts := versionOptions{
		format:   strings.ToLower(strings.TrimSpace(format)),
		showHash: hash || full,
		showDate: date || full,
	}
	switch opts.format {
	case "pretty", "json":
	default:
		return versionOptions{}, fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
	return opts, nil
}

func renderVersionPretty(out io.Writer, opts versionOptions) {
	fmt.Fprintf(out, "vellum %s\n", version.Pretty())
	if opts.showHash {
		fmt.Fprintf(out, "commit: %s\n", valueOrUnknown(version.GitCommit))
	}
	if opts.showDate {
		fmt.Fprintf(out, "built:  %s\n", valueOrUnknown(version.BuildDate))
	}
}

func renderVersionJSON(out io.Writer, opts versionOptions) error {
	payload := versionPayload{Tool: "vellum", Version: version.String()}
	if opts.showHash {
		payload.GitCommit = valueOrUnknown(version.GitCommit)
	}
	if opts.showDate {
		payload.BuildDate = valueOrUnknown(version.BuildDate)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func valueOrUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}
