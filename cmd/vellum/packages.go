package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"vellum/internal/diag"
	"vellum/internal/pkgcache"
	"vellum/internal/session"
	"vellum/internal/source"
)

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "Inspect the package repository and the local package cache",
}

var packagesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the packages of the repository",
	Args:  cobra.NoArgs,
	RunE:  runPackagesList,
}

var packagesResolveCmd = &cobra.Command{
	Use:   "resolve <@namespace/name:version>",
	Short: "Download a package if needed and print its directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runPackagesResolve,
}

var packagesStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the local package cache",
	Args:  cobra.NoArgs,
	RunE:  runPackagesStats,
}

func init() {
	packagesListCmd.Flags().String("filter", "", "only show packages whose name contains this text")
	packagesListCmd.Flags().Bool("refresh", false, "download the package index even if it is cached")
	packagesCmd.AddCommand(packagesListCmd)
	packagesCmd.AddCommand(packagesResolveCmd)
	packagesCmd.AddCommand(packagesStatsCmd)
}

// packageSession opens a session without a document. Package notes go to
// stderr.
func packageSession(cmd *cobra.Command) (*session.Session, error) {
	g, err := loadGlobals(cmd)
	if err != nil {
		return nil, err
	}
	return session.Open(session.Options{
		Config: g.cfg,
		Logger: diag.NewPrettyLogger(os.Stderr, nil, g.color),
		Slog:   slog.Default(),
	}), nil
}

func runPackagesList(cmd *cobra.Command, _ []string) error {
	filter, err := cmd.Flags().GetString("filter")
	if err != nil {
		return fmt.Errorf("failed to get filter flag: %w", err)
	}
	refresh, err := cmd.Flags().GetBool("refresh")
	if err != nil {
		return fmt.Errorf("failed to get refresh flag: %w", err)
	}
	sess, err := packageSession(cmd)
	if err != nil {
		return err
	}
	if refresh {
		if err := sess.Proxy.DropIndex(); err != nil {
			return err
		}
	}
	listing, err := sess.World.Packages()
	if err != nil {
		return err
	}

	shown := make([]pkgcache.Listing, 0, len(listing))
	width := 0
	for _, l := range listing {
		if filter != "" && !strings.Contains(l.Spec.Name, filter) {
			continue
		}
		shown = append(shown, l)
		width = max(width, runewidth.StringWidth(l.Spec.String()))
	}
	out := cmd.OutOrStdout()
	for _, l := range shown {
		fmt.Fprintf(out, "%s  %s\n", runewidth.FillRight(l.Spec.String(), width), l.Description)
	}
	return nil
}

func runPackagesResolve(cmd *cobra.Command, args []string) error {
	spec, err := source.ParsePackageSpec(args[0])
	if err != nil {
		return err
	}
	sess, err := packageSession(cmd)
	if err != nil {
		return err
	}
	dir, err := sess.World.ResolvePackage(spec)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), dir)
	return nil
}

func runPackagesStats(cmd *cobra.Command, _ []string) error {
	sess, err := packageSession(cmd)
	if err != nil {
		return err
	}
	st, err := sess.Proxy.Stats()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "cache:    %s\n", sess.Proxy.CacheDir())
	fmt.Fprintf(out, "packages: %d\n", st.Packages)
	fmt.Fprintf(out, "versions: %d\n", st.Versions)
	fmt.Fprintf(out, "size:     %s\n", formatBytes(st.TotalSize))
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
