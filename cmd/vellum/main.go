package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"vellum/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "vellum",
	Short: "Editor session host for typeset documents",
	Long: `Vellum compiles typeset documents the way an editor session does: with a
sandboxed document root, cached packages, forward and inverse search and
page rendering. It also serves the session as JSON-RPC for editors.`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		setupLogging(cmd)
	},
	SilenceUsage: true,
}

// main registers the commands and global flags and runs the root command
// until it finishes or the process is interrupted.
func main() {
	rootCmd.Version = version.String()

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(packagesCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("config", "", "config file (default is $XDG_CONFIG_HOME/vellum/vellum.toml)")
	rootCmd.PersistentFlags().String("root", "", "document root (default is the directory of the document)")
	rootCmd.PersistentFlags().StringSlice("allow-path", nil, "additional read-only directory (repeatable)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("now", "", "simulated current time (RFC 3339 or YYYY-MM-DD; default is the wall clock)")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command) {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	// Using TextHandler for CLI friendliness
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
