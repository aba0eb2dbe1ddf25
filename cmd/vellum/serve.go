package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"vellum/internal/rpc"
)

var serveCmd = &cobra.Command{
	Use:          "serve",
	Short:        "Serve an editing session as JSON-RPC over stdio",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	g, err := loadGlobals(cmd)
	if err != nil {
		return err
	}
	server := rpc.NewServer(os.Stdin, os.Stdout, rpc.Options{
		Config: g.cfg,
		Slog:   slog.Default(),
		Now:    g.currentTime,
	})
	if err := server.Run(cmd.Context()); err != nil {
		if errors.Is(err, rpc.ErrExit) {
			return nil
		}
		if errors.Is(err, rpc.ErrExitWithoutShutdown) {
			return fmt.Errorf("rpc exit without shutdown")
		}
		return err
	}
	return nil
}
