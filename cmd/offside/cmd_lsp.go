package main

import (
	"github.com/dhamidi/offside/lsp"
	"github.com/spf13/cobra"
)

func newLSPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			server := lsp.NewLSPServer(version, configPath)
			return server.RunStdio()
		},
	}
}
