package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

// errReported is returned by commands that already printed their failure.
var errReported = errors.New("reported")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "offside:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		verbosity int
		logFile   string
	)

	rootCmd := &cobra.Command{
		Use:           "offside",
		Short:         "Normalize indentation-sensitive token streams",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			var path *string
			if logFile != "" {
				path = &logFile
			}
			commonlog.Configure(verbosity, path)
		},
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "log more (repeat for debug output)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")
	rootCmd.PersistentFlags().String("config", "", "layout configuration (default: offside.yaml in the file's directory or a parent)")
	rootCmd.PersistentFlags().String("grammar", "", "lexer grammar, overriding the configuration")

	rootCmd.AddCommand(newTokensCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newGrammarCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newLSPCmd())

	return rootCmd
}
