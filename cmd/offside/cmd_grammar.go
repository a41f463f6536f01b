package main

import (
	"fmt"
	"os"
	"reflect"

	"github.com/dhamidi/offside/config"
	"github.com/dhamidi/offside/ebnf/parse"
	"github.com/dhamidi/offside/ebnflex"
	"github.com/dhamidi/offside/layout"
	"github.com/spf13/cobra"
	"golang.org/x/exp/ebnf"
)

func newGrammarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grammar",
		Short: "EBNF grammar tools",
	}

	cmd.AddCommand(newGrammarCheckCmd())

	return cmd
}

func newGrammarCheckCmd() *cobra.Command {
	var startProduction string

	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Parse and verify an EBNF grammar file",
		Long: `Parse a grammar file and verify its token productions. With a start
production, also check that the parser productions it reaches only use
token kinds the grammar defines or the layout configuration injects.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]

			f, err := os.Open(filename)
			if err != nil {
				return fmt.Errorf("open file: %w", err)
			}
			defer f.Close()

			grammar, err := ebnf.Parse(filename, f)
			if err != nil {
				printErrors(cmd, err)
				return errReported
			}

			if err := ebnflex.Check(grammar); err != nil {
				printErrors(cmd, err)
				return errReported
			}

			if startProduction == "" {
				return nil
			}

			var known []layout.Kind
			if configPath, _ := cmd.Flags().GetString("config"); configPath != "" {
				project, err := config.Load(configPath)
				if err != nil {
					return err
				}
				known = project.Layout.SyntheticKinds()
			}
			if err := parse.Check(grammar, startProduction, known...); err != nil {
				printErrors(cmd, err)
				return errReported
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&startProduction, "start", "", "parser start production (if empty, only token productions are checked)")

	return cmd
}

// printErrors prints one line per error of a joined or listed error.
func printErrors(cmd *cobra.Command, err error) {
	w := cmd.ErrOrStderr()
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			printErrors(cmd, e)
		}
		return
	}
	v := reflect.ValueOf(err)
	if v.Kind() == reflect.Slice {
		for i := 0; i < v.Len(); i++ {
			fmt.Fprintln(w, v.Index(i).Interface())
		}
	} else {
		fmt.Fprintln(w, err)
	}
}
