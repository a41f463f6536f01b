package main

import (
	"fmt"

	"github.com/dhamidi/offside/format"
	"github.com/spf13/cobra"
)

func newTokensCmd() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "tokens <file>",
		Short: "Print the normalized token stream of a file",
		Long: `Lex a file with the configured grammar, run it through the layout
normalizer and print the resulting tokens, synthetic ones included.
Tokens produced before a layout error are printed before the error.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]

			encoder, err := format.NewEncoder(outputFormat, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			p, err := loadPipeline(cmd, filename)
			if err != nil {
				return err
			}

			tokens, src, normErr := p.normalize(filename)
			if src == nil && normErr != nil {
				return normErr
			}
			if err := encoder.Encode(tokens); err != nil {
				return fmt.Errorf("encode: %w", err)
			}
			if normErr != nil {
				return report(cmd, normErr, src)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "output format (text, json)")

	return cmd
}
