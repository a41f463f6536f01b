package main

import (
	"fmt"

	"github.com/dhamidi/offside/ebnf/parse"
	"github.com/dhamidi/offside/format"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	var (
		start        string
		outputFormat string
		printTree    bool
	)

	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Normalize a file and parse it with the configured grammar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]

			p, err := loadPipeline(cmd, filename)
			if err != nil {
				return err
			}
			if start == "" {
				start = p.project.Start
			}
			if start == "" {
				return fmt.Errorf("no start production: pass --start or set start in %s", p.project.Path)
			}

			tokens, src, err := p.normalize(filename)
			if err != nil {
				if src == nil {
					return err
				}
				return report(cmd, err, src)
			}

			parser := parse.ForNormalizer(p.grammar, tokens, p.normalizer)
			parser.SetSkipKinds(p.project.Skip...)
			node, err := parser.Parse(start)
			if err != nil {
				return report(cmd, err, src)
			}

			switch {
			case outputFormat == "json":
				if err := format.NewASTJSONEncoder(cmd.OutOrStdout()).Encode(node); err != nil {
					return fmt.Errorf("encode json: %w", err)
				}
			case printTree:
				if err := node.Dump(cmd.OutOrStdout()); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "start production (default: start from the configuration)")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "", "print the syntax tree in this format (json)")
	cmd.Flags().BoolVar(&printTree, "tree", false, "print the syntax tree as an outline")

	return cmd
}
