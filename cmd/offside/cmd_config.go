package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/dhamidi/offside/config"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Layout configuration tools",
	}

	cmd.AddCommand(newConfigCheckCmd())

	return cmd
}

func newConfigCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a layout configuration and summarize it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := config.Load(args[0])
			if err != nil {
				printErrors(cmd, err)
				return errReported
			}

			w := cmd.OutOrStdout()
			r := project.Layout.Regular
			fmt.Fprintf(w, "regular\tindent=%s dedent=%s separator=%s\n", r.Indent, r.Dedent, r.Separator)
			for _, k := range slices.Sorted(maps.Keys(project.Layout.Implicit)) {
				fmt.Fprintf(w, "implicit\t%s\t%s\n", k, project.Layout.Implicit[k])
			}
			for _, k := range slices.Sorted(maps.Keys(project.Layout.Blocks)) {
				b := project.Layout.Blocks[k]
				fmt.Fprintf(w, "block\t%s\t%s\tcloser=%s separator=%s\n", k, b.Rule, b.Closer, b.Separator)
			}
			fmt.Fprintf(w, "accept\t%v\n", project.Layout.AlwaysAccept())
			if project.Grammar != "" {
				if _, err := project.LoadGrammar(); err != nil {
					return err
				}
				fmt.Fprintf(w, "grammar\t%s\n", project.Grammar)
			}
			return nil
		},
	}
}
