package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dhamidi/offside/format"
	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	var update bool

	cmd := &cobra.Command{
		Use:   "verify <file> <expected>",
		Short: "Compare the token listing of a file with a golden file",
		Long: `Normalize a file and compare its text token listing, as printed by
"offside tokens", with the expected listing. Differences are printed as a
line diff. A layout error is part of the listing, so golden files can
also pin down failures.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename, expectedPath := args[0], args[1]

			p, err := loadPipeline(cmd, filename)
			if err != nil {
				return err
			}
			tokens, src, normErr := p.normalize(filename)
			if src == nil && normErr != nil {
				return normErr
			}

			var actual bytes.Buffer
			enc := format.NewLineEncoder(&actual)
			enc.SetColor(false)
			if err := enc.Encode(tokens); err != nil {
				return fmt.Errorf("encode: %w", err)
			}
			if normErr != nil {
				fmt.Fprintf(&actual, "error: %s\n", normErr)
			}

			if update {
				if err := os.WriteFile(expectedPath, actual.Bytes(), 0o644); err != nil {
					return fmt.Errorf("write expected: %w", err)
				}
				return nil
			}

			expected, err := os.ReadFile(expectedPath)
			if err != nil {
				return fmt.Errorf("read expected: %w", err)
			}
			if bytes.Equal(expected, actual.Bytes()) {
				return nil
			}

			writeLineDiff(cmd.OutOrStdout(), string(expected), actual.String(), format.IsTerminal(cmd.OutOrStdout()))
			return fmt.Errorf("%s does not match %s", filename, expectedPath)
		},
	}

	cmd.Flags().BoolVar(&update, "update", false, "overwrite the expected file with the actual listing")

	return cmd
}

// writeLineDiff prints a line diff of want and got, marking removed lines
// with '-' and added lines with '+'.
func writeLineDiff(w io.Writer, want, got string, useColor bool) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(want, got)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	removed := color.New(color.FgRed)
	added := color.New(color.FgGreen)
	if useColor {
		removed.EnableColor()
		added.EnableColor()
	} else {
		removed.DisableColor()
		added.DisableColor()
	}

	fmt.Fprintln(w, "--- expected")
	fmt.Fprintln(w, "+++ actual")
	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			line = strings.TrimSuffix(line, "\n")
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				fmt.Fprintln(w, removed.Sprint("-"+line))
			case diffmatchpatch.DiffInsert:
				fmt.Fprintln(w, added.Sprint("+"+line))
			default:
				fmt.Fprintln(w, " "+line)
			}
		}
	}
}
