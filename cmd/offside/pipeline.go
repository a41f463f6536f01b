package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dhamidi/offside/config"
	"github.com/dhamidi/offside/format"
	"github.com/dhamidi/offside/layout"
	"github.com/spf13/cobra"
	"golang.org/x/exp/ebnf"
)

// pipeline is a configured lexer grammar and normalizer.
type pipeline struct {
	project    *config.Project
	grammar    ebnf.Grammar
	normalizer *layout.Normalizer
}

// loadPipeline reads the configuration named by --config, or the one found
// next to filename, and applies --grammar.
func loadPipeline(cmd *cobra.Command, filename string) (*pipeline, error) {
	configPath, _ := cmd.Flags().GetString("config")
	grammarPath, _ := cmd.Flags().GetString("grammar")

	var (
		project *config.Project
		err     error
	)
	if configPath != "" {
		project, err = config.Load(configPath)
	} else {
		project, err = config.Find(filepath.Dir(filename))
	}
	if err != nil {
		return nil, err
	}
	if grammarPath != "" {
		project.Grammar = grammarPath
	}

	g, err := project.LoadGrammar()
	if err != nil {
		return nil, err
	}
	n, err := project.Normalizer()
	if err != nil {
		return nil, err
	}
	return &pipeline{project: project, grammar: g, normalizer: n}, nil
}

// normalize lexes and normalizes filename. On failure it returns the
// tokens produced before the error.
func (p *pipeline) normalize(filename string) ([]layout.Token, []byte, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("read source: %w", err)
	}
	lexer := p.project.NewLexer(p.grammar, src, filename)
	tokens, err := p.normalizer.Process(lexer).Collect()
	return tokens, src, err
}

// report prints err as a diagnostic when it is a layout or parse error and
// returns errReported in that case.
func report(cmd *cobra.Command, err error, src []byte) error {
	d, ok := format.FromError(err)
	if !ok {
		return err
	}
	if perr := format.NewDiagnosticPrinter(cmd.ErrOrStderr()).Print(d, src); perr != nil {
		return perr
	}
	return errReported
}
