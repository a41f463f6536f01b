// Package config loads layout configurations from YAML files.
//
// A configuration names the regular synthetic kinds, the implicit and named
// block openers, the lexer kinds to drop before normalization and,
// optionally, the grammar used to lex and parse source files:
//
//	regular: {indent: _INDENT, dedent: _DEDENT, separator: _NL}
//	implicit: {Where: at_next}
//	blocks:
//	  Let: {rule: at_next, closer: In, separator: _LET_SEP}
//	skip: [WhiteSpace, Comment]
//	grammar: let.ebnf
//	start: program
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/dhamidi/offside/ebnflex"
	"github.com/dhamidi/offside/layout"
	"github.com/goccy/go-yaml"
	"github.com/tliron/commonlog"
	"golang.org/x/exp/ebnf"
)

// DefaultName is the file Find looks for.
const DefaultName = "offside.yaml"

var log = commonlog.GetLogger("offside.config")

// Project is a loaded configuration.
type Project struct {
	Path    string // file the configuration was read from, if any
	Layout  layout.Config
	Skip    []layout.Kind
	Grammar string // grammar path, resolved against the config file's directory
	Start   string
}

type file struct {
	Regular  regularFile          `yaml:"regular"`
	Implicit map[string]string    `yaml:"implicit"`
	Blocks   map[string]blockFile `yaml:"blocks"`
	Skip     []string             `yaml:"skip"`
	Grammar  string               `yaml:"grammar"`
	Start    string               `yaml:"start"`
}

type regularFile struct {
	Indent    string `yaml:"indent"`
	Dedent    string `yaml:"dedent"`
	Separator string `yaml:"separator"`
}

type blockFile struct {
	Rule      string `yaml:"rule"`
	Closer    string `yaml:"closer"`
	Separator string `yaml:"separator"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	p.Path = path
	if p.Grammar != "" && !filepath.IsAbs(p.Grammar) {
		p.Grammar = filepath.Join(filepath.Dir(path), p.Grammar)
	}
	log.Debugf("loaded %s: %d implicit, %d block openers", path, len(p.Layout.Implicit), len(p.Layout.Blocks))
	return p, nil
}

// Find looks for DefaultName in dir and its parents and loads the first
// one found.
func Find(dir string) (*Project, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}

	for {
		candidate := filepath.Join(dir, DefaultName)
		if _, err := os.Stat(candidate); err == nil {
			return Load(candidate)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("could not read %q: %w", candidate, err)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, fmt.Errorf("could not find %s in %s or any parent directory", DefaultName, dir)
		}
		dir = parent
	}
}

// Parse decodes and validates a configuration. Unknown keys are errors.
func Parse(data []byte) (*Project, error) {
	var f file
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	p := &Project{
		Layout: layout.Config{
			Regular: layout.Regular{
				Indent:    layout.Kind(f.Regular.Indent),
				Dedent:    layout.Kind(f.Regular.Dedent),
				Separator: layout.Kind(f.Regular.Separator),
			},
			Implicit: make(map[layout.Kind]layout.LevelRule, len(f.Implicit)),
			Blocks:   make(map[layout.Kind]layout.BlockRule, len(f.Blocks)),
		},
		Grammar: f.Grammar,
		Start:   f.Start,
	}

	var errs []error
	for _, opener := range sortedKeys(f.Implicit) {
		rule, err := layout.ParseLevelRule(f.Implicit[opener])
		if err != nil {
			errs = append(errs, fmt.Errorf("implicit %s: %w", opener, err))
			continue
		}
		p.Layout.Implicit[layout.Kind(opener)] = rule
	}
	for _, opener := range sortedKeys(f.Blocks) {
		b := f.Blocks[opener]
		rule, err := layout.ParseLevelRule(b.Rule)
		if err != nil {
			errs = append(errs, fmt.Errorf("block %s: %w", opener, err))
			continue
		}
		p.Layout.Blocks[layout.Kind(opener)] = layout.BlockRule{
			Rule:      rule,
			Closer:    layout.Kind(b.Closer),
			Separator: layout.Kind(b.Separator),
		}
	}
	for _, k := range f.Skip {
		p.Skip = append(p.Skip, layout.Kind(k))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := p.Layout.Validate(); err != nil {
		return nil, err
	}
	for _, k := range p.Skip {
		if slices.Contains(p.Layout.AlwaysAccept(), k) {
			return nil, fmt.Errorf("skip: %s is a separator kind", k)
		}
	}
	return p, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Normalizer builds a normalizer for the configuration.
func (p *Project) Normalizer(opts ...layout.Option) (*layout.Normalizer, error) {
	return layout.New(p.Layout, opts...)
}

// LoadGrammar reads the configured grammar.
func (p *Project) LoadGrammar() (ebnf.Grammar, error) {
	if p.Grammar == "" {
		return nil, fmt.Errorf("no grammar configured")
	}
	return ebnflex.LoadGrammar(p.Grammar)
}

// NewLexer creates a lexer over src that drops the configured skip kinds.
func (p *Project) NewLexer(g ebnf.Grammar, src []byte, filename string) *ebnflex.Lexer {
	l := ebnflex.NewLexer(g, src, filename)
	l.SetSkipKinds(p.Skip...)
	return l
}
