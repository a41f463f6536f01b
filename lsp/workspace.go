package lsp

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/dhamidi/offside/config"
	"github.com/dhamidi/offside/ebnf/parse"
	"github.com/dhamidi/offside/ebnflex"
	"github.com/dhamidi/offside/format"
	"github.com/dhamidi/offside/layout"
	"golang.org/x/exp/ebnf"
)

// Workspace holds open documents and the configurations that check them.
type Workspace struct {
	configPath string

	mu       sync.Mutex
	docs     map[string][]byte
	projects map[string]*loaded // by config file path
}

type loaded struct {
	project    *config.Project
	grammar    ebnf.Grammar
	normalizer *layout.Normalizer
}

// NewWorkspace creates a workspace. With an empty configPath every document
// is checked with the offside.yaml found next to it or in a parent
// directory.
func NewWorkspace(configPath string) *Workspace {
	return &Workspace{
		configPath: configPath,
		docs:       make(map[string][]byte),
		projects:   make(map[string]*loaded),
	}
}

// UpdateFile records the current content of path.
func (w *Workspace) UpdateFile(path string, content []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.docs[path] = content
}

// CloseFile forgets path.
func (w *Workspace) CloseFile(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.docs, path)
}

// GetFile returns the recorded content of path, or nil.
func (w *Workspace) GetFile(path string) []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.docs[path]
}

// Check lexes, normalizes and, when the configuration names a start
// production, parses the recorded content of path. It returns at most one
// diagnostic since every failure ends the check.
func (w *Workspace) Check(path string) ([]format.Diagnostic, error) {
	content := w.GetFile(path)
	if content == nil {
		return nil, fmt.Errorf("%s is not open", path)
	}

	l, err := w.load(path)
	if err != nil {
		return nil, err
	}

	lexer := l.project.NewLexer(l.grammar, content, path)
	tokens, err := l.normalizer.Process(lexer).Collect()
	if err != nil {
		if d, ok := format.FromError(err); ok {
			return []format.Diagnostic{d}, nil
		}
		return nil, err
	}

	for _, tok := range tokens {
		if tok.Kind == ebnflex.ErrorKind {
			return []format.Diagnostic{{
				Pos:       tok.Position,
				EndColumn: tok.EndColumn,
				Message:   fmt.Sprintf("unrecognized input %q", tok.Literal),
			}}, nil
		}
	}

	if l.project.Start == "" {
		return nil, nil
	}
	parser := parse.ForNormalizer(l.grammar, tokens, l.normalizer)
	parser.SetSkipKinds(l.project.Skip...)
	if _, err := parser.Parse(l.project.Start); err != nil {
		if d, ok := format.FromError(err); ok {
			return []format.Diagnostic{d}, nil
		}
		return nil, err
	}
	return nil, nil
}

func (w *Workspace) load(path string) (*loaded, error) {
	var (
		project *config.Project
		err     error
	)
	if w.configPath != "" {
		project, err = config.Load(w.configPath)
	} else {
		project, err = config.Find(filepath.Dir(path))
	}
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if l, ok := w.projects[project.Path]; ok {
		return l, nil
	}

	g, err := project.LoadGrammar()
	if err != nil {
		return nil, err
	}
	n, err := project.Normalizer(layout.WithLogger(log))
	if err != nil {
		return nil, err
	}
	l := &loaded{project: project, grammar: g, normalizer: n}
	w.projects[project.Path] = l
	log.Infof("using %s for %s", project.Path, path)
	return l, nil
}

// Invalidate drops cached configurations so edits to them take effect.
func (w *Workspace) Invalidate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.projects = make(map[string]*loaded)
}
