package lsp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dhamidi/offside/format"
	"github.com/dhamidi/offside/layout"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const testConfig = `
regular: {indent: _INDENT, dedent: _DEDENT, separator: _NL}
blocks:
  Let: {rule: at_next, closer: In, separator: _LET_SEP}
skip: [WhiteSpace]
grammar: let.ebnf
start: program
`

const testGrammar = `
program = expr .
expr = "let" bindings "in" expr | Identifier | Number .
bindings = { _LET_SEP binding } .
binding = Identifier "=" expr .

Let = "let" .
In = "in" .
Identifier = letter { letter } .
Number = digit { digit } .
Equals = "=" .
WhiteSpace = " " | "\n" .
letter = "a" … "z" .
digit = "0" … "9" .
`

func newTestWorkspace(t *testing.T) (*Workspace, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"offside.yaml": testConfig,
		"let.ebnf":     testGrammar,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return NewWorkspace(""), dir
}

func TestWorkspaceCheck(t *testing.T) {
	tests := []struct {
		name        string
		source      string
		wantMessage string // empty for a clean document
		wantLine    int
		wantColumn  int
	}{
		{
			name:   "valid",
			source: "let x = 1\n    y = 2\nin x",
		},
		{
			name:        "misaligned closer",
			source:      "let x = 1\n  in x",
			wantMessage: `unexpected indentation for In "in" at line 2, column 3`,
			wantLine:    2,
			wantColumn:  3,
		},
		{
			name:        "missing closer",
			source:      "let x = 1",
			wantMessage: "unexpected end of input",
			wantLine:    1,
		},
		{
			name:        "parse error",
			source:      "let x = 1\nin",
			wantMessage: "unexpected end of input",
			wantLine:    2,
			wantColumn:  3,
		},
		{
			name:        "unrecognized input",
			source:      "let x = ?\nin x",
			wantMessage: `unrecognized input "?"`,
			wantLine:    1,
			wantColumn:  9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, dir := newTestWorkspace(t)
			path := filepath.Join(dir, "main.let")
			w.UpdateFile(path, []byte(tt.source))

			diagnostics, err := w.Check(path)
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if tt.wantMessage == "" {
				if len(diagnostics) != 0 {
					t.Errorf("diagnostics = %+v, want none", diagnostics)
				}
				return
			}
			if len(diagnostics) != 1 {
				t.Fatalf("got %d diagnostics, want 1", len(diagnostics))
			}
			d := diagnostics[0]
			if !strings.HasPrefix(d.Message, tt.wantMessage) {
				t.Errorf("Message = %q, want prefix %q", d.Message, tt.wantMessage)
			}
			if d.Pos.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d", d.Pos.Line, tt.wantLine)
			}
			if tt.wantColumn != 0 && d.Pos.Column != tt.wantColumn {
				t.Errorf("Column = %d, want %d", d.Pos.Column, tt.wantColumn)
			}
		})
	}
}

func TestWorkspaceCheckUnopened(t *testing.T) {
	w, dir := newTestWorkspace(t)
	if _, err := w.Check(filepath.Join(dir, "missing.let")); err == nil {
		t.Error("Check of an unopened file succeeded, want error")
	}
}

func TestWorkspaceWithoutConfig(t *testing.T) {
	w := NewWorkspace(filepath.Join(t.TempDir(), "none.yaml"))
	w.UpdateFile("main.let", []byte("x"))
	if _, err := w.Check("main.let"); err == nil {
		t.Error("Check without a configuration succeeded, want error")
	}
}

func TestToProtocolDiagnostic(t *testing.T) {
	opener := layout.Token{
		Kind:      "Let",
		Literal:   "let",
		Position:  layout.Position{Line: 1, Column: 1},
		EndColumn: 4,
	}
	d := format.Diagnostic{
		Pos:       layout.Position{Line: 2, Column: 3},
		EndColumn: 5,
		Message:   "found",
		Note:      "expected",
		Related:   &opener,
	}

	pd := toProtocolDiagnostic("file:///main.let", d)

	want := protocol.Range{
		Start: protocol.Position{Line: 1, Character: 2},
		End:   protocol.Position{Line: 1, Character: 4},
	}
	if pd.Range != want {
		t.Errorf("Range = %+v, want %+v", pd.Range, want)
	}
	if pd.Message != "found\nexpected" {
		t.Errorf("Message = %q", pd.Message)
	}
	if pd.Severity == nil || *pd.Severity != protocol.DiagnosticSeverityError {
		t.Errorf("Severity = %v, want error", pd.Severity)
	}
	if len(pd.RelatedInformation) != 1 || pd.RelatedInformation[0].Location.Range.End.Character != 3 {
		t.Errorf("RelatedInformation = %+v", pd.RelatedInformation)
	}
}

func TestURIToPath(t *testing.T) {
	got, err := uriToPath("file:///home/user/my%20file.let")
	if err != nil {
		t.Fatalf("uriToPath: %v", err)
	}
	if got != "/home/user/my file.let" {
		t.Errorf("uriToPath = %q", got)
	}
}
