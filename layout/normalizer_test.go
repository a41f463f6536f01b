package layout

import (
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// tok builds a token on line with the given column; the end column follows
// from the literal.
func tok(kind Kind, literal string, line, col int) Token {
	return Token{
		Kind:      kind,
		Literal:   literal,
		Position:  Position{Line: line, Column: col},
		EndColumn: col + len(literal),
	}
}

func letConfig() Config {
	return Config{
		Regular: Regular{Indent: "_INDENT", Dedent: "_DEDENT", Separator: "_NL"},
		Blocks: map[Kind]BlockRule{
			"LET": {Rule: AtNext, Closer: "IN", Separator: "_LET_SEPARATOR"},
		},
	}
}

func implicitConfig(kind Kind, rule LevelRule) Config {
	return Config{
		Regular:  Regular{Indent: "_INDENT", Dedent: "_DEDENT", Separator: "_NL"},
		Implicit: map[Kind]LevelRule{kind: rule},
	}
}

func mustNew(t *testing.T, cfg Config) *Normalizer {
	t.Helper()
	n, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return n
}

func kinds(toks []Token) []Kind {
	out := make([]Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestNormalizeLetBlock(t *testing.T) {
	n := mustNew(t, letConfig())
	in := []Token{
		tok("LET", "let", 1, 1),
		tok("IDENT", "x", 2, 3),
		tok("IDENT", "y", 3, 3),
		tok("IN", "in", 4, 1),
	}

	out, err := n.Normalize(in)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	want := []Kind{"LET", "_LET_SEPARATOR", "IDENT", "_LET_SEPARATOR", "IDENT", "IN"}
	if diff := cmp.Diff(want, kinds(out)); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeImplicitAtNext(t *testing.T) {
	n := mustNew(t, implicitConfig("KW", AtNext))
	in := []Token{
		tok("KW", "where", 1, 1),
		tok("A", "a", 2, 3),
		tok("B", "b", 3, 3),
		tok("C", "c", 4, 3),
		tok("END", "end", 5, 1),
	}

	out, err := n.Normalize(in)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	want := []Kind{"KW", "_INDENT", "_NL", "A", "_NL", "B", "_NL", "C", "_DEDENT", "END"}
	if diff := cmp.Diff(want, kinds(out)); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}

	indent := out[1]
	if indent.Position.Column != 3 || indent.EndColumn != 3 || indent.Position.Line != 2 {
		t.Errorf("indent at %s (end %d), want line 2 column 3", indent.Position, indent.EndColumn)
	}
	if indent.Literal != "" {
		t.Errorf("indent literal = %q, want empty", indent.Literal)
	}
}

func TestNormalizeImplicitAtStart(t *testing.T) {
	n := mustNew(t, implicitConfig("ITEM", AtStart))
	in := []Token{
		tok("ITEM", "-", 1, 3),
		tok("A", "a", 1, 5),
		tok("B", "b", 2, 3),
	}

	out, err := n.Normalize(in)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	want := []Kind{"_INDENT", "_NL", "ITEM", "A", "_NL", "B", "_DEDENT"}
	if diff := cmp.Diff(want, kinds(out)); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeImplicitAtEnd(t *testing.T) {
	n := mustNew(t, implicitConfig("ARROW", AtEnd))
	in := []Token{
		tok("ARROW", "->", 1, 1),
		tok("A", "a", 2, 3),
		tok("B", "b", 3, 3),
		tok("C", "c", 4, 1),
	}

	out, err := n.Normalize(in)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	want := []Kind{"_INDENT", "_NL", "ARROW", "_NL", "A", "_NL", "B", "_DEDENT", "C"}
	if diff := cmp.Diff(want, kinds(out)); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeMultipleDedents(t *testing.T) {
	n := mustNew(t, implicitConfig("DO", AtNext))
	in := []Token{
		tok("DO", "do", 1, 1),
		tok("A", "a", 2, 3),
		tok("DO", "do", 3, 3),
		tok("B", "b", 4, 5),
		tok("C", "c", 5, 1),
	}

	out, err := n.Normalize(in)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	want := []Kind{
		"DO", "_INDENT", "_NL", "A",
		"_NL", "DO", "_INDENT", "_NL", "B",
		"_DEDENT", "_DEDENT", "C",
	}
	if diff := cmp.Diff(want, kinds(out)); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeContinuationLine(t *testing.T) {
	n := mustNew(t, implicitConfig("KW", AtNext))
	in := []Token{
		tok("KW", "where", 1, 1),
		tok("A", "a", 2, 3),
		tok("PLUS", "+", 3, 5),
		tok("B", "b", 4, 3),
	}

	out, err := n.Normalize(in)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	want := []Kind{"KW", "_INDENT", "_NL", "A", "PLUS", "_NL", "B", "_DEDENT"}
	if diff := cmp.Diff(want, kinds(out)); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeDedentsAtEndOfInput(t *testing.T) {
	n := mustNew(t, implicitConfig("KW", AtNext))
	in := []Token{
		tok("KW", "where", 1, 1),
		tok("A", "abc", 2, 3),
	}

	out, err := n.Normalize(in)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	last := out[len(out)-1]
	if last.Kind != "_DEDENT" {
		t.Fatalf("last kind = %s, want _DEDENT", last.Kind)
	}
	if last.Position.Line != 2 || last.Position.Column != 6 {
		t.Errorf("dedent at %s, want 2:6", last.Position)
	}
}

func TestNormalizeBlockSiblingsAndInlineClose(t *testing.T) {
	n := mustNew(t, letConfig())
	in := []Token{
		tok("LET", "let", 1, 1),
		tok("IDENT", "x", 1, 5),
		tok("EQ", "=", 1, 7),
		tok("NUM", "1", 1, 9),
		tok("IDENT", "y", 2, 5),
		tok("IN", "in", 2, 7),
		tok("IDENT", "x", 3, 1),
	}

	out, err := n.Normalize(in)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	want := []Kind{"LET", "_LET_SEPARATOR", "IDENT", "EQ", "NUM", "_LET_SEPARATOR", "IDENT", "IN", "IDENT"}
	if diff := cmp.Diff(want, kinds(out)); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeNestedBlockInsideImplicit(t *testing.T) {
	cfg := letConfig()
	cfg.Implicit = map[Kind]LevelRule{"WHERE": AtNext}
	n := mustNew(t, cfg)
	in := []Token{
		tok("WHERE", "where", 1, 1),
		tok("LET", "let", 2, 3),
		tok("IDENT", "a", 2, 7),
		tok("IN", "in", 3, 3),
		tok("IDENT", "b", 4, 3),
	}

	out, err := n.Normalize(in)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	want := []Kind{
		"WHERE", "_INDENT", "_NL", "LET", "_LET_SEPARATOR", "IDENT", "IN",
		"_NL", "IDENT", "_DEDENT",
	}
	if diff := cmp.Diff(want, kinds(out)); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name          string
		cfg           Config
		in            []Token
		kind          ErrorKind
		sentinel      error
		matchesCloser bool
	}{
		{
			name: "misaligned closer",
			cfg:  letConfig(),
			in: []Token{
				tok("LET", "let", 1, 1),
				tok("IDENT", "x", 1, 5),
				tok("IN", "in", 2, 3),
			},
			kind:          ExpectedCloseToken,
			sentinel:      ErrExpectedClose,
			matchesCloser: true,
		},
		{
			name: "dedent inside block",
			cfg:  letConfig(),
			in: []Token{
				tok("LET", "let", 1, 1),
				tok("IDENT", "x", 1, 5),
				tok("IDENT", "y", 2, 3),
			},
			kind:     ExpectedCloseToken,
			sentinel: ErrExpectedClose,
		},
		{
			name: "block never closed",
			cfg:  letConfig(),
			in: []Token{
				tok("LET", "let", 1, 1),
				tok("IDENT", "x", 1, 5),
				tok("IDENT", "y", 2, 5),
			},
			kind:     ExpectedCloseToken,
			sentinel: ErrExpectedClose,
		},
		{
			name: "opener at end of input",
			cfg:  letConfig(),
			in: []Token{
				tok("LET", "let", 1, 1),
			},
			kind:     ExpectedCloseToken,
			sentinel: ErrExpectedClose,
		},
		{
			name: "second level not deeper",
			cfg:  implicitConfig("DO", AtNext),
			in: []Token{
				tok("DO", "do", 1, 1),
				tok("A", "a", 2, 5),
				tok("DO", "do", 3, 5),
				tok("B", "b", 4, 3),
			},
			kind:     UnexpectedIndentRegular,
			sentinel: ErrUnexpectedIndentRegular,
		},
		{
			name: "block not deeper than enclosing level",
			cfg: func() Config {
				cfg := letConfig()
				cfg.Implicit = map[Kind]LevelRule{"WHERE": AtNext}
				return cfg
			}(),
			in: []Token{
				tok("WHERE", "where", 1, 1),
				tok("LET", "let", 2, 5),
				tok("IDENT", "x", 3, 3),
			},
			kind:     UnexpectedIndentBlock,
			sentinel: ErrUnexpectedIndentBlock,
		},
		{
			name: "first content at column zero",
			cfg:  implicitConfig("KW", AtNext),
			in: []Token{
				tok("KW", "module", 1, 1),
				tok("A", "a", 2, 0),
			},
			kind:     IndentationAtZero,
			sentinel: ErrIndentationAtZero,
		},
		{
			name: "content right of an at_start block",
			cfg: Config{
				Regular: Regular{Indent: "_INDENT", Dedent: "_DEDENT", Separator: "_NL"},
				Blocks: map[Kind]BlockRule{
					"DO": {Rule: AtStart, Closer: "END", Separator: "_DO_SEP"},
				},
			},
			in: []Token{
				tok("DO", "do", 1, 1),
				tok("A", "a", 1, 4),
			},
			kind:     UnexpectedIndent,
			sentinel: ErrUnexpectedIndent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := mustNew(t, tt.cfg)
			_, err := n.Normalize(tt.in)
			if err == nil {
				t.Fatal("Normalize succeeded, want error")
			}
			var lerr *Error
			if !errors.As(err, &lerr) {
				t.Fatalf("error %v is not a *Error", err)
			}
			if lerr.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", lerr.Kind, tt.kind)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.sentinel)
			}
			if lerr.MatchesCloser != tt.matchesCloser {
				t.Errorf("MatchesCloser = %v, want %v", lerr.MatchesCloser, tt.matchesCloser)
			}
		})
	}
}

func TestUnclosedBlockReportsEndOfInput(t *testing.T) {
	n := mustNew(t, letConfig())
	_, err := n.Normalize([]Token{
		tok("LET", "let", 1, 1),
		tok("IDENT", "x", 2, 3),
		tok("IDENT", "yy", 3, 3),
	})

	var lerr *Error
	if !errors.As(err, &lerr) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if lerr.Token.Kind != EndKind {
		t.Errorf("Token.Kind = %s, want %s", lerr.Token.Kind, EndKind)
	}
	if lerr.Token.Position.Line != 3 || lerr.Token.Position.Column != 5 {
		t.Errorf("end token at %s, want 3:5", lerr.Token.Position)
	}
	block, ok := lerr.Entry.(NamedBlock)
	if !ok {
		t.Fatalf("Entry = %T, want NamedBlock", lerr.Entry)
	}
	if block.Level != 3 || block.Opener.Kind != "LET" {
		t.Errorf("block = %+v, want LET at level 3", block)
	}
}

func TestStreamStopsAfterError(t *testing.T) {
	n := mustNew(t, letConfig())
	s := n.Process(SliceSource([]Token{
		tok("LET", "let", 1, 1),
		tok("IDENT", "x", 1, 5),
		tok("IDENT", "y", 2, 1),
		tok("IDENT", "z", 3, 1),
	}))

	var got []Kind
	var err error
	for {
		var next Token
		next, err = s.Next()
		if err != nil {
			break
		}
		got = append(got, next.Kind)
	}
	if !errors.Is(err, ErrExpectedClose) {
		t.Fatalf("err = %v, want ErrExpectedClose", err)
	}
	if diff := cmp.Diff([]Kind{"LET", "_LET_SEPARATOR", "IDENT"}, got); diff != "" {
		t.Errorf("tokens before error (-want +got):\n%s", diff)
	}
	if _, again := s.Next(); again != err {
		t.Errorf("second Next = %v, want the same error", again)
	}
}

type failingSource struct{ err error }

func (f failingSource) Next() (Token, error) { return Token{}, f.err }

func TestStreamPropagatesSourceErrors(t *testing.T) {
	n := mustNew(t, letConfig())
	boom := errors.New("boom")
	_, err := n.Process(failingSource{err: boom}).Next()
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

func TestEmptyStream(t *testing.T) {
	n := mustNew(t, letConfig())
	_, err := n.Process(SliceSource(nil)).Next()
	if err != io.EOF {
		t.Errorf("err = %v, want io.EOF", err)
	}
}

func TestNormalizeIsRepeatable(t *testing.T) {
	n := mustNew(t, implicitConfig("KW", AtNext))
	in := []Token{
		tok("KW", "where", 1, 1),
		tok("A", "a", 2, 3),
		tok("B", "b", 3, 3),
	}

	first, err := n.Normalize(in)
	if err != nil {
		t.Fatalf("first Normalize: %v", err)
	}
	second, err := n.Normalize(in)
	if err != nil {
		t.Fatalf("second Normalize: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("runs differ (-first +second):\n%s", diff)
	}
}

func TestStackLevelsIncrease(t *testing.T) {
	cfg := letConfig()
	cfg.Implicit = map[Kind]LevelRule{"DO": AtNext}
	n := mustNew(t, cfg)
	s := n.Process(SliceSource([]Token{
		tok("DO", "do", 1, 1),
		tok("A", "a", 2, 3),
		tok("LET", "let", 3, 3),
		tok("IDENT", "x", 3, 7),
		tok("DO", "do", 4, 7),
		tok("B", "b", 5, 9),
		tok("IN", "in", 6, 3),
		tok("C", "c", 7, 3),
	}))

	for {
		_, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		levels := s.stack.levels()
		for i := 1; i < len(levels); i++ {
			if levels[i] <= levels[i-1] {
				t.Fatalf("levels %v not strictly increasing", levels)
			}
		}
	}
}

func TestEverySiblingGetsOneSeparator(t *testing.T) {
	n := mustNew(t, implicitConfig("KW", AtNext))
	in := []Token{
		tok("KW", "where", 1, 1),
		tok("A", "a", 2, 3),
		tok("B", "b", 3, 3),
		tok("X", "x", 3, 5),
		tok("C", "c", 4, 3),
	}

	out, err := n.Normalize(in)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	for i, tk := range out {
		if tk.Synthetic() || tk.Position.Column != 3 {
			continue
		}
		if i == 0 || out[i-1].Kind != "_NL" {
			t.Errorf("%s not preceded by a separator", tk)
		}
		if i >= 2 && out[i-2].Kind == "_NL" {
			t.Errorf("%s preceded by two separators", tk)
		}
	}
}

func TestBalance(t *testing.T) {
	cfg := letConfig()
	cfg.Implicit = map[Kind]LevelRule{"DO": AtNext}
	n := mustNew(t, cfg)
	out, err := n.Normalize([]Token{
		tok("DO", "do", 1, 1),
		tok("A", "a", 2, 3),
		tok("DO", "do", 3, 3),
		tok("B", "b", 4, 5),
		tok("LET", "let", 5, 5),
		tok("IDENT", "x", 5, 9),
		tok("IN", "in", 6, 5),
		tok("C", "c", 7, 3),
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	var depth, lets int
	for _, tk := range out {
		switch tk.Kind {
		case "_INDENT":
			depth++
		case "_DEDENT":
			depth--
		case "LET":
			lets++
		case "IN":
			lets--
		}
		if depth < 0 || lets < 0 {
			t.Fatalf("unbalanced at %s", tk)
		}
	}
	if depth != 0 || lets != 0 {
		t.Errorf("depth = %d, lets = %d, want both 0", depth, lets)
	}
}
