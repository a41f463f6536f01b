package layout

import (
	"fmt"
	"io"
)

// Kind names a token type. Lexer grammars use their production names as kinds.
type Kind string

// EndKind is the kind of the synthetic token that stands for the end of input
// in diagnostics.
const EndKind Kind = "$END"

// Position represents a location in source code.
type Position struct {
	Filename string
	Offset   int
	Line     int
	Column   int
}

func (p Position) String() string {
	if p.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Token is a lexical token with its position. Columns are 1-based and
// EndColumn is the column just past the token's last character.
type Token struct {
	Kind      Kind
	Literal   string
	Position  Position
	EndColumn int
}

func (t Token) String() string {
	return fmt.Sprintf("%s %s %q", t.Position, t.Kind, t.Literal)
}

// Column returns the column the token starts at.
func (t Token) Column() int {
	return t.Position.Column
}

// Synthetic reports whether t carries no source text, as injected tokens do.
func (t Token) Synthetic() bool {
	return t.Literal == ""
}

func describeToken(t Token) string {
	if t.Kind == EndKind {
		return fmt.Sprintf("end of input at line %d, column %d", t.Position.Line, t.Position.Column)
	}
	return fmt.Sprintf("%s %q at line %d, column %d", t.Kind, t.Literal, t.Position.Line, t.Position.Column)
}

// synthesize borrows tok's position for an empty token of kind k. A positive
// level overrides the column so the token reports the level it stands for.
func synthesize(k Kind, tok Token, level int) Token {
	s := Token{
		Kind:      k,
		Position:  tok.Position,
		EndColumn: tok.EndColumn,
	}
	if level > 0 {
		s.Position.Column = level
		s.EndColumn = level
	}
	return s
}

// Source is an upstream token sequence. Next returns io.EOF once the
// sequence is exhausted.
type Source interface {
	Next() (Token, error)
}

type sliceSource struct {
	tokens []Token
}

// SliceSource returns a Source reading tokens from a slice.
func SliceSource(tokens []Token) Source {
	return &sliceSource{tokens: tokens}
}

func (s *sliceSource) Next() (Token, error) {
	if len(s.tokens) == 0 {
		return Token{}, io.EOF
	}
	tok := s.tokens[0]
	s.tokens = s.tokens[1:]
	return tok, nil
}
