package parse

import (
	"fmt"
	"strings"

	"github.com/dhamidi/offside/layout"
	"golang.org/x/exp/ebnf"
)

// Error is a syntax error at a token, or at the end of the input.
type Error struct {
	Token    layout.Token // offending token, or the last token when AtEnd
	AtEnd    bool
	Expected []string // terminals that would have been accepted
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.AtEnd {
		b.WriteString("parse error: unexpected end of input")
		if e.Token.Kind != "" {
			fmt.Fprintf(&b, " after %s", e.Token.Position)
		}
	} else {
		fmt.Fprintf(&b, "parse error at %s: unexpected %s", e.Token.Position, e.Token.Kind)
		if !e.Token.Synthetic() {
			fmt.Fprintf(&b, " %q", e.Token.Literal)
		}
	}
	if len(e.Expected) > 0 {
		fmt.Fprintf(&b, ", expected %s", strings.Join(e.Expected, " or "))
	}
	return b.String()
}

// Parser wraps EarleyParser with the settings needed for layout-normalized
// token streams.
type Parser struct {
	*EarleyParser
}

// NewParser creates a parser for the given grammar and tokens.
func NewParser(g ebnf.Grammar, tokens []layout.Token) *Parser {
	return &Parser{EarleyParser: NewEarleyParser(g, tokens)}
}

// ForNormalizer creates a parser that never skips the separators n emits.
func ForNormalizer(g ebnf.Grammar, tokens []layout.Token, n *layout.Normalizer) *Parser {
	p := NewParser(g, tokens)
	p.SetAlwaysAccept(n.AlwaysAccept()...)
	return p
}

// Parse parses starting from the given production.
func (p *Parser) Parse(startProduction string) (*Node, error) {
	return p.EarleyParser.ParseToCST(startProduction)
}
