// Package ebnflex provides lexical scanning based on EBNF grammars.
package ebnflex

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/dhamidi/offside/layout"
	"github.com/tliron/commonlog"
	"golang.org/x/exp/ebnf"
)

// ErrorKind is the kind of tokens emitted for bytes no production matches.
const ErrorKind layout.Kind = "ERROR"

var log = commonlog.GetLogger("offside.ebnflex")

// memoKey is used for memoization of match results.
type memoKey struct {
	name   string
	offset int
}

// Lexer tokenizes input based on an EBNF grammar. Productions whose name
// starts with an uppercase letter are token kinds; when two of them match
// the same length, the one declared first in the grammar wins.
type Lexer struct {
	grammar  ebnf.Grammar
	kinds    []string
	skip     map[layout.Kind]bool
	input    []byte
	filename string
	pos      int
	line     int
	column   int
	memo     map[memoKey]int  // memoization cache: key -> match length (-1 = no match)
	visiting map[memoKey]bool // cycle detection
}

// NewLexer creates a lexer for the given grammar and input.
func NewLexer(grammar ebnf.Grammar, input []byte, filename string) *Lexer {
	return &Lexer{
		grammar:  grammar,
		kinds:    tokenProductions(grammar),
		skip:     make(map[layout.Kind]bool),
		input:    input,
		filename: filename,
		pos:      0,
		line:     1,
		column:   1,
		memo:     make(map[memoKey]int),
		visiting: make(map[memoKey]bool),
	}
}

// tokenProductions lists the uppercase productions in declaration order.
func tokenProductions(grammar ebnf.Grammar) []string {
	var names []string
	for name, prod := range grammar {
		if prod.Expr == nil {
			continue
		}
		if len(name) == 0 || name[0] < 'A' || name[0] > 'Z' {
			continue // Skip non-terminal productions (lowercase)
		}
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		return grammar[a].Pos().Offset - grammar[b].Pos().Offset
	})
	return names
}

// LoadGrammar loads an EBNF grammar from a file.
func LoadGrammar(filename string) (ebnf.Grammar, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open grammar: %w", err)
	}
	defer f.Close()

	grammar, err := ebnf.Parse(filename, f)
	if err != nil {
		return nil, fmt.Errorf("parse grammar: %w", err)
	}

	return grammar, nil
}

// SetSkipKinds sets which token kinds Next drops, typically whitespace and
// comments.
func (l *Lexer) SetSkipKinds(kinds ...layout.Kind) {
	l.skip = make(map[layout.Kind]bool)
	for _, k := range kinds {
		l.skip[k] = true
	}
}

// Position returns the current position in the input.
func (l *Lexer) Position() layout.Position {
	return layout.Position{
		Filename: l.filename,
		Offset:   l.pos,
		Line:     l.line,
		Column:   l.column,
	}
}

func (l *Lexer) advance() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	ch := l.input[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return ch
}

// Next returns the next token that is not skipped, or io.EOF at the end of
// the input.
func (l *Lexer) Next() (layout.Token, error) {
	for {
		tok, err := l.NextToken()
		if err != nil {
			return tok, err
		}
		if !l.skip[tok.Kind] {
			return tok, nil
		}
	}
}

// NextToken returns the next token from the input, skipped kinds included.
// It tries each token production and returns the longest match.
func (l *Lexer) NextToken() (layout.Token, error) {
	if l.pos >= len(l.input) {
		return layout.Token{}, io.EOF
	}

	startPos := l.Position()
	startOffset := l.pos

	// Clear memoization cache for each new token (positions change)
	l.memo = make(map[memoKey]int)

	var bestKind string
	var bestLen int

	for _, name := range l.kinds {
		l.visiting = make(map[memoKey]bool)
		matchLen := l.tryMatch(l.grammar[name].Expr, startOffset, name)
		if matchLen > bestLen {
			bestLen = matchLen
			bestKind = name
		}
	}

	if bestLen == 0 {
		// No match - emit single character as error token
		ch := l.advance()
		log.Debugf("no token matches %q at %s", ch, startPos)
		return layout.Token{
			Kind:      ErrorKind,
			Literal:   string(ch),
			Position:  startPos,
			EndColumn: startPos.Column + 1,
		}, nil
	}

	for i := 0; i < bestLen; i++ {
		l.advance()
	}

	return layout.Token{
		Kind:      layout.Kind(bestKind),
		Literal:   string(l.input[startOffset : startOffset+bestLen]),
		Position:  startPos,
		EndColumn: endColumn(startPos.Column, l.input[startOffset:startOffset+bestLen]),
	}, nil
}

// endColumn is the column just past the last character of text when it
// starts at col. Text spanning lines ends on its last line.
func endColumn(col int, text []byte) int {
	for _, ch := range text {
		if ch == '\n' {
			col = 1
		} else {
			col++
		}
	}
	return col
}

// tryMatch attempts to match an expression at the given offset.
// Returns the length of the match, or 0 if no match.
func (l *Lexer) tryMatch(expr ebnf.Expression, offset int, context string) int {
	switch e := expr.(type) {
	case *ebnf.Token:
		return l.tryMatchToken(e.String, offset)

	case *ebnf.Range:
		return l.tryMatchRange(e.Begin.String, e.End.String, offset)

	case ebnf.Sequence:
		total := 0
		pos := offset
		for _, item := range e {
			n := l.tryMatch(item, pos, context)
			if n == 0 && !nullable(item) {
				return 0
			}
			total += n
			pos += n
		}
		return total

	case ebnf.Alternative:
		best := 0
		for _, alt := range e {
			n := l.tryMatch(alt, offset, context)
			if n > best {
				best = n
			}
		}
		return best

	case *ebnf.Repetition:
		total := 0
		pos := offset
		for {
			n := l.tryMatch(e.Body, pos, context)
			if n == 0 {
				break
			}
			total += n
			pos += n
		}
		return total

	case *ebnf.Option:
		// Option always succeeds (returns 0 if body doesn't match)
		return l.tryMatch(e.Body, offset, context)

	case *ebnf.Group:
		return l.tryMatch(e.Body, offset, context)

	case *ebnf.Name:
		return l.tryMatchName(e.String, offset)

	default:
		return 0
	}
}

// nullable reports whether expr may match the empty string, so a zero
// length match inside a sequence is not a failure.
func nullable(expr ebnf.Expression) bool {
	switch e := expr.(type) {
	case *ebnf.Option, *ebnf.Repetition:
		return true
	case *ebnf.Group:
		return nullable(e.Body)
	default:
		return false
	}
}

// tryMatchName matches a named production with memoization and cycle detection.
func (l *Lexer) tryMatchName(name string, offset int) int {
	key := memoKey{name: name, offset: offset}

	if result, ok := l.memo[key]; ok {
		if result == -1 {
			return 0
		}
		return result
	}

	// Cycle detection - if we're already visiting this production at this offset,
	// return 0 to break the cycle (left recursion)
	if l.visiting[key] {
		return 0
	}

	prod, ok := l.grammar[name]
	if !ok || prod.Expr == nil {
		l.memo[key] = -1
		return 0
	}

	l.visiting[key] = true
	result := l.tryMatch(prod.Expr, offset, name)
	delete(l.visiting, key)

	if result == 0 {
		l.memo[key] = -1
	} else {
		l.memo[key] = result
	}

	return result
}

// tryMatchToken matches a literal string token.
func (l *Lexer) tryMatchToken(s string, offset int) int {
	if offset+len(s) > len(l.input) {
		return 0
	}
	if string(l.input[offset:offset+len(s)]) == s {
		return len(s)
	}
	return 0
}

// tryMatchRange matches a character range (e.g., "a"…"z").
func (l *Lexer) tryMatchRange(begin, end string, offset int) int {
	if offset >= len(l.input) {
		return 0
	}
	if len(begin) != 1 || len(end) != 1 {
		return 0
	}
	ch := l.input[offset]
	if ch >= begin[0] && ch <= end[0] {
		return 1
	}
	return 0
}

// Tokenize reads all remaining tokens that are not skipped.
func (l *Lexer) Tokenize() ([]layout.Token, error) {
	var tokens []layout.Token
	for {
		tok, err := l.Next()
		if err == io.EOF {
			return tokens, nil
		}
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
	}
}
