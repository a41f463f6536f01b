package parse

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dhamidi/offside/layout"
	"github.com/tliron/commonlog"
	"golang.org/x/exp/ebnf"
)

var log = commonlog.GetLogger("offside.parse")

// EarleyParser implements Earley parsing for EBNF grammars.
//
// Productions whose name starts with a lowercase letter are nonterminals.
// Any other name is a terminal matched against a token's kind, so the token
// productions of a lexer grammar and undefined layout kinds such as _INDENT
// are both terminals. A quoted string is a terminal matched against a
// token's literal.
type EarleyParser struct {
	grammar   ebnf.Grammar
	tokens    []layout.Token
	skipKinds map[layout.Kind]bool
	accept    map[layout.Kind]bool

	rules    map[string][]*rule
	nullable map[string]bool

	// Internal state
	chart     []*ItemSet
	completed map[extent]bool
	filtered  []layout.Token // tokens after filtering trivia
}

// symbol is one element of a compiled rule.
type symbol struct {
	name     string
	terminal bool
	literal  bool      // match the token literal instead of its kind
	rng      [2]string // character range, for terminals written as "a" … "z"
}

func (s symbol) String() string {
	switch {
	case s.rng[0] != "":
		return fmt.Sprintf("%q … %q", s.rng[0], s.rng[1])
	case s.literal:
		return fmt.Sprintf("%q", s.name)
	default:
		return s.name
	}
}

// rule is a plain BNF alternative. EBNF groups, options and repetitions are
// compiled into helper rules whose names start with '~'.
type rule struct {
	lhs string
	rhs []symbol
}

// Item represents an Earley item: a rule with a dot position and origin.
type Item struct {
	rule   *rule
	Dot    int // Position in the rule's right-hand side
	Origin int // Chart position where this item started
}

// Name returns the production the item belongs to.
func (item *Item) Name() string {
	return item.rule.lhs
}

func (item *Item) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s →", item.rule.lhs)
	for i, sym := range item.rule.rhs {
		if i == item.Dot {
			b.WriteString(" •")
		}
		b.WriteString(" " + sym.String())
	}
	if item.Dot == len(item.rule.rhs) {
		b.WriteString(" •")
	}
	fmt.Fprintf(&b, ", %d]", item.Origin)
	return b.String()
}

func (item *Item) complete() bool {
	return item.Dot >= len(item.rule.rhs)
}

func (item *Item) next() symbol {
	return item.rule.rhs[item.Dot]
}

type itemKey struct {
	rule   *rule
	dot    int
	origin int
}

// ItemSet is a set of Earley items at a particular chart position.
type ItemSet struct {
	items    []*Item
	itemSet  map[itemKey]bool // for deduplication
	position int
}

func newItemSet(pos int) *ItemSet {
	return &ItemSet{
		itemSet:  make(map[itemKey]bool),
		position: pos,
	}
}

// Items returns the items of the set in insertion order.
func (s *ItemSet) Items() []*Item {
	return s.items
}

func (s *ItemSet) Add(item *Item) bool {
	key := itemKey{rule: item.rule, dot: item.Dot, origin: item.Origin}
	if s.itemSet[key] {
		return false
	}
	s.itemSet[key] = true
	s.items = append(s.items, item)
	return true
}

type extent struct {
	name       string
	start, end int
}

// NewEarleyParser creates a new Earley parser.
func NewEarleyParser(g ebnf.Grammar, tokens []layout.Token) *EarleyParser {
	p := &EarleyParser{
		grammar:   g,
		tokens:    tokens,
		skipKinds: map[layout.Kind]bool{"WhiteSpace": true, "Comment": true},
		accept:    make(map[layout.Kind]bool),
		rules:     make(map[string][]*rule),
	}
	p.compile()
	return p
}

// SetSkipKinds sets which token kinds to skip.
func (p *EarleyParser) SetSkipKinds(kinds ...layout.Kind) {
	p.skipKinds = make(map[layout.Kind]bool)
	for _, k := range kinds {
		p.skipKinds[k] = true
	}
}

// SetAlwaysAccept sets token kinds that are never skipped, whatever
// SetSkipKinds says. Layout separators belong here.
func (p *EarleyParser) SetAlwaysAccept(kinds ...layout.Kind) {
	p.accept = make(map[layout.Kind]bool)
	for _, k := range kinds {
		p.accept[k] = true
	}
}

// Chart returns the item sets of the last parse.
func (p *EarleyParser) Chart() []*ItemSet {
	return p.chart
}

// compile turns every production into BNF rules.
func (p *EarleyParser) compile() {
	names := make([]string, 0, len(p.grammar))
	for name := range p.grammar {
		names = append(names, name)
	}
	slices.Sort(names)

	helpers := 0
	var alternatives func(lhs string, expr ebnf.Expression)
	var sequence func(expr ebnf.Expression) []symbol
	helper := func(kind string, body ebnf.Expression, optional, repeat bool) symbol {
		helpers++
		name := fmt.Sprintf("~%s%d", kind, helpers)
		if optional {
			p.rules[name] = append(p.rules[name], &rule{lhs: name})
		}
		if repeat {
			for _, alt := range alternativesOf(body) {
				rhs := append([]symbol{{name: name}}, sequence(alt)...)
				p.rules[name] = append(p.rules[name], &rule{lhs: name, rhs: rhs})
			}
		} else {
			alternatives(name, body)
		}
		return symbol{name: name}
	}

	sequence = func(expr ebnf.Expression) []symbol {
		switch e := expr.(type) {
		case nil:
			return nil
		case ebnf.Sequence:
			var out []symbol
			for _, item := range e {
				out = append(out, sequence(item)...)
			}
			return out
		case *ebnf.Name:
			if p.nonterminal(e.String) {
				return []symbol{{name: e.String}}
			}
			return []symbol{{name: e.String, terminal: true}}
		case *ebnf.Token:
			return []symbol{{name: e.String, terminal: true, literal: true}}
		case *ebnf.Range:
			return []symbol{{name: e.Begin.String, terminal: true, rng: [2]string{e.Begin.String, e.End.String}}}
		case *ebnf.Group:
			return []symbol{helper("group", e.Body, false, false)}
		case *ebnf.Option:
			return []symbol{helper("option", e.Body, true, false)}
		case *ebnf.Repetition:
			return []symbol{helper("repeat", e.Body, true, true)}
		case ebnf.Alternative:
			return []symbol{helper("alt", e, false, false)}
		}
		return nil
	}

	alternatives = func(lhs string, expr ebnf.Expression) {
		for _, alt := range alternativesOf(expr) {
			p.rules[lhs] = append(p.rules[lhs], &rule{lhs: lhs, rhs: sequence(alt)})
		}
	}

	for _, name := range names {
		if p.nonterminal(name) {
			alternatives(name, p.grammar[name].Expr)
		}
	}
	p.nullable = nullableRules(p.rules)
}

func (p *EarleyParser) nonterminal(name string) bool {
	prod, ok := p.grammar[name]
	if !ok || prod.Expr == nil || name == "" {
		return false
	}
	return name[0] >= 'a' && name[0] <= 'z'
}

func alternativesOf(expr ebnf.Expression) []ebnf.Expression {
	if alt, ok := expr.(ebnf.Alternative); ok {
		return alt
	}
	return []ebnf.Expression{expr}
}

// nullableRules finds the nonterminals that derive the empty sequence.
func nullableRules(rules map[string][]*rule) map[string]bool {
	nullable := make(map[string]bool)
	for changed := true; changed; {
		changed = false
		for name, alts := range rules {
			if nullable[name] {
				continue
			}
			for _, r := range alts {
				empty := true
				for _, sym := range r.rhs {
					if sym.terminal || !nullable[sym.name] {
						empty = false
						break
					}
				}
				if empty {
					nullable[name] = true
					changed = true
					break
				}
			}
		}
	}
	return nullable
}

// Parse recognizes the tokens from the given production and builds the CST.
func (p *EarleyParser) Parse(startProduction string) (*Node, error) {
	if len(p.rules[startProduction]) == 0 {
		return nil, fmt.Errorf("production %q not found in grammar", startProduction)
	}

	// Filter trivia tokens
	p.filtered = make([]layout.Token, 0, len(p.tokens))
	for _, tok := range p.tokens {
		if p.accept[tok.Kind] || !p.skipKinds[tok.Kind] {
			p.filtered = append(p.filtered, tok)
		}
	}

	n := len(p.filtered)
	p.chart = make([]*ItemSet, n+1)
	for i := range p.chart {
		p.chart[i] = newItemSet(i)
	}
	p.completed = make(map[extent]bool)

	for _, r := range p.rules[startProduction] {
		p.chart[0].Add(&Item{rule: r})
	}

	// Main Earley loop; items may be added to a set while it is processed.
	for i := 0; i <= n; i++ {
		for j := 0; j < len(p.chart[i].items); j++ {
			item := p.chart[i].items[j]
			switch {
			case item.complete():
				p.complete(i, item)
			case item.next().terminal:
				p.scan(i, item)
			default:
				p.predict(i, item)
			}
		}
	}

	if !p.completed[extent{startProduction, 0, n}] {
		return nil, p.failure()
	}

	node, ok := p.buildNode(startProduction, 0, n, make(map[extent]bool))
	if !ok {
		return nil, fmt.Errorf("parse error: cannot rebuild tree for %q", startProduction)
	}
	return node, nil
}

// failure reports the furthest position the parse reached.
func (p *EarleyParser) failure() error {
	furthest := 0
	for i := len(p.chart) - 1; i >= 0; i-- {
		if len(p.chart[i].items) > 0 {
			furthest = i
			break
		}
	}

	var expected []string
	for _, item := range p.chart[furthest].items {
		if !item.complete() && item.next().terminal {
			if s := item.next().String(); !slices.Contains(expected, s) {
				expected = append(expected, s)
			}
		}
	}
	slices.Sort(expected)

	err := &Error{Expected: expected}
	if furthest < len(p.filtered) {
		err.Token = p.filtered[furthest]
	} else {
		err.AtEnd = true
		if len(p.filtered) > 0 {
			err.Token = p.filtered[len(p.filtered)-1]
		}
	}
	log.Debugf("parse failed at token %d of %d: %v", furthest, len(p.filtered), err)
	return err
}

// predict adds the rules of the nonterminal after the dot.
func (p *EarleyParser) predict(pos int, item *Item) {
	name := item.next().name
	for _, r := range p.rules[name] {
		p.chart[pos].Add(&Item{rule: r, Origin: pos})
	}
	if p.nullable[name] {
		p.chart[pos].Add(&Item{rule: item.rule, Dot: item.Dot + 1, Origin: item.Origin})
	}
}

// scan handles terminal matching.
func (p *EarleyParser) scan(pos int, item *Item) {
	if pos >= len(p.filtered) {
		return
	}
	if p.matches(item.next(), p.filtered[pos]) {
		p.chart[pos+1].Add(&Item{rule: item.rule, Dot: item.Dot + 1, Origin: item.Origin})
	}
}

func (p *EarleyParser) matches(sym symbol, tok layout.Token) bool {
	switch {
	case sym.rng[0] != "":
		if len(tok.Literal) != 1 || len(sym.rng[0]) != 1 || len(sym.rng[1]) != 1 {
			return false
		}
		ch := tok.Literal[0]
		return ch >= sym.rng[0][0] && ch <= sym.rng[1][0]
	case sym.literal:
		return tok.Literal == sym.name
	default:
		// Also try matching by literal for keywords
		return string(tok.Kind) == sym.name || (tok.Literal != "" && tok.Literal == sym.name)
	}
}

// complete advances the items that were waiting for the completed rule.
func (p *EarleyParser) complete(pos int, completed *Item) {
	p.completed[extent{completed.rule.lhs, completed.Origin, pos}] = true
	for _, item := range p.chart[completed.Origin].items {
		if item.complete() {
			continue
		}
		next := item.next()
		if !next.terminal && next.name == completed.rule.lhs {
			p.chart[pos].Add(&Item{rule: item.rule, Dot: item.Dot + 1, Origin: item.Origin})
		}
	}
}

// buildNode rebuilds the derivation of name over [start, end). Helper rules
// are spliced into their parent by the caller.
func (p *EarleyParser) buildNode(name string, start, end int, visiting map[extent]bool) (*Node, bool) {
	key := extent{name, start, end}
	if !p.completed[key] || visiting[key] {
		return nil, false
	}
	visiting[key] = true
	defer delete(visiting, key)

	for _, r := range p.rules[name] {
		children, ok := p.buildSequence(r.rhs, start, end, visiting)
		if !ok {
			continue
		}
		node := NewNonTerminal(name)
		for _, child := range children {
			node.AddChild(child)
		}
		if len(children) == 0 && start < len(p.filtered) {
			node.Span.Start = NewTerminal(p.filtered[start]).Span.Start
			node.Span.End = node.Span.Start
		}
		return node, true
	}
	return nil, false
}

func (p *EarleyParser) buildSequence(rhs []symbol, pos, end int, visiting map[extent]bool) ([]*Node, bool) {
	if len(rhs) == 0 {
		return nil, pos == end
	}
	sym := rhs[0]
	if sym.terminal {
		if pos >= end || !p.matches(sym, p.filtered[pos]) {
			return nil, false
		}
		rest, ok := p.buildSequence(rhs[1:], pos+1, end, visiting)
		if !ok {
			return nil, false
		}
		return append([]*Node{NewTerminal(p.filtered[pos])}, rest...), true
	}

	// Prefer the longest match for the leading nonterminal.
	for mid := end; mid >= pos; mid-- {
		if !p.completed[extent{sym.name, pos, mid}] {
			continue
		}
		rest, ok := p.buildSequence(rhs[1:], mid, end, visiting)
		if !ok {
			continue
		}
		child, ok := p.buildNode(sym.name, pos, mid, visiting)
		if !ok {
			continue
		}
		if strings.HasPrefix(sym.name, "~") {
			return append(slices.Clone(child.Children), rest...), true
		}
		return append([]*Node{child}, rest...), true
	}
	return nil, false
}

// ParseToCST parses and returns a CST directly.
func (p *EarleyParser) ParseToCST(startProduction string) (*Node, error) {
	return p.Parse(startProduction)
}
