package parse

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dhamidi/offside/layout"
	"golang.org/x/exp/ebnf"
)

// Check verifies that start is a parser production and that every name the
// productions reachable from it use as a terminal is either a token
// production of g or one of known, typically the normalizer's synthetic
// kinds.
func Check(g ebnf.Grammar, start string, known ...layout.Kind) error {
	p := &EarleyParser{grammar: g}
	if !p.nonterminal(start) {
		return fmt.Errorf("start production %q not found in grammar", start)
	}

	var errs []error
	seen := map[string]bool{start: true}
	work := []string{start}
	for len(work) > 0 {
		name := work[0]
		work = work[1:]

		var walk func(ebnf.Expression)
		walk = func(expr ebnf.Expression) {
			switch e := expr.(type) {
			case ebnf.Alternative:
				for _, x := range e {
					walk(x)
				}
			case ebnf.Sequence:
				for _, x := range e {
					walk(x)
				}
			case *ebnf.Group:
				walk(e.Body)
			case *ebnf.Option:
				walk(e.Body)
			case *ebnf.Repetition:
				walk(e.Body)
			case *ebnf.Name:
				if p.nonterminal(e.String) {
					if !seen[e.String] {
						seen[e.String] = true
						work = append(work, e.String)
					}
					return
				}
				if _, ok := g[e.String]; ok || slices.Contains(known, layout.Kind(e.String)) {
					return
				}
				errs = append(errs, fmt.Errorf("%s: %s refers to unknown token kind %s", e.Pos(), name, e.String))
			}
		}
		walk(g[name].Expr)
	}
	return errors.Join(errs...)
}
