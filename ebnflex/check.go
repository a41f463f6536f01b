package ebnflex

import (
	"errors"
	"fmt"

	"golang.org/x/exp/ebnf"
)

// Check verifies every token production of grammar with ebnf.Verify,
// restricted to the productions it reaches. Parser productions sharing the
// file are ignored.
func Check(grammar ebnf.Grammar) error {
	kinds := tokenProductions(grammar)
	if len(kinds) == 0 {
		return fmt.Errorf("grammar defines no token productions")
	}

	var errs []error
	for _, name := range kinds {
		sub := make(ebnf.Grammar)
		reach(grammar, sub, name)
		if err := ebnf.Verify(sub, name); err != nil {
			errs = append(errs, fmt.Errorf("token %s: %w", name, err))
		}
		if nullable(grammar[name].Expr) {
			errs = append(errs, fmt.Errorf("token %s: matches the empty string", name))
		}
	}
	return errors.Join(errs...)
}

// reach copies name and the productions it refers to into sub. Names
// missing from grammar are left out so Verify reports them.
func reach(grammar, sub ebnf.Grammar, name string) {
	if _, ok := sub[name]; ok {
		return
	}
	prod, ok := grammar[name]
	if !ok {
		return
	}
	sub[name] = prod

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
			reach(grammar, sub, e.String)
		}
	}
	walk(prod.Expr)
}
