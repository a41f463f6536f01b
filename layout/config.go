package layout

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// LevelRule decides which column a new indentation level is anchored to.
type LevelRule int

const (
	// AtStart anchors the level at the triggering token's column.
	AtStart LevelRule = iota + 1
	// AtEnd anchors the level at the triggering token's end column.
	AtEnd
	// AtNext anchors the level at the column of the token that follows the
	// triggering token.
	AtNext
)

func (r LevelRule) String() string {
	switch r {
	case AtStart:
		return "at_start"
	case AtEnd:
		return "at_end"
	case AtNext:
		return "at_next"
	default:
		return fmt.Sprintf("LevelRule(%d)", int(r))
	}
}

// ParseLevelRule parses the textual form of a level rule.
func ParseLevelRule(s string) (LevelRule, error) {
	switch s {
	case "at_start":
		return AtStart, nil
	case "at_end":
		return AtEnd, nil
	case "at_next":
		return AtNext, nil
	}
	return 0, fmt.Errorf("unknown level rule %q (want at_start, at_end or at_next)", s)
}

func (r LevelRule) MarshalText() ([]byte, error) {
	if !r.valid() {
		return nil, fmt.Errorf("invalid level rule %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *LevelRule) UnmarshalText(text []byte) error {
	rule, err := ParseLevelRule(string(text))
	if err != nil {
		return err
	}
	*r = rule
	return nil
}

func (r LevelRule) valid() bool {
	return r >= AtStart && r <= AtNext
}

// Regular holds the synthetic kinds injected for implicit indentation.
type Regular struct {
	Indent    Kind
	Dedent    Kind
	Separator Kind
}

// BlockRule describes a named block: where its level sits, the token kind
// that closes it and the separator injected between its items.
type BlockRule struct {
	Rule      LevelRule
	Closer    Kind
	Separator Kind
}

// Config is the layout description supplied by a grammar author.
type Config struct {
	Regular Regular
	// Implicit maps token kinds that open an anonymous level to its rule.
	Implicit map[Kind]LevelRule
	// Blocks maps opener kinds to the block they open.
	Blocks map[Kind]BlockRule
}

// Validate reports every inconsistency in c.
func (c Config) Validate() error {
	var errs []error
	r := c.Regular
	if r.Indent == "" || r.Dedent == "" || r.Separator == "" {
		errs = append(errs, errors.New("regular indent, dedent and separator kinds are required"))
	} else if r.Indent == r.Dedent || r.Indent == r.Separator || r.Dedent == r.Separator {
		errs = append(errs, fmt.Errorf("regular kinds must be distinct: indent=%s dedent=%s separator=%s", r.Indent, r.Dedent, r.Separator))
	}

	injected := map[Kind]bool{r.Indent: true, r.Dedent: true}
	separators := map[Kind]bool{r.Separator: true}
	for _, b := range c.Blocks {
		separators[b.Separator] = true
	}

	for _, k := range slices.Sorted(maps.Keys(c.Implicit)) {
		rule := c.Implicit[k]
		if !rule.valid() {
			errs = append(errs, fmt.Errorf("implicit %s: invalid level rule %d", k, int(rule)))
		}
		if injected[k] || separators[k] {
			errs = append(errs, fmt.Errorf("implicit %s: opener is a synthetic kind", k))
		}
		if _, ok := c.Blocks[k]; ok {
			errs = append(errs, fmt.Errorf("%s opens both an implicit level and a named block", k))
		}
	}

	for _, k := range slices.Sorted(maps.Keys(c.Blocks)) {
		b := c.Blocks[k]
		if !b.Rule.valid() {
			errs = append(errs, fmt.Errorf("block %s: invalid level rule %d", k, int(b.Rule)))
		}
		if injected[k] || separators[k] {
			errs = append(errs, fmt.Errorf("block %s: opener is a synthetic kind", k))
		}
		if b.Closer == "" {
			errs = append(errs, fmt.Errorf("block %s: closer kind is required", k))
		} else if injected[b.Closer] || separators[b.Closer] {
			errs = append(errs, fmt.Errorf("block %s: closer %s is a synthetic kind", k, b.Closer))
		}
		if b.Separator == "" {
			errs = append(errs, fmt.Errorf("block %s: separator kind is required", k))
		} else if injected[b.Separator] {
			errs = append(errs, fmt.Errorf("block %s: separator %s collides with the regular indent or dedent kind", k, b.Separator))
		}
	}
	return errors.Join(errs...)
}

// AlwaysAccept lists the separator kinds the normalizer may inject at any
// point. A lexer that filters tokens by parser context must never filter
// these out. The regular separator comes first.
func (c Config) AlwaysAccept() []Kind {
	kinds := []Kind{c.Regular.Separator}
	for _, k := range slices.Sorted(maps.Keys(c.Blocks)) {
		sep := c.Blocks[k].Separator
		if !slices.Contains(kinds, sep) {
			kinds = append(kinds, sep)
		}
	}
	return kinds
}

// SyntheticKinds lists every kind the normalizer may inject.
func (c Config) SyntheticKinds() []Kind {
	return append([]Kind{c.Regular.Indent, c.Regular.Dedent}, c.AlwaysAccept()...)
}

func (c Config) clone() Config {
	return Config{
		Regular:  c.Regular,
		Implicit: maps.Clone(c.Implicit),
		Blocks:   maps.Clone(c.Blocks),
	}
}
