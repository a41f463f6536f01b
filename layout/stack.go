package layout

import (
	"github.com/tliron/commonlog"
)

// Entry is an indentation stack entry: either ImplicitIndent or NamedBlock.
type Entry interface {
	level() int
}

// ImplicitIndent is an anonymous level. It has no closer and ends when a
// token appears left of it.
type ImplicitIndent struct {
	Level int
}

func (e ImplicitIndent) level() int { return e.Level }

// NamedBlock is a level opened by Opener that only Closer may end.
type NamedBlock struct {
	Opener    Token
	Closer    Kind
	Separator Kind
	Level     int
}

func (e NamedBlock) level() int { return e.Level }

// EntryLevel returns the column e is anchored to.
func EntryLevel(e Entry) int {
	return e.level()
}

// resolveLevel computes the level a rule anchors to. following is the token
// after trigger; rules other than AtNext ignore it.
func resolveLevel(rule LevelRule, trigger, following Token) int {
	switch rule {
	case AtStart:
		return trigger.Position.Column
	case AtEnd:
		return trigger.EndColumn
	case AtNext:
		return following.Position.Column
	}
	panic(bug("resolve level: unknown rule %d for %s", int(rule), describeToken(trigger)))
}

type stack struct {
	entries []Entry
	log     commonlog.Logger
}

func (s *stack) empty() bool {
	return len(s.entries) == 0
}

func (s *stack) top() Entry {
	if s.empty() {
		panic(bug("top of empty indentation stack"))
	}
	return s.entries[len(s.entries)-1]
}

func (s *stack) pop() Entry {
	e := s.top()
	s.entries = s.entries[:len(s.entries)-1]
	s.log.Debugf("pop %+v, depth %d", e, len(s.entries))
	return e
}

// push adds e after checking it against the current top, the zero column
// and the tokens that produced its level.
func (s *stack) push(e Entry, trigger, following Token) error {
	level := e.level()
	if !s.empty() {
		top := s.top()
		if top.level() >= level {
			kind := UnexpectedIndentRegular
			if _, ok := e.(NamedBlock); ok {
				kind = UnexpectedIndentBlock
			}
			return &Error{Kind: kind, Token: following, Trigger: trigger, Level: level, Entry: top}
		}
	} else if level <= 0 {
		return &Error{Kind: IndentationAtZero, Token: following, Trigger: trigger, Level: level}
	}

	if err := s.validateLevel(level, trigger, following); err != nil {
		return err
	}

	s.entries = append(s.entries, e)
	s.log.Debugf("push %+v, depth %d", e, len(s.entries))
	return nil
}

// validateLevel rejects levels that would make the triggering token
// indistinguishable from the content it introduces.
func (s *stack) validateLevel(level int, trigger, following Token) error {
	col := following.Position.Column
	switch {
	case level < col:
		return &Error{Kind: UnexpectedIndent, Token: following, Trigger: trigger, Level: level}
	case level > trigger.Position.Column && level < trigger.EndColumn && col < level:
		return &Error{Kind: UnexpectedIndent, Token: following, Trigger: trigger, Level: level}
	}
	if following.Position != trigger.Position && level == trigger.EndColumn && col != level {
		s.log.Warningf("level %d sits on the end of %s while %s starts at column %d; closing may be ambiguous",
			level, describeToken(trigger), describeToken(following), col)
	}
	return nil
}

func (s *stack) levels() []int {
	levels := make([]int, len(s.entries))
	for i, e := range s.entries {
		levels[i] = e.level()
	}
	return levels
}
