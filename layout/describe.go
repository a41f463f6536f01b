package layout

import "fmt"

// Describe renders e as two lines: what was found and what was expected.
func Describe(e *Error) (found, expected string) {
	tok := describeToken(e.Token)
	switch e.Kind {
	case IndentationAtZero:
		found = fmt.Sprintf("indentation at column %d for %s", e.Level, tok)
		expected = fmt.Sprintf("levels start at column 1; %s cannot open one here", describeToken(e.Trigger))

	case UnexpectedIndentRegular:
		found = fmt.Sprintf("unexpected indentation of %s", tok)
		switch top := e.Entry.(type) {
		case NamedBlock:
			expected = fmt.Sprintf("it must be indented past column %d to nest inside %s", top.Level, describeToken(top.Opener))
		default:
			expected = fmt.Sprintf("it must be indented past column %d, the enclosing level", EntryLevel(e.Entry))
		}

	case UnexpectedIndentBlock:
		found = fmt.Sprintf("unexpected indentation for %s", tok)
		expected = fmt.Sprintf("the block opened by %s must be indented past column %d", describeToken(e.Trigger), EntryLevel(e.Entry))
		if top, ok := e.Entry.(NamedBlock); ok {
			expected += fmt.Sprintf(" since block begin %s", describeToken(top.Opener))
		}

	case ExpectedCloseToken:
		block, _ := e.Entry.(NamedBlock)
		if e.Token.Kind == EndKind {
			found = fmt.Sprintf("unexpected %s", tok)
		} else {
			found = fmt.Sprintf("unexpected indentation for %s", tok)
		}
		if e.MatchesCloser {
			expected = fmt.Sprintf("must be indented at column %d or aligned with column %d to close %s",
				block.Level, block.Opener.Position.Column, describeToken(block.Opener))
		} else {
			expected = fmt.Sprintf("waiting for %s at indentation %d according to %s",
				block.Closer, block.Level, describeToken(block.Opener))
		}

	case UnexpectedIndent:
		found = fmt.Sprintf("unexpected indentation for %s", tok)
		t := e.Trigger
		if e.Level > t.Position.Column && e.Level < t.EndColumn {
			expected = fmt.Sprintf("indentation must be past column %d since %s spans columns %d-%d",
				t.EndColumn, describeToken(t), t.Position.Column, t.EndColumn)
		} else {
			expected = fmt.Sprintf("indentation must be at column %d as requested by %s", e.Level, describeToken(t))
		}

	default:
		found = fmt.Sprintf("layout error at %s", tok)
		expected = e.Kind.String()
	}
	return found, expected
}
