package format

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dhamidi/offside/ebnf/parse"
	"github.com/dhamidi/offside/layout"
	"github.com/fatih/color"
)

// Diagnostic is a located error in the two-part form: what was found and
// what was expected instead.
type Diagnostic struct {
	Pos       layout.Position
	EndColumn int
	Message   string
	Note      string
	// Related points at the token that set up the violated expectation,
	// such as the opener of an unclosed block.
	Related *layout.Token
}

// FromError converts layout and parse errors. Other errors report false.
func FromError(err error) (Diagnostic, bool) {
	var lerr *layout.Error
	if errors.As(err, &lerr) {
		found, expected := layout.Describe(lerr)
		d := Diagnostic{
			Pos:       lerr.Token.Position,
			EndColumn: lerr.Token.EndColumn,
			Message:   found,
			Note:      expected,
		}
		if block, ok := lerr.Entry.(layout.NamedBlock); ok && lerr.Kind == layout.ExpectedCloseToken {
			d.Related = &block.Opener
		} else if lerr.Trigger.Kind != "" {
			d.Related = &lerr.Trigger
		}
		return d, true
	}

	var perr *parse.Error
	if errors.As(err, &perr) {
		d := Diagnostic{
			Pos:       perr.Token.Position,
			EndColumn: perr.Token.EndColumn,
		}
		switch {
		case perr.AtEnd:
			d.Message = "unexpected end of input"
			d.Pos.Column = perr.Token.EndColumn
		case perr.Token.Synthetic():
			d.Message = fmt.Sprintf("unexpected %s", perr.Token.Kind)
		default:
			d.Message = fmt.Sprintf("unexpected %s %q", perr.Token.Kind, perr.Token.Literal)
		}
		if len(perr.Expected) > 0 {
			d.Note = "expected " + strings.Join(perr.Expected, " or ")
		}
		return d, true
	}

	return Diagnostic{}, false
}

// DiagnosticPrinter writes diagnostics with the offending source line.
type DiagnosticPrinter struct {
	w     io.Writer
	color bool
}

func NewDiagnosticPrinter(w io.Writer) *DiagnosticPrinter {
	return &DiagnosticPrinter{w: w, color: IsTerminal(w)}
}

// SetColor overrides terminal detection.
func (p *DiagnosticPrinter) SetColor(on bool) {
	p.color = on
}

// Print writes d. src is the text d refers to and may be nil.
func (p *DiagnosticPrinter) Print(d Diagnostic, src []byte) error {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed, color.Bold)
	blue := color.New(color.FgBlue, color.Bold)
	for _, c := range []*color.Color{bold, red, blue} {
		if p.color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s %s\n", bold.Sprintf("%s:", d.Pos), red.Sprint("error:"), bold.Sprint(d.Message))

	if line, ok := sourceLine(src, d.Pos.Line); ok && d.Pos.Column > 0 {
		gutter := fmt.Sprintf("%d", d.Pos.Line)
		pad := strings.Repeat(" ", len(gutter))
		width := max(d.EndColumn-d.Pos.Column, 1)
		fmt.Fprintf(&sb, "%s %s %s\n", blue.Sprint(gutter), blue.Sprint("|"), line)
		fmt.Fprintf(&sb, "%s %s %s%s\n", pad, blue.Sprint("|"),
			strings.Repeat(" ", d.Pos.Column-1), red.Sprint("^"+strings.Repeat("~", width-1)))
	}

	if d.Note != "" {
		fmt.Fprintf(&sb, "  %s %s\n", blue.Sprint("="), d.Note)
	}
	if d.Related != nil && d.Related.Position != d.Pos {
		fmt.Fprintf(&sb, "  %s %s: %s here\n", blue.Sprint("note:"), d.Related.Position, d.Related.Kind)
	}

	_, err := io.WriteString(p.w, sb.String())
	return err
}

// sourceLine returns the 1-based line n of src without its newline. Tabs
// are kept so the caret lines up with byte columns.
func sourceLine(src []byte, n int) (string, bool) {
	if src == nil || n < 1 {
		return "", false
	}
	lines := bytes.Split(src, []byte("\n"))
	if n > len(lines) {
		return "", false
	}
	return strings.TrimRight(string(lines[n-1]), "\r"), true
}
