package format

import (
	"fmt"
	"io"
	"strings"

	"github.com/dhamidi/offside/layout"
	"github.com/fatih/color"
)

// LineEncoder writes one token per line: position, kind and, for tokens
// with source text, the quoted literal, separated by tabs. Synthetic tokens
// are highlighted when colour is enabled.
type LineEncoder struct {
	w      io.Writer
	tokens []layout.Token
	color  bool
}

func NewLineEncoder(w io.Writer) *LineEncoder {
	return &LineEncoder{w: w, color: IsTerminal(w)}
}

// SetColor overrides terminal detection.
func (e *LineEncoder) SetColor(on bool) {
	e.color = on
}

func (e *LineEncoder) Encode(tokens []layout.Token) error {
	e.tokens = tokens
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(text)
	return err
}

func (e *LineEncoder) MarshalText() ([]byte, error) {
	var sb strings.Builder

	synthetic := color.New(color.FgCyan, color.Bold)
	position := color.New(color.Faint)
	if e.color {
		synthetic.EnableColor()
		position.EnableColor()
	} else {
		synthetic.DisableColor()
		position.DisableColor()
	}

	for _, tok := range e.tokens {
		pos := position.Sprintf("%d:%d", tok.Position.Line, tok.Position.Column)
		if tok.Synthetic() {
			fmt.Fprintf(&sb, "%s\t%s\n", pos, synthetic.Sprint(tok.Kind))
			continue
		}
		fmt.Fprintf(&sb, "%s\t%s\t%q\n", pos, tok.Kind, tok.Literal)
	}

	return []byte(sb.String()), nil
}
