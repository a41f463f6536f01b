// Package format renders normalized token streams, syntax trees and
// diagnostics.
package format

import (
	"encoding"
	"fmt"
	"io"
	"os"

	"github.com/dhamidi/offside/layout"
	"github.com/mattn/go-isatty"
)

type Encoder interface {
	encoding.TextMarshaler
	Encode(tokens []layout.Token) error
}

// Names lists the encoders NewEncoder accepts.
var Names = []string{"text", "json"}

// NewEncoder returns the encoder called name writing to w.
func NewEncoder(name string, w io.Writer) (Encoder, error) {
	switch name {
	case "text", "":
		return NewLineEncoder(w), nil
	case "json":
		return NewJSONEncoder(w), nil
	default:
		return nil, fmt.Errorf("unknown format %q, want one of %v", name, Names)
	}
}

// IsTerminal reports whether w is a terminal that understands colour.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
