package format

import (
	"encoding/json"
	"io"

	"github.com/dhamidi/offside/layout"
)

type JSONEncoder struct {
	w      io.Writer
	tokens []layout.Token
}

func NewJSONEncoder(w io.Writer) *JSONEncoder {
	return &JSONEncoder{w: w}
}

func (e *JSONEncoder) Encode(tokens []layout.Token) error {
	e.tokens = tokens
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	if _, err = e.w.Write(text); err != nil {
		return err
	}
	_, err = io.WriteString(e.w, "\n")
	return err
}

func (e *JSONEncoder) MarshalText() ([]byte, error) {
	data := make([]jsonToken, 0, len(e.tokens))
	for _, tok := range e.tokens {
		data = append(data, jsonToken{
			Kind:      string(tok.Kind),
			Literal:   tok.Literal,
			Synthetic: tok.Synthetic(),
			Line:      tok.Position.Line,
			Column:    tok.Position.Column,
			EndColumn: tok.EndColumn,
		})
	}
	return json.MarshalIndent(data, "", "  ")
}

type jsonToken struct {
	Kind      string `json:"kind"`
	Literal   string `json:"literal,omitempty"`
	Synthetic bool   `json:"synthetic,omitempty"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndColumn int    `json:"endColumn"`
}
