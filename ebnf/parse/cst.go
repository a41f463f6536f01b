// Package parse provides parsing based on EBNF grammars, producing concrete syntax trees.
package parse

import (
	"fmt"
	"io"
	"strings"

	"github.com/dhamidi/offside/layout"
)

// Span represents a range in source code.
type Span struct {
	Start layout.Position
	End   layout.Position
}

// Node represents a node in the concrete syntax tree.
// Leaf nodes have a non-nil Token; interior nodes have Children.
type Node struct {
	Kind     string        // Production name or token kind
	Children []*Node       // Child nodes (nil for terminals)
	Token    *layout.Token // The token (non-nil for terminals)
	Span     Span          // Source span covering this node
}

// IsTerminal returns true if this is a leaf node (token).
func (n *Node) IsTerminal() bool {
	return n.Token != nil
}

// Text returns the source text of this node.
// For terminals, returns the token literal.
// For non-terminals, returns empty string (caller should use span to extract text).
func (n *Node) Text() string {
	if n.Token != nil {
		return n.Token.Literal
	}
	return ""
}

// AddChild appends a child node and updates the span.
func (n *Node) AddChild(child *Node) {
	if child == nil {
		return
	}
	n.Children = append(n.Children, child)
	// Update span
	if len(n.Children) == 1 {
		n.Span.Start = child.Span.Start
	}
	n.Span.End = child.Span.End
}

// Walk calls fn for n and its descendants in document order until fn
// returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, child := range n.Children {
		if !child.Walk(fn) {
			return false
		}
	}
	return true
}

// Dump writes an indented outline of the tree.
func (n *Node) Dump(w io.Writer) error {
	return n.dump(w, 0)
}

func (n *Node) dump(w io.Writer, depth int) error {
	indent := strings.Repeat("  ", depth)
	var err error
	if n.IsTerminal() {
		if n.Token.Synthetic() {
			_, err = fmt.Fprintf(w, "%s%s\n", indent, n.Kind)
		} else {
			_, err = fmt.Fprintf(w, "%s%s %q\n", indent, n.Kind, n.Token.Literal)
		}
		return err
	}
	if _, err = fmt.Fprintf(w, "%s%s\n", indent, n.Kind); err != nil {
		return err
	}
	for _, child := range n.Children {
		if err := child.dump(w, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// NewTerminal creates a terminal node from a token.
func NewTerminal(tok layout.Token) *Node {
	end := tok.Position
	end.Offset += len(tok.Literal)
	end.Column = tok.EndColumn
	if strings.Contains(tok.Literal, "\n") {
		end.Line += strings.Count(tok.Literal, "\n")
	}
	return &Node{
		Kind:  string(tok.Kind),
		Token: &tok,
		Span:  Span{Start: tok.Position, End: end},
	}
}

// NewNonTerminal creates a non-terminal node.
func NewNonTerminal(kind string) *Node {
	return &Node{
		Kind:     kind,
		Children: make([]*Node, 0),
	}
}
