package layout

import (
	"errors"
	"fmt"
)

// ErrorKind classifies layout errors.
type ErrorKind int

const (
	// IndentationAtZero: a level at or below column zero was requested on an
	// empty stack.
	IndentationAtZero ErrorKind = iota + 1
	// UnexpectedIndentRegular: a new implicit level does not exceed the top
	// of the stack.
	UnexpectedIndentRegular
	// UnexpectedIndentBlock: a new named block level does not exceed the top
	// of the stack.
	UnexpectedIndentBlock
	// ExpectedCloseToken: a block closer is misplaced, or content left a
	// named block without its closer.
	ExpectedCloseToken
	// UnexpectedIndent: the computed level is inconsistent with the tokens
	// that produced it.
	UnexpectedIndent
)

func (k ErrorKind) String() string {
	switch k {
	case IndentationAtZero:
		return "IndentationAtZero"
	case UnexpectedIndentRegular:
		return "UnexpectedIndentRegular"
	case UnexpectedIndentBlock:
		return "UnexpectedIndentBlock"
	case ExpectedCloseToken:
		return "ExpectedCloseToken"
	case UnexpectedIndent:
		return "UnexpectedIndent"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

var (
	ErrIndentationAtZero       = errors.New("indentation at column zero")
	ErrUnexpectedIndent        = errors.New("unexpected indentation")
	ErrUnexpectedIndentRegular = fmt.Errorf("%w of implicit level", ErrUnexpectedIndent)
	ErrUnexpectedIndentBlock   = fmt.Errorf("%w of named block", ErrUnexpectedIndent)
	ErrExpectedClose           = errors.New("expected closing token")
)

// Error is a layout violation. It is terminal for the stream that raised it.
type Error struct {
	Kind ErrorKind
	// Token is the offending token. For errors found at end of input it is
	// a synthetic EndKind token placed after the last real token.
	Token Token
	// Trigger is the token that requested the new level, for push and
	// validation errors.
	Trigger Token
	// Level is the level that was requested, or the level of the block
	// that was left open.
	Level int
	// Entry is the stack entry involved: the top of the stack for push
	// errors, the open block for ExpectedCloseToken.
	Entry Entry
	// MatchesCloser tells the two ExpectedCloseToken cases apart: the
	// token was the block's closer but misaligned, or the closer is missing.
	MatchesCloser bool
}

func (e *Error) Error() string {
	found, expected := Describe(e)
	return found + ": " + expected
}

func (e *Error) Unwrap() error {
	switch e.Kind {
	case IndentationAtZero:
		return ErrIndentationAtZero
	case UnexpectedIndentRegular:
		return ErrUnexpectedIndentRegular
	case UnexpectedIndentBlock:
		return ErrUnexpectedIndentBlock
	case ExpectedCloseToken:
		return ErrExpectedClose
	default:
		return ErrUnexpectedIndent
	}
}

// Bug is the panic value for states only an implementation defect can reach.
type Bug struct {
	Msg string
}

func (b *Bug) Error() string {
	return "layout: internal error, please report: " + b.Msg
}

func bug(format string, args ...any) *Bug {
	return &Bug{Msg: fmt.Sprintf(format, args...)}
}
