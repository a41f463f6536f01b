package layout

import (
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/tliron/commonlog"
)

// Normalizer rewrites token streams so that layout-implied structure becomes
// explicit indent, dedent and separator tokens. A Normalizer is immutable
// and may run any number of streams.
type Normalizer struct {
	cfg Config
	log commonlog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger routes the normalizer's trace output to l.
func WithLogger(l commonlog.Logger) Option {
	return func(n *Normalizer) {
		n.log = l
	}
}

// New validates cfg and returns a Normalizer for it.
func New(cfg Config, opts ...Option) (*Normalizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout config: %w", err)
	}
	n := &Normalizer{
		cfg: cfg.clone(),
		log: commonlog.GetLogger("offside.layout"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Config returns a copy of the configuration n was built with.
func (n *Normalizer) Config() Config {
	return n.cfg.clone()
}

// AlwaysAccept lists the separator kinds downstream filters must keep.
func (n *Normalizer) AlwaysAccept() []Kind {
	return n.cfg.AlwaysAccept()
}

// Process starts a fresh stream over src. Tokens are pulled from src only
// as the returned stream is read.
func (n *Normalizer) Process(src Source) *Stream {
	return &Stream{
		cfg:   &n.cfg,
		log:   n.log,
		src:   src,
		stack: stack{log: n.log},
	}
}

// Normalize runs a whole token slice through a fresh stream. On error it
// returns the tokens produced before the failure along with the error.
func (n *Normalizer) Normalize(tokens []Token) ([]Token, error) {
	return n.Process(SliceSource(tokens)).Collect()
}

// pendingAction bridges AtNext rules, whose level is only known once the
// following token arrives. A nil pendingAction means nothing is pending.
type pendingAction interface {
	pending()
}

type awaitBlockLevel struct {
	opener Token
	rule   BlockRule
}

type awaitImplicitLevel struct {
	trigger Token
}

func (awaitBlockLevel) pending()    {}
func (awaitImplicitLevel) pending() {}

// Stream is one normalization pass. It is not safe for concurrent use and
// cannot be restarted; after an error every call to Next returns that error.
type Stream struct {
	cfg     *Config
	log     commonlog.Logger
	src     Source
	stack   stack
	pending pendingAction

	queue []Token
	last  Token
	seen  bool
	done  bool
	err   error
}

// Next returns the next normalized token, or io.EOF at the end of the
// stream.
func (s *Stream) Next() (Token, error) {
	for len(s.queue) == 0 {
		if s.err != nil {
			return Token{}, s.err
		}
		if s.done {
			return Token{}, io.EOF
		}
		if err := s.step(); err != nil {
			s.err = err
		}
	}
	tok := s.queue[0]
	s.queue = s.queue[1:]
	return tok, nil
}

// All yields the remaining tokens of s. A failure is yielded once as the
// final element.
func (s *Stream) All() iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		for {
			tok, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Token{}, err)
				return
			}
			if !yield(tok, nil) {
				return
			}
		}
	}
}

// Collect reads the rest of s. On error it returns the tokens produced
// before the failure along with the error.
func (s *Stream) Collect() ([]Token, error) {
	var out []Token
	for tok, err := range s.All() {
		if err != nil {
			return out, err
		}
		out = append(out, tok)
	}
	return out, nil
}

func (s *Stream) emit(toks ...Token) {
	s.queue = append(s.queue, toks...)
}

// step consumes one upstream token, or closes the stream at end of input.
func (s *Stream) step() error {
	tok, err := s.src.Next()
	if errors.Is(err, io.EOF) {
		s.done = true
		return s.close()
	}
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	s.log.Debugf("token %s, pending %T, levels %v", tok, s.pending, s.stack.levels())

	switch p := s.pending.(type) {
	case nil:
		if err := s.handleToken(tok); err != nil {
			return err
		}
	case awaitBlockLevel:
		s.pending = nil
		if err := s.openBlock(p.opener, p.rule, tok); err != nil {
			return err
		}
	case awaitImplicitLevel:
		s.pending = nil
		if err := s.openImplicit(resolveLevel(AtNext, p.trigger, tok), p.trigger, tok); err != nil {
			return err
		}
	default:
		panic(bug("unknown pending action %T", p))
	}

	if err := s.classify(tok); err != nil {
		return err
	}
	s.emit(tok)
	s.last = tok
	s.seen = true
	return nil
}

// handleToken resolves tok against the stack, injecting dedents and
// separators or failing when tok leaves a named block without its closer.
func (s *Stream) handleToken(tok Token) error {
	col := tok.Position.Column
	for !s.stack.empty() {
		switch e := s.stack.top().(type) {
		case ImplicitIndent:
			switch {
			case e.Level == col:
				s.emit(synthesize(s.cfg.Regular.Separator, tok, 0))
				return nil
			case e.Level > col:
				s.emit(synthesize(s.cfg.Regular.Dedent, tok, 0))
				s.stack.pop()
			default:
				return nil
			}

		case NamedBlock:
			if tok.Kind == e.Closer {
				if col >= e.Level || col == e.Opener.Position.Column {
					s.log.Debugf("%s closes block of %s", tok, e.Opener)
					s.stack.pop()
					return nil
				}
				return &Error{Kind: ExpectedCloseToken, Token: tok, Level: e.Level, Entry: e, MatchesCloser: true}
			}
			switch {
			case e.Level > col:
				return &Error{Kind: ExpectedCloseToken, Token: tok, Level: e.Level, Entry: e}
			case e.Level == col:
				s.emit(synthesize(e.Separator, tok, 0))
				return nil
			default:
				return nil
			}

		default:
			panic(bug("unknown stack entry %T", e))
		}
	}
	return nil
}

// classify decides what tok opens: a named block or an AtNext level waits
// for the next token, AtStart and AtEnd levels open right away.
func (s *Stream) classify(tok Token) error {
	if rule, ok := s.cfg.Blocks[tok.Kind]; ok {
		s.pending = awaitBlockLevel{opener: tok, rule: rule}
		return nil
	}
	rule, ok := s.cfg.Implicit[tok.Kind]
	if !ok {
		return nil
	}
	switch rule {
	case AtStart, AtEnd:
		return s.openImplicit(resolveLevel(rule, tok, tok), tok, tok)
	case AtNext:
		s.pending = awaitImplicitLevel{trigger: tok}
		return nil
	}
	panic(bug("unknown level rule %d for %s", int(rule), tok.Kind))
}

func (s *Stream) openImplicit(level int, trigger, following Token) error {
	if err := s.stack.push(ImplicitIndent{Level: level}, trigger, following); err != nil {
		return err
	}
	s.emit(
		synthesize(s.cfg.Regular.Indent, following, level),
		synthesize(s.cfg.Regular.Separator, following, level),
	)
	return nil
}

func (s *Stream) openBlock(opener Token, rule BlockRule, following Token) error {
	block := NamedBlock{
		Opener:    opener,
		Closer:    rule.Closer,
		Separator: rule.Separator,
		Level:     resolveLevel(rule.Rule, opener, following),
	}
	if err := s.stack.push(block, opener, following); err != nil {
		return err
	}
	s.emit(synthesize(block.Separator, following, block.Level))
	return nil
}

// close drains the stack at end of input. Implicit levels end with a dedent
// placed after the last token; an open named block is an error.
func (s *Stream) close() error {
	if !s.seen {
		return nil
	}
	end := synthesize(EndKind, s.last, s.last.EndColumn)

	if p, ok := s.pending.(awaitBlockLevel); ok {
		s.pending = nil
		block := NamedBlock{Opener: p.opener, Closer: p.rule.Closer, Separator: p.rule.Separator, Level: p.opener.EndColumn}
		return &Error{Kind: ExpectedCloseToken, Token: end, Level: block.Level, Entry: block}
	}
	s.pending = nil

	for !s.stack.empty() {
		switch e := s.stack.pop().(type) {
		case ImplicitIndent:
			s.emit(synthesize(s.cfg.Regular.Dedent, s.last, s.last.EndColumn))
		case NamedBlock:
			return &Error{Kind: ExpectedCloseToken, Token: end, Level: e.Level, Entry: e}
		default:
			panic(bug("unknown stack entry %T", e))
		}
	}
	return nil
}
