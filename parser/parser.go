// Package parser implements the meta-grammar parser: a hand-written
// recursive-descent parser turning ABNF grammar text (RFC 5234 §4) into
// an ast.Set, per spec §4.1.
package parser

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/ldr/exabnf/abnferr"
	"github.com/ldr/exabnf/ast"
	"github.com/ldr/exabnf/lexer"
)

// Option configures a Parse call, following the teacher's functional
// options convention (runtime/parser.ParserOpt).
type Option func(*parser)

// WithDebugLog attaches a logger that receives a slog.Debug event per
// rule successfully parsed, and forwards to the lexer's own token-level
// debug logging.
func WithDebugLog(logger *slog.Logger) Option {
	return func(p *parser) { p.logger = logger }
}

// Result is the outcome of a Parse call.
type Result struct {
	Set  *ast.Set
	Tail []byte // unconsumed grammar text, empty on a clean parse
}

type parser struct {
	toks   []lexer.Token
	pos    int
	logger *slog.Logger

	// err carries a specific diagnostic from a helper that can only
	// signal failure through a bool return (parseElement and its
	// callees). parseRule consults and clears it before falling back to
	// a generic syntax error.
	err error
}

// Parse parses ABNF grammar text into an ast.Set. It returns
// abnferr.InvalidGrammar if no rule parses at all, and
// abnferr.UnresolvedRule if any RuleRef or "=/" target cannot be
// resolved within the set. It does not by itself report unconsumed
// trailing text as an error — check Result.Tail, or use the abnf
// package's Load, which maps a non-empty tail to IncompleteParse. A rule
// that fails with a syntax error ends parsing, and the text from that
// rule on becomes the tail.
func Parse(src []byte, opts ...Option) (*Result, error) {
	lexOpts := []lexer.Option{}
	p := &parser{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger != nil {
		lexOpts = append(lexOpts, lexer.WithDebugLog(p.logger))
	}

	lx := lexer.New(src, lexOpts...)
	p.toks = lx.Tokens()

	set := ast.NewSet()

	for {
		p.skipBlankLines()
		if p.cur().Type == lexer.EOF {
			break
		}
		if p.cur().Type != lexer.RULENAME {
			// Can't make progress: whatever remains is the unconsumed tail.
			break
		}
		start := p.pos
		if err := p.parseRule(set); err != nil {
			// A rule that fails with a syntax error ends the rule list:
			// the text from its name on is the unconsumed tail.
			if e, ok := err.(*abnferr.Error); ok && e.Kind == abnferr.TypeSyntax {
				p.pos = start
				break
			}
			return nil, err
		}
	}

	if set.Len() == 0 {
		return nil, abnferr.InvalidGrammar("no rules could be parsed from the supplied grammar text")
	}

	if err := validateRuleRefs(set); err != nil {
		return nil, err
	}

	tail := p.remainingBytes(src)
	return &Result{Set: set, Tail: tail}, nil
}

func (p *parser) remainingBytes(src []byte) []byte {
	if p.cur().Type == lexer.EOF {
		return nil
	}
	return src[p.cur().Pos.Offset:]
}

// skipBlankLines consumes NEWLINE tokens that appear where a rule was
// expected: ABNF's rulelist alternative "(*WSP c-nl)".
func (p *parser) skipBlankLines() {
	for p.cur().Type == lexer.NEWLINE {
		p.advance()
	}
}

func (p *parser) cur() lexer.Token {
	if p.pos >= len(p.toks) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.toks[p.pos]
}

func (p *parser) peek(off int) lexer.Token {
	i := p.pos + off
	if i >= len(p.toks) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.toks[i]
}

func (p *parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

// parseRule parses "rulename defined-as elements c-nl [action-block]" and
// inserts or extends the corresponding entry in set.
func (p *parser) parseRule(set *ast.Set) error {
	p.err = nil
	nameTok := p.advance() // RULENAME, checked by caller
	canonical := strings.ToLower(nameTok.Text)

	definedAs := p.advance()
	if definedAs.Type != lexer.DEFINED_AS && definedAs.Type != lexer.DEFINED_AS_ALT {
		return abnferr.Syntax("expected \"=\" or \"=/\" after rule name \""+nameTok.Text+"\"",
			definedAs.Pos.Line, definedAs.Pos.Column, definedAs.Pos.Offset)
	}

	body, ok := p.parseAlternation()
	if !ok {
		if p.err != nil {
			err := p.err
			p.err = nil
			return err
		}
		return abnferr.Syntax("expected a grammar element for rule \""+nameTok.Text+"\"",
			p.cur().Pos.Line, p.cur().Pos.Column, p.cur().Pos.Offset)
	}

	if p.cur().Type != lexer.NEWLINE && p.cur().Type != lexer.EOF {
		return abnferr.Syntax("unexpected content after rule \""+nameTok.Text+"\"",
			p.cur().Pos.Line, p.cur().Pos.Column, p.cur().Pos.Offset)
	}
	if p.cur().Type == lexer.NEWLINE {
		p.advance()
	}

	var actionSource string
	hasAction := false
	if p.cur().Type == lexer.ACTION_BLOCK {
		tok := p.advance()
		actionSource = tok.Text
		hasAction = true
	}

	switch definedAs.Type {
	case lexer.DEFINED_AS_ALT:
		if !set.ExtendAlternation(canonical, body) {
			return abnferr.UnresolvedRule(nameTok.Text)
		}
		if hasAction {
			if r := set.Rule(canonical); r != nil {
				r.ActionSource = actionSource
				r.HasAction = true
			}
		}
	default:
		r := &ast.Rule{
			Name:         canonical,
			DisplayName:  nameTok.Text,
			Element:      body,
			ActionSource: actionSource,
			HasAction:    hasAction,
			Pos:          nameTok.Pos,
		}
		if !set.Define(r) {
			return abnferr.DuplicateRule(nameTok.Text)
		}
	}

	if p.logger != nil {
		p.logger.Debug("rule parsed", "name", nameTok.Text, "incremental", definedAs.Type == lexer.DEFINED_AS_ALT)
	}
	return nil
}

// elementStart reports whether t can begin a repetition/element.
func elementStart(t lexer.TokenType) bool {
	switch t {
	case lexer.RULENAME, lexer.NUMBER, lexer.STAR, lexer.LPAREN, lexer.LBRACKET,
		lexer.CHARVAL, lexer.NUMVAL, lexer.PROSEVAL:
		return true
	default:
		return false
	}
}

// foldContinuationLines unconditionally consumes NEWLINE tokens that fold
// a continuation line into the current construct: c-wsp = WSP /
// (c-nl WSP). Same-line whitespace is already invisible (the lexer never
// emits WSP tokens), so all that remains to detect here is "newline, then
// an indented token" — regardless of what that token turns out to be.
func (p *parser) foldContinuationLines() {
	for p.cur().Type == lexer.NEWLINE && p.peek(1).Indented {
		p.advance()
	}
}

// skipFoldedNewlines folds continuation lines only when doing so leads to
// something that can start a repetition, rolling back otherwise. Used
// where a bare newline (not a fold) should instead end the construct.
func (p *parser) skipFoldedNewlines() bool {
	save := p.pos
	p.foldContinuationLines()
	if elementStart(p.cur().Type) {
		return true
	}
	p.pos = save
	return false
}

// parseAlternation = concatenation *( *c-wsp "/" *c-wsp concatenation )
func (p *parser) parseAlternation() (ast.Element, bool) {
	pos := p.cur().Pos
	first, ok := p.parseConcatenation()
	if !ok {
		return ast.Element{}, false
	}
	items := []ast.Element{first}

	for {
		save := p.pos
		p.foldContinuationLines()
		if p.cur().Type != lexer.SLASH {
			p.pos = save
			break
		}
		p.advance()
		if p.cur().Type == lexer.NEWLINE {
			p.skipFoldedNewlines()
		}
		next, ok := p.parseConcatenation()
		if !ok {
			p.pos = save
			p.err = nil
			break
		}
		items = append(items, next)
	}

	if len(items) == 1 {
		return items[0], true
	}
	return ast.Alternation(pos, items...), true
}

// parseConcatenation = repetition *( 1*c-wsp repetition )
func (p *parser) parseConcatenation() (ast.Element, bool) {
	pos := p.cur().Pos
	first, ok := p.parseRepetition()
	if !ok {
		return ast.Element{}, false
	}
	items := []ast.Element{first}

	for {
		save := p.pos
		if p.cur().Type == lexer.NEWLINE {
			if !p.skipFoldedNewlines() {
				break
			}
		} else if !elementStart(p.cur().Type) {
			break
		}

		next, ok := p.parseRepetition()
		if !ok {
			p.pos = save
			p.err = nil
			break
		}
		items = append(items, next)
	}

	if len(items) == 1 {
		return items[0], true
	}
	return ast.Concatenation(pos, items...), true
}

// parseRepetition = [repeat] element
func (p *parser) parseRepetition() (ast.Element, bool) {
	pos := p.cur().Pos
	min, max, hasRepeat := p.tryParseRepeat()

	el, ok := p.parseElement()
	if !ok {
		return ast.Element{}, false
	}
	if !hasRepeat {
		return el, true
	}
	return ast.Repetition(pos, min, max, el), true
}

// tryParseRepeat consumes an optional "repeat" prefix:
// 1*DIGIT / (*DIGIT "*" *DIGIT).
func (p *parser) tryParseRepeat() (min, max uint32, ok bool) {
	if p.cur().Type == lexer.NUMBER && p.peek(1).Type != lexer.STAR {
		n := parseUint32(p.advance().Text)
		return n, n, true
	}

	var lo uint32
	haveLo := false
	if p.cur().Type == lexer.NUMBER {
		lo = parseUint32(p.advance().Text)
		haveLo = true
	}

	if p.cur().Type != lexer.STAR {
		if haveLo {
			// A bare NUMBER not followed by '*' was already handled above;
			// reaching here with haveLo means NUMBER then not STAR — but
			// that case returned already. Unreachable in practice.
			return lo, lo, true
		}
		return 0, 0, false
	}
	p.advance() // '*'

	hi := ast.Infinite
	if p.cur().Type == lexer.NUMBER {
		hi = parseUint32(p.advance().Text)
	}
	return lo, hi, true
}

func parseUint32(s string) uint32 {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}

// parseElement = rulename / group / option / char-val / num-val / prose-val
func (p *parser) parseElement() (ast.Element, bool) {
	tok := p.cur()
	switch tok.Type {
	case lexer.RULENAME:
		p.advance()
		return ast.RuleRef(tok.Pos, strings.ToLower(tok.Text)), true

	case lexer.LPAREN:
		p.advance()
		p.foldContinuationLines()
		inner, ok := p.parseAlternation()
		if !ok {
			return ast.Element{}, false
		}
		p.foldContinuationLines()
		if p.cur().Type != lexer.RPAREN {
			return ast.Element{}, false
		}
		p.advance()
		return inner, true

	case lexer.LBRACKET:
		p.advance()
		p.foldContinuationLines()
		inner, ok := p.parseAlternation()
		if !ok {
			return ast.Element{}, false
		}
		p.foldContinuationLines()
		if p.cur().Type != lexer.RBRACKET {
			return ast.Element{}, false
		}
		p.advance()
		return ast.Repetition(tok.Pos, 0, 1, inner), true

	case lexer.CHARVAL:
		p.advance()
		return ast.Literal(tok.Pos, []byte(tok.Text), true), true

	case lexer.NUMVAL:
		p.advance()
		return p.parseNumVal(tok)

	case lexer.PROSEVAL:
		p.advance()
		return ast.ProseVal(tok.Pos, tok.Text), true

	default:
		return ast.Element{}, false
	}
}

// parseNumVal interprets a NUMVAL token's raw text ("%x30-39", "%d13.10",
// "%b01000001") into NumRange or NumConcat, per spec §4.1. A range whose
// bounds parse fine individually but have lo > hi is a distinct
// compile-time error (spec §7) from a malformed token, so it is recorded
// on p.err instead of just failing the bool return.
func (p *parser) parseNumVal(tok lexer.Token) (ast.Element, bool) {
	text := tok.Text
	if len(text) < 3 {
		return ast.Element{}, false
	}
	base := text[1]
	var radix int
	switch base {
	case 'b', 'B':
		radix = 2
	case 'd', 'D':
		radix = 10
	case 'x', 'X':
		radix = 16
	default:
		return ast.Element{}, false
	}
	rest := text[2:]

	if idx := strings.IndexByte(rest, '-'); idx >= 0 {
		loStr, hiStr := rest[:idx], rest[idx+1:]
		lo, err1 := strconv.ParseUint(loStr, radix, 8)
		hi, err2 := strconv.ParseUint(hiStr, radix, 8)
		if err1 != nil || err2 != nil {
			return ast.Element{}, false
		}
		if lo > hi {
			p.err = abnferr.InvalidRange(int(lo), int(hi))
			return ast.Element{}, false
		}
		return ast.NumRange(tok.Pos, byte(lo), byte(hi)), true
	}

	parts := strings.Split(rest, ".")
	bytes := make([]byte, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseUint(part, radix, 8)
		if err != nil {
			return ast.Element{}, false
		}
		bytes = append(bytes, byte(v))
	}
	if len(bytes) == 0 {
		return ast.Element{}, false
	}
	return ast.NumConcat(tok.Pos, bytes), true
}

// validateRuleRefs checks spec §3's invariant that every RuleRef in every
// element resolves to a rule present in the same set.
func validateRuleRefs(set *ast.Set) error {
	for _, name := range set.Names() {
		r := set.Rule(name)
		var unresolved string
		ast.Walk(r.Element, func(el ast.Element) {
			if unresolved != "" {
				return
			}
			if el.Kind == ast.KindRuleRef {
				if _, ok := set.Lookup(el.RuleName); !ok {
					unresolved = el.RuleName
				}
			}
		})
		if unresolved != "" {
			return abnferr.UnresolvedRule(unresolved)
		}
	}
	return nil
}
