// Package lexer tokenizes ABNF grammar text (RFC 5234 §4) for the parser
// package. It is a hand-rolled byte scanner: grammar text is ASCII in
// practice (spec §3), so scanning by byte and copying verbatim spans for
// comments/prose/quoted text keeps any incidental multi-byte UTF-8 inside
// them intact without ever decoding runes.
package lexer

import (
	"log/slog"
	"strings"

	"github.com/ldr/exabnf/ast"
)

// mode distinguishes ordinary grammar scanning from the verbatim capture
// of a semantic-action block, mirroring the teacher's mode-field lexer
// design (runtime/lexer.Lexer.mode) scaled down to the two modes this
// grammar needs.
type mode int

const (
	modeGrammar mode = iota
	modeAction
)

// ASCII classification tables, precomputed once like the teacher's
// isWhitespace/isLetter/isDigit tables.
var (
	isAlpha [128]bool
	isDigit [128]bool
	isHex   [128]bool
	isWSP   [128]bool
)

func init() {
	for i := 0; i < 128; i++ {
		c := byte(i)
		isAlpha[i] = (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit[i] = c >= '0' && c <= '9'
		isHex[i] = isDigit[i] || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		isWSP[i] = c == ' ' || c == '\t'
	}
}

// Lexer scans ABNF grammar text into a flat token slice.
type Lexer struct {
	src    []byte
	pos    int
	line   int
	column int
	mode   mode
	logger *slog.Logger

	atLineStart       bool // true if no token has been emitted on the current line yet
	sawIndentThisLine bool // true if WSP was skipped before the first token on this line
}

// Option configures a Lexer, following the teacher's functional-options
// convention (ParserOpt in runtime/parser).
type Option func(*Lexer)

// WithDebugLog attaches a logger that receives a slog.Debug event per
// emitted token.
func WithDebugLog(logger *slog.Logger) Option {
	return func(l *Lexer) { l.logger = logger }
}

// New returns a Lexer positioned at the start of src.
func New(src []byte, opts ...Option) *Lexer {
	l := &Lexer{src: src, line: 1, column: 1, atLineStart: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Tokens scans the entire input and returns the resulting token slice,
// always terminated by a single EOF token.
func (l *Lexer) Tokens() []Token {
	var toks []Token
	for {
		t := l.next()
		toks = append(toks, t)
		if t.Type == EOF {
			return toks
		}
	}
}

func (l *Lexer) peekByte(off int) byte {
	p := l.pos + off
	if p >= len(l.src) {
		return 0
	}
	return l.src[p]
}

func (l *Lexer) cur() byte {
	return l.peekByte(0)
}

func (l *Lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return c
}

func (l *Lexer) here() ast.Position {
	return ast.Position{Line: l.line, Column: l.column, Offset: l.pos}
}

func (l *Lexer) emit(t Token) Token {
	if l.logger != nil {
		l.logger.Debug("token", "type", t.Type.String(), "text", t.Text, "pos", t.Pos.String())
	}
	return t
}

// next scans and returns the next token.
func (l *Lexer) next() Token {
	if l.mode == modeAction {
		return l.emit(l.scanActionBlock())
	}

	wasLineStart := l.atLineStart
	l.skipWSPAndComments()
	indented := wasLineStart && l.sawIndentThisLine

	tok := l.scanOne()
	tok.Indented = indented

	if tok.Type == NEWLINE {
		l.atLineStart = true
		l.sawIndentThisLine = false
	} else {
		l.atLineStart = false
		l.sawIndentThisLine = false
	}

	return l.emit(tok)
}

func (l *Lexer) scanOne() Token {
	if l.pos >= len(l.src) {
		return Token{Type: EOF, Pos: l.here()}
	}

	start := l.here()
	c := l.cur()

	switch {
	case c == '\r' || c == '\n':
		tok := l.scanNewline(start)
		if l.atActionSentinel() {
			l.consumeActionOpener()
			l.mode = modeAction
		}
		return tok
	case c < 128 && isAlpha[c]:
		return l.scanRulename(start)
	case c == '"':
		return l.scanCharVal(start)
	case c == '<':
		return l.scanProseVal(start)
	case c == '%':
		return l.scanNumVal(start)
	case c < 128 && isDigit[c]:
		return l.scanNumber(start)
	case c == '=':
		return l.scanDefinedAs(start)
	case c == '/':
		l.advance()
		return Token{Type: SLASH, Text: "/", Pos: start}
	case c == '*':
		l.advance()
		return Token{Type: STAR, Text: "*", Pos: start}
	case c == '(':
		l.advance()
		return Token{Type: LPAREN, Text: "(", Pos: start}
	case c == ')':
		l.advance()
		return Token{Type: RPAREN, Text: ")", Pos: start}
	case c == '[':
		l.advance()
		return Token{Type: LBRACKET, Text: "[", Pos: start}
	case c == ']':
		l.advance()
		return Token{Type: RBRACKET, Text: "]", Pos: start}
	default:
		l.advance()
		return Token{Type: ILLEGAL, Text: string(c), Pos: start}
	}
}

// skipWSPAndComments discards runs of space/tab and ";...eol" comments.
// It never crosses a newline: the newline itself is always returned as a
// token because rule boundaries (c-nl) depend on it.
func (l *Lexer) skipWSPAndComments() {
	for l.pos < len(l.src) {
		c := l.cur()
		if c < 128 && isWSP[c] {
			if l.atLineStart {
				l.sawIndentThisLine = true
			}
			l.advance()
			continue
		}
		if c == ';' {
			for l.pos < len(l.src) && l.cur() != '\n' && l.cur() != '\r' {
				l.advance()
			}
			continue
		}
		return
	}
}

func (l *Lexer) scanNewline(start ast.Position) Token {
	if l.cur() == '\r' {
		l.advance()
	}
	if l.pos < len(l.src) && l.cur() == '\n' {
		l.advance()
	}
	return Token{Type: NEWLINE, Text: "\\n", Pos: start}
}

func (l *Lexer) scanRulename(start ast.Position) Token {
	s := l.pos
	l.advance() // first ALPHA
	for l.pos < len(l.src) {
		c := l.cur()
		if c >= 128 {
			break
		}
		if isAlpha[c] || isDigit[c] || c == '-' {
			l.advance()
			continue
		}
		break
	}
	return Token{Type: RULENAME, Text: string(l.src[s:l.pos]), Pos: start}
}

func (l *Lexer) scanNumber(start ast.Position) Token {
	s := l.pos
	for l.pos < len(l.src) && l.cur() < 128 && isDigit[l.cur()] {
		l.advance()
	}
	return Token{Type: NUMBER, Text: string(l.src[s:l.pos]), Pos: start}
}

// scanCharVal consumes a DQUOTE-delimited literal. ABNF forbids escaping,
// so the first unescaped '"' always closes it.
func (l *Lexer) scanCharVal(start ast.Position) Token {
	l.advance() // opening quote
	s := l.pos
	for l.pos < len(l.src) && l.cur() != '"' {
		l.advance()
	}
	text := string(l.src[s:l.pos])
	if l.pos < len(l.src) {
		l.advance() // closing quote
	}
	return Token{Type: CHARVAL, Text: text, Pos: start}
}

func (l *Lexer) scanProseVal(start ast.Position) Token {
	l.advance() // '<'
	s := l.pos
	for l.pos < len(l.src) && l.cur() != '>' {
		l.advance()
	}
	text := string(l.src[s:l.pos])
	if l.pos < len(l.src) {
		l.advance() // '>'
	}
	return Token{Type: PROSEVAL, Text: text, Pos: start}
}

// scanNumVal consumes "%" base 1*digit [("." 1*digit)* / ("-" 1*digit)],
// returned whole for the parser to interpret (it alone knows the base).
func (l *Lexer) scanNumVal(start ast.Position) Token {
	s := l.pos
	l.advance() // '%'
	if l.pos < len(l.src) && l.cur() < 128 && isAlpha[l.cur()] {
		l.advance() // base letter (b, d or x)
	}
	for l.pos < len(l.src) {
		c := l.cur()
		if c < 128 && (isHex[c] || c == '.' || c == '-') {
			l.advance()
			continue
		}
		break
	}
	return Token{Type: NUMVAL, Text: string(l.src[s:l.pos]), Pos: start}
}

func (l *Lexer) scanDefinedAs(start ast.Position) Token {
	l.advance() // '='
	if l.pos < len(l.src) && l.cur() == '/' {
		l.advance()
		return Token{Type: DEFINED_AS_ALT, Text: "=/", Pos: start}
	}
	return Token{Type: DEFINED_AS, Text: "=", Pos: start}
}

const actionSentinel = "!!!"

// atActionSentinel reports whether the lexer is positioned (ignoring
// leading WSP on the current line) at a line that is exactly "!!!".
func (l *Lexer) atActionSentinel() bool {
	p := l.pos
	for p < len(l.src) && isWSPByte(l.src[p]) {
		p++
	}
	if p+len(actionSentinel) > len(l.src) {
		return false
	}
	if string(l.src[p:p+len(actionSentinel)]) != actionSentinel {
		return false
	}
	rest := p + len(actionSentinel)
	for rest < len(l.src) && isWSPByte(l.src[rest]) {
		rest++
	}
	return rest >= len(l.src) || l.src[rest] == '\n' || l.src[rest] == '\r'
}

func isWSPByte(c byte) bool {
	return c == ' ' || c == '\t'
}

// consumeActionOpener advances past a confirmed "!!!" opener line: its
// leading WSP, the sentinel itself, trailing WSP, and terminating
// newline.
func (l *Lexer) consumeActionOpener() {
	l.consumeSentinelLine()
}

func (l *Lexer) consumeSentinelLine() {
	for l.pos < len(l.src) && isWSPByte(l.cur()) {
		l.advance()
	}
	for i := 0; i < len(actionSentinel) && l.pos < len(l.src); i++ {
		l.advance()
	}
	for l.pos < len(l.src) && isWSPByte(l.cur()) {
		l.advance()
	}
	if l.pos < len(l.src) && (l.cur() == '\r' || l.cur() == '\n') {
		l.scanNewline(l.here())
	}
}

// scanActionBlock captures raw text up to (not including) the next
// standalone "!!!" line, consumes that closing line, and reverts to
// grammar mode.
func (l *Lexer) scanActionBlock() Token {
	start := l.here()
	s := l.pos
	for l.pos < len(l.src) {
		if l.atPhysicalLineStart() && l.atActionSentinel() {
			break
		}
		l.advance()
	}
	text := string(l.src[s:l.pos])
	l.consumeSentinelLine()

	l.mode = modeGrammar
	return Token{Type: ACTION_BLOCK, Text: strings.TrimRight(text, "\r\n"), Pos: start}
}

func (l *Lexer) atPhysicalLineStart() bool {
	return l.pos == 0 || l.src[l.pos-1] == '\n'
}
