package lexer

import "github.com/ldr/exabnf/ast"

// TokenType identifies a lexical token of ABNF grammar text.
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL

	RULENAME // ALPHA *(ALPHA / DIGIT / "-")
	NUMBER   // 1*DIGIT, used for repeat counts
	CHARVAL  // "quoted string"
	NUMVAL   // %x.. / %b.. / %d..
	PROSEVAL // <free text>
	COMMENT  // ; to end of line

	DEFINED_AS   // =
	DEFINED_AS_ALT // =/
	SLASH        // /
	STAR         // *
	LPAREN       // (
	RPAREN       // )
	LBRACKET     // [
	RBRACKET     // ]

	NEWLINE // c-nl (CRLF or bare LF)

	ACTION_BLOCK // the verbatim text between a pair of "!!!" sentinel lines
)

func (t TokenType) String() string {
	switch t {
	case EOF:
		return "EOF"
	case ILLEGAL:
		return "ILLEGAL"
	case RULENAME:
		return "RULENAME"
	case NUMBER:
		return "NUMBER"
	case CHARVAL:
		return "CHARVAL"
	case NUMVAL:
		return "NUMVAL"
	case PROSEVAL:
		return "PROSEVAL"
	case COMMENT:
		return "COMMENT"
	case DEFINED_AS:
		return "DEFINED_AS"
	case DEFINED_AS_ALT:
		return "DEFINED_AS_ALT"
	case SLASH:
		return "SLASH"
	case STAR:
		return "STAR"
	case LPAREN:
		return "LPAREN"
	case RPAREN:
		return "RPAREN"
	case LBRACKET:
		return "LBRACKET"
	case RBRACKET:
		return "RBRACKET"
	case NEWLINE:
		return "NEWLINE"
	case ACTION_BLOCK:
		return "ACTION_BLOCK"
	default:
		return "UNKNOWN"
	}
}

// Token is a single lexical token of grammar text.
type Token struct {
	Type TokenType
	Text string
	Pos  ast.Position

	// Indented is true when this token is the first non-blank token on
	// its physical line and that line began with WSP. The parser uses it
	// to recognize folded (continuation) lines per ABNF's
	// c-wsp = WSP / (c-nl WSP) without the lexer needing to understand
	// grammar structure.
	Indented bool
}

func (t Token) String() string {
	return t.Text
}
