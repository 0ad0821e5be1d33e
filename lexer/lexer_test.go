package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type tokenExpectation struct {
	Type TokenType
	Text string
}

func assertTokens(t *testing.T, input string, expected []tokenExpectation) {
	t.Helper()
	toks := New([]byte(input)).Tokens()
	if !assert.Len(t, toks, len(expected), "token count for %q", input) {
		return
	}
	for i, exp := range expected {
		assert.Equalf(t, exp.Type, toks[i].Type, "token %d type for %q", i, input)
		assert.Equalf(t, exp.Text, toks[i].Text, "token %d text for %q", i, input)
	}
}

func TestRulename(t *testing.T) {
	assertTokens(t, "rule-1", []tokenExpectation{
		{RULENAME, "rule-1"},
		{EOF, ""},
	})
}

func TestDefinedAs(t *testing.T) {
	assertTokens(t, "=", []tokenExpectation{
		{DEFINED_AS, "="},
		{EOF, ""},
	})
	assertTokens(t, "=/", []tokenExpectation{
		{DEFINED_AS_ALT, "=/"},
		{EOF, ""},
	})
}

func TestCharVal(t *testing.T) {
	assertTokens(t, `"test"`, []tokenExpectation{
		{CHARVAL, "test"},
		{EOF, ""},
	})
}

func TestProseVal(t *testing.T) {
	assertTokens(t, "<any char>", []tokenExpectation{
		{PROSEVAL, "any char"},
		{EOF, ""},
	})
}

func TestNumVal(t *testing.T) {
	assertTokens(t, "%x30-39", []tokenExpectation{
		{NUMVAL, "%x30-39"},
		{EOF, ""},
	})
	assertTokens(t, "%d13.10", []tokenExpectation{
		{NUMVAL, "%d13.10"},
		{EOF, ""},
	})
}

func TestCommentsAreDiscardedNotTokenized(t *testing.T) {
	assertTokens(t, "rule ; trailing comment\n", []tokenExpectation{
		{RULENAME, "rule"},
		{NEWLINE, "\\n"},
		{EOF, ""},
	})
}

func TestRepeatAndGroupPunctuation(t *testing.T) {
	assertTokens(t, `1*3("a" / "b")`, []tokenExpectation{
		{NUMBER, "1"},
		{STAR, "*"},
		{NUMBER, "3"},
		{LPAREN, "("},
		{CHARVAL, "a"},
		{SLASH, "/"},
		{CHARVAL, "b"},
		{RPAREN, ")"},
		{EOF, ""},
	})
}

func TestIndentedContinuationToken(t *testing.T) {
	toks := New([]byte("rule = \"a\"\n          / \"b\"\n")).Tokens()
	var slash Token
	for _, tok := range toks {
		if tok.Type == SLASH {
			slash = tok
		}
	}
	assert.True(t, slash.Indented, "continuation line's leading token should be marked Indented")
}

func TestActionBlockCapturedVerbatim(t *testing.T) {
	src := "rule = \"a\"\n!!!\nfmt.Println(1)\n!!!\nnext = \"b\"\n"
	toks := New([]byte(src)).Tokens()

	var block Token
	found := false
	for _, tok := range toks {
		if tok.Type == ACTION_BLOCK {
			block = tok
			found = true
		}
	}
	if assert.True(t, found, "expected an ACTION_BLOCK token") {
		assert.Equal(t, "fmt.Println(1)", block.Text)
	}

	var sawNextRule bool
	for _, tok := range toks {
		if tok.Type == RULENAME && tok.Text == "next" {
			sawNextRule = true
		}
	}
	assert.True(t, sawNextRule, "lexer must resume grammar mode after the closing !!!")
}

func TestEOF(t *testing.T) {
	assertTokens(t, "", []tokenExpectation{
		{EOF, ""},
	})
}
