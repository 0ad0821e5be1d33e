package interp_test

import (
	"errors"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ldr/exabnf/abnf"
	"github.com/ldr/exabnf/abnferr"
	"github.com/ldr/exabnf/action"
	"github.com/ldr/exabnf/capture"
	"github.com/ldr/exabnf/interp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioLiteralMatch(t *testing.T) {
	set, err := abnf.Load([]byte("string1 = \"test\"\r\n"))
	require.NoError(t, err)

	result, err := abnf.Apply(set, "string1", []byte("test"), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("test"), result.StringText)
	assert.Equal(t, []byte(""), result.Rest)

	// Per the capture-shape table, a bare Literal element captures the
	// matched byte slice as a single value; a rule with no action wraps
	// its body's capture in a one-element list.
	list, ok := result.Values.List()
	require.True(t, ok)
	require.Len(t, list, 1)
	b, ok := list[0].Bytes()
	require.True(t, ok)
	assert.Equal(t, []byte("test"), b)
}

func TestScenarioRepetitionOfDigits(t *testing.T) {
	grammar := "digits = 1*digit\r\ndigit = %x30-39\r\n"
	set, err := abnf.Load([]byte(grammar))
	require.NoError(t, err)

	result, err := abnf.Apply(set, "digits", []byte("42abc"), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("42"), result.StringText)
	assert.Equal(t, []byte("abc"), result.Rest)
}

func TestScenarioOptionAbsent(t *testing.T) {
	set, err := abnf.Load([]byte("opt = [\"x\"] \"y\"\r\n"))
	require.NoError(t, err)

	result, err := abnf.Apply(set, "opt", []byte("y"), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), result.StringText)
}

func TestScenarioOptionPresent(t *testing.T) {
	set, err := abnf.Load([]byte("opt = [\"x\"] \"y\"\r\n"))
	require.NoError(t, err)

	result, err := abnf.Apply(set, "opt", []byte("xy"), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("xy"), result.StringText)
}

func TestScenarioAlternationPrefersLeftmost(t *testing.T) {
	set, err := abnf.Load([]byte("a = \"a\" / \"aa\"\r\n"))
	require.NoError(t, err)

	result, err := abnf.Apply(set, "a", []byte("aa"), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), result.StringText)
	assert.Equal(t, []byte("a"), result.Rest)
}

func TestScenarioActionConvertsCaptureToInt(t *testing.T) {
	grammar := "port = 1*digit\r\n!!!\nconvert digits to an integer\n!!!\ndigit = %x30-39\r\n"
	set, err := abnf.Load([]byte(grammar))
	require.NoError(t, err)

	err = abnf.Bind(set, "port", func(text []byte, values capture.Capture, state any) action.Result {
		n, convErr := strconv.Atoi(string(text))
		if convErr != nil {
			return action.Reject(convErr)
		}
		return action.OkReplace(state, n)
	})
	require.NoError(t, err)

	result, err := abnf.Apply(set, "port", []byte("5060X"), nil)
	require.NoError(t, err)
	assert.Equal(t, 5060, result.Values.Value)
	assert.Equal(t, []byte("X"), result.Rest)
}

func TestScenarioUnknownStartRule(t *testing.T) {
	set, err := abnf.Load([]byte("r = \"x\"\r\n"))
	require.NoError(t, err)

	_, err = abnf.Apply(set, "q", []byte("x"), nil)
	require.Error(t, err)
	var abnfErr *abnferr.Error
	require.True(t, errors.As(err, &abnfErr))
	assert.Equal(t, abnferr.TypeUnknownRule, abnfErr.Kind)
}

func TestScenarioNoMatchSurfacesAsError(t *testing.T) {
	set, err := abnf.Load([]byte("r = \"x\"\r\n"))
	require.NoError(t, err)

	_, err = abnf.Apply(set, "r", []byte("y"), "untouched")
	require.Error(t, err)
	var abnfErr *abnferr.Error
	require.True(t, errors.As(err, &abnfErr))
	assert.Equal(t, abnferr.TypeNoMatch, abnfErr.Kind)
}

// TestZeroWidthRepetitionTerminates covers the case spec §4.2's
// zero-consumption allowance and spec §5's recursion cap both bear on: a
// repetition whose inner element can match without consuming input must
// not count such an empty iteration, and must stop instead of extending
// forever.
func TestZeroWidthRepetitionTerminates(t *testing.T) {
	set, err := abnf.Load([]byte("x = *[\"a\"]\r\n"))
	require.NoError(t, err)

	result, err := abnf.Apply(set, "x", []byte("b"), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte(""), result.StringText)
	assert.Equal(t, []byte("b"), result.Rest)
}

// TestMaxDepthExceededOnUnboundedRuleRecursion exercises WithMaxDepth: a
// rule that references itself before consuming any input recurses once
// per applyRule call, so a small cap is hit deterministically and
// reported as abnferr.TypeRecursionLimit rather than overflowing the
// goroutine stack.
func TestMaxDepthExceededOnUnboundedRuleRecursion(t *testing.T) {
	set, err := abnf.Load([]byte("a = a \"x\" / \"y\"\r\n"))
	require.NoError(t, err)

	_, err = abnf.Apply(set, "a", []byte("y"), nil, interp.WithMaxDepth(8))
	require.Error(t, err)
	var abnfErr *abnferr.Error
	require.True(t, errors.As(err, &abnfErr))
	assert.Equal(t, abnferr.TypeRecursionLimit, abnfErr.Kind)
}

func TestNumRangeMatchesBoundsExactly(t *testing.T) {
	set, err := abnf.Load([]byte("digit = %x30-39\r\n"))
	require.NoError(t, err)

	for b := byte(0x30); b <= 0x39; b++ {
		_, err := abnf.Apply(set, "digit", []byte{b}, nil)
		assert.NoError(t, err, "byte %x should match", b)
	}
	_, err = abnf.Apply(set, "digit", []byte{0x3A}, nil)
	assert.Error(t, err, "byte outside range must not match")
}

func TestLiteralCaseFolding(t *testing.T) {
	set, err := abnf.Load([]byte("word = \"abc\"\r\n"))
	require.NoError(t, err)

	for _, in := range []string{"abc", "ABC", "AbC"} {
		_, err := abnf.Apply(set, "word", []byte(in), nil)
		assert.NoError(t, err, in)
	}
	_, err = abnf.Apply(set, "word", []byte("ab"), nil)
	assert.Error(t, err)
}

func TestIncrementalRuleBehavesLikeExplicitAlternation(t *testing.T) {
	incremental, err := abnf.Load([]byte("r = \"a\"\r\nr =/ \"b\"\r\n"))
	require.NoError(t, err)
	explicit, err := abnf.Load([]byte("r = \"a\" / \"b\"\r\n"))
	require.NoError(t, err)

	for _, in := range []string{"a", "b"} {
		r1, err1 := abnf.Apply(incremental, "r", []byte(in), nil)
		r2, err2 := abnf.Apply(explicit, "r", []byte(in), nil)
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, r2.StringText, r1.StringText)
	}
}

func TestRepeatedApplyIsDeterministic(t *testing.T) {
	set, err := abnf.Load([]byte("digits = 1*digit\r\ndigit = %x30-39\r\n"))
	require.NoError(t, err)

	first, err := abnf.Apply(set, "digits", []byte("123"), nil)
	require.NoError(t, err)
	second, err := abnf.Apply(set, "digits", []byte("123"), nil)
	require.NoError(t, err)
	assert.Equal(t, first.StringText, second.StringText)
	assert.Equal(t, first.Values, second.Values)
}

// shapeOf strips position bookkeeping from a capture tree, leaving only
// the nested-list/byte-slice shape that the capture-shape contract pins.
func shapeOf(c capture.Capture) any {
	if list, ok := c.List(); ok {
		out := make([]any, len(list))
		for i, child := range list {
			out[i] = shapeOf(child)
		}
		return out
	}
	if b, ok := c.Bytes(); ok {
		return string(b)
	}
	return c.Value
}

// TestCaptureTreeShapePinned exercises the exact nesting spec §4.2
// requires for an option inside a concatenation: the option's Repetition
// wraps its single iteration in a list, and the rule itself wraps the
// whole concatenation in a one-element list since "opt" carries no
// action.
func TestCaptureTreeShapePinned(t *testing.T) {
	set, err := abnf.Load([]byte("opt = [\"x\"] \"y\"\r\n"))
	require.NoError(t, err)

	result, err := abnf.Apply(set, "opt", []byte("xy"), nil)
	require.NoError(t, err)

	got := shapeOf(result.Values)
	want := []any{
		[]any{
			[]any{"x"},
			"y",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("capture tree shape mismatch (-want +got):\n%s", diff)
	}
}
