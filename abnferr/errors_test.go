package abnferr_test

import (
	"errors"
	"testing"

	"github.com/ldr/exabnf/abnferr"
	"github.com/stretchr/testify/assert"
)

func TestErrorsIsComparesKindNotContext(t *testing.T) {
	a := abnferr.UnresolvedRule("foo")
	b := abnferr.UnresolvedRule("bar")
	assert.True(t, errors.Is(a, b), "two errors of the same kind with different context must compare equal via errors.Is")

	c := abnferr.UnknownRule("foo")
	assert.False(t, errors.Is(a, c))
}

func TestErrorsAsRecoversStructuredFields(t *testing.T) {
	err := error(abnferr.IncompleteParse([]byte("tail text")))

	var target *abnferr.Error
	if assert.True(t, errors.As(err, &target)) {
		assert.Equal(t, abnferr.TypeIncompleteParse, target.Kind)
		assert.Equal(t, "tail text", target.Context["tail"])
	}
}

func TestActionAbortedWrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := abnferr.ActionAborted("rule", cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("boom")
	err := abnferr.ActionAborted("rule", cause)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "ACTION_ABORTED")
}
