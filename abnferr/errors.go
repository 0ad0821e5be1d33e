// Package abnferr defines the structured error types returned by this
// module's compiler and interpreter, per spec §6-7: callers recover
// diagnostic fields with errors.As rather than parsing a message string.
package abnferr

import "fmt"

// Type identifies an error category.
type Type string

const (
	// Compile-time (Load) errors.
	TypeIncompleteParse  Type = "INCOMPLETE_PARSING"
	TypeInvalidGrammar   Type = "INVALID_GRAMMAR"
	TypeUnresolvedRule   Type = "UNRESOLVED_RULE"
	TypeDuplicateRule    Type = "DUPLICATE_RULE"
	TypeSyntax           Type = "SYNTAX_ERROR"
	TypeInvalidRange     Type = "INVALID_NUMERIC_RANGE"
	TypeNoActionBlock    Type = "NO_ACTION_BLOCK"

	// Runtime (Apply) errors.
	TypeUnknownRule           Type = "UNKNOWN_RULE"
	TypeNoMatch               Type = "NO_MATCH"
	TypeUnresolvableProse     Type = "UNRESOLVABLE_PROSE_VAL"
	TypeRecursionLimit        Type = "RECURSION_LIMIT_EXCEEDED"
	TypeActionAborted         Type = "ACTION_ABORTED"
)

// Error is a structured error carrying a Type, a human-readable Message,
// an optional wrapped Cause, and free-form diagnostic Context (rule name,
// byte offset, unconsumed tail, ...).
type Error struct {
	Kind    Type
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is by comparing Kind, so callers can write
// errors.Is(err, abnferr.NoMatch("")) without needing the exact Context.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

func newErr(kind Type, msg string, ctx map[string]any) *Error {
	return &Error{Kind: kind, Message: msg, Context: ctx}
}

// IncompleteParse reports that grammar text remained unconsumed after
// parsing all recognizable rules. Tail is the unconsumed suffix.
func IncompleteParse(tail []byte) *Error {
	return newErr(TypeIncompleteParse, "grammar text left unconsumed after the last recognized rule",
		map[string]any{"tail": string(tail)})
}

// InvalidGrammar reports that no rules parsed at all.
func InvalidGrammar(reason string) *Error {
	return newErr(TypeInvalidGrammar, reason, nil)
}

// UnresolvedRule reports a RuleRef with no matching definition.
func UnresolvedRule(name string) *Error {
	return newErr(TypeUnresolvedRule, fmt.Sprintf("rule %q is referenced but never defined", name),
		map[string]any{"rule": name})
}

// DuplicateRule reports a bare rule definition ("=") repeating a name
// that already has a definition. Incremental alternatives ("=/") are not
// duplicates.
func DuplicateRule(name string) *Error {
	return newErr(TypeDuplicateRule, fmt.Sprintf("rule %q is defined more than once", name),
		map[string]any{"rule": name})
}

// Syntax reports a grammar-text syntax error at a position.
func Syntax(msg string, line, column, offset int) *Error {
	return newErr(TypeSyntax, msg, map[string]any{"line": line, "column": column, "offset": offset})
}

// InvalidRange reports a numeric range with lo > hi or out of [0,255].
func InvalidRange(lo, hi int) *Error {
	return newErr(TypeInvalidRange, fmt.Sprintf("numeric range %%x%X-%X is invalid", lo, hi),
		map[string]any{"lo": lo, "hi": hi})
}

// NoActionBlock reports Bind called against a rule with no parsed action
// block.
func NoActionBlock(rule string) *Error {
	return newErr(TypeNoActionBlock, fmt.Sprintf("rule %q has no action block to bind", rule),
		map[string]any{"rule": rule})
}

// UnknownRule reports Apply called with a start rule absent from the set.
func UnknownRule(name string) *Error {
	return newErr(TypeUnknownRule, fmt.Sprintf("rule %q is not defined in this ruleset", name),
		map[string]any{"rule": name})
}

// NoMatch reports that no alternative matched at the top level.
func NoMatch(rule string) *Error {
	return newErr(TypeNoMatch, fmt.Sprintf("input does not match rule %q", rule),
		map[string]any{"rule": rule})
}

// UnresolvableProse reports that a ProseVal placeholder was actually
// reached during matching.
func UnresolvableProse(text string) *Error {
	return newErr(TypeUnresolvableProse, fmt.Sprintf("prose-val <%s> was reached during matching and cannot be resolved", text),
		map[string]any{"prose": text})
}

// RecursionLimitExceeded reports that the interpreter's configured
// recursion-depth cap was hit.
func RecursionLimitExceeded(limit int) *Error {
	return newErr(TypeRecursionLimit, fmt.Sprintf("match recursion exceeded the configured limit of %d", limit),
		map[string]any{"limit": limit})
}

// ActionAborted wraps an unexpected (non-{error}) failure raised by a
// semantic action, which per spec §7 propagates to the caller unchanged
// rather than just failing the owning rule.
func ActionAborted(rule string, cause error) *Error {
	e := newErr(TypeActionAborted, fmt.Sprintf("semantic action for rule %q aborted the match", rule),
		map[string]any{"rule": rule})
	e.Cause = cause
	return e
}
