// Package interp implements the backtracking grammar interpreter: given a
// compiled ast.Set, a start rule, and input bytes, it walks the rule's
// Element tree against the input and produces a CaptureResult.
//
// The search strategy is continuation-passing: matchElement tries
// candidate matches for an element in priority order (leftmost
// alternative first, maximal repetition count first) and invokes a
// continuation for each; the first candidate for which the continuation
// reports success wins and the search unwinds immediately, mirroring the
// single recursive dispatch-by-node-kind shape of the teacher's
// executor.executeStep switch.
package interp

import (
	"github.com/ldr/exabnf/abnferr"
	"github.com/ldr/exabnf/action"
	"github.com/ldr/exabnf/ast"
	"github.com/ldr/exabnf/capture"
	"github.com/ldr/exabnf/invariant"
)

// Options configures an Apply call.
type Options struct {
	// MaxDepth caps rule-call recursion depth. Defaults to 4096; override
	// with WithMaxDepth. Must be in [1, 1<<20]; Apply panics otherwise,
	// since a misconfigured cap is a host programming error, not bad
	// input.
	MaxDepth int
}

const (
	defaultMaxDepth = 4096
	minMaxDepth     = 1
	maxMaxDepth     = 1 << 20
)

// Option configures an Apply call, following the module's functional
// options convention.
type Option func(*Options)

// WithMaxDepth overrides the recursion-depth cap.
func WithMaxDepth(n int) Option {
	return func(o *Options) { o.MaxDepth = n }
}

// CaptureResult is produced by a successful top-level Apply.
type CaptureResult struct {
	Input        []byte
	StringText   []byte
	Rest         []byte
	StringTokens [][]byte
	Values       capture.Capture
	State        any
}

// env carries per-match configuration and mutable bookkeeping through the
// recursive descent. It is never shared across concurrent Apply calls.
type env struct {
	set     *ast.Set
	input   []byte
	opts    Options
	hardErr error // set once a hard failure (recursion limit, unresolvable prose) occurs
}

// cont is invoked with a candidate outcome of matching one element. It
// returns true to accept the candidate (stopping the search for
// alternatives at every enclosing level) or false to request the next
// candidate, if any.
type cont func(pos int, cap capture.Capture, state any) bool

// Apply matches rule against input from position 0, per spec §4.2's
// top-level contract.
func Apply(set *ast.Set, rule string, input []byte, state any, opts ...Option) (*CaptureResult, error) {
	invariant.Precondition(set != nil, "set must not be nil")

	r, ok := set.Lookup(normalizeRuleName(rule))
	if !ok {
		return nil, abnferr.UnknownRule(rule)
	}

	o := Options{MaxDepth: defaultMaxDepth}
	for _, opt := range opts {
		opt(&o)
	}
	invariant.InRange(o.MaxDepth, minMaxDepth, maxMaxDepth, "MaxDepth")

	e := &env{set: set, input: input, opts: o}

	var (
		finalPos   int
		finalCap   capture.Capture
		finalState any
		found      bool
	)

	ok = e.applyRule(r, 0, state, 0, func(pos int, c capture.Capture, st any) bool {
		finalPos, finalCap, finalState, found = pos, c, st, true
		return true
	})
	if e.hardErr != nil {
		return nil, e.hardErr
	}
	if !ok || !found {
		return nil, abnferr.NoMatch(rule)
	}

	tokens := flattenTokens(finalCap)
	return &CaptureResult{
		Input:        input,
		StringText:   input[:finalPos],
		Rest:         input[finalPos:],
		StringTokens: tokens,
		Values:       finalCap,
		State:        finalState,
	}, nil
}

func normalizeRuleName(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// flattenTokens implements spec §3's "string_tokens: flattened list of
// the consumed byte slices at the immediate children of the start rule."
func flattenTokens(c capture.Capture) [][]byte {
	list, ok := c.List()
	if !ok {
		if b, ok := c.Bytes(); ok {
			return [][]byte{b}
		}
		return nil
	}
	var out [][]byte
	for _, child := range list {
		if b, ok := child.Bytes(); ok {
			out = append(out, b)
			continue
		}
		out = append(out, flattenTokens(child)...)
	}
	return out
}

// applyRule implements spec §4.2's rule-application steps for RuleRef r.
func (e *env) applyRule(r *ast.Rule, pos int, state any, depth int, k cont) bool {
	if e.hardErr != nil {
		return false
	}
	if depth > e.opts.MaxDepth {
		e.hardErr = abnferr.RecursionLimitExceeded(e.opts.MaxDepth)
		return false
	}

	return e.matchElement(r.Element, pos, state, depth+1, func(newPos int, values capture.Capture, newState any) bool {
		text := e.input[pos:newPos]

		var fn action.Func
		var hasAction bool
		fn, hasAction = e.set.Actions.Lookup(r.Name)
		if !r.HasAction || !hasAction {
			wrapped := capture.Capture{Start: pos, End: newPos, Value: []capture.Capture{values}}
			return k(newPos, wrapped, newState)
		}

		result := fn(text, values, newState)
		if result.Err != nil {
			// {error}: the owning rule fails, backtracking resumes.
			return false
		}
		outState := newState
		if result.State != nil {
			outState = result.State
		}
		outCap := values
		if result.HasReplacement {
			outCap = capture.Capture{Start: pos, End: newPos, Value: result.Replacement}
		}
		return k(newPos, outCap, outState)
	})
}

// matchElement dispatches on el.Kind, trying candidates in priority
// order and feeding each to k until one is accepted.
func (e *env) matchElement(el ast.Element, pos int, state any, depth int, k cont) bool {
	if e.hardErr != nil {
		return false
	}
	if depth > e.opts.MaxDepth {
		e.hardErr = abnferr.RecursionLimitExceeded(e.opts.MaxDepth)
		return false
	}

	switch el.Kind {
	case ast.KindLiteral:
		return e.matchLiteral(el, pos, state, k)
	case ast.KindNumConcat:
		return e.matchNumConcat(el, pos, state, k)
	case ast.KindNumRange:
		return e.matchNumRange(el, pos, state, k)
	case ast.KindConcatenation:
		return e.matchConcatenation(el.Items, pos, state, depth, k)
	case ast.KindAlternation:
		return e.matchAlternation(el.Items, pos, state, depth, k)
	case ast.KindRepetition:
		return e.matchRepetition(el, pos, state, depth, k)
	case ast.KindRuleRef:
		return e.matchRuleRef(el, pos, state, depth, k)
	case ast.KindProseVal:
		e.hardErr = abnferr.UnresolvableProse(el.Prose)
		return false
	default:
		invariant.Invariant(false, "unhandled element kind %v", el.Kind)
		return false
	}
}

func (e *env) matchLiteral(el ast.Element, pos int, state any, k cont) bool {
	n := len(el.Bytes)
	if pos+n > len(e.input) {
		return false
	}
	chunk := e.input[pos : pos+n]
	if el.CaseInsensitive {
		if !equalFoldASCII(chunk, el.Bytes) {
			return false
		}
	} else if !equalBytes(chunk, el.Bytes) {
		return false
	}
	return k(pos+n, capture.Capture{Start: pos, End: pos + n, Value: append([]byte(nil), chunk...)}, state)
}

func (e *env) matchNumConcat(el ast.Element, pos int, state any, k cont) bool {
	n := len(el.Bytes)
	if pos+n > len(e.input) {
		return false
	}
	chunk := e.input[pos : pos+n]
	if !equalBytes(chunk, el.Bytes) {
		return false
	}
	return k(pos+n, capture.Capture{Start: pos, End: pos + n, Value: append([]byte(nil), chunk...)}, state)
}

func (e *env) matchNumRange(el ast.Element, pos int, state any, k cont) bool {
	if pos >= len(e.input) {
		return false
	}
	b := e.input[pos]
	if b < el.Lo || b > el.Hi {
		return false
	}
	return k(pos+1, capture.Capture{Start: pos, End: pos + 1, Value: []byte{b}}, state)
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalFoldASCII(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

// matchConcatenation matches items left to right, backtracking into an
// earlier item's unexplored candidates when a later item fails, per
// spec §4.2's alternation/concatenation backtracking requirement.
func (e *env) matchConcatenation(items []ast.Element, pos int, state any, depth int, k cont) bool {
	if len(items) == 0 {
		return k(pos, capture.Capture{Start: pos, End: pos, Value: []capture.Capture{}}, state)
	}
	start := pos
	return e.matchSeq(items, 0, pos, nil, state, depth, func(newPos int, c capture.Capture, newState any) bool {
		c.Start, c.End = start, newPos
		return k(newPos, c, newState)
	})
}

func (e *env) matchSeq(items []ast.Element, idx int, pos int, acc []capture.Capture, state any, depth int, k cont) bool {
	if e.hardErr != nil {
		return false
	}
	if idx == len(items) {
		out := append([]capture.Capture(nil), acc...)
		return k(pos, capture.Capture{Start: pos, End: pos, Value: out}, state)
	}
	return e.matchElement(items[idx], pos, state, depth, func(newPos int, c capture.Capture, newState any) bool {
		return e.matchSeq(items, idx+1, newPos, append(acc, c), newState, depth, k)
	})
}

// matchAlternation tries each branch in source order, per spec §4.2: the
// first branch whose match allows the rest of the enclosing context to
// complete wins.
func (e *env) matchAlternation(items []ast.Element, pos int, state any, depth int, k cont) bool {
	for _, branch := range items {
		if e.hardErr != nil {
			return false
		}
		ok := e.matchElement(branch, pos, state, depth, func(newPos int, c capture.Capture, newState any) bool {
			wrapped := capture.Capture{Start: pos, End: newPos, Value: []capture.Capture{c}}
			return k(newPos, wrapped, newState)
		})
		if ok {
			return true
		}
	}
	return false
}

// matchRepetition matches el.Inner greedily up to el.Max times, then
// backs off one iteration at a time (never below el.Min) until the
// enclosing continuation accepts, per spec §4.2's greedy-with-backtracking
// semantics.
func (e *env) matchRepetition(el ast.Element, pos int, state any, depth int, k cont) bool {
	start := pos
	return e.matchRepeatFrom(*el.Inner, el.Min, el.Max, 0, pos, nil, state, depth, func(newPos int, c capture.Capture, newState any) bool {
		c.Start, c.End = start, newPos
		return k(newPos, c, newState)
	})
}

func (e *env) matchRepeatFrom(inner ast.Element, min, max uint32, count uint32, pos int, acc []capture.Capture, state any, depth int, k cont) bool {
	if e.hardErr != nil {
		return false
	}

	// Try to extend first (greedy): attempt one more iteration if under max.
	// An iteration that consumes no input (a zero-width inner element, e.g.
	// an optional or a nested *-repetition that can match empty) is
	// rejected rather than counted: extending past it would never reach max
	// and would recurse without bound on otherwise valid input. The
	// repetition then settles for the count reached before it.
	if count < max {
		extended := e.matchElement(inner, pos, state, depth, func(newPos int, c capture.Capture, newState any) bool {
			if newPos == pos {
				return false
			}
			return e.matchRepeatFrom(inner, min, max, count+1, newPos, append(acc, c), newState, depth, k)
		})
		if extended {
			return true
		}
	}

	// Extension failed or is capped: accept the current count if it meets
	// the minimum.
	if count < min {
		return false
	}
	out := append([]capture.Capture(nil), acc...)
	return k(pos, capture.Capture{Start: pos, End: pos, Value: out}, state)
}

func (e *env) matchRuleRef(el ast.Element, pos int, state any, depth int, k cont) bool {
	r, ok := e.set.Lookup(el.RuleName)
	invariant.Invariant(ok, "RuleRef %q unresolved at match time (should have been caught at load)", el.RuleName)
	return e.applyRule(r, pos, state, depth, func(newPos int, c capture.Capture, newState any) bool {
		return k(newPos, c, newState)
	})
}
