// Package action implements the semantic-action callback registry: the
// "callback registry" strategy from spec §9 for embedding host-language
// reduction code without this module generating or compiling any of it.
//
// The registration pattern mirrors the database/sql driver pattern (as
// used by the teacher's decorator.Registry): a grammar's rule names are
// opaque strings until a host binds a Func to one with Register.
package action

import (
	"sync"

	"github.com/ldr/exabnf/capture"
)

// Result is what a semantic action returns after a successful rule match.
type Result struct {
	// State replaces the threaded user state. If nil, the state from
	// before the action ran is kept unchanged.
	State any

	// Replacement, when HasReplacement is true, replaces the rule's
	// capture value (capture.Capture.Value) for this match. Otherwise the
	// unmodified child capture is used, per spec §4.2 rule-application
	// step 3.
	Replacement    any
	HasReplacement bool

	// Err, if non-nil, rejects the match: the owning rule fails as if its
	// body had not matched, and the interpreter backtracks. This is the
	// "{error}" return described in spec §4.2 step 4. A panic raised
	// inside the action is not recovered by the interpreter and
	// propagates out of Apply.
	Err error
}

// Ok builds a Result that accepts the match, threading state forward and
// leaving the capture value unchanged.
func Ok(state any) Result {
	return Result{State: state}
}

// OkReplace builds a Result that accepts the match, threading state
// forward and replacing the capture value.
func OkReplace(state any, replacement any) Result {
	return Result{State: state, Replacement: replacement, HasReplacement: true}
}

// Reject builds a Result that rejects the match (the "{error}" outcome).
func Reject(err error) Result {
	return Result{Err: err}
}

// Func is a semantic-action callback: given the raw matched text, the
// structured capture tree for the rule's body, and the current user
// state, it decides whether to accept the match.
type Func func(text []byte, values capture.Capture, state any) Result

// Registry holds the callbacks bound to rule names for one ast.Set. It is
// safe for concurrent Register and Lookup calls.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Func)}
}

// Register binds fn to a case-folded rule name, replacing any previous
// binding.
func (r *Registry) Register(ruleName string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[ruleName] = fn
}

// Lookup returns the callback bound to ruleName, if any.
func (r *Registry) Lookup(ruleName string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.entries[ruleName]
	return fn, ok
}
