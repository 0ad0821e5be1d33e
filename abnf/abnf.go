// Package abnf is the public facade: it wires together the lexer,
// parser, and interpreter behind the two entry points a caller needs,
// per spec §6.
package abnf

import (
	"github.com/ldr/exabnf/abnferr"
	"github.com/ldr/exabnf/action"
	"github.com/ldr/exabnf/ast"
	"github.com/ldr/exabnf/interp"
	"github.com/ldr/exabnf/parser"
)

// Load compiles grammar text into a ruleset. Unlike parser.Parse, a
// non-empty unconsumed tail is itself a failure here (abnferr.IncompleteParse),
// collapsing the low-level Result into the single RuleSet-or-error contract
// spec §6 describes for the public facade.
func Load(text []byte, opts ...parser.Option) (*ast.Set, error) {
	result, err := parser.Parse(text, opts...)
	if err != nil {
		return nil, err
	}
	if len(result.Tail) > 0 {
		return nil, abnferr.IncompleteParse(result.Tail)
	}
	return result.Set, nil
}

// Apply matches rule against input, starting from position 0, per
// spec §4.2's top-level apply contract.
func Apply(set *ast.Set, rule string, input []byte, state any, opts ...interp.Option) (*interp.CaptureResult, error) {
	return interp.Apply(set, rule, input, state, opts...)
}

// Bind registers a semantic-action callback for ruleName. The rule must
// carry a parsed action block (a "!!! ... !!!" body immediately following
// its definition); binding a rule without one is an error, since there
// would be no declared intent in the grammar text for the callback to
// fulfil.
func Bind(set *ast.Set, ruleName string, fn action.Func) error {
	r, ok := set.Lookup(ruleName)
	if !ok {
		return abnferr.UnknownRule(ruleName)
	}
	if !r.HasAction {
		return abnferr.NoActionBlock(ruleName)
	}
	set.Actions.Register(r.Name, fn)
	return nil
}
