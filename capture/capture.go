// Package capture defines the structured value produced by a successful
// element match, shared between the interpreter and the semantic-action
// registry so neither needs to import the other.
package capture

// Capture is a node in the capture tree described in spec §4.2. Start and
// End always delimit the raw bytes this node consumed, regardless of what
// Value holds, so callers can recover the original text even after a
// semantic action has replaced Value with something else entirely.
//
// Value holds one of:
//   - []byte: a leaf match (Literal, NumConcat, NumRange)
//   - []Capture: an ordered list of child captures (Concatenation, the
//     single-element wrapper used by Alternation and by an action-less
//     RuleRef, and the per-iteration list produced by Repetition)
//   - anything else: the replacement value returned by a rule's semantic
//     action
type Capture struct {
	Start int
	End   int
	Value any
}

// Bytes returns Value as a []byte, or ok=false if Value holds something
// else (a capture list or an action replacement).
func (c Capture) Bytes() ([]byte, bool) {
	b, ok := c.Value.([]byte)
	return b, ok
}

// List returns Value as a []Capture, or ok=false if Value holds something
// else.
func (c Capture) List() ([]Capture, bool) {
	l, ok := c.Value.([]Capture)
	return l, ok
}
