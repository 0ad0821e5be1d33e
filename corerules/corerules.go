// Package corerules supplies the RFC 5234 Appendix B "Core Rules": the
// small set of ASCII-character-class productions (ALPHA, DIGIT, WSP, ...)
// that most real-world ABNF grammars reference but rarely redefine
// themselves. Augment lets a caller append them to a grammar instead of
// retyping "DIGIT = %x30-39" in every fixture.
package corerules

// Text is the RFC 5234 Appendix B.1 core rules, verbatim in meaning,
// expressed in the dialect this module's parser accepts.
const Text = `ALPHA = %x41-5A / %x61-7A
BIT = "0" / "1"
CHAR = %x01-7F
CR = %x0D
CRLF = CR LF
CTL = %x00-1F / %x7F
DIGIT = %x30-39
DQUOTE = %x22
HEXDIG = DIGIT / "A" / "B" / "C" / "D" / "E" / "F"
HTAB = %x09
LF = %x0A
LWSP = *(WSP / CRLF WSP)
OCTET = %x00-FF
SP = %x20
VCHAR = %x21-7E
WSP = SP / HTAB
`

// Augment appends the core rules to grammar text, so that any grammar
// referencing ALPHA/DIGIT/HEXDIG/etc. without redefining them resolves
// per spec §3's "every RuleRef resolves" invariant. Every core rule is
// appended whether or not text already defines it: ABNF rejects duplicate
// bare definitions, so a grammar that already defines, say, DIGIT fails to
// load with DuplicateRule once augmented.
func Augment(text []byte) []byte {
	out := make([]byte, 0, len(text)+len(Text)+1)
	out = append(out, text...)
	if len(text) > 0 && text[len(text)-1] != '\n' {
		out = append(out, '\n')
	}
	out = append(out, []byte(Text)...)
	return out
}
