// Package masking produces the public, partially hidden rendering of identifiers
// and personal names shown on listings before anyone has proven ownership.
//
// Both functions are total: any string in, a string out, no errors. Lengths are
// counted in runes so names with accents mask the same way ASCII ones do.
package masking

import "strings"

const maskRune = '*'

// Identifier masks a document number or similar identifier.
// Empty stays empty; four runes or fewer become "****"; longer values keep their
// first two and last two runes with every rune in between replaced by '*'.
func Identifier(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	if len(r) <= 4 {
		return "****"
	}
	var b strings.Builder
	b.Grow(len(s))
	b.WriteString(string(r[:2]))
	b.WriteString(strings.Repeat(string(maskRune), len(r)-4))
	b.WriteString(string(r[len(r)-2:]))
	return b.String()
}

// Name masks a personal name.
// A single token keeps its first and last rune ("Jane" -> "J**e"; a one-rune
// name stays as is). Multiple tokens render as the masked first token followed
// by the initial of the last token ("Jane Doe" -> "J**e D."). There the first
// token always shows both ends, so a one-rune first token repeats ("J Doe" ->
// "JJ D.").
func Name(full string) string {
	tokens := strings.Fields(full)
	switch len(tokens) {
	case 0:
		return ""
	case 1:
		r := []rune(tokens[0])
		if len(r) == 1 {
			return tokens[0]
		}
		return maskToken(r)
	default:
		last := []rune(tokens[len(tokens)-1])
		return maskToken([]rune(tokens[0])) + " " + string(last[0]) + "."
	}
}

func maskToken(r []rune) string {
	return string(r[0]) + strings.Repeat(string(maskRune), max(len(r)-2, 0)) + string(r[len(r)-1])
}
