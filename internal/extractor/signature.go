package extractor

import "strings"

// canonicalSignature renders parameter and result types without names or
// spacing, so that `Speak(ctx context.Context) (n int, err error)` and
// `Speak(context.Context) (int, error)` compare equal.
func canonicalSignature(params, returns []Param) string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(joinTypes(params))
	b.WriteString(")")
	switch len(returns) {
	case 0:
	case 1:
		b.WriteString(canonicalize(returns[0].Type))
	default:
		b.WriteString("(")
		b.WriteString(joinTypes(returns))
		b.WriteString(")")
	}
	return b.String()
}

func joinTypes(params []Param) string {
	types := make([]string, 0, len(params))
	for _, p := range params {
		types = append(types, canonicalize(p.Type))
	}
	return strings.Join(types, ",")
}

// canonicalize drops whitespace, keeping a single space only where two words
// meet ("chan int", "<-chan T").
func canonicalize(s string) string {
	var b strings.Builder
	for i, f := range strings.Fields(s) {
		if i > 0 && isWordByte(b.String()[b.Len()-1]) && isWordByte(f[0]) {
			b.WriteByte(' ')
		}
		b.WriteString(f)
	}
	return b.String()
}

func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}
