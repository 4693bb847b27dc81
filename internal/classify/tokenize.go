// Package classify implements the TF-IDF + linear binary classifier engine
// described in spec §4.S4: four independent dimensions (phase, scope,
// locus, novelty), each scored from an embedded JSON model bundle.
package classify

import "strings"

// wordTokens lowercases s and splits on any character outside
// [alphanumeric_], dropping empty tokens.
func wordTokens(s string) []string {
	s = strings.ToLower(s)
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	for _, r := range s {
		if isWordChar(r) {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

func isWordChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_':
		return true
	default:
		return false
	}
}

// wordNgrams builds contiguous n-grams of the word token stream for sizes
// lo..hi inclusive, joined with a single space (matching the vocabulary
// format the training pipeline exports for word n-grams > 1).
func wordNgrams(tokens []string, lo, hi int) []string {
	var out []string
	for n := lo; n <= hi; n++ {
		if n <= 0 {
			continue
		}
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// charNgrams implements the char_wb tokenizer: lowercase, pad each
// whitespace-separated run with one leading and trailing space, then
// enumerate n-gram windows of sizes lo..hi.
func charNgrams(s string, lo, hi int) []string {
	s = strings.ToLower(s)
	var out []string
	for _, run := range strings.Fields(s) {
		padded := " " + run + " "
		r := []rune(padded)
		for n := lo; n <= hi; n++ {
			if n <= 0 || n > len(r) {
				continue
			}
			for i := 0; i+n <= len(r); i++ {
				out = append(out, string(r[i:i+n]))
			}
		}
	}
	return out
}
