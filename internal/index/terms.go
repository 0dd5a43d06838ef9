package index

import (
	"strings"
	"unicode/utf8"
)

const (
	// ngramSize is the length of the character n-grams stored per value.
	ngramSize = 3
	// minTokenLen is the minimum rune length of an indexed whitespace token.
	minTokenLen = 3
)

// normalize lower-cases and trims a value or search term.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// termsOf returns the distinct terms indexed for a value: the exact normalized form,
// whitespace tokens of at least minTokenLen runes, and every ngramSize-gram.
func termsOf(value string) []string {
	v := normalize(value)
	if v == "" {
		return nil
	}

	seen := map[string]struct{}{v: {}}
	out := []string{v}
	add := func(t string) {
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	for _, tok := range strings.Fields(v) {
		if utf8.RuneCountInString(tok) >= minTokenLen {
			add(tok)
		}
	}

	runes := []rune(v)
	for i := 0; i+ngramSize <= len(runes); i++ {
		add(string(runes[i : i+ngramSize]))
	}
	return out
}
