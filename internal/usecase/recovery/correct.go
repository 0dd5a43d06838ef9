package recovery

import (
	"regexp"
	"strings"
)

type rewrite struct {
	re   *regexp.Regexp
	repl string
}

// Corrector rewrites common malformed query patterns into the canonical ID form.
type Corrector struct {
	prefix   string
	rewrites []rewrite
}

// NewCorrector builds the correction set for a canonical ID prefix such as "SG COM".
// An empty prefix keeps only the whitespace, dash and wildcard clean-ups.
func NewCorrector(prefix string) *Corrector {
	prefix = strings.Join(strings.Fields(prefix), " ")
	rw := []rewrite{
		{regexp.MustCompile(`\s*\*{2,}\s*$`), ""},
		{regexp.MustCompile(`\s{2,}`), " "},
		{regexp.MustCompile(`-{2,}`), "-"},
	}
	if prefix != "" {
		words := strings.Fields(prefix)
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		loose := `(?i)\b` + strings.Join(words, `[\s_-]*`) + `[\s_-]*(\d+)\b`
		rw = append(rw,
			rewrite{regexp.MustCompile(`(?i)^(\d+)\s+to\s+(\d+)$`), prefix + "-$1 to " + prefix + "-$2"},
			rewrite{regexp.MustCompile(loose), prefix + "-$1"},
		)
	}
	return &Corrector{prefix: prefix, rewrites: rw}
}

// Prefix returns the canonical ID prefix.
func (c *Corrector) Prefix() string { return c.prefix }

// Correct applies every rewrite in order and reports whether the query changed.
func (c *Corrector) Correct(q string) (string, bool) {
	orig := strings.TrimSpace(q)
	out := orig
	for _, r := range c.rewrites {
		out = r.re.ReplaceAllString(out, r.repl)
	}
	out = strings.TrimSpace(out)
	return out, out != "" && out != orig
}
