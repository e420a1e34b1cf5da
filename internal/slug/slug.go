// Package slug generates URL-safe slugs from arbitrary strings with Unicode
// normalization. Diacritics are folded to their ASCII base (é → e), special
// characters collapse into a configurable separator, and results can be
// length-limited with rune-aware truncation.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type options struct {
	separator string
	lowercase bool
	maxLength int
}

// Option configures slug generation.
type Option func(*options)

// Separator sets the separator character (default "-").
func Separator(s string) Option {
	return func(o *options) { o.separator = s }
}

// Lowercase controls case folding (default true).
func Lowercase(enabled bool) Option {
	return func(o *options) { o.lowercase = enabled }
}

// MaxLength limits the slug length in runes. Truncation happens at a
// separator boundary when possible so words are not cut mid-way.
func MaxLength(n int) Option {
	return func(o *options) { o.maxLength = n }
}

// foldDiacritics strips combining marks after canonical decomposition,
// turning "café" into "cafe".
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Make converts s into a URL-safe slug.
func Make(s string, opts ...Option) string {
	o := options{separator: "-", lowercase: true}
	for _, opt := range opts {
		opt(&o)
	}

	folded, _, err := transform.String(foldDiacritics, s)
	if err != nil {
		folded = s
	}

	if o.lowercase {
		folded = strings.ToLower(folded)
	}

	// Collapse every run of non-alphanumeric runes into a single separator.
	var b strings.Builder
	b.Grow(len(folded))
	pendingSep := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteString(o.separator)
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	out := b.String()

	if o.maxLength > 0 {
		out = truncate(out, o.maxLength, o.separator)
	}
	return out
}

// truncate cuts s to at most n runes, preferring the last separator boundary
// within the limit.
func truncate(s string, n int, sep string) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	cut := string(rs[:n])
	// Cutting mid-word: drop the partial word at the end.
	if sep != "" && !strings.HasPrefix(string(rs[n:]), sep) {
		if i := strings.LastIndex(cut, sep); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimSuffix(cut, sep)
}
