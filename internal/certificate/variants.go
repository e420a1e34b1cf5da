// Package certificate derives lookup variants from user-typed certificate
// numbers. Customers copy certificate numbers from grading reports with
// inconsistent casing, spacing and lab prefixes, while the supplier stores a
// single canonical form; a bounded, deterministic set of rewrites is tried
// instead of fuzzy matching.
package certificate

import "strings"

// Defaults for the generator. The pad width matches the zero-padded numeric
// form several labs use internally.
const (
	DefaultPadWidth  = 10
	DefaultMinLength = 3
)

// DefaultLabPrefixes are grading-lab report prefixes stripped during
// normalization (e.g. "LG628496664" → "628496664").
var DefaultLabPrefixes = []string{"LG", "GIA", "IGI", "HRD", "GCAL"}

// Generator produces normalized certificate variants. The zero value is not
// usable; construct with New.
type Generator struct {
	prefixes  []string
	padWidth  int
	minLength int
}

// Option configures a Generator.
type Option func(*Generator)

// WithLabPrefixes overrides the lab prefixes stripped from candidates.
func WithLabPrefixes(prefixes []string) Option {
	return func(g *Generator) {
		g.prefixes = make([]string, 0, len(prefixes))
		for _, p := range prefixes {
			if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
				g.prefixes = append(g.prefixes, p)
			}
		}
	}
}

// WithPadWidth sets the target width for the zero-left-padded variant.
// A width of 0 disables padding.
func WithPadWidth(w int) Option {
	return func(g *Generator) { g.padWidth = w }
}

// WithMinLength sets the minimum candidate length. Shorter candidates are
// discarded to avoid degenerate, overly broad upstream matches.
func WithMinLength(n int) Option {
	return func(g *Generator) { g.minLength = n }
}

// New creates a Generator with default prefixes, pad width and minimum length.
func New(opts ...Option) *Generator {
	g := &Generator{
		prefixes:  DefaultLabPrefixes,
		padWidth:  DefaultPadWidth,
		minLength: DefaultMinLength,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Variants returns an ordered, deduplicated sequence of candidate strings for
// raw. The trimmed raw input always comes first; duplicates collapse keeping
// first-seen order; candidates shorter than the minimum length are dropped.
// Pure and total: never fails, returns nil only for blank input.
func (g *Generator) Variants(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	add := func(s string) {
		if len(s) < g.minLength {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	add(raw)
	add(strings.ToUpper(raw))
	add(strings.ToLower(raw))
	add(stripWhitespace(raw))

	alnum := stripNonAlnum(raw)
	add(alnum)
	add(strings.TrimLeft(alnum, "0"))

	upperAlnum := strings.ToUpper(alnum)
	for _, p := range g.prefixes {
		rest, ok := strings.CutPrefix(upperAlnum, p)
		if !ok || rest == "" {
			continue
		}
		add(rest)
		add(strings.TrimLeft(rest, "0"))
	}

	digits := digitsOnly(raw)
	if digits != "" && g.padWidth > 0 && len(digits) < g.padWidth {
		add(strings.Repeat("0", g.padWidth-len(digits)) + digits)
	}
	add(digits)

	return out
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}

func stripNonAlnum(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			return r
		}
		return -1
	}, s)
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
