package oracle

import "strings"

// Canonical distribution principles agents can rally behind.
const (
	PrincipleNeedsFirst        = "needs_first"
	PrincipleMeritBased        = "merit_based"
	PrincipleEqual             = "equal"
	PrincipleProtectVulnerable = "protect_vulnerable"
	PrincipleEfficiency        = "efficiency"
	PrincipleSustainability    = "sustainability"
)

// CanonicalPrinciples returns the fixed principle set in its canonical order.
func CanonicalPrinciples() []string {
	return []string{
		PrincipleNeedsFirst,
		PrincipleMeritBased,
		PrincipleEqual,
		PrincipleProtectVulnerable,
		PrincipleEfficiency,
		PrincipleSustainability,
	}
}

// keyword groups checked in order; the first match wins. protect_vulnerable
// is checked before needs_first so "protect the needy" lands on the former.
var principleKeywords = []struct {
	principle string
	keywords  []string
}{
	{PrincipleProtectVulnerable, []string{"protect", "vulnerab", "weak", "care"}},
	{PrincipleNeedsFirst, []string{"need", "basic"}},
	{PrincipleMeritBased, []string{"merit", "contribut", "labor", "work", "earn"}},
	{PrincipleEqual, []string{"equal", "even", "same"}},
	{PrincipleEfficiency, []string{"efficien", "productiv", "output"}},
	{PrincipleSustainability, []string{"sustain", "long-term", "future"}},
}

// Normalize maps a free-form principle label onto the canonical set by
// keyword matching. Returns the empty string when nothing matches.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	for _, p := range CanonicalPrinciples() {
		if s == p {
			return p
		}
	}
	for _, group := range principleKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(s, kw) {
				return group.principle
			}
		}
	}
	return ""
}
