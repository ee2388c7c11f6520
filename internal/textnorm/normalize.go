package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes, drops combining marks and recomposes.
// A transform.Transformer is stateful, so each call builds its own chain.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Normalize trims, lower-cases and strips diacritics from a symptom phrase.
// "Dor de Cabeça " becomes "dor de cabeca". The empty string maps to itself.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	result, _, err := transform.String(stripMarks(), s)
	if err != nil {
		// transform only fails on malformed chains; keep the lowered text
		return s
	}
	return result
}

// Contains reports whether either phrase contains the other once normalized.
// Empty phrases never match.
func Contains(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}
