package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

const maxLogLength = 200

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Applied in order: longer digit runs are claimed before shorter ones.
var rules = []rule{
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[EMAIL]"},
	{regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`), "[CARD]"},
	// Cartão Nacional de Saúde, 15 digits
	{regexp.MustCompile(`\b\d{3}\s?\d{4}\s?\d{4}\s?\d{4}\b`), "[CNS]"},
	{regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{3}-\d{2}\b|\b\d{11}\b`), "[CPF]"},
	{regexp.MustCompile(`(?i)\b(prontu[aá]rio|MRN|registro|patient id)[-:\s#nº]*[A-Z0-9]{4,}\b`), "[MEDICAL_ID]"},
	{regexp.MustCompile(`(\+55\s?)?\(?\b\d{2}\)?\s?9?\d{4}[-\s]?\d{4}\b`), "[PHONE]"},
	{regexp.MustCompile(`\b9?\d{4}-\d{4}\b`), "[PHONE]"},
}

// RedactSensitiveData replaces personal identifiers in free text with
// placeholders such as [EMAIL] or [CPF]
func RedactSensitiveData(text string) string {
	for _, r := range rules {
		text = r.pattern.ReplaceAllString(text, r.replacement)
	}
	return text
}

// SanitizeForLogging prepares patient-provided text for a log line
func SanitizeForLogging(text string) string {
	redacted := RedactSensitiveData(text)

	runes := []rune(redacted)
	if len(runes) > maxLogLength {
		return string(runes[:maxLogLength-3]) + "..."
	}

	return redacted
}

// SanitizeList applies SanitizeForLogging to every entry
func SanitizeList(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = SanitizeForLogging(item)
	}
	return out
}

// ContainsPII checks if text contains potential PII
func ContainsPII(text string) bool {
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// PseudonymizeID returns a stable short token for an identifier so log
// lines can be correlated without exposing it
func PseudonymizeID(id string) string {
	if strings.TrimSpace(id) == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(id))
	return "ref_" + hex.EncodeToString(sum[:])[:12]
}
