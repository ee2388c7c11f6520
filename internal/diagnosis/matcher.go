package diagnosis

import (
	"github.com/themobileprof/medoffice-be/internal/textnorm"
)

// Matcher decides whether two symptom phrases name the same concept.
// Matching is deliberately permissive: substring containment in either
// direction counts, so "dor de cabeça" matches "dor de cabeça intensa".
type Matcher struct {
	expander *Expander
}

// NewMatcher creates a matcher that falls back to synonym expansion
func NewMatcher(expander *Expander) *Matcher {
	return &Matcher{expander: expander}
}

// Match compares a condition-side phrase with a patient-side phrase
func (m *Matcher) Match(conditionSymptom, patientSymptom string) bool {
	a := textnorm.Normalize(conditionSymptom)
	b := textnorm.Normalize(patientSymptom)
	if a == "" || b == "" {
		return false
	}

	// Exact and substring
	if a == b || textnorm.Contains(a, b) {
		return true
	}

	// Synonyms
	left := m.expander.Expand(conditionSymptom)
	right := m.expander.Expand(patientSymptom)
	for _, l := range left {
		for _, r := range right {
			if textnorm.Contains(l, r) {
				return true
			}
		}
	}

	return false
}
