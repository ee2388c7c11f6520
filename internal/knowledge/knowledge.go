package knowledge

import (
	"errors"
	"fmt"

	"github.com/themobileprof/medoffice-be/internal/textnorm"
)

// DefaultWeight applies to any condition symptom absent from its weight map.
const DefaultWeight = 1.0

var (
	ErrEmptyBase           = errors.New("knowledge base has no conditions")
	ErrInvalidCondition    = errors.New("invalid condition")
	ErrOverlappingSynonyms = errors.New("synonym groups overlap")
	ErrInvalidSynonymGroup = errors.New("invalid synonym group")
)

// Condition is a named medical condition in the knowledge base
type Condition struct {
	ID                    string             `yaml:"id" json:"id"`
	Name                  string             `yaml:"name" json:"name"`
	Description           string             `yaml:"description" json:"description"`
	Symptoms              []string           `yaml:"symptoms" json:"symptoms"`
	Weights               map[string]float64 `yaml:"weights" json:"weights,omitempty"`
	RecommendedTests      []string           `yaml:"recommended_tests" json:"recommended_tests"`
	RecommendedTreatments []string           `yaml:"recommended_treatments" json:"recommended_treatments"`
}

// Weight returns the configured weight of a canonical symptom, or DefaultWeight
func (c Condition) Weight(symptom string) float64 {
	if w, ok := c.Weights[symptom]; ok {
		return w
	}
	return DefaultWeight
}

// HasSymptom reports whether phrase is one of the condition's canonical symptoms
func (c Condition) HasSymptom(phrase string) bool {
	for _, s := range c.Symptoms {
		if s == phrase {
			return true
		}
	}
	return false
}

// SynonymGroup is one canonical key with every phrase variant that means the same thing
type SynonymGroup struct {
	Key      string   `yaml:"key" json:"key"`
	Variants []string `yaml:"variants" json:"variants"`
}

// SynonymTable is an ordered list of disjoint synonym groups
type SynonymTable []SynonymGroup

// Base is a validated, read-only knowledge base snapshot
type Base struct {
	conditions []Condition
	synonyms   SynonymTable
	byID       map[string]int
}

// New validates conditions and synonyms and builds a Base.
// The inputs are copied; later changes to them do not affect the Base.
func New(conditions []Condition, synonyms SynonymTable) (*Base, error) {
	if len(conditions) == 0 {
		return nil, ErrEmptyBase
	}

	b := &Base{
		conditions: make([]Condition, 0, len(conditions)),
		byID:       make(map[string]int, len(conditions)),
	}

	for i, c := range conditions {
		if err := validateCondition(c); err != nil {
			return nil, fmt.Errorf("condition %d (%q): %w", i, c.ID, err)
		}
		if _, dup := b.byID[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidCondition, c.ID)
		}
		b.byID[c.ID] = len(b.conditions)
		b.conditions = append(b.conditions, copyCondition(c))
	}

	table, err := buildSynonyms(synonyms)
	if err != nil {
		return nil, err
	}
	b.synonyms = table

	return b, nil
}

// Conditions returns the conditions in declaration order. Callers must not modify them.
func (b *Base) Conditions() []Condition {
	return b.conditions
}

// Synonyms returns the synonym table. Callers must not modify it.
func (b *Base) Synonyms() SynonymTable {
	return b.synonyms
}

// Condition looks up a condition by id
func (b *Base) Condition(id string) (Condition, bool) {
	i, ok := b.byID[id]
	if !ok {
		return Condition{}, false
	}
	return b.conditions[i], true
}

// Len returns the number of conditions
func (b *Base) Len() int {
	return len(b.conditions)
}

func validateCondition(c Condition) error {
	if c.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidCondition)
	}
	if c.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCondition)
	}
	for symptom, w := range c.Weights {
		if !c.HasSymptom(symptom) {
			return fmt.Errorf("%w: weight for unknown symptom %q", ErrInvalidCondition, symptom)
		}
		if w <= 0 || w > 1 {
			return fmt.Errorf("%w: weight %.2f for %q outside (0,1]", ErrInvalidCondition, w, symptom)
		}
	}
	return nil
}

func copyCondition(c Condition) Condition {
	out := c
	out.Symptoms = append([]string(nil), c.Symptoms...)
	out.RecommendedTests = append([]string{}, c.RecommendedTests...)
	out.RecommendedTreatments = append([]string{}, c.RecommendedTreatments...)
	if c.Weights != nil {
		out.Weights = make(map[string]float64, len(c.Weights))
		for k, v := range c.Weights {
			out.Weights[k] = v
		}
	}
	return out
}

// buildSynonyms makes sure every group lists its own key and that no
// normalized phrase belongs to two groups.
func buildSynonyms(groups SynonymTable) (SynonymTable, error) {
	owner := make(map[string]int)
	table := make(SynonymTable, 0, len(groups))

	for i, g := range groups {
		key := textnorm.Normalize(g.Key)
		if key == "" {
			return nil, fmt.Errorf("%w: empty key", ErrInvalidSynonymGroup)
		}

		variants := make([]string, 0, len(g.Variants)+1)
		seen := make(map[string]bool)
		for _, v := range append([]string{g.Key}, g.Variants...) {
			n := textnorm.Normalize(v)
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true

			if other, taken := owner[n]; taken && other != i {
				return nil, fmt.Errorf("%w: %q is in both %q and %q", ErrOverlappingSynonyms, v, groups[other].Key, g.Key)
			}
			owner[n] = i
			variants = append(variants, v)
		}

		table = append(table, SynonymGroup{Key: g.Key, Variants: variants})
	}

	return table, nil
}
