package diagnosis

import (
	"github.com/themobileprof/medoffice-be/internal/textnorm"
)

// Severity is the overall case classification
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Valid reports whether s is a known severity level
func (s Severity) Valid() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

var (
	highSeverityPhrases = []string{
		"falta de ar intensa",
		"dificuldade respiratória grave",
		"confusão mental",
		"perda de consciência",
		"dor no peito intensa",
		"cianose",
		"lábios roxos",
		"desmaio",
		"síncope",
		"convulsão",
	}

	mediumSeverityPhrases = []string{
		"febre alta",
		"falta de ar",
		"dor no peito",
		"vômito",
		"diarreia",
		"dor atrás dos olhos",
		"desidratação",
	}

	lossOfSmellOrTaste = []string{"perda de olfato", "perda de paladar"}
	feverOrDryCough    = []string{"febre", "febre alta", "tosse seca"}
	dengueCompanions   = []string{"dor atrás dos olhos", "manchas na pele"}
)

// severityRule is one row of the ordered rule table
type severityRule struct {
	name  string
	level Severity
	match func(p pooled) bool
}

// Rules are evaluated top to bottom and the first match wins.
// Keep the most specific and most dangerous rules first.
var severityRules = []severityRule{
	{
		name:  "high_severity_symptom",
		level: SeverityHigh,
		match: func(p pooled) bool { return p.hasAny(highSeverityPhrases...) },
	},
	{
		name:  "covid_pattern",
		level: SeverityMedium,
		match: func(p pooled) bool {
			return p.hasAny(lossOfSmellOrTaste...) && p.hasAny(feverOrDryCough...)
		},
	},
	{
		name:  "dengue_pattern",
		level: SeverityMedium,
		match: func(p pooled) bool {
			return p.has("febre alta") && p.hasAny(dengueCompanions...)
		},
	},
	{
		name:  "medium_severity_symptom",
		level: SeverityMedium,
		match: func(p pooled) bool { return p.hasAny(mediumSeverityPhrases...) },
	},
}

// pooled is the set of normalized phrases, synonyms included, of the
// matched symptoms across a shortlist
type pooled map[string]bool

func (p pooled) has(phrase string) bool {
	return p[textnorm.Normalize(phrase)]
}

func (p pooled) hasAny(phrases ...string) bool {
	for _, phrase := range phrases {
		if p.has(phrase) {
			return true
		}
	}
	return false
}

// Assessor classifies a case from its pooled matched symptoms
type Assessor struct {
	expander *Expander
	rules    []severityRule
}

// NewAssessor creates an assessor with the built-in rule table
func NewAssessor(expander *Expander) *Assessor {
	return &Assessor{
		expander: expander,
		rules:    severityRules,
	}
}

// Assess applies the rule table to the pooled matched symptoms
func (a *Assessor) Assess(symptoms []string) Severity {
	level, _ := a.assess(symptoms)
	return level
}

// assess also returns the name of the rule that fired, or "" for the default
func (a *Assessor) assess(symptoms []string) (Severity, string) {
	set := make(pooled)
	for _, v := range a.expander.ExpandAll(symptoms) {
		set[textnorm.Normalize(v)] = true
	}

	for _, rule := range a.rules {
		if rule.match(set) {
			return rule.level, rule.name
		}
	}
	return SeverityLow, ""
}

// PooledSymptoms returns the matched symptoms of every shortlist entry,
// deduplicated by normalized form in shortlist order
func PooledSymptoms(shortlist []MatchedCondition) []string {
	out := make([]string, 0)
	seen := make(map[string]bool)
	for _, m := range shortlist {
		for _, s := range m.MatchedSymptoms {
			n := textnorm.Normalize(s)
			if seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, s)
		}
	}
	return out
}
