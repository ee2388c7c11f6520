package diagnosis

import (
	"math"

	"github.com/themobileprof/medoffice-be/internal/knowledge"
)

// Weighted evidence dominates; breadth of coverage is a smaller correction.
const (
	scoreFactor = 0.7
	ratioFactor = 0.3
)

// MatchedCondition is one knowledge base condition scored against the
// patient's symptoms. Confidence is in [0,1].
type MatchedCondition struct {
	Condition       knowledge.Condition `json:"condition"`
	MatchedSymptoms []string            `json:"matched_symptoms"`
	Score           float64             `json:"score"`
	MatchRatio      float64             `json:"match_ratio"`
	Confidence      float64             `json:"confidence"`
	Rank            int                 `json:"rank"`
	Padded          bool                `json:"padded,omitempty"`
}

// Relevant reports whether at least one symptom matched
func (m MatchedCondition) Relevant() bool {
	return len(m.MatchedSymptoms) > 0
}

// Scorer computes MatchedConditions
type Scorer struct {
	matcher *Matcher
}

// NewScorer creates a scorer using the given matcher
func NewScorer(matcher *Matcher) *Scorer {
	return &Scorer{matcher: matcher}
}

// Score matches every canonical symptom of c against the expanded patient
// symptom set. A condition without symptoms, or with no match, scores 0.
func (s *Scorer) Score(patientVariants []string, c knowledge.Condition) MatchedCondition {
	result := MatchedCondition{
		Condition:       c,
		MatchedSymptoms: make([]string, 0),
	}

	var total float64
	for _, symptom := range c.Symptoms {
		for _, variant := range patientVariants {
			if s.matcher.Match(symptom, variant) {
				result.MatchedSymptoms = append(result.MatchedSymptoms, symptom)
				total += c.Weight(symptom)
				break
			}
		}
	}

	result.Score = total
	if len(c.Symptoms) > 0 {
		result.MatchRatio = float64(len(result.MatchedSymptoms)) / float64(len(c.Symptoms))
	}
	result.Confidence = confidence(len(result.MatchedSymptoms), total, result.MatchRatio)

	return result
}

// ScoreAll scores every condition, preserving declaration order
func (s *Scorer) ScoreAll(patientVariants []string, conditions []knowledge.Condition) []MatchedCondition {
	results := make([]MatchedCondition, 0, len(conditions))
	for _, c := range conditions {
		results = append(results, s.Score(patientVariants, c))
	}
	return results
}

func confidence(matched int, score, ratio float64) float64 {
	if matched == 0 {
		return 0
	}
	return math.Min(1.0, score*scoreFactor+ratio*ratioFactor)
}
