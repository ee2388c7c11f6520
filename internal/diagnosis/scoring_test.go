package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themobileprof/medoffice-be/internal/knowledge"
)

func TestScorer_Score(t *testing.T) {
	scorer := NewScorer(NewMatcher(NewExpander(nil)))

	tests := []struct {
		name          string
		condition     knowledge.Condition
		patient       []string
		wantMatched   []string
		wantScore     float64
		wantRatio     float64
		wantConfident float64
	}{
		{
			name: "weighted match",
			condition: knowledge.Condition{
				ID:       "a",
				Symptoms: []string{"febre", "tosse", "coriza", "espirros"},
				Weights:  map[string]float64{"febre": 0.5, "tosse": 0.2, "coriza": 0.1, "espirros": 0.1},
			},
			patient:       []string{"tosse", "febre"},
			wantMatched:   []string{"febre", "tosse"},
			wantScore:     0.7,
			wantRatio:     0.5,
			wantConfident: 0.7*0.7 + 0.5*0.3,
		},
		{
			name: "missing weight defaults to one",
			condition: knowledge.Condition{
				ID:       "b",
				Symptoms: []string{"febre", "tosse"},
				Weights:  map[string]float64{"febre": 0.2},
			},
			patient:       []string{"tosse"},
			wantMatched:   []string{"tosse"},
			wantScore:     1.0,
			wantRatio:     0.5,
			wantConfident: 0.85,
		},
		{
			name: "confidence capped at one",
			condition: knowledge.Condition{
				ID:       "c",
				Symptoms: []string{"febre", "tosse"},
			},
			patient:       []string{"febre", "tosse"},
			wantMatched:   []string{"febre", "tosse"},
			wantScore:     2.0,
			wantRatio:     1.0,
			wantConfident: 1.0,
		},
		{
			name: "no match is zero",
			condition: knowledge.Condition{
				ID:       "d",
				Symptoms: []string{"febre"},
			},
			patient:     []string{"coriza"},
			wantMatched: []string{},
		},
		{
			name:        "empty symptom list degrades to zero",
			condition:   knowledge.Condition{ID: "e"},
			patient:     []string{"febre"},
			wantMatched: []string{},
		},
		{
			name: "matched order follows the condition",
			condition: knowledge.Condition{
				ID:       "f",
				Symptoms: []string{"c", "b", "a"},
				Weights:  map[string]float64{"a": 0.1, "b": 0.1, "c": 0.1},
			},
			patient:       []string{"a", "b", "c"},
			wantMatched:   []string{"c", "b", "a"},
			wantScore:     0.3,
			wantRatio:     1.0,
			wantConfident: 0.3*0.7 + 0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Score(tt.patient, tt.condition)

			assert.Equal(t, tt.wantMatched, got.MatchedSymptoms)
			assert.InDelta(t, tt.wantScore, got.Score, 1e-9)
			assert.InDelta(t, tt.wantRatio, got.MatchRatio, 1e-9)
			assert.InDelta(t, tt.wantConfident, got.Confidence, 1e-9)
			assert.GreaterOrEqual(t, got.Confidence, 0.0)
			assert.LessOrEqual(t, got.Confidence, 1.0)
		})
	}
}

func TestScorer_NoCrossConditionMatches(t *testing.T) {
	base := defaultBase(t)
	expander := NewExpander(base.Synonyms())
	scorer := NewScorer(NewMatcher(expander))

	patient := expander.ExpandAll([]string{"febre", "dor de cabeça", "coriza", "diarreia", "dor no peito"})
	for _, m := range scorer.ScoreAll(patient, base.Conditions()) {
		for _, s := range m.MatchedSymptoms {
			assert.True(t, m.Condition.HasSymptom(s), "%q is not a symptom of %s", s, m.Condition.ID)
		}
	}
}

func TestScorer_ScoreAllKeepsDeclarationOrder(t *testing.T) {
	base := defaultBase(t)
	scorer := NewScorer(NewMatcher(NewExpander(base.Synonyms())))

	results := scorer.ScoreAll([]string{"febre"}, base.Conditions())
	require.Len(t, results, base.Len())
	for i, c := range base.Conditions() {
		assert.Equal(t, c.ID, results[i].Condition.ID)
	}
}
