package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/themobileprof/medoffice-be/internal/knowledge"
)

func TestExpander_Expand(t *testing.T) {
	expander := defaultExpander(t)

	tests := []struct {
		name     string
		phrase   string
		contains []string
		exact    []string
	}{
		{
			name:     "canonical key",
			phrase:   "dor de cabeça",
			contains: []string{"dor de cabeça", "cefaleia", "headache"},
		},
		{
			name:     "variant resolves to its group",
			phrase:   "Cefaleia",
			contains: []string{"cefaleia", "dor de cabeça", "cefalalgia"},
		},
		{
			name:     "accents ignored when looking up",
			phrase:   "perda do olfato",
			contains: []string{"perda de olfato", "anosmia"},
		},
		{
			name:   "unknown phrase expands to itself lower-cased",
			phrase: "  Unha Encravada ",
			exact:  []string{"unha encravada"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expander.Expand(tt.phrase)
			assert.NotEmpty(t, got)
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			if tt.exact != nil {
				assert.Equal(t, tt.exact, got)
			}
		})
	}
}

func TestExpander_ExpandNoDuplicates(t *testing.T) {
	expander := defaultExpander(t)

	got := expander.Expand("febre")
	seen := map[string]bool{}
	for _, v := range got {
		assert.False(t, seen[v], "duplicate variant %q", v)
		seen[v] = true
	}
	assert.Equal(t, "febre", got[0], "original phrase comes first")
}

func TestExpander_ExpandAll(t *testing.T) {
	expander := defaultExpander(t)

	got := expander.ExpandAll([]string{"febre", "", "  ", "Febre", "fever", "xyz"})

	assert.Contains(t, got, "febre")
	assert.Contains(t, got, "hipertermia")
	assert.Contains(t, got, "xyz")
	count := 0
	for _, v := range got {
		if v == "febre" {
			count++
		}
	}
	assert.Equal(t, 1, count, "febre must appear once")
}

func TestExpander_FirstGroupWins(t *testing.T) {
	// The loader rejects overlapping groups; an unvalidated table still
	// resolves a shared phrase to the first group declared.
	table := knowledge.SynonymTable{
		{Key: "a", Variants: []string{"a", "shared"}},
		{Key: "b", Variants: []string{"b", "shared"}},
	}
	got := NewExpander(table).Expand("shared")
	assert.Contains(t, got, "a")
	assert.NotContains(t, got, "b")
}
