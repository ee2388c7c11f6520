package diagnosis

import (
	"strings"

	"github.com/themobileprof/medoffice-be/internal/knowledge"
	"github.com/themobileprof/medoffice-be/internal/textnorm"
)

// Expander maps a symptom phrase to its synonym group
type Expander struct {
	table knowledge.SynonymTable
	index map[string]int // normalized phrase -> first group containing it
}

// NewExpander builds an expander over a synonym table
func NewExpander(table knowledge.SynonymTable) *Expander {
	index := make(map[string]int)
	for i, group := range table {
		for _, phrase := range append([]string{group.Key}, group.Variants...) {
			n := textnorm.Normalize(phrase)
			if _, exists := index[n]; !exists && n != "" {
				index[n] = i
			}
		}
	}
	return &Expander{table: table, index: index}
}

// Expand returns the phrase plus the key and every variant of the first
// synonym group it belongs to. Unknown phrases expand to themselves.
// The result is never empty for a non-blank phrase and never has duplicates.
func (e *Expander) Expand(phrase string) []string {
	original := strings.ToLower(strings.TrimSpace(phrase))

	i, ok := e.index[textnorm.Normalize(phrase)]
	if !ok {
		return []string{original}
	}

	group := e.table[i]
	out := make([]string, 0, len(group.Variants)+2)
	seen := make(map[string]bool, len(group.Variants)+2)
	for _, p := range append([]string{original, group.Key}, group.Variants...) {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// ExpandAll expands every phrase and returns the union, deduplicated by
// normalized form and keeping first occurrence. Blank phrases are skipped.
func (e *Expander) ExpandAll(phrases []string) []string {
	out := make([]string, 0, len(phrases)*4)
	seen := make(map[string]bool)
	for _, phrase := range phrases {
		if strings.TrimSpace(phrase) == "" {
			continue
		}
		for _, v := range e.Expand(phrase) {
			n := textnorm.Normalize(v)
			if seen[n] {
				continue
			}
			seen[n] = true
			out = append(out, v)
		}
	}
	return out
}
