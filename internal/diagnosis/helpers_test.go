package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/themobileprof/medoffice-be/internal/knowledge"
)

func defaultBase(t *testing.T) *knowledge.Base {
	t.Helper()
	base, err := knowledge.Default()
	require.NoError(t, err)
	return base
}

func defaultExpander(t *testing.T) *Expander {
	t.Helper()
	return NewExpander(defaultBase(t).Synonyms())
}

func conditionNames(list []MatchedCondition) []string {
	names := make([]string, len(list))
	for i, m := range list {
		names[i] = m.Condition.Name
	}
	return names
}
