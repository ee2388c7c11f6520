package diagnosis

import (
	"fmt"
	"strings"

	"github.com/themobileprof/medoffice-be/internal/language"
	"github.com/themobileprof/medoffice-be/internal/textnorm"
)

// Recommendation is the guidance composed from a shortlist
type Recommendation struct {
	Text       string   `json:"text"`
	Tests      []string `json:"tests"`
	Treatments []string `json:"treatments"`
}

// templates holds the wording of a recommendation in one language
type templates struct {
	topCondition string // takes the condition name
	noCondition  string
	callToAction map[Severity]string
	tests        string
	treatments   string
	disclaimer   string
}

var recommendationTemplates = map[string]templates{
	"pt": {
		topCondition: "Com base nos sintomas informados, a condição mais provável é %s.",
		noCondition:  "Não foi possível identificar uma condição provável com os sintomas informados.",
		callToAction: map[Severity]string{
			SeverityHigh:   "Procure atendimento médico imediatamente.",
			SeverityMedium: "Recomenda-se consultar um médico nas próximas 24 horas.",
			SeverityLow:    "Os sintomas parecem leves. Mantenha repouso, hidratação e observe a evolução.",
		},
		tests:      "Exames recomendados: ",
		treatments: "Tratamentos sugeridos: ",
		disclaimer: "Esta sugestão é gerada automaticamente a partir de uma base de conhecimento simplificada e não substitui a avaliação de um profissional de saúde.",
	},
	"en": {
		topCondition: "Based on the reported symptoms, the most likely condition is %s.",
		noCondition:  "No likely condition could be identified from the reported symptoms.",
		callToAction: map[Severity]string{
			SeverityHigh:   "Seek medical care immediately.",
			SeverityMedium: "Please see a doctor within the next 24 hours.",
			SeverityLow:    "Symptoms appear mild. Rest, stay hydrated and monitor how they evolve.",
		},
		tests:      "Recommended tests: ",
		treatments: "Suggested treatments: ",
		disclaimer: "This suggestion is generated automatically from a simplified knowledge base and does not replace an evaluation by a healthcare professional.",
	},
}

func templatesFor(lang string) templates {
	if t, ok := recommendationTemplates[lang]; ok {
		return t
	}
	return recommendationTemplates[language.DefaultLanguage]
}

// Disclaimer returns the fixed disclaimer text for a language
func Disclaimer(lang string) string {
	return templatesFor(lang).disclaimer
}

// Compose builds the recommendation text and the aggregated tests and
// treatments of a shortlist. It never changes the shortlist.
func Compose(shortlist []MatchedCondition, severity Severity, lang string) Recommendation {
	t := templatesFor(lang)

	tests := make([]string, 0)
	treatments := make([]string, 0)
	for _, m := range shortlist {
		tests = appendUnique(tests, m.Condition.RecommendedTests...)
		treatments = appendUnique(treatments, m.Condition.RecommendedTreatments...)
	}

	var parts []string
	if len(shortlist) > 0 {
		parts = append(parts, fmt.Sprintf(t.topCondition, shortlist[0].Condition.Name))
	} else {
		parts = append(parts, t.noCondition)
	}

	if cta, ok := t.callToAction[severity]; ok {
		parts = append(parts, cta)
	} else {
		parts = append(parts, t.callToAction[SeverityLow])
	}

	if len(tests) > 0 {
		parts = append(parts, t.tests+strings.Join(tests, ", ")+".")
	}
	if len(treatments) > 0 {
		parts = append(parts, t.treatments+strings.Join(treatments, ", ")+".")
	}

	return Recommendation{
		Text:       strings.Join(parts, " "),
		Tests:      tests,
		Treatments: treatments,
	}
}

// appendUnique appends items not already present, comparing normalized text
func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			continue
		}
		dup := false
		for _, existing := range list {
			if textnorm.Normalize(existing) == textnorm.Normalize(item) {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, item)
		}
	}
	return list
}
