package intake

import (
	"regexp"
	"strings"

	"github.com/themobileprof/medoffice-be/internal/textnorm"
)

// MaxSymptoms caps how many symptoms a single request may carry
const MaxSymptoms = 20

// Notes holds context hints pulled from a free-text complaint
type Notes struct {
	Intensity string `json:"intensity,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Onset     string `json:"onset,omitempty"`
}

// Result is the cleaned symptom list handed to the engine
type Result struct {
	Symptoms []string `json:"symptoms"`
	Notes    Notes    `json:"notes"`
}

// Empty reports whether no usable symptom was found
func (r Result) Empty() bool {
	return len(r.Symptoms) == 0
}

// Parser turns request input into a symptom list
type Parser struct {
	separator *regexp.Regexp
	filler    *regexp.Regexp
	onset     []onsetPattern
	max       int
}

type onsetPattern struct {
	label   string
	pattern *regexp.Regexp
}

// NewParser creates a parser. max <= 0 uses MaxSymptoms.
func NewParser(max int) *Parser {
	if max <= 0 {
		max = MaxSymptoms
	}
	return &Parser{
		separator: regexp.MustCompile(`[,;\n/]+|\s+e\s+|\s+and\s+`),
		filler:    regexp.MustCompile(`^(i have|i've had|tenho|estou com|sinto|sentindo|com)\s+`),
		// Ordered: the first pattern that matches wins
		onset: []onsetPattern{
			{"now", regexp.MustCompile(`(agora|neste momento|right now|just now)`)},
			{"today", regexp.MustCompile(`(hoje|esta manhã|essa manhã|today|this morning)`)},
			{"yesterday", regexp.MustCompile(`(ontem|yesterday)`)},
			{"days_ago", regexp.MustCompile(`(\d+)\s*(dias?|days?)`)},
			{"weeks_ago", regexp.MustCompile(`(\d+)\s*(semanas?|weeks?)`)},
			{"recently", regexp.MustCompile(`(recentemente|ultimamente|recently|lately)`)},
		},
		max: max,
	}
}

// Parse merges an explicit symptom list with the symptoms found in a
// free-text complaint. Blank entries are dropped and duplicates are removed
// by normalized form, keeping the first spelling seen.
func (p *Parser) Parse(symptoms []string, complaint string) Result {
	candidates := make([]string, 0, len(symptoms)+4)
	candidates = append(candidates, symptoms...)
	if strings.TrimSpace(complaint) != "" {
		candidates = append(candidates, p.Split(complaint)...)
	}

	out := make([]string, 0, len(candidates))
	seen := make(map[string]bool)
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		n := textnorm.Normalize(c)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, c)
		if len(out) == p.max {
			break
		}
	}

	return Result{
		Symptoms: out,
		Notes:    p.notes(complaint),
	}
}

// Split breaks a complaint such as "febre, tosse seca e dor de cabeça"
// into individual symptom phrases
func (p *Parser) Split(complaint string) []string {
	lower := strings.ToLower(complaint)
	parts := p.separator.Split(lower, -1)

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Trim(strings.TrimSpace(part), ".!?")
		part = p.filler.ReplaceAllString(part, "")
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (p *Parser) notes(complaint string) Notes {
	lower := strings.ToLower(complaint)
	if strings.TrimSpace(lower) == "" {
		return Notes{}
	}
	return Notes{
		Intensity: extractIntensity(lower),
		Frequency: extractFrequency(lower),
		Onset:     p.extractOnset(lower),
	}
}

// extractIntensity determines how strong the patient says the symptoms are
func extractIntensity(message string) string {
	severeKeywords := []string{"intensa", "intenso", "muito forte", "insuportável", "severe", "unbearable", "terrible"}
	moderateKeywords := []string{"moderada", "moderado", "incômodo", "moderate", "uncomfortable"}
	mildKeywords := []string{"leve", "fraca", "pouco", "mild", "slight"}

	for _, keyword := range severeKeywords {
		if strings.Contains(message, keyword) {
			return "severe"
		}
	}

	for _, keyword := range moderateKeywords {
		if strings.Contains(message, keyword) {
			return "moderate"
		}
	}

	for _, keyword := range mildKeywords {
		if strings.Contains(message, keyword) {
			return "mild"
		}
	}

	return ""
}

// extractFrequency determines how often symptoms occur
func extractFrequency(message string) string {
	constantKeywords := []string{"constante", "o tempo todo", "sem parar", "constant", "all the time"}
	dailyKeywords := []string{"todo dia", "todos os dias", "diariamente", "daily", "every day"}
	occasionalKeywords := []string{"às vezes", "de vez em quando", "sometimes", "occasionally"}

	for _, keyword := range constantKeywords {
		if strings.Contains(message, keyword) {
			return "constant"
		}
	}

	for _, keyword := range dailyKeywords {
		if strings.Contains(message, keyword) {
			return "daily"
		}
	}

	for _, keyword := range occasionalKeywords {
		if strings.Contains(message, keyword) {
			return "occasional"
		}
	}

	return ""
}

// extractOnset determines when symptoms started
func (p *Parser) extractOnset(message string) string {
	for _, o := range p.onset {
		if o.pattern.MatchString(message) {
			return o.label
		}
	}
	return ""
}
