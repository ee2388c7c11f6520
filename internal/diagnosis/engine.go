package diagnosis

import (
	"time"

	"github.com/themobileprof/medoffice-be/internal/knowledge"
	"github.com/themobileprof/medoffice-be/internal/language"
)

// Suggestion is the result of one engine run
type Suggestion struct {
	ID                    string             `json:"id"`
	PatientID             string             `json:"patient_id"`
	DoctorID              string             `json:"doctor_id,omitempty"`
	ReportedSymptoms      []string           `json:"reported_symptoms"`
	Symptoms              []string           `json:"symptoms"`
	Conditions            []MatchedCondition `json:"conditions"`
	Recommendation        string             `json:"recommendation"`
	RecommendedTests      []string           `json:"recommended_tests"`
	RecommendedTreatments []string           `json:"recommended_treatments"`
	Severity              Severity           `json:"severity"`
	SeverityRule          string             `json:"severity_rule,omitempty"`
	Language              string             `json:"language"`
	Disclaimer            string             `json:"disclaimer"`
	CreatedAt             time.Time          `json:"created_at"`
}

// TopCondition returns the best ranked shortlist entry
func (s *Suggestion) TopCondition() (MatchedCondition, bool) {
	if len(s.Conditions) == 0 {
		return MatchedCondition{}, false
	}
	return s.Conditions[0], true
}

// SuggestRequest is the input of Engine.Suggest.
// ID and Now are supplied by the caller so the engine stays deterministic.
type SuggestRequest struct {
	ID            string
	PatientID     string
	DoctorID      string
	Symptoms      []string
	Language      string
	ShortlistSize int
	Now           time.Time
}

// Engine ranks knowledge base conditions against patient symptoms.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	base          *knowledge.Base
	expander      *Expander
	scorer        *Scorer
	assessor      *Assessor
	shortlistSize int
}

// Option configures an Engine
type Option func(*Engine)

// WithShortlistSize sets the default shortlist size
func WithShortlistSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.shortlistSize = n
		}
	}
}

// NewEngine creates an engine over a knowledge base snapshot
func NewEngine(base *knowledge.Base, opts ...Option) *Engine {
	expander := NewExpander(base.Synonyms())
	e := &Engine{
		base:          base,
		expander:      expander,
		scorer:        NewScorer(NewMatcher(expander)),
		assessor:      NewAssessor(expander),
		shortlistSize: DefaultShortlistSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// KnowledgeBase returns the snapshot the engine scores against
func (e *Engine) KnowledgeBase() *knowledge.Base {
	return e.base
}

// Expand returns the deduplicated synonym expansion of the input symptoms
func (e *Engine) Expand(symptoms []string) []string {
	return e.expander.ExpandAll(symptoms)
}

// Suggest runs the whole pipeline: expand, score, rank, assess, compose.
// It never fails; an empty symptom list yields an all-padding shortlist.
func (e *Engine) Suggest(req SuggestRequest) Suggestion {
	size := req.ShortlistSize
	if size <= 0 {
		size = e.shortlistSize
	}
	lang := req.Language
	if lang == "" {
		lang = language.DefaultLanguage
	}

	variants := e.expander.ExpandAll(req.Symptoms)
	scored := e.scorer.ScoreAll(variants, e.base.Conditions())
	shortlist := Rank(scored, size)
	severity, rule := e.assessor.assess(PooledSymptoms(shortlist))
	rec := Compose(shortlist, severity, lang)

	return Suggestion{
		ID:                    req.ID,
		PatientID:             req.PatientID,
		DoctorID:              req.DoctorID,
		ReportedSymptoms:      append([]string{}, req.Symptoms...),
		Symptoms:              variants,
		Conditions:            shortlist,
		Recommendation:        rec.Text,
		RecommendedTests:      rec.Tests,
		RecommendedTreatments: rec.Treatments,
		Severity:              severity,
		SeverityRule:          rule,
		Language:              lang,
		Disclaimer:            Disclaimer(lang),
		CreatedAt:             req.Now,
	}
}
