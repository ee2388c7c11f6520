package suggestions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/themobileprof/medoffice-be/internal/cache"
	"github.com/themobileprof/medoffice-be/internal/circuitbreaker"
	"github.com/themobileprof/medoffice-be/internal/db"
	"github.com/themobileprof/medoffice-be/internal/diagnosis"
	"github.com/themobileprof/medoffice-be/internal/intake"
	"github.com/themobileprof/medoffice-be/internal/language"
	"github.com/themobileprof/medoffice-be/internal/privacy"
	"github.com/themobileprof/medoffice-be/internal/subscription"
)

var (
	ErrNoSymptoms       = errors.New("no valid symptoms provided")
	ErrPatientRequired  = errors.New("patient_id is required")
	ErrNotFound         = errors.New("suggestion not found")
	ErrStoreUnavailable = errors.New("suggestion store unavailable")
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Store persists suggestion records
type Store interface {
	SaveSuggestion(ctx context.Context, rec *db.SuggestionRecord) error
	GetSuggestionByID(ctx context.Context, id string) (*db.SuggestionRecord, error)
	ListSuggestionsByPatient(ctx context.Context, clinicID, patientID string, limit int) ([]db.SuggestionRecord, error)
	ListSuggestionsByDoctor(ctx context.Context, clinicID, doctorID string, limit int) ([]db.SuggestionRecord, error)
	MarkSuggestionReviewed(ctx context.Context, id, reviewerID, notes string, at time.Time) error
}

// UsageRecorder counts persisted suggestions against a clinic's quota
type UsageRecorder interface {
	IncrementUsage(ctx context.Context, clinicID string, featureKey string) error
}

// Request is one suggestion request coming from the API or the websocket
type Request struct {
	ClinicID      string
	PatientID     string
	DoctorID      string
	Symptoms      []string
	Complaint     string
	Language      string
	ShortlistSize int
}

// Result wraps a computed suggestion with its persistence outcome
type Result struct {
	Record           db.SuggestionRecord
	Persisted        bool
	LanguageFallback bool
}

// Service runs the diagnosis engine and stores its results
type Service struct {
	engine    *diagnosis.Engine
	parser    *intake.Parser
	languages *language.Manager
	store     Store
	cache     *cache.SuggestionCache
	breaker   *circuitbreaker.Breaker
	usage     UsageRecorder
	logger    zerolog.Logger

	defaultLanguage string
	now             func() time.Time
	newID           func() string
}

// Config holds the collaborators of a Service. Cache, Breaker and Usage are optional.
type Config struct {
	Engine          *diagnosis.Engine
	Parser          *intake.Parser
	Languages       *language.Manager
	Store           Store
	Cache           *cache.SuggestionCache
	Breaker         *circuitbreaker.Breaker
	Usage           UsageRecorder
	Logger          zerolog.Logger
	DefaultLanguage string
}

// NewService creates a suggestion service
func NewService(cfg Config) *Service {
	s := &Service{
		engine:          cfg.Engine,
		parser:          cfg.Parser,
		languages:       cfg.Languages,
		store:           cfg.Store,
		cache:           cfg.Cache,
		breaker:         cfg.Breaker,
		usage:           cfg.Usage,
		logger:          cfg.Logger.With().Str("component", "suggestions").Logger(),
		defaultLanguage: cfg.DefaultLanguage,
		now:             func() time.Time { return time.Now().UTC() },
		newID:           func() string { return uuid.New().String() },
	}

	if s.parser == nil {
		s.parser = intake.NewParser(0)
	}
	if s.languages == nil {
		s.languages = language.NewManager()
	}
	if s.cache == nil {
		s.cache = cache.NewSuggestionCache(nil, 0, s.logger)
	}
	if s.breaker == nil {
		s.breaker = circuitbreaker.New(circuitbreaker.Settings{Name: "suggestion-store"})
	}
	if s.defaultLanguage == "" || !s.languages.IsSupported(s.defaultLanguage) {
		s.defaultLanguage = language.DefaultLanguage
	}
	return s
}

// Preview computes a suggestion without storing it
func (s *Service) Preview(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.compute(req)
}

// Create computes a suggestion and stores it. A store failure does not
// fail the request: the computed result is returned with Persisted=false.
func (s *Service) Create(ctx context.Context, req Request) (*Result, error) {
	if req.PatientID == "" {
		return nil, ErrPatientRequired
	}

	res, err := s.compute(req)
	if err != nil {
		return nil, err
	}

	log := s.logger.With().
		Str("suggestion_id", res.Record.ID).
		Str("patient_ref", privacy.PseudonymizeID(req.PatientID)).
		Logger()

	err = s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.store.SaveSuggestion(ctx, &res.Record)
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to persist suggestion")
		return res, nil
	}

	res.Persisted = true
	s.cache.Put(ctx, &res.Record)

	if s.usage != nil && req.ClinicID != "" {
		if err := s.usage.IncrementUsage(ctx, req.ClinicID, subscription.FeatureSymptomChecker); err != nil {
			log.Warn().Err(err).Msg("failed to record feature usage")
		}
	}

	log.Info().
		Str("severity", string(res.Record.Severity)).
		Int("symptoms", len(res.Record.ReportedSymptoms)).
		Msg("suggestion created")

	return res, nil
}

func (s *Service) compute(req Request) (*Result, error) {
	parsed := s.parser.Parse(req.Symptoms, req.Complaint)
	if parsed.Empty() {
		return nil, ErrNoSymptoms
	}

	lang := req.Language
	if lang == "" {
		lang = s.defaultLanguage
	}
	validated := s.languages.Validate(lang)
	if validated.UsedFallback {
		validated.Code = s.defaultLanguage
	}

	suggestion := s.engine.Suggest(diagnosis.SuggestRequest{
		ID:            s.newID(),
		PatientID:     req.PatientID,
		DoctorID:      req.DoctorID,
		Symptoms:      parsed.Symptoms,
		Language:      validated.Code,
		ShortlistSize: req.ShortlistSize,
		Now:           s.now(),
	})

	return &Result{
		Record: db.SuggestionRecord{
			Suggestion: suggestion,
			ClinicID:   req.ClinicID,
			Notes:      parsed.Notes,
		},
		LanguageFallback: validated.UsedFallback,
	}, nil
}

// Get returns a stored suggestion, reading through the cache
func (s *Service) Get(ctx context.Context, id string) (*db.SuggestionRecord, error) {
	if rec, ok := s.cache.Get(ctx, id); ok {
		return rec, nil
	}

	rec, err := s.store.GetSuggestionByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get suggestion: %w", err)
	}

	s.cache.Put(ctx, rec)
	return rec, nil
}

// ListByPatient returns a patient's suggestion history visible to a clinic,
// newest first
func (s *Service) ListByPatient(ctx context.Context, clinicID, patientID string, limit int) ([]db.SuggestionRecord, error) {
	records, err := s.store.ListSuggestionsByPatient(ctx, clinicID, patientID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list patient suggestions: %w", err)
	}
	return records, nil
}

// ListByDoctor returns the suggestions requested by a doctor that are
// visible to a clinic, newest first
func (s *Service) ListByDoctor(ctx context.Context, clinicID, doctorID string, limit int) ([]db.SuggestionRecord, error) {
	records, err := s.store.ListSuggestionsByDoctor(ctx, clinicID, doctorID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list doctor suggestions: %w", err)
	}
	return records, nil
}

// MarkReviewed records that a doctor reviewed a suggestion and returns the
// updated record
func (s *Service) MarkReviewed(ctx context.Context, id, reviewerID, notes string) (*db.SuggestionRecord, error) {
	// a missing row is a caller error and must not trip the breaker
	var missing bool
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		err := s.store.MarkSuggestionReviewed(ctx, id, reviewerID, notes, s.now())
		if errors.Is(err, db.ErrNotFound) {
			missing = true
			return nil
		}
		return err
	})
	switch {
	case missing:
		return nil, ErrNotFound
	case errors.Is(err, circuitbreaker.ErrCircuitOpen), errors.Is(err, circuitbreaker.ErrTooManyRequests):
		return nil, ErrStoreUnavailable
	case err != nil:
		return nil, fmt.Errorf("review suggestion: %w", err)
	}

	s.cache.Invalidate(ctx, id)
	return s.Get(ctx, id)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
