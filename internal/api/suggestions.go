package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/themobileprof/medoffice-be/internal/api/middleware"
	"github.com/themobileprof/medoffice-be/internal/db"
	"github.com/themobileprof/medoffice-be/internal/privacy"
	"github.com/themobileprof/medoffice-be/internal/suggestions"
)

// SuggestionService is implemented by suggestions.Service
type SuggestionService interface {
	Create(ctx context.Context, req suggestions.Request) (*suggestions.Result, error)
	Preview(ctx context.Context, req suggestions.Request) (*suggestions.Result, error)
	Get(ctx context.Context, id string) (*db.SuggestionRecord, error)
	ListByPatient(ctx context.Context, clinicID, patientID string, limit int) ([]db.SuggestionRecord, error)
	ListByDoctor(ctx context.Context, clinicID, doctorID string, limit int) ([]db.SuggestionRecord, error)
	MarkReviewed(ctx context.Context, id, reviewerID, notes string) (*db.SuggestionRecord, error)
}

// SuggestionHandler serves the diagnosis suggestion endpoints
type SuggestionHandler struct {
	service SuggestionService
	logger  zerolog.Logger
}

// NewSuggestionHandler creates a new suggestion handler
func NewSuggestionHandler(service SuggestionService, logger zerolog.Logger) *SuggestionHandler {
	return &SuggestionHandler{service: service, logger: logger}
}

// SuggestionRequest is the body of POST /api/suggestions
type SuggestionRequest struct {
	PatientID     string   `json:"patient_id"`
	DoctorID      string   `json:"doctor_id"`
	Symptoms      []string `json:"symptoms"`
	Complaint     string   `json:"complaint"`
	Language      string   `json:"language"`
	ShortlistSize int      `json:"shortlist_size" binding:"omitempty,min=1,max=10"`
}

// ReviewRequest is the body of PUT /api/suggestions/:id/review
type ReviewRequest struct {
	Notes string `json:"notes" binding:"max=2000"`
}

// SuggestionResponse is a suggestion plus its persistence outcome
type SuggestionResponse struct {
	*db.SuggestionRecord
	Persisted        bool `json:"persisted"`
	LanguageFallback bool `json:"language_fallback,omitempty"`
}

func (h *SuggestionHandler) toRequest(c *gin.Context, body SuggestionRequest) suggestions.Request {
	doctorID := body.DoctorID
	if doctorID == "" && middleware.GetRole(c) == "doctor" {
		doctorID = middleware.GetUserID(c)
	}
	return suggestions.Request{
		ClinicID:      middleware.GetClinicID(c),
		PatientID:     body.PatientID,
		DoctorID:      doctorID,
		Symptoms:      body.Symptoms,
		Complaint:     body.Complaint,
		Language:      body.Language,
		ShortlistSize: body.ShortlistSize,
	}
}

// CreateSuggestion runs the engine and stores the result
// POST /api/suggestions
func (h *SuggestionHandler) CreateSuggestion(c *gin.Context) {
	var body SuggestionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.service.Create(c.Request.Context(), h.toRequest(c, body))
	if err != nil {
		h.respondError(c, err)
		return
	}

	if !res.Persisted {
		h.logger.Warn().
			Str("suggestion_id", res.Record.ID).
			Strs("symptoms", privacy.SanitizeList(res.Record.ReportedSymptoms)).
			Msg("returning unsaved suggestion")
	}

	c.JSON(http.StatusCreated, SuggestionResponse{
		SuggestionRecord: &res.Record,
		Persisted:        res.Persisted,
		LanguageFallback: res.LanguageFallback,
	})
}

// PreviewSuggestion runs the engine without storing anything
// POST /api/suggestions/preview
func (h *SuggestionHandler) PreviewSuggestion(c *gin.Context) {
	var body SuggestionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.service.Preview(c.Request.Context(), h.toRequest(c, body))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuggestionResponse{
		SuggestionRecord: &res.Record,
		LanguageFallback: res.LanguageFallback,
	})
}

// GetSuggestion returns one stored suggestion
// GET /api/suggestions/:id
func (h *SuggestionHandler) GetSuggestion(c *gin.Context) {
	rec, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !h.sameClinic(c, rec) {
		c.JSON(http.StatusNotFound, gin.H{"error": "suggestion not found"})
		return
	}

	c.JSON(http.StatusOK, SuggestionResponse{SuggestionRecord: rec, Persisted: true})
}

// ReviewSuggestion records a doctor's review
// PUT /api/suggestions/:id/review
func (h *SuggestionHandler) ReviewSuggestion(c *gin.Context) {
	var body ReviewRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	existing, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !h.sameClinic(c, existing) {
		c.JSON(http.StatusNotFound, gin.H{"error": "suggestion not found"})
		return
	}

	rec, err := h.service.MarkReviewed(c.Request.Context(), id, middleware.GetUserID(c), body.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuggestionResponse{SuggestionRecord: rec, Persisted: true})
}

// ListPatientSuggestions returns a patient's history
// GET /api/patients/:patientId/suggestions?limit=20
func (h *SuggestionHandler) ListPatientSuggestions(c *gin.Context) {
	records, err := h.service.ListByPatient(c.Request.Context(), middleware.GetClinicID(c), c.Param("patientId"), queryLimit(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondList(c, records)
}

// ListDoctorSuggestions returns the suggestions requested by a doctor
// GET /api/doctors/:doctorId/suggestions?limit=20
func (h *SuggestionHandler) ListDoctorSuggestions(c *gin.Context) {
	records, err := h.service.ListByDoctor(c.Request.Context(), middleware.GetClinicID(c), c.Param("doctorId"), queryLimit(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondList(c, records)
}

func (h *SuggestionHandler) respondList(c *gin.Context, records []db.SuggestionRecord) {
	if records == nil {
		records = []db.SuggestionRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"suggestions": records,
		"count":       len(records),
	})
}

// sameClinic hides records of other clinics. Records without a clinic are
// visible to everyone.
func (h *SuggestionHandler) sameClinic(c *gin.Context, rec *db.SuggestionRecord) bool {
	return rec.ClinicID == "" || rec.ClinicID == middleware.GetClinicID(c)
}

func (h *SuggestionHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, suggestions.ErrNoSymptoms), errors.Is(err, suggestions.ErrPatientRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, suggestions.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "suggestion not found"})
	case errors.Is(err, suggestions.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage temporarily unavailable"})
	default:
		h.logger.Error().Err(err).Str("route", c.FullPath()).Msg("suggestion request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil {
		return 0
	}
	return limit
}
