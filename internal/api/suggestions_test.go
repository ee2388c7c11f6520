package api

import (
	"context"
	"net/http"
	"sort"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/themobileprof/medoffice-be/internal/db"
	"github.com/themobileprof/medoffice-be/internal/diagnosis"
	"github.com/themobileprof/medoffice-be/internal/suggestions"
)

type fakeService struct {
	result  *suggestions.Result
	records map[string]*db.SuggestionRecord
	err     error

	lastRequest suggestions.Request
	reviewedBy  string
	lastLimit   int
	lastClinic  string
}

func (f *fakeService) Create(_ context.Context, req suggestions.Request) (*suggestions.Result, error) {
	f.lastRequest = req
	return f.result, f.err
}

func (f *fakeService) Preview(_ context.Context, req suggestions.Request) (*suggestions.Result, error) {
	f.lastRequest = req
	return f.result, f.err
}

func (f *fakeService) Get(_ context.Context, id string) (*db.SuggestionRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[id]
	if !ok {
		return nil, suggestions.ErrNotFound
	}
	return rec, nil
}

func (f *fakeService) ListByPatient(_ context.Context, clinicID, _ string, limit int) ([]db.SuggestionRecord, error) {
	return f.list(clinicID, limit)
}

func (f *fakeService) ListByDoctor(_ context.Context, clinicID, _ string, limit int) ([]db.SuggestionRecord, error) {
	return f.list(clinicID, limit)
}

// list mimics the store: newest first, filtered by clinic, then limited
func (f *fakeService) list(clinicID string, limit int) ([]db.SuggestionRecord, error) {
	f.lastClinic = clinicID
	f.lastLimit = limit
	var out []db.SuggestionRecord
	for _, rec := range f.all() {
		if len(out) == limit {
			break
		}
		if rec.ClinicID == "" || rec.ClinicID == clinicID {
			out = append(out, rec)
		}
	}
	return out, f.err
}

func (f *fakeService) MarkReviewed(_ context.Context, id, reviewerID, notes string) (*db.SuggestionRecord, error) {
	f.reviewedBy = reviewerID
	rec := f.records[id]
	rec.ReviewedBy = &reviewerID
	rec.ReviewNotes = &notes
	return rec, nil
}

// all returns the records newest first, ids in descending order
func (f *fakeService) all() []db.SuggestionRecord {
	var out []db.SuggestionRecord
	for _, rec := range f.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func record(id, clinicID string) *db.SuggestionRecord {
	return &db.SuggestionRecord{
		Suggestion: diagnosis.Suggestion{ID: id, PatientID: "patient-1", Severity: diagnosis.SeverityMedium},
		ClinicID:   clinicID,
	}
}

func suggestionRouter(svc SuggestionService) *gin.Engine {
	h := NewSuggestionHandler(svc, zerolog.Nop())
	r := gin.New()
	r.Use(as(doctor()))
	r.POST("/suggestions", h.CreateSuggestion)
	r.POST("/suggestions/preview", h.PreviewSuggestion)
	r.GET("/suggestions/:id", h.GetSuggestion)
	r.PUT("/suggestions/:id/review", h.ReviewSuggestion)
	r.GET("/patients/:patientId/suggestions", h.ListPatientSuggestions)
	r.GET("/doctors/:doctorId/suggestions", h.ListDoctorSuggestions)
	return r
}

func TestCreateSuggestion(t *testing.T) {
	svc := &fakeService{result: &suggestions.Result{Record: *record("s-1", "clinic-1"), Persisted: true}}
	w := perform(t, suggestionRouter(svc), http.MethodPost, "/suggestions", SuggestionRequest{
		PatientID: "patient-1",
		Symptoms:  []string{"febre", "tosse"},
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	body := decode(t, w)
	if body["id"] != "s-1" || body["persisted"] != true {
		t.Errorf("unexpected body %v", body)
	}
	if svc.lastRequest.DoctorID != "doc-1" {
		t.Errorf("expected the calling doctor to be used, got %q", svc.lastRequest.DoctorID)
	}
	if svc.lastRequest.ClinicID != "clinic-1" {
		t.Errorf("expected clinic from token, got %q", svc.lastRequest.ClinicID)
	}
}

func TestCreateSuggestion_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		body SuggestionRequest
		want int
	}{
		{"no symptoms", suggestions.ErrNoSymptoms, SuggestionRequest{PatientID: "p"}, http.StatusBadRequest},
		{"no patient", suggestions.ErrPatientRequired, SuggestionRequest{Symptoms: []string{"febre"}}, http.StatusBadRequest},
		{"shortlist too large", nil, SuggestionRequest{PatientID: "p", ShortlistSize: 50}, http.StatusBadRequest},
		{"store down", suggestions.ErrStoreUnavailable, SuggestionRequest{PatientID: "p"}, http.StatusServiceUnavailable},
		{"unexpected", context.Canceled, SuggestionRequest{PatientID: "p"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(t, suggestionRouter(&fakeService{err: tt.err}), http.MethodPost, "/suggestions", tt.body)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestPreviewSuggestion(t *testing.T) {
	svc := &fakeService{result: &suggestions.Result{Record: *record("", ""), LanguageFallback: true}}
	w := perform(t, suggestionRouter(svc), http.MethodPost, "/suggestions/preview", SuggestionRequest{
		Complaint: "febre e tosse",
		Language:  "xx",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	if body["persisted"] != false || body["language_fallback"] != true {
		t.Errorf("unexpected body %v", body)
	}
}

func TestGetSuggestion(t *testing.T) {
	svc := &fakeService{records: map[string]*db.SuggestionRecord{
		"mine":   record("mine", "clinic-1"),
		"shared": record("shared", ""),
		"theirs": record("theirs", "clinic-2"),
	}}
	r := suggestionRouter(svc)

	tests := []struct {
		id   string
		want int
	}{
		{"mine", http.StatusOK},
		{"shared", http.StatusOK},
		{"theirs", http.StatusNotFound},
		{"missing", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			w := perform(t, r, http.MethodGet, "/suggestions/"+tt.id, nil)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestReviewSuggestion(t *testing.T) {
	svc := &fakeService{records: map[string]*db.SuggestionRecord{
		"mine":   record("mine", "clinic-1"),
		"theirs": record("theirs", "clinic-2"),
	}}
	r := suggestionRouter(svc)

	w := perform(t, r, http.MethodPut, "/suggestions/mine/review", ReviewRequest{Notes: "confirmado"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.reviewedBy != "doc-1" {
		t.Errorf("expected reviewer doc-1, got %q", svc.reviewedBy)
	}
	if notes := decode(t, w)["review_notes"]; notes != "confirmado" {
		t.Errorf("expected review notes in response, got %v", notes)
	}

	other := perform(t, r, http.MethodPut, "/suggestions/theirs/review", ReviewRequest{Notes: "x"})
	if other.Code != http.StatusNotFound {
		t.Errorf("expected 404 for another clinic's suggestion, got %d", other.Code)
	}
}

func TestListSuggestions(t *testing.T) {
	// Newer suggestions of another clinic must not crowd out the caller's
	svc := &fakeService{records: map[string]*db.SuggestionRecord{
		"s-3": record("s-3", "clinic-2"),
		"s-2": record("s-2", "clinic-2"),
		"s-1": record("s-1", "clinic-1"),
	}}
	r := suggestionRouter(svc)

	for _, path := range []string{"/patients/patient-1/suggestions?limit=2", "/doctors/doc-1/suggestions?limit=2"} {
		t.Run(path, func(t *testing.T) {
			w := perform(t, r, http.MethodGet, path, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			body := decode(t, w)
			if count := body["count"]; count != float64(1) {
				t.Fatalf("expected the caller's one suggestion, got count %v", count)
			}
			first := body["suggestions"].([]interface{})[0].(map[string]interface{})
			if first["id"] != "s-1" {
				t.Errorf("expected s-1, got %v", first["id"])
			}
			if svc.lastClinic != "clinic-1" {
				t.Errorf("expected clinic-1 passed to the service, got %q", svc.lastClinic)
			}
			if svc.lastLimit != 2 {
				t.Errorf("expected limit 2, got %d", svc.lastLimit)
			}
		})
	}
}

func TestListSuggestions_Empty(t *testing.T) {
	w := perform(t, suggestionRouter(&fakeService{}), http.MethodGet, "/patients/patient-9/suggestions", nil)
	body := decode(t, w)
	if list, ok := body["suggestions"].([]interface{}); !ok || len(list) != 0 {
		t.Errorf("expected an empty list, got %v", body["suggestions"])
	}
}
