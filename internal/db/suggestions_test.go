package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/themobileprof/medoffice-be/internal/diagnosis"
	"github.com/themobileprof/medoffice-be/internal/intake"
	"github.com/themobileprof/medoffice-be/internal/knowledge"
)

var suggestionRowColumns = []string{
	"id", "clinic_id", "patient_id", "doctor_id", "reported_symptoms", "symptoms", "conditions",
	"recommendation", "recommended_tests", "recommended_treatments", "severity", "severity_rule",
	"language", "disclaimer", "notes", "reviewed_by", "review_notes", "reviewed_at", "created_at",
}

const conditionsJSON = `[{"condition":{"id":"covid-19","name":"COVID-19","description":"","symptoms":["febre"],"recommended_tests":[],"recommended_treatments":[]},"matched_symptoms":["febre"],"score":0.3,"match_ratio":0.2,"confidence":0.27,"rank":1}]`

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return Wrap(sqlDB), mock
}

func sampleRecord() *SuggestionRecord {
	return &SuggestionRecord{
		Suggestion: diagnosis.Suggestion{
			ID:               "3f1c9a52-0d5e-4a57-9a57-6b0b7b7f1a11",
			PatientID:        "patient-1",
			ReportedSymptoms: []string{"febre"},
			Symptoms:         []string{"febre", "fever"},
			Conditions: []diagnosis.MatchedCondition{{
				Condition:       knowledge.Condition{ID: "covid-19", Name: "COVID-19"},
				MatchedSymptoms: []string{"febre"},
				Confidence:      0.27,
				Rank:            1,
			}},
			Recommendation:        "Consulte um médico.",
			RecommendedTests:      []string{"RT-PCR"},
			RecommendedTreatments: []string{},
			Severity:              diagnosis.SeverityLow,
			Language:              "pt",
			Disclaimer:            "aviso",
			CreatedAt:             time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		Notes: intake.Notes{Onset: "yesterday"},
	}
}

func TestSaveSuggestion(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(sqlmock.Sqlmock)
		wantErr   error
	}{
		{
			name: "inserted",
			setupMock: func(m sqlmock.Sqlmock) {
				m.ExpectExec(`INSERT INTO diagnosis_suggestions`).
					WithArgs(
						"3f1c9a52-0d5e-4a57-9a57-6b0b7b7f1a11",
						sql.NullString{},
						"patient-1",
						sql.NullString{},
						sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
						"Consulte um médico.",
						sqlmock.AnyArg(), sqlmock.AnyArg(),
						"low",
						sql.NullString{},
						"pt", "aviso",
						sqlmock.AnyArg(), sqlmock.AnyArg(),
					).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "duplicate id",
			setupMock: func(m sqlmock.Sqlmock) {
				m.ExpectExec(`INSERT INTO diagnosis_suggestions`).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: ErrAlreadyExists,
		},
		{
			name: "connection failure",
			setupMock: func(m sqlmock.Sqlmock) {
				m.ExpectExec(`INSERT INTO diagnosis_suggestions`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			database, mock := newMockDB(t)
			tt.setupMock(mock)

			err := database.SaveSuggestion(context.Background(), sampleRecord())
			if tt.wantErr == nil && err != nil {
				t.Fatalf("SaveSuggestion() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("SaveSuggestion() error = %v, want %v", err, tt.wantErr)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestGetSuggestionByID(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		database, mock := newMockDB(t)

		rows := sqlmock.NewRows(suggestionRowColumns).AddRow(
			"id-1", nil, "patient-1", "doctor-1",
			[]byte("{febre}"), []byte("{febre,fever}"), []byte(conditionsJSON),
			"Consulte um médico.", []byte("{RT-PCR}"), []byte("{}"),
			"medium", "medium_severity_symptom",
			"pt", "aviso", []byte(`{"onset":"yesterday"}`),
			nil, nil, nil, created,
		)
		mock.ExpectQuery(`SELECT (.+) FROM diagnosis_suggestions WHERE id = \$1`).
			WithArgs("id-1").
			WillReturnRows(rows)

		rec, err := database.GetSuggestionByID(context.Background(), "id-1")
		if err != nil {
			t.Fatalf("GetSuggestionByID() error = %v", err)
		}

		if rec.DoctorID != "doctor-1" {
			t.Errorf("DoctorID = %q, want doctor-1", rec.DoctorID)
		}
		if len(rec.Symptoms) != 2 || rec.Symptoms[1] != "fever" {
			t.Errorf("Symptoms = %v", rec.Symptoms)
		}
		if len(rec.Conditions) != 1 || rec.Conditions[0].Condition.ID != "covid-19" {
			t.Errorf("Conditions = %+v", rec.Conditions)
		}
		if rec.Severity != diagnosis.SeverityMedium {
			t.Errorf("Severity = %q, want medium", rec.Severity)
		}
		if rec.Notes.Onset != "yesterday" {
			t.Errorf("Notes.Onset = %q, want yesterday", rec.Notes.Onset)
		}
		if rec.Reviewed() {
			t.Error("expected unreviewed suggestion")
		}
		if !rec.CreatedAt.Equal(created) {
			t.Errorf("CreatedAt = %v, want %v", rec.CreatedAt, created)
		}
	})

	t.Run("not found", func(t *testing.T) {
		database, mock := newMockDB(t)

		mock.ExpectQuery(`SELECT (.+) FROM diagnosis_suggestions WHERE id = \$1`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := database.GetSuggestionByID(context.Background(), "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestListSuggestionsByPatient(t *testing.T) {
	database, mock := newMockDB(t)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	reviewed := created.Add(time.Hour)

	rows := sqlmock.NewRows(suggestionRowColumns).
		AddRow("id-2", nil, "patient-1", nil,
			[]byte("{tosse}"), []byte("{tosse}"), []byte("[]"),
			"texto", []byte("{}"), []byte("{}"), "low", nil,
			"pt", "aviso", nil, "doctor-9", "ok", reviewed, created.Add(time.Minute)).
		AddRow("id-1", nil, "patient-1", "doctor-1",
			[]byte("{febre}"), []byte("{febre}"), []byte(conditionsJSON),
			"texto", []byte("{}"), []byte("{}"), "low", nil,
			"pt", "aviso", nil, nil, nil, nil, created)

	mock.ExpectQuery(`SELECT (.+) FROM diagnosis_suggestions\s+WHERE patient_id = \$1 AND \(clinic_id IS NULL OR clinic_id = \$2\)\s+ORDER BY created_at DESC\s+LIMIT \$3`).
		WithArgs("patient-1", "clinic-1", 10).
		WillReturnRows(rows)

	got, err := database.ListSuggestionsByPatient(context.Background(), "clinic-1", "patient-1", 10)
	if err != nil {
		t.Fatalf("ListSuggestionsByPatient() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ID != "id-2" || !got[0].Reviewed() {
		t.Errorf("first record = %+v", got[0])
	}
	if got[0].ReviewedBy == nil || *got[0].ReviewedBy != "doctor-9" {
		t.Errorf("ReviewedBy = %v", got[0].ReviewedBy)
	}
	if got[1].DoctorID != "doctor-1" {
		t.Errorf("DoctorID = %q", got[1].DoctorID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListSuggestionsByDoctor_QueryError(t *testing.T) {
	database, mock := newMockDB(t)

	mock.ExpectQuery(`WHERE doctor_id = \$1 AND \(clinic_id IS NULL OR clinic_id = \$2\)`).
		WithArgs("doctor-1", "clinic-1", 5).
		WillReturnError(sql.ErrConnDone)

	if _, err := database.ListSuggestionsByDoctor(context.Background(), "clinic-1", "doctor-1", 5); err == nil {
		t.Fatal("expected error")
	}
}

func TestListSuggestions_ClinicFilter(t *testing.T) {
	tests := []struct {
		name       string
		clinicID   string
		wantClinic interface{}
	}{
		{"clinic member", "clinic-1", "clinic-1"},
		{"no clinic", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			database, mock := newMockDB(t)

			mock.ExpectQuery(`WHERE doctor_id = \$1 AND \(clinic_id IS NULL OR clinic_id = \$2\)`).
				WithArgs("doctor-1", tt.wantClinic, 20).
				WillReturnRows(sqlmock.NewRows(suggestionRowColumns))

			got, err := database.ListSuggestionsByDoctor(context.Background(), tt.clinicID, "doctor-1", 20)
			if err != nil {
				t.Fatalf("ListSuggestionsByDoctor() error = %v", err)
			}
			if len(got) != 0 {
				t.Errorf("expected no records, got %d", len(got))
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestMarkSuggestionReviewed(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"updated", 1, nil},
		{"missing", 0, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			database, mock := newMockDB(t)

			mock.ExpectExec(`UPDATE diagnosis_suggestions`).
				WithArgs("id-1", "doctor-1", sql.NullString{String: "confere", Valid: true}, at).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := database.MarkSuggestionReviewed(context.Background(), "id-1", "doctor-1", "confere", at)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
