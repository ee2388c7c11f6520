package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/themobileprof/medoffice-be/internal/diagnosis"
	"github.com/themobileprof/medoffice-be/internal/intake"
)

// SuggestionRecord is a stored engine result plus its review state
type SuggestionRecord struct {
	diagnosis.Suggestion
	ClinicID    string       `json:"clinic_id,omitempty"`
	Notes       intake.Notes `json:"notes"`
	ReviewedBy  *string      `json:"reviewed_by,omitempty"`
	ReviewNotes *string      `json:"review_notes,omitempty"`
	ReviewedAt  *time.Time   `json:"reviewed_at,omitempty"`
}

// Reviewed reports whether a doctor has signed off on the suggestion
func (r *SuggestionRecord) Reviewed() bool {
	return r.ReviewedAt != nil
}

const suggestionColumns = `id, clinic_id, patient_id, doctor_id, reported_symptoms, symptoms, conditions,
	recommendation, recommended_tests, recommended_treatments, severity, severity_rule,
	language, disclaimer, notes, reviewed_by, review_notes, reviewed_at, created_at`

// SaveSuggestion inserts a suggestion. The ID is assigned by the caller.
func (db *DB) SaveSuggestion(ctx context.Context, rec *SuggestionRecord) error {
	conditions, err := json.Marshal(rec.Conditions)
	if err != nil {
		return fmt.Errorf("failed to encode conditions: %w", err)
	}
	notes, err := json.Marshal(rec.Notes)
	if err != nil {
		return fmt.Errorf("failed to encode notes: %w", err)
	}

	query := `
		INSERT INTO diagnosis_suggestions (
			id, clinic_id, patient_id, doctor_id, reported_symptoms, symptoms, conditions,
			recommendation, recommended_tests, recommended_treatments, severity, severity_rule,
			language, disclaimer, notes, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = db.ExecContext(ctx, query,
		rec.ID,
		nullString(rec.ClinicID),
		rec.PatientID,
		nullString(rec.DoctorID),
		pq.Array(rec.ReportedSymptoms),
		pq.Array(rec.Symptoms),
		conditions,
		rec.Recommendation,
		pq.Array(rec.RecommendedTests),
		pq.Array(rec.RecommendedTreatments),
		string(rec.Severity),
		nullString(rec.SeverityRule),
		rec.Language,
		rec.Disclaimer,
		notes,
		rec.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to save suggestion: %w", err)
	}
	return nil
}

// GetSuggestionByID retrieves one suggestion
func (db *DB) GetSuggestionByID(ctx context.Context, id string) (*SuggestionRecord, error) {
	query := `SELECT ` + suggestionColumns + ` FROM diagnosis_suggestions WHERE id = $1`

	rec, err := scanSuggestion(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get suggestion: %w", err)
	}
	return rec, nil
}

// ListSuggestionsByPatient returns a patient's suggestions visible to a
// clinic, newest first. Suggestions without a clinic are visible to all.
func (db *DB) ListSuggestionsByPatient(ctx context.Context, clinicID, patientID string, limit int) ([]SuggestionRecord, error) {
	query := `
		SELECT ` + suggestionColumns + `
		FROM diagnosis_suggestions
		WHERE patient_id = $1 AND (clinic_id IS NULL OR clinic_id = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`
	return db.listSuggestions(ctx, query, patientID, clinicID, limit)
}

// ListSuggestionsByDoctor returns the suggestions requested by a doctor that
// are visible to a clinic, newest first
func (db *DB) ListSuggestionsByDoctor(ctx context.Context, clinicID, doctorID string, limit int) ([]SuggestionRecord, error) {
	query := `
		SELECT ` + suggestionColumns + `
		FROM diagnosis_suggestions
		WHERE doctor_id = $1 AND (clinic_id IS NULL OR clinic_id = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`
	return db.listSuggestions(ctx, query, doctorID, clinicID, limit)
}

// MarkSuggestionReviewed records a doctor's review
func (db *DB) MarkSuggestionReviewed(ctx context.Context, id, reviewerID, notes string, at time.Time) error {
	query := `
		UPDATE diagnosis_suggestions
		SET reviewed_by = $2, review_notes = $3, reviewed_at = $4
		WHERE id = $1
	`

	res, err := db.ExecContext(ctx, query, id, reviewerID, nullString(notes), at)
	if err != nil {
		return fmt.Errorf("failed to review suggestion: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to review suggestion: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) listSuggestions(ctx context.Context, query, key, clinicID string, limit int) ([]SuggestionRecord, error) {
	rows, err := db.QueryContext(ctx, query, key, nullString(clinicID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list suggestions: %w", err)
	}
	defer rows.Close()

	records := make([]SuggestionRecord, 0, limit)
	for rows.Next() {
		rec, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSuggestion(row rowScanner) (*SuggestionRecord, error) {
	var (
		rec          SuggestionRecord
		clinicID     sql.NullString
		doctorID     sql.NullString
		severity     string
		severityRule sql.NullString
		conditions   []byte
		notes        []byte
	)

	err := row.Scan(
		&rec.ID,
		&clinicID,
		&rec.PatientID,
		&doctorID,
		pq.Array(&rec.ReportedSymptoms),
		pq.Array(&rec.Symptoms),
		&conditions,
		&rec.Recommendation,
		pq.Array(&rec.RecommendedTests),
		pq.Array(&rec.RecommendedTreatments),
		&severity,
		&severityRule,
		&rec.Language,
		&rec.Disclaimer,
		&notes,
		&rec.ReviewedBy,
		&rec.ReviewNotes,
		&rec.ReviewedAt,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.ClinicID = clinicID.String
	rec.DoctorID = doctorID.String
	rec.Severity = diagnosis.Severity(severity)
	rec.SeverityRule = severityRule.String

	if err := json.Unmarshal(conditions, &rec.Conditions); err != nil {
		return nil, fmt.Errorf("decode conditions: %w", err)
	}
	if len(notes) > 0 {
		if err := json.Unmarshal(notes, &rec.Notes); err != nil {
			return nil, fmt.Errorf("decode notes: %w", err)
		}
	}

	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
