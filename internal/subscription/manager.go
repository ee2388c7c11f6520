package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// FeatureSymptomChecker gates the suggestion endpoints
const FeatureSymptomChecker = "symptom_checker"

var (
	ErrNoDatabase         = errors.New("db not initialized")
	ErrFeatureUnavailable = errors.New("feature not available on current plan")
)

// Quota periods stored in plan_features.quota_period
const (
	PeriodDaily     = "daily"
	PeriodWeekly    = "weekly"
	PeriodMonthly   = "monthly"
	PeriodUnlimited = "unlimited"
)

// activePlanFeature joins a clinic's active subscription to one feature
const activePlanFeature = `
FROM subscriptions s
JOIN plans p ON p.id = s.plan_id AND p.active = TRUE
JOIN plan_features pf ON pf.plan_id = p.id
JOIN features f ON f.id = pf.feature_id
WHERE s.clinic_id = $1
  AND s.status = 'active'
  AND (s.ends_at IS NULL OR s.ends_at > NOW())
  AND f.feature_key = $2`

// Manager answers plan and quota questions for clinics
type Manager struct {
	db  *sql.DB
	now func() time.Time
}

func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db, now: time.Now}
}

// HasFeature reports whether the clinic's active plan includes featureKey
func (m *Manager) HasFeature(ctx context.Context, clinicID string, featureKey string) (bool, error) {
	if m.db == nil {
		return false, ErrNoDatabase
	}

	q := `SELECT EXISTS (SELECT 1 ` + activePlanFeature + `)`

	var exists bool
	if err := m.db.QueryRowContext(ctx, q, clinicID, featureKey).Scan(&exists); err != nil {
		return false, fmt.Errorf("check feature access: %w", err)
	}
	return exists, nil
}

// QuotaInfo contains detailed quota information
type QuotaInfo struct {
	QuotaLimit  *int      `json:"quota_limit"`  // nil = unlimited
	QuotaPeriod string    `json:"quota_period"` // daily/weekly/monthly/unlimited
	UsageCount  int       `json:"usage_count"`
	PeriodEnd   time.Time `json:"period_end"`
}

// Unlimited reports whether the feature has no usage cap
func (q QuotaInfo) Unlimited() bool {
	return q.QuotaLimit == nil || q.QuotaPeriod == PeriodUnlimited
}

// Remaining returns how many uses are left in the period, or -1 when unlimited
func (q QuotaInfo) Remaining() int {
	if q.Unlimited() {
		return -1
	}
	if left := *q.QuotaLimit - q.UsageCount; left > 0 {
		return left
	}
	return 0
}

// GetQuotaInfo returns the clinic's quota and current usage for a feature
func (m *Manager) GetQuotaInfo(ctx context.Context, clinicID string, featureKey string) (*QuotaInfo, error) {
	if m.db == nil {
		return nil, ErrNoDatabase
	}

	q := `
SELECT
    pf.quota_limit,
    pf.quota_period,
    COALESCE(fu.usage_count, 0) AS usage_count,
    COALESCE(fu.period_end, NOW() + INTERVAL '1 day') AS period_end
FROM subscriptions s
JOIN plans p ON p.id = s.plan_id AND p.active = TRUE
JOIN plan_features pf ON pf.plan_id = p.id
JOIN features f ON f.id = pf.feature_id
LEFT JOIN feature_usage fu ON fu.clinic_id = s.clinic_id
    AND fu.feature_key = f.feature_key
    AND fu.period_end > NOW()
WHERE s.clinic_id = $1
  AND s.status = 'active'
  AND (s.ends_at IS NULL OR s.ends_at > NOW())
  AND f.feature_key = $2`

	var info QuotaInfo
	var quotaLimit sql.NullInt64

	err := m.db.QueryRowContext(ctx, q, clinicID, featureKey).
		Scan(&quotaLimit, &info.QuotaPeriod, &info.UsageCount, &info.PeriodEnd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFeatureUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("get quota info: %w", err)
	}

	if quotaLimit.Valid {
		limit := int(quotaLimit.Int64)
		info.QuotaLimit = &limit
	}

	return &info, nil
}

// CheckQuota verifies the clinic is within its quota for a feature.
// A clinic without the feature is reported as over quota.
func (m *Manager) CheckQuota(ctx context.Context, clinicID string, featureKey string) (bool, error) {
	info, err := m.GetQuotaInfo(ctx, clinicID, featureKey)
	if errors.Is(err, ErrFeatureUnavailable) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check quota: %w", err)
	}

	return info.Unlimited() || info.UsageCount < *info.QuotaLimit, nil
}

// IncrementUsage counts one use of a feature in the current period
func (m *Manager) IncrementUsage(ctx context.Context, clinicID string, featureKey string) error {
	if m.db == nil {
		return ErrNoDatabase
	}

	var quotaPeriod string
	err := m.db.QueryRowContext(ctx, `SELECT pf.quota_period `+activePlanFeature, clinicID, featureKey).
		Scan(&quotaPeriod)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrFeatureUnavailable
	}
	if err != nil {
		return fmt.Errorf("get quota period: %w", err)
	}

	periodStart, periodEnd := calculatePeriodBounds(m.now(), quotaPeriod)

	const upsertQuery = `
INSERT INTO feature_usage (clinic_id, feature_key, usage_count, period_start, period_end, updated_at)
VALUES ($1, $2, 1, $3, $4, NOW())
ON CONFLICT (clinic_id, feature_key, period_start)
DO UPDATE SET
    usage_count = feature_usage.usage_count + 1,
    updated_at = NOW()`

	if _, err := m.db.ExecContext(ctx, upsertQuery, clinicID, featureKey, periodStart, periodEnd); err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}

	return nil
}

// ClinicFeature is a feature included in a clinic's plan
type ClinicFeature struct {
	FeatureKey  string `json:"feature_key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	QuotaLimit  *int   `json:"quota_limit"`
	QuotaPeriod string `json:"quota_period"`
}

// GetClinicFeatures lists the features of the clinic's active plan
func (m *Manager) GetClinicFeatures(ctx context.Context, clinicID string) ([]ClinicFeature, error) {
	if m.db == nil {
		return nil, ErrNoDatabase
	}

	const q = `
SELECT f.feature_key, f.name, f.description, pf.quota_limit, pf.quota_period
FROM subscriptions s
JOIN plans p ON p.id = s.plan_id AND p.active = TRUE
JOIN plan_features pf ON pf.plan_id = p.id
JOIN features f ON f.id = pf.feature_id
WHERE s.clinic_id = $1
  AND s.status = 'active'
  AND (s.ends_at IS NULL OR s.ends_at > NOW())
ORDER BY f.feature_key`

	rows, err := m.db.QueryContext(ctx, q, clinicID)
	if err != nil {
		return nil, fmt.Errorf("query clinic features: %w", err)
	}
	defer rows.Close()

	features := make([]ClinicFeature, 0)
	for rows.Next() {
		var f ClinicFeature
		var quotaLimit sql.NullInt64

		if err := rows.Scan(&f.FeatureKey, &f.Name, &f.Description, &quotaLimit, &f.QuotaPeriod); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		if quotaLimit.Valid {
			limit := int(quotaLimit.Int64)
			f.QuotaLimit = &limit
		}
		features = append(features, f)
	}

	return features, rows.Err()
}

// calculatePeriodBounds returns start and end timestamps for a quota period
func calculatePeriodBounds(now time.Time, period string) (time.Time, time.Time) {
	switch period {
	case PeriodDaily:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 0, 1)
	case PeriodWeekly:
		// weeks start on Monday
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start := time.Date(now.Year(), now.Month(), now.Day()-weekday+1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 0, 7)
	case PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, 0)
	default:
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(100, 0, 0)
	}
}
