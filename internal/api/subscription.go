package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/themobileprof/medoffice-be/internal/api/middleware"
	"github.com/themobileprof/medoffice-be/internal/subscription"
)

// PlanReader is implemented by subscription.Manager
type PlanReader interface {
	GetClinicFeatures(ctx context.Context, clinicID string) ([]subscription.ClinicFeature, error)
	GetQuotaInfo(ctx context.Context, clinicID string, featureKey string) (*subscription.QuotaInfo, error)
}

// SubscriptionHandler reports the caller's clinic plan and quota usage
type SubscriptionHandler struct {
	plans PlanReader
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(plans PlanReader) *SubscriptionHandler {
	return &SubscriptionHandler{plans: plans}
}

// GetClinicFeatures returns all features of the caller's clinic plan
// GET /api/clinic/features
func (h *SubscriptionHandler) GetClinicFeatures(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	if clinicID == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "user is not linked to a clinic"})
		return
	}

	features, err := h.plans.GetClinicFeatures(c.Request.Context(), clinicID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get features"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"features": features})
}

// GetClinicQuota returns the quota status of one feature
// GET /api/clinic/quota/:feature
func (h *SubscriptionHandler) GetClinicQuota(c *gin.Context) {
	clinicID := middleware.GetClinicID(c)
	if clinicID == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "user is not linked to a clinic"})
		return
	}

	featureKey := c.Param("feature")
	info, err := h.plans.GetQuotaInfo(c.Request.Context(), clinicID, featureKey)
	if errors.Is(err, subscription.ErrFeatureUnavailable) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "feature not available",
			"feature": featureKey,
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get quota info"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feature":         featureKey,
		"within_quota":    info.Unlimited() || info.Remaining() > 0,
		"quota_limit":     info.QuotaLimit,
		"quota_used":      info.UsageCount,
		"quota_remaining": info.Remaining(),
		"quota_period":    info.QuotaPeriod,
		"period_end":      info.PeriodEnd,
	})
}
