package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

type FeatureChecker interface {
	HasFeature(ctx context.Context, clinicID string, featureKey string) (bool, error)
}

type QuotaChecker interface {
	CheckQuota(ctx context.Context, clinicID string, featureKey string) (bool, error)
}

// RequireFeature blocks requests from clinics whose plan lacks featureKey
func RequireFeature(checker FeatureChecker, featureKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		clinicID := GetClinicID(c)
		if clinicID == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user is not linked to a clinic"})
			return
		}

		allowed, err := checker.HasFeature(c.Request.Context(), clinicID, featureKey)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "feature check failed"})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "feature not available"})
			return
		}
		c.Next()
	}
}

// CheckQuota rejects requests once the clinic has used up its quota
func CheckQuota(checker QuotaChecker, featureKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		clinicID := GetClinicID(c)
		if clinicID == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user is not linked to a clinic"})
			return
		}

		withinQuota, err := checker.CheckQuota(c.Request.Context(), clinicID, featureKey)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "quota check failed"})
			return
		}
		if !withinQuota {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "quota exceeded"})
			return
		}

		c.Next()
	}
}
