package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/themobileprof/medoffice-be/internal/api/middleware"
	"github.com/themobileprof/medoffice-be/internal/subscription"
)

// FeatureGate answers plan checks for the suggestion routes
type FeatureGate interface {
	middleware.FeatureChecker
	middleware.QuotaChecker
}

// RouterConfig carries everything NewRouter mounts
type RouterConfig struct {
	JWTSecret      string
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	Logger         zerolog.Logger

	Auth         *AuthHandler
	Catalog      *CatalogHandler
	Suggestions  *SuggestionHandler
	Subscription *SubscriptionHandler
	Features     FeatureGate

	// Intake serves /ws/intake when set
	Intake gin.HandlerFunc
}

// NewRouter builds the gin engine with all middleware and routes
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(cfg.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.AllowedOrigins...))
	if cfg.RateLimitRPS > 0 {
		router.Use(middleware.PerIP(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	auth := router.Group("/api/auth")
	{
		auth.POST("/register", cfg.Auth.Register)
		auth.POST("/login", cfg.Auth.Login)
		auth.GET("/me", middleware.JWTAuth(cfg.JWTSecret), cfg.Auth.Me)
	}

	protected := router.Group("/api")
	protected.Use(middleware.JWTAuth(cfg.JWTSecret))
	{
		protected.GET("/conditions", cfg.Catalog.ListConditions)
		protected.GET("/conditions/:id", cfg.Catalog.GetCondition)
		protected.GET("/languages", cfg.Catalog.ListLanguages)

		protected.GET("/clinic/features", cfg.Subscription.GetClinicFeatures)
		protected.GET("/clinic/quota/:feature", cfg.Subscription.GetClinicQuota)
	}

	// Suggestion routes (feature gate + per-user rate limiting)
	gated := protected.Group("")
	gated.Use(middleware.RequireFeature(cfg.Features, subscription.FeatureSymptomChecker))
	gated.Use(middleware.PerUser(1000.0/3600.0, 100)) // 1000/hour per user
	{
		gated.POST("/suggestions",
			middleware.CheckQuota(cfg.Features, subscription.FeatureSymptomChecker),
			cfg.Suggestions.CreateSuggestion)
		gated.POST("/suggestions/preview", cfg.Suggestions.PreviewSuggestion)
		gated.GET("/suggestions/:id", cfg.Suggestions.GetSuggestion)
		gated.PUT("/suggestions/:id/review", middleware.RequireRole("doctor"), cfg.Suggestions.ReviewSuggestion)

		gated.GET("/patients/:patientId/suggestions", cfg.Suggestions.ListPatientSuggestions)
		gated.GET("/doctors/:doctorId/suggestions", cfg.Suggestions.ListDoctorSuggestions)
	}

	// WebSocket intake route (protected via query param/header)
	if cfg.Intake != nil {
		router.GET("/ws/intake", cfg.Intake)
	}

	return router
}
