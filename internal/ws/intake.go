package ws

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/themobileprof/medoffice-be/internal/api/middleware"
	"github.com/themobileprof/medoffice-be/internal/subscription"
	"github.com/themobileprof/medoffice-be/internal/suggestions"
)

const (
	maxMessageSize    = 8 << 10
	readTimeout       = 2 * time.Minute
	writeTimeout      = 10 * time.Second
	messagesPerMinute = 60
)

// Previewer computes a suggestion without storing it
type Previewer interface {
	Preview(ctx context.Context, req suggestions.Request) (*suggestions.Result, error)
}

// IntakeHandler streams live suggestion previews while staff type a
// patient's symptoms
type IntakeHandler struct {
	previewer Previewer
	features  middleware.FeatureChecker
	jwtSecret string
	logger    zerolog.Logger
	upgrader  websocket.Upgrader
}

// NewIntakeHandler creates a websocket intake handler. Sessions are only
// opened for clinics whose plan includes the symptom checker. With no
// allowed origins every origin is accepted.
func NewIntakeHandler(previewer Previewer, features middleware.FeatureChecker, jwtSecret string, logger zerolog.Logger, allowedOrigins ...string) *IntakeHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &IntakeHandler{
		previewer: previewer,
		features:  features,
		jwtSecret: jwtSecret,
		logger:    logger.With().Str("component", "ws_intake").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if len(allowed) == 0 || origin == "" {
					return true
				}
				if u, err := url.Parse(origin); err == nil && allowed[u.Scheme+"://"+u.Host] {
					return true
				}
				return false
			},
		},
	}
}

// IncomingMessage is what the client sends on every edit
type IncomingMessage struct {
	PatientID string   `json:"patient_id"`
	Symptoms  []string `json:"symptoms"`
	Complaint string   `json:"complaint"`
	Language  string   `json:"language"`
}

// OutgoingMessage represents a message to the client
type OutgoingMessage struct {
	Type  string      `json:"type"` // "suggestion", "error"
	Error string      `json:"error,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// HandleIntake upgrades the connection and answers each message with a preview
// GET /ws/intake?token=<jwt>
func (h *IntakeHandler) HandleIntake(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
		return
	}

	claims, err := middleware.ParseToken(h.jwtSecret, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	if claims.ClinicID == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "user is not linked to a clinic"})
		return
	}
	allowed, err := h.features.HasFeature(c.Request.Context(), claims.ClinicID, subscription.FeatureSymptomChecker)
	if err != nil {
		h.logger.Error().Err(err).Str("clinic_id", claims.ClinicID).Msg("feature check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "feature check failed"})
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "feature not available"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := h.logger.With().Str("user_id", claims.UserID).Logger()
	log.Info().Msg("intake session opened")

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	limiter := middleware.NewWebSocketLimiter(messagesPerMinute)
	ctx := c.Request.Context()

	for {
		var msg IncomingMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("intake session closed unexpectedly")
			}
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		if !limiter.Allow() {
			if err := h.send(conn, OutgoingMessage{Type: "error", Error: "too many messages"}); err != nil {
				break
			}
			continue
		}

		out := h.preview(ctx, claims, msg)
		if err := h.send(conn, out); err != nil {
			log.Warn().Err(err).Msg("failed to write preview")
			break
		}
	}

	log.Info().Msg("intake session closed")
}

func (h *IntakeHandler) preview(ctx context.Context, claims *middleware.JWTClaims, msg IncomingMessage) OutgoingMessage {
	res, err := h.previewer.Preview(ctx, suggestions.Request{
		ClinicID:  claims.ClinicID,
		PatientID: msg.PatientID,
		Symptoms:  msg.Symptoms,
		Complaint: msg.Complaint,
		Language:  msg.Language,
	})
	if errors.Is(err, suggestions.ErrNoSymptoms) {
		return OutgoingMessage{Type: "error", Error: err.Error()}
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("preview failed")
		return OutgoingMessage{Type: "error", Error: "internal error"}
	}
	return OutgoingMessage{Type: "suggestion", Data: res.Record}
}

func (h *IntakeHandler) send(conn *websocket.Conn, msg OutgoingMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}
