package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/service"
)

// SessionHandler opens dialogue sessions and returns their snapshots.
type SessionHandler struct {
	conversation service.ConversationService
	tokens       service.TokenService
	logger       *zap.Logger
}

// NewSessionHandler creates the handler for /sessions routes. tokens may be nil.
func NewSessionHandler(conversation service.ConversationService, tokens service.TokenService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{conversation: conversation, tokens: tokens, logger: logger}
}

// --- DTOs ---

// StartSessionResponse is returned by POST /sessions.
type StartSessionResponse struct {
	SessionID string                `json:"session_id"`
	Token     string                `json:"token,omitempty"` // Bearer token, empty when tokens are disabled
	State     *domain.SessionRecord `json:"state"`
}

// --- Handler Methods ---

// StartSession godoc
// @Summary Start a dialogue session
// @Description Creates an empty session at the basic stage. When session tokens are enabled the response carries a bearer token bound to the session.
// @Tags sessions
// @Produce json
// @Success 201 {object} StartSessionResponse
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /sessions [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	rec, err := h.conversation.StartSession(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to start session", zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "Failed to start session")
		return
	}

	// Bind a token to the new session
	var token string
	if h.tokens != nil && h.tokens.Enabled() {
		token, err = h.tokens.Issue(rec.ID)
		if err != nil {
			h.logger.Error("Failed to issue session token", zap.String("sessionId", rec.ID), zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, "Failed to issue session token")
			return
		}
	}

	c.JSON(http.StatusCreated, StartSessionResponse{SessionID: rec.ID, Token: token, State: rec})
}

// GetSession godoc
// @Summary Get a session snapshot
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} domain.SessionRecord
// @Failure 403 {object} map[string]string "Session does not match token"
// @Failure 404 {object} map[string]string "Session not found"
// @Router /sessions/{id} [get]
// @Security BearerAuth
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := resolveSessionID(c, c.Param("id"))
	if !ok {
		return
	}

	rec, err := h.conversation.GetSession(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			abortWithError(c, http.StatusNotFound, "Session not found")
		} else {
			h.logger.Error("Failed to load session", zap.String("sessionId", id), zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, "Failed to load session")
		}
		return
	}
	c.JSON(http.StatusOK, rec)
}
