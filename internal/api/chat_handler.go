package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/service"
)

// ChatHandler accepts stage answers of the guided dialogue.
type ChatHandler struct {
	conversation service.ConversationService
	logger       *zap.Logger
}

// NewChatHandler creates the handler for /chat routes.
func NewChatHandler(conversation service.ConversationService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{conversation: conversation, logger: logger}
}

// --- DTOs ---

// IngestRequest is the body of POST /chat/ingest.
type IngestRequest struct {
	SessionID  string         `json:"session_id"`
	Stage      string         `json:"stage"` // Required when selections are present
	Selections map[string]any `json:"selections"`
}

// IngestResponse tells the client what to show next.
type IngestResponse struct {
	AssistantText string                `json:"assistant_text"`
	State         *domain.SessionRecord `json:"state"`
	NextStage     domain.Stage          `json:"next_stage"`
	Controls      map[string]any        `json:"controls"`
}

// --- Handler Methods ---

// Ingest godoc
// @Summary Submit answers for a dialogue stage
// @Description Merges the selections into the session and returns the next prompt. An empty body returns the prompt of the current stage. Submitting the final stage generates a workout.
// @Tags chat
// @Accept json
// @Produce json
// @Param ingest body IngestRequest true "Stage answers"
// @Success 200 {object} IngestResponse
// @Failure 400 {object} map[string]string "Bad Request (invalid selections, wrong stage, basic information required first)"
// @Failure 403 {object} map[string]string "Session does not match token"
// @Failure 409 {object} map[string]string "Stage already completed"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /chat/ingest [post]
// @Security BearerAuth
func (h *ChatHandler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	// Session must match the bearer token when tokens are enabled
	sessionID, ok := resolveSessionID(c, req.SessionID)
	if !ok {
		return // Response already written
	}

	var stage domain.Stage
	if req.Stage != "" {
		parsed, err := domain.ParseStage(req.Stage)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		stage = parsed
	}

	// Decode strictly; wrong value shapes are client errors
	var sel domain.Selections
	if len(req.Selections) > 0 {
		if stage == "" {
			abortWithError(c, http.StatusBadRequest, "stage is required when selections are provided")
			return
		}
		decoded, err := domain.DecodeSelections(stage, req.Selections)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		sel = decoded
	}

	res, err := h.conversation.Ingest(c.Request.Context(), service.IngestRequest{
		SessionID:  sessionID,
		StageHint:  stage,
		Selections: sel,
	})
	if err != nil {
		// Map service errors to HTTP status codes
		switch {
		case errors.Is(err, service.ErrPrecondition):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrSelectionsMismatch):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrStageCompleted):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			h.logger.Error("Failed to ingest selections", zap.String("sessionId", sessionID), zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, "Failed to process selections")
		}
		return
	}

	c.JSON(http.StatusOK, IngestResponse{
		AssistantText: res.AssistantText,
		State:         res.State,
		NextStage:     res.NextStage,
		Controls:      res.Controls,
	})
}
