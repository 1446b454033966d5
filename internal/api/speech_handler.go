package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/service"
)

// SpeechHandler turns recorded answers into stage selections.
type SpeechHandler struct {
	transcription  service.TranscriptionService
	maxUploadBytes int64 // <= 0 disables the limit
	logger         *zap.Logger
}

// NewSpeechHandler creates the handler for /speech routes. A nil service answers 503.
func NewSpeechHandler(transcription service.TranscriptionService, maxUploadBytes int64, logger *zap.Logger) *SpeechHandler {
	return &SpeechHandler{transcription: transcription, maxUploadBytes: maxUploadBytes, logger: logger}
}

// --- DTOs ---

// TranscribeResponse carries the extracted selections for the client to review and submit.
type TranscribeResponse struct {
	Transcript string            `json:"transcript"`
	Stage      domain.Stage      `json:"stage"`
	Selections domain.Selections `json:"selections"`
	Missing    []string          `json:"missing"` // Never null
	AudioKey   string            `json:"audio_key,omitempty"`
	AudioURL   string            `json:"audio_url,omitempty"`
}

// --- Handler Methods ---

// Transcribe godoc
// @Summary Transcribe a spoken answer
// @Description Transcribes the uploaded audio and extracts the selections of the given stage. The session is not modified; submit the selections through /chat/ingest.
// @Tags speech
// @Accept multipart/form-data
// @Produce json
// @Param stage query string true "Stage the answer belongs to"
// @Param session_id query string false "Session the recording belongs to"
// @Param file formData file true "Audio file"
// @Success 200 {object} TranscribeResponse
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 413 {object} map[string]string "File too large"
// @Failure 502 {object} map[string]string "Transcription or extraction failed"
// @Failure 503 {object} map[string]string "Speech input not configured"
// @Router /speech/transcribe [post]
// @Security BearerAuth
func (h *SpeechHandler) Transcribe(c *gin.Context) {
	if h.transcription == nil {
		abortWithError(c, http.StatusServiceUnavailable, "Speech input is not configured")
		return
	}

	stage, err := domain.ParseStage(c.Query("stage"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	sessionID, ok := resolveSessionID(c, c.Query("session_id"))
	if !ok {
		return
	}

	// Enforce upload size limit
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			abortWithError(c, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		abortWithError(c, http.StatusBadRequest, "File upload error: 'file' field is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded file", zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	// Transcribe and extract
	res, err := h.transcription.Transcribe(c.Request.Context(), stage, sessionID, fileHeader.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyAudio):
			abortWithError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrTranscriptionFailed), errors.Is(err, service.ErrExtractionFailed):
			h.logger.Warn("Speech ingestion failed", zap.String("stage", string(stage)), zap.Error(err))
			abortWithError(c, http.StatusBadGateway, err.Error())
		default:
			h.logger.Error("Speech ingestion failed", zap.String("stage", string(stage)), zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, "Failed to process audio")
		}
		return
	}

	missing := res.Missing
	if missing == nil {
		missing = []string{}
	}
	c.JSON(http.StatusOK, TranscribeResponse{
		Transcript: res.Transcript,
		Stage:      res.Stage,
		Selections: res.Selections,
		Missing:    missing,
		AudioKey:   res.AudioKey,
		AudioURL:   res.AudioURL,
	})
}
