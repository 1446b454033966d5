package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"alcyxob/fitness-coach/internal/service"
)

// Dependencies are the services the HTTP layer is wired to. Transcription and
// Gatherer may be nil; speech input then answers 503 and /metrics is not served.
type Dependencies struct {
	Conversation   service.ConversationService
	Generator      service.GeneratorService
	Transcription  service.TranscriptionService
	Tokens         service.TokenService
	Gatherer       prometheus.Gatherer
	CORSOrigins    []string
	MaxUploadBytes int64
	Logger         *zap.Logger
}

// SetupRoutes registers middleware and every route on router.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// --- Initialize Handlers ---
	sessionHandler := NewSessionHandler(deps.Conversation, deps.Tokens, logger)
	chatHandler := NewChatHandler(deps.Conversation, logger)
	workoutHandler := NewWorkoutHandler(deps.Generator, logger)
	speechHandler := NewSpeechHandler(deps.Transcription, deps.MaxUploadBytes, logger)

	// --- Global Middleware ---
	router.Use(CORSMiddleware(deps.CORSOrigins))

	// --- Health Check ---

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Fitness coach API is running"})
	})
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	// Prometheus scrape endpoint
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// --- API Version 1 Routes ---
	apiV1 := router.Group("/api/v1")
	{
		// Session creation issues the token, so it stays outside the token check.
		apiV1.POST("/sessions", sessionHandler.StartSession)
		apiV1.POST("/workouts/generate", workoutHandler.GenerateWorkout)
	}

	// --- Session-bound Routes ---
	protected := apiV1.Group("")
	protected.Use(SessionTokenMiddleware(deps.Tokens))
	{
		protected.GET("/sessions/:id", sessionHandler.GetSession)
		protected.POST("/chat/ingest", chatHandler.Ingest)
		protected.POST("/speech/transcribe", speechHandler.Transcribe)
	}
}
