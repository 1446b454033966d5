package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/normalize"
	"alcyxob/fitness-coach/internal/service"
)

// WorkoutHandler generates workouts from complete profiles, outside any session.
type WorkoutHandler struct {
	generator service.GeneratorService
	logger    *zap.Logger
}

// NewWorkoutHandler creates the handler for /workouts routes.
func NewWorkoutHandler(generator service.GeneratorService, logger *zap.Logger) *WorkoutHandler {
	return &WorkoutHandler{generator: generator, logger: logger}
}

// --- Handler Methods ---

// GenerateWorkout godoc
// @Summary Generate a workout for a profile
// @Tags workouts
// @Accept json
// @Produce json
// @Param profile body domain.UserProfile true "User profile"
// @Success 200 {object} service.GenerationResult
// @Failure 400 {object} map[string]string "Invalid profile"
// @Failure 502 {object} service.GenerationResult "Model output could not be turned into a workout"
// @Router /workouts/generate [post]
func (h *WorkoutHandler) GenerateWorkout(c *gin.Context) {
	var profile domain.UserProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid profile: "+err.Error())
		return
	}
	if len(profile.Goals) == 0 {
		abortWithError(c, http.StatusBadRequest, "Invalid profile: at least one goal is required")
		return
	}

	// Canonicalize enumerated fields before prompting
	gender, ok := normalize.Gender(profile.PhysicalStats.Gender)
	if !ok {
		abortWithError(c, http.StatusBadRequest, "Invalid profile: gender is required")
		return
	}
	profile.PhysicalStats.Gender = gender
	if activity, ok := normalize.MatchOne(profile.ActivityLevel, domain.ActivityValues); ok {
		profile.ActivityLevel = activity // Unknown levels pass through as written
	}

	result := h.generator.Generate(c.Request.Context(), &profile)
	if result.Status != service.StatusSuccess {
		h.logger.Warn("Workout generation failed", zap.String("message", result.Message), zap.Int("attempts", result.Attempts))
		c.JSON(http.StatusBadGateway, result) // Same body shape as success
		return
	}
	c.JSON(http.StatusOK, result)
}
