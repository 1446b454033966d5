package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/format"
	"alcyxob/fitness-coach/internal/llm"
	"alcyxob/fitness-coach/internal/metrics"
	"alcyxob/fitness-coach/internal/prompt"
	"alcyxob/fitness-coach/internal/repair"
	"alcyxob/fitness-coach/internal/validator"
)

// Generation outcome statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// GenerationResult is the uniform outcome of a workout generation.
type GenerationResult struct {
	Status     string              `json:"status"`
	Workout    string              `json:"workout,omitempty"`
	RawWorkout *domain.WorkoutPlan `json:"raw_workout,omitempty"`
	Message    string              `json:"message,omitempty"`
	Attempts   int                 `json:"attempts"` // Model calls made
	Fallback   bool                `json:"fallback"` // Plan came from the canned fallback
}

// PromptBuilder renders the prompts for a profile.
type PromptBuilder interface {
	Build(profile *domain.UserProfile) (prompt.Prompt, error)
}

// --- Service Interface ---

// GeneratorService turns a profile into a validated workout plan. Generate never
// returns a Go error: every failure is reported through the result.
type GeneratorService interface {
	Generate(ctx context.Context, profile *domain.UserProfile) GenerationResult
}

// GeneratorOptions tunes the generation pipeline.
type GeneratorOptions struct {
	// MaxAttempts bounds model calls per generation; only unreadable or structurally
	// invalid replies are retried.
	MaxAttempts int
	MaxTokens   int // Completion budget per call
}

// --- Service Implementation ---

// generatorService implements the GeneratorService interface.
type generatorService struct {
	builder   PromptBuilder
	completer llm.Completer
	opts      GeneratorOptions
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewGeneratorService creates the generation facade.
func NewGeneratorService(builder PromptBuilder, completer llm.Completer, opts GeneratorOptions, logger *zap.Logger, m *metrics.Metrics) GeneratorService {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1 // Default to a single attempt
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &generatorService{
		builder:   builder,
		completer: completer,
		opts:      opts,
		logger:    logger,
		metrics:   m,
	}
}

// Generate runs prompt, model, repair, validation and formatting with bounded retries.
func (s *generatorService) Generate(ctx context.Context, profile *domain.UserProfile) (result GenerationResult) {
	start := time.Now()
	// Panics become an error result; metrics and the summary log always run
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Workout generation panicked", zap.Any("panic", r))
			result = GenerationResult{Status: StatusError, Message: "internal error during workout generation", Attempts: result.Attempts}
		}
		s.metrics.ObserveGeneration(result.Status, result.Attempts)
		s.logger.Info("Workout generation finished",
			zap.String("status", result.Status),
			zap.Int("attempts", result.Attempts),
			zap.Bool("fallback", result.Fallback),
			zap.Duration("elapsed", time.Since(start)))
	}()

	if profile == nil {
		return GenerationResult{Status: StatusError, Message: "user profile is required"}
	}

	// 1. Render prompts
	p, err := s.builder.Build(profile)
	if err != nil {
		s.logger.Error("Failed to build prompt", zap.String("userId", profile.UserID), zap.Error(err))
		return GenerationResult{Status: StatusError, Message: fmt.Sprintf("failed to build prompt: %v", err)}
	}
	s.logger.Info("Generated prompts for user", zap.String("userId", profile.UserID), zap.String("name", profile.Name))

	// 2. Call the model until a reply parses and validates
	var lastErr error
	attempts := 0
	for attempts < s.opts.MaxAttempts {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		attempts++

		resp, err := s.completer.Complete(ctx, p.System, p.User, s.opts.MaxTokens)
		if err != nil {
			// Upstream failures are the client's concern; the facade does not retry them.
			lastErr = err
			break
		}
		if resp == nil {
			lastErr = errors.New("empty model response")
			break
		}

		// 3. Repair and validate the reply
		plan, applied, err := parsePlan(resp.Content)
		if err != nil {
			lastErr = err
			s.logger.Warn("Model reply rejected",
				zap.Int("attempt", attempts),
				zap.Bool("fallback", resp.Fallback),
				zap.Error(err))
			continue // Unreadable or invalid, try again
		}
		s.metrics.ObserveRepair(applied)
		return GenerationResult{
			Status:     StatusSuccess,
			Workout:    format.Workout(plan),
			RawWorkout: plan,
			Attempts:   attempts,
			Fallback:   resp.Fallback,
		}
	}

	return GenerationResult{Status: StatusError, Message: failureMessage(lastErr), Attempts: attempts}
}

// --- Helpers ---

// parsePlan recovers JSON from content and validates it as a workout plan.
func parsePlan(content string) (*domain.WorkoutPlan, []string, error) {
	res, err := repair.Recover(content)
	if err != nil {
		return nil, nil, err
	}
	plan, err := validator.Validate(res.Value)
	if err != nil {
		return nil, res.Applied, err
	}
	return plan, res.Applied, nil
}

// failureMessage maps the last error to the user-facing message.
func failureMessage(err error) string {
	var extractErr *repair.ExtractionError
	var schemaErr *validator.SchemaError
	switch {
	case err == nil:
		return "failed to process workout"
	case errors.As(err, &extractErr):
		return "could not read a workout from the model response: " + extractErr.Error()
	case errors.As(err, &schemaErr):
		return schemaErr.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "workout generation timed out"
	case errors.Is(err, context.Canceled):
		return "workout generation was canceled"
	}
	return err.Error()
}
