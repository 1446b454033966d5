package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/metrics"
	"alcyxob/fitness-coach/internal/normalize"
	"alcyxob/fitness-coach/internal/repository"
	"alcyxob/fitness-coach/internal/schema"
)

// --- Error Definitions ---
var (
	ErrPrecondition       = errors.New("basic information required first")
	ErrStageCompleted     = errors.New("stage already completed")
	ErrSelectionsMismatch = errors.New("selections do not belong to the requested stage")
	ErrSessionNotFound    = errors.New("session not found")
)

// IngestRequest carries one submission of the guided dialogue. StageHint is the
// stage the client believes it is answering; an empty hint means the stored stage.
type IngestRequest struct {
	SessionID  string            // Empty creates a new session
	StageHint  domain.Stage      // Empty means the stored stage
	Selections domain.Selections // Nil or empty asks for the stage prompt
}

// IngestResult is what the client shows next.
type IngestResult struct {
	AssistantText string
	NextStage     domain.Stage
	Controls      map[string]any        // Form hints, plus generation status and workout on FINAL
	State         *domain.SessionRecord // Session after the submission was applied
}

// --- Service Interface ---

// ConversationService drives the three-stage data collection. The stored session
// stage is authoritative; client stage hints are only checked against it.
type ConversationService interface {
	StartSession(ctx context.Context) (*domain.SessionRecord, error)
	GetSession(ctx context.Context, id string) (*domain.SessionRecord, error)
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)
}

// --- Service Implementation ---

// conversationService implements the ConversationService interface.
type conversationService struct {
	sessions  repository.SessionRepository
	generator GeneratorService
	logger    *zap.Logger
	metrics   *metrics.Metrics // Optional, nil-safe
}

// NewConversationService creates the dialogue state machine.
func NewConversationService(sessions repository.SessionRepository, generator GeneratorService, logger *zap.Logger, m *metrics.Metrics) ConversationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &conversationService{
		sessions:  sessions,
		generator: generator,
		logger:    logger,
		metrics:   m,
	}
}

// StartSession creates an empty session at the BASIC stage.
func (s *conversationService) StartSession(ctx context.Context) (*domain.SessionRecord, error) {
	rec, err := s.sessions.GetOrCreate(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	s.logger.Info("Session started", zap.String("sessionId", rec.ID))
	return rec, nil
}

// GetSession returns the stored session without creating one.
func (s *conversationService) GetSession(ctx context.Context, id string) (*domain.SessionRecord, error) {
	rec, err := s.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err // Propagate unexpected repository errors
	}
	return rec, nil
}

// Ingest applies one submission and tells the client what to show next.
func (s *conversationService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	// 1. Load or create the session
	rec, err := s.sessions.GetOrCreate(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	// 2. Resolve the stage being answered
	stage := req.StageHint
	if stage == "" {
		stage = rec.Stage
	}
	if !stage.Valid() {
		return nil, fmt.Errorf("unsupported stage: %q", stage)
	}

	// 3. Earlier stages must be complete whatever the payload carries
	if err := checkPrecondition(rec, stage); err != nil {
		s.metrics.ObserveIngest(string(stage), "precondition")
		return nil, err
	}

	// 4. Payload must belong to that stage
	sel := req.Selections
	if sel != nil && sel.Stage() != stage {
		return nil, ErrSelectionsMismatch
	}
	empty := sel == nil || sel.Empty()

	// 5. Completed stages are read-only; an empty revisit shows the current prompt
	if stage.Rank() < rec.Stage.Rank() {
		if !empty {
			s.metrics.ObserveIngest(string(stage), "stage_completed")
			return nil, fmt.Errorf("%w: session is at stage %s", ErrStageCompleted, rec.Stage)
		}
		stage = rec.Stage
	}

	if empty {
		s.metrics.ObserveIngest(string(stage), "prompt")
		return &IngestResult{
			AssistantText: stagePrompt(stage),
			NextStage:     stage,
			Controls:      stageControls(stage, rec),
			State:         rec,
		}, nil
	}

	// 6. Merge into the session and advance
	var res *IngestResult
	switch v := sel.(type) {
	case domain.BasicSelections:
		res = s.ingestBasic(rec, v)
	case domain.GoalsSelections:
		res = s.ingestGoals(rec, v)
	case domain.FinalSelections:
		res = s.ingestFinal(ctx, rec, v)
	default:
		return nil, ErrSelectionsMismatch
	}

	// 7. Persist
	if err := s.sessions.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	res.State = rec
	return res, nil
}

// checkPrecondition enforces that earlier stages hold complete data before a later
// stage is addressed.
func checkPrecondition(rec *domain.SessionRecord, stage domain.Stage) error {
	basicsComplete := rec.Basics != nil && len(schema.MissingForBasics(rec.Basics)) == 0
	goalsSet := rec.Goals != nil && len(rec.Goals.Goals) > 0
	switch stage {
	case domain.StageGoals:
		if !basicsComplete {
			return ErrPrecondition
		}
	case domain.StageFinal:
		if !basicsComplete || !goalsSet {
			return ErrPrecondition
		}
	}
	return nil
}

// --- Stage Handlers ---

func (s *conversationService) ingestBasic(rec *domain.SessionRecord, sel domain.BasicSelections) *IngestResult {
	if rec.Basics == nil {
		rec.Basics = &domain.Basics{}
	}
	mergeBasics(rec.Basics, sel)
	rec.Missing = schema.MissingForBasics(rec.Basics)

	if len(rec.Missing) > 0 {
		s.metrics.ObserveIngest(string(domain.StageBasic), "incomplete")
		return &IngestResult{
			AssistantText: fmt.Sprintf("Thanks! I still need your %s.", humanList(rec.Missing)),
			NextStage:     domain.StageBasic,
			Controls:      stageControls(domain.StageBasic, rec),
		}
	}

	// Basics complete, move on
	rec.Stage = domain.StageGoals
	rec.Missing = schema.MissingForGoals(rec.Goals)
	s.metrics.ObserveIngest(string(domain.StageBasic), "advanced")
	s.logger.Info("Basic information complete", zap.String("sessionId", rec.ID))
	return &IngestResult{
		AssistantText: "Great, I have your basic information. " + stagePrompt(domain.StageGoals),
		NextStage:     domain.StageGoals,
		Controls:      stageControls(domain.StageGoals, rec),
	}
}

// mergeBasics overwrites fields the client sent. Non-positive numbers and
// unrecognised activity levels are ignored.
func mergeBasics(b *domain.Basics, sel domain.BasicSelections) {
	if sel.Name != nil {
		if name := strings.TrimSpace(*sel.Name); name != "" {
			b.Name = &name
		}
	}
	if sel.Age != nil && *sel.Age > 0 {
		age := *sel.Age
		b.Age = &age
	}
	if sel.Gender != nil {
		if g, ok := normalize.Gender(*sel.Gender); ok {
			b.Gender = &g
		}
	}
	if sel.HeightCm != nil && *sel.HeightCm > 0 {
		h := *sel.HeightCm
		b.HeightCm = &h
	}
	if sel.WeightKg != nil && *sel.WeightKg > 0 {
		w := *sel.WeightKg
		b.WeightKg = &w
	}
	if sel.ActivityLevel != nil {
		if a, ok := normalize.MatchOne(*sel.ActivityLevel, domain.ActivityValues); ok {
			b.ActivityLevel = &a
		}
	}
}

func (s *conversationService) ingestGoals(rec *domain.SessionRecord, sel domain.GoalsSelections) *IngestResult {
	goals := normalize.MatchMany(sel.Goals, domain.GoalValues)
	if len(goals) == 0 {
		// Nothing on the allowlist survived
		rec.Missing = []string{domain.FieldGoals}
		s.metrics.ObserveIngest(string(domain.StageGoals), "incomplete")
		return &IngestResult{
			AssistantText: "Please choose at least one goal from the list.",
			NextStage:     domain.StageGoals,
			Controls:      stageControls(domain.StageGoals, rec),
		}
	}

	rec.Goals = &domain.GoalBlock{Goals: goals}
	rec.Stage = domain.StageFinal
	rec.Missing = []string{}
	s.metrics.ObserveIngest(string(domain.StageGoals), "advanced")
	return &IngestResult{
		AssistantText: fmt.Sprintf("Got it: %s. %s", strings.Join(goals, ", "), stagePrompt(domain.StageFinal)),
		NextStage:     domain.StageFinal,
		Controls:      stageControls(domain.StageFinal, rec),
	}
}

func (s *conversationService) ingestFinal(ctx context.Context, rec *domain.SessionRecord, sel domain.FinalSelections) *IngestResult {
	if rec.Preferences == nil {
		rec.Preferences = &domain.Preferences{}
	}
	mergePreferences(rec.Preferences, sel)
	rec.Missing = []string{}

	// Build the generation profile from all three stages
	controls := stageControls(domain.StageFinal, rec)
	profile, err := domain.ProfileFromSession(rec)
	if err != nil {
		controls["status"] = StatusError
		controls["error"] = err.Error()
		return &IngestResult{
			AssistantText: "Sorry, I could not prepare your profile: " + err.Error(),
			NextStage:     domain.StageFinal,
			Controls:      controls,
		}
	}

	// Generate; failures keep the session open at FINAL
	result := s.generator.Generate(ctx, profile)
	controls["status"] = result.Status
	controls["attempts"] = result.Attempts
	controls["fallback"] = result.Fallback

	if result.Status != StatusSuccess {
		s.metrics.ObserveIngest(string(domain.StageFinal), "generation_failed")
		s.logger.Warn("Workout generation failed",
			zap.String("sessionId", rec.ID),
			zap.String("message", result.Message))
		controls["error"] = result.Message
		return &IngestResult{
			AssistantText: "Sorry, I couldn't generate your workout this time: " + result.Message,
			NextStage:     domain.StageFinal,
			Controls:      controls,
		}
	}

	rec.Completed = true
	rec.LastWorkout = result.RawWorkout.Clone()
	controls["workout"] = result.Workout
	controls["raw_workout"] = result.RawWorkout
	s.metrics.ObserveIngest(string(domain.StageFinal), "generated")
	return &IngestResult{
		AssistantText: "Here is your personalised workout plan!",
		NextStage:     domain.StageFinal,
		Controls:      controls,
	}
}

// mergePreferences replaces each list the client sent. Enumerated lists are
// filtered against their allowlists; free-text lists are kept as given.
func mergePreferences(p *domain.Preferences, sel domain.FinalSelections) {
	if sel.Injuries != nil {
		p.Injuries = sel.Injuries
	}
	if sel.Equipment != nil {
		p.Equipment = normalize.MatchMany(sel.Equipment, domain.EquipmentValues)
	}
	if sel.PreferredWorkoutTypes != nil {
		p.PreferredWorkoutTypes = normalize.MatchMany(sel.PreferredWorkoutTypes, domain.WorkoutTypeValues)
	}
	if sel.PreferredTrainingTimes != nil {
		p.PreferredTrainingTimes = normalize.MatchMany(sel.PreferredTrainingTimes, domain.TrainingTimeValues)
	}
	if sel.NotPreferredExercises != nil {
		p.NotPreferredExercises = sel.NotPreferredExercises
	}
	if sel.SpecialConsiderations != nil {
		p.SpecialConsiderations = sel.SpecialConsiderations
	}
}

// --- Prompts and Controls ---

func stagePrompt(stage domain.Stage) string {
	switch stage {
	case domain.StageBasic:
		return "Let's start with some basics: your age, gender, height (cm), weight (kg) and activity level. Your name is optional."
	case domain.StageGoals:
		return "What are your fitness goals? Pick one or more."
	case domain.StageFinal:
		return "Almost done! Tell me about any injuries, the equipment you have, and the workouts and training times you prefer."
	}
	return ""
}

// stageControls describes the inputs the client should render for stage.
func stageControls(stage domain.Stage, rec *domain.SessionRecord) map[string]any {
	controls := map[string]any{"stage": string(stage)}
	st, ok := schema.For(stage)
	if !ok {
		return controls
	}
	options := make(map[string][]string, len(st.Allowed))
	for field, values := range st.Allowed {
		options[field] = values
	}
	controls["options"] = options
	controls["required"] = st.Required
	controls["fields"] = st.Fields

	switch stage {
	case domain.StageBasic:
		controls["missing"] = schema.MissingForBasics(rec.Basics)
	case domain.StageGoals:
		controls["multi_select"] = true
		controls["missing"] = schema.MissingForGoals(rec.Goals)
	case domain.StageFinal:
		controls["multi_select"] = true
		controls["missing"] = []string{}
	}
	return controls
}

// humanList renders ["age", "height_cm"] as "age and height cm".
func humanList(fields []string) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.ReplaceAll(f, "_", " ")
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}
