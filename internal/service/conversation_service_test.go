package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/repository/memory"
)

func ptr[T any](v T) *T { return &v }

func completeBasics() domain.BasicSelections {
	return domain.BasicSelections{
		Age:           ptr(30),
		Gender:        ptr("M"),
		HeightCm:      ptr(180.0),
		WeightKg:      ptr(80.0),
		ActivityLevel: ptr("Moderately Active"),
	}
}

func newTestConversation(gen GeneratorService) ConversationService {
	if gen == nil {
		gen = &fakeGenerator{result: GenerationResult{Status: StatusSuccess}}
	}
	return NewConversationService(memory.NewSessionRepository(100, time.Hour), gen, nil, nil)
}

func ingest(t *testing.T, svc ConversationService, id string, stage domain.Stage, sel domain.Selections) *IngestResult {
	t.Helper()
	res, err := svc.Ingest(context.Background(), IngestRequest{SessionID: id, StageHint: stage, Selections: sel})
	require.NoError(t, err)
	return res
}

func TestIngest_EmptySelectionsReturnsPromptWithoutMutation(t *testing.T) {
	svc := newTestConversation(nil)

	first := ingest(t, svc, "s1", domain.StageBasic, nil)
	assert.Equal(t, domain.StageBasic, first.NextStage)
	assert.NotEmpty(t, first.AssistantText)
	options := first.Controls["options"].(map[string][]string)
	assert.Equal(t, domain.GenderValues, options["gender"])
	assert.Equal(t, domain.ActivityValues, options["activity_level"])

	before := first.State.Clone()
	second := ingest(t, svc, "s1", domain.StageBasic, domain.BasicSelections{})
	assert.Equal(t, before.Stage, second.State.Stage)
	assert.Equal(t, before.Missing, second.State.Missing)
	assert.Nil(t, second.State.Basics)
}

func TestIngest_BasicCompleteAdvancesToGoals(t *testing.T) {
	svc := newTestConversation(nil)

	res := ingest(t, svc, "s1", domain.StageBasic, completeBasics())

	assert.Equal(t, domain.StageGoals, res.NextStage)
	assert.Equal(t, domain.StageGoals, res.State.Stage)
	require.NotNil(t, res.State.Basics)
	assert.Equal(t, "male", *res.State.Basics.Gender)
	assert.Equal(t, "moderately_active", *res.State.Basics.ActivityLevel)
	assert.Nil(t, res.State.Goals)
	assert.Nil(t, res.State.Preferences)
	assert.Equal(t, domain.GoalValues, res.Controls["options"].(map[string][]string)["goals"])
}

func TestIngest_BasicMissingAgeStays(t *testing.T) {
	svc := newTestConversation(nil)
	sel := completeBasics()
	sel.Age = nil

	res := ingest(t, svc, "s1", domain.StageBasic, sel)

	assert.Equal(t, domain.StageBasic, res.NextStage)
	assert.Equal(t, domain.StageBasic, res.State.Stage)
	assert.Contains(t, res.State.Missing, "age")
	assert.Equal(t, []string{"age"}, res.State.Missing)
	assert.Contains(t, res.AssistantText, "age")
}

func TestIngest_BasicMergesAcrossSubmissions(t *testing.T) {
	svc := newTestConversation(nil)

	ingest(t, svc, "s1", domain.StageBasic, domain.BasicSelections{Age: ptr(25), Gender: ptr("woman")})
	res := ingest(t, svc, "s1", domain.StageBasic, domain.BasicSelections{
		HeightCm: ptr(165.0), WeightKg: ptr(60.0), ActivityLevel: ptr("sedentary"),
	})

	assert.Equal(t, domain.StageGoals, res.State.Stage)
	assert.Equal(t, 25, *res.State.Basics.Age)
	assert.Equal(t, "female", *res.State.Basics.Gender)
}

func TestIngest_BasicIgnoresInvalidValues(t *testing.T) {
	svc := newTestConversation(nil)
	sel := completeBasics()
	sel.Age = ptr(-4)
	sel.ActivityLevel = ptr("couch potato")

	res := ingest(t, svc, "s1", domain.StageBasic, sel)

	assert.Equal(t, domain.StageBasic, res.State.Stage)
	assert.Equal(t, []string{"age", "activity_level"}, res.State.Missing)
}

func TestIngest_GoalsWithoutBasicsIsPrecondition(t *testing.T) {
	for name, sel := range map[string]domain.Selections{
		"nil":      nil,
		"empty":    domain.GoalsSelections{},
		"valid":    domain.GoalsSelections{Goals: []string{"strength"}},
		"filtered": domain.GoalsSelections{Goals: []string{"flying"}},
		"basic":    completeBasics(),
		"final":    domain.FinalSelections{Equipment: []string{"dumbbells"}},
	} {
		t.Run(name, func(t *testing.T) {
			svc := newTestConversation(nil)
			_, err := svc.Ingest(context.Background(), IngestRequest{SessionID: "s1", StageHint: domain.StageGoals, Selections: sel})
			assert.ErrorIs(t, err, ErrPrecondition)
		})
	}
}

func TestIngest_FinalWithoutGoalsIsPrecondition(t *testing.T) {
	svc := newTestConversation(nil)
	ingest(t, svc, "s1", domain.StageBasic, completeBasics())

	_, err := svc.Ingest(context.Background(), IngestRequest{
		SessionID: "s1", StageHint: domain.StageFinal, Selections: domain.FinalSelections{Equipment: []string{"dumbbells"}},
	})
	assert.ErrorIs(t, err, ErrPrecondition)

	// Selections of another stage do not bypass the precondition
	_, err = svc.Ingest(context.Background(), IngestRequest{
		SessionID: "s1", StageHint: domain.StageFinal, Selections: completeBasics(),
	})
	assert.ErrorIs(t, err, ErrPrecondition)

	_, err = svc.Ingest(context.Background(), IngestRequest{
		SessionID: "fresh", StageHint: domain.StageFinal, Selections: domain.GoalsSelections{Goals: []string{"strength"}},
	})
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestIngest_GoalsFilteringAndAdvance(t *testing.T) {
	svc := newTestConversation(nil)
	ingest(t, svc, "s1", domain.StageBasic, completeBasics())

	stay := ingest(t, svc, "s1", domain.StageGoals, domain.GoalsSelections{Goals: []string{}})
	assert.Equal(t, domain.StageGoals, stay.NextStage)
	assert.Contains(t, stay.AssistantText, "at least one goal")
	assert.Equal(t, []string{"goals"}, stay.State.Missing)

	stay = ingest(t, svc, "s1", domain.StageGoals, domain.GoalsSelections{Goals: []string{"flying"}})
	assert.Equal(t, domain.StageGoals, stay.State.Stage)

	res := ingest(t, svc, "s1", domain.StageGoals, domain.GoalsSelections{Goals: []string{"Weight Loss", "strength", "weight_loss"}})
	assert.Equal(t, domain.StageFinal, res.NextStage)
	assert.Equal(t, []string{"weight_loss", "strength"}, res.State.Goals.Goals)
	assert.Empty(t, res.State.Missing)
}

func TestIngest_FinalTriggersGeneration(t *testing.T) {
	gen := &fakeGenerator{result: GenerationResult{
		Status:     StatusSuccess,
		Workout:    "formatted",
		RawWorkout: &domain.WorkoutPlan{Title: "Plan"},
		Attempts:   1,
	}}
	svc := newTestConversation(gen)
	ingest(t, svc, "s1", domain.StageBasic, completeBasics())
	ingest(t, svc, "s1", domain.StageGoals, domain.GoalsSelections{Goals: []string{"strength"}})

	res := ingest(t, svc, "s1", domain.StageFinal, domain.FinalSelections{
		Equipment:             []string{"Dumbbells", "rocket"},
		PreferredWorkoutTypes: []string{"hiit"},
		Injuries:              []string{"knee"},
	})

	assert.Equal(t, domain.StageFinal, res.NextStage)
	assert.Equal(t, "formatted", res.Controls["workout"])
	assert.Equal(t, StatusSuccess, res.Controls["status"])
	assert.True(t, res.State.Completed)
	require.NotNil(t, res.State.LastWorkout)
	assert.Equal(t, "Plan", res.State.LastWorkout.Title)

	require.Len(t, gen.profiles, 1)
	p := gen.profiles[0]
	assert.Equal(t, "Athlete", p.Name)
	assert.Equal(t, []string{"dumbbells"}, p.Restrictions.Equipment)
	assert.Equal(t, []string{"HIIT"}, p.Preferences.PreferredWorkoutTypes)
	assert.Equal(t, []string{"knee"}, p.Restrictions.Injuries)
	assert.Equal(t, "strength", p.Goals[0].GoalType)
}

func TestIngest_FinalGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{result: GenerationResult{Status: StatusError, Message: "schema validation failed: sections: required field missing"}}
	svc := newTestConversation(gen)
	ingest(t, svc, "s1", domain.StageBasic, completeBasics())
	ingest(t, svc, "s1", domain.StageGoals, domain.GoalsSelections{Goals: []string{"strength"}})

	res := ingest(t, svc, "s1", domain.StageFinal, domain.FinalSelections{Injuries: []string{}})

	assert.Equal(t, StatusError, res.Controls["status"])
	assert.Equal(t, gen.result.Message, res.Controls["error"])
	assert.NotContains(t, res.Controls, "workout")
	assert.False(t, res.State.Completed)
}

func TestIngest_StageNeverRegresses(t *testing.T) {
	svc := newTestConversation(nil)
	ingest(t, svc, "s1", domain.StageBasic, completeBasics())

	_, err := svc.Ingest(context.Background(), IngestRequest{SessionID: "s1", StageHint: domain.StageBasic, Selections: completeBasics()})
	assert.ErrorIs(t, err, ErrStageCompleted)

	res := ingest(t, svc, "s1", domain.StageBasic, nil)
	assert.Equal(t, domain.StageGoals, res.NextStage)
	assert.Equal(t, domain.StageGoals, res.State.Stage)
}

func TestIngest_EmptyHintUsesStoredStage(t *testing.T) {
	svc := newTestConversation(nil)
	ingest(t, svc, "s1", domain.StageBasic, completeBasics())

	res := ingest(t, svc, "s1", "", nil)
	assert.Equal(t, domain.StageGoals, res.NextStage)
}

func TestIngest_SelectionsMustMatchStage(t *testing.T) {
	svc := newTestConversation(nil)
	_, err := svc.Ingest(context.Background(), IngestRequest{
		SessionID: "s1", StageHint: domain.StageBasic, Selections: domain.GoalsSelections{Goals: []string{"strength"}},
	})
	assert.ErrorIs(t, err, ErrSelectionsMismatch)
}

func TestIngest_AbsentSessionIDCreatesFreshSession(t *testing.T) {
	svc := newTestConversation(nil)

	a := ingest(t, svc, "", domain.StageBasic, nil)
	b := ingest(t, svc, "", domain.StageBasic, nil)

	assert.NotEmpty(t, a.State.ID)
	assert.NotEqual(t, a.State.ID, b.State.ID)
	assert.Equal(t, domain.StageBasic, a.State.Stage)
}

func TestSessions(t *testing.T) {
	svc := newTestConversation(nil)
	ctx := context.Background()

	rec, err := svc.StartSession(ctx)
	require.NoError(t, err)

	got, err := svc.GetSession(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	_, err = svc.GetSession(ctx, "unknown")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
