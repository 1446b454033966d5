package prompt

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alcyxob/fitness-coach/internal/domain"
)

func sampleProfile() *domain.UserProfile {
	return &domain.UserProfile{
		UserID: "u1",
		Name:   "Dana",
		PhysicalStats: domain.PhysicalStats{
			HeightCm: 170, WeightKg: 65, Gender: "female", Age: 31,
		},
		Goals:         []domain.FitnessGoal{{GoalType: "muscle_gain"}, {GoalType: "maintenance"}},
		ActivityLevel: "very_active",
		Preferences: domain.UserPreferences{
			PreferredWorkoutTypes:  []string{"strength_training"},
			PreferredTrainingTimes: []string{"morning"},
		},
		Restrictions: domain.Restrictions{
			Injuries:              []string{"knee"},
			NotPreferredExercises: []string{"burpees"},
		},
	}
}

func TestAnalyze(t *testing.T) {
	ctx := Analyze(sampleProfile())

	assert.Equal(t, "intermediate", ctx.Experience)
	assert.Equal(t, "45-60 minutes", ctx.Duration)
	assert.Equal(t, "muscle_gain", ctx.Focus)
	assert.Equal(t, "build muscle mass and strength, maintenance", ctx.Goals)
	assert.Equal(t, []string{
		"Has knee injury",
		"No equipment available (bodyweight only)",
		"Not preferred exercises: burpees",
	}, ctx.Constraints)
	assert.Equal(t, []string{"Prefers: strength_training", "Trains: morning"}, ctx.Preferences)
}

func TestAnalyze_Defaults(t *testing.T) {
	ctx := Analyze(&domain.UserProfile{Name: "X", ActivityLevel: "unknown"})

	assert.Equal(t, "beginner", ctx.Experience)
	assert.Equal(t, "30-45 minutes", ctx.Duration)
	assert.Equal(t, "general_fitness", ctx.Focus)
	assert.Equal(t, "general fitness and health", ctx.Goals)
	assert.Empty(t, ctx.Preferences)
}

func TestExperienceLevel(t *testing.T) {
	assert.Equal(t, "beginner", ExperienceLevel("sedentary"))
	assert.Equal(t, "beginner", ExperienceLevel("lightly_active"))
	assert.Equal(t, "intermediate", ExperienceLevel("moderately_active"))
	assert.Equal(t, "advanced", ExperienceLevel("extremely_active"))
}

func TestBuild_EmbeddedTemplate(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	p, err := b.Build(sampleProfile())
	require.NoError(t, err)

	assert.Contains(t, p.System, `"total_duration": string`)
	assert.Contains(t, p.User, "Create one workout session for Dana.")
	assert.Contains(t, p.User, "- Age: 31")
	assert.Contains(t, p.User, "- Has knee injury")
	assert.Contains(t, p.User, "- Trains: morning")
	assert.NotEmpty(t, p.ExpectedFormat)

	// Canned fallbacks are chosen from the user prompt, so it must stay neutral.
	lower := strings.ToLower(p.User)
	for _, word := range []string{"warm", "cool", "stretch"} {
		assert.NotContains(t, lower, word)
	}
}

func TestBuild_NilProfile(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	_, err = b.Build(nil)
	assert.Error(t, err)
}

func TestNewBuilderFS(t *testing.T) {
	fsys := fstest.MapFS{
		"tpl/main.yaml": {Data: []byte("name: main_workout\nsystem_prompt: be brief\nuser_prompt_template: \"Plan for {{.Name}} ({{.Experience}})\"\n")},
		"tpl/readme.md": {Data: []byte("ignored")},
	}
	b, err := NewBuilderFS(fsys, "tpl")
	require.NoError(t, err)

	p, err := b.Build(&domain.UserProfile{Name: "Sam", ActivityLevel: "extremely_active"})
	require.NoError(t, err)
	assert.Equal(t, "be brief", p.System)
	assert.Equal(t, "Plan for Sam (advanced)", p.User)
}

func TestNewBuilderFS_Errors(t *testing.T) {
	_, err := NewBuilderFS(fstest.MapFS{"tpl/x.txt": {Data: []byte("x")}}, "tpl")
	assert.Error(t, err)

	_, err = NewBuilderFS(fstest.MapFS{"tpl/bad.yaml": {Data: []byte("name: only_a_name\n")}}, "tpl")
	assert.Error(t, err)

	_, err = NewBuilderFS(fstest.MapFS{"tpl/bad.yaml": {Data: []byte("name: n\nsystem_prompt: s\nuser_prompt_template: \"{{.Name\"\n")}}, "tpl")
	assert.Error(t, err)
}
