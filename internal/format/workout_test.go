package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"alcyxob/fitness-coach/internal/domain"
)

func TestWorkout(t *testing.T) {
	plan := &domain.WorkoutPlan{
		Title:         "Leg Day",
		Description:   "Lower body focus.",
		TotalDuration: "40 minutes",
		Difficulty:    "intermediate",
		Sections: []domain.WorkoutSection{{
			Name:     "Main",
			Duration: "30 minutes",
			Exercises: []domain.Exercise{
				{Name: "Squat", Duration: "3 x 10", Instructions: "Sit back.", Modifications: "Box squat."},
				{Name: "Lunge", Duration: "3 x 8", Instructions: "Step forward."},
			},
		}},
		Notes:       []string{"Hydrate."},
		Progression: "Add weight weekly.",
	}

	out := Workout(plan)

	assert.True(t, strings.HasPrefix(out, "🏋️ LEG DAY\n"))
	assert.Contains(t, out, "💪 Level: Intermediate\n")
	assert.Contains(t, out, "\n== MAIN ==\nDuration: 30 minutes\n")
	assert.Contains(t, out, "1. Squat\n   ⏱️ 3 x 10\n   📋 Sit back.\n   🔄 Box squat.\n")
	assert.Contains(t, out, "2. Lunge\n   ⏱️ 3 x 8\n   📋 Step forward.\n\n")
	assert.NotContains(t, out, "🔄 \n")
	assert.Contains(t, out, "📌 NOTES:\n• Hydrate.\n")
	assert.True(t, strings.HasSuffix(out, "🎯 PROGRESSION PLAN:\nAdd weight weekly."))
}

func TestWorkout_NoNotes(t *testing.T) {
	out := Workout(&domain.WorkoutPlan{Title: "t", Difficulty: "", Progression: "p"})
	assert.NotContains(t, out, "NOTES")
	assert.Contains(t, out, "💪 Level: \n")
}

func TestWorkout_Nil(t *testing.T) {
	assert.Empty(t, Workout(nil))
}
