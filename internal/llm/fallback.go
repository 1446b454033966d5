package llm

import (
	"encoding/json"
	"strings"

	"alcyxob/fitness-coach/internal/domain"
)

const fallbackModel = "fallback"

var (
	warmUpPlan = domain.WorkoutPlan{
		Title:         "Quick Warm-up Routine",
		Description:   "A short routine to raise heart rate and loosen the joints.",
		TotalDuration: "10 minutes",
		Difficulty:    "beginner",
		Sections: []domain.WorkoutSection{{
			Name:     "Warm-up",
			Duration: "10 minutes",
			Exercises: []domain.Exercise{
				{Name: "Marching in place", Duration: "2 minutes", Instructions: "March with high knees and swing the arms.", Modifications: "Step side to side instead."},
				{Name: "Arm circles", Duration: "1 minute", Instructions: "Small forward circles, then backward.", Modifications: "Keep the circles small."},
				{Name: "Bodyweight squats", Duration: "2 x 10", Instructions: "Sit the hips back and keep the chest up.", Modifications: "Squat to a chair."},
			},
		}},
		Notes:       []string{"Move at a comfortable pace.", "Stop if you feel pain."},
		Progression: "Add one minute to each exercise per week.",
	}

	coolDownPlan = domain.WorkoutPlan{
		Title:         "Gentle Cool-down and Stretch",
		Description:   "Slow movements and static stretches to finish a session.",
		TotalDuration: "10 minutes",
		Difficulty:    "beginner",
		Sections: []domain.WorkoutSection{{
			Name:     "Cool-down",
			Duration: "10 minutes",
			Exercises: []domain.Exercise{
				{Name: "Slow walk", Duration: "3 minutes", Instructions: "Walk slowly and breathe deeply.", Modifications: "Walk in place."},
				{Name: "Hamstring stretch", Duration: "30 seconds per side", Instructions: "Hinge forward over a straight leg.", Modifications: "Bend the knee slightly."},
				{Name: "Chest opener", Duration: "30 seconds", Instructions: "Clasp hands behind the back and lift gently.", Modifications: "Use a towel between the hands."},
			},
		}},
		Notes:       []string{"Hold each stretch without bouncing."},
		Progression: "Hold stretches a little longer each week.",
	}

	basicPlan = domain.WorkoutPlan{
		Title:         "Basic Full Body Workout",
		Description:   "A simple full body session that needs no equipment.",
		TotalDuration: "30 minutes",
		Difficulty:    "beginner",
		Sections: []domain.WorkoutSection{
			{
				Name:     "Warm-up",
				Duration: "5 minutes",
				Exercises: []domain.Exercise{
					{Name: "Jumping jacks", Duration: "2 minutes", Instructions: "Jump while raising the arms overhead.", Modifications: "Step out instead of jumping."},
				},
			},
			{
				Name:     "Main workout",
				Duration: "20 minutes",
				Exercises: []domain.Exercise{
					{Name: "Squats", Duration: "3 x 12", Instructions: "Feet shoulder-width apart, lower until thighs are parallel.", Modifications: "Squat to a chair."},
					{Name: "Push-ups", Duration: "3 x 8", Instructions: "Keep a straight line from head to heels.", Modifications: "Knees on the floor."},
					{Name: "Plank", Duration: "3 x 30 seconds", Instructions: "Hold a straight body on the forearms.", Modifications: "Drop to the knees."},
				},
			},
			{
				Name:     "Cool-down",
				Duration: "5 minutes",
				Exercises: []domain.Exercise{
					{Name: "Full body stretch", Duration: "5 minutes", Instructions: "Stretch the legs, chest and shoulders.", Modifications: ""},
				},
			},
		},
		Notes:       []string{"This is a fallback plan generated without the coaching model.", "Consult a professional before starting a new program."},
		Progression: "Add two repetitions per set each week.",
	}
)

// FallbackPlan picks a canned plan matching the request text.
func FallbackPlan(request string) domain.WorkoutPlan {
	lower := strings.ToLower(request)
	switch {
	case strings.Contains(lower, "warm"):
		return warmUpPlan
	case strings.Contains(lower, "cool") || strings.Contains(lower, "stretch"):
		return coolDownPlan
	}
	return basicPlan
}

// FallbackResponse renders the canned plan for request as JSON text.
func FallbackResponse(request string, cause error) *Response {
	plan := FallbackPlan(request)
	body, _ := json.Marshal(plan)
	reason := "unavailable"
	if cause != nil {
		reason = cause.Error()
	}
	return &Response{
		Content:        string(body),
		Model:          fallbackModel,
		Fallback:       true,
		FallbackReason: reason,
	}
}
