package domain

import (
	"fmt"
	"strings"
)

// PhysicalStats of a user, metric units.
type PhysicalStats struct {
	HeightCm float64 `json:"height" binding:"required,gt=0"`
	WeightKg float64 `json:"weight" binding:"required,gt=0"`
	Gender   string  `json:"gender" binding:"required"`
	Age      int     `json:"age" binding:"required,gt=0"`
}

// FitnessGoal is one goal of the profile.
type FitnessGoal struct {
	GoalType string `json:"goal_type" binding:"required"`
}

// UserPreferences are soft preferences; the plan should follow them when it can.
type UserPreferences struct {
	PreferredWorkoutTypes  []string `json:"preferred_workout_types"`
	PreferredTrainingTimes []string `json:"preferred_training_times"`
}

// Restrictions are hard constraints on the plan.
type Restrictions struct {
	Injuries              []string `json:"injuries"`
	Equipment             []string `json:"equipment"`
	NotPreferredExercises []string `json:"not_preferred_exercises"`
	SpecialConsiderations []string `json:"special_considerations"`
}

// Constraints flattens the restrictions into prompt-ready statements. An empty
// equipment list means bodyweight only.
func (r Restrictions) Constraints() []string {
	var out []string
	for _, injury := range r.Injuries {
		out = append(out, fmt.Sprintf("Has %s injury", injury))
	}
	if len(r.Equipment) > 0 {
		out = append(out, "Available equipment: "+strings.Join(r.Equipment, ", "))
	} else {
		out = append(out, "No equipment available (bodyweight only)")
	}
	if len(r.NotPreferredExercises) > 0 {
		out = append(out, "Not preferred exercises: "+strings.Join(r.NotPreferredExercises, ", "))
	}
	if len(r.SpecialConsiderations) > 0 {
		out = append(out, "Special considerations: "+strings.Join(r.SpecialConsiderations, ", "))
	}
	return out
}

// UserProfile is the complete input of a workout generation.
type UserProfile struct {
	UserID        string          `json:"user_id"`
	Name          string          `json:"name"`
	PhysicalStats PhysicalStats   `json:"physical_stats"`
	Goals         []FitnessGoal   `json:"goals"`
	Preferences   UserPreferences `json:"preferences"`
	ActivityLevel string          `json:"activity_level"`
	Restrictions  Restrictions    `json:"restrictions"`
}

// defaultProfileName is used when the user skipped the optional name field.
const defaultProfileName = "Athlete"

// ProfileFromSession assembles a profile from a session whose basics and goals are complete.
func ProfileFromSession(rec *SessionRecord) (*UserProfile, error) {
	if rec == nil || rec.Basics == nil || rec.Goals == nil {
		return nil, fmt.Errorf("session is missing basics or goals")
	}
	b := rec.Basics
	if b.Age == nil || b.Gender == nil || b.HeightCm == nil || b.WeightKg == nil || b.ActivityLevel == nil {
		return nil, fmt.Errorf("session basics are incomplete")
	}

	name := defaultProfileName
	if b.Name != nil && strings.TrimSpace(*b.Name) != "" {
		name = strings.TrimSpace(*b.Name)
	}

	profile := &UserProfile{
		UserID: rec.ID,
		Name:   name,
		PhysicalStats: PhysicalStats{
			HeightCm: *b.HeightCm,
			WeightKg: *b.WeightKg,
			Gender:   *b.Gender,
			Age:      *b.Age,
		},
		ActivityLevel: *b.ActivityLevel,
	}
	for _, g := range rec.Goals.Goals {
		profile.Goals = append(profile.Goals, FitnessGoal{GoalType: g})
	}
	if p := rec.Preferences; p != nil {
		profile.Preferences = UserPreferences{
			PreferredWorkoutTypes:  p.PreferredWorkoutTypes,
			PreferredTrainingTimes: p.PreferredTrainingTimes,
		}
		profile.Restrictions = Restrictions{
			Injuries:              p.Injuries,
			Equipment:             p.Equipment,
			NotPreferredExercises: p.NotPreferredExercises,
			SpecialConsiderations: p.SpecialConsiderations,
		}
	}
	return profile, nil
}
