package domain

import (
	"fmt"
	"strings"
	"time"
)

// Stage is one of the three sequential phases of data collection.
type Stage string

// Stages in dialogue order.
const (
	StageBasic Stage = "basic"
	StageGoals Stage = "goals"
	StageFinal Stage = "final"
)

// Rank orders stages so that transitions can be compared. Unknown stages rank 0.
func (s Stage) Rank() int {
	switch s {
	case StageBasic:
		return 1
	case StageGoals:
		return 2
	case StageFinal:
		return 3
	}
	return 0
}

// Valid reports whether s is one of the three known stages.
func (s Stage) Valid() bool {
	return s.Rank() > 0
}

// ParseStage accepts any casing ("BASIC", "Goals") and returns the canonical stage.
func ParseStage(raw string) (Stage, error) {
	st := Stage(strings.ToLower(strings.TrimSpace(raw)))
	if !st.Valid() {
		return "", fmt.Errorf("unsupported stage: %q", raw)
	}
	return st, nil
}

// Basics holds the personal data collected in the basic stage.
type Basics struct {
	Name          *string  `bson:"name,omitempty" json:"name"`
	Age           *int     `bson:"age,omitempty" json:"age"`
	Gender        *string  `bson:"gender,omitempty" json:"gender"`
	HeightCm      *float64 `bson:"heightCm,omitempty" json:"height_cm"`
	WeightKg      *float64 `bson:"weightKg,omitempty" json:"weight_kg"`
	ActivityLevel *string  `bson:"activityLevel,omitempty" json:"activity_level"`
}

// GoalBlock holds the goals selected in the goals stage.
type GoalBlock struct {
	Goals []string `bson:"goals" json:"goals"`
}

// Preferences holds the constraints and preferences collected in the final stage.
// Every list may be empty.
type Preferences struct {
	Injuries               []string `bson:"injuries" json:"injuries"`
	Equipment              []string `bson:"equipment" json:"equipment"`
	PreferredWorkoutTypes  []string `bson:"preferredWorkoutTypes" json:"preferred_workout_types"`
	PreferredTrainingTimes []string `bson:"preferredTrainingTimes" json:"preferred_training_times"`
	NotPreferredExercises  []string `bson:"notPreferredExercises" json:"not_preferred_exercises"`
	SpecialConsiderations  []string `bson:"specialConsiderations" json:"special_considerations"`
}

// SessionRecord accumulates one user's answers across stages.
type SessionRecord struct {
	ID          string       `bson:"_id" json:"session_id"`
	Stage       Stage        `bson:"stage" json:"stage"`
	Basics      *Basics      `bson:"basics,omitempty" json:"basics"`
	Goals       *GoalBlock   `bson:"goals,omitempty" json:"goals_block"`
	Preferences *Preferences `bson:"preferences,omitempty" json:"prefs"`
	Missing     []string     `bson:"missing" json:"missing"`
	Completed   bool         `bson:"completed" json:"completed"`
	LastWorkout *WorkoutPlan `bson:"lastWorkout,omitempty" json:"last_workout,omitempty"`
	CreatedAt   time.Time    `bson:"createdAt" json:"created_at"`
	UpdatedAt   time.Time    `bson:"updatedAt" json:"updated_at"`
}

// NewSessionRecord returns a fresh record at the basic stage with every basic field missing.
func NewSessionRecord(id string) *SessionRecord {
	now := time.Now().UTC()
	return &SessionRecord{
		ID:        id,
		Stage:     StageBasic,
		Missing:   []string{FieldAge, FieldGender, FieldHeightCm, FieldWeightKg, FieldActivityLevel},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so that stores never share mutable state with callers.
func (r *SessionRecord) Clone() *SessionRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Missing = cloneStrings(r.Missing)
	if r.Basics != nil {
		b := *r.Basics
		b.Name = clonePtr(r.Basics.Name)
		b.Age = clonePtr(r.Basics.Age)
		b.Gender = clonePtr(r.Basics.Gender)
		b.HeightCm = clonePtr(r.Basics.HeightCm)
		b.WeightKg = clonePtr(r.Basics.WeightKg)
		b.ActivityLevel = clonePtr(r.Basics.ActivityLevel)
		out.Basics = &b
	}
	if r.Goals != nil {
		out.Goals = &GoalBlock{Goals: cloneStrings(r.Goals.Goals)}
	}
	if r.Preferences != nil {
		p := Preferences{
			Injuries:               cloneStrings(r.Preferences.Injuries),
			Equipment:              cloneStrings(r.Preferences.Equipment),
			PreferredWorkoutTypes:  cloneStrings(r.Preferences.PreferredWorkoutTypes),
			PreferredTrainingTimes: cloneStrings(r.Preferences.PreferredTrainingTimes),
			NotPreferredExercises:  cloneStrings(r.Preferences.NotPreferredExercises),
			SpecialConsiderations:  cloneStrings(r.Preferences.SpecialConsiderations),
		}
		out.Preferences = &p
	}
	if r.LastWorkout != nil {
		out.LastWorkout = r.LastWorkout.Clone()
	}
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
