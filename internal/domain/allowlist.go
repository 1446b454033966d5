package domain

// Allowed values for enumerated fields. Order matters: it is the order shown to users.
var (
	GenderValues       = []string{"male", "female", "other", "prefer_not_to_say"}
	ActivityValues     = []string{"sedentary", "lightly_active", "moderately_active", "very_active", "extremely_active"}
	GoalValues         = []string{"weight_loss", "muscle_gain", "endurance", "strength", "flexibility", "maintenance"}
	EquipmentValues    = []string{"bodyweight", "dumbbells", "resistance_bands", "gym_access"}
	WorkoutTypeValues  = []string{"cardio", "strength_training", "yoga", "pilates", "HIIT"}
	TrainingTimeValues = []string{"morning", "afternoon", "evening"}
)

// Field names used on the wire and in missing-field lists.
const (
	FieldName          = "name"
	FieldAge           = "age"
	FieldGender        = "gender"
	FieldHeightCm      = "height_cm"
	FieldWeightKg      = "weight_kg"
	FieldActivityLevel = "activity_level"

	FieldGoals = "goals"

	FieldInjuries               = "injuries"
	FieldEquipment              = "equipment"
	FieldPreferredWorkoutTypes  = "preferred_workout_types"
	FieldPreferredTrainingTimes = "preferred_training_times"
	FieldNotPreferredExercises  = "not_preferred_exercises"
	FieldSpecialConsiderations  = "special_considerations"
)
