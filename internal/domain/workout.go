package domain

// Exercise is a single movement inside a workout section.
type Exercise struct {
	Name          string `bson:"name" json:"name" jsonschema_description:"Exercise name"`
	Duration      string `bson:"duration" json:"duration" jsonschema_description:"Duration or sets/reps, e.g. 3 x 12 or 45 seconds"`
	Instructions  string `bson:"instructions" json:"instructions" jsonschema_description:"How to perform the exercise"`
	Modifications string `bson:"modifications" json:"modifications" jsonschema_description:"Easier or harder variations"`
}

// WorkoutSection groups exercises, e.g. warm-up, main block, cool-down.
type WorkoutSection struct {
	Name      string     `bson:"name" json:"name" jsonschema_description:"Section name, e.g. Warm-up"`
	Duration  string     `bson:"duration" json:"duration" jsonschema_description:"Section duration"`
	Exercises []Exercise `bson:"exercises" json:"exercises" jsonschema_description:"Ordered exercises of the section"`
}

// WorkoutPlan is the validated output of a generation. It is never mutated after validation.
type WorkoutPlan struct {
	Title         string           `bson:"title" json:"title" jsonschema_description:"Workout title"`
	Description   string           `bson:"description" json:"description" jsonschema_description:"Short summary of the workout"`
	TotalDuration string           `bson:"totalDuration" json:"total_duration" jsonschema_description:"Total duration, e.g. 45 minutes"`
	Difficulty    string           `bson:"difficulty" json:"difficulty" jsonschema_description:"beginner, intermediate or advanced"`
	Sections      []WorkoutSection `bson:"sections" json:"sections" jsonschema_description:"Ordered workout sections"`
	Notes         []string         `bson:"notes" json:"notes" jsonschema_description:"Safety and coaching notes"`
	Progression   string           `bson:"progression" json:"progression" jsonschema_description:"How to progress over the next weeks"`
}

// Clone returns a deep copy; a nil plan clones to nil.
func (p *WorkoutPlan) Clone() *WorkoutPlan {
	if p == nil {
		return nil
	}
	out := *p
	out.Notes = cloneStrings(p.Notes)
	if p.Sections != nil {
		out.Sections = make([]WorkoutSection, len(p.Sections))
		for i, s := range p.Sections {
			out.Sections[i] = s
			if s.Exercises != nil {
				out.Sections[i].Exercises = make([]Exercise, len(s.Exercises))
				copy(out.Sections[i].Exercises, s.Exercises)
			}
		}
	}
	return &out
}
