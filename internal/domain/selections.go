package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Selections is the answer payload for one stage. The set of implementations is closed:
// BasicSelections, GoalsSelections and FinalSelections.
type Selections interface {
	Stage() Stage
	// Empty reports whether no recognised field carries a value.
	Empty() bool
	isSelections()
}

// --- Stage Payloads ---

// BasicSelections carries the BASIC stage answers. Nil pointers are unanswered fields.
type BasicSelections struct {
	Name          *string  `json:"name,omitempty"`
	Age           *int     `json:"age,omitempty"`       // Whole years
	Gender        *string  `json:"gender,omitempty"`    // Free text, normalised on merge
	HeightCm      *float64 `json:"height_cm,omitempty"` // Centimetres
	WeightKg      *float64 `json:"weight_kg,omitempty"` // Kilograms
	ActivityLevel *string  `json:"activity_level,omitempty"`
}

// Stage implements Selections.
func (BasicSelections) Stage() Stage {
	return StageBasic
}

func (BasicSelections) isSelections() {}

// Empty implements Selections.
func (s BasicSelections) Empty() bool {
	return s.Name == nil && s.Age == nil && s.Gender == nil && s.HeightCm == nil && s.WeightKg == nil && s.ActivityLevel == nil
}

// GoalsSelections carries the GOALS stage answers.
type GoalsSelections struct {
	Goals []string `json:"goals,omitempty"` // Nil when unanswered, empty when answered with nothing usable
}

// Stage implements Selections.
func (GoalsSelections) Stage() Stage {
	return StageGoals
}

func (GoalsSelections) isSelections() {}

// Empty implements Selections.
func (s GoalsSelections) Empty() bool {
	return s.Goals == nil
}

// FinalSelections carries the FINAL stage answers.
type FinalSelections struct {
	Injuries               []string `json:"injuries,omitempty"`
	Equipment              []string `json:"equipment,omitempty"`
	PreferredWorkoutTypes  []string `json:"preferred_workout_types,omitempty"`
	PreferredTrainingTimes []string `json:"preferred_training_times,omitempty"`
	NotPreferredExercises  []string `json:"not_preferred_exercises,omitempty"`
	SpecialConsiderations  []string `json:"special_considerations,omitempty"`
}

// Stage implements Selections.
func (FinalSelections) Stage() Stage {
	return StageFinal
}

func (FinalSelections) isSelections() {}

// Empty implements Selections.
func (s FinalSelections) Empty() bool {
	return s.Injuries == nil && s.Equipment == nil && s.PreferredWorkoutTypes == nil &&
		s.PreferredTrainingTimes == nil && s.NotPreferredExercises == nil && s.SpecialConsiderations == nil
}

// --- Decoding ---

// SelectionsError reports a known field carrying a value of the wrong shape.
type SelectionsError struct {
	Field  string
	Reason string
}

func (e *SelectionsError) Error() string {
	return fmt.Sprintf("invalid selection %q: %s", e.Field, e.Reason)
}

// DecodeSelections converts a loosely typed payload into the variant for stage.
// Unknown keys are ignored; nulls count as absent. A known key with an unusable
// value yields a *SelectionsError.
func DecodeSelections(stage Stage, raw map[string]any) (Selections, error) {
	return decodeSelections(stage, raw, true)
}

// DecodeSelectionsLenient is DecodeSelections but drops unusable values instead of failing.
// It is used for model-extracted payloads.
func DecodeSelectionsLenient(stage Stage, raw map[string]any) (Selections, error) {
	return decodeSelections(stage, raw, false)
}

func decodeSelections(stage Stage, raw map[string]any, strict bool) (Selections, error) {
	d := &decoder{raw: raw, strict: strict}
	switch stage {
	case StageBasic:
		s := BasicSelections{
			Name:          d.str(FieldName),
			Age:           d.integer(FieldAge),
			Gender:        d.str(FieldGender),
			HeightCm:      d.number(FieldHeightCm),
			WeightKg:      d.number(FieldWeightKg),
			ActivityLevel: d.str(FieldActivityLevel),
		}
		return s, d.err
	case StageGoals:
		return GoalsSelections{Goals: d.list(FieldGoals)}, d.err
	case StageFinal:
		s := FinalSelections{
			Injuries:               d.list(FieldInjuries),
			Equipment:              d.list(FieldEquipment),
			PreferredWorkoutTypes:  d.list(FieldPreferredWorkoutTypes),
			PreferredTrainingTimes: d.list(FieldPreferredTrainingTimes),
			NotPreferredExercises:  d.list(FieldNotPreferredExercises),
			SpecialConsiderations:  d.list(FieldSpecialConsiderations),
		}
		return s, d.err
	}
	return nil, fmt.Errorf("unsupported stage: %q", stage)
}

type decoder struct {
	raw    map[string]any
	strict bool
	err    error
}

func (d *decoder) fail(field, reason string) {
	if d.strict && d.err == nil {
		d.err = &SelectionsError{Field: field, Reason: reason}
	}
}

func (d *decoder) lookup(field string) (any, bool) {
	v, ok := d.raw[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (d *decoder) str(field string) *string {
	v, ok := d.lookup(field)
	if !ok {
		return nil
	}
	s, isStr := v.(string)
	if !isStr {
		d.fail(field, "expected a string")
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (d *decoder) number(field string) *float64 {
	v, ok := d.lookup(field)
	if !ok {
		return nil
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		n = strings.TrimSpace(n)
		if n == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			d.fail(field, "expected a number")
			return nil
		}
		f = parsed
	default:
		d.fail(field, "expected a number")
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		d.fail(field, "expected a finite number")
		return nil
	}
	return &f
}

func (d *decoder) integer(field string) *int {
	f := d.number(field)
	if f == nil {
		return nil
	}
	i := int(math.Round(*f))
	return &i
}

func (d *decoder) list(field string) []string {
	v, ok := d.lookup(field)
	if !ok {
		return nil
	}
	switch items := v.(type) {
	case string:
		items = strings.TrimSpace(items)
		if items == "" {
			return []string{}
		}
		return []string{items}
	case []string:
		return trimAll(items)
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, isStr := item.(string)
			if !isStr {
				d.fail(field, "expected a list of strings")
				continue
			}
			out = append(out, s)
		}
		return trimAll(out)
	}
	d.fail(field, "expected a list of strings")
	return nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
