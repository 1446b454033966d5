// Package schema declares, per conversation stage, which fields are required and
// which values enumerated fields may take.
package schema

import (
	"fmt"
	"reflect"
	"strings"

	"alcyxob/fitness-coach/internal/domain"
)

// StageSchema describes the data collected in one stage.
type StageSchema struct {
	Stage    domain.Stage
	Fields   []string            // every field of the stage, canonical order
	Required []string            // subset of Fields, canonical order
	Allowed  map[string][]string // enumerations for enumerated fields
	Lists    map[string]bool     // fields holding lists
}

// --- Stage Registry ---

var registry = map[domain.Stage]StageSchema{
	domain.StageBasic: {
		Stage: domain.StageBasic,
		Fields: []string{
			domain.FieldName, domain.FieldAge, domain.FieldGender,
			domain.FieldHeightCm, domain.FieldWeightKg, domain.FieldActivityLevel,
		},
		Required: []string{
			domain.FieldAge, domain.FieldGender, domain.FieldHeightCm,
			domain.FieldWeightKg, domain.FieldActivityLevel,
		},
		Allowed: map[string][]string{
			domain.FieldGender:        domain.GenderValues,
			domain.FieldActivityLevel: domain.ActivityValues,
		},
	},
	domain.StageGoals: {
		Stage:    domain.StageGoals,
		Fields:   []string{domain.FieldGoals},
		Required: []string{domain.FieldGoals},
		Allowed: map[string][]string{
			domain.FieldGoals: domain.GoalValues,
		},
		Lists: map[string]bool{domain.FieldGoals: true},
	},
	domain.StageFinal: {
		Stage: domain.StageFinal,
		Fields: []string{
			domain.FieldInjuries, domain.FieldEquipment, domain.FieldPreferredWorkoutTypes,
			domain.FieldPreferredTrainingTimes, domain.FieldNotPreferredExercises, domain.FieldSpecialConsiderations,
		},
		Required: []string{},
		Allowed: map[string][]string{
			domain.FieldEquipment:              domain.EquipmentValues,
			domain.FieldPreferredWorkoutTypes:  domain.WorkoutTypeValues,
			domain.FieldPreferredTrainingTimes: domain.TrainingTimeValues,
		},
		Lists: map[string]bool{
			domain.FieldInjuries:               true,
			domain.FieldEquipment:              true,
			domain.FieldPreferredWorkoutTypes:  true,
			domain.FieldPreferredTrainingTimes: true,
			domain.FieldNotPreferredExercises:  true,
			domain.FieldSpecialConsiderations:  true,
		},
	},
}

// --- Lookups ---

// For returns the schema of stage. The second result is false for unknown stages.
func For(stage domain.Stage) (StageSchema, bool) {
	s, ok := registry[stage]
	return s, ok
}

// ComputeMissing lists the required fields of stage that values does not hold.
// Absent keys, nil, empty strings and empty lists all count as missing.
func ComputeMissing(stage domain.Stage, values map[string]any) []string {
	s, ok := For(stage)
	if !ok {
		return []string{}
	}
	missing := make([]string, 0, len(s.Required))
	for _, field := range s.Required {
		if !present(values[field]) {
			missing = append(missing, field)
		}
	}
	return missing
}

// present reports whether v holds a usable value, looking through pointers.
func present(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return present(rv.Elem().Interface())
	case reflect.String:
		return strings.TrimSpace(rv.String()) != ""
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	}
	return true
}

// BasicsValues flattens basics into the field map understood by ComputeMissing.
func BasicsValues(b *domain.Basics) map[string]any {
	if b == nil {
		return map[string]any{}
	}
	return map[string]any{
		domain.FieldName:          b.Name,
		domain.FieldAge:           b.Age,
		domain.FieldGender:        b.Gender,
		domain.FieldHeightCm:      b.HeightCm,
		domain.FieldWeightKg:      b.WeightKg,
		domain.FieldActivityLevel: b.ActivityLevel,
	}
}

// GoalsValues flattens the goal block into the field map understood by ComputeMissing.
func GoalsValues(g *domain.GoalBlock) map[string]any {
	if g == nil {
		return map[string]any{}
	}
	return map[string]any{domain.FieldGoals: g.Goals}
}

// MissingForBasics is ComputeMissing for the basic stage over typed data.
func MissingForBasics(b *domain.Basics) []string {
	return ComputeMissing(domain.StageBasic, BasicsValues(b))
}

// MissingForGoals is ComputeMissing for the goals stage over typed data.
func MissingForGoals(g *domain.GoalBlock) []string {
	return ComputeMissing(domain.StageGoals, GoalsValues(g))
}

// Describe renders a compact, type-annotated description of the stage's fields,
// used when asking a model to extract selections from free text.
func Describe(stage domain.Stage) (string, error) {
	s, ok := For(stage)
	if !ok {
		return "", fmt.Errorf("unsupported stage: %q", stage)
	}
	parts := make([]string, 0, len(s.Fields))
	for _, field := range s.Fields {
		parts = append(parts, fmt.Sprintf("%q: %s", field, fieldType(s, field)))
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

// fieldType renders the type annotation of one field for Describe.
func fieldType(s StageSchema, field string) string {
	// Enumerations list their values
	if allowed, ok := s.Allowed[field]; ok {
		quoted := make([]string, len(allowed))
		for i, v := range allowed {
			quoted[i] = fmt.Sprintf("%q", v)
		}
		enum := strings.Join(quoted, "|")
		if s.Lists[field] {
			return "(" + enum + ")[]"
		}
		return enum + "|null"
	}
	if s.Lists[field] {
		return "string[]"
	}
	// Numeric fields of the basic stage
	switch field {
	case domain.FieldAge:
		return "int|null"
	case domain.FieldHeightCm, domain.FieldWeightKg:
		return "number|null"
	}
	return "string|null"
}

// SelectionValues flattens a selections variant into the field map understood by
// ComputeMissing.
func SelectionValues(sel domain.Selections) map[string]any {
	switch s := sel.(type) {
	case domain.BasicSelections:
		return map[string]any{
			domain.FieldName:          s.Name,
			domain.FieldAge:           s.Age,
			domain.FieldGender:        s.Gender,
			domain.FieldHeightCm:      s.HeightCm,
			domain.FieldWeightKg:      s.WeightKg,
			domain.FieldActivityLevel: s.ActivityLevel,
		}
	case domain.GoalsSelections:
		return map[string]any{domain.FieldGoals: s.Goals}
	case domain.FinalSelections:
		return map[string]any{
			domain.FieldInjuries:               s.Injuries,
			domain.FieldEquipment:              s.Equipment,
			domain.FieldPreferredWorkoutTypes:  s.PreferredWorkoutTypes,
			domain.FieldPreferredTrainingTimes: s.PreferredTrainingTimes,
			domain.FieldNotPreferredExercises:  s.NotPreferredExercises,
			domain.FieldSpecialConsiderations:  s.SpecialConsiderations,
		}
	}
	return map[string]any{}
}
