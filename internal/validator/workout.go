// Package validator checks that parsed model output has the structure of a workout plan.
// Validation is purely structural: required fields must be present with the right
// primitive type, extra fields are ignored, and the content itself is not judged.
package validator

import (
	"fmt"

	"alcyxob/fitness-coach/internal/domain"
)

// SchemaError describes the first structural violation found in a candidate.
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema validation failed: %s: %s", e.Path, e.Reason)
}

const reasonMissing = "required field missing"

// Validate converts candidate, typically the output of repair.Parse, into a WorkoutPlan.
func Validate(candidate any) (*domain.WorkoutPlan, error) {
	obj, err := asObject("$", candidate)
	if err != nil {
		return nil, err
	}

	v := &walker{}
	plan := &domain.WorkoutPlan{
		Title:         v.str(obj, "", "title"),
		Description:   v.str(obj, "", "description"),
		TotalDuration: v.str(obj, "", "total_duration"),
		Difficulty:    v.str(obj, "", "difficulty"),
	}

	sections := v.list(obj, "", "sections")
	for i, raw := range sections {
		if v.err != nil {
			break
		}
		plan.Sections = append(plan.Sections, v.section(fmt.Sprintf("sections[%d]", i), raw))
	}
	if plan.Sections == nil && v.err == nil {
		plan.Sections = []domain.WorkoutSection{}
	}

	notes := v.list(obj, "", "notes")
	plan.Notes = make([]string, 0, len(notes))
	for i, raw := range notes {
		if v.err != nil {
			break
		}
		s, ok := raw.(string)
		if !ok {
			v.fail(fmt.Sprintf("notes[%d]", i), "expected string, got "+typeName(raw))
			break
		}
		plan.Notes = append(plan.Notes, s)
	}

	plan.Progression = v.str(obj, "", "progression")

	if v.err != nil {
		return nil, v.err
	}
	return plan, nil
}

type walker struct {
	err *SchemaError
}

func (v *walker) fail(path, reason string) {
	if v.err == nil {
		v.err = &SchemaError{Path: path, Reason: reason}
	}
}

func (v *walker) str(obj map[string]any, prefix, key string) string {
	if v.err != nil {
		return ""
	}
	path := join(prefix, key)
	raw, ok := obj[key]
	if !ok || raw == nil {
		v.fail(path, reasonMissing)
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		v.fail(path, "expected string, got "+typeName(raw))
		return ""
	}
	return s
}

func (v *walker) list(obj map[string]any, prefix, key string) []any {
	if v.err != nil {
		return nil
	}
	path := join(prefix, key)
	raw, ok := obj[key]
	if !ok || raw == nil {
		v.fail(path, reasonMissing)
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		v.fail(path, "expected list, got "+typeName(raw))
		return nil
	}
	return items
}

func (v *walker) section(path string, raw any) domain.WorkoutSection {
	obj, err := asObject(path, raw)
	if err != nil {
		v.err = err
		return domain.WorkoutSection{}
	}
	sec := domain.WorkoutSection{
		Name:     v.str(obj, path, "name"),
		Duration: v.str(obj, path, "duration"),
	}
	exercises := v.list(obj, path, "exercises")
	sec.Exercises = make([]domain.Exercise, 0, len(exercises))
	for i, item := range exercises {
		if v.err != nil {
			break
		}
		sec.Exercises = append(sec.Exercises, v.exercise(fmt.Sprintf("%s.exercises[%d]", path, i), item))
	}
	return sec
}

func (v *walker) exercise(path string, raw any) domain.Exercise {
	obj, err := asObject(path, raw)
	if err != nil {
		v.err = err
		return domain.Exercise{}
	}
	return domain.Exercise{
		Name:          v.str(obj, path, "name"),
		Duration:      v.str(obj, path, "duration"),
		Instructions:  v.str(obj, path, "instructions"),
		Modifications: v.str(obj, path, "modifications"),
	}
}

func asObject(path string, raw any) (map[string]any, *SchemaError) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &SchemaError{Path: path, Reason: "expected object, got " + typeName(raw)}
	}
	return obj, nil
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int64:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
