package validator

import (
	"sync"

	"github.com/invopop/jsonschema"

	"alcyxob/fitness-coach/internal/domain"
)

var (
	planSchemaOnce sync.Once
	planSchema     *jsonschema.Schema
)

// PlanSchema returns the JSON Schema of a workout plan, suitable as a provider
// response format. It is reflected once from domain.WorkoutPlan.
func PlanSchema() *jsonschema.Schema {
	planSchemaOnce.Do(func() {
		reflector := jsonschema.Reflector{
			AllowAdditionalProperties: false,
			DoNotReference:            true,
		}
		planSchema = reflector.Reflect(&domain.WorkoutPlan{})
	})
	return planSchema
}
