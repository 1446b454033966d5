// Package format renders workout plans as plain text for chat clients and the CLI.
package format

import (
	"fmt"
	"strings"
	"unicode"

	"alcyxob/fitness-coach/internal/domain"
)

// Workout renders plan in the chat display layout.
func Workout(plan *domain.WorkoutPlan) string {
	if plan == nil {
		return ""
	}
	var b strings.Builder

	fmt.Fprintf(&b, "🏋️ %s\n", strings.ToUpper(plan.Title))
	fmt.Fprintf(&b, "📝 %s\n\n", plan.Description)
	fmt.Fprintf(&b, "⏱️ Duration: %s\n", plan.TotalDuration)
	fmt.Fprintf(&b, "💪 Level: %s\n", titleCase(plan.Difficulty))

	for _, section := range plan.Sections {
		fmt.Fprintf(&b, "\n== %s ==\n", strings.ToUpper(section.Name))
		fmt.Fprintf(&b, "Duration: %s\n\n", section.Duration)
		for i, ex := range section.Exercises {
			fmt.Fprintf(&b, "%d. %s\n", i+1, ex.Name)
			fmt.Fprintf(&b, "   ⏱️ %s\n", ex.Duration)
			fmt.Fprintf(&b, "   📋 %s\n", ex.Instructions)
			if ex.Modifications != "" {
				fmt.Fprintf(&b, "   🔄 %s\n", ex.Modifications)
			}
			b.WriteString("\n")
		}
	}

	if len(plan.Notes) > 0 {
		b.WriteString("📌 NOTES:\n")
		for _, note := range plan.Notes {
			fmt.Fprintf(&b, "• %s\n", note)
		}
		b.WriteString("\n")
	}

	b.WriteString("🎯 PROGRESSION PLAN:\n")
	b.WriteString(plan.Progression)
	return b.String()
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
