package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"alcyxob/fitness-coach/internal/domain"
	"alcyxob/fitness-coach/internal/service"
)

func generateCmd(configPath *string) *cobra.Command {
	var (
		profilePath string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a workout for a profile and print it",
		Long: `Generate reads a user profile (JSON, same shape as POST /api/v1/workouts/generate)
and prints the formatted workout. Without --profile a sample profile is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile := sampleProfile()
			if profilePath != "" {
				loaded, err := loadProfile(profilePath)
				if err != nil {
					return err
				}
				profile = loaded
			}

			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			fmt.Fprintf(cmd.ErrOrStderr(), "Generating workout for %s...\n", profile.Name)
			result := a.generator.Generate(cmd.Context(), profile)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else if result.Status == service.StatusSuccess {
				fmt.Fprintln(out, result.Workout)
			}
			if result.Status != service.StatusSuccess {
				return fmt.Errorf("workout generation failed: %s", result.Message)
			}
			if result.Fallback {
				fmt.Fprintln(cmd.ErrOrStderr(), "Note: the model was unavailable, a canned plan was returned.")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&profilePath, "profile", "p", "", "Path to a profile JSON file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full generation result as JSON")
	return cmd
}

func loadProfile(path string) (*domain.UserProfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	var profile domain.UserProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	return &profile, nil
}

func sampleProfile() *domain.UserProfile {
	return &domain.UserProfile{
		UserID: "sample_user",
		Name:   "Koyel Das",
		PhysicalStats: domain.PhysicalStats{
			HeightCm: 164,
			WeightKg: 80,
			Gender:   "female",
			Age:      30,
		},
		Goals: []domain.FitnessGoal{{GoalType: "weight_loss"}},
		Preferences: domain.UserPreferences{
			PreferredWorkoutTypes:  []string{"strength_training", "cardio", "pilates"},
			PreferredTrainingTimes: []string{"evening"},
		},
		ActivityLevel: "moderately_active",
		Restrictions: domain.Restrictions{
			NotPreferredExercises: []string{"lunges"},
		},
	}
}
