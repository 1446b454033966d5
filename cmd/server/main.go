package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// @title Fitness Coach API
// @version 1.0
// @description Guided three-stage dialogue that collects a user profile and generates a personalised workout plan.
// @contact.name API Support
// @contact.email support@example.com
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.
func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "fitness-coach",
		Short: "Conversational fitness coach",
		Long: `fitness-coach collects a user's basics, goals and constraints through a
guided dialogue and asks an OpenAI-compatible model for a workout plan.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "Directory containing config.yaml and .env")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath)
		},
	})
	cmd.AddCommand(generateCmd(&configPath))

	return cmd
}
