package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/finvox/tuneloop/internal/config"
	"github.com/finvox/tuneloop/internal/llm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tuneloop",
		Short: "Tuneloop - automated prompt tuning for collection agents",
		Long: `Tuneloop iteratively improves collection agent system prompts by
simulating calls against debtor personas, scoring the transcripts and
revising the prompt until it hits the target score.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			llmClient = llm.NewClient(
				cfg.LLM.URL,
				cfg.LLM.APIKey,
				llm.WithModel(cfg.LLM.Model),
				llm.WithMaxTokens(cfg.LLM.MaxTokens),
			)

			return nil
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		tuneCmd(),
		evaluateCmd(),
		runsCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configCmd shows current configuration
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Current configuration:")
			fmt.Println()

			fmt.Println("LLM:")
			fmt.Printf("  URL:        %s\n", cfg.LLM.URL)
			fmt.Printf("  Model:      %s\n", cfg.LLM.Model)
			fmt.Printf("  Max Tokens: %d\n", cfg.LLM.MaxTokens)
			fmt.Printf("  API Key:    %s\n", maskSecret(cfg.LLM.APIKey))
			fmt.Println()

			fmt.Println("Database:")
			fmt.Printf("  PostgreSQL: %s\n", maskSecret(cfg.Database.PostgresURL))
			fmt.Printf("  Status:     %s\n", boolStatus(cfg.IsDatabaseConfigured()))
			fmt.Println()

			fmt.Println("Server:")
			fmt.Printf("  Host: %s\n", cfg.Server.Host)
			fmt.Printf("  Port: %d\n", cfg.Server.Port)
			fmt.Printf("  CORS: %v\n", cfg.Server.CORSOrigins)
			fmt.Println()

			fmt.Println("Tuning:")
			fmt.Printf("  Writer Temperature:   %.2f\n", cfg.Tuning.WriterTemperature)
			fmt.Printf("  Critique Temperature: %.2f\n", cfg.Tuning.CritiqueTemperature)
			fmt.Printf("  Judge Temperature:    %.2f\n", cfg.Tuning.JudgeTemperature)
			fmt.Printf("  Simulation Max Turns: %d\n", cfg.Tuning.SimulationMaxTurns)
			fmt.Println()

			fmt.Println("Environment variables:")
			fmt.Println("  TUNELOOP_LLM_URL, TUNELOOP_LLM_API_KEY, TUNELOOP_LLM_MODEL, TUNELOOP_LLM_MAX_TOKENS")
			fmt.Println("  TUNELOOP_POSTGRES_URL")
			fmt.Println("  TUNELOOP_SERVER_HOST, TUNELOOP_SERVER_PORT, TUNELOOP_CORS_ORIGINS")
			fmt.Println("  TUNELOOP_WRITER_TEMPERATURE, TUNELOOP_CRITIQUE_TEMPERATURE, TUNELOOP_JUDGE_TEMPERATURE")
			fmt.Println("  TUNELOOP_SIMULATION_MAX_TURNS")

			return nil
		},
	}
}

// versionCmd shows version information
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Tuneloop %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Build Date: %s\n", buildDate)
		},
	}
}
