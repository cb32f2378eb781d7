package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/finvox/tuneloop/internal/adapters/http"
	"github.com/finvox/tuneloop/internal/adapters/http/handlers"
	"github.com/finvox/tuneloop/internal/adapters/id"
	"github.com/finvox/tuneloop/internal/adapters/postgres"
	"github.com/finvox/tuneloop/internal/adapters/tracing"
	"github.com/finvox/tuneloop/internal/application/services"
	"github.com/finvox/tuneloop/internal/application/usecases"
	"github.com/finvox/tuneloop/internal/llm"
	"github.com/finvox/tuneloop/pkg/logging"
)

// serveCmd starts the HTTP API server
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the Tuneloop HTTP API server.

The server provides REST endpoints for prompts, personas, scenarios,
evaluations and tuning runs, plus a WebSocket stream of tuning progress.

Required configuration:
  - PostgreSQL database (TUNELOOP_POSTGRES_URL)
  - LLM endpoint (TUNELOOP_LLM_URL)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// runServer initializes and starts the HTTP API server
func runServer(ctx context.Context) error {
	logging.Setup(slog.LevelInfo)

	slog.Info("starting Tuneloop API server",
		"http", fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port),
		"llm", cfg.LLM.URL,
		"model", cfg.LLM.Model)

	shutdown, err := tracing.InitTracer("tuneloop-api")
	if err != nil {
		slog.Warn("failed to initialize tracing", "error", err)
	} else {
		defer func() {
			if err := shutdown(ctx); err != nil {
				slog.Error("error shutting down tracer", "error", err)
			}
		}()
	}

	if cfg.Database.PostgresURL == "" {
		return fmt.Errorf("server mode requires PostgreSQL. Set TUNELOOP_POSTGRES_URL")
	}

	slog.Info("connecting to PostgreSQL")
	pool, err := postgres.Connect(ctx, cfg.Database.PostgresURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	slog.Info("database connection established")

	// Repositories
	runRepo := postgres.NewTuningRunRepository(pool)
	promptRepo := postgres.NewPromptVersionRepository(pool)
	scenarioRepo := postgres.NewScenarioRepository(pool)
	personalityRepo := postgres.NewPersonalityRepository(pool)
	evaluationRepo := postgres.NewEvaluationRepository(pool)

	idGen := id.New()
	llmService := llm.NewService(llmClient)

	// Conversation pipeline
	simulator := services.NewSimulator(llmService, cfg.Tuning.SimulationMaxTurns, 0.7)
	judge := services.NewJudge(llmService, cfg.Tuning.JudgeTemperature)
	reviser := services.NewReviser(llmService, cfg.Tuning.WriterTemperature, cfg.Tuning.CritiqueTemperature)

	// Domain services
	promptService := services.NewPromptService(promptRepo, idGen)
	personalityService := services.NewPersonalityService(personalityRepo, idGen)
	scenarioService := services.NewScenarioService(scenarioRepo, personalityRepo, idGen)
	evaluationService := services.NewEvaluationService(
		evaluationRepo,
		promptRepo,
		scenarioRepo,
		personalityRepo,
		simulator,
		judge,
		idGen,
	)
	tuningService := services.NewTuningService(runRepo, promptRepo, idGen)

	// Progress fan-out: publisher feeds the WebSocket broadcaster
	wsBroadcaster := handlers.NewWebSocketBroadcaster()
	publisher := services.NewTuningProgressPublisher(wsBroadcaster)

	// Use cases
	runTuning := usecases.NewRunTuning(
		tuningService,
		evaluationService,
		reviser,
		promptRepo,
		scenarioRepo,
		publisher,
	)
	runEvaluation := usecases.NewRunEvaluation(evaluationService)

	server := http.NewServer(
		cfg,
		version,
		pool,
		llmService,
		tuningService,
		promptService,
		scenarioService,
		personalityService,
		evaluationService,
		runTuning,
		runEvaluation,
		wsBroadcaster,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		slog.Info("received signal, shutting down gracefully", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		slog.Info("server stopped")
		return nil
	}
}
