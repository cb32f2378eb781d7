package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finvox/tuneloop/internal/adapters/id"
	"github.com/finvox/tuneloop/internal/adapters/postgres"
	"github.com/finvox/tuneloop/internal/application/services"
	"github.com/finvox/tuneloop/internal/application/usecases"
	"github.com/finvox/tuneloop/internal/config"
	"github.com/finvox/tuneloop/internal/llm"
	"github.com/finvox/tuneloop/internal/ports"
)

// Version information (set via ldflags)
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Shared global variables
var (
	cfg       *config.Config
	llmClient *llm.Client
)

// initDB initializes a database connection pool for CLI commands
func initDB(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Database.PostgresURL == "" {
		return nil, fmt.Errorf("PostgreSQL connection required. Set TUNELOOP_POSTGRES_URL")
	}
	return postgres.Connect(ctx, cfg.Database.PostgresURL)
}

// tuningStack bundles the services the tune and runs commands need.
type tuningStack struct {
	tuningService     ports.TuningService
	evaluationService ports.EvaluationService
	publisher         ports.TuningProgressPublisher
	runTuning         ports.RunTuningUseCase
}

// buildTuningStack wires repositories and services on top of a pool. The
// broadcaster is optional; CLI commands pass nil and read the publisher
// channel directly.
func buildTuningStack(pool *pgxpool.Pool, broadcaster ports.TuningProgressBroadcaster) *tuningStack {
	runRepo := postgres.NewTuningRunRepository(pool)
	promptRepo := postgres.NewPromptVersionRepository(pool)
	scenarioRepo := postgres.NewScenarioRepository(pool)
	personalityRepo := postgres.NewPersonalityRepository(pool)
	evaluationRepo := postgres.NewEvaluationRepository(pool)

	idGen := id.New()
	llmService := llm.NewService(llmClient)

	simulator := services.NewSimulator(llmService, cfg.Tuning.SimulationMaxTurns, 0.7)
	judge := services.NewJudge(llmService, cfg.Tuning.JudgeTemperature)
	reviser := services.NewReviser(llmService, cfg.Tuning.WriterTemperature, cfg.Tuning.CritiqueTemperature)

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
	publisher := services.NewTuningProgressPublisher(broadcaster)

	runTuning := usecases.NewRunTuning(
		tuningService,
		evaluationService,
		reviser,
		promptRepo,
		scenarioRepo,
		publisher,
	)

	return &tuningStack{
		tuningService:     tuningService,
		evaluationService: evaluationService,
		publisher:         publisher,
		runTuning:         runTuning,
	}
}

// maskSecret masks a secret string for display
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "(set)"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// boolStatus returns a status string for a boolean
func boolStatus(b bool) string {
	if b {
		return "configured"
	}
	return "not configured"
}
