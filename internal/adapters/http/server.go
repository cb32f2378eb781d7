package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/finvox/tuneloop/internal/adapters/http/handlers"
	"github.com/finvox/tuneloop/internal/adapters/http/middleware"
	"github.com/finvox/tuneloop/internal/config"
	"github.com/finvox/tuneloop/internal/ports"
)

type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server
	version    string

	db                   *pgxpool.Pool
	llmService           ports.LLMService
	tuningService        ports.TuningService
	promptService        ports.PromptService
	scenarioService      ports.ScenarioService
	personalityService   ports.PersonalityService
	evaluationService    ports.EvaluationService
	runTuningUseCase     ports.RunTuningUseCase
	runEvaluationUseCase ports.RunEvaluationUseCase
	wsBroadcaster        *handlers.WebSocketBroadcaster
}

func NewServer(
	cfg *config.Config,
	version string,
	db *pgxpool.Pool,
	llmService ports.LLMService,
	tuningService ports.TuningService,
	promptService ports.PromptService,
	scenarioService ports.ScenarioService,
	personalityService ports.PersonalityService,
	evaluationService ports.EvaluationService,
	runTuningUseCase ports.RunTuningUseCase,
	runEvaluationUseCase ports.RunEvaluationUseCase,
	wsBroadcaster *handlers.WebSocketBroadcaster,
) *Server {
	s := &Server{
		config:               cfg,
		version:              version,
		db:                   db,
		llmService:           llmService,
		tuningService:        tuningService,
		promptService:        promptService,
		scenarioService:      scenarioService,
		personalityService:   personalityService,
		evaluationService:    evaluationService,
		runTuningUseCase:     runTuningUseCase,
		runEvaluationUseCase: runEvaluationUseCase,
		wsBroadcaster:        wsBroadcaster,
	}

	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS(s.config.Server.CORSOrigins))
	r.Use(middleware.Metrics)

	healthHandler := handlers.NewHealthHandler(s.version)
	detailedHealthHandler := handlers.NewHealthHandlerWithDeps(s.version, s.db, s.llmService)
	r.Get("/health", healthHandler.Handle)
	r.Get("/health/detailed", detailedHealthHandler.HandleDetailed)
	r.Handle("/metrics", promhttp.Handler())

	tuningHandler := handlers.NewTuningHandler(s.tuningService, s.runTuningUseCase)
	tuningWSHandler := handlers.NewTuningWebSocketHandler(s.tuningService, s.wsBroadcaster, s.config.Server.CORSOrigins)
	promptHandler := handlers.NewPromptHandler(s.promptService)
	scenarioHandler := handlers.NewScenarioHandler(s.scenarioService)
	personalityHandler := handlers.NewPersonalityHandler(s.personalityService)
	evaluationHandler := handlers.NewEvaluationHandler(s.evaluationService, s.runEvaluationUseCase)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity)

		r.Post("/tuning-runs", tuningHandler.Create)
		r.Get("/tuning-runs", tuningHandler.List)
		r.Get("/tuning-runs/{id}", tuningHandler.Get)
		r.Get("/tuning-runs/{id}/ws", tuningWSHandler.Handle)

		r.Post("/prompts", promptHandler.Create)
		r.Get("/prompts", promptHandler.List)
		r.Get("/prompts/{id}", promptHandler.Get)

		r.Post("/scenarios", scenarioHandler.Create)
		r.Get("/scenarios", scenarioHandler.List)
		r.Get("/scenarios/{id}", scenarioHandler.Get)

		r.Post("/personalities", personalityHandler.Create)
		r.Get("/personalities", personalityHandler.List)
		r.Get("/personalities/{id}", personalityHandler.Get)

		r.Post("/evaluations", evaluationHandler.Create)
		r.Get("/evaluations", evaluationHandler.List)
		r.Get("/evaluations/{id}", evaluationHandler.Get)
	})

	s.router = r
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // No write timeout for WebSocket streaming
		IdleTimeout:  120 * time.Second,
	}

	slog.Info("starting HTTP server", "addr", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	slog.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
