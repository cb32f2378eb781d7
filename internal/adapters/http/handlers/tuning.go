package handlers

import (
	"net/http"
	"time"

	"github.com/finvox/tuneloop/internal/domain/models"
	"github.com/finvox/tuneloop/internal/ports"
)

// TuningHandler handles tuning run API endpoints
type TuningHandler struct {
	tuningService    ports.TuningService
	runTuningUseCase ports.RunTuningUseCase
}

func NewTuningHandler(tuningService ports.TuningService, runTuningUseCase ports.RunTuningUseCase) *TuningHandler {
	return &TuningHandler{
		tuningService:    tuningService,
		runTuningUseCase: runTuningUseCase,
	}
}

// CreateTuningRunRequest represents a request to start a tuning run
type CreateTuningRunRequest struct {
	InitialPromptID string                      `json:"initial_prompt_id"`
	TargetScore     float64                     `json:"target_score"`
	MaxIterations   int                         `json:"max_iterations"`
	Scenarios       []ports.ScenarioWeightInput `json:"scenarios"`
}

// TuningRunResponse represents a tuning run in API responses
type TuningRunResponse struct {
	ID            string              `json:"id"`
	Status        string              `json:"status"`
	Config        TuningConfigDTO     `json:"config"`
	Iterations    []IterationResponse `json:"iterations"`
	FinalPromptID string              `json:"final_prompt_id,omitempty"`
	ErrorMessage  string              `json:"error_message,omitempty"`
	CreatedAt     string              `json:"created_at"`
	StartedAt     *string             `json:"started_at,omitempty"`
	CompletedAt   *string             `json:"completed_at,omitempty"`
}

type TuningConfigDTO struct {
	InitialPromptID string                      `json:"initial_prompt_id"`
	TargetScore     float64                     `json:"target_score"`
	MaxIterations   int                         `json:"max_iterations"`
	Scenarios       []ports.ScenarioWeightInput `json:"scenarios"`
}

type IterationResponse struct {
	Sequence      int      `json:"sequence"`
	PromptID      string   `json:"prompt_id"`
	EvaluationIDs []string `json:"evaluation_ids"`
	WeightedScore float64  `json:"weighted_score"`
	CreatedAt     string   `json:"created_at"`
}

// TuningRunListResponse wraps a paginated list of runs
type TuningRunListResponse struct {
	Runs   []*TuningRunResponse `json:"runs"`
	Total  int                  `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

func toTuningRunResponse(run *models.TuningRun) *TuningRunResponse {
	resp := &TuningRunResponse{
		ID:     run.ID,
		Status: string(run.Status),
		Config: TuningConfigDTO{
			InitialPromptID: run.Config.InitialPromptID,
			TargetScore:     run.Config.TargetScore,
			MaxIterations:   run.Config.MaxIterations,
		},
		Iterations:    make([]IterationResponse, 0, len(run.Iterations)),
		FinalPromptID: run.FinalPromptID,
		ErrorMessage:  run.ErrorMessage,
		CreatedAt:     run.CreatedAt.Format(time.RFC3339),
	}
	for _, sw := range run.Config.Scenarios {
		resp.Config.Scenarios = append(resp.Config.Scenarios, ports.ScenarioWeightInput{
			ScenarioID: sw.ScenarioID,
			Weight:     sw.Weight,
		})
	}
	for _, it := range run.Iterations {
		resp.Iterations = append(resp.Iterations, IterationResponse{
			Sequence:      it.Sequence,
			PromptID:      it.PromptID,
			EvaluationIDs: it.EvaluationIDs,
			WeightedScore: it.WeightedScore,
			CreatedAt:     it.CreatedAt.Format(time.RFC3339),
		})
	}
	if run.StartedAt != nil {
		s := run.StartedAt.Format(time.RFC3339)
		resp.StartedAt = &s
	}
	if run.CompletedAt != nil {
		s := run.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}

// Create handles POST /api/v1/tuning-runs. The loop runs in the background;
// the response carries the durable PENDING run.
func (h *TuningHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[CreateTuningRunRequest](r, w)
	if !ok {
		return
	}

	output, err := h.runTuningUseCase.Execute(r.Context(), &ports.RunTuningInput{
		InitialPromptID: req.InitialPromptID,
		TargetScore:     req.TargetScore,
		MaxIterations:   req.MaxIterations,
		Scenarios:       req.Scenarios,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, toTuningRunResponse(output.Run), http.StatusAccepted)
}

// Get handles GET /api/v1/tuning-runs/{id}
func (h *TuningHandler) Get(w http.ResponseWriter, r *http.Request) {
	runID, ok := validateURLParam(r, w, "id", "Tuning run ID")
	if !ok {
		return
	}

	run, err := h.tuningService.GetRun(r.Context(), runID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, toTuningRunResponse(run), http.StatusOK)
}

// List handles GET /api/v1/tuning-runs
func (h *TuningHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	status := r.URL.Query().Get("status")

	if status != "" && !isValidTuningStatus(status) {
		respondError(w, "invalid_request", "Invalid status filter", http.StatusBadRequest)
		return
	}

	runs, total, err := h.tuningService.ListRuns(r.Context(), status, limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	resp := &TuningRunListResponse{
		Runs:   make([]*TuningRunResponse, 0, len(runs)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, toTuningRunResponse(run))
	}

	respondJSON(w, resp, http.StatusOK)
}

func isValidTuningStatus(status string) bool {
	switch models.TuningStatus(status) {
	case models.TuningStatusPending, models.TuningStatusRunning,
		models.TuningStatusCompleted, models.TuningStatusFailed:
		return true
	}
	return false
}
