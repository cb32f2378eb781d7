package handlers

import (
	"net/http"
	"time"

	"github.com/finvox/tuneloop/internal/domain/models"
	"github.com/finvox/tuneloop/internal/ports"
)

// EvaluationHandler handles evaluation record API endpoints
type EvaluationHandler struct {
	evaluationService    ports.EvaluationService
	runEvaluationUseCase ports.RunEvaluationUseCase
}

func NewEvaluationHandler(evaluationService ports.EvaluationService, runEvaluationUseCase ports.RunEvaluationUseCase) *EvaluationHandler {
	return &EvaluationHandler{
		evaluationService:    evaluationService,
		runEvaluationUseCase: runEvaluationUseCase,
	}
}

type CreateEvaluationRequest struct {
	PromptID   string `json:"prompt_id"`
	ScenarioID string `json:"scenario_id"`
}

type TranscriptMessageDTO struct {
	Speaker string `json:"speaker"`
	Message string `json:"message"`
}

type EvaluationScoresDTO struct {
	TaskCompletion         int     `json:"task_completion"`
	ConversationEfficiency int     `json:"conversation_efficiency"`
	Composite              float64 `json:"composite"`
}

type EvaluationResponse struct {
	ID                string                 `json:"id"`
	PromptID          string                 `json:"prompt_id"`
	ScenarioID        string                 `json:"scenario_id"`
	RunID             string                 `json:"run_id,omitempty"`
	Status            string                 `json:"status"`
	Transcript        []TranscriptMessageDTO `json:"transcript,omitempty"`
	Scores            *EvaluationScoresDTO   `json:"scores,omitempty"`
	EvaluatorAnalysis string                 `json:"evaluator_analysis,omitempty"`
	ErrorMessage      string                 `json:"error_message,omitempty"`
	CreatedAt         string                 `json:"created_at"`
	CompletedAt       *string                `json:"completed_at,omitempty"`
}

type EvaluationListResponse struct {
	Evaluations []*EvaluationResponse `json:"evaluations"`
	Total       int                   `json:"total"`
	Limit       int                   `json:"limit"`
	Offset      int                   `json:"offset"`
}

func toEvaluationResponse(evaluation *models.Evaluation) *EvaluationResponse {
	resp := &EvaluationResponse{
		ID:                evaluation.ID,
		PromptID:          evaluation.PromptID,
		ScenarioID:        evaluation.ScenarioID,
		RunID:             evaluation.RunID,
		Status:            string(evaluation.Status),
		EvaluatorAnalysis: evaluation.EvaluatorAnalysis,
		ErrorMessage:      evaluation.ErrorMessage,
		CreatedAt:         evaluation.CreatedAt.Format(time.RFC3339),
	}
	for _, msg := range evaluation.Transcript {
		resp.Transcript = append(resp.Transcript, TranscriptMessageDTO{
			Speaker: string(msg.Speaker),
			Message: msg.Message,
		})
	}
	if evaluation.Scores != nil {
		resp.Scores = &EvaluationScoresDTO{
			TaskCompletion:         evaluation.Scores.TaskCompletion,
			ConversationEfficiency: evaluation.Scores.ConversationEfficiency,
			Composite:              evaluation.Scores.Composite(),
		}
	}
	if evaluation.CompletedAt != nil {
		s := evaluation.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}

// Create handles POST /api/v1/evaluations. The simulate-then-judge pipeline
// runs in the background; the response carries the PENDING record.
func (h *EvaluationHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[CreateEvaluationRequest](r, w)
	if !ok {
		return
	}

	output, err := h.runEvaluationUseCase.Execute(r.Context(), &ports.RunEvaluationInput{
		PromptID:   req.PromptID,
		ScenarioID: req.ScenarioID,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, toEvaluationResponse(output.Evaluation), http.StatusAccepted)
}

// Get handles GET /api/v1/evaluations/{id}
func (h *EvaluationHandler) Get(w http.ResponseWriter, r *http.Request) {
	evaluationID, ok := validateURLParam(r, w, "id", "Evaluation ID")
	if !ok {
		return
	}

	evaluation, err := h.evaluationService.GetEvaluation(r.Context(), evaluationID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, toEvaluationResponse(evaluation), http.StatusOK)
}

// List handles GET /api/v1/evaluations
func (h *EvaluationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	evaluations, total, err := h.evaluationService.ListEvaluations(r.Context(), limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	resp := &EvaluationListResponse{
		Evaluations: make([]*EvaluationResponse, 0, len(evaluations)),
		Total:       total,
		Limit:       limit,
		Offset:      offset,
	}
	for _, evaluation := range evaluations {
		resp.Evaluations = append(resp.Evaluations, toEvaluationResponse(evaluation))
	}

	respondJSON(w, resp, http.StatusOK)
}
