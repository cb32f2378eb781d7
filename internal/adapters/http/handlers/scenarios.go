package handlers

import (
	"net/http"
	"time"

	"github.com/finvox/tuneloop/internal/domain/models"
	"github.com/finvox/tuneloop/internal/ports"
)

// ScenarioHandler handles test scenario API endpoints
type ScenarioHandler struct {
	scenarioService ports.ScenarioService
}

func NewScenarioHandler(scenarioService ports.ScenarioService) *ScenarioHandler {
	return &ScenarioHandler{scenarioService: scenarioService}
}

type CreateScenarioRequest struct {
	PersonalityID string `json:"personality_id"`
	Title         string `json:"title"`
	Brief         string `json:"brief"`
	Backstory     string `json:"backstory"`
	Objective     string `json:"objective"`
	Weight        int    `json:"weight"`
}

type ScenarioResponse struct {
	ID            string `json:"id"`
	PersonalityID string `json:"personality_id"`
	Title         string `json:"title"`
	Brief         string `json:"brief,omitempty"`
	Backstory     string `json:"backstory"`
	Objective     string `json:"objective"`
	Weight        int    `json:"weight"`
	CreatedAt     string `json:"created_at"`
}

type ScenarioListResponse struct {
	Scenarios []*ScenarioResponse `json:"scenarios"`
	Total     int                 `json:"total"`
	Limit     int                 `json:"limit"`
	Offset    int                 `json:"offset"`
}

func toScenarioResponse(scenario *models.Scenario) *ScenarioResponse {
	return &ScenarioResponse{
		ID:            scenario.ID,
		PersonalityID: scenario.PersonalityID,
		Title:         scenario.Title,
		Brief:         scenario.Brief,
		Backstory:     scenario.Backstory,
		Objective:     scenario.Objective,
		Weight:        scenario.Weight,
		CreatedAt:     scenario.CreatedAt.Format(time.RFC3339),
	}
}

// Create handles POST /api/v1/scenarios
func (h *ScenarioHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[CreateScenarioRequest](r, w)
	if !ok {
		return
	}

	scenario, err := h.scenarioService.CreateScenario(r.Context(),
		req.PersonalityID, req.Title, req.Brief, req.Backstory, req.Objective, req.Weight)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, toScenarioResponse(scenario), http.StatusCreated)
}

// Get handles GET /api/v1/scenarios/{id}
func (h *ScenarioHandler) Get(w http.ResponseWriter, r *http.Request) {
	scenarioID, ok := validateURLParam(r, w, "id", "Scenario ID")
	if !ok {
		return
	}

	scenario, err := h.scenarioService.GetScenario(r.Context(), scenarioID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, toScenarioResponse(scenario), http.StatusOK)
}

// List handles GET /api/v1/scenarios
func (h *ScenarioHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	scenarios, total, err := h.scenarioService.ListScenarios(r.Context(), limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	resp := &ScenarioListResponse{
		Scenarios: make([]*ScenarioResponse, 0, len(scenarios)),
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	}
	for _, scenario := range scenarios {
		resp.Scenarios = append(resp.Scenarios, toScenarioResponse(scenario))
	}

	respondJSON(w, resp, http.StatusOK)
}
