package handlers

import (
	"net/http"
	"time"

	"github.com/finvox/tuneloop/internal/domain/models"
	"github.com/finvox/tuneloop/internal/ports"
)

// PersonalityHandler handles debtor persona API endpoints
type PersonalityHandler struct {
	personalityService ports.PersonalityService
}

func NewPersonalityHandler(personalityService ports.PersonalityService) *PersonalityHandler {
	return &PersonalityHandler{personalityService: personalityService}
}

type CreatePersonalityRequest struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	SystemPrompt string            `json:"system_prompt"`
	CoreTraits   map[string]string `json:"core_traits"`
	Amount       *float64          `json:"amount"`
}

type PersonalityResponse struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	SystemPrompt string            `json:"system_prompt"`
	CoreTraits   map[string]string `json:"core_traits"`
	Amount       *float64          `json:"amount,omitempty"`
	CreatedAt    string            `json:"created_at"`
}

type PersonalityListResponse struct {
	Personalities []*PersonalityResponse `json:"personalities"`
	Total         int                    `json:"total"`
	Limit         int                    `json:"limit"`
	Offset        int                    `json:"offset"`
}

func toPersonalityResponse(personality *models.Personality) *PersonalityResponse {
	return &PersonalityResponse{
		ID:           personality.ID,
		Name:         personality.Name,
		Description:  personality.Description,
		SystemPrompt: personality.SystemPrompt,
		CoreTraits:   personality.CoreTraits,
		Amount:       personality.Amount,
		CreatedAt:    personality.CreatedAt.Format(time.RFC3339),
	}
}

// Create handles POST /api/v1/personalities
func (h *PersonalityHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[CreatePersonalityRequest](r, w)
	if !ok {
		return
	}

	personality, err := h.personalityService.CreatePersonality(r.Context(),
		req.Name, req.Description, req.SystemPrompt, req.CoreTraits, req.Amount)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, toPersonalityResponse(personality), http.StatusCreated)
}

// Get handles GET /api/v1/personalities/{id}
func (h *PersonalityHandler) Get(w http.ResponseWriter, r *http.Request) {
	personalityID, ok := validateURLParam(r, w, "id", "Personality ID")
	if !ok {
		return
	}

	personality, err := h.personalityService.GetPersonality(r.Context(), personalityID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, toPersonalityResponse(personality), http.StatusOK)
}

// List handles GET /api/v1/personalities
func (h *PersonalityHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	personalities, total, err := h.personalityService.ListPersonalities(r.Context(), limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	resp := &PersonalityListResponse{
		Personalities: make([]*PersonalityResponse, 0, len(personalities)),
		Total:         total,
		Limit:         limit,
		Offset:        offset,
	}
	for _, personality := range personalities {
		resp.Personalities = append(resp.Personalities, toPersonalityResponse(personality))
	}

	respondJSON(w, resp, http.StatusOK)
}
