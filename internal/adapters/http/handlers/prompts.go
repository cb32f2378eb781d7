package handlers

import (
	"net/http"
	"time"

	"github.com/finvox/tuneloop/internal/domain/models"
	"github.com/finvox/tuneloop/internal/ports"
)

// PromptHandler handles prompt library API endpoints
type PromptHandler struct {
	promptService ports.PromptService
}

func NewPromptHandler(promptService ports.PromptService) *PromptHandler {
	return &PromptHandler{promptService: promptService}
}

type CreatePromptRequest struct {
	Name    string `json:"name"`
	Text    string `json:"text"`
	Version string `json:"version"`
}

type PromptResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Text      string `json:"text"`
	Version   string `json:"version,omitempty"`
	CreatedAt string `json:"created_at"`
}

type PromptListResponse struct {
	Prompts []*PromptResponse `json:"prompts"`
	Total   int               `json:"total"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
}

func toPromptResponse(prompt *models.PromptVersion) *PromptResponse {
	return &PromptResponse{
		ID:        prompt.ID,
		Name:      prompt.Name,
		Text:      prompt.Text,
		Version:   prompt.Version,
		CreatedAt: prompt.CreatedAt.Format(time.RFC3339),
	}
}

// Create handles POST /api/v1/prompts
func (h *PromptHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[CreatePromptRequest](r, w)
	if !ok {
		return
	}

	prompt, err := h.promptService.CreatePrompt(r.Context(), req.Name, req.Text, req.Version)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, toPromptResponse(prompt), http.StatusCreated)
}

// Get handles GET /api/v1/prompts/{id}
func (h *PromptHandler) Get(w http.ResponseWriter, r *http.Request) {
	promptID, ok := validateURLParam(r, w, "id", "Prompt ID")
	if !ok {
		return
	}

	prompt, err := h.promptService.GetPrompt(r.Context(), promptID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, toPromptResponse(prompt), http.StatusOK)
}

// List handles GET /api/v1/prompts
func (h *PromptHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	prompts, total, err := h.promptService.ListPrompts(r.Context(), limit, offset)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	resp := &PromptListResponse{
		Prompts: make([]*PromptResponse, 0, len(prompts)),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}
	for _, prompt := range prompts {
		resp.Prompts = append(resp.Prompts, toPromptResponse(prompt))
	}

	respondJSON(w, resp, http.StatusOK)
}
