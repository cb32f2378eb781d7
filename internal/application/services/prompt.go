package services

import (
	"context"
	"strings"

	"github.com/finvox/tuneloop/internal/domain"
	"github.com/finvox/tuneloop/internal/domain/models"
	"github.com/finvox/tuneloop/internal/ports"
)

// PromptService manages the append-only prompt library. Prompts are never
// updated or deleted; tuning runs append revisions as new versions.
type PromptService struct {
	repo        ports.PromptVersionRepository
	idGenerator ports.IDGenerator
}

func NewPromptService(repo ports.PromptVersionRepository, idGenerator ports.IDGenerator) *PromptService {
	return &PromptService{
		repo:        repo,
		idGenerator: idGenerator,
	}
}

// CreatePrompt validates and persists a new prompt version
func (s *PromptService) CreatePrompt(ctx context.Context, name, text, version string) (*models.PromptVersion, error) {
	name = strings.TrimSpace(name)
	text = strings.TrimSpace(text)

	if err := ValidateRequired(name, "prompt name"); err != nil {
		return nil, err
	}
	if err := ValidateStringLength(name, "prompt name", 1, models.MaxPromptNameLength); err != nil {
		return nil, err
	}
	if err := ValidateStringLength(text, "prompt text", models.MinPromptTextLength, 0); err != nil {
		return nil, err
	}
	if err := ValidateStringLength(version, "version label", 0, models.MaxVersionLabelLength); err != nil {
		return nil, err
	}

	prompt := models.NewPromptVersion(s.idGenerator.GeneratePromptVersionID(), name, text, version)

	if err := s.repo.Create(ctx, prompt); err != nil {
		return nil, domain.NewDomainError(err, "failed to create prompt version")
	}

	return prompt, nil
}

// GetPrompt retrieves a prompt version by ID
func (s *PromptService) GetPrompt(ctx context.Context, id string) (*models.PromptVersion, error) {
	if err := ValidateID(id, "prompt"); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// ListPrompts returns prompt versions newest-first with the total count
func (s *PromptService) ListPrompts(ctx context.Context, limit, offset int) ([]*models.PromptVersion, int, error) {
	prompts, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, domain.NewDomainError(err, "failed to list prompt versions")
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, domain.NewDomainError(err, "failed to count prompt versions")
	}

	return prompts, total, nil
}
