package services

import (
	"context"
	"strings"

	"github.com/finvox/tuneloop/internal/domain"
	"github.com/finvox/tuneloop/internal/domain/models"
	"github.com/finvox/tuneloop/internal/ports"
)

// PersonalityService manages the debtor personas the simulator role-plays.
type PersonalityService struct {
	repo        ports.PersonalityRepository
	idGenerator ports.IDGenerator
}

func NewPersonalityService(repo ports.PersonalityRepository, idGenerator ports.IDGenerator) *PersonalityService {
	return &PersonalityService{
		repo:        repo,
		idGenerator: idGenerator,
	}
}

// CreatePersonality validates and persists a new personality
func (s *PersonalityService) CreatePersonality(ctx context.Context, name, description, systemPrompt string, coreTraits map[string]string, amount *float64) (*models.Personality, error) {
	name = strings.TrimSpace(name)

	if err := ValidateRequired(name, "personality name"); err != nil {
		return nil, err
	}
	if err := ValidateStringLength(name, "personality name", 1, models.MaxPersonalityNameLength); err != nil {
		return nil, err
	}
	if err := ValidateStringLength(description, "description", 0, models.MaxDescriptionLength); err != nil {
		return nil, err
	}
	if err := ValidateRequired(systemPrompt, "system prompt"); err != nil {
		return nil, err
	}
	if amount != nil && *amount < 0 {
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "amount cannot be negative")
	}

	personality := models.NewPersonality(
		s.idGenerator.GeneratePersonalityID(),
		name,
		description,
		systemPrompt,
		coreTraits,
		amount,
	)

	if err := s.repo.Create(ctx, personality); err != nil {
		return nil, domain.NewDomainError(err, "failed to create personality")
	}

	return personality, nil
}

// GetPersonality retrieves a personality by ID
func (s *PersonalityService) GetPersonality(ctx context.Context, id string) (*models.Personality, error) {
	if err := ValidateID(id, "personality"); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// ListPersonalities returns personalities newest-first with the total count
func (s *PersonalityService) ListPersonalities(ctx context.Context, limit, offset int) ([]*models.Personality, int, error) {
	personalities, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, domain.NewDomainError(err, "failed to list personalities")
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, domain.NewDomainError(err, "failed to count personalities")
	}

	return personalities, total, nil
}
