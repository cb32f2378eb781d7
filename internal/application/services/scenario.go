package services

import (
	"context"
	"strings"

	"github.com/finvox/tuneloop/internal/domain"
	"github.com/finvox/tuneloop/internal/domain/models"
	"github.com/finvox/tuneloop/internal/ports"
)

// ScenarioService manages test scenarios. Creation verifies the referenced
// personality exists so a tuning run never picks up a dangling persona.
type ScenarioService struct {
	repo            ports.ScenarioRepository
	personalityRepo ports.PersonalityRepository
	idGenerator     ports.IDGenerator
}

func NewScenarioService(
	repo ports.ScenarioRepository,
	personalityRepo ports.PersonalityRepository,
	idGenerator ports.IDGenerator,
) *ScenarioService {
	return &ScenarioService{
		repo:            repo,
		personalityRepo: personalityRepo,
		idGenerator:     idGenerator,
	}
}

// CreateScenario validates and persists a new scenario
func (s *ScenarioService) CreateScenario(ctx context.Context, personalityID, title, brief, backstory, objective string, weight int) (*models.Scenario, error) {
	title = strings.TrimSpace(title)

	if err := ValidateID(personalityID, "personality"); err != nil {
		return nil, err
	}
	if err := ValidateRequired(title, "scenario title"); err != nil {
		return nil, err
	}
	if err := ValidateStringLength(brief, "brief", 0, models.MaxBriefLength); err != nil {
		return nil, err
	}
	if err := ValidateStringLength(backstory, "backstory", models.MinBackstoryLength, models.MaxBackstoryLength); err != nil {
		return nil, err
	}
	if err := ValidateRequired(objective, "objective"); err != nil {
		return nil, err
	}
	if weight != 0 {
		if err := ValidateRange(weight, "weight", models.MinScenarioWeight, models.MaxScenarioWeight); err != nil {
			return nil, err
		}
	}

	if _, err := s.personalityRepo.GetByID(ctx, personalityID); err != nil {
		return nil, domain.NewDomainError(domain.ErrPersonalityNotFound, "personality "+personalityID)
	}

	scenario := models.NewScenario(
		s.idGenerator.GenerateScenarioID(),
		personalityID,
		title,
		brief,
		backstory,
		objective,
		weight,
	)

	if err := s.repo.Create(ctx, scenario); err != nil {
		return nil, domain.NewDomainError(err, "failed to create scenario")
	}

	return scenario, nil
}

// GetScenario retrieves a scenario by ID
func (s *ScenarioService) GetScenario(ctx context.Context, id string) (*models.Scenario, error) {
	if err := ValidateID(id, "scenario"); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// ListScenarios returns scenarios newest-first with the total count
func (s *ScenarioService) ListScenarios(ctx context.Context, limit, offset int) ([]*models.Scenario, int, error) {
	scenarios, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, domain.NewDomainError(err, "failed to list scenarios")
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, domain.NewDomainError(err, "failed to count scenarios")
	}

	return scenarios, total, nil
}
