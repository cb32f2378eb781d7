package postgres

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finvox/tuneloop/internal/domain"
	"github.com/finvox/tuneloop/internal/domain/models"
)

// ScenarioRepository implements ports.ScenarioRepository
type ScenarioRepository struct {
	BaseRepository
}

// NewScenarioRepository creates a new scenario repository
func NewScenarioRepository(pool *pgxpool.Pool) *ScenarioRepository {
	return &ScenarioRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

// Create persists a new scenario
func (r *ScenarioRepository) Create(ctx context.Context, scenario *models.Scenario) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO scenarios (
			id, personality_id, title, brief, backstory, objective, weight, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)`

	_, err := r.conn(ctx).Exec(ctx, query,
		scenario.ID,
		scenario.PersonalityID,
		scenario.Title,
		nullString(scenario.Brief),
		scenario.Backstory,
		scenario.Objective,
		scenario.Weight,
		scenario.CreatedAt,
	)

	return err
}

// GetByID retrieves a scenario by ID
func (r *ScenarioRepository) GetByID(ctx context.Context, id string) (*models.Scenario, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, personality_id, title, brief, backstory, objective, weight, created_at
		FROM scenarios
		WHERE id = $1`

	scenario, err := r.scanScenario(r.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if checkNoRows(err) {
			return nil, domain.ErrScenarioNotFound
		}
		return nil, err
	}

	return scenario, nil
}

// GetByIDs retrieves the scenarios for the given IDs. Missing IDs are simply
// absent from the result; callers detect gaps by comparing lengths.
func (r *ScenarioRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Scenario, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if len(ids) == 0 {
		return []*models.Scenario{}, nil
	}

	query := `
		SELECT id, personality_id, title, brief, backstory, objective, weight, created_at
		FROM scenarios
		WHERE id = ANY($1)`

	rows, err := r.conn(ctx).Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanScenarios(rows)
}

// List retrieves scenarios ordered by creation time, newest first
func (r *ScenarioRepository) List(ctx context.Context, limit, offset int) ([]*models.Scenario, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, personality_id, title, brief, backstory, objective, weight, created_at
		FROM scenarios
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.conn(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanScenarios(rows)
}

// Count returns the total number of scenarios
func (r *ScenarioRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT COUNT(*) FROM scenarios`

	var count int
	err := r.conn(ctx).QueryRow(ctx, query).Scan(&count)
	return count, err
}

func (r *ScenarioRepository) scanScenario(row pgx.Row) (*models.Scenario, error) {
	var scenario models.Scenario
	var brief sql.NullString

	err := row.Scan(
		&scenario.ID,
		&scenario.PersonalityID,
		&scenario.Title,
		&brief,
		&scenario.Backstory,
		&scenario.Objective,
		&scenario.Weight,
		&scenario.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	scenario.Brief = getString(brief)

	return &scenario, nil
}

func (r *ScenarioRepository) scanScenarios(rows pgx.Rows) ([]*models.Scenario, error) {
	scenarios := make([]*models.Scenario, 0)

	for rows.Next() {
		var scenario models.Scenario
		var brief sql.NullString

		err := rows.Scan(
			&scenario.ID,
			&scenario.PersonalityID,
			&scenario.Title,
			&brief,
			&scenario.Backstory,
			&scenario.Objective,
			&scenario.Weight,
			&scenario.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		scenario.Brief = getString(brief)

		scenarios = append(scenarios, &scenario)
	}

	return scenarios, rows.Err()
}
