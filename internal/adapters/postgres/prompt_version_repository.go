package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finvox/tuneloop/internal/domain"
	"github.com/finvox/tuneloop/internal/domain/models"
)

// PromptVersionRepository implements ports.PromptVersionRepository.
// Prompt versions are append-only: there is no update or delete path.
type PromptVersionRepository struct {
	BaseRepository
}

// NewPromptVersionRepository creates a new prompt version repository
func NewPromptVersionRepository(pool *pgxpool.Pool) *PromptVersionRepository {
	return &PromptVersionRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

// Create persists a new prompt version
func (r *PromptVersionRepository) Create(ctx context.Context, prompt *models.PromptVersion) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO prompt_versions (
			id, name, text, version, created_at
		) VALUES (
			$1, $2, $3, $4, $5
		)`

	_, err := r.conn(ctx).Exec(ctx, query,
		prompt.ID,
		prompt.Name,
		prompt.Text,
		prompt.Version,
		prompt.CreatedAt,
	)

	return err
}

// GetByID retrieves a prompt version by ID
func (r *PromptVersionRepository) GetByID(ctx context.Context, id string) (*models.PromptVersion, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, name, text, version, created_at
		FROM prompt_versions
		WHERE id = $1`

	prompt, err := r.scanPrompt(r.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if checkNoRows(err) {
			return nil, domain.ErrPromptNotFound
		}
		return nil, err
	}

	return prompt, nil
}

// List retrieves prompt versions ordered by creation time, newest first
func (r *PromptVersionRepository) List(ctx context.Context, limit, offset int) ([]*models.PromptVersion, error) {
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
		SELECT id, name, text, version, created_at
		FROM prompt_versions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.conn(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanPrompts(rows)
}

// Count returns the total number of prompt versions
func (r *PromptVersionRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT COUNT(*) FROM prompt_versions`

	var count int
	err := r.conn(ctx).QueryRow(ctx, query).Scan(&count)
	return count, err
}

func (r *PromptVersionRepository) scanPrompt(row pgx.Row) (*models.PromptVersion, error) {
	var prompt models.PromptVersion

	err := row.Scan(
		&prompt.ID,
		&prompt.Name,
		&prompt.Text,
		&prompt.Version,
		&prompt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &prompt, nil
}

func (r *PromptVersionRepository) scanPrompts(rows pgx.Rows) ([]*models.PromptVersion, error) {
	prompts := make([]*models.PromptVersion, 0)

	for rows.Next() {
		var prompt models.PromptVersion

		err := rows.Scan(
			&prompt.ID,
			&prompt.Name,
			&prompt.Text,
			&prompt.Version,
			&prompt.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		prompts = append(prompts, &prompt)
	}

	return prompts, rows.Err()
}
