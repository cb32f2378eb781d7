package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finvox/tuneloop/internal/domain"
	"github.com/finvox/tuneloop/internal/domain/models"
)

// PersonalityRepository implements ports.PersonalityRepository
type PersonalityRepository struct {
	BaseRepository
}

// NewPersonalityRepository creates a new personality repository
func NewPersonalityRepository(pool *pgxpool.Pool) *PersonalityRepository {
	return &PersonalityRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

// Create persists a new personality
func (r *PersonalityRepository) Create(ctx context.Context, personality *models.Personality) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	traits, err := json.Marshal(personality.CoreTraits)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO personalities (
			id, name, description, core_traits, system_prompt, amount, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)`

	_, err = r.conn(ctx).Exec(ctx, query,
		personality.ID,
		personality.Name,
		nullString(personality.Description),
		traits,
		personality.SystemPrompt,
		nullFloatPtr(personality.Amount),
		personality.CreatedAt,
	)

	return err
}

// GetByID retrieves a personality by ID
func (r *PersonalityRepository) GetByID(ctx context.Context, id string) (*models.Personality, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, name, description, core_traits, system_prompt, amount, created_at
		FROM personalities
		WHERE id = $1`

	personality, err := r.scanPersonality(r.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if checkNoRows(err) {
			return nil, domain.ErrPersonalityNotFound
		}
		return nil, err
	}

	return personality, nil
}

// List retrieves personalities ordered by creation time, newest first
func (r *PersonalityRepository) List(ctx context.Context, limit, offset int) ([]*models.Personality, error) {
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
		SELECT id, name, description, core_traits, system_prompt, amount, created_at
		FROM personalities
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.conn(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanPersonalities(rows)
}

// Count returns the total number of personalities
func (r *PersonalityRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT COUNT(*) FROM personalities`

	var count int
	err := r.conn(ctx).QueryRow(ctx, query).Scan(&count)
	return count, err
}

func (r *PersonalityRepository) scanPersonality(row pgx.Row) (*models.Personality, error) {
	var personality models.Personality
	var description sql.NullString
	var traits []byte
	var amount sql.NullFloat64

	err := row.Scan(
		&personality.ID,
		&personality.Name,
		&description,
		&traits,
		&personality.SystemPrompt,
		&amount,
		&personality.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(traits) > 0 {
		if err := json.Unmarshal(traits, &personality.CoreTraits); err != nil {
			return nil, err
		}
	} else {
		personality.CoreTraits = make(map[string]string)
	}

	personality.Description = getString(description)
	personality.Amount = getFloatPtr(amount)

	return &personality, nil
}

func (r *PersonalityRepository) scanPersonalities(rows pgx.Rows) ([]*models.Personality, error) {
	personalities := make([]*models.Personality, 0)

	for rows.Next() {
		var personality models.Personality
		var description sql.NullString
		var traits []byte
		var amount sql.NullFloat64

		err := rows.Scan(
			&personality.ID,
			&personality.Name,
			&description,
			&traits,
			&personality.SystemPrompt,
			&amount,
			&personality.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if len(traits) > 0 {
			if err := json.Unmarshal(traits, &personality.CoreTraits); err != nil {
				return nil, err
			}
		} else {
			personality.CoreTraits = make(map[string]string)
		}

		personality.Description = getString(description)
		personality.Amount = getFloatPtr(amount)

		personalities = append(personalities, &personality)
	}

	return personalities, rows.Err()
}
