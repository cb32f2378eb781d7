package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finvox/tuneloop/internal/domain"
	"github.com/finvox/tuneloop/internal/domain/models"
)

// TuningRunRepository implements ports.TuningRunRepository
type TuningRunRepository struct {
	BaseRepository
}

// NewTuningRunRepository creates a new tuning run repository
func NewTuningRunRepository(pool *pgxpool.Pool) *TuningRunRepository {
	return &TuningRunRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

// Create persists a new tuning run
func (r *TuningRunRepository) Create(ctx context.Context, run *models.TuningRun) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	config, err := json.Marshal(run.Config)
	if err != nil {
		return err
	}

	iterations, err := json.Marshal(run.Iterations)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tuning_runs (
			id, status, config, iterations, final_prompt_id, error_message,
			created_at, started_at, completed_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err = r.conn(ctx).Exec(ctx, query,
		run.ID,
		run.Status,
		config,
		iterations,
		nullString(run.FinalPromptID),
		nullString(run.ErrorMessage),
		run.CreatedAt,
		nullTime(run.StartedAt),
		nullTime(run.CompletedAt),
		run.UpdatedAt,
	)

	return err
}

// GetByID retrieves a tuning run by ID
func (r *TuningRunRepository) GetByID(ctx context.Context, id string) (*models.TuningRun, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, status, config, iterations, final_prompt_id, error_message,
		       created_at, started_at, completed_at, updated_at
		FROM tuning_runs
		WHERE id = $1`

	run, err := r.scanRun(r.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if checkNoRows(err) {
			return nil, domain.ErrTuningRunNotFound
		}
		return nil, err
	}

	return run, nil
}

// List retrieves tuning runs ordered by creation time, newest first,
// optionally filtered by status
func (r *TuningRunRepository) List(ctx context.Context, status string, limit, offset int) ([]*models.TuningRun, error) {
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
		SELECT id, status, config, iterations, final_prompt_id, error_message,
		       created_at, started_at, completed_at, updated_at
		FROM tuning_runs`

	args := []interface{}{}
	argPos := 1

	if status != "" {
		query += fmt.Sprintf(" WHERE status = $%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += " ORDER BY created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanRuns(rows)
}

// Count returns the number of tuning runs, optionally filtered by status
func (r *TuningRunRepository) Count(ctx context.Context, status string) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT COUNT(*) FROM tuning_runs`
	args := []interface{}{}

	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}

	var count int
	err := r.conn(ctx).QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

// MarkRunning transitions a pending run to RUNNING. The guard on the current
// status keeps a replayed or duplicated start from touching a terminal run.
func (r *TuningRunRepository) MarkRunning(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE tuning_runs
		SET status = $1, started_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND status = $3`

	result, err := r.conn(ctx).Exec(ctx, query,
		models.TuningStatusRunning,
		id,
		models.TuningStatusPending,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return r.resolveTransitionError(ctx, id)
	}

	return nil
}

// AppendIteration appends a completed iteration to the run's iteration log.
// Only RUNNING runs accept appends; the log itself is never rewritten.
func (r *TuningRunRepository) AppendIteration(ctx context.Context, id string, iteration models.Iteration) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	entry, err := json.Marshal(iteration)
	if err != nil {
		return err
	}

	query := `
		UPDATE tuning_runs
		SET iterations = iterations || $1::jsonb, updated_at = NOW()
		WHERE id = $2 AND status = $3`

	result, err := r.conn(ctx).Exec(ctx, query, entry, id, models.TuningStatusRunning)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return r.resolveTransitionError(ctx, id)
	}

	return nil
}

// Complete transitions a running run to COMPLETED with its final prompt
func (r *TuningRunRepository) Complete(ctx context.Context, id, finalPromptID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE tuning_runs
		SET status = $1, final_prompt_id = $2, completed_at = NOW(), updated_at = NOW()
		WHERE id = $3 AND status = $4`

	result, err := r.conn(ctx).Exec(ctx, query,
		models.TuningStatusCompleted,
		finalPromptID,
		id,
		models.TuningStatusRunning,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return r.resolveTransitionError(ctx, id)
	}

	return nil
}

// Fail transitions a non-terminal run to FAILED with the given message
func (r *TuningRunRepository) Fail(ctx context.Context, id, message string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE tuning_runs
		SET status = $1, error_message = $2, completed_at = NOW(), updated_at = NOW()
		WHERE id = $3 AND status IN ($4, $5)`

	result, err := r.conn(ctx).Exec(ctx, query,
		models.TuningStatusFailed,
		message,
		id,
		models.TuningStatusPending,
		models.TuningStatusRunning,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return r.resolveTransitionError(ctx, id)
	}

	return nil
}

// resolveTransitionError distinguishes a missing run from a run whose status
// rejected the update
func (r *TuningRunRepository) resolveTransitionError(ctx context.Context, id string) error {
	run, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if run.IsTerminal() {
		return domain.ErrRunAlreadyTerminal
	}
	return domain.ErrRunNotRunning
}

func (r *TuningRunRepository) scanRun(row pgx.Row) (*models.TuningRun, error) {
	var run models.TuningRun
	var config []byte
	var iterations []byte
	var finalPromptID sql.NullString
	var errorMessage sql.NullString
	var startedAt sql.NullTime
	var completedAt sql.NullTime

	err := row.Scan(
		&run.ID,
		&run.Status,
		&config,
		&iterations,
		&finalPromptID,
		&errorMessage,
		&run.CreatedAt,
		&startedAt,
		&completedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSONField(config, &run.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run config: %w", err)
	}

	run.Iterations, err = unmarshalJSONSlice[models.Iteration](iterations)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal run iterations: %w", err)
	}
	if run.Iterations == nil {
		run.Iterations = []models.Iteration{}
	}

	run.FinalPromptID = getString(finalPromptID)
	run.ErrorMessage = getString(errorMessage)
	run.StartedAt = getTimePtr(startedAt)
	run.CompletedAt = getTimePtr(completedAt)

	return &run, nil
}

func (r *TuningRunRepository) scanRuns(rows pgx.Rows) ([]*models.TuningRun, error) {
	runs := make([]*models.TuningRun, 0)

	for rows.Next() {
		var run models.TuningRun
		var config []byte
		var iterations []byte
		var finalPromptID sql.NullString
		var errorMessage sql.NullString
		var startedAt sql.NullTime
		var completedAt sql.NullTime

		err := rows.Scan(
			&run.ID,
			&run.Status,
			&config,
			&iterations,
			&finalPromptID,
			&errorMessage,
			&run.CreatedAt,
			&startedAt,
			&completedAt,
			&run.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if err := unmarshalJSONField(config, &run.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run config: %w", err)
		}

		run.Iterations, err = unmarshalJSONSlice[models.Iteration](iterations)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal run iterations: %w", err)
		}
		if run.Iterations == nil {
			run.Iterations = []models.Iteration{}
		}

		run.FinalPromptID = getString(finalPromptID)
		run.ErrorMessage = getString(errorMessage)
		run.StartedAt = getTimePtr(startedAt)
		run.CompletedAt = getTimePtr(completedAt)

		runs = append(runs, &run)
	}

	return runs, rows.Err()
}
