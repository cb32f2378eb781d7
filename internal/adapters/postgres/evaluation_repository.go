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

// EvaluationRepository implements ports.EvaluationRepository
type EvaluationRepository struct {
	BaseRepository
}

// NewEvaluationRepository creates a new evaluation repository
func NewEvaluationRepository(pool *pgxpool.Pool) *EvaluationRepository {
	return &EvaluationRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

// Create persists a new evaluation
func (r *EvaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	transcript, err := json.Marshal(evaluation.Transcript)
	if err != nil {
		return err
	}

	scores, err := marshalJSONField(evaluation.Scores)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO evaluations (
			id, prompt_id, scenario_id, run_id, status, transcript, scores,
			evaluator_analysis, error_message, created_at, completed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)`

	_, err = r.conn(ctx).Exec(ctx, query,
		evaluation.ID,
		evaluation.PromptID,
		evaluation.ScenarioID,
		nullString(evaluation.RunID),
		evaluation.Status,
		transcript,
		scores,
		nullString(evaluation.EvaluatorAnalysis),
		nullString(evaluation.ErrorMessage),
		evaluation.CreatedAt,
		nullTime(evaluation.CompletedAt),
	)

	return err
}

// GetByID retrieves an evaluation by ID
func (r *EvaluationRepository) GetByID(ctx context.Context, id string) (*models.Evaluation, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, prompt_id, scenario_id, run_id, status, transcript, scores,
		       evaluator_analysis, error_message, created_at, completed_at
		FROM evaluations
		WHERE id = $1`

	evaluation, err := r.scanEvaluation(r.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if checkNoRows(err) {
			return nil, domain.ErrEvaluationNotFound
		}
		return nil, err
	}

	return evaluation, nil
}

// GetByIDs retrieves the evaluations for the given IDs
func (r *EvaluationRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Evaluation, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if len(ids) == 0 {
		return []*models.Evaluation{}, nil
	}

	query := `
		SELECT id, prompt_id, scenario_id, run_id, status, transcript, scores,
		       evaluator_analysis, error_message, created_at, completed_at
		FROM evaluations
		WHERE id = ANY($1)`

	rows, err := r.conn(ctx).Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanEvaluations(rows)
}

// Update rewrites the mutable fields of an evaluation record
func (r *EvaluationRepository) Update(ctx context.Context, evaluation *models.Evaluation) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	transcript, err := json.Marshal(evaluation.Transcript)
	if err != nil {
		return err
	}

	scores, err := marshalJSONField(evaluation.Scores)
	if err != nil {
		return err
	}

	query := `
		UPDATE evaluations
		SET status = $1, transcript = $2, scores = $3, evaluator_analysis = $4,
		    error_message = $5, completed_at = $6
		WHERE id = $7`

	result, err := r.conn(ctx).Exec(ctx, query,
		evaluation.Status,
		transcript,
		scores,
		nullString(evaluation.EvaluatorAnalysis),
		nullString(evaluation.ErrorMessage),
		nullTime(evaluation.CompletedAt),
		evaluation.ID,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrEvaluationNotFound
	}

	return nil
}

// ListByRun retrieves all evaluations belonging to a tuning run, oldest first
func (r *EvaluationRepository) ListByRun(ctx context.Context, runID string) ([]*models.Evaluation, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, prompt_id, scenario_id, run_id, status, transcript, scores,
		       evaluator_analysis, error_message, created_at, completed_at
		FROM evaluations
		WHERE run_id = $1
		ORDER BY created_at ASC`

	rows, err := r.conn(ctx).Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanEvaluations(rows)
}

// List retrieves evaluations ordered by creation time, newest first
func (r *EvaluationRepository) List(ctx context.Context, limit, offset int) ([]*models.Evaluation, error) {
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
		SELECT id, prompt_id, scenario_id, run_id, status, transcript, scores,
		       evaluator_analysis, error_message, created_at, completed_at
		FROM evaluations
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.conn(ctx).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanEvaluations(rows)
}

// Count returns the total number of evaluations
func (r *EvaluationRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT COUNT(*) FROM evaluations`

	var count int
	err := r.conn(ctx).QueryRow(ctx, query).Scan(&count)
	return count, err
}

func (r *EvaluationRepository) scanEvaluation(row pgx.Row) (*models.Evaluation, error) {
	var evaluation models.Evaluation
	var runID sql.NullString
	var transcript []byte
	var scores []byte
	var analysis sql.NullString
	var errorMessage sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&evaluation.ID,
		&evaluation.PromptID,
		&evaluation.ScenarioID,
		&runID,
		&evaluation.Status,
		&transcript,
		&scores,
		&analysis,
		&errorMessage,
		&evaluation.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	evaluation.Transcript, err = unmarshalJSONSlice[models.TranscriptMessage](transcript)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}

	evaluation.Scores, err = unmarshalJSONPointer[models.EvaluationScores](scores)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal scores: %w", err)
	}

	evaluation.RunID = getString(runID)
	evaluation.EvaluatorAnalysis = getString(analysis)
	evaluation.ErrorMessage = getString(errorMessage)
	evaluation.CompletedAt = getTimePtr(completedAt)

	return &evaluation, nil
}

func (r *EvaluationRepository) scanEvaluations(rows pgx.Rows) ([]*models.Evaluation, error) {
	evaluations := make([]*models.Evaluation, 0)

	for rows.Next() {
		var evaluation models.Evaluation
		var runID sql.NullString
		var transcript []byte
		var scores []byte
		var analysis sql.NullString
		var errorMessage sql.NullString
		var completedAt sql.NullTime

		err := rows.Scan(
			&evaluation.ID,
			&evaluation.PromptID,
			&evaluation.ScenarioID,
			&runID,
			&evaluation.Status,
			&transcript,
			&scores,
			&analysis,
			&errorMessage,
			&evaluation.CreatedAt,
			&completedAt,
		)
		if err != nil {
			return nil, err
		}

		evaluation.Transcript, err = unmarshalJSONSlice[models.TranscriptMessage](transcript)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
		}

		evaluation.Scores, err = unmarshalJSONPointer[models.EvaluationScores](scores)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal scores: %w", err)
		}

		evaluation.RunID = getString(runID)
		evaluation.EvaluatorAnalysis = getString(analysis)
		evaluation.ErrorMessage = getString(errorMessage)
		evaluation.CompletedAt = getTimePtr(completedAt)

		evaluations = append(evaluations, &evaluation)
	}

	return evaluations, rows.Err()
}
