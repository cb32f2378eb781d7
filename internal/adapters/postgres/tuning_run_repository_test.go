package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/finvox/tuneloop/internal/domain"
	"github.com/finvox/tuneloop/internal/domain/models"
)

func TestTuningRunRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &TuningRunRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	run := models.NewTuningRun("tr_1", models.TuningConfiguration{
		InitialPromptID: "tp_1",
		TargetScore:     85.0,
		MaxIterations:   5,
		Scenarios: []models.ScenarioWeight{
			{ScenarioID: "tsc_1", Weight: 5},
			{ScenarioID: "tsc_2", Weight: 3},
		},
	})

	mock.ExpectExec("INSERT INTO tuning_runs").
		WithArgs(
			run.ID, run.Status, pgxmock.AnyArg(), pgxmock.AnyArg(),
			sql.NullString{}, sql.NullString{},
			run.CreatedAt, sql.NullTime{}, sql.NullTime{}, run.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	err = repo.Create(ctx, run)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTuningRunRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &TuningRunRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	now := time.Now()
	config := models.TuningConfiguration{
		InitialPromptID: "tp_1",
		TargetScore:     85.0,
		MaxIterations:   5,
		Scenarios:       []models.ScenarioWeight{{ScenarioID: "tsc_1", Weight: 5}},
	}
	configJSON, _ := json.Marshal(config)
	iterations := []models.Iteration{
		{Sequence: 1, PromptID: "tp_1", EvaluationIDs: []string{"te_1"}, WeightedScore: 71.25, CreatedAt: now},
	}
	iterationsJSON, _ := json.Marshal(iterations)

	rows := pgxmock.NewRows([]string{
		"id", "status", "config", "iterations", "final_prompt_id", "error_message",
		"created_at", "started_at", "completed_at", "updated_at",
	}).
		AddRow("tr_1", models.TuningStatusRunning, configJSON, iterationsJSON,
			sql.NullString{}, sql.NullString{},
			now, sql.NullTime{Time: now, Valid: true}, sql.NullTime{}, now)

	mock.ExpectQuery("SELECT (.+) FROM tuning_runs").
		WithArgs("tr_1").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	run, err := repo.GetByID(ctx, "tr_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run.ID != "tr_1" {
		t.Errorf("expected ID tr_1, got %s", run.ID)
	}

	if run.Status != models.TuningStatusRunning {
		t.Errorf("expected status RUNNING, got %s", run.Status)
	}

	if run.Config.TargetScore != 85.0 {
		t.Errorf("expected target score 85.0, got %f", run.Config.TargetScore)
	}

	if len(run.Iterations) != 1 {
		t.Fatalf("expected 1 iteration, got %d", len(run.Iterations))
	}

	if run.Iterations[0].WeightedScore != 71.25 {
		t.Errorf("expected weighted score 71.25, got %f", run.Iterations[0].WeightedScore)
	}

	if run.StartedAt == nil {
		t.Error("expected StartedAt to be set")
	}

	if run.CompletedAt != nil {
		t.Error("expected CompletedAt to be nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTuningRunRepository_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &TuningRunRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	mock.ExpectQuery("SELECT (.+) FROM tuning_runs").
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	ctx := setupMockContext(mock)
	_, err = repo.GetByID(ctx, "nonexistent")
	if !errors.Is(err, domain.ErrTuningRunNotFound) {
		t.Errorf("expected ErrTuningRunNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTuningRunRepository_GetByID_EmptyIterations(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &TuningRunRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	now := time.Now()
	configJSON, _ := json.Marshal(models.TuningConfiguration{InitialPromptID: "tp_1"})

	rows := pgxmock.NewRows([]string{
		"id", "status", "config", "iterations", "final_prompt_id", "error_message",
		"created_at", "started_at", "completed_at", "updated_at",
	}).
		AddRow("tr_1", models.TuningStatusPending, configJSON, []byte("[]"),
			sql.NullString{}, sql.NullString{},
			now, sql.NullTime{}, sql.NullTime{}, now)

	mock.ExpectQuery("SELECT (.+) FROM tuning_runs").
		WithArgs("tr_1").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	run, err := repo.GetByID(ctx, "tr_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if run.Iterations == nil {
		t.Error("expected Iterations to be non-nil")
	}

	if len(run.Iterations) != 0 {
		t.Errorf("expected 0 iterations, got %d", len(run.Iterations))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTuningRunRepository_List_WithStatusFilter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &TuningRunRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	now := time.Now()
	configJSON, _ := json.Marshal(models.TuningConfiguration{InitialPromptID: "tp_1"})

	rows := pgxmock.NewRows([]string{
		"id", "status", "config", "iterations", "final_prompt_id", "error_message",
		"created_at", "started_at", "completed_at", "updated_at",
	}).
		AddRow("tr_2", models.TuningStatusCompleted, configJSON, []byte("[]"),
			sql.NullString{String: "tp_9", Valid: true}, sql.NullString{},
			now, sql.NullTime{Time: now, Valid: true}, sql.NullTime{Time: now, Valid: true}, now)

	mock.ExpectQuery("SELECT (.+) FROM tuning_runs").
		WithArgs(string(models.TuningStatusCompleted), 50, 0).
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	runs, err := repo.List(ctx, string(models.TuningStatusCompleted), 50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}

	if runs[0].FinalPromptID != "tp_9" {
		t.Errorf("expected final prompt tp_9, got %s", runs[0].FinalPromptID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTuningRunRepository_MarkRunning(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &TuningRunRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	mock.ExpectExec("UPDATE tuning_runs").
		WithArgs(models.TuningStatusRunning, "tr_1", models.TuningStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ctx := setupMockContext(mock)
	err = repo.MarkRunning(ctx, "tr_1")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTuningRunRepository_MarkRunning_AlreadyTerminal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &TuningRunRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	now := time.Now()
	configJSON, _ := json.Marshal(models.TuningConfiguration{InitialPromptID: "tp_1"})

	mock.ExpectExec("UPDATE tuning_runs").
		WithArgs(models.TuningStatusRunning, "tr_1", models.TuningStatusPending).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	rows := pgxmock.NewRows([]string{
		"id", "status", "config", "iterations", "final_prompt_id", "error_message",
		"created_at", "started_at", "completed_at", "updated_at",
	}).
		AddRow("tr_1", models.TuningStatusFailed, configJSON, []byte("[]"),
			sql.NullString{}, sql.NullString{String: "boom", Valid: true},
			now, sql.NullTime{Time: now, Valid: true}, sql.NullTime{Time: now, Valid: true}, now)

	mock.ExpectQuery("SELECT (.+) FROM tuning_runs").
		WithArgs("tr_1").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	err = repo.MarkRunning(ctx, "tr_1")
	if !errors.Is(err, domain.ErrRunAlreadyTerminal) {
		t.Errorf("expected ErrRunAlreadyTerminal, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTuningRunRepository_AppendIteration(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &TuningRunRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	iteration := models.NewIteration(1, "tp_1", []string{"te_1", "te_2"}, 71.25)

	mock.ExpectExec("UPDATE tuning_runs").
		WithArgs(pgxmock.AnyArg(), "tr_1", models.TuningStatusRunning).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ctx := setupMockContext(mock)
	err = repo.AppendIteration(ctx, "tr_1", iteration)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTuningRunRepository_AppendIteration_NotRunning(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &TuningRunRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	now := time.Now()
	configJSON, _ := json.Marshal(models.TuningConfiguration{InitialPromptID: "tp_1"})

	mock.ExpectExec("UPDATE tuning_runs").
		WithArgs(pgxmock.AnyArg(), "tr_1", models.TuningStatusRunning).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	rows := pgxmock.NewRows([]string{
		"id", "status", "config", "iterations", "final_prompt_id", "error_message",
		"created_at", "started_at", "completed_at", "updated_at",
	}).
		AddRow("tr_1", models.TuningStatusPending, configJSON, []byte("[]"),
			sql.NullString{}, sql.NullString{},
			now, sql.NullTime{}, sql.NullTime{}, now)

	mock.ExpectQuery("SELECT (.+) FROM tuning_runs").
		WithArgs("tr_1").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	err = repo.AppendIteration(ctx, "tr_1", models.NewIteration(1, "tp_1", nil, 50.0))
	if !errors.Is(err, domain.ErrRunNotRunning) {
		t.Errorf("expected ErrRunNotRunning, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTuningRunRepository_Complete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &TuningRunRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	mock.ExpectExec("UPDATE tuning_runs").
		WithArgs(models.TuningStatusCompleted, "tp_9", "tr_1", models.TuningStatusRunning).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ctx := setupMockContext(mock)
	err = repo.Complete(ctx, "tr_1", "tp_9")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTuningRunRepository_Fail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &TuningRunRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	mock.ExpectExec("UPDATE tuning_runs").
		WithArgs(models.TuningStatusFailed, "scenario fetch failed", "tr_1",
			models.TuningStatusPending, models.TuningStatusRunning).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ctx := setupMockContext(mock)
	err = repo.Fail(ctx, "tr_1", "scenario fetch failed")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
