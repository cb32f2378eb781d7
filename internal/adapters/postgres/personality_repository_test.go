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

func TestPersonalityRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &PersonalityRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	amount := 15000.0
	personality := models.NewPersonality("tpe_1", "Rajesh Kumar", "Recently unemployed",
		"You are Rajesh Kumar, a polite but evasive debtor.",
		map[string]string{"tone": "polite", "tactic": "evasive"}, &amount)

	traits, err := json.Marshal(personality.CoreTraits)
	if err != nil {
		t.Fatal(err)
	}

	mock.ExpectExec("INSERT INTO personalities").
		WithArgs(personality.ID, personality.Name, nullString(personality.Description),
			traits, personality.SystemPrompt, nullFloatPtr(personality.Amount),
			personality.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	err = repo.Create(ctx, personality)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPersonalityRepository_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &PersonalityRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	now := time.Now()
	traits := []byte(`{"tone":"polite","tactic":"evasive"}`)

	rows := pgxmock.NewRows([]string{"id", "name", "description", "core_traits", "system_prompt", "amount", "created_at"}).
		AddRow("tpe_1", "Rajesh Kumar", nullString("Recently unemployed"), traits,
			"You are Rajesh Kumar, a polite but evasive debtor.",
			sql.NullFloat64{Float64: 15000.0, Valid: true}, now)

	mock.ExpectQuery("SELECT (.+) FROM personalities").
		WithArgs("tpe_1").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	personality, err := repo.GetByID(ctx, "tpe_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if personality.Name != "Rajesh Kumar" {
		t.Errorf("unexpected name: %s", personality.Name)
	}

	if personality.CoreTraits["tactic"] != "evasive" {
		t.Errorf("unexpected traits: %v", personality.CoreTraits)
	}

	if personality.Amount == nil || *personality.Amount != 15000.0 {
		t.Errorf("unexpected amount: %v", personality.Amount)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPersonalityRepository_GetByID_EmptyTraits(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &PersonalityRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	now := time.Now()

	rows := pgxmock.NewRows([]string{"id", "name", "description", "core_traits", "system_prompt", "amount", "created_at"}).
		AddRow("tpe_2", "Meena Sharma", nullString(""), []byte(nil),
			"You are Meena Sharma.", sql.NullFloat64{}, now)

	mock.ExpectQuery("SELECT (.+) FROM personalities").
		WithArgs("tpe_2").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	personality, err := repo.GetByID(ctx, "tpe_2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if personality.CoreTraits == nil {
		t.Error("expected initialized traits map")
	}

	if len(personality.CoreTraits) != 0 {
		t.Errorf("expected empty traits, got %v", personality.CoreTraits)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPersonalityRepository_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &PersonalityRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	mock.ExpectQuery("SELECT (.+) FROM personalities").
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	ctx := setupMockContext(mock)
	_, err = repo.GetByID(ctx, "nonexistent")
	if !errors.Is(err, domain.ErrPersonalityNotFound) {
		t.Errorf("expected ErrPersonalityNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPersonalityRepository_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &PersonalityRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	now := time.Now()

	rows := pgxmock.NewRows([]string{"id", "name", "description", "core_traits", "system_prompt", "amount", "created_at"}).
		AddRow("tpe_2", "Meena Sharma", nullString(""), []byte(nil),
			"You are Meena Sharma.", sql.NullFloat64{}, now).
		AddRow("tpe_1", "Rajesh Kumar", nullString("Recently unemployed"), []byte(`{"tone":"polite"}`),
			"You are Rajesh Kumar.", sql.NullFloat64{Float64: 15000.0, Valid: true}, now.Add(-time.Hour))

	mock.ExpectQuery("SELECT (.+) FROM personalities").
		WithArgs(50, 0).
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	personalities, err := repo.List(ctx, 0, -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(personalities) != 2 {
		t.Fatalf("expected 2 personalities, got %d", len(personalities))
	}

	if personalities[0].ID != "tpe_2" {
		t.Errorf("expected newest first, got %s", personalities[0].ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPersonalityRepository_Count(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := &PersonalityRepository{
		BaseRepository: BaseRepository{pool: nil},
	}

	rows := pgxmock.NewRows([]string{"count"}).AddRow(3)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(rows)

	ctx := setupMockContext(mock)
	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
