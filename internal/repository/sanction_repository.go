package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/escolalink/disciplina-api/internal/models"
)

// SanctionRepository manages persistence for generated sanctions.
type SanctionRepository struct {
	db *sqlx.DB
}

// NewSanctionRepository constructs a new repository.
func NewSanctionRepository(db *sqlx.DB) *SanctionRepository {
	return &SanctionRepository{db: db}
}

// Create inserts a generated sanction with its stored penalty value.
func (r *SanctionRepository) Create(ctx context.Context, sanction *models.Sanction) error {
	if sanction.ID == "" {
		sanction.ID = uuid.NewString()
	}
	if sanction.CreatedAt.IsZero() {
		sanction.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO sanctions (id, student_id, severity, penalty_value, reason, academic_year, created_at)
VALUES (:id, :student_id, :severity, :penalty_value, :reason, :academic_year, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sanction); err != nil {
		return fmt.Errorf("create sanction: %w", err)
	}
	return nil
}

// FindByID returns a single sanction.
func (r *SanctionRepository) FindByID(ctx context.Context, id string) (*models.Sanction, error) {
	const query = `SELECT id, student_id, severity, penalty_value, reason, academic_year, created_at
FROM sanctions WHERE id = $1`
	var sanction models.Sanction
	if err := r.db.GetContext(ctx, &sanction, query, id); err != nil {
		return nil, err
	}
	return &sanction, nil
}

// ListByStudent returns all sanctions for a student, newest first.
func (r *SanctionRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Sanction, error) {
	const query = `SELECT id, student_id, severity, penalty_value, reason, academic_year, created_at
FROM sanctions WHERE student_id = $1 ORDER BY created_at DESC`
	var sanctions []models.Sanction
	if err := r.db.SelectContext(ctx, &sanctions, query, studentID); err != nil {
		return nil, fmt.Errorf("list sanctions: %w", err)
	}
	return sanctions, nil
}

// Delete removes a sanction by ID.
func (r *SanctionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sanctions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete sanction: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
