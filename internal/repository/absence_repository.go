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

// AbsenceRepository manages persistence for absence records.
type AbsenceRepository struct {
	db *sqlx.DB
}

// NewAbsenceRepository constructs a new repository.
func NewAbsenceRepository(db *sqlx.DB) *AbsenceRepository {
	return &AbsenceRepository{db: db}
}

// Create inserts a new absence record.
func (r *AbsenceRepository) Create(ctx context.Context, absence *models.Absence) error {
	if absence.ID == "" {
		absence.ID = uuid.NewString()
	}
	if absence.CreatedAt.IsZero() {
		absence.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO absences (id, student_id, start_date, end_date, reason, detail, academic_year, recorded_by, created_at)
VALUES (:id, :student_id, :start_date, :end_date, :reason, :detail, :academic_year, :recorded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, absence); err != nil {
		return fmt.Errorf("create absence: %w", err)
	}
	return nil
}

// FindByID returns a single absence record.
func (r *AbsenceRepository) FindByID(ctx context.Context, id string) (*models.Absence, error) {
	const query = `SELECT id, student_id, start_date, end_date, reason, detail, academic_year, recorded_by, created_at
FROM absences WHERE id = $1`
	var absence models.Absence
	if err := r.db.GetContext(ctx, &absence, query, id); err != nil {
		return nil, err
	}
	return &absence, nil
}

// ListByStudent returns all absences for a student, newest first.
func (r *AbsenceRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Absence, error) {
	const query = `SELECT id, student_id, start_date, end_date, reason, detail, academic_year, recorded_by, created_at
FROM absences WHERE student_id = $1 ORDER BY created_at DESC`
	var absences []models.Absence
	if err := r.db.SelectContext(ctx, &absences, query, studentID); err != nil {
		return nil, fmt.Errorf("list absences: %w", err)
	}
	return absences, nil
}

// Delete removes an absence record by ID.
func (r *AbsenceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM absences WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete absence: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
