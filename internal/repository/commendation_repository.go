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

// CommendationRepository manages persistence for commendations.
type CommendationRepository struct {
	db *sqlx.DB
}

// NewCommendationRepository constructs a new repository.
func NewCommendationRepository(db *sqlx.DB) *CommendationRepository {
	return &CommendationRepository{db: db}
}

// Create inserts a new commendation with its applied bonus value.
func (r *CommendationRepository) Create(ctx context.Context, commendation *models.Commendation) error {
	if commendation.ID == "" {
		commendation.ID = uuid.NewString()
	}
	if commendation.CreatedAt.IsZero() {
		commendation.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO commendations (id, student_id, kind, bonus_value, description, academic_year, recorded_by, created_at)
VALUES (:id, :student_id, :kind, :bonus_value, :description, :academic_year, :recorded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, commendation); err != nil {
		return fmt.Errorf("create commendation: %w", err)
	}
	return nil
}

// FindByID returns a single commendation.
func (r *CommendationRepository) FindByID(ctx context.Context, id string) (*models.Commendation, error) {
	const query = `SELECT id, student_id, kind, bonus_value, description, academic_year, recorded_by, created_at
FROM commendations WHERE id = $1`
	var commendation models.Commendation
	if err := r.db.GetContext(ctx, &commendation, query, id); err != nil {
		return nil, err
	}
	return &commendation, nil
}

// ListByStudent returns all commendations for a student, newest first.
func (r *CommendationRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Commendation, error) {
	const query = `SELECT id, student_id, kind, bonus_value, description, academic_year, recorded_by, created_at
FROM commendations WHERE student_id = $1 ORDER BY created_at DESC`
	var commendations []models.Commendation
	if err := r.db.SelectContext(ctx, &commendations, query, studentID); err != nil {
		return nil, fmt.Errorf("list commendations: %w", err)
	}
	return commendations, nil
}

// Delete removes a commendation by ID.
func (r *CommendationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM commendations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete commendation: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
