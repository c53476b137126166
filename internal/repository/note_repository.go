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

// NoteRepository manages persistence for disciplinary notes.
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository constructs a new repository.
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create inserts a new note.
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO notes (id, student_id, severity, description, academic_year, recorded_by, created_at)
VALUES (:id, :student_id, :severity, :description, :academic_year, :recorded_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}

// FindByID returns a single note.
func (r *NoteRepository) FindByID(ctx context.Context, id string) (*models.Note, error) {
	const query = `SELECT id, student_id, severity, description, academic_year, recorded_by, created_at
FROM notes WHERE id = $1`
	var note models.Note
	if err := r.db.GetContext(ctx, &note, query, id); err != nil {
		return nil, err
	}
	return &note, nil
}

// ListByStudent returns all notes for a student, newest first.
func (r *NoteRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Note, error) {
	const query = `SELECT id, student_id, severity, description, academic_year, recorded_by, created_at
FROM notes WHERE student_id = $1 ORDER BY created_at DESC`
	var notes []models.Note
	if err := r.db.SelectContext(ctx, &notes, query, studentID); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// ListSeveritiesByStudent returns the severities of every note on record
// for a student. The accumulation evaluator only needs severities, so the
// narrower projection keeps the hot path cheap.
func (r *NoteRepository) ListSeveritiesByStudent(ctx context.Context, studentID string) ([]models.NoteSeverity, error) {
	const query = `SELECT severity FROM notes WHERE student_id = $1`
	var severities []models.NoteSeverity
	if err := r.db.SelectContext(ctx, &severities, query, studentID); err != nil {
		return nil, fmt.Errorf("list note severities: %w", err)
	}
	return severities, nil
}

// Delete removes a note by ID.
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM notes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
