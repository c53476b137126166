package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escolalink/disciplina-api/internal/models"
)

func TestNoteRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewNoteRepository(db)

	mock.ExpectExec("INSERT INTO notes").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	note := &models.Note{StudentID: "s1", Severity: models.SeverityMinor, Description: "atraso", AcademicYear: 2026}
	err := repo.Create(context.Background(), note)
	require.NoError(t, err)
	assert.NotEmpty(t, note.ID)
	assert.False(t, note.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryListSeveritiesByStudent(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewNoteRepository(db)

	rows := sqlmock.NewRows([]string{"severity"}).
		AddRow("leve").AddRow("leve").AddRow("grave")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT severity FROM notes WHERE student_id = $1")).
		WithArgs("s1").
		WillReturnRows(rows)

	severities, err := repo.ListSeveritiesByStudent(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []models.NoteSeverity{models.SeverityMinor, models.SeverityMinor, models.SeveritySerious}, severities)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewNoteRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "severity", "description", "academic_year", "recorded_by", "created_at"}).
		AddRow("n1", "s1", "leve", "atraso", 2026, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, severity, description, academic_year, recorded_by, created_at\nFROM notes WHERE student_id = $1 ORDER BY created_at DESC")).
		WithArgs("s1").
		WillReturnRows(rows)

	notes, err := repo.ListByStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, models.SeverityMinor, notes[0].Severity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoteRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewNoteRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notes WHERE id = $1")).
		WithArgs("n1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "n1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM notes WHERE id = $1")).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "ghost")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}
