package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escolalink/disciplina-api/internal/models"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "registration", "full_name", "class_id", "disciplinary_score", "active", "created_at", "updated_at", "class_name", "class_year"}).
		AddRow("s1", "2026-001", "Ana Souza", "c1", 8.6, true, time.Now(), time.Now(), "3A", 2026)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT s.id, s.registration, s.full_name, s.class_id, s.disciplinary_score, s.active, s.created_at, s.updated_at,\n        c.name AS class_name, c.year AS class_year\n        FROM students s LEFT JOIN classes c ON c.id = s.class_id WHERE 1=1 ORDER BY s.created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students s LEFT JOIN classes c ON c.id = s.class_id WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{Registration: "2026-001", FullName: "Ana Souza", DisciplinaryScore: 8.0, Active: true}
	err := repo.Create(context.Background(), student)
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryExistsByRegistration(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE registration = $1")).
		WithArgs("2026-001").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ExistsByRegistration(context.Background(), "2026-001", "")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE registration = $1 AND id != $2")).
		WithArgs("2026-001", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	exists, err = repo.ExistsByRegistration(context.Background(), "2026-001", "s1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryIncrementScore(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE students\n        SET disciplinary_score = disciplinary_score + $1, updated_at = $2\n        WHERE id = $3\n        RETURNING disciplinary_score")).
		WithArgs(0.6, sqlmock.AnyArg(), "s1").
		WillReturnRows(sqlmock.NewRows([]string{"disciplinary_score"}).AddRow(8.6))

	newScore, err := repo.IncrementScore(context.Background(), "s1", 0.6)
	require.NoError(t, err)
	assert.InDelta(t, 8.6, newScore, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryIncrementScoreNegativeDelta(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("UPDATE students").
		WithArgs(-1.0, sqlmock.AnyArg(), "s1").
		WillReturnRows(sqlmock.NewRows([]string{"disciplinary_score"}).AddRow(-0.7))

	newScore, err := repo.IncrementScore(context.Background(), "s1", -1.0)
	require.NoError(t, err)
	assert.InDelta(t, -0.7, newScore, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryIncrementScoreMissingStudent(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("UPDATE students").
		WithArgs(0.4, sqlmock.AnyArg(), "ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.IncrementScore(context.Background(), "ghost", 0.4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryArchive(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET active = FALSE, updated_at = $1 WHERE id = $2")).
		WithArgs(sqlmock.AnyArg(), "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Archive(context.Background(), "s1"))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET active = FALSE, updated_at = $1 WHERE id = $2")).
		WithArgs(sqlmock.AnyArg(), "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Archive(context.Background(), "ghost")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}
