package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/escolalink/disciplina-api/internal/models"
	appErrors "github.com/escolalink/disciplina-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// ClassRoster pairs a class with its active students and their display tiers.
type ClassRoster struct {
	Class    models.Class  `json:"class"`
	Students []RosterEntry `json:"students"`
}

// RosterEntry is one student row in a class roster.
type RosterEntry struct {
	Student models.Student   `json:"student"`
	Tier    models.GradeTier `json:"tier"`
}

// ClassService coordinates read-side class operations.
type ClassService struct {
	classes  classRepository
	students studentReader
	logger   *zap.Logger
}

// NewClassService constructs the class service.
func NewClassService(classes classRepository, students studentReader, logger *zap.Logger) *ClassService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{classes: classes, students: students, logger: logger}
}

// List returns classes and pagination metadata.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	classes, total, err := s.classes.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return classes, pagination, nil
}

// Get returns a single class.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Roster returns the active students of a class with their score tiers.
func (s *ClassService) Roster(ctx context.Context, id string) (*ClassRoster, error) {
	class, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	students, err := s.students.ListActiveByClass(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class students")
	}
	roster := &ClassRoster{Class: *class, Students: make([]RosterEntry, 0, len(students))}
	for _, student := range students {
		roster.Students = append(roster.Students, RosterEntry{
			Student: student,
			Tier:    MapScoreToTier(student.DisciplinaryScore),
		})
	}
	return roster, nil
}
