package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/escolalink/disciplina-api/internal/models"
	"github.com/escolalink/disciplina-api/internal/repository"
	appErrors "github.com/escolalink/disciplina-api/pkg/errors"
)

type noteStore interface {
	Create(ctx context.Context, note *models.Note) error
	FindByID(ctx context.Context, id string) (*models.Note, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Note, error)
	ListSeveritiesByStudent(ctx context.Context, studentID string) ([]models.NoteSeverity, error)
	Delete(ctx context.Context, id string) error
}

type commendationStore interface {
	Create(ctx context.Context, commendation *models.Commendation) error
	FindByID(ctx context.Context, id string) (*models.Commendation, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Commendation, error)
	Delete(ctx context.Context, id string) error
}

type sanctionStore interface {
	Create(ctx context.Context, sanction *models.Sanction) error
	FindByID(ctx context.Context, id string) (*models.Sanction, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Sanction, error)
	Delete(ctx context.Context, id string) error
}

type absenceStore interface {
	Create(ctx context.Context, absence *models.Absence) error
	FindByID(ctx context.Context, id string) (*models.Absence, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Absence, error)
	Delete(ctx context.Context, id string) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	ListActiveByClass(ctx context.Context, classID string) ([]models.Student, error)
}

type classReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type scoreLedger interface {
	ApplyDelta(ctx context.Context, studentID string, delta float64) (float64, error)
	ReverseDelta(ctx context.Context, studentID string, originalDelta float64) (float64, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type sanctionRecorder interface {
	RecordSanctionGenerated(count int)
}

// DisciplineService orchestrates the per-action workflows over discipline
// records: persist the primary record, run accumulation, persist generated
// sanctions, and push the net delta through the score ledger.
type DisciplineService struct {
	notes         noteStore
	commendations commendationStore
	sanctions     sanctionStore
	absences      absenceStore
	students      studentReader
	classes       classReader
	ledger        scoreLedger
	cache         summaryCache
	metrics       sanctionRecorder
	rules         DisciplineRules
	cacheTTL      time.Duration
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewDisciplineService constructs the service. cache may be nil.
func NewDisciplineService(
	notes noteStore,
	commendations commendationStore,
	sanctions sanctionStore,
	absences absenceStore,
	students studentReader,
	classes classReader,
	ledger scoreLedger,
	cache summaryCache,
	metrics sanctionRecorder,
	rules DisciplineRules,
	cacheTTL time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *DisciplineService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	svc := &DisciplineService{
		notes:         notes,
		commendations: commendations,
		sanctions:     sanctions,
		absences:      absences,
		students:      students,
		classes:       classes,
		ledger:        ledger,
		cache:         cache,
		metrics:       metrics,
		rules:         rules,
		cacheTTL:      cacheTTL,
		validator:     validate,
		logger:        logger,
	}
	svc.validator.RegisterValidation("note_severity", func(fl validator.FieldLevel) bool {
		return models.ValidNoteSeverity(models.NoteSeverity(fl.Field().String()))
	})
	svc.validator.RegisterValidation("commendation_kind", func(fl validator.FieldLevel) bool {
		return models.ValidCommendationKind(models.CommendationKind(fl.Field().String()))
	})
	return svc
}

// RecordNoteRequest describes the note creation payload.
type RecordNoteRequest struct {
	StudentID   string `json:"student_id" validate:"required"`
	Severity    string `json:"severity" validate:"required,note_severity"`
	Description string `json:"description" validate:"required"`
	RecordedBy  string `json:"-"`
}

// RecordCommendationRequest describes the commendation creation payload.
type RecordCommendationRequest struct {
	StudentID   string `json:"student_id" validate:"required"`
	Kind        string `json:"kind" validate:"required,commendation_kind"`
	Description string `json:"description"`
	RecordedBy  string `json:"-"`
}

// RecordAbsenceRequest describes the absence creation payload.
type RecordAbsenceRequest struct {
	StudentID  string    `json:"student_id" validate:"required"`
	StartDate  time.Time `json:"start_date" validate:"required"`
	EndDate    time.Time `json:"end_date" validate:"required"`
	Reason     string    `json:"reason" validate:"required"`
	Detail     string    `json:"detail"`
	RecordedBy string    `json:"-"`
}

// BulkApplyRequest applies one note or commendation to every active
// student in a class.
type BulkApplyRequest struct {
	Operation   string `json:"operation" validate:"required,oneof=note commendation"`
	Severity    string `json:"severity"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	RecordedBy  string `json:"-"`
}

// NoteRecorded is the result of a note workflow: the persisted note, any
// sanctions generated by accumulation, and the updated score when a delta
// was applied.
type NoteRecorded struct {
	Note      *models.Note      `json:"note"`
	Sanctions []models.Sanction `json:"sanctions,omitempty"`
	NewScore  *float64          `json:"new_score,omitempty"`
}

// CommendationRecorded is the result of a commendation workflow.
type CommendationRecorded struct {
	Commendation *models.Commendation `json:"commendation"`
	NewScore     *float64             `json:"new_score,omitempty"`
}

// RecordNote persists a disciplinary note, evaluates accumulation against
// the pre-insertion history, persists any generated sanctions, and applies
// the net penalty to the score ledger.
//
// If the note fails to persist nothing else happens. If the note (and any
// sanctions) are committed but the score update fails, the returned error
// carries the SCORE_OUT_OF_SYNC code and the result is still populated:
// the record exists, only the score is suspect.
func (s *DisciplineService) RecordNote(ctx context.Context, req RecordNoteRequest) (*NoteRecorded, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid note payload")
	}

	student, err := s.fetchStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	// The history must be read before the insert so the new note is not
	// counted twice by the accumulation evaluator.
	prior, err := s.notes.ListSeveritiesByStudent(ctx, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load note history")
	}

	now := time.Now().UTC()
	note := &models.Note{
		StudentID:    req.StudentID,
		Severity:     models.NoteSeverity(req.Severity),
		Description:  req.Description,
		AcademicYear: student.AcademicYear(now),
		RecordedBy:   optionalActor(req.RecordedBy),
	}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create note")
	}

	result := &NoteRecorded{Note: note}

	drafts := EvaluateAccumulation(s.rules, note.Severity, prior)
	var penaltyTotal float64
	var sanctionErr error
	for _, draft := range drafts {
		sanction := &models.Sanction{
			StudentID:    req.StudentID,
			Severity:     draft.Severity,
			PenaltyValue: draft.PenaltyValue,
			Reason:       draft.Reason,
			AcademicYear: note.AcademicYear,
		}
		if err := s.sanctions.Create(ctx, sanction); err != nil {
			sanctionErr = err
			break
		}
		result.Sanctions = append(result.Sanctions, *sanction)
		penaltyTotal += sanction.PenaltyValue
	}

	if s.metrics != nil && len(result.Sanctions) > 0 {
		s.metrics.RecordSanctionGenerated(len(result.Sanctions))
	}

	if penaltyTotal != 0 {
		newScore, err := s.ledger.ApplyDelta(ctx, req.StudentID, -penaltyTotal)
		if err != nil {
			return result, err
		}
		result.NewScore = &newScore
	}

	if sanctionErr != nil {
		// The note is committed and some sanctions may be missing; the
		// visible history no longer matches what accumulation decided.
		return result, appErrors.Wrap(sanctionErr, appErrors.ErrScoreOutOfSync.Code, appErrors.ErrScoreOutOfSync.Status, "note saved but a generated sanction failed to persist")
	}
	return result, nil
}

// RecordCommendation persists a commendation and applies its bonus to the
// score ledger. The bonus looked up at creation time is stored on the
// record so a later deletion reverses the exact value.
func (s *DisciplineService) RecordCommendation(ctx context.Context, req RecordCommendationRequest) (*CommendationRecorded, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid commendation payload")
	}

	student, err := s.fetchStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	kind := models.CommendationKind(req.Kind)
	commendation := &models.Commendation{
		StudentID:    req.StudentID,
		Kind:         kind,
		BonusValue:   s.rules.BonusFor(kind),
		Description:  req.Description,
		AcademicYear: student.AcademicYear(now),
		RecordedBy:   optionalActor(req.RecordedBy),
	}
	if err := s.commendations.Create(ctx, commendation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create commendation")
	}

	result := &CommendationRecorded{Commendation: commendation}
	if commendation.BonusValue != 0 {
		newScore, err := s.ledger.ApplyDelta(ctx, req.StudentID, commendation.BonusValue)
		if err != nil {
			return result, err
		}
		result.NewScore = &newScore
	}
	return result, nil
}

// RecordAbsence persists an absence record. Absences never touch the score.
func (s *DisciplineService) RecordAbsence(ctx context.Context, req RecordAbsenceRequest) (*models.Absence, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid absence payload")
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not precede start_date")
	}

	student, err := s.fetchStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	absence := &models.Absence{
		StudentID:    req.StudentID,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Reason:       req.Reason,
		Detail:       req.Detail,
		AcademicYear: student.AcademicYear(now),
		RecordedBy:   optionalActor(req.RecordedBy),
	}
	if err := s.absences.Create(ctx, absence); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create absence")
	}
	return absence, nil
}

// DeleteHistoryItem removes a single history record. Deleting a
// commendation or sanction reverses the exact score contribution stored on
// the record. Deleting a note never reverses sanctions it may have
// generated, and absences never carried a score effect to begin with.
func (s *DisciplineService) DeleteHistoryItem(ctx context.Context, category models.HistoryCategory, id string) error {
	if !models.ValidHistoryCategory(category) {
		return appErrors.Clone(appErrors.ErrValidation, "unknown history category")
	}

	switch category {
	case models.HistoryNote:
		if _, err := s.notes.FindByID(ctx, id); err != nil {
			return s.deleteLookupError(err, "note")
		}
		if err := s.notes.Delete(ctx, id); err != nil {
			return s.deleteError(err, "note")
		}
		return nil

	case models.HistoryCommendation:
		commendation, err := s.commendations.FindByID(ctx, id)
		if err != nil {
			return s.deleteLookupError(err, "commendation")
		}
		if err := s.commendations.Delete(ctx, id); err != nil {
			return s.deleteError(err, "commendation")
		}
		if commendation.BonusValue != 0 {
			if _, err := s.ledger.ReverseDelta(ctx, commendation.StudentID, commendation.BonusValue); err != nil {
				return err
			}
		}
		return nil

	case models.HistorySanction:
		sanction, err := s.sanctions.FindByID(ctx, id)
		if err != nil {
			return s.deleteLookupError(err, "sanction")
		}
		if err := s.sanctions.Delete(ctx, id); err != nil {
			return s.deleteError(err, "sanction")
		}
		if sanction.PenaltyValue != 0 {
			if _, err := s.ledger.ReverseDelta(ctx, sanction.StudentID, -sanction.PenaltyValue); err != nil {
				return err
			}
		}
		return nil

	default: // models.HistoryAbsence
		if _, err := s.absences.FindByID(ctx, id); err != nil {
			return s.deleteLookupError(err, "absence")
		}
		if err := s.absences.Delete(ctx, id); err != nil {
			return s.deleteError(err, "absence")
		}
		return nil
	}
}

// BulkApply applies one note or commendation to every active student in a
// class, sequentially. A per-student failure never aborts the batch; each
// outcome lands in the returned summary.
func (s *DisciplineService) BulkApply(ctx context.Context, classID string, req BulkApplyRequest) (*models.BulkSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload")
	}
	switch req.Operation {
	case "note":
		if !models.ValidNoteSeverity(models.NoteSeverity(req.Severity)) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid note severity")
		}
		if req.Description == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "description is required for notes")
		}
	case "commendation":
		if !models.ValidCommendationKind(models.CommendationKind(req.Kind)) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid commendation kind")
		}
	}

	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	students, err := s.students.ListActiveByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class students")
	}

	summary := &models.BulkSummary{ClassID: classID, Total: len(students)}
	for _, student := range students {
		var opErr error
		switch req.Operation {
		case "note":
			_, opErr = s.RecordNote(ctx, RecordNoteRequest{
				StudentID:   student.ID,
				Severity:    req.Severity,
				Description: req.Description,
				RecordedBy:  req.RecordedBy,
			})
		case "commendation":
			_, opErr = s.RecordCommendation(ctx, RecordCommendationRequest{
				StudentID:   student.ID,
				Kind:        req.Kind,
				Description: req.Description,
				RecordedBy:  req.RecordedBy,
			})
		}

		outcome := models.BulkOutcome{StudentID: student.ID, Succeeded: opErr == nil}
		if opErr != nil {
			outcome.Error = appErrors.FromError(opErr).Message
			summary.Failed++
			s.logger.Warn("bulk apply failed for student",
				zap.String("class_id", classID),
				zap.String("student_id", student.ID),
				zap.Error(opErr))
		} else {
			summary.Succeeded++
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
	}
	return summary, nil
}

// ListHistory returns a student's merged discipline history, newest first.
func (s *DisciplineService) ListHistory(ctx context.Context, studentID string) ([]models.HistoryItem, error) {
	if _, err := s.fetchStudent(ctx, studentID); err != nil {
		return nil, err
	}

	notes, err := s.notes.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notes")
	}
	commendations, err := s.commendations.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list commendations")
	}
	sanctions, err := s.sanctions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sanctions")
	}
	absences, err := s.absences.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list absences")
	}

	items := make([]models.HistoryItem, 0, len(notes)+len(commendations)+len(sanctions)+len(absences))
	for _, n := range notes {
		items = append(items, models.HistoryItem{
			ID:           n.ID,
			Category:     models.HistoryNote,
			StudentID:    n.StudentID,
			Label:        string(n.Severity),
			Description:  n.Description,
			AcademicYear: n.AcademicYear,
			RecordedBy:   n.RecordedBy,
			CreatedAt:    n.CreatedAt,
		})
	}
	for _, c := range commendations {
		items = append(items, models.HistoryItem{
			ID:           c.ID,
			Category:     models.HistoryCommendation,
			StudentID:    c.StudentID,
			Label:        string(c.Kind),
			Description:  c.Description,
			ScoreEffect:  c.BonusValue,
			AcademicYear: c.AcademicYear,
			RecordedBy:   c.RecordedBy,
			CreatedAt:    c.CreatedAt,
		})
	}
	for _, sa := range sanctions {
		items = append(items, models.HistoryItem{
			ID:           sa.ID,
			Category:     models.HistorySanction,
			StudentID:    sa.StudentID,
			Label:        string(sa.Severity),
			Description:  sa.Reason,
			ScoreEffect:  -sa.PenaltyValue,
			AcademicYear: sa.AcademicYear,
			CreatedAt:    sa.CreatedAt,
		})
	}
	for _, a := range absences {
		items = append(items, models.HistoryItem{
			ID:           a.ID,
			Category:     models.HistoryAbsence,
			StudentID:    a.StudentID,
			Label:        a.Reason,
			Description:  a.Detail,
			AcademicYear: a.AcademicYear,
			RecordedBy:   a.RecordedBy,
			CreatedAt:    a.CreatedAt,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// GradeSummary returns the student's current score with its display tier.
// Summaries are cached; the ledger invalidates the cache on every write.
func (s *DisciplineService) GradeSummary(ctx context.Context, studentID string) (*models.GradeSummary, bool, error) {
	key := repository.GradeSummaryKey(studentID)
	if s.cache != nil {
		var cached models.GradeSummary
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, true, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("grade summary cache read failed", zap.String("student_id", studentID), zap.Error(err))
		}
	}

	student, err := s.fetchStudent(ctx, studentID)
	if err != nil {
		return nil, false, err
	}

	summary := &models.GradeSummary{
		StudentID:   student.ID,
		StudentName: student.FullName,
		Score:       student.DisciplinaryScore,
		Tier:        MapScoreToTier(student.DisciplinaryScore),
		GeneratedAt: time.Now().UTC(),
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, summary, s.cacheTTL); err != nil {
			s.logger.Warn("grade summary cache write failed", zap.String("student_id", studentID), zap.Error(err))
		}
	}
	return summary, false, nil
}

func (s *DisciplineService) fetchStudent(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	return student, nil
}

func (s *DisciplineService) deleteLookupError(err error, resource string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, resource+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch "+resource)
}

func (s *DisciplineService) deleteError(err error, resource string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, resource+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete "+resource)
}

func optionalActor(actor string) *string {
	if actor == "" {
		return nil
	}
	return &actor
}
