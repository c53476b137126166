package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/escolalink/disciplina-api/internal/repository"
	appErrors "github.com/escolalink/disciplina-api/pkg/errors"
)

type scoreStore interface {
	IncrementScore(ctx context.Context, id string, delta float64) (float64, error)
}

type summaryCacheInvalidator interface {
	Delete(ctx context.Context, key string) error
}

type deltaRecorder interface {
	RecordScoreDelta(delta float64)
}

// ScoreLedger maintains the single mutable disciplinary score per student.
// All score mutation flows through ApplyDelta; nothing in the codebase
// overwrites the score field from read state.
type ScoreLedger struct {
	students scoreStore
	cache    summaryCacheInvalidator
	metrics  deltaRecorder
	logger   *zap.Logger
}

// NewScoreLedger constructs the ledger. cache and metrics may be nil.
func NewScoreLedger(students scoreStore, cache summaryCacheInvalidator, metrics deltaRecorder, logger *zap.Logger) *ScoreLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScoreLedger{students: students, cache: cache, metrics: metrics, logger: logger}
}

// ApplyDelta adds a signed delta to the stored score and returns the new
// value. The increment happens in a single atomic statement at the storage
// layer, so concurrent deltas for the same student both land. No floor or
// ceiling is enforced here.
//
// The caller has already committed the record that produced the delta, so
// any failure here leaves the score out of sync with visible history. That
// condition is reported as SCORE_OUT_OF_SYNC rather than a generic failure
// so callers can warn instead of silently retrying.
func (l *ScoreLedger) ApplyDelta(ctx context.Context, studentID string, delta float64) (float64, error) {
	newScore, err := l.students.IncrementScore(ctx, studentID, delta)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			l.logger.Error("score update lost its student row",
				zap.String("student_id", studentID),
				zap.Float64("delta", delta))
			return 0, appErrors.Wrap(err, appErrors.ErrScoreOutOfSync.Code, appErrors.ErrScoreOutOfSync.Status, "student record vanished during score update")
		}
		l.logger.Error("score update failed",
			zap.String("student_id", studentID),
			zap.Float64("delta", delta),
			zap.Error(err))
		return 0, appErrors.Wrap(err, appErrors.ErrScoreOutOfSync.Code, appErrors.ErrScoreOutOfSync.Status, appErrors.ErrScoreOutOfSync.Message)
	}

	if l.metrics != nil {
		l.metrics.RecordScoreDelta(delta)
	}

	if l.cache != nil {
		if err := l.cache.Delete(ctx, repository.GradeSummaryKey(studentID)); err != nil {
			l.logger.Warn("grade summary cache invalidation failed",
				zap.String("student_id", studentID),
				zap.Error(err))
		}
	}

	return newScore, nil
}

// ReverseDelta undoes a previously applied delta. The caller passes the
// exact value stored on the deleted record, not a fresh rule-table lookup,
// so reversal stays correct even after rule changes.
func (l *ScoreLedger) ReverseDelta(ctx context.Context, studentID string, originalDelta float64) (float64, error) {
	return l.ApplyDelta(ctx, studentID, -originalDelta)
}
