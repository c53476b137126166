package models

import "time"

// NoteSeverity is the ordered severity vocabulary for disciplinary notes.
// Sanctions reuse the same vocabulary but are assigned independently.
type NoteSeverity string

const (
	SeverityMinor    NoteSeverity = "leve"
	SeverityModerate NoteSeverity = "intermediaria"
	SeveritySerious  NoteSeverity = "grave"
	SeverityCritical NoteSeverity = "gravissima"
)

// ValidNoteSeverity reports whether s belongs to the closed severity set.
func ValidNoteSeverity(s NoteSeverity) bool {
	switch s {
	case SeverityMinor, SeverityModerate, SeveritySerious, SeverityCritical:
		return true
	default:
		return false
	}
}

// CommendationKind is the closed set of positive-conduct record kinds.
type CommendationKind string

const (
	CommendationCollective   CommendationKind = "coletivo"
	CommendationIndividual   CommendationKind = "individual"
	CommendationHonorMention CommendationKind = "mencao_honrosa"
)

// ValidCommendationKind reports whether k belongs to the closed kind set.
func ValidCommendationKind(k CommendationKind) bool {
	switch k {
	case CommendationCollective, CommendationIndividual, CommendationHonorMention:
		return true
	default:
		return false
	}
}

// Note is a disciplinary observation ("anotação"). Repeated low-severity
// notes escalate into generated sanctions via accumulation.
type Note struct {
	ID           string       `db:"id" json:"id"`
	StudentID    string       `db:"student_id" json:"student_id"`
	Severity     NoteSeverity `db:"severity" json:"severity"`
	Description  string       `db:"description" json:"description"`
	AcademicYear int          `db:"academic_year" json:"academic_year"`
	RecordedBy   *string      `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}

// Commendation is a positive-conduct record ("elogio"). The bonus applied
// at creation is stored on the record so deletion reverses the exact value
// even if the rule tables change later.
type Commendation struct {
	ID           string           `db:"id" json:"id"`
	StudentID    string           `db:"student_id" json:"student_id"`
	Kind         CommendationKind `db:"kind" json:"kind"`
	BonusValue   float64          `db:"bonus_value" json:"bonus_value"`
	Description  string           `db:"description" json:"description,omitempty"`
	AcademicYear int              `db:"academic_year" json:"academic_year"`
	RecordedBy   *string          `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// Sanction is a generated penalty record ("termo"). Sanctions are never
// entered directly: they are the side effect of note accumulation. The
// penalty value is stored explicitly, not derived at read time.
type Sanction struct {
	ID           string       `db:"id" json:"id"`
	StudentID    string       `db:"student_id" json:"student_id"`
	Severity     NoteSeverity `db:"severity" json:"severity"`
	PenaltyValue float64      `db:"penalty_value" json:"penalty_value"`
	Reason       string       `db:"reason" json:"reason,omitempty"`
	AcademicYear int          `db:"academic_year" json:"academic_year"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}

// SanctionDraft is an accumulation evaluator result awaiting persistence.
type SanctionDraft struct {
	Severity     NoteSeverity `json:"severity"`
	PenaltyValue float64      `json:"penalty_value"`
	Reason       string       `json:"reason"`
}

// Absence is a date-ranged attendance record ("falta"). It never affects
// the disciplinary score.
type Absence struct {
	ID           string    `db:"id" json:"id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	StartDate    time.Time `db:"start_date" json:"start_date"`
	EndDate      time.Time `db:"end_date" json:"end_date"`
	Reason       string    `db:"reason" json:"reason"`
	Detail       string    `db:"detail" json:"detail,omitempty"`
	AcademicYear int       `db:"academic_year" json:"academic_year"`
	RecordedBy   *string   `db:"recorded_by" json:"recorded_by,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// HistoryCategory tags entries in a student's merged discipline history.
type HistoryCategory string

const (
	HistoryNote         HistoryCategory = "note"
	HistoryCommendation HistoryCategory = "commendation"
	HistorySanction     HistoryCategory = "sanction"
	HistoryAbsence      HistoryCategory = "absence"
)

// ValidHistoryCategory reports whether c names a deletable record category.
func ValidHistoryCategory(c HistoryCategory) bool {
	switch c {
	case HistoryNote, HistoryCommendation, HistorySanction, HistoryAbsence:
		return true
	default:
		return false
	}
}

// HistoryItem is one entry in the merged per-student history listing. The
// ScoreEffect is the signed delta the item applied at creation (zero for
// notes and absences).
type HistoryItem struct {
	ID           string          `json:"id"`
	Category     HistoryCategory `json:"category"`
	StudentID    string          `json:"student_id"`
	Label        string          `json:"label"`
	Description  string          `json:"description,omitempty"`
	ScoreEffect  float64         `json:"score_effect"`
	AcademicYear int             `json:"academic_year"`
	RecordedBy   *string         `json:"recorded_by,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// BulkOutcome captures the per-student result of a bulk class operation.
type BulkOutcome struct {
	StudentID string `json:"student_id"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error,omitempty"`
}

// BulkSummary aggregates the outcomes of a bulk class operation. Per-student
// failures never abort the batch; they are collected here instead.
type BulkSummary struct {
	ClassID   string        `json:"class_id"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Outcomes  []BulkOutcome `json:"outcomes"`
}
