package models

import "time"

// Student represents an enrolled student and the single mutable
// disciplinary score the ledger maintains for them.
type Student struct {
	ID                string    `db:"id" json:"id"`
	Registration      string    `db:"registration" json:"registration"`
	FullName          string    `db:"full_name" json:"full_name"`
	ClassID           *string   `db:"class_id" json:"class_id,omitempty"`
	DisciplinaryScore float64   `db:"disciplinary_score" json:"disciplinary_score"`
	Active            bool      `db:"active" json:"active"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetail extends Student with its current class context.
type StudentDetail struct {
	Student
	ClassName *string `db:"class_name" json:"class_name,omitempty"`
	ClassYear *int    `db:"class_year" json:"class_year,omitempty"`
}

// AcademicYear resolves the year attached to time-sensitive records:
// the student's class year when a class is assigned, otherwise the
// calendar year at the moment of recording.
func (s StudentDetail) AcademicYear(now time.Time) int {
	if s.ClassYear != nil && *s.ClassYear > 0 {
		return *s.ClassYear
	}
	return now.Year()
}

// StudentFilter captures filtering criteria for listing students.
type StudentFilter struct {
	ClassID   string
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
