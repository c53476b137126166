package models

import "time"

// Class represents an academic class with its school year.
type Class struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Year      int       `db:"year" json:"year"`
	Shift     string    `db:"shift" json:"shift"`
	MonitorID *string   `db:"monitor_id" json:"monitor_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	Year     int
	Search   string
	Page     int
	PageSize int
}
