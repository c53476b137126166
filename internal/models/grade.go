package models

import "time"

// GradeTier is the display band a disciplinary score falls into.
type GradeTier struct {
	Label           string  `json:"label"`
	ColorToken      string  `json:"color_token"`
	Icon            string  `json:"icon"`
	Message         string  `json:"message"`
	ProgressPercent float64 `json:"progress_percent"`
}

// GradeSummary is the self-service read model: the current score together
// with its presentation tier.
type GradeSummary struct {
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	Score       float64   `json:"score"`
	Tier        GradeTier `json:"tier"`
	GeneratedAt time.Time `json:"generated_at"`
}
