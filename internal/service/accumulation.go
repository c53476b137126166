package service

import (
	"fmt"

	"github.com/escolalink/disciplina-api/internal/models"
)

// EvaluateAccumulation decides which sanctions a newly-recorded note
// generates, given the student's prior note history. priorSeverities must
// be the history as it stood BEFORE the new note was inserted; passing the
// post-insertion history counts the new note twice and inflates thresholds.
//
// Only minor ("leve") and moderate ("intermediaria") notes accumulate:
// every MinorThreshold-th minor note generates one serious sanction, every
// ModerateThreshold-th moderate note one critical sanction. Serious and
// critical notes are handled through separate channels and never produce
// sanctions here.
//
// When a count jumps past more than one multiple at once (backfilled data),
// one draft is emitted per crossed multiple, never a collapsed single one.
//
// The function is pure: it writes nothing, the caller persists the drafts.
func EvaluateAccumulation(rules DisciplineRules, newSeverity models.NoteSeverity, priorSeverities []models.NoteSeverity) []models.SanctionDraft {
	var bucket models.NoteSeverity
	var threshold int
	var generated models.NoteSeverity

	switch newSeverity {
	case models.SeverityMinor:
		bucket = models.SeverityMinor
		threshold = rules.MinorThreshold
		generated = models.SeveritySerious
	case models.SeverityModerate:
		bucket = models.SeverityModerate
		threshold = rules.ModerateThreshold
		generated = models.SeverityCritical
	default:
		return nil
	}
	if threshold <= 0 {
		return nil
	}

	before := 0
	for _, s := range priorSeverities {
		if s == bucket {
			before++
		}
	}
	after := before + 1

	crossings := after/threshold - before/threshold
	if crossings <= 0 {
		return nil
	}

	drafts := make([]models.SanctionDraft, 0, crossings)
	for i := 0; i < crossings; i++ {
		drafts = append(drafts, models.SanctionDraft{
			Severity:     generated,
			PenaltyValue: rules.PenaltyFor(generated),
			Reason:       fmt.Sprintf("acumulo de %d anotacoes de gravidade %s", after, bucket),
		})
	}
	return drafts
}
