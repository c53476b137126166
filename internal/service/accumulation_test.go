package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escolalink/disciplina-api/internal/models"
)

func repeatSeverity(s models.NoteSeverity, n int) []models.NoteSeverity {
	out := make([]models.NoteSeverity, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func TestEvaluateAccumulationMinorThreshold(t *testing.T) {
	rules := DefaultRules()

	drafts := EvaluateAccumulation(rules, models.SeverityMinor, repeatSeverity(models.SeverityMinor, 3))
	require.Len(t, drafts, 1)
	assert.Equal(t, models.SeveritySerious, drafts[0].Severity)
	assert.Equal(t, 0.50, drafts[0].PenaltyValue)
	assert.Contains(t, drafts[0].Reason, "4")
}

func TestEvaluateAccumulationBelowThreshold(t *testing.T) {
	rules := DefaultRules()

	for prior := 0; prior < 3; prior++ {
		drafts := EvaluateAccumulation(rules, models.SeverityMinor, repeatSeverity(models.SeverityMinor, prior))
		assert.Empty(t, drafts, "prior=%d should not cross the threshold", prior)
	}
}

func TestEvaluateAccumulationModerateThreshold(t *testing.T) {
	rules := DefaultRules()

	drafts := EvaluateAccumulation(rules, models.SeverityModerate, repeatSeverity(models.SeverityModerate, 2))
	require.Len(t, drafts, 1)
	assert.Equal(t, models.SeverityCritical, drafts[0].Severity)
	assert.Equal(t, 1.00, drafts[0].PenaltyValue)
}

func TestEvaluateAccumulationSeriousAndCriticalNeverAccumulate(t *testing.T) {
	rules := DefaultRules()

	drafts := EvaluateAccumulation(rules, models.SeveritySerious, repeatSeverity(models.SeveritySerious, 10))
	assert.Empty(t, drafts)

	drafts = EvaluateAccumulation(rules, models.SeverityCritical, repeatSeverity(models.SeverityCritical, 10))
	assert.Empty(t, drafts)
}

func TestEvaluateAccumulationCountsOnlyMatchingBucket(t *testing.T) {
	rules := DefaultRules()

	// Three minor notes mixed with moderates: the fourth minor crosses.
	prior := []models.NoteSeverity{
		models.SeverityMinor,
		models.SeverityModerate,
		models.SeverityMinor,
		models.SeverityModerate,
		models.SeverityMinor,
	}
	drafts := EvaluateAccumulation(rules, models.SeverityMinor, prior)
	require.Len(t, drafts, 1)
	assert.Equal(t, models.SeveritySerious, drafts[0].Severity)
}

func TestEvaluateAccumulationSecondCrossing(t *testing.T) {
	rules := DefaultRules()

	// Seven prior minors: the eighth crosses the second multiple of four.
	drafts := EvaluateAccumulation(rules, models.SeverityMinor, repeatSeverity(models.SeverityMinor, 7))
	require.Len(t, drafts, 1)

	// Between multiples no sanction fires.
	drafts = EvaluateAccumulation(rules, models.SeverityMinor, repeatSeverity(models.SeverityMinor, 4))
	assert.Empty(t, drafts)
}

func TestEvaluateAccumulationEachCrossingSanctionsOnce(t *testing.T) {
	rules := DefaultRules()

	// Replaying a growing history one note at a time yields exactly one
	// sanction per multiple of the threshold, never one per note past it.
	total := 0
	for prior := 0; prior < 12; prior++ {
		drafts := EvaluateAccumulation(rules, models.SeverityMinor, repeatSeverity(models.SeverityMinor, prior))
		total += len(drafts)
	}
	assert.Equal(t, 3, total)
}

func TestEvaluateAccumulationZeroThresholdDisables(t *testing.T) {
	rules := DefaultRules()
	rules.MinorThreshold = 0

	drafts := EvaluateAccumulation(rules, models.SeverityMinor, repeatSeverity(models.SeverityMinor, 20))
	assert.Empty(t, drafts)
}

func TestRulesLookupMissesReturnZero(t *testing.T) {
	rules := DefaultRules()

	assert.Zero(t, rules.BonusFor(models.CommendationKind("unknown")))
	assert.Zero(t, rules.PenaltyFor(models.SeverityMinor))
}

func TestWithThresholdsKeepsValueTables(t *testing.T) {
	rules := DefaultRules().WithThresholds(2, 5)

	assert.Equal(t, 2, rules.MinorThreshold)
	assert.Equal(t, 5, rules.ModerateThreshold)
	assert.Equal(t, 0.40, rules.BonusFor(models.CommendationIndividual))

	// Non-positive overrides keep the defaults.
	unchanged := DefaultRules().WithThresholds(0, -1)
	assert.Equal(t, 4, unchanged.MinorThreshold)
	assert.Equal(t, 3, unchanged.ModerateThreshold)
}
