package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapScoreToTierBands(t *testing.T) {
	cases := []struct {
		score float64
		label string
	}{
		{12.0, "Excelente"},
		{10.0, "Excelente"},
		{9.5, "Otimo"},
		{9.0, "Otimo"},
		{8.0, "Bom"},
		{7.99, "Regular"},
		{6.0, "Regular"},
		{5.99, "Insuficiente"},
		{0.0, "Insuficiente"},
		{-3.0, "Insuficiente"},
	}
	for _, tc := range cases {
		tier := MapScoreToTier(tc.score)
		assert.Equal(t, tc.label, tier.Label, "score %.2f", tc.score)
	}
}

func TestMapScoreToTierBoundariesAreInclusive(t *testing.T) {
	assert.Equal(t, "Regular", MapScoreToTier(6.0).Label)
	assert.Equal(t, "Bom", MapScoreToTier(8.0).Label)
	assert.Equal(t, "Otimo", MapScoreToTier(9.0).Label)
	assert.Equal(t, "Excelente", MapScoreToTier(10.0).Label)
}

func TestMapScoreToTierProgress(t *testing.T) {
	// Score 10 over [-5, 15] is three quarters of the bar.
	assert.InDelta(t, 75.0, MapScoreToTier(10.0).ProgressPercent, 0.001)

	// Scores far below the window clamp to zero.
	assert.Equal(t, 0.0, MapScoreToTier(-50.0).ProgressPercent)

	// Scores above 10 widen the window instead of overflowing the bar.
	high := MapScoreToTier(40.0)
	assert.LessOrEqual(t, high.ProgressPercent, 100.0)
	assert.Greater(t, high.ProgressPercent, 75.0)
}

func TestMapScoreToTierCarriesPresentation(t *testing.T) {
	tier := MapScoreToTier(4.0)
	assert.Equal(t, "red", tier.ColorToken)
	assert.Equal(t, "alert-triangle", tier.Icon)
	assert.NotEmpty(t, tier.Message)
}
