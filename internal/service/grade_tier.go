package service

import "github.com/escolalink/disciplina-api/internal/models"

// Display bands for the disciplinary score. Boundaries are inclusive of the
// lower bound: a score of exactly 8.00 lands in the [8,9) band, not below.
var gradeTiers = []struct {
	min     float64
	label   string
	color   string
	icon    string
	message string
}{
	{10.0, "Excelente", "emerald", "trophy", "Conduta exemplar, acima do esperado."},
	{9.0, "Otimo", "green", "star", "Conduta muito boa, continue assim."},
	{8.0, "Bom", "blue", "thumbs-up", "Conduta dentro do esperado."},
	{6.0, "Regular", "orange", "alert-circle", "Conduta exige atencao."},
}

var lowestTier = struct {
	label   string
	color   string
	icon    string
	message string
}{"Insuficiente", "red", "alert-triangle", "Conduta abaixo do minimo aceitavel."}

// MapScoreToTier maps a disciplinary score onto its display tier. Pure
// function: any finite score maps to exactly one tier, no error conditions.
//
// The progress percentage scales the score linearly against a visible range
// of [-5, max(15, score+5)], clamped to [0, 100], so extreme scores still
// render a sensible bar instead of overflowing it.
func MapScoreToTier(score float64) models.GradeTier {
	tier := models.GradeTier{
		Label:      lowestTier.label,
		ColorToken: lowestTier.color,
		Icon:       lowestTier.icon,
		Message:    lowestTier.message,
	}
	for _, band := range gradeTiers {
		if score >= band.min {
			tier.Label = band.label
			tier.ColorToken = band.color
			tier.Icon = band.icon
			tier.Message = band.message
			break
		}
	}

	lower := -5.0
	upper := 15.0
	if score+5 > upper {
		upper = score + 5
	}
	percent := (score - lower) / (upper - lower) * 100
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	tier.ProgressPercent = percent

	return tier
}
