package service

import "github.com/escolalink/disciplina-api/internal/models"

// DisciplineRules holds the fixed lookup data driving the scoring engine:
// the bonus applied per commendation kind, the penalty applied per generated
// sanction severity, and the note counts at which accumulation escalates.
//
// Lookups never fail: an unknown kind or severity contributes zero, so
// malformed or legacy data cannot crash scoring.
type DisciplineRules struct {
	CommendationBonuses map[models.CommendationKind]float64
	SanctionPenalties   map[models.NoteSeverity]float64
	MinorThreshold      int
	ModerateThreshold   int
}

// DefaultRules returns the rule tables used in production.
func DefaultRules() DisciplineRules {
	return DisciplineRules{
		CommendationBonuses: map[models.CommendationKind]float64{
			models.CommendationCollective:   0.20,
			models.CommendationIndividual:   0.40,
			models.CommendationHonorMention: 0.60,
		},
		SanctionPenalties: map[models.NoteSeverity]float64{
			models.SeveritySerious:  0.50,
			models.SeverityCritical: 1.00,
		},
		MinorThreshold:    4,
		ModerateThreshold: 3,
	}
}

// WithThresholds overrides accumulation thresholds, keeping the value tables.
func (r DisciplineRules) WithThresholds(minor, moderate int) DisciplineRules {
	if minor > 0 {
		r.MinorThreshold = minor
	}
	if moderate > 0 {
		r.ModerateThreshold = moderate
	}
	return r
}

// BonusFor returns the score bonus for a commendation kind, zero on miss.
func (r DisciplineRules) BonusFor(kind models.CommendationKind) float64 {
	return r.CommendationBonuses[kind]
}

// PenaltyFor returns the score penalty for a sanction severity, zero on miss.
func (r DisciplineRules) PenaltyFor(severity models.NoteSeverity) float64 {
	return r.SanctionPenalties[severity]
}
