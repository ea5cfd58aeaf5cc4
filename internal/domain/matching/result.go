package matching

import (
	"time"

	"github.com/google/uuid"
)

const (
	FactorSkill             = "skill"
	FactorExperience        = "experience"
	FactorDomain            = "domain"
	FactorBase              = "base"
	FactorCulturalFit       = "cultural_fit"
	FactorGrowthPotential   = "growth_potential"
	FactorCommunication     = "communication"
	FactorTechnicalDepth    = "technical_depth"
	FactorIndustryRelevance = "industry_relevance"
	FactorLocationFit       = "location_fit"
)

const (
	AdjustmentEntryLevel     = "entry_level_visibility"
	AdjustmentBachelor       = "bachelor_parity"
	AdjustmentTechnicalDepth = "technical_depth_bonus"
)

const DegradedSuffix = "+degraded"

// MatchResult is produced once per scoring call and never mutated afterwards.
type MatchResult struct {
	JobID            uuid.UUID          `json:"job_id"`
	CandidateID      uuid.UUID          `json:"candidate_id"`
	ClientID         string             `json:"client_id,omitempty"`
	TotalScore       float64            `json:"total_score"`
	NormalizedScore  float64            `json:"normalized_score"`
	Factors          map[string]float64 `json:"factors"`
	Adjustments      map[string]float64 `json:"adjustments,omitempty"`
	MatchedSkills    []string           `json:"matched_skills"`
	Reasoning        string             `json:"reasoning"`
	AlgorithmVersion string             `json:"algorithm_version"`
	Degraded         bool               `json:"degraded"`
}

// Factor returns the named sub-score, or 0 when absent.
func (r MatchResult) Factor(name string) float64 {
	if r.Factors == nil {
		return 0
	}
	return r.Factors[name]
}

// MatchOutcome is a hiring outcome recorded after a decision on a scored pair.
type MatchOutcome struct {
	ID          uuid.UUID `json:"id"`
	JobID       uuid.UUID `json:"job_id"`
	CandidateID uuid.UUID `json:"candidate_id"`
	ClientID    string    `json:"client_id,omitempty"`
	Rating      float64   `json:"rating"`
	RecordedAt  time.Time `json:"recorded_at"`
}
