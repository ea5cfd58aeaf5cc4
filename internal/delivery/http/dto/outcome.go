package dto

import (
	"talent-match/internal/domain/matching"

	"github.com/google/uuid"
)

type OutcomeRequest struct {
	JobID       uuid.UUID `json:"job_id"`
	CandidateID uuid.UUID `json:"candidate_id"`
	ClientID    string    `json:"client_id"`
	Rating      *float64  `json:"rating"`
}

type OutcomeResponse struct {
	Accepted bool `json:"accepted"`
}

type PreferencesResponse struct {
	ClientID string           `json:"client_id"`
	Weights  matching.Weights `json:"weights"`
	Default  bool             `json:"default"`
}
