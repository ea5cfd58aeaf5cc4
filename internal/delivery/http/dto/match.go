package dto

import (
	"strings"

	"talent-match/internal/domain/matching"
	"talent-match/internal/pipeline"

	"github.com/google/uuid"
)

type JobRequest struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Requirements    string    `json:"requirements"`
	Location        string    `json:"location"`
	ExperienceLevel string    `json:"experience_level"`
	Department      string    `json:"department"`
	ClientID        string    `json:"client_id"`
}

func (j JobRequest) Profile() matching.JobProfile {
	return matching.JobProfile{
		ID:              j.ID,
		Title:           j.Title,
		Description:     j.Description,
		Requirements:    j.Requirements,
		Location:        j.Location,
		ExperienceLevel: j.ExperienceLevel,
		Department:      j.Department,
		ClientID:        j.ClientID,
	}
}

// CandidateRequest accepts skills either as free text or as a list; both are merged.
type CandidateRequest struct {
	ID              uuid.UUID `json:"id"`
	Skills          string    `json:"skills"`
	SkillList       []string  `json:"skill_list,omitempty"`
	ExperienceYears int       `json:"experience_years"`
	SeniorityLevel  string    `json:"seniority_level"`
	EducationLevel  string    `json:"education_level"`
	Location        string    `json:"location"`
}

func (c CandidateRequest) Profile() matching.CandidateProfile {
	skills := strings.TrimSpace(c.Skills)
	if len(c.SkillList) > 0 {
		parts := make([]string, 0, len(c.SkillList)+1)
		if skills != "" {
			parts = append(parts, skills)
		}
		for _, s := range c.SkillList {
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, s)
			}
		}
		skills = strings.Join(parts, ", ")
	}
	return matching.CandidateProfile{
		ID:              c.ID,
		Skills:          skills,
		ExperienceYears: c.ExperienceYears,
		SeniorityLevel:  c.SeniorityLevel,
		EducationLevel:  c.EducationLevel,
		Location:        c.Location,
	}
}

func CandidateProfiles(in []CandidateRequest) []matching.CandidateProfile {
	out := make([]matching.CandidateProfile, 0, len(in))
	for _, c := range in {
		out = append(out, c.Profile())
	}
	return out
}

func JobProfiles(in []JobRequest) []matching.JobProfile {
	out := make([]matching.JobProfile, 0, len(in))
	for _, j := range in {
		out = append(out, j.Profile())
	}
	return out
}

type ScoreRequest struct {
	Job       JobRequest       `json:"job"`
	Candidate CandidateRequest `json:"candidate"`
}

type RankRequest struct {
	Job        JobRequest         `json:"job"`
	Candidates []CandidateRequest `json:"candidates"`
	TopK       int                `json:"top_k"`
}

type RankManyRequest struct {
	Jobs       []JobRequest       `json:"jobs"`
	Candidates []CandidateRequest `json:"candidates"`
	TopK       int                `json:"top_k"`
}

type RankResponse struct {
	Results []matching.MatchResult `json:"results"`
	Report  pipeline.RankReport    `json:"report"`
}

type RankManyResponse struct {
	Results map[string][]matching.MatchResult `json:"results"`
	Report  pipeline.BatchReport              `json:"report"`
}

func NewRankManyResponse(results map[uuid.UUID][]matching.MatchResult, report pipeline.BatchReport) RankManyResponse {
	out := RankManyResponse{Results: make(map[string][]matching.MatchResult, len(results)), Report: report}
	for id, rs := range results {
		out.Results[id.String()] = rs
	}
	return out
}
