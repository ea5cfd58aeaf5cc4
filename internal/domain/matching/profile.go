package matching

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidProfile = errors.New("invalid profile")

// JobProfile is an already validated job record. Treat as immutable once passed in.
type JobProfile struct {
	ID              uuid.UUID
	Title           string
	Description     string
	Requirements    string
	Location        string
	ExperienceLevel string
	Department      string
	ClientID        string
}

// CandidateProfile is an already validated candidate record. Treat as immutable once passed in.
type CandidateProfile struct {
	ID              uuid.UUID
	Skills          string
	ExperienceYears int
	SeniorityLevel  string
	EducationLevel  string
	Location        string
}

const defaultExperienceLevel = "mid"

// Normalize returns a copy with optional fields defaulted. Missing optional fields
// never fail; only a nil id does.
func (j JobProfile) Normalize() (JobProfile, error) {
	if j.ID == uuid.Nil {
		return JobProfile{}, fmt.Errorf("%w: job id is required", ErrInvalidProfile)
	}
	j.Title = strings.TrimSpace(j.Title)
	j.Description = strings.TrimSpace(j.Description)
	j.Requirements = strings.TrimSpace(j.Requirements)
	j.Location = strings.TrimSpace(j.Location)
	j.Department = strings.TrimSpace(j.Department)
	j.ClientID = strings.TrimSpace(j.ClientID)
	j.ExperienceLevel = strings.TrimSpace(j.ExperienceLevel)
	if j.ExperienceLevel == "" {
		j.ExperienceLevel = defaultExperienceLevel
	}
	if j.ClientID == "" {
		j.ClientID = j.Department
	}
	return j, nil
}

// Normalize returns a copy with optional fields defaulted.
func (c CandidateProfile) Normalize() (CandidateProfile, error) {
	if c.ID == uuid.Nil {
		return CandidateProfile{}, fmt.Errorf("%w: candidate id is required", ErrInvalidProfile)
	}
	if c.ExperienceYears < 0 {
		return CandidateProfile{}, fmt.Errorf("%w: candidate %s has negative experience_years %d", ErrInvalidProfile, c.ID, c.ExperienceYears)
	}
	c.Skills = strings.TrimSpace(c.Skills)
	c.SeniorityLevel = strings.TrimSpace(c.SeniorityLevel)
	c.EducationLevel = strings.TrimSpace(c.EducationLevel)
	c.Location = strings.TrimSpace(c.Location)
	return c, nil
}
