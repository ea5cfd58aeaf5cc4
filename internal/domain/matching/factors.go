package matching

import (
	"strings"
)

var educationBonus = map[string]float64{
	"phd":       0.4,
	"master":    0.3,
	"bachelor":  0.2,
	"associate": 0.1,
}

const longSkillsText = 100

func culturalFit(v *Vocabulary, job JobProfile, cand CandidateProfile, candSkills Extraction) float64 {
	title := strings.ToLower(job.Title)
	score := 0.5
	if v.isLeadershipTitle(title) {
		if cand.ExperienceYears >= 3 {
			score += 0.3
		} else {
			score -= 0.1
		}
	}
	if v.isInnovationTitle(title) {
		for _, s := range candSkills.Skills {
			if v.IsResearchSkill(s) {
				score += 0.2
				break
			}
		}
	}
	return clampFloat(score, 0, 1)
}

func growthPotential(v *Vocabulary, cand CandidateProfile) float64 {
	score := 0.2 + educationBonus[v.EducationLevel(cand.EducationLevel)]
	switch y := cand.ExperienceYears; {
	case y >= 2 && y <= 7:
		score += 0.4
	case y < 2:
		score += 0.25
	default:
		score += 0.15
	}
	return clampFloat(score, 0, 1)
}

func communication(cand CandidateProfile) float64 {
	fields := []bool{
		cand.Skills != "",
		cand.SeniorityLevel != "",
		cand.EducationLevel != "",
		cand.Location != "",
		cand.ExperienceYears > 0,
	}
	populated := 0
	for _, ok := range fields {
		if ok {
			populated++
		}
	}
	score := 0.8 * float64(populated) / float64(len(fields))
	if len(cand.Skills) > longSkillsText {
		score += 0.2
	}
	return clampFloat(score, 0, 1)
}

func technicalDepth(candSkills Extraction, matched int) float64 {
	n := len(candSkills.Skills)
	if n == 0 {
		return 0
	}
	return clampFloat(float64(n)/10+0.3*float64(matched)/float64(n), 0, 1)
}

func industryRelevance(v *Vocabulary, job JobProfile, candSkills Extraction) float64 {
	text := strings.ToLower(strings.TrimSpace(job.Department + " " + job.Title))
	ind, ok := v.industryFor(text)
	if !ok {
		return 0.5
	}
	score := 0.8
	for _, d := range ind.domains {
		if candSkills.Domains[d] > 0 {
			score += 0.2
			break
		}
	}
	return clampFloat(score, 0, 1)
}

// locationFit is reported in the breakdown but does not move the score.
func locationFit(job JobProfile, cand CandidateProfile) float64 {
	jl := strings.ToLower(job.Location)
	if jl == "" || strings.Contains(jl, "remote") {
		return 1
	}
	cl := strings.ToLower(cand.Location)
	if cl == "" {
		return 0.5
	}
	if strings.Contains(jl, cl) || strings.Contains(cl, jl) {
		return 1
	}
	return 0
}
