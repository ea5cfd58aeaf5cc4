package matching

import (
	"context"
	"math"
	"sort"
	"strings"
)

// SimilarityProvider scores two canonical skills in [0,1].
type SimilarityProvider interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
	// Degraded reports that the backend was unavailable at construction and
	// similarity is exact string equality.
	Degraded() bool
	ModelVersion() string
}

// ExactSimilarity is the fallback used when no embedding backend is wired.
type ExactSimilarity struct{}

func (ExactSimilarity) Similarity(_ context.Context, a, b string) (float64, error) {
	return exactMatch(a, b), nil
}

func (ExactSimilarity) Degraded() bool       { return true }
func (ExactSimilarity) ModelVersion() string { return "exact" }

const (
	overlapShare    = 0.7
	similarityShare = 0.3
)

// Score by absolute tier distance.
var tierDistanceScore = []float64{1.0, 0.7, 0.35, 0.1}

// BaseScore is the fixed-weight base layer for one pair.
type BaseScore struct {
	Skill      float64
	Experience float64
	Domain     float64
	Overall    float64

	JobSkills       Extraction
	CandidateSkills Extraction
	MatchedSkills   []string

	// Degraded is set when at least one similarity call fell back to exact match.
	Degraded bool
}

// BaseMatcher combines skill overlap, experience-tier distance and domain alignment.
type BaseMatcher struct {
	extractor *SkillExtractor
	sim       SimilarityProvider
}

func NewBaseMatcher(extractor *SkillExtractor, sim SimilarityProvider) *BaseMatcher {
	if sim == nil {
		sim = ExactSimilarity{}
	}
	return &BaseMatcher{extractor: extractor, sim: sim}
}

func (m *BaseMatcher) Vocabulary() *Vocabulary {
	return m.extractor.Vocabulary()
}

func (m *BaseMatcher) Extractor() *SkillExtractor {
	return m.extractor
}

func (m *BaseMatcher) Similarity() SimilarityProvider {
	return m.sim
}

// Score expects normalized profiles. It only fails when ctx is done.
func (m *BaseMatcher) Score(ctx context.Context, job JobProfile, cand CandidateProfile) (BaseScore, error) {
	jobSkills := m.extractor.Extract(jobSkillText(job))
	candSkills := m.extractor.Extract(cand.Skills)

	skill, degraded, err := m.skillScore(ctx, jobSkills.Skills, candSkills.Skills)
	if err != nil {
		return BaseScore{}, err
	}

	jobDomains := m.extractor.Extract(jobDomainText(job))
	experience := ExperienceScore(m.Vocabulary().LevelTier(job.ExperienceLevel), TierForYears(cand.ExperienceYears))
	domain := DomainScore(jobDomains.Domains, candSkills.Domains)

	overall := clampFloat(SkillWeight*skill+ExperienceWeight*experience+DomainWeight*domain, 0, 1)

	return BaseScore{
		Skill:           skill,
		Experience:      experience,
		Domain:          domain,
		Overall:         overall,
		JobSkills:       jobSkills,
		CandidateSkills: candSkills,
		MatchedSkills:   intersectSorted(jobSkills.Skills, candSkills.Skills),
		Degraded:        degraded,
	}, nil
}

// Blend applies per-client multipliers to the base components. Default weights
// reproduce Overall exactly.
func (b BaseScore) Blend(w Weights) float64 {
	if w.IsDefault() {
		return b.Overall
	}
	parts := []struct {
		name   string
		weight float64
		score  float64
	}{
		{FactorSkill, SkillWeight, b.Skill},
		{FactorExperience, ExperienceWeight, b.Experience},
		{FactorDomain, DomainWeight, b.Domain},
	}
	var num, den float64
	for _, p := range parts {
		cw := p.weight * w.Get(p.name)
		num += cw * p.score
		den += cw
	}
	if den <= 0 {
		return b.Overall
	}
	return clampFloat(num/den, 0, 1)
}

func (m *BaseMatcher) skillScore(ctx context.Context, jobSkills, candSkills []string) (float64, bool, error) {
	if len(jobSkills) == 0 || len(candSkills) == 0 {
		return 0, false, nil
	}

	overlap := float64(len(intersectSorted(jobSkills, candSkills))) / float64(len(jobSkills))

	degraded := false
	var sum float64
	for _, js := range jobSkills {
		if err := ctx.Err(); err != nil {
			return 0, false, err
		}
		best := 0.0
		for _, cs := range candSkills {
			s, err := m.sim.Similarity(ctx, js, cs)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return 0, false, ctxErr
				}
				degraded = true
				s = exactMatch(js, cs)
			}
			if s > best {
				best = s
			}
			if best >= 1 {
				break
			}
		}
		sum += best
	}
	avgBest := sum / float64(len(jobSkills))

	return clampFloat(overlapShare*overlap+similarityShare*avgBest, 0, 1), degraded, nil
}

// TierForYears: entry <1, junior 1-2, mid 3-5, senior 6-9, lead 10+.
func TierForYears(years int) int {
	switch {
	case years < 1:
		return TierEntry
	case years <= 2:
		return TierJunior
	case years <= 5:
		return TierMid
	case years <= 9:
		return TierSenior
	default:
		return TierLead
	}
}

// ExperienceScore decreases monotonically with tier distance.
func ExperienceScore(jobTier, candTier int) float64 {
	d := jobTier - candTier
	if d < 0 {
		d = -d
	}
	if d >= len(tierDistanceScore) {
		return 0
	}
	return tierDistanceScore[d]
}

// DomainScore is the mean over job-referenced groups of min(1, candidate hits / job hits).
func DomainScore(jobDomains, candDomains map[string]int) float64 {
	if len(jobDomains) == 0 {
		return 0
	}
	groups := make([]string, 0, len(jobDomains))
	for g, hits := range jobDomains {
		if hits > 0 {
			groups = append(groups, g)
		}
	}
	if len(groups) == 0 {
		return 0
	}
	sort.Strings(groups)

	var sum float64
	for _, g := range groups {
		sum += math.Min(1, float64(candDomains[g])/float64(jobDomains[g]))
	}
	return clampFloat(sum/float64(len(groups)), 0, 1)
}

// Requirements carry the skill list; fall back to description, then title.
func jobSkillText(j JobProfile) string {
	switch {
	case j.Requirements != "":
		return j.Requirements
	case j.Description != "":
		return j.Description
	default:
		return j.Title
	}
}

func jobDomainText(j JobProfile) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{j.Title, j.Description, j.Requirements} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

func intersectSorted(a, b []string) []string {
	out := make([]string, 0)
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

func exactMatch(a, b string) float64 {
	if NormalizeSkill(a) == NormalizeSkill(b) {
		return 1
	}
	return 0
}

func clampFloat(v, minV, maxV float64) float64 {
	if math.IsNaN(v) {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}
