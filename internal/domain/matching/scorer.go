package matching

import (
	"context"
	"fmt"
	"strings"

	"talent-match/internal/metrics"

	"go.uber.org/zap"
)

const DefaultAlgorithmVersion = "mf-2.1.0"

// Bias-mitigation adjustments, applied to the 0..1 base before rescaling.
const (
	entryLevelYears       = 2
	entryLevelBonus       = 0.05
	bachelorBonus         = 0.02
	technicalDepthBonus   = 0.03
	technicalDepthTrigger = 0.7
)

const (
	reasonStrong          = 0.7
	reasonExperienceGreat = 0.8
	reasonExperienceGood  = 0.5
	reasonMaxSkills       = 5
	reasonFallback        = "Basic qualification match"
)

type ScorerOptions struct {
	AlgorithmVersion string
	Cache            ResultCache
	Logger           *zap.Logger
}

// MultiFactorScorer layers secondary factors and bias adjustments on top of BaseMatcher.
type MultiFactorScorer struct {
	base    *BaseMatcher
	version string
	cache   ResultCache
	log     *zap.Logger
}

func NewMultiFactorScorer(base *BaseMatcher, opts ScorerOptions) *MultiFactorScorer {
	version := strings.TrimSpace(opts.AlgorithmVersion)
	if version == "" {
		version = DefaultAlgorithmVersion
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MultiFactorScorer{
		base:    base,
		version: version,
		cache:   opts.Cache,
		log:     logger.Named("scorer"),
	}
}

// AlgorithmVersion carries the degraded suffix when the embedding backend is down,
// so degraded results never share cache keys or labels with full-fidelity ones.
func (s *MultiFactorScorer) AlgorithmVersion() string {
	if s.base.Similarity().Degraded() {
		return s.version + DegradedSuffix
	}
	return s.version
}

// Score returns the final result for one pair. A nil or default hint scores with the
// fixed base weights. Errors are ErrInvalidProfile or a ctx error.
func (s *MultiFactorScorer) Score(ctx context.Context, job JobProfile, cand CandidateProfile, hint Weights) (MatchResult, error) {
	job, err := job.Normalize()
	if err != nil {
		return MatchResult{}, err
	}
	cand, err = cand.Normalize()
	if err != nil {
		return MatchResult{}, err
	}

	version := s.AlgorithmVersion()
	key := ResultKey(version, job.ID, cand.ID, hint.Fingerprint())
	if s.cache != nil {
		if r, ok := s.cache.Get(ctx, key); ok {
			metrics.IncrResultCacheHit()
			return r, nil
		}
		metrics.IncrResultCacheMiss()
	}

	base, err := s.base.Score(ctx, job, cand)
	if err != nil {
		return MatchResult{}, fmt.Errorf("score job %s candidate %s: %w", job.ID, cand.ID, err)
	}

	vocab := s.base.Vocabulary()
	factors := map[string]float64{
		FactorSkill:             base.Skill,
		FactorExperience:        base.Experience,
		FactorDomain:            base.Domain,
		FactorCulturalFit:       culturalFit(vocab, job, cand, base.CandidateSkills),
		FactorGrowthPotential:   growthPotential(vocab, cand),
		FactorCommunication:     communication(cand),
		FactorTechnicalDepth:    technicalDepth(base.CandidateSkills, len(base.MatchedSkills)),
		FactorIndustryRelevance: industryRelevance(vocab, job, base.CandidateSkills),
		FactorLocationFit:       locationFit(job, cand),
	}
	blended := base.Blend(hint)
	factors[FactorBase] = blended

	adjustments := biasAdjustments(vocab, cand, factors[FactorTechnicalDepth])
	total := blended
	for _, a := range adjustments {
		total += a
	}
	normalized := clampFloat(total, 0, 1)

	degraded := s.base.Similarity().Degraded() || base.Degraded
	if degraded && !strings.HasSuffix(version, DegradedSuffix) {
		version += DegradedSuffix
	}

	res := MatchResult{
		JobID:            job.ID,
		CandidateID:      cand.ID,
		ClientID:         job.ClientID,
		TotalScore:       normalized * 100,
		NormalizedScore:  normalized,
		Factors:          factors,
		Adjustments:      adjustments,
		MatchedSkills:    base.MatchedSkills,
		Reasoning:        buildReasoning(base.MatchedSkills, factors),
		AlgorithmVersion: version,
		Degraded:         degraded,
	}

	metrics.IncrPairsScored()
	if degraded {
		metrics.IncrPairsDegraded()
	}

	// A per-call fallback must not land under the full-fidelity key.
	if s.cache != nil && !base.Degraded {
		s.cache.Set(ctx, key, res)
	}
	if base.Degraded {
		s.log.Warn("similarity fell back to exact match",
			zap.String("job_id", job.ID.String()),
			zap.String("candidate_id", cand.ID.String()),
		)
	}
	return res, nil
}

func biasAdjustments(vocab *Vocabulary, cand CandidateProfile, depth float64) map[string]float64 {
	adj := make(map[string]float64, 3)
	if cand.ExperienceYears < entryLevelYears {
		adj[AdjustmentEntryLevel] = entryLevelBonus
	}
	if vocab.EducationLevel(cand.EducationLevel) == "bachelor" {
		adj[AdjustmentBachelor] = bachelorBonus
	}
	if depth > technicalDepthTrigger {
		adj[AdjustmentTechnicalDepth] = technicalDepthBonus
	}
	return adj
}

func buildReasoning(matched []string, factors map[string]float64) string {
	parts := make([]string, 0, 5)
	if len(matched) > 0 {
		shown := matched
		if len(shown) > reasonMaxSkills {
			shown = shown[:reasonMaxSkills]
		}
		parts = append(parts, "Matched skills: "+strings.Join(shown, ", "))
	}
	switch exp := factors[FactorExperience]; {
	case exp >= reasonExperienceGreat:
		parts = append(parts, "Excellent experience level fit")
	case exp >= reasonExperienceGood:
		parts = append(parts, "Good experience level fit")
	}
	if factors[FactorCulturalFit] >= reasonStrong {
		parts = append(parts, "Strong cultural fit indicators")
	}
	if factors[FactorGrowthPotential] >= reasonStrong {
		parts = append(parts, "High growth potential")
	}
	if factors[FactorTechnicalDepth] >= reasonStrong {
		parts = append(parts, "Deep technical expertise")
	}
	if len(parts) == 0 {
		return reasonFallback
	}
	return strings.Join(parts, "; ")
}
