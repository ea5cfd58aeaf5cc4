package matching

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScorer(t *testing.T, sim SimilarityProvider, cache ResultCache) *MultiFactorScorer {
	t.Helper()
	return NewMultiFactorScorer(newTestMatcher(t, sim), ScorerOptions{AlgorithmVersion: "test-1", Cache: cache})
}

func backendJob() JobProfile {
	return JobProfile{
		ID:              uuid.New(),
		Title:           "Senior Backend Engineer",
		Description:     "Build web APIs for our data platform.",
		Requirements:    "Python, Django, PostgreSQL",
		Location:        "Berlin",
		ExperienceLevel: "Senior",
		Department:      "Engineering",
	}
}

func TestScore_BoundsAndBreakdown(t *testing.T) {
	s := newTestScorer(t, &stubSimilarity{}, nil)
	cand := CandidateProfile{
		ID:              uuid.New(),
		Skills:          "Python, Django, FastAPI, PostgreSQL, Docker",
		ExperienceYears: 7,
		EducationLevel:  "Bachelor of Science",
		Location:        "Berlin",
	}

	got, err := s.Score(context.Background(), backendJob(), cand, nil)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, got.NormalizedScore, 0.0)
	assert.LessOrEqual(t, got.NormalizedScore, 1.0)
	assert.InDelta(t, got.NormalizedScore*100, got.TotalScore, 1e-9)
	assert.Equal(t, []string{"django", "postgresql", "python"}, got.MatchedSkills)
	assert.Equal(t, "test-1", got.AlgorithmVersion)
	assert.False(t, got.Degraded)
	assert.Equal(t, 1.0, got.Factor(FactorLocationFit))
	assert.Equal(t, 0.02, got.Adjustments[AdjustmentBachelor])
	assert.NotContains(t, got.Adjustments, AdjustmentEntryLevel)
	assert.Equal(t, "Engineering", got.ClientID)
	for name, v := range got.Factors {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 1.0, name)
	}
	assert.True(t, strings.HasPrefix(got.Reasoning, "Matched skills: django, postgresql, python"))
	assert.Contains(t, got.Reasoning, "Excellent experience level fit")
}

func TestScore_MatchedSkillsSubsetOfBothSides(t *testing.T) {
	s := newTestScorer(t, &stubSimilarity{}, nil)
	job := backendJob()
	cand := CandidateProfile{ID: uuid.New(), Skills: "Go, Kubernetes, PostgreSQL, Python"}

	got, err := s.Score(context.Background(), job, cand, nil)
	require.NoError(t, err)

	x := s.base.Extractor()
	jobSkills := x.Extract(job.Requirements)
	candSkills := x.Extract(cand.Skills)
	for _, m := range got.MatchedSkills {
		assert.True(t, jobSkills.HasSkill(m), m)
		assert.True(t, candSkills.HasSkill(m), m)
	}
}

func TestScore_Deterministic(t *testing.T) {
	s := newTestScorer(t, &stubSimilarity{}, nil)
	job := backendJob()
	cand := CandidateProfile{ID: uuid.New(), Skills: "python, flask, mysql", ExperienceYears: 3, EducationLevel: "MSc"}

	a, err := s.Score(context.Background(), job, cand, nil)
	require.NoError(t, err)
	b, err := s.Score(context.Background(), job, cand, nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestScore_CacheHitSkipsRecompute(t *testing.T) {
	sim := &stubSimilarity{}
	cache := NewMemoryResultCache(10)
	s := newTestScorer(t, sim, cache)
	job := backendJob()
	cand := CandidateProfile{ID: uuid.New(), Skills: "python"}

	first, err := s.Score(context.Background(), job, cand, nil)
	require.NoError(t, err)
	calls := sim.calls

	second, err := s.Score(context.Background(), job, cand, nil)
	require.NoError(t, err)
	assert.Equal(t, calls, sim.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.Len())

	// A non-default hint is a different cache entry.
	_, err = s.Score(context.Background(), job, cand, Weights{FactorSkill: 1.4})
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())
}

func TestScore_EntryLevelAndDepthAdjustments(t *testing.T) {
	s := newTestScorer(t, &stubSimilarity{}, nil)
	job := JobProfile{ID: uuid.New(), Title: "Developer", Requirements: "Python, Django, PostgreSQL, Docker, Kubernetes, AWS, React, Redis"}
	cand := CandidateProfile{
		ID:              uuid.New(),
		Skills:          "Python, Django, PostgreSQL, Docker, Kubernetes, AWS, React, Redis",
		ExperienceYears: 1,
	}

	got, err := s.Score(context.Background(), job, cand, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.05, got.Adjustments[AdjustmentEntryLevel])
	assert.Equal(t, 0.03, got.Adjustments[AdjustmentTechnicalDepth])
	assert.Contains(t, got.Reasoning, "Deep technical expertise")
}

func TestScore_FallbackReasoning(t *testing.T) {
	s := newTestScorer(t, nil, nil)
	job := JobProfile{ID: uuid.New(), Title: "Chef", ExperienceLevel: "lead"}
	cand := CandidateProfile{ID: uuid.New(), ExperienceYears: 0}

	got, err := s.Score(context.Background(), job, cand, nil)
	require.NoError(t, err)
	assert.Equal(t, "Basic qualification match", got.Reasoning)
}

func TestScore_InvalidProfile(t *testing.T) {
	s := newTestScorer(t, nil, nil)
	_, err := s.Score(context.Background(), JobProfile{}, CandidateProfile{ID: uuid.New()}, nil)
	require.ErrorIs(t, err, ErrInvalidProfile)

	_, err = s.Score(context.Background(), backendJob(), CandidateProfile{ID: uuid.New(), ExperienceYears: -1}, nil)
	require.ErrorIs(t, err, ErrInvalidProfile)
}

func TestScore_DegradedProviderFlagsResults(t *testing.T) {
	cache := NewMemoryResultCache(10)
	s := newTestScorer(t, &stubSimilarity{degraded: true}, cache)
	job := backendJob()
	cand := CandidateProfile{ID: uuid.New(), Skills: "Python, Django"}

	got, err := s.Score(context.Background(), job, cand, nil)
	require.NoError(t, err)
	assert.True(t, got.Degraded)
	assert.Equal(t, "test-1"+DegradedSuffix, got.AlgorithmVersion)

	_, ok := cache.Get(context.Background(), ResultKey("test-1", job.ID, cand.ID, ""))
	assert.False(t, ok)
	_, ok = cache.Get(context.Background(), ResultKey("test-1"+DegradedSuffix, job.ID, cand.ID, ""))
	assert.True(t, ok)
}

func TestScore_PerCallDegradationIsNotCached(t *testing.T) {
	cache := NewMemoryResultCache(10)
	s := newTestScorer(t, &stubSimilarity{failFor: "python"}, cache)

	got, err := s.Score(context.Background(), backendJob(), CandidateProfile{ID: uuid.New(), Skills: "python"}, nil)
	require.NoError(t, err)
	assert.True(t, got.Degraded)
	assert.Equal(t, "test-1"+DegradedSuffix, got.AlgorithmVersion)
	assert.Equal(t, 0, cache.Len())
}

func TestFactors(t *testing.T) {
	vocab, err := DefaultVocabulary()
	require.NoError(t, err)
	x := NewSkillExtractor(vocab)

	lead := JobProfile{Title: "Engineering Manager"}
	assert.InDelta(t, 0.8, culturalFit(vocab, lead, CandidateProfile{ExperienceYears: 5}, Extraction{}), 1e-9)
	assert.InDelta(t, 0.4, culturalFit(vocab, lead, CandidateProfile{ExperienceYears: 1}, Extraction{}), 1e-9)

	research := JobProfile{Title: "Research Scientist"}
	assert.InDelta(t, 0.7, culturalFit(vocab, research, CandidateProfile{}, x.Extract("PyTorch")), 1e-9)

	assert.InDelta(t, 1.0, growthPotential(vocab, CandidateProfile{EducationLevel: "PhD", ExperienceYears: 4}), 1e-9)
	assert.InDelta(t, 0.45, growthPotential(vocab, CandidateProfile{ExperienceYears: 0}), 1e-9)
	assert.InDelta(t, 0.35, growthPotential(vocab, CandidateProfile{ExperienceYears: 12}), 1e-9)

	assert.Equal(t, 0.0, communication(CandidateProfile{}))
	full := CandidateProfile{Skills: strings.Repeat("x", 120), SeniorityLevel: "mid", EducationLevel: "bsc", Location: "NYC", ExperienceYears: 3}
	assert.InDelta(t, 1.0, communication(full), 1e-9)

	assert.Equal(t, 0.0, technicalDepth(Extraction{}, 0))
	assert.InDelta(t, 0.2+0.15, technicalDepth(Extraction{Skills: []string{"a", "b"}}, 1), 1e-9)

	dataJob := JobProfile{Department: "Analytics", Title: "Analyst"}
	assert.InDelta(t, 1.0, industryRelevance(vocab, dataJob, x.Extract("pandas")), 1e-9)
	assert.InDelta(t, 0.8, industryRelevance(vocab, dataJob, x.Extract("photoshop")), 1e-9)
	assert.InDelta(t, 0.5, industryRelevance(vocab, JobProfile{Title: "Chef"}, Extraction{}), 1e-9)

	assert.Equal(t, 1.0, locationFit(JobProfile{Location: "Remote"}, CandidateProfile{}))
	assert.Equal(t, 0.5, locationFit(JobProfile{Location: "Paris"}, CandidateProfile{}))
	assert.Equal(t, 0.0, locationFit(JobProfile{Location: "Paris"}, CandidateProfile{Location: "Lima"}))
}

func TestResultKey(t *testing.T) {
	j, c := uuid.New(), uuid.New()
	assert.Equal(t, "match:v1:"+j.String()+":"+c.String(), ResultKey("v1", j, c, ""))
	assert.Equal(t, "match:v1:"+j.String()+":"+c.String()+":skill=1.2", ResultKey("v1", j, c, "skill=1.2"))
}

func TestWeights(t *testing.T) {
	var nilWeights Weights
	assert.True(t, nilWeights.IsDefault())
	assert.Equal(t, "", DefaultWeights().Fingerprint())

	w := Weights{FactorSkill: 3, FactorDomain: 0.1}
	assert.Equal(t, MaxPreferenceWeight, w.Get(FactorSkill))
	assert.Equal(t, MinPreferenceWeight, w.Get(FactorDomain))
	assert.Equal(t, 1.0, w.Get(FactorExperience))
	assert.Equal(t, "domain=0.5000,experience=1.0000,skill=1.5000", w.Fingerprint())
}

func TestMemoryResultCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewMemoryResultCache(2)
	ctx := context.Background()
	c.Set(ctx, "a", MatchResult{TotalScore: 1})
	c.Set(ctx, "b", MatchResult{TotalScore: 2})
	_, ok := c.Get(ctx, "a")
	require.True(t, ok)
	c.Set(ctx, "c", MatchResult{TotalScore: 3})

	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "a")
	assert.True(t, ok)
	r, ok := c.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, 3.0, r.TotalScore)
	assert.Equal(t, 2, c.Len())
}
