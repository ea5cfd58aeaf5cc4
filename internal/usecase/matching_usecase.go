package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"talent-match/internal/domain/matching"
	"talent-match/internal/pipeline"
	"talent-match/internal/preference"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const defaultAttributionLimit = 50000

type MatchingUsecase interface {
	ScoreOne(ctx context.Context, job matching.JobProfile, cand matching.CandidateProfile) (matching.MatchResult, error)
	Rank(ctx context.Context, job matching.JobProfile, cands []matching.CandidateProfile, topK int) ([]matching.MatchResult, pipeline.RankReport, error)
	RankMany(ctx context.Context, jobs []matching.JobProfile, cands []matching.CandidateProfile, topK int) (map[uuid.UUID][]matching.MatchResult, pipeline.BatchReport, error)
	TrackOutcome(in OutcomeInput) (bool, error)
	GetCompanyPreferences(ctx context.Context, clientID string) matching.Weights
}

// PreferenceLearner is satisfied by *preference.Learner.
type PreferenceLearner interface {
	GetCompanyPreferences(ctx context.Context, clientID string) matching.Weights
	TrackSuccessfulMatch(fb preference.Feedback) bool
}

type OutcomeInput struct {
	JobID       uuid.UUID
	CandidateID uuid.UUID
	// ClientID overrides the client remembered from the scored result.
	ClientID string
	Rating   float64
}

type MatchingOptions struct {
	AttributionLimit int
	Logger           *zap.Logger
}

// Matching wires the scorer, the batch engine and the preference learner. Every
// returned result is remembered per (job, candidate) so later outcomes can be
// attributed to the factor breakdown that produced them.
type Matching struct {
	scorer  pipeline.Scorer
	engine  *pipeline.BatchEngine
	learner PreferenceLearner
	log     *zap.Logger
	last    *lru.Cache[pairKey, matching.MatchResult]
}

type pairKey struct {
	job  uuid.UUID
	cand uuid.UUID
}

var _ MatchingUsecase = (*Matching)(nil)

func NewMatchingUsecase(scorer pipeline.Scorer, engine *pipeline.BatchEngine, learner PreferenceLearner, opts MatchingOptions) *Matching {
	limit := opts.AttributionLimit
	if limit <= 0 {
		limit = defaultAttributionLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	last, _ := lru.New[pairKey, matching.MatchResult](limit)
	return &Matching{
		scorer:  scorer,
		engine:  engine,
		learner: learner,
		log:     logger.Named("matching"),
		last:    last,
	}
}

func (u *Matching) ScoreOne(ctx context.Context, job matching.JobProfile, cand matching.CandidateProfile) (matching.MatchResult, error) {
	res, err := u.scorer.Score(ctx, job, cand, u.hintFor(ctx, job))
	if err != nil {
		return matching.MatchResult{}, err
	}
	u.remember(res)
	return res, nil
}

func (u *Matching) Rank(ctx context.Context, job matching.JobProfile, cands []matching.CandidateProfile, topK int) ([]matching.MatchResult, pipeline.RankReport, error) {
	results, report, err := u.engine.Rank(ctx, job, cands, topK, u.hintFor(ctx, job))
	if err != nil {
		return nil, report, err
	}
	u.remember(results...)
	u.logReport(report)
	return results, report, nil
}

func (u *Matching) RankMany(ctx context.Context, jobs []matching.JobProfile, cands []matching.CandidateProfile, topK int) (map[uuid.UUID][]matching.MatchResult, pipeline.BatchReport, error) {
	out, report, err := u.engine.RankMany(ctx, jobs, cands, topK, u.hintFor)
	if err != nil {
		return nil, report, err
	}
	for _, rs := range out {
		u.remember(rs...)
	}
	for _, r := range report.PerJob {
		u.logReport(r)
	}
	return out, report, nil
}

// TrackOutcome hands the outcome to the learner without blocking. It reports whether
// the outcome was queued; a full queue is not an error.
func (u *Matching) TrackOutcome(in OutcomeInput) (bool, error) {
	if in.JobID == uuid.Nil || in.CandidateID == uuid.Nil {
		return false, fmt.Errorf("%w: job_id and candidate_id are required", ErrInvalidInput)
	}
	if in.Rating < 0 || in.Rating > preference.MaxRating {
		return false, fmt.Errorf("%w: rating must be between 0 and %g", ErrInvalidInput, preference.MaxRating)
	}
	if u.learner == nil {
		return false, nil
	}

	outcome := matching.MatchOutcome{
		ID:          uuid.New(),
		JobID:       in.JobID,
		CandidateID: in.CandidateID,
		ClientID:    strings.TrimSpace(in.ClientID),
		Rating:      in.Rating,
		RecordedAt:  time.Now().UTC(),
	}

	fb := preference.Feedback{Outcome: outcome}
	if res, ok := u.lookup(in.JobID, in.CandidateID); ok {
		if fb.Outcome.ClientID == "" {
			fb.Outcome.ClientID = res.ClientID
		}
		fb.Factors = map[string]float64{
			matching.FactorSkill:      res.Factor(matching.FactorSkill),
			matching.FactorExperience: res.Factor(matching.FactorExperience),
			matching.FactorDomain:     res.Factor(matching.FactorDomain),
		}
	} else {
		u.log.Debug("outcome for unscored pair, weights unchanged",
			zap.String("job_id", in.JobID.String()),
			zap.String("candidate_id", in.CandidateID.String()),
		)
	}

	return u.learner.TrackSuccessfulMatch(fb), nil
}

func (u *Matching) GetCompanyPreferences(ctx context.Context, clientID string) matching.Weights {
	if u.learner == nil {
		return matching.DefaultWeights()
	}
	return u.learner.GetCompanyPreferences(ctx, clientID)
}

// hintFor returns nil for jobs without a client or with default weights, so they
// share cache entries with plain scoring.
func (u *Matching) hintFor(ctx context.Context, job matching.JobProfile) matching.Weights {
	if u.learner == nil {
		return nil
	}
	client := strings.TrimSpace(job.ClientID)
	if client == "" {
		client = strings.TrimSpace(job.Department)
	}
	if client == "" {
		return nil
	}
	w := u.learner.GetCompanyPreferences(ctx, client)
	if w.IsDefault() {
		return nil
	}
	return w
}

func (u *Matching) remember(results ...matching.MatchResult) {
	for _, r := range results {
		u.last.Add(pairKey{job: r.JobID, cand: r.CandidateID}, r)
	}
}

func (u *Matching) lookup(jobID, candID uuid.UUID) (matching.MatchResult, bool) {
	return u.last.Get(pairKey{job: jobID, cand: candID})
}

func (u *Matching) logReport(r pipeline.RankReport) {
	if r.Succeeded == r.Attempted {
		return
	}
	u.log.Info("rank finished with dropped pairs",
		zap.String("job_id", r.JobID.String()),
		zap.Int("attempted", r.Attempted),
		zap.Int("succeeded", r.Succeeded),
		zap.Int("invalid", r.Invalid),
		zap.Int("timed_out", r.TimedOut),
		zap.Int("failed", r.Failed),
	)
}
