package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"talent-match/internal/domain/matching"
	"talent-match/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultWorkers     = 4
	DefaultTaskTimeout = 30 * time.Second
	DefaultMaxPairs    = 50000
)

// ErrBatchTooLarge is returned when the cross product exceeds MaxPairs.
var ErrBatchTooLarge = fmt.Errorf("%w: too many pairs", ErrSchedulingFailed)

// Scorer scores one pair. *matching.MultiFactorScorer satisfies it.
type Scorer interface {
	Score(ctx context.Context, job matching.JobProfile, cand matching.CandidateProfile, hint matching.Weights) (matching.MatchResult, error)
}

// HintFunc resolves the preference hint for a job. It must not fail; return nil for
// the fixed base weights.
type HintFunc func(ctx context.Context, job matching.JobProfile) matching.Weights

type Options struct {
	Workers     int
	TaskTimeout time.Duration
	// MaxPairs bounds jobs×candidates per call; 0 disables the guard.
	MaxPairs int
	Logger   *zap.Logger
}

// RankReport lets callers detect partial failure without reading logs.
type RankReport struct {
	JobID     uuid.UUID `json:"job_id"`
	Attempted int       `json:"attempted"`
	Succeeded int       `json:"succeeded"`
	Invalid   int       `json:"invalid"`
	TimedOut  int       `json:"timed_out"`
	Failed    int       `json:"failed"`
	Degraded  int       `json:"degraded"`
}

type BatchReport struct {
	Jobs      int          `json:"jobs"`
	Attempted int          `json:"attempted"`
	Succeeded int          `json:"succeeded"`
	Invalid   int          `json:"invalid"`
	TimedOut  int          `json:"timed_out"`
	Failed    int          `json:"failed"`
	Degraded  int          `json:"degraded"`
	PerJob    []RankReport `json:"per_job"`
}

// BatchEngine scores job×candidate pairs on a bounded worker pool and ranks them.
// Per-pair failures are logged and counted, never returned.
type BatchEngine struct {
	scorer   Scorer
	workers  int
	timeout  time.Duration
	maxPairs int
	log      *zap.Logger
}

func NewBatchEngine(scorer Scorer, opts Options) *BatchEngine {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	timeout := opts.TaskTimeout
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	maxPairs := opts.MaxPairs
	if maxPairs < 0 {
		maxPairs = DefaultMaxPairs
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchEngine{
		scorer:   scorer,
		workers:  workers,
		timeout:  timeout,
		maxPairs: maxPairs,
		log:      logger.Named("batch"),
	}
}

// Rank scores every candidate against job and returns at most topK results, best
// first. topK <= 0 returns all of them.
func (e *BatchEngine) Rank(ctx context.Context, job matching.JobProfile, cands []matching.CandidateProfile, topK int, hint matching.Weights) ([]matching.MatchResult, RankReport, error) {
	lists, reports, err := e.run(ctx, []matching.JobProfile{job}, cands, topK, func(context.Context, matching.JobProfile) matching.Weights {
		return hint
	})
	if err != nil {
		return nil, RankReport{JobID: job.ID}, err
	}
	return lists[0], reports[0], nil
}

// RankMany ranks every candidate for every job. The full cross product is queued up
// front; MaxPairs is the only bound on queued work. Jobs without an id have no map
// entry; their pairs still show up as invalid in the report.
func (e *BatchEngine) RankMany(ctx context.Context, jobs []matching.JobProfile, cands []matching.CandidateProfile, topK int, hints HintFunc) (map[uuid.UUID][]matching.MatchResult, BatchReport, error) {
	jobs = dedupeJobs(jobs)
	lists, reports, err := e.run(ctx, jobs, cands, topK, hints)
	if err != nil {
		return nil, BatchReport{}, err
	}

	out := make(map[uuid.UUID][]matching.MatchResult, len(jobs))
	batch := BatchReport{Jobs: len(jobs), PerJob: reports}
	for i, job := range jobs {
		if job.ID != uuid.Nil {
			out[job.ID] = lists[i]
		}
		r := reports[i]
		batch.Attempted += r.Attempted
		batch.Succeeded += r.Succeeded
		batch.Invalid += r.Invalid
		batch.TimedOut += r.TimedOut
		batch.Failed += r.Failed
		batch.Degraded += r.Degraded
	}
	return out, batch, nil
}

type pairRef struct {
	job  int
	cand int
}

func (e *BatchEngine) run(ctx context.Context, jobs []matching.JobProfile, cands []matching.CandidateProfile, topK int, hints HintFunc) ([][]matching.MatchResult, []RankReport, error) {
	if e == nil || e.scorer == nil {
		return nil, nil, fmt.Errorf("%w: no scorer configured", ErrSchedulingFailed)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSchedulingFailed, err)
	}

	cands = dedupeCandidates(cands)
	pairs := len(jobs) * len(cands)
	if e.maxPairs > 0 && pairs > e.maxPairs {
		return nil, nil, fmt.Errorf("%w: %d pairs exceeds limit %d", ErrBatchTooLarge, pairs, e.maxPairs)
	}

	lists := make([][]matching.MatchResult, len(jobs))
	reports := make([]RankReport, len(jobs))
	for i, job := range jobs {
		lists[i] = make([]matching.MatchResult, 0)
		reports[i] = RankReport{JobID: job.ID, Attempted: len(cands)}
	}
	if pairs == 0 {
		return lists, reports, nil
	}

	start := time.Now()
	pool := NewWorkerPool[matching.MatchResult](e.workers, pairs, e.timeout)
	results := pool.Run(ctx)

	refs := make([]pairRef, 0, pairs)
	for ji, job := range jobs {
		var hint matching.Weights
		if hints != nil {
			hint = hints(ctx, job)
		}
		for ci, cand := range cands {
			if _, err := pool.Submit(func(ctx context.Context) (matching.MatchResult, error) {
				return e.scorer.Score(ctx, job, cand, hint)
			}); err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("%w: %v", ErrSchedulingFailed, err)
			}
			refs = append(refs, pairRef{job: ji, cand: ci})
		}
	}
	pool.Close()

	received := 0
	for r := range results {
		received++
		ref := refs[r.Index]
		rep := &reports[ref.job]
		if r.Err != nil {
			e.recordFailure(rep, jobs[ref.job], cands[ref.cand], r.Err)
			continue
		}
		rep.Succeeded++
		if r.Value.Degraded {
			rep.Degraded++
		}
		lists[ref.job] = append(lists[ref.job], r.Value)
	}

	// Results never delivered because ctx ended count as failures.
	if received < len(refs) {
		seen := make([]int, len(jobs))
		for i := range reports {
			seen[i] = reports[i].Succeeded + reports[i].Invalid + reports[i].TimedOut + reports[i].Failed
		}
		for i := range reports {
			reports[i].Failed += reports[i].Attempted - seen[i]
		}
		e.log.Warn("batch ended before all pairs finished",
			zap.Int("pairs", len(refs)),
			zap.Int("received", received),
			zap.Error(ctx.Err()),
		)
	}

	for i := range lists {
		SortResults(lists[i])
		if topK > 0 && len(lists[i]) > topK {
			lists[i] = lists[i][:topK]
		}
	}

	e.log.Debug("batch finished",
		zap.Int("jobs", len(jobs)),
		zap.Int("candidates", len(cands)),
		zap.Int("pairs", len(refs)),
		zap.Duration("duration", time.Since(start)),
	)
	return lists, reports, nil
}

func (e *BatchEngine) recordFailure(rep *RankReport, job matching.JobProfile, cand matching.CandidateProfile, err error) {
	status := "failed"
	switch {
	case errors.Is(err, matching.ErrInvalidProfile):
		rep.Invalid++
		status = "invalid"
		metrics.IncrPairsInvalid()
	case errors.Is(err, ErrTaskTimeout):
		rep.TimedOut++
		status = "timeout"
		metrics.IncrPairsTimedOut()
	default:
		rep.Failed++
		metrics.IncrPairsFailed()
	}
	e.log.Warn("pair dropped",
		zap.String("job_id", job.ID.String()),
		zap.String("candidate_id", cand.ID.String()),
		zap.String("status", status),
		zap.Error(err),
	)
}

// SortResults orders by score descending; equal scores order by candidate id ascending.
func SortResults(rs []matching.MatchResult) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].NormalizedScore != rs[j].NormalizedScore {
			return rs[i].NormalizedScore > rs[j].NormalizedScore
		}
		return rs[i].CandidateID.String() < rs[j].CandidateID.String()
	})
}

func dedupeJobs(jobs []matching.JobProfile) []matching.JobProfile {
	seen := make(map[uuid.UUID]struct{}, len(jobs))
	out := make([]matching.JobProfile, 0, len(jobs))
	for _, j := range jobs {
		if j.ID != uuid.Nil {
			if _, ok := seen[j.ID]; ok {
				continue
			}
			seen[j.ID] = struct{}{}
		}
		out = append(out, j)
	}
	return out
}

func dedupeCandidates(cands []matching.CandidateProfile) []matching.CandidateProfile {
	seen := make(map[uuid.UUID]struct{}, len(cands))
	out := make([]matching.CandidateProfile, 0, len(cands))
	for _, c := range cands {
		if c.ID != uuid.Nil {
			if _, ok := seen[c.ID]; ok {
				continue
			}
			seen[c.ID] = struct{}{}
		}
		out = append(out, c)
	}
	return out
}
