package preference

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"talent-match/internal/domain/matching"
	"talent-match/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	MaxRating = 5.0

	DefaultLearningRate    = 0.1
	defaultQueueSize       = 256
	defaultWritesPerSecond = 50
	defaultLookupTimeout   = 500 * time.Millisecond
	writeTimeout           = 5 * time.Second
)

type Options struct {
	LearningRate    float64
	QueueSize       int
	WritesPerSecond float64
	LookupTimeout   time.Duration
	Logger          *zap.Logger
}

// Feedback is one outcome plus the factor breakdown of the result it rates.
// Factors may be nil when the pair was never scored by this process; the outcome is
// still appended but weights stay untouched.
type Feedback struct {
	Outcome matching.MatchOutcome
	Factors map[string]float64
}

// Learner keeps per-client weight estimates and persists outcomes off the hot path.
// Writes go through a bounded queue drained by one goroutine, so writes for a client
// are applied in submission order.
type Learner struct {
	store   Store
	alpha   float64
	timeout time.Duration
	limiter *rate.Limiter
	log     *zap.Logger

	mu      sync.RWMutex
	weights map[string]matching.Weights

	queueMu sync.RWMutex
	queue   chan Feedback
	closed  bool
	started bool
	done    chan struct{}
}

// NewLearner builds a learner. A nil store keeps learning in memory only.
func NewLearner(store Store, opts Options) *Learner {
	alpha := opts.LearningRate
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultLearningRate
	}
	size := opts.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	wps := opts.WritesPerSecond
	if wps <= 0 {
		wps = defaultWritesPerSecond
	}
	timeout := opts.LookupTimeout
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Learner{
		store:   store,
		alpha:   alpha,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Limit(wps), 1),
		log:     logger.Named("preference"),
		weights: make(map[string]matching.Weights),
		queue:   make(chan Feedback, size),
		done:    make(chan struct{}),
	}
}

// Start launches the drain goroutine. ctx only paces writes; Close flushes the queue.
func (l *Learner) Start(ctx context.Context) {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	if l.started || l.closed {
		return
	}
	l.started = true
	go l.drain(ctx)
}

// Close stops accepting feedback and waits for queued writes to finish.
func (l *Learner) Close() {
	l.queueMu.Lock()
	if l.closed {
		l.queueMu.Unlock()
		return
	}
	l.closed = true
	close(l.queue)
	started := l.started
	l.queueMu.Unlock()

	if started {
		<-l.done
	}
}

// GetCompanyPreferences returns the learned weights for clientID, or the default
// mapping when none are known or the store cannot be reached. It never fails.
func (l *Learner) GetCompanyPreferences(ctx context.Context, clientID string) matching.Weights {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return matching.DefaultWeights()
	}

	l.mu.RLock()
	w, ok := l.weights[clientID]
	l.mu.RUnlock()
	if ok {
		return w.Clone()
	}

	w, err := l.load(ctx, clientID)
	if err != nil {
		l.log.Warn("preference lookup failed, using defaults", zap.String("client_id", clientID), zap.Error(err))
		return matching.DefaultWeights()
	}

	l.mu.Lock()
	if existing, ok := l.weights[clientID]; ok {
		w = existing
	} else {
		l.weights[clientID] = w
	}
	l.mu.Unlock()
	return w.Clone()
}

// TrackSuccessfulMatch enqueues feedback without blocking. It reports false when the
// feedback was dropped because the queue is full or the learner is closed.
func (l *Learner) TrackSuccessfulMatch(fb Feedback) bool {
	l.queueMu.RLock()
	defer l.queueMu.RUnlock()
	if l.closed {
		metrics.IncrOutcomesDropped()
		return false
	}
	select {
	case l.queue <- fb:
		metrics.IncrOutcomesEnqueued()
		return true
	default:
		metrics.IncrOutcomesDropped()
		l.log.Warn("preference queue full, dropping outcome",
			zap.String("client_id", fb.Outcome.ClientID),
			zap.String("job_id", fb.Outcome.JobID.String()),
			zap.String("candidate_id", fb.Outcome.CandidateID.String()),
		)
		return false
	}
}

func (l *Learner) drain(ctx context.Context) {
	defer close(l.done)
	for fb := range l.queue {
		if err := l.limiter.Wait(ctx); err != nil && ctx.Err() == nil {
			l.log.Debug("rate limiter wait failed", zap.Error(err))
		}
		l.apply(fb)
	}
}

func (l *Learner) apply(fb Feedback) {
	clientID := strings.TrimSpace(fb.Outcome.ClientID)

	if l.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := l.store.AppendOutcome(ctx, fb.Outcome)
		cancel()
		if err != nil {
			metrics.IncrOutcomeWriteFails()
			l.log.Warn("append outcome failed",
				zap.String("client_id", clientID),
				zap.String("job_id", fb.Outcome.JobID.String()),
				zap.Error(err),
			)
		} else {
			metrics.IncrOutcomesWritten()
		}
	}

	if clientID == "" || fb.Factors == nil {
		return
	}

	current := l.current(clientID)
	next := UpdateWeights(current, fb.Factors, fb.Outcome.Rating, l.alpha)

	l.mu.Lock()
	l.weights[clientID] = next
	l.mu.Unlock()

	if l.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := l.store.SavePreferences(ctx, clientID, next); err != nil {
		metrics.IncrOutcomeWriteFails()
		l.log.Warn("save preferences failed", zap.String("client_id", clientID), zap.Error(err))
	}
}

func (l *Learner) current(clientID string) matching.Weights {
	l.mu.RLock()
	w, ok := l.weights[clientID]
	l.mu.RUnlock()
	if ok {
		return w
	}
	w, err := l.load(context.Background(), clientID)
	if err != nil {
		l.log.Warn("preference load failed, learning from defaults", zap.String("client_id", clientID), zap.Error(err))
		return matching.DefaultWeights()
	}
	return w
}

func (l *Learner) load(ctx context.Context, clientID string) (matching.Weights, error) {
	if l.store == nil {
		return matching.DefaultWeights(), nil
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	w, found, err := l.store.GetPreferences(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !found {
		return matching.DefaultWeights(), nil
	}
	return w.Clone(), nil
}

// UpdateWeights moves each weight one EMA step toward 1 + 0.5·signal·score, where
// signal maps the rating to [-1,1]. Good outcomes pull weight toward factors that
// scored high for the rated pair; poor outcomes push it away.
func UpdateWeights(current matching.Weights, factors map[string]float64, rating, alpha float64) matching.Weights {
	r := clamp(rating/MaxRating, 0, 1)
	signal := 2 * (r - 0.5)

	next := make(matching.Weights, len(matching.WeightedFactors))
	for _, f := range matching.WeightedFactors {
		s := clamp(factors[f], 0, 1)
		target := 1 + 0.5*signal*s
		next[f] = clamp((1-alpha)*current.Get(f)+alpha*target, matching.MinPreferenceWeight, matching.MaxPreferenceWeight)
	}
	return next
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
