package preference

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"talent-match/internal/domain/matching"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	mu      sync.Mutex
	appends int
}

func (s *failingStore) AppendOutcome(context.Context, matching.MatchOutcome) error {
	s.mu.Lock()
	s.appends++
	s.mu.Unlock()
	return errors.New("connection refused")
}

func (s *failingStore) GetPreferences(context.Context, string) (matching.Weights, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (s *failingStore) SavePreferences(context.Context, string, matching.Weights) error {
	return errors.New("connection refused")
}

// blockingStore holds every append until release is closed.
type blockingStore struct {
	*MemoryStore
	release chan struct{}
}

func (s *blockingStore) AppendOutcome(ctx context.Context, o matching.MatchOutcome) error {
	<-s.release
	return s.MemoryStore.AppendOutcome(ctx, o)
}

func outcome(client string, rating float64) matching.MatchOutcome {
	return matching.MatchOutcome{
		ID:          uuid.New(),
		JobID:       uuid.New(),
		CandidateID: uuid.New(),
		ClientID:    client,
		Rating:      rating,
		RecordedAt:  time.Now(),
	}
}

func TestGetCompanyPreferences_UnknownClientDefaults(t *testing.T) {
	l := NewLearner(NewMemoryStore(), Options{})
	assert.Equal(t, matching.DefaultWeights(), l.GetCompanyPreferences(context.Background(), "acme"))
	assert.Equal(t, matching.DefaultWeights(), l.GetCompanyPreferences(context.Background(), ""))
}

func TestGetCompanyPreferences_StoreDownDefaults(t *testing.T) {
	l := NewLearner(&failingStore{}, Options{})
	w := l.GetCompanyPreferences(context.Background(), "acme")
	assert.Equal(t, matching.DefaultWeights(), w)
}

func TestGetCompanyPreferences_LoadsSaved(t *testing.T) {
	store := NewMemoryStore()
	saved := matching.Weights{matching.FactorSkill: 1.2, matching.FactorExperience: 0.9, matching.FactorDomain: 1}
	require.NoError(t, store.SavePreferences(context.Background(), "acme", saved))

	l := NewLearner(store, Options{})
	assert.Equal(t, saved, l.GetCompanyPreferences(context.Background(), "acme"))
}

func TestTrackSuccessfulMatch_UpdatesAndPersists(t *testing.T) {
	store := NewMemoryStore()
	l := NewLearner(store, Options{LearningRate: 0.5, WritesPerSecond: 1000})
	l.Start(context.Background())

	factors := map[string]float64{matching.FactorSkill: 1, matching.FactorExperience: 0, matching.FactorDomain: 0.5}
	require.True(t, l.TrackSuccessfulMatch(Feedback{Outcome: outcome("acme", 5), Factors: factors}))
	l.Close()

	w := l.GetCompanyPreferences(context.Background(), "acme")
	// signal = 1: targets are 1.5, 1.0, 1.25; alpha = 0.5 from 1.0.
	assert.InDelta(t, 1.25, w[matching.FactorSkill], 1e-9)
	assert.InDelta(t, 1.0, w[matching.FactorExperience], 1e-9)
	assert.InDelta(t, 1.125, w[matching.FactorDomain], 1e-9)

	assert.Len(t, store.Outcomes(), 1)
	saved, found, err := store.GetPreferences(context.Background(), "acme")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, w, saved)
}

func TestTrackSuccessfulMatch_WithoutFactorsOnlyAppends(t *testing.T) {
	store := NewMemoryStore()
	l := NewLearner(store, Options{WritesPerSecond: 1000})
	l.Start(context.Background())
	require.True(t, l.TrackSuccessfulMatch(Feedback{Outcome: outcome("acme", 1)}))
	l.Close()

	assert.Len(t, store.Outcomes(), 1)
	_, found, err := store.GetPreferences(context.Background(), "acme")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTrackSuccessfulMatch_StoreDownStillLearnsInMemory(t *testing.T) {
	store := &failingStore{}
	l := NewLearner(store, Options{WritesPerSecond: 1000})
	l.Start(context.Background())

	factors := map[string]float64{matching.FactorSkill: 1}
	require.True(t, l.TrackSuccessfulMatch(Feedback{Outcome: outcome("acme", 0), Factors: factors}))
	l.Close()

	assert.Equal(t, 1, store.appends)
	w := l.GetCompanyPreferences(context.Background(), "acme")
	assert.Less(t, w[matching.FactorSkill], 1.0)
}

func TestTrackSuccessfulMatch_NeverBlocksWhenFull(t *testing.T) {
	store := &blockingStore{MemoryStore: NewMemoryStore(), release: make(chan struct{})}
	l := NewLearner(store, Options{QueueSize: 1, WritesPerSecond: 1000})
	l.Start(context.Background())

	accepted := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			if l.TrackSuccessfulMatch(Feedback{Outcome: outcome("acme", 3)}) {
				accepted++
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("TrackSuccessfulMatch blocked")
	}
	assert.Less(t, accepted, 10)

	close(store.release)
	l.Close()
	assert.Len(t, store.Outcomes(), accepted)
	assert.False(t, l.TrackSuccessfulMatch(Feedback{Outcome: outcome("acme", 3)}))
}

func TestUpdateWeights(t *testing.T) {
	factors := map[string]float64{matching.FactorSkill: 1, matching.FactorExperience: 1, matching.FactorDomain: 1}

	neutral := UpdateWeights(matching.DefaultWeights(), factors, 2.5, 0.1)
	for _, f := range matching.WeightedFactors {
		assert.InDelta(t, 1.0, neutral[f], 1e-9, f)
	}

	w := matching.DefaultWeights()
	for i := 0; i < 200; i++ {
		w = UpdateWeights(w, factors, 5, 0.1)
	}
	assert.InDelta(t, matching.MaxPreferenceWeight, w[matching.FactorSkill], 1e-6)

	for i := 0; i < 200; i++ {
		w = UpdateWeights(w, factors, 0, 0.1)
	}
	assert.InDelta(t, matching.MinPreferenceWeight, w[matching.FactorSkill], 1e-6)

	clipped := UpdateWeights(matching.DefaultWeights(), factors, 99, 1)
	assert.Equal(t, matching.MaxPreferenceWeight, clipped[matching.FactorDomain])
}
