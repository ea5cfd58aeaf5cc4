package preference

import (
	"context"
	"errors"
	"sync"

	"talent-match/internal/domain/matching"
)

// ErrStoreUnavailable wraps any failure of the external outcome store.
var ErrStoreUnavailable = errors.New("preference store unavailable")

// Store is the narrow persistence surface the learner writes through.
type Store interface {
	AppendOutcome(ctx context.Context, outcome matching.MatchOutcome) error
	// GetPreferences reports found=false for a client with no saved weights.
	GetPreferences(ctx context.Context, clientID string) (w matching.Weights, found bool, err error)
	SavePreferences(ctx context.Context, clientID string, w matching.Weights) error
}

// MemoryStore keeps everything in process. Used when no database is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	outcomes []matching.MatchOutcome
	prefs    map[string]matching.Weights
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prefs: make(map[string]matching.Weights)}
}

func (s *MemoryStore) AppendOutcome(_ context.Context, outcome matching.MatchOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcome)
	return nil
}

func (s *MemoryStore) GetPreferences(_ context.Context, clientID string) (matching.Weights, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.prefs[clientID]
	if !ok {
		return nil, false, nil
	}
	return w.Clone(), true, nil
}

func (s *MemoryStore) SavePreferences(_ context.Context, clientID string, w matching.Weights) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[clientID] = w.Clone()
	return nil
}

// Outcomes returns a copy of every appended outcome.
func (s *MemoryStore) Outcomes() []matching.MatchOutcome {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]matching.MatchOutcome, len(s.outcomes))
	copy(out, s.outcomes)
	return out
}
