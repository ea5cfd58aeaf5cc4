package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"talent-match/internal/database"
	"talent-match/internal/domain/matching"
	"talent-match/internal/preference"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresOutcomeStore persists outcomes and learned weights. Every failure is
// wrapped with preference.ErrStoreUnavailable.
type PostgresOutcomeStore struct {
	db database.DB
}

var _ preference.Store = (*PostgresOutcomeStore)(nil)

func NewPostgresOutcomeStore(db database.DB) *PostgresOutcomeStore {
	return &PostgresOutcomeStore{db: db}
}

func (r *PostgresOutcomeStore) AppendOutcome(ctx context.Context, o matching.MatchOutcome) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.RecordedAt.IsZero() {
		o.RecordedAt = time.Now().UTC()
	}

	query, args, err := psql.Insert("match_outcomes").
		Columns("id", "job_id", "candidate_id", "client_id", "rating", "recorded_at").
		Values(o.ID, o.JobID, o.CandidateID, strings.TrimSpace(o.ClientID), o.Rating, o.RecordedAt).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build append outcome: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: append outcome: %v", preference.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *PostgresOutcomeStore) GetPreferences(ctx context.Context, clientID string) (matching.Weights, bool, error) {
	query, args, err := psql.Select("weights").
		From("company_preferences").
		Where(sq.Eq{"client_id": clientID}).
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build get preferences: %w", err)
	}

	var raw []byte
	if err := r.db.QueryRow(ctx, query, args...).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: get preferences: %v", preference.ErrStoreUnavailable, err)
	}

	w := matching.Weights{}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, false, fmt.Errorf("decode preferences for %s: %w", clientID, err)
	}
	return w, true, nil
}

func (r *PostgresOutcomeStore) SavePreferences(ctx context.Context, clientID string, w matching.Weights) error {
	b, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	query, args, err := psql.Insert("company_preferences").
		Columns("client_id", "weights", "updated_at").
		Values(clientID, string(b), time.Now().UTC()).
		Suffix("ON CONFLICT (client_id) DO UPDATE SET weights = EXCLUDED.weights, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build save preferences: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: save preferences: %v", preference.ErrStoreUnavailable, err)
	}
	return nil
}
