package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"

	"talent-match/internal/database"
	"talent-match/internal/domain/matching"
	"talent-match/internal/preference"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	query string
	args  []any
}

// fakeDB records statements and answers QueryRow with row.
type fakeDB struct {
	calls   []call
	execErr error
	row     fakeRow
}

func (f *fakeDB) Ping(context.Context) error { return nil }
func (f *fakeDB) Close() error               { return nil }
func (f *fakeDB) SQLDB() *sql.DB             { return nil }

func (f *fakeDB) Exec(_ context.Context, query string, args ...any) (int64, error) {
	f.calls = append(f.calls, call{query: query, args: args})
	if f.execErr != nil {
		return 0, f.execErr
	}
	return 1, nil
}

func (f *fakeDB) QueryRow(_ context.Context, query string, args ...any) database.Row {
	f.calls = append(f.calls, call{query: query, args: args})
	return f.row
}

type fakeRow struct {
	raw []byte
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.raw
	return nil
}

func TestAppendOutcome_BuildsInsert(t *testing.T) {
	db := &fakeDB{}
	store := NewPostgresOutcomeStore(db)

	o := matching.MatchOutcome{JobID: uuid.New(), CandidateID: uuid.New(), ClientID: " acme ", Rating: 4}
	require.NoError(t, store.AppendOutcome(context.Background(), o))

	require.Len(t, db.calls, 1)
	c := db.calls[0]
	assert.Equal(t,
		"INSERT INTO match_outcomes (id,job_id,candidate_id,client_id,rating,recorded_at) VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (id) DO NOTHING",
		c.query)
	require.Len(t, c.args, 6)
	assert.NotEqual(t, uuid.Nil, c.args[0])
	assert.Equal(t, "acme", c.args[3])
	assert.Equal(t, 4.0, c.args[4])
}

func TestAppendOutcome_WrapsStoreErrors(t *testing.T) {
	store := NewPostgresOutcomeStore(&fakeDB{execErr: errors.New("connection reset")})
	err := store.AppendOutcome(context.Background(), matching.MatchOutcome{JobID: uuid.New()})
	require.ErrorIs(t, err, preference.ErrStoreUnavailable)
}

func TestGetPreferences(t *testing.T) {
	raw, err := json.Marshal(matching.Weights{matching.FactorSkill: 1.2})
	require.NoError(t, err)

	db := &fakeDB{row: fakeRow{raw: raw}}
	w, found, err := NewPostgresOutcomeStore(db).GetPreferences(context.Background(), "acme")
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 1.2, w[matching.FactorSkill], 1e-9)
	assert.Equal(t, "SELECT weights FROM company_preferences WHERE client_id = $1", db.calls[0].query)

	_, found, err = NewPostgresOutcomeStore(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}}).GetPreferences(context.Background(), "acme")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = NewPostgresOutcomeStore(&fakeDB{row: fakeRow{err: errors.New("timeout")}}).GetPreferences(context.Background(), "acme")
	require.ErrorIs(t, err, preference.ErrStoreUnavailable)
}

func TestSavePreferences_Upserts(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, NewPostgresOutcomeStore(db).SavePreferences(context.Background(), "acme", matching.DefaultWeights()))

	require.Len(t, db.calls, 1)
	assert.Contains(t, db.calls[0].query, "ON CONFLICT (client_id) DO UPDATE")
	assert.Equal(t, "acme", db.calls[0].args[0])

	var decoded map[string]float64
	require.NoError(t, json.Unmarshal([]byte(db.calls[0].args[1].(string)), &decoded))
	assert.Equal(t, 1.0, decoded[matching.FactorSkill])
}
