package embedding

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// VectorStore persists computed vectors so a restart does not re-embed everything.
type VectorStore interface {
	Load(ctx context.Context, model string) (map[string][]float32, error)
	Save(ctx context.Context, model, text string, vec []float32) error
	Close() error
}

// SQLiteStore keeps vectors in a local SQLite file keyed by (model, text). Rows older
// than ttl are skipped and pruned on Load; ttl <= 0 keeps them forever.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func OpenSQLiteStore(path string, ttl time.Duration) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("embedding store: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("embedding store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS skill_embeddings (
		model      TEXT NOT NULL,
		text       TEXT NOT NULL,
		dim        INTEGER NOT NULL,
		vector     BLOB NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (model, text)
	)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("embedding store: init schema: %w", err)
	}
	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, model string) (map[string][]float32, error) {
	query := `SELECT text, dim, vector FROM skill_embeddings WHERE model = ?`
	args := []any{model}
	if s.ttl > 0 {
		cutoff := s.now().Add(-s.ttl).UTC().Format(time.RFC3339)
		if _, err := s.db.ExecContext(ctx, `DELETE FROM skill_embeddings WHERE model = ? AND created_at < ?`, model, cutoff); err != nil {
			return nil, fmt.Errorf("embedding store: prune: %w", err)
		}
		query += ` AND created_at >= ?`
		args = append(args, cutoff)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("embedding store: load: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]float32)
	for rows.Next() {
		var (
			text string
			dim  int
			blob []byte
		)
		if err := rows.Scan(&text, &dim, &blob); err != nil {
			return nil, fmt.Errorf("embedding store: scan: %w", err)
		}
		vec, ok := decodeVector(blob, dim)
		if !ok {
			continue
		}
		out[text] = vec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("embedding store: rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Save(ctx context.Context, model, text string, vec []float32) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO skill_embeddings (model, text, dim, vector, created_at) VALUES (?, ?, ?, ?, ?)`,
		model, text, len(vec), encodeVector(vec), s.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("embedding store: save %q: %w", text, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte, dim int) ([]float32, bool) {
	if dim <= 0 || len(buf) != 4*dim {
		return nil, false
	}
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, true
}
