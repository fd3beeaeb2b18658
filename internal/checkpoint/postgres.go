package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/purc-go/purc/internal/db"
)

// PostgresStore is the durable backing for coroutine-stack snapshots
// (spec.md §4.D), replacing the teacher's in-memory Store for
// deployments configured with CheckpointConfig.DSN. Schema and
// connection-pool handling follow the teacher's store.PostgresStore.
type PostgresStore struct {
	conn db.Database
}

// NewPostgresStore opens a pooled connection to dsn and ensures the
// checkpoints table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	conn, err := db.NewPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}

	s := &PostgresStore{conn: conn}
	if err := s.ensureSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS coroutine_checkpoints (
		cid BIGINT PRIMARY KEY,
		runner_id TEXT NOT NULL,
		step TEXT NOT NULL,
		data JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("ensure checkpoints schema: %w", err)
	}
	_, err = s.conn.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS idx_coroutine_checkpoints_runner ON coroutine_checkpoints(runner_id)`)
	return err
}

func (s *PostgresStore) Close() error { return s.conn.Close() }

// Save persists a coroutine's serialized stack state. data is expected to
// be a variant.Variant tree run through ToJSON — the stack frame chain
// encoded as an array of frame snapshots, one entry per component D's
// Stack.At(i).
func (s *PostgresStore) Save(ctx context.Context, cid uint64, runnerID, step string, data []byte, ttl time.Duration) error {
	now := time.Now()
	_, err := s.conn.Exec(ctx, `
		INSERT INTO coroutine_checkpoints (cid, runner_id, step, data, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cid) DO UPDATE SET
			runner_id = EXCLUDED.runner_id,
			step = EXCLUDED.step,
			data = EXCLUDED.data,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`, cid, runnerID, step, data, now, now.Add(ttl))
	return err
}

// Load retrieves the most recent non-expired checkpoint for cid, or nil
// if none exists.
func (s *PostgresStore) Load(ctx context.Context, cid uint64) (*State, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT cid, runner_id, step, data, created_at, expires_at
		FROM coroutine_checkpoints
		WHERE cid = $1 AND expires_at > now()
	`, cid)

	var st State
	var gotCID uint64
	if err := row.Scan(&gotCID, &st.FunctionID, &st.Step, &st.Data, &st.CreatedAt, &st.ExpiresAt); err != nil {
		return nil, nil
	}
	st.RequestID = fmt.Sprintf("%d", gotCID)
	return &st, nil
}

// Delete removes a coroutine's checkpoint, called once it reaches
// StateExited and no longer needs to resume from a snapshot.
func (s *PostgresStore) Delete(ctx context.Context, cid uint64) error {
	_, err := s.conn.Exec(ctx, `DELETE FROM coroutine_checkpoints WHERE cid = $1`, cid)
	return err
}

// Prune removes every expired checkpoint, meant to be called on a timer
// rather than per-request.
func (s *PostgresStore) Prune(ctx context.Context) (int64, error) {
	res, err := s.conn.Exec(ctx, `DELETE FROM coroutine_checkpoints WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}
