package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Database on top of a pgxpool connection pool, the
// teacher's store.PostgresStore shape generalized to the abstract
// Executor/Tx interfaces above so internal/checkpoint doesn't import pgx
// directly.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a pooled connection to dsn and verifies connectivity.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) DriverName() string { return "postgres" }

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Exec(ctx context.Context, sql string, args ...any) (Result, error) {
	tag, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgResult{tag}, nil
}

func (p *Postgres) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

func (p *Postgres) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgRows{rows}, nil
}

func (p *Postgres) BeginTx(ctx context.Context, opts *TxOptions) (Tx, error) {
	pgxOpts := pgx.TxOptions{}
	if opts != nil {
		if opts.ReadOnly {
			pgxOpts.AccessMode = pgx.ReadOnly
		}
		switch opts.IsolationLevel {
		case "serializable":
			pgxOpts.IsoLevel = pgx.Serializable
		case "repeatable read":
			pgxOpts.IsoLevel = pgx.RepeatableRead
		case "read committed":
			pgxOpts.IsoLevel = pgx.ReadCommitted
		}
	}

	tx, err := p.pool.BeginTx(ctx, pgxOpts)
	if err != nil {
		return nil, err
	}
	return pgTx{tx}, nil
}

type pgResult struct {
	tag pgconn.CommandTag
}

func (r pgResult) RowsAffected() int64 { return r.tag.RowsAffected() }

type pgRows struct {
	rows pgx.Rows
}

func (r pgRows) Next() bool             { return r.rows.Next() }
func (r pgRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r pgRows) Err() error             { return r.rows.Err() }
func (r pgRows) Close()                 { r.rows.Close() }

type pgTx struct {
	tx pgx.Tx
}

func (t pgTx) Exec(ctx context.Context, sql string, args ...any) (Result, error) {
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgResult{tag}, nil
}

func (t pgTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return t.tx.QueryRow(ctx, sql, args...)
}

func (t pgTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgRows{rows}, nil
}

func (t pgTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t pgTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }
