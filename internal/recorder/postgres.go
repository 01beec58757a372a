package recorder

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/trace"
	"crypto-autotrade/internal/types"
)

// PgxPool is the subset of *pgxpool.Pool the recorder uses.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresRecorder struct {
	pool  PgxPool
	close func()
}

var _ interfaces.Recorder = (*PostgresRecorder)(nil)

func NewPostgresRecorder(pool PgxPool) *PostgresRecorder {
	return &PostgresRecorder{pool: pool, close: func() {}}
}

// OpenPostgres connects to dsn, pings it and runs migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}
	r := &PostgresRecorder{pool: pool, close: pool.Close}
	if err := r.RunMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func (r *PostgresRecorder) RunMigrations(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS cycles (
		id           BIGSERIAL PRIMARY KEY,
		started_at   TIMESTAMPTZ NOT NULL,
		finished_at  TIMESTAMPTZ NOT NULL,
		ticker       TEXT NOT NULL,
		decision     TEXT,
		confidence   DOUBLE PRECISION,
		risk_level   TEXT,
		reason       TEXT,
		side         TEXT,
		ratio        DOUBLE PRECISION,
		notional     DOUBLE PRECISION,
		quantity     DOUBLE PRECISION,
		skip_reason  TEXT,
		order_id     TEXT,
		order_status TEXT,
		order_error  TEXT,
		cash         DOUBLE PRECISION,
		asset        DOUBLE PRECISION,
		price        DOUBLE PRECISION,
		total_value  DOUBLE PRECISION,
		sentiment    INTEGER,
		degraded     TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_cycles_started ON cycles(started_at);`)
	if err != nil {
		return fmt.Errorf("migrate cycles: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) RecordCycle(ctx context.Context, res *types.CycleResult) error {
	ctx, span := trace.StartSpan(ctx, "cycle-repo.insert")
	defer span.End()

	_, err := r.pool.Exec(ctx, `INSERT INTO cycles
		(started_at, finished_at, ticker,
		 decision, confidence, risk_level, reason,
		 side, ratio, notional, quantity, skip_reason,
		 order_id, order_status, order_error,
		 cash, asset, price, total_value,
		 sentiment, degraded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		newRow(res).args(false)...,
	)
	if err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) Close() error {
	r.close()
	return nil
}
