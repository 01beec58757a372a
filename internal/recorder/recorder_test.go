package recorder

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"crypto-autotrade/internal/types"
)

func sampleResult() *types.CycleResult {
	sentiment := 20
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	return &types.CycleResult{
		Ticker:     "KRW-BTC",
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
		Account:    types.NewAccountStatus(1000000, 0, 0, 90000000),
		Sentiment:  &sentiment,
		Intent:     types.TradeIntent{Decision: types.DecisionBuy, ConfidenceScore: 85, RiskLevel: types.RiskMedium, Reason: "oversold"},
		Plan:       types.OrderPlan{Side: types.SideBuy, Ratio: 0.9995, Notional: 999500},
		Order:      &types.OrderResp{OrderID: "SIM-1", Status: "SIMULATED"},
		Degraded:   []string{"news"},
	}
}

func TestSQLiteRecordCycle(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cycles.db")

	rec, err := NewSQLiteRecorder(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rec.Close()

	if err := rec.RecordCycle(ctx, sampleResult()); err != nil {
		t.Fatalf("record: %v", err)
	}
	skip := sampleResult()
	skip.Plan = types.OrderPlan{Side: types.SideNone, SkipReason: "confidence_below_threshold"}
	skip.Order = nil
	skip.Sentiment = nil
	if err := rec.RecordCycle(ctx, skip); err != nil {
		t.Fatalf("record skip: %v", err)
	}

	var count int
	if err := rec.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cycles`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows, got %d", count)
	}

	var (
		started    int64
		decision   string
		notional   float64
		orderID    string
		sentiment  sql.NullInt64
		degraded   string
		skipReason string
	)
	err = rec.db.QueryRowContext(ctx, `SELECT started_at, decision, notional, order_id, sentiment, degraded, skip_reason
		FROM cycles ORDER BY id LIMIT 1`).Scan(&started, &decision, &notional, &orderID, &sentiment, &degraded, &skipReason)
	if err != nil {
		t.Fatal(err)
	}
	if started != sampleResult().StartedAt.Unix() || decision != "buy" || notional != 999500 || orderID != "SIM-1" {
		t.Errorf("unexpected row: %d %s %v %s", started, decision, notional, orderID)
	}
	if !sentiment.Valid || sentiment.Int64 != 20 || degraded != "news" || skipReason != "" {
		t.Errorf("unexpected row extras: %v %q %q", sentiment, degraded, skipReason)
	}

	if err := rec.db.QueryRowContext(ctx, `SELECT sentiment FROM cycles ORDER BY id DESC LIMIT 1`).Scan(&sentiment); err != nil {
		t.Fatal(err)
	}
	if sentiment.Valid {
		t.Error("expected NULL sentiment when unavailable")
	}
}

func TestSQLiteReopenKeepsRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cycles.db")

	rec, err := NewSQLiteRecorder(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := rec.RecordCycle(ctx, sampleResult()); err != nil {
		t.Fatal(err)
	}
	rec.Close()

	rec, err = NewSQLiteRecorder(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer rec.Close()
	var count int
	if err := rec.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cycles`).Scan(&count); err != nil || count != 1 {
		t.Errorf("expected 1 row after reopen, got %d err=%v", count, err)
	}
}

type stubPool struct {
	execSQL  []string
	execArgs [][]any
	err      error
}

func (s *stubPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execSQL = append(s.execSQL, sql)
	s.execArgs = append(s.execArgs, args)
	return pgconn.CommandTag{}, s.err
}

func TestPostgresRunMigrations(t *testing.T) {
	pool := &stubPool{}
	if err := NewPostgresRecorder(pool).RunMigrations(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool.execSQL) != 1 || !strings.Contains(pool.execSQL[0], "CREATE TABLE IF NOT EXISTS cycles") {
		t.Fatalf("expected schema Exec, got %v", pool.execSQL)
	}
}

func TestPostgresRecordCycle(t *testing.T) {
	pool := &stubPool{}
	res := sampleResult()
	if err := NewPostgresRecorder(pool).RecordCycle(context.Background(), res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	args := pool.execArgs[0]
	if len(args) != 21 {
		t.Fatalf("expected 21 args, got %d", len(args))
	}
	if ts, ok := args[0].(time.Time); !ok || !ts.Equal(res.StartedAt) {
		t.Errorf("expected started_at as time.Time, got %#v", args[0])
	}
	if args[3] != "buy" || args[12] != "SIM-1" {
		t.Errorf("unexpected args %v", args)
	}
}

func TestPostgresRecordCycleError(t *testing.T) {
	boom := errors.New("boom")
	err := NewPostgresRecorder(&stubPool{err: boom}).RecordCycle(context.Background(), sampleResult())
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped boom, got %v", err)
	}
}

func TestNoopRecorder(t *testing.T) {
	rec := NewNoopRecorder()
	if err := rec.RecordCycle(context.Background(), sampleResult()); err != nil {
		t.Error(err)
	}
	if err := rec.Close(); err != nil {
		t.Error(err)
	}
}
