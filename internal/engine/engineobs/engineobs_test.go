package engineobs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"crypto-autotrade/internal/logger"
	"crypto-autotrade/internal/types"
)

type engineFunc func(ctx context.Context) (*types.CycleResult, error)

func (f engineFunc) Cycle(ctx context.Context) (*types.CycleResult, error) { return f(ctx) }

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	if err := logger.InitWithConfig(logger.LogConfig{Level: "INFO", Format: "json", Output: &buf}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = logger.InitWithConfig(logger.LogConfig{Level: "INFO", Format: "json"}) })
	return &buf
}

func findRecord(t *testing.T, buf *bytes.Buffer, msg string) map[string]any {
	t.Helper()
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("invalid log line %q: %v", sc.Text(), err)
		}
		if rec["msg"] == msg {
			return rec
		}
	}
	t.Fatalf("no %q record in logs", msg)
	return nil
}

func TestCycleLogsDuration(t *testing.T) {
	buf := captureLogs(t)
	eng := Wrap(engineFunc(func(ctx context.Context) (*types.CycleResult, error) {
		return &types.CycleResult{
			Ticker: "KRW-BTC",
			Intent: types.TradeIntent{Decision: types.DecisionHold, ConfidenceScore: 55},
			Plan:   types.OrderPlan{Side: types.SideNone, SkipReason: "hold"},
		}, nil
	}))

	res, err := eng.Cycle(context.Background())
	if err != nil || res.Ticker != "KRW-BTC" {
		t.Fatalf("expected pass-through result, got %+v %v", res, err)
	}

	rec := findRecord(t, buf, "Operation completed")
	if rec["operation"] != "engine.Cycle" {
		t.Errorf("expected operation engine.Cycle, got %v", rec["operation"])
	}
	if _, ok := rec["duration_ms"].(float64); !ok {
		t.Errorf("expected numeric duration_ms, got %v", rec["duration_ms"])
	}
	if rec["skip_reason"] != "hold" || rec["ticker"] != "KRW-BTC" {
		t.Errorf("expected cycle fields on the record, got %v", rec)
	}
}

func TestCycleFailureLogsDuration(t *testing.T) {
	buf := captureLogs(t)
	boom := errors.New("exchange down")
	eng := Wrap(engineFunc(func(ctx context.Context) (*types.CycleResult, error) {
		return &types.CycleResult{Ticker: "KRW-BTC"}, boom
	}))

	res, err := eng.Cycle(context.Background())
	if !errors.Is(err, boom) || res == nil {
		t.Fatalf("expected partial result and error, got %+v %v", res, err)
	}

	rec := findRecord(t, buf, "Operation failed")
	if _, ok := rec["duration_ms"].(float64); !ok {
		t.Errorf("expected numeric duration_ms, got %v", rec["duration_ms"])
	}
	if rec["error"] != "exchange down" || rec["level"] != "ERROR" {
		t.Errorf("unexpected failure record %v", rec)
	}
}
