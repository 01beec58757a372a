package eod

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"crypto-autotrade/internal/eod/eodobs"
	"crypto-autotrade/internal/tradelog"
)

func writeJournal(t *testing.T, path string, lines ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSummarizeDay(t *testing.T) {
	day := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	j := tradelog.New(t.TempDir(), time.UTC)

	writeJournal(t, j.DecisionsPath(day),
		`{"event":"decision","decision":"buy","confidence":80,"side":"buy"}`,
		`{"event":"decision","decision":"hold","confidence":40,"side":"none","skip_reason":"confidence_below_threshold"}`,
		`{"event":"decision","decision":"sell","confidence":90,"side":"sell"}`,
		`not json`,
	)
	writeJournal(t, j.OrdersPath(day),
		`{"event":"order","ticker":"KRW-BTC","side":"buy","notional":700000,"order_id":"a","status":"done"}`,
		`{"event":"order","ticker":"KRW-BTC","side":"sell","quantity":0.1,"price":90000000,"order_id":"b","status":"done"}`,
		`{"event":"order","ticker":"KRW-BTC","side":"sell","quantity":0.1,"status":"FAILED","error":"rejected"}`,
	)

	sum, err := eodobs.Wrap(NewSummarizer(j)).SummarizeDay(context.Background(), day)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.Date != "2024-05-01" || sum.Cycles != 3 || sum.Buys != 1 || sum.Sells != 1 || sum.Holds != 1 || sum.Skipped != 1 {
		t.Errorf("unexpected decision counts %+v", sum)
	}
	if sum.AvgConfidence != 70 {
		t.Errorf("expected avg confidence 70, got %v", sum.AvgConfidence)
	}
	if sum.OrdersPlaced != 2 || sum.OrdersFailed != 1 || sum.BuyNotional != 700000 || sum.SellValue != 9000000 {
		t.Errorf("unexpected order totals %+v", sum)
	}

	f, err := os.Open(sum.CSVPath)
	if err != nil {
		t.Fatalf("expected CSV: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 5 || rows[0][0] != "ticker" || rows[4][0] != "TOTAL" {
		t.Errorf("unexpected CSV rows %v", rows)
	}

	msg := Format("KRW-BTC", sum)
	for _, want := range []string{"2024-05-01", "Cycles: 3", "2 placed, 1 failed", "Bought: 700000"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestSummarizeEmptyDay(t *testing.T) {
	j := tradelog.New(t.TempDir(), time.UTC)
	sum, err := NewSummarizer(j).SummarizeDay(context.Background(), time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if sum.CSVPath != "" || sum.Cycles != 0 {
		t.Errorf("expected empty summary, got %+v", sum)
	}
	if !strings.Contains(Format("KRW-BTC", sum), "No cycles recorded") {
		t.Error("expected empty day message")
	}
}
