package tradelog

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"crypto-autotrade/internal/types"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestJournal(t *testing.T, start time.Time) (*Journal, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: start}
	j := newWithClock(t.TempDir(), time.UTC, clk.now)
	t.Cleanup(func() { j.Close() })
	return j, clk
}

func cycle(decision types.Decision, side types.Side) *types.CycleResult {
	sentiment := 30
	res := &types.CycleResult{
		Ticker:    "KRW-BTC",
		Account:   types.NewAccountStatus(1000000, 0.5, 80000000, 90000000),
		Sentiment: &sentiment,
		Intent:    types.TradeIntent{Decision: decision, ConfidenceScore: 82, RiskLevel: types.RiskLow, Reason: "trend"},
		Plan:      types.OrderPlan{Side: side},
	}
	switch side {
	case types.SideBuy:
		res.Plan.Ratio, res.Plan.Notional = 0.7, 700000
		res.Order = &types.OrderResp{OrderID: "SIM-1", Status: "SIMULATED"}
	case types.SideSell:
		res.Plan.Ratio, res.Plan.Quantity = 0.5, 0.25
		res.OrderError = "insufficient_funds"
	default:
		res.Plan.SkipReason = "confidence_below_threshold"
	}
	return res
}

func TestRecordCycleWritesBothJournals(t *testing.T) {
	day := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	j, _ := newTestJournal(t, day)
	ctx := context.Background()

	for _, res := range []*types.CycleResult{
		cycle(types.DecisionBuy, types.SideBuy),
		cycle(types.DecisionHold, types.SideNone),
		cycle(types.DecisionSell, types.SideSell),
	} {
		if err := j.RecordCycle(ctx, res); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	decisions, err := j.ReadDecisions(day)
	if err != nil {
		t.Fatal(err)
	}
	if len(decisions) != 3 {
		t.Fatalf("expected 3 decisions, got %d", len(decisions))
	}
	if decisions[1].SkipReason != "confidence_below_threshold" || decisions[0].Sentiment == nil || *decisions[0].Sentiment != 30 {
		t.Errorf("unexpected decisions %+v", decisions)
	}

	orders, err := j.ReadOrders(day)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if orders[0].OrderID != "SIM-1" || orders[0].Notional != 700000 {
		t.Errorf("unexpected buy entry %+v", orders[0])
	}
	if orders[1].Status != "FAILED" || orders[1].Error != "insufficient_funds" || orders[1].Quantity != 0.25 {
		t.Errorf("unexpected sell entry %+v", orders[1])
	}
}

func TestJournalLinesCarryEventAndTime(t *testing.T) {
	day := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	j, _ := newTestJournal(t, day)
	if err := j.AppendOrder(OrderEntry{Ticker: "KRW-BTC", Side: "buy"}); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(j.OrdersPath(day))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		t.Fatal("expected one line")
	}
	var line map[string]any
	if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if line["event"] != EventOrder || line["time"] != "2024-05-01T10:00:00Z" {
		t.Errorf("unexpected line %v", line)
	}
}

func TestJournalRotatesAtDayBoundary(t *testing.T) {
	day1 := time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC)
	j, clk := newTestJournal(t, day1)

	_ = j.AppendOrder(OrderEntry{OrderID: "a"})
	clk.t = day1.Add(2 * time.Minute)
	_ = j.AppendOrder(OrderEntry{OrderID: "b"})

	first, _ := j.ReadOrders(day1)
	second, _ := j.ReadOrders(clk.t)
	if len(first) != 1 || first[0].OrderID != "a" || len(second) != 1 || second[0].OrderID != "b" {
		t.Errorf("expected one order per day, got %+v / %+v", first, second)
	}
}

func TestReadMissingDay(t *testing.T) {
	j, _ := newTestJournal(t, time.Now())
	orders, err := j.ReadOrders(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil || orders != nil {
		t.Errorf("expected no entries and no error, got %v %v", orders, err)
	}
}

func TestCompressOlder(t *testing.T) {
	today := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	j, _ := newTestJournal(t, today)

	old := j.OrdersPath(today.AddDate(0, 0, -5))
	oldDecision := j.DecisionsPath(today.AddDate(0, 0, -5))
	recent := j.OrdersPath(today.AddDate(0, 0, -1))
	for _, p := range []string{old, oldDecision, recent} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(`{"event":"order","order_id":"x"}`+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(j.Dir(), "notes.txt"), []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := j.CompressOlder(3)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 files compressed, got %d", n)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("expected original to be removed")
	}
	if _, err := os.Stat(recent); err != nil {
		t.Error("expected recent journal to be kept")
	}

	f, err := os.Open(old + ".gz")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	if _, err := bufio.NewReader(gr).WriteTo(&sb); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sb.String(), `"order_id":"x"`) {
		t.Errorf("unexpected gz content %q", sb.String())
	}

	if n, err := j.CompressOlder(0); n != 0 || err != nil {
		t.Errorf("retention 0 must be a no-op, got %d %v", n, err)
	}
}

func TestCompressOlderAppendsToExistingArchive(t *testing.T) {
	today := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	j, _ := newTestJournal(t, today)
	old := j.OrdersPath(today.AddDate(0, 0, -5))
	if err := os.MkdirAll(filepath.Dir(old), 0o755); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"first", "late"} {
		line := `{"event":"order","order_id":"` + id + `"}` + "\n"
		if err := os.WriteFile(old, []byte(line), 0o644); err != nil {
			t.Fatal(err)
		}
		if n, err := j.CompressOlder(3); n != 1 || err != nil {
			t.Fatalf("compress %s: got %d %v", id, n, err)
		}
	}

	f, err := os.Open(old + ".gz")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	var lines []string
	sc := bufio.NewScanner(gr)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || !strings.Contains(lines[0], "first") || !strings.Contains(lines[1], "late") {
		t.Errorf("expected both compressions in the archive, got %q", lines)
	}
}
