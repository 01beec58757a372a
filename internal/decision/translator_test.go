package decision

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"crypto-autotrade/internal/logger"
	"crypto-autotrade/internal/types"
)

type stubOracle struct {
	reply  string
	err    error
	calls  int
	system string
	user   string
}

func (s *stubOracle) Complete(ctx context.Context, system, user string) (string, error) {
	s.calls++
	s.system, s.user = system, user
	return s.reply, s.err
}

func TestParseIntentStrict(t *testing.T) {
	intent, err := ParseIntent(`{"decision":"sell","reason":"overbought","risk_level":"high","confidence_score":77.5}`)
	if err != nil {
		t.Fatalf("Expected strict parse, got %v", err)
	}
	if intent.Decision != types.DecisionSell || intent.ConfidenceScore != 77.5 {
		t.Errorf("Unexpected intent %+v", intent)
	}
	if intent.RiskLevel != types.RiskHigh || intent.Reason != "overbought" {
		t.Errorf("Expected reason and risk level to carry through, got %+v", intent)
	}
}

func TestParseIntentEmbedded(t *testing.T) {
	intent, err := ParseIntent("some text {\"decision\": \"buy\", \"confidence_score\": 80} trailing")
	if err != nil {
		t.Fatalf("Expected embedded object to parse, got %v", err)
	}
	if intent.Decision != types.DecisionBuy || intent.ConfidenceScore != 80 {
		t.Errorf("Unexpected intent %+v", intent)
	}
}

func TestParseIntentCodeFenceAndBracesInStrings(t *testing.T) {
	raw := "```json\n{\"decision\": \"HOLD\", \"reason\": \"range {sideways}\", \"confidence_score\": 55}\n```\nthen {\"other\": 1}"
	intent, err := ParseIntent(raw)
	if err != nil {
		t.Fatalf("Expected parse, got %v", err)
	}
	if intent.Decision != types.DecisionHold || intent.Reason != "range {sideways}" {
		t.Errorf("Unexpected intent %+v", intent)
	}
}

func TestParseIntentErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"no object", "I cannot decide today", types.ErrDecisionParse},
		{"unbalanced", "answer: {\"decision\": \"buy\"", types.ErrDecisionParse},
		{"broken json", "x {decision: buy} y", types.ErrDecisionParse},
		{"bad decision", `{"decision":"short","confidence_score":90}`, types.ErrDecisionValidation},
		{"missing decision", `{"confidence_score":90}`, types.ErrDecisionValidation},
		{"string confidence", `{"decision":"buy","confidence_score":"90"}`, types.ErrDecisionValidation},
		{"confidence too high", `{"decision":"buy","confidence_score":101}`, types.ErrDecisionValidation},
		{"negative confidence", `{"decision":"buy","confidence_score":-1}`, types.ErrDecisionValidation},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ParseIntent(c.raw)
			if !errors.Is(err, c.want) {
				t.Errorf("Expected %v, got %v", c.want, err)
			}
		})
	}
}

func TestParseIntentUnknownRiskDropped(t *testing.T) {
	intent, err := ParseIntent(`{"decision":"buy","risk_level":"moderate","confidence_score":90}`)
	if err != nil {
		t.Fatalf("Expected parse, got %v", err)
	}
	if intent.RiskLevel != "" {
		t.Errorf("Expected empty risk level, got %q", intent.RiskLevel)
	}
}

func testSnapshot() types.MarketSnapshot {
	book := types.OrderBook{}
	for i := 0; i < 5; i++ {
		book.Asks = append(book.Asks, types.OrderBookLevel{Price: 100 + float64(i), Size: 1})
		book.Bids = append(book.Bids, types.OrderBookLevel{Price: 99 - float64(i), Size: 1})
	}
	return types.MarketSnapshot{
		Ticker:    "KRW-BTC",
		Account:   types.NewAccountStatus(1_000_000, 0, 0, 100),
		OrderBook: book,
		Daily: []types.AnalyzedBar{{
			PriceBar:   types.PriceBar{Close: 100},
			Indicators: types.IndicatorSet{types.IndRSI: types.Some(55), types.IndSMA120: {}},
		}},
		News: []types.NewsItem{{Title: "ETF inflows rise"}},
	}
}

func TestTranslatorDecide(t *testing.T) {
	oracle := &stubOracle{reply: `{"decision":"buy","reason":"dip","risk_level":"low","confidence_score":85}`}
	tr := NewTranslator(oracle, "")

	intent, err := tr.Decide(context.Background(), testSnapshot())
	if err != nil {
		t.Fatalf("Expected decision, got %v", err)
	}
	if intent.Decision != types.DecisionBuy || intent.ConfidenceScore != 85 {
		t.Errorf("Unexpected intent %+v", intent)
	}
	if oracle.system != DefaultSystemPrompt {
		t.Error("Expected default system prompt")
	}

	payload := oracle.user[strings.Index(oracle.user, "{"):]
	if !gjson.Valid(payload) {
		t.Fatalf("Expected JSON payload, got %s", payload)
	}
	view := gjson.Parse(payload)
	if n := len(view.Get("orderbook.asks").Array()); n != OrderBookDepth {
		t.Errorf("Expected %d ask levels, got %d", OrderBookDepth, n)
	}
	if n := len(view.Get("orderbook.bids").Array()); n != OrderBookDepth {
		t.Errorf("Expected %d bid levels, got %d", OrderBookDepth, n)
	}
	if v := view.Get("ohlcv.daily_data.0.indicators.sma_120"); v.Type != gjson.Null {
		t.Errorf("Expected undefined indicator to serialize as null, got %s", v.Raw)
	}
	if view.Get("fear_greed_index").Exists() {
		t.Error("Expected absent sentiment to be omitted")
	}
	if view.Get("news.0.title").String() != "ETF inflows rise" {
		t.Error("Expected news to be included")
	}
}

func TestTranslatorNoRetryOnMalformed(t *testing.T) {
	oracle := &stubOracle{reply: "no idea"}
	tr := NewTranslator(oracle, "custom")

	_, err := tr.Decide(context.Background(), testSnapshot())
	if !errors.Is(err, types.ErrDecisionParse) {
		t.Errorf("Expected parse error, got %v", err)
	}
	if oracle.calls != 1 {
		t.Errorf("Expected exactly one oracle call, got %d", oracle.calls)
	}
	if oracle.system != "custom" {
		t.Errorf("Expected custom system prompt, got %q", oracle.system)
	}
}

func TestTranslatorOracleFailure(t *testing.T) {
	oracle := &stubOracle{err: errors.New("429 too many requests")}
	_, err := NewTranslator(oracle, "").Decide(context.Background(), testSnapshot())
	if !types.IsFetchError(err) {
		t.Errorf("Expected FetchError, got %v", err)
	}
}

func TestTranslatorDumpsResponseOnlyWhenDebugging(t *testing.T) {
	reply := `{"decision":"hold","reason":"range bound","risk_level":"low","confidence_score":40}`
	t.Cleanup(func() { _ = logger.InitWithConfig(logger.LogConfig{Level: "INFO", Format: "json"}) })

	tests := []struct {
		name     string
		detailed bool
		wantDump bool
	}{
		{"info level", false, false},
		{"detailed", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := logger.InitWithConfig(logger.LogConfig{Level: "INFO", Format: "json", DetailedLogging: tt.detailed, Output: &buf}); err != nil {
				t.Fatal(err)
			}
			if logger.IsDebugEnabled() != tt.detailed {
				t.Fatalf("Expected debug enabled=%v", tt.detailed)
			}
			if _, err := NewTranslator(&stubOracle{reply: reply}, "").Decide(context.Background(), testSnapshot()); err != nil {
				t.Fatalf("Expected decision, got %v", err)
			}
			dumped := strings.Contains(buf.String(), `"msg":"Oracle response"`)
			if dumped != tt.wantDump {
				t.Errorf("Expected dump=%v, logs: %s", tt.wantDump, buf.String())
			}
			if tt.wantDump && !strings.Contains(buf.String(), "range bound") {
				t.Error("Expected the raw response in the dump")
			}
		})
	}
}
