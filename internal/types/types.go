package types

import (
	"strconv"
	"time"
)

// PriceBar is one OHLCV interval. Series of bars are always chronological.
type PriceBar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Value is an indicator reading. The zero Value means the indicator has no
// value yet (series shorter than its lookback window) and encodes as null.
type Value struct {
	Float float64
	Valid bool
}

func Some(f float64) Value { return Value{Float: f, Valid: true} }

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v.Float, 'f', -1, 64), nil
}

func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Value{}
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*v = Some(f)
	return nil
}

// Indicator names used as IndicatorSet keys.
const (
	IndSMA5       = "sma_5"
	IndSMA20      = "sma_20"
	IndSMA60      = "sma_60"
	IndSMA120     = "sma_120"
	IndRSI        = "rsi"
	IndMACD       = "macd"
	IndMACDSignal = "macd_signal"
	IndMACDDiff   = "macd_diff"
	IndBBHigh     = "bb_high"
	IndBBMid      = "bb_mid"
	IndBBLow      = "bb_low"
	IndBBPBand    = "bb_pband"
	IndATR        = "atr"
)

// IndicatorSet maps indicator name to the reading aligned with one bar.
type IndicatorSet map[string]Value

// AnalyzedBar pairs a bar with the indicators computed at its position.
type AnalyzedBar struct {
	PriceBar
	Indicators IndicatorSet `json:"indicators"`
}

type AccountStatus struct {
	CashBalance         float64 `json:"cash_balance"`
	AssetBalance        float64 `json:"asset_balance"`
	AvgBuyPrice         float64 `json:"avg_buy_price"`
	CurrentPrice        float64 `json:"current_price"`
	TotalValue          float64 `json:"total_value"`
	UnrealizedProfit    float64 `json:"unrealized_profit"`
	UnrealizedProfitPct float64 `json:"unrealized_profit_pct"`
}

// NewAccountStatus derives total value and unrealized profit from the raw
// balances of a single fetch.
func NewAccountStatus(cash, asset, avgBuy, price float64) AccountStatus {
	st := AccountStatus{
		CashBalance:  cash,
		AssetBalance: asset,
		AvgBuyPrice:  avgBuy,
		CurrentPrice: price,
		TotalValue:   cash + asset*price,
	}
	if asset > 0 && avgBuy > 0 {
		st.UnrealizedProfit = (price - avgBuy) * asset
		st.UnrealizedProfitPct = (price - avgBuy) / avgBuy * 100
	}
	return st
}

// AssetValue is the quote-currency value of the held asset.
func (a AccountStatus) AssetValue() float64 { return a.AssetBalance * a.CurrentPrice }

type OrderBookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderBook levels are ordered best-to-worst.
type OrderBook struct {
	Timestamp    time.Time        `json:"timestamp"`
	TotalAskSize float64          `json:"total_ask_size"`
	TotalBidSize float64          `json:"total_bid_size"`
	Asks         []OrderBookLevel `json:"asks"`
	Bids         []OrderBookLevel `json:"bids"`
}

// Top returns a copy of the book keeping at most depth levels per side.
func (ob OrderBook) Top(depth int) OrderBook {
	out := ob
	out.Asks = append([]OrderBookLevel(nil), ob.Asks[:min(depth, len(ob.Asks))]...)
	out.Bids = append([]OrderBookLevel(nil), ob.Bids[:min(depth, len(ob.Bids))]...)
	return out
}

type SentimentPoint struct {
	Value          int       `json:"value"`
	Classification string    `json:"classification"`
	Time           time.Time `json:"time"`
}

const (
	TrendImproving     = "improving"
	TrendDeteriorating = "deteriorating"
)

type SentimentReading struct {
	Value          int              `json:"value"`
	Classification string           `json:"classification"`
	History        []SentimentPoint `json:"history"`
	Trend          string           `json:"trend"`
	Average        float64          `json:"average"`
}

type NewsItem struct {
	Title       string `json:"title"`
	Source      string `json:"source,omitempty"`
	URL         string `json:"url,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

// MarketSnapshot is built once per cycle and never mutated afterwards.
// Optional enrichment is nil/empty when its source failed or is disabled.
type MarketSnapshot struct {
	Ticker        string            `json:"ticker"`
	TakenAt       time.Time         `json:"taken_at"`
	Account       AccountStatus     `json:"account"`
	OrderBook     OrderBook         `json:"orderbook"`
	Daily         []AnalyzedBar     `json:"daily"`
	Hourly        []AnalyzedBar     `json:"hourly"`
	Sentiment     *SentimentReading `json:"sentiment,omitempty"`
	News          []NewsItem        `json:"news,omitempty"`
	ChartAnalysis string            `json:"chart_analysis,omitempty"`
	Degraded      []string          `json:"-"`
}

// SentimentValue returns the current index value when one is available.
func (s MarketSnapshot) SentimentValue() (int, bool) {
	if s.Sentiment == nil {
		return 0, false
	}
	return s.Sentiment.Value, true
}

type Decision string

const (
	DecisionBuy  Decision = "buy"
	DecisionSell Decision = "sell"
	DecisionHold Decision = "hold"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type TradeIntent struct {
	Decision          Decision  `json:"decision"`
	Reason            string    `json:"reason"`
	RiskLevel         RiskLevel `json:"risk_level"`
	ConfidenceScore   float64   `json:"confidence_score"`
	SentimentAnalysis string    `json:"sentiment_analysis,omitempty"`
}

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
	SideNone Side = "none"
)

// OrderPlan is the terminal artifact of a cycle. Buys carry a quote
// notional, sells an asset quantity; skips carry the gate that stopped them.
type OrderPlan struct {
	Side       Side    `json:"side"`
	Ratio      float64 `json:"ratio"`
	Notional   float64 `json:"notional,omitempty"`
	Quantity   float64 `json:"quantity,omitempty"`
	SkipReason string  `json:"skip_reason,omitempty"`
}

func (p OrderPlan) IsSkip() bool { return p.Side == SideNone }

type OrderResp struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// CycleResult is the per-cycle report handed to the journal, recorder,
// notifier and status API.
type CycleResult struct {
	Ticker     string        `json:"ticker"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Account    AccountStatus `json:"account"`
	Sentiment  *int          `json:"sentiment,omitempty"`
	Intent     TradeIntent   `json:"intent"`
	Plan       OrderPlan     `json:"plan"`
	Order      *OrderResp    `json:"order,omitempty"`
	OrderError string        `json:"order_error,omitempty"`
	Degraded   []string      `json:"degraded,omitempty"`
}

// LoopStats are the run loop counters exposed by the status API.
type LoopStats struct {
	Cycles              int       `json:"cycles"`
	Failures            int       `json:"failures"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastError           string    `json:"last_error,omitempty"`
	LastCycleAt         time.Time `json:"last_cycle_at,omitempty"`
	NextCycleAt         time.Time `json:"next_cycle_at,omitempty"`
	Escalated           bool      `json:"escalated"`
}

// DaySummary aggregates one day of the decision and order journals.
type DaySummary struct {
	Date          string  `json:"date"`
	Cycles        int     `json:"cycles"`
	Buys          int     `json:"buys"`
	Sells         int     `json:"sells"`
	Holds         int     `json:"holds"`
	Skipped       int     `json:"skipped"`
	AvgConfidence float64 `json:"avg_confidence"`
	OrdersPlaced  int     `json:"orders_placed"`
	OrdersFailed  int     `json:"orders_failed"`
	BuyNotional   float64 `json:"buy_notional"`
	SellQuantity  float64 `json:"sell_quantity"`
	SellValue     float64 `json:"sell_value"`
	CSVPath       string  `json:"csv_path,omitempty"`
}
