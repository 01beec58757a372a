// Package recorder persists one row per trading cycle for later analysis.
package recorder

import (
	"context"
	"strings"
	"time"

	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/types"
)

// row flattens a CycleResult into the recorded columns.
type row struct {
	StartedAt   time.Time
	FinishedAt  time.Time
	Ticker      string
	Decision    string
	Confidence  float64
	RiskLevel   string
	Reason      string
	Side        string
	Ratio       float64
	Notional    float64
	Quantity    float64
	SkipReason  string
	OrderID     string
	OrderStatus string
	OrderError  string
	Cash        float64
	Asset       float64
	Price       float64
	TotalValue  float64
	Sentiment   *int
	Degraded    string
}

func newRow(res *types.CycleResult) row {
	r := row{
		StartedAt:  res.StartedAt.UTC(),
		FinishedAt: res.FinishedAt.UTC(),
		Ticker:     res.Ticker,
		Decision:   string(res.Intent.Decision),
		Confidence: res.Intent.ConfidenceScore,
		RiskLevel:  string(res.Intent.RiskLevel),
		Reason:     res.Intent.Reason,
		Side:       string(res.Plan.Side),
		Ratio:      res.Plan.Ratio,
		Notional:   res.Plan.Notional,
		Quantity:   res.Plan.Quantity,
		SkipReason: res.Plan.SkipReason,
		OrderError: res.OrderError,
		Cash:       res.Account.CashBalance,
		Asset:      res.Account.AssetBalance,
		Price:      res.Account.CurrentPrice,
		TotalValue: res.Account.TotalValue,
		Sentiment:  res.Sentiment,
		Degraded:   strings.Join(res.Degraded, ","),
	}
	if res.Order != nil {
		r.OrderID = res.Order.OrderID
		r.OrderStatus = res.Order.Status
	}
	return r
}

// args orders the columns for INSERT. SQLite stores times as unix seconds.
func (r row) args(unixTimes bool) []any {
	var started, finished any = r.StartedAt, r.FinishedAt
	if unixTimes {
		started, finished = r.StartedAt.Unix(), r.FinishedAt.Unix()
	}
	return []any{
		started, finished, r.Ticker,
		r.Decision, r.Confidence, r.RiskLevel, r.Reason,
		r.Side, r.Ratio, r.Notional, r.Quantity, r.SkipReason,
		r.OrderID, r.OrderStatus, r.OrderError,
		r.Cash, r.Asset, r.Price, r.TotalValue,
		r.Sentiment, r.Degraded,
	}
}

// NoopRecorder is used when no database is configured.
type NoopRecorder struct{}

var _ interfaces.Recorder = NoopRecorder{}

func NewNoopRecorder() NoopRecorder { return NoopRecorder{} }

func (NoopRecorder) RecordCycle(context.Context, *types.CycleResult) error { return nil }
func (NoopRecorder) Close() error                                          { return nil }
