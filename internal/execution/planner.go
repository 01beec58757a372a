// Package execution turns a TradeIntent into at most one market order.
package execution

import (
	"context"
	"fmt"

	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/logger"
	"crypto-autotrade/internal/types"
)

const (
	// ConfidenceThreshold: scores at or below it never trade.
	ConfidenceThreshold = 70.0
	// MinOrderNotional is the smallest balance, in quote currency, worth an order.
	MinOrderNotional = 5000.0

	// FullBuyRatio leaves a fee buffer on an all-in buy.
	FullBuyRatio  = 0.9995
	FullSellRatio = 1.0
)

const (
	SkipLowConfidence = "confidence at or below threshold"
	SkipHold          = "hold decision"
	SkipCashBelowMin  = "cash below minimum order notional"
	SkipAssetBelowMin = "asset value below minimum order notional"
)

// BuyRatio returns the share of cash committed to a buy at a sentiment value.
func BuyRatio(sentiment int) float64 {
	switch {
	case sentiment <= 25:
		return FullBuyRatio
	case sentiment <= 40:
		return 0.7
	default:
		return 0.5
	}
}

// SellRatio returns the share of the asset sold at a sentiment value.
func SellRatio(sentiment int) float64 {
	switch {
	case sentiment >= 75:
		return FullSellRatio
	case sentiment >= 60:
		return 0.7
	default:
		return 0.5
	}
}

// Plan evaluates the gates and sizing rules. It has no side effects.
// hasSentiment=false selects the flat full-size ratios.
func Plan(intent types.TradeIntent, account types.AccountStatus, sentiment int, hasSentiment bool) types.OrderPlan {
	if intent.ConfidenceScore <= ConfidenceThreshold {
		return skip(SkipLowConfidence)
	}

	switch intent.Decision {
	case types.DecisionBuy:
		// The gate applies to the cash balance, not to the sized notional.
		if account.CashBalance <= MinOrderNotional {
			return skip(SkipCashBelowMin)
		}
		ratio := FullBuyRatio
		if hasSentiment {
			ratio = BuyRatio(sentiment)
		}
		return types.OrderPlan{Side: types.SideBuy, Ratio: ratio, Notional: account.CashBalance * ratio}

	case types.DecisionSell:
		if account.AssetValue() <= MinOrderNotional {
			return skip(SkipAssetBelowMin)
		}
		ratio := FullSellRatio
		if hasSentiment {
			ratio = SellRatio(sentiment)
		}
		return types.OrderPlan{Side: types.SideSell, Ratio: ratio, Quantity: account.AssetBalance * ratio}
	}

	return skip(SkipHold)
}

func skip(reason string) types.OrderPlan {
	return types.OrderPlan{Side: types.SideNone, SkipReason: reason}
}

// Executor submits planned orders to an exchange.
type Executor struct {
	exchange interfaces.Exchange
	ticker   string
}

func NewExecutor(ex interfaces.Exchange, ticker string) *Executor {
	return &Executor{exchange: ex, ticker: ticker}
}

// Execute makes exactly one submission attempt for a buy or sell plan and
// none for a skip. Rejections come back as *types.OrderSubmissionError.
func (e *Executor) Execute(ctx context.Context, plan types.OrderPlan) (*types.OrderResp, error) {
	var (
		resp types.OrderResp
		err  error
	)
	switch plan.Side {
	case types.SideBuy:
		resp, err = e.exchange.MarketBuy(ctx, e.ticker, plan.Notional)
	case types.SideSell:
		resp, err = e.exchange.MarketSell(ctx, e.ticker, plan.Quantity)
	default:
		logger.Debug(ctx, "Order skipped", "ticker", e.ticker, "reason", plan.SkipReason)
		return nil, nil
	}
	if err != nil {
		return nil, &types.OrderSubmissionError{Side: plan.Side, Err: err}
	}
	return &resp, nil
}

// PlanAndExecute plans against the snapshot's account and sentiment, then executes.
func (e *Executor) PlanAndExecute(ctx context.Context, intent types.TradeIntent, snap types.MarketSnapshot) (types.OrderPlan, *types.OrderResp, error) {
	sentiment, ok := snap.SentimentValue()
	plan := Plan(intent, snap.Account, sentiment, ok)
	if plan.IsSkip() {
		logger.Risk(ctx, e.ticker, "ORDER_SKIPPED",
			"decision", string(intent.Decision),
			"confidence", intent.ConfidenceScore,
			"reason", plan.SkipReason,
		)
		return plan, nil, nil
	}

	logger.Info(ctx, "Submitting order",
		"ticker", e.ticker,
		"side", string(plan.Side),
		"ratio", plan.Ratio,
		"notional", plan.Notional,
		"quantity", plan.Quantity,
		"sentiment", sentimentField(sentiment, ok),
	)
	resp, err := e.Execute(ctx, plan)
	if err != nil {
		logger.ErrorWithErr(ctx, "Order submission failed", err, "ticker", e.ticker, "side", string(plan.Side))
		return plan, nil, err
	}

	amount := plan.Notional
	if plan.Side == types.SideSell {
		amount = plan.Quantity
	}
	logger.Trade(ctx, e.ticker, string(plan.Side), amount, snap.Account.CurrentPrice, resp.OrderID, "status", resp.Status)
	return plan, resp, nil
}

func sentimentField(v int, ok bool) string {
	if !ok {
		return "n/a"
	}
	return fmt.Sprint(v)
}
