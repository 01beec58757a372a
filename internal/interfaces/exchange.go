package interfaces

import (
	"context"

	"crypto-autotrade/internal/types"
)

// Interval names accepted by Exchange.OHLCV.
const (
	IntervalDay  = "day"
	IntervalHour = "minute60"
)

// Exchange is the narrow capability the bot needs from an exchange account.
type Exchange interface {
	// Balance returns the free balance of a currency; an absent position is 0, not an error.
	Balance(ctx context.Context, currency string) (float64, error)

	// AvgBuyPrice returns the average entry price of the held asset, 0 when none is held.
	AvgBuyPrice(ctx context.Context, ticker string) (float64, error)

	CurrentPrice(ctx context.Context, ticker string) (float64, error)

	// OrderBook returns the book with levels ordered best-to-worst.
	OrderBook(ctx context.Context, ticker string) (types.OrderBook, error)

	// OHLCV returns the last count bars in chronological order.
	OHLCV(ctx context.Context, ticker, interval string, count int) ([]types.PriceBar, error)

	// MarketBuy spends notional units of the quote currency.
	MarketBuy(ctx context.Context, ticker string, notional float64) (types.OrderResp, error)

	// MarketSell sells quantity units of the asset.
	MarketSell(ctx context.Context, ticker string, quantity float64) (types.OrderResp, error)
}
