package brokerobs

import (
	"context"

	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/logger"
	"crypto-autotrade/internal/trace"
	"crypto-autotrade/internal/types"
)

// observableExchange wraps an Exchange with observability (logging & tracing)
type observableExchange struct {
	ex interfaces.Exchange
}

// Compile-time interface check
var _ interfaces.Exchange = (*observableExchange)(nil)

// Wrap wraps an exchange with observability middleware
func Wrap(ex interfaces.Exchange) interfaces.Exchange {
	return &observableExchange{ex: ex}
}

func (o *observableExchange) Balance(ctx context.Context, currency string) (float64, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.Balance")
	defer span.End()

	bal, err := o.ex.Balance(ctx, currency)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch balance", err, "currency", currency)
		return 0, err
	}
	logger.DebugSkip(ctx, 1, "Balance fetched", "currency", currency, "balance", bal)
	return bal, nil
}

func (o *observableExchange) AvgBuyPrice(ctx context.Context, ticker string) (float64, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.AvgBuyPrice")
	defer span.End()

	avg, err := o.ex.AvgBuyPrice(ctx, ticker)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch average buy price", err, "ticker", ticker)
		return 0, err
	}
	logger.DebugSkip(ctx, 1, "Average buy price fetched", "ticker", ticker, "avg_buy_price", avg)
	return avg, nil
}

// CurrentPrice returns the last traded price with observability
func (o *observableExchange) CurrentPrice(ctx context.Context, ticker string) (float64, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.CurrentPrice")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching current price", "ticker", ticker)

	price, err := o.ex.CurrentPrice(ctx, ticker)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch current price", err, "ticker", ticker)
		return 0, err
	}

	logger.DebugSkip(ctx, 1, "Current price fetched successfully", "ticker", ticker, "price", price)
	return price, nil
}

func (o *observableExchange) OrderBook(ctx context.Context, ticker string) (types.OrderBook, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.OrderBook")
	defer span.End()

	book, err := o.ex.OrderBook(ctx, ticker)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch orderbook", err, "ticker", ticker)
		return types.OrderBook{}, err
	}
	logger.DebugSkip(ctx, 1, "Orderbook fetched", "ticker", ticker, "asks", len(book.Asks), "bids", len(book.Bids))
	return book, nil
}

// OHLCV fetches candles with observability
func (o *observableExchange) OHLCV(ctx context.Context, ticker, interval string, count int) ([]types.PriceBar, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.OHLCV")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching candles", "ticker", ticker, "interval", interval, "count", count)

	bars, err := o.ex.OHLCV(ctx, ticker, interval, count)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch candles", err, "ticker", ticker, "interval", interval, "count", count)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Candles fetched successfully", "ticker", ticker, "interval", interval, "count", len(bars))
	return bars, nil
}

func (o *observableExchange) MarketBuy(ctx context.Context, ticker string, notional float64) (types.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.MarketBuy")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing market buy", "ticker", ticker, "notional", notional)

	resp, err := o.ex.MarketBuy(ctx, ticker, notional)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place market buy", err, "ticker", ticker, "notional", notional)
		return types.OrderResp{}, err
	}

	logger.InfoSkip(ctx, 1, "Market buy placed successfully", "ticker", ticker, "order_id", resp.OrderID, "status", resp.Status)
	return resp, nil
}

func (o *observableExchange) MarketSell(ctx context.Context, ticker string, quantity float64) (types.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "exchange.MarketSell")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing market sell", "ticker", ticker, "quantity", quantity)

	resp, err := o.ex.MarketSell(ctx, ticker, quantity)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place market sell", err, "ticker", ticker, "quantity", quantity)
		return types.OrderResp{}, err
	}

	logger.InfoSkip(ctx, 1, "Market sell placed successfully", "ticker", ticker, "order_id", resp.OrderID, "status", resp.Status)
	return resp, nil
}
