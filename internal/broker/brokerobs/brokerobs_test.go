package brokerobs

import (
	"context"
	"errors"
	"testing"

	"crypto-autotrade/internal/types"
)

type fakeExchange struct {
	err   error
	calls []string
}

func (f *fakeExchange) Balance(ctx context.Context, currency string) (float64, error) {
	f.calls = append(f.calls, "Balance")
	return 1000, f.err
}
func (f *fakeExchange) AvgBuyPrice(ctx context.Context, ticker string) (float64, error) {
	f.calls = append(f.calls, "AvgBuyPrice")
	return 90, f.err
}
func (f *fakeExchange) CurrentPrice(ctx context.Context, ticker string) (float64, error) {
	f.calls = append(f.calls, "CurrentPrice")
	return 100, f.err
}
func (f *fakeExchange) OrderBook(ctx context.Context, ticker string) (types.OrderBook, error) {
	f.calls = append(f.calls, "OrderBook")
	return types.OrderBook{Asks: []types.OrderBookLevel{{Price: 101, Size: 1}}}, f.err
}
func (f *fakeExchange) OHLCV(ctx context.Context, ticker, interval string, count int) ([]types.PriceBar, error) {
	f.calls = append(f.calls, "OHLCV")
	return make([]types.PriceBar, count), f.err
}
func (f *fakeExchange) MarketBuy(ctx context.Context, ticker string, notional float64) (types.OrderResp, error) {
	f.calls = append(f.calls, "MarketBuy")
	return types.OrderResp{OrderID: "b-1"}, f.err
}
func (f *fakeExchange) MarketSell(ctx context.Context, ticker string, quantity float64) (types.OrderResp, error) {
	f.calls = append(f.calls, "MarketSell")
	return types.OrderResp{OrderID: "s-1"}, f.err
}

func TestWrapPassesThrough(t *testing.T) {
	inner := &fakeExchange{}
	ex := Wrap(inner)
	ctx := context.Background()

	if v, _ := ex.Balance(ctx, "KRW"); v != 1000 {
		t.Errorf("Expected 1000, got %v", v)
	}
	if v, _ := ex.CurrentPrice(ctx, "KRW-BTC"); v != 100 {
		t.Errorf("Expected 100, got %v", v)
	}
	if bars, _ := ex.OHLCV(ctx, "KRW-BTC", "day", 7); len(bars) != 7 {
		t.Errorf("Expected 7 bars, got %d", len(bars))
	}
	if resp, _ := ex.MarketBuy(ctx, "KRW-BTC", 10000); resp.OrderID != "b-1" {
		t.Errorf("Expected b-1, got %+v", resp)
	}
	if len(inner.calls) != 4 {
		t.Errorf("Expected 4 delegated calls, got %v", inner.calls)
	}
}

func TestWrapZeroesValuesOnError(t *testing.T) {
	boom := errors.New("boom")
	ex := Wrap(&fakeExchange{err: boom})
	ctx := context.Background()

	if v, err := ex.AvgBuyPrice(ctx, "KRW-BTC"); v != 0 || !errors.Is(err, boom) {
		t.Errorf("Expected zero and boom, got %v %v", v, err)
	}
	if book, err := ex.OrderBook(ctx, "KRW-BTC"); len(book.Asks) != 0 || !errors.Is(err, boom) {
		t.Errorf("Expected empty book and boom, got %+v %v", book, err)
	}
	if resp, err := ex.MarketSell(ctx, "KRW-BTC", 1); resp.OrderID != "" || !errors.Is(err, boom) {
		t.Errorf("Expected empty response and boom, got %+v %v", resp, err)
	}
}
