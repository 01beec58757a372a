// Package zerodha implements interfaces.Exchange for a single Kite Connect
// instrument. Cash comes from equity margins and the asset from holdings.
package zerodha

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/logger"
	"crypto-autotrade/internal/types"
)

const source = "kite"

// kiteClient is the subset of *kiteconnect.Client used here.
type kiteClient interface {
	GetUserMargins() (kiteconnect.AllMargins, error)
	GetHoldings() (kiteconnect.Holdings, error)
	GetLTP(instruments ...string) (kiteconnect.QuoteLTP, error)
	GetQuote(instruments ...string) (kiteconnect.Quote, error)
	GetHistoricalData(instrumentToken int, interval string, fromDate time.Time, toDate time.Time, continuous bool, OI bool) ([]kiteconnect.HistoricalData, error)
	PlaceOrder(variety string, orderParams kiteconnect.OrderParams) (kiteconnect.OrderResponse, error)
}

type Params struct {
	Mode            string
	APIKey          string
	AccessToken     string
	Exchange        string // NSE / BSE
	Tradingsymbol   string
	InstrumentToken int
	QuoteCurrency   string
}

type Zerodha struct {
	p   Params
	kc  kiteClient
	now func() time.Time
}

var _ interfaces.Exchange = (*Zerodha)(nil)

func NewZerodha(p Params) *Zerodha {
	kc := kiteconnect.New(p.APIKey)
	kc.SetAccessToken(p.AccessToken)
	return newWithClient(p, kc)
}

func newWithClient(p Params, kc kiteClient) *Zerodha {
	if p.Exchange == "" {
		p.Exchange = "NSE"
	}
	if p.QuoteCurrency == "" {
		p.QuoteCurrency = "INR"
	}
	return &Zerodha{p: p, kc: kc, now: time.Now}
}

func (z *Zerodha) instrument() string {
	return z.p.Exchange + ":" + z.p.Tradingsymbol
}

func (z *Zerodha) holding() (*kiteconnect.Holding, error) {
	holdings, err := z.kc.GetHoldings()
	if err != nil {
		return nil, types.NewFetchError(source, "holdings", err)
	}
	for i := range holdings {
		if holdings[i].Tradingsymbol == z.p.Tradingsymbol {
			return &holdings[i], nil
		}
	}
	return nil, nil
}

// Balance returns available equity cash for the quote currency and the held
// quantity of the configured instrument for anything else.
func (z *Zerodha) Balance(ctx context.Context, currency string) (float64, error) {
	if currency == z.p.QuoteCurrency {
		m, err := z.kc.GetUserMargins()
		if err != nil {
			return 0, types.NewFetchError(source, "margins", err)
		}
		return m.Equity.Available.Cash, nil
	}
	h, err := z.holding()
	if err != nil || h == nil {
		return 0, err
	}
	return float64(h.Quantity), nil
}

func (z *Zerodha) AvgBuyPrice(ctx context.Context, ticker string) (float64, error) {
	h, err := z.holding()
	if err != nil || h == nil {
		return 0, err
	}
	return h.AveragePrice, nil
}

func (z *Zerodha) CurrentPrice(ctx context.Context, ticker string) (float64, error) {
	ltp, err := z.kc.GetLTP(z.instrument())
	if err != nil {
		return 0, types.NewFetchError(source, "ltp", err)
	}
	q, ok := ltp[z.instrument()]
	if !ok || q.LastPrice <= 0 {
		return 0, types.NewFetchError(source, "ltp", fmt.Errorf("no last price for %s", z.instrument()))
	}
	return q.LastPrice, nil
}

func (z *Zerodha) OrderBook(ctx context.Context, ticker string) (types.OrderBook, error) {
	quotes, err := z.kc.GetQuote(z.instrument())
	if err != nil {
		return types.OrderBook{}, types.NewFetchError(source, "quote", err)
	}
	q, ok := quotes[z.instrument()]
	if !ok {
		return types.OrderBook{}, types.NewFetchError(source, "quote", fmt.Errorf("no quote for %s", z.instrument()))
	}

	book := types.OrderBook{Timestamp: z.now().UTC()}
	for _, d := range q.Depth.Sell {
		if d.Price <= 0 {
			continue
		}
		book.Asks = append(book.Asks, types.OrderBookLevel{Price: d.Price, Size: float64(d.Quantity)})
		book.TotalAskSize += float64(d.Quantity)
	}
	for _, d := range q.Depth.Buy {
		if d.Price <= 0 {
			continue
		}
		book.Bids = append(book.Bids, types.OrderBookLevel{Price: d.Price, Size: float64(d.Quantity)})
		book.TotalBidSize += float64(d.Quantity)
	}
	if len(book.Asks) == 0 && len(book.Bids) == 0 {
		return types.OrderBook{}, types.NewFetchError(source, "quote", fmt.Errorf("empty depth for %s", z.instrument()))
	}
	return book, nil
}

func kiteInterval(interval string) (string, time.Duration, error) {
	switch interval {
	case interfaces.IntervalDay:
		return "day", 24 * time.Hour, nil
	case interfaces.IntervalHour:
		return "60minute", time.Hour, nil
	}
	return "", 0, fmt.Errorf("unsupported interval %q", interval)
}

// OHLCV requests a window wide enough to cover weekends and market hours,
// then keeps the last count bars.
func (z *Zerodha) OHLCV(ctx context.Context, ticker, interval string, count int) ([]types.PriceBar, error) {
	kiv, step, err := kiteInterval(interval)
	if err != nil {
		return nil, types.NewFetchError(source, "historical", err)
	}
	to := z.now()
	from := to.Add(-step * time.Duration(count*4))
	data, err := z.kc.GetHistoricalData(z.p.InstrumentToken, kiv, from, to, false, false)
	if err != nil {
		return nil, types.NewFetchError(source, "historical", err)
	}
	if len(data) == 0 {
		return nil, types.NewFetchError(source, "historical", fmt.Errorf("no %s candles for %s", kiv, z.instrument()))
	}
	if len(data) > count {
		data = data[len(data)-count:]
	}
	bars := make([]types.PriceBar, len(data))
	for i, d := range data {
		bars[i] = types.PriceBar{
			Time:   d.Date.Time.UTC(),
			Open:   d.Open,
			High:   d.High,
			Low:    d.Low,
			Close:  d.Close,
			Volume: float64(d.Volume),
		}
	}
	return bars, nil
}

// MarketBuy converts the notional to whole shares at the last price.
func (z *Zerodha) MarketBuy(ctx context.Context, ticker string, notional float64) (types.OrderResp, error) {
	price, err := z.CurrentPrice(ctx, ticker)
	if err != nil {
		return types.OrderResp{}, err
	}
	qty := int(math.Floor(notional / price))
	if qty < 1 {
		return types.OrderResp{}, fmt.Errorf("notional %.2f buys no whole share at %.2f", notional, price)
	}
	return z.placeOrder(ctx, "BUY", qty)
}

func (z *Zerodha) MarketSell(ctx context.Context, ticker string, quantity float64) (types.OrderResp, error) {
	qty := int(math.Floor(quantity))
	if qty < 1 {
		return types.OrderResp{}, fmt.Errorf("quantity %.4f is less than one share", quantity)
	}
	return z.placeOrder(ctx, "SELL", qty)
}

func (z *Zerodha) placeOrder(ctx context.Context, side string, qty int) (types.OrderResp, error) {
	if z.p.Mode == "DRY_RUN" {
		resp := types.OrderResp{OrderID: fmt.Sprintf("SIM-%d", time.Now().UnixNano()), Status: "SIMULATED", Message: "dry-run"}
		logger.Info(ctx, "Simulated order placed", "symbol", z.p.Tradingsymbol, "side", side, "qty", qty, "order_id", resp.OrderID)
		return resp, nil
	}
	if z.p.APIKey == "" || z.p.AccessToken == "" {
		return types.OrderResp{}, errors.New("missing API key/access token")
	}

	resp, err := z.kc.PlaceOrder("regular", kiteconnect.OrderParams{
		Exchange:        z.p.Exchange,
		Tradingsymbol:   z.p.Tradingsymbol,
		Validity:        "DAY",
		Product:         "CNC",
		OrderType:       "MARKET",
		TransactionType: side,
		Quantity:        qty,
		Tag:             "autotrade",
	})
	if err != nil {
		return types.OrderResp{}, err
	}
	logger.Info(ctx, "Live order placed", "symbol", z.p.Tradingsymbol, "side", side, "qty", qty, "order_id", resp.OrderID)
	return types.OrderResp{OrderID: resp.OrderID, Status: "PLACED"}, nil
}
