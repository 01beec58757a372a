// Package upbit implements interfaces.Exchange against the Upbit REST API.
package upbit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crypto-autotrade/internal/api"
	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/logger"
	"crypto-autotrade/internal/types"
)

const (
	DefaultBaseURL = "https://api.upbit.com"
	source         = "upbit"
)

type Params struct {
	Mode       string
	AccessKey  string
	SecretKey  string
	BaseURL    string
	HTTPClient *http.Client // optional; its Timeout is replaced by the client timeout
}

type Upbit struct {
	p      Params
	client *api.Client
	sign   signer
}

var _ interfaces.Exchange = (*Upbit)(nil)

func New(p Params) *Upbit {
	if p.BaseURL == "" {
		p.BaseURL = DefaultBaseURL
	}
	opts := []api.ClientOption{}
	if p.HTTPClient != nil {
		opts = append(opts, api.WithHTTPClient(p.HTTPClient))
	}
	opts = append(opts,
		api.WithBaseURL(p.BaseURL),
		api.WithTimeout(10*time.Second),
		api.WithHeader("Accept", "application/json"),
		api.WithLogging(true),
	)
	return &Upbit{
		p:      p,
		client: api.NewClient(opts...),
		sign:   signer{accessKey: p.AccessKey, secretKey: p.SecretKey},
	}
}

func (u *Upbit) dryRun() bool { return u.p.Mode == "DRY_RUN" }

type account struct {
	Currency    string `json:"currency"`
	Balance     string `json:"balance"`
	Locked      string `json:"locked"`
	AvgBuyPrice string `json:"avg_buy_price"`
}

func (u *Upbit) accounts(ctx context.Context) ([]account, error) {
	if u.p.AccessKey == "" || u.p.SecretKey == "" {
		return nil, types.NewFetchError(source, "accounts", errors.New("missing access/secret key"))
	}
	hdr, err := u.sign.header(nil)
	if err != nil {
		return nil, types.NewFetchError(source, "accounts", err)
	}
	resp, err := u.client.GET(ctx, "/v1/accounts", nil, hdr)
	if err != nil {
		return nil, types.NewFetchError(source, "accounts", err)
	}
	var out []account
	if err := resp.ParseJSON(&out); err != nil {
		return nil, types.NewFetchError(source, "accounts", err)
	}
	return out, nil
}

// currencyOf accepts either a currency code or a QUOTE-BASE market code.
func currencyOf(s string) string {
	if i := strings.LastIndex(s, "-"); i >= 0 {
		return s[i+1:]
	}
	return s
}

func (u *Upbit) findAccount(ctx context.Context, currency string) (*account, error) {
	accts, err := u.accounts(ctx)
	if err != nil {
		return nil, err
	}
	cur := currencyOf(currency)
	for i := range accts {
		if accts[i].Currency == cur {
			return &accts[i], nil
		}
	}
	return nil, nil
}

func (u *Upbit) Balance(ctx context.Context, currency string) (float64, error) {
	acct, err := u.findAccount(ctx, currency)
	if err != nil || acct == nil {
		return 0, err
	}
	v, err := parseNum(acct.Balance)
	if err != nil {
		return 0, types.NewFetchError(source, "balance", err)
	}
	return v, nil
}

func (u *Upbit) AvgBuyPrice(ctx context.Context, ticker string) (float64, error) {
	acct, err := u.findAccount(ctx, ticker)
	if err != nil || acct == nil {
		return 0, err
	}
	v, err := parseNum(acct.AvgBuyPrice)
	if err != nil {
		return 0, types.NewFetchError(source, "avg_buy_price", err)
	}
	return v, nil
}

func (u *Upbit) CurrentPrice(ctx context.Context, ticker string) (float64, error) {
	resp, err := u.client.GET(ctx, "/v1/ticker", url.Values{"markets": {ticker}})
	if err != nil {
		return 0, types.NewFetchError(source, "ticker", err)
	}
	var out []struct {
		TradePrice *float64 `json:"trade_price"`
	}
	if err := resp.ParseJSON(&out); err != nil {
		return 0, types.NewFetchError(source, "ticker", err)
	}
	if len(out) == 0 || out[0].TradePrice == nil {
		return 0, types.NewFetchError(source, "ticker", fmt.Errorf("no trade_price for %s", ticker))
	}
	return *out[0].TradePrice, nil
}

type orderbookUnit struct {
	AskPrice float64 `json:"ask_price"`
	BidPrice float64 `json:"bid_price"`
	AskSize  float64 `json:"ask_size"`
	BidSize  float64 `json:"bid_size"`
}

func (u *Upbit) OrderBook(ctx context.Context, ticker string) (types.OrderBook, error) {
	resp, err := u.client.GET(ctx, "/v1/orderbook", url.Values{"markets": {ticker}})
	if err != nil {
		return types.OrderBook{}, types.NewFetchError(source, "orderbook", err)
	}
	var out []struct {
		Timestamp      int64           `json:"timestamp"`
		TotalAskSize   float64         `json:"total_ask_size"`
		TotalBidSize   float64         `json:"total_bid_size"`
		OrderbookUnits []orderbookUnit `json:"orderbook_units"`
	}
	if err := resp.ParseJSON(&out); err != nil {
		return types.OrderBook{}, types.NewFetchError(source, "orderbook", err)
	}
	if len(out) == 0 || len(out[0].OrderbookUnits) == 0 {
		return types.OrderBook{}, types.NewFetchError(source, "orderbook", fmt.Errorf("empty orderbook for %s", ticker))
	}

	raw := out[0]
	book := types.OrderBook{
		Timestamp:    time.UnixMilli(raw.Timestamp).UTC(),
		TotalAskSize: raw.TotalAskSize,
		TotalBidSize: raw.TotalBidSize,
	}
	for _, unit := range raw.OrderbookUnits {
		book.Asks = append(book.Asks, types.OrderBookLevel{Price: unit.AskPrice, Size: unit.AskSize})
		book.Bids = append(book.Bids, types.OrderBookLevel{Price: unit.BidPrice, Size: unit.BidSize})
	}
	return book, nil
}

func candlePath(interval string) (string, error) {
	switch interval {
	case interfaces.IntervalDay:
		return "/v1/candles/days", nil
	case interfaces.IntervalHour:
		return "/v1/candles/minutes/60", nil
	}
	return "", fmt.Errorf("unsupported interval %q", interval)
}

type candle struct {
	CandleDateTimeUTC    string  `json:"candle_date_time_utc"`
	OpeningPrice         float64 `json:"opening_price"`
	HighPrice            float64 `json:"high_price"`
	LowPrice             float64 `json:"low_price"`
	TradePrice           float64 `json:"trade_price"`
	CandleAccTradeVolume float64 `json:"candle_acc_trade_volume"`
}

// OHLCV returns bars oldest first; Upbit itself answers newest first.
func (u *Upbit) OHLCV(ctx context.Context, ticker, interval string, count int) ([]types.PriceBar, error) {
	path, err := candlePath(interval)
	if err != nil {
		return nil, types.NewFetchError(source, "candles", err)
	}
	resp, err := u.client.GET(ctx, path, url.Values{"market": {ticker}, "count": {strconv.Itoa(count)}})
	if err != nil {
		return nil, types.NewFetchError(source, "candles", err)
	}
	var raw []candle
	if err := resp.ParseJSON(&raw); err != nil {
		return nil, types.NewFetchError(source, "candles", err)
	}
	if len(raw) == 0 {
		return nil, types.NewFetchError(source, "candles", fmt.Errorf("no %s candles for %s", interval, ticker))
	}

	bars := make([]types.PriceBar, len(raw))
	for i, c := range raw {
		ts, err := time.Parse("2006-01-02T15:04:05", c.CandleDateTimeUTC)
		if err != nil {
			return nil, types.NewFetchError(source, "candles", err)
		}
		bars[len(raw)-1-i] = types.PriceBar{
			Time:   ts.UTC(),
			Open:   c.OpeningPrice,
			High:   c.HighPrice,
			Low:    c.LowPrice,
			Close:  c.TradePrice,
			Volume: c.CandleAccTradeVolume,
		}
	}
	return bars, nil
}

func (u *Upbit) MarketBuy(ctx context.Context, ticker string, notional float64) (types.OrderResp, error) {
	return u.placeOrder(ctx, url.Values{
		"market":   {ticker},
		"side":     {"bid"},
		"ord_type": {"price"},
		"price":    {formatFloor(notional, 0)},
	})
}

func (u *Upbit) MarketSell(ctx context.Context, ticker string, quantity float64) (types.OrderResp, error) {
	return u.placeOrder(ctx, url.Values{
		"market":   {ticker},
		"side":     {"ask"},
		"ord_type": {"market"},
		"volume":   {formatFloor(quantity, 8)},
	})
}

func (u *Upbit) placeOrder(ctx context.Context, params url.Values) (types.OrderResp, error) {
	logger.Debug(ctx, "Placing order", "params", params.Encode(), "mode", u.p.Mode)

	if u.dryRun() {
		resp := types.OrderResp{OrderID: fmt.Sprintf("SIM-%d", time.Now().UnixNano()), Status: "SIMULATED", Message: "dry-run"}
		logger.Info(ctx, "Simulated order placed", "market", params.Get("market"), "side", params.Get("side"), "order_id", resp.OrderID)
		return resp, nil
	}

	if u.p.AccessKey == "" || u.p.SecretKey == "" {
		return types.OrderResp{}, errors.New("missing access/secret key")
	}
	hdr, err := u.sign.header(params)
	if err != nil {
		return types.OrderResp{}, err
	}
	// json.Marshal sorts map keys, matching the sorted form used for query_hash
	body := make(map[string]string, len(params))
	for k := range params {
		body[k] = params.Get(k)
	}
	resp, err := u.client.POST(ctx, "/v1/orders", body, hdr)
	if err != nil {
		return types.OrderResp{}, err
	}
	var out struct {
		UUID  string `json:"uuid"`
		State string `json:"state"`
	}
	if err := resp.ParseJSON(&out); err != nil {
		return types.OrderResp{}, err
	}
	logger.Info(ctx, "Live order placed", "market", params.Get("market"), "side", params.Get("side"), "order_id", out.UUID)
	return types.OrderResp{OrderID: out.UUID, Status: out.State}, nil
}

func parseNum(s string) (float64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// formatFloor rounds down so an order never exceeds the balance it was sized from.
func formatFloor(v float64, prec int) string {
	scale := math.Pow10(prec)
	return strconv.FormatFloat(math.Floor(v*scale)/scale, 'f', prec, 64)
}
