// Package snapshot assembles the per-cycle MarketSnapshot from the exchange
// and the optional enrichment sources.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/logger"
	"crypto-autotrade/internal/ta"
	"crypto-autotrade/internal/trace"
	"crypto-autotrade/internal/types"
)

// OrderBookDepth is the number of levels per side kept in a snapshot.
const OrderBookDepth = 5

// Names reported in MarketSnapshot.Degraded.
const (
	SourceSentiment = "sentiment"
	SourceNews      = "news"
	SourceChart     = "chart"
)

type Config struct {
	Ticker        string
	QuoteCurrency string
	BaseCurrency  string

	DailyCount  int
	HourlyCount int
	DailyKeep   int
	HourlyKeep  int

	SentimentLimit int
	NewsQuery      string
	NewsMax        int

	// Required sources fail the cycle instead of degrading the snapshot.
	RequireSentiment bool
	RequireNews      bool
	RequireChart     bool
}

type Assembler struct {
	cfg       Config
	exchange  interfaces.Exchange
	sentiment interfaces.SentimentSource
	news      interfaces.NewsSource
	chart     interfaces.ChartAnalyzer
	now       func() time.Time
}

type Option func(*Assembler)

func WithSentiment(src interfaces.SentimentSource) Option {
	return func(a *Assembler) { a.sentiment = src }
}

func WithNews(src interfaces.NewsSource) Option {
	return func(a *Assembler) { a.news = src }
}

func WithChart(c interfaces.ChartAnalyzer) Option {
	return func(a *Assembler) { a.chart = c }
}

func New(cfg Config, exchange interfaces.Exchange, opts ...Option) *Assembler {
	a := &Assembler{cfg: cfg, exchange: exchange, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type balances struct {
	cash, asset, avgBuy, price float64
}

// Build waits for every required fetch. Any required failure aborts the
// snapshot with a *types.FetchError; optional failures are listed in Degraded.
func (a *Assembler) Build(ctx context.Context) (types.MarketSnapshot, error) {
	ctx, span := trace.StartSpan(ctx, "snapshot.Build")
	defer span.End()

	var (
		bal          balances
		book         types.OrderBook
		daily        []types.PriceBar
		hourly       []types.PriceBar
		sentiment    *types.SentimentReading
		news         []types.NewsItem
		degradedMu   sync.Mutex
		degraded     []string
		ticker       = a.cfg.Ticker
		optionalFail = func(source string, required bool, err error) error {
			if required {
				return err
			}
			logger.Warn(ctx, "Optional source failed, continuing without it", "source", source, "error", err.Error())
			degradedMu.Lock()
			degraded = append(degraded, source)
			degradedMu.Unlock()
			return nil
		}
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		bal.cash, err = a.exchange.Balance(gctx, a.cfg.QuoteCurrency)
		return err
	})
	g.Go(func() (err error) {
		bal.asset, err = a.exchange.Balance(gctx, a.cfg.BaseCurrency)
		return err
	})
	g.Go(func() (err error) {
		bal.avgBuy, err = a.exchange.AvgBuyPrice(gctx, ticker)
		return err
	})
	g.Go(func() error {
		price, err := a.exchange.CurrentPrice(gctx, ticker)
		if err != nil {
			return err
		}
		if price <= 0 {
			return types.NewFetchError("exchange", "current_price", fmt.Errorf("non-positive price %v for %s", price, ticker))
		}
		bal.price = price
		return nil
	})
	g.Go(func() error {
		ob, err := a.exchange.OrderBook(gctx, ticker)
		if err != nil {
			return err
		}
		if len(ob.Asks) == 0 || len(ob.Bids) == 0 {
			return types.NewFetchError("exchange", "orderbook", errors.New("empty order book"))
		}
		book = ob.Top(OrderBookDepth)
		return nil
	})
	g.Go(func() (err error) {
		daily, err = a.fetchBars(gctx, interfaces.IntervalDay, a.cfg.DailyCount)
		return err
	})
	g.Go(func() (err error) {
		hourly, err = a.fetchBars(gctx, interfaces.IntervalHour, a.cfg.HourlyCount)
		return err
	})

	if a.sentiment != nil {
		g.Go(func() error {
			r, err := a.sentiment.Index(gctx, a.cfg.SentimentLimit)
			if err != nil {
				return optionalFail(SourceSentiment, a.cfg.RequireSentiment, err)
			}
			sentiment = &r
			return nil
		})
	}
	if a.news != nil {
		g.Go(func() error {
			items, err := a.news.Headlines(gctx, a.cfg.NewsQuery, a.cfg.NewsMax)
			if err != nil {
				return optionalFail(SourceNews, a.cfg.RequireNews, err)
			}
			news = items
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return types.MarketSnapshot{}, asFetchError(err)
	}

	// Each timeframe is analyzed on its full series before trimming.
	dailyBars := ta.Analyze(daily)
	hourlyBars := ta.Analyze(hourly)

	var chartText string
	if a.chart != nil {
		text, err := a.chart.Analyze(ctx, ticker, hourlyBars)
		if err != nil {
			if ferr := optionalFail(SourceChart, a.cfg.RequireChart, err); ferr != nil {
				return types.MarketSnapshot{}, asFetchError(ferr)
			}
		} else {
			chartText = text
		}
	}

	snap := types.MarketSnapshot{
		Ticker:        ticker,
		TakenAt:       a.now(),
		Account:       types.NewAccountStatus(bal.cash, bal.asset, bal.avgBuy, bal.price),
		OrderBook:     book,
		Daily:         last(dailyBars, a.cfg.DailyKeep),
		Hourly:        last(hourlyBars, a.cfg.HourlyKeep),
		Sentiment:     sentiment,
		News:          news,
		ChartAnalysis: chartText,
		Degraded:      degraded,
	}

	logger.Debug(ctx, "Snapshot assembled",
		"ticker", ticker,
		"price", snap.Account.CurrentPrice,
		"total_value", snap.Account.TotalValue,
		"daily_bars", len(snap.Daily),
		"hourly_bars", len(snap.Hourly),
		"has_sentiment", snap.Sentiment != nil,
		"news_items", len(snap.News),
		"has_chart", snap.ChartAnalysis != "",
		"degraded", degraded,
	)
	return snap, nil
}

func (a *Assembler) fetchBars(ctx context.Context, interval string, count int) ([]types.PriceBar, error) {
	bars, err := a.exchange.OHLCV(ctx, a.cfg.Ticker, interval, count)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, types.NewFetchError("exchange", "ohlcv_"+interval, errors.New("no bars returned"))
	}
	return bars, nil
}

func last(bars []types.AnalyzedBar, n int) []types.AnalyzedBar {
	if n <= 0 || len(bars) <= n {
		return bars
	}
	return append([]types.AnalyzedBar(nil), bars[len(bars)-n:]...)
}

func asFetchError(err error) error {
	if types.IsFetchError(err) {
		return err
	}
	return types.NewFetchError("snapshot", "build", err)
}
