package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"crypto-autotrade/internal/broker/brokerobs"
	"crypto-autotrade/internal/broker/upbit"
	"crypto-autotrade/internal/broker/zerodha"
	"crypto-autotrade/internal/chart"
	"crypto-autotrade/internal/decision"
	"crypto-autotrade/internal/engine"
	"crypto-autotrade/internal/engine/engineobs"
	"crypto-autotrade/internal/eod"
	"crypto-autotrade/internal/eod/eodobs"
	"crypto-autotrade/internal/execution"
	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/llm/claude"
	"crypto-autotrade/internal/llm/llmobs"
	"crypto-autotrade/internal/llm/noop"
	"crypto-autotrade/internal/llm/openai"
	"crypto-autotrade/internal/logger"
	"crypto-autotrade/internal/news"
	"crypto-autotrade/internal/notifier"
	"crypto-autotrade/internal/recorder"
	"crypto-autotrade/internal/scheduler"
	"crypto-autotrade/internal/sentiment"
	"crypto-autotrade/internal/snapshot"
	"crypto-autotrade/internal/store"
	"crypto-autotrade/internal/trace"
	"crypto-autotrade/internal/tradelog"

	"github.com/joho/godotenv"
)

// cycleNotifier is what both the engine and the scheduler push messages to.
type cycleNotifier interface {
	interfaces.Notifier
	scheduler.Sender
}

// initializeSystem loads .env and sets up the logger and tracer
func initializeSystem(ctx context.Context) error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func loadConfig(ctx context.Context) (*store.Config, error) {
	path := "config.yaml"
	if v := os.Getenv("TRADER_CONFIG"); v != "" {
		path = v
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// initializeExchange builds the configured exchange client with observability
func initializeExchange(ctx context.Context, cfg *store.Config, creds store.Credentials) interfaces.Exchange {
	if cfg.Mode == store.ModeDryRun {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	}

	var ex interfaces.Exchange
	switch cfg.Exchange {
	case store.ExchangeKite:
		ex = zerodha.NewZerodha(zerodha.Params{
			Mode:            cfg.Mode,
			APIKey:          creds.KiteAPIKey,
			AccessToken:     creds.KiteAccessToken,
			Exchange:        cfg.Kite.Exchange,
			Tradingsymbol:   cfg.Kite.Tradingsymbol,
			InstrumentToken: cfg.Kite.InstrumentToken,
			QuoteCurrency:   cfg.QuoteCurrency,
		})
	default:
		ex = upbit.New(upbit.Params{
			Mode:      cfg.Mode,
			AccessKey: creds.UpbitAccessKey,
			SecretKey: creds.UpbitSecretKey,
		})
	}
	logger.Info(ctx, "Exchange initialized", "exchange", cfg.Exchange, "ticker", cfg.Ticker)

	return brokerobs.Wrap(ex)
}

// initializeOracle picks the completion backend for trade decisions
func initializeOracle(ctx context.Context, cfg *store.Config, creds store.Credentials) interfaces.Oracle {
	p := openai.Params{
		Model:       cfg.LLM.Model,
		BaseURL:     cfg.LLM.BaseURL,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}

	var oracle interfaces.Oracle
	switch cfg.LLM.Provider {
	case store.ProviderOpenAI:
		p.APIKey = creds.OpenAIAPIKey
		oracle = openai.New(p)
	case store.ProviderCerebras:
		p.APIKey = creds.CerebrasAPIKey
		if p.BaseURL == "" {
			p.BaseURL = openai.CerebrasBaseURL
		}
		oracle = openai.New(p)
	case store.ProviderClaude:
		oracle = claude.New(claude.Params{
			APIKey:      creds.ClaudeAPIKey,
			Endpoint:    cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})
	default:
		oracle = noop.New()
		logger.Warn(ctx, "No LLM provider configured - using Noop oracle (always HOLD)")
	}

	return llmobs.Wrap(oracle, cfg.LLM.Provider)
}

// initializeEnrichment builds the optional snapshot sources enabled in config
func initializeEnrichment(ctx context.Context, cfg *store.Config, creds store.Credentials) []snapshot.Option {
	var opts []snapshot.Option

	if cfg.Sentiment.Enabled {
		var src interfaces.SentimentSource = sentiment.NewFearGreedClient(cfg.Sentiment.URL)
		if creds.RedisURL != "" {
			rdb, err := sentiment.NewRedisClient(ctx, creds.RedisURL)
			if err != nil {
				logger.Warn(ctx, "Redis unavailable, sentiment will not be cached", "error", err.Error())
			} else {
				src = sentiment.NewCached(src, rdb, time.Duration(cfg.Sentiment.CacheTTLSeconds)*time.Second)
			}
		}
		opts = append(opts, snapshot.WithSentiment(src))
	}

	if cfg.News.Enabled {
		sc := news.DefaultServiceConfig()
		if cfg.News.FeedURL != "" {
			sc.FeedURL = cfg.News.FeedURL
		}
		sc.HTMLURL = cfg.News.HTMLURL
		sc.HTMLSelector = cfg.News.HTMLSelector
		sc.CacheDuration = time.Duration(cfg.News.CacheMinutes) * time.Minute
		opts = append(opts, snapshot.WithNews(news.NewService(sc)))
	}

	if cfg.Chart.Enabled {
		if creds.OpenAIAPIKey == "" {
			logger.Warn(ctx, "Chart analysis enabled but OPENAI_API_KEY is not set, skipping")
		} else {
			vision := openai.New(openai.Params{
				APIKey:    creds.OpenAIAPIKey,
				Model:     cfg.Chart.Model,
				MaxTokens: cfg.LLM.MaxTokens,
			})
			opts = append(opts, snapshot.WithChart(chart.NewVisionAnalyzer(vision)))
		}
	}

	return opts
}

// initializeRecorder opens the configured cycle store
func initializeRecorder(ctx context.Context, cfg *store.Config, creds store.Credentials) (interfaces.Recorder, error) {
	switch cfg.Recorder.Driver {
	case store.RecorderSQLite:
		return recorder.NewSQLiteRecorder(ctx, cfg.Recorder.SQLitePath)
	case store.RecorderPostgres:
		if creds.DatabaseURL == "" {
			return nil, fmt.Errorf("recorder.driver is POSTGRES but DATABASE_URL is not set")
		}
		return recorder.OpenPostgres(ctx, creds.DatabaseURL)
	default:
		return recorder.NewNoopRecorder(), nil
	}
}

func initializeJournal() *tradelog.Journal {
	dir := "logs"
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		dir = v
	}
	return tradelog.New(dir, time.UTC)
}

func initializeNotifier(ctx context.Context, cfg *store.Config, creds store.Credentials) cycleNotifier {
	if creds.TelegramBotToken == "" || cfg.Notify.TelegramChatID == 0 {
		return notifier.Noop{}
	}
	tg, err := notifier.NewTelegram(creds.TelegramBotToken, cfg.Notify.TelegramChatID)
	if err != nil {
		logger.Warn(ctx, "Telegram notifier disabled", "error", err.Error())
		return notifier.Noop{}
	}
	logger.Info(ctx, "Telegram notifications enabled", "chat_id", cfg.Notify.TelegramChatID)
	return tg
}

// initializeEngine assembles the cycle pipeline with observability
func initializeEngine(cfg *store.Config, ex interfaces.Exchange, oracle interfaces.Oracle, enrich []snapshot.Option, n interfaces.Notifier, recorders ...interfaces.Recorder) interfaces.Engine {
	asm := snapshot.New(snapshot.Config{
		Ticker:           cfg.Ticker,
		QuoteCurrency:    cfg.QuoteCurrency,
		BaseCurrency:     cfg.BaseCurrency(),
		DailyCount:       cfg.OHLCV.DailyCount,
		HourlyCount:      cfg.OHLCV.HourlyCount,
		DailyKeep:        cfg.OHLCV.DailyKeep,
		HourlyKeep:       cfg.OHLCV.HourlyKeep,
		SentimentLimit:   cfg.Sentiment.Limit,
		NewsQuery:        cfg.News.Query,
		NewsMax:          cfg.News.MaxItems,
		RequireSentiment: cfg.Sentiment.Required,
		RequireNews:      cfg.News.Required,
		RequireChart:     cfg.Chart.Required,
	}, ex, enrich...)

	eng := engine.New(cfg.Ticker, asm,
		decision.NewTranslator(oracle, cfg.LLM.System),
		execution.NewExecutor(ex, cfg.Ticker),
		engine.WithRecorders(recorders...),
		engine.WithNotifier(n),
	)
	return engineobs.Wrap(eng)
}

// initializeScheduler registers log compression and the daily summary
func initializeScheduler(ctx context.Context, cfg *store.Config, journal *tradelog.Journal, sender scheduler.Sender) (*scheduler.Scheduler, error) {
	summarizer := eodobs.Wrap(eod.NewSummarizer(journal))
	s := scheduler.New(ctx, journal.Location(), journal, summarizer, sender, cfg.Ticker, cfg.Housekeeping.LogRetentionDays)
	if err := s.RegisterAll(cfg.Housekeeping.Cron, cfg.Housekeeping.SummaryCron); err != nil {
		return nil, err
	}
	return s, nil
}
