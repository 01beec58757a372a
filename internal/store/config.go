package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ModeDryRun = "DRY_RUN"
	ModeLive   = "LIVE"

	ExchangeUpbit = "UPBIT"
	ExchangeKite  = "KITE"

	ProviderOpenAI   = "OPENAI"
	ProviderCerebras = "CEREBRAS"
	ProviderClaude   = "CLAUDE"
	ProviderNoop     = "NOOP"

	RecorderSQLite   = "SQLITE"
	RecorderPostgres = "POSTGRES"
	RecorderNone     = "NONE"
)

type Config struct {
	Mode          string `yaml:"mode"`
	Exchange      string `yaml:"exchange"`
	Ticker        string `yaml:"ticker"`
	QuoteCurrency string `yaml:"quote_currency"`
	Loop          struct {
		IntervalSeconds         int `yaml:"interval_seconds"`
		BackoffSeconds          int `yaml:"backoff_seconds"`
		MaxConsecutiveFailures  int `yaml:"max_consecutive_failures"`
		EscalatedBackoffSeconds int `yaml:"escalated_backoff_seconds"`
	} `yaml:"loop"`
	OHLCV struct {
		DailyCount  int `yaml:"daily_count"`
		HourlyCount int `yaml:"hourly_count"`
		DailyKeep   int `yaml:"daily_keep"`
		HourlyKeep  int `yaml:"hourly_keep"`
	} `yaml:"ohlcv"`
	LLM struct {
		Provider    string  `yaml:"provider"`
		Model       string  `yaml:"model"`
		BaseURL     string  `yaml:"base_url"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
		System      string  `yaml:"system"`
	} `yaml:"llm"`
	Sentiment struct {
		Enabled         bool   `yaml:"enabled"`
		Limit           int    `yaml:"limit"`
		URL             string `yaml:"url"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
		Required        bool   `yaml:"required"`
	} `yaml:"sentiment"`
	News struct {
		Enabled      bool   `yaml:"enabled"`
		Query        string `yaml:"query"`
		MaxItems     int    `yaml:"max_items"`
		FeedURL      string `yaml:"feed_url"`
		HTMLURL      string `yaml:"html_url"`
		HTMLSelector string `yaml:"html_selector"`
		CacheMinutes int    `yaml:"cache_minutes"`
		Required     bool   `yaml:"required"`
	} `yaml:"news"`
	Chart struct {
		Enabled  bool   `yaml:"enabled"`
		Model    string `yaml:"model"`
		Required bool   `yaml:"required"`
	} `yaml:"chart"`
	Kite struct {
		Exchange        string `yaml:"exchange"`
		Tradingsymbol   string `yaml:"tradingsymbol"`
		InstrumentToken int    `yaml:"instrument_token"`
	} `yaml:"kite"`
	Recorder struct {
		Driver     string `yaml:"driver"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"recorder"`
	Notify struct {
		TelegramChatID int64 `yaml:"telegram_chat_id"`
	} `yaml:"notify"`
	Status struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"status"`
	Housekeeping struct {
		Cron             string `yaml:"cron"`
		SummaryCron      string `yaml:"summary_cron"`
		LogRetentionDays int    `yaml:"log_retention_days"`
	} `yaml:"housekeeping"`
}

// Credentials are read from the environment only, never from config.yaml.
type Credentials struct {
	UpbitAccessKey   string
	UpbitSecretKey   string
	KiteAPIKey       string
	KiteAccessToken  string
	OpenAIAPIKey     string
	CerebrasAPIKey   string
	ClaudeAPIKey     string
	TelegramBotToken string
	RedisURL         string
	DatabaseURL      string
}

func LoadCredentials() Credentials {
	return Credentials{
		UpbitAccessKey:   os.Getenv("UPBIT_ACCESS_KEY"),
		UpbitSecretKey:   os.Getenv("UPBIT_SECRET_KEY"),
		KiteAPIKey:       os.Getenv("KITE_API_KEY"),
		KiteAccessToken:  os.Getenv("KITE_ACCESS_TOKEN"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		CerebrasAPIKey:   os.Getenv("CEREBRAS_API_KEY"),
		ClaudeAPIKey:     os.Getenv("CLAUDE_API_KEY"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		RedisURL:         os.Getenv("REDIS_URL"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
	}
}

func (c *Config) Validate() error {
	if c.Mode != ModeDryRun && c.Mode != ModeLive {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.Exchange != ExchangeUpbit && c.Exchange != ExchangeKite {
		return fmt.Errorf("invalid exchange '%s': must be 'UPBIT' or 'KITE'", c.Exchange)
	}
	if strings.TrimSpace(c.Ticker) == "" {
		return errors.New("ticker cannot be empty")
	}
	if c.Loop.IntervalSeconds <= 0 || c.Loop.BackoffSeconds <= 0 {
		return fmt.Errorf("loop intervals must be positive, got interval=%d backoff=%d", c.Loop.IntervalSeconds, c.Loop.BackoffSeconds)
	}
	if c.Loop.MaxConsecutiveFailures < 0 {
		return fmt.Errorf("loop.max_consecutive_failures cannot be negative, got %d", c.Loop.MaxConsecutiveFailures)
	}
	if c.OHLCV.DailyKeep <= 0 || c.OHLCV.DailyKeep > c.OHLCV.DailyCount {
		return fmt.Errorf("ohlcv.daily_keep must be in 1..%d, got %d", c.OHLCV.DailyCount, c.OHLCV.DailyKeep)
	}
	if c.OHLCV.HourlyKeep <= 0 || c.OHLCV.HourlyKeep > c.OHLCV.HourlyCount {
		return fmt.Errorf("ohlcv.hourly_keep must be in 1..%d, got %d", c.OHLCV.HourlyCount, c.OHLCV.HourlyKeep)
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderCerebras, ProviderClaude, ProviderNoop:
	default:
		return fmt.Errorf("llm.provider must be 'OPENAI', 'CEREBRAS', 'CLAUDE', or 'NOOP', got '%s'", c.LLM.Provider)
	}
	switch c.Recorder.Driver {
	case RecorderSQLite, RecorderPostgres, RecorderNone:
	default:
		return fmt.Errorf("recorder.driver must be 'SQLITE', 'POSTGRES', or 'NONE', got '%s'", c.Recorder.Driver)
	}
	if c.Exchange == ExchangeKite && (c.Kite.Tradingsymbol == "" || c.Kite.InstrumentToken == 0) {
		return errors.New("kite.tradingsymbol and kite.instrument_token are required for the KITE exchange")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeDryRun
	}
	if c.Exchange == "" {
		c.Exchange = ExchangeUpbit
	}
	if c.Ticker == "" {
		c.Ticker = "KRW-BTC"
	}
	if c.QuoteCurrency == "" {
		c.QuoteCurrency = "KRW"
	}
	if c.Loop.IntervalSeconds == 0 {
		c.Loop.IntervalSeconds = 600
	}
	if c.Loop.BackoffSeconds == 0 {
		c.Loop.BackoffSeconds = 60
	}
	if c.Loop.EscalatedBackoffSeconds == 0 {
		c.Loop.EscalatedBackoffSeconds = 1800
	}
	if c.OHLCV.DailyCount == 0 {
		c.OHLCV.DailyCount = 30
	}
	if c.OHLCV.HourlyCount == 0 {
		c.OHLCV.HourlyCount = 24
	}
	if c.OHLCV.DailyKeep == 0 {
		c.OHLCV.DailyKeep = 7
	}
	if c.OHLCV.HourlyKeep == 0 {
		c.OHLCV.HourlyKeep = 6
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderNoop
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1024
	}
	if c.Sentiment.Limit == 0 {
		c.Sentiment.Limit = 7
	}
	if c.Sentiment.CacheTTLSeconds == 0 {
		c.Sentiment.CacheTTLSeconds = 3600
	}
	if c.News.MaxItems == 0 {
		c.News.MaxItems = 5
	}
	if c.News.Query == "" {
		c.News.Query = "bitcoin"
	}
	if c.News.CacheMinutes == 0 {
		c.News.CacheMinutes = 30
	}
	if c.Kite.Exchange == "" {
		c.Kite.Exchange = "NSE"
	}
	if c.Recorder.Driver == "" {
		c.Recorder.Driver = RecorderSQLite
	}
	if c.Recorder.SQLitePath == "" {
		c.Recorder.SQLitePath = "data/cycles.db"
	}
	if c.Status.Addr == "" {
		c.Status.Addr = ":8080"
	}
	if c.Housekeeping.Cron == "" {
		c.Housekeeping.Cron = "0 3 * * *"
	}
	if c.Housekeeping.SummaryCron == "" {
		c.Housekeeping.SummaryCron = "55 23 * * *"
	}
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.Loop.IntervalSeconds) * time.Second
}

func (c *Config) Backoff() time.Duration {
	return time.Duration(c.Loop.BackoffSeconds) * time.Second
}

func (c *Config) EscalatedBackoff() time.Duration {
	return time.Duration(c.Loop.EscalatedBackoffSeconds) * time.Second
}

// BaseCurrency is the traded asset of a "QUOTE-BASE" ticker such as KRW-BTC.
func (c *Config) BaseCurrency() string {
	if i := strings.LastIndex(c.Ticker, "-"); i >= 0 {
		return c.Ticker[i+1:]
	}
	return c.Ticker
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

func ParseConfig(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
