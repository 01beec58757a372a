package interfaces

import (
	"context"

	"crypto-autotrade/internal/types"
)

type SentimentSource interface {
	Index(ctx context.Context, limit int) (types.SentimentReading, error)
}

type NewsSource interface {
	Headlines(ctx context.Context, query string, max int) ([]types.NewsItem, error)
}

// ChartAnalyzer returns a free-text reading of a chart built from bars.
type ChartAnalyzer interface {
	Analyze(ctx context.Context, ticker string, bars []types.AnalyzedBar) (string, error)
}
