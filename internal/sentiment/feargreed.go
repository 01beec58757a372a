// Package sentiment provides the fear-greed market mood index.
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"crypto-autotrade/internal/api"
	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/types"
)

const (
	DefaultURL = "https://api.alternative.me"
	source     = "feargreed"
)

type FearGreedClient struct {
	client *api.Client
}

var _ interfaces.SentimentSource = (*FearGreedClient)(nil)

func NewFearGreedClient(baseURL string) *FearGreedClient {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &FearGreedClient{
		client: api.NewClient(
			api.WithBaseURL(baseURL),
			api.WithTimeout(10*time.Second),
			api.WithLogging(true),
		),
	}
}

type fngResponse struct {
	Data []struct {
		Value          string `json:"value"`
		Classification string `json:"value_classification"`
		Timestamp      string `json:"timestamp"`
	} `json:"data"`
	Metadata struct {
		Error *string `json:"error"`
	} `json:"metadata"`
}

// Index fetches the last limit readings. The API answers newest first; the
// returned history keeps that order.
func (c *FearGreedClient) Index(ctx context.Context, limit int) (types.SentimentReading, error) {
	if limit <= 0 {
		limit = 1
	}
	req := api.NewRequest("GET", "/fng/").
		WithContext(ctx).
		WithQuery(url.Values{"limit": {strconv.Itoa(limit)}})
	resp, err := c.client.DoWithRetry(req, &api.RetryConfig{MaxAttempts: 2, InitialWait: 500 * time.Millisecond, MaxWait: time.Second})
	if err != nil {
		return types.SentimentReading{}, types.NewFetchError(source, "index", err)
	}

	var raw fngResponse
	if err := resp.ParseJSON(&raw); err != nil {
		return types.SentimentReading{}, types.NewFetchError(source, "index", err)
	}
	if raw.Metadata.Error != nil && *raw.Metadata.Error != "" {
		return types.SentimentReading{}, types.NewFetchError(source, "index", errors.New(*raw.Metadata.Error))
	}
	if len(raw.Data) == 0 {
		return types.SentimentReading{}, types.NewFetchError(source, "index", errors.New("empty data"))
	}

	history := make([]types.SentimentPoint, 0, len(raw.Data))
	for _, d := range raw.Data {
		v, err := strconv.Atoi(d.Value)
		if err != nil {
			return types.SentimentReading{}, types.NewFetchError(source, "index", fmt.Errorf("bad value %q: %w", d.Value, err))
		}
		p := types.SentimentPoint{Value: v, Classification: d.Classification}
		if ts, err := strconv.ParseInt(d.Timestamp, 10, 64); err == nil {
			p.Time = time.Unix(ts, 0).UTC()
		}
		history = append(history, p)
	}
	return NewReading(history), nil
}

// NewReading derives the summary from readings ordered newest first. The
// trend is improving when the latest value is above the average of all readings.
func NewReading(history []types.SentimentPoint) types.SentimentReading {
	if len(history) == 0 {
		return types.SentimentReading{}
	}
	sum := 0
	for _, p := range history {
		sum += p.Value
	}
	avg := float64(sum) / float64(len(history))

	latest := history[0]
	trend := types.TrendDeteriorating
	if float64(latest.Value) > avg {
		trend = types.TrendImproving
	}
	return types.SentimentReading{
		Value:          latest.Value,
		Classification: latest.Classification,
		History:        history,
		Trend:          trend,
		Average:        avg,
	}
}
