// Package decision asks the oracle for a trade decision and validates it.
package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/logger"
	"crypto-autotrade/internal/types"
)

// OrderBookDepth is the number of levels per side shown to the oracle.
const OrderBookDepth = 3

const DefaultSystemPrompt = `You are an expert in Bitcoin investing. Analyze the provided data and make a decision based on:
1. Current market status
2. Orderbook analysis (market depth)
3. Technical analysis (OHLCV data with indicators)
4. Current position status
5. Fear and greed index, when provided
6. Recent news headlines, when provided
7. Chart analysis, when provided

Your response should be in the following format:
{
  "decision": "<buy/sell/hold>",
  "reason": "<detailed analysis>",
  "risk_level": "<low/medium/high>",
  "confidence_score": <0-100>,
  "sentiment_analysis": "<short comment on market sentiment>"
}
Respond ONLY with the JSON object.`

// View is the reduced snapshot serialized into the oracle request.
type View struct {
	CurrentStatus types.AccountStatus     `json:"current_status"`
	OrderBook     types.OrderBook         `json:"orderbook"`
	OHLCV         OHLCVView               `json:"ohlcv"`
	FearGreed     *types.SentimentReading `json:"fear_greed_index,omitempty"`
	News          []types.NewsItem        `json:"news,omitempty"`
	ChartAnalysis string                  `json:"chart_analysis,omitempty"`
}

type OHLCVView struct {
	Daily  []types.AnalyzedBar `json:"daily_data"`
	Hourly []types.AnalyzedBar `json:"hourly_data"`
}

func NewView(snap types.MarketSnapshot) View {
	return View{
		CurrentStatus: snap.Account,
		OrderBook:     snap.OrderBook.Top(OrderBookDepth),
		OHLCV:         OHLCVView{Daily: snap.Daily, Hourly: snap.Hourly},
		FearGreed:     snap.Sentiment,
		News:          snap.News,
		ChartAnalysis: snap.ChartAnalysis,
	}
}

// Translator implements interfaces.Decider on top of a raw text oracle.
// It never retries the oracle.
type Translator struct {
	oracle interfaces.Oracle
	system string
}

func NewTranslator(oracle interfaces.Oracle, system string) *Translator {
	if strings.TrimSpace(system) == "" {
		system = DefaultSystemPrompt
	}
	return &Translator{oracle: oracle, system: system}
}

func (t *Translator) Decide(ctx context.Context, snap types.MarketSnapshot) (types.TradeIntent, error) {
	payload, err := json.Marshal(NewView(snap))
	if err != nil {
		return types.TradeIntent{}, fmt.Errorf("marshal snapshot view: %w", err)
	}
	user := "Please analyze this market data and provide your decision: " + string(payload)

	raw, err := t.oracle.Complete(ctx, t.system, user)
	if err != nil {
		return types.TradeIntent{}, types.NewFetchError("oracle", "complete", err)
	}
	if logger.IsDebugEnabled() {
		logger.Debug(ctx, "Oracle response", "ticker", snap.Ticker, "prompt_bytes", len(user), "response", truncate(raw, 2048))
	}

	intent, err := ParseIntent(raw)
	if err != nil {
		logger.ErrorWithErr(ctx, "Oracle response rejected", err, "ticker", snap.Ticker, "response", truncate(raw, 512))
		return types.TradeIntent{}, err
	}

	logger.Decision(ctx, snap.Ticker, string(intent.Decision), intent.ConfidenceScore, intent.Reason,
		"risk_level", string(intent.RiskLevel),
	)
	return intent, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
