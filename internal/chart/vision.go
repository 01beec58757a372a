package chart

import (
	"context"
	"fmt"

	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/logger"
	"crypto-autotrade/internal/trace"
	"crypto-autotrade/internal/types"
)

const visionSystemPrompt = `You are a technical analyst reading a candlestick chart. The top panel shows candles with Bollinger Bands (20, 2); the bottom panel shows RSI(14) with 30/70 guides. Describe the trend, band position, momentum and any notable pattern in at most five sentences. Do not recommend a trade.`

// VisionAnalyzer renders bars and asks a vision-capable oracle to describe them.
type VisionAnalyzer struct {
	renderer *Renderer
	oracle   interfaces.VisionOracle
}

var _ interfaces.ChartAnalyzer = (*VisionAnalyzer)(nil)

func NewVisionAnalyzer(oracle interfaces.VisionOracle) *VisionAnalyzer {
	return &VisionAnalyzer{renderer: NewRenderer(), oracle: oracle}
}

func (v *VisionAnalyzer) Analyze(ctx context.Context, ticker string, bars []types.AnalyzedBar) (string, error) {
	ctx, span := trace.StartSpan(ctx, "chart.Analyze")
	defer span.End()

	img, err := v.renderer.Render(bars)
	if err != nil {
		return "", types.NewFetchError("chart", "render", err)
	}
	logger.Debug(ctx, "Chart rendered", "ticker", ticker, "bars", len(bars), "png_bytes", len(img))

	prompt := fmt.Sprintf("Hourly chart of %s, last %d bars.", ticker, len(bars))
	text, err := v.oracle.CompleteWithImage(ctx, visionSystemPrompt, prompt, img)
	if err != nil {
		return "", types.NewFetchError("chart", "vision", err)
	}
	return text, nil
}
