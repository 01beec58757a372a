package chart

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"testing"
	"time"

	"crypto-autotrade/internal/ta"
	"crypto-autotrade/internal/types"
)

func buildTestBars(count int) []types.AnalyzedBar {
	base := time.Now().UTC().Add(-time.Duration(count) * time.Hour)
	bars := make([]types.PriceBar, 0, count)
	price := 50000.0
	for i := 0; i < count; i++ {
		step := float64((i%9)-4) * 18
		open := price
		close := price + step
		bars = append(bars, types.PriceBar{
			Time:   base.Add(time.Duration(i) * time.Hour),
			Open:   open,
			High:   max(open, close) + 22,
			Low:    min(open, close) - 20,
			Close:  close,
			Volume: 1000 + float64((i%17)*80),
		})
		price = close
	}
	return ta.Analyze(bars)
}

func TestRenderProducesPNG(t *testing.T) {
	for _, n := range []int{2, 24, 160} {
		img, err := NewRenderer().Render(buildTestBars(n))
		if err != nil {
			t.Fatalf("render %d bars failed: %v", n, err)
		}
		cfg, err := png.DecodeConfig(bytes.NewReader(img))
		if err != nil {
			t.Fatalf("expected a valid PNG: %v", err)
		}
		if cfg.Width != chartWidth || cfg.Height != chartHeight {
			t.Errorf("unexpected size %dx%d", cfg.Width, cfg.Height)
		}
	}
}

func TestRenderNeedsTwoBars(t *testing.T) {
	if _, err := NewRenderer().Render(buildTestBars(1)); err == nil {
		t.Fatal("expected error for a single bar")
	}
}

type stubVision struct {
	png  []byte
	text string
	err  error
}

func (s *stubVision) CompleteWithImage(ctx context.Context, system, prompt string, png []byte) (string, error) {
	s.png = png
	return s.text, s.err
}

func TestVisionAnalyzer(t *testing.T) {
	oracle := &stubVision{text: "price riding the upper band"}
	out, err := NewVisionAnalyzer(oracle).Analyze(context.Background(), "KRW-BTC", buildTestBars(24))
	if err != nil || out != "price riding the upper band" {
		t.Fatalf("unexpected result %q err=%v", out, err)
	}
	if len(oracle.png) == 0 {
		t.Error("expected the rendered chart to be sent")
	}

	oracle.err = errors.New("vision down")
	if _, err := NewVisionAnalyzer(oracle).Analyze(context.Background(), "KRW-BTC", buildTestBars(24)); !types.IsFetchError(err) {
		t.Errorf("expected FetchError, got %v", err)
	}
}
