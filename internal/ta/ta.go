// Package ta computes technical indicator series over OHLCV bars.
//
// Every series is aligned 1:1 with its input and holds NaN where the
// lookback window is not yet filled. Compute converts NaN into the
// no-value sentinel, so NaN never leaves this package.
//
// Smoothing choices:
//   - SMA: arithmetic mean over the trailing window.
//   - EMA: alpha = 2/(n+1), seeded with the first input value, reported once n
//     values have been seen.
//   - RSI: Wilder. The first average gain/loss is the simple mean of the first
//     n deltas, then avg = (prev*(n-1) + x) / n.
//   - ATR: Wilder, seeded with the mean of the first n true ranges. The first
//     bar's true range is high-low.
//   - Bollinger: population standard deviation. pband has no value when the
//     band has zero width.
package ta

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"crypto-autotrade/internal/types"
)

const (
	RSIPeriod        = 14
	MACDFast         = 12
	MACDSlow         = 26
	MACDSignalPeriod = 9
	BBWindow         = 20
	BBStdDevs        = 2.0
	ATRPeriod        = 14
)

var SMAWindows = []int{5, 20, 60, 120}

// Lookback is the number of bars each indicator needs before its first value.
var Lookback = map[string]int{
	types.IndSMA5:       5,
	types.IndSMA20:      20,
	types.IndSMA60:      60,
	types.IndSMA120:     120,
	types.IndRSI:        RSIPeriod + 1,
	types.IndMACD:       MACDSlow,
	types.IndMACDSignal: MACDSlow + MACDSignalPeriod - 1,
	types.IndMACDDiff:   MACDSlow + MACDSignalPeriod - 1,
	types.IndBBHigh:     BBWindow,
	types.IndBBMid:      BBWindow,
	types.IndBBLow:      BBWindow,
	types.IndBBPBand:    BBWindow,
	types.IndATR:        ATRPeriod,
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func SMA(vals []float64, n int) []float64 {
	out := nanSeries(len(vals))
	if n <= 0 {
		return out
	}
	for i := n - 1; i < len(vals); i++ {
		out[i] = floats.Sum(vals[i-n+1:i+1]) / float64(n)
	}
	return out
}

// EMA skips leading NaNs, so it can be chained onto another series.
func EMA(vals []float64, n int) []float64 {
	out := nanSeries(len(vals))
	if n <= 0 {
		return out
	}
	alpha := 2.0 / float64(n+1)
	seen := 0
	var e float64
	for i, v := range vals {
		if math.IsNaN(v) {
			if seen > 0 {
				return out
			}
			continue
		}
		if seen == 0 {
			e = v
		} else {
			e = alpha*v + (1-alpha)*e
		}
		seen++
		if seen >= n {
			out[i] = e
		}
	}
	return out
}

func RSI(closes []float64, n int) []float64 {
	out := nanSeries(len(closes))
	if n <= 0 || len(closes) < n+1 {
		return out
	}
	var avgGain, avgLoss float64
	for i := 1; i <= n; i++ {
		g, l := gainLoss(closes[i] - closes[i-1])
		avgGain += g
		avgLoss += l
	}
	avgGain /= float64(n)
	avgLoss /= float64(n)
	out[n] = rsiValue(avgGain, avgLoss)
	for i := n + 1; i < len(closes); i++ {
		g, l := gainLoss(closes[i] - closes[i-1])
		avgGain = (avgGain*float64(n-1) + g) / float64(n)
		avgLoss = (avgLoss*float64(n-1) + l) / float64(n)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func gainLoss(d float64) (float64, float64) {
	if d > 0 {
		return d, 0
	}
	return 0, -d
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

func MACD(closes []float64, fast, slow, signal int) (macd, sig, diff []float64) {
	f := EMA(closes, fast)
	s := EMA(closes, slow)
	macd = make([]float64, len(closes))
	for i := range closes {
		macd[i] = f[i] - s[i]
	}
	sig = EMA(macd, signal)
	diff = make([]float64, len(closes))
	for i := range closes {
		diff[i] = macd[i] - sig[i]
	}
	return macd, sig, diff
}

func Bollinger(closes []float64, n int, k float64) (mid, up, low, pband []float64) {
	mid, up, low, pband = nanSeries(len(closes)), nanSeries(len(closes)), nanSeries(len(closes)), nanSeries(len(closes))
	if n <= 0 {
		return
	}
	for i := n - 1; i < len(closes); i++ {
		m, sd := stat.PopMeanStdDev(closes[i-n+1:i+1], nil)
		mid[i] = m
		up[i] = m + k*sd
		low[i] = m - k*sd
		if width := up[i] - low[i]; width > 0 {
			pband[i] = (closes[i] - low[i]) / width
		}
	}
	return
}

func TrueRange(highs, lows, closes []float64) []float64 {
	tr := make([]float64, len(closes))
	for i := range closes {
		tr[i] = highs[i] - lows[i]
		if i > 0 {
			tr[i] = math.Max(tr[i], math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))
		}
	}
	return tr
}

func ATR(highs, lows, closes []float64, n int) []float64 {
	out := nanSeries(len(closes))
	if n <= 0 || len(highs) != len(closes) || len(lows) != len(closes) || len(closes) < n {
		return out
	}
	tr := TrueRange(highs, lows, closes)
	atr := floats.Sum(tr[:n]) / float64(n)
	out[n-1] = atr
	for i := n; i < len(closes); i++ {
		atr = (atr*float64(n-1) + tr[i]) / float64(n)
		out[i] = atr
	}
	return out
}

// Compute returns one IndicatorSet per bar. It is a pure function of bars.
func Compute(bars []types.PriceBar) []types.IndicatorSet {
	cl := make([]float64, len(bars))
	h := make([]float64, len(bars))
	l := make([]float64, len(bars))
	for i, b := range bars {
		cl[i] = b.Close
		h[i] = b.High
		l[i] = b.Low
	}

	series := map[string][]float64{}
	for _, w := range SMAWindows {
		series[smaName(w)] = SMA(cl, w)
	}
	series[types.IndRSI] = RSI(cl, RSIPeriod)
	series[types.IndMACD], series[types.IndMACDSignal], series[types.IndMACDDiff] = MACD(cl, MACDFast, MACDSlow, MACDSignalPeriod)
	series[types.IndBBMid], series[types.IndBBHigh], series[types.IndBBLow], series[types.IndBBPBand] = Bollinger(cl, BBWindow, BBStdDevs)
	series[types.IndATR] = ATR(h, l, cl, ATRPeriod)

	out := make([]types.IndicatorSet, len(bars))
	for i := range bars {
		set := make(types.IndicatorSet, len(series))
		for name, s := range series {
			set[name] = toValue(s[i])
		}
		out[i] = set
	}
	return out
}

// Analyze pairs every bar with its indicators.
func Analyze(bars []types.PriceBar) []types.AnalyzedBar {
	sets := Compute(bars)
	out := make([]types.AnalyzedBar, len(bars))
	for i, b := range bars {
		out[i] = types.AnalyzedBar{PriceBar: b, Indicators: sets[i]}
	}
	return out
}

func toValue(f float64) types.Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return types.Value{}
	}
	return types.Some(f)
}

func smaName(w int) string {
	switch w {
	case 5:
		return types.IndSMA5
	case 20:
		return types.IndSMA20
	case 60:
		return types.IndSMA60
	case 120:
		return types.IndSMA120
	}
	panic("ta: unsupported SMA window")
}
