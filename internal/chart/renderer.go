// Package chart draws candle charts and asks a vision model to read them.
package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"crypto-autotrade/internal/types"
)

const (
	chartWidth  = 960
	chartHeight = 640
	maxCandles  = 120
)

var (
	colBackground = color.RGBA{R: 250, G: 252, B: 255, A: 255}
	colGrid       = color.RGBA{R: 225, G: 232, B: 240, A: 255}
	colBull       = color.RGBA{R: 18, G: 140, B: 126, A: 255}
	colBear       = color.RGBA{R: 210, G: 61, B: 87, A: 255}
	colWick       = color.RGBA{R: 58, G: 64, B: 90, A: 255}
	colMarker     = color.RGBA{R: 62, G: 106, B: 214, A: 255}
	colBand       = color.RGBA{R: 104, G: 122, B: 146, A: 255}
	colMid        = color.RGBA{R: 255, G: 149, B: 0, A: 255}
	colLine       = color.RGBA{R: 62, G: 106, B: 214, A: 255}
)

// Renderer draws bars with their Bollinger bands on top and RSI underneath.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Render(bars []types.AnalyzedBar) ([]byte, error) {
	if len(bars) < 2 {
		return nil, fmt.Errorf("need at least 2 bars to render chart")
	}
	if len(bars) > maxCandles {
		bars = bars[len(bars)-maxCandles:]
	}

	img := image.NewRGBA(image.Rect(0, 0, chartWidth, chartHeight))
	fillRect(img, img.Bounds(), colBackground)

	mainRect := image.Rect(60, 20, chartWidth-20, (chartHeight*72)/100)
	auxRect := image.Rect(60, mainRect.Max.Y+16, chartWidth-20, chartHeight-30)
	drawGrid(img, mainRect, 8, 6)
	drawGrid(img, auxRect, 8, 3)

	upper := series(bars, types.IndBBHigh)
	mid := series(bars, types.IndBBMid)
	lower := series(bars, types.IndBBLow)

	minP, maxP := priceBounds(bars)
	if lo, _ := finiteBounds(lower); lo < minP {
		minP = lo
	}
	if _, hi := finiteBounds(upper); hi > maxP {
		maxP = hi
	}

	drawCandles(img, mainRect, bars, minP, maxP)
	drawSeries(img, mainRect, upper, minP, maxP, colBand)
	drawSeries(img, mainRect, mid, minP, maxP, colMid)
	drawSeries(img, mainRect, lower, minP, maxP, colBand)

	markerX := mapIndexToX(len(bars)-1, len(bars), mainRect)
	drawLine(img, markerX, mainRect.Min.Y, markerX, mainRect.Max.Y, colMarker)

	drawHorizontalValueLine(img, auxRect, 30, 0, 100, colBand)
	drawHorizontalValueLine(img, auxRect, 70, 0, 100, colBand)
	drawSeries(img, auxRect, series(bars, types.IndRSI), 0, 100, colLine)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// series extracts one indicator with NaN where it has no value.
func series(bars []types.AnalyzedBar, name string) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		v := b.Indicators[name]
		if !v.Valid {
			out[i] = math.NaN()
			continue
		}
		out[i] = v.Float
	}
	return out
}

func priceBounds(bars []types.AnalyzedBar) (float64, float64) {
	lo, hi := bars[0].Low, bars[0].High
	for _, b := range bars {
		lo = math.Min(lo, b.Low)
		hi = math.Max(hi, b.High)
	}
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

func drawCandles(img *image.RGBA, rect image.Rectangle, bars []types.AnalyzedBar, minP, maxP float64) {
	candleWidth := max(3, (rect.Dx()-10)/len(bars)-1)
	for i, b := range bars {
		x := mapIndexToX(i, len(bars), rect)
		drawLine(img, x, mapValueToY(b.High, minP, maxP, rect), x, mapValueToY(b.Low, minP, maxP, rect), colWick)

		openY := mapValueToY(b.Open, minP, maxP, rect)
		closeY := mapValueToY(b.Close, minP, maxP, rect)
		top := min(openY, closeY)
		bottom := max(openY, closeY)
		if bottom-top < 2 {
			bottom = top + 2
		}

		body := colBull
		if b.Close < b.Open {
			body = colBear
		}
		fillRect(img, image.Rect(x-candleWidth/2, top, x+candleWidth/2+1, bottom+1), body)
	}
}

func drawSeries(img *image.RGBA, rect image.Rectangle, values []float64, minV, maxV float64, col color.RGBA) {
	lastX, lastY := -1, -1
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			lastX, lastY = -1, -1
			continue
		}
		x := mapIndexToX(i, len(values), rect)
		y := mapValueToY(v, minV, maxV, rect)
		if lastX >= 0 {
			drawLine(img, lastX, lastY, x, y, col)
		}
		lastX, lastY = x, y
	}
}

func drawGrid(img *image.RGBA, rect image.Rectangle, vertical, horizontal int) {
	for i := 0; i <= vertical; i++ {
		x := rect.Min.X + (rect.Dx()*i)/max(1, vertical)
		drawLine(img, x, rect.Min.Y, x, rect.Max.Y, colGrid)
	}
	for i := 0; i <= horizontal; i++ {
		y := rect.Min.Y + (rect.Dy()*i)/max(1, horizontal)
		drawLine(img, rect.Min.X, y, rect.Max.X, y, colGrid)
	}
}

func drawHorizontalValueLine(img *image.RGBA, rect image.Rectangle, value, minV, maxV float64, col color.RGBA) {
	y := mapValueToY(value, minV, maxV, rect)
	drawLine(img, rect.Min.X, y, rect.Max.X, y, col)
}

func mapIndexToX(idx, total int, rect image.Rectangle) int {
	if total <= 1 {
		return rect.Min.X
	}
	return rect.Min.X + (idx*(rect.Dx()-1))/(total-1)
}

func mapValueToY(value, minV, maxV float64, rect image.Rectangle) int {
	if maxV <= minV {
		return rect.Max.Y
	}
	ratio := math.Max(0, math.Min(1, (value-minV)/(maxV-minV)))
	return rect.Max.Y - int(ratio*float64(rect.Dy()-1))
}

// finiteBounds returns +Inf/-Inf when values has nothing finite.
func finiteBounds(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func fillRect(img *image.RGBA, rect image.Rectangle, col color.RGBA) {
	r := rect.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}

// drawLine is Bresenham's algorithm clipped to the image.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		if image.Pt(x0, y0).In(img.Bounds()) {
			img.SetRGBA(x0, y0, col)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
