// Package eod builds the end-of-day summary from the trade journal.
package eod

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/tradelog"
	"crypto-autotrade/internal/types"
)

type eodSummarizer struct {
	journal *tradelog.Journal
}

var _ interfaces.EodSummarizer = (*eodSummarizer)(nil)

func NewSummarizer(journal *tradelog.Journal) interfaces.EodSummarizer {
	return &eodSummarizer{journal: journal}
}

func (s *eodSummarizer) csvPath(day time.Time) string {
	return filepath.Join(s.journal.Dir(), "eod", day.In(s.journal.Location()).Format("2006-01-02")+".csv")
}

// SummarizeDay aggregates day's journals and writes them to <dir>/eod/<day>.csv.
// A day without decisions yields an empty summary and no CSV.
func (s *eodSummarizer) SummarizeDay(ctx context.Context, day time.Time) (types.DaySummary, error) {
	sum := types.DaySummary{Date: day.In(s.journal.Location()).Format("2006-01-02")}

	decisions, err := s.journal.ReadDecisions(day)
	if err != nil {
		return sum, fmt.Errorf("read decisions: %w", err)
	}
	orders, err := s.journal.ReadOrders(day)
	if err != nil {
		return sum, fmt.Errorf("read orders: %w", err)
	}
	if len(decisions) == 0 && len(orders) == 0 {
		return sum, nil
	}

	var confidence float64
	for _, d := range decisions {
		sum.Cycles++
		confidence += d.Confidence
		switch types.Decision(d.Decision) {
		case types.DecisionBuy:
			sum.Buys++
		case types.DecisionSell:
			sum.Sells++
		default:
			sum.Holds++
		}
		if types.Side(d.Side) == types.SideNone {
			sum.Skipped++
		}
	}
	if sum.Cycles > 0 {
		sum.AvgConfidence = confidence / float64(sum.Cycles)
	}

	for _, o := range orders {
		if o.Error != "" || o.OrderID == "" {
			sum.OrdersFailed++
			continue
		}
		sum.OrdersPlaced++
		switch types.Side(o.Side) {
		case types.SideBuy:
			sum.BuyNotional += o.Notional
		case types.SideSell:
			sum.SellQuantity += o.Quantity
			sum.SellValue += o.Quantity * o.Price
		}
	}

	path := s.csvPath(day)
	if err := writeCSV(path, orders, sum); err != nil {
		return sum, err
	}
	sum.CSVPath = path
	return sum, nil
}

func writeCSV(path string, orders []tradelog.OrderEntry, sum types.DaySummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	headers := []string{"ticker", "side", "ratio", "notional", "quantity", "price", "order_id", "status", "error"}
	if err := w.Write(headers); err != nil {
		return err
	}
	for _, o := range orders {
		rec := []string{
			o.Ticker, o.Side,
			strconv.FormatFloat(o.Ratio, 'f', 4, 64),
			fmt.Sprintf("%.2f", o.Notional),
			strconv.FormatFloat(o.Quantity, 'f', 8, 64),
			fmt.Sprintf("%.2f", o.Price),
			o.OrderID, o.Status, o.Error,
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	_ = w.Write([]string{"TOTAL", "", "", fmt.Sprintf("%.2f", sum.BuyNotional), strconv.FormatFloat(sum.SellQuantity, 'f', 8, 64), fmt.Sprintf("%.2f", sum.SellValue), "", strconv.Itoa(sum.OrdersPlaced), strconv.Itoa(sum.OrdersFailed)})
	w.Flush()
	return w.Error()
}

// Format renders a summary as a Telegram HTML message.
func Format(ticker string, s types.DaySummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📅 <b>Daily summary</b> | %s | %s\n\n", ticker, s.Date))
	if s.Cycles == 0 && s.OrdersPlaced+s.OrdersFailed == 0 {
		b.WriteString("No cycles recorded.\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Cycles: %d (buy %d / sell %d / hold %d)\n", s.Cycles, s.Buys, s.Sells, s.Holds))
	b.WriteString(fmt.Sprintf("Skipped: %d | Avg confidence: %.1f\n", s.Skipped, s.AvgConfidence))
	b.WriteString(fmt.Sprintf("Orders: %d placed, %d failed\n", s.OrdersPlaced, s.OrdersFailed))
	if s.BuyNotional > 0 {
		b.WriteString(fmt.Sprintf("Bought: %.0f\n", s.BuyNotional))
	}
	if s.SellQuantity > 0 {
		b.WriteString(fmt.Sprintf("Sold: %.8f (≈ %.0f)\n", s.SellQuantity, s.SellValue))
	}
	return b.String()
}
