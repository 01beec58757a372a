package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"crypto-autotrade/internal/types"
)

// FormatCycle renders a cycle outcome. A failed cycle may carry a partial result.
func FormatCycle(res *types.CycleResult, cycleErr error, now time.Time) string {
	var b strings.Builder

	ticker := "?"
	if res != nil && res.Ticker != "" {
		ticker = res.Ticker
	}
	if cycleErr != nil {
		b.WriteString(fmt.Sprintf("❌ <b>Cycle failed</b> | %s | %s\n\n", html.EscapeString(ticker), now.Format("2006-01-02 15:04")))
		b.WriteString(html.EscapeString(cycleErr.Error()))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("📊 <b>%s</b> | %s\n\n", html.EscapeString(ticker), now.Format("2006-01-02 15:04")))

	a := res.Account
	b.WriteString(fmt.Sprintf("Price: %.2f\n", a.CurrentPrice))
	b.WriteString(fmt.Sprintf("Cash: %.0f | Asset: %.8f\n", a.CashBalance, a.AssetBalance))
	b.WriteString(fmt.Sprintf("Total: %.0f", a.TotalValue))
	if a.AssetBalance > 0 && a.AvgBuyPrice > 0 {
		b.WriteString(fmt.Sprintf(" | PnL: %+.0f (%+.2f%%)", a.UnrealizedProfit, a.UnrealizedProfitPct))
	}
	b.WriteString("\n")
	if res.Sentiment != nil {
		b.WriteString(fmt.Sprintf("Fear &amp; Greed: %d\n", *res.Sentiment))
	}

	in := res.Intent
	b.WriteString(fmt.Sprintf("\n🧠 <b>%s</b> (confidence %.0f, risk %s)\n", strings.ToUpper(string(in.Decision)), in.ConfidenceScore, in.RiskLevel))
	if in.Reason != "" {
		b.WriteString(html.EscapeString(in.Reason))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case res.Plan.IsSkip():
		b.WriteString(fmt.Sprintf("⏸ Skipped: %s\n", html.EscapeString(res.Plan.SkipReason)))
	case res.OrderError != "":
		b.WriteString(fmt.Sprintf("⚠️ %s order failed: %s\n", res.Plan.Side, html.EscapeString(res.OrderError)))
	case res.Order != nil:
		b.WriteString(fmt.Sprintf("💰 %s ratio %.4f %s | order %s (%s)\n",
			res.Plan.Side, res.Plan.Ratio, planSize(res.Plan), html.EscapeString(res.Order.OrderID), html.EscapeString(res.Order.Status)))
	}

	if len(res.Degraded) > 0 {
		b.WriteString(fmt.Sprintf("\nDegraded: %s\n", html.EscapeString(strings.Join(res.Degraded, ", "))))
	}
	return b.String()
}

func planSize(p types.OrderPlan) string {
	if p.Side == types.SideBuy {
		return fmt.Sprintf("notional %.0f", p.Notional)
	}
	return fmt.Sprintf("quantity %.8f", p.Quantity)
}
