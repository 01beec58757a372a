package engineobs

import (
	"context"

	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/logger"
	"crypto-autotrade/internal/types"
)

const operation = "engine.Cycle"

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) Cycle(ctx context.Context) (*types.CycleResult, error) {
	op := logger.StartOperation(ctx, operation)
	ctx = op.GetContext()

	logger.InfoSkip(ctx, 1, "Starting trading cycle")

	result, err := oe.engine.Cycle(ctx)
	if err != nil {
		op.EndWithError(err)
		return result, err
	}

	fields := []any{
		"ticker", result.Ticker,
		"decision", string(result.Intent.Decision),
		"confidence", result.Intent.ConfidenceScore,
		"side", string(result.Plan.Side),
	}
	if result.Plan.IsSkip() {
		fields = append(fields, "skip_reason", result.Plan.SkipReason)
	}
	if result.Order != nil {
		fields = append(fields, "order_id", result.Order.OrderID)
	}
	if result.OrderError != "" {
		fields = append(fields, "order_error", result.OrderError)
	}
	if len(result.Degraded) > 0 {
		fields = append(fields, "degraded", result.Degraded)
	}
	op.End(fields...)

	return result, nil
}
