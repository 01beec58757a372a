package llmobs

import (
	"context"
	"time"

	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/logger"
	"crypto-autotrade/internal/trace"
)

// observableOracle wraps an Oracle with observability (logging & tracing)
type observableOracle struct {
	oracle   interfaces.Oracle
	provider string
}

// Compile-time interface check
var _ interfaces.Oracle = (*observableOracle)(nil)

// Wrap wraps an oracle with observability middleware
func Wrap(oracle interfaces.Oracle, provider string) interfaces.Oracle {
	return &observableOracle{oracle: oracle, provider: provider}
}

func (oo *observableOracle) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Complete")
	defer span.End()

	// Use DebugSkip(1) to report the actual caller, not this middleware wrapper
	logger.DebugSkip(ctx, 1, "Requesting completion",
		"provider", oo.provider,
		"prompt_length", len(user),
	)

	start := time.Now()
	out, err := oo.oracle.Complete(ctx, system, user)
	latency := time.Since(start)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Completion failed", err,
			"provider", oo.provider,
			"latency_ms", latency.Milliseconds(),
		)
		return "", err
	}

	logger.InfoSkip(ctx, 1, "Completion received",
		"provider", oo.provider,
		"response_length", len(out),
		"latency_ms", latency.Milliseconds(),
	)
	return out, nil
}
