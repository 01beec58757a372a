package noop

import (
	"context"

	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/logger"
)

// Response always decodes to a zero-confidence hold.
const Response = `{"decision":"hold","reason":"noop_oracle_fallback","risk_level":"low","confidence_score":0}`

// Oracle is the fallback used when no LLM provider is configured.
type Oracle struct{}

var _ interfaces.Oracle = Oracle{}

func New() Oracle { return Oracle{} }

func (Oracle) Complete(ctx context.Context, system, user string) (string, error) {
	logger.Debug(ctx, "Noop oracle called - always returns hold")
	return Response, nil
}
