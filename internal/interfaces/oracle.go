package interfaces

import (
	"context"

	"crypto-autotrade/internal/types"
)

// Oracle is a text completion service. It returns the raw model output.
type Oracle interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// VisionOracle also accepts a PNG image alongside the prompt.
type VisionOracle interface {
	CompleteWithImage(ctx context.Context, system, prompt string, png []byte) (string, error)
}

// Decider turns a snapshot into a validated trade intent.
type Decider interface {
	Decide(ctx context.Context, snap types.MarketSnapshot) (types.TradeIntent, error)
}
