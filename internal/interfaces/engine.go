package interfaces

import (
	"context"
	"time"

	"crypto-autotrade/internal/types"
)

// Engine runs one complete trading cycle.
type Engine interface {
	Cycle(ctx context.Context) (*types.CycleResult, error)
}

type Recorder interface {
	RecordCycle(ctx context.Context, res *types.CycleResult) error
	Close() error
}

type Notifier interface {
	NotifyCycle(ctx context.Context, res *types.CycleResult, cycleErr error) error
}

// EodSummarizer aggregates the journal of one day.
type EodSummarizer interface {
	SummarizeDay(ctx context.Context, day time.Time) (types.DaySummary, error)
}
