// Package engine runs trading cycles: snapshot, decision, order.
package engine

import (
	"context"
	"errors"
	"time"

	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/logger"
	"crypto-autotrade/internal/types"
)

// Assembler builds the per-cycle market snapshot.
type Assembler interface {
	Build(ctx context.Context) (types.MarketSnapshot, error)
}

// Planner sizes an intent into an order and submits it at most once.
type Planner interface {
	PlanAndExecute(ctx context.Context, intent types.TradeIntent, snap types.MarketSnapshot) (types.OrderPlan, *types.OrderResp, error)
}

type Engine struct {
	ticker    string
	assembler Assembler
	decider   interfaces.Decider
	planner   Planner
	recorders []interfaces.Recorder
	notifier  interfaces.Notifier
	now       func() time.Time
}

var _ interfaces.Engine = (*Engine)(nil)

type Option func(*Engine)

// WithRecorders adds sinks that receive every completed cycle.
func WithRecorders(rs ...interfaces.Recorder) Option {
	return func(e *Engine) { e.recorders = append(e.recorders, rs...) }
}

func WithNotifier(n interfaces.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func New(ticker string, assembler Assembler, decider interfaces.Decider, planner Planner, opts ...Option) *Engine {
	e := &Engine{
		ticker:    ticker,
		assembler: assembler,
		decider:   decider,
		planner:   planner,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cycle runs one snapshot -> decision -> order pass. Snapshot and decision
// failures fail the cycle. A rejected order does not: it is reported in
// CycleResult.OrderError and the cycle completes.
func (e *Engine) Cycle(ctx context.Context) (*types.CycleResult, error) {
	res := &types.CycleResult{Ticker: e.ticker, StartedAt: e.now()}

	snap, err := e.assembler.Build(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "Snapshot assembly failed", err, "ticker", e.ticker)
		return e.fail(ctx, res, err)
	}
	res.Account = snap.Account
	res.Degraded = snap.Degraded
	if v, ok := snap.SentimentValue(); ok {
		res.Sentiment = &v
	}

	intent, err := e.decider.Decide(ctx, snap)
	if err != nil {
		logger.ErrorWithErr(ctx, "Decision failed", err, "ticker", e.ticker)
		return e.fail(ctx, res, err)
	}
	res.Intent = intent

	plan, order, err := e.planner.PlanAndExecute(ctx, intent, snap)
	res.Plan = plan
	res.Order = order
	if err != nil {
		var subErr *types.OrderSubmissionError
		if !errors.As(err, &subErr) {
			return e.fail(ctx, res, err)
		}
		res.OrderError = subErr.Err.Error()
	}

	res.FinishedAt = e.now()
	e.report(ctx, res, nil)
	return res, nil
}

func (e *Engine) fail(ctx context.Context, res *types.CycleResult, err error) (*types.CycleResult, error) {
	res.FinishedAt = e.now()
	e.report(ctx, res, err)
	return res, err
}

// report fans the outcome out to the recorders and the notifier. Their
// failures are logged and never change the cycle outcome.
func (e *Engine) report(ctx context.Context, res *types.CycleResult, cycleErr error) {
	if cycleErr == nil {
		for _, r := range e.recorders {
			if err := r.RecordCycle(ctx, res); err != nil {
				logger.ErrorWithErr(ctx, "Recording cycle failed", err, "ticker", e.ticker)
			}
		}
	}
	if e.notifier != nil {
		if err := e.notifier.NotifyCycle(ctx, res, cycleErr); err != nil {
			logger.Warn(ctx, "Cycle notification failed", "ticker", e.ticker, "error", err.Error())
		}
	}
}
