package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/logger"
	"crypto-autotrade/internal/types"
)

type LoopConfig struct {
	Interval time.Duration
	Backoff  time.Duration

	// MaxConsecutiveFailures of 0 keeps the fixed backoff forever. Otherwise
	// reaching it switches to EscalatedBackoff until the next success.
	MaxConsecutiveFailures int
	EscalatedBackoff       time.Duration
}

// Loop drives the engine on a fixed cadence.
type Loop struct {
	engine interfaces.Engine
	cfg    LoopConfig
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time

	mu    sync.RWMutex
	last  *types.CycleResult
	stats types.LoopStats
}

func NewLoop(engine interfaces.Engine, cfg LoopConfig) *Loop {
	return &Loop{
		engine: engine,
		cfg:    cfg,
		sleep:  sleepCtx,
		now:    time.Now,
	}
}

// Run blocks until ctx is cancelled. Cancellation is only observed between
// cycles; a cycle in progress runs to completion.
func (l *Loop) Run(ctx context.Context) error {
	logger.Info(ctx, "Run loop started",
		"interval", l.cfg.Interval.String(),
		"backoff", l.cfg.Backoff.String(),
		"max_consecutive_failures", l.cfg.MaxConsecutiveFailures,
	)
	for {
		if ctx.Err() != nil {
			logger.Info(ctx, "Run loop stopped", "cycles", l.Stats().Cycles)
			return nil
		}

		delay := l.RunOnce(context.WithoutCancel(ctx))

		if err := l.sleep(ctx, delay); err != nil {
			logger.Info(ctx, "Run loop stopped", "cycles", l.Stats().Cycles)
			return nil
		}
	}
}

// RunOnce runs a single cycle, updates the counters and returns the delay
// before the next one.
func (l *Loop) RunOnce(ctx context.Context) time.Duration {
	res, err := l.safeCycle(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.stats.Cycles++
	l.stats.LastCycleAt = l.now()
	if res != nil {
		l.last = res
	}

	var delay time.Duration
	if err == nil {
		l.stats.ConsecutiveFailures = 0
		l.stats.LastError = ""
		l.stats.Escalated = false
		delay = l.cfg.Interval
	} else {
		l.stats.Failures++
		l.stats.ConsecutiveFailures++
		l.stats.LastError = err.Error()
		delay = l.cfg.Backoff
		if l.cfg.MaxConsecutiveFailures > 0 && l.stats.ConsecutiveFailures >= l.cfg.MaxConsecutiveFailures {
			delay = l.cfg.EscalatedBackoff
			if !l.stats.Escalated {
				logger.Warn(ctx, "Backoff escalated",
					"event", "BACKOFF_ESCALATED",
					"consecutive_failures", l.stats.ConsecutiveFailures,
					"backoff", delay.String(),
				)
			}
			l.stats.Escalated = true
		}
		logger.Warn(ctx, "Cycle failed, backing off",
			"consecutive_failures", l.stats.ConsecutiveFailures,
			"backoff", delay.String(),
			"error", err.Error(),
		)
	}
	l.stats.NextCycleAt = l.stats.LastCycleAt.Add(delay)
	return delay
}

// safeCycle turns a panic inside a cycle into a cycle failure.
func (l *Loop) safeCycle(ctx context.Context) (res *types.CycleResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
			logger.Error(ctx, "Recovered from cycle panic", "panic", fmt.Sprint(r))
		}
	}()
	return l.engine.Cycle(ctx)
}

func (l *Loop) LastResult() *types.CycleResult {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last
}

func (l *Loop) Stats() types.LoopStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
