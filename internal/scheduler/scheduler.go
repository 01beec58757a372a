// Package scheduler runs the periodic housekeeping jobs next to the trading loop.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"crypto-autotrade/internal/eod"
	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/logger"
)

type Compressor interface {
	CompressOlder(retentionDays int) (int, error)
}

type Sender interface {
	Send(ctx context.Context, text string) error
}

// Scheduler manages the cron tasks.
type Scheduler struct {
	Cron       *cron.Cron
	journal    Compressor
	summarizer interfaces.EodSummarizer
	sender     Sender
	ticker     string
	retention  int
	now        func() time.Time
	ctx        context.Context
}

func New(ctx context.Context, loc *time.Location, journal Compressor, summarizer interfaces.EodSummarizer, sender Sender, ticker string, retentionDays int) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		Cron:       cron.New(cron.WithLocation(loc)),
		journal:    journal,
		summarizer: summarizer,
		sender:     sender,
		ticker:     ticker,
		retention:  retentionDays,
		now:        func() time.Time { return time.Now().In(loc) },
		ctx:        ctx,
	}
}

// RegisterAll registers journal compression and the daily summary.
func (s *Scheduler) RegisterAll(housekeepingCron, summaryCron string) error {
	if _, err := s.Cron.AddFunc(housekeepingCron, s.compressTask); err != nil {
		return fmt.Errorf("register housekeeping task: %w", err)
	}
	if _, err := s.Cron.AddFunc(summaryCron, s.summaryTask); err != nil {
		return fmt.Errorf("register summary task: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Info(s.ctx, "Scheduler started", "jobs", len(s.Cron.Entries()))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.Info(s.ctx, "Scheduler stopped")
}

func (s *Scheduler) compressTask() {
	n, err := s.journal.CompressOlder(s.retention)
	if err != nil {
		logger.ErrorWithErr(s.ctx, "Journal compression failed", err)
		return
	}
	logger.Info(s.ctx, "Journal compression finished", "files", n, "retention_days", s.retention)
}

func (s *Scheduler) summaryTask() {
	sum, err := s.summarizer.SummarizeDay(s.ctx, s.now())
	if err != nil {
		s.trySend(fmt.Sprintf("❌ Daily summary failed: %v", err))
		return
	}
	s.trySend(eod.Format(s.ticker, sum))
}

func (s *Scheduler) trySend(text string) {
	if s.sender == nil {
		return
	}
	if err := s.sender.Send(s.ctx, text); err != nil {
		logger.ErrorWithErr(s.ctx, "Send daily summary failed", err)
	}
}
