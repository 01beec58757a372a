// Package tradelog keeps an append-only JSON-lines journal of every decision
// and every submitted order, one file per day.
package tradelog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"crypto-autotrade/internal/interfaces"
	"crypto-autotrade/internal/types"
)

const (
	dayLayout = "2006-01-02"
	ext       = ".jsonl"

	EventDecision = "decision"
	EventOrder    = "order"
)

// OrderEntry is one submitted order, successful or not.
type OrderEntry struct {
	Ticker     string  `json:"ticker"`
	Side       string  `json:"side"`
	Ratio      float64 `json:"ratio"`
	Notional   float64 `json:"notional"`
	Quantity   float64 `json:"quantity"`
	Price      float64 `json:"price"`
	OrderID    string  `json:"order_id"`
	Status     string  `json:"status"`
	Error      string  `json:"error,omitempty"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// DecisionEntry is one cycle's trade intent together with the plan it produced.
type DecisionEntry struct {
	Ticker     string  `json:"ticker"`
	Decision   string  `json:"decision"`
	Confidence float64 `json:"confidence"`
	RiskLevel  string  `json:"risk_level"`
	Reason     string  `json:"reason"`
	Price      float64 `json:"price"`
	Sentiment  *int    `json:"sentiment,omitempty"`
	Side       string  `json:"side"`
	SkipReason string  `json:"skip_reason,omitempty"`
}

// Journal writes decisions to <dir>/decisions/<day>.jsonl and orders to
// <dir>/<day>.jsonl. Days are cut in loc.
type Journal struct {
	dir string
	loc *time.Location
	now func() time.Time

	orderSink    *dailySink
	decisionSink *dailySink
	orders       *zap.Logger
	decisions    *zap.Logger
}

var _ interfaces.Recorder = (*Journal)(nil)

func New(dir string, loc *time.Location) *Journal {
	return newWithClock(dir, loc, time.Now)
}

func newWithClock(dir string, loc *time.Location, now func() time.Time) *Journal {
	if loc == nil {
		loc = time.UTC
	}
	j := &Journal{dir: dir, loc: loc, now: now}
	j.orderSink = &dailySink{path: j.OrdersPath, now: j.localNow}
	j.decisionSink = &dailySink{path: j.DecisionsPath, now: j.localNow}
	j.orders = newJSONLogger(j.orderSink, j.localNow)
	j.decisions = newJSONLogger(j.decisionSink, j.localNow)
	return j
}

func newJSONLogger(sink zapcore.WriteSyncer, now func() time.Time) *zap.Logger {
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "time",
		MessageKey:     "event",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	})
	core := zapcore.NewCore(enc, sink, zapcore.InfoLevel)
	return zap.New(core, zap.WithClock(clock(now)))
}

func (j *Journal) localNow() time.Time { return j.now().In(j.loc) }

func (j *Journal) Dir() string { return j.dir }

func (j *Journal) Location() *time.Location { return j.loc }

func (j *Journal) OrdersPath(day time.Time) string {
	return filepath.Join(j.dir, day.In(j.loc).Format(dayLayout)+ext)
}

func (j *Journal) DecisionsPath(day time.Time) string {
	return filepath.Join(j.dir, "decisions", day.In(j.loc).Format(dayLayout)+ext)
}

func (j *Journal) AppendOrder(e OrderEntry) error {
	j.orders.Info(EventOrder,
		zap.String("ticker", e.Ticker),
		zap.String("side", e.Side),
		zap.Float64("ratio", e.Ratio),
		zap.Float64("notional", e.Notional),
		zap.Float64("quantity", e.Quantity),
		zap.Float64("price", e.Price),
		zap.String("order_id", e.OrderID),
		zap.String("status", e.Status),
		zap.String("error", e.Error),
		zap.Float64("confidence", e.Confidence),
		zap.String("reason", e.Reason),
	)
	return j.orderSink.lastErr()
}

func (j *Journal) AppendDecision(e DecisionEntry) error {
	fields := []zap.Field{
		zap.String("ticker", e.Ticker),
		zap.String("decision", e.Decision),
		zap.Float64("confidence", e.Confidence),
		zap.String("risk_level", e.RiskLevel),
		zap.String("reason", e.Reason),
		zap.Float64("price", e.Price),
		zap.String("side", e.Side),
	}
	if e.Sentiment != nil {
		fields = append(fields, zap.Int("sentiment", *e.Sentiment))
	}
	if e.SkipReason != "" {
		fields = append(fields, zap.String("skip_reason", e.SkipReason))
	}
	j.decisions.Info(EventDecision, fields...)
	return j.decisionSink.lastErr()
}

// RecordCycle journals the decision and, when one was attempted, the order.
func (j *Journal) RecordCycle(ctx context.Context, res *types.CycleResult) error {
	if err := j.AppendDecision(DecisionEntry{
		Ticker:     res.Ticker,
		Decision:   string(res.Intent.Decision),
		Confidence: res.Intent.ConfidenceScore,
		RiskLevel:  string(res.Intent.RiskLevel),
		Reason:     res.Intent.Reason,
		Price:      res.Account.CurrentPrice,
		Sentiment:  res.Sentiment,
		Side:       string(res.Plan.Side),
		SkipReason: res.Plan.SkipReason,
	}); err != nil {
		return fmt.Errorf("journal decision: %w", err)
	}
	if res.Plan.IsSkip() {
		return nil
	}

	e := OrderEntry{
		Ticker:     res.Ticker,
		Side:       string(res.Plan.Side),
		Ratio:      res.Plan.Ratio,
		Notional:   res.Plan.Notional,
		Quantity:   res.Plan.Quantity,
		Price:      res.Account.CurrentPrice,
		Error:      res.OrderError,
		Confidence: res.Intent.ConfidenceScore,
		Reason:     res.Intent.Reason,
	}
	if res.Order != nil {
		e.OrderID = res.Order.OrderID
		e.Status = res.Order.Status
	} else {
		e.Status = "FAILED"
	}
	if err := j.AppendOrder(e); err != nil {
		return fmt.Errorf("journal order: %w", err)
	}
	return nil
}

func (j *Journal) Close() error {
	_ = j.orders.Sync()
	_ = j.decisions.Sync()
	return errors.Join(j.orderSink.Close(), j.decisionSink.Close())
}

// dailySink is a WriteSyncer that reopens its file whenever the day changes.
type dailySink struct {
	path func(time.Time) string
	now  func() time.Time

	mu      sync.Mutex
	current string
	f       *os.File
	err     error
}

func (s *dailySink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(s.now())
	if s.f == nil || path != s.current {
		if s.f != nil {
			_ = s.f.Close()
			s.f = nil
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			s.err = err
			return 0, err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			s.err = err
			return 0, err
		}
		s.f, s.current = f, path
	}
	n, err := s.f.Write(p)
	s.err = err
	return n, err
}

func (s *dailySink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	return s.f.Sync()
}

func (s *dailySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// lastErr reports the outcome of the most recent write; zap itself swallows it.
func (s *dailySink) lastErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

type clock func() time.Time

func (c clock) Now() time.Time                         { return c() }
func (c clock) NewTicker(d time.Duration) *time.Ticker { return time.NewTicker(d) }
