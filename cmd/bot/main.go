package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-autotrade/internal/engine"
	"crypto-autotrade/internal/handler"
	"crypto-autotrade/internal/logger"
	"crypto-autotrade/internal/store"
	"crypto-autotrade/internal/trace"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "bot: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := initializeSystem(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := trace.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to flush traces: %v\n", err)
		}
	}()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	creds := store.LoadCredentials()

	ex := initializeExchange(ctx, cfg, creds)
	oracle := initializeOracle(ctx, cfg, creds)
	enrich := initializeEnrichment(ctx, cfg, creds)

	rec, err := initializeRecorder(ctx, cfg, creds)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open cycle recorder", err, "driver", cfg.Recorder.Driver)
		return err
	}
	defer rec.Close()

	journal := initializeJournal()
	defer journal.Close()

	n := initializeNotifier(ctx, cfg, creds)

	eng := initializeEngine(cfg, ex, oracle, enrich, n, rec, journal)
	loop := engine.NewLoop(eng, engine.LoopConfig{
		Interval:               cfg.Interval(),
		Backoff:                cfg.Backoff(),
		MaxConsecutiveFailures: cfg.Loop.MaxConsecutiveFailures,
		EscalatedBackoff:       cfg.EscalatedBackoff(),
	})

	sched, err := initializeScheduler(ctx, cfg, journal, n)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to register housekeeping jobs", err)
		return err
	}
	sched.Start()
	defer sched.Stop()

	if cfg.Status.Enabled {
		router := handler.NewRouter(handler.New(loop, cfg.Ticker, cfg.Mode), "crypto-autotrade")
		go func() {
			if err := handler.Serve(ctx, cfg.Status.Addr, router); err != nil {
				logger.ErrorWithErr(ctx, "Status server stopped", err, "addr", cfg.Status.Addr)
			}
		}()
		logger.Info(ctx, "Status server listening", "addr", cfg.Status.Addr)
	}

	logger.Info(ctx, "Bot started",
		"mode", cfg.Mode,
		"exchange", cfg.Exchange,
		"ticker", cfg.Ticker,
		"provider", cfg.LLM.Provider,
	)
	err = loop.Run(ctx)
	logger.Info(context.WithoutCancel(ctx), "Shutting down", "cycles", loop.Stats().Cycles)
	return err
}
