package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/areebasiddiqi/triarb/internal/application/risk"
	"github.com/areebasiddiqi/triarb/internal/domain"
	"github.com/areebasiddiqi/triarb/internal/ports"
)

// Executor is the minimal surface the scanner needs from the execution
// engine. Decouples the loop from *executor.Engine for tests.
type Executor interface {
	Execute(ctx context.Context, opp domain.Opportunity, amount float64) domain.TradeRecord
}

// Config controls the scan loop.
type Config struct {
	ScanInterval time.Duration
	InputAmount  float64 // base currency units simulated per path

	// MinProfitForAlertPct gates what reaches the notifier; it is
	// independent of the detector's own threshold.
	MinProfitForAlertPct float64

	// EnableTrading gates the execution engine entirely. When false only
	// detection and alerting run.
	EnableTrading bool

	// Once runs a single cycle and returns (CLI -once flag).
	Once bool
}

// Scanner is the scheduler driving the whole pipeline on a fixed interval.
// Ticks are independent: an execution still in flight from a previous tick
// never delays the next snapshot, and the busy path is kept out of a second
// execution by the risk manager's cooldown stamp.
type Scanner struct {
	cfg      Config
	exchange ports.ExchangeClient
	detector *Detector
	risk     *risk.Manager
	executor Executor
	notifier ports.Notifier
	store    ports.Storage

	inflight sync.WaitGroup
}

// New wires a Scanner with all dependencies injected.
func New(
	cfg Config,
	exchange ports.ExchangeClient,
	detector *Detector,
	riskMgr *risk.Manager,
	exec Executor,
	notifier ports.Notifier,
	store ports.Storage,
) *Scanner {
	return &Scanner{
		cfg:      cfg,
		exchange: exchange,
		detector: detector,
		risk:     riskMgr,
		executor: exec,
		notifier: notifier,
		store:    store,
	}
}

// Run executes the scan loop until the context is cancelled, then waits for
// any in-flight execution to reach a terminal state before returning; an
// order already at the exchange must never exit the process unrecorded.
func (s *Scanner) Run(ctx context.Context) error {
	slog.Info("scanner starting",
		"interval", s.cfg.ScanInterval,
		"paths", s.detector.CatalogSize(),
		"trading", s.cfg.EnableTrading,
		"once", s.cfg.Once,
	)

	if err := s.runCycle(ctx); err != nil {
		slog.Error("scan cycle failed", "err", err)
		if s.cfg.Once {
			return err
		}
	}

	if !s.cfg.Once {
		ticker := time.NewTicker(s.cfg.ScanInterval)
		defer ticker.Stop()

	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case <-ticker.C:
				if err := s.runCycle(ctx); err != nil {
					slog.Error("scan cycle failed", "err", err)
				}
			}
		}
	}

	slog.Info("scanner stopping, waiting for in-flight executions")
	s.inflight.Wait()
	s.persistRiskState(context.WithoutCancel(ctx))
	slog.Info("scanner stopped")
	return nil
}

// RunOnce executes exactly one cycle and waits for any execution it started.
func (s *Scanner) RunOnce(ctx context.Context) error {
	err := s.runCycle(ctx)
	s.inflight.Wait()
	return err
}

// runCycle performs one tick: snapshot → detect → alert → approve → execute.
// Connectivity failures skip the tick; the loop keeps going.
func (s *Scanner) runCycle(ctx context.Context) error {
	start := time.Now()

	snap, err := s.exchange.FetchSnapshot(ctx, s.detector.Symbols())
	if err != nil {
		var connErr *domain.ConnectivityError
		if errors.As(err, &connErr) {
			slog.Warn("snapshot fetch failed, skipping tick", "err", err)
			return nil
		}
		return fmt.Errorf("scanner.runCycle: fetch snapshot: %w", err)
	}

	opps := s.detector.Scan(snap)
	s.alert(ctx, opps)

	executed := 0
	if s.cfg.EnableTrading {
		executed = s.dispatch(ctx, opps)
	}

	slog.Info("scan cycle complete",
		"opportunities", len(opps),
		"executed", executed,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// dispatch pushes approved opportunities into the executor, one goroutine per
// path. Serialization per path is the risk manager's cooldown stamp, set at
// execution start, so a busy path simply fails approval here.
func (s *Scanner) dispatch(ctx context.Context, opps []domain.Opportunity) int {
	started := 0
	for _, opp := range opps {
		dec := s.risk.Approve(opp)
		if !dec.Approved {
			slog.Debug("risk rejected opportunity",
				"path", opp.Path.ID(),
				"reason", string(dec.Reason),
			)
			continue
		}

		started++
		s.inflight.Add(1)
		// Detached from the scan context: cancelling a tick (or shutting
		// down) must not abandon an order mid-leg.
		execCtx := context.WithoutCancel(ctx)
		go func(opp domain.Opportunity, amount float64) {
			defer s.inflight.Done()
			rec := s.executor.Execute(execCtx, opp, amount)
			s.record(execCtx, rec)
		}(opp, dec.Amount)
	}
	return started
}

// record persists and announces one terminal trade record. Both sinks are
// best-effort: a storage or notifier failure is logged, never propagated.
func (s *Scanner) record(ctx context.Context, rec domain.TradeRecord) {
	if s.store != nil {
		if err := s.store.SaveTrade(ctx, rec); err != nil {
			slog.Warn("storage error saving trade", "trade", rec.ID, "err", err)
		}
	}
	if err := s.notifier.NotifyTrade(ctx, rec); err != nil {
		slog.Warn("notifier error for trade", "trade", rec.ID, "err", err)
	}
	s.persistRiskState(ctx)
}

// alert forwards opportunities above the alert threshold. Fire-and-forget.
// The list goes out even when empty: each sink decides for itself whether a
// quiet cycle is worth reporting.
func (s *Scanner) alert(ctx context.Context, opps []domain.Opportunity) {
	var alertable []domain.Opportunity
	for _, opp := range opps {
		if opp.ProfitPct >= s.cfg.MinProfitForAlertPct {
			alertable = append(alertable, opp)
		}
	}
	if err := s.notifier.NotifyOpportunities(ctx, alertable); err != nil {
		slog.Warn("notifier error", "err", err)
	}
}

// persistRiskState saves the current counters so a restart keeps cooldowns
// and the loss streak.
func (s *Scanner) persistRiskState(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveRiskState(ctx, s.risk.Snapshot()); err != nil {
		slog.Warn("storage error saving risk state", "err", err)
	}
}
