// Package executor turns an approved opportunity into three sequential market
// orders with partial-failure recovery. One Engine serves all paths; each
// Execute call owns the in-flight state for exactly one attempt.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/areebasiddiqi/triarb/internal/application/risk"
	"github.com/areebasiddiqi/triarb/internal/domain"
	"github.com/areebasiddiqi/triarb/internal/ports"
)

const defaultLegTimeout = 15 * time.Second

// Config holds execution tuning.
type Config struct {
	// LegTimeout bounds each order submission; a leg with no terminal
	// result inside this budget goes through reconciliation.
	LegTimeout time.Duration
}

// Engine executes approved opportunities leg by leg. Legs are strictly
// sequential within one attempt: leg N+1 never starts before leg N's terminal
// outcome is known. An order already handed to the exchange is never
// abandoned, so a shutdown must wait for the current leg (the scheduler
// enforces this with its in-flight wait group).
type Engine struct {
	exchange ports.ExchangeClient
	risk     *risk.Manager
	cfg      Config
}

// New creates an execution engine.
func New(exchange ports.ExchangeClient, riskMgr *risk.Manager, cfg Config) *Engine {
	if cfg.LegTimeout <= 0 {
		cfg.LegTimeout = defaultLegTimeout
	}
	return &Engine{exchange: exchange, risk: riskMgr, cfg: cfg}
}

// Execute runs one attempt for an approved opportunity with the risk-adjusted
// input amount. It always returns exactly one terminal TradeRecord and has
// already folded the outcome into the risk counters when it returns.
func (e *Engine) Execute(ctx context.Context, opp domain.Opportunity, amount float64) domain.TradeRecord {
	rec := domain.TradeRecord{
		ID:          uuid.New().String(),
		PathID:      opp.Path.ID(),
		InputAmount: amount,
		StartedAt:   time.Now().UTC(),
	}

	// Cooldown stamped at start, not completion: a second approval for
	// this path while we are in flight must bounce off it.
	e.risk.MarkExecutionStart(opp.Path.ID())

	slog.Info("exec: starting",
		"path", rec.PathID,
		"amount", fmt.Sprintf("%.4f", amount),
		"projected_pct", fmt.Sprintf("%.4f%%", opp.ProfitPct),
	)

	held := amount
	legsDone := 0
	var legErr error

	for _, leg := range opp.Path.Legs {
		res, err := e.submitLeg(ctx, leg, held)
		if err != nil {
			legErr = err
			break
		}
		// Re-price with the actual fill: the market moved between the
		// snapshot and this order, the projection is already stale.
		held = res.FilledAmount
		legsDone++
	}

	var unknown *domain.UnknownFillStateError
	switch {
	case legsDone == 3:
		rec.Status = domain.TradeSuccess
		rec.LegsExecuted = 3
		rec.FinalAmount = held
	case legsDone == 0 && !errors.As(legErr, &unknown):
		// Conclusively nothing converted: no exposure, no loss. Treated
		// as if the opportunity never existed. A first leg whose fill
		// state is unknown does not qualify: the order may have filled,
		// so it takes the partial route and counts as a loss.
		rec.Status = domain.TradeAborted
		rec.Error = legErr.Error()
	default:
		e.finishPartial(ctx, &rec, opp.Path, legsDone, held, legErr)
	}

	rec.RealizedProfit = rec.FinalAmount - rec.InputAmount
	if rec.Status == domain.TradeAborted {
		rec.RealizedProfit = 0
	}
	rec.CompletedAt = time.Now().UTC()

	e.risk.RecordResult(rec)

	slog.Info("exec: finished",
		"path", rec.PathID,
		"status", string(rec.Status),
		"legs", rec.LegsExecuted,
		"realized", fmt.Sprintf("%.4f", rec.RealizedProfit),
		"err", rec.Error,
	)
	return rec
}

// submitLeg sends one order and resolves it to a terminal outcome. Timeouts
// are not failures yet: the order may have filled despite a late
// confirmation, so the true state is reconciled before classifying.
func (e *Engine) submitLeg(ctx context.Context, leg domain.Leg, amount float64) (domain.OrderResult, error) {
	legCtx, cancel := context.WithTimeout(ctx, e.cfg.LegTimeout)
	defer cancel()

	res, err := e.exchange.SubmitOrder(legCtx, leg, amount)
	if err == nil {
		if res.Status != domain.OrderFilled {
			return res, &domain.OrderError{
				Symbol: leg.Symbol,
				Side:   leg.Side,
				Err:    fmt.Errorf("terminal status %s", res.Status),
			}
		}
		return res, nil
	}

	var timeout *domain.OrderTimeoutError
	if errors.As(err, &timeout) {
		return e.reconcileLeg(ctx, leg, timeout.OrderID)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		// Timed out before the exchange even returned an order ID:
		// there is nothing to reconcile against.
		return res, &domain.UnknownFillStateError{Symbol: leg.Symbol, Err: err}
	}
	return res, err
}

// reconcileLeg asks the exchange for the true outcome of a timed-out order.
func (e *Engine) reconcileLeg(ctx context.Context, leg domain.Leg, orderID string) (domain.OrderResult, error) {
	recCtx, cancel := context.WithTimeout(ctx, e.cfg.LegTimeout)
	defer cancel()

	res, err := e.exchange.Reconcile(recCtx, leg.Symbol, orderID)
	if err != nil {
		return res, &domain.UnknownFillStateError{Symbol: leg.Symbol, OrderID: orderID, Err: err}
	}

	switch res.Status {
	case domain.OrderFilled:
		slog.Info("exec: timed-out order turned out filled",
			"symbol", leg.Symbol, "order_id", orderID)
		return res, nil
	case domain.OrderPending:
		return res, &domain.UnknownFillStateError{
			Symbol:  leg.Symbol,
			OrderID: orderID,
			Err:     errors.New("order still pending after reconciliation"),
		}
	default:
		return res, &domain.OrderError{
			Symbol: leg.Symbol,
			Side:   leg.Side,
			Err:    fmt.Errorf("not filled, reconciled status %s", res.Status),
		}
	}
}
