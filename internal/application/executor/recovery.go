package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/areebasiddiqi/triarb/internal/domain"
)

// finishPartial handles the critical failure mode: a leg failed while funds
// may sit in an intermediate currency instead of the base. Policy: one
// best-effort unwind trade back to the base at current market price (not a
// retry of the failed leg), reported whether it succeeds or not. It is also
// the landing spot for any leg whose fill state stayed unknown, including
// leg 1, where no unwind is attempted at all.
func (e *Engine) finishPartial(ctx context.Context, rec *domain.TradeRecord, path domain.Path, legsDone int, held float64, legErr error) {
	rec.Status = domain.TradePartial
	rec.LegsExecuted = legsDone
	rec.Error = legErr.Error()

	// A timed-out leg with an inconclusive reconciliation means we do not
	// even know which currency we hold. Guessing an unwind here could
	// double-convert; leave the position for manual review instead.
	var unknown *domain.UnknownFillStateError
	if errors.As(legErr, &unknown) {
		slog.Error("exec: unknown fill state, manual review required",
			"path", rec.PathID,
			"legs_done", legsDone,
			"err", legErr,
		)
		return
	}

	unwind := unwindLeg(path, legsDone)
	slog.Warn("exec: partial failure, unwinding to base",
		"path", rec.PathID,
		"legs_done", legsDone,
		"held_currency", unwind.From,
		"held_amount", fmt.Sprintf("%.8f", held),
	)

	res, err := e.submitLeg(ctx, unwind, held)
	if err != nil {
		// Failed recovery is reported, never silently dropped: the
		// intermediate position is still open.
		rec.Error = fmt.Sprintf("%v; recovery failed: %v", legErr, err)
		slog.Error("exec: recovery trade failed, position left open",
			"path", rec.PathID,
			"held_currency", unwind.From,
			"err", err,
		)
		return
	}

	rec.FinalAmount = res.FilledAmount
	slog.Info("exec: recovery trade filled",
		"path", rec.PathID,
		"recovered", fmt.Sprintf("%.4f", res.FilledAmount),
	)
}

// unwindLeg resolves the single conversion that moves the currently held
// currency back to the base. After a leg-2 failure that is the reverse of
// leg 1; after a leg-3 failure the held currency's route home is the leg-3
// market itself, traded fresh at current price.
func unwindLeg(path domain.Path, legsDone int) domain.Leg {
	if legsDone == 1 {
		return path.Legs[0].Reverse()
	}
	return path.Legs[2]
}
