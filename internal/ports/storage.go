package ports

import (
	"context"
	"time"

	"github.com/areebasiddiqi/triarb/internal/domain"
)

// Storage persists the trade log, daily summaries and risk state.
type Storage interface {
	// SaveTrade appends a terminal trade record and folds it into the
	// day's summary.
	SaveTrade(ctx context.Context, rec domain.TradeRecord) error

	// GetTrades returns records completed in the given time range,
	// newest first.
	GetTrades(ctx context.Context, from, to time.Time) ([]domain.TradeRecord, error)

	// GetStats aggregates performance over the last N days.
	GetStats(ctx context.Context, days int) (domain.Stats, error)

	// SaveRiskState persists the risk counters so cooldowns and the
	// loss streak survive a restart.
	SaveRiskState(ctx context.Context, state domain.RiskState) error

	// LoadRiskState restores previously saved counters. Returns a fresh
	// state when none was saved yet.
	LoadRiskState(ctx context.Context) (domain.RiskState, error)

	// Close closes the underlying database cleanly.
	Close() error
}
