package domain

import "time"

// OrderStatus is the terminal state reported by the exchange for one order.
type OrderStatus string

const (
	OrderFilled   OrderStatus = "FILLED"
	OrderRejected OrderStatus = "REJECTED"
	OrderCanceled OrderStatus = "CANCELED"
	// OrderPending means the exchange accepted the order but a terminal
	// state is not yet known; only Reconcile may return it.
	OrderPending OrderStatus = "PENDING"
)

// OrderResult is the outcome of one order submission or reconciliation.
// FilledAmount is denominated in the leg's To currency: the amount actually
// received, which the execution engine feeds into the next leg.
type OrderResult struct {
	OrderID      string
	Status       OrderStatus
	FilledAmount float64
}

// TradeStatus classifies a finished execution attempt.
type TradeStatus string

const (
	// TradeSuccess: all three legs filled, funds returned to base currency.
	TradeSuccess TradeStatus = "success"
	// TradePartial: at least one leg committed but the cycle did not close;
	// a recovery trade was attempted (or the fill state is unknown).
	TradePartial TradeStatus = "partial"
	// TradeAborted: leg 1 never converted funds; no exposure was taken.
	TradeAborted TradeStatus = "aborted"
)

// TradeRecord is the outcome of one executed opportunity. Created exactly
// once per execution attempt when it reaches a terminal state, appended to
// the trade log, and never mutated afterward.
type TradeRecord struct {
	ID             string // uuid
	PathID         string
	Status         TradeStatus
	LegsExecuted   int // originally intended legs that committed, 0-3
	InputAmount    float64
	FinalAmount    float64 // base currency held after the attempt (incl. recovery)
	RealizedProfit float64 // FinalAmount - InputAmount; may be negative
	Error          string  // empty on success
	StartedAt      time.Time
	CompletedAt    time.Time
}

// IsLoss reports whether the attempt lost money or failed to close cleanly.
func (r TradeRecord) IsLoss() bool {
	return r.Status != TradeSuccess && r.Status != TradeAborted
}

// DailySummary aggregates trade outcomes for one calendar day.
type DailySummary struct {
	Date        time.Time
	Trades      int
	Successes   int
	Partials    int
	Aborted     int
	TotalProfit float64
}

// Stats aggregates performance over a rolling window of days.
type Stats struct {
	PeriodDays        int
	TotalTrades       int
	SuccessfulTrades  int
	TotalProfit       float64
	SuccessRate       float64 // percent
	AvgProfitPerTrade float64 // over all trades in the window
}
