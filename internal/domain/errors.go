package domain

import (
	"errors"
	"fmt"
)

// ErrNoTriangularPaths is returned at startup when the market list yields no
// valid triangle for the configured base currency. Fatal: there is nothing
// to scan.
var ErrNoTriangularPaths = errors.New("no triangular paths for base currency")

// ConnectivityError wraps a network or auth failure talking to the exchange.
// Recoverable: the tick that hit it is skipped and the scan loop continues.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("exchange connectivity: %s: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// OrderError means the exchange conclusively rejected or canceled an order.
// Terminal for the execution attempt that submitted it; never retried
// mid-execution.
type OrderError struct {
	Symbol string
	Side   Side
	Err    error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("order %s %s: %v", e.Side, e.Symbol, e.Err)
}

func (e *OrderError) Unwrap() error { return e.Err }

// OrderTimeoutError means an order was handed to the exchange but no terminal
// result arrived within the leg's budget. Carries the client order ID so the
// engine can reconcile the order's true outcome before classifying it.
type OrderTimeoutError struct {
	Symbol  string
	OrderID string
	Err     error
}

func (e *OrderTimeoutError) Error() string {
	return fmt.Sprintf("order timeout on %s (id=%s): %v", e.Symbol, e.OrderID, e.Err)
}

func (e *OrderTimeoutError) Unwrap() error { return e.Err }

// UnknownFillStateError means a leg timed out and reconciliation could not
// determine whether it filled. Always surfaced for manual review, never
// silently resolved.
type UnknownFillStateError struct {
	Symbol  string
	OrderID string
	Err     error
}

func (e *UnknownFillStateError) Error() string {
	return fmt.Sprintf("unknown fill state on %s (id=%s): %v", e.Symbol, e.OrderID, e.Err)
}

func (e *UnknownFillStateError) Unwrap() error { return e.Err }
