package ports

import (
	"context"

	"github.com/areebasiddiqi/triarb/internal/domain"
)

// ExchangeClient is the single-exchange connectivity collaborator. It owns
// authentication, rate limiting and lot-size validation; the core assumes an
// order either fills, is rejected, or times out.
type ExchangeClient interface {
	// FetchMarkets returns the tradable pair definitions (symbol, base,
	// quote, taker fee). Called once at startup to build the path catalog.
	FetchMarkets(ctx context.Context) ([]domain.Market, error)

	// FetchSnapshot returns top-of-book quotes for the given symbols.
	// Fails with *domain.ConnectivityError on network or auth trouble.
	FetchSnapshot(ctx context.Context, symbols []string) (domain.Snapshot, error)

	// SubmitOrder executes a market order converting amount units of the
	// leg's From currency and blocks for a terminal result within the
	// context deadline. FilledAmount is denominated in the To currency.
	// Fails with *domain.OrderError on rejection and *domain.OrderTimeoutError
	// when no terminal result arrived in time.
	SubmitOrder(ctx context.Context, leg domain.Leg, amount float64) (domain.OrderResult, error)

	// Reconcile queries the current state of a previously submitted order,
	// used after a timeout to learn its true outcome.
	Reconcile(ctx context.Context, symbol, orderID string) (domain.OrderResult, error)
}
