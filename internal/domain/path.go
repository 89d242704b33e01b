package domain

import (
	"sort"
	"strings"
)

// Side is the direction of one leg relative to its market.
type Side string

const (
	// SideBuy converts the market's quote asset into its base asset (uses ask).
	SideBuy Side = "BUY"
	// SideSell converts the market's base asset into its quote asset (uses bid).
	SideSell Side = "SELL"
)

// Opposite returns the inverse side, used when unwinding a leg.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Leg is one directional conversion within a Path: it moves value from the
// From currency to the To currency through a single market.
type Leg struct {
	From   string
	To     string
	Symbol string // market traversed
	Side   Side
}

// Reverse returns the leg that undoes this one on the same market.
func (l Leg) Reverse() Leg {
	return Leg{From: l.To, To: l.From, Symbol: l.Symbol, Side: l.Side.Opposite()}
}

// Path is an ordered cycle of three legs through three distinct currencies,
// starting and ending at the base currency. Paths are computed once from the
// exchange's market list and reused across scans; quotes are looked up per
// scan from the current Snapshot.
type Path struct {
	Base string
	Legs [3]Leg
}

// ID returns a stable human-readable identifier, e.g. "USDT->BTC->ETH->USDT".
// Used as the cooldown key in risk state and in trade records.
func (p Path) ID() string {
	return strings.Join([]string{p.Base, p.Legs[0].To, p.Legs[1].To, p.Base}, "->")
}

// BuildPaths enumerates every triangular path reachable from the base
// currency through the given markets. A market is usable in both directions:
// selling the base for the quote is the inverse of buying the base with the
// quote. Reversed-direction duplicates of the same triangle are collapsed by
// keeping the orientation whose intermediate currencies are in lexical order.
// The result is deterministic: paths are emitted in sorted currency order.
//
// Returns ErrNoTriangularPaths if no valid triangle exists for the base.
func BuildPaths(markets []Market, base string) ([]Path, error) {
	if base == "" {
		return nil, ErrNoTriangularPaths
	}

	// Index markets by unordered currency pair.
	byPair := make(map[string]Market, len(markets))
	for _, m := range markets {
		byPair[pairKey(m.Base, m.Quote)] = m
	}

	// Currencies directly tradable against the base.
	reachable := make(map[string]bool)
	for _, m := range markets {
		switch base {
		case m.Base:
			reachable[m.Quote] = true
		case m.Quote:
			reachable[m.Base] = true
		}
	}

	currencies := make([]string, 0, len(reachable))
	for c := range reachable {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	var paths []Path
	for i, b := range currencies {
		for _, c := range currencies[i+1:] {
			// b < c by construction: one orientation per triangle.
			if _, ok := byPair[pairKey(b, c)]; !ok {
				continue
			}
			leg1, ok1 := makeLeg(byPair, base, b)
			leg2, ok2 := makeLeg(byPair, b, c)
			leg3, ok3 := makeLeg(byPair, c, base)
			if !ok1 || !ok2 || !ok3 {
				continue
			}
			paths = append(paths, Path{Base: base, Legs: [3]Leg{leg1, leg2, leg3}})
		}
	}

	if len(paths) == 0 {
		return nil, ErrNoTriangularPaths
	}
	return paths, nil
}

// SimulatePath chains the three conversions of a path over the given snapshot
// starting from input units of the base currency. Selling uses bid, buying
// uses 1/ask, and each leg is reduced by its market's taker fee, so fees
// compound multiplicatively across the cycle.
//
// Returns ok=false when any market side needed by the simulation is missing
// or zero (stale snapshot); such paths are skipped, never errored.
func SimulatePath(p Path, snap Snapshot, input float64) (output float64, ok bool) {
	amount := input
	for _, leg := range p.Legs {
		m, found := snap.Market(leg.Symbol)
		if !found {
			return 0, false
		}
		rate, usable := legRate(leg, m)
		if !usable {
			return 0, false
		}
		amount *= rate
	}
	return amount, true
}

// legRate returns the fee-adjusted conversion multiplier for one leg.
func legRate(leg Leg, m Market) (float64, bool) {
	switch leg.Side {
	case SideSell:
		if !m.HasBid() {
			return 0, false
		}
		return m.Bid * (1 - m.TakerFeeRate), true
	case SideBuy:
		if !m.HasAsk() {
			return 0, false
		}
		return (1 / m.Ask) * (1 - m.TakerFeeRate), true
	}
	return 0, false
}

// makeLeg resolves the conversion from one currency to another into a leg,
// choosing the side from the market's orientation.
func makeLeg(byPair map[string]Market, from, to string) (Leg, bool) {
	m, ok := byPair[pairKey(from, to)]
	if !ok {
		return Leg{}, false
	}
	leg := Leg{From: from, To: to, Symbol: m.Symbol}
	switch {
	case m.Base == to && m.Quote == from:
		leg.Side = SideBuy
	case m.Base == from && m.Quote == to:
		leg.Side = SideSell
	default:
		return Leg{}, false
	}
	return leg, true
}

// pairKey builds an order-independent key for a currency pair.
func pairKey(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}
