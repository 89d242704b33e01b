package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areebasiddiqi/triarb/internal/domain"
)

// trianglePath builds USDT->a->b->USDT over synthetic symbols.
func trianglePath(a, b string) domain.Path {
	return domain.Path{
		Base: "USDT",
		Legs: [3]domain.Leg{
			{From: "USDT", To: a, Symbol: a + "USDT", Side: domain.SideBuy},
			{From: a, To: b, Symbol: b + a, Side: domain.SideBuy},
			{From: b, To: "USDT", Symbol: b + "USDT", Side: domain.SideSell},
		},
	}
}

// snapshotWithMultiplier quotes a triangle so its gross cycle multiplier is
// exactly m (before fees), using unit prices on the first two legs.
func snapshotWithMultiplier(a, b string, m float64, fee float64) []domain.Market {
	return []domain.Market{
		{Symbol: a + "USDT", Bid: 1, Ask: 1, TakerFeeRate: fee},
		{Symbol: b + a, Bid: 1, Ask: 1, TakerFeeRate: fee},
		{Symbol: b + "USDT", Bid: m, Ask: m * 1.0001, TakerFeeRate: fee},
	}
}

func TestDetector_FiltersBelowThreshold(t *testing.T) {
	catalog := []domain.Path{
		trianglePath("BTC", "ETH"), // +2% gross
		trianglePath("BNB", "SOL"), // +0.1% gross, below threshold after fees
	}
	markets := append(
		snapshotWithMultiplier("BTC", "ETH", 1.02, 0),
		snapshotWithMultiplier("BNB", "SOL", 1.001, 0)...,
	)
	snap := domain.NewSnapshot(markets, time.Now().UTC())

	d := NewDetector(catalog, 100, 0.5, 1)
	opps := d.Scan(snap)

	require.Len(t, opps, 1)
	assert.Equal(t, "USDT->BTC->ETH->USDT", opps[0].Path.ID())
	assert.InDelta(t, 2.0, opps[0].ProfitPct, 1e-9)
}

func TestDetector_SortsByProfitDescending(t *testing.T) {
	catalog := []domain.Path{
		trianglePath("BNB", "SOL"), // +1%
		trianglePath("BTC", "ETH"), // +3%
		trianglePath("ADA", "DOT"), // +2%
	}
	markets := append(snapshotWithMultiplier("BNB", "SOL", 1.01, 0),
		snapshotWithMultiplier("BTC", "ETH", 1.03, 0)...)
	markets = append(markets, snapshotWithMultiplier("ADA", "DOT", 1.02, 0)...)
	snap := domain.NewSnapshot(markets, time.Now().UTC())

	d := NewDetector(catalog, 100, 0.5, 4)
	opps := d.Scan(snap)

	require.Len(t, opps, 3)
	assert.Equal(t, "USDT->BTC->ETH->USDT", opps[0].Path.ID())
	assert.Equal(t, "USDT->ADA->DOT->USDT", opps[1].Path.ID())
	assert.Equal(t, "USDT->BNB->SOL->USDT", opps[2].Path.ID())
}

func TestDetector_DeterministicAcrossRuns(t *testing.T) {
	catalog := []domain.Path{
		trianglePath("BTC", "ETH"),
		trianglePath("BNB", "SOL"),
		trianglePath("ADA", "DOT"),
	}
	markets := append(snapshotWithMultiplier("BTC", "ETH", 1.015, 0.001),
		snapshotWithMultiplier("BNB", "SOL", 1.015, 0.001)...)
	markets = append(markets, snapshotWithMultiplier("ADA", "DOT", 1.015, 0.001)...)
	snap := domain.NewSnapshot(markets, time.Now().UTC())

	d := NewDetector(catalog, 100, 0.5, 3)

	first := d.Scan(snap)
	require.NotEmpty(t, first)
	for n := 0; n < 20; n++ {
		again := d.Scan(snap)
		require.Len(t, again, len(first))
		for i := range first {
			// Equal profits tie-break by catalog order every run.
			assert.Equal(t, first[i].Path.ID(), again[i].Path.ID())
		}
	}
}

func TestDetector_SkipsStalePaths(t *testing.T) {
	catalog := []domain.Path{
		trianglePath("BTC", "ETH"),
		trianglePath("BNB", "SOL"),
	}
	// Only the first triangle is quoted.
	snap := domain.NewSnapshot(snapshotWithMultiplier("BTC", "ETH", 1.02, 0), time.Now().UTC())

	d := NewDetector(catalog, 100, 0.5, 2)
	opps := d.Scan(snap)

	require.Len(t, opps, 1)
	assert.Equal(t, "USDT->BTC->ETH->USDT", opps[0].Path.ID())
}

func TestDetector_Symbols(t *testing.T) {
	catalog := []domain.Path{
		trianglePath("BTC", "ETH"),
		trianglePath("BTC", "BNB"),
	}
	d := NewDetector(catalog, 100, 0.5, 1)

	symbols := d.Symbols()
	assert.ElementsMatch(t, []string{
		"BTCUSDT", "ETHBTC", "ETHUSDT", "BNBBTC", "BNBUSDT",
	}, symbols)
}
