package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areebasiddiqi/triarb/internal/domain"
)

func testConfig() Config {
	return Config{
		MaxDailyTrades:       3,
		CooldownPeriod:       5 * time.Minute,
		MaxTradeAmount:       100,
		MaxPositionSize:      250,
		MaxConsecutiveLosses: 2,
	}
}

func testOpportunity(pathID ...string) domain.Opportunity {
	to1, to2 := "BTC", "ETH"
	if len(pathID) == 2 {
		to1, to2 = pathID[0], pathID[1]
	}
	return domain.Opportunity{
		Path: domain.Path{
			Base: "USDT",
			Legs: [3]domain.Leg{
				{From: "USDT", To: to1, Symbol: to1 + "USDT", Side: domain.SideBuy},
				{From: to1, To: to2, Symbol: to2 + to1, Side: domain.SideBuy},
				{From: to2, To: "USDT", Symbol: to2 + "USDT", Side: domain.SideSell},
			},
		},
		InputAmount: 100,
		ProfitPct:   1.0,
	}
}

func record(status domain.TradeStatus, input float64) domain.TradeRecord {
	return domain.TradeRecord{
		ID:          "t-1",
		PathID:      testOpportunity().Path.ID(),
		Status:      status,
		InputAmount: input,
	}
}

// newTestManager pins the clock so cooldown and rollover checks are exact.
func newTestManager(cfg Config, at time.Time) (*Manager, *time.Time) {
	now := at
	m := New(cfg, domain.NewRiskState(now))
	m.now = func() time.Time { return now }
	return m, &now
}

func TestApprove_HappyPath(t *testing.T) {
	m, _ := newTestManager(testConfig(), time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	dec := m.Approve(testOpportunity())
	require.True(t, dec.Approved)
	assert.Equal(t, 100.0, dec.Amount)
}

func TestApprove_CapsAtMaxTradeAmount(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTradeAmount = 40
	m, _ := newTestManager(cfg, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	dec := m.Approve(testOpportunity())
	require.True(t, dec.Approved)
	assert.Equal(t, 40.0, dec.Amount)
}

func TestApprove_CapsAtRemainingPosition(t *testing.T) {
	m, _ := newTestManager(testConfig(), time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	// Two committed trades leave 50 of the 250 position budget.
	m.RecordResult(record(domain.TradeSuccess, 100))
	m.RecordResult(record(domain.TradeSuccess, 100))

	dec := m.Approve(testOpportunity())
	require.True(t, dec.Approved)
	assert.Equal(t, 50.0, dec.Amount)
}

func TestApprove_RejectsWhenPositionExhausted(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDailyTrades = 10
	m, _ := newTestManager(cfg, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	for n := 0; n < 3; n++ {
		m.RecordResult(record(domain.TradeSuccess, 100))
	}

	dec := m.Approve(testOpportunity())
	require.False(t, dec.Approved)
	assert.Equal(t, domain.ReasonExposure, dec.Reason)
}

func TestApprove_DailyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPositionSize = 10000
	m, _ := newTestManager(cfg, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	for n := 0; n < cfg.MaxDailyTrades; n++ {
		m.RecordResult(record(domain.TradeSuccess, 50))
	}

	dec := m.Approve(testOpportunity())
	require.False(t, dec.Approved)
	assert.Equal(t, domain.ReasonDailyLimit, dec.Reason)
}

func TestApprove_Cooldown(t *testing.T) {
	m, now := newTestManager(testConfig(), time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	opp := testOpportunity()

	m.MarkExecutionStart(opp.Path.ID())

	dec := m.Approve(opp)
	require.False(t, dec.Approved)
	assert.Equal(t, domain.ReasonCooldown, dec.Reason)

	// A different path is unaffected.
	other := testOpportunity("BNB", "ETH")
	assert.True(t, m.Approve(other).Approved)

	// After the cooldown window the path is eligible again.
	*now = now.Add(5*time.Minute + time.Second)
	assert.True(t, m.Approve(opp).Approved)
}

func TestApprove_ReservesDailySlotWhileInFlight(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDailyTrades = 1
	m, _ := newTestManager(cfg, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	require.True(t, m.Approve(testOpportunity()).Approved)

	// No result recorded yet, but the slot is taken.
	dec := m.Approve(testOpportunity("BNB", "ETH"))
	require.False(t, dec.Approved)
	assert.Equal(t, domain.ReasonDailyLimit, dec.Reason)

	// An aborted outcome hands the slot back without consuming it.
	m.RecordResult(record(domain.TradeAborted, 100))
	assert.True(t, m.Approve(testOpportunity("BNB", "ETH")).Approved)
}

func TestApprove_ReservesExposureWhileInFlight(t *testing.T) {
	m, _ := newTestManager(testConfig(), time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	require.Equal(t, 100.0, m.Approve(testOpportunity()).Amount)
	require.Equal(t, 100.0, m.Approve(testOpportunity("BNB", "ETH")).Amount)

	// Third approval only sees the 50 of the 250 budget not yet reserved.
	dec := m.Approve(testOpportunity("XRP", "SOL"))
	require.True(t, dec.Approved)
	assert.Equal(t, 50.0, dec.Amount)
}

func TestApprove_CircuitBreaker(t *testing.T) {
	m, _ := newTestManager(testConfig(), time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	m.RecordResult(record(domain.TradePartial, 50))
	m.RecordResult(record(domain.TradePartial, 50))

	dec := m.Approve(testOpportunity())
	require.False(t, dec.Approved)
	assert.Equal(t, domain.ReasonCircuitBreaker, dec.Reason)
}

func TestRecordResult_SuccessResetsLossStreak(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDailyTrades = 10
	cfg.MaxPositionSize = 1000
	m, _ := newTestManager(cfg, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	m.RecordResult(record(domain.TradePartial, 50))
	m.RecordResult(record(domain.TradeSuccess, 50))
	m.RecordResult(record(domain.TradePartial, 50))

	// Streak is 1, not 3: the breaker stays open.
	assert.True(t, m.Approve(testOpportunity()).Approved)
	assert.Equal(t, 1, m.Snapshot().ConsecutiveLosses)
}

func TestRecordResult_AbortedLeavesCountersUntouched(t *testing.T) {
	m, _ := newTestManager(testConfig(), time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	m.RecordResult(record(domain.TradeAborted, 100))

	state := m.Snapshot()
	assert.Equal(t, 0, state.TradesToday)
	assert.Equal(t, 0.0, state.ExposureToday)
	assert.Equal(t, 0, state.ConsecutiveLosses)
}

func TestApprove_DailyRollover(t *testing.T) {
	cfg := testConfig()
	m, now := newTestManager(cfg, time.Date(2026, 3, 1, 23, 50, 0, 0, time.UTC))

	for n := 0; n < cfg.MaxDailyTrades; n++ {
		m.RecordResult(record(domain.TradeSuccess, 80))
	}
	require.False(t, m.Approve(testOpportunity()).Approved)

	// Crossing UTC midnight resets trades and exposure.
	*now = time.Date(2026, 3, 2, 0, 5, 0, 0, time.UTC)
	dec := m.Approve(testOpportunity())
	require.True(t, dec.Approved)
	assert.Equal(t, 100.0, dec.Amount)

	state := m.Snapshot()
	assert.Equal(t, 0, state.TradesToday)
	assert.Equal(t, 0.0, state.ExposureToday)
}

func TestRollover_KeepsLossStreakAndCooldowns(t *testing.T) {
	m, now := newTestManager(testConfig(), time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC))
	opp := testOpportunity()

	m.RecordResult(record(domain.TradePartial, 50))
	m.RecordResult(record(domain.TradePartial, 50))
	m.MarkExecutionStart(opp.Path.ID())

	*now = time.Date(2026, 3, 2, 0, 1, 0, 0, time.UTC)

	// Loss streak survives the date change; only daily counters reset.
	dec := m.Approve(testOpportunity("BNB", "ETH"))
	require.False(t, dec.Approved)
	assert.Equal(t, domain.ReasonCircuitBreaker, dec.Reason)
	assert.Equal(t, 2, m.Snapshot().ConsecutiveLosses)
}
