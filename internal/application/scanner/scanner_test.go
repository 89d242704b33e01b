package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/areebasiddiqi/triarb/internal/application/risk"
	"github.com/areebasiddiqi/triarb/internal/domain"
)

type stubExchange struct {
	snap domain.Snapshot
	err  error
}

func (s *stubExchange) FetchMarkets(context.Context) ([]domain.Market, error) {
	return nil, nil
}

func (s *stubExchange) FetchSnapshot(context.Context, []string) (domain.Snapshot, error) {
	return s.snap, s.err
}

func (s *stubExchange) SubmitOrder(context.Context, domain.Leg, float64) (domain.OrderResult, error) {
	return domain.OrderResult{}, errors.New("not implemented")
}

func (s *stubExchange) Reconcile(context.Context, string, string) (domain.OrderResult, error) {
	return domain.OrderResult{}, errors.New("not implemented")
}

type execCall struct {
	pathID string
	amount float64
}

type stubExecutor struct {
	mu    sync.Mutex
	calls []execCall
}

func (s *stubExecutor) Execute(_ context.Context, opp domain.Opportunity, amount float64) domain.TradeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, execCall{pathID: opp.Path.ID(), amount: amount})
	return domain.TradeRecord{
		ID:           "t-" + opp.Path.ID(),
		PathID:       opp.Path.ID(),
		Status:       domain.TradeSuccess,
		LegsExecuted: 3,
		InputAmount:  amount,
		FinalAmount:  amount * 1.005,
	}
}

func (s *stubExecutor) snapshot() []execCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]execCall(nil), s.calls...)
}

type captureNotifier struct {
	mu     sync.Mutex
	opps   [][]domain.Opportunity
	trades []domain.TradeRecord
}

func (c *captureNotifier) NotifyOpportunities(_ context.Context, opps []domain.Opportunity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opps = append(c.opps, opps)
	return nil
}

func (c *captureNotifier) NotifyTrade(_ context.Context, rec domain.TradeRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trades = append(c.trades, rec)
	return nil
}

func newTestRisk() *risk.Manager {
	return risk.New(risk.Config{
		MaxDailyTrades:       10,
		CooldownPeriod:       time.Minute,
		MaxTradeAmount:       50,
		MaxPositionSize:      1000,
		MaxConsecutiveLosses: 3,
	}, domain.NewRiskState(time.Now().UTC()))
}

// profitableSetup quotes one triangle at +2% gross so it clears every
// threshold in play.
func profitableSetup() (*stubExchange, *Detector) {
	catalog := []domain.Path{trianglePath("BTC", "ETH")}
	snap := domain.NewSnapshot(snapshotWithMultiplier("BTC", "ETH", 1.02, 0), time.Now().UTC())
	detector := NewDetector(catalog, 100, 0.5, 1)
	return &stubExchange{snap: snap}, detector
}

func TestScanner_ExecutesApprovedOpportunity(t *testing.T) {
	exchange, detector := profitableSetup()
	exec := &stubExecutor{}
	notifier := &captureNotifier{}

	s := New(
		Config{InputAmount: 100, MinProfitForAlertPct: 0.5, EnableTrading: true},
		exchange, detector, newTestRisk(), exec, notifier, nil,
	)

	require.NoError(t, s.RunOnce(context.Background()))

	calls := exec.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "USDT->BTC->ETH->USDT", calls[0].pathID)
	// Risk capped the 100 input at max_trade_amount.
	assert.Equal(t, 50.0, calls[0].amount)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.opps, 1)
	require.Len(t, notifier.trades, 1)
	assert.Equal(t, domain.TradeSuccess, notifier.trades[0].Status)
}

func TestScanner_TradingDisabled_OnlyAlerts(t *testing.T) {
	exchange, detector := profitableSetup()
	exec := &stubExecutor{}
	notifier := &captureNotifier{}

	s := New(
		Config{InputAmount: 100, MinProfitForAlertPct: 0.5, EnableTrading: false},
		exchange, detector, newTestRisk(), exec, notifier, nil,
	)

	require.NoError(t, s.RunOnce(context.Background()))

	assert.Empty(t, exec.snapshot())
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.opps, 1)
	assert.Empty(t, notifier.trades)
}

func TestScanner_AlertThresholdIndependentOfExecution(t *testing.T) {
	exchange, detector := profitableSetup()
	exec := &stubExecutor{}
	notifier := &captureNotifier{}

	// Alert bar above the opportunity's +2%: nothing is announced, but the
	// trade still dispatches.
	s := New(
		Config{InputAmount: 100, MinProfitForAlertPct: 5.0, EnableTrading: true},
		exchange, detector, newTestRisk(), exec, notifier, nil,
	)

	require.NoError(t, s.RunOnce(context.Background()))

	require.Len(t, exec.snapshot(), 1)
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	// The cycle still announces itself, with nothing in it.
	require.Len(t, notifier.opps, 1)
	assert.Empty(t, notifier.opps[0])
}

func TestScanner_DailyCapHoldsWithinOneTick(t *testing.T) {
	// Two profitable triangles in the same snapshot, one daily slot. The
	// second approval must bounce even though the first execution has not
	// recorded its result yet.
	catalog := []domain.Path{trianglePath("BTC", "ETH"), trianglePath("BNB", "SOL")}
	markets := append(snapshotWithMultiplier("BTC", "ETH", 1.02, 0),
		snapshotWithMultiplier("BNB", "SOL", 1.02, 0)...)
	exchange := &stubExchange{snap: domain.NewSnapshot(markets, time.Now().UTC())}
	detector := NewDetector(catalog, 100, 0.5, 2)
	exec := &stubExecutor{}
	notifier := &captureNotifier{}

	riskMgr := risk.New(risk.Config{
		MaxDailyTrades:       1,
		CooldownPeriod:       time.Minute,
		MaxTradeAmount:       50,
		MaxPositionSize:      1000,
		MaxConsecutiveLosses: 3,
	}, domain.NewRiskState(time.Now().UTC()))

	s := New(
		Config{InputAmount: 100, MinProfitForAlertPct: 0.5, EnableTrading: true},
		exchange, detector, riskMgr, exec, notifier, nil,
	)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Len(t, exec.snapshot(), 1)
}

func TestScanner_RiskRejection_SkipsExecution(t *testing.T) {
	exchange, detector := profitableSetup()
	exec := &stubExecutor{}
	notifier := &captureNotifier{}
	riskMgr := newTestRisk()

	// Path already in cooldown from a previous execution.
	riskMgr.MarkExecutionStart("USDT->BTC->ETH->USDT")

	s := New(
		Config{InputAmount: 100, MinProfitForAlertPct: 0.5, EnableTrading: true},
		exchange, detector, riskMgr, exec, notifier, nil,
	)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Empty(t, exec.snapshot())
}

func TestScanner_ConnectivityFailure_SkipsTick(t *testing.T) {
	exchange := &stubExchange{err: &domain.ConnectivityError{Op: "bookTicker", Err: errors.New("dial tcp: timeout")}}
	detector := NewDetector([]domain.Path{trianglePath("BTC", "ETH")}, 100, 0.5, 1)
	exec := &stubExecutor{}
	notifier := &captureNotifier{}

	s := New(
		Config{InputAmount: 100, MinProfitForAlertPct: 0.5, EnableTrading: true},
		exchange, detector, newTestRisk(), exec, notifier, nil,
	)

	// A dropped snapshot is a skipped tick, not a loop failure.
	require.NoError(t, s.RunOnce(context.Background()))
	assert.Empty(t, exec.snapshot())
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Empty(t, notifier.opps)
}

func TestScanner_RunStopsOnContextCancel(t *testing.T) {
	exchange, detector := profitableSetup()
	exec := &stubExecutor{}
	notifier := &captureNotifier{}

	s := New(
		Config{ScanInterval: 10 * time.Millisecond, InputAmount: 100, MinProfitForAlertPct: 0.5},
		exchange, detector, newTestRisk(), exec, notifier, nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scanner did not stop after cancel")
	}
}
