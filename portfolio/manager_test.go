package portfolio

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/tradecore/types"
)

type fakeOrderPublisher struct {
	mu        sync.Mutex
	published []*types.Event
}

func (p *fakeOrderPublisher) Publish(ev *types.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, ev)
	return true
}

func (p *fakeOrderPublisher) snapshot() []*types.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*types.Event, len(p.published))
	copy(out, p.published)
	return out
}

func baseConfig() Config {
	return Config{
		MaxPositionPercent:      decimal.NewFromFloat(0.05),
		MaxTotalPositionPercent: decimal.NewFromFloat(0.8),
		MinOrderAmount:          decimal.NewFromInt(100),
		DefaultPositionSize:     decimal.NewFromInt(10000),
		PositionSizeMethod:      SizeFixedAmount,
		MaxDailyLossPercent:     decimal.NewFromFloat(0.05),
		MaxDrawdownPercent:      decimal.NewFromFloat(0.2),
		InitialCapital:          decimal.NewFromInt(1000000),
		AccountID:               "acct-1",
	}
}

// TestHappyPathSingleTrade mirrors scenario S1: a BUY signal at 10,000
// default size and reference price 10.00 should produce a 1000-share LIMIT
// order (10,000/10/100*100).
func TestHappyPathSingleTrade(t *testing.T) {
	pub := &fakeOrderPublisher{}
	m := NewManager(baseConfig(), pub)

	sig := types.NewSignal("sig1", "s1", "000001.SZ", types.DirBuy, decimal.NewFromFloat(0.8), decimal.NewFromFloat(10.00))
	ev := types.NewEvent(sig.ID, types.EventSignal, sig.Symbol, sig.Priority, sig)
	m.HandleEvent(ev)

	stats := m.Statistics()
	assert.Equal(t, int64(1), stats.PassedSignals)
	assert.Equal(t, int64(1), stats.GeneratedOrders)

	orders := pub.snapshot()
	require.Len(t, orders, 1)
	order, ok := orders[0].Payload.(*types.Order)
	require.True(t, ok)
	assert.Equal(t, int64(1000), order.Quantity)
	assert.True(t, order.LimitPrice.Equal(decimal.NewFromFloat(10.00)))
	assert.Equal(t, types.SideBuy, order.Side)
}

// TestPositionLimitRejectsOverConcentratedSignal mirrors scenario S2.
func TestPositionLimitRejectsOverConcentratedSignal(t *testing.T) {
	pub := &fakeOrderPublisher{}
	cfg := baseConfig()
	m := NewManager(cfg, pub)

	// Seed an existing position worth 60,000 out of 1,000,000 total (6%),
	// above the 5% MaxPositionPercent.
	fill := types.NewFill("f0", "o0", "000001.SZ", types.SideBuy, 6000, decimal.NewFromInt(10), "s1", true, types.DefaultFeeSchedule())
	m.account.ApplyFill(fill)
	m.priceCache.Store("000001.SZ", decimal.NewFromInt(10))

	sig := types.NewSignal("sig2", "s1", "000001.SZ", types.DirBuy, decimal.NewFromFloat(0.8), decimal.NewFromFloat(10.00))
	ev := types.NewEvent(sig.ID, types.EventSignal, sig.Symbol, sig.Priority, sig)
	m.HandleEvent(ev)

	stats := m.Statistics()
	assert.Equal(t, int64(0), stats.GeneratedOrders)
	assert.Equal(t, int64(1), stats.RejectedSignals)
	assert.Len(t, pub.snapshot(), 0)
}

func TestFillUpdatesAccountCashAndPosition(t *testing.T) {
	pub := &fakeOrderPublisher{}
	m := NewManager(baseConfig(), pub)

	fill := types.NewFill("f1", "o1", "000001.SZ", types.SideBuy, 1000, decimal.NewFromFloat(10.00), "s1", true, types.DefaultFeeSchedule())
	ev := types.NewEvent(fill.ID, types.EventFill, fill.Symbol, 1, fill)
	m.HandleEvent(ev)

	pos := m.account.PositionSnapshot("000001.SZ")
	require.NotNil(t, pos)
	assert.Equal(t, int64(1000), pos.Quantity)
	assert.True(t, m.account.Cash.LessThan(decimal.NewFromInt(1000000)))
}

// TestSignalFreezesCashUntilOrderFills verifies a BUY signal reserves its
// order's notional so a second signal against the same cash can't
// overcommit it, and that the reservation is released once the matching
// Fill arrives.
func TestSignalFreezesCashUntilOrderFills(t *testing.T) {
	pub := &fakeOrderPublisher{}
	m := NewManager(baseConfig(), pub)

	sig := types.NewSignal("sig5", "s1", "000001.SZ", types.DirBuy, decimal.NewFromFloat(0.8), decimal.NewFromFloat(10.00))
	ev := types.NewEvent(sig.ID, types.EventSignal, sig.Symbol, sig.Priority, sig)
	m.HandleEvent(ev)

	orders := pub.snapshot()
	require.Len(t, orders, 1)
	order, ok := orders[0].Payload.(*types.Order)
	require.True(t, ok)

	before := m.account.AvailableCash()
	assert.True(t, before.LessThan(decimal.NewFromInt(1000000)))

	fill := types.NewFill(order.ID+"-fill-1", order.ID, order.Symbol, order.Side, order.Quantity,
		order.LimitPrice, order.StrategyID, true, types.DefaultFeeSchedule())
	order.ApplyFill(fill.Quantity, fill.Price)
	fillEv := types.NewEvent(fill.ID, types.EventFill, fill.Symbol, 1, fill)
	m.HandleEvent(fillEv)

	require.True(t, order.IsTerminal())
	after := m.account.AvailableCash()
	assert.True(t, after.GreaterThan(before))
}

func TestDailyRiskCheckBlocksSymbolAfterSweep(t *testing.T) {
	pub := &fakeOrderPublisher{}
	cfg := baseConfig()
	cfg.MaxDailyLossPercent = decimal.NewFromFloat(0.01)
	m := NewManager(cfg, pub)

	status := m.riskStatusFor("000001.SZ")
	status.recordFill(decimal.NewFromInt(-50000), decimal.NewFromInt(1000000), time.Now())

	sweep := &types.Timer{Type: types.TimerRiskCheck}
	ev := types.NewEvent("t1", types.EventTimer, "", types.TimerPriority(types.TimerRiskCheck), sweep)
	m.HandleEvent(ev)

	blocked, reason := status.isBlocked()
	assert.True(t, blocked)
	assert.Equal(t, "risk-limit-triggered", reason)
}

// TestRestoreRiskStateReappliesPersistedBlock mirrors a restart: a symbol
// blocked before shutdown must reject signals immediately after restore,
// without waiting for a fresh breaker trip.
func TestRestoreRiskStateReappliesPersistedBlock(t *testing.T) {
	pub := &fakeOrderPublisher{}
	m := NewManager(baseConfig(), pub)

	m.RestoreRiskState([]RiskStateRecord{
		{Symbol: "000001.SZ", IsBlocked: true, BlockReason: "risk-limit-triggered"},
	})

	sig := types.NewSignal("sig4", "s1", "000001.SZ", types.DirBuy, decimal.NewFromFloat(0.8), decimal.NewFromFloat(10.00))
	ev := types.NewEvent(sig.ID, types.EventSignal, sig.Symbol, sig.Priority, sig)
	m.HandleEvent(ev)

	stats := m.Statistics()
	assert.Equal(t, int64(0), stats.GeneratedOrders)
	assert.Equal(t, int64(1), stats.RejectedSignals)
}

// TestCircuitBreakerTripIsPerSymbol guards against the breaker's trip state
// leaking across symbols: tripping 000001.SZ's breaker must not block
// signals for 000002.SZ.
func TestCircuitBreakerTripIsPerSymbol(t *testing.T) {
	pub := &fakeOrderPublisher{}
	cfg := baseConfig()
	cfg.MaxDailyLossPercent = decimal.NewFromFloat(0.01)
	m := NewManager(cfg, pub)

	bad := m.riskStatusFor("000001.SZ")
	bad.recordFill(decimal.NewFromInt(-50000), decimal.NewFromInt(1000000), time.Now())
	sweep := &types.Timer{Type: types.TimerRiskCheck}
	ev := types.NewEvent("t1", types.EventTimer, "", types.TimerPriority(types.TimerRiskCheck), sweep)
	m.HandleEvent(ev)

	blocked, _ := bad.isBlocked()
	require.True(t, blocked)

	good := m.riskStatusFor("000002.SZ")
	good.recordFill(decimal.NewFromInt(100), decimal.NewFromInt(1000000), time.Now())
	blocked, _ = good.isBlocked()
	require.False(t, blocked)

	sig := types.NewSignal("sig3", "s1", "000002.SZ", types.DirBuy, decimal.NewFromFloat(0.8), decimal.NewFromFloat(10.00))
	sigEv := types.NewEvent(sig.ID, types.EventSignal, sig.Symbol, sig.Priority, sig)
	m.HandleEvent(sigEv)

	stats := m.Statistics()
	assert.Equal(t, int64(1), stats.GeneratedOrders)
}
