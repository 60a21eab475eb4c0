package execution

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/tradecore/types"
)

type fakeFillPublisher struct {
	mu        sync.Mutex
	published []*types.Event
}

func (p *fakeFillPublisher) Publish(ev *types.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, ev)
	return true
}

func (p *fakeFillPublisher) snapshot() []*types.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*types.Event, len(p.published))
	copy(out, p.published)
	return out
}

func sampleBar(symbol string) *types.Bar {
	return &types.Bar{
		Symbol: symbol,
		Open:   decimal.NewFromFloat(10.00),
		High:   decimal.NewFromFloat(10.10),
		Low:    decimal.NewFromFloat(9.95),
		Close:  decimal.NewFromFloat(10.00),
		Volume: 10_000_000,
	}
}

func noRandomConfig() SimConfig {
	return SimConfig{
		EnableSlippage:         false,
		EnablePartialFill:      false,
		RejectionProbability:   0,
		EnableDelayedExecution: false,
		Seed:                   1,
	}
}

// TestLimitBuyFillsAtReferencePrice mirrors the LIMIT leg of scenario S1:
// a BUY limit at 10.00 against a bar with high 10.10/low 9.95 fills at
// min(limit, high) = 10.00.
func TestLimitBuyFillsAtReferencePrice(t *testing.T) {
	pub := &fakeFillPublisher{}
	sim := NewSimulated(pub, types.DefaultFeeSchedule(), noRandomConfig())
	sim.UpdateMarketData(sampleBar("000001.SZ"))

	order := types.NewOrder("o1", "000001.SZ", types.OrderLimit, types.SideBuy, 1000, decimal.NewFromFloat(10.00))
	ev := types.NewEvent("o1", types.EventOrder, order.Symbol, 2, order)
	sim.HandleEvent(ev)

	fills := pub.snapshot()
	require.Len(t, fills, 1)
	fill, ok := fills[0].Payload.(*types.Fill)
	require.True(t, ok)
	assert.True(t, fill.Price.Equal(decimal.NewFromFloat(10.00)))
	assert.Equal(t, int64(1000), fill.Quantity)
	assert.Equal(t, types.OrderFilled, order.Status)
}

func TestLimitBuyBelowMarketIsRejected(t *testing.T) {
	pub := &fakeFillPublisher{}
	sim := NewSimulated(pub, types.DefaultFeeSchedule(), noRandomConfig())
	sim.UpdateMarketData(sampleBar("000001.SZ"))

	order := types.NewOrder("o2", "000001.SZ", types.OrderLimit, types.SideBuy, 1000, decimal.NewFromFloat(9.00))
	ev := types.NewEvent("o2", types.EventOrder, order.Symbol, 2, order)
	sim.HandleEvent(ev)

	assert.Equal(t, types.OrderRejected, order.Status)
	assert.Equal(t, "limit below market", order.RejectReason)
	assert.Len(t, pub.snapshot(), 0)
}

func TestMissingMarketDataRejectsOrder(t *testing.T) {
	pub := &fakeFillPublisher{}
	sim := NewSimulated(pub, types.DefaultFeeSchedule(), noRandomConfig())

	order := types.NewOrder("o3", "UNKNOWN.SZ", types.OrderLimit, types.SideBuy, 100, decimal.NewFromFloat(10.00))
	ev := types.NewEvent("o3", types.EventOrder, order.Symbol, 2, order)
	sim.HandleEvent(ev)

	assert.Equal(t, types.OrderRejected, order.Status)
	assert.Equal(t, "missing market data", order.RejectReason)
}

// TestPartialFillLeavesOrderPartiallyFilled mirrors scenario S5: with
// partial fill forced on, a fill must be strictly less than the requested
// quantity and the order must remain PARTIALLY_FILLED with a nonzero
// remaining balance.
func TestPartialFillLeavesOrderPartiallyFilled(t *testing.T) {
	pub := &fakeFillPublisher{}
	cfg := noRandomConfig()
	cfg.EnablePartialFill = true
	cfg.PartialFillProbability = 1.0
	cfg.MinPartialFillRatio = 0.3
	sim := NewSimulated(pub, types.DefaultFeeSchedule(), cfg)
	sim.UpdateMarketData(sampleBar("000001.SZ"))

	order := types.NewOrder("o4", "000001.SZ", types.OrderLimit, types.SideBuy, 1000, decimal.NewFromFloat(10.00))
	ev := types.NewEvent("o4", types.EventOrder, order.Symbol, 2, order)
	sim.HandleEvent(ev)

	fills := pub.snapshot()
	require.Len(t, fills, 1)
	fill := fills[0].Payload.(*types.Fill)
	assert.Less(t, fill.Quantity, int64(1000))
	assert.Greater(t, fill.Quantity, int64(0))
	assert.Equal(t, types.OrderPartiallyFilled, order.Status)
	assert.Greater(t, order.RemainingQty, int64(0))
}

func TestSimulatedCancelAlwaysSucceeds(t *testing.T) {
	pub := &fakeFillPublisher{}
	sim := NewSimulated(pub, types.DefaultFeeSchedule(), noRandomConfig())
	sim.UpdateMarketData(sampleBar("000001.SZ"))

	order := types.NewOrder("o5", "000001.SZ", types.OrderLimit, types.SideBuy, 1000, decimal.NewFromFloat(1.00))
	ev := types.NewEvent("o5", types.EventOrder, order.Symbol, 2, order)
	sim.HandleEvent(ev)
	require.Equal(t, types.OrderRejected, order.Status, "limit below market should reject, leaving nothing active to cancel in this case")

	active := types.NewOrder("o6", "000001.SZ", types.OrderLimit, types.SideBuy, 1000, decimal.NewFromFloat(10.05))
	active.Status = types.OrderSubmitted
	sim.base.mu.Lock()
	sim.base.activeOrders[active.ID] = active
	sim.base.mu.Unlock()

	assert.True(t, sim.CancelOrder(active.ID))
	assert.Equal(t, types.OrderCancelled, active.Status)
}
