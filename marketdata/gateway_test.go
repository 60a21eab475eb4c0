package marketdata

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/tradecore/types"
)

type fakeGatewayPublisher struct {
	mu        sync.Mutex
	published []*types.Event
}

func (p *fakeGatewayPublisher) Publish(ev *types.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, ev)
	return true
}

func (p *fakeGatewayPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func testBar(symbol string, ts time.Time) *types.Bar {
	return &types.Bar{
		Symbol:    symbol,
		Timestamp: ts,
		Frequency: types.Freq1d,
		Open:      decimal.NewFromFloat(10),
		High:      decimal.NewFromFloat(10.5),
		Low:       decimal.NewFromFloat(9.5),
		Close:     decimal.NewFromFloat(10.2),
		Volume:    1000,
	}
}

func TestGatewayPushForwardsNewBarAsMarketEvent(t *testing.T) {
	provider := NewMemoryProvider()
	bar := testBar("000001.SZ", time.Now())
	provider.Seed("000001.SZ", []*types.Bar{bar})

	pub := &fakeGatewayPublisher{}
	gw := NewGateway(provider, types.Freq1d, 50*time.Millisecond, pub)
	gw.Start(context.Background())
	defer gw.Stop()

	next := testBar("000001.SZ", bar.Timestamp.Add(time.Hour))
	provider.Push(next)

	require.Eventually(t, func() bool { return pub.count() >= 1 }, time.Second, 10*time.Millisecond)

	pub.mu.Lock()
	ev := pub.published[0]
	pub.mu.Unlock()
	assert.Equal(t, types.EventMarket, ev.Type)
	assert.Equal(t, "000001.SZ", ev.Symbol)
}

func TestGatewayStopHaltsFurtherEvents(t *testing.T) {
	provider := NewMemoryProvider()
	provider.Seed("000001.SZ", []*types.Bar{testBar("000001.SZ", time.Now())})

	pub := &fakeGatewayPublisher{}
	gw := NewGateway(provider, types.Freq1d, 10*time.Millisecond, pub)
	gw.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	gw.Stop()

	after := pub.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, pub.count())
}

func TestMemoryProviderIsTradingDayDefaultsToWeekday(t *testing.T) {
	provider := NewMemoryProvider()
	saturday := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
	assert.False(t, provider.IsTradingDay(saturday))
	assert.True(t, provider.IsTradingDay(monday))
}

func TestUniverseResolvesAllAndHeldSymbols(t *testing.T) {
	provider := NewMemoryProvider()
	provider.Seed("000001.SZ", []*types.Bar{testBar("000001.SZ", time.Now())})
	provider.Seed("000002.SZ", []*types.Bar{testBar("000002.SZ", time.Now())})

	account := types.NewAccount("acc1", decimal.NewFromInt(1000000))
	account.ApplyFill(&types.Fill{
		ID: "f1", OrderID: "o1", Symbol: "000001.SZ", Side: types.SideBuy,
		Quantity: 100, Price: decimal.NewFromFloat(10), NetAmount: decimal.NewFromFloat(-1000),
	})

	universe := NewUniverse(provider, account)
	all := universe.AllSymbols()
	assert.ElementsMatch(t, []string{"000001.SZ", "000002.SZ"}, all)
	assert.Equal(t, []string{"000001.SZ"}, universe.AllHeldSymbols())
}

func TestUniverseHeldSymbolsIsScopedByStrategy(t *testing.T) {
	provider := NewMemoryProvider()
	provider.Seed("000001.SZ", []*types.Bar{testBar("000001.SZ", time.Now())})
	provider.Seed("000002.SZ", []*types.Bar{testBar("000002.SZ", time.Now())})

	account := types.NewAccount("acc1", decimal.NewFromInt(1000000))
	account.ApplyFill(&types.Fill{
		ID: "f1", OrderID: "o1", Symbol: "000001.SZ", Side: types.SideBuy,
		Quantity: 100, Price: decimal.NewFromFloat(10), NetAmount: decimal.NewFromFloat(-1000),
		StrategyID: "strat-a",
	})
	account.ApplyFill(&types.Fill{
		ID: "f2", OrderID: "o2", Symbol: "000002.SZ", Side: types.SideBuy,
		Quantity: 50, Price: decimal.NewFromFloat(20), NetAmount: decimal.NewFromFloat(-1000),
		StrategyID: "strat-b",
	})

	universe := NewUniverse(provider, account)
	assert.Equal(t, []string{"000001.SZ"}, universe.HeldSymbols("strat-a"))
	assert.Equal(t, []string{"000002.SZ"}, universe.HeldSymbols("strat-b"))
	assert.Empty(t, universe.HeldSymbols("strat-c"))
	assert.ElementsMatch(t, []string{"000001.SZ", "000002.SZ"}, universe.AllHeldSymbols())
}
