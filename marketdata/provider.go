package marketdata

import (
	"context"
	"time"

	"github.com/web3guy0/tradecore/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// UPSTREAM PROVIDER - the boundary interface in §6, implemented outside the core
// ═══════════════════════════════════════════════════════════════════════════════

// BarListener receives pushed bars for a subscribed symbol.
type BarListener interface {
	OnBar(bar *types.Bar)
}

// BarListenerFunc adapts a plain function to BarListener.
type BarListenerFunc func(bar *types.Bar)

func (f BarListenerFunc) OnBar(bar *types.Bar) { f(bar) }

// Provider is the upstream data boundary: historical reads, trading-calendar
// lookups, universe membership, and a push subscription for real-time bars.
// Real datafeed integration (exchange APIs, vendor feeds) lives outside this
// core and implements this interface; MemoryProvider (memory.go) is the
// in-memory stand-in for tests and local runs.
type Provider interface {
	ReadBars(ctx context.Context, symbol string, start, end time.Time, freq types.Frequency) ([]*types.Bar, error)
	LatestBar(ctx context.Context, symbol string, freq types.Frequency) (*types.Bar, error)
	IsTradingDay(date time.Time) bool
	TradingCalendar(start, end time.Time) []time.Time
	Universe(asOf time.Time) []string
	Subscribe(symbol string, listener BarListener) (unsubscribe func())
}
