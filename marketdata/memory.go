package marketdata

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/web3guy0/tradecore/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY PROVIDER - reference Provider for tests and local/backtest runs
// ═══════════════════════════════════════════════════════════════════════════════

// MemoryProvider serves bars preloaded via Seed/Push from an in-memory store.
// It is the stand-in a backtest driver or test feeds historical bars through;
// production deployments replace it with a real exchange/vendor adapter.
type MemoryProvider struct {
	mu       sync.RWMutex
	bars     map[string][]*types.Bar // symbol -> bars ordered by Timestamp
	calendar map[string]bool         // "2006-01-02" -> isTradingDay
	universe []string

	subMu       sync.Mutex
	subscribers map[string][]BarListener
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		bars:        make(map[string][]*types.Bar),
		calendar:    make(map[string]bool),
		subscribers: make(map[string][]BarListener),
	}
}

// Seed replaces the full historical bar set for symbol, keeping it sorted by
// timestamp so ReadBars/LatestBar can binary-search-free scan it.
func (m *MemoryProvider) Seed(symbol string, bars []*types.Bar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]*types.Bar, len(bars))
	copy(cp, bars)
	sort.Slice(cp, func(i, j int) bool { return cp[i].Timestamp.Before(cp[j].Timestamp) })
	m.bars[symbol] = cp
	found := false
	for _, s := range m.universe {
		if s == symbol {
			found = true
			break
		}
	}
	if !found {
		m.universe = append(m.universe, symbol)
	}
}

// SetTradingDay marks date as a trading day (or not) in the calendar.
func (m *MemoryProvider) SetTradingDay(date time.Time, isTrading bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calendar[dateKey(date)] = isTrading
}

// Push appends one new bar and fans it out to subscribers of its symbol —
// the mechanism a poll loop or a backtest clock driver uses to advance time.
func (m *MemoryProvider) Push(bar *types.Bar) {
	m.mu.Lock()
	m.bars[bar.Symbol] = append(m.bars[bar.Symbol], bar)
	m.mu.Unlock()

	m.subMu.Lock()
	listeners := append([]BarListener(nil), m.subscribers[bar.Symbol]...)
	m.subMu.Unlock()
	for _, l := range listeners {
		l.OnBar(bar)
	}
}

func (m *MemoryProvider) ReadBars(ctx context.Context, symbol string, start, end time.Time, freq types.Frequency) ([]*types.Bar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*types.Bar
	for _, b := range m.bars[symbol] {
		if b.Frequency != freq {
			continue
		}
		if b.Timestamp.Before(start) || b.Timestamp.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *MemoryProvider) LatestBar(ctx context.Context, symbol string, freq types.Frequency) (*types.Bar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bars := m.bars[symbol]
	for i := len(bars) - 1; i >= 0; i-- {
		if bars[i].Frequency == freq {
			return bars[i], nil
		}
	}
	return nil, nil
}

func (m *MemoryProvider) IsTradingDay(date time.Time) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	isTrading, ok := m.calendar[dateKey(date)]
	if !ok {
		wd := date.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	}
	return isTrading
}

func (m *MemoryProvider) TradingCalendar(start, end time.Time) []time.Time {
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if m.IsTradingDay(d) {
			out = append(out, d)
		}
	}
	return out
}

func (m *MemoryProvider) Universe(asOf time.Time) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.universe))
	copy(out, m.universe)
	return out
}

func (m *MemoryProvider) Subscribe(symbol string, listener BarListener) (unsubscribe func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	m.subscribers[symbol] = append(m.subscribers[symbol], listener)
	idx := len(m.subscribers[symbol]) - 1
	return func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		list := m.subscribers[symbol]
		if idx < len(list) {
			m.subscribers[symbol] = append(list[:idx], list[idx+1:]...)
		}
	}
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
