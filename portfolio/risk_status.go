package portfolio

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// RiskStatus is the per-symbol risk state consulted on the signal pipeline
// and re-evaluated on the periodic risk sweep.
type RiskStatus struct {
	mu sync.RWMutex

	Symbol         string
	IsBlocked      bool
	BlockReason    string
	DailyPnL       decimal.Decimal
	MaxDrawdown    decimal.Decimal
	PeakEquitySeen decimal.Decimal
	LastTradeTime  time.Time
}

func newRiskStatus(symbol string) *RiskStatus {
	return &RiskStatus{Symbol: symbol}
}

func (r *RiskStatus) snapshot() RiskStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RiskStatus{
		Symbol:         r.Symbol,
		IsBlocked:      r.IsBlocked,
		BlockReason:    r.BlockReason,
		DailyPnL:       r.DailyPnL,
		MaxDrawdown:    r.MaxDrawdown,
		PeakEquitySeen: r.PeakEquitySeen,
		LastTradeTime:  r.LastTradeTime,
	}
}

func (r *RiskStatus) block(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.IsBlocked = true
	r.BlockReason = reason
}

func (r *RiskStatus) isBlocked() (bool, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.IsBlocked, r.BlockReason
}

// recordFill folds a fill's net P&L contribution into the symbol's daily
// P&L and updates drawdown tracking against the supplied current equity.
func (r *RiskStatus) recordFill(netAmount, currentEquity decimal.Decimal, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.DailyPnL = r.DailyPnL.Add(netAmount)
	r.LastTradeTime = at

	if currentEquity.GreaterThan(r.PeakEquitySeen) {
		r.PeakEquitySeen = currentEquity
	}
	if !r.PeakEquitySeen.IsZero() {
		drawdown := r.PeakEquitySeen.Sub(currentEquity).Div(r.PeakEquitySeen)
		if drawdown.GreaterThan(r.MaxDrawdown) {
			r.MaxDrawdown = drawdown
		}
	}
}

func (r *RiskStatus) resetDaily() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.DailyPnL = decimal.Zero
	r.IsBlocked = false
	r.BlockReason = ""
}
