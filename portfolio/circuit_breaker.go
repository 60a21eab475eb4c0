package portfolio

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// breakerState is one symbol's trip/cooldown state.
type breakerState struct {
	tripped   bool
	trippedAt time.Time
	reason    string
}

// CircuitBreaker is the daily-loss/drawdown trip + cooldown collaborator the
// daily risk check (§4.3 step 5) and periodic sweep delegate to, split out
// of the manager the way the teacher splits its own risk package into
// dedicated sizing/circuit-breaking/TP-SL collaborators. Trip state is kept
// per symbol so one symbol breaching its daily-loss/drawdown limit never
// halts trading on the rest of the universe.
type CircuitBreaker struct {
	mu sync.Mutex

	maxDailyLossPercent decimal.Decimal
	maxDrawdownPercent  decimal.Decimal
	cooldown            time.Duration

	states map[string]*breakerState
}

func NewCircuitBreaker(maxDailyLossPercent, maxDrawdownPercent decimal.Decimal, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxDailyLossPercent: maxDailyLossPercent,
		maxDrawdownPercent:  maxDrawdownPercent,
		cooldown:            cooldown,
		states:              make(map[string]*breakerState),
	}
}

func (cb *CircuitBreaker) stateFor(symbol string) *breakerState {
	st, ok := cb.states[symbol]
	if !ok {
		st = &breakerState{}
		cb.states[symbol] = st
	}
	return st
}

// Evaluate re-checks the daily-loss/drawdown condition against the symbol's
// RiskStatus and current total assets, tripping (latching) if breached.
// Already-tripped state auto-clears once the cooldown elapses. Each symbol
// has its own trip state, so tripping one symbol's breaker never blocks
// signals for another.
func (cb *CircuitBreaker) Evaluate(status *RiskStatus, totalAssets decimal.Decimal) (tripped bool, reason string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	snap := status.snapshot()
	st := cb.stateFor(snap.Symbol)

	if st.tripped {
		if time.Since(st.trippedAt) > cb.cooldown {
			st.tripped = false
			st.reason = ""
		} else {
			return true, st.reason
		}
	}

	if totalAssets.IsZero() {
		return st.tripped, st.reason
	}

	maxLoss := cb.maxDailyLossPercent.Neg().Mul(totalAssets)
	if snap.DailyPnL.LessThan(maxLoss) {
		cb.trip(st, "risk-limit-triggered")
		return true, st.reason
	}

	if snap.MaxDrawdown.GreaterThan(cb.maxDrawdownPercent) {
		cb.trip(st, "risk-limit-triggered")
		return true, st.reason
	}

	return false, ""
}

func (cb *CircuitBreaker) trip(st *breakerState, reason string) {
	st.tripped = true
	st.trippedAt = time.Now()
	st.reason = reason
	log.Warn().Str("reason", reason).Msg("🚨 circuit breaker tripped")
}

// IsTripped reports whether symbol's breaker is currently latched.
func (cb *CircuitBreaker) IsTripped(symbol string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	st, ok := cb.states[symbol]
	if !ok {
		return false
	}
	if st.tripped && time.Since(st.trippedAt) > cb.cooldown {
		st.tripped = false
		st.reason = ""
	}
	return st.tripped
}
