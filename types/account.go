package types

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// TradeStatus is the lifecycle state of a round-trip Trade.
type TradeStatus string

const (
	TradeOpen           TradeStatus = "OPEN"
	TradePartiallyClosed TradeStatus = "PARTIALLY_CLOSED"
	TradeClosed         TradeStatus = "CLOSED"
)

// Trade is an informational round-trip aggregation (open fill + close fill).
// It is NOT the authoritative P&L ledger — that is cash + position
// valuation + realized history, tracked on Account directly.
type Trade struct {
	ID         string
	Symbol     string
	OpenFill   *Fill
	CloseFill  *Fill
	RealizedPL decimal.Decimal
	Status     TradeStatus
}

// Account is the single owner of cash, positions, orders, and fill/trade
// history. All mutating operations are serialized on the account's mutex —
// per §5, freeze/unfreeze/position updates are logically owned by whichever
// component's worker is driving the fill/order pipeline, but external
// readers may call the Snapshot-style getters at any time.
type Account struct {
	mu sync.Mutex

	ID              string
	InitialCapital  decimal.Decimal
	Cash            decimal.Decimal
	FrozenCash      decimal.Decimal
	Positions       map[string]*Position
	Orders          map[string]*Order
	Fills           []*Fill
	Trades          []*Trade
	TotalCommission decimal.Decimal
	TotalRealizedPL decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewAccount creates an account fully funded with cash == initialCapital.
func NewAccount(id string, initialCapital decimal.Decimal) *Account {
	now := time.Now()
	return &Account{
		ID:             id,
		InitialCapital: initialCapital,
		Cash:           initialCapital,
		Positions:      make(map[string]*Position),
		Orders:         make(map[string]*Order),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AvailableCash returns cash - frozenCash.
func (a *Account) AvailableCash() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.availableCashLocked()
}

func (a *Account) availableCashLocked() decimal.Decimal {
	return a.Cash.Sub(a.FrozenCash)
}

// IsHealthy reports whether cash >= frozenCash >= 0 and frozenCash <= cash.
func (a *Account) IsHealthy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.FrozenCash.LessThan(decimal.Zero) {
		return false
	}
	if a.Cash.LessThan(a.FrozenCash) {
		return false
	}
	return a.availableCashLocked().GreaterThanOrEqual(decimal.Zero)
}

// FreezeCash reserves amount of cash, failing if it would leave available
// cash negative.
func (a *Account) FreezeCash(amount decimal.Decimal) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if amount.GreaterThan(a.availableCashLocked()) {
		return false
	}
	a.FrozenCash = a.FrozenCash.Add(amount)
	a.UpdatedAt = time.Now()
	return true
}

// UnfreezeCash releases a previously frozen amount.
func (a *Account) UnfreezeCash(amount decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.FrozenCash = a.FrozenCash.Sub(amount)
	if a.FrozenCash.LessThan(decimal.Zero) {
		a.FrozenCash = decimal.Zero
	}
	a.UpdatedAt = time.Now()
}

// RegisterOrder tracks a newly created order.
func (a *Account) RegisterOrder(o *Order) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Orders[o.ID] = o
	a.UpdatedAt = time.Now()
}

// GetOrder returns the tracked order, if any.
func (a *Account) GetOrder(id string) (*Order, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	o, ok := a.Orders[id]
	return o, ok
}

// ApplyFill is the single mutation path for positions, cash, and fill/trade
// history — per the cross-entity invariant that account state is mutated
// only via the fill-handling path. delta is the signed share count (positive
// for BUY, negative for SELL).
func (a *Account) ApplyFill(fill *Fill) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delta := fill.Quantity
	if fill.Side == SideSell {
		delta = -delta
	}

	pos, ok := a.Positions[fill.Symbol]
	if !ok {
		pos = &Position{Symbol: fill.Symbol, StrategyID: fill.StrategyID}
		a.Positions[fill.Symbol] = pos
	}
	newQty := pos.ApplyFill(delta, fill.Price)
	if newQty == 0 {
		delete(a.Positions, fill.Symbol)
	}

	a.Cash = a.Cash.Add(fill.NetAmount)
	a.TotalCommission = a.TotalCommission.Add(fill.Commission).Add(fill.StampTax).Add(fill.TransferFee)
	a.Fills = append(a.Fills, fill)
	a.UpdatedAt = time.Now()
}

// TotalMarketValue returns cash + sum(|qty| * price) across positions,
// falling back to average cost for symbols absent from prices.
func (a *Account) TotalMarketValue(prices map[string]decimal.Decimal) decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := a.Cash
	for symbol, pos := range a.Positions {
		price := prices[symbol]
		total = total.Add(pos.MarketValue(price))
	}
	return total
}

// PositionSnapshot returns a copy of the position for symbol, or nil.
func (a *Account) PositionSnapshot(symbol string) *Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	pos, ok := a.Positions[symbol]
	if !ok {
		return nil
	}
	cp := *pos
	return &cp
}

// PositionsSnapshot returns a copy of the full positions map.
func (a *Account) PositionsSnapshot() map[string]*Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]*Position, len(a.Positions))
	for k, v := range a.Positions {
		cp := *v
		out[k] = &cp
	}
	return out
}
