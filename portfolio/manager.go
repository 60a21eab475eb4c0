package portfolio

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/tradecore/eventengine"
	"github.com/web3guy0/tradecore/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// PORTFOLIO & RISK MANAGER - signal arbitration, sizing, order construction
// ═══════════════════════════════════════════════════════════════════════════════

// Config is the enumerated configuration surface from §4.3/§6.
type Config struct {
	MaxPositionPercent      decimal.Decimal
	MaxTotalPositionPercent decimal.Decimal
	MinOrderAmount          decimal.Decimal
	DefaultPositionSize     decimal.Decimal
	PositionSizeMethod      PositionSizeMethod

	MaxDailyLossPercent decimal.Decimal
	MaxDrawdownPercent  decimal.Decimal
	MaxCorrelation      decimal.Decimal // reserved, unused

	InitialCapital decimal.Decimal
	AccountID      string

	CircuitBreakerCooldown time.Duration
}

// OrderPublisher is the minimal surface the Manager needs to emit
// OrderEvents — narrow so tests can substitute a fake.
type OrderPublisher interface {
	Publish(ev *types.Event) bool
}

type Manager struct {
	cfg     Config
	account *types.Account
	sizer   *Sizer
	breaker *CircuitBreaker

	statusMu    sync.Mutex
	riskStatus  map[string]*RiskStatus
	priceCache  sync.Map // symbol(string) -> decimal.Decimal

	// frozenByOrder tracks cash reserved against each live order's notional,
	// released once the order reaches a terminal state (filled in full,
	// cancelled, rejected, or expired).
	frozenMu      sync.Mutex
	frozenByOrder map[string]decimal.Decimal

	publisher OrderPublisher

	totalSignals    int64
	passedSignals   int64
	rejectedSignals int64
	generatedOrders int64
}

func NewManager(cfg Config, publisher OrderPublisher) *Manager {
	cooldown := cfg.CircuitBreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Minute
	}
	return &Manager{
		cfg:           cfg,
		account:       types.NewAccount(cfg.AccountID, cfg.InitialCapital),
		sizer:         NewSizer(cfg.PositionSizeMethod, cfg.DefaultPositionSize),
		breaker:       NewCircuitBreaker(cfg.MaxDailyLossPercent, cfg.MaxDrawdownPercent, cooldown),
		riskStatus:    make(map[string]*RiskStatus),
		frozenByOrder: make(map[string]decimal.Decimal),
		publisher:     publisher,
	}
}

func (m *Manager) Name() string    { return "portfolio-risk-manager" }
func (m *Manager) Initialize() error { return nil }
func (m *Manager) Destroy()        {}

var _ eventengine.Handler = (*Manager)(nil)

// Account exposes the managed account for read-only inspection (operator
// status, persistence snapshots).
func (m *Manager) Account() *types.Account { return m.account }

func (m *Manager) riskStatusFor(symbol string) *RiskStatus {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	rs, ok := m.riskStatus[symbol]
	if !ok {
		rs = newRiskStatus(symbol)
		m.riskStatus[symbol] = rs
	}
	return rs
}

// RiskStateRecord is the narrow shape RestoreRiskState accepts, matching the
// persisted storage.RiskState row field-for-field without coupling this
// package to the storage package.
type RiskStateRecord struct {
	Symbol         string
	IsBlocked      bool
	BlockReason    string
	DailyPnL       decimal.Decimal
	MaxDrawdown    decimal.Decimal
	PeakEquitySeen decimal.Decimal
	LastTradeTime  time.Time
}

// RestoreRiskState seeds the manager's per-symbol risk state from persisted
// storage rows — called once at startup, before the engine starts routing
// signals, so a symbol blocked before a restart stays blocked after one.
func (m *Manager) RestoreRiskState(states []RiskStateRecord) {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	for _, s := range states {
		rs := newRiskStatus(s.Symbol)
		rs.IsBlocked = s.IsBlocked
		rs.BlockReason = s.BlockReason
		rs.DailyPnL = s.DailyPnL
		rs.MaxDrawdown = s.MaxDrawdown
		rs.PeakEquitySeen = s.PeakEquitySeen
		rs.LastTradeTime = s.LastTradeTime
		m.riskStatus[s.Symbol] = rs
	}
}

// RiskStatusSnapshot returns a copy of every tracked symbol's risk state,
// keyed by symbol — used by the composition root to persist risk state
// periodically and on shutdown.
func (m *Manager) RiskStatusSnapshot() map[string]RiskStatus {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	out := make(map[string]RiskStatus, len(m.riskStatus))
	for symbol, rs := range m.riskStatus {
		out[symbol] = rs.snapshot()
	}
	return out
}

// Statistics is a point-in-time snapshot of the manager's counters.
type Statistics struct {
	TotalSignals    int64
	PassedSignals   int64
	RejectedSignals int64
	GeneratedOrders int64
}

func (m *Manager) Statistics() Statistics {
	return Statistics{
		TotalSignals:    atomic.LoadInt64(&m.totalSignals),
		PassedSignals:   atomic.LoadInt64(&m.passedSignals),
		RejectedSignals: atomic.LoadInt64(&m.rejectedSignals),
		GeneratedOrders: atomic.LoadInt64(&m.generatedOrders),
	}
}

// HandleEvent implements eventengine.Handler: routes SIGNAL through the
// gating pipeline, FILL through account/risk-state updates, MARKET into
// the reference-price cache used for total-asset valuation, and TIMER
// (RISK_CHECK) into the periodic sweep.
func (m *Manager) HandleEvent(event *types.Event) {
	switch event.Type {
	case types.EventSignal:
		m.handleSignal(event)
	case types.EventFill:
		m.handleFill(event)
	case types.EventMarket:
		m.handleMarket(event)
	case types.EventTimer:
		m.handleTimer(event)
	}
}

func (m *Manager) handleMarket(event *types.Event) {
	if bar, ok := event.Payload.(*types.Bar); ok && !bar.Close.IsZero() {
		m.priceCache.Store(bar.Symbol, bar.Close)
	}
}

func (m *Manager) priceSnapshot() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	m.priceCache.Range(func(k, v any) bool {
		out[k.(string)] = v.(decimal.Decimal)
		return true
	})
	return out
}

func (m *Manager) totalAssets() decimal.Decimal {
	return m.account.TotalMarketValue(m.priceSnapshot())
}

// reject logs+counts a gated-out signal and returns.
func (m *Manager) reject(signal *types.Signal, reason string) {
	atomic.AddInt64(&m.rejectedSignals, 1)
	log.Warn().Str("signal", signal.ID).Str("symbol", signal.Symbol).Str("reason", reason).Msg("signal rejected")
}

// handleSignal implements the 8-step pipeline from §4.3.
func (m *Manager) handleSignal(event *types.Event) {
	signal, ok := event.Payload.(*types.Signal)
	if !ok {
		return
	}
	atomic.AddInt64(&m.totalSignals, 1)

	// 1. Validity.
	if !signal.IsValid() || signal.IsExpired(time.Now()) {
		m.reject(signal, "invalid or expired")
		return
	}

	// 2. Per-symbol block.
	status := m.riskStatusFor(signal.Symbol)
	if blocked, reason := status.isBlocked(); blocked {
		m.reject(signal, "blocked: "+reason)
		return
	}

	totalAssets := m.totalAssets()

	// 3. Position-limit check.
	if signal.Direction == types.DirBuy && !totalAssets.IsZero() {
		if pos := m.account.PositionSnapshot(signal.Symbol); pos != nil {
			posValue := pos.MarketValue(signal.ReferencePrice)
			if posValue.Div(totalAssets).GreaterThanOrEqual(m.cfg.MaxPositionPercent) {
				m.reject(signal, "position-limit: symbol concentration")
				return
			}
		}
		currentTotalPositionValue := m.account.TotalMarketValue(m.priceSnapshot()).Sub(m.account.AvailableCash())
		if currentTotalPositionValue.Div(totalAssets).GreaterThanOrEqual(m.cfg.MaxTotalPositionPercent) {
			m.reject(signal, "position-limit: total exposure")
			return
		}
	}

	// 6 (computed early for the cash check in step 4). Sizing.
	orderAmount := m.sizer.OrderAmount(signal.SuggestedSize)

	// 4. Cash check (BUY only).
	if signal.Direction == types.DirBuy {
		if orderAmount.LessThan(m.cfg.MinOrderAmount) || orderAmount.GreaterThan(m.account.AvailableCash()) {
			m.reject(signal, "cash check failed")
			return
		}
	}

	// 5. Daily risk check.
	if tripped, reason := m.breaker.Evaluate(status, totalAssets); tripped {
		status.block(reason)
		m.reject(signal, reason)
		return
	}

	// 7. Order construction.
	lots := orderAmount.Div(signal.ReferencePrice).Div(decimal.NewFromInt(100)).Floor()
	quantity := lots.Mul(decimal.NewFromInt(100)).IntPart()
	if quantity <= 0 {
		m.reject(signal, "zero quantity after lot rounding")
		return
	}

	side := types.SideBuy
	if signal.Direction == types.DirSell {
		side = types.SideSell
	}
	order := types.NewOrder(signal.ID+"-order", signal.Symbol, types.OrderLimit, side, quantity, signal.ReferencePrice)
	order.SignalID = signal.ID
	order.StrategyID = signal.StrategyID
	order.Tag = signal.ID

	// Reserve cash against the order's notional so a second BUY signal for
	// the same symbol can't pass the cash check against funds this order
	// already claims. SELL orders don't consume cash, so nothing is frozen.
	if side == types.SideBuy {
		notional := order.LimitPrice.Mul(decimal.NewFromInt(order.Quantity))
		if !m.account.FreezeCash(notional) {
			m.reject(signal, "cash check failed")
			return
		}
		m.frozenMu.Lock()
		m.frozenByOrder[order.ID] = notional
		m.frozenMu.Unlock()
	}
	m.account.RegisterOrder(order)

	atomic.AddInt64(&m.passedSignals, 1)
	atomic.AddInt64(&m.generatedOrders, 1)

	// 8. Publish.
	ev := types.NewEvent(order.ID, types.EventOrder, order.Symbol, 2, order).
		WithExtra("action", types.OrderActionNew).
		WithExtra("relatedSignalId", signal.ID)
	m.publisher.Publish(ev)
}

func (m *Manager) handleFill(event *types.Event) {
	fill, ok := event.Payload.(*types.Fill)
	if !ok {
		return
	}
	m.account.ApplyFill(fill)

	status := m.riskStatusFor(fill.Symbol)
	status.recordFill(fill.NetAmount, m.totalAssets(), fill.Timestamp)

	if order, ok := m.account.GetOrder(fill.OrderID); ok && order.IsTerminal() {
		m.releaseFrozenCash(order.ID)
	}
}

// releaseFrozenCash unfreezes the cash reserved for orderID, if any. Safe to
// call more than once for the same order — unknown or already-released
// order IDs are a no-op.
func (m *Manager) releaseFrozenCash(orderID string) {
	m.frozenMu.Lock()
	amount, ok := m.frozenByOrder[orderID]
	if ok {
		delete(m.frozenByOrder, orderID)
	}
	m.frozenMu.Unlock()
	if ok {
		m.account.UnfreezeCash(amount)
	}
}

// handleTimer runs the periodic risk sweep on RISK_CHECK ticks.
func (m *Manager) handleTimer(event *types.Event) {
	timer, ok := event.Payload.(*types.Timer)
	if !ok || timer.Type != types.TimerRiskCheck {
		return
	}

	totalAssets := m.totalAssets()

	m.statusMu.Lock()
	statuses := make([]*RiskStatus, 0, len(m.riskStatus))
	for _, rs := range m.riskStatus {
		statuses = append(statuses, rs)
	}
	m.statusMu.Unlock()

	for _, status := range statuses {
		if blocked, _ := status.isBlocked(); blocked {
			continue
		}
		if tripped, reason := m.breaker.Evaluate(status, totalAssets); tripped {
			status.block(reason)
		}
	}

	m.reconcileFrozenCash()
}

// reconcileFrozenCash releases cash reserved for orders that reached a
// terminal state without ever producing a FillEvent — CANCELLED and
// REJECTED orders in particular, which the execution handler resolves
// in-place without publishing anything back onto the bus.
func (m *Manager) reconcileFrozenCash() {
	m.frozenMu.Lock()
	orderIDs := make([]string, 0, len(m.frozenByOrder))
	for id := range m.frozenByOrder {
		orderIDs = append(orderIDs, id)
	}
	m.frozenMu.Unlock()

	for _, id := range orderIDs {
		order, ok := m.account.GetOrder(id)
		if !ok || order.IsTerminal() {
			m.releaseFrozenCash(id)
		}
	}
}
