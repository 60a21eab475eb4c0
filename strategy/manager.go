package strategy

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/tradecore/eventengine"
	"github.com/web3guy0/tradecore/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// STRATEGY MANAGER - registry + fan-out coordinator
// ═══════════════════════════════════════════════════════════════════════════════
//
// Subscribes itself to MARKET, FILL, and TIMER events on the bus and fans
// each out to the registered strategies per the dispatch rules below. A
// strategy callback panic is caught and counted — it never stops the
// strategy or affects any other.
//
// ═══════════════════════════════════════════════════════════════════════════════

// SignalPublisher is the minimal surface the Manager needs from the Event
// Engine to emit SignalEvents — kept narrow so tests can fake it.
type SignalPublisher interface {
	Publish(ev *types.Event) bool
}

type Manager struct {
	mu            sync.RWMutex
	strategies    map[string]*Context
	maxStrategies int
	universe      Universe
	publisher     SignalPublisher
}

// NewManager creates a Manager bounded to maxStrategies concurrently
// registered strategies, publishing signals onto publisher and resolving
// universe/held-symbol queries against universe.
func NewManager(maxStrategies int, universe Universe, publisher SignalPublisher) *Manager {
	if maxStrategies <= 0 {
		maxStrategies = 50
	}
	return &Manager{
		strategies:    make(map[string]*Context),
		maxStrategies: maxStrategies,
		universe:      universe,
		publisher:     publisher,
	}
}

// Name implements eventengine.Handler.
func (m *Manager) Name() string { return "strategy-manager" }

// Initialize implements eventengine.Handler. The manager itself has no
// external resources to acquire.
func (m *Manager) Initialize() error { return nil }

// Destroy implements eventengine.Handler.
func (m *Manager) Destroy() {}

var _ eventengine.Handler = (*Manager)(nil)

// Register adds a strategy, rejecting if its id is already present or the
// registered count would exceed maxStrategies. Calls Initialize(cfg) before
// storing; a strategy that errors in Initialize is never registered.
func (m *Manager) Register(s Strategy, cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := s.StrategyID()
	if id == "" {
		return fmt.Errorf("strategy id must not be empty")
	}
	if _, exists := m.strategies[id]; exists {
		return fmt.Errorf("strategy %q already registered", id)
	}
	if len(m.strategies) >= m.maxStrategies {
		return fmt.Errorf("max strategies (%d) reached", m.maxStrategies)
	}

	if err := s.Initialize(cfg); err != nil {
		return fmt.Errorf("strategy %q failed to initialize: %w", id, err)
	}

	m.strategies[id] = newContext(s, cfg)
	log.Info().Str("strategy", id).Str("type", string(s.StrategyType())).Msg("strategy registered")
	return nil
}

// Unregister stops and removes a strategy.
func (m *Manager) Unregister(id string) error {
	m.mu.Lock()
	ctx, ok := m.strategies[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("strategy %q not registered", id)
	}
	delete(m.strategies, id)
	m.mu.Unlock()

	return ctx.Strategy.Stop()
}

func (m *Manager) get(id string) (*Context, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ctx, ok := m.strategies[id]
	return ctx, ok
}

func (m *Manager) StartStrategy(id string) error {
	ctx, ok := m.get(id)
	if !ok {
		return fmt.Errorf("strategy %q not registered", id)
	}
	return ctx.Strategy.Start()
}

func (m *Manager) StopStrategy(id string) error {
	ctx, ok := m.get(id)
	if !ok {
		return fmt.Errorf("strategy %q not registered", id)
	}
	return ctx.Strategy.Stop()
}

func (m *Manager) StartAll() error {
	m.mu.RLock()
	contexts := make([]*Context, 0, len(m.strategies))
	for _, ctx := range m.strategies {
		contexts = append(contexts, ctx)
	}
	m.mu.RUnlock()

	var firstErr error
	for _, ctx := range contexts {
		if err := ctx.Strategy.Start(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Manager) StopAll() error {
	m.mu.RLock()
	contexts := make([]*Context, 0, len(m.strategies))
	for _, ctx := range m.strategies {
		contexts = append(contexts, ctx)
	}
	m.mu.RUnlock()

	var firstErr error
	for _, ctx := range contexts {
		if err := ctx.Strategy.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Manager) UpdateStrategyConfig(id string, cfg Config) error {
	ctx, ok := m.get(id)
	if !ok {
		return fmt.Errorf("strategy %q not registered", id)
	}
	if err := ctx.Strategy.UpdateConfig(cfg); err != nil {
		return err
	}
	m.mu.Lock()
	ctx.Config = cfg
	m.mu.Unlock()
	return nil
}

// Stats returns a snapshot of every registered strategy's counters.
func (m *Manager) Stats() []Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Stats, 0, len(m.strategies))
	for _, ctx := range m.strategies {
		out = append(out, ctx.statsSnapshot())
	}
	return out
}

// HandleEvent implements eventengine.Handler. It is invoked once per
// MARKET/FILL/TIMER event the manager is subscribed to (see §4.2 dispatch
// rules); the registry is read under read lock and the strategy callbacks
// run outside it.
func (m *Manager) HandleEvent(event *types.Event) {
	switch event.Type {
	case types.EventMarket:
		m.dispatchMarket(event)
	case types.EventFill:
		m.dispatchFill(event)
	case types.EventTimer:
		m.dispatchTimer(event)
	}
}

func (m *Manager) dispatchMarket(event *types.Event) {
	m.mu.RLock()
	contexts := make([]*Context, 0, len(m.strategies))
	for _, ctx := range m.strategies {
		contexts = append(contexts, ctx)
	}
	m.mu.RUnlock()

	for _, ctx := range contexts {
		if ctx.Strategy.Status() != StatusRunning {
			continue
		}
		watched := ctx.Strategy.WatchedSymbols(m.universe)
		if !containsSymbol(watched, event.Symbol) {
			continue
		}

		ctx.incReceived()
		signals := m.invokeOnMarket(ctx, event)
		ctx.incProcessed()
		ctx.addSignals(int64(len(signals)))

		for _, sig := range signals {
			m.publishSignal(sig, event.ID)
		}
	}
}

func (m *Manager) dispatchFill(event *types.Event) {
	fill, ok := event.Payload.(*types.Fill)
	if !ok || fill.StrategyID == "" {
		return
	}
	ctx, ok := m.get(fill.StrategyID)
	if !ok || ctx.Strategy.Status() != StatusRunning {
		return
	}
	ctx.incReceived()
	m.invokeOnFill(ctx, event)
	ctx.incProcessed()
}

func (m *Manager) dispatchTimer(event *types.Event) {
	m.mu.RLock()
	contexts := make([]*Context, 0, len(m.strategies))
	for _, ctx := range m.strategies {
		contexts = append(contexts, ctx)
	}
	m.mu.RUnlock()

	for _, ctx := range contexts {
		if ctx.Strategy.Status() != StatusRunning {
			continue
		}
		ctx.incReceived()
		m.invokeOnTimer(ctx, event)
		ctx.incProcessed()
	}
}

// invokeOnMarket, invokeOnFill, invokeOnTimer catch panics from strategy
// callbacks so one misbehaving strategy never takes down the manager or
// its siblings — the strategy's errors counter takes the hit instead.
func (m *Manager) invokeOnMarket(ctx *Context, event *types.Event) (signals []*types.Signal) {
	defer func() {
		if r := recover(); r != nil {
			ctx.incErrors()
			log.Error().Interface("panic", r).Str("strategy", ctx.Strategy.StrategyID()).Msg("strategy panicked in OnMarketEvent")
			signals = nil
		}
	}()
	return ctx.Strategy.OnMarketEvent(event)
}

func (m *Manager) invokeOnFill(ctx *Context, event *types.Event) {
	defer func() {
		if r := recover(); r != nil {
			ctx.incErrors()
			log.Error().Interface("panic", r).Str("strategy", ctx.Strategy.StrategyID()).Msg("strategy panicked in OnFillEvent")
		}
	}()
	ctx.Strategy.OnFillEvent(event)
}

func (m *Manager) invokeOnTimer(ctx *Context, event *types.Event) {
	defer func() {
		if r := recover(); r != nil {
			ctx.incErrors()
			log.Error().Interface("panic", r).Str("strategy", ctx.Strategy.StrategyID()).Msg("strategy panicked in OnTimerEvent")
		}
	}()
	ctx.Strategy.OnTimerEvent(event)
}

func (m *Manager) publishSignal(sig *types.Signal, triggeringEventID string) {
	ev := types.NewEvent(sig.ID, types.EventSignal, sig.Symbol, sig.Priority, sig).
		WithExtra("triggeringEventId", triggeringEventID)
	m.publisher.Publish(ev)
}

func containsSymbol(symbols []string, symbol string) bool {
	for _, s := range symbols {
		if s == symbol {
			return true
		}
	}
	return false
}
