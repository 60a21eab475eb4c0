package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/tradecore/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// MARKETDATA GATEWAY - turns pushed/polled Bars into MarketEvents on the bus
// ═══════════════════════════════════════════════════════════════════════════════
//
// Grounded in the teacher's feeds.BinanceFeed poll loop: a ticker-driven
// pollLoop fetches the latest value per tracked symbol and broadcasts on
// change. Here the fetch is Provider.LatestBar and the broadcast target is
// the Event Engine instead of feed-local subscriber channels.
// ═══════════════════════════════════════════════════════════════════════════════

const defaultPollInterval = time.Second

// Publisher is the minimal surface the gateway needs to emit MarketEvents.
type Publisher interface {
	Publish(ev *types.Event) bool
}

// Gateway bridges a Provider to the Event Engine, in two complementary ways:
//   - push: Provider.Subscribe delivers bars as they arrive, forwarded
//     immediately as MarketEvents.
//   - poll: for providers without a live push path, pollLoop asks
//     LatestBar per tracked symbol on an interval and forwards on change.
type Gateway struct {
	provider Provider
	freq     types.Frequency
	interval time.Duration
	publisher Publisher

	mu          sync.Mutex
	running     bool
	stopCh      chan struct{}
	doneCh      chan struct{}
	unsubscribes []func()

	lastMu sync.Mutex
	last   map[string]*types.Bar
}

// NewGateway creates a Gateway over provider, polling at interval (or
// defaultPollInterval if interval <= 0) for the given frequency.
func NewGateway(provider Provider, freq types.Frequency, interval time.Duration, publisher Publisher) *Gateway {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Gateway{
		provider:  provider,
		freq:      freq,
		interval:  interval,
		publisher: publisher,
		last:      make(map[string]*types.Bar),
	}
}

// Start subscribes to push updates for every symbol in the current universe
// and launches the poll loop as a fallback for providers that never push.
func (g *Gateway) Start(ctx context.Context) {
	g.mu.Lock()
	if g.running {
		g.mu.Unlock()
		return
	}
	g.running = true
	g.stopCh = make(chan struct{})
	g.doneCh = make(chan struct{})
	g.mu.Unlock()

	for _, symbol := range g.provider.Universe(time.Now()) {
		sym := symbol
		unsub := g.provider.Subscribe(sym, BarListenerFunc(func(bar *types.Bar) {
			g.publishIfNew(bar)
		}))
		g.mu.Lock()
		g.unsubscribes = append(g.unsubscribes, unsub)
		g.mu.Unlock()
	}

	go g.pollLoop(ctx)
	log.Info().Dur("interval", g.interval).Msg("📡 marketdata gateway started")
}

// Stop halts the poll loop and releases push subscriptions.
func (g *Gateway) Stop() {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return
	}
	g.running = false
	close(g.stopCh)
	unsubs := g.unsubscribes
	g.unsubscribes = nil
	g.mu.Unlock()

	<-g.doneCh
	for _, unsub := range unsubs {
		unsub()
	}
}

func (g *Gateway) pollLoop(ctx context.Context) {
	defer close(g.doneCh)
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.pollOnce(ctx)
		}
	}
}

func (g *Gateway) pollOnce(ctx context.Context) {
	for _, symbol := range g.provider.Universe(time.Now()) {
		bar, err := g.provider.LatestBar(ctx, symbol, g.freq)
		if err != nil || bar == nil {
			continue
		}
		g.publishIfNew(bar)
	}
}

func (g *Gateway) publishIfNew(bar *types.Bar) {
	g.lastMu.Lock()
	prev, seen := g.last[bar.Symbol]
	if seen && !prev.Timestamp.Before(bar.Timestamp) {
		g.lastMu.Unlock()
		return
	}
	g.last[bar.Symbol] = bar
	g.lastMu.Unlock()

	ev := types.NewEvent(bar.Symbol+"-"+bar.Timestamp.String(), types.EventMarket, bar.Symbol, 3, bar)
	if !g.publisher.Publish(ev) {
		log.Warn().Str("symbol", bar.Symbol).Msg("market event dropped by publisher")
	}
}
