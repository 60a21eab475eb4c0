package strategy

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/tradecore/types"
)

// fakeUniverse implements Universe with a fixed symbol set and per-strategy
// holdings, for exercising the three watched-symbol rules in isolation.
type fakeUniverse struct {
	all  []string
	held map[string][]string
}

func (u *fakeUniverse) AllSymbols() []string { return u.all }
func (u *fakeUniverse) HeldSymbols(strategyID string) []string { return u.held[strategyID] }
func (u *fakeUniverse) AllHeldSymbols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, syms := range u.held {
		for _, s := range syms {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// fakeStrategy is a minimal Strategy implementation for manager tests.
type fakeStrategy struct {
	mu       sync.Mutex
	id       string
	stype    Type
	status   Status
	onMarket func(*types.Event) []*types.Signal
	onFill   func(*types.Event)
	onTimer  func(*types.Event)
	initErr  error
}

func (s *fakeStrategy) StrategyID() string     { return s.id }
func (s *fakeStrategy) StrategyType() Type     { return s.stype }
func (s *fakeStrategy) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
func (s *fakeStrategy) WatchedSymbols(universe Universe) []string {
	return ResolveWatchedSymbols(s.stype, s.id, universe)
}
func (s *fakeStrategy) OnMarketEvent(event *types.Event) []*types.Signal {
	if s.onMarket != nil {
		return s.onMarket(event)
	}
	return nil
}
func (s *fakeStrategy) OnFillEvent(event *types.Event) {
	if s.onFill != nil {
		s.onFill(event)
	}
}
func (s *fakeStrategy) OnTimerEvent(event *types.Event) {
	if s.onTimer != nil {
		s.onTimer(event)
	}
}
func (s *fakeStrategy) Initialize(cfg Config) error { return s.initErr }
func (s *fakeStrategy) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusRunning
	return nil
}
func (s *fakeStrategy) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusStopped
	return nil
}
func (s *fakeStrategy) Reset() error { return nil }
func (s *fakeStrategy) UpdateConfig(cfg Config) error { return nil }

type fakePublisher struct {
	mu        sync.Mutex
	published []*types.Event
}

func (p *fakePublisher) Publish(ev *types.Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, ev)
	return true
}

func (p *fakePublisher) snapshot() []*types.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*types.Event, len(p.published))
	copy(out, p.published)
	return out
}

func TestResolveWatchedSymbolsByType(t *testing.T) {
	u := &fakeUniverse{
		all:  []string{"AAA", "BBB", "CCC"},
		held: map[string][]string{"s1": {"AAA"}, "s2": {"BBB"}},
	}

	assert.ElementsMatch(t, []string{"BBB", "CCC"}, ResolveWatchedSymbols(TypeEntry, "s1", u))
	assert.ElementsMatch(t, []string{"AAA"}, ResolveWatchedSymbols(TypeExit, "s1", u))
	assert.ElementsMatch(t, []string{"AAA", "BBB"}, ResolveWatchedSymbols(TypeUniversalStop, "s1", u))
}

func TestRegisterRejectsDuplicateAndOverCapacity(t *testing.T) {
	u := &fakeUniverse{all: []string{"AAA"}}
	m := NewManager(1, u, &fakePublisher{})

	s1 := &fakeStrategy{id: "s1", stype: TypeEntry, status: StatusInitialized}
	require.NoError(t, m.Register(s1, Config{}))

	dup := &fakeStrategy{id: "s1", stype: TypeEntry, status: StatusInitialized}
	assert.Error(t, m.Register(dup, Config{}), "duplicate id must be rejected")

	s2 := &fakeStrategy{id: "s2", stype: TypeEntry, status: StatusInitialized}
	assert.Error(t, m.Register(s2, Config{}), "exceeding maxStrategies must be rejected")
}

func TestRegisterAbandonsOnInitializeError(t *testing.T) {
	u := &fakeUniverse{all: []string{"AAA"}}
	m := NewManager(5, u, &fakePublisher{})

	broken := &fakeStrategy{id: "broken", stype: TypeEntry, initErr: assert.AnError}
	assert.Error(t, m.Register(broken, Config{}))
	assert.Len(t, m.Stats(), 0)
}

func TestMarketEventOnlyReachesRunningWatchingStrategies(t *testing.T) {
	u := &fakeUniverse{all: []string{"AAA", "BBB"}}
	pub := &fakePublisher{}
	m := NewManager(5, u, pub)

	var calls int
	watching := &fakeStrategy{
		id: "watching", stype: TypeEntry, status: StatusRunning,
		onMarket: func(ev *types.Event) []*types.Signal {
			calls++
			return []*types.Signal{types.NewSignal("sig1", "watching", ev.Symbol, types.DirBuy, decimal.NewFromFloat(0.9), decimal.NewFromInt(10))}
		},
	}
	paused := &fakeStrategy{id: "paused", stype: TypeEntry, status: StatusPaused}

	require.NoError(t, m.Register(watching, Config{}))
	require.NoError(t, m.Register(paused, Config{}))

	ev := types.NewEvent("mkt1", types.EventMarket, "AAA", 3, nil)
	m.HandleEvent(ev)

	assert.Equal(t, 1, calls)
	assert.Len(t, pub.snapshot(), 1, "one SignalEvent should have been published")
}

func TestFillEventRoutesOnlyToOwningStrategy(t *testing.T) {
	u := &fakeUniverse{all: []string{"AAA"}}
	m := NewManager(5, u, &fakePublisher{})

	var got *types.Event
	owner := &fakeStrategy{
		id: "owner", stype: TypeExit, status: StatusRunning,
		onFill: func(ev *types.Event) { got = ev },
	}
	other := &fakeStrategy{id: "other", stype: TypeExit, status: StatusRunning}

	require.NoError(t, m.Register(owner, Config{}))
	require.NoError(t, m.Register(other, Config{}))

	fill := &types.Fill{StrategyID: "owner", Symbol: "AAA"}
	ev := types.NewEvent("fill1", types.EventFill, "AAA", 1, fill)
	m.HandleEvent(ev)

	require.NotNil(t, got)
	assert.Equal(t, "fill1", got.ID)
}

func TestPanicInStrategyCallbackIsIsolated(t *testing.T) {
	u := &fakeUniverse{all: []string{"AAA"}}
	m := NewManager(5, u, &fakePublisher{})

	panicky := &fakeStrategy{
		id: "panicky", stype: TypeEntry, status: StatusRunning,
		onMarket: func(ev *types.Event) []*types.Signal { panic("boom") },
	}
	require.NoError(t, m.Register(panicky, Config{}))

	ev := types.NewEvent("mkt1", types.EventMarket, "AAA", 3, nil)
	assert.NotPanics(t, func() { m.HandleEvent(ev) })

	stats := m.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, int64(1), stats[0].Errors)
}
