package strategy

import (
	"github.com/web3guy0/tradecore/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// STRATEGY CONTRACT - polymorphism over the source's BaseStrategy hierarchy
// ═══════════════════════════════════════════════════════════════════════════════

// Type tags what role a strategy plays in watched-symbol resolution.
type Type string

const (
	TypeEntry         Type = "ENTRY"
	TypeExit          Type = "EXIT"
	TypeUniversalStop Type = "UNIVERSAL_STOP"
)

// Status is a strategy's lifecycle state.
type Status string

const (
	StatusNotInitialized Status = "NOT_INITIALIZED"
	StatusInitialized    Status = "INITIALIZED"
	StatusRunning        Status = "RUNNING"
	StatusPaused         Status = "PAUSED"
	StatusStopped        Status = "STOPPED"
	StatusError          Status = "ERROR"
)

// Config is the hot-updatable configuration handed to a strategy.
type Config map[string]any

// Universe answers which symbols are currently tradeable and which symbols
// each strategy holds, so watchedSymbols() can be resolved by type without
// strategies needing direct account access.
type Universe interface {
	AllSymbols() []string
	HeldSymbols(strategyID string) []string
	AllHeldSymbols() []string
}

// Strategy is the capability set every strategy implementation exposes —
// the polymorphism-over-interface replacement for the inheritance-based
// BaseStrategy hierarchy.
type Strategy interface {
	StrategyID() string
	StrategyType() Type
	Status() Status

	// WatchedSymbols returns the dynamic set of symbols of interest right
	// now, resolved against the supplied Universe. The Manager uses the
	// returned set as-is; implementations apply the ENTRY/EXIT/UNIVERSAL_STOP
	// rule themselves, typically via ResolveWatchedSymbols.
	WatchedSymbols(universe Universe) []string

	OnMarketEvent(event *types.Event) []*types.Signal
	OnFillEvent(event *types.Event)
	OnTimerEvent(event *types.Event)

	Initialize(cfg Config) error
	Start() error
	Stop() error
	Reset() error
	UpdateConfig(cfg Config) error
}
