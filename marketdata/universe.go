package marketdata

import (
	"time"

	"github.com/web3guy0/tradecore/types"
)

// AccountView is the read-only slice of Account the Universe adapter needs
// to resolve held symbols, kept narrow so marketdata does not depend on the
// full account/portfolio surface.
type AccountView interface {
	PositionsSnapshot() map[string]*types.Position
}

// Universe adapts a Provider's tradeable symbol set and an account's open
// positions into the strategy.Universe contract, so ENTRY/EXIT/UNIVERSAL_STOP
// watched-symbol resolution never needs direct account access.
type Universe struct {
	provider Provider
	account  AccountView
}

func NewUniverse(provider Provider, account AccountView) *Universe {
	return &Universe{provider: provider, account: account}
}

func (u *Universe) AllSymbols() []string {
	return u.provider.Universe(time.Now())
}

// HeldSymbols returns every symbol with a nonzero position whose
// Position.StrategyID matches strategyID — distinct from AllHeldSymbols,
// which spans every strategy. EXIT strategies watch exactly this set.
func (u *Universe) HeldSymbols(strategyID string) []string {
	positions := u.account.PositionsSnapshot()
	out := make([]string, 0, len(positions))
	for symbol, pos := range positions {
		if pos.Quantity != 0 && pos.StrategyID == strategyID {
			out = append(out, symbol)
		}
	}
	return out
}

func (u *Universe) AllHeldSymbols() []string {
	positions := u.account.PositionsSnapshot()
	out := make([]string, 0, len(positions))
	for symbol, pos := range positions {
		if pos.Quantity != 0 {
			out = append(out, symbol)
		}
	}
	return out
}
