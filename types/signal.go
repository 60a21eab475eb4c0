package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the trade bias a Signal recommends.
type Direction string

const (
	DirBuy  Direction = "BUY"
	DirSell Direction = "SELL"
	DirHold Direction = "HOLD"
)

// Signal is a strategy's directional, strength-weighted recommendation.
type Signal struct {
	ID             string
	StrategyID     string
	Symbol         string
	Direction      Direction
	Strength       decimal.Decimal // clamped to [0,1]
	Timestamp      time.Time
	ReferencePrice decimal.Decimal // > 0
	SuggestedSize  decimal.Decimal // optional
	Reason         string
	Priority       int // [1,10]
	ValiditySecs   int // default 300
	StopLoss       decimal.Decimal // optional
	TakeProfit     decimal.Decimal // optional
}

// NewSignal constructs a Signal, clamping strength into [0,1] and applying
// the default validity window.
func NewSignal(id, strategyID, symbol string, dir Direction, strength decimal.Decimal, refPrice decimal.Decimal) *Signal {
	if strength.LessThan(decimal.Zero) {
		strength = decimal.Zero
	}
	if strength.GreaterThan(decimal.NewFromInt(1)) {
		strength = decimal.NewFromInt(1)
	}
	return &Signal{
		ID:             id,
		StrategyID:     strategyID,
		Symbol:         symbol,
		Direction:      dir,
		Strength:       strength,
		Timestamp:      time.Now(),
		ReferencePrice: refPrice,
		Priority:       5,
		ValiditySecs:   300,
	}
}

// IsValid requires all non-optional fields populated and within range.
func (s *Signal) IsValid() bool {
	if s.ID == "" || s.StrategyID == "" || s.Symbol == "" {
		return false
	}
	switch s.Direction {
	case DirBuy, DirSell, DirHold:
	default:
		return false
	}
	if s.Strength.LessThan(decimal.Zero) || s.Strength.GreaterThan(decimal.NewFromInt(1)) {
		return false
	}
	if !s.ReferencePrice.GreaterThan(decimal.Zero) {
		return false
	}
	if s.Priority < 1 || s.Priority > 10 {
		return false
	}
	if s.Timestamp.IsZero() {
		return false
	}
	return true
}

// IsExpired reports whether the signal's validity window has elapsed by now.
func (s *Signal) IsExpired(now time.Time) bool {
	validity := s.ValiditySecs
	if validity <= 0 {
		validity = 300
	}
	return now.After(s.Timestamp.Add(time.Duration(validity) * time.Second))
}
