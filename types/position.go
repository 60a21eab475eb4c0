package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is a per-symbol net holding with average cost basis.
// Quantity is signed: positive long, negative short, zero flat.
type Position struct {
	Symbol       string
	Quantity     int64
	AvgCost      decimal.Decimal
	StrategyID   string
	LastUpdateAt time.Time
}

// ApplyFill updates the position for a fill of signed delta qty (positive
// for BUY, negative for SELL) at price p, following the spec's update rule:
//   - same sign (add): q' = q+Δ; avg' = |q*avg + Δ*p| / |q'|
//   - opposite sign, |Δ| <= |q| (reduce): avg unchanged, qty updates
//   - opposite sign, |Δ| > |q| (reverse through zero): avg' = p
//
// Returns the updated quantity; callers should delete the position entry
// from their map when the returned quantity is zero.
func (p *Position) ApplyFill(delta int64, price decimal.Decimal) int64 {
	if delta == 0 {
		return p.Quantity
	}

	q := p.Quantity
	sameSign := q == 0 || (q > 0) == (delta > 0)

	switch {
	case sameSign:
		newQty := q + delta
		if newQty != 0 {
			qDec := decimal.NewFromInt(q)
			dDec := decimal.NewFromInt(delta)
			numerator := qDec.Mul(p.AvgCost).Add(dDec.Mul(price)).Abs()
			p.AvgCost = numerator.Div(decimal.NewFromInt(newQty).Abs())
		}
		p.Quantity = newQty

	case abs64(delta) <= abs64(q):
		// Reduce: avg cost unchanged.
		p.Quantity = q + delta

	default:
		// Reverse through zero.
		p.Quantity = q + delta
		p.AvgCost = price
	}

	p.LastUpdateAt = time.Now()
	return p.Quantity
}

// MarketValue returns |quantity| * price, falling back to average cost if
// price is the zero value (unknown).
func (p *Position) MarketValue(price decimal.Decimal) decimal.Decimal {
	if price.IsZero() {
		price = p.AvgCost
	}
	return decimal.NewFromInt(abs64(p.Quantity)).Mul(price)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
