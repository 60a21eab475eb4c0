package portfolio

import "github.com/shopspring/decimal"

// PositionSizeMethod selects the sizing strategy. Only fixed_amount is
// implemented — the others are reserved for future sizing strategies per
// §4.3's configuration knobs.
type PositionSizeMethod string

const (
	SizeFixedAmount PositionSizeMethod = "fixed_amount"
)

// Sizer computes the order amount (in cash terms) for a signal, split out
// of the manager as its own collaborator to leave room for future sizing
// methods without overloading the manager, grounded in the teacher's
// dedicated Sizer type.
type Sizer struct {
	method              PositionSizeMethod
	defaultPositionSize decimal.Decimal
}

func NewSizer(method PositionSizeMethod, defaultPositionSize decimal.Decimal) *Sizer {
	if method == "" {
		method = SizeFixedAmount
	}
	return &Sizer{method: method, defaultPositionSize: defaultPositionSize}
}

// OrderAmount returns suggestedSize if provided (positive), else the
// configured default. Only fixed_amount is supported today.
func (s *Sizer) OrderAmount(suggestedSize decimal.Decimal) decimal.Decimal {
	if suggestedSize.IsPositive() {
		return suggestedSize
	}
	return s.defaultPositionSize
}
