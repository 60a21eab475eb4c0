package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeSchedule holds the tunable rates behind Fill fee computation. The
// numeric defaults below are domain defaults, not hardcoded constants —
// callers (Execution Handler configuration) may override any of them.
type FeeSchedule struct {
	CommissionRate decimal.Decimal // applied to gross amount, both sides
	CommissionFloor decimal.Decimal
	StampTaxRate   decimal.Decimal // SELL only
	TransferRate   decimal.Decimal // both sides
	TransferFloor  decimal.Decimal
}

// DefaultFeeSchedule mirrors the domain defaults from the specification:
// commission rate*amount floored at 5, stamp tax 0.1% on sells only,
// transfer fee 0.002% floored at 1.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		CommissionRate:  decimal.NewFromFloat(0.0003),
		CommissionFloor: decimal.NewFromFloat(5),
		StampTaxRate:    decimal.NewFromFloat(0.001),
		TransferRate:    decimal.NewFromFloat(0.00002),
		TransferFloor:   decimal.NewFromFloat(1),
	}
}

// Fill is a realized (partial) execution of an order.
type Fill struct {
	ID           string
	OrderID      string
	Symbol       string
	Side         OrderSide
	Quantity     int64
	Price        decimal.Decimal
	GrossAmount  decimal.Decimal
	Commission   decimal.Decimal
	StampTax     decimal.Decimal
	TransferFee  decimal.Decimal
	TotalFee     decimal.Decimal
	NetAmount    decimal.Decimal
	Timestamp    time.Time
	StrategyID   string
	IsSimulated  bool
}

// NewFill computes a fully-costed Fill for qty shares of symbol at price,
// on the given side, using the supplied fee schedule.
func NewFill(id, orderID, symbol string, side OrderSide, qty int64, price decimal.Decimal, strategyID string, simulated bool, fees FeeSchedule) *Fill {
	gross := price.Mul(decimal.NewFromInt(qty))

	commission := gross.Mul(fees.CommissionRate)
	if commission.LessThan(fees.CommissionFloor) {
		commission = fees.CommissionFloor
	}

	stampTax := decimal.Zero
	if side == SideSell {
		stampTax = gross.Mul(fees.StampTaxRate)
	}

	transfer := gross.Mul(fees.TransferRate)
	if transfer.LessThan(fees.TransferFloor) {
		transfer = fees.TransferFloor
	}

	totalFee := commission.Add(stampTax).Add(transfer)

	var net decimal.Decimal
	if side == SideBuy {
		net = gross.Add(totalFee).Neg()
	} else {
		net = gross.Sub(totalFee)
	}

	return &Fill{
		ID:          id,
		OrderID:     orderID,
		Symbol:      symbol,
		Side:        side,
		Quantity:    qty,
		Price:       price,
		GrossAmount: gross,
		Commission:  commission,
		StampTax:    stampTax,
		TransferFee: transfer,
		TotalFee:    totalFee,
		NetAmount:   net,
		Timestamp:   time.Now(),
		StrategyID:  strategyID,
		IsSimulated: simulated,
	}
}
