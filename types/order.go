package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderMarket    OrderType = "MARKET"
	OrderLimit     OrderType = "LIMIT"
	OrderStop      OrderType = "STOP"
	OrderStopLimit OrderType = "STOP_LIMIT"
)

type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

type OrderStatus string

const (
	OrderPending         OrderStatus = "PENDING"
	OrderSubmitted       OrderStatus = "SUBMITTED"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderFilled          OrderStatus = "FILLED"
	OrderCancelled       OrderStatus = "CANCELLED"
	OrderRejected        OrderStatus = "REJECTED"
	OrderExpired         OrderStatus = "EXPIRED"
)

// TimeInForce is the validity policy of an order across time.
type TimeInForce string

const (
	TIFDay TimeInForce = "DAY"
	TIFGTC TimeInForce = "GTC"
	TIFIOC TimeInForce = "IOC"
	TIFFOK TimeInForce = "FOK"
	TIFGTT TimeInForce = "GTT"
)

// OrderAction tags the intent carried by an OrderEvent.
type OrderAction string

const (
	OrderActionNew    OrderAction = "NEW"
	OrderActionModify OrderAction = "MODIFY"
	OrderActionCancel OrderAction = "CANCEL"
	OrderActionReject OrderAction = "REJECT"
)

// Order is a commitment to trade pending execution.
type Order struct {
	ID               string
	Symbol           string
	Type             OrderType
	Side             OrderSide
	Quantity         int64
	LimitPrice       decimal.Decimal
	Status           OrderStatus
	CreatedAt        time.Time
	SubmittedAt      time.Time
	LastUpdateAt     time.Time
	FilledQuantity   int64
	RemainingQty     int64
	AvgFillPrice     decimal.Decimal
	TotalFillAmount  decimal.Decimal
	SignalID         string
	StrategyID       string
	Tag              string
	TimeInForce      TimeInForce
	ExpireAt         *time.Time
	CancelReason     string
	RejectReason     string
}

// NewOrder constructs a PENDING order with remaining == quantity.
func NewOrder(id, symbol string, typ OrderType, side OrderSide, qty int64, limitPrice decimal.Decimal) *Order {
	now := time.Now()
	return &Order{
		ID:              id,
		Symbol:          symbol,
		Type:            typ,
		Side:            side,
		Quantity:        qty,
		LimitPrice:      limitPrice,
		Status:          OrderPending,
		CreatedAt:       now,
		LastUpdateAt:    now,
		RemainingQty:    qty,
		AvgFillPrice:    decimal.Zero,
		TotalFillAmount: decimal.Zero,
		TimeInForce:     TIFDay,
	}
}

// IsTerminal reports whether the order has reached a final status.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderFilled, OrderCancelled, OrderRejected, OrderExpired:
		return true
	default:
		return false
	}
}

// IsCancellable reports whether the order can still be cancelled.
func (o *Order) IsCancellable() bool {
	switch o.Status {
	case OrderPending, OrderSubmitted, OrderPartiallyFilled:
		return true
	default:
		return false
	}
}

// ApplyFill records a fill of the given quantity at the given price,
// updating filled/remaining, average fill price, and status.
// Invariants maintained: filled+remaining == quantity;
// avgFillPrice = totalFillAmount/filledQuantity when filledQuantity > 0.
func (o *Order) ApplyFill(qty int64, price decimal.Decimal) {
	if qty <= 0 {
		return
	}
	if qty > o.RemainingQty {
		qty = o.RemainingQty
	}
	amount := price.Mul(decimal.NewFromInt(qty))
	o.TotalFillAmount = o.TotalFillAmount.Add(amount)
	o.FilledQuantity += qty
	o.RemainingQty -= qty
	if o.FilledQuantity > 0 {
		o.AvgFillPrice = o.TotalFillAmount.Div(decimal.NewFromInt(o.FilledQuantity))
	}
	o.LastUpdateAt = time.Now()
	if o.RemainingQty == 0 {
		o.Status = OrderFilled
	} else {
		o.Status = OrderPartiallyFilled
	}
}

// Submit transitions a PENDING order to SUBMITTED, stamping SubmittedAt.
func (o *Order) Submit() {
	o.Status = OrderSubmitted
	o.SubmittedAt = time.Now()
	o.LastUpdateAt = o.SubmittedAt
}

// Reject transitions the order to REJECTED with a reason.
func (o *Order) Reject(reason string) {
	o.Status = OrderRejected
	o.RejectReason = reason
	o.LastUpdateAt = time.Now()
}

// Cancel transitions the order to CANCELLED with a reason.
func (o *Order) Cancel(reason string) {
	o.Status = OrderCancelled
	o.CancelReason = reason
	o.LastUpdateAt = time.Now()
}

// Expire transitions the order to EXPIRED.
func (o *Order) Expire() {
	o.Status = OrderExpired
	o.LastUpdateAt = time.Now()
}
