package execution

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/tradecore/types"
)

// Broker is the external adapter contract Live hands orders to. Real
// broker integration is outside the core per the Non-goals; this fixes the
// shape the core depends on.
type Broker interface {
	SubmitOrder(order *types.Order) error
	CancelOrder(orderID string) error
}

// Live is the ExecutionHandler variant whose doExecuteOrder hands the order
// to an external broker adapter; its async callbacks are translated into
// the same FillEvents the Simulated path emits.
type Live struct {
	*base
	broker Broker
}

func NewLive(publisher FillPublisher, fees types.FeeSchedule, broker Broker) *Live {
	l := &Live{broker: broker}
	l.base = newBase("execution-live", publisher, fees, l)
	return l
}

func (l *Live) doExecuteOrder(b *base, order *types.Order) error {
	if l.broker == nil {
		return fmt.Errorf("no broker configured")
	}
	return l.broker.SubmitOrder(order)
}

func (l *Live) doCancelOrder(b *base, order *types.Order) bool {
	if l.broker == nil {
		return false
	}
	return l.broker.CancelOrder(order.ID) == nil
}

// OnBrokerFill is invoked by the broker adapter's async callback when a
// (partial) fill is confirmed.
func (l *Live) OnBrokerFill(orderID string, qty int64, price decimal.Decimal) {
	l.base.mu.Lock()
	order, ok := l.base.activeOrders[orderID]
	l.base.mu.Unlock()
	if !ok {
		return
	}
	l.base.applyFill(order, qty, price, false)
}

// OnBrokerReject is invoked when the broker rejects an order asynchronously.
func (l *Live) OnBrokerReject(orderID string, reason string) {
	l.base.mu.Lock()
	order, ok := l.base.activeOrders[orderID]
	if ok {
		delete(l.base.activeOrders, orderID)
	}
	l.base.mu.Unlock()
	if ok {
		order.Reject(reason)
	}
}

var _ Handler = (*Live)(nil)
